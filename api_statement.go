/*
 * Copyright 2024 ScopeDB, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package mosaic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
)

// StartQuery implements RemoteBackend with POST /v1/statements.
func (conn *Connection) StartQuery(ctx context.Context, request *StatementRequest) (*StatementResponse, error) {
	req, err := url.Parse(conn.config.Endpoint + "/v1/statements")
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	resp, err := conn.http.Post(ctx, req, body)
	if err != nil {
		return nil, err
	}
	defer sneakyBodyClose(resp.Body)
	if err := checkStatusCodeOK(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var respData StatementResponse
	err = json.Unmarshal(data, &respData)
	return &respData, err
}

// PollQuery implements RemoteBackend with GET /v1/statements/{id}.
func (conn *Connection) PollQuery(ctx context.Context, statementID string) (*StatementResponse, error) {
	req, err := url.Parse(conn.config.Endpoint + "/v1/statements/" + url.PathEscape(statementID))
	if err != nil {
		return nil, err
	}
	q := req.Query()
	q.Add("format", string(ResultFormatArrow))
	req.RawQuery = q.Encode()

	resp, err := conn.http.Get(ctx, req)
	if err != nil {
		return nil, err
	}
	defer sneakyBodyClose(resp.Body)
	if err := checkStatusCodeOK(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var respData StatementResponse
	err = json.Unmarshal(data, &respData)
	return &respData, err
}

// StreamChunks implements RemoteBackend with GET /v1/statements/{id}/result.
// The response body is read in chunks of Config.ChunkSize bytes.
func (conn *Connection) StreamChunks(ctx context.Context, header *ResultHeader) (ChunkStream, error) {
	if header == nil {
		return nil, errors.New("nil result header")
	}

	req, err := url.Parse(conn.config.Endpoint + "/v1/statements/" + url.PathEscape(header.StatementID) + "/result")
	if err != nil {
		return nil, err
	}

	resp, err := conn.http.Get(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := checkStatusCodeOK(resp); err != nil {
		sneakyBodyClose(resp.Body)
		return nil, err
	}

	return &bodyStream{
		body: resp.Body,
		buf:  make([]byte, conn.config.ChunkSize),
	}, nil
}

type statementCancelResponse struct {
	Status StatementStatus `json:"status"`
}

// CancelQuery implements RemoteBackend with POST /v1/statements/{id}/cancel.
func (conn *Connection) CancelQuery(ctx context.Context, statementID string) (StatementStatus, error) {
	req, err := url.Parse(conn.config.Endpoint + "/v1/statements/" + url.PathEscape(statementID) + "/cancel")
	if err != nil {
		return "", err
	}

	resp, err := conn.http.Post(ctx, req, []byte{})
	if err != nil {
		return "", err
	}
	defer sneakyBodyClose(resp.Body)
	if err := checkStatusCodeOK(resp); err != nil {
		return "", err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var respData statementCancelResponse
	err = json.Unmarshal(data, &respData)
	return respData.Status, err
}

// bodyStream reads an HTTP response body in fixed size chunks. The last chunk
// may be shorter.
type bodyStream struct {
	body io.ReadCloser
	buf  []byte
	done bool
}

func (s *bodyStream) Next(ctx context.Context) ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := io.ReadFull(s.body, s.buf)
	switch {
	case err == nil:
		return s.buf[:n], nil
	case errors.Is(err, io.EOF):
		s.done = true
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.done = true
		return s.buf[:n], nil
	default:
		return nil, err
	}
}

func (s *bodyStream) Close() error {
	return s.body.Close()
}
