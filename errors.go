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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrNoConnector is returned by a Coordinator that has no bound connector.
	ErrNoConnector = errors.New("no database connector bound")
	// ErrEmptyStatement is returned when a query is issued with an empty SQL string.
	ErrEmptyStatement = errors.New("empty statement")
)

// Error represents an error response from the remote database service.
type Error struct {
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// TransportError reports that a start, poll, stream or cancel call failed. It
// covers network failures, rejected credentials and statements the backend
// reported as failed.
type TransportError struct {
	// Op is the remote operation that failed, e.g. "start" or "poll".
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that polling a statement exceeded the configured bound.
type TimeoutError struct {
	StatementID string
	Attempts    int
	Elapsed     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("statement %s not ready after %d polls (%s)", e.StatementID, e.Attempts, e.Elapsed)
}

// Timeout reports true; it lets callers treat TimeoutError like net.Error.
func (e *TimeoutError) Timeout() bool {
	return true
}

// FormatError reports that a buffer could not be decoded as an Arrow IPC stream.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed columnar buffer: %v", e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// UnsupportedOperationError reports that a connector was asked for a result kind
// it does not produce. No I/O happens before it is returned.
type UnsupportedOperationError struct {
	Connector string
	Kind      ResultKind
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s connector does not support %q results", e.Connector, e.Kind)
}

// ProtocolViolationError reports a start/poll sequence that reached a state the
// statement protocol does not allow.
type ProtocolViolationError struct {
	StatementID string
	Reason      string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation on statement %s: %s", e.StatementID, e.Reason)
}

func checkStatusCodeOK(resp *http.Response) error {
	return checkStatusCode(resp, http.StatusOK)
}

func checkStatusCode(resp *http.Response, expected int) error {
	if resp.StatusCode == expected {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	msg := string(data)
	if err != nil {
		return fmt.Errorf("%d: %s", resp.StatusCode, msg)
	}
	var errResp Error
	err = json.Unmarshal(data, &errResp)
	if err != nil || errResp.Message == "" {
		return fmt.Errorf("%d: %s", resp.StatusCode, msg)
	}
	return &errResp
}

// sneakyBodyClose closes the body and ignores the error.
// This is useful to close the HTTP response body when we don't care about the error.
func sneakyBodyClose(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}
