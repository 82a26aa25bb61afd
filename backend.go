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

	"github.com/google/uuid"
)

// RemoteBackend is the asynchronous statement protocol of the remote database
// service. *Connection implements it over HTTP.
type RemoteBackend interface {
	// StartQuery submits a statement. The response carries a result header
	// when the statement finished immediately.
	StartQuery(ctx context.Context, req *StatementRequest) (*StatementResponse, error)
	// PollQuery fetches the latest state of a submitted statement.
	PollQuery(ctx context.Context, statementID string) (*StatementResponse, error)
	// StreamChunks opens the binary result stream described by header.
	StreamChunks(ctx context.Context, header *ResultHeader) (ChunkStream, error)
	// CancelQuery cancels a pending or running statement.
	CancelQuery(ctx context.Context, statementID string) (StatementStatus, error)
}

// ChunkStream is a lazy, finite, non-restartable sequence of byte chunks.
//
// Next returns io.EOF once every chunk has been delivered. The returned slice
// is only valid until the next call to Next.
type ChunkStream interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// StatementRequest is the body of a start call.
type StatementRequest struct {
	// StatementID is the ID of the statement. The client generates it so a
	// statement can be cancelled before the start call returns.
	StatementID uuid.UUID `json:"statement_id"`
	// Statement is the SQL statement to execute.
	Statement string `json:"statement"`
	// Format is the format of the result stream.
	Format ResultFormat `json:"format"`
}

// ResultFormat is the format of a remote result stream.
type ResultFormat string

const (
	// ResultFormatArrow is the Arrow IPC streaming format.
	ResultFormatArrow ResultFormat = "arrow"
)

// StatementResponse is the state of a statement as reported by start and poll.
type StatementResponse struct {
	StatementID string            `json:"statement_id"`
	Status      StatementStatus   `json:"status"`
	Progress    StatementProgress `json:"progress"`
	// Header is set once the statement finished and its result can be streamed.
	Header *ResultHeader `json:"result_set,omitempty"`
	// Message carries the failure reason of a failed statement.
	Message string `json:"message,omitempty"`
}

// ResultHeader describes the result of a finished statement.
type ResultHeader struct {
	StatementID string         `json:"statement_id"`
	Format      ResultFormat   `json:"format"`
	Fields      []*ResultField `json:"fields"`
	NumRows     int64          `json:"num_rows"`
	// TotalBytes is the size of the result stream when the server knows it,
	// or -1. Zero means the statement produced no result stream.
	TotalBytes int64 `json:"total_bytes"`
}

// ResultField describes one column of a result.
type ResultField struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

// StatementStatus is a string that represents the status of a statement.
type StatementStatus string

const (
	// StatementStatusPending indicates the query is not started yet.
	StatementStatusPending StatementStatus = "pending"
	// StatementStatusRunning indicates the query is not finished yet.
	StatementStatusRunning StatementStatus = "running"
	// StatementStatusFinished indicates the query is finished.
	StatementStatusFinished StatementStatus = "finished"
	// StatementStatusFailed indicates the query is failed.
	StatementStatusFailed StatementStatus = "failed"
	// StatementStatusCancelled indicates the query is cancelled.
	StatementStatusCancelled StatementStatus = "cancelled"
)

// Finished returns true if the statement is finished.
func (s StatementStatus) Finished() bool {
	return s == StatementStatusFinished
}

// Terminated returns true if the statement is finished, failed, or cancelled.
func (s StatementStatus) Terminated() bool {
	switch s {
	case StatementStatusFinished, StatementStatusFailed, StatementStatusCancelled:
		return true
	default:
		return false
	}
}

func (s StatementStatus) known() bool {
	switch s {
	case StatementStatusPending, StatementStatusRunning, StatementStatusFinished,
		StatementStatusFailed, StatementStatusCancelled:
		return true
	default:
		return false
	}
}

// StatementProgress is a struct that represents the progress of a statement.
type StatementProgress struct {
	// TotalPercentage denotes the total progress in percentage: [0.0, 100.0].
	TotalPercentage float64 `json:"total_percentage"`
	// NanosFromSubmitted denotes the duration in nanoseconds since the statement is submitted.
	NanosFromSubmitted int64 `json:"nanos_from_submitted"`
	// NanosFromStarted denotes the duration in nanoseconds since the statement is started.
	NanosFromStarted int64 `json:"nanos_from_started"`
	// NanosToFinish denotes the estimated duration in nanoseconds to finish the statement.
	NanosToFinish int64 `json:"nanos_to_finish"`
}
