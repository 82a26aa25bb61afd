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
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const releaseTimeout = 5 * time.Second

// QueryState is the lifecycle state of a remote statement.
type QueryState int

const (
	StateIssued QueryState = iota
	StatePolling
	StateHeaderReceived
	StateStreaming
	StateAccumulated
	StateDecoded
	StateReturned
	StateFailed
)

func (s QueryState) String() string {
	switch s {
	case StateIssued:
		return "issued"
	case StatePolling:
		return "polling"
	case StateHeaderReceived:
		return "header_received"
	case StateStreaming:
		return "streaming"
	case StateAccumulated:
		return "accumulated"
	case StateDecoded:
		return "decoded"
	case StateReturned:
		return "returned"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("QueryState(%d)", int(s))
	}
}

// PendingQuery drives one statement through the start/poll lifecycle of a
// RemoteBackend and streams its result. It is not safe for concurrent use and
// cannot be restarted.
type PendingQuery struct {
	backend RemoteBackend
	stmt    string
	id      uuid.UUID
	poll    PollOptions
	logger  *zap.Logger
	metrics *Metrics

	state  QueryState
	polls  int
	header *ResultHeader
}

// NewPendingQuery prepares stmt for execution on backend. Nothing is sent
// until Wait or Fetch is called.
func NewPendingQuery(backend RemoteBackend, stmt string, opts ...Option) *PendingQuery {
	o := buildOptions(opts)
	poll := DefaultPollOptions()
	if o.poll != nil {
		poll = o.poll.withDefaults()
	}

	id := uuid.New()
	return &PendingQuery{
		backend: backend,
		stmt:    stmt,
		id:      id,
		poll:    poll,
		logger:  o.logger.With(zap.String("statement_id", id.String())),
		metrics: o.metrics,
		state:   StateIssued,
	}
}

// ID returns the statement ID.
func (p *PendingQuery) ID() string {
	return p.id.String()
}

// State returns the current lifecycle state.
func (p *PendingQuery) State() QueryState {
	return p.state
}

// Polls returns the number of poll calls issued so far.
func (p *PendingQuery) Polls() int {
	return p.polls
}

// Header returns the result header once it has been received.
func (p *PendingQuery) Header() *ResultHeader {
	return p.header
}

// Wait starts the statement and polls until its result header is available.
//
// Polling stops with a *TimeoutError once the configured attempt or elapsed
// time bound is exceeded, and with ctx's error when ctx is done. In both cases
// the statement is cancelled on the backend.
func (p *PendingQuery) Wait(ctx context.Context) (*ResultHeader, error) {
	if p.state != StateIssued {
		return nil, p.fail(p.violation("statement already started"))
	}
	if p.stmt == "" {
		return nil, p.fail(ErrEmptyStatement)
	}

	started := time.Now()
	resp, err := p.backend.StartQuery(ctx, &StatementRequest{
		StatementID: p.id,
		Statement:   p.stmt,
		Format:      ResultFormatArrow,
	})
	if err != nil {
		return nil, p.abort(ctx, &TransportError{Op: "start", Err: err})
	}
	header, ready, err := p.check(resp)
	if err != nil {
		return nil, p.abort(ctx, err)
	}

	interval := p.poll.Interval
	for !ready {
		p.setState(StatePolling)

		elapsed := time.Since(started)
		if (p.poll.MaxAttempts > 0 && p.polls >= p.poll.MaxAttempts) || elapsed >= p.poll.Timeout {
			return nil, p.abort(ctx, &TimeoutError{
				StatementID: p.ID(),
				Attempts:    p.polls,
				Elapsed:     elapsed,
			})
		}

		timer := time.NewTimer(min(interval, p.poll.Timeout-elapsed))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, p.abort(ctx, ctx.Err())
		case <-timer.C:
		}
		interval = min(interval*2, p.poll.MaxInterval)

		p.polls++
		resp, err := p.backend.PollQuery(ctx, p.ID())
		if err != nil {
			return nil, p.abort(ctx, &TransportError{Op: "poll", Err: err})
		}
		header, ready, err = p.check(resp)
		if err != nil {
			return nil, p.abort(ctx, err)
		}
	}

	p.header = header
	p.metrics.observePolls(p.polls)
	p.setState(StateHeaderReceived)
	return header, nil
}

// Stream opens the result stream of a statement whose header was received.
// It can be called once.
func (p *PendingQuery) Stream(ctx context.Context) (ChunkStream, error) {
	if p.state != StateHeaderReceived {
		return nil, p.fail(p.violation(fmt.Sprintf("cannot stream result in state %s", p.state)))
	}

	stream, err := p.backend.StreamChunks(ctx, p.header)
	if err != nil {
		return nil, p.abort(ctx, &TransportError{Op: "stream", Err: err})
	}
	p.setState(StateStreaming)
	return stream, nil
}

// Fetch runs the whole lifecycle and returns the accumulated result stream.
func (p *PendingQuery) Fetch(ctx context.Context) ([]byte, error) {
	header, err := p.Wait(ctx)
	if err != nil {
		return nil, err
	}

	if header.TotalBytes == 0 {
		// nothing to stream, e.g. DDL
		p.setState(StateStreaming)
		p.setState(StateAccumulated)
		return []byte{}, nil
	}

	stream, err := p.Stream(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := stream.Close(); err != nil {
			p.logger.Debug("close result stream", zap.Error(err))
		}
	}()

	buf, err := Accumulate(ctx, stream)
	if err != nil {
		if ctx.Err() != nil {
			return nil, p.abort(ctx, ctx.Err())
		}
		return nil, p.fail(&TransportError{Op: "stream", Err: err})
	}
	if header.TotalBytes > 0 && int64(len(buf)) != header.TotalBytes {
		return nil, p.fail(p.violation(fmt.Sprintf("result stream has %d bytes, header announced %d", len(buf), header.TotalBytes)))
	}

	p.metrics.addBytes(len(buf))
	p.setState(StateAccumulated)
	return buf, nil
}

// check classifies a start or poll response. It returns the header and true
// when the result is ready, false when the statement is still pending.
func (p *PendingQuery) check(resp *StatementResponse) (*ResultHeader, bool, error) {
	if resp == nil {
		return nil, false, p.violation("empty statement response")
	}
	if resp.StatementID != "" && resp.StatementID != p.ID() {
		return nil, false, p.violation(fmt.Sprintf("response belongs to statement %s", resp.StatementID))
	}

	switch status := resp.Status; {
	case !status.known():
		return nil, false, p.violation(fmt.Sprintf("unknown statement status %q", status))
	case !status.Terminated():
		return nil, false, nil
	case status.Finished():
		return p.checkHeader(resp.Header)
	case status == StatementStatusFailed:
		msg := resp.Message
		if msg == "" {
			msg = "statement failed"
		}
		return nil, false, &TransportError{Op: "execute", Err: &Error{Message: msg}}
	default:
		return nil, false, p.violation("statement cancelled by the server")
	}
}

// checkHeader validates the header of a finished statement. The result is
// always streamed by the statement ID this query issued.
func (p *PendingQuery) checkHeader(header *ResultHeader) (*ResultHeader, bool, error) {
	if header == nil {
		return nil, false, p.violation("statement finished without a result header")
	}
	switch header.StatementID {
	case "":
		header.StatementID = p.ID()
	case p.ID():
	default:
		return nil, false, p.violation(fmt.Sprintf("result header belongs to statement %s", header.StatementID))
	}
	return header, true, nil
}

func (p *PendingQuery) violation(reason string) error {
	return &ProtocolViolationError{StatementID: p.ID(), Reason: reason}
}

func (p *PendingQuery) setState(s QueryState) {
	if s <= p.state {
		return
	}
	p.logger.Debug("statement state", zap.Stringer("from", p.state), zap.Stringer("to", s))
	p.state = s
}

// abort fails the statement and cancels it on the backend unless the backend
// already reported it as terminated.
func (p *PendingQuery) abort(ctx context.Context, err error) error {
	var transportErr *TransportError
	if !errors.As(err, &transportErr) || transportErr.Op != "execute" {
		p.release(ctx)
	}
	return p.fail(err)
}

// release cancels the statement to free its execution slot on the backend.
// It runs on a context detached from ctx's cancellation.
func (p *PendingQuery) release(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if _, err := p.backend.CancelQuery(ctx, p.ID()); err != nil {
		p.logger.Debug("cancel statement", zap.Error(err))
	}
}

func (p *PendingQuery) fail(err error) error {
	var timeoutErr *TimeoutError
	switch {
	case errors.As(err, &timeoutErr):
		p.logger.Warn("statement timed out", zap.Stringer("state", p.state), zap.Error(err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		p.logger.Debug("statement abandoned", zap.Stringer("state", p.state), zap.Error(err))
	default:
		p.logger.Error("statement failed", zap.Stringer("state", p.state), zap.Error(err))
	}
	p.state = StateFailed
	return err
}

func (p *PendingQuery) markDecoded() {
	p.setState(StateDecoded)
}

func (p *PendingQuery) markReturned() {
	p.setState(StateReturned)
}
