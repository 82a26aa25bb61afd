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
	"time"
)

// RemoteConnector answers queries with the remote database service.
//
// It supports ResultKindExec and ResultKindArrow. Row sequences are not
// produced; ask for ResultKindArrow and call Table.ToRows instead.
type RemoteConnector struct {
	backend RemoteBackend
	opts    []Option
	metrics *Metrics
}

// Ensure RemoteConnector implements Connector.
var _ Connector = (*RemoteConnector)(nil)

// NewRemoteConnector creates a connector on top of backend, usually a *Connection.
func NewRemoteConnector(backend RemoteBackend, opts ...Option) *RemoteConnector {
	return &RemoteConnector{
		backend: backend,
		opts:    opts,
		metrics: buildOptions(opts).metrics,
	}
}

// Kind implements Connector.
func (c *RemoteConnector) Kind() string {
	return BackendRemote
}

// Supports implements Connector.
func (c *RemoteConnector) Supports(kind ResultKind) bool {
	switch kind {
	case ResultKindExec, ResultKindArrow:
		return true
	default:
		return false
	}
}

// Query implements Connector. Each call drives its own PendingQuery, so
// concurrent calls never share a buffer.
func (c *RemoteConnector) Query(ctx context.Context, q Query) (result *Result, err error) {
	start := time.Now()
	defer func() {
		c.metrics.observeQuery(c.Kind(), q.Kind, start, err)
	}()

	if err := checkQuery(c, q); err != nil {
		return nil, err
	}

	pq := NewPendingQuery(c.backend, q.SQL, c.opts...)
	buf, err := pq.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	if q.Kind == ResultKindExec {
		pq.markReturned()
		return &Result{Kind: ResultKindExec}, nil
	}

	table, err := DecodeTable(buf)
	if err != nil {
		return nil, pq.fail(err)
	}
	pq.markDecoded()
	pq.markReturned()
	return &Result{Kind: ResultKindArrow, Table: table}, nil
}

// Close implements Connector. It closes the backend if it can be closed.
func (c *RemoteConnector) Close() error {
	switch b := c.backend.(type) {
	case interface{ Close() error }:
		return b.Close()
	case interface{ Close() }:
		b.Close()
	}
	return nil
}
