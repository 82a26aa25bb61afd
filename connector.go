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
	"fmt"
)

// Connector executes queries against one backend.
type Connector interface {
	// Query runs q and returns a result of the requested kind.
	Query(ctx context.Context, q Query) (*Result, error)
	// Supports reports whether the connector can produce results of kind.
	Supports(kind ResultKind) bool
	// Kind names the backend, e.g. "local" or "remote".
	Kind() string
	// Close releases the backend resources held by the connector.
	Close() error
}

// Execer is implemented by connectors that can run statements without going
// through the per-query result machinery.
type Execer interface {
	Exec(ctx context.Context, statements ...string) error
}

const (
	// BackendLocal selects the embedded engine.
	BackendLocal = "local"
	// BackendRemote selects the remote database service.
	BackendRemote = "remote"
)

// NewConnector builds the connector selected by cfg.Backend.
func NewConnector(ctx context.Context, cfg *Config, opts ...Option) (Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendLocal:
		return OpenLocal(ctx, cfg.DSN, opts...)
	case BackendRemote:
		opts = append([]Option{WithPollOptions(cfg.Poll)}, opts...)
		return NewRemoteConnector(Open(cfg), opts...), nil
	default:
		return nil, fmt.Errorf("unknown backend: %q", cfg.Backend)
	}
}

// checkQuery validates q and rejects kinds c does not support before any I/O.
func checkQuery(c Connector, q Query) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if !c.Supports(q.Kind) {
		return &UnsupportedOperationError{Connector: c.Kind(), Kind: q.Kind}
	}
	return nil
}
