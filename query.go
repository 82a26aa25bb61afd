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
	"fmt"
	"strings"
)

// ResultKind selects what a query returns to its caller.
type ResultKind string

const (
	// ResultKindExec runs the statement and discards any result.
	ResultKindExec ResultKind = "exec"
	// ResultKindArrow returns the result as a columnar Table.
	ResultKindArrow ResultKind = "arrow"
	// ResultKindJSON returns the result as a sequence of row objects.
	ResultKindJSON ResultKind = "json"
)

// ParseResultKind parses the wire name of a result kind.
func ParseResultKind(s string) (ResultKind, error) {
	switch k := ResultKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ResultKindExec, ResultKindArrow, ResultKindJSON:
		return k, nil
	default:
		return "", fmt.Errorf("unknown result kind: %q", s)
	}
}

// Query is a single statement together with the kind of result expected back.
type Query struct {
	SQL  string
	Kind ResultKind
}

// Validate checks that the query has a statement and one of the ResultKind
// constants. Use ParseResultKind to accept other spellings from user input.
func (q Query) Validate() error {
	if strings.TrimSpace(q.SQL) == "" {
		return ErrEmptyStatement
	}
	switch q.Kind {
	case ResultKindExec, ResultKindArrow, ResultKindJSON:
		return nil
	default:
		return fmt.Errorf("unknown result kind: %q", q.Kind)
	}
}

// Row is one result row keyed by column name.
type Row map[string]any

// Result is the outcome of a query. Table is set for ResultKindArrow, Rows for
// ResultKindJSON, and neither for ResultKindExec.
type Result struct {
	Kind  ResultKind
	Table *Table
	Rows  []Row

	// shared is set once the result is held by a Coordinator cache.
	shared bool
}

// Release releases the table held by the result, if any. Results shared
// through a Coordinator cache are left alone, so callers can always release
// what they were given.
func (r *Result) Release() {
	if r != nil && !r.shared && r.Table != nil {
		r.Table.Release()
	}
}
