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

package itcases

import (
	"context"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"

	mosaic "github.com/scopedb/mosaic-go"
)

func TestSubmitStatementFail(t *testing.T) {
	c := NewConnector(t)
	defer c.Close()

	ctx := context.Background()

	_, err := c.Query(ctx, mosaic.Query{SQL: "SELECT UNKNOWN_FUNCTION()", Kind: mosaic.ResultKindArrow})
	require.Error(t, err)
	var transportErr *mosaic.TransportError
	require.ErrorAs(t, err, &transportErr)
	snaps.MatchSnapshot(t, err.Error())
}

func TestRowsNotSupported(t *testing.T) {
	c := NewConnector(t)
	defer c.Close()

	_, err := c.Query(context.Background(), mosaic.Query{SQL: "SELECT 1", Kind: mosaic.ResultKindJSON})
	var unsupportedErr *mosaic.UnsupportedOperationError
	require.ErrorAs(t, err, &unsupportedErr)
}
