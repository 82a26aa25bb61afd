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

/*
Package mosaic connects the query coordinator of a plotting layer to a database
backend.

# Connectors

A Connector answers queries with one of three result kinds: exec, arrow and
json. OpenLocal runs an embedded engine in process:

	conn, err := mosaic.OpenLocal(ctx, ":memory:")
	if err != nil {
		return err
	}
	defer conn.Close()

NewRemoteConnector talks to a remote database service. Statements are started,
polled until their result is ready, and the Arrow IPC result stream is
accumulated and decoded into a Table:

	conn := mosaic.NewRemoteConnector(mosaic.Open(&mosaic.Config{
		Endpoint: "http://<host>:<port>",
		Token:    "<token>",
	}))

# Coordinator

A Coordinator holds the bound connector. Rebinding affects only calls issued
afterwards:

	coord := mosaic.NewCoordinator(mosaic.WithResultCache(256, time.Minute))
	coord.DatabaseConnector(conn)
	result, err := coord.Query(ctx, "SELECT 1 AS x", mosaic.ResultKindArrow)
	if err != nil {
		return err
	}
	rows := result.Table.ToRows()
*/
package mosaic
