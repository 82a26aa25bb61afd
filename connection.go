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

// Connection is an open connection to the remote database service.
//
// A Connection is safe for concurrent use: every statement is addressed by its
// own ID, so concurrent queries can share one Connection.
type Connection struct {
	config *Config
	http   HTTPClient
}

// Ensure Connection implements RemoteBackend.
var _ RemoteBackend = (*Connection)(nil)

// Open creates a new connection.
func Open(config *Config) *Connection {
	return OpenWithClient(config, NewHTTPClient(config.Token))
}

// OpenWithClient creates a new connection that sends requests with client.
func OpenWithClient(config *Config, client HTTPClient) *Connection {
	if config.ChunkSize <= 0 {
		config.ChunkSize = defaultChunkSize
	}
	return &Connection{
		config: config,
		http:   client,
	}
}

// Close closes the database connection.
//
// You don't typically need to call this as the garbage collector will release
// the resources when the connection is no longer referenced. However, it can be
// useful to call this if you want to release the resources immediately.
func (conn *Connection) Close() {
	conn.http.Close()
}
