// Copyright 2026 The winxcall Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bridgerpc

import (
	"encoding/gob"
	"net"
	"sync"

	"github.com/cenkalti/backoff"

	"github.com/talismancer/winxcall/internal/bridgeerr"
)

// Client is a connection to a Server. A session holds exactly one Client
// and never issues a second Call before the first one's Response has
// arrived; Call's own mutex is a safety net against that invariant being
// violated by accident, not a concurrency feature.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	enc  *gob.Encoder
	dec  *gob.Decoder
}

// Dial opens a connection to addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, bridgeerr.Newf(bridgeerr.TransportError, "dial %s: %v", addr, err)
	}
	return &Client{conn: conn, enc: gob.NewEncoder(conn), dec: gob.NewDecoder(conn)}, nil
}

// DialWithRetry dials addr, retrying with b until it succeeds or b gives up.
// The Windows-side server can take a noticeable moment to come up after the
// emulation layer starts it, so the client backs off rather than failing on
// the first refused connection.
func DialWithRetry(addr string, b backoff.BackOff) (*Client, error) {
	var client *Client
	err := backoff.Retry(func() error {
		c, err := Dial(addr)
		if err != nil {
			return err
		}
		client = c
		return nil
	}, b)
	if err != nil {
		return nil, bridgeerr.Newf(bridgeerr.TransportError, "dial %s after retries: %v", addr, err)
	}
	return client, nil
}

// Call sends req and blocks for the matching Response.
func (c *Client) Call(req *Request) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enc.Encode(req); err != nil {
		return nil, bridgeerr.Newf(bridgeerr.TransportError, "encode request: %v", err)
	}
	var resp Response
	if err := c.dec.Decode(&resp); err != nil {
		return nil, bridgeerr.Newf(bridgeerr.TransportError, "decode response: %v", err)
	}
	return &resp, nil
}

// Shutdown sends the terminate handshake and closes the connection.
func (c *Client) Shutdown(id uint64) error {
	_, err := c.Call(&Request{ID: id, Command: CmdShutdown, Shutdown: true})
	closeErr := c.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// Close closes the underlying connection without the shutdown handshake.
func (c *Client) Close() error {
	return c.conn.Close()
}
