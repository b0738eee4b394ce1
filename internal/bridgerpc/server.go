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
	"errors"
	"io"
	"net"
	"sync/atomic"

	"github.com/talismancer/winxcall/internal/xlog"
)

// Server accepts connections and dispatches every decoded Request to a
// single Handler. A session is one connection, and each connection's
// Requests are handled one at a time, in order; the bridge never multiplexes
// calls onto a shared connection, so Serve spawns one goroutine per accepted
// connection and nothing more. Separate connections are served concurrently.
type Server struct {
	handler  Handler
	shutdown atomic.Bool
}

// NewServer returns a Server that dispatches to h.
func NewServer(h Handler) *Server {
	return &Server{handler: h}
}

// Serve accepts connections from ln until a session's CmdShutdown request
// closes ln from within serveConn, or ln is closed some other way. A
// shutdown-triggered close is reported as a nil error, matching terminate()
// requiring the shutdown procedure to "return successfully before the
// server exits"; any other Accept error is reported as-is.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.shutdown.Load() {
				return nil
			}
			return err
		}
		go s.serveConn(ln, conn)
	}
}

func (s *Server) serveConn(ln net.Listener, conn net.Conn) {
	defer conn.Close()
	dec := gob.NewDecoder(conn)
	enc := gob.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if !errors.Is(err, io.EOF) {
				xlog.Warningf("bridgerpc: decode request: %v", err)
			}
			return
		}
		resp := s.handler(&req)
		if err := enc.Encode(resp); err != nil {
			xlog.Warningf("bridgerpc: encode response: %v", err)
			return
		}
		if req.Command == CmdShutdown || req.Shutdown {
			// Stop accepting further sessions before unblocking Serve, so a
			// connection racing in on Accept right now still gets rejected
			// rather than served after shutdown was already committed to.
			s.shutdown.Store(true)
			ln.Close()
			return
		}
	}
}
