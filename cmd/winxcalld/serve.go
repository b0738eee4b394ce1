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

package main

import (
	"context"
	"flag"
	"net"

	"github.com/google/subcommands"

	"github.com/talismancer/winxcall/internal/bridgerpc"
	"github.com/talismancer/winxcall/internal/config"
	"github.com/talismancer/winxcall/internal/session"
	"github.com/talismancer/winxcall/internal/xlog"
)

type serveCommand struct{}

func (*serveCommand) Name() string     { return "serve" }
func (*serveCommand) Synopsis() string { return "listen for bridge sessions" }
func (*serveCommand) Usage() string {
	return "serve -rpc-addr=host:port\n\nListen for and answer bridge sessions until a client sends a shutdown request.\n"
}

func (c *serveCommand) SetFlags(f *flag.FlagSet) {
	config.RegisterFlags(f)
}

func (c *serveCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.ConfigFromFlags(f)
	if err != nil {
		xlog.Warningf("serve: %v", err)
		return subcommands.ExitUsageError
	}
	setupLogging(cfg.LogLevel)

	ln, err := net.Listen("tcp", cfg.RPCAddr)
	if err != nil {
		xlog.Warningf("serve: listen on %s: %v", cfg.RPCAddr, err)
		return subcommands.ExitFailure
	}
	defer ln.Close()
	xlog.Infof("serve: listening on %s (session %s)", ln.Addr(), cfg.SessionID)

	srv := session.NewServer(cfg.WcharPolicy)
	rpcServer := bridgerpc.NewServer(srv.Handle)
	if err := rpcServer.Serve(ln); err != nil {
		xlog.Warningf("serve: %v", err)
		return subcommands.ExitFailure
	}
	// Serve only returns nil once a session's shutdown request has already
	// stopped accepting new connections and closed the listener; local
	// teardown (unloading libraries, closing the log) runs last, per the
	// stop-accepting -> stop-listening -> teardown order terminate() spells
	// out.
	if err := srv.Close(); err != nil {
		xlog.Warningf("serve: local teardown: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
