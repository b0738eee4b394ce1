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

	"github.com/google/subcommands"

	"github.com/talismancer/winxcall/internal/bridgerpc"
	"github.com/talismancer/winxcall/internal/memsync"
	"github.com/talismancer/winxcall/internal/session"
	"github.com/talismancer/winxcall/internal/xlog"
)

type shutdownCommand struct {
	addr string
}

func (*shutdownCommand) Name() string     { return "shutdown" }
func (*shutdownCommand) Synopsis() string { return "end a bridge session in-band" }
func (*shutdownCommand) Usage() string    { return "shutdown -addr=host:port\n" }

func (c *shutdownCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "127.0.0.1:9630", "bridge server address")
}

func (c *shutdownCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	conn, err := bridgerpc.Dial(c.addr)
	if err != nil {
		xlog.Warningf("shutdown: %v", err)
		return subcommands.ExitFailure
	}
	client := session.NewClient(conn, memsync.ErrorOnLoss)
	if err := client.Shutdown(); err != nil {
		xlog.Warningf("shutdown: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
