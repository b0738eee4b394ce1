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
	"fmt"

	"github.com/cenkalti/backoff"
	"github.com/google/subcommands"

	"github.com/talismancer/winxcall/internal/bridgerpc"
	"github.com/talismancer/winxcall/internal/memsync"
	"github.com/talismancer/winxcall/internal/session"
	"github.com/talismancer/winxcall/internal/wiretype"
	"github.com/talismancer/winxcall/internal/xlog"
)

type callCommand struct {
	addr    string
	library string
	path    string
	routine string
}

func (*callCommand) Name() string     { return "call" }
func (*callCommand) Synopsis() string { return "load a library and invoke an argument-free uint32 routine" }
func (*callCommand) Usage() string {
	return "call -addr=host:port -library=key -path=library.dll -routine=Name\n"
}

func (c *callCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "127.0.0.1:9630", "bridge server address")
	f.StringVar(&c.library, "library", "", "library key")
	f.StringVar(&c.path, "path", "", "library path on the server host")
	f.StringVar(&c.routine, "routine", "", "routine name")
}

func (c *callCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	conn, err := bridgerpc.DialWithRetry(c.addr, backoff.NewExponentialBackOff())
	if err != nil {
		xlog.Warningf("call: %v", err)
		return subcommands.ExitFailure
	}
	defer conn.Close()

	client := session.NewClient(conn, memsync.ErrorOnLoss)
	if err := client.AccessDLL(ctx, c.library, c.path); err != nil {
		xlog.Warningf("call: AccessDLL: %v", err)
		return subcommands.ExitFailure
	}

	restype := &wiretype.Descriptor{Group: wiretype.GroupScalar, Name: "uint32"}
	if err := client.RegisterRoutine(ctx, c.library, c.routine, nil, restype, nil); err != nil {
		xlog.Warningf("call: RegisterRoutine: %v", err)
		return subcommands.ExitFailure
	}

	ret, err := client.Invoke(ctx, c.library, c.routine, nil, nil)
	if err != nil {
		xlog.Warningf("call: Invoke: %v", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s!%s() = %d\n", c.library, c.routine, ret.Scalar)
	return subcommands.ExitSuccess
}
