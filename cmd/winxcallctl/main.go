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

// Command winxcallctl is a diagnostic client for a running winxcalld
// session: it can register a routine and invoke it, or cleanly end a
// session, without needing a real client language binding.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/talismancer/winxcall/internal/xlog"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&callCommand{}, "")
	subcommands.Register(&shutdownCommand{}, "")

	flag.Parse()
	xlog.SetTarget(xlog.WriterEmitter{Next: os.Stderr})

	os.Exit(int(subcommands.Execute(context.Background())))
}
