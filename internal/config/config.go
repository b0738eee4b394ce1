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

// Package config holds the bridge's runtime configuration, populated from
// command-line flags the same way runsc's own Config is: RegisterFlags adds
// every flag to a FlagSet, ConfigFromFlags reads them back out after Parse.
package config

import (
	"flag"

	"github.com/talismancer/winxcall/internal/memsync"
	"github.com/talismancer/winxcall/internal/xlog"
)

// Config is the full set of settings a winxcalld server or winxcallctl
// client needs.
type Config struct {
	// SessionID identifies this bridge session in logs and in the session
	// directory layout.
	SessionID string

	// RPCAddr is the address the server listens on (server) or dials
	// (client), host:port.
	RPCAddr string

	// LogLevel gates xlog output.
	LogLevel xlog.Level

	// WcharPolicy controls narrowing behavior in memsync's wide-character
	// translation.
	WcharPolicy memsync.WcharNarrowPolicy
}

// RegisterFlags registers every Config field onto flagSet.
func RegisterFlags(flagSet *flag.FlagSet) {
	flagSet.String("session-id", "", "identifier for this bridge session.")
	flagSet.String("rpc-addr", "127.0.0.1:0", "address the bridge RPC server listens on or dials.")
	flagSet.String("log-level", "info", "log verbosity: warning, info, or debug.")
	flagSet.String("wchar-narrow-policy", "error", "behavior when narrowing a wide character would lose data: error (default) or truncate.")
}

// ConfigFromFlags reads back every flag RegisterFlags added.
func ConfigFromFlags(flagSet *flag.FlagSet) (*Config, error) {
	level, err := parseLogLevel(lookupString(flagSet, "log-level"))
	if err != nil {
		return nil, err
	}
	policy, err := parseWcharPolicy(lookupString(flagSet, "wchar-narrow-policy"))
	if err != nil {
		return nil, err
	}
	return &Config{
		SessionID:   lookupString(flagSet, "session-id"),
		RPCAddr:     lookupString(flagSet, "rpc-addr"),
		LogLevel:    level,
		WcharPolicy: policy,
	}, nil
}

func lookupString(flagSet *flag.FlagSet, name string) string {
	f := flagSet.Lookup(name)
	if f == nil {
		return ""
	}
	return f.Value.String()
}
