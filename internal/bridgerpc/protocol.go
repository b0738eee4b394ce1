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

// Package bridgerpc is the wire transport between the Unix-side client and
// the Windows-side server: one TCP connection per session, carrying gob-
// encoded Request/Response pairs. Requests name a routine by library key and
// routine name, carry its marshalled arguments, and carry the ordered list
// of memsync packets the call's rules produced.
package bridgerpc

import (
	"github.com/talismancer/winxcall/internal/bridgeerr"
	"github.com/talismancer/winxcall/internal/marshalv"
	"github.com/talismancer/winxcall/internal/memsync"
	"github.com/talismancer/winxcall/internal/wiretype"
)

// Command identifies what a Request asks the server to do.
type Command int

const (
	// CmdAccessDLL loads (or re-identifies an already-loaded) library.
	CmdAccessDLL Command = iota
	// CmdRegisterRoutine resolves and records a routine's signature.
	CmdRegisterRoutine
	// CmdInvoke calls a previously registered routine.
	CmdInvoke
	// CmdShutdown ends the session after this Request's Response.
	CmdShutdown
)

// Request is one message from client to server.
type Request struct {
	ID         uint64
	Command    Command
	LibraryKey string
	LibraryPath string // CmdAccessDLL

	Routine  string              // CmdRegisterRoutine, CmdInvoke
	ArgTypes []*wiretype.Descriptor // CmdRegisterRoutine
	RestType *wiretype.Descriptor   // CmdRegisterRoutine
	Rules    []memsync.Rule         // CmdRegisterRoutine

	Args    []*marshalv.Value // CmdInvoke
	Packets []memsync.Packet  // CmdInvoke

	// Shutdown is kept alongside Command for backward-compatible decoding
	// of a bare terminate message; CmdShutdown is the canonical form.
	Shutdown bool
}

// Response answers one Request by ID.
type Response struct {
	ID      uint64
	Return  *marshalv.Value
	Packets []memsync.Packet
	Err     *bridgeerr.Error
}

// Handler dispatches a decoded Request to the routine registry and produces
// its Response. Implemented by internal/session on the server side.
type Handler func(req *Request) *Response
