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

// Package session wires the bridge's other packages into the two halves of
// a live session: Server answers Requests on the Windows side, Client drives
// them from the Unix side. Both enforce the bridge's concurrency model —
// at most one outstanding call per session — in the layer that actually
// owns the decision to send the next Request.
package session

import (
	"runtime/debug"

	"github.com/talismancer/winxcall/internal/bridgeerr"
	"github.com/talismancer/winxcall/internal/bridgerpc"
	"github.com/talismancer/winxcall/internal/dllhost"
	"github.com/talismancer/winxcall/internal/marshalv"
	"github.com/talismancer/winxcall/internal/memsync"
	"github.com/talismancer/winxcall/internal/routine"
	"github.com/talismancer/winxcall/internal/wiretype"
	"github.com/talismancer/winxcall/internal/xlog"
)

// Invoker is the native-call half of a Host: given a resolved Routine and
// its already-unpacked arguments, run the native call and produce its
// return value. dllhost.Host implements this; tests substitute a fake.
type Invoker interface {
	CallRoutine(mem *memsync.NativeMemory, rt *routine.Routine, args []*marshalv.Node) (*marshalv.Node, error)
}

// Server answers bridgerpc Requests against a routine registry and a native
// call host.
type Server struct {
	registry *routine.Registry
	invoker  Invoker
	mem      *memsync.NativeMemory
	policy   memsync.WcharNarrowPolicy
}

// NewServer returns a Server backed by a fresh dllhost.Host.
func NewServer(policy memsync.WcharNarrowPolicy) *Server {
	return NewServerWithBackend(dllhost.New(), policy)
}

// NewServerWithBackend returns a Server backed by an explicit loader and
// invoker, which must be the same value when backend is a *dllhost.Host.
func NewServerWithBackend(backend interface {
	routine.Loader
	Invoker
}, policy memsync.WcharNarrowPolicy) *Server {
	return &Server{
		registry: routine.NewRegistry(backend),
		invoker:  backend,
		mem:      memsync.NewNativeMemory(),
		policy:   policy,
	}
}

// Close performs terminate()'s local teardown: unloading every library the
// registry loaded and releasing the log target's resources. The caller runs
// this once the RPC layer has already stopped accepting and stopped
// listening, per spec ordering; Handle itself only builds the shutdown
// handshake response and does not tear anything down.
func (s *Server) Close() error {
	regErr := s.registry.Close()
	logErr := xlog.Close()
	if regErr != nil {
		return regErr
	}
	return logErr
}

// Handle implements bridgerpc.Handler.
func (s *Server) Handle(req *bridgerpc.Request) *bridgerpc.Response {
	switch req.Command {
	case bridgerpc.CmdShutdown:
		xlog.Infof("session: shutdown request %d", req.ID)
		return &bridgerpc.Response{ID: req.ID}
	case bridgerpc.CmdAccessDLL:
		return s.handleAccessDLL(req)
	case bridgerpc.CmdRegisterRoutine:
		return s.handleRegisterRoutine(req)
	case bridgerpc.CmdInvoke:
		return s.handleInvoke(req)
	default:
		return errorResponse(req.ID, bridgeerr.Newf(bridgeerr.TransportError, "unknown command %d", req.Command))
	}
}

func (s *Server) handleAccessDLL(req *bridgerpc.Request) *bridgerpc.Response {
	if _, err := s.registry.AccessDLL(req.LibraryKey, req.LibraryPath); err != nil {
		return errorResponse(req.ID, err)
	}
	return &bridgerpc.Response{ID: req.ID}
}

func (s *Server) handleRegisterRoutine(req *bridgerpc.Request) *bridgerpc.Response {
	if _, err := s.registry.RegisterRoutine(req.LibraryKey, req.Routine, req.ArgTypes, req.RestType, req.Rules); err != nil {
		return errorResponse(req.ID, err)
	}
	return &bridgerpc.Response{ID: req.ID}
}

func (s *Server) handleInvoke(req *bridgerpc.Request) *bridgerpc.Response {
	rt, err := s.registry.Lookup(req.LibraryKey, req.Routine)
	if err != nil {
		return errorResponse(req.ID, err)
	}

	args := make([]*marshalv.Node, len(req.Args))
	for i, v := range req.Args {
		args[i] = marshalv.Unmarshal(v, argDescriptor(rt, i))
	}

	if err := memsync.ServerUnpack(args, req.Packets, rt.Rules, s.policy); err != nil {
		return errorResponse(req.ID, err)
	}

	ret, err := s.callRoutineSafely(rt, args)
	if err != nil {
		return errorResponse(req.ID, err)
	}

	outPackets, err := memsync.ServerPack(rt.Rules, args, ret, s.policy)
	if err != nil {
		return errorResponse(req.ID, err)
	}

	return &bridgerpc.Response{ID: req.ID, Return: marshalv.Marshal(ret), Packets: outPackets}
}

// callRoutineSafely runs the native call and converts a panic into a
// structured NativeCallError carrying a text stack trace, per the
// requirement that an access violation, ABI mismatch, or other
// native-level failure surfaced by the runtime come back as a call error
// rather than take the whole server process down with it.
func (s *Server) callRoutineSafely(rt *routine.Routine, args []*marshalv.Node) (ret *marshalv.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = bridgeerr.Newf(bridgeerr.NativeCallError, "native call to %q panicked: %v", rt.Name, r).
				WithTrace(string(debug.Stack()))
		}
	}()
	return s.invoker.CallRoutine(s.mem, rt, args)
}

func argDescriptor(rt *routine.Routine, argIndex int) *wiretype.Descriptor {
	if argIndex < 0 || argIndex >= len(rt.ArgTypes) {
		return wiretype.Opaque
	}
	return rt.ArgTypes[argIndex]
}

func errorResponse(id uint64, err error) *bridgerpc.Response {
	be, ok := err.(*bridgeerr.Error)
	if !ok {
		be = bridgeerr.Newf(bridgeerr.TransportError, "%v", err)
	}
	return &bridgerpc.Response{ID: id, Err: be}
}
