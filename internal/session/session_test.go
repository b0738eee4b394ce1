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

package session

import (
	"context"
	"net"
	"testing"

	"github.com/talismancer/winxcall/internal/bridgeerr"
	"github.com/talismancer/winxcall/internal/bridgerpc"
	"github.com/talismancer/winxcall/internal/marshalv"
	"github.com/talismancer/winxcall/internal/memsync"
	"github.com/talismancer/winxcall/internal/routine"
	"github.com/talismancer/winxcall/internal/wiretype"
)

// fakeBackend doubles a real native call host: Increment returns argument 0
// plus one, with no real DLL involved.
type fakeBackend struct{}

func (fakeBackend) LoadLibrary(path string) (routine.LibraryHandle, error) { return path, nil }

func (fakeBackend) FindProc(lib routine.LibraryHandle, name string) (routine.ProcHandle, error) {
	return name, nil
}

func (fakeBackend) FreeLibrary(lib routine.LibraryHandle) error { return nil }

func (fakeBackend) CallRoutine(mem *memsync.NativeMemory, rt *routine.Routine, args []*marshalv.Node) (*marshalv.Node, error) {
	result := marshalv.NewScalar(rt.RestType, args[0].Scalar+1)
	return result, nil
}

// panicBackend doubles a native call host whose native call panics, as a
// bad ABI lowering or an access violation surfaced by the runtime would.
type panicBackend struct{}

func (panicBackend) LoadLibrary(path string) (routine.LibraryHandle, error) { return path, nil }

func (panicBackend) FindProc(lib routine.LibraryHandle, name string) (routine.ProcHandle, error) {
	return name, nil
}

func (panicBackend) FreeLibrary(lib routine.LibraryHandle) error { return nil }

func (panicBackend) CallRoutine(mem *memsync.NativeMemory, rt *routine.Routine, args []*marshalv.Node) (*marshalv.Node, error) {
	panic("simulated access violation")
}

func newLoopback(t *testing.T) (*Client, func()) {
	t.Helper()
	return newLoopbackWithBackend(t, fakeBackend{})
}

func newLoopbackWithBackend(t *testing.T, backend interface {
	routine.Loader
	Invoker
}) (*Client, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen error: %v", err)
	}
	srv := NewServerWithBackend(backend, memsync.ErrorOnLoss)
	rpcServer := bridgerpc.NewServer(srv.Handle)
	go rpcServer.Serve(ln)

	conn, err := bridgerpc.Dial(ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	client := NewClient(conn, memsync.ErrorOnLoss)
	return client, func() { ln.Close() }
}

func TestSessionInvokeRoundTrip(t *testing.T) {
	client, cleanup := newLoopback(t)
	defer cleanup()

	ctx := context.Background()
	if err := client.AccessDLL(ctx, "fake", "fake.dll"); err != nil {
		t.Fatalf("AccessDLL error: %v", err)
	}

	int32Desc := &wiretype.Descriptor{Group: wiretype.GroupScalar, Name: "int32"}
	if err := client.RegisterRoutine(ctx, "fake", "Increment", []*wiretype.Descriptor{int32Desc}, int32Desc, nil); err != nil {
		t.Fatalf("RegisterRoutine error: %v", err)
	}

	arg := marshalv.NewScalar(int32Desc, 0)
	arg.SetInt64(41)

	ret, err := client.Invoke(ctx, "fake", "Increment", []*marshalv.Node{arg}, nil)
	if err != nil {
		t.Fatalf("Invoke error: %v", err)
	}
	if ret.Scalar != 42 {
		t.Fatalf("ret.Scalar = %d, want 42", ret.Scalar)
	}
}

// TestSessionInvokeRecoversNativePanic is a regression test for a native
// call panicking with nothing in the call chain to recover it: the session
// must come back with a structured NativeCallError, not take the server
// goroutine (and therefore the whole process) down with it.
func TestSessionInvokeRecoversNativePanic(t *testing.T) {
	client, cleanup := newLoopbackWithBackend(t, panicBackend{})
	defer cleanup()

	ctx := context.Background()
	if err := client.AccessDLL(ctx, "fake", "fake.dll"); err != nil {
		t.Fatalf("AccessDLL error: %v", err)
	}

	int32Desc := &wiretype.Descriptor{Group: wiretype.GroupScalar, Name: "int32"}
	if err := client.RegisterRoutine(ctx, "fake", "Boom", []*wiretype.Descriptor{int32Desc}, int32Desc, nil); err != nil {
		t.Fatalf("RegisterRoutine error: %v", err)
	}

	arg := marshalv.NewScalar(int32Desc, 0)
	_, err := client.Invoke(ctx, "fake", "Boom", []*marshalv.Node{arg}, nil)
	if err == nil {
		t.Fatalf("expected an error from a panicking native call")
	}
	be, ok := err.(*bridgeerr.Error)
	if !ok {
		t.Fatalf("err = %T, want *bridgeerr.Error", err)
	}
	if be.Kind != bridgeerr.NativeCallError {
		t.Fatalf("be.Kind = %v, want NativeCallError", be.Kind)
	}
	if be.Trace == "" {
		t.Fatalf("expected a non-empty stack trace on a recovered native panic")
	}

	// The session itself must still be usable after a recovered panic.
	ret, err := client.Invoke(ctx, "fake", "Boom", []*marshalv.Node{arg}, nil)
	if err == nil {
		t.Fatalf("expected Boom to keep panicking on a second call, got ret=%v", ret)
	}
}

func TestSessionInvokeUnknownRoutineErrors(t *testing.T) {
	client, cleanup := newLoopback(t)
	defer cleanup()

	ctx := context.Background()
	if err := client.AccessDLL(ctx, "fake", "fake.dll"); err != nil {
		t.Fatalf("AccessDLL error: %v", err)
	}

	_, err := client.Invoke(ctx, "fake", "NoSuchRoutine", nil, nil)
	if err == nil {
		t.Fatalf("expected error invoking an unregistered routine")
	}
}
