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

package routine

import (
	"testing"

	"github.com/talismancer/winxcall/internal/wiretype"
)

type fakeLoader struct {
	loads int
	finds int
	frees int
}

func (f *fakeLoader) LoadLibrary(path string) (LibraryHandle, error) {
	f.loads++
	return "handle:" + path, nil
}

func (f *fakeLoader) FindProc(lib LibraryHandle, name string) (ProcHandle, error) {
	f.finds++
	return "proc:" + name, nil
}

func (f *fakeLoader) FreeLibrary(lib LibraryHandle) error {
	f.frees++
	return nil
}

func TestAccessDLLIsIdempotent(t *testing.T) {
	loader := &fakeLoader{}
	reg := NewRegistry(loader)

	lib1, err := reg.AccessDLL("user32", "user32.dll")
	if err != nil {
		t.Fatalf("AccessDLL error: %v", err)
	}
	lib2, err := reg.AccessDLL("user32", "user32.dll")
	if err != nil {
		t.Fatalf("AccessDLL (second) error: %v", err)
	}
	if lib1 != lib2 {
		t.Fatalf("AccessDLL returned different Library objects for the same key")
	}
	if loader.loads != 1 {
		t.Fatalf("loader.loads = %d, want 1", loader.loads)
	}
}

func TestRegisterRoutineIsIdempotent(t *testing.T) {
	loader := &fakeLoader{}
	reg := NewRegistry(loader)
	if _, err := reg.AccessDLL("user32", "user32.dll"); err != nil {
		t.Fatalf("AccessDLL error: %v", err)
	}

	rt1, err := reg.RegisterRoutine("user32", "MessageBoxW", nil, nil, nil)
	if err != nil {
		t.Fatalf("RegisterRoutine error: %v", err)
	}
	rt2, err := reg.RegisterRoutine("user32", "MessageBoxW", nil, nil, nil)
	if err != nil {
		t.Fatalf("RegisterRoutine (second) error: %v", err)
	}
	if rt1 != rt2 {
		t.Fatalf("RegisterRoutine returned different Routine objects for the same name")
	}
	if loader.finds != 1 {
		t.Fatalf("loader.finds = %d, want 1", loader.finds)
	}
}

func TestRegisterRoutineWithoutLibraryErrors(t *testing.T) {
	reg := NewRegistry(&fakeLoader{})
	if _, err := reg.RegisterRoutine("nope", "Foo", nil, nil, nil); err == nil {
		t.Fatalf("expected error registering against an unloaded library")
	}
}

// TestRegisterRoutineResolvesUnknownScalarToOpaque covers the descriptor-
// resolution policy's opaque fallback: a routine registered with a
// descriptor referencing an unknown scalar name does not fail registration,
// it is downgraded to an opaque void pointer and the call proceeds.
func TestRegisterRoutineResolvesUnknownScalarToOpaque(t *testing.T) {
	loader := &fakeLoader{}
	reg := NewRegistry(loader)
	if _, err := reg.AccessDLL("user32", "user32.dll"); err != nil {
		t.Fatalf("AccessDLL error: %v", err)
	}

	unknown := &wiretype.Descriptor{Group: wiretype.GroupScalar, Name: "not_a_real_scalar"}
	rt, err := reg.RegisterRoutine("user32", "Weird", []*wiretype.Descriptor{unknown}, unknown, nil)
	if err != nil {
		t.Fatalf("RegisterRoutine error: %v", err)
	}
	if rt.ArgTypes[0] != wiretype.Opaque {
		t.Fatalf("rt.ArgTypes[0] = %+v, want wiretype.Opaque", rt.ArgTypes[0])
	}
	if rt.RestType != wiretype.Opaque {
		t.Fatalf("rt.RestType = %+v, want wiretype.Opaque", rt.RestType)
	}

	// A second RegisterRoutine call for the same name is the idempotent path
	// and must return the same, already-resolved Routine rather than
	// re-resolving or re-finding the symbol.
	rt2, err := reg.RegisterRoutine("user32", "Weird", []*wiretype.Descriptor{unknown}, unknown, nil)
	if err != nil {
		t.Fatalf("RegisterRoutine (second) error: %v", err)
	}
	if rt != rt2 {
		t.Fatalf("RegisterRoutine returned different Routine objects for the same name")
	}
}

// TestRegisterRoutineNilRestypeStaysVoid covers a routine registered with no
// return descriptor at all: Resolve must not be applied to a nil restype,
// since Resolve(nil) downgrades to an opaque pointer rather than preserving
// the "no return value" meaning a nil RestType carries elsewhere (see
// dllhost.CallRoutine and marshalv.VoidValue).
func TestRegisterRoutineNilRestypeStaysVoid(t *testing.T) {
	loader := &fakeLoader{}
	reg := NewRegistry(loader)
	if _, err := reg.AccessDLL("user32", "user32.dll"); err != nil {
		t.Fatalf("AccessDLL error: %v", err)
	}

	rt, err := reg.RegisterRoutine("user32", "NoReturn", nil, nil, nil)
	if err != nil {
		t.Fatalf("RegisterRoutine error: %v", err)
	}
	if rt.RestType != nil {
		t.Fatalf("rt.RestType = %+v, want nil", rt.RestType)
	}
}

// TestRegistryCloseFreesEveryLoadedLibrary covers local teardown: Close must
// call FreeLibrary once per distinct loaded library, regardless of how many
// routines were registered against it.
func TestRegistryCloseFreesEveryLoadedLibrary(t *testing.T) {
	loader := &fakeLoader{}
	reg := NewRegistry(loader)
	if _, err := reg.AccessDLL("user32", "user32.dll"); err != nil {
		t.Fatalf("AccessDLL error: %v", err)
	}
	if _, err := reg.AccessDLL("kernel32", "kernel32.dll"); err != nil {
		t.Fatalf("AccessDLL error: %v", err)
	}
	if _, err := reg.RegisterRoutine("user32", "MessageBoxW", nil, nil, nil); err != nil {
		t.Fatalf("RegisterRoutine error: %v", err)
	}

	if err := reg.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if loader.frees != 2 {
		t.Fatalf("loader.frees = %d, want 2", loader.frees)
	}
}

func TestLookupUnknownRoutineErrors(t *testing.T) {
	loader := &fakeLoader{}
	reg := NewRegistry(loader)
	if _, err := reg.AccessDLL("user32", "user32.dll"); err != nil {
		t.Fatalf("AccessDLL error: %v", err)
	}
	if _, err := reg.Lookup("user32", "DoesNotExist"); err == nil {
		t.Fatalf("expected error looking up an unregistered routine")
	}
}
