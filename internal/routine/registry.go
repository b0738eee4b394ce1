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

// Package routine is the registry of loaded libraries and the routines
// registered against them: access_dll and register_routine in the original
// bridge's vocabulary. Both are idempotent, since a client reconnecting
// after a dropped session re-declares every library and routine it needs
// without first checking what the server still remembers.
package routine

import (
	"sync"

	"github.com/talismancer/winxcall/internal/bridgeerr"
	"github.com/talismancer/winxcall/internal/memsync"
	"github.com/talismancer/winxcall/internal/wiretype"
)

// LibraryHandle is an opaque loaded-library handle, owned by whatever Loader
// produced it.
type LibraryHandle any

// ProcHandle is an opaque resolved-symbol handle, owned by whatever Loader
// produced it.
type ProcHandle any

// Loader loads libraries and resolves symbols. internal/dllhost implements
// this against golang.org/x/sys/windows; the registry itself never touches
// the native ABI.
type Loader interface {
	LoadLibrary(path string) (LibraryHandle, error)
	FindProc(lib LibraryHandle, name string) (ProcHandle, error)
	FreeLibrary(lib LibraryHandle) error
}

// Routine is one registered entry point: its resolved symbol, its argument
// and return descriptors, and the memsync rules covering its pointer
// arguments.
type Routine struct {
	Name     string
	Proc     ProcHandle
	ArgTypes []*wiretype.Descriptor
	RestType *wiretype.Descriptor
	Rules    []memsync.Rule
}

// Library is one loaded DLL and every routine registered against it so far.
type Library struct {
	Key      string
	Path     string
	Handle   LibraryHandle
	Routines map[string]*Routine
}

// Registry is the server-side table of libraries and routines, keyed by the
// library key the client chose when it first called AccessDLL.
type Registry struct {
	mu        sync.Mutex
	loader    Loader
	libraries map[string]*Library
}

// NewRegistry returns an empty Registry that loads libraries through loader.
func NewRegistry(loader Loader) *Registry {
	return &Registry{loader: loader, libraries: make(map[string]*Library)}
}

// AccessDLL loads the library at path under key, or returns the already
// loaded Library if key was seen before. Reusing the key with a different
// path does not reload; the first path wins, matching a client that
// re-declares the same library across a reconnect.
func (r *Registry) AccessDLL(key, path string) (*Library, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lib, ok := r.libraries[key]; ok {
		return lib, nil
	}
	handle, err := r.loader.LoadLibrary(path)
	if err != nil {
		return nil, bridgeerr.Newf(bridgeerr.LibraryLoadError, "load %q: %v", path, err)
	}
	lib := &Library{Key: key, Path: path, Handle: handle, Routines: make(map[string]*Routine)}
	r.libraries[key] = lib
	return lib, nil
}

// RegisterRoutine resolves name against the library at key and records its
// signature, or returns the already-registered Routine if name was seen
// before on that library.
func (r *Registry) RegisterRoutine(key, name string, argTypes []*wiretype.Descriptor, restype *wiretype.Descriptor, rules []memsync.Rule) (*Routine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libraries[key]
	if !ok {
		return nil, bridgeerr.Newf(bridgeerr.LibraryLoadError, "library %q was never loaded with AccessDLL", key)
	}
	if rt, ok := lib.Routines[name]; ok {
		return rt, nil
	}
	proc, err := r.loader.FindProc(lib.Handle, name)
	if err != nil {
		return nil, bridgeerr.Newf(bridgeerr.SymbolError, "routine %q not found in %q: %v", name, key, err)
	}

	// Every descriptor off the wire goes through Resolve before it is ever
	// stored or acted on, so an unknown scalar name (or any other malformed
	// descriptor) is downgraded to an opaque void pointer here, once, rather
	// than wherever it next happens to be used.
	resolvedArgs := make([]*wiretype.Descriptor, len(argTypes))
	for i, d := range argTypes {
		resolvedArgs[i] = wiretype.Resolve(d)
	}
	var resolvedRestype *wiretype.Descriptor
	if restype != nil {
		resolvedRestype = wiretype.Resolve(restype)
	}

	rt := &Routine{Name: name, Proc: proc, ArgTypes: resolvedArgs, RestType: resolvedRestype, Rules: rules}
	lib.Routines[name] = rt
	return rt, nil
}

// Close unloads every library this Registry loaded, as the "close
// libraries" step of terminate()'s local teardown. A Registry is not
// reused after Close; it keeps going past the first error so one stuck
// library can't stop the rest from being released, and reports the first
// error it saw.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, lib := range r.libraries {
		if err := r.loader.FreeLibrary(lib.Handle); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Lookup returns the Routine previously registered under key and name.
func (r *Registry) Lookup(key, name string) (*Routine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libraries[key]
	if !ok {
		return nil, bridgeerr.Newf(bridgeerr.SymbolError, "library %q was never loaded", key)
	}
	rt, ok := lib.Routines[name]
	if !ok {
		return nil, bridgeerr.Newf(bridgeerr.SymbolError, "routine %q was never registered on %q", name, key)
	}
	return rt, nil
}
