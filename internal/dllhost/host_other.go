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

//go:build !windows

package dllhost

import (
	"github.com/talismancer/winxcall/internal/bridgeerr"
	"github.com/talismancer/winxcall/internal/routine"
)

// LoadLibrary always fails on a non-Windows host: there is no real DLL to
// load. The stub exists so internal/session and its tests can build and run
// on every host; exercising a real native call still requires the emulation
// layer's Windows side.
func (h *Host) LoadLibrary(path string) (routine.LibraryHandle, error) {
	return nil, bridgeerr.Newf(bridgeerr.LibraryLoadError, "dllhost: cannot load %q outside a windows build", path)
}

// FindProc always fails on a non-Windows host.
func (h *Host) FindProc(lib routine.LibraryHandle, name string) (routine.ProcHandle, error) {
	return nil, bridgeerr.Newf(bridgeerr.SymbolError, "dllhost: cannot resolve %q outside a windows build", name)
}

// FreeLibrary is a no-op outside a windows build; LoadLibrary never
// succeeds there, so the registry never has a library to release.
func (h *Host) FreeLibrary(lib routine.LibraryHandle) error {
	return nil
}

// Invoke always fails on a non-Windows host.
func (h *Host) Invoke(rt *routine.Routine, argBits []uintptr) (uintptr, error) {
	return 0, bridgeerr.New(bridgeerr.NativeCallError, "dllhost: native calls require a windows build")
}
