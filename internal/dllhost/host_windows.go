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

//go:build windows

package dllhost

import (
	"golang.org/x/sys/windows"

	"github.com/talismancer/winxcall/internal/bridgeerr"
	"github.com/talismancer/winxcall/internal/routine"
)

type windowsHandle struct {
	dll *windows.LazyDLL
}

type windowsProc struct {
	proc *windows.LazyProc
}

// LoadLibrary loads path via LoadLibraryW right away, by calling Load on a
// NewLazyDLL handle, so a missing or unloadable DLL is reported here as a
// LibraryLoadError rather than on the first FindProc or Invoke.
func (h *Host) LoadLibrary(path string) (routine.LibraryHandle, error) {
	dll := windows.NewLazyDLL(path)
	if err := dll.Load(); err != nil {
		return nil, bridgeerr.Newf(bridgeerr.LibraryLoadError, "LoadLibrary %q: %v", path, err)
	}
	return &windowsHandle{dll: dll}, nil
}

// FindProc resolves name via GetProcAddress.
func (h *Host) FindProc(lib routine.LibraryHandle, name string) (routine.ProcHandle, error) {
	wh, ok := lib.(*windowsHandle)
	if !ok {
		return nil, bridgeerr.New(bridgeerr.SymbolError, "FindProc: not a windows library handle")
	}
	proc := wh.dll.NewProc(name)
	if err := proc.Find(); err != nil {
		return nil, bridgeerr.Newf(bridgeerr.SymbolError, "GetProcAddress %q: %v", name, err)
	}
	return &windowsProc{proc: proc}, nil
}

// FreeLibrary releases a loaded module via FreeLibrary, the "close
// libraries" step of terminate()'s local teardown.
func (h *Host) FreeLibrary(lib routine.LibraryHandle) error {
	wh, ok := lib.(*windowsHandle)
	if !ok {
		return bridgeerr.New(bridgeerr.SymbolError, "FreeLibrary: not a windows library handle")
	}
	if err := windows.FreeLibrary(windows.Handle(wh.dll.Handle())); err != nil {
		return bridgeerr.Newf(bridgeerr.LibraryLoadError, "FreeLibrary %q: %v", wh.dll.Name, err)
	}
	return nil
}

// Invoke calls rt's resolved proc with argBits as its flat argument list.
//
// Proc.Call's third return value is always non-nil: it carries the result
// of GetLastError regardless of whether the call actually failed, per
// golang.org/x/sys/windows's own documentation of that method. It is
// discarded here; a routine that wants the last-error value declares an
// explicit out parameter for it instead of relying on this side channel.
func (h *Host) Invoke(rt *routine.Routine, argBits []uintptr) (uintptr, error) {
	wp, ok := rt.Proc.(*windowsProc)
	if !ok {
		return 0, bridgeerr.New(bridgeerr.NativeCallError, "Invoke: not a windows proc handle")
	}
	ret, _, _ := wp.proc.Call(argBits...)
	return ret, nil
}
