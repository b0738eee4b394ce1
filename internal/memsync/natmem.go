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

package memsync

import (
	"sync"
	"unsafe"

	"github.com/talismancer/winxcall/internal/bridgeerr"
)

// NativeMemory owns the buffers the server side allocates so a real native
// routine can write into them directly. A Go byte slice's backing array is
// ordinary heap memory; nothing stops the garbage collector from moving or
// reclaiming it once no Go-visible reference remains, but a uintptr handed
// to a native routine is invisible to the collector. NativeMemory pins every
// buffer it allocates by keeping its own reference alive in pinned, so the
// address stays valid for as long as a call naming it is outstanding; Free
// releases the pin once the call completes.
type NativeMemory struct {
	mu     sync.Mutex
	pinned map[uintptr][]byte
}

// NewNativeMemory returns an empty buffer pool.
func NewNativeMemory() *NativeMemory {
	return &NativeMemory{pinned: make(map[uintptr][]byte)}
}

// Alloc returns the address of a zero-filled, pinned buffer of size bytes.
func (m *NativeMemory) Alloc(size int) uintptr {
	buf := make([]byte, size)
	addr := bufAddr(buf)
	m.mu.Lock()
	m.pinned[addr] = buf
	m.mu.Unlock()
	return addr
}

// Write copies data into a previously allocated buffer starting at addr.
func (m *NativeMemory) Write(addr uintptr, data []byte) error {
	buf, err := m.lookup(addr, len(data))
	if err != nil {
		return err
	}
	copy(buf, data)
	return nil
}

// Read returns a copy of n bytes starting at addr.
func (m *NativeMemory) Read(addr uintptr, n int) ([]byte, error) {
	buf, err := m.lookup(addr, n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, buf)
	return out, nil
}

// Free releases the pin on a buffer returned by Alloc. The address must not
// be dereferenced by native code after this call.
func (m *NativeMemory) Free(addr uintptr) {
	m.mu.Lock()
	delete(m.pinned, addr)
	m.mu.Unlock()
}

func (m *NativeMemory) lookup(addr uintptr, n int) ([]byte, error) {
	m.mu.Lock()
	buf, ok := m.pinned[addr]
	m.mu.Unlock()
	if !ok {
		return nil, bridgeerr.Newf(bridgeerr.MemsyncError, "address %#x is not a live native buffer", addr)
	}
	if n > len(buf) {
		return nil, bridgeerr.Newf(bridgeerr.MemsyncError, "requested %d bytes from a %d-byte buffer", n, len(buf))
	}
	return buf, nil
}

func bufAddr(buf []byte) uintptr {
	if len(buf) == 0 {
		return uintptr(unsafe.Pointer(&buf))
	}
	return uintptr(unsafe.Pointer(&buf[0]))
}
