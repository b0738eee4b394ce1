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

// Package marshalv converts between a native argument tree (Node), shaped by
// a resolved wiretype.Descriptor, and a wire-safe Value that travels across
// internal/bridgerpc. The split mirrors the accessor pattern the host
// emulation layer uses for its own syscall arguments: a scalar is carried as
// raw bits, and the descriptor alongside it says how to interpret them.
package marshalv

import (
	"math"

	"github.com/talismancer/winxcall/internal/wiretype"
)

// Node is one native-side argument or return value, shaped by a resolved
// Descriptor. A scalar or pointer carries its bits in Scalar; a struct,
// union, or array carries its packed native bytes in Bytes; a pointer whose
// pointee is known (because a memsync rule or an out parameter covers it)
// carries that pointee in Pointee.
//
// Field and Element hand out child Nodes parsed from Bytes, but a memsync
// rule that governs a pointer nested inside a struct field or array element
// needs to attach a Pointee to that child and have it stick: a later Walk
// back down the same path (in a later phase of the same call) must see the
// same Pointee, not a freshly reparsed, Pointee-less copy. fieldNodes and
// elemNodes cache the Node object identity Field/Element returned, so a
// mutation made through one of those handles is visible to every other
// holder of the parent Node.
type Node struct {
	Descriptor *wiretype.Descriptor
	Scalar     uint64
	Bytes      []byte
	Pointee    *Node

	fieldNodes map[string]*Node
	elemNodes  map[int]*Node
}

// NewScalar builds a Node for a scalar or pointer descriptor from raw bits.
func NewScalar(d *wiretype.Descriptor, bits uint64) *Node {
	return &Node{Descriptor: d, Scalar: bits}
}

// VoidValue is the sentinel return-value Node for a routine whose restype is
// wiretype.Void. Callers check against it rather than against nil so a
// genuinely absent return value is never confused with a zero scalar.
var VoidValue = &Node{Descriptor: wiretype.Void}

// ZeroNode allocates a Node of the given descriptor's shape, zero-filled.
func ZeroNode(d *wiretype.Descriptor) *Node {
	switch d.Group {
	case wiretype.GroupStruct, wiretype.GroupUnion, wiretype.GroupArray:
		size, _ := wiretype.Layout(d)
		return &Node{Descriptor: d, Bytes: make([]byte, size)}
	default:
		return &Node{Descriptor: d}
	}
}

// Int64 interprets the scalar bits as a signed integer of the descriptor's
// width.
func (n *Node) Int64() int64 {
	s, _ := wiretype.LookupScalar(n.Descriptor.Name)
	switch s.Size {
	case 1:
		return int64(int8(n.Scalar))
	case 2:
		return int64(int16(n.Scalar))
	case 4:
		return int64(int32(n.Scalar))
	default:
		return int64(n.Scalar)
	}
}

// Uint64 interprets the scalar bits as an unsigned integer.
func (n *Node) Uint64() uint64 { return n.Scalar }

// Pointer interprets the scalar bits as a native address.
func (n *Node) Pointer() uintptr { return uintptr(n.Scalar) }

// Float32 interprets the low 32 bits as an IEEE-754 single.
func (n *Node) Float32() float32 { return math.Float32frombits(uint32(n.Scalar)) }

// Float64 interprets the scalar bits as an IEEE-754 double.
func (n *Node) Float64() float64 { return math.Float64frombits(n.Scalar) }

// IsNull reports whether a pointer-group Node's address is zero.
func (n *Node) IsNull() bool {
	return n.Descriptor.Group == wiretype.GroupPointer && n.Scalar == 0
}

// SetInt64 packs a signed integer into the scalar bits, truncated to the
// descriptor's width.
func (n *Node) SetInt64(v int64) {
	s, _ := wiretype.LookupScalar(n.Descriptor.Name)
	switch s.Size {
	case 1:
		n.Scalar = uint64(uint8(v))
	case 2:
		n.Scalar = uint64(uint16(v))
	case 4:
		n.Scalar = uint64(uint32(v))
	default:
		n.Scalar = uint64(v)
	}
}

// SetUint64 packs an unsigned integer into the scalar bits.
func (n *Node) SetUint64(v uint64) { n.Scalar = v }

// SetPointer packs a native address into the scalar bits.
func (n *Node) SetPointer(addr uintptr) { n.Scalar = uint64(addr) }

// SetFloat32 packs a single into the low 32 bits of the scalar.
func (n *Node) SetFloat32(v float32) { n.Scalar = uint64(math.Float32bits(v)) }

// SetFloat64 packs a double into the scalar bits.
func (n *Node) SetFloat64(v float64) { n.Scalar = math.Float64bits(v) }

// Field returns the member Node of a struct/union Node. The first call
// parses it out of Bytes at the offset wiretype.FieldOffsets computes for
// the descriptor; every later call for the same name returns that same
// Node object, so a Pointee attached to it by a memsync rule survives
// across calls.
func (n *Node) Field(name string) (*Node, bool) {
	fd, ok := n.Descriptor.Field(name)
	if !ok {
		return nil, false
	}
	if cached, ok := n.fieldNodes[name]; ok {
		return cached, true
	}
	offsets := wiretype.FieldOffsets(n.Descriptor)
	off := offsets[name]
	size, _ := wiretype.Layout(fd)
	field := nodeFromBytes(fd, n.Bytes[off:off+size])
	n.cacheField(name, field)
	return field, true
}

// SetField writes a member Node back into a struct/union Node's Bytes and
// caches it as field's new identity, so a subsequent Field(name) returns
// this exact Node rather than a fresh parse of the just-written bytes.
func (n *Node) SetField(name string, field *Node) {
	offsets := wiretype.FieldOffsets(n.Descriptor)
	off, ok := offsets[name]
	if !ok {
		return
	}
	fd, _ := n.Descriptor.Field(name)
	size, _ := wiretype.Layout(fd)
	copy(n.Bytes[off:off+size], fieldBytes(field, size))
	n.cacheField(name, field)
}

func (n *Node) cacheField(name string, field *Node) {
	if n.fieldNodes == nil {
		n.fieldNodes = make(map[string]*Node)
	}
	n.fieldNodes[name] = field
}

// Element returns the i'th element Node of an array Node, with the same
// cached-identity behavior as Field.
func (n *Node) Element(i int) *Node {
	if cached, ok := n.elemNodes[i]; ok {
		return cached
	}
	elemSize, _ := wiretype.Layout(n.Descriptor.ElementDescriptor)
	off := i * elemSize
	elem := nodeFromBytes(n.Descriptor.ElementDescriptor, n.Bytes[off:off+elemSize])
	n.cacheElem(i, elem)
	return elem
}

// SetElement writes the i'th element Node of an array Node, with the same
// cached-identity behavior as SetField.
func (n *Node) SetElement(i int, elem *Node) {
	elemSize, _ := wiretype.Layout(n.Descriptor.ElementDescriptor)
	off := i * elemSize
	copy(n.Bytes[off:off+elemSize], fieldBytes(elem, elemSize))
	n.cacheElem(i, elem)
}

func (n *Node) cacheElem(i int, elem *Node) {
	if n.elemNodes == nil {
		n.elemNodes = make(map[int]*Node)
	}
	n.elemNodes[i] = elem
}

func nodeFromBytes(d *wiretype.Descriptor, raw []byte) *Node {
	switch d.Group {
	case wiretype.GroupStruct, wiretype.GroupUnion, wiretype.GroupArray:
		buf := make([]byte, len(raw))
		copy(buf, raw)
		return &Node{Descriptor: d, Bytes: buf}
	default:
		var bits uint64
		for i := 0; i < len(raw) && i < 8; i++ {
			bits |= uint64(raw[i]) << (8 * i)
		}
		return &Node{Descriptor: d, Scalar: bits}
	}
}

func fieldBytes(n *Node, size int) []byte {
	if n.Bytes != nil {
		return n.Bytes
	}
	buf := make([]byte, size)
	for i := 0; i < size && i < 8; i++ {
		buf[i] = byte(n.Scalar >> (8 * i))
	}
	return buf
}
