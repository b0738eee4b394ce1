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

// Package wiretype implements the transport-safe type registry: the
// TypeDescriptor value that both the Unix-side client and the Windows-side
// server resolve to an identical in-memory layout, and the canonical scalar
// name table that backs scalar resolution.
package wiretype

// Group identifies the shape of a TypeDescriptor.
type Group int

const (
	// GroupScalar is a named primitive (see the canonical name table).
	GroupScalar Group = iota
	// GroupPointer points at another descriptor (or is opaque, if
	// PointeeDescriptor is nil).
	GroupPointer
	// GroupStruct is an ordered sequence of named fields, C struct layout.
	GroupStruct
	// GroupUnion is an ordered sequence of named fields occupying the same
	// storage, C union layout.
	GroupUnion
	// GroupArray is a fixed-length sequence of one element descriptor.
	GroupArray
	// GroupFunctionPointer is an opaque code pointer; never descended into.
	GroupFunctionPointer
	// GroupVoid carries no value; used only as a return descriptor.
	GroupVoid
)

func (g Group) String() string {
	switch g {
	case GroupScalar:
		return "scalar"
	case GroupPointer:
		return "pointer"
	case GroupStruct:
		return "struct"
	case GroupUnion:
		return "union"
	case GroupArray:
		return "array"
	case GroupFunctionPointer:
		return "function_pointer"
	case GroupVoid:
		return "void"
	default:
		return "unknown"
	}
}

// Field is one named member of a Struct or Union descriptor.
type Field struct {
	Name       string
	Descriptor *Descriptor
}

// Descriptor is the transport-safe value identifying a native type,
// per the wire's data model. It travels unchanged between
// register_argtype_and_restype calls and their memsync declarations on both
// sides of a session.
type Descriptor struct {
	Group Group

	// Name is the canonical scalar name (see ScalarTable) and is empty for
	// every aggregate group.
	Name string

	// Fields is populated for GroupStruct and GroupUnion, in declaration
	// order.
	Fields []Field

	// ElementDescriptor and ElementCount are populated for GroupArray.
	ElementDescriptor *Descriptor
	ElementCount      int

	// PointeeDescriptor is populated for GroupPointer when the pointee's
	// structure is known; nil means an opaque pointer (an address only, no
	// contents transferred unless a memsync rule covers it).
	PointeeDescriptor *Descriptor
}

// Opaque is the canonical fallback descriptor: an untyped pointer whose
// contents are never transferred except through a memsync rule. Resolve
// returns this for any descriptor it cannot resolve, per the "opaque
// void-pointer is the only permitted implicit widening" rule.
var Opaque = &Descriptor{Group: GroupPointer, Name: "void_ptr"}

// Void is the canonical descriptor for a routine with no return value.
var Void = &Descriptor{Group: GroupVoid}

// Field looks up a named field in a Struct/Union descriptor.
func (d *Descriptor) Field(name string) (*Descriptor, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Descriptor, true
		}
	}
	return nil, false
}
