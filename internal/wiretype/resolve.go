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

package wiretype

import "github.com/talismancer/winxcall/internal/xlog"

// Resolve walks a possibly-unverified Descriptor tree and returns one whose
// every scalar name is known and whose aggregates are structurally sound.
// Per the descriptor resolution policy, anything it cannot resolve —
// including a descriptor for a routine the server never got a chance to
// see the real layout of — is downgraded to Opaque (an untyped pointer).
// That downgrade is logged as a warning and never surfaces as an error:
// the TypeDescriptorError kind exists for observability, not failure.
//
// Resolve never evaluates a type name as code; it only ever consults
// ScalarTable and the structural fields already present on d.
func Resolve(d *Descriptor) *Descriptor {
	if d == nil {
		xlog.Warningf("wiretype: nil descriptor, falling back to opaque void pointer")
		return Opaque
	}
	switch d.Group {
	case GroupVoid, GroupFunctionPointer:
		return d
	case GroupScalar:
		if _, ok := LookupScalar(d.Name); !ok {
			xlog.Warningf("wiretype: unresolvable scalar name %q, falling back to opaque void pointer", d.Name)
			return Opaque
		}
		return d
	case GroupPointer:
		if d.PointeeDescriptor == nil {
			return d
		}
		return &Descriptor{Group: GroupPointer, PointeeDescriptor: Resolve(d.PointeeDescriptor)}
	case GroupArray:
		if d.ElementDescriptor == nil || d.ElementCount < 0 {
			xlog.Warningf("wiretype: malformed array descriptor, falling back to opaque void pointer")
			return Opaque
		}
		return &Descriptor{
			Group:             GroupArray,
			ElementDescriptor: Resolve(d.ElementDescriptor),
			ElementCount:      d.ElementCount,
		}
	case GroupStruct, GroupUnion:
		fields := make([]Field, len(d.Fields))
		for i, f := range d.Fields {
			fields[i] = Field{Name: f.Name, Descriptor: Resolve(f.Descriptor)}
		}
		return &Descriptor{Group: d.Group, Fields: fields}
	default:
		xlog.Warningf("wiretype: unknown descriptor group %v, falling back to opaque void pointer", d.Group)
		return Opaque
	}
}

// Layout returns the Windows-ABI size and alignment, in bytes, of a resolved
// descriptor. Both sides compute the same numbers from the same descriptor,
// which is the data-model invariant this type registry exists to uphold.
func Layout(d *Descriptor) (size, align int) {
	switch d.Group {
	case GroupVoid:
		return 0, 1
	case GroupScalar:
		s, ok := LookupScalar(d.Name)
		if !ok {
			return 8, 8
		}
		return s.Size, s.Size
	case GroupPointer, GroupFunctionPointer:
		return 8, 8
	case GroupArray:
		elemSize, elemAlign := Layout(d.ElementDescriptor)
		return elemSize * d.ElementCount, elemAlign
	case GroupStruct:
		offset, align := 0, 1
		for _, f := range d.Fields {
			fs, fa := Layout(f.Descriptor)
			offset = alignUp(offset, fa)
			offset += fs
			if fa > align {
				align = fa
			}
		}
		return alignUp(offset, align), align
	case GroupUnion:
		size, align := 0, 1
		for _, f := range d.Fields {
			fs, fa := Layout(f.Descriptor)
			if fs > size {
				size = fs
			}
			if fa > align {
				align = fa
			}
		}
		return alignUp(size, align), align
	default:
		return 8, 8
	}
}

// FieldOffsets returns the byte offset of each field of a Struct/Union
// descriptor, keyed by field name.
func FieldOffsets(d *Descriptor) map[string]int {
	offsets := make(map[string]int, len(d.Fields))
	if d.Group == GroupUnion {
		for _, f := range d.Fields {
			offsets[f.Name] = 0
		}
		return offsets
	}
	offset := 0
	for _, f := range d.Fields {
		fs, fa := Layout(f.Descriptor)
		offset = alignUp(offset, fa)
		offsets[f.Name] = offset
		offset += fs
	}
	return offsets
}

func alignUp(n, a int) int {
	if a <= 1 {
		return n
	}
	return (n + a - 1) / a * a
}
