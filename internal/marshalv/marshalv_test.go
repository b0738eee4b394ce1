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

package marshalv

import (
	"testing"

	"github.com/talismancer/winxcall/internal/wiretype"
)

func int32Descriptor() *wiretype.Descriptor {
	return &wiretype.Descriptor{Group: wiretype.GroupScalar, Name: "int32"}
}

func TestScalarRoundTrip(t *testing.T) {
	d := int32Descriptor()
	n := NewScalar(d, 0)
	n.SetInt64(-17)

	v := Marshal(n)
	got := Unmarshal(v, d)

	if got.Int64() != -17 {
		t.Fatalf("Int64() = %d, want -17", got.Int64())
	}
}

func TestPointerRoundTripWithPointee(t *testing.T) {
	pointee := &wiretype.Descriptor{Group: wiretype.GroupScalar, Name: "uint8"}
	ptr := &wiretype.Descriptor{Group: wiretype.GroupPointer, PointeeDescriptor: pointee}

	n := NewScalar(ptr, 0x1000)
	n.Pointee = NewScalar(pointee, 42)

	v := Marshal(n)
	got := Unmarshal(v, ptr)

	if got.Pointer() != 0x1000 {
		t.Fatalf("Pointer() = %#x, want 0x1000", got.Pointer())
	}
	if got.Pointee == nil || got.Pointee.Uint64() != 42 {
		t.Fatalf("Pointee = %+v, want Uint64()==42", got.Pointee)
	}
}

func TestNullPointerHasNoPointee(t *testing.T) {
	ptr := &wiretype.Descriptor{Group: wiretype.GroupPointer, Name: "void_ptr"}
	n := NewScalar(ptr, 0)

	v := Marshal(n)
	got := Unmarshal(v, ptr)

	if !got.IsNull() {
		t.Fatalf("IsNull() = false, want true")
	}
	if got.Pointee != nil {
		t.Fatalf("Pointee = %+v, want nil", got.Pointee)
	}
}

func TestStructFieldRoundTrip(t *testing.T) {
	x := &wiretype.Descriptor{Group: wiretype.GroupScalar, Name: "int32"}
	y := &wiretype.Descriptor{Group: wiretype.GroupScalar, Name: "int32"}
	point := &wiretype.Descriptor{
		Group: wiretype.GroupStruct,
		Fields: []wiretype.Field{
			{Name: "x", Descriptor: x},
			{Name: "y", Descriptor: y},
		},
	}

	n := ZeroNode(point)
	xv := NewScalar(x, 0)
	xv.SetInt64(3)
	n.SetField("x", xv)
	yv := NewScalar(y, 0)
	yv.SetInt64(4)
	n.SetField("y", yv)

	v := Marshal(n)
	got := Unmarshal(v, point)

	gx, ok := got.Field("x")
	if !ok || gx.Int64() != 3 {
		t.Fatalf("Field(x) = %+v, ok=%v, want Int64()==3", gx, ok)
	}
	gy, ok := got.Field("y")
	if !ok || gy.Int64() != 4 {
		t.Fatalf("Field(y) = %+v, ok=%v, want Int64()==4", gy, ok)
	}
}

func TestArrayElementRoundTrip(t *testing.T) {
	elem := &wiretype.Descriptor{Group: wiretype.GroupScalar, Name: "uint8"}
	arr := &wiretype.Descriptor{Group: wiretype.GroupArray, ElementDescriptor: elem, ElementCount: 3}

	n := ZeroNode(arr)
	for i := 0; i < 3; i++ {
		e := NewScalar(elem, 0)
		e.SetUint64(uint64(10 + i))
		n.SetElement(i, e)
	}

	v := Marshal(n)
	got := Unmarshal(v, arr)

	for i := 0; i < 3; i++ {
		if e := got.Element(i); e.Uint64() != uint64(10+i) {
			t.Fatalf("Element(%d) = %d, want %d", i, e.Uint64(), 10+i)
		}
	}
}
