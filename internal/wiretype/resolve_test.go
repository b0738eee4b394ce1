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

import "testing"

func TestResolveNilDescriptorFallsBackToOpaque(t *testing.T) {
	got := Resolve(nil)
	if got != Opaque {
		t.Fatalf("Resolve(nil) = %+v, want Opaque", got)
	}
}

func TestResolveUnknownScalarFallsBackToOpaque(t *testing.T) {
	got := Resolve(&Descriptor{Group: GroupScalar, Name: "not_a_real_scalar"})
	if got != Opaque {
		t.Fatalf("Resolve(unknown scalar) = %+v, want Opaque", got)
	}
}

func TestResolveKnownScalarPassesThrough(t *testing.T) {
	d := &Descriptor{Group: GroupScalar, Name: "int32"}
	got := Resolve(d)
	if got != d {
		t.Fatalf("Resolve(known scalar) = %+v, want the same descriptor back", got)
	}
}

func TestResolveMalformedArrayFallsBackToOpaque(t *testing.T) {
	noElement := &Descriptor{Group: GroupArray, ElementCount: 4}
	if got := Resolve(noElement); got != Opaque {
		t.Fatalf("Resolve(array with no element descriptor) = %+v, want Opaque", got)
	}

	negativeCount := &Descriptor{
		Group:             GroupArray,
		ElementDescriptor: &Descriptor{Group: GroupScalar, Name: "int32"},
		ElementCount:      -1,
	}
	if got := Resolve(negativeCount); got != Opaque {
		t.Fatalf("Resolve(array with negative count) = %+v, want Opaque", got)
	}
}

func TestResolveArrayResolvesElement(t *testing.T) {
	d := &Descriptor{
		Group:             GroupArray,
		ElementDescriptor: &Descriptor{Group: GroupScalar, Name: "not_a_real_scalar"},
		ElementCount:      3,
	}
	got := Resolve(d)
	if got.Group != GroupArray || got.ElementCount != 3 {
		t.Fatalf("Resolve(array) = %+v, want a 3-element array", got)
	}
	if got.ElementDescriptor != Opaque {
		t.Fatalf("Resolve(array).ElementDescriptor = %+v, want the element's own fallback to Opaque", got.ElementDescriptor)
	}
}

func TestResolveOpaquePointerPassesThrough(t *testing.T) {
	d := &Descriptor{Group: GroupPointer, Name: "void_ptr"}
	got := Resolve(d)
	if got != d {
		t.Fatalf("Resolve(opaque pointer) = %+v, want the same descriptor back", got)
	}
}

func TestResolvePointerResolvesPointee(t *testing.T) {
	d := &Descriptor{
		Group:             GroupPointer,
		PointeeDescriptor: &Descriptor{Group: GroupScalar, Name: "not_a_real_scalar"},
	}
	got := Resolve(d)
	if got.Group != GroupPointer || got.PointeeDescriptor != Opaque {
		t.Fatalf("Resolve(pointer) = %+v, want its pointee downgraded to Opaque", got)
	}
}

func TestResolveStructResolvesEachField(t *testing.T) {
	d := &Descriptor{
		Group: GroupStruct,
		Fields: []Field{
			{Name: "x", Descriptor: &Descriptor{Group: GroupScalar, Name: "int32"}},
			{Name: "bad", Descriptor: &Descriptor{Group: GroupScalar, Name: "not_a_real_scalar"}},
		},
	}
	got := Resolve(d)
	if got.Group != GroupStruct || len(got.Fields) != 2 {
		t.Fatalf("Resolve(struct) = %+v, want a 2-field struct", got)
	}
	if got.Fields[1].Descriptor != Opaque {
		t.Fatalf("Resolve(struct).Fields[1] = %+v, want its bad field downgraded to Opaque", got.Fields[1].Descriptor)
	}
}

func TestLayoutScalarSizesAndAlignment(t *testing.T) {
	cases := []struct {
		name      string
		wantSize  int
		wantAlign int
	}{
		{"uint8", 1, 1},
		{"int16", 2, 2},
		{"int32", 4, 4},
		{"int64", 8, 8},
		{"void_ptr", 8, 8},
	}
	for _, c := range cases {
		size, align := Layout(&Descriptor{Group: GroupScalar, Name: c.name})
		if size != c.wantSize || align != c.wantAlign {
			t.Errorf("Layout(%s) = (%d, %d), want (%d, %d)", c.name, size, align, c.wantSize, c.wantAlign)
		}
	}
}

// TestLayoutStructPadsForAlignment exercises the Windows-ABI struct layout
// math: a leading uint8 field followed by an int32 field needs three bytes
// of padding to bring the int32 to a 4-byte boundary, and the struct's own
// size is rounded up to its own alignment (4).
func TestLayoutStructPadsForAlignment(t *testing.T) {
	d := &Descriptor{
		Group: GroupStruct,
		Fields: []Field{
			{Name: "flag", Descriptor: &Descriptor{Group: GroupScalar, Name: "uint8"}},
			{Name: "value", Descriptor: &Descriptor{Group: GroupScalar, Name: "int32"}},
		},
	}
	size, align := Layout(d)
	if align != 4 {
		t.Fatalf("Layout(struct).align = %d, want 4", align)
	}
	if size != 8 {
		t.Fatalf("Layout(struct).size = %d, want 8 (1 byte flag + 3 padding + 4 byte value)", size)
	}

	offsets := FieldOffsets(d)
	if offsets["flag"] != 0 {
		t.Fatalf("offsets[flag] = %d, want 0", offsets["flag"])
	}
	if offsets["value"] != 4 {
		t.Fatalf("offsets[value] = %d, want 4", offsets["value"])
	}
}

// TestLayoutUnionSizesToWidestField covers union layout: every field starts
// at offset zero, and the union's size is the widest field rounded up to
// the widest alignment.
func TestLayoutUnionSizesToWidestField(t *testing.T) {
	d := &Descriptor{
		Group: GroupUnion,
		Fields: []Field{
			{Name: "asByte", Descriptor: &Descriptor{Group: GroupScalar, Name: "uint8"}},
			{Name: "asInt64", Descriptor: &Descriptor{Group: GroupScalar, Name: "int64"}},
		},
	}
	size, align := Layout(d)
	if size != 8 || align != 8 {
		t.Fatalf("Layout(union) = (%d, %d), want (8, 8)", size, align)
	}

	offsets := FieldOffsets(d)
	if offsets["asByte"] != 0 || offsets["asInt64"] != 0 {
		t.Fatalf("union field offsets = %+v, want both 0", offsets)
	}
}

func TestLayoutArrayMultipliesElementSize(t *testing.T) {
	d := &Descriptor{
		Group:             GroupArray,
		ElementDescriptor: &Descriptor{Group: GroupScalar, Name: "int32"},
		ElementCount:      5,
	}
	size, align := Layout(d)
	if size != 20 || align != 4 {
		t.Fatalf("Layout(array) = (%d, %d), want (20, 4)", size, align)
	}
}

func TestLayoutVoidIsZeroSized(t *testing.T) {
	size, align := Layout(Void)
	if size != 0 || align != 1 {
		t.Fatalf("Layout(Void) = (%d, %d), want (0, 1)", size, align)
	}
}
