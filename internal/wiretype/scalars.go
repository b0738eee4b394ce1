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

// Scalar describes the native layout of one canonical scalar name: its size
// in bytes under the Windows ABI, whether it is signed, floating point, a
// pointer-width value, or a wide character. Both sides resolve the same
// scalar name to the same Scalar, independent of host conventions — the
// invariant that keeps, for example, "wchar" fixed at 2 bytes on the wire
// even though the Unix host's native wchar_t is commonly 4.
type Scalar struct {
	Size    int
	Signed  bool
	Float   bool
	Pointer bool
	Wide    bool
}

// ScalarTable is the canonical minimum set of scalar names and their
// Windows-ABI layout.
var ScalarTable = map[string]Scalar{
	"bool":       {Size: 1},
	"int8":       {Size: 1, Signed: true},
	"uint8":      {Size: 1},
	"int16":      {Size: 2, Signed: true},
	"uint16":     {Size: 2},
	"int32":      {Size: 4, Signed: true},
	"uint32":     {Size: 4},
	"int64":      {Size: 8, Signed: true},
	"uint64":     {Size: 8},
	"float32":    {Size: 4, Float: true},
	"float64":    {Size: 8, Float: true},
	"longdouble": {Size: 8, Float: true}, // Windows ABI: long double == double
	"char":       {Size: 1, Signed: true},
	"uchar":      {Size: 1},
	"wchar":      {Size: 2, Wide: true},
	"char_ptr":   {Size: 8, Pointer: true},
	"wchar_ptr":  {Size: 8, Pointer: true, Wide: true},
	"void_ptr":   {Size: 8, Pointer: true},
	"size_t":     {Size: 8},
	"ssize_t":    {Size: 8, Signed: true},
}

// LookupScalar resolves a canonical scalar name. ok is false for an unknown
// name, in which case callers should fall back to opaque void-pointer
// semantics per the type-descriptor resolution policy.
func LookupScalar(name string) (Scalar, bool) {
	s, ok := ScalarTable[name]
	return s, ok
}
