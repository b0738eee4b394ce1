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
	"github.com/talismancer/winxcall/internal/bridgeerr"
	"github.com/talismancer/winxcall/internal/marshalv"
	"github.com/talismancer/winxcall/internal/wiretype"
)

// Packet carries one Rule's data across the wire: the path that locates it
// (so the receiving side can splice it back into the matching argument tree)
// and either the raw bytes or a Null flag.
type Packet struct {
	ArgIndex int
	Path     Path
	Data     []byte
	Null     bool
}

// Walk descends from root through path, following struct/union fields,
// array elements, and pointer dereferences, and returns the Node the full
// path names.
//
// A Deref step (PathElem{Index: Deref}) requires the current node to be a
// non-null pointer with a known Pointee; any other Index steps into an
// array element.
func Walk(root *marshalv.Node, path Path) (*marshalv.Node, error) {
	cur := root
	for _, step := range path {
		switch {
		case step.Field != "":
			f, ok := cur.Field(step.Field)
			if !ok {
				return nil, bridgeerr.Newf(bridgeerr.MemsyncError, "no field %q in path", step.Field)
			}
			cur = f
		case step.Index == Deref:
			if cur.Descriptor.Group != wiretype.GroupPointer {
				return nil, bridgeerr.Newf(bridgeerr.MemsyncError, "deref step on non-pointer node")
			}
			if cur.IsNull() || cur.Pointee == nil {
				return nil, bridgeerr.Newf(bridgeerr.MemsyncError, "deref step on null or unsynced pointer")
			}
			cur = cur.Pointee
		default:
			cur = cur.Element(step.Index)
		}
	}
	return cur, nil
}

// walkParent resolves every step of path except the last, returning the
// parent Node together with the final step. This is the single place that
// decides what "the last step" means, so that unpacking never has to choose
// between two different slice lengths for the same path — the defect that
// would otherwise show up as an off-by-one between a rule's null-branch and
// its data-branch.
func walkParent(root *marshalv.Node, path Path) (*marshalv.Node, PathElem, error) {
	if len(path) == 0 {
		return nil, PathElem{}, bridgeerr.New(bridgeerr.MemsyncError, "empty path has no parent")
	}
	parent, err := Walk(root, path[:len(path)-1])
	if err != nil {
		return nil, PathElem{}, err
	}
	return parent, path[len(path)-1], nil
}

// splice writes value into parent at tail: as a field, an array element, or
// (when tail.Index == Deref) directly as the parent pointer's Pointee. Using
// one function for both the data case and the null case keeps the two in
// lockstep, which is the fix for the bug where splicing a null pointee used
// one path length and splicing real data used another.
func splice(parent *marshalv.Node, tail PathElem, value *marshalv.Node) {
	switch {
	case tail.Field != "":
		parent.SetField(tail.Field, value)
	case tail.Index == Deref:
		parent.Pointee = value
	default:
		parent.SetElement(tail.Index, value)
	}
}
