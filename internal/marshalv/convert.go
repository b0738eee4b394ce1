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

import "github.com/talismancer/winxcall/internal/wiretype"

// Value is the wire-safe counterpart of a Node: the same scalar bits and the
// same packed native bytes, but no descriptor pointer (the receiving side
// already holds the matching resolved descriptor from the routine's
// registration, so only the values need to travel). Pointee follows only
// when the pointer's contents are known, recursively.
type Value struct {
	Scalar  uint64
	Bytes   []byte
	Pointee *Value
}

// Marshal converts a Node into its wire-safe Value.
func Marshal(n *Node) *Value {
	if n == nil {
		return nil
	}
	v := &Value{Scalar: n.Scalar}
	if n.Bytes != nil {
		v.Bytes = append([]byte(nil), n.Bytes...)
	}
	if n.Pointee != nil {
		v.Pointee = Marshal(n.Pointee)
	}
	return v
}

// Unmarshal converts a Value back into a Node, shaped by d. d must be the
// same resolved descriptor the sender marshalled against; the wire carries
// no shape information of its own, by design, since both sides of a session
// already agree on it from registration.
func Unmarshal(v *Value, d *wiretype.Descriptor) *Node {
	if v == nil {
		return nil
	}
	n := &Node{Descriptor: d, Scalar: v.Scalar}
	if v.Bytes != nil {
		n.Bytes = append([]byte(nil), v.Bytes...)
	}
	if v.Pointee != nil {
		pd := d.PointeeDescriptor
		if pd == nil {
			pd = wiretype.Opaque
		}
		n.Pointee = Unmarshal(v.Pointee, pd)
	}
	return n
}
