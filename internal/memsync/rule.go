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

// Package memsync implements the memory-synchronization engine: the rules
// that tell the bridge which pointer arguments carry data that must be
// copied across the wire, how long that data is, and whether it needs
// wide-character width translation between the client's host and the
// server's Windows ABI.
package memsync

import (
	"github.com/talismancer/winxcall/internal/bridgeerr"
	"github.com/talismancer/winxcall/internal/marshalv"
)

// PathElem is one step of a path from a call's root argument list down to
// the pointer a Rule governs. A Field step descends into a struct/union
// member; an Index step descends into an array element or dereferences a
// pointer when Index is the Deref sentinel.
type PathElem struct {
	Field string // non-empty for a struct/union field step
	Index int    // element index for an array step; ignored if Field != ""
}

// Deref is the sentinel Index value meaning "follow the pointer itself"
// rather than index into an array. A Rule path ending in a Deref element
// names the pointee of the preceding pointer, not one of its elements.
const Deref = -1

// Path is the sequence of steps from a call's argument list to the pointer a
// Rule governs.
type Path []PathElem

// Direction says which leg of a call a Rule's data transfer applies to.
type Direction int

const (
	// In copies client-side data to the server before the native call.
	In Direction = iota
	// Out copies server-side data back to the client after the native call.
	Out
	// InOut does both.
	InOut
)

func (d Direction) hasIn() bool  { return d == In || d == InOut }
func (d Direction) hasOut() bool { return d == Out || d == InOut }

// LengthKind identifies how a Rule's length is computed.
type LengthKind int

const (
	// LengthUnspecified is the zero value: the rule does not declare a
	// length at all, and the engine transfers whatever is already in the
	// pointee's buffer. This is the right default for a Rule built by hand
	// (as in tests) against a buffer the caller already sized correctly;
	// a Rule produced from a real routine registration should use one of
	// the other three kinds instead, per spec §3's length_path.
	LengthUnspecified LengthKind = iota
	// LengthFixed uses a constant byte count.
	LengthFixed
	// LengthFromArg reads an integer from another argument (by index and,
	// optionally, a path into it) and multiplies by ElementSize.
	LengthFromArg
	// LengthNullTerminated scans for a NUL (or, if Wide, a zero-filled
	// HostWcharWidth-byte unit aligned to that width) to find the length, as
	// with a C string argument whose size was never declared.
	LengthNullTerminated
)

// LengthSpec computes the byte length of the data a Rule governs.
type LengthSpec struct {
	Kind        LengthKind
	Fixed       int
	ArgIndex    int
	ArgPath     Path
	ElementSize int
}

// Resolve computes the byte length of data governed by a Rule, given the
// full argument list the call was invoked with. It returns -1 for a kind
// that can only be resolved against the live buffer at copy time
// (LengthUnspecified and LengthNullTerminated); callers use the buffer's
// own length or scan it for a terminator in that case.
func (l LengthSpec) Resolve(args []*marshalv.Node) (int, error) {
	switch l.Kind {
	case LengthUnspecified:
		return -1, nil
	case LengthFixed:
		if l.Fixed < 0 {
			return 0, bridgeerr.Newf(bridgeerr.MemsyncError, "fixed length %d is negative", l.Fixed)
		}
		return l.Fixed, nil
	case LengthFromArg:
		if l.ArgIndex < 0 || l.ArgIndex >= len(args) {
			return 0, bridgeerr.Newf(bridgeerr.MemsyncError, "length argument index %d out of range", l.ArgIndex)
		}
		node, err := Walk(args[l.ArgIndex], l.ArgPath)
		if err != nil {
			return 0, err
		}
		count := node.Int64()
		if count < 0 {
			return 0, bridgeerr.Newf(bridgeerr.MemsyncError, "length argument resolved to negative count %d", count)
		}
		elemSize := l.ElementSize
		if elemSize <= 0 {
			elemSize = 1
		}
		return int(count) * elemSize, nil
	case LengthNullTerminated:
		// Resolved during the copy itself, against the live buffer; callers
		// that need a length up front (for a pre-call allocation, say) must
		// use LengthFixed or LengthFromArg instead.
		return -1, nil
	default:
		return 0, bridgeerr.Newf(bridgeerr.MemsyncError, "unknown length kind %d", l.Kind)
	}
}

// Rule describes one pointer argument or return value whose pointee must be
// copied across the wire rather than left as an opaque address. ArgIndex
// selects which argument (or -1 for the return value) the rule applies to;
// Path locates the governed pointer within that argument's value tree.
type Rule struct {
	ArgIndex int
	Path     Path
	Length   LengthSpec
	Wide     bool
	Dir      Direction
}

// ReturnValue is the ArgIndex sentinel meaning the rule governs the routine's
// return value rather than one of its arguments.
const ReturnValue = -1
