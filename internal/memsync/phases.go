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
)

// deref appends the Deref sentinel to a rule's path, naming the pointee of
// the pointer the rule governs. Both unpack phases below resolve a rule's
// target through this one path, so the branch that handles a null pointer and
// the branch that handles real data can never drift to different path lengths.
func deref(path Path) Path {
	out := make(Path, len(path)+1)
	copy(out, path)
	out[len(path)] = PathElem{Index: Deref}
	return out
}

func root(args []*marshalv.Node, ret *marshalv.Node, argIndex int) (*marshalv.Node, error) {
	if argIndex == ReturnValue {
		if ret == nil {
			return nil, bridgeerr.New(bridgeerr.MemsyncError, "rule references return value before one exists")
		}
		return ret, nil
	}
	if argIndex < 0 || argIndex >= len(args) {
		return nil, bridgeerr.Newf(bridgeerr.MemsyncError, "argument index %d out of range", argIndex)
	}
	return args[argIndex], nil
}

// ClientPack gathers data for every In/InOut rule from the client-side
// argument tree, ready to send to the server before the native call.
func ClientPack(rules []Rule, args []*marshalv.Node, policy WcharNarrowPolicy) ([]Packet, error) {
	var packets []Packet
	for _, rule := range rules {
		if !rule.Dir.hasIn() {
			continue
		}
		r, err := root(args, nil, rule.ArgIndex)
		if err != nil {
			return nil, err
		}
		ptr, err := Walk(r, rule.Path)
		if err != nil {
			return nil, err
		}
		pkt := Packet{ArgIndex: rule.ArgIndex, Path: rule.Path}
		if ptr.IsNull() || ptr.Pointee == nil {
			pkt.Null = true
			packets = append(packets, pkt)
			continue
		}
		region, err := resolveRegion(rule, args, ptr.Pointee.Bytes)
		if err != nil {
			return nil, err
		}
		data, err := toWire(region, rule.Wide, policy)
		if err != nil {
			return nil, err
		}
		pkt.Data = data
		packets = append(packets, pkt)
	}
	return packets, nil
}

// ServerUnpack writes every received packet into the server-side argument
// tree, splicing each one in as the governed pointer's Pointee.
func ServerUnpack(args []*marshalv.Node, packets []Packet, rules []Rule, policy WcharNarrowPolicy) error {
	wideByPath := wideIndex(rules)
	for _, pkt := range packets {
		r, err := root(args, nil, pkt.ArgIndex)
		if err != nil {
			return err
		}
		parent, tail, err := walkParent(r, deref(pkt.Path))
		if err != nil {
			return err
		}
		if pkt.Null {
			splice(parent, tail, nil)
			continue
		}
		wide := wideByPath[pathKey(pkt.ArgIndex, pkt.Path)]
		data, err := fromWire(pkt.Data, wide, policy)
		if err != nil {
			return err
		}
		splice(parent, tail, &marshalv.Node{Bytes: data})
	}
	return nil
}

// ServerPack gathers data for every Out/InOut rule from the server-side
// argument and return-value trees, ready to send back to the client after
// the native call.
func ServerPack(rules []Rule, args []*marshalv.Node, ret *marshalv.Node, policy WcharNarrowPolicy) ([]Packet, error) {
	var packets []Packet
	for _, rule := range rules {
		if !rule.Dir.hasOut() {
			continue
		}
		r, err := root(args, ret, rule.ArgIndex)
		if err != nil {
			return nil, err
		}
		ptr, err := Walk(r, rule.Path)
		if err != nil {
			return nil, err
		}
		pkt := Packet{ArgIndex: rule.ArgIndex, Path: rule.Path}
		// A Pointee spliced in by ServerUnpack is live data even while the
		// pointer's own bits are still zero: the server-side address is only
		// assigned when the call binds the pointee to native memory.
		if ptr.Pointee == nil {
			pkt.Null = true
			packets = append(packets, pkt)
			continue
		}
		region, err := resolveRegion(rule, args, ptr.Pointee.Bytes)
		if err != nil {
			return nil, err
		}
		data, err := toWire(region, rule.Wide, policy)
		if err != nil {
			return nil, err
		}
		pkt.Data = data
		packets = append(packets, pkt)
	}
	return packets, nil
}

// ClientUnpack writes every packet returned by the server into the
// client-side argument and return-value trees.
func ClientUnpack(args []*marshalv.Node, ret *marshalv.Node, packets []Packet, rules []Rule, policy WcharNarrowPolicy) error {
	wideByPath := wideIndex(rules)
	for _, pkt := range packets {
		r, err := root(args, ret, pkt.ArgIndex)
		if err != nil {
			return err
		}
		parent, tail, err := walkParent(r, deref(pkt.Path))
		if err != nil {
			return err
		}
		if pkt.Null {
			splice(parent, tail, nil)
			continue
		}
		wide := wideByPath[pathKey(pkt.ArgIndex, pkt.Path)]
		data, err := fromWire(pkt.Data, wide, policy)
		if err != nil {
			return err
		}
		splice(parent, tail, &marshalv.Node{Bytes: data})
	}
	return nil
}

// resolveRegion slices the live bytes behind rule's governed pointer down to
// the length rule.Length declares, rather than transferring whatever happens
// to be sitting in the pointee's buffer. LengthUnspecified keeps the legacy
// behavior of transferring the whole buffer, for a Rule built without a
// declared length. LengthNullTerminated scans the buffer itself, since its
// length can only be known from the live bytes. Either way, a length that
// would run past the end of the buffer is rejected rather than silently
// clamped, since that means the rule or the routine's own registration is
// wrong.
func resolveRegion(rule Rule, args []*marshalv.Node, data []byte) ([]byte, error) {
	var length int
	if rule.Length.Kind == LengthNullTerminated {
		n, err := nullTerminatedLength(data, rule.Wide)
		if err != nil {
			return nil, err
		}
		length = n
	} else {
		n, err := rule.Length.Resolve(args)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			length = len(data)
		} else {
			length = n
		}
	}
	if length > len(data) {
		return nil, bridgeerr.Newf(bridgeerr.MemsyncError, "resolved length %d exceeds buffer of %d bytes", length, len(data))
	}
	return data[:length], nil
}

// nullTerminatedLength scans data for a NUL terminator, a single zero byte
// for a narrow string or a zero-filled HostWcharWidth-sized unit aligned to
// that width for a wide one, and returns the length including the
// terminator itself.
func nullTerminatedLength(data []byte, wide bool) (int, error) {
	unit := 1
	if wide {
		unit = HostWcharWidth
	}
	for i := 0; i+unit <= len(data); i += unit {
		terminator := true
		for j := 0; j < unit; j++ {
			if data[i+j] != 0 {
				terminator = false
				break
			}
		}
		if terminator {
			return i + unit, nil
		}
	}
	return 0, bridgeerr.New(bridgeerr.MemsyncError, "null-terminated buffer has no terminator")
}

func toWire(data []byte, wide bool, policy WcharNarrowPolicy) ([]byte, error) {
	if !wide {
		return data, nil
	}
	return AdjustWcharWidth(data, HostWcharWidth, WireWcharWidth, policy)
}

func fromWire(data []byte, wide bool, policy WcharNarrowPolicy) ([]byte, error) {
	if !wide {
		return data, nil
	}
	return AdjustWcharWidth(data, WireWcharWidth, HostWcharWidth, policy)
}

func pathKey(argIndex int, path Path) string {
	key := make([]byte, 0, len(path)*4+2)
	key = append(key, byte(argIndex), byte(argIndex>>8))
	for _, step := range path {
		if step.Field != "" {
			key = append(key, step.Field...)
		} else {
			key = append(key, byte(step.Index), byte(step.Index>>8))
		}
		key = append(key, 0)
	}
	return string(key)
}

func wideIndex(rules []Rule) map[string]bool {
	idx := make(map[string]bool, len(rules))
	for _, r := range rules {
		idx[pathKey(r.ArgIndex, r.Path)] = r.Wide
	}
	return idx
}
