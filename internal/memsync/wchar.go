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

import "github.com/talismancer/winxcall/internal/bridgeerr"

// WcharNarrowPolicy controls what AdjustWcharWidth does when translating
// from a wider host wchar_t down to the Windows ABI's 2-byte wchar_t would
// discard set bits.
type WcharNarrowPolicy int

const (
	// ErrorOnLoss refuses to narrow a character that would lose data and
	// returns a MemsyncError. This is the default: silent truncation of a
	// wide character is a correctness bug, not a compatibility shim.
	ErrorOnLoss WcharNarrowPolicy = iota
	// Truncate keeps only the low bytes of each character, matching legacy
	// behavior for callers that know their strings are ASCII-range.
	Truncate
)

// AdjustWcharWidth re-strides a buffer of fixed-width characters from
// oldWidth bytes per character to newWidth bytes per character, preserving
// character count. Widening zero-extends; narrowing either errors or
// truncates depending on policy.
func AdjustWcharWidth(data []byte, oldWidth, newWidth int, policy WcharNarrowPolicy) ([]byte, error) {
	if oldWidth <= 0 || newWidth <= 0 {
		return nil, bridgeerr.Newf(bridgeerr.MemsyncError, "invalid wchar width oldWidth=%d newWidth=%d", oldWidth, newWidth)
	}
	if len(data)%oldWidth != 0 {
		return nil, bridgeerr.Newf(bridgeerr.MemsyncError, "wchar buffer length %d is not a multiple of width %d", len(data), oldWidth)
	}
	if oldWidth == newWidth {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}

	count := len(data) / oldWidth
	out := make([]byte, count*newWidth)
	minWidth := oldWidth
	if newWidth < minWidth {
		minWidth = newWidth
	}
	for i := 0; i < count; i++ {
		src := data[i*oldWidth : (i+1)*oldWidth]
		dst := out[i*newWidth : (i+1)*newWidth]
		copy(dst[:minWidth], src[:minWidth])
		if newWidth < oldWidth && policy == ErrorOnLoss {
			for _, b := range src[minWidth:] {
				if b != 0 {
					return nil, bridgeerr.Newf(bridgeerr.MemsyncError,
						"character %d would lose data narrowing from %d to %d bytes", i, oldWidth, newWidth)
				}
			}
		}
	}
	return out, nil
}

// WireWcharWidth is the Windows ABI's wchar_t width: every wide-character
// buffer on the wire uses this width, independent of either host.
const WireWcharWidth = 2
