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

// Package bridgeerr defines the typed error kinds that cross the wire
// between the Unix-side client and the Windows-side server.
package bridgeerr

import "fmt"

// Kind identifies one of the transport-neutral error categories a call can
// fail with.
type Kind int

const (
	// LibraryLoadError means a DLL could not be loaded. Fatal per-library,
	// never retried.
	LibraryLoadError Kind = iota

	// SymbolError means a routine was not found in a library. Per-routine,
	// recoverable by the client retrying under a different name.
	SymbolError

	// TypeDescriptorError means a descriptor could not be resolved. The
	// marshaller falls back to opaque-void semantics and continues; this
	// kind is logged as a warning, not returned to a caller.
	TypeDescriptorError

	// MemsyncError means path resolution failed, a length came out
	// negative, or wide-character translation hit a non-multiple length.
	// Per-call, recoverable.
	MemsyncError

	// NativeCallError means the native routine raised an access violation,
	// returned through the emulation layer's error channel, or signalled
	// an ABI mismatch. Per-call, recoverable.
	NativeCallError

	// TransportError means the channel is dead. Fatal to the session.
	TransportError
)

func (k Kind) String() string {
	switch k {
	case LibraryLoadError:
		return "LibraryLoadError"
	case SymbolError:
		return "SymbolError"
	case TypeDescriptorError:
		return "TypeDescriptorError"
	case MemsyncError:
		return "MemsyncError"
	case NativeCallError:
		return "NativeCallError"
	case TransportError:
		return "TransportError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a structured error that survives the trip across the wire: a
// Kind, a human-readable Message, and an optional text-form stack Trace
// captured at the point of failure.
type Error struct {
	Kind    Kind
	Message string
	Trace   string
}

// New builds an Error with no trace attached.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether target names the same Kind, so callers can write
// errors.Is(err, bridgeerr.New(bridgeerr.MemsyncError, "")).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

// WithTrace returns a copy of e with Trace set.
func (e *Error) WithTrace(trace string) *Error {
	cp := *e
	cp.Trace = trace
	return &cp
}
