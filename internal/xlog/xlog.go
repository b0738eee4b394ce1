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

// Package xlog is a small leveled logger in the style of the teacher's own
// status-line logging: a package-level target Emitter, a level that gates
// Debugf and Infof, and Warningf that always fires. The real system places a
// socket-based log relay between the Windows-side server and the Unix-side
// client (out of scope for this module); RemoteEmitter is the seam such a
// transport would implement.
package xlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level gates which messages reach the target Emitter.
type Level int

const (
	// Warning only logs warnings.
	Warning Level = iota
	// Info logs warnings and info messages.
	Info
	// Debug logs everything.
	Debug
)

// Emitter receives a fully formatted log line for one level.
type Emitter interface {
	Emit(level Level, timestamp time.Time, line string)
}

// RemoteEmitter is implemented by a log transport that forwards lines to a
// peer process, such as the Unix-side log relay the Windows-side server
// writes to. Not implemented in this module; bootstrap code wires a
// concrete transport in here.
type RemoteEmitter interface {
	Emitter
	Close() error
}

// WriterEmitter formats lines and writes them to an io.Writer.
type WriterEmitter struct {
	Next io.Writer
}

// Emit implements Emitter.
func (w WriterEmitter) Emit(level Level, ts time.Time, line string) {
	fmt.Fprintf(w.Next, "%s %-7s %s\n", ts.Format(time.RFC3339Nano), levelName(level), line)
}

func levelName(l Level) string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	default:
		return "UNKNOWN"
	}
}

// MultiEmitter fans a line out to every Emitter in the slice.
type MultiEmitter []Emitter

// Emit implements Emitter.
func (m MultiEmitter) Emit(level Level, ts time.Time, line string) {
	for _, e := range m {
		e.Emit(level, ts, line)
	}
}

var (
	mu     sync.Mutex
	level  = Info
	target Emitter = WriterEmitter{Next: os.Stderr}
)

// SetLevel changes the package-level gating level.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// SetTarget replaces the package-level Emitter.
func SetTarget(e Emitter) {
	mu.Lock()
	defer mu.Unlock()
	target = e
}

func emit(l Level, format string, args ...any) {
	mu.Lock()
	cur, tgt := level, target
	mu.Unlock()
	if l > cur {
		return
	}
	tgt.Emit(l, time.Now(), fmt.Sprintf(format, args...))
}

// Debugf logs at Debug level.
func Debugf(format string, args ...any) { emit(Debug, format, args...) }

// Infof logs at Info level.
func Infof(format string, args ...any) { emit(Info, format, args...) }

// Warningf logs at Warning level.
func Warningf(format string, args ...any) { emit(Warning, format, args...) }

// Close releases the package-level target Emitter's resources, if it holds
// any (a RemoteEmitter's socket, an open log file). An Emitter that does not
// implement io.Closer has nothing to release and Close is a no-op. This is
// the "close log" step of terminate()'s local teardown.
func Close() error {
	mu.Lock()
	tgt := target
	mu.Unlock()
	if c, ok := tgt.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
