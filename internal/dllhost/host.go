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

// Package dllhost loads Windows DLLs and invokes their routines. It is the
// only package in the module that reaches golang.org/x/sys/windows; every
// other package talks to it through routine.Loader and Host.CallRoutine.
package dllhost

// Host is the routine.Loader and native-call backend. Its LoadLibrary,
// FindProc, and Invoke methods are platform-specific (see host_windows.go
// and host_other.go); CallRoutine in invoke.go is the shared argument-
// packing logic built on top of them.
type Host struct{}

// New returns a Host ready to load libraries.
func New() *Host {
	return &Host{}
}
