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

//go:build !windows

package memsync

// HostWcharWidth is the width, in bytes, of the calling host's native
// wchar_t. glibc's wchar_t is 4 bytes; every wide-character buffer handed to
// or received from a client on such a host needs AdjustWcharWidth against
// WireWcharWidth.
const HostWcharWidth = 4
