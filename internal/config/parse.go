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

package config

import (
	"fmt"

	"github.com/talismancer/winxcall/internal/memsync"
	"github.com/talismancer/winxcall/internal/xlog"
)

func parseLogLevel(s string) (xlog.Level, error) {
	switch s {
	case "warning":
		return xlog.Warning, nil
	case "info", "":
		return xlog.Info, nil
	case "debug":
		return xlog.Debug, nil
	default:
		return 0, fmt.Errorf("invalid log-level %q: must be warning, info, or debug", s)
	}
}

func parseWcharPolicy(s string) (memsync.WcharNarrowPolicy, error) {
	switch s {
	case "error", "":
		return memsync.ErrorOnLoss, nil
	case "truncate":
		return memsync.Truncate, nil
	default:
		return 0, fmt.Errorf("invalid wchar-narrow-policy %q: must be error or truncate", s)
	}
}
