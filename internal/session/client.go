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

package session

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/talismancer/winxcall/internal/bridgeerr"
	"github.com/talismancer/winxcall/internal/bridgerpc"
	"github.com/talismancer/winxcall/internal/marshalv"
	"github.com/talismancer/winxcall/internal/memsync"
	"github.com/talismancer/winxcall/internal/wiretype"
)

// Client drives one session against a Server over a bridgerpc.Client. A
// weighted semaphore of size one enforces that a second call cannot be
// dispatched before the first one's Response arrives, independent of how
// many goroutines a caller has reaching for the same Client.
type Client struct {
	conn   *bridgerpc.Client
	sem    *semaphore.Weighted
	policy memsync.WcharNarrowPolicy
	nextID uint64
}

// NewClient wraps an already-dialed bridgerpc.Client.
func NewClient(conn *bridgerpc.Client, policy memsync.WcharNarrowPolicy) *Client {
	return &Client{conn: conn, sem: semaphore.NewWeighted(1), policy: policy}
}

func (c *Client) id() uint64 {
	return atomic.AddUint64(&c.nextID, 1)
}

// AccessDLL loads a library on the server under key.
func (c *Client) AccessDLL(ctx context.Context, key, path string) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return bridgeerr.Newf(bridgeerr.TransportError, "acquire call slot: %v", err)
	}
	defer c.sem.Release(1)

	resp, err := c.conn.Call(&bridgerpc.Request{
		ID:          c.id(),
		Command:     bridgerpc.CmdAccessDLL,
		LibraryKey:  key,
		LibraryPath: path,
	})
	if err != nil {
		return err
	}
	return responseErr(resp)
}

// RegisterRoutine records a routine's signature on the server.
func (c *Client) RegisterRoutine(ctx context.Context, key, name string, argTypes []*wiretype.Descriptor, restype *wiretype.Descriptor, rules []memsync.Rule) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return bridgeerr.Newf(bridgeerr.TransportError, "acquire call slot: %v", err)
	}
	defer c.sem.Release(1)

	resp, err := c.conn.Call(&bridgerpc.Request{
		ID:         c.id(),
		Command:    bridgerpc.CmdRegisterRoutine,
		LibraryKey: key,
		Routine:    name,
		ArgTypes:   argTypes,
		RestType:   restype,
		Rules:      rules,
	})
	if err != nil {
		return err
	}
	return responseErr(resp)
}

// Invoke calls a registered routine with args, already packed into
// client-side Nodes, and returns its wire-safe return value. The caller
// knows the routine's RestType from its own RegisterRoutine call and
// unmarshals the return value against it.
func (c *Client) Invoke(ctx context.Context, key, name string, args []*marshalv.Node, rules []memsync.Rule) (*marshalv.Value, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, bridgeerr.Newf(bridgeerr.TransportError, "acquire call slot: %v", err)
	}
	defer c.sem.Release(1)

	packets, err := memsync.ClientPack(rules, args, c.policy)
	if err != nil {
		return nil, err
	}

	wireArgs := make([]*marshalv.Value, len(args))
	for i, a := range args {
		wireArgs[i] = marshalv.Marshal(a)
	}

	resp, err := c.conn.Call(&bridgerpc.Request{
		ID:         c.id(),
		Command:    bridgerpc.CmdInvoke,
		LibraryKey: key,
		Routine:    name,
		Args:       wireArgs,
		Packets:    packets,
	})
	if err != nil {
		return nil, err
	}
	if err := responseErr(resp); err != nil {
		return nil, err
	}

	if err := memsync.ClientUnpack(args, nil, resp.Packets, rules, c.policy); err != nil {
		return nil, err
	}
	return resp.Return, nil
}

// Shutdown ends the session.
func (c *Client) Shutdown() error {
	return c.conn.Shutdown(c.id())
}

func responseErr(resp *bridgerpc.Response) error {
	if resp.Err == nil {
		return nil
	}
	return resp.Err
}
