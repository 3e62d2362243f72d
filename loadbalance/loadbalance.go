/*
 * Copyright 2026 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package loadbalance ships the named, swappable load-balancing
// strategies spec.md's Non-goals call for: the core accepts a strategy by
// name rather than mandating one. Random and round-robin are the two
// registered under the extension registry's "LoadBalance" interface name.
package loadbalance

import (
	"math/rand"
	"sync/atomic"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/extension"
	"github.com/rulego/rrpc/rpcurl"
)

// Register installs "random" and "roundrobin" into reg under the
// "LoadBalance" interface name, and sets "random" as the default — the
// same default api.Config.DefaultLoadBalance documents.
func Register(reg interface {
	Register(ifaceName, name string, ctor extension.Constructor) error
	SetDefaultName(ifaceName, name string)
}) {
	reg.Register("LoadBalance", "random", func() interface{} { return Random{} })
	reg.Register("LoadBalance", "roundrobin", func() interface{} { return NewRoundRobin() })
	reg.SetDefaultName("LoadBalance", "random")
}

// Random selects uniformly among the available candidates.
type Random struct{}

var _ api.LoadBalance = Random{}

func (Random) Select(invokers []api.Invoker, url rpcurl.URL, invocation api.Invocation) (api.Invoker, error) {
	available := filterAvailable(invokers)
	if len(available) == 0 {
		return nil, api.ErrNoProvidersAvailable
	}
	return available[rand.Intn(len(available))], nil
}

// RoundRobin cycles through the available candidates in order, sharing one
// counter across calls.
type RoundRobin struct {
	counter *uint64
}

var _ api.LoadBalance = RoundRobin{}

// NewRoundRobin returns a RoundRobin with its own independent counter.
func NewRoundRobin() RoundRobin {
	var c uint64
	return RoundRobin{counter: &c}
}

func (r RoundRobin) Select(invokers []api.Invoker, url rpcurl.URL, invocation api.Invocation) (api.Invoker, error) {
	available := filterAvailable(invokers)
	if len(available) == 0 {
		return nil, api.ErrNoProvidersAvailable
	}
	n := atomic.AddUint64(r.counter, 1)
	return available[int(n-1)%len(available)], nil
}

func filterAvailable(invokers []api.Invoker) []api.Invoker {
	out := make([]api.Invoker, 0, len(invokers))
	for _, inv := range invokers {
		if inv.IsAvailable() {
			out = append(out, inv)
		}
	}
	return out
}
