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

package cluster

import (
	"context"

	"github.com/rulego/rrpc/api"
)

// FailoverCluster retries a call against a fresh sub-invoker whenever the
// previous attempt completes with an error, up to Retries additional
// attempts beyond the first (spec.md §4.G step 8's failover strategy).
// Each attempt excludes every invoker already tried, so a retry never lands
// on the same failed provider twice.
type FailoverCluster struct {
	Registry  Resolver
	DefaultLB string
	Retries   int
}

var _ api.Cluster = FailoverCluster{}

func (c FailoverCluster) Join(directory api.Directory) (api.Invoker, error) {
	return &failoverInvoker{base: base{
		directory: directory,
		ifaceType: interfaceTypeOf(directory),
		registry:  c.Registry,
		defaultLB: c.DefaultLB,
	}, retries: c.Retries}, nil
}

type failoverInvoker struct {
	base
	retries int
}

func (f *failoverInvoker) Invoke(ctx context.Context, invocation api.Invocation) api.Result {
	result := api.NewResult()
	tried := make(map[api.Invoker]bool)

	var attempt func(retriesLeft int)
	attempt = func(retriesLeft int) {
		inv, err := f.pick(invocation, tried)
		if err != nil {
			result.SetError(err)
			return
		}
		tried[inv] = true
		sub := inv.Invoke(ctx, invocation)
		sub.WhenComplete(func(value interface{}, err error) {
			if err == nil || retriesLeft <= 0 {
				if err != nil {
					result.SetError(err)
				} else {
					result.SetValue(value)
				}
				return
			}
			attempt(retriesLeft - 1)
		})
	}
	attempt(f.retries)
	return result
}
