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
	"sync"

	"github.com/rulego/rrpc/api"
)

// MergeableCluster fans a call out to every candidate the directory
// currently routes and merges their results into a single []interface{},
// in candidate order — spec.md §4.G step 8's mergeable strategy, used when
// more than one provider group should all be consulted for one call rather
// than one selected among them. A candidate that errors contributes no
// entry; the merged result errors only if every candidate did.
type MergeableCluster struct {
	Registry  Resolver
	DefaultLB string
}

var _ api.Cluster = MergeableCluster{}

func (c MergeableCluster) Join(directory api.Directory) (api.Invoker, error) {
	return &mergeableInvoker{base: base{
		directory: directory,
		ifaceType: interfaceTypeOf(directory),
		registry:  c.Registry,
		defaultLB: c.DefaultLB,
	}}, nil
}

type mergeableInvoker struct {
	base
}

func (m *mergeableInvoker) Invoke(ctx context.Context, invocation api.Invocation) api.Result {
	candidates := m.directory.List(invocation)
	if len(candidates) == 0 {
		return api.CompletedError(api.ErrNoProvidersAvailable)
	}

	result := api.NewResult()
	values := make([]interface{}, len(candidates))
	ok := make([]bool, len(candidates))
	var mu sync.Mutex
	remaining := len(candidates)

	for i, inv := range candidates {
		i, inv := i, inv
		sub := inv.Invoke(ctx, invocation)
		sub.WhenComplete(func(value interface{}, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				values[i] = value
				ok[i] = true
			}
			remaining--
			if remaining == 0 {
				merged := make([]interface{}, 0, len(values))
				for j, v := range values {
					if ok[j] {
						merged = append(merged, v)
					}
				}
				if len(merged) == 0 {
					result.SetError(api.ErrRpcRemoteError)
					return
				}
				result.SetValue(merged)
			}
		})
	}
	return result
}
