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

// FailfastCluster makes exactly one attempt and reports whatever it
// returns, success or failure — spec.md §4.G step 8's failfast strategy,
// for calls whose side effects are not safe to retry.
type FailfastCluster struct {
	Registry  Resolver
	DefaultLB string
}

var _ api.Cluster = FailfastCluster{}

func (c FailfastCluster) Join(directory api.Directory) (api.Invoker, error) {
	return &failfastInvoker{base: base{
		directory: directory,
		ifaceType: interfaceTypeOf(directory),
		registry:  c.Registry,
		defaultLB: c.DefaultLB,
	}}, nil
}

type failfastInvoker struct {
	base
}

func (f *failfastInvoker) Invoke(ctx context.Context, invocation api.Invocation) api.Result {
	inv, err := f.pick(invocation, nil)
	if err != nil {
		return api.CompletedError(err)
	}
	return inv.Invoke(ctx, invocation)
}
