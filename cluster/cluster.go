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

// Package cluster ships the named, swappable clustering strategies
// spec.md §4.G step 8 describes: failover (retry across sub-invokers on a
// remote error), failfast (one attempt, no retry) and mergeable (fan out to
// every candidate and merge the results). The core accepts a strategy by
// name, per spec.md's Non-goals, rather than mandating one; Register
// installs all three into an extension registry.
package cluster

import (
	"reflect"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/extension"
	"github.com/rulego/rrpc/rpcurl"
)

// Resolver is the subset of the extension registry cluster strategies need
// to pick a load balancer by name, with a fallback to the registry's
// configured default when the directory URL names none.
type Resolver interface {
	GetExtension(ifaceName, name string) (interface{}, error)
	GetDefaultExtension(ifaceName string) (interface{}, error)
}

// base is embedded by every cluster invoker; it reports identity by
// delegating to the wrapped directory and resolves the per-call load
// balancer named by the directory URL's "loadbalance" parameter, falling
// back to defaultLB.
type base struct {
	directory api.Directory
	ifaceType reflect.Type
	registry  Resolver
	defaultLB string
}

func (b *base) Interface() reflect.Type { return b.ifaceType }
func (b *base) URL() rpcurl.URL         { return b.directory.URL() }
func (b *base) IsAvailable() bool       { return b.directory.IsAvailable() }
func (b *base) Destroy()                { b.directory.Destroy() }

func (b *base) loadBalance() (api.LoadBalance, error) {
	name := b.directory.URL().Param("loadbalance", b.defaultLB)
	var ext interface{}
	var err error
	if name == "" {
		ext, err = b.registry.GetDefaultExtension("LoadBalance")
	} else {
		ext, err = b.registry.GetExtension("LoadBalance", name)
	}
	if err != nil {
		return nil, err
	}
	lb, ok := ext.(api.LoadBalance)
	if !ok {
		return nil, api.ErrExtensionNotFound
	}
	return lb, nil
}

// interfaceTypeOf reports the Go type a directory's invokers answer calls
// for, falling back to the empty interface when the directory currently
// holds no invokers to inspect.
func interfaceTypeOf(directory api.Directory) reflect.Type {
	if all := directory.AllInvokers(); len(all) > 0 {
		return all[0].Interface()
	}
	return reflect.TypeOf((*interface{})(nil)).Elem()
}

// pick selects one candidate from the directory's routed list, excluding
// any invoker already present in exclude.
func (b *base) pick(invocation api.Invocation, exclude map[api.Invoker]bool) (api.Invoker, error) {
	candidates := b.directory.List(invocation)
	if len(exclude) > 0 {
		filtered := make([]api.Invoker, 0, len(candidates))
		for _, c := range candidates {
			if !exclude[c] {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}
	if len(candidates) == 0 {
		return nil, api.ErrNoProvidersAvailable
	}
	lb, err := b.loadBalance()
	if err != nil {
		return nil, err
	}
	return lb.Select(candidates, b.directory.URL(), invocation)
}

// Registrar is the subset of the extension registry cluster strategies
// register themselves against.
type Registrar interface {
	Register(ifaceName, name string, ctor extension.Constructor) error
	SetDefaultName(ifaceName, name string)
}

// Register installs "failover" (the default), "failfast" and "mergeable"
// under the extension registry's "Cluster" interface name. Each entry is a
// thin Cluster value closing over registry; the directory's interface type
// is discovered lazily, at Join time, from its current invoker snapshot.
func Register(reg Registrar, registry Resolver) {
	reg.Register("Cluster", "failover", func() interface{} {
		return FailoverCluster{Registry: registry, Retries: 2}
	})
	reg.Register("Cluster", "failfast", func() interface{} {
		return FailfastCluster{Registry: registry}
	})
	reg.Register("Cluster", "mergeable", func() interface{} {
		return MergeableCluster{Registry: registry}
	})
	reg.SetDefaultName("Cluster", "failover")
}
