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

package protocol

import (
	"reflect"
	"sort"
	"sync"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/configurator"
	"github.com/rulego/rrpc/filterchain"
	"github.com/rulego/rrpc/rpcurl"
)

// RegistryDirectory is the consumer-side api.Directory for one service
// reference: a registry subscription's notifications update it in place,
// behind a copy-on-write snapshot so List/AllInvokers never block a
// concurrent update (spec.md §4.G step 7, §5 "Directory updates").
type RegistryDirectory struct {
	ifaceType    reflect.Type
	registryURL  rpcurl.URL
	subscribeURL rpcurl.URL
	registry     api.Registry
	transport    api.Protocol
	ext          api.ExtensionRegistry
	cfg          api.Config
	group        string

	notifyMu sync.Mutex // serializes Notify, per spec.md §5's per-subscription monitor

	mu            sync.RWMutex
	invokers      map[string]api.Invoker
	snapshot      []api.Invoker
	configurators []configurator.Configurator
	routers       []api.Router
}

var _ api.Directory = (*RegistryDirectory)(nil)
var _ api.NotifyListener = (*RegistryDirectory)(nil)

func newRegistryDirectory(ifaceType reflect.Type, registryURL, subscribeURL rpcurl.URL, registry api.Registry, transport api.Protocol, ext api.ExtensionRegistry, cfg api.Config, group string) *RegistryDirectory {
	return &RegistryDirectory{
		ifaceType:    ifaceType,
		registryURL:  registryURL,
		subscribeURL: subscribeURL,
		registry:     registry,
		transport:    transport,
		ext:          ext,
		cfg:          cfg,
		group:        group,
		invokers:     make(map[string]api.Invoker),
	}
}

func (d *RegistryDirectory) URL() rpcurl.URL { return d.subscribeURL }

// AllInvokers returns the raw, unrouted snapshot.
func (d *RegistryDirectory) AllInvokers() []api.Invoker {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]api.Invoker, len(d.snapshot))
	copy(out, d.snapshot)
	return out
}

// List narrows the current snapshot through the router chain. d.routers
// is scoped out (see Notify's "routers" case below) and so is always
// empty today: this loop is wired but only ever exercised as a no-op
// pass-through.
func (d *RegistryDirectory) List(invocation api.Invocation) []api.Invoker {
	all := d.AllInvokers()
	d.mu.RLock()
	routers := make([]api.Router, len(d.routers))
	copy(routers, d.routers)
	d.mu.RUnlock()
	for _, r := range routers {
		all = r.Route(all, d.subscribeURL, invocation)
	}
	return all
}

func (d *RegistryDirectory) IsAvailable() bool {
	for _, inv := range d.AllInvokers() {
		if inv.IsAvailable() {
			return true
		}
	}
	return false
}

// Destroy propagates synchronously to every invoker currently held.
func (d *RegistryDirectory) Destroy() {
	d.mu.Lock()
	invokers := d.invokers
	d.invokers = make(map[string]api.Invoker)
	d.snapshot = nil
	d.mu.Unlock()
	for _, inv := range invokers {
		inv.Destroy()
	}
}

// Notify partitions incoming URLs by category and updates the relevant
// half of the directory's state, per spec.md §4.G step 7. Registry
// subscriptions deliver the full current set on every change, so this
// always replaces (never merges into) the prior configurators and
// provider set.
func (d *RegistryDirectory) Notify(urls []rpcurl.URL) {
	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()

	var providers, configuratorURLs []rpcurl.URL
	for _, u := range urls {
		if u.IsEmpty() {
			continue
		}
		switch u.Param("category", "providers") {
		case "configurators":
			configuratorURLs = append(configuratorURLs, u)
		case "routers":
			// Scoped out: no concrete router wire format is in scope
			// (spec.md's Non-goals exclude the wire format). The category
			// is recognized and parsed out of the notification, but no
			// api.Router is ever built from it, so d.routers stays empty
			// and List's router-fold loop runs over zero routers — a
			// deliberately inert pass-through, not a bug.
		case "providers":
			providers = append(providers, u)
		}
	}

	d.updateConfigurators(configuratorURLs)
	d.updateProviders(providers)
}

func (d *RegistryDirectory) updateConfigurators(urls []rpcurl.URL) {
	cs := make([]configurator.Configurator, 0, len(urls))
	for _, u := range urls {
		cs = append(cs, configurator.Configurator{MatchURL: u, Order: u.ParamInt("priority", 0)})
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].Order < cs[j].Order })
	d.mu.Lock()
	d.configurators = cs
	d.mu.Unlock()
}

// updateProviders rebuilds the invoker set: providers already held by
// identical effective URL are reused, new ones are referred through the
// transport Protocol plug-in and wrapped in a filter chain, and invokers
// for providers no longer present are destroyed.
func (d *RegistryDirectory) updateProviders(urls []rpcurl.URL) {
	d.mu.RLock()
	configurators := make([]configurator.Configurator, len(d.configurators))
	copy(configurators, d.configurators)
	existing := d.invokers
	d.mu.RUnlock()

	wanted := make(map[string]rpcurl.URL, len(urls))
	for _, u := range urls {
		effective := configurator.ApplyAll(configurators, u)
		wanted[effective.String()] = effective
	}

	next := make(map[string]api.Invoker, len(wanted))
	for key, providerURL := range wanted {
		if inv, ok := existing[key]; ok {
			next[key] = inv
			continue
		}
		invoker, err := d.newProviderInvoker(providerURL)
		if err != nil {
			d.cfg.Logger.Printf("protocol: refer %s failed: %v", providerURL, err)
			continue
		}
		next[key] = invoker
	}

	var stale []api.Invoker
	for key, inv := range existing {
		if _, ok := next[key]; !ok {
			stale = append(stale, inv)
		}
	}

	snapshot := make([]api.Invoker, 0, len(next))
	for _, inv := range next {
		snapshot = append(snapshot, inv)
	}

	d.mu.Lock()
	d.invokers = next
	d.snapshot = snapshot
	d.mu.Unlock()

	for _, inv := range stale {
		inv.Destroy()
	}
}

func (d *RegistryDirectory) newProviderInvoker(providerURL rpcurl.URL) (api.Invoker, error) {
	raw, err := d.transport.Refer(d.ifaceType, providerURL)
	if err != nil {
		return nil, err
	}
	return filterchain.Build(d.ext, raw, filterchain.ReferenceFilterKey, "consumer")
}
