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

package registry

import (
	"sync"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/rpcurl"
)

// Builder constructs the concrete Operations for one registry URL (e.g.
// dialing a naming-service client). Factory calls it at most once per
// distinct registry URL.
type Builder func(registryURL rpcurl.URL, logger api.Logger) (Operations, error)

// entry is a reference-counted, lazily-built registry instance shared by
// every consumer/provider that refers to the same registry URL.
type entry struct {
	registry *FailbackRegistry
	refs     int
}

// Factory is a reference-counted api.RegistryFactory: the shared
// naming-service client is deduplicated by registry URL (scheme, username,
// host, port), per spec.md §5 "Shared resources".
type Factory struct {
	mu            sync.Mutex
	build         Builder
	logger        api.Logger
	retryInterval string
	entries       map[string]*entry
}

// NewFactory builds a Factory. retryInterval is a Go duration string (e.g.
// "5s") passed to each FailbackRegistry's cron sweep.
func NewFactory(build Builder, logger api.Logger, retryInterval string) *Factory {
	if logger == nil {
		logger = api.DefaultLogger()
	}
	return &Factory{
		build:         build,
		logger:        logger,
		retryInterval: retryInterval,
		entries:       make(map[string]*entry),
	}
}

// GetRegistry returns the shared Registry for registryURL, building and
// starting it on first use.
func (f *Factory) GetRegistry(registryURL rpcurl.URL) (api.Registry, error) {
	key := registryKey(registryURL)
	f.mu.Lock()
	defer f.mu.Unlock()

	if e, ok := f.entries[key]; ok {
		e.refs++
		return e.registry, nil
	}
	ops, err := f.build(registryURL, f.logger)
	if err != nil {
		return nil, err
	}
	fb := NewFailbackRegistry(ops, f.logger)
	fb.Start(f.retryInterval)
	f.entries[key] = &entry{registry: fb, refs: 1}
	return fb, nil
}

// Release decrements registryURL's reference count, stopping and
// forgetting the shared registry once it reaches zero.
func (f *Factory) Release(registryURL rpcurl.URL) {
	key := registryKey(registryURL)
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		e.registry.Stop()
		delete(f.entries, key)
	}
}

// registryKey dedupes by scheme, username, host and port only (the
// password is not part of the key) — two registry URLs differing only in
// unrelated parameters still share one client.
func registryKey(u rpcurl.URL) string {
	return u.Protocol() + "://" + u.Username() + "@" + u.Address()
}

var _ api.RegistryFactory = (*Factory)(nil)
