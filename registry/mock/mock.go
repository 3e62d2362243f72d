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

// Package mock provides an in-memory registry.Operations double standing
// in for the out-of-scope naming-service client, used by this module's own
// tests to exercise FailbackRegistry's failback, duplicate-suppression and
// full-set notification semantics without a real backend.
package mock

import (
	"errors"
	"sync"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/registry"
	"github.com/rulego/rrpc/rpcurl"
)

// Operations is a naming service held entirely in memory: providers are
// stored by service key, and subscribed consumer URLs are remembered so a
// later register/unregister can push an updated set to each of them.
type Operations struct {
	mu       sync.Mutex
	fb       *registry.FailbackRegistry
	data     map[string]map[string]rpcurl.URL // serviceKey -> providerURL.String() -> url
	watchers map[string]rpcurl.URL            // consumerURL.String() -> consumerURL

	// FailNext, when set, makes the next DoRegister/DoUnregister/DoSubscribe
	// call fail once and reset itself — used to exercise the retry sweep.
	FailNext bool
}

// New builds an empty Operations double.
func New() *Operations {
	return &Operations{
		data:     make(map[string]map[string]rpcurl.URL),
		watchers: make(map[string]rpcurl.URL),
	}
}

// Bind attaches the FailbackRegistry that owns this Operations, so a later
// register/unregister can push to every watcher via FailbackRegistry.Publish.
func (m *Operations) Bind(fb *registry.FailbackRegistry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fb = fb
}

func (m *Operations) shouldFail() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext {
		m.FailNext = false
		return true
	}
	return false
}

func (m *Operations) DoRegister(providerURL rpcurl.URL) error {
	if m.shouldFail() {
		return errors.New("mock: simulated register failure")
	}
	key := providerURL.ServiceKey()
	m.mu.Lock()
	if m.data[key] == nil {
		m.data[key] = make(map[string]rpcurl.URL)
	}
	m.data[key][providerURL.String()] = providerURL
	m.mu.Unlock()
	m.notifyWatchers(key)
	return nil
}

func (m *Operations) DoUnregister(providerURL rpcurl.URL) error {
	if m.shouldFail() {
		return errors.New("mock: simulated unregister failure")
	}
	key := providerURL.ServiceKey()
	m.mu.Lock()
	delete(m.data[key], providerURL.String())
	m.mu.Unlock()
	m.notifyWatchers(key)
	return nil
}

func (m *Operations) DoSubscribe(consumerURL rpcurl.URL) ([]rpcurl.URL, error) {
	if m.shouldFail() {
		return nil, errors.New("mock: simulated subscribe failure")
	}
	m.mu.Lock()
	m.watchers[consumerURL.String()] = consumerURL
	m.mu.Unlock()
	return m.currentSet(consumerURL), nil
}

func (m *Operations) DoUnsubscribe(consumerURL rpcurl.URL) error {
	m.mu.Lock()
	delete(m.watchers, consumerURL.String())
	m.mu.Unlock()
	return nil
}

func (m *Operations) currentSet(consumerURL rpcurl.URL) []rpcurl.URL {
	key := rpcurl.ServiceKey(consumerURL.Param("group", ""), consumerURL.Interface(), consumerURL.Param("version", ""))
	m.mu.Lock()
	providers := m.data[key]
	out := make([]rpcurl.URL, 0, len(providers))
	for _, u := range providers {
		out = append(out, u)
	}
	m.mu.Unlock()
	if len(out) == 0 {
		return []rpcurl.URL{rpcurl.Empty(consumerURL, consumerURL.Param("category", "providers"))}
	}
	return out
}

// notifyWatchers pushes serviceKey's updated set to every watcher whose
// derived service key matches, via FailbackRegistry.Publish — the mock's
// stand-in for the naming service's own watch delivery.
func (m *Operations) notifyWatchers(serviceKey string) {
	m.mu.Lock()
	fb := m.fb
	watchers := make([]rpcurl.URL, 0, len(m.watchers))
	for _, w := range m.watchers {
		watchers = append(watchers, w)
	}
	m.mu.Unlock()
	if fb == nil {
		return
	}
	for _, w := range watchers {
		wKey := rpcurl.ServiceKey(w.Param("group", ""), w.Interface(), w.Param("version", ""))
		if wKey != serviceKey {
			continue
		}
		fb.Publish(w, m.currentSet(w))
	}
}

var _ registry.Operations = (*Operations)(nil)
var _ api.Registry = (*registry.FailbackRegistry)(nil)
