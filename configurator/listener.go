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

package configurator

import "sync"

// Store is the dynamic-config store spec.md §4.H subscribes to — distinct
// from the naming registry, and out of scope as a concrete backend (the
// same out-of-scope boundary as api.Registry's naming-service client).
// Subscribe must call onChange once synchronously with the current
// payload, then again on every later change, the same contract as
// api.Registry.Subscribe but keyed by string rather than rpcurl.URL.
type Store interface {
	Subscribe(key string, onChange func(rulePayload []map[string]interface{})) error
	Unsubscribe(key string) error
}

// OverrideCallback is the Provider Export Pipeline's doOverrideIfNecessary
// hook: serviceKey is empty for the application-level listener (applies to
// every service) and set for a per-service listener.
type OverrideCallback func(serviceKey string, configurators []Configurator)

// ProviderConfigurationListener is the singleton application-level
// listener, keyed "<applicationName>.configurators".
type ProviderConfigurationListener struct {
	mu            sync.Mutex
	configurators []Configurator
	store         Store
	key           string
}

// NewProviderConfigurationListener subscribes to applicationName's
// configurator key and invokes callback with an empty service key on every
// rule change.
func NewProviderConfigurationListener(store Store, applicationName string, callback OverrideCallback) (*ProviderConfigurationListener, error) {
	l := &ProviderConfigurationListener{store: store, key: applicationName + ".configurators"}
	subscribed := false
	err := store.Subscribe(l.key, func(raw []map[string]interface{}) {
		cs, err := ParseRules(raw)
		if err != nil {
			return
		}
		l.mu.Lock()
		l.configurators = cs
		notify := subscribed
		l.mu.Unlock()
		if notify {
			callback("", cs)
		}
	})
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	subscribed = true
	l.mu.Unlock()
	return l, nil
}

// Configurators returns the currently known application-level rule set.
func (l *ProviderConfigurationListener) Configurators() []Configurator {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Configurator, len(l.configurators))
	copy(out, l.configurators)
	return out
}

// Close unsubscribes from the config store.
func (l *ProviderConfigurationListener) Close() error { return l.store.Unsubscribe(l.key) }

// ServiceConfigurationListener is one per-service listener, keyed
// "<serviceKey>.configurators".
type ServiceConfigurationListener struct {
	mu            sync.Mutex
	configurators []Configurator
	store         Store
	key           string
}

func (l *ServiceConfigurationListener) Configurators() []Configurator {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Configurator, len(l.configurators))
	copy(out, l.configurators)
	return out
}

func (l *ServiceConfigurationListener) Close() error { return l.store.Unsubscribe(l.key) }

// ServiceConfigurationListeners lazily creates and caches one
// ServiceConfigurationListener per service key, the "created on demand for
// this service key" rule from spec.md §4.F step 2.
type ServiceConfigurationListeners struct {
	mu        sync.Mutex
	store     Store
	callback  OverrideCallback
	listeners map[string]*ServiceConfigurationListener
}

// NewServiceConfigurationListeners builds an empty per-service listener
// cache.
func NewServiceConfigurationListeners(store Store, callback OverrideCallback) *ServiceConfigurationListeners {
	return &ServiceConfigurationListeners{
		store:     store,
		callback:  callback,
		listeners: make(map[string]*ServiceConfigurationListener),
	}
}

// Get returns serviceKey's listener, subscribing on first use.
func (s *ServiceConfigurationListeners) Get(serviceKey string) (*ServiceConfigurationListener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.listeners[serviceKey]; ok {
		return l, nil
	}
	l := &ServiceConfigurationListener{store: s.store, key: serviceKey + ".configurators"}
	subscribed := false
	err := s.store.Subscribe(l.key, func(raw []map[string]interface{}) {
		cs, err := ParseRules(raw)
		if err != nil {
			return
		}
		l.mu.Lock()
		l.configurators = cs
		notify := subscribed
		l.mu.Unlock()
		if notify {
			s.callback(serviceKey, cs)
		}
	})
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	subscribed = true
	l.mu.Unlock()
	s.listeners[serviceKey] = l
	return l, nil
}
