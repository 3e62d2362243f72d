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

package api

import "github.com/rulego/rrpc/rpcurl"

// NotifyListener receives the full current set of URLs matching a
// subscription, every time it changes (spec.md §4.E: "the set delivered is
// always the full current set ... not a delta").
type NotifyListener interface {
	Notify(urls []rpcurl.URL)
}

// NotifyFunc adapts a plain function to NotifyListener.
type NotifyFunc func(urls []rpcurl.URL)

func (f NotifyFunc) Notify(urls []rpcurl.URL) { f(urls) }

// Registry is the facade described in spec.md §4.E, abstracting
// register/unregister/subscribe/unsubscribe over a concrete naming-service
// client (out of scope here; see registry/mock for the test double).
// Register and Unregister are idempotent; Subscribe calls listener.Notify
// synchronously exactly once with the current set before returning.
type Registry interface {
	Register(providerURL rpcurl.URL) error
	Unregister(providerURL rpcurl.URL) error
	Subscribe(consumerURL rpcurl.URL, listener NotifyListener) error
	Unsubscribe(consumerURL rpcurl.URL, listener NotifyListener) error
}

// RegistryFactory returns the shared Registry for a given registry URL,
// reference-counted so that multiple consumers of the same registry URL
// share one underlying connection (spec.md §9).
type RegistryFactory interface {
	GetRegistry(registryURL rpcurl.URL) (Registry, error)
}
