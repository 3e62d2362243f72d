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

// Router narrows a candidate invoker list for one call. Implementations
// must treat their input slice as read-only and return a new slice.
type Router interface {
	Route(invokers []Invoker, url rpcurl.URL, invocation Invocation) []Invoker
}

// Directory is the consumer-side authoritative set of candidate invokers
// for one service reference (spec.md §3 "Directory"). It is continuously
// updated by a registry subscription and read, per call, through a
// copy-on-write snapshot so readers never block the subscription's writer.
type Directory interface {
	// URL returns the subscribed consumer URL.
	URL() rpcurl.URL
	// List returns the routed candidate invokers for one call: the current
	// snapshot narrowed by the router chain.
	List(invocation Invocation) []Invoker
	// AllInvokers returns the raw, unrouted snapshot.
	AllInvokers() []Invoker
	// IsAvailable reports whether at least one invoker is currently
	// available.
	IsAvailable() bool
	// Destroy propagates synchronously to every invoker currently held.
	Destroy()
}

// Cluster folds a Directory into a single user-visible Invoker, applying a
// load-balancing and failure-handling strategy across the directory's
// candidates (spec.md Non-goals: the core accepts a strategy by name, it
// does not mandate one).
type Cluster interface {
	Join(directory Directory) (Invoker, error)
}

// LoadBalance selects one invoker among candidates for a single call.
type LoadBalance interface {
	Select(invokers []Invoker, url rpcurl.URL, invocation Invocation) (Invoker, error)
}
