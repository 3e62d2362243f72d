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

import (
	"context"
	"reflect"

	"github.com/rulego/rrpc/rpcurl"
)

// Invoker is the uniform call surface described in spec.md §4.C: a handle
// to something callable, with lifecycle and introspection. Variants
// encountered in the pipeline include the terminal provider invoker (a
// thin wrapper over the user object, produced by the out-of-scope proxy
// generator and transport Protocol plug-in), the filter-chain invoker, the
// directory-backed consumer invoker, and a delegating invoker that
// overrides only the URL.
//
// An Invoker is owned by whatever created it and is destroyed, exactly
// once, at unexport/destroy time; Destroy must propagate synchronously to
// any child invoker it wraps.
type Invoker interface {
	// Interface returns the Go type this invoker answers calls for.
	Interface() reflect.Type
	// URL returns the invoker's current descriptor.
	URL() rpcurl.URL
	// IsAvailable reports whether the invoker can currently accept calls.
	IsAvailable() bool
	// Invoke dispatches invocation and returns a Result. Invoke is
	// synchronous up to the point of returning a Result; completion of
	// that Result may happen on a different goroutine.
	Invoke(ctx context.Context, invocation Invocation) Result
	// Destroy releases the invoker. It must be safe to call more than
	// once.
	Destroy()
}

// DelegateInvoker wraps an origin invoker and overrides only the URL it
// reports — the shape Dubbo calls InvokerDelegate, used by the provider
// export pipeline's local re-export (§4.F step 3/6). The consumer
// directory's per-provider invokers do not use it.
type DelegateInvoker struct {
	origin Invoker
	url    rpcurl.URL
}

// NewDelegateInvoker returns an Invoker identical to origin except that
// URL() reports url instead of origin.URL().
func NewDelegateInvoker(origin Invoker, url rpcurl.URL) *DelegateInvoker {
	return &DelegateInvoker{origin: origin, url: url}
}

func (d *DelegateInvoker) Interface() reflect.Type { return d.origin.Interface() }
func (d *DelegateInvoker) URL() rpcurl.URL          { return d.url }
func (d *DelegateInvoker) IsAvailable() bool        { return d.origin.IsAvailable() }
func (d *DelegateInvoker) Invoke(ctx context.Context, inv Invocation) Result {
	return d.origin.Invoke(ctx, inv)
}
func (d *DelegateInvoker) Destroy() { d.origin.Destroy() }

// Origin returns the wrapped invoker.
func (d *DelegateInvoker) Origin() Invoker { return d.origin }
