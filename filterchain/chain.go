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

// Package filterchain builds the filter-wrapped invoker chain described in
// spec.md §4.D: an ordered list of Filters, resolved from the extension
// registry's activate set plus whatever names the URL requests, folded
// right-to-left into nested Invokers, with a trailing
// CallbackRegistrationInvoker that fires every filter's completion hook
// once, in reverse registration order, after the whole chain resolves.
//
// Grounded on ProtocolFilterWrapper's buildInvokerChain/CallbackRegistrationInvoker
// in the original implementation.
package filterchain

import (
	"context"
	"reflect"
	"strings"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/rpcurl"
)

// Side-key constants naming the URL parameter a provider or consumer URL
// uses to request filters by name, per spec.md §4.D / Dubbo's
// Constants.SERVICE_FILTER_KEY and Constants.REFERENCE_FILTER_KEY.
const (
	ServiceFilterKey   = "service.filter"
	ReferenceFilterKey = "reference.filter"
)

// Build resolves the activated filters for key/group against invoker's URL
// and wraps invoker in a chain invoker per filter, outermost filter first
// in the list, innermost last — i.e. filters[0] runs first. key names the
// URL parameter ("service.filter" on the provider side, "reference.filter"
// on the consumer side, per spec.md §4.D) whose comma-separated value lists
// filters the URL itself requests by name, in addition to whatever
// group/key auto-activation already selects. The returned Invoker is a
// CallbackRegistrationInvoker: once its Invoke's Result completes, every
// listenable filter's OnResponse or OnError fires exactly once, in reverse
// order (innermost filter first).
func Build(registry api.ExtensionRegistry, invoker api.Invoker, key, group string) (api.Invoker, error) {
	url := invoker.URL()
	var names []string
	if requested := url.Param(key, ""); requested != "" {
		names = strings.Split(requested, ",")
	}
	raw, err := registry.GetActivateExtension("Filter", url, names, group)
	if err != nil {
		return nil, err
	}
	filters := make([]api.Filter, 0, len(raw))
	for _, r := range raw {
		f, ok := r.(api.Filter)
		if !ok {
			continue
		}
		filters = append(filters, f)
	}

	last := invoker
	for i := len(filters) - 1; i >= 0; i-- {
		last = &filterInvoker{origin: invoker, next: last, filter: filters[i]}
	}
	return &CallbackRegistrationInvoker{chain: last, origin: invoker, filters: filters}, nil
}

// filterInvoker wraps one Filter around the next invoker in the chain.
type filterInvoker struct {
	origin api.Invoker // the terminal invoker, reported by Interface/URL/IsAvailable/Destroy
	next   api.Invoker
	filter api.Filter
}

var _ api.Invoker = (*filterInvoker)(nil)

func (f *filterInvoker) Interface() reflect.Type { return f.origin.Interface() }
func (f *filterInvoker) URL() rpcurl.URL         { return f.origin.URL() }
func (f *filterInvoker) IsAvailable() bool       { return f.origin.IsAvailable() }
func (f *filterInvoker) Destroy()                { f.origin.Destroy() }

// Invoke runs the wrapped filter. A panic from the filter is treated as a
// Java-style synchronous RpcException: it is reported to a ListenableFilter's
// OnError hook and then re-raised, matching buildInvokerChain's try/catch
// around filter.invoke().
func (f *filterInvoker) Invoke(ctx context.Context, invocation api.Invocation) (result api.Result) {
	defer func() {
		if r := recover(); r != nil {
			if lf, ok := f.filter.(api.ListenableFilter); ok {
				if l := lf.Listener(); l != nil {
					err, ok := r.(error)
					if !ok {
						err = panicError{r}
					}
					l.OnError(err, f.origin, invocation)
				}
			}
			panic(r)
		}
	}()
	return f.filter.Invoke(ctx, f.next, invocation)
}

type panicError struct{ v interface{} }

func (p panicError) Error() string { return "filterchain: panic in filter" }
