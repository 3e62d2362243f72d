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

package extension

import (
	"fmt"
	"reflect"

	"github.com/rulego/rrpc/rpcurl"
)

// adaptiveMethodPlan records how to resolve, at call time, which concrete
// extension name should service one adaptive method: the argument position
// carrying the rpcurl.URL, the URL parameter keys to try in order, and the
// name to fall back to if none of them are set.
type adaptiveMethodPlan struct {
	urlParamIndex int
	keys          []string
	defaultName   string
}

// RegisterAdaptiveMethod marks methodName of ifaceName as adaptive: calls
// routed through AdaptiveDispatcher.Invoke resolve the target extension
// name from urlParamIndex's rpcurl.URL argument, trying keys in order and
// falling back to defaultName. Methods with no registered plan are not
// adaptive and Invoke rejects them, mirroring the "methods not marked
// adaptive are unsupported" rule.
func (r *Registry) RegisterAdaptiveMethod(ifaceName, methodName string, urlParamIndex int, keys []string, defaultName string) {
	h := r.holderFor(ifaceName)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.adaptiveMethods[methodName] = adaptiveMethodPlan{
		urlParamIndex: urlParamIndex,
		keys:          keys,
		defaultName:   defaultName,
	}
}

// RegisterAdaptiveInstance installs a hand-written adaptive implementation
// for ifaceName, the "user-supplied adaptive class" case: GetAdaptiveExtension
// returns it directly instead of synthesizing an AdaptiveDispatcher.
func (r *Registry) RegisterAdaptiveInstance(ifaceName string, instance interface{}) {
	h := r.holderFor(ifaceName)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.adaptive = instance
}

// GetAdaptiveExtension returns ifaceName's adaptive extension: the
// user-supplied instance if one was registered, otherwise a synthesized
// *AdaptiveDispatcher built from the interface's registered adaptive method
// plans. It fails if neither is available.
func (r *Registry) GetAdaptiveExtension(ifaceName string) (interface{}, error) {
	h := r.holderFor(ifaceName)
	h.mu.Lock()
	adaptive := h.adaptive
	hasMethods := len(h.adaptiveMethods) > 0
	h.mu.Unlock()

	if adaptive != nil {
		return adaptive, nil
	}
	if !hasMethods {
		return nil, fmt.Errorf("extension: %s has no adaptive method plan and no adaptive instance registered", ifaceName)
	}
	return &AdaptiveDispatcher{registry: r, ifaceName: ifaceName}, nil
}

// AdaptiveDispatcher is the generic "synthesized adaptive class" described
// in spec.md §4.A: a proxy that, per call, resolves the URL argument's
// extension name and reflectively forwards the call to that extension.
// Callers needing a value that statically satisfies their own interface
// type write a small hand-rolled wrapper delegating to Invoke, the same
// three lines a generated adaptive class would contain.
type AdaptiveDispatcher struct {
	registry  *Registry
	ifaceName string
}

// Invoke dispatches methodName with args to the extension named by the
// registered adaptive plan for that method, returning its result values in
// order.
func (d *AdaptiveDispatcher) Invoke(methodName string, args ...interface{}) ([]interface{}, error) {
	h := d.registry.holderFor(d.ifaceName)
	h.mu.Lock()
	plan, ok := h.adaptiveMethods[methodName]
	h.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("extension: %s.%s is not marked adaptive", d.ifaceName, methodName)
	}
	if plan.urlParamIndex < 0 || plan.urlParamIndex >= len(args) {
		return nil, fmt.Errorf("extension: %s.%s expects a rpcurl.URL argument at index %d", d.ifaceName, methodName, plan.urlParamIndex)
	}
	u, ok := args[plan.urlParamIndex].(rpcurl.URL)
	if !ok {
		return nil, fmt.Errorf("extension: %s.%s argument %d is not a rpcurl.URL", d.ifaceName, methodName, plan.urlParamIndex)
	}

	name := plan.defaultName
	for _, key := range plan.keys {
		if v := u.Param(key, ""); v != "" {
			name = v
			break
		}
	}
	if name == "" {
		return nil, fmt.Errorf("extension: %s.%s could not resolve an extension name from %s", d.ifaceName, methodName, u.String())
	}

	target, err := d.registry.GetExtension(d.ifaceName, name)
	if err != nil {
		return nil, err
	}
	mv := reflect.ValueOf(target).MethodByName(methodName)
	if !mv.IsValid() {
		return nil, fmt.Errorf("extension: %s/%s has no method %s", d.ifaceName, name, methodName)
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		in[i] = reflect.ValueOf(a)
	}
	out := mv.Call(in)
	result := make([]interface{}, len(out))
	for i, o := range out {
		result[i] = o.Interface()
	}
	return result, nil
}
