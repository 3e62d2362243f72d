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

// Package configurator implements spec.md §4.H's dynamic-config rules: a
// Configurator matches a subset of URLs and overrides a fixed set of their
// parameters, and the two listeners (application-level and per-service)
// that the Provider Export Pipeline consults via doOverrideIfNecessary.
package configurator

import (
	"github.com/dop251/goja"

	"github.com/rulego/rrpc/rpcurl"
)

// reservedMatchKeys are the configurator rule's own bookkeeping parameters;
// they are never copied onto the matched URL. Of these, only group, version
// and application take part in Matches.
var reservedMatchKeys = map[string]bool{
	"group": true, "version": true, "application": true,
	"category": true, "dynamic": true, "enabled": true,
	"configVersion": true, "side": true,
}

// Configurator is one dynamic-config rule: MatchURL carries both the
// match predicate's plain key=value terms and the override parameters to
// apply; Script, if non-empty, replaces the plain predicate with a goja
// JavaScript boolean expression evaluated against the target URL.
type Configurator struct {
	MatchURL rpcurl.URL
	Script   string
	// Order is a sort key for callers: ApplyAll itself applies
	// configurators in slice order and does not look at Order. The
	// protocol package sorts registry-delivered configurators by it
	// (lower first) before applying them; ParseRules records it but keeps
	// payload order.
	Order int
}

// Matches reports whether c's predicate accepts target.
func (c Configurator) Matches(target rpcurl.URL) bool {
	if c.Script != "" {
		return c.matchesScript(target)
	}
	if h := c.MatchURL.Host(); h != "" && h != "0.0.0.0" && h != target.Host() {
		return false
	}
	if iface := c.MatchURL.Interface(); iface != "" && iface != "*" && iface != target.Interface() {
		return false
	}
	for _, key := range []string{"group", "version", "application"} {
		if v := c.MatchURL.Param(key, ""); v != "" && v != target.Param(key, "") {
			return false
		}
	}
	return true
}

func (c Configurator) matchesScript(target rpcurl.URL) bool {
	vm := goja.New()
	_ = vm.Set("url", scriptURL{target})
	val, err := vm.RunString(c.Script)
	if err != nil {
		return false
	}
	return val.ToBoolean()
}

// scriptURL is the object exposed to goja as "url", mirroring the teacher's
// JS-filter node's exposed message object.
type scriptURL struct{ u rpcurl.URL }

func (s scriptURL) GetParameter(key string) string { return s.u.Param(key, "") }
func (s scriptURL) GetHost() string                { return s.u.Host() }
func (s scriptURL) GetInterface() string           { return s.u.Interface() }

// Apply merges c's override parameters onto target, last writer wins
// within the merge itself (rpcurl.URL.WithParams' own semantics), skipping
// the reserved match-bookkeeping keys.
func (c Configurator) Apply(target rpcurl.URL) rpcurl.URL {
	overrides := make(map[string]string)
	for k, v := range c.MatchURL.Params() {
		if reservedMatchKeys[k] {
			continue
		}
		overrides[k] = v
	}
	return target.WithParams(overrides)
}

// ApplyAll matches and applies every configurator in cs, in order, to url —
// spec.md §4.F step 2: "matching configurators are applied in descriptor
// order; conflicts resolve last-writer-wins on parameter keys."
func ApplyAll(cs []Configurator, url rpcurl.URL) rpcurl.URL {
	out := url
	for _, c := range cs {
		if c.Matches(out) {
			out = c.Apply(out)
		}
	}
	return out
}
