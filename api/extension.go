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

// ActivateInfo is the activation metadata an extension carries (spec.md
// §3 "ExtensionPoint"): the group(s) it participates in, the URL parameter
// keys whose presence turns it on, and an ordering hint used to break ties
// within the activated set.
type ActivateInfo struct {
	// Name is the extension's registered name.
	Name string
	// Group restricts automatic activation to these groups; empty means
	// "any group".
	Group []string
	// Keys are URL parameter keys; the extension activates when at least
	// one of them is present as a non-empty parameter on the URL being
	// matched.
	Keys []string
	// Order is the ordering hint; lower values sort first within the
	// activated set. Ties break by extension name; descriptor order is not
	// considered.
	Order int
	// Condition is an optional free-form activation condition, evaluated
	// against the matched URL's parameters (all strings) as a boolean
	// expr-lang expression, with each parameter exposed as a bare
	// identifier (e.g. "env == 'blue' && region != ''"), for cases Keys'
	// simple presence check cannot express. Empty means "use Keys only".
	Condition string
}

// ExtensionRegistry is the contract spec.md §4.A describes: resolve named
// plug-ins for an interface, produce an adaptive (URL-dispatching) proxy,
// and select the ordered "activated" set for a call. Interfaces are keyed
// by name (the Go type's package-qualified name, assigned by the caller
// when registering) rather than by reflect.Type, since the registry must
// also resolve plug-ins for interfaces it has never seen a Go value of yet
// (pure descriptor-file driven resolution).
type ExtensionRegistry interface {
	// GetExtension returns the named implementation of ifaceName,
	// instantiating and decorating it at most once.
	GetExtension(ifaceName, name string) (interface{}, error)
	// GetAdaptiveExtension returns the singleton adaptive proxy for
	// ifaceName.
	GetAdaptiveExtension(ifaceName string) (interface{}, error)
	// GetActivateExtension returns the ordered union of automatically
	// activated extensions (matched against url and group) and the
	// explicitly named ones, per spec.md §4.A.
	GetActivateExtension(ifaceName string, url rpcurl.URL, names []string, group string) ([]interface{}, error)
}
