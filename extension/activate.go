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
	"sort"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/rpcurl"
)

// RegisterActivateInfo attaches @Activate-equivalent metadata to a name
// already (or later) registered for ifaceName, so GetActivateExtension can
// consider it for automatic, condition-driven selection.
func (r *Registry) RegisterActivateInfo(ifaceName string, info api.ActivateInfo) {
	h := r.holderFor(ifaceName)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.activates[info.Name] = info
}

// GetActivateExtension resolves the ordered list of extensions that should
// run for a request: every registered activate-info extension whose group
// matches and whose activation keys are present (non-empty) in url's
// parameters, sorted by Order then name, followed by the explicitly-named
// extensions in names (in order), with "default" acting as an insertion
// marker for where the automatically-activated set is spliced in. A name
// prefixed with "-" anywhere in names excludes that extension entirely,
// including from automatic activation. This mirrors
// ExtensionLoader#getActivateExtension in the original implementation.
func (r *Registry) GetActivateExtension(ifaceName string, url rpcurl.URL, names []string, group string) ([]interface{}, error) {
	var activated []interface{}

	if !contains(names, removeValuePrefix+defaultKey) {
		h := r.holderFor(ifaceName)
		h.mu.Lock()
		infos := make([]api.ActivateInfo, 0, len(h.activates))
		for _, info := range h.activates {
			infos = append(infos, info)
		}
		h.mu.Unlock()

		sort.Slice(infos, func(i, j int) bool {
			if infos[i].Order != infos[j].Order {
				return infos[i].Order < infos[j].Order
			}
			return infos[i].Name < infos[j].Name
		})

		for _, info := range infos {
			if !isMatchGroup(group, info.Group) {
				continue
			}
			if contains(names, info.Name) || contains(names, removeValuePrefix+info.Name) {
				continue
			}
			if !isActive(info.Keys, url) {
				continue
			}
			if info.Condition != "" && !evalCondition(info.Condition, url) {
				continue
			}
			ext, err := r.GetExtension(ifaceName, info.Name)
			if err != nil {
				return nil, err
			}
			activated = append(activated, ext)
		}
	}

	var explicit []interface{}
	for _, name := range names {
		if strings.HasPrefix(name, removeValuePrefix) || contains(names, removeValuePrefix+name) {
			continue
		}
		if name == defaultKey {
			if len(explicit) > 0 {
				activated = append(append([]interface{}{}, explicit...), activated...)
				explicit = nil
			}
			continue
		}
		ext, err := r.GetExtension(ifaceName, name)
		if err != nil {
			return nil, err
		}
		explicit = append(explicit, ext)
	}
	if len(explicit) > 0 {
		activated = append(activated, explicit...)
	}
	return activated, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func isMatchGroup(group string, groups []string) bool {
	if group == "" {
		return true
	}
	for _, g := range groups {
		if g == group {
			return true
		}
	}
	return false
}

// evalCondition evaluates a free-form activation condition as an expr-lang
// boolean expression against the URL's parameters, exposed to the
// expression as bare identifiers (e.g. "env == 'blue' && retries > 0" reads
// the URL's "env" and "retries" parameters directly). A condition that
// fails to compile or evaluate, or does not yield a bool, is treated as
// false rather than aborting extension selection.
func evalCondition(condition string, url rpcurl.URL) bool {
	out, err := expr.Eval(condition, toAnyMap(url.Params()))
	if err != nil {
		return false
	}
	b, ok := out.(bool)
	return ok && b
}

func toAnyMap(in map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func isActive(keys []string, url rpcurl.URL) bool {
	if len(keys) == 0 {
		return true
	}
	for _, key := range keys {
		for k, v := range url.Params() {
			if (k == key || strings.HasSuffix(k, "."+key)) && v != "" {
				return true
			}
		}
	}
	return false
}
