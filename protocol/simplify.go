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

package protocol

import (
	"strings"

	"github.com/rulego/rrpc/rpcurl"
)

// fixedSimplifyDrop is the always-dropped set spec.md §4.F step 4 names,
// beyond the "." hidden-parameter prefix and the "qos." prefix.
var fixedSimplifyDrop = []string{"monitor", "bind.ip", "bind.port", "validation", "interfaces"}

// simplifiedAllowList is kept when the registry URL opts into simplified
// mode; registryURL's own "extra.keys" parameter names additional keys to
// keep beyond this set.
var simplifiedAllowList = map[string]bool{
	"version": true, "group": true, "interface": true, "application": true,
	"module": true, "category": true, "check": true, "dynamic": true, "enabled": true,
}

// simplifyCacheKey computes the bounds cache key: the provider URL's
// string form with "dynamic" and "enabled" removed, so toggling either
// flag alone does not spuriously create a second local export.
func simplifyCacheKey(providerURL rpcurl.URL) string {
	return providerURL.RemoveParams("dynamic", "enabled").String()
}

// simplifyForRegistry computes the URL actually persisted to the naming
// registry (spec.md §4.F step 4).
func simplifyForRegistry(providerURL, registryURL rpcurl.URL) rpcurl.URL {
	out := providerURL.RemoveParamsByPrefix(rpcurl.HiddenParamPrefix)
	out = out.RemoveParamsByPrefix("qos.")
	out = out.RemoveParams(fixedSimplifyDrop...)
	if !registryURL.ParamBool("simplified", false) {
		return out
	}
	allow := make(map[string]bool, len(simplifiedAllowList))
	for k := range simplifiedAllowList {
		allow[k] = true
	}
	for _, extra := range strings.Split(registryURL.Param("extra.keys", ""), ",") {
		extra = strings.TrimSpace(extra)
		if extra != "" {
			allow[extra] = true
		}
	}
	for k := range out.Params() {
		if !allow[k] {
			out = out.RemoveParam(k)
		}
	}
	return out
}
