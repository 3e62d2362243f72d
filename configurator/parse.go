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

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/rulego/rrpc/rpcurl"
)

// rawRule is the decoding target for one entry of a dynamic-config rule
// payload: a match clause (plain key=value terms, or a goja script) and
// the parameters to apply when it matches.
type rawRule struct {
	Host        string            `mapstructure:"host"`
	Interface   string            `mapstructure:"interface"`
	Group       string            `mapstructure:"group"`
	Version     string            `mapstructure:"version"`
	Application string            `mapstructure:"application"`
	Script      string            `mapstructure:"script"`
	Override    map[string]string `mapstructure:"override"`
	Order       int               `mapstructure:"order"`
}

// ParseRules decodes a dynamic-config payload — a list of maps, the shape
// a YAML/JSON rule document unmarshals into — into Configurators, decoding
// each entry into a typed rule with mapstructure.
func ParseRules(raw []map[string]interface{}) ([]Configurator, error) {
	out := make([]Configurator, 0, len(raw))
	for i, entry := range raw {
		var r rawRule
		if err := mapstructure.Decode(entry, &r); err != nil {
			return nil, fmt.Errorf("configurator: rule %d: %w", i, err)
		}
		params := make(map[string]string, len(r.Override)+4)
		for k, v := range r.Override {
			params[k] = v
		}
		if r.Group != "" {
			params["group"] = r.Group
		}
		if r.Version != "" {
			params["version"] = r.Version
		}
		if r.Application != "" {
			params["application"] = r.Application
		}
		matchURL := rpcurl.New("override", r.Host, 0, r.Interface, params)
		out = append(out, Configurator{MatchURL: matchURL, Script: r.Script, Order: r.Order})
	}
	return out, nil
}
