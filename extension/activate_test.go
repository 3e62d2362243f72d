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

package extension_test

import (
	"testing"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/extension"
	"github.com/rulego/rrpc/rpcurl"
)

func newFilterRegistry() *extension.Registry {
	reg := extension.NewRegistry()
	names := []string{"trace", "cache", "auth", "monitor"}
	for _, n := range names {
		name := n
		reg.Register("Filter", name, func() interface{} { return name })
	}
	reg.RegisterActivateInfo("Filter", api.ActivateInfo{Name: "trace", Group: []string{"provider"}, Keys: nil, Order: 10})
	reg.RegisterActivateInfo("Filter", api.ActivateInfo{Name: "cache", Group: []string{"provider"}, Keys: []string{"cache"}, Order: 20})
	reg.RegisterActivateInfo("Filter", api.ActivateInfo{Name: "monitor", Group: []string{"consumer"}, Keys: nil, Order: 5})
	return reg
}

func TestActivateExtensionMatchesGroupAndKey(t *testing.T) {
	reg := newFilterRegistry()
	u := rpcurl.New("rrpc", "localhost", 0, "svc", map[string]string{"cache": "true"})

	got, err := reg.GetActivateExtension("Filter", u, nil, "provider")
	if err != nil {
		t.Fatalf("GetActivateExtension: %v", err)
	}
	if len(got) != 2 || got[0].(string) != "trace" || got[1].(string) != "cache" {
		t.Fatalf("got %v, want [trace cache]", got)
	}
}

func TestActivateExtensionSkipsUnmatchedKey(t *testing.T) {
	reg := newFilterRegistry()
	u := rpcurl.New("rrpc", "localhost", 0, "svc", nil)

	got, err := reg.GetActivateExtension("Filter", u, nil, "provider")
	if err != nil {
		t.Fatalf("GetActivateExtension: %v", err)
	}
	if len(got) != 1 || got[0].(string) != "trace" {
		t.Fatalf("got %v, want [trace]", got)
	}
}

func TestActivateExtensionExplicitNamesAndDefaultMarker(t *testing.T) {
	reg := newFilterRegistry()
	u := rpcurl.New("rrpc", "localhost", 0, "svc", nil)

	got, err := reg.GetActivateExtension("Filter", u, []string{"auth", "default"}, "provider")
	if err != nil {
		t.Fatalf("GetActivateExtension: %v", err)
	}
	want := []string{"auth", "trace"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i, w := range want {
		if got[i].(string) != w {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestActivateExtensionConditionGatesActivation(t *testing.T) {
	reg := extension.NewRegistry()
	reg.Register("Filter", "canary", func() interface{} { return "canary" })
	reg.RegisterActivateInfo("Filter", api.ActivateInfo{
		Name:      "canary",
		Group:     []string{"provider"},
		Condition: "env == 'blue' && region != ''",
	})

	blue := rpcurl.New("rrpc", "localhost", 0, "svc", map[string]string{"env": "blue", "region": "us"})
	got, err := reg.GetActivateExtension("Filter", blue, nil, "provider")
	if err != nil {
		t.Fatalf("GetActivateExtension: %v", err)
	}
	if len(got) != 1 || got[0].(string) != "canary" {
		t.Fatalf("got %v, want [canary] when the condition holds", got)
	}

	green := rpcurl.New("rrpc", "localhost", 0, "svc", map[string]string{"env": "green", "region": "us"})
	got, err = reg.GetActivateExtension("Filter", green, nil, "provider")
	if err != nil {
		t.Fatalf("GetActivateExtension: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want none when the condition fails", got)
	}
}

func TestActivateExtensionNegationExcludes(t *testing.T) {
	reg := newFilterRegistry()
	u := rpcurl.New("rrpc", "localhost", 0, "svc", map[string]string{"cache": "true"})

	got, err := reg.GetActivateExtension("Filter", u, []string{"-cache"}, "provider")
	if err != nil {
		t.Fatalf("GetActivateExtension: %v", err)
	}
	if len(got) != 1 || got[0].(string) != "trace" {
		t.Fatalf("got %v, want [trace] (cache excluded)", got)
	}
}
