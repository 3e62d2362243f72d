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

package rpcurl

import "testing"

func TestParseStringRoundTrip(t *testing.T) {
	cases := []string{
		"dubbo://10.0.0.1:20880/com.example.X?application=a&timeout=3000",
		"registry://r:2181/RegistryService?registry=mock",
		"consumer://192.168.1.1/com.example.X",
		"empty://0.0.0.0/com.example.X?category=providers",
	}
	for _, raw := range cases {
		u, err := Parse(raw)
		if err != nil {
			t.Fatalf("Parse(%q): %v", raw, err)
		}
		u2, err := Parse(u.String())
		if err != nil {
			t.Fatalf("re-parse %q: %v", u.String(), err)
		}
		if !u.Equal(u2) {
			t.Fatalf("round-trip mismatch: %q != %q", u.String(), u2.String())
		}
	}
}

func TestStringIsDeterministic(t *testing.T) {
	u := New("dubbo", "10.0.0.1", 20880, "com.example.X", map[string]string{
		"b": "2", "a": "1", "c": "3",
	})
	want := u.String()
	for i := 0; i < 5; i++ {
		if got := u.String(); got != want {
			t.Fatalf("String() not stable across calls: %q vs %q", got, want)
		}
	}
	u2 := New("dubbo", "10.0.0.1", 20880, "com.example.X", map[string]string{
		"c": "3", "b": "2", "a": "1",
	})
	if u2.String() != want {
		t.Fatalf("String() depends on map insertion order: %q vs %q", u2.String(), want)
	}
}

func TestWithParamImmutable(t *testing.T) {
	u := New("dubbo", "h", 1, "x", map[string]string{"k": "v"})
	u2 := u.WithParam("k2", "v2")
	if u.HasParam("k2") {
		t.Fatalf("original URL mutated by WithParam")
	}
	if !u2.HasParam("k2") {
		t.Fatalf("WithParam did not add key to the copy")
	}
}

func TestRemoveParamsByPrefix(t *testing.T) {
	u := New("dubbo", "h", 1, "x", map[string]string{
		".hidden": "z", "bind.ip": "1.2.3.4", "application": "a",
	})
	out := u.RemoveParamsByPrefix(".")
	if out.HasParam(".hidden") {
		t.Fatalf("hidden param survived RemoveParamsByPrefix")
	}
	if !out.HasParam("bind.ip") || !out.HasParam("application") {
		t.Fatalf("unrelated params were removed")
	}
}

func TestServiceKey(t *testing.T) {
	tests := []struct {
		group, iface, version, want string
	}{
		{"", "com.example.X", "", "com.example.X"},
		{"", "com.example.X", "1.0", "com.example.X:1.0"},
		{"g1", "com.example.X", "", "g1/com.example.X"},
		{"g1", "com.example.X", "1.0", "g1/com.example.X:1.0"},
	}
	for _, tt := range tests {
		if got := ServiceKey(tt.group, tt.iface, tt.version); got != tt.want {
			t.Fatalf("ServiceKey(%q,%q,%q) = %q, want %q", tt.group, tt.iface, tt.version, got, tt.want)
		}
	}
}

func TestEqualIsOrderInsensitiveOnParams(t *testing.T) {
	a := New("dubbo", "h", 1, "x", map[string]string{"a": "1", "b": "2"})
	b := New("dubbo", "h", 1, "x", map[string]string{"b": "2", "a": "1"})
	if !a.Equal(b) {
		t.Fatalf("Equal should not depend on parameter insertion order")
	}
}

func TestEmptyMarker(t *testing.T) {
	subscribed := New("consumer", "h", 0, "com.example.X", map[string]string{"category": "providers,configurators"})
	empty := Empty(subscribed, "providers")
	if !empty.IsEmpty() {
		t.Fatalf("Empty() did not produce an empty marker")
	}
	if empty.Host() != subscribed.Host() || empty.Path() != subscribed.Path() {
		t.Fatalf("Empty() did not inherit subscribed URL's other fields")
	}
	if empty.Param("category", "") != "providers" {
		t.Fatalf("Empty() did not carry the requested category")
	}
}
