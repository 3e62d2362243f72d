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

// Package rpcurl implements the universal addressable descriptor used
// throughout the pipeline as both a routing key and a cache key: protocol,
// host, port, path and a parameter map. URL is immutable — every method
// that looks like a mutation returns a new value.
package rpcurl

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// HiddenParamPrefix marks a parameter key as hidden: hidden parameters are
// filtered out before a URL is persisted to the registry.
const HiddenParamPrefix = "."

// URL is an immutable, value-typed service/registry descriptor.
type URL struct {
	protocol string
	username string
	password string
	host     string
	port     int
	path     string
	params   map[string]string
}

// New builds a URL from its scalar fields and a parameter map. The supplied
// map is copied so the caller cannot mutate the URL afterwards.
func New(protocol, host string, port int, path string, params map[string]string) URL {
	return URL{
		protocol: protocol,
		host:     host,
		port:     port,
		path:     strings.TrimPrefix(path, "/"),
		params:   cloneParams(params),
	}
}

func cloneParams(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Parse decodes a URL in "scheme://[user[:pass]@]host[:port]/path?k=v&..."
// form. Parse(u.String()) reconstructs a URL equal to u.
func Parse(raw string) (URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return URL{}, fmt.Errorf("%w: %v", errInvalid, err)
	}
	if parsed.Scheme == "" {
		return URL{}, fmt.Errorf("%w: missing scheme in %q", errInvalid, raw)
	}
	u := URL{
		protocol: parsed.Scheme,
		host:     parsed.Hostname(),
		path:     strings.TrimPrefix(parsed.Path, "/"),
		params:   make(map[string]string),
	}
	if parsed.User != nil {
		u.username = parsed.User.Username()
		u.password, _ = parsed.User.Password()
	}
	if p := parsed.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return URL{}, fmt.Errorf("%w: bad port in %q", errInvalid, raw)
		}
		u.port = port
	}
	for k, vs := range parsed.Query() {
		if len(vs) > 0 {
			u.params[k] = vs[len(vs)-1]
		}
	}
	return u, nil
}

// errInvalid is unexported here to avoid importing api (which itself may
// want to import rpcurl); protocol package wraps it back into
// api.ErrInvalidURL where it reaches a caller.
var errInvalid = errors.New("rpcurl: invalid url")

// IsInvalidURL reports whether err originates from a Parse failure.
func IsInvalidURL(err error) bool {
	return errors.Is(err, errInvalid)
}

func (u URL) Protocol() string { return u.protocol }
func (u URL) Username() string { return u.username }
func (u URL) Password() string { return u.password }
func (u URL) Host() string     { return u.host }
func (u URL) Port() int        { return u.port }
func (u URL) Path() string     { return u.path }

// Address returns "host:port", omitting the port when it is zero.
func (u URL) Address() string {
	if u.port == 0 {
		return u.host
	}
	return u.host + ":" + strconv.Itoa(u.port)
}

// Param returns the value for key, or def if absent.
func (u URL) Param(key, def string) string {
	if v, ok := u.params[key]; ok {
		return v
	}
	return def
}

// HasParam reports whether key is present and non-empty.
func (u URL) HasParam(key string) bool {
	v, ok := u.params[key]
	return ok && v != ""
}

// ParamInt is Param with integer parsing; def is returned on a missing or
// unparseable value.
func (u URL) ParamInt(key string, def int) int {
	v, ok := u.params[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// ParamBool is Param with boolean parsing; def is returned on a missing or
// unparseable value.
func (u URL) ParamBool(key string, def bool) bool {
	v, ok := u.params[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Params returns a copy of the full parameter map.
func (u URL) Params() map[string]string {
	return cloneParams(u.params)
}

// WithParam returns a copy of u with key set to value.
func (u URL) WithParam(key, value string) URL {
	out := u.clone()
	out.params[key] = value
	return out
}

// WithParams returns a copy of u with every key in kv set, last writer wins
// for duplicate keys within kv itself.
func (u URL) WithParams(kv map[string]string) URL {
	out := u.clone()
	for k, v := range kv {
		out.params[k] = v
	}
	return out
}

// RemoveParam returns a copy of u without key.
func (u URL) RemoveParam(key string) URL {
	return u.RemoveParams(key)
}

// RemoveParams returns a copy of u without any of keys.
func (u URL) RemoveParams(keys ...string) URL {
	out := u.clone()
	for _, k := range keys {
		delete(out.params, k)
	}
	return out
}

// RemoveParamsByPrefix returns a copy of u without any parameter whose key
// starts with prefix.
func (u URL) RemoveParamsByPrefix(prefix string) URL {
	out := u.clone()
	for k := range out.params {
		if strings.HasPrefix(k, prefix) {
			delete(out.params, k)
		}
	}
	return out
}

// WithProtocol returns a copy of u with a different protocol/scheme.
func (u URL) WithProtocol(protocol string) URL {
	out := u.clone()
	out.protocol = protocol
	return out
}

// WithHost returns a copy of u addressed at a different host:port.
func (u URL) WithHost(host string, port int) URL {
	out := u.clone()
	out.host = host
	out.port = port
	return out
}

// WithPath returns a copy of u rooted at a different path.
func (u URL) WithPath(path string) URL {
	out := u.clone()
	out.path = strings.TrimPrefix(path, "/")
	return out
}

func (u URL) clone() URL {
	return URL{
		protocol: u.protocol,
		username: u.username,
		password: u.password,
		host:     u.host,
		port:     u.port,
		path:     u.path,
		params:   cloneParams(u.params),
	}
}

// Interface returns the "interface" parameter, falling back to Path — the
// two coincide for the common case but a URL's path can be overridden
// independently (e.g. a generic gateway exposing many interfaces at one
// path).
func (u URL) Interface() string {
	if v, ok := u.params["interface"]; ok && v != "" {
		return v
	}
	return u.path
}

// ServiceKey returns "group/interface:version", omitting group and version
// when empty, exactly as the spec's derived view requires.
func (u URL) ServiceKey() string {
	return ServiceKey(u.Param("group", ""), u.Interface(), u.Param("version", ""))
}

// ServiceKey builds the "group/interface:version" key from parts directly,
// for callers that only have the parts and not a full URL (e.g. a
// configurator rule keyed by service).
func ServiceKey(group, iface, version string) string {
	var b strings.Builder
	if group != "" {
		b.WriteString(group)
		b.WriteByte('/')
	}
	b.WriteString(iface)
	if version != "" {
		b.WriteByte(':')
		b.WriteString(version)
	}
	return b.String()
}

// String renders the deterministic full-string form used as both the wire
// representation and the cache key: parameters are always emitted in
// sorted-key order.
func (u URL) String() string {
	var b strings.Builder
	b.WriteString(u.protocol)
	b.WriteString("://")
	if u.username != "" {
		b.WriteString(u.username)
		if u.password != "" {
			b.WriteByte(':')
			b.WriteString(u.password)
		}
		b.WriteByte('@')
	}
	b.WriteString(u.host)
	if u.port != 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(u.port))
	}
	b.WriteByte('/')
	b.WriteString(u.path)

	if len(u.params) > 0 {
		keys := make([]string, 0, len(u.params))
		for k := range u.params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('?')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(u.params[k]))
		}
	}
	return b.String()
}

// Equal compares every field, including parameters irrespective of
// insertion order — the comparison is canonical, per the open question in
// spec.md §9 about order-sensitive equality.
func (u URL) Equal(other URL) bool {
	if u.protocol != other.protocol || u.username != other.username ||
		u.password != other.password || u.host != other.host ||
		u.port != other.port || u.path != other.path {
		return false
	}
	if len(u.params) != len(other.params) {
		return false
	}
	for k, v := range u.params {
		if ov, ok := other.params[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Empty returns the empty-set marker URL for a subscription that currently
// matches nothing: scheme "empty://", inheriting subscribed's other fields,
// carrying category=requestedCategory.
func Empty(subscribed URL, requestedCategory string) URL {
	out := subscribed.WithProtocol("empty")
	out = out.WithParam("category", requestedCategory)
	return out
}

// IsEmpty reports whether u is an empty-set marker URL.
func (u URL) IsEmpty() bool {
	return u.protocol == "empty"
}
