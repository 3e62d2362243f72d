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

package registry_test

import (
	"sync"
	"testing"
	"time"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/registry"
	"github.com/rulego/rrpc/registry/mock"
	"github.com/rulego/rrpc/rpcurl"
)

type capture struct {
	mu   sync.Mutex
	sets [][]rpcurl.URL
}

func (c *capture) Notify(urls []rpcurl.URL) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets = append(c.sets, urls)
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sets)
}

func (c *capture) last() []rpcurl.URL {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets[len(c.sets)-1]
}

func providerURL() rpcurl.URL {
	return rpcurl.New("rrpc", "10.0.0.1", 20880, "com.example.Greeter", map[string]string{"version": "1.0"})
}

func consumerURL() rpcurl.URL {
	return rpcurl.New("consumer", "10.0.0.2", 0, "com.example.Greeter", map[string]string{"version": "1.0", "category": "providers"})
}

func TestSubscribeDeliversCurrentSetSynchronously(t *testing.T) {
	ops := mock.New()
	fb := registry.NewFailbackRegistry(ops, api.DefaultLogger())
	ops.Bind(fb)

	if err := fb.Register(providerURL()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	listener := &capture{}
	if err := fb.Subscribe(consumerURL(), listener); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if listener.count() != 1 {
		t.Fatalf("expected exactly one synchronous notify, got %d", listener.count())
	}
	if len(listener.last()) != 1 {
		t.Fatalf("expected one provider in the set, got %d", len(listener.last()))
	}
}

func TestSubscribeEmptySetUsesEmptyMarker(t *testing.T) {
	ops := mock.New()
	fb := registry.NewFailbackRegistry(ops, api.DefaultLogger())
	ops.Bind(fb)

	listener := &capture{}
	if err := fb.Subscribe(consumerURL(), listener); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	set := listener.last()
	if len(set) != 1 || !set[0].IsEmpty() {
		t.Fatalf("expected the empty marker, got %v", set)
	}
}

func TestRegisterPublishesFullSetToWatchers(t *testing.T) {
	ops := mock.New()
	fb := registry.NewFailbackRegistry(ops, api.DefaultLogger())
	ops.Bind(fb)

	listener := &capture{}
	if err := fb.Subscribe(consumerURL(), listener); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := fb.Register(providerURL()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if listener.count() != 2 {
		t.Fatalf("expected subscribe-notify then register-notify, got %d calls", listener.count())
	}
	if len(listener.last()) != 1 {
		t.Fatalf("expected one provider after register, got %d", len(listener.last()))
	}
}

func TestDuplicateNotificationsAreSuppressed(t *testing.T) {
	ops := mock.New()
	fb := registry.NewFailbackRegistry(ops, api.DefaultLogger())
	ops.Bind(fb)

	if err := fb.Register(providerURL()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	listener := &capture{}
	if err := fb.Subscribe(consumerURL(), listener); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	fb.Publish(consumerURL(), []rpcurl.URL{providerURL()})
	fb.Publish(consumerURL(), []rpcurl.URL{providerURL()})
	if listener.count() != 1 {
		t.Fatalf("expected duplicate notifications to be suppressed, got %d calls", listener.count())
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	ops := mock.New()
	fb := registry.NewFailbackRegistry(ops, api.DefaultLogger())
	ops.Bind(fb)

	p := providerURL()
	if err := fb.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := fb.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	listener := &capture{}
	if err := fb.Subscribe(consumerURL(), listener); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if len(listener.last()) != 1 {
		t.Fatalf("re-registering the same URL should not duplicate it, got %d", len(listener.last()))
	}
}

func TestFailedRegisterReturnsSuccessAndRetries(t *testing.T) {
	ops := mock.New()
	fb := registry.NewFailbackRegistry(ops, api.DefaultLogger())
	ops.Bind(fb)
	fb.Start("50ms")
	defer fb.Stop()

	ops.FailNext = true
	if err := fb.Register(providerURL()); err != nil {
		t.Fatalf("Register must return nil even when the underlying call fails: %v", err)
	}

	listener := &capture{}
	if err := fb.Subscribe(consumerURL(), listener); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if set := listener.last(); len(set) != 1 || !set[0].IsEmpty() {
		t.Fatalf("expected the failed register not to be visible yet, got %v", set)
	}

	deadline := time.After(2 * time.Second)
	for {
		if set := listener.last(); len(set) == 1 && !set[0].IsEmpty() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("retry sweep never replayed the failed register")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
