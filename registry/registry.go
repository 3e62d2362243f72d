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

// Package registry implements the Registry Facade described in spec.md
// §4.E: a generic FailbackRegistry base that any naming-service client
// embeds, handling idempotent register/unregister, per-subscription
// notification serialization with duplicate-set suppression, and a
// robfig/cron-scheduled retry sweep that replays everything a transient
// failure left outstanding. The concrete naming-service client (out of
// scope per spec.md §1) only has to implement Operations; registry/mock
// supplies the one concrete client this module's own tests use.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/rpcurl"
)

// Operations is what a concrete naming-service client must implement.
// DoSubscribe establishes the client's own watch for consumerURL and
// returns the currently-known set synchronously; any later change is
// delivered by the client calling FailbackRegistry.Publish on its own
// goroutine.
type Operations interface {
	DoRegister(providerURL rpcurl.URL) error
	DoUnregister(providerURL rpcurl.URL) error
	DoSubscribe(consumerURL rpcurl.URL) ([]rpcurl.URL, error)
	DoUnsubscribe(consumerURL rpcurl.URL) error
}

// subscription tracks one consumerURL+listener pair: a private mutex
// serializes its notifications (spec.md §4.E / §5 "per-subscription
// notification serialization"), and lastKey supports duplicate-set
// suppression.
type subscription struct {
	mu       sync.Mutex
	url      rpcurl.URL
	listener api.NotifyListener
	lastKey  string
	failed   bool
}

// FailbackRegistry is the generic abstract base: embed it, set Ops, and
// call Start to begin the retry sweep.
type FailbackRegistry struct {
	Ops    Operations
	Logger api.Logger

	mu            sync.Mutex
	registered    map[string]rpcurl.URL
	registerErr   map[string]rpcurl.URL
	unregisterErr map[string]rpcurl.URL
	subs          map[string][]*subscription
	subErr        map[string]*subscription

	cr       *cron.Cron
	startOne sync.Once
}

// NewFailbackRegistry builds a FailbackRegistry around ops.
func NewFailbackRegistry(ops Operations, logger api.Logger) *FailbackRegistry {
	if logger == nil {
		logger = api.DefaultLogger()
	}
	return &FailbackRegistry{
		Ops:           ops,
		Logger:        logger,
		registered:    make(map[string]rpcurl.URL),
		registerErr:   make(map[string]rpcurl.URL),
		unregisterErr: make(map[string]rpcurl.URL),
		subs:          make(map[string][]*subscription),
		subErr:        make(map[string]*subscription),
	}
}

// Start launches the cron-scheduled retry sweep. Safe to call more than
// once; only the first call has an effect.
func (r *FailbackRegistry) Start(retryInterval string) {
	r.startOne.Do(func() {
		r.cr = cron.New()
		_, _ = r.cr.AddFunc(fmt.Sprintf("@every %s", retryInterval), r.retry)
		r.cr.Start()
	})
}

// Stop shuts down the retry sweep.
func (r *FailbackRegistry) Stop() {
	if r.cr != nil {
		ctx := r.cr.Stop()
		<-ctx.Done()
	}
}

// Register is idempotent: re-registering an already-registered URL is a
// no-op. A failed call still returns nil (failback policy) and enqueues
// the URL for the retry sweep.
func (r *FailbackRegistry) Register(providerURL rpcurl.URL) error {
	key := providerURL.String()
	r.mu.Lock()
	if _, ok := r.registered[key]; ok {
		r.mu.Unlock()
		return nil
	}
	r.registered[key] = providerURL
	r.mu.Unlock()

	if err := r.Ops.DoRegister(providerURL); err != nil {
		r.Logger.Printf("registry: register %s failed, will retry: %v", key, err)
		r.mu.Lock()
		r.registerErr[key] = providerURL
		r.mu.Unlock()
	}
	return nil
}

// Unregister is idempotent.
func (r *FailbackRegistry) Unregister(providerURL rpcurl.URL) error {
	key := providerURL.String()
	r.mu.Lock()
	delete(r.registered, key)
	delete(r.registerErr, key)
	r.mu.Unlock()

	if err := r.Ops.DoUnregister(providerURL); err != nil {
		r.Logger.Printf("registry: unregister %s failed, will retry: %v", key, err)
		r.mu.Lock()
		r.unregisterErr[key] = providerURL
		r.mu.Unlock()
	}
	return nil
}

// Subscribe registers listener for consumerURL and delivers the current
// set exactly once, synchronously, before returning — with the empty set
// represented by the rpcurl.Empty marker, per spec.md §4.E. A failure to
// establish the watch still returns nil and is retried by the sweep.
func (r *FailbackRegistry) Subscribe(consumerURL rpcurl.URL, listener api.NotifyListener) error {
	sub := &subscription{url: consumerURL, listener: listener}
	key := consumerURL.String()

	r.mu.Lock()
	r.subs[key] = append(r.subs[key], sub)
	r.mu.Unlock()

	urls, err := r.Ops.DoSubscribe(consumerURL)
	if err != nil {
		r.Logger.Printf("registry: subscribe %s failed, will retry: %v", key, err)
		sub.mu.Lock()
		sub.failed = true
		sub.mu.Unlock()
		r.mu.Lock()
		r.subErr[key+"\x00"+fmt.Sprintf("%p", listener)] = sub
		r.mu.Unlock()
		r.deliver(sub, nil)
		return nil
	}
	r.deliver(sub, urls)
	return nil
}

// Unsubscribe removes listener from consumerURL's subscription set.
func (r *FailbackRegistry) Unsubscribe(consumerURL rpcurl.URL, listener api.NotifyListener) error {
	key := consumerURL.String()
	r.mu.Lock()
	remaining := r.subs[key][:0]
	for _, s := range r.subs[key] {
		if s.listener != listener {
			remaining = append(remaining, s)
		}
	}
	r.subs[key] = remaining
	delete(r.subErr, key+"\x00"+fmt.Sprintf("%p", listener))
	r.mu.Unlock()
	return r.Ops.DoUnsubscribe(consumerURL)
}

// Publish is called by the concrete client, on its own goroutine, whenever
// the naming service pushes a changed set for consumerURL. It fans the
// full current set out to every listener subscribed to that URL.
func (r *FailbackRegistry) Publish(consumerURL rpcurl.URL, urls []rpcurl.URL) {
	key := consumerURL.String()
	r.mu.Lock()
	subs := append([]*subscription{}, r.subs[key]...)
	r.mu.Unlock()
	for _, sub := range subs {
		r.deliver(sub, urls)
	}
}

// deliver applies duplicate-set suppression and per-subscription
// serialization before calling listener.Notify. An empty urls is always
// normalized to the rpcurl.Empty marker first, per spec.md §4.E, so every
// call site — Subscribe's success and failure paths, Publish, and the
// retry sweep — represents "no providers" the same way.
func (r *FailbackRegistry) deliver(sub *subscription, urls []rpcurl.URL) {
	if len(urls) == 0 {
		urls = []rpcurl.URL{rpcurl.Empty(sub.url, sub.url.Param("category", ""))}
	}
	sub.mu.Lock()
	defer sub.mu.Unlock()
	key := setKey(urls)
	if key == sub.lastKey {
		return
	}
	sub.lastKey = key
	sub.listener.Notify(urls)
}

func setKey(urls []rpcurl.URL) string {
	s := make([]string, len(urls))
	for i, u := range urls {
		s[i] = u.String()
	}
	sort.Strings(s)
	out := ""
	for _, v := range s {
		out += v + "\n"
	}
	return out
}

// retry replays every outstanding register/unregister/subscribe operation,
// atomically with respect to the maps it consumes from.
func (r *FailbackRegistry) retry() {
	r.mu.Lock()
	registerErr := r.registerErr
	r.registerErr = make(map[string]rpcurl.URL)
	unregisterErr := r.unregisterErr
	r.unregisterErr = make(map[string]rpcurl.URL)
	subErr := r.subErr
	r.subErr = make(map[string]*subscription)
	r.mu.Unlock()

	for key, u := range registerErr {
		if err := r.Ops.DoRegister(u); err != nil {
			r.mu.Lock()
			r.registerErr[key] = u
			r.mu.Unlock()
		}
	}
	for key, u := range unregisterErr {
		if err := r.Ops.DoUnregister(u); err != nil {
			r.mu.Lock()
			r.unregisterErr[key] = u
			r.mu.Unlock()
		}
	}
	for key, sub := range subErr {
		urls, err := r.Ops.DoSubscribe(sub.url)
		if err != nil {
			r.mu.Lock()
			r.subErr[key] = sub
			r.mu.Unlock()
			continue
		}
		sub.mu.Lock()
		sub.failed = false
		sub.mu.Unlock()
		r.deliver(sub, urls)
	}
}

var _ api.Registry = (*FailbackRegistry)(nil)
