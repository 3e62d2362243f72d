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

import "time"

// Config carries the pipeline's ambient configuration: logging, the
// extension registry, the goroutine pool, and the handful of durations and
// defaults the export/refer pipelines need. It is built with NewConfig and
// functional Options, the same shape as the teacher's own Config.
type Config struct {
	// Logger receives diagnostic output from the registry facade, the
	// override listener and the export/refer pipelines.
	Logger Logger
	// ExtensionRegistry resolves named plug-ins (filters, clusters, load
	// balancers, configurators...).
	ExtensionRegistry ExtensionRegistry
	// Pool runs background work through Go (the unexport drain). A nil
	// Pool means "use `go func()` directly".
	Pool Pool
	// UnexportDrainTimeout is how long unexport sleeps before destroying
	// the inner exporter, to let in-flight consumers drain (spec.md §4.F
	// step 6, §8 scenario f).
	UnexportDrainTimeout time.Duration
	// FailbackRetryInterval is how often the registry facade replays
	// outstanding register/subscribe operations after a transport failure.
	FailbackRetryInterval time.Duration
	// DefaultRegistryProtocol is the scheme substituted for "registry" when
	// a URL's own "registry" parameter is absent (spec.md §4.F step 1).
	DefaultRegistryProtocol string
	// DefaultCluster names the cluster strategy used when a consumer URL's
	// "cluster" parameter is absent.
	DefaultCluster string
	// DefaultLoadBalance names the load balancer used when a consumer
	// URL's "loadbalance" parameter is absent.
	DefaultLoadBalance string
}

// Option mutates a Config during construction.
type Option func(*Config)

// NewConfig builds a Config with sensible defaults and applies opts in
// order.
func NewConfig(opts ...Option) Config {
	c := Config{
		Logger:                  DefaultLogger(),
		UnexportDrainTimeout:    0,
		FailbackRetryInterval:   5 * time.Second,
		DefaultRegistryProtocol: "zookeeper",
		DefaultCluster:          "failover",
		DefaultLoadBalance:      "random",
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func WithLogger(l Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func WithExtensionRegistry(r ExtensionRegistry) Option {
	return func(c *Config) { c.ExtensionRegistry = r }
}

func WithPool(p Pool) Option {
	return func(c *Config) { c.Pool = p }
}

func WithUnexportDrainTimeout(d time.Duration) Option {
	return func(c *Config) { c.UnexportDrainTimeout = d }
}

func WithFailbackRetryInterval(d time.Duration) Option {
	return func(c *Config) { c.FailbackRetryInterval = d }
}

func WithDefaultRegistryProtocol(name string) Option {
	return func(c *Config) { c.DefaultRegistryProtocol = name }
}

func WithDefaultCluster(name string) Option {
	return func(c *Config) { c.DefaultCluster = name }
}

func WithDefaultLoadBalance(name string) Option {
	return func(c *Config) { c.DefaultLoadBalance = name }
}

// Go schedules fn on c.Pool if set, otherwise runs it in a new goroutine —
// the same fallback the teacher's Config.Pool documents.
func (c Config) Go(fn func()) {
	if c.Pool != nil {
		if err := c.Pool.Submit(fn); err == nil {
			return
		}
	}
	go fn()
}
