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

package protocol_test

import (
	"context"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/cluster"
	"github.com/rulego/rrpc/extension"
	"github.com/rulego/rrpc/internal/testtransport"
	"github.com/rulego/rrpc/loadbalance"
	"github.com/rulego/rrpc/protocol"
	"github.com/rulego/rrpc/registry"
	"github.com/rulego/rrpc/registry/mock"
	"github.com/rulego/rrpc/rpcurl"
)

type fakeConfigStore struct {
	onChange map[string]func([]map[string]interface{})
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{onChange: make(map[string]func([]map[string]interface{}))}
}

func (s *fakeConfigStore) Subscribe(key string, onChange func([]map[string]interface{})) error {
	s.onChange[key] = onChange
	onChange(nil)
	return nil
}

func (s *fakeConfigStore) Unsubscribe(key string) error {
	delete(s.onChange, key)
	return nil
}

func (s *fakeConfigStore) push(key string, raw []map[string]interface{}) {
	if fn, ok := s.onChange[key]; ok {
		fn(raw)
	}
}

type stubOriginInvoker struct {
	url       rpcurl.URL
	mu        struct{}
	destroyed bool
}

func (s *stubOriginInvoker) Interface() reflect.Type { return reflect.TypeOf((*interface{})(nil)).Elem() }
func (s *stubOriginInvoker) URL() rpcurl.URL         { return s.url }
func (s *stubOriginInvoker) IsAvailable() bool       { return !s.destroyed }
func (s *stubOriginInvoker) Invoke(ctx context.Context, inv api.Invocation) api.Result {
	return api.CompletedValue("ok")
}
func (s *stubOriginInvoker) Destroy() { s.destroyed = true }

// singleFactory is a RegistryFactory test double that always returns the
// same Registry, regardless of the registry URL asked for.
type singleFactory struct{ r api.Registry }

func (f singleFactory) GetRegistry(rpcurl.URL) (api.Registry, error) { return f.r, nil }

func newTestSetup(t *testing.T) (*protocol.RegistryProtocol, *registry.FailbackRegistry, *mock.Operations, *testtransport.Protocol, *fakeConfigStore) {
	t.Helper()
	reg := extension.NewRegistry()
	loadbalance.Register(reg)
	cluster.Register(reg, reg)

	cfg := api.NewConfig(
		api.WithExtensionRegistry(reg),
		api.WithDefaultCluster("failover"),
	)

	transport := &testtransport.Protocol{}
	ops := mock.New()
	fb := registry.NewFailbackRegistry(ops, cfg.Logger)
	ops.Bind(fb)

	store := newFakeConfigStore()
	rp, err := protocol.NewRegistryProtocol(cfg, transport, singleFactory{r: fb}, store, "greeter-app")
	if err != nil {
		t.Fatalf("NewRegistryProtocol: %v", err)
	}
	return rp, fb, ops, transport, store
}

func originURLFor(providerURL rpcurl.URL) rpcurl.URL {
	return rpcurl.New("registry", "127.0.0.1", 2181, "", map[string]string{
		"registry": "mock",
		"export":   url.QueryEscape(providerURL.String()),
	})
}

func waitResult(t *testing.T, result api.Result) (interface{}, error) {
	t.Helper()
	var value interface{}
	var err error
	done := make(chan struct{})
	result.WhenComplete(func(v interface{}, e error) {
		value, err = v, e
		close(done)
	})
	select {
	case <-done:
		return value, err
	case <-time.After(time.Second):
		t.Fatal("result did not complete in time")
		return nil, nil
	}
}

func TestExportRegistersSimplifiedURLAndAppliesOverride(t *testing.T) {
	rp, fb, _, _, store := newTestSetup(t)

	store.push("greeter-app.configurators", []map[string]interface{}{
		{"application": "greeter-app", "override": map[string]string{"weight": "200"}},
	})

	providerURL := rpcurl.New("rrpc", "10.0.0.5", 20880, "com.example.Greeter", map[string]string{
		"application": "greeter-app",
		"weight":      "100",
		"monitor":     "10.0.0.9:2181",
		".hidden":     "secret",
		"dynamic":     "true",
	})
	origin := &stubOriginInvoker{url: originURLFor(providerURL)}

	exporter, err := rp.Export(origin)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	defer exporter.Unexport()

	var captured []rpcurl.URL
	consumerURL := providerURL.WithProtocol("consumer").WithParam("category", "providers")
	if err := fb.Subscribe(consumerURL, api.NotifyFunc(func(urls []rpcurl.URL) { captured = urls })); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if len(captured) != 1 {
		t.Fatalf("expected exactly one registered provider URL, got %d", len(captured))
	}
	got := captured[0]
	if got.Param("weight", "") != "200" {
		t.Fatalf("expected the application override to win, weight = %q", got.Param("weight", ""))
	}
	if got.HasParam("monitor") || got.HasParam(".hidden") {
		t.Fatalf("expected monitor/hidden parameters to be stripped from the registered URL, got %v", got.Params())
	}
}

func TestReExportOnOverrideChangeKeepsExporterHandleValid(t *testing.T) {
	rp, _, _, transport, store := newTestSetup(t)

	providerURL := rpcurl.New("rrpc", "10.0.0.5", 20880, "com.example.Greeter", map[string]string{
		"application": "greeter-app",
		"weight":      "100",
	})
	origin := &stubOriginInvoker{url: originURLFor(providerURL)}

	exporter, err := rp.Export(origin)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	defer exporter.Unexport()

	before := transport.ExportCount()
	store.push("greeter-app.configurators", []map[string]interface{}{
		{"application": "greeter-app", "override": map[string]string{"weight": "300"}},
	})
	if transport.ExportCount() <= before {
		t.Fatalf("expected an override change to trigger a reExport, export count stayed at %d", before)
	}
	if exporter.Invoker() == nil {
		t.Fatalf("expected the exporter's invoker handle to remain valid after reExport")
	}
	if !exporter.Invoker().IsAvailable() {
		t.Fatalf("expected the exporter's invoker to still be available after reExport, origin must not be destroyed by swapLocalExport")
	}
}

func TestUnexportDrainsBeforeDestroyingInner(t *testing.T) {
	cfg := api.NewConfig(api.WithExtensionRegistry(extension.NewRegistry()), api.WithUnexportDrainTimeout(30*time.Millisecond))
	transport := &testtransport.Protocol{}
	ops := mock.New()
	fb := registry.NewFailbackRegistry(ops, cfg.Logger)
	ops.Bind(fb)
	store := newFakeConfigStore()
	rp, err := protocol.NewRegistryProtocol(cfg, transport, singleFactory{r: fb}, store, "app")
	if err != nil {
		t.Fatalf("NewRegistryProtocol: %v", err)
	}

	providerURL := rpcurl.New("rrpc", "10.0.0.5", 20880, "com.example.Greeter", nil)
	origin := &stubOriginInvoker{url: originURLFor(providerURL)}
	exporter, err := rp.Export(origin)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	exporter.Unexport()
	if origin.destroyed {
		t.Fatalf("expected the inner invoker to survive the drain window")
	}
	time.Sleep(100 * time.Millisecond)
	if !origin.destroyed {
		t.Fatalf("expected the inner invoker to be destroyed once the drain window elapsed")
	}
}

func TestReferFailsOverToHealthyProvider(t *testing.T) {
	reg := extension.NewRegistry()
	loadbalance.Register(reg)
	cluster.Register(reg, reg)
	cfg := api.NewConfig(api.WithExtensionRegistry(reg), api.WithDefaultCluster("failover"))

	transport := &testtransport.Protocol{
		Responder: func(ctx context.Context, u rpcurl.URL, inv api.Invocation) (interface{}, error) {
			if u.Host() == "bad" {
				return nil, api.ErrRpcRemoteError
			}
			return "pong", nil
		},
	}
	ops := mock.New()
	fb := registry.NewFailbackRegistry(ops, cfg.Logger)
	ops.Bind(fb)
	store := newFakeConfigStore()
	rp, err := protocol.NewRegistryProtocol(cfg, transport, singleFactory{r: fb}, store, "app")
	if err != nil {
		t.Fatalf("NewRegistryProtocol: %v", err)
	}

	if err := ops.DoRegister(rpcurl.New("rrpc", "bad", 20880, "com.example.Greeter", nil)); err != nil {
		t.Fatalf("DoRegister: %v", err)
	}
	if err := ops.DoRegister(rpcurl.New("rrpc", "good", 20880, "com.example.Greeter", nil)); err != nil {
		t.Fatalf("DoRegister: %v", err)
	}

	ifaceType := reflect.TypeOf((*interface{ Greet() })(nil)).Elem()
	referURL := rpcurl.New("registry", "127.0.0.1", 2181, "", map[string]string{
		"registry": "mock",
		"refer":    url.QueryEscape("interface=com.example.Greeter&cluster=failover"),
	})
	invoker, err := rp.Refer(ifaceType, referURL)
	if err != nil {
		t.Fatalf("Refer: %v", err)
	}

	invocation := api.NewInvocation("Greet", nil, nil, nil)
	value, err := waitResult(t, invoker.Invoke(context.Background(), invocation))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if value != "pong" {
		t.Fatalf("expected failover to land on the healthy provider, got %v", value)
	}
}

func TestReferToRegistryServiceReturnsDirectProxy(t *testing.T) {
	rp, fb, _, _, _ := newTestSetup(t)

	referURL := rpcurl.New("registry", "127.0.0.1", 2181, "RegistryService", map[string]string{"registry": "mock"})
	ifaceType := reflect.TypeOf((*interface{ Register() })(nil)).Elem()
	invoker, err := rp.Refer(ifaceType, referURL)
	if err != nil {
		t.Fatalf("Refer: %v", err)
	}

	providerURL := rpcurl.New("rrpc", "10.0.0.9", 20880, "com.example.Direct", nil)
	invocation := api.NewInvocation("Register", nil, []interface{}{providerURL}, nil)
	if _, err := waitResult(t, invoker.Invoke(context.Background(), invocation)); err != nil {
		t.Fatalf("Invoke Register: %v", err)
	}

	var captured []rpcurl.URL
	consumerURL := providerURL.WithProtocol("consumer").WithParam("category", "providers")
	if err := fb.Subscribe(consumerURL, api.NotifyFunc(func(urls []rpcurl.URL) { captured = urls })); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if len(captured) != 1 || captured[0].String() != providerURL.String() {
		t.Fatalf("expected the direct proxy's Register call to reach the registry, got %v", captured)
	}
}

func TestReferWithNoProvidersReportsUnavailable(t *testing.T) {
	reg := extension.NewRegistry()
	loadbalance.Register(reg)
	cluster.Register(reg, reg)
	cfg := api.NewConfig(api.WithExtensionRegistry(reg), api.WithDefaultCluster("failover"))

	transport := &testtransport.Protocol{}
	ops := mock.New()
	fb := registry.NewFailbackRegistry(ops, cfg.Logger)
	ops.Bind(fb)
	store := newFakeConfigStore()
	rp, err := protocol.NewRegistryProtocol(cfg, transport, singleFactory{r: fb}, store, "app")
	if err != nil {
		t.Fatalf("NewRegistryProtocol: %v", err)
	}

	ifaceType := reflect.TypeOf((*interface{ Greet() })(nil)).Elem()
	referURL := rpcurl.New("registry", "127.0.0.1", 2181, "", map[string]string{
		"registry": "mock",
		"refer":    url.QueryEscape("interface=com.example.Ghost"),
	})
	invoker, err := rp.Refer(ifaceType, referURL)
	if err != nil {
		t.Fatalf("Refer: %v", err)
	}

	invocation := api.NewInvocation("Greet", nil, nil, nil)
	_, err = waitResult(t, invoker.Invoke(context.Background(), invocation))
	if err == nil {
		t.Fatalf("expected an error when no providers are available")
	}
}
