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

package filterchain_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/extension"
	"github.com/rulego/rrpc/filterchain"
	"github.com/rulego/rrpc/rpcurl"
)

type recordingFilter struct {
	name     string
	order    *[]string
	failWith error
}

func (f *recordingFilter) Invoke(ctx context.Context, next api.Invoker, inv api.Invocation) api.Result {
	*f.order = append(*f.order, "invoke:"+f.name)
	if f.failWith != nil {
		return api.CompletedError(f.failWith)
	}
	return next.Invoke(ctx, inv)
}

func (f *recordingFilter) Listener() api.FilterListener { return listenerFor(f) }

func listenerFor(f *recordingFilter) api.FilterListener {
	return recordingListener{f}
}

type recordingListener struct{ f *recordingFilter }

func (l recordingListener) OnResponse(result api.Result, invoker api.Invoker, inv api.Invocation) {
	*l.f.order = append(*l.f.order, "response:"+l.f.name)
}

func (l recordingListener) OnError(err error, invoker api.Invoker, inv api.Invocation) {
	*l.f.order = append(*l.f.order, "error:"+l.f.name)
}

type terminalInvoker struct {
	url rpcurl.URL
}

func (t *terminalInvoker) Interface() reflect.Type { return reflect.TypeOf((*interface{})(nil)).Elem() }
func (t *terminalInvoker) URL() rpcurl.URL         { return t.url }
func (t *terminalInvoker) IsAvailable() bool       { return true }
func (t *terminalInvoker) Destroy()                {}
func (t *terminalInvoker) Invoke(ctx context.Context, inv api.Invocation) api.Result {
	return api.CompletedValue("ok")
}

func registryWithFilters(order *[]string) api.ExtensionRegistry {
	reg := extension.NewRegistry()
	reg.Register("Filter", "a", func() interface{} { return &recordingFilter{name: "a", order: order} })
	reg.Register("Filter", "b", func() interface{} { return &recordingFilter{name: "b", order: order} })
	reg.RegisterActivateInfo("Filter", api.ActivateInfo{Name: "a", Group: []string{"provider"}, Order: 1})
	reg.RegisterActivateInfo("Filter", api.ActivateInfo{Name: "b", Group: []string{"provider"}, Order: 2})
	return reg
}

func TestBuildRunsFiltersInOrderThenCallbacksInReverse(t *testing.T) {
	var order []string
	reg := registryWithFilters(&order)
	terminal := &terminalInvoker{url: rpcurl.New("rrpc", "localhost", 0, "svc", nil)}

	chain, err := filterchain.Build(reg, terminal, "service.filter", "provider")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	result := chain.Invoke(context.Background(), api.NewInvocation("M", nil, nil, nil))
	if result.Err() != nil {
		t.Fatalf("unexpected error: %v", result.Err())
	}
	want := []string{"invoke:a", "invoke:b", "response:b", "response:a"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestBuildAddsFiltersRequestedByURLSideKey(t *testing.T) {
	var order []string
	reg := extension.NewRegistry()
	reg.Register("Filter", "named", func() interface{} { return &recordingFilter{name: "named", order: &order} })

	terminal := &terminalInvoker{url: rpcurl.New("rrpc", "localhost", 0, "svc", map[string]string{
		filterchain.ServiceFilterKey: "named",
	})}

	chain, err := filterchain.Build(reg, terminal, filterchain.ServiceFilterKey, "provider")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	result := chain.Invoke(context.Background(), api.NewInvocation("M", nil, nil, nil))
	if result.Err() != nil {
		t.Fatalf("unexpected error: %v", result.Err())
	}
	want := []string{"invoke:named", "response:named"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v (filter named by the URL's service.filter parameter was never added)", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestBuildInvokesOnErrorWhenAFilterFails(t *testing.T) {
	var order []string
	reg := extension.NewRegistry()
	boom := errors.New("boom")
	reg.Register("Filter", "a", func() interface{} { return &recordingFilter{name: "a", order: &order} })
	reg.Register("Filter", "b", func() interface{} { return &recordingFilter{name: "b", order: &order, failWith: boom} })
	reg.RegisterActivateInfo("Filter", api.ActivateInfo{Name: "a", Group: []string{"provider"}, Order: 1})
	reg.RegisterActivateInfo("Filter", api.ActivateInfo{Name: "b", Group: []string{"provider"}, Order: 2})

	terminal := &terminalInvoker{url: rpcurl.New("rrpc", "localhost", 0, "svc", nil)}
	chain, err := filterchain.Build(reg, terminal, "service.filter", "provider")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	result := chain.Invoke(context.Background(), api.NewInvocation("M", nil, nil, nil))
	if !errors.Is(result.Err(), boom) {
		t.Fatalf("Err() = %v, want %v", result.Err(), boom)
	}
	want := []string{"invoke:a", "invoke:b", "error:b", "error:a"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
