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

package loadbalance_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/loadbalance"
	"github.com/rulego/rrpc/rpcurl"
)

type stubInvoker struct {
	url       rpcurl.URL
	available bool
}

func (s *stubInvoker) Interface() reflect.Type { return reflect.TypeOf((*interface{})(nil)).Elem() }
func (s *stubInvoker) URL() rpcurl.URL         { return s.url }
func (s *stubInvoker) IsAvailable() bool       { return s.available }
func (s *stubInvoker) Destroy()                {}
func (s *stubInvoker) Invoke(ctx context.Context, inv api.Invocation) api.Result {
	return api.CompletedValue(s.url.String())
}

func invokers(n int) []api.Invoker {
	out := make([]api.Invoker, n)
	for i := range out {
		out[i] = &stubInvoker{url: rpcurl.New("rrpc", "host", i, "svc", nil), available: true}
	}
	return out
}

func TestRandomSelectsOnlyAvailable(t *testing.T) {
	in := invokers(3)
	in[1].(*stubInvoker).available = false
	lb := loadbalance.Random{}
	for i := 0; i < 20; i++ {
		picked, err := lb.Select(in, rpcurl.URL{}, nil)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if !picked.IsAvailable() {
			t.Fatalf("Random selected an unavailable invoker")
		}
	}
}

func TestRandomErrorsWhenNoneAvailable(t *testing.T) {
	in := invokers(2)
	in[0].(*stubInvoker).available = false
	in[1].(*stubInvoker).available = false
	lb := loadbalance.Random{}
	if _, err := lb.Select(in, rpcurl.URL{}, nil); err == nil {
		t.Fatalf("expected an error when no invokers are available")
	}
}

func TestRoundRobinCyclesInOrder(t *testing.T) {
	in := invokers(3)
	lb := loadbalance.NewRoundRobin()
	var got []string
	for i := 0; i < 6; i++ {
		picked, err := lb.Select(in, rpcurl.URL{}, nil)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		got = append(got, picked.URL().String())
	}
	for i := 0; i < 3; i++ {
		if got[i] != got[i+3] {
			t.Fatalf("expected the cycle to repeat after 3 picks, got %v", got)
		}
	}
}
