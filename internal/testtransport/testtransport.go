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

// Package testtransport is a minimal in-memory stand-in for the
// transport-level api.Protocol plug-in spec.md places out of scope: it
// turns a local invoker into a network-reachable Exporter (without any
// actual socket) and a remote URL into a callable Invoker (without any
// actual wire call). It exists only to let this module's own tests drive
// the export and refer pipelines end to end.
package testtransport

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/rpcurl"
)

// Responder answers one call made through a Refer'd invoker.
type Responder func(ctx context.Context, url rpcurl.URL, invocation api.Invocation) (interface{}, error)

// Protocol is the in-memory transport double.
type Protocol struct {
	// Responder answers every call through a referred invoker; nil uses
	// defaultResponder, which echoes the invocation's method name.
	Responder Responder

	exportCount int32
	referCount  int32
	destroyed   int32
}

var _ api.Protocol = (*Protocol)(nil)

func (p *Protocol) Export(invoker api.Invoker) (api.Exporter, error) {
	atomic.AddInt32(&p.exportCount, 1)
	return api.NewSimpleExporter(invoker, nil), nil
}

func (p *Protocol) Refer(ifaceType reflect.Type, url rpcurl.URL) (api.Invoker, error) {
	atomic.AddInt32(&p.referCount, 1)
	return &remoteInvoker{ifaceType: ifaceType, url: url, protocol: p}, nil
}

func (p *Protocol) Destroy() {
	atomic.StoreInt32(&p.destroyed, 1)
}

// ExportCount, ReferCount and Destroyed let tests assert on call counts
// without a mocking framework.
func (p *Protocol) ExportCount() int { return int(atomic.LoadInt32(&p.exportCount)) }
func (p *Protocol) ReferCount() int  { return int(atomic.LoadInt32(&p.referCount)) }
func (p *Protocol) Destroyed() bool  { return atomic.LoadInt32(&p.destroyed) == 1 }

type remoteInvoker struct {
	ifaceType reflect.Type
	url       rpcurl.URL
	protocol  *Protocol

	mu        sync.Mutex
	destroyed bool
}

var _ api.Invoker = (*remoteInvoker)(nil)

func (r *remoteInvoker) Interface() reflect.Type { return r.ifaceType }
func (r *remoteInvoker) URL() rpcurl.URL         { return r.url }

func (r *remoteInvoker) IsAvailable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.destroyed
}

func (r *remoteInvoker) Invoke(ctx context.Context, invocation api.Invocation) api.Result {
	if !r.IsAvailable() {
		return api.CompletedError(api.ErrRpcRemoteError)
	}
	responder := r.protocol.Responder
	if responder == nil {
		responder = defaultResponder
	}
	value, err := responder(ctx, r.url, invocation)
	if err != nil {
		return api.CompletedError(err)
	}
	return api.CompletedValue(value)
}

func (r *remoteInvoker) Destroy() {
	r.mu.Lock()
	r.destroyed = true
	r.mu.Unlock()
}

func defaultResponder(ctx context.Context, url rpcurl.URL, invocation api.Invocation) (interface{}, error) {
	return invocation.MethodName(), nil
}
