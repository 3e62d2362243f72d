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

package protocol

import (
	"context"
	"reflect"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/rpcurl"
)

// registryServiceInterface is the well-known path a refer URL names to ask
// for the registry escape hatch (spec.md §4.G step 2): "registry://host:port/RegistryService?...".
const registryServiceInterface = "RegistryService"

// registryServiceInvoker is the direct proxy over the registry that Refer
// returns when the requested interface is the registry service itself,
// rather than composing a directory and cluster over some other service's
// providers.
type registryServiceInvoker struct {
	ifaceType reflect.Type
	url       rpcurl.URL
	registry  api.Registry
}

var _ api.Invoker = (*registryServiceInvoker)(nil)

func (r *registryServiceInvoker) Interface() reflect.Type { return r.ifaceType }
func (r *registryServiceInvoker) URL() rpcurl.URL         { return r.url }
func (r *registryServiceInvoker) IsAvailable() bool       { return true }
func (r *registryServiceInvoker) Destroy()                {}

// Invoke dispatches Register/Unregister/Subscribe/Unsubscribe calls
// straight onto the underlying api.Registry, the four operations the
// registry service interface exposes.
func (r *registryServiceInvoker) Invoke(ctx context.Context, invocation api.Invocation) api.Result {
	args := invocation.Arguments()
	u, ok := firstURLArg(args)
	if !ok {
		return api.CompletedError(api.ErrInvalidURL)
	}

	switch invocation.MethodName() {
	case "Register":
		return completedVoid(r.registry.Register(u))
	case "Unregister":
		return completedVoid(r.registry.Unregister(u))
	case "Subscribe":
		listener, ok := secondListenerArg(args)
		if !ok {
			return api.CompletedError(api.ErrInvalidURL)
		}
		return completedVoid(r.registry.Subscribe(u, listener))
	case "Unsubscribe":
		listener, ok := secondListenerArg(args)
		if !ok {
			return api.CompletedError(api.ErrInvalidURL)
		}
		return completedVoid(r.registry.Unsubscribe(u, listener))
	default:
		return api.CompletedError(api.ErrExtensionNotFound)
	}
}

func firstURLArg(args []interface{}) (rpcurl.URL, bool) {
	if len(args) == 0 {
		return rpcurl.URL{}, false
	}
	u, ok := args[0].(rpcurl.URL)
	return u, ok
}

func secondListenerArg(args []interface{}) (api.NotifyListener, bool) {
	if len(args) < 2 {
		return nil, false
	}
	l, ok := args[1].(api.NotifyListener)
	return l, ok
}

func completedVoid(err error) api.Result {
	if err != nil {
		return api.CompletedError(err)
	}
	return api.CompletedValue(nil)
}
