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

package filterchain

import (
	"context"
	"reflect"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/rpcurl"
)

// CallbackRegistrationInvoker is the outermost invoker Build returns: it
// runs the filter chain, then registers a single WhenComplete hook on the
// resulting Result that fires every listenable filter's OnResponse (on
// success) or OnError (on failure) exactly once, walking filters in
// reverse order — innermost filter notified first, mirroring
// CallbackRegistrationInvoker.invoke in the original implementation.
type CallbackRegistrationInvoker struct {
	chain   api.Invoker
	origin  api.Invoker
	filters []api.Filter
}

var _ api.Invoker = (*CallbackRegistrationInvoker)(nil)

func (c *CallbackRegistrationInvoker) Interface() reflect.Type { return c.origin.Interface() }
func (c *CallbackRegistrationInvoker) URL() rpcurl.URL         { return c.origin.URL() }
func (c *CallbackRegistrationInvoker) IsAvailable() bool       { return c.origin.IsAvailable() }
func (c *CallbackRegistrationInvoker) Destroy()                { c.origin.Destroy() }

func (c *CallbackRegistrationInvoker) Invoke(ctx context.Context, invocation api.Invocation) api.Result {
	result := c.chain.Invoke(ctx, invocation)
	result.WhenComplete(func(value interface{}, err error) {
		for i := len(c.filters) - 1; i >= 0; i-- {
			filter := c.filters[i]
			lf, ok := filter.(api.ListenableFilter)
			if !ok {
				continue
			}
			listener := lf.Listener()
			if listener == nil {
				continue
			}
			if err != nil {
				listener.OnError(err, c.chain, invocation)
			} else {
				listener.OnResponse(result, c.chain, invocation)
			}
		}
	})
	return result
}
