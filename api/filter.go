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

import "context"

// Filter is an interceptor around an Invoker: it receives the next invoker
// in the chain and may inspect, short-circuit, or pass through to it.
type Filter interface {
	Invoke(ctx context.Context, next Invoker, invocation Invocation) Result
}

// FilterListener is a filter's optional post-call hook, run once the
// chain's Result completes. OnResponse fires on success, OnError on
// failure; exactly one of them fires per call, per filter.
type FilterListener interface {
	OnResponse(result Result, invoker Invoker, invocation Invocation)
	OnError(err error, invoker Invoker, invocation Invocation)
}

// ListenableFilter is a Filter that also wants its listener hooks called.
// A Filter that does not implement this interface participates in the
// chain but never receives OnResponse/OnError callbacks.
type ListenableFilter interface {
	Filter
	Listener() FilterListener
}
