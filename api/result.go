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

import "sync"

// resultState models Result's three-state lifecycle: it only ever moves
// forward, from pending to exactly one of the two completed states.
type resultState int

const (
	statePending resultState = iota
	stateValue
	stateError
)

// CompletionFunc observes a Result once it has completed. value is nil when
// err is non-nil. Hooks run on whichever goroutine completes the result —
// the transport's I/O goroutine or the calling goroutine for a
// synchronously-resolved call — so hooks must not assume a particular
// caller identity.
type CompletionFunc func(value interface{}, err error)

// Result is the asynchronous outcome bound to one Invocation. It starts
// pending and transitions exactly once, to either a value or an error.
// WhenComplete registers a hook that fires immediately if the result has
// already completed, or later, exactly once, when it does.
type Result interface {
	// SetValue completes the result successfully. Calling it more than
	// once, or after SetError, is a no-op.
	SetValue(value interface{})
	// SetError completes the result with a failure. Calling it more than
	// once, or after SetValue, is a no-op.
	SetError(err error)
	// Value returns the completed value, or nil if still pending or
	// completed with an error.
	Value() interface{}
	// Err returns the completed error, or nil if still pending or
	// completed with a value.
	Err() error
	// WhenComplete registers fn to run once the result completes. A panic
	// inside fn is recovered and discarded, so it does not prevent the
	// other hooks from running.
	WhenComplete(fn CompletionFunc)
}

// asyncResult is the default Result implementation: a value/error pair
// guarded by a mutex, with a list of hooks replayed in registration order
// the moment the result completes (or immediately, if it already has).
type asyncResult struct {
	mu    sync.Mutex
	state resultState
	value interface{}
	err   error
	hooks []CompletionFunc
}

// NewResult returns a pending Result.
func NewResult() Result {
	return &asyncResult{}
}

// CompletedValue returns a Result already completed with value.
func CompletedValue(value interface{}) Result {
	r := &asyncResult{}
	r.SetValue(value)
	return r
}

// CompletedError returns a Result already completed with err.
func CompletedError(err error) Result {
	r := &asyncResult{}
	r.SetError(err)
	return r
}

func (r *asyncResult) SetValue(value interface{}) {
	r.complete(stateValue, value, nil)
}

func (r *asyncResult) SetError(err error) {
	r.complete(stateError, nil, err)
}

func (r *asyncResult) complete(state resultState, value interface{}, err error) {
	r.mu.Lock()
	if r.state != statePending {
		r.mu.Unlock()
		return
	}
	r.state = state
	r.value = value
	r.err = err
	hooks := r.hooks
	r.hooks = nil
	r.mu.Unlock()

	for _, h := range hooks {
		runHook(h, value, err)
	}
}

func (r *asyncResult) Value() interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

func (r *asyncResult) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *asyncResult) WhenComplete(fn CompletionFunc) {
	r.mu.Lock()
	if r.state == statePending {
		r.hooks = append(r.hooks, fn)
		r.mu.Unlock()
		return
	}
	value, err := r.value, r.err
	r.mu.Unlock()
	runHook(fn, value, err)
}

// runHook isolates one completion hook so a panicking listener cannot take
// down the goroutine delivering the result, or block sibling hooks from
// running.
func runHook(fn CompletionFunc, value interface{}, err error) {
	defer func() { _ = recover() }()
	fn(value, err)
}
