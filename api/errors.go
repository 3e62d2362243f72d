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

// Package api defines the core interfaces and value types shared across the
// registry-driven RPC orchestration pipeline: invokers, invocations,
// results, exporters, directories and filters. Concrete transports,
// naming-service clients and proxy generators live outside this package and
// are referenced only through the interfaces declared here.
package api

import "errors"

// Error kinds surfaced at the boundaries of the pipeline (export/refer time,
// registry transport, and per-call dispatch). Configuration and wiring
// errors are fatal and returned to the caller; registry transport errors are
// instead recovered locally by the registry facade's failback mechanism.
var (
	// ErrExtensionNotFound is returned when a named extension has no
	// registered implementation for the requested interface.
	ErrExtensionNotFound = errors.New("rrpc: extension not found")
	// ErrExtensionInstantiationFailed wraps a failure while constructing or
	// injecting dependencies into a freshly resolved extension instance.
	ErrExtensionInstantiationFailed = errors.New("rrpc: extension instantiation failed")
	// ErrAdaptiveConflict names an interface with more than one adaptive
	// class. No function in this module returns it:
	// RegisterAdaptiveInstance replaces any adaptive instance registered
	// earlier for the same interface.
	ErrAdaptiveConflict = errors.New("rrpc: ambiguous adaptive extension")
	// ErrInvalidURL is returned by URL parsing and by any operation that
	// cannot derive a required field (e.g. a missing "export" parameter).
	ErrInvalidURL = errors.New("rrpc: invalid url")
	// ErrRegistryUnavailable is available to naming-service clients for a
	// failed transport call. The registry facade retries any error its
	// Operations return, whatever its value, and never passes it on to a
	// caller of register/unregister/subscribe; nothing in this module
	// returns this value itself.
	ErrRegistryUnavailable = errors.New("rrpc: registry unavailable")
	// ErrSubscribeFailed is the subscribe-path counterpart of
	// ErrRegistryUnavailable; nothing in this module returns it, and the
	// failback bookkeeping does not inspect error values.
	ErrSubscribeFailed = errors.New("rrpc: subscribe failed")
	// ErrProtocolExportFailed is returned when the delegating transport
	// Protocol plug-in fails to export the local invoker.
	ErrProtocolExportFailed = errors.New("rrpc: protocol export failed")
	// ErrRpcRemoteError is returned to a caller when the remote side of a
	// call reports a failure.
	ErrRpcRemoteError = errors.New("rrpc: remote error")
	// ErrRpcTimeout reports a call that did not complete within its
	// timeout. No code in this module enforces call timeouts or returns it.
	ErrRpcTimeout = errors.New("rrpc: rpc timeout")
	// ErrNoProvidersAvailable is returned by a consumer invoker whose
	// directory currently has no matching providers.
	ErrNoProvidersAvailable = errors.New("rrpc: no providers available")
)
