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
	"sync"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/rpcurl"
)

// ExporterChangeableWrapper is the bounds entry itself: the locally
// exported Exporter backing one provider cache key, swappable in place
// when a dynamic-config override changes the effective provider URL
// (reExport, spec.md §4.F step 5) without invalidating the caller's
// original Exporter handle.
type ExporterChangeableWrapper struct {
	mu       sync.Mutex
	exporter api.Exporter
	url      rpcurl.URL
}

func newExporterChangeableWrapper(exporter api.Exporter, url rpcurl.URL) *ExporterChangeableWrapper {
	return &ExporterChangeableWrapper{exporter: exporter, url: url}
}

// Invoker returns the currently active inner invoker.
func (w *ExporterChangeableWrapper) Invoker() api.Invoker {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exporter.Invoker()
}

// URL returns the provider URL currently locally exported.
func (w *ExporterChangeableWrapper) URL() rpcurl.URL {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.url
}

// swap installs exporter as current and returns the previous one. The
// previous exporter must not be unexported here: its delegate still wraps
// the shared origin invoker, which Unexport would destroy. It is discarded
// without teardown; the origin is destroyed exactly once, at real Unexport
// time via the current exporter.
func (w *ExporterChangeableWrapper) swap(exporter api.Exporter, url rpcurl.URL) api.Exporter {
	w.mu.Lock()
	defer w.mu.Unlock()
	old := w.exporter
	w.exporter = exporter
	w.url = url
	return old
}

// Unexport releases whichever exporter is current.
func (w *ExporterChangeableWrapper) Unexport() {
	w.mu.Lock()
	exporter := w.exporter
	w.mu.Unlock()
	exporter.Unexport()
}
