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

// Exporter is the ownership token for an active export. Unexport is
// idempotent and releases the underlying invoker.
type Exporter interface {
	Invoker() Invoker
	Unexport()
}

// SimpleExporter is the default Exporter: it owns one invoker and
// guarantees Unexport's side effect runs exactly once even under
// concurrent callers.
type SimpleExporter struct {
	invoker Invoker
	once    sync.Once
	onClose func()
}

// NewSimpleExporter returns an Exporter over invoker. onClose, if non-nil,
// runs exactly once the first time Unexport is called, before the invoker
// is destroyed.
func NewSimpleExporter(invoker Invoker, onClose func()) *SimpleExporter {
	return &SimpleExporter{invoker: invoker, onClose: onClose}
}

func (e *SimpleExporter) Invoker() Invoker { return e.invoker }

func (e *SimpleExporter) Unexport() {
	e.once.Do(func() {
		if e.onClose != nil {
			e.onClose()
		}
		e.invoker.Destroy()
	})
}
