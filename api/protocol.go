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

import (
	"reflect"

	"github.com/rulego/rrpc/rpcurl"
)

// Protocol is the transport-level plug-in boundary spec.md §1 places out of
// scope: it turns a local invoker into a network-reachable Exporter, and a
// remote URL into a callable Invoker. The core depends only on this
// interface; internal/testtransport provides the one concrete
// implementation used by this module's own tests.
type Protocol interface {
	Export(invoker Invoker) (Exporter, error)
	Refer(ifaceType reflect.Type, url rpcurl.URL) (Invoker, error)
	Destroy()
}
