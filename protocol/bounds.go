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

	"golang.org/x/sync/singleflight"
)

// boundsMap is spec.md §4.F step 3 / §5's "bounds": a provider cache-key to
// its active local export, with compute-if-absent semantics so concurrent
// Export calls for the same key run the underlying transport export at
// most once. The single-flight group collapses concurrent first-callers
// for the same key into one create() call without holding the entries
// lock for its duration, the same deduplication client-go's informer
// machinery and Dubbo's per-bucket ConcurrentHashMap.computeIfAbsent both
// give their respective callers.
type boundsMap struct {
	mu      sync.Mutex
	entries map[string]*ExporterChangeableWrapper
	group   singleflight.Group
}

func newBoundsMap() *boundsMap {
	return &boundsMap{entries: make(map[string]*ExporterChangeableWrapper)}
}

// computeIfAbsent returns the existing wrapper for key, or builds one with
// create and stores it. create runs at most once per key even under
// concurrent callers; a second caller that arrives while the first is
// still running waits on the same in-flight call rather than racing it.
func (b *boundsMap) computeIfAbsent(key string, create func() (*ExporterChangeableWrapper, error)) (*ExporterChangeableWrapper, error) {
	b.mu.Lock()
	if w, ok := b.entries[key]; ok {
		b.mu.Unlock()
		return w, nil
	}
	b.mu.Unlock()

	v, err, _ := b.group.Do(key, func() (interface{}, error) {
		b.mu.Lock()
		if w, ok := b.entries[key]; ok {
			b.mu.Unlock()
			return w, nil
		}
		b.mu.Unlock()

		w, err := create()
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		b.entries[key] = w
		b.mu.Unlock()
		return w, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ExporterChangeableWrapper), nil
}

func (b *boundsMap) delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
}
