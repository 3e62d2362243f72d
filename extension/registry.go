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

// Package extension implements the SPI-style extension registry described
// in spec.md §4.A: named, lazily-instantiated plug-ins per interface, with
// decorator wrapping, setter dependency injection, activate-extension
// selection and adaptive dispatch.
//
// Go has no reflective classpath scanning, so "a class referenced by a
// descriptor line" is modelled as a Constructor (or WrapperConstructor)
// registered under a catalog key by the code that ships the implementation
// — the same role Java's classloader plays when ExtensionLoader resolves a
// fully-qualified class name. Descriptor files still drive which names are
// wired to which interface; only the final class-loading step is replaced
// by a catalog lookup.
package extension

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rulego/rrpc/api"
)

// Constructor builds a fresh instance of a named extension.
type Constructor func() interface{}

// WrapperConstructor decorates an already-built instance of interface I,
// returning the wrapped value (the Go analogue of a class whose only
// constructor takes a single argument of type I).
type WrapperConstructor func(inner interface{}) interface{}

// ObjectFactory resolves dependencies that are not themselves extensions
// (container-managed singletons, configuration values, ...) during setter
// injection. A nil ObjectFactory simply skips such dependencies.
type ObjectFactory interface {
	GetObject(ifaceName string) (interface{}, bool)
}

// NoInject may be implemented by an extension instance to exclude some of
// its setter methods from dependency injection, the Go stand-in for the
// teacher's "DisableInject" marker.
type NoInject interface {
	DisableInject() []string
}

const (
	removeValuePrefix = "-"
	defaultKey        = "default"
)

var _ api.ExtensionRegistry = (*Registry)(nil)

type holder struct {
	mu              sync.Mutex
	defaultName     string
	constructors    map[string]Constructor
	wrappers        []WrapperConstructor
	instances       map[string]interface{}
	activates       map[string]api.ActivateInfo
	adaptiveMethods map[string]adaptiveMethodPlan
	adaptive        interface{}
}

func newHolder() *holder {
	return &holder{
		constructors:    make(map[string]Constructor),
		instances:       make(map[string]interface{}),
		activates:       make(map[string]api.ActivateInfo),
		adaptiveMethods: make(map[string]adaptiveMethodPlan),
	}
}

// Registry is the extension point registry: one named set of constructors,
// wrappers, activate metadata and adaptive method plans per interface name.
// It satisfies api.ExtensionRegistry.
type Registry struct {
	mu      sync.RWMutex
	holders map[string]*holder

	// descriptorDirs lists the probe directories searched by LoadDescriptors,
	// in order, the same three-tier layout the teacher's plugin loader
	// would expect: a reserved internal tier, a user tier, and a
	// META-INF-style service tier.
	descriptorDirs []string

	catalog        map[string]Constructor
	wrapperCatalog map[string]WrapperConstructor

	objectFactory ObjectFactory
}

// NewRegistry builds an empty Registry. dirs overrides the default
// descriptor probe directories ("internal/extensions", "extensions",
// "META-INF/rrpc") when non-empty.
func NewRegistry(dirs ...string) *Registry {
	if len(dirs) == 0 {
		dirs = []string{"internal/extensions", "extensions", "META-INF/rrpc"}
	}
	return &Registry{
		holders:        make(map[string]*holder),
		descriptorDirs: dirs,
		catalog:        make(map[string]Constructor),
		wrapperCatalog: make(map[string]WrapperConstructor),
	}
}

// SetObjectFactory installs the resolver used for non-extension setter
// dependencies during injection.
func (r *Registry) SetObjectFactory(f ObjectFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objectFactory = f
}

func (r *Registry) holderFor(ifaceName string) *holder {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.holders[ifaceName]
	if !ok {
		h = newHolder()
		r.holders[ifaceName] = h
	}
	return h
}

// Register adds a named constructor for ifaceName. Registering the same
// name twice replaces the earlier constructor and, if it was already
// instantiated, forgets the cached instance.
func (r *Registry) Register(ifaceName, name string, ctor Constructor) error {
	if name == "" {
		return errors.New("extension: name must not be empty")
	}
	h := r.holderFor(ifaceName)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.constructors[name] = ctor
	delete(h.instances, name)
	return nil
}

// Unregister removes a named constructor and its cached instance.
func (r *Registry) Unregister(ifaceName, name string) {
	h := r.holderFor(ifaceName)
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.constructors, name)
	delete(h.instances, name)
}

// RegisterWrapper adds a decorator applied, in registration order, to every
// non-wrapper, non-adaptive instance of ifaceName when it is first built.
func (r *Registry) RegisterWrapper(ifaceName string, w WrapperConstructor) {
	h := r.holderFor(ifaceName)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.wrappers = append(h.wrappers, w)
}

// SetDefaultName records the name used when a caller asks for ifaceName's
// default extension (used both by GetDefaultExtension and by dependency
// injection resolving an interface-typed setter argument).
func (r *Registry) SetDefaultName(ifaceName, name string) {
	h := r.holderFor(ifaceName)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.defaultName = name
}

// RegisterConstructorCatalog registers a constructor under a catalog key
// that descriptor lines can reference, independent of any one interface.
func (r *Registry) RegisterConstructorCatalog(key string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog[key] = ctor
}

// RegisterWrapperCatalog is RegisterConstructorCatalog for wrapper classes.
func (r *Registry) RegisterWrapperCatalog(key string, w WrapperConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wrapperCatalog[key] = w
}

// GetExtension returns the named extension for ifaceName, instantiating,
// injecting and wrapping it at most once.
func (r *Registry) GetExtension(ifaceName, name string) (interface{}, error) {
	h := r.holderFor(ifaceName)
	h.mu.Lock()
	defer h.mu.Unlock()
	return r.getExtensionLocked(ifaceName, h, name)
}

// GetDefaultExtension returns ifaceName's default-named extension, or
// ErrExtensionNotFound if no default name has been set.
func (r *Registry) GetDefaultExtension(ifaceName string) (interface{}, error) {
	h := r.holderFor(ifaceName)
	h.mu.Lock()
	name := h.defaultName
	h.mu.Unlock()
	if name == "" {
		return nil, fmt.Errorf("%w: %s has no default name", api.ErrExtensionNotFound, ifaceName)
	}
	return r.GetExtension(ifaceName, name)
}

func (r *Registry) getExtensionLocked(ifaceName string, h *holder, name string) (interface{}, error) {
	if inst, ok := h.instances[name]; ok {
		return inst, nil
	}
	ctor, ok := h.constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", api.ErrExtensionNotFound, ifaceName, name)
	}
	inst := ctor()
	if inst == nil {
		return nil, fmt.Errorf("%w: %s/%s constructor returned nil", api.ErrExtensionInstantiationFailed, ifaceName, name)
	}
	r.inject(inst)
	for _, w := range h.wrappers {
		inst = w(inst)
	}
	h.instances[name] = inst
	return inst, nil
}

// Names lists every name registered for ifaceName.
func (r *Registry) Names(ifaceName string) []string {
	h := r.holderFor(ifaceName)
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.constructors))
	for n := range h.constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// --- descriptor loading -----------------------------------------------

// LoadDescriptors reads the descriptor file for ifaceName from every probe
// directory (in order: internal, public, standard services), registering
// each "name=key" or bare "key" line against the constructor or wrapper
// catalog. Loading order is fixed, but names collide only on exact
// duplicates: a name already defined by an earlier directory's descriptor
// is an error, per spec.md §6, rather than the later directory silently
// overwriting it. Parse or resolution errors for individual lines are
// collected and returned together rather than aborting the whole load.
func (r *Registry) LoadDescriptors(ifaceName string) error {
	var errs []string
	seen := make(map[string]string) // name -> source ("path:line") that defined it first
	for _, dir := range r.descriptorDirs {
		path := filepath.Join(dir, ifaceName)
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			errs = append(errs, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		if err := r.loadDescriptorReader(ifaceName, path, f, seen); err != nil {
			errs = append(errs, err.Error())
		}
		f.Close()
	}
	if len(errs) > 0 {
		return fmt.Errorf("extension: loading %s: %s", ifaceName, strings.Join(errs, "; "))
	}
	return nil
}

func (r *Registry) loadDescriptorReader(ifaceName, source string, rd io.Reader, seen map[string]string) error {
	lines, err := parseDescriptor(rd)
	if err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	var errs []string
	for _, line := range lines {
		name := line.name
		if name == "" {
			name = line.target
		}
		here := fmt.Sprintf("%s:%d", source, line.lineNo)
		if prior, ok := seen[name]; ok {
			errs = append(errs, fmt.Sprintf("%s: name %q already defined at %s", here, name, prior))
			continue
		}
		if err := r.resolveDescriptorLine(ifaceName, line); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", here, err))
			continue
		}
		seen[name] = here
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (r *Registry) resolveDescriptorLine(ifaceName string, line descriptorLine) error {
	r.mu.RLock()
	ctor, isInstance := r.catalog[line.target]
	wrapper, isWrapper := r.wrapperCatalog[line.target]
	r.mu.RUnlock()

	switch {
	case isInstance:
		name := line.name
		if name == "" {
			name = line.target
		}
		return r.Register(ifaceName, name, ctor)
	case isWrapper:
		r.RegisterWrapper(ifaceName, wrapper)
		return nil
	default:
		return fmt.Errorf("no constructor registered for %q", line.target)
	}
}

// descriptorLine is one resolved "name=target" (or bare "target") entry.
type descriptorLine struct {
	name   string
	target string
	lineNo int
}

func parseDescriptor(r io.Reader) ([]descriptorLine, error) {
	var lines []descriptorLine
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if i := strings.Index(raw, "="); i >= 0 {
			lines = append(lines, descriptorLine{
				name:   strings.TrimSpace(raw[:i]),
				target: strings.TrimSpace(raw[i+1:]),
				lineNo: n,
			})
		} else {
			lines = append(lines, descriptorLine{target: raw, lineNo: n})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
