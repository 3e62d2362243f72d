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
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/configurator"
	"github.com/rulego/rrpc/rpcurl"
)

// exportState is the bookkeeping one Export call keeps alive for the
// lifetime of its Exporter: enough to recompute the effective provider URL
// whenever a dynamic-config override changes (reExport, spec.md §4.F step
// 5), and to unwind registration/subscription/local-export on unexport.
type exportState struct {
	mu sync.Mutex

	originInvoker api.Invoker
	originalURL   rpcurl.URL // the provider URL before any configurator override
	registryURL   rpcurl.URL
	registry      api.Registry
	serviceKey    string

	wrapper       *ExporterChangeableWrapper
	boundsKey     string // bounds' key for wrapper, fixed at creation; reExport mutates wrapper in place and must not move it
	simplifiedURL rpcurl.URL
	registered    bool

	subURL                rpcurl.URL
	listener              *overrideListener
	registryConfigurators []configurator.Configurator
}

// deriveRegistryURL rewrites originURL's scheme to the value of its
// "registry" parameter (falling back to defaultProtocol) and drops that
// parameter, per spec.md §4.F step 1.
func deriveRegistryURL(originURL rpcurl.URL, defaultProtocol string) rpcurl.URL {
	scheme := originURL.Param("registry", defaultProtocol)
	return originURL.WithProtocol(scheme).RemoveParam("registry")
}

// decodeExportURL decodes originURL's "export" parameter into the provider
// URL it encodes, per spec.md §4.F step 1.
func decodeExportURL(originURL rpcurl.URL) (rpcurl.URL, error) {
	raw := originURL.Param("export", "")
	if raw == "" {
		return rpcurl.URL{}, fmt.Errorf("%w: missing export parameter", api.ErrInvalidURL)
	}
	if unescaped, err := url.QueryUnescape(raw); err == nil {
		raw = unescaped
	}
	u, err := rpcurl.Parse(raw)
	if err != nil {
		return rpcurl.URL{}, fmt.Errorf("%w: %v", api.ErrInvalidURL, err)
	}
	return u, nil
}

// overrideSubscribeURL builds the URL the provider export pipeline
// subscribes to for registry-delivered dynamic overrides, per spec.md §4.F
// step 1.
func overrideSubscribeURL(providerURL rpcurl.URL) rpcurl.URL {
	return providerURL.WithProtocol("provider").WithParams(map[string]string{
		"category": "configurators",
		"check":    "false",
	})
}

// Export implements spec.md §4.F's Provider Export Pipeline.
func (p *RegistryProtocol) Export(originInvoker api.Invoker) (api.Exporter, error) {
	originURL := originInvoker.URL()
	registryURL := deriveRegistryURL(originURL, p.cfg.DefaultRegistryProtocol)
	providerURL, err := decodeExportURL(originURL)
	if err != nil {
		return nil, err
	}
	serviceKey := providerURL.ServiceKey()

	registry, err := p.registries.GetRegistry(registryURL)
	if err != nil {
		return nil, err
	}

	st := &exportState{
		originInvoker: originInvoker,
		originalURL:   providerURL,
		registryURL:   registryURL,
		registry:      registry,
		serviceKey:    serviceKey,
		subURL:        overrideSubscribeURL(providerURL),
	}

	appConfigurators := p.providerListener.Configurators()
	svcListener, err := p.serviceListeners.Get(serviceKey)
	if err != nil {
		return nil, err
	}
	effectiveURL := applyOverrides(providerURL, appConfigurators, svcListener.Configurators(), nil)

	wrapper, err := p.doLocalExport(originInvoker, effectiveURL)
	if err != nil {
		return nil, err
	}
	st.wrapper = wrapper
	st.boundsKey = simplifyCacheKey(effectiveURL)

	st.simplifiedURL = simplifyForRegistry(effectiveURL, registryURL)
	st.registered = effectiveURL.ParamBool("register", true)
	if st.registered {
		if err := registry.Register(st.simplifiedURL); err != nil {
			return nil, err
		}
	}

	st.listener = &overrideListener{protocol: p, state: st}
	if err := registry.Subscribe(st.subURL, st.listener); err != nil {
		p.cfg.Logger.Printf("protocol: subscribe to %s failed: %v", st.subURL, err)
	}

	p.mu.Lock()
	p.exports[st] = struct{}{}
	p.mu.Unlock()

	return &providerExporter{protocol: p, state: st}, nil
}

// applyOverrides folds application, service and registry-delivered
// configurators, in that order, onto providerURL (spec.md §4.F step 2/5;
// last writer wins on a shared parameter key).
func applyOverrides(providerURL rpcurl.URL, appConfigurators, svcConfigurators, registryConfigurators []configurator.Configurator) rpcurl.URL {
	all := make([]configurator.Configurator, 0, len(appConfigurators)+len(svcConfigurators)+len(registryConfigurators))
	all = append(all, appConfigurators...)
	all = append(all, svcConfigurators...)
	all = append(all, registryConfigurators...)
	return configurator.ApplyAll(all, providerURL)
}

// doLocalExport wraps originInvoker, delegated to report providerURL, in
// the transport Protocol plug-in, caching the result in bounds under
// providerURL's cache key (spec.md §4.F step 3).
func (p *RegistryProtocol) doLocalExport(originInvoker api.Invoker, providerURL rpcurl.URL) (*ExporterChangeableWrapper, error) {
	key := simplifyCacheKey(providerURL)
	return p.bounds.computeIfAbsent(key, func() (*ExporterChangeableWrapper, error) {
		delegate := api.NewDelegateInvoker(originInvoker, providerURL)
		exporter, err := p.transport.Export(delegate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", api.ErrProtocolExportFailed, err)
		}
		return newExporterChangeableWrapper(exporter, providerURL), nil
	})
}

// recompute folds the export's current application/service/registry
// configurators onto its original provider URL and reExports if the
// result differs from what is currently locally exported. It is the
// doOverrideIfNecessary spec.md §4.H names, shared by the registry-side
// override listener and the two dynamic-config-store listeners.
func (p *RegistryProtocol) recompute(st *exportState) {
	st.mu.Lock()
	defer st.mu.Unlock()

	appConfigurators := p.providerListener.Configurators()
	var svcConfigurators []configurator.Configurator
	if svcListener, err := p.serviceListeners.Get(st.serviceKey); err == nil {
		svcConfigurators = svcListener.Configurators()
	}
	newURL := applyOverrides(st.originalURL, appConfigurators, svcConfigurators, st.registryConfigurators)
	if newURL.Equal(st.wrapper.URL()) {
		return
	}
	if err := p.reExportLocked(st, newURL); err != nil {
		p.cfg.Logger.Printf("protocol: reExport for %s failed: %v", st.serviceKey, err)
	}
}

// reExportLocked implements spec.md §4.F's reExport, called with st.mu
// held: if the newly computed simplified URL is unchanged, only the local
// export is swapped; otherwise the registry entry is replaced too.
func (p *RegistryProtocol) reExportLocked(st *exportState, newProviderURL rpcurl.URL) error {
	newSimplified := simplifyForRegistry(newProviderURL, st.registryURL)
	if newSimplified.Equal(st.simplifiedURL) {
		return p.swapLocalExport(st, newProviderURL)
	}

	if st.registered {
		if err := st.registry.Unregister(st.simplifiedURL); err != nil {
			p.cfg.Logger.Printf("protocol: unregister during reExport failed: %v", err)
		}
	}
	if err := p.swapLocalExport(st, newProviderURL); err != nil {
		return err
	}
	st.registered = newProviderURL.ParamBool("register", true)
	if st.registered {
		if err := st.registry.Register(newSimplified); err != nil {
			return err
		}
	}
	st.simplifiedURL = newSimplified
	return nil
}

// swapLocalExport replaces the wrapper's inner exporter reference only; it
// must never unexport the one it replaces. The new exporter's delegate still
// wraps st.originInvoker, so destroying the old exporter would destroy that
// shared origin invoker (DelegateInvoker.Destroy calls through to it) and,
// with a real transport, tear down the very server the new export depends
// on. The origin is destroyed exactly once, at real Unexport time.
func (p *RegistryProtocol) swapLocalExport(st *exportState, newProviderURL rpcurl.URL) error {
	delegate := api.NewDelegateInvoker(st.originInvoker, newProviderURL)
	exporter, err := p.transport.Export(delegate)
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrProtocolExportFailed, err)
	}
	st.wrapper.swap(exporter, newProviderURL)
	return nil
}

// overrideListener is the registry-subscription NotifyListener spec.md
// §4.F step 5 describes: it turns incoming "configurators"-category (or
// legacy "override://") URLs directly into configurator.Configurator
// values — an override URL's own non-reserved parameters already are the
// override, so no separate rule format is needed — and recomputes the
// effective provider URL.
type overrideListener struct {
	protocol *RegistryProtocol
	state    *exportState
}

var _ api.NotifyListener = (*overrideListener)(nil)

func (l *overrideListener) Notify(urls []rpcurl.URL) {
	cs := make([]configurator.Configurator, 0, len(urls))
	for _, u := range urls {
		if u.IsEmpty() {
			continue
		}
		if u.Protocol() != "override" && u.Param("category", "") != "configurators" {
			continue
		}
		cs = append(cs, configurator.Configurator{MatchURL: u, Order: u.ParamInt("priority", 0)})
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].Order < cs[j].Order })

	l.state.mu.Lock()
	l.state.registryConfigurators = cs
	l.state.mu.Unlock()

	l.protocol.recompute(l.state)
}

// providerExporter is the Exporter Export returns: unexport tears down, in
// order, the bounds entry, the registry registration, the override
// subscription, then (optionally after a configured drain) the inner
// transport export (spec.md §4.F step 6).
type providerExporter struct {
	protocol *RegistryProtocol
	state    *exportState
	once     sync.Once
}

var _ api.Exporter = (*providerExporter)(nil)

func (e *providerExporter) Invoker() api.Invoker { return e.state.wrapper.Invoker() }

func (e *providerExporter) Unexport() {
	e.once.Do(func() {
		p := e.protocol
		st := e.state

		p.bounds.delete(st.boundsKey)

		if st.registered {
			if err := st.registry.Unregister(st.simplifiedURL); err != nil {
				p.cfg.Logger.Printf("protocol: unregister during unexport failed: %v", err)
			}
		}
		if err := st.registry.Unsubscribe(st.subURL, st.listener); err != nil {
			p.cfg.Logger.Printf("protocol: unsubscribe during unexport failed: %v", err)
		}

		p.mu.Lock()
		delete(p.exports, st)
		p.mu.Unlock()

		inner := st.wrapper
		drain := p.cfg.UnexportDrainTimeout
		if drain <= 0 {
			inner.Unexport()
			return
		}
		p.cfg.Go(func() {
			time.Sleep(drain)
			inner.Unexport()
		})
	})
}
