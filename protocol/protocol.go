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

// Package protocol implements the registry-driven orchestration described
// in spec.md §4.F (Provider Export Pipeline) and §4.G (Consumer Refer
// Pipeline): RegistryProtocol wraps a transport-level api.Protocol plug-in
// (out of scope here; see internal/testtransport for the test double) so
// that Export/Refer additionally register, subscribe, and react to dynamic
// configuration the same way the teacher's engine wraps a component's raw
// call behind lifecycle and routing machinery.
package protocol

import (
	"sync"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/configurator"
)

// RegistryProtocol is the facade spec.md names RegistryProtocol: one
// instance per process, shared across every export/refer call that uses
// the same transport and registry factory.
type RegistryProtocol struct {
	cfg        api.Config
	transport  api.Protocol
	registries api.RegistryFactory

	bounds *boundsMap

	mu      sync.Mutex
	exports map[*exportState]struct{}

	providerListener *configurator.ProviderConfigurationListener
	serviceListeners *configurator.ServiceConfigurationListeners
}

var _ api.Protocol = (*RegistryProtocol)(nil)

// NewRegistryProtocol builds a RegistryProtocol. configStore is the
// dynamic-config store spec.md §4.H describes (distinct from the naming
// registry, process-wide, out of scope beyond the configurator.Store
// interface); applicationName keys the singleton application-level
// listener.
func NewRegistryProtocol(cfg api.Config, transport api.Protocol, registries api.RegistryFactory, configStore configurator.Store, applicationName string) (*RegistryProtocol, error) {
	p := &RegistryProtocol{
		cfg:        cfg,
		transport:  transport,
		registries: registries,
		bounds:     newBoundsMap(),
		exports:    make(map[*exportState]struct{}),
	}
	p.serviceListeners = configurator.NewServiceConfigurationListeners(configStore, p.onServiceOverrideChanged)
	providerListener, err := configurator.NewProviderConfigurationListener(configStore, applicationName, p.onProviderOverrideChanged)
	if err != nil {
		return nil, err
	}
	p.providerListener = providerListener
	return p, nil
}

func (p *RegistryProtocol) ext() api.ExtensionRegistry { return p.cfg.ExtensionRegistry }

// Destroy releases the transport plug-in. Live exports and references are
// the caller's responsibility to unexport/destroy first.
func (p *RegistryProtocol) Destroy() {
	p.transport.Destroy()
}

// onProviderOverrideChanged is doOverrideIfNecessary for the application-
// wide listener (spec.md §4.H): every currently active export is affected.
func (p *RegistryProtocol) onProviderOverrideChanged(_ string, _ []configurator.Configurator) {
	for _, st := range p.snapshotExports(func(*exportState) bool { return true }) {
		p.recompute(st)
	}
}

// onServiceOverrideChanged is doOverrideIfNecessary for one service's
// listener: only exports for that service key are affected.
func (p *RegistryProtocol) onServiceOverrideChanged(serviceKey string, _ []configurator.Configurator) {
	for _, st := range p.snapshotExports(func(st *exportState) bool { return st.serviceKey == serviceKey }) {
		p.recompute(st)
	}
}

func (p *RegistryProtocol) snapshotExports(match func(*exportState) bool) []*exportState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*exportState, 0, len(p.exports))
	for st := range p.exports {
		if match(st) {
			out = append(out, st)
		}
	}
	return out
}
