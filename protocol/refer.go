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
	"reflect"
	"strings"

	"github.com/rulego/rrpc/api"
	"github.com/rulego/rrpc/rpcurl"
)

// parseReferParams decodes a "refer" URL parameter (itself a url-encoded
// query string carrying the consumer-side parameters: group, version,
// cluster, loadbalance, ...) into a plain map, per spec.md §4.G step 3.
func parseReferParams(raw string) (map[string]string, error) {
	out := make(map[string]string)
	if raw == "" {
		return out, nil
	}
	if unescaped, err := url.QueryUnescape(raw); err == nil {
		raw = unescaped
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrInvalidURL, err)
	}
	for k, vs := range values {
		if len(vs) > 0 {
			out[k] = vs[len(vs)-1]
		}
	}
	return out, nil
}

// Refer implements spec.md §4.G's Consumer Refer Pipeline.
func (p *RegistryProtocol) Refer(ifaceType reflect.Type, referURL rpcurl.URL) (api.Invoker, error) {
	registryURL := deriveRegistryURL(referURL, p.cfg.DefaultRegistryProtocol)

	registry, err := p.registries.GetRegistry(registryURL)
	if err != nil {
		return nil, err
	}

	// Escape hatch, spec.md §4.G step 2: referring the registry service
	// itself returns a direct proxy over the registry, skipping directory
	// subscription and cluster composition entirely.
	if referURL.Interface() == registryServiceInterface {
		return &registryServiceInvoker{ifaceType: ifaceType, url: referURL, registry: registry}, nil
	}

	referParams, err := parseReferParams(referURL.Param("refer", ""))
	if err != nil {
		return nil, err
	}

	group := referParams["group"]
	clusterName := referParams["cluster"]
	if strings.Contains(group, ",") || strings.Contains(group, "*") {
		clusterName = "mergeable"
	} else if clusterName == "" {
		clusterName = p.cfg.DefaultCluster
	}

	ifaceName := referParams["interface"]
	if ifaceName == "" {
		ifaceName = ifaceType.Name()
	}
	host := referParams["register.ip"]
	if host == "" {
		host = "0.0.0.0"
	}
	subscribeURL := rpcurl.New("consumer", host, 0, ifaceName, referParams)

	directory := newRegistryDirectory(ifaceType, registryURL, subscribeURL, registry, p.transport, p.ext(), p.cfg, group)

	simplifiedConsumerURL := subscribeURL.WithParams(map[string]string{"category": "consumers", "check": "false"})
	if err := registry.Register(simplifiedConsumerURL); err != nil {
		p.cfg.Logger.Printf("protocol: registering consumer %s failed: %v", simplifiedConsumerURL, err)
	}

	compoundURL := subscribeURL.WithParam("category", "providers,configurators,routers")
	if err := registry.Subscribe(compoundURL, directory); err != nil {
		return nil, err
	}

	clusterExt, err := p.ext().GetExtension("Cluster", clusterName)
	if err != nil {
		return nil, err
	}
	cl, ok := clusterExt.(api.Cluster)
	if !ok {
		return nil, api.ErrExtensionNotFound
	}
	return cl.Join(directory)
}
