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

package extension_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rulego/rrpc/extension"
)

type pingImpl struct{ tag string }

func (p pingImpl) Ping() string { return p.tag }

type pingWrapper struct {
	inner interface{ Ping() string }
}

func (w pingWrapper) Ping() string { return w.inner.Ping() + "-wrapped" }

func TestLoadDescriptorsResolvesCatalogEntries(t *testing.T) {
	dir := t.TempDir()
	content := "# comment\n\nudp=rrpc.ping.udp\nlogged=rrpc.ping.wrapper\n"
	if err := os.WriteFile(filepath.Join(dir, "Ping"), []byte(content), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}

	reg := extension.NewRegistry(dir)
	reg.RegisterConstructorCatalog("rrpc.ping.udp", func() interface{} { return pingImpl{tag: "udp"} })
	reg.RegisterWrapperCatalog("rrpc.ping.wrapper", func(inner interface{}) interface{} {
		return pingWrapper{inner: inner.(interface{ Ping() string })}
	})

	if err := reg.LoadDescriptors("Ping"); err != nil {
		t.Fatalf("LoadDescriptors: %v", err)
	}

	ext, err := reg.GetExtension("Ping", "udp")
	if err != nil {
		t.Fatalf("GetExtension: %v", err)
	}
	if got := ext.(interface{ Ping() string }).Ping(); got != "udp-wrapped" {
		t.Fatalf("Ping() = %q, want %q", got, "udp-wrapped")
	}
}

func TestLoadDescriptorsMissingDirectoriesAreSkipped(t *testing.T) {
	reg := extension.NewRegistry(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := reg.LoadDescriptors("Ping"); err != nil {
		t.Fatalf("LoadDescriptors on missing dir should be a no-op: %v", err)
	}
}

func TestLoadDescriptorsUnresolvedCatalogKeyIsReported(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Ping"), []byte("x=unknown.catalog.key\n"), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	reg := extension.NewRegistry(dir)
	if err := reg.LoadDescriptors("Ping"); err == nil {
		t.Fatalf("expected an error for an unresolved catalog key")
	}
}

func TestLoadDescriptorsDuplicateNameAcrossDirectoriesIsAnError(t *testing.T) {
	internalDir, publicDir := t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(internalDir, "Ping"), []byte("udp=rrpc.ping.udp\n"), 0o644); err != nil {
		t.Fatalf("write internal descriptor: %v", err)
	}
	if err := os.WriteFile(filepath.Join(publicDir, "Ping"), []byte("udp=rrpc.ping.udp\n"), 0o644); err != nil {
		t.Fatalf("write public descriptor: %v", err)
	}

	reg := extension.NewRegistry(internalDir, publicDir)
	reg.RegisterConstructorCatalog("rrpc.ping.udp", func() interface{} { return pingImpl{tag: "udp"} })

	if err := reg.LoadDescriptors("Ping"); err == nil {
		t.Fatalf("expected redefining \"udp\" in a later directory to be reported as an error")
	}
}
