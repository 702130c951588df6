package credentials

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestResolvePrefersDomainOverNetwork(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "domains", "ccm.example", "pskc.bin"), []byte("domain-pskc"))
	writeFile(t, filepath.Join(root, "networks", "0000000000000001", "pskc.bin"), []byte("network-pskc"))

	l := NewLoader(Config{Root: root})
	m, err := l.Resolve("ccm.example", 1, "Home")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if string(m.Pskc) != "domain-pskc" {
		t.Fatalf("expected domain pskc to win, got %q", m.Pskc)
	}
}

func TestResolveFallsBackToNetworkWhenDefaultDomain(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "networks", "0000000000000002", "pskc.bin"), []byte("xpan-pskc"))

	l := NewLoader(Config{Root: root})
	m, err := l.Resolve(DefaultDomainName, 2, "Home")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if string(m.Pskc) != "xpan-pskc" {
		t.Fatalf("expected xpan-keyed network pskc, got %q", m.Pskc)
	}
}

func TestResolveFallsBackToNameWhenXpanMissing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "networks", "Home", "pskc.bin"), []byte("name-pskc"))

	l := NewLoader(Config{Root: root})
	m, err := l.Resolve("", 99, "Home")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if string(m.Pskc) != "name-pskc" {
		t.Fatalf("expected name-keyed network pskc, got %q", m.Pskc)
	}
}

func TestResolveEmptyWhenNothingPresent(t *testing.T) {
	root := t.TempDir()
	l := NewLoader(Config{Root: root})
	m, err := l.Resolve("", 1, "Nope")
	if err != nil {
		t.Fatalf("Resolve should not error on a clean miss: %v", err)
	}
	if m.HasCert() || m.HasPskc() {
		t.Fatalf("expected empty material, got %+v", m)
	}
}
