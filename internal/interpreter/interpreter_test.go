package interpreter

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/openthread-go/tncctl/internal/credentials"
	"github.com/openthread-go/tncctl/internal/jobmanager"
	"github.com/openthread-go/tncctl/internal/metrics"
	"github.com/openthread-go/tncctl/internal/registry"
	"github.com/openthread-go/tncctl/internal/session"
)

type fakeSession struct {
	active bool
}

func (f *fakeSession) Start(ctx context.Context) error { f.active = true; return nil }
func (f *fakeSession) Stop(ctx context.Context) error  { f.active = false; return nil }
func (f *fakeSession) IsActive() bool                  { return f.active }
func (f *fakeSession) SessionID() (uint16, error)      { return 7, nil }
func (f *fakeSession) Invoke(ctx context.Context, verb string, args []string) (string, error) {
	return `{"ok":true}`, nil
}

func newTestInterpreter(t *testing.T) (*Interpreter, *registry.Registry, *bytes.Buffer) {
	t.Helper()
	reg, err := registry.Open(filepath.Join(t.TempDir(), "registry.json"))
	if err != nil {
		t.Fatalf("Open registry: %v", err)
	}
	credLoader := credentials.NewLoader(credentials.Config{Root: t.TempDir()})
	pool := session.NewPool(func(cfg session.Config) (session.Session, error) {
		return &fakeSession{}, nil
	})
	jm := jobmanager.New(reg, credLoader, pool, metrics.New())
	var out bytes.Buffer
	it := New(reg, pool, jm, &out, nil, 0)
	return it, reg, &out
}

func TestEvalDomainList(t *testing.T) {
	it, reg, _ := newTestInterpreter(t)
	if _, err := reg.AddDomain("ACME"); err != nil {
		t.Fatalf("AddDomain: %v", err)
	}
	got, err := it.Eval(context.Background(), "domain list")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got == "" {
		t.Error("expected non-empty domain listing")
	}
}

func TestEvalNetworkSelectSetsCurrent(t *testing.T) {
	it, reg, _ := newTestInterpreter(t)
	nwk, err := reg.AddNetwork(registry.Network{Name: "Home", ExtPanID: 0xdead, CCM: registry.CCMFalse})
	if err != nil {
		t.Fatalf("AddNetwork: %v", err)
	}
	if _, err := it.Eval(context.Background(), "network select Home"); err != nil {
		t.Fatalf("network select: %v", err)
	}
	cur, ok, err := reg.GetCurrentNetwork()
	if err != nil || !ok || cur.ID != nwk.ID {
		t.Fatalf("expected Home selected, got %+v ok=%v err=%v", cur, ok, err)
	}
}

func TestEvalUnknownCommand(t *testing.T) {
	it, _, _ := newTestInterpreter(t)
	if _, err := it.Eval(context.Background(), "bogus verb"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestEvalRejectsUnsupportedExport(t *testing.T) {
	it, reg, _ := newTestInterpreter(t)
	if _, err := reg.AddNetwork(registry.Network{Name: "Home", ExtPanID: 0xdead}); err != nil {
		t.Fatalf("AddNetwork: %v", err)
	}
	if err := reg.SetCurrentNetwork(0); err != nil {
		t.Fatalf("SetCurrentNetwork: %v", err)
	}
	if _, err := it.Eval(context.Background(), "start --export out.json"); err == nil {
		t.Fatal("expected error: start does not support --export")
	}
}

func TestEvalConfigPskcRoundTrip(t *testing.T) {
	it, _, _ := newTestInterpreter(t)
	if _, err := it.Eval(context.Background(), "config set pskc 00112233445566778899aabbccddeeff"); err != nil {
		t.Fatalf("config set pskc: %v", err)
	}
	got, err := it.Eval(context.Background(), "config get pskc")
	if err != nil {
		t.Fatalf("config get pskc: %v", err)
	}
	if got != "00112233445566778899aabbccddeeff" {
		t.Errorf("config get pskc = %q", got)
	}
}
