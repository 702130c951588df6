package jobmanager

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/openthread-go/tncctl/internal/borderagent"
	"github.com/openthread-go/tncctl/internal/credentials"
	"github.com/openthread-go/tncctl/internal/metrics"
	"github.com/openthread-go/tncctl/internal/registry"
	"github.com/openthread-go/tncctl/internal/session"
)

// fakeSession is an in-memory Session used only by tests.
type fakeSession struct {
	active    bool
	startErr  error
	startHits int
	invokeFn  func(verb string, args []string) (string, error)
}

func (f *fakeSession) Start(ctx context.Context) error {
	f.startHits++
	if f.startErr != nil {
		return f.startErr
	}
	f.active = true
	return nil
}
func (f *fakeSession) Stop(ctx context.Context) error { f.active = false; return nil }
func (f *fakeSession) IsActive() bool                 { return f.active }
func (f *fakeSession) SessionID() (uint16, error)      { return 1, nil }
func (f *fakeSession) Invoke(ctx context.Context, verb string, args []string) (string, error) {
	if f.invokeFn != nil {
		return f.invokeFn(verb, args)
	}
	return "", nil
}

func newTestManager(t *testing.T) (*Manager, *registry.Registry, *session.Pool) {
	t.Helper()
	reg, err := registry.Open(filepath.Join(t.TempDir(), "registry.json"))
	if err != nil {
		t.Fatalf("Open registry: %v", err)
	}
	credLoader := credentials.NewLoader(credentials.Config{Root: t.TempDir()})
	pool := session.NewPool(func(cfg session.Config) (session.Session, error) {
		return &fakeSession{}, nil
	})
	m := New(reg, credLoader, pool, metrics.New())
	return m, reg, pool
}

func TestMakeBorderRouterChoiceSingleBR(t *testing.T) {
	m, reg, _ := newTestManager(t)
	nwk, err := reg.AddNetwork(registry.Network{Name: "Home", ExtPanID: 0xdead, CCM: registry.CCMFalse})
	if err != nil {
		t.Fatalf("AddNetwork: %v", err)
	}
	ba := borderagent.BorderAgent{Addr: "192.0.2.1", Port: 49191}
	if _, err := reg.AddBorderRouter(nwk.ID, ba); err != nil {
		t.Fatalf("AddBorderRouter: %v", err)
	}

	br, err := m.MakeBorderRouterChoice(0xdead)
	if err != nil {
		t.Fatalf("MakeBorderRouterChoice: %v", err)
	}
	if br.Addr != "192.0.2.1" {
		t.Errorf("Addr = %q", br.Addr)
	}
}

func TestMakeBorderRouterChoicePrefersActiveHighAvailability(t *testing.T) {
	m, reg, _ := newTestManager(t)
	nwk, err := reg.AddNetwork(registry.Network{Name: "Home", ExtPanID: 0xbeef, CCM: registry.CCMFalse})
	if err != nil {
		t.Fatalf("AddNetwork: %v", err)
	}

	low := borderagent.BorderAgent{
		Addr: "192.0.2.1", Port: 1,
		State: borderagent.State{ConnectionMode: borderagent.ConnModePSKc, ThreadIfStatus: borderagent.IfStatusInitialized},
	}
	high := borderagent.BorderAgent{
		Addr: "192.0.2.2", Port: 2,
		State: borderagent.State{ConnectionMode: borderagent.ConnModePSKc, ThreadIfStatus: borderagent.IfStatusActive, Availability: borderagent.AvailabilityHigh},
	}
	if _, err := reg.AddBorderRouter(nwk.ID, low); err != nil {
		t.Fatalf("AddBorderRouter low: %v", err)
	}
	if _, err := reg.AddBorderRouter(nwk.ID, high); err != nil {
		t.Fatalf("AddBorderRouter high: %v", err)
	}

	br, err := m.MakeBorderRouterChoice(0xbeef)
	if err != nil {
		t.Fatalf("MakeBorderRouterChoice: %v", err)
	}
	if br.Addr != "192.0.2.2" {
		t.Errorf("expected high-availability BR chosen, got %q", br.Addr)
	}
}

func TestMakeBorderRouterChoiceNoneConnectable(t *testing.T) {
	m, reg, _ := newTestManager(t)
	nwk, err := reg.AddNetwork(registry.Network{Name: "Home", ExtPanID: 0xcafe, CCM: registry.CCMFalse})
	if err != nil {
		t.Fatalf("AddNetwork: %v", err)
	}
	br1 := borderagent.BorderAgent{Addr: "192.0.2.1", Port: 1}
	br2 := borderagent.BorderAgent{Addr: "192.0.2.2", Port: 2}
	if _, err := reg.AddBorderRouter(nwk.ID, br1); err != nil {
		t.Fatalf("AddBorderRouter: %v", err)
	}
	if _, err := reg.AddBorderRouter(nwk.ID, br2); err != nil {
		t.Fatalf("AddBorderRouter: %v", err)
	}

	if _, err := m.MakeBorderRouterChoice(0xcafe); err == nil {
		t.Fatal("expected error, no border router is connectable")
	}
}

func TestCollectJobsValueAggregatesByXpan(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.jobs = []*Job{
		NewJob(0xdead, &fakeSession{}, []string{"opdataset", "active"}, func(ctx context.Context, sess session.Session, expr []string) Value {
			return OK(`{"channel":15}`)
		}),
		NewJob(0xbeef, &fakeSession{}, []string{"stop"}, func(ctx context.Context, sess session.Session, expr []string) Value {
			return OK("")
		}),
	}
	m.RunJobs(context.Background())

	got := m.CollectJobsValue()
	if got == "{}" || got == "" {
		t.Fatalf("expected non-empty aggregate, got %q", got)
	}
}

func TestCleanupJobsAndIsClean(t *testing.T) {
	m, _, _ := newTestManager(t)
	if !m.IsClean() {
		t.Fatal("expected fresh manager to be clean")
	}
	m.jobs = []*Job{NewJob(1, &fakeSession{}, []string{"stop"}, func(ctx context.Context, sess session.Session, expr []string) Value {
		return OK("")
	})}
	m.SetImportFile("import.json")
	if m.IsClean() {
		t.Fatal("expected manager with jobs to be dirty")
	}
	m.CleanupJobs()
	if !m.IsClean() {
		t.Fatal("expected manager to be clean after CleanupJobs")
	}
}

func TestJobCancelStopsEvaluator(t *testing.T) {
	started := make(chan struct{})
	job := NewJob(1, &fakeSession{}, []string{"start"}, func(ctx context.Context, sess session.Session, expr []string) Value {
		close(started)
		<-ctx.Done()
		return Failed(ctx.Err())
	})
	job.Run(context.Background())
	<-started
	job.Cancel()
	job.Wait()

	if job.Value().HasNoError() {
		t.Fatal("expected cancelled job to report an error")
	}
}
