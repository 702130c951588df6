package session

import (
	"context"
	"sync"

	"github.com/openthread-go/tncctl/internal/tncerr"
)

// Pool tracks at most one live Session per network (keyed by extended PAN
// ID) plus a single default Session used when no network is selected,
// mirroring GetSelectedCommissioner's default-session fallback.
type Pool struct {
	factory Factory

	mu       sync.Mutex
	byXpan   map[uint64]Session
	deflt    Session
	defltCfg Config
}

func NewPool(factory Factory) *Pool {
	return &Pool{factory: factory, byXpan: make(map[uint64]Session)}
}

// GetOrCreate returns the existing Session for xpan, constructing one via
// the factory if none exists yet.
func (p *Pool) GetOrCreate(xpan uint64, cfg Config) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.byXpan[xpan]; ok {
		return s, nil
	}
	s, err := p.factory(cfg)
	if err != nil {
		return nil, tncerr.Wrap(tncerr.IOError, err, "session: create session for xpan %016x", xpan)
	}
	p.byXpan[xpan] = s
	return s, nil
}

// Get returns the existing Session for xpan, if any.
func (p *Pool) Get(xpan uint64) (Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.byXpan[xpan]
	return s, ok
}

// Remove drops the tracked Session for xpan without stopping it — callers
// stop it first, then Remove to forget it.
func (p *Pool) Remove(xpan uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byXpan, xpan)
}

// Default returns the session used when no network is selected, creating
// it from defaultCfg on first use.
func (p *Pool) Default(cfg Config) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deflt != nil {
		return p.deflt, nil
	}
	s, err := p.factory(cfg)
	if err != nil {
		return nil, tncerr.Wrap(tncerr.IOError, err, "session: create default session")
	}
	p.deflt = s
	p.defltCfg = cfg
	return s, nil
}

// SetDefaultPSKc records the PSKc in the pool's stored default config and
// drops the current default session, so the next Default call creates a new
// one from the Config passed to it; it is rejected while the current default
// session is active,
// matching UpdateDefaultConfigPSKc's InvalidState-on-active rule.
func (p *Pool) SetDefaultPSKc(pskc []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deflt != nil && p.deflt.IsActive() {
		return tncerr.New(tncerr.InvalidState, "session: cannot update default PSKc while default session is active")
	}
	p.defltCfg.Pskc = pskc
	p.deflt = nil
	return nil
}

// StopAll stops and forgets every tracked session, including the default
// one, matching StopCommissionerPool's teardown-on-exit behaviour.
func (p *Pool) StopAll(ctx context.Context) []error {
	p.mu.Lock()
	sessions := make([]Session, 0, len(p.byXpan)+1)
	for _, s := range p.byXpan {
		sessions = append(sessions, s)
	}
	if p.deflt != nil {
		sessions = append(sessions, p.deflt)
	}
	p.byXpan = make(map[uint64]Session)
	p.deflt = nil
	p.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Count returns the number of tracked per-network sessions (excluding the
// default session).
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byXpan)
}
