// Package jobmanager fans a single interpreter expression out across every
// network a multi-network command selected, running one Job per network
// concurrently against that network's Session and aggregating the results
// back into one JSON value.
package jobmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openthread-go/tncctl/internal/borderagent"
	"github.com/openthread-go/tncctl/internal/credentials"
	"github.com/openthread-go/tncctl/internal/metrics"
	"github.com/openthread-go/tncctl/internal/registry"
	"github.com/openthread-go/tncctl/internal/resilience"
	"github.com/openthread-go/tncctl/internal/session"
	"github.com/openthread-go/tncctl/internal/tncerr"
	"github.com/openthread-go/tncctl/internal/tracing"
)

// Severity classifies a message the Manager reports about one network
// during fan-out, mirroring PrintNetworkMessage's color-coded levels.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// NetworkMessage is one per-network diagnostic emitted while preparing or
// collecting jobs (e.g. "not started", "incomplete DTLS configuration").
type NetworkMessage struct {
	XpanID   uint64
	Severity Severity
	Text     string
}

// MessageSink receives NetworkMessages as they occur. Nothing in this module
// installs one; without a sink, messages go only to the zerolog log.
type MessageSink interface {
	PrintNetworkMessage(NetworkMessage)
}

// Manager owns the job pool, the per-network Session pool, and the glue
// that resolves credentials and picks a BorderRouter before starting a
// network's Session.
type Manager struct {
	reg        *registry.Registry
	credLoader *credentials.Loader
	sessions   *session.Pool
	metrics    *metrics.Metrics
	circuits   *resilience.CircuitManager
	retryCfg   resilience.RetryConfig
	sink       MessageSink

	defaultCfg session.Config
	importFile string
	evaluators map[string]Evaluator
	jobs       []*Job
}

// New constructs a Manager. sessions must be backed by a real Session
// Factory; metrics/circuits may be the package defaults.
func New(reg *registry.Registry, credLoader *credentials.Loader, sessions *session.Pool, m *metrics.Metrics) *Manager {
	return &Manager{
		reg:        reg,
		credLoader: credLoader,
		sessions:   sessions,
		metrics:    m,
		circuits:   resilience.NewCircuitManager(resilience.DefaultCircuitConfig()),
		retryCfg:   resilience.DefaultRetryConfig(),
		evaluators: make(map[string]Evaluator),
	}
}

// SetSink installs the message sink used for per-network diagnostics.
func (m *Manager) SetSink(sink MessageSink) { m.sink = sink }

// SetEvaluators installs the verb -> Evaluator dispatch table; the
// interpreter owns the table's contents since it alone knows which verbs
// are job-eligible.
func (m *Manager) SetEvaluators(table map[string]Evaluator) { m.evaluators = table }

// SetDefaultConfig installs the Session Config template used for networks
// with no network-specific credential override and for the default
// (no-network-selected) Session.
func (m *Manager) SetDefaultConfig(cfg session.Config) { m.defaultCfg = cfg }

func (m *Manager) SetImportFile(path string) { m.importFile = path }

func (m *Manager) msg(xpan uint64, sev Severity, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	switch sev {
	case SeverityError:
		log.Error().Uint64("xpan", xpan).Msg(text)
	case SeverityWarning:
		log.Warn().Uint64("xpan", xpan).Msg(text)
	default:
		log.Info().Uint64("xpan", xpan).Msg(text)
	}
	if m.sink != nil {
		m.sink.PrintNetworkMessage(NetworkMessage{XpanID: xpan, Severity: sev, Text: text})
	}
}

func (m *Manager) errorMsg(xpan uint64, format string, args ...any)   { m.msg(xpan, SeverityError, format, args...) }
func (m *Manager) warningMsg(xpan uint64, format string, args ...any) { m.msg(xpan, SeverityWarning, format, args...) }
func (m *Manager) infoMsg(xpan uint64, format string, args ...any)    { m.msg(xpan, SeverityInfo, format, args...) }

// --- preparing jobs ----------------------------------------------------------

// PrepareJobs builds the job pool for one multi-network command. verb must
// already be lower-cased by the caller (the interpreter owns case-folding
// for the whole expression). inactiveAllowed reflects whether the
// interpreter's command table permits this verb to run against a network
// whose Session isn't active yet.
func (m *Manager) PrepareJobs(ctx context.Context, expr []string, xpans []uint64, groupAlias, inactiveAllowed bool) error {
	if len(expr) == 0 {
		return tncerr.New(tncerr.InvalidCommand, "jobmanager: empty expression")
	}
	verb := expr[0]
	switch verb {
	case "start":
		return m.prepareStartJobs(ctx, expr, xpans, groupAlias)
	case "stop":
		return m.prepareStopJobs(expr, xpans, groupAlias)
	}

	eval, ok := m.evaluators[verb]
	if !ok {
		return tncerr.New(tncerr.InvalidCommand, "jobmanager: %q not eligible for job", verb)
	}

	for _, xpan := range xpans {
		sess, ok := m.sessions.Get(xpan)
		if !ok {
			if !groupAlias {
				m.warningMsg(xpan, "not started")
			}
			continue
		}
		if !inactiveAllowed && !sess.IsActive() {
			if !groupAlias {
				m.warningMsg(xpan, "not started")
			}
			continue
		}

		jobExpr := append([]string(nil), expr...)
		if m.importFile != "" {
			imported, err := m.appendImport(xpan, jobExpr)
			if err != nil {
				m.errorMsg(xpan, "%s", err)
				continue
			}
			jobExpr = imported
		}
		m.createJob(sess, jobExpr, xpan, eval)
	}
	return nil
}

func (m *Manager) prepareStartJobs(ctx context.Context, expr []string, xpans []uint64, groupAlias bool) error {
	eval, ok := m.evaluators["start"]
	if !ok {
		return tncerr.New(tncerr.InvalidCommand, "jobmanager: \"start\" not eligible for job")
	}
	if len(expr) != 1 {
		return tncerr.New(tncerr.InvalidArgs, "jobmanager: multi-network start takes no extra arguments")
	}

	for _, xpan := range xpans {
		if sess, ok := m.sessions.Get(xpan); ok && sess.IsActive() {
			if !groupAlias {
				m.infoMsg(xpan, "already started")
			}
			continue
		}

		br, err := m.MakeBorderRouterChoice(xpan)
		if err != nil {
			m.errorMsg(xpan, "%s", err)
			continue
		}

		cfg, err := m.prepareDtlsConfig(xpan, m.defaultCfg)
		if err != nil {
			m.errorMsg(xpan, "%s", err)
			continue
		}
		cfg.BorderAgentAddr = br.Addr
		cfg.BorderAgentPort = br.Port

		sess, err := m.sessions.GetOrCreate(xpan, cfg)
		if err != nil {
			return err
		}

		job := NewJob(xpan, sess, []string{"start"}, retryableStart(eval, m.retryCfg, m.circuits, m.circuitFor(xpan)))
		m.jobs = append(m.jobs, job)
		if m.metrics != nil {
			m.metrics.SetCircuitState(m.circuitFor(xpan), circuitStateOrdinal(m.circuits.GetState(m.circuitFor(xpan))))
		}
	}
	return nil
}

func (m *Manager) prepareStopJobs(expr []string, xpans []uint64, groupAlias bool) error {
	eval, ok := m.evaluators["stop"]
	if !ok {
		return tncerr.New(tncerr.InvalidCommand, "jobmanager: \"stop\" not eligible for job")
	}

	for _, xpan := range xpans {
		sess, ok := m.sessions.Get(xpan)
		if !ok {
			if !groupAlias {
				m.warningMsg(xpan, "not known to be started")
			}
			continue
		}
		if !sess.IsActive() {
			if !groupAlias {
				m.infoMsg(xpan, "already stopped")
			}
			continue
		}
		m.createJob(sess, expr, xpan, eval)
	}
	return nil
}

func (m *Manager) createJob(sess session.Session, expr []string, xpan uint64, eval Evaluator) {
	m.jobs = append(m.jobs, NewJob(xpan, sess, expr, eval))
}

// circuitFor keys the circuit breaker by the network's xpan in hex, one
// breaker per network, matching the Registry's own network identity.
func (m *Manager) circuitFor(xpan uint64) string {
	return fmt.Sprintf("%016x", xpan)
}

// retryableStart wraps eval so only the initial Start handshake retries
// with backoff and trips a per-network circuit breaker; every other verb
// runs exactly once, since re-invoking a mutating verb like "opdataset
// set" on retry could double-apply it.
func retryableStart(eval Evaluator, cfg resilience.RetryConfig, circuits *resilience.CircuitManager, circuitKey string) Evaluator {
	return func(ctx context.Context, sess session.Session, expr []string) Value {
		var result Value
		_, err := circuits.Execute(circuitKey, func() (interface{}, error) {
			return nil, resilience.Retry(ctx, cfg, func() error {
				result = eval(ctx, sess, expr)
				return result.Err
			})
		})
		if err != nil {
			return Failed(err)
		}
		return result
	}
}

// circuitStateOrdinal maps a CircuitManager's string state to the numeric
// gauge value the metrics package expects.
func circuitStateOrdinal(s resilience.CircuitState) metrics.CircuitStateValue {
	switch s {
	case resilience.CircuitHalfOpen:
		return metrics.CircuitStateHalfOpen
	case resilience.CircuitOpen:
		return metrics.CircuitStateOpen
	default:
		return metrics.CircuitStateClosed
	}
}

// --- credential resolution ---------------------------------------------------

// prepareDtlsConfig builds a per-network Session Config, resolving which
// credential material the network's BorderRouters actually require and
// where it is found on disk.
func (m *Manager) prepareDtlsConfig(xpan uint64, base session.Config) (session.Config, error) {
	nwk, err := m.reg.GetNetworkByXpan(xpan)
	if err != nil {
		return session.Config{}, tncerr.New(tncerr.NotFound, "jobmanager: network not found by xpan %016x", xpan)
	}

	brs, err := m.reg.ListBorderRoutersByNetwork(nwk.ID)
	if err != nil {
		return session.Config{}, tncerr.Wrap(tncerr.RegistryError, err, "jobmanager: border router lookup failed")
	}

	var needCert, needPskc bool
	for _, br := range brs {
		switch br.State.ConnectionMode {
		case borderagent.ConnModeVendor, borderagent.ConnModeX509:
			needCert = true
		}
		switch br.State.ConnectionMode {
		case borderagent.ConnModeVendor, borderagent.ConnModePSKc:
			needPskc = true
		}
	}

	domainName, err := m.reg.GetDomainNameByXpan(xpan)
	if err != nil {
		log.Debug().Uint64("xpan", xpan).Err(err).Msg("jobmanager: domain resolution failed")
	}

	cfg := base
	cfg.BorderAgentAddr = ""
	cfg.BorderAgentPort = 0

	if !needCert && !needPskc {
		return cfg, nil
	}

	mat, err := m.credLoader.Resolve(domainName, xpan, nwk.Name)
	if err != nil && tncerr.KindOf(err) != tncerr.NotFound {
		return session.Config{}, err
	}
	if mat.HasCert() {
		cfg.Cert = mat.Cert
		cfg.Key = mat.Key
	}
	if mat.HasPskc() {
		cfg.Pskc = mat.Pskc
	}

	isCCM := nwk.CCM == registry.CCMTrue
	if (needCert && !cfg.HasCredential()) || (needCert && isCCM && len(cfg.Cert) == 0) {
		return session.Config{}, tncerr.New(tncerr.Security, "jobmanager: incomplete DTLS configuration for network %016x (%q)", xpan, nwk.Name)
	}
	if needPskc && !isCCM && len(cfg.Pskc) == 0 && len(cfg.Cert) == 0 {
		return session.Config{}, tncerr.New(tncerr.Security, "jobmanager: incomplete DTLS configuration for network %016x (%q)", xpan, nwk.Name)
	}
	return cfg, nil
}

// MakeBorderRouterChoice picks which of a network's known BorderRouters to
// dial. A single known BorderRouter is chosen outright; otherwise a CCM
// network prefers an active, connectable Primary BBR, falling back to any
// active connectable BBR, while a standalone network considers every
// connectable BorderRouter. The final triage favors high availability, then
// an active Thread interface, then merely an initialized one.
func (m *Manager) MakeBorderRouterChoice(xpan uint64) (registry.BorderRouter, error) {
	nwk, err := m.reg.GetNetworkByXpan(xpan)
	if err != nil {
		return registry.BorderRouter{}, tncerr.New(tncerr.NotFound, "jobmanager: network not found by xpan %016x", xpan)
	}
	brs, err := m.reg.ListBorderRoutersByNetwork(nwk.ID)
	if err != nil {
		return registry.BorderRouter{}, tncerr.Wrap(tncerr.RegistryError, err, "jobmanager: border router lookup failed")
	}
	if len(brs) == 0 {
		return registry.BorderRouter{}, tncerr.New(tncerr.NotFound, "jobmanager: no border routers known for network %016x", xpan)
	}
	if len(brs) == 1 {
		return brs[0], nil
	}

	var choice []registry.BorderRouter
	if nwk.CCM == registry.CCMTrue {
		for _, br := range brs {
			if br.State.BbrIsPrimary && br.State.ConnectionMode > borderagent.ConnModeDisabled &&
				br.State.BbrIsActive && br.State.ThreadIfStatus > borderagent.IfStatusNotInitialized {
				return br, nil
			}
		}
		for _, br := range brs {
			if br.State.BbrIsActive && br.State.ConnectionMode > borderagent.ConnModeDisabled {
				choice = append(choice, br)
			}
		}
	} else {
		for _, br := range brs {
			if br.State.ConnectionMode > borderagent.ConnModeDisabled {
				choice = append(choice, br)
			}
		}
	}

	for _, br := range choice {
		if br.State.ThreadIfStatus == borderagent.IfStatusActive && br.State.Availability == borderagent.AvailabilityHigh {
			return br, nil
		}
	}
	for _, br := range choice {
		if br.State.ThreadIfStatus == borderagent.IfStatusActive {
			return br, nil
		}
	}
	for _, br := range choice {
		if br.State.ThreadIfStatus >= borderagent.IfStatusInitialized {
			return br, nil
		}
	}
	return registry.BorderRouter{}, tncerr.New(tncerr.NotFound, "jobmanager: no active border router found for network %016x", xpan)
}

// --- import file --------------------------------------------------------------

// appendImport loads the per-network (or, for single-command runs, the
// whole-file) JSON value from the import file and appends it as the
// expression's trailing argument. It only locates the right slice of the
// import document; neither jobmanager nor the interpreter checks that the
// imported text decodes into the dataset the verb expects.
func (m *Manager) appendImport(xpan uint64, expr []string) ([]string, error) {
	raw, err := os.ReadFile(m.importFile)
	if err != nil {
		return nil, tncerr.Wrap(tncerr.IOError, err, "jobmanager: read import file %s", m.importFile)
	}

	var doc map[string]json.RawMessage
	var value json.RawMessage
	if xpan == 0 {
		value = raw
	} else if err := json.Unmarshal(raw, &doc); err == nil {
		key := fmt.Sprintf("%016x", xpan)
		if v, ok := doc[key]; ok {
			value = v
		} else {
			value = raw
		}
	} else {
		value = raw
	}

	out := append([]string(nil), expr...)
	out = append(out, string(value))
	return out, nil
}

// --- running, cancelling, collecting -----------------------------------------

// RunJobs starts every prepared job and blocks until all have finished.
func (m *Manager) RunJobs(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "jobmanager.run_jobs",
		trace.WithAttributes(attribute.Int("tncctl.job_count", len(m.jobs))),
	)
	defer span.End()

	for _, job := range m.jobs {
		job.Run(ctx)
	}
	m.WaitForJobs()
}

// CancelCommand requests every running job to stop and waits for them, then
// stops the currently selected network's Session if it is not active. An
// active selected Session is left as it is.
func (m *Manager) CancelCommand(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "jobmanager.cancel_command")
	defer span.End()

	for _, job := range m.jobs {
		job.Cancel()
	}
	m.WaitForJobs()

	sess, err := m.GetSelectedSession(ctx)
	if err != nil {
		tracing.RecordError(ctx, err)
		return
	}
	if !sess.IsActive() {
		_ = sess.Stop(ctx)
	}
}

// WaitForJobs blocks until every job's goroutine has finished.
func (m *Manager) WaitForJobs() {
	for _, job := range m.jobs {
		job.Wait()
	}
}

// CollectJobsValue aggregates every finished job's Value into a single JSON
// object keyed by the network's xpan in hex, recording job metrics along
// the way. Call after RunJobs/WaitForJobs.
func (m *Manager) CollectJobsValue() string {
	out := make(map[string]json.RawMessage, len(m.jobs))
	for _, job := range m.jobs {
		v := job.Value()
		outcome := metrics.JobSuccess
		if v.HasNoError() {
			var parsed json.RawMessage
			if err := json.Unmarshal([]byte(v.JSON), &parsed); err != nil {
				m.errorMsg(job.XpanID(), "%s", err)
				outcome = metrics.JobError
			} else {
				out[fmt.Sprintf("%016x", job.XpanID())] = parsed
			}
		} else {
			m.errorMsg(job.XpanID(), "%s", v.Err)
			outcome = metrics.JobError
			if tncerr.KindOf(v.Err) == tncerr.Timeout {
				outcome = metrics.JobTimeout
			}
		}
		if m.metrics != nil {
			m.metrics.RecordJob(job.Verb(), outcome, 0)
		}
	}
	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

// CleanupJobs discards the prepared job pool and any import file selection,
// readying the Manager for the next command.
func (m *Manager) CleanupJobs() {
	m.jobs = nil
	m.importFile = ""
}

// IsClean reports whether the Manager is ready for the next command: no
// leftover jobs and no pending import file selection.
func (m *Manager) IsClean() bool {
	return len(m.jobs) == 0 && m.importFile == ""
}

// --- selected-network session -------------------------------------------------

// GetSelectedSession returns the Session for the registry's currently
// selected network, creating it (with resolved credentials) on first use,
// or the pool's default Session if no network is selected.
func (m *Manager) GetSelectedSession(ctx context.Context) (session.Session, error) {
	xpan, ok, err := m.reg.GetCurrentNetworkXpan()
	if err != nil {
		return nil, tncerr.Wrap(tncerr.RegistryError, err, "jobmanager: getting selected network failed")
	}
	if !ok {
		return m.sessions.Default(m.defaultCfg)
	}
	if sess, ok := m.sessions.Get(xpan); ok {
		return sess, nil
	}
	cfg, err := m.prepareDtlsConfig(xpan, m.defaultCfg)
	if err != nil {
		return nil, err
	}
	return m.sessions.GetOrCreate(xpan, cfg)
}

// SetDefaultPSKc updates the default Session's PSKc, refusing while that
// Session is active.
func (m *Manager) SetDefaultPSKc(pskc []byte) error {
	if err := m.sessions.SetDefaultPSKc(pskc); err != nil {
		return err
	}
	m.defaultCfg.Pskc = pskc
	return nil
}

// GetDefaultPSKcHex reads the default Session's configured PSKc, for the
// `config get pskc` command.
func (m *Manager) GetDefaultPSKcHex() string {
	return fmt.Sprintf("%x", m.defaultCfg.Pskc)
}

// StopAllSessions stops and forgets every tracked Session, including the
// default one.
func (m *Manager) StopAllSessions(ctx context.Context) []error {
	return m.sessions.StopAll(ctx)
}
