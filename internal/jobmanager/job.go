package jobmanager

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/openthread-go/tncctl/internal/session"
	"github.com/openthread-go/tncctl/internal/tracing"
)

// Evaluator runs one command expression against a Session and returns its
// result. The interpreter supplies one Evaluator per verb eligible for
// job-based (multi-network) execution.
type Evaluator func(ctx context.Context, sess session.Session, expr []string) Value

// Job is one network's share of a multi-network command: it owns the
// network's Session, the command expression to run against it, and the
// goroutine actually doing so. A Job is single-use — once Wait returns,
// its Value is fixed until the Manager discards it via CleanupJobs.
type Job struct {
	xpanID uint64
	sess   session.Session
	expr   []string
	eval   Evaluator

	mu       sync.Mutex
	value    Value
	running  chan struct{}
	cancelFn context.CancelFunc
}

// NewJob constructs a Job bound to one network's Session and expression.
func NewJob(xpanID uint64, sess session.Session, expr []string, eval Evaluator) *Job {
	return &Job{xpanID: xpanID, sess: sess, expr: expr, eval: eval}
}

// Run starts the job's evaluator on its own goroutine. ctx is derived with
// a cancel function Cancel can later trigger.
func (j *Job) Run(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	j.mu.Lock()
	j.cancelFn = cancel
	j.running = make(chan struct{})
	j.mu.Unlock()

	go func() {
		defer close(j.running)
		spanCtx, span := tracing.StartSpan(runCtx, "jobmanager.job",
			trace.WithAttributes(
				tracing.AttrNetworkXpan.String(fmt.Sprintf("%016x", j.xpanID)),
				tracing.AttrVerb.String(j.Verb()),
			),
		)
		defer span.End()

		v := j.eval(spanCtx, j.sess, j.expr)
		if v.Err != nil {
			tracing.RecordError(spanCtx, v.Err)
			span.SetAttributes(tracing.AttrJobOutcome.String("error"))
		} else {
			span.SetAttributes(tracing.AttrJobOutcome.String("success"))
		}
		j.value = v
	}()
}

// Wait blocks until the job's goroutine has finished.
func (j *Job) Wait() {
	j.mu.Lock()
	ch := j.running
	j.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

// Cancel requests the job's in-flight invocation to stop; the evaluator is
// expected to observe ctx cancellation and return promptly. It does not
// block for the job to actually finish — call Wait for that.
func (j *Job) Cancel() {
	j.mu.Lock()
	cancel := j.cancelFn
	j.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// IsStopped reports whether the job's goroutine has finished (or never
// started).
func (j *Job) IsStopped() bool {
	j.mu.Lock()
	ch := j.running
	j.mu.Unlock()
	if ch == nil {
		return true
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (j *Job) Value() Value    { return j.value }
func (j *Job) XpanID() uint64  { return j.xpanID }
func (j *Job) Verb() string {
	if len(j.expr) == 0 {
		return ""
	}
	return strings.ToLower(j.expr[0])
}

// CommandString renders the expression as the user would have typed it,
// for log messages.
func (j *Job) CommandString() string {
	return strings.Join(j.expr, " ")
}
