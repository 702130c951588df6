// Package interpreter implements the command language the commissioner CLI
// accepts: tokenizing a line, separating its --nwk/--dom/--export/--import
// selectors from the verb expression, validating the result against the
// fixed command-eligibility tables, and running the expression either
// locally (registry-only commands) or through the Job Manager's
// multi-network fan-out.
package interpreter

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/openthread-go/tncctl/internal/discovery/mdns"
	"github.com/openthread-go/tncctl/internal/jobmanager"
	"github.com/openthread-go/tncctl/internal/registry"
	"github.com/openthread-go/tncctl/internal/session"
	"github.com/openthread-go/tncctl/internal/tncerr"
)

// Value is the result of evaluating one expression. It is the same shape
// the Job Manager already uses, re-exported here so callers never need to
// import jobmanager just to read a result.
type Value = jobmanager.Value

// verbsNeedingSession lists the top-level words that run against a
// network's Session and so must go through the Job Manager's fan-out;
// everything else is answered directly from the Registry.
var verbsNeedingSession = map[string]bool{
	"start": true, "stop": true, "active": true, "sessionid": true,
	"bbrdataset": true, "commdataset": true, "opdataset": true,
	"token": true,
}

// Interpreter ties the Registry, Session pool, and Job Manager together
// behind the command language described above.
type Interpreter struct {
	reg              *registry.Registry
	sessions         *session.Pool
	jm               *jobmanager.Manager
	out              io.Writer
	discoveryIface   *net.Interface
	discoveryTimeout time.Duration
}

// New constructs an Interpreter and installs its evaluator table into jm.
// discoveryTimeout of zero defaults to 3 seconds, matching the config
// package's default scan timeout.
func New(reg *registry.Registry, sessions *session.Pool, jm *jobmanager.Manager, out io.Writer, discoveryIface *net.Interface, discoveryTimeout time.Duration) *Interpreter {
	if discoveryTimeout == 0 {
		discoveryTimeout = 3 * time.Second
	}
	it := &Interpreter{
		reg: reg, sessions: sessions, jm: jm, out: out,
		discoveryIface: discoveryIface, discoveryTimeout: discoveryTimeout,
	}
	jm.SetEvaluators(buildEvaluators())
	return it
}

// buildEvaluators constructs the verb -> Evaluator dispatch table. Every
// entry but "start"/"stop"/"active"/"sessionid" forwards the remaining
// tokens to Session.Invoke verbatim; the interpreter's own parsing has
// already validated the expression's shape against the command tables, so
// Invoke only needs to execute it.
func buildEvaluators() map[string]jobmanager.Evaluator {
	return map[string]jobmanager.Evaluator{
		"start": func(ctx context.Context, sess session.Session, expr []string) Value {
			if err := sess.Start(ctx); err != nil {
				return jobmanager.Failed(err)
			}
			return jobmanager.OK("")
		},
		"stop": func(ctx context.Context, sess session.Session, expr []string) Value {
			if err := sess.Stop(ctx); err != nil {
				return jobmanager.Failed(err)
			}
			return jobmanager.OK("")
		},
		"active": func(ctx context.Context, sess session.Session, expr []string) Value {
			return jobmanager.OK(fmt.Sprintf("%v", sess.IsActive()))
		},
		"sessionid": func(ctx context.Context, sess session.Session, expr []string) Value {
			id, err := sess.SessionID()
			if err != nil {
				return jobmanager.Failed(err)
			}
			return jobmanager.OK(fmt.Sprintf("%d", id))
		},
		"bbrdataset":  invokeEvaluator,
		"commdataset": invokeEvaluator,
		"opdataset":   invokeEvaluator,
		"token":       invokeEvaluator,
	}
}

func invokeEvaluator(ctx context.Context, sess session.Session, expr []string) Value {
	if len(expr) == 0 {
		return jobmanager.Failed(tncerr.New(tncerr.InvalidCommand, "interpreter: empty command"))
	}
	result, err := sess.Invoke(ctx, strings.ToLower(expr[0]), expr[1:])
	if err != nil {
		return jobmanager.Failed(err)
	}
	return jobmanager.OK(result)
}

// Eval runs one line of input, printing its rendered output to the
// Interpreter's writer (unless --export redirected it to a file) and
// returning the same text plus any fatal parse/usage error. A nil error
// with an empty string means the line produced no visible output (e.g.
// "exit").
func (it *Interpreter) Eval(ctx context.Context, line string) (string, error) {
	result, err := it.eval(ctx, line)
	if err != nil {
		return "", err
	}
	if result != "" {
		fmt.Fprintln(it.out, result)
	}
	return result, nil
}

func (it *Interpreter) eval(ctx context.Context, line string) (string, error) {
	tokens := Tokenize(strings.TrimSpace(line))
	if len(tokens) == 0 {
		return "", nil
	}

	parsed, err := ParseExpression(tokens)
	if err != nil {
		return "", err
	}
	if len(parsed.Command) == 0 {
		return "", tncerr.New(tncerr.InvalidCommand, "interpreter: no command given")
	}
	parsed.Command[0] = strings.ToLower(parsed.Command[0])
	verb := parsed.Command[0]

	switch verb {
	case "exit", "quit":
		return "", nil
	case "domain":
		return it.evalDomain(parsed)
	case "network":
		return it.evalNetwork(parsed)
	case "config":
		return it.evalConfig(parsed)
	case "br":
		return it.evalBr(ctx, parsed)
	}

	if !verbsNeedingSession[verb] {
		return "", tncerr.New(tncerr.InvalidCommand, "interpreter: unknown command %q", verb)
	}

	if parsed.HasExport() && !IsExportSupported(parsed.Command) {
		return "", tncerr.New(tncerr.InvalidArgs, "interpreter: %q does not support --export", verb)
	}
	if parsed.HasImport() && !IsImportSupported(parsed.Command) {
		return "", tncerr.New(tncerr.InvalidArgs, "interpreter: %q does not support --import", verb)
	}
	if (parsed.HasNetworkSelector() || parsed.HasDomainSelector()) && !IsMultiNetworkSupported(parsed.Command) {
		return "", tncerr.New(tncerr.InvalidArgs, "interpreter: %q does not support --nwk/--dom", verb)
	}

	xpans, groupAlias, err := it.resolveTargets(parsed)
	if err != nil {
		return "", err
	}
	if len(xpans) > 1 && !IsMultiJobSupported(parsed.Command) {
		return "", tncerr.New(tncerr.InvalidArgs, "interpreter: %q cannot run against more than one network at once", verb)
	}

	if parsed.HasImport() {
		it.jm.SetImportFile(parsed.ImportFile)
	}

	if err := it.jm.PrepareJobs(ctx, parsed.Command, xpans, groupAlias, IsInactiveAllowed(parsed.Command)); err != nil {
		it.jm.CleanupJobs()
		return "", err
	}
	it.jm.RunJobs(ctx)
	result := it.jm.CollectJobsValue()
	it.jm.CleanupJobs()

	if parsed.HasExport() {
		if err := it.export(parsed.ExportFile, result); err != nil {
			return "", err
		}
		return "[done]", nil
	}
	return result, nil
}

// resolveTargets turns the parsed --nwk/--dom selectors (or, absent either,
// the registry's currently selected network) into the list of network
// xpans the command should run against.
func (it *Interpreter) resolveTargets(parsed ParsedExpression) ([]uint64, bool, error) {
	groupAlias := false

	switch {
	case parsed.HasDomainSelector():
		domains, unresolved, err := it.reg.ResolveDomainAliases(parsed.DomainAliases)
		if err != nil {
			return nil, false, err
		}
		for _, u := range unresolved {
			return nil, false, tncerr.New(tncerr.NotFound, "interpreter: domain alias %q not found", u)
		}
		var xpans []uint64
		for _, d := range domains {
			nets, err := it.reg.ListNetworks()
			if err != nil {
				return nil, false, err
			}
			for _, n := range nets {
				if n.DomainID == d.ID {
					xpans = append(xpans, n.ExtPanID)
				}
			}
		}
		return xpans, len(parsed.DomainAliases) == 1 && isGroupAliasToken(parsed.DomainAliases[0]), nil

	case parsed.HasNetworkSelector():
		res, err := it.reg.ResolveNetworkAliases(parsed.NetworkAliases)
		if err != nil {
			return nil, false, err
		}
		for _, u := range res.Unresolved {
			return nil, false, tncerr.New(tncerr.NotFound, "interpreter: network alias %q not found", u)
		}
		xpans := make([]uint64, len(res.Networks))
		for i, n := range res.Networks {
			xpans[i] = n.ExtPanID
		}
		groupAlias = len(parsed.NetworkAliases) == 1 && isGroupAliasToken(parsed.NetworkAliases[0])
		return xpans, groupAlias, nil

	default:
		xpan, ok, err := it.reg.GetCurrentNetworkXpan()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, tncerr.New(tncerr.InvalidState, "interpreter: no network selected")
		}
		return []uint64{xpan}, false, nil
	}
}

// export writes result to path, returning an error only if the write
// itself fails (matching PrintOrExport's "[done]"/"[failed]" convention,
// where the failure reason is reported by the caller on error).
func (it *Interpreter) export(path, result string) error {
	if err := os.WriteFile(path, []byte(result), 0o644); err != nil {
		return tncerr.Wrap(tncerr.IOError, err, "interpreter: export to %s", path)
	}
	return nil
}

// evalBr handles "br list"/"br delete <id>"/"br scan" directly against the
// Registry and the mDNS discovery engine; unlike bbrdataset/commdataset/
// opdataset/token, these never dial a network's Session.
func (it *Interpreter) evalBr(ctx context.Context, parsed ParsedExpression) (string, error) {
	if len(parsed.Command) < 2 {
		return "", tncerr.New(tncerr.InvalidCommand, "interpreter: br: unsupported subcommand")
	}
	switch strings.ToLower(parsed.Command[1]) {
	case "list":
		xpan, ok, err := it.reg.GetCurrentNetworkXpan()
		if err != nil {
			return "", err
		}
		if !ok {
			return "", tncerr.New(tncerr.InvalidState, "interpreter: no network selected")
		}
		nwk, err := it.reg.GetNetworkByXpan(xpan)
		if err != nil {
			return "", err
		}
		brs, err := it.reg.ListBorderRoutersByNetwork(nwk.ID)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for _, br := range brs {
			fmt.Fprintf(&b, "%d: %s\n", br.ID, br.String())
		}
		return b.String(), nil

	case "delete":
		if len(parsed.Command) != 3 {
			return "", tncerr.New(tncerr.InvalidArgs, "interpreter: br delete requires exactly one id")
		}
		id, err := strconv.ParseUint(parsed.Command[2], 10, 64)
		if err != nil {
			return "", tncerr.Wrap(tncerr.BadFormat, err, "interpreter: br delete: invalid id")
		}
		if err := it.reg.DeleteBorderRouterById(id); err != nil {
			return "", err
		}
		return "", nil

	case "scan":
		found, err := mdns.DiscoverOnce(ctx, it.discoveryIface, it.discoveryTimeout)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for _, ba := range found {
			fmt.Fprintf(&b, "%s\n", ba.String())
		}
		result := b.String()
		if parsed.HasExport() {
			if err := it.export(parsed.ExportFile, result); err != nil {
				return "", err
			}
			return "[done]", nil
		}
		return result, nil

	default:
		return "", tncerr.New(tncerr.InvalidCommand, "interpreter: br: unsupported subcommand %q", parsed.Command[1])
	}
}

func (it *Interpreter) evalDomain(parsed ParsedExpression) (string, error) {
	if len(parsed.Command) < 2 || !strings.EqualFold(parsed.Command[1], "list") {
		return "", tncerr.New(tncerr.InvalidCommand, "interpreter: domain: unsupported subcommand")
	}
	domains, err := it.reg.ListDomains()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, d := range domains {
		fmt.Fprintf(&b, "%d: %s\n", d.ID, d.Name)
	}
	return b.String(), nil
}

func (it *Interpreter) evalNetwork(parsed ParsedExpression) (string, error) {
	if len(parsed.Command) < 2 {
		return "", tncerr.New(tncerr.InvalidCommand, "interpreter: network: unsupported subcommand")
	}
	switch strings.ToLower(parsed.Command[1]) {
	case "list":
		nets, err := it.reg.ListNetworks()
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for _, n := range nets {
			fmt.Fprintf(&b, "%016x: %s (pan=0x%04x channel=%d)\n", n.ExtPanID, n.Name, n.PanID, n.Channel)
		}
		return b.String(), nil

	case "select":
		if len(parsed.Command) != 3 {
			return "", tncerr.New(tncerr.InvalidArgs, "interpreter: network select requires exactly one alias")
		}
		if strings.EqualFold(parsed.Command[2], "none") {
			if err := it.reg.ClearCurrentNetwork(); err != nil {
				return "", err
			}
			return "", nil
		}
		res, err := it.reg.ResolveNetworkAliases(parsed.Command[2:3])
		if err != nil {
			return "", err
		}
		if len(res.Networks) != 1 {
			return "", tncerr.New(tncerr.NotFound, "interpreter: network alias %q not found", parsed.Command[2])
		}
		if err := it.reg.SetCurrentNetwork(res.Networks[0].ID); err != nil {
			return "", err
		}
		return "", nil

	default:
		return "", tncerr.New(tncerr.InvalidCommand, "interpreter: network: unsupported subcommand %q", parsed.Command[1])
	}
}

func (it *Interpreter) evalConfig(parsed ParsedExpression) (string, error) {
	if len(parsed.Command) < 2 {
		return "", tncerr.New(tncerr.InvalidCommand, "interpreter: config: unsupported subcommand")
	}
	switch strings.ToLower(parsed.Command[1]) {
	case "get":
		if len(parsed.Command) == 3 && strings.EqualFold(parsed.Command[2], "pskc") {
			return it.jm.GetDefaultPSKcHex(), nil
		}
		return "", tncerr.New(tncerr.InvalidCommand, "interpreter: config get: unsupported key")
	case "set":
		if len(parsed.Command) == 4 && strings.EqualFold(parsed.Command[2], "pskc") {
			pskc, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(parsed.Command[3], "0x"), "0X"))
			if err != nil {
				return "", tncerr.Wrap(tncerr.BadFormat, err, "interpreter: config set pskc")
			}
			if err := it.jm.SetDefaultPSKc(pskc); err != nil {
				return "", err
			}
			return "", nil
		}
		return "", tncerr.New(tncerr.InvalidCommand, "interpreter: config set: unsupported key")
	default:
		return "", tncerr.New(tncerr.InvalidCommand, "interpreter: config: unsupported subcommand %q", parsed.Command[1])
	}
}
