package interpreter

import (
	"strings"

	"github.com/openthread-go/tncctl/internal/tncerr"
)

// ParsedExpression is the result of separating a raw multi-network
// expression into its command portion and its selector/IO flags, mirroring
// ReParseMultiNetworkSyntax in the original interpreter.
type ParsedExpression struct {
	// Command is the verb expression with all --nwk/--dom/--export/--import
	// flags stripped out, leaving verb tokens and any other --KEY values
	// untouched and in original order.
	Command []string

	NetworkAliases []string
	DomainAliases  []string
	ExportFile     string
	ImportFile     string
}

// HasExport reports whether an --export flag was given.
func (p ParsedExpression) HasExport() bool { return p.ExportFile != "" }

// HasImport reports whether an --import flag was given.
func (p ParsedExpression) HasImport() bool { return p.ImportFile != "" }

// HasNetworkSelector reports whether --nwk was given.
func (p ParsedExpression) HasNetworkSelector() bool { return len(p.NetworkAliases) > 0 }

// HasDomainSelector reports whether --dom was given.
func (p ParsedExpression) HasDomainSelector() bool { return len(p.DomainAliases) > 0 }

const (
	flagNetwork = "--nwk"
	flagDomain  = "--dom"
	flagExport  = "--export"
	flagImport  = "--import"
)

// isFlag reports whether tok looks like a "--KEY" flag token.
func isFlag(tok string) bool {
	return strings.HasPrefix(tok, "--") && len(tok) > 2
}

// ParseExpression walks a tokenized expression and splits it into the
// residual command and the --nwk/--dom/--export/--import selectors,
// replicating ReParseMultiNetworkSyntax's state machine. Command key flags
// the interpreter doesn't recognize (any other "--KEY value" pair) are left
// in Command verbatim, since they belong to the individual verb's own
// argument grammar.
func ParseExpression(tokens []string) (ParsedExpression, error) {
	var out ParsedExpression

	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		switch {
		case strings.EqualFold(tok, flagNetwork):
			vals, next, err := collectAliasRun(tokens, i+1)
			if err != nil {
				return ParsedExpression{}, err
			}
			if out.HasDomainSelector() {
				return ParsedExpression{}, tncerr.New(tncerr.InvalidArgs, "interpreter: --nwk and --dom are mutually exclusive")
			}
			if out.HasNetworkSelector() {
				return ParsedExpression{}, tncerr.New(tncerr.InvalidArgs, "interpreter: --nwk given more than once")
			}
			out.NetworkAliases = vals
			i = next

		case strings.EqualFold(tok, flagDomain):
			vals, next, err := collectAliasRun(tokens, i+1)
			if err != nil {
				return ParsedExpression{}, err
			}
			if out.HasNetworkSelector() {
				return ParsedExpression{}, tncerr.New(tncerr.InvalidArgs, "interpreter: --nwk and --dom are mutually exclusive")
			}
			if out.HasDomainSelector() {
				return ParsedExpression{}, tncerr.New(tncerr.InvalidArgs, "interpreter: --dom given more than once")
			}
			out.DomainAliases = vals
			i = next

		case strings.EqualFold(tok, flagExport):
			file, next, err := collectSingleFilename(tokens, i+1, flagExport)
			if err != nil {
				return ParsedExpression{}, err
			}
			if out.HasImport() {
				return ParsedExpression{}, tncerr.New(tncerr.InvalidArgs, "interpreter: --export and --import are mutually exclusive")
			}
			if out.HasExport() {
				return ParsedExpression{}, tncerr.New(tncerr.InvalidArgs, "interpreter: --export given more than once")
			}
			out.ExportFile = file
			i = next

		case strings.EqualFold(tok, flagImport):
			file, next, err := collectSingleFilename(tokens, i+1, flagImport)
			if err != nil {
				return ParsedExpression{}, err
			}
			if out.HasExport() {
				return ParsedExpression{}, tncerr.New(tncerr.InvalidArgs, "interpreter: --export and --import are mutually exclusive")
			}
			if out.HasImport() {
				return ParsedExpression{}, tncerr.New(tncerr.InvalidArgs, "interpreter: --import given more than once")
			}
			out.ImportFile = file
			i = next

		default:
			out.Command = append(out.Command, tok)
			i++
		}
	}

	if len(out.NetworkAliases) > 1 {
		for _, a := range out.NetworkAliases {
			if isGroupAliasToken(a) {
				return ParsedExpression{}, tncerr.New(tncerr.InvalidArgs, "interpreter: group alias %q must be used alone", a)
			}
		}
	}

	return out, nil
}

func isGroupAliasToken(a string) bool {
	return a == "all" || a == "other" || a == "this"
}

// collectAliasRun reads tokens starting at idx up to (but not including) the
// next "--KEY" flag or end of input, treating them all as alias values for
// the flag just consumed. At least one value is required.
func collectAliasRun(tokens []string, idx int) ([]string, int, error) {
	start := idx
	for idx < len(tokens) && !isFlag(tokens[idx]) {
		idx++
	}
	if idx == start {
		return nil, 0, tncerr.New(tncerr.InvalidArgs, "interpreter: flag at position %d requires at least one value", start-1)
	}
	return append([]string(nil), tokens[start:idx]...), idx, nil
}

// collectSingleFilename reads exactly one filename token following a flag
// that permits at most one value.
func collectSingleFilename(tokens []string, idx int, flag string) (string, int, error) {
	if idx >= len(tokens) || isFlag(tokens[idx]) {
		return "", 0, tncerr.New(tncerr.InvalidArgs, "interpreter: %s requires a filename", flag)
	}
	if idx+1 < len(tokens) && !isFlag(tokens[idx+1]) {
		return "", 0, tncerr.New(tncerr.InvalidArgs, "interpreter: %s accepts only one filename", flag)
	}
	return tokens[idx], idx + 1, nil
}
