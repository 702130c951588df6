package interpreter

import "strings"

// commandPrefix is one entry of a command table: a sequence of verb tokens
// that must match the front of an expression, case-insensitively.
type commandPrefix []string

// The five fixed command tables, transcribed verbatim (verb prefixes only)
// from the original interpreter's static maps.
var (
	multiNetworkSupported = []commandPrefix{
		{"start"},
		{"stop"},
		{"active"},
		{"sessionid"},
		{"bbrdataset", "get"},
		{"commdataset", "get"},
		{"opdataset", "get", "active"},
		{"opdataset", "get", "pending"},
		{"opdataset", "set", "securitypolicy"},
		{"br", "list"},
		{"br", "delete"},
		{"br", "scan"},
		{"domain", "list"},
		{"network", "list"},
		{"token", "request"},
	}

	multiJobSupported = []commandPrefix{
		{"start"},
		{"stop"},
		{"active"},
		{"sessionid"},
		{"bbrdataset", "get"},
		{"commdataset", "get"},
		{"opdataset", "get", "active"},
		{"opdataset", "get", "pending"},
		{"opdataset", "set", "securitypolicy"},
		{"opdataset", "set", "active"},
		{"opdataset", "set", "pending"},
	}

	inactiveAllowed = []commandPrefix{
		{"active"},
		{"token", "request"},
	}

	exportSupported = []commandPrefix{
		{"bbrdataset", "get"},
		{"commdataset", "get"},
		{"opdataset", "get", "active"},
		{"opdataset", "get", "pending"},
		{"br", "scan"},
	}

	importSupported = []commandPrefix{
		{"opdataset", "set", "active"},
		{"opdataset", "set", "pending"},
	}
)

// matches reports whether expr begins with this prefix, case-insensitively,
// mirroring IsFeatureSupported's front-anchored comparison.
func (p commandPrefix) matches(expr []string) bool {
	if len(p) > len(expr) {
		return false
	}
	for i, want := range p {
		if !strings.EqualFold(want, expr[i]) {
			return false
		}
	}
	return true
}

func anyMatches(table []commandPrefix, expr []string) bool {
	for _, p := range table {
		if p.matches(expr) {
			return true
		}
	}
	return false
}

func IsMultiNetworkSupported(expr []string) bool { return anyMatches(multiNetworkSupported, expr) }
func IsMultiJobSupported(expr []string) bool      { return anyMatches(multiJobSupported, expr) }
func IsInactiveAllowed(expr []string) bool        { return anyMatches(inactiveAllowed, expr) }
func IsExportSupported(expr []string) bool        { return anyMatches(exportSupported, expr) }
func IsImportSupported(expr []string) bool        { return anyMatches(importSupported, expr) }
