package registry

import (
	"strconv"
	"strings"

	"github.com/openthread-go/tncctl/internal/tncerr"
)

// AliasResult carries the outcome of resolving a list of network selector
// aliases: the networks that matched, plus any alias tokens that resolved
// to nothing (the caller decides whether unresolved aliases are fatal).
type AliasResult struct {
	Networks   []Network
	Unresolved []string
}

const (
	aliasAll   = "all"
	aliasOther = "other"
	aliasThis  = "this"
)

// isGroupAlias reports whether alias is one of the mutually-exclusive group
// selectors that must appear alone.
func isGroupAlias(a string) bool {
	return a == aliasAll || a == aliasOther || a == aliasThis
}

// ResolveNetworkAliases implements the network selector grammar from the
// interpreter's multi-network syntax: "all", "other", "this", an exact
// network name, an extended PAN ID (decimal or 0x-prefixed hex), or a short
// PAN ID (hex, with or without a leading 0x).
//
// A group alias ("all"/"other"/"this") must be the only alias in the list;
// mixing it with any other selector is a usage error, matching the
// original's VerifyOrExit(aAliases.size() == 1, ...) check.
func (r *Registry) ResolveNetworkAliases(aliases []string) (AliasResult, error) {
	if len(aliases) == 0 {
		return AliasResult{}, tncerr.New(tncerr.InvalidArgs, "registry: no network aliases given")
	}

	for _, a := range aliases {
		if isGroupAlias(a) && len(aliases) != 1 {
			return AliasResult{}, tncerr.New(tncerr.InvalidArgs, "registry: group alias %q must be used alone", a)
		}
	}

	all, err := r.ListNetworks()
	if err != nil {
		return AliasResult{}, err
	}

	switch aliases[0] {
	case aliasAll:
		return AliasResult{Networks: all}, nil

	case aliasThis:
		n, ok, err := r.GetCurrentNetwork()
		if err != nil {
			return AliasResult{}, err
		}
		if !ok {
			return AliasResult{Unresolved: []string{aliasThis}}, nil
		}
		return AliasResult{Networks: []Network{n}}, nil

	case aliasOther:
		cur, ok, err := r.GetCurrentNetwork()
		if err != nil {
			return AliasResult{}, err
		}
		var out []Network
		for _, n := range all {
			if ok && n.ID == cur.ID {
				continue
			}
			out = append(out, n)
		}
		return AliasResult{Networks: out}, nil
	}

	var res AliasResult
	seen := map[uint64]bool{}
	for _, alias := range aliases {
		n, err := r.resolveSingleNetworkAlias(alias, all)
		if err != nil {
			if tncerr.KindOf(err) == tncerr.NotFound {
				res.Unresolved = append(res.Unresolved, alias)
				continue
			}
			return AliasResult{}, err
		}
		if !seen[n.ID] {
			seen[n.ID] = true
			res.Networks = append(res.Networks, n)
		}
	}
	return res, nil
}

// resolveSingleNetworkAlias tries, in order: extended PAN ID (integer
// parse), exact network name, then short PAN ID (hex, auto-prefixed with
// 0x when the alias doesn't already carry it) — the same precedence as
// GetNetworksByAliases in the original registry.
func (r *Registry) resolveSingleNetworkAlias(alias string, all []Network) (Network, error) {
	if xpan, ok := parseXpan(alias); ok {
		for _, n := range all {
			if n.ExtPanID == xpan {
				return n, nil
			}
		}
	}

	for _, n := range all {
		if n.Name == alias {
			return n, nil
		}
	}

	if pan, ok := parsePan(alias); ok {
		for _, n := range all {
			if n.PanID == pan {
				return n, nil
			}
		}
	}

	return Network{}, tncerr.New(tncerr.NotFound, "registry: network alias %q not found", alias)
}

// parseXpan parses an extended PAN ID: hex with an explicit 0x prefix, or a
// plain decimal integer otherwise.
func parseXpan(s string) (uint64, bool) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 64)
		return v, err == nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	return v, err == nil
}

// parsePan parses a short PAN ID, which is always hex; a missing "0x"
// prefix is inserted automatically before parsing, matching the original's
// "alias doesn't already start with 0x" auto-prefix behaviour.
func parsePan(s string) (uint32, bool) {
	hexPart := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		hexPart = s[2:]
	}
	v, err := strconv.ParseUint(hexPart, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// ResolveDomainAliases implements the domain selector grammar: "this"
// resolves via the current network's domain, anything else is matched by
// exact domain name.
func (r *Registry) ResolveDomainAliases(aliases []string) (resolved []Domain, unresolved []string, err error) {
	for _, alias := range aliases {
		if alias == aliasThis {
			n, ok, derr := r.GetCurrentNetwork()
			if derr != nil {
				return nil, nil, derr
			}
			if !ok || n.DomainID == 0 {
				unresolved = append(unresolved, alias)
				continue
			}
			d, derr := r.GetDomain(n.DomainID)
			if derr != nil {
				unresolved = append(unresolved, alias)
				continue
			}
			resolved = append(resolved, d)
			continue
		}

		d, derr := r.GetDomainByName(alias)
		if derr != nil {
			if tncerr.KindOf(derr) == tncerr.NotFound {
				unresolved = append(unresolved, alias)
				continue
			}
			return nil, nil, derr
		}
		resolved = append(resolved, d)
	}
	return resolved, unresolved, nil
}
