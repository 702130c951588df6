// Package registry implements the Registry module: a persisted set of
// Domains, Networks, and BorderRouters discovered or manually declared,
// with the alias-resolution and referential-integrity rules the Job Manager
// and interpreter both depend on.
package registry

import "github.com/openthread-go/tncctl/internal/borderagent"

// EmptyID is the all-ones id value of the original's EMPTY_ID convention.
// The stored entities do not use it: an unset id field encodes as 0, and a
// Network with no domain has DomainID 0.
const EmptyID uint64 = ^uint64(0)

// CCM (commercial commissioning mode) tri-state: a network's ccm flag is
// either unset, false, or true — unset is distinct from false because a
// network entry created before its CCM status is known must not be treated
// as "explicitly non-CCM".
type CCM int

const (
	CCMUnset CCM = -1
	CCMFalse CCM = 0
	CCMTrue  CCM = 1
)

// Domain groups zero or more Networks under a shared name (e.g. a CCM
// domain's credential directory is looked up by this name).
type Domain struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// Network is a Thread network identified uniquely by its extended PAN ID.
type Network struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	DomainID   uint64 `json:"domain_id"`
	ExtPanID   uint64 `json:"xpan"`
	Channel    uint32 `json:"channel"`
	PanID      uint32 `json:"pan"`
	MeshPrefix string `json:"mlp"`
	CCM        CCM    `json:"ccm"`
}

// BorderRouter is one BorderAgent instance attached to a Network, keyed by
// the combination of address+port the agent was last seen on.
type BorderRouter struct {
	ID        uint64 `json:"id"`
	NetworkID uint64 `json:"network_id"`
	borderagent.BorderAgent
}

// file is the on-disk JSON shape of the whole store: three flat entity
// tables plus monotonic id counters and the current-network cursor.
type file struct {
	Domains       []Domain       `json:"domains"`
	Networks      []Network      `json:"networks"`
	BorderRouters []BorderRouter `json:"border_routers"`

	NextDomainID       uint64 `json:"next_domain_id"`
	NextNetworkID      uint64 `json:"next_network_id"`
	NextBorderRouterID uint64 `json:"next_border_router_id"`

	// CurrentNetworkID is the interpreter's "selected network" cursor,
	// persisted so a REPL restart resumes the prior selection. It is only
	// meaningful when HasCurrentNetwork is true — network id 0 is a valid
	// id, so a bare uint64 can't double as its own "unset" sentinel.
	CurrentNetworkID  uint64 `json:"current_network_id"`
	HasCurrentNetwork bool   `json:"has_current_network"`
}
