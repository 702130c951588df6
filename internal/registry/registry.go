package registry

import (
	"sync"

	"github.com/openthread-go/tncctl/internal/borderagent"
	"github.com/openthread-go/tncctl/internal/tncerr"
)

// Registry is the persisted store of Domains, Networks, and BorderRouters.
// A single process-local mutex serializes callers before they even reach
// the cross-process flock in store, so two goroutines in this process never
// race to assign the same next-id.
type Registry struct {
	mu    sync.Mutex
	store *store
}

// Open opens (creating if necessary) the JSON store file at path.
func Open(path string) (*Registry, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	r := &Registry{store: newStore(path)}
	if _, err := r.store.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// --- Domains ---------------------------------------------------------------

func (r *Registry) AddDomain(name string) (Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out Domain
	err := r.store.mutate(func(f *file) error {
		for _, d := range f.Domains {
			if d.Name == name {
				return tncerr.New(tncerr.InvalidState, "registry: domain %q already exists", name)
			}
		}
		// Domain id 0 is reserved to mean "no domain" on Network.DomainID,
		// so the first real domain gets id 1.
		if f.NextDomainID == 0 {
			f.NextDomainID = 1
		}
		out = Domain{ID: f.NextDomainID, Name: name}
		f.Domains = append(f.Domains, out)
		f.NextDomainID++
		return nil
	})
	return out, err
}

func (r *Registry) GetDomain(id uint64) (Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := r.store.load()
	if err != nil {
		return Domain{}, err
	}
	for _, d := range f.Domains {
		if d.ID == id {
			return d, nil
		}
	}
	return Domain{}, tncerr.New(tncerr.NotFound, "registry: domain id %d not found", id)
}

func (r *Registry) GetDomainByName(name string) (Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := r.store.load()
	if err != nil {
		return Domain{}, err
	}
	for _, d := range f.Domains {
		if d.Name == name {
			return d, nil
		}
	}
	return Domain{}, tncerr.New(tncerr.NotFound, "registry: domain %q not found", name)
}

func (r *Registry) ListDomains() ([]Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := r.store.load()
	if err != nil {
		return nil, err
	}
	return append([]Domain{}, f.Domains...), nil
}

// DeleteDomain removes a domain and cascades to every network in it and, in
// turn, every BorderRouter in those networks.
func (r *Registry) DeleteDomain(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.mutate(func(f *file) error {
		found := false
		kept := f.Domains[:0]
		for _, d := range f.Domains {
			if d.ID == id {
				found = true
				continue
			}
			kept = append(kept, d)
		}
		if !found {
			return tncerr.New(tncerr.NotFound, "registry: domain id %d not found", id)
		}
		f.Domains = kept

		var keptNetworks []Network
		var removedNetworkIDs []uint64
		for _, n := range f.Networks {
			if n.DomainID == id {
				removedNetworkIDs = append(removedNetworkIDs, n.ID)
				continue
			}
			keptNetworks = append(keptNetworks, n)
		}
		f.Networks = keptNetworks
		cascadeBorderRouters(f, removedNetworkIDs)
		return nil
	})
}

// --- Networks ----------------------------------------------------------------

func (r *Registry) AddNetwork(n Network) (Network, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out Network
	err := r.store.mutate(func(f *file) error {
		for _, existing := range f.Networks {
			if existing.ExtPanID == n.ExtPanID {
				return tncerr.New(tncerr.InvalidState, "registry: network with xpan %016x already exists", n.ExtPanID)
			}
		}
		if n.DomainID != 0 {
			if !domainExists(f, n.DomainID) {
				return tncerr.New(tncerr.NotFound, "registry: domain id %d not found", n.DomainID)
			}
		}
		n.ID = f.NextNetworkID
		f.NextNetworkID++
		f.Networks = append(f.Networks, n)
		out = n
		return nil
	})
	return out, err
}

func (r *Registry) UpdateNetwork(n Network) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.mutate(func(f *file) error {
		for i := range f.Networks {
			if f.Networks[i].ID == n.ID {
				f.Networks[i] = n
				return nil
			}
		}
		return tncerr.New(tncerr.NotFound, "registry: network id %d not found", n.ID)
	})
}

func (r *Registry) GetNetwork(id uint64) (Network, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := r.store.load()
	if err != nil {
		return Network{}, err
	}
	for _, n := range f.Networks {
		if n.ID == id {
			return n, nil
		}
	}
	return Network{}, tncerr.New(tncerr.NotFound, "registry: network id %d not found", id)
}

func (r *Registry) GetNetworkByXpan(xpan uint64) (Network, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := r.store.load()
	if err != nil {
		return Network{}, err
	}
	for _, n := range f.Networks {
		if n.ExtPanID == xpan {
			return n, nil
		}
	}
	return Network{}, tncerr.New(tncerr.NotFound, "registry: network with xpan %016x not found", xpan)
}

func (r *Registry) GetNetworkByName(name string) (Network, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := r.store.load()
	if err != nil {
		return Network{}, err
	}
	var matches []Network
	for _, n := range f.Networks {
		if n.Name == name {
			matches = append(matches, n)
		}
	}
	switch len(matches) {
	case 0:
		return Network{}, tncerr.New(tncerr.NotFound, "registry: network %q not found", name)
	case 1:
		return matches[0], nil
	default:
		return Network{}, tncerr.New(tncerr.Ambiguity, "registry: network name %q is ambiguous", name)
	}
}

// GetNetworkByPan is a SPEC_FULL addition mirroring the Job Manager's
// lookup-by-short-PAN convenience accessor.
func (r *Registry) GetNetworkByPan(pan uint32) (Network, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := r.store.load()
	if err != nil {
		return Network{}, err
	}
	var matches []Network
	for _, n := range f.Networks {
		if n.PanID == pan {
			matches = append(matches, n)
		}
	}
	switch len(matches) {
	case 0:
		return Network{}, tncerr.New(tncerr.NotFound, "registry: network with pan %04x not found", pan)
	case 1:
		return matches[0], nil
	default:
		return Network{}, tncerr.New(tncerr.Ambiguity, "registry: pan %04x is ambiguous", pan)
	}
}

// GetDomainNameByXpan is a SPEC_FULL addition used by credential resolution
// to find which domain directory governs a given network.
func (r *Registry) GetDomainNameByXpan(xpan uint64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := r.store.load()
	if err != nil {
		return "", err
	}
	for _, n := range f.Networks {
		if n.ExtPanID == xpan {
			if n.DomainID == 0 {
				return "", nil
			}
			for _, d := range f.Domains {
				if d.ID == n.DomainID {
					return d.Name, nil
				}
			}
			return "", tncerr.New(tncerr.RegistryError, "registry: network %016x references missing domain %d", xpan, n.DomainID)
		}
	}
	return "", tncerr.New(tncerr.NotFound, "registry: network with xpan %016x not found", xpan)
}

func (r *Registry) ListNetworks() ([]Network, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := r.store.load()
	if err != nil {
		return nil, err
	}
	return append([]Network{}, f.Networks...), nil
}

// DeleteNetwork removes a network and cascades to its BorderRouters.
// Deleting the currently selected network is refused as Restricted — the
// operator must deselect it first (or use ClearCurrentNetwork).
func (r *Registry) DeleteNetwork(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.mutate(func(f *file) error {
		if !networkExists(f, id) {
			return tncerr.New(tncerr.NotFound, "registry: network id %d not found", id)
		}
		if f.HasCurrentNetwork && f.CurrentNetworkID == id {
			return tncerr.New(tncerr.Restricted, "registry: cannot delete the currently selected network")
		}

		kept := f.Networks[:0]
		for _, n := range f.Networks {
			if n.ID == id {
				continue
			}
			kept = append(kept, n)
		}
		f.Networks = kept
		cascadeBorderRouters(f, []uint64{id})
		return nil
	})
}

// --- Current network cursor ------------------------------------------------

func (r *Registry) SetCurrentNetwork(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.mutate(func(f *file) error {
		if !networkExists(f, id) {
			return tncerr.New(tncerr.NotFound, "registry: network id %d not found", id)
		}
		f.CurrentNetworkID = id
		f.HasCurrentNetwork = true
		return nil
	})
}

// ClearCurrentNetwork drops the selected-network cursor (e.g. on `network select none`).
func (r *Registry) ClearCurrentNetwork() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.mutate(func(f *file) error {
		f.HasCurrentNetwork = false
		f.CurrentNetworkID = 0
		return nil
	})
}

func (r *Registry) GetCurrentNetwork() (Network, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := r.store.load()
	if err != nil {
		return Network{}, false, err
	}
	if !f.HasCurrentNetwork {
		return Network{}, false, nil
	}
	for _, n := range f.Networks {
		if n.ID == f.CurrentNetworkID {
			return n, true, nil
		}
	}
	return Network{}, false, nil
}

func (r *Registry) GetCurrentNetworkXpan() (uint64, bool, error) {
	n, ok, err := r.GetCurrentNetwork()
	if err != nil || !ok {
		return 0, ok, err
	}
	return n.ExtPanID, true, nil
}

// --- Border routers ----------------------------------------------------------

// Add ingests a BorderAgent record, auto-materializing its parent Domain
// (by ba.DomainName) and Network (by ba.ExtendedPanID/ba.NetworkName) if
// they do not yet exist, then inserts or updates the BorderRouter keyed by
// (network, address, port) — a second Add for the same key updates the
// existing row in place rather than duplicating it.
func (r *Registry) Add(ba borderagent.BorderAgent) (BorderRouter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out BorderRouter
	err := r.store.mutate(func(f *file) error {
		var domainID uint64
		if ba.DomainName != "" {
			for _, d := range f.Domains {
				if d.Name == ba.DomainName {
					domainID = d.ID
					break
				}
			}
			if domainID == 0 {
				if f.NextDomainID == 0 {
					f.NextDomainID = 1
				}
				d := Domain{ID: f.NextDomainID, Name: ba.DomainName}
				f.Domains = append(f.Domains, d)
				f.NextDomainID++
				domainID = d.ID
			}
		}

		var networkID uint64
		netFound := false
		for i, n := range f.Networks {
			if n.ExtPanID == ba.ExtendedPanID {
				networkID, netFound = n.ID, true
				if domainID != 0 && n.DomainID != domainID {
					f.Networks[i].DomainID = domainID
				}
				break
			}
		}
		if !netFound {
			n := Network{ID: f.NextNetworkID, Name: ba.NetworkName, ExtPanID: ba.ExtendedPanID, DomainID: domainID}
			f.NextNetworkID++
			f.Networks = append(f.Networks, n)
			networkID = n.ID
		}

		for i, br := range f.BorderRouters {
			if br.NetworkID == networkID && br.Addr == ba.Addr && br.Port == ba.Port {
				br.BorderAgent = ba
				f.BorderRouters[i] = br
				out = br
				return nil
			}
		}
		out = BorderRouter{ID: f.NextBorderRouterID, NetworkID: networkID, BorderAgent: ba}
		f.NextBorderRouterID++
		f.BorderRouters = append(f.BorderRouters, out)
		return nil
	})
	return out, err
}

func (r *Registry) AddBorderRouter(networkID uint64, ba borderagent.BorderAgent) (BorderRouter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out BorderRouter
	err := r.store.mutate(func(f *file) error {
		if !networkExists(f, networkID) {
			return tncerr.New(tncerr.NotFound, "registry: network id %d not found", networkID)
		}
		for i, br := range f.BorderRouters {
			if br.NetworkID == networkID && br.Addr == ba.Addr && br.Port == ba.Port {
				br.BorderAgent = ba
				f.BorderRouters[i] = br
				out = br
				return nil
			}
		}
		out = BorderRouter{ID: f.NextBorderRouterID, NetworkID: networkID, BorderAgent: ba}
		f.NextBorderRouterID++
		f.BorderRouters = append(f.BorderRouters, out)
		return nil
	})
	return out, err
}

func (r *Registry) GetBorderRouter(id uint64) (BorderRouter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := r.store.load()
	if err != nil {
		return BorderRouter{}, err
	}
	for _, br := range f.BorderRouters {
		if br.ID == id {
			return br, nil
		}
	}
	return BorderRouter{}, tncerr.New(tncerr.NotFound, "registry: border router id %d not found", id)
}

func (r *Registry) ListBorderRoutersByNetwork(networkID uint64) ([]BorderRouter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := r.store.load()
	if err != nil {
		return nil, err
	}
	var out []BorderRouter
	for _, br := range f.BorderRouters {
		if br.NetworkID == networkID {
			out = append(out, br)
		}
	}
	return out, nil
}

// DeleteBorderRouterById removes one BorderRouter by id. If it was the last
// BorderRouter of its Network, the Network is also deleted (and, if that
// Network was in turn the last one in its Domain, the Domain too) per the
// "router -> network -> domain" cascade-on-empty invariant. The delete is
// refused as Restricted when it would empty the currently selected
// Network — the operator must deselect it first.
func (r *Registry) DeleteBorderRouterById(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.mutate(func(f *file) error {
		idx := -1
		for i, br := range f.BorderRouters {
			if br.ID == id {
				idx = i
				break
			}
		}
		if idx == -1 {
			return tncerr.New(tncerr.NotFound, "registry: border router id %d not found", id)
		}
		networkID := f.BorderRouters[idx].NetworkID

		remaining := 0
		for _, br := range f.BorderRouters {
			if br.NetworkID == networkID && br.ID != id {
				remaining++
			}
		}
		emptiesNetwork := remaining == 0
		if emptiesNetwork && f.HasCurrentNetwork && f.CurrentNetworkID == networkID {
			return tncerr.New(tncerr.Restricted, "registry: cannot delete the last border router of the currently selected network")
		}

		f.BorderRouters = append(f.BorderRouters[:idx], f.BorderRouters[idx+1:]...)
		if !emptiesNetwork {
			return nil
		}

		netIdx, domainID := -1, uint64(0)
		for i, n := range f.Networks {
			if n.ID == networkID {
				netIdx, domainID = i, n.DomainID
				break
			}
		}
		if netIdx == -1 {
			return nil
		}
		f.Networks = append(f.Networks[:netIdx], f.Networks[netIdx+1:]...)
		if f.HasCurrentNetwork && f.CurrentNetworkID == networkID {
			f.HasCurrentNetwork = false
			f.CurrentNetworkID = 0
		}
		if domainID == 0 {
			return nil
		}
		for _, n := range f.Networks {
			if n.DomainID == domainID {
				return nil
			}
		}
		kept := f.Domains[:0]
		for _, d := range f.Domains {
			if d.ID != domainID {
				kept = append(kept, d)
			}
		}
		f.Domains = kept
		return nil
	})
}

// DeleteBorderRoutersInNetwork removes all BorderRouters for one network.
func (r *Registry) DeleteBorderRoutersInNetwork(networkID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.mutate(func(f *file) error {
		cascadeBorderRouters(f, []uint64{networkID})
		return nil
	})
}

// DeleteBorderRoutersInDomain removes all BorderRouters belonging to any
// network in the given domain.
func (r *Registry) DeleteBorderRoutersInDomain(domainID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.mutate(func(f *file) error {
		var ids []uint64
		for _, n := range f.Networks {
			if n.DomainID == domainID {
				ids = append(ids, n.ID)
			}
		}
		cascadeBorderRouters(f, ids)
		return nil
	})
}

// --- helpers -----------------------------------------------------------------

func cascadeBorderRouters(f *file, networkIDs []uint64) {
	if len(networkIDs) == 0 {
		return
	}
	remove := make(map[uint64]bool, len(networkIDs))
	for _, id := range networkIDs {
		remove[id] = true
	}
	kept := f.BorderRouters[:0]
	for _, br := range f.BorderRouters {
		if remove[br.NetworkID] {
			continue
		}
		kept = append(kept, br)
	}
	f.BorderRouters = kept
}

func domainExists(f *file, id uint64) bool {
	for _, d := range f.Domains {
		if d.ID == id {
			return true
		}
	}
	return false
}

func networkExists(f *file, id uint64) bool {
	for _, n := range f.Networks {
		if n.ID == id {
			return true
		}
	}
	return false
}
