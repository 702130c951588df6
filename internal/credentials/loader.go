package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"

	"github.com/openthread-go/tncctl/internal/tncerr"
)

// Material is the raw credential bytes for one network or domain. A
// credential is considered present if its byte slice is non-empty — the Job
// Manager never inspects the contents, only whether something could be
// loaded.
type Material struct {
	Cert []byte
	Key  []byte
	Pskc []byte
}

// HasCert reports whether a usable cert/key pair was loaded.
func (m Material) HasCert() bool { return len(m.Cert) > 0 && len(m.Key) > 0 }

// HasPskc reports whether a usable PSKc was loaded.
func (m Material) HasPskc() bool { return len(m.Pskc) > 0 }

// Loader resolves credential material from a directory tree rooted at
// Config.Root. Resolve results are cached in memory, keyed by an xxhash
// digest of the (domainName, xpan, name) triple, since a multi-network
// fan-out command re-resolves the same few networks' credentials on every
// command.
type Loader struct {
	cfg Config

	mu    sync.Mutex
	cache map[uint64]Material
}

func NewLoader(cfg Config) *Loader {
	return &Loader{cfg: cfg, cache: make(map[uint64]Material)}
}

// resolveCacheKey hashes the triple Resolve dispatches on.
func resolveCacheKey(domainName string, xpan uint64, name string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(domainName)
	_, _ = h.Write([]byte{byte(xpan >> 56), byte(xpan >> 48), byte(xpan >> 40), byte(xpan >> 32), byte(xpan >> 24), byte(xpan >> 16), byte(xpan >> 8), byte(xpan)})
	_, _ = h.WriteString(name)
	return h.Sum64()
}

// ForDomain loads material from <root>/domains/<name>/{cert.pem,key.pem,pskc.bin}.
func (l *Loader) ForDomain(name string) (Material, error) {
	return l.load(filepath.Join(l.cfg.Root, "domains", name))
}

// ForNetworkXpan loads material from <root>/networks/<16-hex-xpan>/...
func (l *Loader) ForNetworkXpan(xpan uint64) (Material, error) {
	return l.load(filepath.Join(l.cfg.Root, "networks", fmt.Sprintf("%016x", xpan)))
}

// ForNetworkName loads material from <root>/networks/<name>/...
func (l *Loader) ForNetworkName(name string) (Material, error) {
	return l.load(filepath.Join(l.cfg.Root, "networks", name))
}

// Resolve applies the precedence rule from PrepareDtlsConfig: a network
// that belongs to a real (non-default) domain is governed by that domain's
// credential directory; otherwise its own xpan directory is tried first,
// then its name directory. The first directory that yields any usable
// material wins; resolve never merges partial material from two
// directories, since a mixed domain+network credential pair is not a
// configuration the original supports either.
func (l *Loader) Resolve(domainName string, xpan uint64, name string) (Material, error) {
	key := resolveCacheKey(domainName, xpan, name)
	l.mu.Lock()
	if m, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return m, nil
	}
	l.mu.Unlock()

	m, err := l.resolve(domainName, xpan, name)
	if err == nil {
		l.mu.Lock()
		l.cache[key] = m
		l.mu.Unlock()
	}
	return m, err
}

func (l *Loader) resolve(domainName string, xpan uint64, name string) (Material, error) {
	if domainName != "" && domainName != DefaultDomainName {
		m, err := l.ForDomain(domainName)
		if err == nil && (m.HasCert() || m.HasPskc()) {
			return m, nil
		}
		if err != nil && tncerr.KindOf(err) != tncerr.NotFound {
			return Material{}, err
		}
	}

	if m, err := l.ForNetworkXpan(xpan); err == nil && (m.HasCert() || m.HasPskc()) {
		return m, nil
	} else if err != nil && tncerr.KindOf(err) != tncerr.NotFound {
		return Material{}, err
	}

	m, err := l.ForNetworkName(name)
	if err != nil && tncerr.KindOf(err) != tncerr.NotFound {
		return Material{}, err
	}
	return m, nil
}

func (l *Loader) load(dir string) (Material, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) || (err == nil && !info.IsDir()) {
		return Material{}, tncerr.New(tncerr.NotFound, "credentials: no directory %s", dir)
	}
	if err != nil {
		return Material{}, tncerr.Wrap(tncerr.IOError, err, "credentials: stat %s", dir)
	}

	var m Material
	m.Cert = readOptional(filepath.Join(dir, "cert.pem"))
	m.Key = readOptional(filepath.Join(dir, "key.pem"))
	m.Pskc = readOptional(filepath.Join(dir, "pskc.bin"))

	log.Debug().Str("dir", dir).Bool("cert", m.HasCert()).Bool("pskc", m.HasPskc()).Msg("credentials: loaded material")
	return m, nil
}

func readOptional(path string) []byte {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return b
}
