// Package credentials loads the DTLS credential material (X.509
// certificate/key pairs and PSKc) that the Job Manager attaches to a Session
// before starting it. Negotiating DTLS itself is out of scope; this package
// only resolves which bytes a given network or domain should use.
package credentials

import "github.com/openthread-go/tncctl/internal/tncerr"

// DefaultDomainName marks "no real CCM domain" — a network whose
// DomainName equals this value always resolves credentials by network
// identity rather than by domain directory, matching the original's
// domainName != "DefaultDomain" branch in its DTLS config preparation.
const DefaultDomainName = "DefaultDomain"

// Config points at the directory roots credential material is read from.
type Config struct {
	// Root is the base directory holding "domains/" and "networks/"
	// subdirectories.
	Root string `mapstructure:"root" yaml:"root"`
}

// DefaultConfig returns the zero-configuration default: no root configured.
// Validate then reports InvalidState; Resolve still runs, with its paths
// relative to the working directory.
func DefaultConfig() Config {
	return Config{}
}

func (c Config) Validate() error {
	if c.Root == "" {
		return tncerr.New(tncerr.InvalidState, "credentials: root directory not configured")
	}
	return nil
}
