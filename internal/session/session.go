// Package session defines the Session capability the Job Manager drives:
// one DTLS-commissioned connection to a single BorderRouter. The DTLS
// handshake and CoAP transport themselves are out of scope (see spec §1's
// external collaborators); this package only defines the contract a real
// implementation satisfies and the in-process pool that tracks live
// sessions by network.
package session

import "context"

// Config is everything a Session needs to start: which border agent to
// dial and what credential material to present.
type Config struct {
	BorderAgentAddr string
	BorderAgentPort uint16
	Cert            []byte
	Key             []byte
	Pskc            []byte
}

// HasCredential reports whether Config carries anything a DTLS handshake
// could use — the Job Manager treats "no credential loaded" as a
// Security failure before ever attempting Start.
func (c Config) HasCredential() bool {
	return (len(c.Cert) > 0 && len(c.Key) > 0) || len(c.Pskc) > 0
}

// Session is satisfied by a real commissioner-app connection to one
// BorderRouter. Invoke carries every verb that isn't modeled as its own
// method (joiner enable/disable, datasets, reenroll, domain reset, migrate,
// mlr, announce, panid, energy scan) — the interpreter already validates
// verb+argument shape before Invoke is called, so Session only needs to
// execute and report the result or failure.
type Session interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsActive() bool
	SessionID() (uint16, error)
	Invoke(ctx context.Context, verb string, args []string) (string, error)
}

// Factory constructs a Session for a given Config; real implementations
// dial the border agent, the commissioner core only needs this shape to
// stay decoupled from the DTLS/CoAP library a deployment chooses.
type Factory func(cfg Config) (Session, error)
