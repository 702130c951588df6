// Package borderagent defines the BorderAgent record decoded from mDNS
// responses and stored by the registry as the vendor/network identity of a
// BorderRouter.
package borderagent

import "fmt"

// PresentFlag marks which fields of a BorderAgent were actually populated
// during decode; a TXT record that omits a key leaves the corresponding bit
// (and field) untouched.
type PresentFlag uint32

const (
	AddrBit PresentFlag = 1 << iota
	PortBit
	ThreadVersionBit
	StateBit
	NetworkNameBit
	ExtendedPanIDBit
	VendorNameBit
	ModelNameBit
	ActiveTimestampBit
	PartitionIDBit
	VendorDataBit
	VendorOUIBit
	DomainNameBit
	BbrSeqNumberBit
	BbrPortBit
	ServiceNameBit
	UpdateTimestampBit
	DiscriminatorBit
)

// ConnectionMode enumerates the "sb" TXT bitmap's low 3 bits.
type ConnectionMode uint8

const (
	ConnModeDisabled ConnectionMode = iota
	ConnModePSKc
	ConnModePSKd
	ConnModeX509
	ConnModeVendor
)

// ThreadIfStatus enumerates the "sb" TXT bitmap's bits 3-4.
type ThreadIfStatus uint8

const (
	IfStatusNotInitialized ThreadIfStatus = iota
	IfStatusInitialized
	IfStatusActive
)

// Availability enumerates the "sb" TXT bitmap's bits 5-6.
type Availability uint8

const (
	AvailabilityInfrequent Availability = iota
	AvailabilityHigh
)

// State is the decoded "sb" status bitmap TXT field.
type State struct {
	ConnectionMode ConnectionMode
	ThreadIfStatus ThreadIfStatus
	Availability   Availability
	BbrIsActive    bool
	BbrIsPrimary   bool
}

// DecodeState unpacks the 4-byte big-endian "sb" bitmap per the wire layout:
// byte[3] bits 0-2 = connection mode, bits 3-4 = thread i/f status,
// bits 5-6 = availability, bit 7 = bbr active; byte[2] bit 0 = bbr primary.
func DecodeState(b [4]byte) State {
	b3 := b[3]
	return State{
		ConnectionMode: ConnectionMode(b3 & 0x07),
		ThreadIfStatus: ThreadIfStatus((b3 & 0x18) >> 3),
		Availability:   Availability((b3 & 0x60) >> 5),
		BbrIsActive:    b3&0x80 != 0,
		BbrIsPrimary:   b[2]&0x01 != 0,
	}
}

// Encode packs State back into the 4-byte wire bitmap (used by tests and by
// any component synthesizing a record, e.g. to seed a fixture).
func (s State) Encode() [4]byte {
	var b [4]byte
	b[3] = byte(s.ConnectionMode & 0x07)
	b[3] |= byte(s.ThreadIfStatus&0x03) << 3
	b[3] |= byte(s.Availability&0x03) << 5
	if s.BbrIsActive {
		b[3] |= 0x80
	}
	if s.BbrIsPrimary {
		b[2] |= 0x01
	}
	return b
}

// BorderAgent is the full set of fields a discovery response can populate.
// Present reports which fields actually arrived; zero-value fields whose bit
// is unset must not be treated as meaningful data.
type BorderAgent struct {
	Addr             string
	Port             uint16
	ThreadVersion    string
	State            State
	NetworkName      string
	ExtendedPanID    uint64
	VendorName       string
	ModelName        string
	ActiveTimestamp  uint64
	PartitionID      uint32
	VendorData       string
	VendorOUI        [3]byte
	DomainName       string
	BbrSeqNumber     uint8
	BbrPort          uint16
	ServiceName      string
	Discriminator    uint64
	UpdateTimestamp  int64
	Present          PresentFlag
}

// Has reports whether flag was set during decode.
func (b *BorderAgent) Has(flag PresentFlag) bool { return b.Present&flag != 0 }

func (b *BorderAgent) String() string {
	return fmt.Sprintf("BorderAgent{addr=%s port=%d network=%q xpan=%016x domain=%q}",
		b.Addr, b.Port, b.NetworkName, b.ExtendedPanID, b.DomainName)
}
