package mdns

import (
	"encoding/binary"

	"github.com/openthread-go/tncctl/internal/borderagent"
	"github.com/openthread-go/tncctl/internal/tncerr"
)

// ServiceType is the MeshCoP border agent service PTR name queried and
// matched against every response.
const ServiceType = "_meshcop._udp.local."

// decodeTXT applies the MeshCoP TXT key table to raw TXT attribute pairs,
// filling in ba in place. A malformed value for a known key yields a
// tncerr.BadFormat error but does not stop decoding of the remaining pairs,
// mirroring the original handler's "log and continue" behaviour: a single
// bad key must not discard an otherwise usable record.
func decodeTXT(ba *borderagent.BorderAgent, txt map[string][]byte) error {
	var firstErr error
	fail := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	for key, val := range txt {
		switch key {
		case "rv":
			if string(val) != "1" {
				fail(tncerr.New(tncerr.BadFormat, "mdns: unsupported rv value %q", string(val)))
				continue
			}
		case "dd":
			if len(val) != 8 {
				fail(tncerr.New(tncerr.BadFormat, "mdns: dd must be 8 bytes, got %d", len(val)))
				continue
			}
			ba.Discriminator = binary.BigEndian.Uint64(val)
			ba.Present |= borderagent.DiscriminatorBit
		case "tv":
			ba.ThreadVersion = string(val)
			ba.Present |= borderagent.ThreadVersionBit
		case "sb":
			if len(val) != 4 {
				fail(tncerr.New(tncerr.BadFormat, "mdns: sb must be 4 bytes, got %d", len(val)))
				continue
			}
			var b [4]byte
			copy(b[:], val)
			ba.State = borderagent.DecodeState(b)
			ba.Present |= borderagent.StateBit
		case "nn":
			ba.NetworkName = string(val)
			ba.Present |= borderagent.NetworkNameBit
		case "xp":
			if len(val) != 8 {
				fail(tncerr.New(tncerr.BadFormat, "mdns: xp must be 8 bytes, got %d", len(val)))
				continue
			}
			ba.ExtendedPanID = binary.BigEndian.Uint64(val)
			ba.Present |= borderagent.ExtendedPanIDBit
		case "vn":
			ba.VendorName = string(val)
			ba.Present |= borderagent.VendorNameBit
		case "mn":
			ba.ModelName = string(val)
			ba.Present |= borderagent.ModelNameBit
		case "at":
			if len(val) != 8 {
				fail(tncerr.New(tncerr.BadFormat, "mdns: at must be 8 bytes, got %d", len(val)))
				continue
			}
			ba.ActiveTimestamp = binary.BigEndian.Uint64(val)
			ba.Present |= borderagent.ActiveTimestampBit
		case "pt":
			if len(val) != 4 {
				fail(tncerr.New(tncerr.BadFormat, "mdns: pt must be 4 bytes, got %d", len(val)))
				continue
			}
			ba.PartitionID = binary.BigEndian.Uint32(val)
			ba.Present |= borderagent.PartitionIDBit
		case "vd":
			ba.VendorData = string(val)
			ba.Present |= borderagent.VendorDataBit
		case "vo":
			if len(val) != 3 {
				fail(tncerr.New(tncerr.BadFormat, "mdns: vo must be 3 bytes, got %d", len(val)))
				continue
			}
			copy(ba.VendorOUI[:], val)
			ba.Present |= borderagent.VendorOUIBit
		case "dn":
			ba.DomainName = string(val)
			ba.Present |= borderagent.DomainNameBit
		case "sq":
			if len(val) != 1 {
				fail(tncerr.New(tncerr.BadFormat, "mdns: sq must be 1 byte, got %d", len(val)))
				continue
			}
			ba.BbrSeqNumber = val[0]
			ba.Present |= borderagent.BbrSeqNumberBit
		case "bb":
			if len(val) != 2 {
				fail(tncerr.New(tncerr.BadFormat, "mdns: bb must be 2 bytes, got %d", len(val)))
				continue
			}
			ba.BbrPort = binary.BigEndian.Uint16(val)
			ba.Present |= borderagent.BbrPortBit
		default:
			// unknown keys are silently ignored
		}
	}

	return firstErr
}
