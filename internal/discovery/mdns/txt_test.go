package mdns

import (
	"encoding/binary"
	"testing"

	"github.com/openthread-go/tncctl/internal/borderagent"
	"github.com/openthread-go/tncctl/internal/tncerr"
)

func TestDecodeTXTFullRecord(t *testing.T) {
	xpan := make([]byte, 8)
	binary.BigEndian.PutUint64(xpan, 0x1111222233334444)
	sb := borderagent.State{ConnectionMode: borderagent.ConnModePSKd, ThreadIfStatus: borderagent.IfStatusActive, Availability: borderagent.AvailabilityHigh, BbrIsActive: true}.Encode()

	txt := map[string][]byte{
		"rv": []byte("1"),
		"tv": []byte("1.3.0"),
		"sb": sb[:],
		"nn": []byte("OpenThread"),
		"xp": xpan,
		"vn": []byte("TestVendor"),
	}

	ba := &borderagent.BorderAgent{}
	if err := decodeTXT(ba, txt); err != nil {
		t.Fatalf("decodeTXT returned error: %v", err)
	}
	if ba.ThreadVersion != "1.3.0" {
		t.Errorf("ThreadVersion = %q", ba.ThreadVersion)
	}
	if ba.NetworkName != "OpenThread" {
		t.Errorf("NetworkName = %q", ba.NetworkName)
	}
	if ba.ExtendedPanID != 0x1111222233334444 {
		t.Errorf("ExtendedPanID = %x", ba.ExtendedPanID)
	}
	if !ba.Has(borderagent.StateBit) {
		t.Fatal("expected StateBit set")
	}
	if ba.State.ConnectionMode != borderagent.ConnModePSKd {
		t.Errorf("ConnectionMode = %v", ba.State.ConnectionMode)
	}
	if !ba.State.BbrIsActive {
		t.Error("expected BbrIsActive true")
	}
}

func TestDecodeTXTBadLengthContinues(t *testing.T) {
	txt := map[string][]byte{
		"xp": []byte{0x01, 0x02}, // wrong length
		"nn": []byte("StillDecoded"),
	}
	ba := &borderagent.BorderAgent{}
	err := decodeTXT(ba, txt)
	if tncerr.KindOf(err) != tncerr.BadFormat {
		t.Fatalf("expected BadFormat, got %v", err)
	}
	if ba.NetworkName != "StillDecoded" {
		t.Errorf("expected nn to still decode despite xp error, got %q", ba.NetworkName)
	}
}

func TestDecodeTXTRejectsUnsupportedRV(t *testing.T) {
	txt := map[string][]byte{"rv": []byte("2")}
	ba := &borderagent.BorderAgent{}
	err := decodeTXT(ba, txt)
	if tncerr.KindOf(err) != tncerr.BadFormat {
		t.Fatalf("expected BadFormat for unsupported rv, got %v", err)
	}
}

func TestDecodeTXTUnknownKeyIgnored(t *testing.T) {
	txt := map[string][]byte{"zz": []byte("whatever")}
	ba := &borderagent.BorderAgent{}
	if err := decodeTXT(ba, txt); err != nil {
		t.Fatalf("unknown key should be ignored, got %v", err)
	}
	if ba.Present != 0 {
		t.Errorf("expected no present bits, got %b", ba.Present)
	}
}
