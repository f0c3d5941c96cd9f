package bfd_test

import (
	"errors"
	"testing"

	"github.com/clayne/keepalived/internal/bfd"
)

func basePacket() *bfd.ControlPacket {
	return &bfd.ControlPacket{
		Version:               bfd.Version,
		Diag:                  bfd.DiagNone,
		State:                 bfd.StateUp,
		DetectMult:            3,
		MyDiscriminator:       0xAABBCCDD,
		YourDiscriminator:     0x11223344,
		DesiredMinTxInterval:  300_000,
		RequiredMinRxInterval: 300_000,
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	pkt := basePacket()
	pkt.Poll = true

	buf := make([]byte, bfd.MaxPacketSize)
	n, err := bfd.MarshalControlPacket(pkt, buf)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if n != bfd.HeaderSize {
		t.Fatalf("marshal length: got %d, want %d", n, bfd.HeaderSize)
	}

	var got bfd.ControlPacket
	if err := bfd.UnmarshalControlPacket(buf[:n], &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.Version != pkt.Version ||
		got.Diag != pkt.Diag ||
		got.State != pkt.State ||
		got.Poll != pkt.Poll ||
		got.Final != pkt.Final ||
		got.DetectMult != pkt.DetectMult ||
		got.MyDiscriminator != pkt.MyDiscriminator ||
		got.YourDiscriminator != pkt.YourDiscriminator ||
		got.DesiredMinTxInterval != pkt.DesiredMinTxInterval ||
		got.RequiredMinRxInterval != pkt.RequiredMinRxInterval {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, pkt)
	}
	if got.Auth != nil {
		t.Fatalf("Auth: got %+v, want nil", got.Auth)
	}
}

func TestUnmarshalPollAndFinalExclusive(t *testing.T) {
	pkt := basePacket()
	pkt.Poll = true
	pkt.Final = false

	buf := make([]byte, bfd.MaxPacketSize)
	n, err := bfd.MarshalControlPacket(pkt, buf)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got bfd.ControlPacket
	if err := bfd.UnmarshalControlPacket(buf[:n], &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Poll || got.Final {
		t.Fatalf("expected Poll=true Final=false, got Poll=%v Final=%v", got.Poll, got.Final)
	}
}

func TestUnmarshalShortPacket(t *testing.T) {
	buf := make([]byte, 23)
	var pkt bfd.ControlPacket
	err := bfd.UnmarshalControlPacket(buf, &pkt)
	if !errors.Is(err, bfd.ErrPacketTooShort) {
		t.Fatalf("got %v, want ErrPacketTooShort", err)
	}
}

func TestUnmarshalBadVersion(t *testing.T) {
	pkt := basePacket()
	buf := make([]byte, bfd.MaxPacketSize)
	n, err := bfd.MarshalControlPacket(pkt, buf)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	buf[0] = (2 << 5) | (buf[0] & 0x1F) // corrupt version to 2

	var got bfd.ControlPacket
	err = bfd.UnmarshalControlPacket(buf[:n], &got)
	if !errors.Is(err, bfd.ErrInvalidVersion) {
		t.Fatalf("got %v, want ErrInvalidVersion", err)
	}
}

func TestUnmarshalLengthBelowMinimum(t *testing.T) {
	pkt := basePacket()
	buf := make([]byte, bfd.MaxPacketSize)
	n, err := bfd.MarshalControlPacket(pkt, buf)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	buf[3] = 23 // Length < MinPacketSizeNoAuth

	var got bfd.ControlPacket
	err = bfd.UnmarshalControlPacket(buf[:n], &got)
	if !errors.Is(err, bfd.ErrInvalidLength) {
		t.Fatalf("got %v, want ErrInvalidLength", err)
	}
}

func TestUnmarshalLengthExceedsPayload(t *testing.T) {
	pkt := basePacket()
	buf := make([]byte, bfd.MaxPacketSize)
	if _, err := bfd.MarshalControlPacket(pkt, buf); err != nil {
		t.Fatalf("marshal: %v", err)
	}
	buf[3] = 40 // Length claims more than the 24 bytes supplied below

	var got bfd.ControlPacket
	err := bfd.UnmarshalControlPacket(buf[:bfd.HeaderSize], &got)
	if !errors.Is(err, bfd.ErrLengthExceedsPayload) {
		t.Fatalf("got %v, want ErrLengthExceedsPayload", err)
	}
}

func TestUnmarshalZeroDetectMult(t *testing.T) {
	pkt := basePacket()
	pkt.DetectMult = 0
	buf := make([]byte, bfd.MaxPacketSize)
	n, err := bfd.MarshalControlPacket(pkt, buf)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got bfd.ControlPacket
	err = bfd.UnmarshalControlPacket(buf[:n], &got)
	if !errors.Is(err, bfd.ErrZeroDetectMult) {
		t.Fatalf("got %v, want ErrZeroDetectMult", err)
	}
}

func TestUnmarshalMultipointSet(t *testing.T) {
	pkt := basePacket()
	pkt.Multipoint = true
	buf := make([]byte, bfd.MaxPacketSize)
	n, err := bfd.MarshalControlPacket(pkt, buf)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got bfd.ControlPacket
	err = bfd.UnmarshalControlPacket(buf[:n], &got)
	if !errors.Is(err, bfd.ErrMultipointSet) {
		t.Fatalf("got %v, want ErrMultipointSet", err)
	}
}

func TestUnmarshalZeroMyDiscriminator(t *testing.T) {
	pkt := basePacket()
	pkt.MyDiscriminator = 0
	buf := make([]byte, bfd.MaxPacketSize)
	n, err := bfd.MarshalControlPacket(pkt, buf)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got bfd.ControlPacket
	err = bfd.UnmarshalControlPacket(buf[:n], &got)
	if !errors.Is(err, bfd.ErrZeroMyDiscriminator) {
		t.Fatalf("got %v, want ErrZeroMyDiscriminator", err)
	}
}

func TestUnmarshalZeroYourDiscriminatorWhileUp(t *testing.T) {
	pkt := basePacket()
	pkt.State = bfd.StateUp
	pkt.YourDiscriminator = 0
	buf := make([]byte, bfd.MaxPacketSize)
	n, err := bfd.MarshalControlPacket(pkt, buf)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got bfd.ControlPacket
	err = bfd.UnmarshalControlPacket(buf[:n], &got)
	if !errors.Is(err, bfd.ErrZeroYourDiscriminator) {
		t.Fatalf("got %v, want ErrZeroYourDiscriminator", err)
	}
}

func TestUnmarshalZeroYourDiscriminatorAllowedWhileDown(t *testing.T) {
	for _, st := range []bfd.State{bfd.StateDown, bfd.StateAdminDown} {
		pkt := basePacket()
		pkt.State = st
		pkt.YourDiscriminator = 0
		buf := make([]byte, bfd.MaxPacketSize)
		n, err := bfd.MarshalControlPacket(pkt, buf)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		var got bfd.ControlPacket
		if err := bfd.UnmarshalControlPacket(buf[:n], &got); err != nil {
			t.Fatalf("state %s: unexpected error: %v", st, err)
		}
	}
}

func TestUnmarshalAuthBitRejected(t *testing.T) {
	pkt := basePacket()
	buf := make([]byte, bfd.MaxPacketSize)
	if _, err := bfd.MarshalControlPacket(pkt, buf); err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// Set the A bit (bit 5 of byte 1) directly on the wire; this engine has
	// no auth key material anywhere, so any such packet must be rejected
	// at decode time regardless of what, if anything, follows the header.
	buf[1] |= 1 << 2
	buf[3] = bfd.MinPacketSizeWithAuth

	var got bfd.ControlPacket
	err := bfd.UnmarshalControlPacket(buf[:bfd.MinPacketSizeWithAuth], &got)
	if !errors.Is(err, bfd.ErrAuthNotSupported) {
		t.Fatalf("got %v, want ErrAuthNotSupported", err)
	}
}

func TestMarshalBufferTooSmall(t *testing.T) {
	pkt := basePacket()
	buf := make([]byte, 10)
	_, err := bfd.MarshalControlPacket(pkt, buf)
	if !errors.Is(err, bfd.ErrBufTooSmall) {
		t.Fatalf("got %v, want ErrBufTooSmall", err)
	}
}

func TestDiagStateAuthTypeStrings(t *testing.T) {
	if bfd.StateUp.String() != "Up" {
		t.Errorf("StateUp.String() = %q", bfd.StateUp.String())
	}
	if bfd.DiagControlTimeExpired.String() != "Control Detection Time Expired" {
		t.Errorf("DiagControlTimeExpired.String() = %q", bfd.DiagControlTimeExpired.String())
	}
	if bfd.AuthTypeNone.String() != "None" {
		t.Errorf("AuthTypeNone.String() = %q", bfd.AuthTypeNone.String())
	}
	if got := bfd.State(7).String(); got != "Unknown(7)" {
		t.Errorf("unknown state String() = %q", got)
	}
}

func TestPacketPoolReturnsMaxSizeBuffer(t *testing.T) {
	bufp, ok := bfd.PacketPool.Get().(*[]byte)
	if !ok {
		t.Fatal("PacketPool.Get() did not return *[]byte")
	}
	defer bfd.PacketPool.Put(bufp)

	if len(*bufp) != bfd.MaxPacketSize {
		t.Errorf("pooled buffer length = %d, want %d", len(*bufp), bfd.MaxPacketSize)
	}
}
