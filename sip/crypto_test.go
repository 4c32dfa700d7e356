package sip

import (
	"testing"
)

func TestRandomScalarIsNonzeroAndRoundTrips(t *testing.T) {
	for i := 0; i < 20; i++ {
		s, err := RandomScalar()
		if err != nil {
			t.Fatalf("RandomScalar: %v", err)
		}
		if s.IsZero() {
			t.Fatal("RandomScalar produced zero")
		}
		b := s.Bytes()
		parsed, err := ScalarFromBytes(b)
		if err != nil {
			t.Fatalf("ScalarFromBytes(RandomScalar().Bytes()): %v", err)
		}
		if parsed.Bytes() != b {
			t.Fatal("scalar did not round-trip through Bytes/ScalarFromBytes")
		}
	}
}

func TestScalarFromBytesRejectsZero(t *testing.T) {
	var zero [32]byte
	if _, err := ScalarFromBytes(zero); !IsInvalidScalar(err) {
		t.Fatalf("expected InvalidScalar for zero scalar, got %v", err)
	}
}

func TestScalarFromBytesRejectsGroupOrderAndAbove(t *testing.T) {
	// n = 0xFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141
	n := [32]byte{
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFE,
		0xBA, 0xAE, 0xDC, 0xE6, 0xAF, 0x48, 0xA0, 0x3B,
		0xBF, 0xD2, 0x5E, 0x8C, 0xD0, 0x36, 0x41, 0x41,
	}
	if _, err := ScalarFromBytes(n); !IsInvalidScalar(err) {
		t.Fatalf("expected InvalidScalar for b == n, got %v", err)
	}

	allFF := [32]byte{}
	for i := range allFF {
		allFF[i] = 0xFF
	}
	if _, err := ScalarFromBytes(allFF); !IsInvalidScalar(err) {
		t.Fatalf("expected InvalidScalar for b > n, got %v", err)
	}
}

func TestPointCompressDecompressRoundTrip(t *testing.T) {
	s, err := RandomScalar()
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	p := s.Point()
	compressed := p.Compress()

	decoded, err := DecompressPoint(compressed)
	if err != nil {
		t.Fatalf("DecompressPoint: %v", err)
	}
	if !p.Equal(decoded) {
		t.Fatal("decompressed point does not equal original")
	}
}

func TestDecompressPointRejectsBadParityByte(t *testing.T) {
	s, err := RandomScalar()
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	compressed := s.Point().Compress()

	for _, parity := range []byte{0x00, 0x01, 0x04, 0x05} {
		bad := compressed
		bad[0] = parity
		if _, err := DecompressPoint(bad); !IsInvalidPoint(err) {
			t.Fatalf("parity byte %#x: expected InvalidPoint, got %v", parity, err)
		}
	}
}

func TestPointAddSubAreInverses(t *testing.T) {
	a, err := RandomScalar()
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	b, err := RandomScalar()
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}

	pa, pb := a.Point(), b.Point()
	sum := pa.Add(pb)
	back := sum.Sub(pb)
	if !back.Equal(pa) {
		t.Fatal("(A+B)-B != A")
	}
}

func TestScalarAddMatchesPointAdd(t *testing.T) {
	a, err := RandomScalar()
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	b, err := RandomScalar()
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}

	sumScalar := a.Add(b)
	lhs := sumScalar.Point()
	rhs := a.Point().Add(b.Point())
	if !lhs.Equal(rhs) {
		t.Fatal("(a+b)*G != a*G + b*G")
	}
}

func TestEthAddressFromPointAndChecksum(t *testing.T) {
	s, err := RandomScalar()
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	addr := EthAddressFromPoint(s.Point())
	checksummed := EIP55Checksum(addr)

	if len(checksummed) != 42 || checksummed[0] != '0' || checksummed[1] != 'x' {
		t.Fatalf("unexpected checksum format: %q", checksummed)
	}
	// checksum is deterministic
	if EIP55Checksum(addr) != checksummed {
		t.Fatal("EIP55Checksum is not deterministic")
	}
}

func TestKeccak256KnownVector(t *testing.T) {
	// keccak256("") = c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470
	got := Keccak256([]byte{})
	want := "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	if BytesToHex(got[:])[2:] != want {
		t.Fatalf("keccak256(\"\") = %x, want %s", got, want)
	}
}
