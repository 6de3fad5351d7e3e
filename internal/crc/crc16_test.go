package crc

import "testing"

func TestChecksumKnownVector(t *testing.T) {
	// CRC-16/CCITT-FALSE("123456789") == 0x29B1, the standard check
	// value for poly=0x1021, init=0xFFFF, no reflect, no xorout.
	got := Checksum([]byte("123456789"))
	if got != 0x29B1 {
		t.Fatalf("Checksum(123456789) = %#04x, want 0x29b1", got)
	}
}

func TestChecksumEmpty(t *testing.T) {
	if got := Checksum(nil); got != Init {
		t.Fatalf("Checksum(nil) = %#04x, want %#04x", got, Init)
	}
}

func TestChecksumDiffersOnBitFlip(t *testing.T) {
	a := []byte{0x01, 0x02, 0x03, 0x04}
	b := []byte{0x01, 0x02, 0x03, 0x05}
	if Checksum(a) == Checksum(b) {
		t.Fatalf("expected different checksums for different inputs")
	}
}

func TestUpdateIncrementalMatchesWholeBuffer(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02}
	whole := Checksum(data)

	crc := Init
	crc = Update(crc, data[:3])
	crc = Update(crc, data[3:])
	if crc != whole {
		t.Fatalf("incremental update = %#04x, want %#04x", crc, whole)
	}
}
