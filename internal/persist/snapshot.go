// Package persist implements the versioned, length-prefixed,
// CRC-verified shared-state snapshot format (spec.md §6, §9
// "shared-file snapshot via raw struct image -> versioned,
// length-prefixed, checksum-verified serialization").
package persist

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/nmxmxh/asi-supervisor/internal/asierr"
	"github.com/nmxmxh/asi-supervisor/internal/config"
	"github.com/nmxmxh/asi-supervisor/internal/crc"
)

// headerSize is magic(4) + version(2) + length(4) + crc(2).
const headerSize = 4 + 2 + 4 + 2

// Encode wraps payload in the magic+version+length+CRC envelope and
// returns the bytes ready to write to a file. payload is the caller's
// own serialization of whatever shared-state fields need to survive a
// restart; this package does not know or care about its internal
// layout, only that it round-trips byte-identically (§6).
func Encode(payload []byte) []byte {
	buf := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], config.SnapshotMagic)
	binary.LittleEndian.PutUint16(buf[4:6], config.SnapshotVersion)
	binary.LittleEndian.PutUint32(buf[6:10], uint32(len(payload)))
	copy(buf[headerSize:], payload)
	sum := crc.Checksum(buf[:headerSize-2])
	sum = crc.Update(sum, payload)
	binary.LittleEndian.PutUint16(buf[10:12], sum)
	return buf
}

// Decode validates and unwraps a snapshot produced by Encode, returning
// the inner payload. Every failure mode named in asierr is returned as
// a distinguishable sentinel so callers can tell "no valid snapshot"
// from "corrupted snapshot" apart (§9 "the current implementation's
// size-equal check is brittle; add a magic + version + CRC header").
func Decode(buf []byte) ([]byte, error) {
	if len(buf) < headerSize {
		return nil, asierr.ErrTruncated
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != config.SnapshotMagic {
		return nil, asierr.ErrBadMagic
	}
	version := binary.LittleEndian.Uint16(buf[4:6])
	if version != config.SnapshotVersion {
		return nil, asierr.ErrVersionMismatch
	}
	length := binary.LittleEndian.Uint32(buf[6:10])
	wantCRC := binary.LittleEndian.Uint16(buf[10:12])

	if uint32(len(buf)-headerSize) != length {
		return nil, asierr.ErrTruncated
	}
	payload := buf[headerSize:]

	gotCRC := crc.Checksum(buf[:headerSize-2])
	gotCRC = crc.Update(gotCRC, payload)
	if gotCRC != wantCRC {
		return nil, asierr.ErrChecksumMismatch
	}
	return payload, nil
}

// WriteFile atomically persists payload to path: write to a temp file
// in the same directory, then rename, so a crash mid-write never
// leaves a half-written snapshot for Load to trip over.
func WriteFile(path string, payload []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, Encode(payload), 0o644); err != nil {
		return fmt.Errorf("persist: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("persist: rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

// ReadFile loads and validates the snapshot at path.
func ReadFile(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persist: read %s: %w", path, err)
	}
	return Decode(buf)
}

// LoadPreferChild implements the startup recovery rule of §6: "if both
// exist and are identical-sized for the shared region, child is
// preferred; otherwise whichever is valid; otherwise fresh init" —
// surfaced here as "prefer childPath; fall back to parentPath; report
// asierr.ErrNoValidSnapshot if neither validates."
func LoadPreferChild(childPath, parentPath string) ([]byte, error) {
	if payload, err := ReadFile(childPath); err == nil {
		return payload, nil
	}
	if payload, err := ReadFile(parentPath); err == nil {
		return payload, nil
	}
	return nil, asierr.ErrNoValidSnapshot
}
