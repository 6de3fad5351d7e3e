package persist

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/nmxmxh/asi-supervisor/internal/asierr"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte("shared-state-bytes")
	buf := Encode(payload)

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("Decode = %q, want %q", got, payload)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := Encode([]byte("x"))
	buf[0] ^= 0xFF
	if _, err := Decode(buf); !errors.Is(err, asierr.ErrBadMagic) {
		t.Fatalf("Decode with corrupted magic: err = %v, want ErrBadMagic", err)
	}
}

func TestDecodeRejectsChecksumMismatch(t *testing.T) {
	buf := Encode([]byte("payload"))
	buf[len(buf)-1] ^= 0xFF
	if _, err := Decode(buf); !errors.Is(err, asierr.ErrChecksumMismatch) {
		t.Fatalf("Decode with corrupted payload: err = %v, want ErrChecksumMismatch", err)
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}); !errors.Is(err, asierr.ErrTruncated) {
		t.Fatalf("Decode truncated buffer: err = %v, want ErrTruncated", err)
	}
}

func TestWriteFileReadFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.bin")
	payload := []byte("state-at-cycle-42")

	if err := WriteFile(path, payload); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("ReadFile = %q, want %q", got, payload)
	}
}

func TestLoadPreferChildPrefersChildWhenBothValid(t *testing.T) {
	dir := t.TempDir()
	childPath := filepath.Join(dir, "child.bin")
	parentPath := filepath.Join(dir, "parent.bin")

	WriteFile(childPath, []byte("child"))
	WriteFile(parentPath, []byte("parent"))

	got, err := LoadPreferChild(childPath, parentPath)
	if err != nil || string(got) != "child" {
		t.Fatalf("LoadPreferChild = %q, %v; want child, nil", got, err)
	}
}

func TestLoadPreferChildFallsBackToParent(t *testing.T) {
	dir := t.TempDir()
	childPath := filepath.Join(dir, "child.bin")
	parentPath := filepath.Join(dir, "parent.bin")

	WriteFile(parentPath, []byte("parent"))

	got, err := LoadPreferChild(childPath, parentPath)
	if err != nil || string(got) != "parent" {
		t.Fatalf("LoadPreferChild = %q, %v; want parent, nil", got, err)
	}
}

func TestLoadPreferChildNoValidSnapshot(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadPreferChild(filepath.Join(dir, "child.bin"), filepath.Join(dir, "parent.bin"))
	if !errors.Is(err, asierr.ErrNoValidSnapshot) {
		t.Fatalf("LoadPreferChild with neither file present: err = %v, want ErrNoValidSnapshot", err)
	}
}
