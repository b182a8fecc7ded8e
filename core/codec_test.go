package core

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/flate"
)

func TestCompressDecompressRoundtrip(t *testing.T) {
	original := bytes.Repeat([]byte("walgit compresses repeated content well. "), 200)
	compressed, err := Compress(original, flate.BestCompression)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(compressed) >= len(original) {
		t.Fatalf("expected compressed output smaller than input for repetitive data")
	}
	out, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(out, original) {
		t.Fatalf("roundtrip mismatch")
	}
}

func TestAdaptiveLevelSkipsIncompressibleTypes(t *testing.T) {
	if lvl := AdaptiveLevel("image/png", 10_000_000); lvl != flate.NoCompression {
		t.Fatalf("expected NoCompression for image/png, got %d", lvl)
	}
	if lvl := AdaptiveLevel("text/plain", 100); lvl != flate.BestCompression {
		t.Fatalf("expected BestCompression for a small text payload, got %d", lvl)
	}
	if lvl := AdaptiveLevel("text/plain", 10_000_000); lvl != 6 {
		t.Fatalf("expected level 6 for a 10 MB text payload, got %d", lvl)
	}
}

func TestFrameUnframeRoundtrip(t *testing.T) {
	payload := []byte("a chunk of transport bytes")
	framed := Frame(payload)
	out, err := Unframe(framed)
	if err != nil {
		t.Fatalf("Unframe: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("unframed payload mismatch")
	}
}

func TestUnframeDetectsCorruption(t *testing.T) {
	framed := Frame([]byte("integrity matters"))
	corrupted := append([]byte(nil), framed...)
	corrupted[len(corrupted)-1] ^= 0xFF
	if _, err := Unframe(corrupted); err == nil {
		t.Fatalf("expected checksum mismatch error on corrupted frame")
	}
}

func TestUnframeRejectsBadMagic(t *testing.T) {
	bad := append([]byte("XXXX"), Frame([]byte("x"))[4:]...)
	if _, err := Unframe(bad); err == nil {
		t.Fatalf("expected error for bad frame magic")
	}
}

// TestFrameEncryptedRoundtrip is grounded on fix (c): the encrypted-blob
// wire frame is magic(7)="WALGIT1" | iv(12) | gcm_tag(16) | ciphertext.
func TestFrameEncryptedRoundtrip(t *testing.T) {
	dek, err := NewDEK()
	if err != nil {
		t.Fatalf("NewDEK: %v", err)
	}
	sealed, err := Encrypt(dek, []byte("secret file contents"), []byte(BlobAAD))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	framed, err := FrameEncrypted(sealed)
	if err != nil {
		t.Fatalf("FrameEncrypted: %v", err)
	}
	if string(framed[:len(encryptedFrameMagic)]) != "WALGIT1" {
		t.Fatalf("expected WALGIT1 magic, got %q", framed[:len(encryptedFrameMagic)])
	}
	gotSealed, err := UnframeEncrypted(framed)
	if err != nil {
		t.Fatalf("UnframeEncrypted: %v", err)
	}
	out, err := Decrypt(dek, gotSealed, []byte(BlobAAD))
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(out) != "secret file contents" {
		t.Fatalf("roundtrip mismatch: got %q", out)
	}
}

func TestUnframeEncryptedRejectsMissingMagic(t *testing.T) {
	if _, err := UnframeEncrypted(bytes.Repeat([]byte{0}, 64)); err == nil {
		t.Fatalf("expected a FormatError for a buffer with no WALGIT1 magic")
	}
}
