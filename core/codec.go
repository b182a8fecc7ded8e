package core

// Codec collaborator (spec.md §4.3): compression with an adaptive level
// chosen from content type and size, the local WLG1 wire-frame used to
// checksum an object's on-disk/in-transit bytes, and the WALGIT1 frame
// used specifically for encrypted blob content (spec.md §6's "Encrypted
// blob wire format"). Grounded on blockchain_compression.go's
// CompressLedger/DecompressLedger gzip-wrapping idiom in the teacher
// repo, swapped to flate because the pack's klauspost/compress library
// targets flate-family codecs specifically for streaming use.

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/flate"
)

// incompressiblePrefixes lists content-type prefixes of already-compressed
// formats; AdaptiveLevel stores payloads of these types without
// compression per spec.md §4.3's adaptive level selection.
var incompressiblePrefixes = []string{
	"image/", "video/", "audio/", "application/zip", "application/gzip",
	"application/x-7z-compressed", "application/pdf",
}

// AdaptiveLevel picks a flate compression level from content type and
// size (spec.md §4.3 "compress(bytes, adaptive_level)"). Already-compressed
// media is stored without compression; otherwise payloads over 50 MiB use
// the fastest level, payloads under 5 MiB the best level, and anything in
// between level 6.
func AdaptiveLevel(contentType string, size int64) int {
	for _, p := range incompressiblePrefixes {
		if len(contentType) >= len(p) && contentType[:len(p)] == p {
			return flate.NoCompression
		}
	}
	switch {
	case size > 50*1024*1024:
		return flate.BestSpeed
	case size < 5*1024*1024:
		return flate.BestCompression
	default:
		return 6
	}
}

// Compress deflates b at the given level. At flate.NoCompression the data
// is written as stored (uncompressed) deflate blocks, so the output is the
// input plus a few bytes of block framing.
func Compress(b []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, CodecError("construct flate writer", err)
	}
	if _, err := w.Write(b); err != nil {
		return nil, CodecError("compress", err)
	}
	if err := w.Close(); err != nil {
		return nil, CodecError("flush compressor", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates a buffer produced by Compress.
func Decompress(b []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(b))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, CodecError("decompress", err)
	}
	return out, nil
}

// CompressAndFrame picks an adaptive level from contentType/size,
// compresses content, and wraps the result in a WLG1 frame, the shape
// every object (blob, tree, commit) is stored in on disk (spec.md §6's
// "zlib-deflated framed object bytes"). It returns the framed bytes plus
// the compressed length, for callers that also want to report a
// compression ratio.
func CompressAndFrame(content []byte, contentType string) (framed []byte, compressedLen int, err error) {
	level := AdaptiveLevel(contentType, int64(len(content)))
	compressed, err := Compress(content, level)
	if err != nil {
		return nil, 0, err
	}
	return Frame(compressed), len(compressed), nil
}

// UnframeAndDecompress reverses CompressAndFrame.
func UnframeAndDecompress(raw []byte) ([]byte, error) {
	compressed, err := Unframe(raw)
	if err != nil {
		return nil, err
	}
	return Decompress(compressed)
}

// frameMagic identifies the local WLG1 wire frame (spec.md §4.3's
// frame/unframe for chunk transport and on-disk object storage).
const frameMagic = "WLG1"

// Frame prepends a WLG1 header (magic, payload length, quick checksum)
// to payload for transmission as one chunk.
func Frame(payload []byte) []byte {
	out := make([]byte, 0, len(frameMagic)+4+8+len(payload))
	out = append(out, frameMagic...)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	out = append(out, lenBuf[:]...)
	var sumBuf [8]byte
	binary.BigEndian.PutUint64(sumBuf[:], QuickChecksum(payload))
	out = append(out, sumBuf[:]...)
	out = append(out, payload...)
	return out
}

// Unframe parses a WLG1 frame and verifies its quick checksum,
// returning a FormatError for a bad magic/length and an IntegrityError
// analog (KindFormat, since the quick checksum is advisory, not the
// object's identity hash) for a checksum mismatch.
func Unframe(b []byte) ([]byte, error) {
	headerLen := len(frameMagic) + 4 + 8
	if len(b) < headerLen {
		return nil, FormatError("frame shorter than header", nil)
	}
	if string(b[:len(frameMagic)]) != frameMagic {
		return nil, FormatError("bad frame magic", nil)
	}
	pos := len(frameMagic)
	size := binary.BigEndian.Uint32(b[pos : pos+4])
	pos += 4
	wantSum := binary.BigEndian.Uint64(b[pos : pos+8])
	pos += 8
	if uint32(len(b)-pos) != size {
		return nil, FormatError("frame length mismatch", nil)
	}
	payload := b[pos:]
	if QuickChecksum(payload) != wantSum {
		return nil, FormatError("frame checksum mismatch", nil)
	}
	return payload, nil
}

// encryptedFrameMagic identifies the WALGIT1 encrypted-blob wire format
// (spec.md §6): magic(7) | iv(12) | gcm_tag(16) | ciphertext. This is
// distinct from the WLG1 frame above: WLG1 wraps any object's bytes for
// on-disk/wire integrity, WALGIT1 wraps specifically the AES-256-GCM
// output of an encrypted blob so a reader can locate the nonce and tag
// without touching AEAD internals.
const encryptedFrameMagic = "WALGIT1"

// gcmTagSize is the standard AES-GCM authentication tag length.
const gcmTagSize = 16

// FrameEncrypted repackages an Encrypt() result (nonce||ciphertext||tag)
// into the WALGIT1 wire layout.
func FrameEncrypted(sealed []byte) ([]byte, error) {
	if len(sealed) < NonceSize+gcmTagSize {
		return nil, FormatError("sealed blob shorter than nonce+tag", nil)
	}
	iv := sealed[:NonceSize]
	rest := sealed[NonceSize:]
	tag := rest[len(rest)-gcmTagSize:]
	ciphertext := rest[:len(rest)-gcmTagSize]

	out := make([]byte, 0, len(encryptedFrameMagic)+len(iv)+len(tag)+len(ciphertext))
	out = append(out, encryptedFrameMagic...)
	out = append(out, iv...)
	out = append(out, tag...)
	out = append(out, ciphertext...)
	return out, nil
}

// UnframeEncrypted parses a WALGIT1 frame back into the nonce||ciphertext||tag
// layout Decrypt expects, returning a FormatError when the magic is absent
// or the frame is too short to hold a nonce and tag.
func UnframeEncrypted(b []byte) ([]byte, error) {
	hdr := len(encryptedFrameMagic)
	if len(b) < hdr+NonceSize+gcmTagSize {
		return nil, FormatError("encrypted frame shorter than header", nil)
	}
	if string(b[:hdr]) != encryptedFrameMagic {
		return nil, FormatError("bad encrypted frame magic", nil)
	}
	pos := hdr
	iv := b[pos : pos+NonceSize]
	pos += NonceSize
	tag := b[pos : pos+gcmTagSize]
	pos += gcmTagSize
	ciphertext := b[pos:]

	sealed := make([]byte, 0, len(iv)+len(ciphertext)+len(tag))
	sealed = append(sealed, iv...)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	return sealed, nil
}
