package meshcore

import (
	"crypto/aes"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// coordPair matches the first free-text coordinate pair in a decrypted
// channel message: a signed decimal latitude, an optional comma, required
// whitespace, a signed decimal longitude, and optionally whitespace plus a
// two-hex-digit repeater id that senders sometimes append.
var coordPair = regexp.MustCompile(
	`([+-]?\d+(?:\.\d+)?)\s*,?\s+([+-]?\d+(?:\.\d+)?)(?:\s+([0-9a-f]{2}))?`,
)

// Sample is a coordinate pair extracted from a group channel message,
// attributed to the nearest fixed relay hop.
type Sample struct {
	Lat      float64
	Lon      float64
	FirstHop string
}

// ChannelDecoder decrypts and interprets group messages for one watched
// channel. Hash is the channel's identifying byte as two lower-case hex
// characters; Secret is the shared AES key (16, 24 or 32 bytes).
type ChannelDecoder struct {
	Hash   string
	Secret []byte
	Logger *slog.Logger
}

// Decode interprets a group message payload against the watched channel.
// It returns (nil, nil) for expected non-samples: other channels, truncated
// ciphertext, or plaintext without a coordinate pair. path is the packet's
// hop path as a lower-case hex string.
func (d *ChannelDecoder) Decode(payload []byte, path string) (*Sample, error) {
	r := byteReader{buf: payload}

	hashRaw, err := r.byte("channel hash")
	if err != nil {
		return nil, err
	}
	if hex.EncodeToString([]byte{hashRaw}) != d.Hash {
		return nil, nil
	}

	// The two-byte MAC is read but deliberately not verified; the upstream
	// firmware's channel MAC is out of scope for this collector.
	if _, err := r.bytes(2, "mac"); err != nil {
		return nil, err
	}

	ciphertext := r.rest()
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, nil
	}

	plaintext, err := decryptECB(d.Secret, ciphertext)
	if err != nil {
		return nil, err
	}
	if len(plaintext) <= 4 {
		return nil, nil
	}

	// The first five plaintext bytes are a sender header not interpreted
	// here; the rest is free text.
	text := strings.ToLower(sanitizeUTF8(plaintext[5:]))
	match := coordPair.FindStringSubmatch(text)
	if match == nil {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude %q: %w", match[1], err)
	}
	lon, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude %q: %w", match[2], err)
	}

	firstHop := hopAt(path, 0)
	if ignored := match[3]; ignored != "" && ignored == firstHop {
		// A mobile repeater re-broadcasts with its own id as the nearest
		// hop; skip to the next fixed observer.
		firstHop = hopAt(path, 1)
		d.logger().Info("ignoring first hop", "ignored", ignored, "using", firstHop)
	}
	if firstHop == "" {
		return nil, nil
	}

	return &Sample{Lat: lat, Lon: lon, FirstHop: firstHop}, nil
}

func (d *ChannelDecoder) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}

	return slog.Default()
}

func hopAt(path string, n int) string {
	start := n * 2
	if start+2 > len(path) {
		return ""
	}

	return path[start : start+2]
}

// decryptECB decrypts AES in electronic-codebook mode, the channel scheme
// used on the air. No padding is removed; the caller sees raw blocks.
func decryptECB(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("channel cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += aes.BlockSize {
		block.Decrypt(plaintext[i:i+aes.BlockSize], ciphertext[i:i+aes.BlockSize])
	}

	return plaintext, nil
}
