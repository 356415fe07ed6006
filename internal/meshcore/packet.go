// Package meshcore decodes the MeshCore over-the-air packet format: the
// outer envelope (header, transport codes, hop path, payload) and the two
// payload kinds this pipeline consumes, node adverts and encrypted group
// channel messages.
package meshcore

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrMalformed reports a packet shorter than a field it declares.
var ErrMalformed = errors.New("malformed packet")

// Route types from the packet header. Transport routes (flood and direct)
// carry a pair of transport codes after the header byte.
const (
	RouteTransportFlood  = 0
	RouteFlood           = 1
	RouteDirect          = 2
	RouteTransportDirect = 3
)

// Payload types from the packet header.
const (
	PayloadAdvert    = 4
	PayloadGroupText = 5
)

// Packet is the decoded outer envelope. Path keeps the relay hops as a
// lower-case hex string, two characters per hop byte, matching how observer
// ids are appended downstream.
type Packet struct {
	RouteType      uint8
	PayloadType    uint8
	TransportCodes [2]uint16
	Path           string
	Payload        []byte
}

// Decode parses a hex-encoded packet envelope. Every read is bounded by the
// input length; a packet shorter than a declared field fails with
// ErrMalformed.
func Decode(rawHex string) (*Packet, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(rawHex))
	if err != nil {
		return nil, fmt.Errorf("%w: bad hex: %w", ErrMalformed, err)
	}

	r := byteReader{buf: raw}
	header, err := r.byte("header")
	if err != nil {
		return nil, err
	}

	pkt := &Packet{
		RouteType:   header & 0x3,
		PayloadType: (header >> 2) & 0xF,
	}

	if pkt.RouteType == RouteTransportFlood || pkt.RouteType == RouteTransportDirect {
		for i := range pkt.TransportCodes {
			code, err := r.uint16le("transport code")
			if err != nil {
				return nil, err
			}
			pkt.TransportCodes[i] = code
		}
	}

	pathLen, err := r.byte("path length")
	if err != nil {
		return nil, err
	}
	path, err := r.bytes(int(pathLen), "path")
	if err != nil {
		return nil, err
	}
	pkt.Path = hex.EncodeToString(path)
	pkt.Payload = r.rest()

	return pkt, nil
}

// AppendHop adds one hop byte (two hex characters, lower-cased) to the path.
func (p *Packet) AppendHop(hopHex string) {
	p.Path += strings.ToLower(hopHex)
}

type byteReader struct {
	buf []byte
	off int
}

func (r *byteReader) byte(field string) (byte, error) {
	b, err := r.bytes(1, field)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

func (r *byteReader) uint16le(field string) (uint16, error) {
	b, err := r.bytes(2, field)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(b), nil
}

func (r *byteReader) bytes(n int, field string) ([]byte, error) {
	if r.off+n > len(r.buf) {
		return nil, fmt.Errorf("%w: %s needs %d bytes, %d available", ErrMalformed, field, n, len(r.buf)-r.off)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n

	return b, nil
}

func (r *byteReader) rest() []byte {
	b := r.buf[r.off:]
	r.off = len(r.buf)

	return b
}

// sanitizeUTF8 decodes permissively: invalid byte sequences and NUL padding
// are dropped rather than failing.
func sanitizeUTF8(b []byte) string {
	s := string(b)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	return strings.ReplaceAll(s, "\x00", "")
}
