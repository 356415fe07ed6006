package meshcore

import (
	"encoding/binary"
	"encoding/hex"
)

// Advert flag bits. The low nibble is the advertised node type; the high
// nibble gates optional fields that follow the fixed layout in this order:
// lat/lon, feature block 1, feature block 2, name.
const (
	advTypeMask   = 0x0F
	advFlagLatLon = 0x10
	advFlagFeat1  = 0x20
	advFlagFeat2  = 0x40
	advFlagName   = 0x80
)

// AdvertTypeRepeater is the only advertised node type this pipeline keeps.
const AdvertTypeRepeater = 2

const advertFixedLen = 32 + 4 + 64 + 1 // pubkey, timestamp, signature, flags

// Advert is a decoded repeater advertisement. Lat and Lon stay (0, 0) when
// the advert carries no location; the caller's validator rejects that pair.
type Advert struct {
	PublicKey string // 64 hex characters
	Timestamp uint32
	Type      uint8
	Lat       float64
	Lon       float64
	Name      string
}

// ID is the repeater identifier: the first public key byte as two hex
// characters.
func (a *Advert) ID() string {
	return a.PublicKey[:2]
}

// DecodeAdvert parses an advert payload. It returns (nil, nil) for adverts
// from anything other than a repeater; the signature is read but not
// checked.
func DecodeAdvert(payload []byte) (*Advert, error) {
	r := byteReader{buf: payload}

	pubkey, err := r.bytes(32, "public key")
	if err != nil {
		return nil, err
	}
	timestampRaw, err := r.bytes(4, "timestamp")
	if err != nil {
		return nil, err
	}
	if _, err := r.bytes(64, "signature"); err != nil {
		return nil, err
	}
	flags, err := r.byte("flags")
	if err != nil {
		return nil, err
	}

	adv := &Advert{
		PublicKey: hex.EncodeToString(pubkey),
		Timestamp: binary.LittleEndian.Uint32(timestampRaw),
		Type:      flags & advTypeMask,
	}
	if adv.Type != AdvertTypeRepeater {
		return nil, nil
	}

	if flags&advFlagLatLon != 0 {
		latRaw, err := r.bytes(4, "latitude")
		if err != nil {
			return nil, err
		}
		lonRaw, err := r.bytes(4, "longitude")
		if err != nil {
			return nil, err
		}
		// #nosec G115 -- the wire value is a signed 32-bit microdegree count.
		adv.Lat = float64(int32(binary.LittleEndian.Uint32(latRaw))) / 1e6
		// #nosec G115
		adv.Lon = float64(int32(binary.LittleEndian.Uint32(lonRaw))) / 1e6
	}
	if flags&advFlagFeat1 != 0 {
		if _, err := r.bytes(2, "feature block 1"); err != nil {
			return nil, err
		}
	}
	if flags&advFlagFeat2 != 0 {
		if _, err := r.bytes(2, "feature block 2"); err != nil {
			return nil, err
		}
	}
	if flags&advFlagName != 0 {
		adv.Name = sanitizeUTF8(r.rest())
	}

	return adv, nil
}
