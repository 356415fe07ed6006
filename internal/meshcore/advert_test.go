package meshcore

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

type advertBuilder struct {
	pubkeyFirst byte
	flags       byte
	lat, lon    int32
	feat1       bool
	feat2       bool
	name        []byte
}

func (b advertBuilder) build() []byte {
	payload := make([]byte, 0, advertFixedLen)
	pubkey := make([]byte, 32)
	pubkey[0] = b.pubkeyFirst
	payload = append(payload, pubkey...)
	payload = binary.LittleEndian.AppendUint32(payload, 1700000000)
	payload = append(payload, make([]byte, 64)...) // signature
	payload = append(payload, b.flags)
	if b.flags&advFlagLatLon != 0 {
		// #nosec G115 -- test fixture
		payload = binary.LittleEndian.AppendUint32(payload, uint32(b.lat))
		// #nosec G115
		payload = binary.LittleEndian.AppendUint32(payload, uint32(b.lon))
	}
	if b.feat1 {
		payload = append(payload, 0x01, 0x02)
	}
	if b.feat2 {
		payload = append(payload, 0x03, 0x04)
	}
	payload = append(payload, b.name...)

	return payload
}

func TestDecodeAdvertRepeaterWithLocationAndName(t *testing.T) {
	payload := advertBuilder{
		pubkeyFirst: 0xab,
		flags:       AdvertTypeRepeater | advFlagLatLon | advFlagName,
		lat:         41610000,
		lon:         -72770000,
		name:        []byte("Test Repeater\x00\x00"),
	}.build()

	adv, err := DecodeAdvert(payload)
	if err != nil {
		t.Fatalf("decode advert: %v", err)
	}
	if adv == nil {
		t.Fatal("expected advert, got nil")
	}

	if adv.ID() != "ab" {
		t.Fatalf("id %q, want %q", adv.ID(), "ab")
	}
	if adv.Name != "Test Repeater" {
		t.Fatalf("name %q, want %q", adv.Name, "Test Repeater")
	}
	if math.Abs(adv.Lat-41.61) > 1e-9 || math.Abs(adv.Lon-(-72.77)) > 1e-9 {
		t.Fatalf("position (%v, %v), want (41.61, -72.77)", adv.Lat, adv.Lon)
	}
}

func TestDecodeAdvertNonRepeaterIsNil(t *testing.T) {
	payload := advertBuilder{
		flags: 1 | advFlagLatLon | advFlagName, // chat node, not a repeater
		lat:   41610000,
		lon:   -72770000,
		name:  []byte("Chat Node"),
	}.build()

	adv, err := DecodeAdvert(payload)
	if err != nil {
		t.Fatalf("decode advert: %v", err)
	}
	if adv != nil {
		t.Fatalf("expected nil for non-repeater, got %+v", adv)
	}
}

func TestDecodeAdvertWithoutLocationIsOrigin(t *testing.T) {
	payload := advertBuilder{
		flags: AdvertTypeRepeater | advFlagName,
		name:  []byte("No Position"),
	}.build()

	adv, err := DecodeAdvert(payload)
	if err != nil {
		t.Fatalf("decode advert: %v", err)
	}
	if adv == nil {
		t.Fatal("expected advert, got nil")
	}
	if adv.Lat != 0 || adv.Lon != 0 {
		t.Fatalf("position (%v, %v), want (0, 0)", adv.Lat, adv.Lon)
	}
}

func TestDecodeAdvertSkipsFeatureBlocks(t *testing.T) {
	payload := advertBuilder{
		flags: AdvertTypeRepeater | advFlagLatLon | advFlagFeat1 | advFlagFeat2 | advFlagName,
		lat:   41600000,
		lon:   -72700000,
		feat1: true,
		feat2: true,
		name:  []byte("Featureful"),
	}.build()

	adv, err := DecodeAdvert(payload)
	if err != nil {
		t.Fatalf("decode advert: %v", err)
	}
	if adv == nil {
		t.Fatal("expected advert, got nil")
	}
	if adv.Name != "Featureful" {
		t.Fatalf("name %q, want %q", adv.Name, "Featureful")
	}
}

func TestDecodeAdvertTruncated(t *testing.T) {
	full := advertBuilder{
		flags: AdvertTypeRepeater | advFlagLatLon,
		lat:   41600000,
		lon:   -72700000,
	}.build()

	cases := []struct {
		name string
		cut  int
	}{
		{"mid public key", 10},
		{"before flags", advertFixedLen - 1},
		{"mid latitude", advertFixedLen + 2},
		{"mid longitude", advertFixedLen + 6},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeAdvert(full[:tc.cut]); !errors.Is(err, ErrMalformed) {
				t.Fatalf("cut at %d: error %v, want ErrMalformed", tc.cut, err)
			}
		})
	}
}
