package domain

// PacketType classifies the app-level payload carried by a mesh packet.
type PacketType uint8

const (
	PacketOther PacketType = iota
	// PacketAdvert is a node advertisement (identity, location, name).
	PacketAdvert
	// PacketGroupText is an encrypted group-channel text message.
	PacketGroupText
)

// InboundEnvelope is the JSON message an observer publishes to the broker
// for every packet it hears.
type InboundEnvelope struct {
	Hash       string `json:"hash"`
	Origin     string `json:"origin"`
	OriginID   string `json:"origin_id"`
	PacketType string `json:"packet_type"`
	RawHex     string `json:"raw"`
}

// Type maps the observer's packet_type string onto the types this pipeline
// cares about. Everything that is not an advert or a group message is Other.
func (e InboundEnvelope) Type() PacketType {
	switch e.PacketType {
	case "4":
		return PacketAdvert
	case "5":
		return PacketGroupText
	default:
		return PacketOther
	}
}

// RepeaterUpdate is the map-service record for a repeater advert. Path is
// always empty: adverts identify the repeater itself, not a route to it.
type RepeaterUpdate struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Lat  float64  `json:"lat"`
	Lon  float64  `json:"lon"`
	Path []string `json:"path"`
}

// SampleObservation is the map-service record for a coordinate sample heard
// through a group channel. Path holds the single nearest fixed hop.
type SampleObservation struct {
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Path     []string `json:"path"`
	Observed bool     `json:"observed"`
}
