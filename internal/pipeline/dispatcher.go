// Package pipeline orchestrates message ingestion: filtering, deduplication,
// packet decoding, interpretation, location validation, and upload.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ctmesh/wardrive/internal/domain"
	"github.com/ctmesh/wardrive/internal/geo"
	"github.com/ctmesh/wardrive/internal/meshcore"
)

// Sink receives validated records for delivery to the map service.
type Sink interface {
	PutRepeater(ctx context.Context, rec domain.RepeaterUpdate) error
	PutSample(ctx context.Context, rec domain.SampleObservation) error
}

// Dispatcher runs one inbound broker message through the ingestion sequence.
// Most messages are dropped by one of the guards below; that is expected
// traffic, not an error, and is not logged.
type Dispatcher struct {
	watchedOrigins map[string]struct{}
	channel        *meshcore.ChannelDecoder
	validator      *geo.Validator
	sink           Sink
	seen           *SeenSet
	logger         *slog.Logger
}

func NewDispatcher(origins []string, channel *meshcore.ChannelDecoder, validator *geo.Validator, sink Sink, logger *slog.Logger) *Dispatcher {
	watched := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		watched[origin] = struct{}{}
	}

	return &Dispatcher{
		watchedOrigins: watched,
		channel:        channel,
		validator:      validator,
		sink:           sink,
		seen:           NewSeenSet(DefaultSeenCapacity),
		logger:         logger.With("component", "pipeline"),
	}
}

// HandleMessage processes one raw broker payload to completion. Nothing it
// does can fail the caller: decode and interpretation errors are logged with
// the offending envelope and the message is dropped.
//
// A successfully dispatched hash is marked seen even when no record was
// emitted, so retransmissions are never reinterpreted. An error mid-dispatch
// leaves the hash unmarked and the message is re-attempted if redelivered;
// that matches the behavior of the deployed collector.
func (d *Dispatcher) HandleMessage(ctx context.Context, payload []byte) {
	var env domain.InboundEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		d.logger.Error("decode broker message", "error", err, "payload", string(payload))

		return
	}

	if env.Hash == "" || d.seen.Has(env.Hash) {
		return
	}
	if _, ok := d.watchedOrigins[env.Origin]; !ok {
		return
	}
	packetType := env.Type()
	if packetType == domain.PacketOther {
		return
	}

	if err := d.dispatch(ctx, env, packetType); err != nil {
		d.logger.Error("handle packet", "error", err, "hash", env.Hash, "origin", env.Origin, "raw", env.RawHex)

		return
	}

	d.seen.Add(env.Hash)
}

func (d *Dispatcher) dispatch(ctx context.Context, env domain.InboundEnvelope, packetType domain.PacketType) error {
	pkt, err := meshcore.Decode(env.RawHex)
	if err != nil {
		return err
	}

	// Observers do not put themselves in the hop path; synthesize the
	// receiving observer as the final hop.
	if len(env.OriginID) < 2 {
		return fmt.Errorf("origin id too short: %q", env.OriginID)
	}
	pkt.AppendHop(strings.ToLower(env.OriginID[:2]))

	switch packetType {
	case domain.PacketAdvert:
		return d.handleAdvert(ctx, pkt)
	case domain.PacketGroupText:
		return d.handleGroupText(ctx, pkt)
	default:
		return nil
	}
}

func (d *Dispatcher) handleAdvert(ctx context.Context, pkt *meshcore.Packet) error {
	adv, err := meshcore.DecodeAdvert(pkt.Payload)
	if err != nil {
		return err
	}
	if adv == nil || !d.validator.Valid(adv.Lat, adv.Lon) {
		return nil
	}

	rec := domain.RepeaterUpdate{
		ID:   adv.ID(),
		Name: adv.Name,
		Lat:  adv.Lat,
		Lon:  adv.Lon,
		Path: []string{},
	}
	if err := d.sink.PutRepeater(ctx, rec); err != nil {
		// Delivery failure drops the record but still counts as processed.
		d.logger.Error("upload repeater", "error", err, "id", rec.ID)
	}

	return nil
}

func (d *Dispatcher) handleGroupText(ctx context.Context, pkt *meshcore.Packet) error {
	sample, err := d.channel.Decode(pkt.Payload, pkt.Path)
	if err != nil {
		return err
	}
	if sample == nil || !d.validator.Valid(sample.Lat, sample.Lon) {
		return nil
	}

	rec := domain.SampleObservation{
		Lat:      sample.Lat,
		Lon:      sample.Lon,
		Path:     []string{sample.FirstHop},
		Observed: true,
	}
	if err := d.sink.PutSample(ctx, rec); err != nil {
		d.logger.Error("upload sample", "error", err, "hop", sample.FirstHop)
	}

	return nil
}
