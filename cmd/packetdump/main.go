// packetdump decodes a hex-encoded mesh packet from the command line and
// prints what the ingestion pipeline would see. Useful for picking apart a
// packet captured from the broker without touching the network.
//
//	packetdump 11050011223308...
//	packetdump -secret <hex> -channel e0 15000304...
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ctmesh/wardrive/internal/config"
	"github.com/ctmesh/wardrive/internal/meshcore"
)

func main() {
	if err := run(); err != nil {
		slog.Error("run packetdump", "error", err)
		os.Exit(1)
	}
}

func run() error {
	defaults := config.Default()
	channelHash := flag.String("channel", defaults.Channel.Hash, "watched channel hash (one hex byte)")
	secretHex := flag.String("secret", defaults.Channel.SecretHex, "channel AES key, hex")
	observerID := flag.String("observer", "", "receiving observer id to append to the path (hex, first byte used)")
	flag.Parse()

	if flag.NArg() != 1 {
		return fmt.Errorf("usage: %s [flags] <raw packet hex>", os.Args[0])
	}

	pkt, err := meshcore.Decode(flag.Arg(0))
	if err != nil {
		return err
	}
	if len(*observerID) >= 2 {
		pkt.AppendHop(strings.ToLower((*observerID)[:2]))
	}

	fmt.Printf("route type:      %d\n", pkt.RouteType)
	fmt.Printf("payload type:    %d\n", pkt.PayloadType)
	fmt.Printf("transport codes: %d %d\n", pkt.TransportCodes[0], pkt.TransportCodes[1])
	fmt.Printf("path:            %s\n", pkt.Path)
	fmt.Printf("payload:         %d bytes\n", len(pkt.Payload))

	switch pkt.PayloadType {
	case meshcore.PayloadAdvert:
		return dumpAdvert(pkt)
	case meshcore.PayloadGroupText:
		return dumpGroupText(pkt, *channelHash, *secretHex)
	default:
		fmt.Println("payload type is not interpreted by the pipeline")

		return nil
	}
}

func dumpAdvert(pkt *meshcore.Packet) error {
	adv, err := meshcore.DecodeAdvert(pkt.Payload)
	if err != nil {
		return err
	}
	if adv == nil {
		fmt.Println("advert: not from a repeater, pipeline would drop it")

		return nil
	}

	fmt.Printf("advert:          repeater %s\n", adv.ID())
	fmt.Printf("  name:          %q\n", adv.Name)
	fmt.Printf("  position:      %.6f %.6f\n", adv.Lat, adv.Lon)
	fmt.Printf("  timestamp:     %d\n", adv.Timestamp)

	return nil
}

func dumpGroupText(pkt *meshcore.Packet, channelHash, secretHex string) error {
	cfg := config.Default()
	cfg.Channel.Hash = channelHash
	cfg.Channel.SecretHex = secretHex

	secret, err := cfg.ChannelSecret()
	if err != nil {
		return err
	}

	decoder := &meshcore.ChannelDecoder{Hash: cfg.ChannelHash(), Secret: secret}
	sample, err := decoder.Decode(pkt.Payload, pkt.Path)
	if err != nil {
		return err
	}
	if sample == nil {
		fmt.Println("group message: no extractable sample, pipeline would drop it")

		return nil
	}

	fmt.Printf("sample:          %.6f %.6f via hop %s\n", sample.Lat, sample.Lon, sample.FirstHop)

	return nil
}
