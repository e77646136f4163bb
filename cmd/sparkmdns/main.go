// SPDX-FileCopyrightText: 2026 sparkmdns contributors
// SPDX-License-Identifier: MIT

// Command sparkmdns advertises a host name and one HTTP service over
// mDNS until interrupted, driving the engine from a plain time.Ticker
// loop — the cooperative scheduler the library expects the embedder to
// supply.
package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/pion/logging"

	mdns "github.com/pieceofsummer/sparkmdns"
)

func main() {
	name := flag.String("name", "myspark", "host name to advertise, without .local")
	port := flag.Int("port", 8080, "port to advertise the _http._tcp service on")
	ifaceName := flag.String("iface", "", "network interface to bind (default: first non-loopback)")
	flag.Parse()

	iface, localIP, err := pickInterface(*ifaceName)
	if err != nil {
		log.Fatalf("pick interface: %v", err)
	}

	transport, err := mdns.NewUDPTransport(iface, localIP)
	if err != nil {
		log.Fatalf("open transport: %v", err)
	}

	engine, err := mdns.New(*name, localIP, transport, mdns.WithLoggerFactory(logging.NewDefaultLoggerFactory()))
	if err != nil {
		log.Fatalf("new engine: %v", err)
	}

	if err := engine.AddService(mdns.ServiceRecord{
		InstanceName: *name + " web",
		ServiceName:  "_http",
		Protocol:     mdns.ProtocolTCP,
		Port:         uint16(*port),
	}); err != nil {
		log.Fatalf("add service: %v", err)
	}

	engine.Begin()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if err := engine.Run(now); err != nil {
				log.Printf("run: %v", err)
			}
		case <-sigc:
			engine.Close()
			return
		}
	}
}

func pickInterface(name string) (*net.Interface, [4]byte, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, [4]byte{}, err
	}

	for _, iface := range ifaces {
		if name != "" && iface.Name != name {
			continue
		}
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}
			var out [4]byte
			copy(out[:], ip4)
			return &iface, out, nil
		}
	}

	return nil, [4]byte{}, net.UnknownNetworkError("no usable IPv4 interface found")
}
