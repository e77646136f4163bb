// SPDX-FileCopyrightText: 2026 sparkmdns contributors
// SPDX-License-Identifier: MIT

// Package mdns implements a self-contained multicast DNS (mDNS/Bonjour)
// responder and query client for a single-interface network node.
//
// The engine advertises a host name and up to eight DNS-SD service
// records on 224.0.0.251:5353, and resolves a peer host name or
// enumerates instances of a service type. It is cooperative and
// single-threaded: inbound packets, resends, timeouts and periodic
// announcements are all handled inside Engine.Run, called by the
// embedder's own scheduling loop. The engine itself starts no
// goroutines; outside of Run it sends packets only from the calls that
// emit one directly (AddService, RemoveService, RemoveAllServices,
// ResolveName, StartServiceDiscovery, Close).
//
// IPv6 is not supported: AAAA queries for the host name are answered
// with "no such record" rather than an address. DNS name compression
// is never emitted, only tolerated on decode as an opaque fingerprint.
package mdns
