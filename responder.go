package mdns

import (
	"strings"
	"time"
)

// This file holds the responder policy (which inbound question gets
// which answer, and in what order) and the resolver's half of response
// handling, plus the handful of send* helpers both Engine and the tick
// driver use to push a built packet through the Transport.
//
// The question-processing order below — host A, then the DNS-SD
// enumeration cascade, then per-service-type questions, then AAAA last
// — mirrors _processMDNSQuery's fixed pass order in the firmware this
// engine descends from: a packet that asks for several things at once
// is answered in that order, not in whatever order its questions
// happened to arrive in.

func hostLocalName(host string) string {
	if strings.HasSuffix(host, ".local") {
		return host
	}
	return host + ".local"
}

func (e *Engine) handleQuery(pkt *parsedPacket) error {
	hostLocal := hostLocalName(e.hostName)
	xid := pkt.hdr.id

	// Pass 1: A query for the host name.
	for _, q := range pkt.questions {
		if q.qType != typeA {
			continue
		}
		matched, _, err := matchName(pkt.data, q.nameOffset, hostLocal)
		if err != nil {
			return err
		}
		if matched {
			if err := e.sendMyIPAnswer(xid, true); err != nil {
				return err
			}
		}
	}

	// Pass 2: PTR query for the DNS-SD enumeration name — answer with
	// every registered service, capped at maxServicesPerPacket the
	// same way the firmware's MDNS_MAX_SERVICES_PER_PACKET does.
	for _, q := range pkt.questions {
		if q.qType != typePTR {
			continue
		}
		matched, _, err := matchName(pkt.data, q.nameOffset, dnsSDPTRName)
		if err != nil {
			return err
		}
		if !matched {
			continue
		}

		svcs := e.services.all()
		if len(svcs) > maxServicesPerPacket {
			svcs = svcs[:maxServicesPerPacket]
		}
		for _, svc := range svcs {
			if err := e.sendServiceRecord(xid, *svc, true); err != nil {
				return err
			}
		}
	}

	// Pass 3: a question naming a specific service type (PTR) or a
	// specific instance (SRV/TXT) directly. The question name is
	// decoded to a literal once and dispatched through the service
	// table's own lookups, rather than re-matching the wire bytes once
	// per registered service.
	for _, q := range pkt.questions {
		if q.qType != typePTR && q.qType != typeSRV && q.qType != typeTXT {
			continue
		}

		literal, _, truncated, err := decodeNameLiteral(pkt.data, q.nameOffset)
		if err != nil {
			return err
		}
		if truncated {
			continue
		}

		if q.qType == typePTR {
			for _, svc := range e.services.matchServiceType(literal) {
				if err := e.sendServiceRecord(xid, *svc, true); err != nil {
					return err
				}
			}
			continue
		}

		if svc := e.services.matchInstance(literal); svc != nil {
			if err := e.sendServiceRecord(xid, *svc, true); err != nil {
				return err
			}
		}
	}

	// Pass 4: AAAA for the host, answered last — there is never an
	// address to give, so the reply is an RCODE 3 "no such record" that
	// echoes the AAAA question and carries the host's A record as an
	// additional.
	for _, q := range pkt.questions {
		if q.qType != typeAAAA {
			continue
		}
		matched, _, err := matchName(pkt.data, q.nameOffset, hostLocal)
		if err != nil {
			return err
		}
		if matched {
			if err := e.sendNoIPv6(xid); err != nil {
				return err
			}
		}
	}

	return nil
}

// handleResponse feeds an inbound answer packet to whichever resolver
// slot it satisfies. It is a no-op for any slot that isn't active.
func (e *Engine) handleResponse(pkt *parsedPacket, now time.Time) {
	if slot := e.resolvers.slot(resolverKindName); slot.active() {
		targetLocal := hostLocalName(slot.query)

		for _, a := range pkt.answers {
			if a.rrType != typeA || a.rdataLen != 4 {
				continue
			}
			matched, _, err := matchName(pkt.data, a.nameOffset, targetLocal)
			if err != nil || !matched {
				continue
			}

			var ip [4]byte
			copy(ip[:], pkt.data[a.rdataStart:a.rdataStart+4])

			cb, name := e.nameResolvedCB, slot.query
			slot.reset()
			if cb != nil {
				cb(name, ip, true)
			}
			break
		}
	}

	if slot := e.resolvers.slot(resolverKindServiceEnum); slot.active() {
		for _, inst := range pkt.instances() {
			if e.serviceFoundCB == nil {
				break
			}
			// Only a PTR answering the browsed service type itself
			// names an actual instance; a packet may also carry the
			// "_services._dns-sd._udp.local" enumeration PTR, which
			// names the service type, not an instance of it.
			if inst.ownerRef.hasPointer || inst.ownerRef.literal != slot.query {
				continue
			}
			serviceType, proto, instanceName, ip, port, txt := correlateServiceAnswer(pkt, inst)
			e.serviceFoundCB(serviceType, proto, instanceName, ip, port, txt)
		}
	}
}

// correlateServiceAnswer walks the rest of pkt's answer pool for the
// SRV, TXT, and A records that describe the PTR instance inst, using
// the pointer-as-fingerprint identity check the decoder can actually
// perform (see nameRef.sameIdentity): a record's owner is taken to
// describe the same instance as inst's PTR RDATA when their names
// carry the same literal prefix and (if present) the same raw
// compression pointer. The A record is preferred by matching the
// SRV's target name; if none matches, the first A record anywhere in
// the packet is used instead, the same fallback the firmware's single
// -answer assumption makes when a responder omits proper glue.
func correlateServiceAnswer(pkt *parsedPacket, inst discoveredInstance) (serviceType string, proto Protocol, instanceName string, ip [4]byte, port uint16, txt []byte) {
	serviceType, proto = parseServiceTypeProto(inst.ownerRef.literal)
	instanceName = instanceShortName(inst.instanceRef, inst.ownerRef.literal)

	var targetRef nameRef
	haveTarget := false

	for _, a := range pkt.answers {
		switch a.rrType {
		case typeSRV:
			if !a.ownerRef.sameIdentity(inst.instanceRef) {
				continue
			}
			if p, t, err := decodeSRVRData(pkt.data, a.rdataStart); err == nil {
				port, targetRef, haveTarget = p, t, true
			}
		case typeTXT:
			if a.ownerRef.sameIdentity(inst.instanceRef) {
				txt = pkt.data[a.rdataStart : a.rdataStart+a.rdataLen]
			}
		}
	}

	if haveTarget {
		for _, a := range pkt.answers {
			if a.rrType == typeA && a.rdataLen == 4 && a.ownerRef.sameIdentity(targetRef) {
				copy(ip[:], pkt.data[a.rdataStart:a.rdataStart+4])
				return
			}
		}
	}

	for _, a := range pkt.answers {
		if a.rrType == typeA && a.rdataLen == 4 {
			copy(ip[:], pkt.data[a.rdataStart:a.rdataStart+4])
			return
		}
	}

	return
}

// instanceShortName extracts an instance's own label from instanceRef,
// dropping the service-type suffix serviceTypeLocal it was written
// against. When the wire name ends in a compression pointer, the
// label this decoder already kept (everything before that pointer) is
// exactly the short name; when it was instead written out in full (as
// this engine's own encoder always does — it never compresses), the
// dotted service-type suffix is trimmed off explicitly to get the same
// result.
func instanceShortName(instanceRef nameRef, serviceTypeLocal string) string {
	if instanceRef.hasPointer {
		return instanceRef.literal
	}
	return strings.TrimSuffix(instanceRef.literal, "."+serviceTypeLocal)
}

func (e *Engine) sendMyIPAnswer(xid uint16, cacheFlush bool) error {
	buf, err := buildMyIPAnswer(e.writeBuf[:0], xid, hostLocalName(e.hostName), e.localIP, cacheFlush)
	if err != nil {
		return err
	}
	return e.flush(buf)
}

func (e *Engine) sendNoIPv6(xid uint16) error {
	buf, err := buildNoIPv6AddrAvailable(e.writeBuf[:0], xid, hostLocalName(e.hostName), e.localIP)
	if err != nil {
		return err
	}
	return e.flush(buf)
}

func (e *Engine) sendServiceRecord(xid uint16, svc ServiceRecord, cacheFlush bool) error {
	buf, err := buildServiceRecord(e.writeBuf[:0], xid, hostLocalName(e.hostName), e.localIP, svc, cacheFlush)
	if err != nil {
		return err
	}
	return e.flush(buf)
}

func (e *Engine) sendGoodbye(svc ServiceRecord) error {
	buf, err := buildServiceRecordRelease(e.writeBuf[:0], 0, svc)
	if err != nil {
		return err
	}
	return e.flush(buf)
}

func (e *Engine) sendNameQuery(name string, xid uint16) error {
	buf, err := buildNameQuery(e.writeBuf[:0], xid, hostLocalName(name))
	if err != nil {
		return err
	}
	return e.flush(buf)
}

func (e *Engine) sendServiceQuery(serviceTypeLocal string, xid uint16) error {
	buf, err := buildServiceQuery(e.writeBuf[:0], xid, serviceTypeLocal)
	if err != nil {
		return err
	}
	return e.flush(buf)
}

// flush pushes a fully built packet through the Transport's
// begin/write/end sequence.
func (e *Engine) flush(buf []byte) error {
	if err := e.transport.BeginPacket(); err != nil {
		return err
	}
	if err := e.transport.Write(buf); err != nil {
		return err
	}
	return e.transport.EndPacket()
}
