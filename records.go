package mdns

// This file builds the wire bytes for every packet shape the engine
// sends. Each build* function appends to an existing buffer (the
// engine's scratch write buffer, supplied by the caller) rather than
// allocating its own, mirroring the firmware's beginPacket/write/
// endPacket sequence in _sendMDNSMessage — the buffer boundary lives in
// transport.go, not here.

const (
	defaultTTL  = uint32(120) // MDNS_RESPONSE_TTL
	goodbyeTTL  = uint32(0)
	dnsSDPTRName = "_services._dns-sd._udp.local"
)

// responseFlags returns the header flags for an authoritative response:
// QR and AA set, TC never set.
func responseFlags() uint16 {
	return flagQR | flagAA
}

// appendHeader appends a header with the given XID, flags, and section
// counts — used for every packet shape, questions and answers alike.
func appendHeader(buf []byte, xid uint16, flags uint16, qd, an, ns, ar uint16) []byte {
	h := dnsHeader{id: xid, flags: flags, qdCount: qd, anCount: an, nsCount: ns, arCount: ar}
	return h.marshal(buf)
}

// buildMyIPAnswer appends a single A record answering hostName with ip,
// the reply to an inbound NameQuery (or the unsolicited announcement
// Run sends once startupWait has passed after Begin, and on each
// re-announce).
func buildMyIPAnswer(buf []byte, xid uint16, hostName string, ip [4]byte, cacheFlush bool) ([]byte, error) {
	buf = appendHeader(buf, xid, responseFlags(), 0, 1, 0, 0)

	buf, err := writeName(buf, hostName, true)
	if err != nil {
		return buf, err
	}

	buf = appendRRHeaderTail(buf, typeA, cacheFlush, defaultTTL, 4)
	buf = append(buf, ip[0], ip[1], ip[2], ip[3])

	return buf, nil
}

// buildNoIPv6AddrAvailable appends an authoritative NXDOMAIN-shaped
// reply to an inbound AAAA question for hostName: RFC 6762 mDNS has no
// record type to assert a clean negative, so the engine echoes the
// AAAA question back with RCODE 3 and offers hostName's A record as an
// additional, the same shape the firmware's _writeNoIPv6AddrAvailable
// builds — a resolver that only understands AAAA sees "no such
// record", while one willing to fall back to IPv4 already has what it
// needs without a second round trip.
func buildNoIPv6AddrAvailable(buf []byte, xid uint16, hostName string, ip [4]byte) ([]byte, error) {
	buf = appendHeader(buf, xid, responseFlags()|rcodeNameError, 1, 0, 0, 1)

	buf, err := writeName(buf, hostName, true)
	if err != nil {
		return buf, err
	}
	buf = appendQuestionTail(buf, typeAAAA, classIN)

	buf, err = writeName(buf, hostName, true)
	if err != nil {
		return buf, err
	}
	buf = appendRRHeaderTail(buf, typeA, false, defaultTTL, 4)
	buf = append(buf, ip[0], ip[1], ip[2], ip[3])

	return buf, nil
}

// serviceRecordAnswerCount reports how many resource records
// buildServiceRecord places in the answer section for svc: the DNS-SD
// enumeration PTR, the service-type PTR, SRV, and TXT.
//
// serviceRecordAdditionalCount is the trailing A glue record, carried
// in the additional section rather than the answer section — it
// describes the host the SRV target names, not the service instance
// itself, the same distinction the firmware's RR counts draw.
const (
	serviceRecordAnswerCount     = 4
	serviceRecordAdditionalCount = 1
	serviceRecordTotalCount      = serviceRecordAnswerCount + serviceRecordAdditionalCount
)

// buildServiceRecord appends the full DNS-SD announcement for one
// service: the "_services._dns-sd._udp.local" enumeration PTR, the
// "<service>.local" PTR to the instance, SRV, TXT, and an A glue record
// for the host — the same record set the firmware's
// _writeServiceRecordPTR/_writeServiceRecordName/_writeMyIPAnswerRecord
// trio produces for one service, just assembled in one pass instead of
// three separate send calls.
func buildServiceRecord(buf []byte, xid uint16, hostName string, ip [4]byte, svc ServiceRecord, cacheFlush bool) ([]byte, error) {
	var err error

	buf = appendHeader(buf, xid, responseFlags(), 0, serviceRecordAnswerCount, 0, serviceRecordAdditionalCount)

	serviceTypeName := svc.ServiceName + svc.Protocol.suffix()
	instanceName := svc.InstanceName + "." + serviceTypeName

	// _services._dns-sd._udp.local PTR -> <service>.<proto>.local
	buf, err = writeName(buf, dnsSDPTRName, true)
	if err != nil {
		return buf, err
	}
	buf = appendRRHeaderTail(buf, typePTR, false, defaultTTL, 0)
	rdStart := len(buf)
	buf, err = writeName(buf, serviceTypeName, true)
	if err != nil {
		return buf, err
	}
	buf = patchRDLength(buf, rdStart)

	// <service>.<proto>.local PTR -> <instance>.<service>.<proto>.local
	buf, err = writeName(buf, serviceTypeName, true)
	if err != nil {
		return buf, err
	}
	buf = appendRRHeaderTail(buf, typePTR, false, defaultTTL, 0)
	rdStart = len(buf)
	buf, err = writeName(buf, instanceName, true)
	if err != nil {
		return buf, err
	}
	buf = patchRDLength(buf, rdStart)

	// SRV: priority/weight/port then target host name.
	buf, err = writeName(buf, instanceName, true)
	if err != nil {
		return buf, err
	}
	buf = appendRRHeaderTail(buf, typeSRV, cacheFlush, defaultTTL, 0)
	rdStart = len(buf)
	buf = append(buf, 0, 0, 0, 0, byte(svc.Port>>8), byte(svc.Port))
	buf, err = writeName(buf, hostName, true)
	if err != nil {
		return buf, err
	}
	buf = patchRDLength(buf, rdStart)

	// TXT, falling back to a single empty string per RFC 6763 §6.1.
	buf, err = writeName(buf, instanceName, true)
	if err != nil {
		return buf, err
	}
	if len(svc.TXT) == 0 {
		buf = appendRRHeaderTail(buf, typeTXT, cacheFlush, defaultTTL, 1)
		buf = append(buf, 0)
	} else {
		buf = appendRRHeaderTail(buf, typeTXT, cacheFlush, defaultTTL, uint16(len(svc.TXT)))
		buf = append(buf, svc.TXT...)
	}

	// A glue record for the host, so a resolver never needs a second
	// round trip to turn the SRV target into an address.
	buf, err = writeName(buf, hostName, true)
	if err != nil {
		return buf, err
	}
	buf = appendRRHeaderTail(buf, typeA, cacheFlush, defaultTTL, 4)
	buf = append(buf, ip[0], ip[1], ip[2], ip[3])

	return buf, nil
}

// buildServiceRecordRelease appends a goodbye for svc: a single PTR
// record, the service-type PTR to the instance that is
// buildServiceRecord's second answer, but with TTL 0, so
// listeners drop the instance from their cache immediately (RFC 6762
// §10.1). Sent from RemoveService and from Engine.Close for every
// service still registered.
func buildServiceRecordRelease(buf []byte, xid uint16, svc ServiceRecord) ([]byte, error) {
	var err error

	buf = appendHeader(buf, xid, responseFlags(), 0, 1, 0, 0)

	serviceTypeName := svc.ServiceName + svc.Protocol.suffix()
	instanceName := svc.InstanceName + "." + serviceTypeName

	buf, err = writeName(buf, serviceTypeName, true)
	if err != nil {
		return buf, err
	}
	buf = appendRRHeaderTail(buf, typePTR, false, goodbyeTTL, 0)
	rdStart := len(buf)
	buf, err = writeName(buf, instanceName, true)
	if err != nil {
		return buf, err
	}
	buf = patchRDLength(buf, rdStart)

	return buf, nil
}

// buildNameQuery appends a single-question packet asking for the A
// record of name — what ResolveName sends on first send and on each
// 1s resend.
func buildNameQuery(buf []byte, xid uint16, name string) ([]byte, error) {
	buf = appendHeader(buf, xid, 0, 1, 0, 0, 0)

	buf, err := writeName(buf, name, true)
	if err != nil {
		return buf, err
	}

	return appendQuestionTail(buf, typeA, classIN), nil
}

// buildServiceQuery appends a single-question packet asking for PTR
// records under serviceTypeName — what StartServiceDiscovery sends on
// first send and on each 10s resend.
func buildServiceQuery(buf []byte, xid uint16, serviceTypeName string) ([]byte, error) {
	buf = appendHeader(buf, xid, 0, 1, 0, 0, 0)

	buf, err := writeName(buf, serviceTypeName, true)
	if err != nil {
		return buf, err
	}

	return appendQuestionTail(buf, typePTR, classIN), nil
}

// patchRDLength backfills the two-byte RDLENGTH field that precedes the
// RDATA starting at rdStart, now that RDATA has been fully written and
// its length is known. rdStart points at the first byte after
// RDLENGTH's own two bytes were reserved by appendRRHeaderTail(…, 0);
// that call wrote a placeholder 0 which this overwrites in place.
func patchRDLength(buf []byte, rdStart int) []byte {
	rdLen := len(buf) - rdStart
	buf[rdStart-2] = byte(rdLen >> 8)
	buf[rdStart-1] = byte(rdLen)
	return buf
}
