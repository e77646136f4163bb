package mdns

import (
	"encoding/binary"
	"errors"
)

// headerLen is the fixed 12-byte RFC 1035 message header.
const headerLen = 12

var errPacketTooSmall = errors.New("mdns: packet too small to be valid")

// Flag bits within the 16-bit header flags field (RFC 1035 §4.1.1).
const (
	flagQR = uint16(1 << 15) // query/response
	flagAA = uint16(1 << 10) // authoritative answer
	flagTC = uint16(1 << 9)  // truncated
	flagRD = uint16(1 << 8)  // recursion desired

	opcodeShift = 11
	opcodeMask  = uint16(0x0f)
	rcodeMask   = uint16(0x000f)

	rcodeNameError = uint16(3)
)

// DNS record types and classes used on the wire (RFC 1035, RFC 6762).
const (
	typeA    = uint16(0x0001)
	typeCNAME = uint16(0x0005)
	typePTR  = uint16(0x000c)
	typeTXT  = uint16(0x0010)
	typeAAAA = uint16(0x001c)
	typeSRV  = uint16(0x0021)

	classIN          = uint16(0x0001)
	classCacheFlush  = uint16(0x8000) // high bit of CLASS on an authoritative answer
	classUnicastResp = uint16(0x8000) // same bit, repurposed as QU on a question
)

// dnsHeader is the 12-byte message header common to every mDNS packet.
type dnsHeader struct {
	id      uint16
	flags   uint16
	qdCount uint16
	anCount uint16
	nsCount uint16
	arCount uint16
}

func (h dnsHeader) isResponse() bool { return h.flags&flagQR != 0 }
func (h dnsHeader) opcode() uint16   { return (h.flags >> opcodeShift) & opcodeMask }

// marshal appends the 12-byte wire encoding of h to buf.
func (h dnsHeader) marshal(buf []byte) []byte {
	var tmp [headerLen]byte
	binary.BigEndian.PutUint16(tmp[0:], h.id)
	binary.BigEndian.PutUint16(tmp[2:], h.flags)
	binary.BigEndian.PutUint16(tmp[4:], h.qdCount)
	binary.BigEndian.PutUint16(tmp[6:], h.anCount)
	binary.BigEndian.PutUint16(tmp[8:], h.nsCount)
	binary.BigEndian.PutUint16(tmp[10:], h.arCount)

	return append(buf, tmp[:]...)
}

// unmarshalHeader reads the 12-byte header from the front of data.
func unmarshalHeader(data []byte) (dnsHeader, error) {
	if len(data) < headerLen {
		return dnsHeader{}, errPacketTooSmall
	}

	return dnsHeader{
		id:      binary.BigEndian.Uint16(data[0:]),
		flags:   binary.BigEndian.Uint16(data[2:]),
		qdCount: binary.BigEndian.Uint16(data[4:]),
		anCount: binary.BigEndian.Uint16(data[6:]),
		nsCount: binary.BigEndian.Uint16(data[8:]),
		arCount: binary.BigEndian.Uint16(data[10:]),
	}, nil
}

// appendRRHeaderTail appends TYPE, CLASS (with the cache-flush bit set
// when cacheFlush is true), TTL, and RDLENGTH — the ten bytes that
// follow every resource record's owner name, minus the name itself.
func appendRRHeaderTail(buf []byte, rrType uint16, cacheFlush bool, ttl uint32, rdlength uint16) []byte {
	class := classIN
	if cacheFlush {
		class |= classCacheFlush
	}

	var tmp [10]byte
	binary.BigEndian.PutUint16(tmp[0:], rrType)
	binary.BigEndian.PutUint16(tmp[2:], class)
	binary.BigEndian.PutUint32(tmp[4:], ttl)
	binary.BigEndian.PutUint16(tmp[8:], rdlength)

	return append(buf, tmp[:]...)
}

// appendQuestionTail appends QTYPE and QCLASS, the four bytes that
// follow a question's QNAME.
func appendQuestionTail(buf []byte, qType, qClass uint16) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint16(tmp[0:], qType)
	binary.BigEndian.PutUint16(tmp[2:], qClass)

	return append(buf, tmp[:]...)
}
