package mdns

import "errors"

var errInvalidLabel = errors.New("mdns: invalid label length byte")

// question is a parsed question-section entry. nameOffset points at the
// first byte of its QNAME within the original packet; callers test it
// against candidate names with matchName rather than decoding it to a
// string, since most questions are only ever compared, never printed.
type question struct {
	nameOffset int
	qType      uint16
	qClass     uint16
}

func (q question) wantsUnicastResponse() bool {
	return q.qClass&classUnicastResp != 0
}

// nameRef identifies a wire-encoded name by as much of it as this
// decoder can read literally, plus — when the name ends in a
// compression pointer rather than a terminator — the pointer's target
// offset. The decoder never dereferences that offset (nothing earlier
// in the packet is kept as an addressable cache), so a nameRef is not
// a full name. It is enough to correlate two occurrences of the same
// name within one packet: if both end by pointing at the same earlier
// offset, and the literal labels before that point are identical, they
// name the same thing, whatever that thing's full text is.
type nameRef struct {
	literal    string
	pointer    uint16
	hasPointer bool
}

// sameIdentity reports whether r and other are very likely the same
// wire name, using exactly the fingerprint described above.
func (r nameRef) sameIdentity(other nameRef) bool {
	if r.hasPointer != other.hasPointer {
		return false
	}
	if r.hasPointer && r.pointer != other.pointer {
		return false
	}
	return r.literal == other.literal
}

// answerRR is a parsed resource record from any of a packet's answer,
// authority, or additional sections — the engine never needs to tell
// those apart, so parsePacket pools them.
type answerRR struct {
	nameOffset int
	ownerRef   nameRef
	rrType     uint16
	cacheFlush bool
	ttl        uint32
	rdataStart int
	rdataLen   int
}

// parsedPacket is the transient, per-packet state the tick driver
// builds while draining one inbound datagram: the header, every
// question, every answer-like record, and the fixed six-slot table of
// service instances discovered while scanning PTR answers (see
// collectPTRInstances). It is rebuilt from scratch each tick and never
// persisted.
type parsedPacket struct {
	data []byte
	hdr  dnsHeader

	questions []question
	answers   []answerRR

	discovered    [maxPTRPerPacket]discoveredInstance
	discoveredLen int
}

// parsePacket walks data's header, question section, and the pooled
// answer/authority/additional sections, in that order. It returns
// errPacketTooSmall or errInvalidLabel on the first structurally
// invalid field; a packet that merely references record types the
// engine doesn't understand is not an error — those records simply
// carry rrType values the caller's dispatch switch never matches.
//
// Discovery of service instances (collectPTRInstances) happens only
// once the whole datagram has been walked successfully, so a caller
// never sees partial results from a packet that turns out to be
// malformed later on.
func parsePacket(data []byte) (*parsedPacket, error) {
	hdr, err := unmarshalHeader(data)
	if err != nil {
		return nil, err
	}

	p := &parsedPacket{data: data, hdr: hdr}
	off := headerLen

	for i := uint16(0); i < hdr.qdCount; i++ {
		var q question
		q.nameOffset = off
		_, off, err = decodeNameRef(data, off)
		if err != nil {
			return nil, err
		}
		if off+4 > len(data) {
			return nil, errPacketTooSmall
		}
		q.qType = beUint16(data[off:])
		q.qClass = beUint16(data[off+2:])
		off += 4

		p.questions = append(p.questions, q)
	}

	total := int(hdr.anCount) + int(hdr.nsCount) + int(hdr.arCount)
	for i := 0; i < total; i++ {
		var a answerRR
		a.nameOffset = off
		a.ownerRef, off, err = decodeNameRef(data, off)
		if err != nil {
			return nil, err
		}
		if off+10 > len(data) {
			return nil, errPacketTooSmall
		}
		a.rrType = beUint16(data[off:])
		class := beUint16(data[off+2:])
		a.cacheFlush = class&classCacheFlush != 0
		a.ttl = beUint32(data[off+4:])
		rdlen := int(beUint16(data[off+8:]))
		off += 10

		if off+rdlen > len(data) {
			return nil, errPacketTooSmall
		}
		a.rdataStart = off
		a.rdataLen = rdlen
		off += rdlen

		p.answers = append(p.answers, a)
	}

	p.collectPTRInstances()

	return p, nil
}

// collectPTRInstances scans the answer pool for PTR records and
// records up to maxPTRPerPacket of them into the packet's fixed
// discovery table. A PTR's RDATA is the service instance's name; real
// responders almost always write it as one literal label (the instance
// name) followed by a compression pointer back to the service-type
// name written elsewhere in the packet. decodeNameRef keeps that
// literal label even though the pointer it's followed by is never
// dereferenced — the instance label is exactly what's needed, and the
// compressed suffix it points at is redundant with the PTR's own owner
// name, which is kept alongside it for later correlation.
func (p *parsedPacket) collectPTRInstances() {
	for _, a := range p.answers {
		if p.discoveredLen >= maxPTRPerPacket {
			return
		}
		if a.rrType != typePTR {
			continue
		}

		instanceRef, _, err := decodeNameRef(p.data, a.rdataStart)
		if err != nil {
			continue
		}

		p.discovered[p.discoveredLen] = discoveredInstance{
			ownerRef:    a.ownerRef,
			instanceRef: instanceRef,
			ttl:         a.ttl,
		}
		p.discoveredLen++
	}
}

func (p *parsedPacket) instances() []discoveredInstance {
	return p.discovered[:p.discoveredLen]
}

// matchName walks the name starting at offset and reports whether it
// is exactly equal to candidate, dot-label by dot-label. It never
// dereferences a compression pointer — encountering one ends the walk
// and the match is reported false, since the bytes the pointer would
// resolve to live earlier in a packet this decoder does not keep
// around as an addressable cache. The returned end offset is always
// correct (the cursor past this name), even when matched is false.
func matchName(data []byte, offset int, candidate string) (matched bool, end int, err error) {
	remaining := []byte(candidate)
	ok := true
	pos := offset

	for {
		if pos >= len(data) {
			return false, pos, errPacketTooSmall
		}
		b := data[pos]

		if b&0xc0 == 0xc0 {
			if pos+1 >= len(data) {
				return false, pos, errPacketTooSmall
			}
			return false, pos + 2, nil
		}
		if b&0xc0 != 0 {
			return false, pos, errInvalidLabel
		}
		if b == 0 {
			return ok && len(remaining) == 0, pos + 1, nil
		}

		labelLen := int(b)
		pos++
		if pos+labelLen > len(data) {
			return false, pos, errPacketTooSmall
		}
		chunk := data[pos : pos+labelLen]
		pos += labelLen

		if ok {
			var chunkMatched bool
			remaining, chunkMatched = matchLabelChunk(remaining, chunk)
			if !chunkMatched {
				ok = false
			}
		}
	}
}

// skipName advances past one wire-encoded name without decoding it.
func skipName(data []byte, offset int) (end int, err error) {
	_, end, err = decodeNameRef(data, offset)
	return end, err
}

// decodeNameRef decodes the name at offset into a nameRef: as many
// literal labels as appear before either a terminator or a compression
// pointer, plus that pointer's target offset when one was found.
func decodeNameRef(data []byte, offset int) (ref nameRef, end int, err error) {
	var out []byte
	pos := offset

	for {
		if pos >= len(data) {
			return nameRef{}, pos, errPacketTooSmall
		}
		b := data[pos]

		if b&0xc0 == 0xc0 {
			if pos+1 >= len(data) {
				return nameRef{}, pos, errPacketTooSmall
			}
			ptr := uint16(b&0x3f)<<8 | uint16(data[pos+1])
			return nameRef{literal: string(out), pointer: ptr, hasPointer: true}, pos + 2, nil
		}
		if b&0xc0 != 0 {
			return nameRef{}, pos, errInvalidLabel
		}
		if b == 0 {
			return nameRef{literal: string(out)}, pos + 1, nil
		}

		pos++
		if pos+int(b) > len(data) {
			return nameRef{}, pos, errPacketTooSmall
		}
		if len(out) > 0 {
			out = append(out, '.')
		}
		out = append(out, data[pos:pos+int(b)]...)
		pos += int(b)
	}
}

// decodeNameLiteral decodes the name at offset to a dotted string. If
// it runs into a compression pointer before the terminator, it returns
// whatever labels it already collected with truncated=true, rather
// than an error — the caller decides whether a partial name is useful.
func decodeNameLiteral(data []byte, offset int) (name string, end int, truncated bool, err error) {
	ref, end, err := decodeNameRef(data, offset)
	if err != nil {
		return "", end, false, err
	}
	return ref.literal, end, ref.hasPointer, nil
}

// decodeSRVRData reads an SRV record's RDATA: priority and weight are
// skipped (the spec's single-node, single-answer model has no use for
// them), port is returned, and the target host name is decoded as a
// nameRef for correlation against any A record elsewhere in the
// packet.
func decodeSRVRData(data []byte, rdataStart int) (port uint16, target nameRef, err error) {
	if rdataStart+6 > len(data) {
		return 0, nameRef{}, errPacketTooSmall
	}
	port = beUint16(data[rdataStart+4:])
	target, _, err = decodeNameRef(data, rdataStart+6)
	return port, target, err
}

func beUint16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
