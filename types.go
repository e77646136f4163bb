package mdns

import (
	"strings"
	"time"
)

// Fixed-capacity table sizes. These mirror the static arrays sized for a
// constrained device in the firmware this engine is descended from
// (NumMDNSServiceRecords == 8, two resolve slots, up to six discovered
// PTR instances per incoming packet) rather than anything Go itself
// requires — the engine could grow these with a slice, but keeping them
// fixed keeps AddService/ResolveName's failure modes exactly as
// predictable as the firmware's.
const (
	maxServiceRecords  = 8
	maxResolverSlots   = 2
	maxPTRPerPacket    = 6
	maxServicesPerPacket = 6

	resolverSlotName    = 0
	resolverSlotService = 1
)

// Protocol names the transport a ServiceRecord advertises.
type Protocol int

const (
	ProtocolTCP Protocol = iota
	ProtocolUDP
)

func (p Protocol) suffix() string {
	if p == ProtocolUDP {
		return "._udp.local"
	}
	return "._tcp.local"
}

// parseServiceTypeProto splits a fully qualified service-type name such
// as "_http._tcp.local" into its bare service type ("_http._tcp") and
// protocol.
func parseServiceTypeProto(serviceTypeLocal string) (serviceType string, proto Protocol) {
	name := strings.TrimSuffix(serviceTypeLocal, ".local")
	if strings.HasSuffix(name, "._udp") {
		return name, ProtocolUDP
	}
	return name, ProtocolTCP
}

// ServiceRecord describes one DNS-SD service instance advertised by the
// engine. InstanceName is the human-readable instance ("My Printer");
// ServiceName is the bare service label ("_http", "ipp") derived from
// the rightmost dot-delimited component of InstanceName unless set
// explicitly. TXT holds pre-encoded key=value pairs, each already
// length-prefixed the way DNS-SD requires — callers build it with
// AppendTXTPair rather than hand-rolling the length bytes.
type ServiceRecord struct {
	InstanceName string
	ServiceName  string
	Protocol     Protocol
	Port         uint16
	TXT          []byte

	inUse bool
}

// AppendTXTPair appends one "key=value" entry to a TXT buffer, preceded
// by its own length byte, the way DNS-SD TXT records are laid out on
// the wire (RFC 6763 §6).
func AppendTXTPair(buf []byte, key, value string) ([]byte, error) {
	entry := key + "=" + value
	if len(entry) > 255 {
		return buf, ErrInvalidArgument
	}

	buf = append(buf, byte(len(entry)))
	buf = append(buf, entry...)
	return buf, nil
}

// rightmostLabel returns the dot-delimited label to the right of the
// last dot in name, or name itself if it contains no dot. Grounded on
// the firmware's _findFirstDotFromRight: service names are derived from
// the tail of the instance name, not the head.
func rightmostLabel(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}

// resolverKind distinguishes the two outstanding-resolution slots.
type resolverKind int

const (
	resolverKindUnused resolverKind = iota
	resolverKindName
	resolverKindServiceEnum
)

// outstandingResolution tracks one in-flight ResolveName or
// StartServiceDiscovery call: the query string, resend/timeout clock,
// and the XID used to correlate answers back to this request.
type outstandingResolution struct {
	kind resolverKind
	xid  uint16

	query string // host name being resolved, or service type being browsed

	startedAt       time.Time
	lastSentAt      time.Time
	resends         int
	timeoutDuration time.Duration // 0 means never time out
}

func (r *outstandingResolution) reset() {
	*r = outstandingResolution{}
}

func (r *outstandingResolution) active() bool {
	return r.kind != resolverKindUnused
}

// discoveredInstance is one PTR-record answer observed while parsing a
// single inbound packet — the per-packet scratch table capped at
// maxPTRPerPacket, matching the firmware's fixed six-slot cap on
// service instances noticed in one datagram. ownerRef identifies which
// question this PTR answers (the service type queried); instanceRef
// identifies the service instance itself, used to correlate the SRV,
// TXT, and A records that describe it elsewhere in the same packet.
type discoveredInstance struct {
	ownerRef    nameRef
	instanceRef nameRef
	ttl         uint32
}

// NameResolvedFunc is invoked when ResolveName completes: ip is the
// zero address and ok is false on timeout (spec's TimedOut outcome has no error value of
// its own — it is only ever observed through this callback).
type NameResolvedFunc func(name string, ip [4]byte, ok bool)

// ServiceFoundFunc is invoked once per service instance found in each
// inbound response while a StartServiceDiscovery browse is active
// (an instance seen in several responses is reported each time),
// carrying everything the browse answer described: the service type and
// protocol queried, the instance's short name, its resolved address
// and port (from its SRV/A records), and its raw TXT bytes. When the
// browse times out it is invoked once more with the service type and
// protocol, an empty instance name, the zero address, port 0 and nil
// TXT.
type ServiceFoundFunc func(serviceType string, proto Protocol, instanceName string, ip [4]byte, port uint16, txt []byte)
