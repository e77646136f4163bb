package mdns

import (
	"time"

	"github.com/pion/logging"
)

// startupWait is how long Begin waits before the first unsolicited
// announcement, giving the underlying interface time to settle —
// MDNS_STARTUP_DELAY in the firmware this engine descends from.
const startupWait = 5 * time.Second

// reAnnounceInterval is how often the engine re-sends its host and
// service records unsolicited, derived the same way the firmware
// derived it: (MDNS_RESPONSE_TTL/2)+(MDNS_RESPONSE_TTL/4), i.e. three
// quarters of the record TTL, so a cache entry never quite expires
// between announcements on a healthy node.
const reAnnounceInterval = time.Duration(defaultTTL/2+defaultTTL/4) * time.Second

// writeScratchSize is the size of the engine's outbound scratch buffer.
// 900 bytes covers the worst case this engine ever emits — a
// ServiceRecord for one service plus its A glue record — with room to
// spare, so unlike the firmware's 512-byte buffer it never needs a
// mid-record flush.
const writeScratchSize = 900

// Engine is a self-contained mDNS responder and query client for a
// single network interface. Callers drive it through Run; the engine
// starts no goroutines, and outside of a Run call it sends packets only
// from the operations that emit one directly (AddService,
// RemoveService, RemoveAllServices, ResolveName, StartServiceDiscovery,
// Close).
type Engine struct {
	hostName string
	localIP  [4]byte

	transport Transport
	clock     Clock

	loggerFactory logging.LoggerFactory
	log           logging.LeveledLogger

	services  serviceTable
	resolvers resolverTable

	nameResolvedCB NameResolvedFunc
	serviceFoundCB ServiceFoundFunc

	xidCounter uint16

	startedAt    time.Time
	announced    bool
	lastAnnounce time.Time

	readBuf  []byte
	writeBuf []byte
}

// New creates an Engine advertising name (without the trailing
// ".local") over transport. Unsolicited announcements from Run start
// only after Begin is called; answering queries and resolving do not
// wait for Begin.
func New(name string, localIP [4]byte, transport Transport, opts ...Option) (*Engine, error) {
	if name == "" || transport == nil {
		return nil, ErrInvalidArgument
	}

	e := &Engine{
		hostName:      name,
		localIP:       localIP,
		transport:     transport,
		clock:         systemClock{},
		loggerFactory: logging.NewDefaultLoggerFactory(),
		readBuf:       make([]byte, maxPacketSize),
		writeBuf:      make([]byte, 0, writeScratchSize),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.log = e.loggerFactory.NewLogger("mdns")

	return e, nil
}

// maxPacketSize bounds one inbound datagram the engine will read —
// generous for a single-node mDNS exchange, matching the ceiling the
// teacher's conn.go enforces on its own read buffer.
const maxPacketSize = 9000

// Begin marks the engine ready to announce; the first unsolicited
// announcement is sent from Run once startupWait has elapsed since
// this call, not immediately, to give the interface time to settle.
func (e *Engine) Begin() {
	e.startedAt = e.clock.Now()
	e.announced = false
}

// SetName changes the advertised host name. It takes effect on the
// next announcement; it does not itself send one.
func (e *Engine) SetName(name string) error {
	if name == "" {
		return ErrInvalidArgument
	}
	e.hostName = name
	return nil
}

// AddService registers svc in the first free slot and returns
// ErrOutOfMemory once all eight are occupied. On success it also sends
// an unsolicited ServiceRecord announcement immediately, the same way
// the firmware's addServiceRecord calls _sendServiceRecord as soon as
// the slot is claimed rather than waiting for the next re-announce.
func (e *Engine) AddService(svc ServiceRecord) error {
	idx, err := e.services.add(svc)
	if err != nil {
		return err
	}
	return e.sendServiceRecord(0, e.services.slots[idx], true)
}

// RemoveService sends a goodbye (TTL 0) for the first registered
// service matching port and proto, and — when name is non-empty —
// also matching InstanceName, then frees its slot.
func (e *Engine) RemoveService(port uint16, proto Protocol, name string) error {
	svc, _, err := e.services.remove(port, proto, name)
	if err != nil {
		return err
	}
	return e.sendGoodbye(svc)
}

// RemoveAllServices sends a goodbye for every registered service and
// empties the table. It reports ErrNothingToDo, not an error, when the
// table was already empty.
func (e *Engine) RemoveAllServices() error {
	svcs := e.services.removeAll()
	if len(svcs) == 0 {
		return ErrNothingToDo
	}
	for _, svc := range svcs {
		if err := e.sendGoodbye(svc); err != nil {
			return err
		}
	}
	return nil
}

// SetNameResolvedCallback registers the function ResolveName's answer
// (or timeout) is delivered to. It must be set before ResolveName is
// called — a query started with no callback registered would have
// nowhere to deliver its result, so ResolveName requires one already
// in place rather than accepting one per call.
func (e *Engine) SetNameResolvedCallback(cb NameResolvedFunc) {
	e.nameResolvedCB = cb
}

// SetServiceFoundCallback registers the function StartServiceDiscovery
// reports instances (and its timeout) to.
func (e *Engine) SetServiceFoundCallback(cb ServiceFoundFunc) {
	e.serviceFoundCB = cb
}

// ResolveName starts resolving name to an IPv4 address, giving up and
// reporting a TimedOut outcome through the registered callback once
// timeout has elapsed since the first query was sent. A timeout of 0
// means never give up — the resolution stays outstanding until an
// answer arrives or the caller calls CancelResolveName.
//
// ResolveName fails with ErrAlreadyProcessingQuery if a resolution is
// already outstanding, and with ErrInvalidArgument if no
// NameResolvedCallback has been registered yet.
func (e *Engine) ResolveName(name string, timeout time.Duration) error {
	if name == "" {
		return ErrInvalidArgument
	}
	if e.nameResolvedCB == nil {
		return ErrInvalidArgument
	}

	xid := e.nextXID()
	_, err := e.resolvers.begin(resolverKindName, name, xid, timeout, e.clock.Now())
	if err != nil {
		return err
	}

	return e.sendNameQuery(name, xid)
}

// CancelResolveName abandons an outstanding ResolveName without
// invoking the callback.
func (e *Engine) CancelResolveName() error {
	if !e.resolvers.cancel(resolverKindName) {
		return ErrNothingToDo
	}
	return nil
}

func (e *Engine) IsResolvingName() bool {
	return e.resolvers.slot(resolverKindName).active()
}

// StartServiceDiscovery starts browsing serviceName (e.g. "_http")
// over proto for instances, reporting each through the registered
// ServiceFoundCallback. As with ResolveName, a timeout of 0 means the
// browse never times out on its own.
func (e *Engine) StartServiceDiscovery(serviceName string, proto Protocol, timeout time.Duration) error {
	if serviceName == "" {
		return ErrInvalidArgument
	}
	if e.serviceFoundCB == nil {
		return ErrInvalidArgument
	}

	fullName := serviceName + proto.suffix()
	xid := e.nextXID()
	_, err := e.resolvers.begin(resolverKindServiceEnum, fullName, xid, timeout, e.clock.Now())
	if err != nil {
		return err
	}

	return e.sendServiceQuery(fullName, xid)
}

func (e *Engine) StopServiceDiscovery() error {
	if !e.resolvers.cancel(resolverKindServiceEnum) {
		return ErrNothingToDo
	}
	return nil
}

func (e *Engine) IsDiscoveringService() bool {
	return e.resolvers.slot(resolverKindServiceEnum).active()
}

// Close sends a goodbye for every registered service and releases the
// transport, mirroring ~BonjourClass's call into removeAllServiceRecords
// before the socket goes away.
func (e *Engine) Close() error {
	_ = e.RemoveAllServices()
	return e.transport.Close()
}

func (e *Engine) nextXID() uint16 {
	e.xidCounter++
	return e.xidCounter
}

// Run drives one cooperative tick: it announces if startup has elapsed
// and the engine hasn't yet, re-announces on schedule, drains at most
// one inbound datagram, and resends or times out any outstanding
// resolution. It performs no work the caller didn't ask for by calling
// it, and it waits for a datagram no longer than the Transport's
// ReadPacket does (up to readPollTimeout for the UDP transport).
func (e *Engine) Run(now time.Time) error {
	if !e.announced && !e.startedAt.IsZero() && now.Sub(e.startedAt) >= startupWait {
		if err := e.announceAll(now); err != nil {
			return err
		}
		e.announced = true
		e.lastAnnounce = now
	}

	if e.announced && now.Sub(e.lastAnnounce) >= reAnnounceInterval {
		if err := e.announceAll(now); err != nil {
			return err
		}
		e.lastAnnounce = now
	}

	if err := e.drainOneInbound(now); err != nil && err != ErrTryLater {
		return err
	}

	e.tickResolvers(now)

	return nil
}

func (e *Engine) announceAll(now time.Time) error {
	if err := e.sendMyIPAnswer(0, true); err != nil {
		return err
	}
	for _, svc := range e.services.all() {
		if err := e.sendServiceRecord(0, *svc, true); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) drainOneInbound(now time.Time) error {
	n, from, ok, err := e.transport.ReadPacket(e.readBuf)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTryLater
	}

	pkt, err := parsePacket(e.readBuf[:n])
	if err != nil {
		e.log.Debugf("dropping malformed packet from %v: %v", from, err)
		return nil
	}

	if pkt.hdr.isResponse() {
		e.handleResponse(pkt, now)
	} else {
		if err := e.handleQuery(pkt); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) tickResolvers(now time.Time) {
	e.tickResolverSlot(resolverKindName, now)
	e.tickResolverSlot(resolverKindServiceEnum, now)
}

func (e *Engine) tickResolverSlot(kind resolverKind, now time.Time) {
	slot := e.resolvers.slot(kind)
	if !slot.active() {
		return
	}

	if slot.expired(now) {
		query := slot.query
		switch kind {
		case resolverKindName:
			cb := e.nameResolvedCB
			slot.reset()
			if cb != nil {
				cb(query, [4]byte{}, false)
			}
		case resolverKindServiceEnum:
			cb := e.serviceFoundCB
			slot.reset()
			if cb != nil {
				serviceType, proto := parseServiceTypeProto(query)
				cb(serviceType, proto, "", [4]byte{}, 0, nil)
			}
		}
		return
	}

	if slot.dueForResend(now) {
		slot.lastSentAt = now
		slot.resends++

		var err error
		if kind == resolverKindName {
			err = e.sendNameQuery(slot.query, slot.xid)
		} else {
			err = e.sendServiceQuery(slot.query, slot.xid)
		}
		if err != nil {
			e.log.Warnf("resend failed: %v", err)
		}
	}
}
