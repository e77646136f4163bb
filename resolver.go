package mdns

import "time"

// Resend timing, lifted directly from the firmware's
// MDNS_NQUERY_RESEND_TIME / MDNS_SQUERY_RESEND_TIME constants: a name
// query resends every second, a service (PTR) query every ten. Total
// timeout is not fixed by kind — it is supplied by the caller of
// ResolveName/StartServiceDiscovery on each call (see
// outstandingResolution.timeoutDuration), with 0 meaning the
// resolution never expires on its own.
const (
	nameQueryResendInterval    = 1 * time.Second
	serviceQueryResendInterval = 10 * time.Second
)

// resolverTable holds the two outstanding-resolution slots: slot 0 for
// a single ResolveName, slot 1 for a StartServiceDiscovery browse. Two
// slots, not a map or a slice, because the firmware only ever tracked
// one of each concurrently — nothing in the spec's operation set needs
// more.
type resolverTable struct {
	slots [maxResolverSlots]outstandingResolution
}

func (t *resolverTable) slot(kind resolverKind) *outstandingResolution {
	switch kind {
	case resolverKindName:
		return &t.slots[resolverSlotName]
	case resolverKindServiceEnum:
		return &t.slots[resolverSlotService]
	default:
		return nil
	}
}

// begin starts a new resolution of the given kind, failing with
// ErrAlreadyProcessingQuery if that slot is already occupied — callers
// must CancelResolveName/StopServiceDiscovery first, same as the
// firmware refusing a second concurrent resolveName. timeout is the
// caller's total deadline for this resolution; 0 means it never
// expires on its own.
func (t *resolverTable) begin(kind resolverKind, query string, xid uint16, timeout time.Duration, now time.Time) (*outstandingResolution, error) {
	slot := t.slot(kind)
	if slot.active() {
		return nil, ErrAlreadyProcessingQuery
	}

	*slot = outstandingResolution{
		kind:            kind,
		xid:             xid,
		query:           query,
		startedAt:       now,
		lastSentAt:      now,
		timeoutDuration: timeout,
	}
	return slot, nil
}

func (t *resolverTable) cancel(kind resolverKind) bool {
	slot := t.slot(kind)
	if !slot.active() {
		return false
	}
	slot.reset()
	return true
}

// resendInterval returns the resend cadence for a slot's kind — this
// is the only timing still fixed by kind; the total deadline comes
// from the caller (see timeoutDuration).
func (r *outstandingResolution) resendInterval() time.Duration {
	if r.kind == resolverKindServiceEnum {
		return serviceQueryResendInterval
	}
	return nameQueryResendInterval
}

// dueForResend reports whether now has crossed this slot's next resend
// deadline.
func (r *outstandingResolution) dueForResend(now time.Time) bool {
	return r.active() && now.Sub(r.lastSentAt) >= r.resendInterval()
}

// expired reports whether this slot's total timeout has elapsed since
// it started, regardless of how many resends happened along the way.
// A timeoutDuration of 0 or less means the resolution never expires on
// its own — it stays outstanding until answered or cancelled.
func (r *outstandingResolution) expired(now time.Time) bool {
	if !r.active() || r.timeoutDuration <= 0 {
		return false
	}
	return now.Sub(r.startedAt) >= r.timeoutDuration
}
