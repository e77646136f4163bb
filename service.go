package mdns

// serviceTable holds the fixed eight service-record slots an Engine
// can advertise at once, the same capacity the firmware's
// NumMDNSServiceRecords-sized array enforced (addServiceRecord simply
// failed once all eight were occupied).
type serviceTable struct {
	slots [maxServiceRecords]ServiceRecord
}

// add places svc into the first free slot. ServiceName defaults to the
// rightmost label of InstanceName when left blank, matching the
// firmware's _findFirstDotFromRight derivation.
func (t *serviceTable) add(svc ServiceRecord) (int, error) {
	if svc.InstanceName == "" || svc.Port == 0 {
		return -1, ErrInvalidArgument
	}
	if svc.ServiceName == "" {
		svc.ServiceName = rightmostLabel(svc.InstanceName)
	}

	for i := range t.slots {
		if !t.slots[i].inUse {
			svc.inUse = true
			t.slots[i] = svc
			return i, nil
		}
	}

	return -1, ErrOutOfMemory
}

// remove clears the first slot matching port and proto, and — when
// name is non-empty — also matching InstanceName. port+proto alone is
// enough to identify a service in the firmware's removeServiceRecord;
// name narrows the match further for a caller that has it, but is
// never required. It reports ErrNotFound rather than silently doing
// nothing, so callers can tell "already gone" from "successfully
// removed".
func (t *serviceTable) remove(port uint16, proto Protocol, name string) (ServiceRecord, int, error) {
	for i := range t.slots {
		if !t.slots[i].inUse {
			continue
		}
		if t.slots[i].Port != port || t.slots[i].Protocol != proto {
			continue
		}
		if name != "" && t.slots[i].InstanceName != name {
			continue
		}

		svc := t.slots[i]
		t.slots[i] = ServiceRecord{}
		return svc, i, nil
	}

	return ServiceRecord{}, -1, ErrNotFound
}

// removeAll clears every occupied slot and returns the services that
// were in them, in slot order, so the caller can send a goodbye for
// each before the table goes empty.
func (t *serviceTable) removeAll() []ServiceRecord {
	var out []ServiceRecord
	for i := range t.slots {
		if t.slots[i].inUse {
			out = append(out, t.slots[i])
			t.slots[i] = ServiceRecord{}
		}
	}
	return out
}

// matchServiceType returns every in-use record whose ServiceName and
// Protocol match serviceTypeName (e.g. "_http._tcp.local"), used to
// answer an inbound PTR question for that service type.
func (t *serviceTable) matchServiceType(serviceTypeName string) []*ServiceRecord {
	var out []*ServiceRecord
	for i := range t.slots {
		if !t.slots[i].inUse {
			continue
		}
		if t.slots[i].ServiceName+t.slots[i].Protocol.suffix() == serviceTypeName {
			out = append(out, &t.slots[i])
		}
	}
	return out
}

// matchInstance returns the in-use record whose fully qualified
// instance name equals instanceName, or nil.
func (t *serviceTable) matchInstance(instanceName string) *ServiceRecord {
	for i := range t.slots {
		if !t.slots[i].inUse {
			continue
		}
		fq := t.slots[i].InstanceName + "." + t.slots[i].ServiceName + t.slots[i].Protocol.suffix()
		if fq == instanceName {
			return &t.slots[i]
		}
	}
	return nil
}

// all returns every in-use record, in slot order — used by the
// responder to cascade a "_services._dns-sd._udp.local" PTR query into
// one answer per registered service, and by the re-announce timer.
func (t *serviceTable) all() []*ServiceRecord {
	var out []*ServiceRecord
	for i := range t.slots {
		if t.slots[i].inUse {
			out = append(out, &t.slots[i])
		}
	}
	return out
}
