package mdns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, *fakeTransport, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	transport := newFakeTransport([4]byte{10, 0, 0, 5})

	e, err := New("myspark", [4]byte{10, 0, 0, 5}, transport, WithClock(clock))
	require.NoError(t, err)

	return e, transport, clock
}

func TestEngineAnnouncesAfterStartupWait(t *testing.T) {
	e, transport, clock := newTestEngine(t)
	e.Begin()

	require.NoError(t, e.Run(clock.now))
	require.Empty(t, transport.sent, "must not announce before startupWait elapses")

	clock.advance(startupWait)
	require.NoError(t, e.Run(clock.now))
	require.NotEmpty(t, transport.sent)

	pkt, err := parsePacket(transport.sent[0])
	require.NoError(t, err)
	require.True(t, pkt.hdr.isResponse())
}

func TestEngineAnswersHostNameQuery(t *testing.T) {
	e, transport, clock := newTestEngine(t)
	e.Begin()
	clock.advance(startupWait)
	require.NoError(t, e.Run(clock.now))

	query, err := buildNameQuery(nil, 0x99, "myspark.local")
	require.NoError(t, err)
	transport.deliver(query)

	require.NoError(t, e.Run(clock.now))

	last := transport.lastSent()
	require.NotNil(t, last)
	pkt, err := parsePacket(last)
	require.NoError(t, err)
	require.True(t, pkt.hdr.isResponse())
	require.Equal(t, uint16(0x99), pkt.hdr.id)
	require.Len(t, pkt.answers, 1)
	require.Equal(t, typeA, pkt.answers[0].rrType)
	require.True(t, pkt.answers[0].cacheFlush, "solicited MyIPAnswer must carry the cache-flush bit")
}

func TestEngineResolveNameDeliversAnswer(t *testing.T) {
	e, transport, clock := newTestEngine(t)

	var gotName string
	var gotIP [4]byte
	var gotOK bool
	e.SetNameResolvedCallback(func(name string, ip [4]byte, ok bool) {
		gotName, gotIP, gotOK = name, ip, ok
	})

	require.NoError(t, e.ResolveName("otherhost", 5*time.Second))
	require.True(t, e.IsResolvingName())

	answer, err := buildMyIPAnswer(nil, e.resolvers.slot(resolverKindName).xid, "otherhost.local", [4]byte{9, 9, 9, 9}, true)
	require.NoError(t, err)
	transport.deliver(answer)

	require.NoError(t, e.Run(clock.now))

	require.True(t, gotOK)
	require.Equal(t, "otherhost", gotName)
	require.Equal(t, [4]byte{9, 9, 9, 9}, gotIP)
	require.False(t, e.IsResolvingName())
}

func TestEngineResolveNameTimesOut(t *testing.T) {
	e, _, clock := newTestEngine(t)

	var gotOK bool
	called := false
	e.SetNameResolvedCallback(func(name string, ip [4]byte, ok bool) {
		called = true
		gotOK = ok
	})

	const timeout = 5 * time.Second
	require.NoError(t, e.ResolveName("ghost", timeout))

	clock.advance(timeout)
	require.NoError(t, e.Run(clock.now))

	require.True(t, called)
	require.False(t, gotOK)
	require.False(t, e.IsResolvingName())
}

func TestEngineServiceDiscoveryTimesOut(t *testing.T) {
	e, _, clock := newTestEngine(t)

	var gotServiceType string
	var gotProto Protocol
	var gotInstance string
	var gotIP [4]byte
	var gotPort uint16
	var gotTXT []byte
	calls := 0
	e.SetServiceFoundCallback(func(serviceType string, proto Protocol, instanceName string, ip [4]byte, port uint16, txt []byte) {
		calls++
		gotServiceType, gotProto, gotInstance, gotIP, gotPort, gotTXT = serviceType, proto, instanceName, ip, port, txt
	})

	const timeout = 90 * time.Second
	require.NoError(t, e.StartServiceDiscovery("_ipp", ProtocolTCP, timeout))

	clock.advance(timeout)
	require.NoError(t, e.Run(clock.now))

	require.Equal(t, 1, calls)
	require.Equal(t, "_ipp._tcp", gotServiceType)
	require.Equal(t, ProtocolTCP, gotProto)
	require.Equal(t, "", gotInstance)
	require.Equal(t, [4]byte{}, gotIP)
	require.Equal(t, uint16(0), gotPort)
	require.Nil(t, gotTXT)
	require.False(t, e.IsDiscoveringService())
}

func TestEngineResolveNameRejectsConcurrent(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.SetNameResolvedCallback(func(string, [4]byte, bool) {})

	require.NoError(t, e.ResolveName("a", 5*time.Second))
	require.ErrorIs(t, e.ResolveName("b", 5*time.Second), ErrAlreadyProcessingQuery)
}

func TestEngineAddServiceAndAnnounceCascade(t *testing.T) {
	e, transport, clock := newTestEngine(t)
	require.NoError(t, e.AddService(ServiceRecord{InstanceName: "printer", ServiceName: "_ipp", Protocol: ProtocolTCP, Port: 631}))

	// AddService announces the new service immediately.
	require.Len(t, transport.sent, 1)
	pkt, err := parsePacket(transport.sent[0])
	require.NoError(t, err)
	require.Len(t, pkt.answers, serviceRecordTotalCount)

	e.Begin()
	clock.advance(startupWait)
	require.NoError(t, e.Run(clock.now))

	require.Len(t, transport.sent, 3) // immediate announce, host A, then the re-announced service
	pkt, err = parsePacket(transport.sent[2])
	require.NoError(t, err)
	require.Len(t, pkt.answers, serviceRecordTotalCount)
}

func TestEngineRemoveServiceSendsGoodbye(t *testing.T) {
	e, transport, _ := newTestEngine(t)
	require.NoError(t, e.AddService(ServiceRecord{InstanceName: "printer", ServiceName: "_ipp", Protocol: ProtocolTCP, Port: 631}))

	require.NoError(t, e.RemoveService(631, ProtocolTCP, "printer"))

	last := transport.lastSent()
	pkt, err := parsePacket(last)
	require.NoError(t, err)
	require.Equal(t, uint32(0), pkt.answers[0].ttl)
}

func TestEngineServiceDiscoveryReportsFullTuple(t *testing.T) {
	e, transport, clock := newTestEngine(t)

	var gotServiceType string
	var gotProto Protocol
	var gotInstance string
	var gotIP [4]byte
	var gotPort uint16
	var gotTXT []byte
	e.SetServiceFoundCallback(func(serviceType string, proto Protocol, instanceName string, ip [4]byte, port uint16, txt []byte) {
		gotServiceType, gotProto, gotInstance, gotIP, gotPort, gotTXT = serviceType, proto, instanceName, ip, port, txt
	})

	require.NoError(t, e.StartServiceDiscovery("_ipp", ProtocolTCP, 90*time.Second))

	txt, err := AppendTXTPair(nil, "path", "/lpr")
	require.NoError(t, err)

	remote := ServiceRecord{
		InstanceName: "MyPrinter",
		ServiceName:  "_ipp",
		Protocol:     ProtocolTCP,
		Port:         9100,
		TXT:          txt,
	}
	answer, err := buildServiceRecord(nil, e.resolvers.slot(resolverKindServiceEnum).xid, "printerhost.local", [4]byte{10, 0, 0, 9}, remote, false)
	require.NoError(t, err)
	transport.deliver(answer)

	require.NoError(t, e.Run(clock.now))

	require.Equal(t, "_ipp._tcp", gotServiceType)
	require.Equal(t, ProtocolTCP, gotProto)
	require.Equal(t, "MyPrinter", gotInstance)
	require.Equal(t, [4]byte{10, 0, 0, 9}, gotIP)
	require.Equal(t, uint16(9100), gotPort)
	require.Equal(t, txt, gotTXT)
}

func TestEngineCloseSendsGoodbyesAndClosesTransport(t *testing.T) {
	e, transport, _ := newTestEngine(t)
	require.NoError(t, e.AddService(ServiceRecord{InstanceName: "a", ServiceName: "_a", Protocol: ProtocolUDP, Port: 1}))

	require.NoError(t, e.Close())
	require.True(t, transport.closed)
	require.NotEmpty(t, transport.sent)
}
