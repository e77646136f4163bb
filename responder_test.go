package mdns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleQueryAnswersAAAAWithNoIPv6(t *testing.T) {
	e, transport, _ := newTestEngine(t)

	buf := appendHeader(nil, 0x42, 0, 1, 0, 0, 0)
	buf, err := writeName(buf, "myspark.local", true)
	require.NoError(t, err)
	buf = appendQuestionTail(buf, typeAAAA, classIN)

	transport.deliver(buf)
	require.NoError(t, e.Run(e.clock.Now()))

	last := transport.lastSent()
	require.NotNil(t, last)

	pkt, err := parsePacket(last)
	require.NoError(t, err)
	require.True(t, pkt.hdr.isResponse())
	require.Equal(t, rcodeNameError, pkt.hdr.flags&rcodeMask)
	require.Len(t, pkt.questions, 1)
	require.Equal(t, typeAAAA, pkt.questions[0].qType)
	require.Len(t, pkt.answers, 1)
	require.Equal(t, typeA, pkt.answers[0].rrType)
}

func TestHandleQueryAnswersDirectInstanceQuestion(t *testing.T) {
	e, transport, _ := newTestEngine(t)
	require.NoError(t, e.AddService(ServiceRecord{InstanceName: "My Printer", ServiceName: "_ipp", Protocol: ProtocolTCP, Port: 631}))

	buf := appendHeader(nil, 0x7, 0, 1, 0, 0, 0)
	buf, err := writeName(buf, "My Printer._ipp._tcp.local", true)
	require.NoError(t, err)
	buf = appendQuestionTail(buf, typeSRV, classIN)

	transport.deliver(buf)
	require.NoError(t, e.Run(e.clock.Now()))

	last := transport.lastSent()
	pkt, err := parsePacket(last)
	require.NoError(t, err)
	require.Equal(t, uint16(0x7), pkt.hdr.id)
	require.Len(t, pkt.answers, serviceRecordTotalCount)
	require.Equal(t, typeSRV, pkt.answers[2].rrType)
}

func TestHandleQueryIgnoresUnknownInstance(t *testing.T) {
	e, transport, _ := newTestEngine(t)
	require.NoError(t, e.AddService(ServiceRecord{InstanceName: "My Printer", ServiceName: "_ipp", Protocol: ProtocolTCP, Port: 631}))

	// The announce from AddService is the only packet sent until an
	// instance question actually matches one.
	require.Len(t, transport.sent, 1)

	buf := appendHeader(nil, 0x8, 0, 1, 0, 0, 0)
	buf, err := writeName(buf, "Someone Else._ipp._tcp.local", true)
	require.NoError(t, err)
	buf = appendQuestionTail(buf, typeSRV, classIN)

	transport.deliver(buf)
	require.NoError(t, e.Run(e.clock.Now()))

	require.Len(t, transport.sent, 1)
}
