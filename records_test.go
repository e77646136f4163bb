package mdns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildMyIPAnswerParsesBack(t *testing.T) {
	ip := [4]byte{192, 168, 1, 42}
	buf, err := buildMyIPAnswer(nil, 0xabcd, "myspark.local", ip, true)
	require.NoError(t, err)

	pkt, err := parsePacket(buf)
	require.NoError(t, err)
	require.True(t, pkt.hdr.isResponse())
	require.Equal(t, uint16(0xabcd), pkt.hdr.id)
	require.Len(t, pkt.answers, 1)

	a := pkt.answers[0]
	require.Equal(t, typeA, a.rrType)
	require.True(t, a.cacheFlush)
	require.Equal(t, 4, a.rdataLen)
	require.Equal(t, ip[:], buf[a.rdataStart:a.rdataStart+4])

	matched, _, err := matchName(buf, a.nameOffset, "myspark.local")
	require.NoError(t, err)
	require.True(t, matched)
}

func TestBuildServiceRecordParsesBack(t *testing.T) {
	svc := ServiceRecord{InstanceName: "My Printer", ServiceName: "_ipp", Protocol: ProtocolTCP, Port: 631}
	buf, err := buildServiceRecord(nil, 1, "myspark.local", [4]byte{10, 0, 0, 1}, svc, false)
	require.NoError(t, err)

	pkt, err := parsePacket(buf)
	require.NoError(t, err)
	require.Len(t, pkt.answers, serviceRecordTotalCount)

	require.Equal(t, typePTR, pkt.answers[0].rrType)
	require.Equal(t, typePTR, pkt.answers[1].rrType)
	require.Equal(t, typeSRV, pkt.answers[2].rrType)
	require.Equal(t, typeTXT, pkt.answers[3].rrType)
	require.Equal(t, typeA, pkt.answers[4].rrType)

	matched, _, err := matchName(buf, pkt.answers[0].nameOffset, dnsSDPTRName)
	require.NoError(t, err)
	require.True(t, matched)

	instanceName, _, truncated, err := decodeNameLiteral(buf, pkt.answers[1].rdataStart)
	require.NoError(t, err)
	require.False(t, truncated)
	require.Equal(t, "My Printer._ipp._tcp.local", instanceName)
}

func TestBuildServiceRecordEmptyTXT(t *testing.T) {
	svc := ServiceRecord{InstanceName: "thing", ServiceName: "_x", Protocol: ProtocolUDP, Port: 1}
	buf, err := buildServiceRecord(nil, 1, "h.local", [4]byte{1, 2, 3, 4}, svc, false)
	require.NoError(t, err)

	pkt, err := parsePacket(buf)
	require.NoError(t, err)
	require.Equal(t, 1, pkt.answers[3].rdataLen)
	require.Equal(t, byte(0), buf[pkt.answers[3].rdataStart])
}

func TestBuildServiceRecordReleaseIsGoodbye(t *testing.T) {
	svc := ServiceRecord{InstanceName: "thing", ServiceName: "_x", Protocol: ProtocolTCP, Port: 1}
	buf, err := buildServiceRecordRelease(nil, 0, svc)
	require.NoError(t, err)

	pkt, err := parsePacket(buf)
	require.NoError(t, err)
	require.Len(t, pkt.answers, 1)
	require.Equal(t, uint32(0), pkt.answers[0].ttl)
}

func TestBuildNameQueryIsQuestionOnly(t *testing.T) {
	buf, err := buildNameQuery(nil, 7, "host.local")
	require.NoError(t, err)

	pkt, err := parsePacket(buf)
	require.NoError(t, err)
	require.False(t, pkt.hdr.isResponse())
	require.Len(t, pkt.questions, 1)
	require.Equal(t, typeA, pkt.questions[0].qType)
}
