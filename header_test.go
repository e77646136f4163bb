package mdns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := dnsHeader{id: 0x1234, flags: flagQR | flagAA, qdCount: 1, anCount: 2, nsCount: 0, arCount: 3}

	buf := h.marshal(nil)
	require.Len(t, buf, headerLen)

	got, err := unmarshalHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
	require.True(t, got.isResponse())
}

func TestUnmarshalHeaderTooSmall(t *testing.T) {
	_, err := unmarshalHeader([]byte{0, 1, 2})
	require.ErrorIs(t, err, errPacketTooSmall)
}

func TestAppendRRHeaderTailCacheFlush(t *testing.T) {
	buf := appendRRHeaderTail(nil, typeA, true, 120, 4)
	require.Len(t, buf, 10)
	class := beUint16(buf[2:])
	require.NotZero(t, class&classCacheFlush)
}
