package mdns

import (
	"net"
	"time"
)

// fakeClock lets tests advance time deterministically instead of
// sleeping, the way the teacher's tests swap in a fake packet
// connection instead of opening a real socket.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeTransport is an in-memory Transport: outbound packets land in
// sent, and inbound packets are fed through inbox for ReadPacket to
// drain one at a time.
type fakeTransport struct {
	local [4]byte

	sent   [][]byte
	building []byte

	inbox []fakePacket
	closed bool
}

type fakePacket struct {
	data []byte
	from net.UDPAddr
}

func newFakeTransport(local [4]byte) *fakeTransport {
	return &fakeTransport{local: local}
}

func (t *fakeTransport) BeginPacket() error {
	t.building = t.building[:0]
	return nil
}

func (t *fakeTransport) Write(b []byte) error {
	t.building = append(t.building, b...)
	return nil
}

func (t *fakeTransport) EndPacket() error {
	t.sent = append(t.sent, append([]byte(nil), t.building...))
	return nil
}

func (t *fakeTransport) ReadPacket(buf []byte) (int, net.UDPAddr, bool, error) {
	if len(t.inbox) == 0 {
		return 0, net.UDPAddr{}, false, nil
	}
	pkt := t.inbox[0]
	t.inbox = t.inbox[1:]
	n := copy(buf, pkt.data)
	return n, pkt.from, true, nil
}

func (t *fakeTransport) deliver(data []byte) {
	t.inbox = append(t.inbox, fakePacket{data: data, from: net.UDPAddr{IP: net.IPv4(10, 0, 0, 9), Port: 5353}})
}

func (t *fakeTransport) LocalIPv4() [4]byte { return t.local }

func (t *fakeTransport) Close() error {
	t.closed = true
	return nil
}

func (t *fakeTransport) lastSent() []byte {
	if len(t.sent) == 0 {
		return nil
	}
	return t.sent[len(t.sent)-1]
}
