package mdns

import (
	"net"
	"time"

	"golang.org/x/net/ipv4"
)

// mdnsPort and mdnsGroupAddr are the well-known mDNS multicast endpoint
// (RFC 6762 §3), fixed at MDNS_SERVER_PORT in the firmware this engine
// descends from.
const mdnsPort = 5353

// readPollTimeout bounds how long ReadPacket may block waiting for a
// datagram. ReadPacket must not wait indefinitely (see the Transport
// interface doc), and the interface gives callers no deadline hook of their own,
// so udpTransport owns this itself — short enough that Engine.Run's
// tick loop never stalls noticeably, the same role the firmware's
// non-blocking socket read played before every run() iteration.
const readPollTimeout = 50 * time.Millisecond

var mdnsGroupAddr = net.IPv4(224, 0, 0, 251)

// Transport is the engine's only I/O boundary. It is deliberately small
// and synchronous — no callbacks, no goroutines — so that Engine.Run
// can drive it directly from a single cooperative tick, the way the
// firmware's run() drove a bare UDP socket. A fake implementation
// backs the engine's tests; udpTransport backs real use.
type Transport interface {
	// BeginPacket prepares to accumulate a new outbound datagram.
	BeginPacket() error
	// Write appends to the datagram being accumulated since the last
	// BeginPacket. It never performs a partial write; an error means
	// the whole Write failed.
	Write(b []byte) error
	// EndPacket flushes the accumulated datagram to the network.
	EndPacket() error
	// ReadPacket copies the next waiting inbound datagram into buf and
	// reports its length and sender. ok is false when nothing arrived —
	// this must return promptly, never wait indefinitely.
	ReadPacket(buf []byte) (n int, from net.UDPAddr, ok bool, err error)
	// LocalIPv4 returns the address the engine advertises as its own.
	LocalIPv4() [4]byte
	// Close releases any underlying socket.
	Close() error
}

// udpTransport is the production Transport: a single IPv4 UDP socket
// joined to the mDNS multicast group, controlled through
// golang.org/x/net/ipv4 the same way the teacher's packet connection
// setup does, since the standard library's net.UDPConn alone exposes
// no multicast group-membership or loopback controls.
type udpTransport struct {
	conn    *net.UDPConn
	pktConn *ipv4.PacketConn
	localIP [4]byte

	writeBuf []byte
}

// NewUDPTransport opens and configures the multicast socket: bind to
// the mDNS port, join 224.0.0.251 on iface, and disable multicast
// loopback so the engine never answers its own queries.
func NewUDPTransport(iface *net.Interface, localIP [4]byte) (*udpTransport, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: mdnsPort})
	if err != nil {
		return nil, wrapSocketErr(err)
	}

	pktConn := ipv4.NewPacketConn(conn)
	if err := pktConn.JoinGroup(iface, &net.UDPAddr{IP: mdnsGroupAddr}); err != nil {
		conn.Close()
		return nil, wrapSocketErr(err)
	}
	if err := pktConn.SetMulticastLoopback(false); err != nil {
		conn.Close()
		return nil, wrapSocketErr(err)
	}
	if iface != nil {
		if err := pktConn.SetMulticastInterface(iface); err != nil {
			conn.Close()
			return nil, wrapSocketErr(err)
		}
	}

	return &udpTransport{conn: conn, pktConn: pktConn, localIP: localIP}, nil
}

func (t *udpTransport) BeginPacket() error {
	t.writeBuf = t.writeBuf[:0]
	return nil
}

func (t *udpTransport) Write(b []byte) error {
	t.writeBuf = append(t.writeBuf, b...)
	return nil
}

func (t *udpTransport) EndPacket() error {
	_, err := t.conn.WriteToUDP(t.writeBuf, &net.UDPAddr{IP: mdnsGroupAddr, Port: mdnsPort})
	if err != nil {
		return wrapSocketErr(err)
	}
	return nil
}

func (t *udpTransport) ReadPacket(buf []byte) (int, net.UDPAddr, bool, error) {
	// ReadPacket must not wait indefinitely, but the underlying socket is opened
	// in its normal blocking mode — so a short read deadline is set on
	// every call, here rather than left to the caller, since the
	// Transport interface gives the caller no deadline hook of its
	// own. A deadline expiry is reported as ok=false, not an error,
	// since "nothing arrived this tick" is the normal case, not a
	// fault.
	if err := t.conn.SetReadDeadline(time.Now().Add(readPollTimeout)); err != nil {
		return 0, net.UDPAddr{}, false, wrapSocketErr(err)
	}

	n, addr, err := t.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, isNet := err.(net.Error); isNet && ne.Timeout() {
			return 0, net.UDPAddr{}, false, nil
		}
		return 0, net.UDPAddr{}, false, wrapSocketErr(err)
	}

	return n, *addr, true, nil
}

func (t *udpTransport) LocalIPv4() [4]byte { return t.localIP }

func (t *udpTransport) Close() error {
	return t.conn.Close()
}

func wrapSocketErr(err error) error {
	if err == nil {
		return nil
	}
	return &socketError{cause: err}
}

type socketError struct{ cause error }

func (e *socketError) Error() string { return "mdns: transport error: " + e.cause.Error() }
func (e *socketError) Unwrap() error { return ErrSocketError }
