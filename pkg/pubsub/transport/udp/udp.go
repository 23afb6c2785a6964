// Package udp implements pkg/pubsub/transport.Dialer over UDP unicast
// and multicast sockets, the transport named by an `opc.udp://` address.
package udp

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	pubsuberrors "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/errors"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/transport"
	"golang.org/x/net/ipv4"
)

// Scheme is the URL scheme this adapter recognizes.
const Scheme = "opc.udp"

// Dialer opens UDP sockets for opc.udp:// addresses.
type Dialer struct{}

// New returns a ready udp.Dialer.
func New() *Dialer { return &Dialer{} }

// Dial parses address (opc.udp://host:port), joining the multicast group
// on multicastInterface when the host falls in 224.0.0.0/4. publisher
// selects a send-configured socket (IP_MULTICAST_IF set for multicast)
// versus a receive-configured one (group membership joined).
func (d *Dialer) Dial(address string, multicastInterface string, publisher bool) (transport.Socket, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, pubsuberrors.Configuration("invalid transport address: "+address, err)
	}
	if !strings.EqualFold(u.Scheme, Scheme) {
		return nil, pubsuberrors.Configuration(fmt.Sprintf("udp adapter cannot dial scheme %q", u.Scheme), nil)
	}

	addr, err := net.ResolveUDPAddr("udp", u.Host)
	if err != nil {
		return nil, pubsuberrors.Configuration("cannot resolve "+u.Host, err)
	}

	iface, err := resolveInterface(multicastInterface)
	if err != nil {
		return nil, pubsuberrors.Configuration("cannot resolve network interface "+multicastInterface, err)
	}

	if isMulticast(addr.IP) {
		return dialMulticast(addr, iface, publisher)
	}
	return dialUnicast(addr, publisher)
}

func resolveInterface(name string) (*net.Interface, error) {
	if name == "" {
		return nil, nil
	}
	return net.InterfaceByName(name)
}

func isMulticast(ip net.IP) bool {
	return ip != nil && ip.IsMulticast()
}

func dialMulticast(addr *net.UDPAddr, iface *net.Interface, publisher bool) (transport.Socket, error) {
	if publisher {
		conn, err := net.DialUDP("udp", nil, addr)
		if err != nil {
			return nil, pubsuberrors.Transport("dialing multicast publisher socket", err)
		}
		if iface != nil {
			_ = ipv4.NewPacketConn(conn).SetMulticastInterface(iface)
		}
		return &socket{conn: conn, remote: addr}, nil
	}

	conn, err := net.ListenMulticastUDP("udp", iface, addr)
	if err != nil {
		return nil, pubsuberrors.Transport("joining multicast group", err)
	}
	return &socket{conn: conn}, nil
}

func dialUnicast(addr *net.UDPAddr, publisher bool) (transport.Socket, error) {
	if publisher {
		conn, err := net.DialUDP("udp", nil, addr)
		if err != nil {
			return nil, pubsuberrors.Transport("dialing unicast publisher socket", err)
		}
		return &socket{conn: conn, remote: addr}, nil
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, pubsuberrors.Transport("listening on "+addr.String(), err)
	}
	return &socket{conn: conn}, nil
}

type socket struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
}

func (s *socket) Send(ctx context.Context, payload []byte) error {
	if s.remote == nil {
		return pubsuberrors.Transport("udp send on a receive-only socket", nil)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(dl)
	}
	n, err := s.conn.Write(payload)
	if err != nil {
		return pubsuberrors.Transport("udp send failed", err)
	}
	if n != len(payload) {
		return pubsuberrors.Transport(fmt.Sprintf("udp partial send: wrote %d of %d bytes", n, len(payload)), nil)
	}
	return nil
}

func (s *socket) Recv(ctx context.Context, buf []byte) (int, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = s.conn.SetReadDeadline(dl)
	}
	n, _, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		return 0, pubsuberrors.Transport("udp receive failed", err)
	}
	return n, nil
}

func (s *socket) Close() error {
	return s.conn.Close()
}
