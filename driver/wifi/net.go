package wifi

import (
	"encoding/binary"

	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/link/channel"
	"gvisor.dev/gvisor/pkg/tcpip/network/arp"
	"gvisor.dev/gvisor/pkg/tcpip/network/ipv4"
	"gvisor.dev/gvisor/pkg/tcpip/stack"
	"gvisor.dev/gvisor/pkg/tcpip/transport/icmp"
	"gvisor.dev/gvisor/pkg/tcpip/transport/udp"
)

// nicID is the single NIC this driver ever registers; one Device, one NIC.
const nicID tcpip.NICID = 1

// netMTU is the standard Ethernet MTU, smaller than the chip's MMIO window.
const netMTU = 1500

// endpoint pairs the gvisor channel endpoint with the stack it is attached
// to. Nothing in this package moves frames between the channel endpoint and
// the device's registers. Routing beyond the default route, DNS and TLS are
// out of scope here.
type endpoint struct {
	link  *channel.Endpoint
	stack *stack.Stack
}

// attachNetworkStack builds a minimal ARP/IPv4/ICMP/UDP stack over a
// channel.Endpoint and assigns it ip (network byte order, as read back from
// WIFI_IP), following the NetworkProtocols/TransportProtocols set example/
// usb_ethernet.go wires up for its USB NIC.
func attachNetworkStack(ip uint32) (*endpoint, error) {
	s := stack.New(stack.Options{
		NetworkProtocols: []stack.NetworkProtocol{
			ipv4.NewProtocol(),
			arp.NewProtocol(),
		},
		TransportProtocols: []stack.TransportProtocol{
			udp.NewProtocol(),
			icmp.NewProtocol4(),
		},
	})

	link := channel.New(256, netMTU, "")
	linkEP := stack.LinkEndpoint(link)

	if err := s.CreateNIC(nicID, linkEP); err != nil {
		return nil, netError(err.Error())
	}

	if err := s.AddAddress(nicID, arp.ProtocolNumber, arp.ProtocolAddress); err != nil {
		return nil, netError(err.Error())
	}

	addr := ipToAddress(ip)
	if err := s.AddAddress(nicID, ipv4.ProtocolNumber, addr); err != nil {
		return nil, netError(err.Error())
	}

	subnet, err := tcpip.NewSubnet(tcpip.Address("\x00\x00\x00\x00"), tcpip.AddressMask("\x00\x00\x00\x00"))
	if err != nil {
		return nil, err
	}

	s.SetRouteTable([]tcpip.Route{{
		Destination: subnet,
		NIC:         nicID,
	}})

	return &endpoint{link: link, stack: s}, nil
}

// ipToAddress converts the uint32 this driver reads from WIFI_IP into a
// tcpip.Address in network byte order.
func ipToAddress(ip uint32) tcpip.Address {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], ip)
	return tcpip.Address(b[:])
}

type netError string

func (e netError) Error() string { return string(e) }

// AttachStack brings up the IP-capable NIC once the chip reports
// STATUS_CONNECTED and an IP lease. Connect calls this automatically;
// callers that manage the Device's lifecycle by hand may call it again
// after a reconnect.
func (d *Device) AttachStack() error {
	if !d.IsConnected() {
		return netError("wifi: cannot attach network stack while disconnected")
	}

	ep, err := attachNetworkStack(d.IPAddr())
	if err != nil {
		return err
	}

	d.net = ep
	return nil
}
