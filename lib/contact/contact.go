// Package contact provides the endpoint-address value type shared by streams
// and carriers. A Contact describes one end of a connection: where it lives
// (host, port), how it is reached (carrier name) and an optional registered
// name.
package contact

import (
	"fmt"
	"net"
	"strconv"
)

// Contact describes one endpoint of a connection. The zero value is an
// invalid Contact.
type Contact struct {
	// Name is the registered name of the endpoint (may be empty for
	// anonymous endpoints such as raw socket streams)
	Name string
	// Carrier is the name of the carrier protocol the endpoint speaks
	Carrier string
	// Host is the host the endpoint lives on
	Host string
	// Port is the port the endpoint is bound to (0 if the address family
	// has no port, e.g. unix-domain sockets)
	Port int
}

// New creates a Contact for a plain host/port endpoint.
func New(host string, port int) Contact {
	return Contact{Host: host, Port: port}
}

// FromNetAddr builds a Contact from a network address such as
// "127.0.0.1:8080". Addresses without a host/port shape (unix socket paths)
// end up in the Name field.
func FromNetAddr(addr net.Addr) Contact {
	if addr == nil {
		return Contact{}
	}
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return Contact{Name: addr.String(), Host: "localhost"}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 0
	}
	return Contact{Host: host, Port: port}
}

// WithCarrier returns a copy of the Contact with the carrier name set.
func (c Contact) WithCarrier(carrier string) Contact {
	c.Carrier = carrier
	return c
}

// WithName returns a copy of the Contact with the registered name set.
func (c Contact) WithName(name string) Contact {
	c.Name = name
	return c
}

// Valid reports whether the Contact identifies a reachable endpoint.
func (c Contact) Valid() bool {
	return c.Host != "" || c.Name != ""
}

// String returns the canonical textual form of the Contact, e.g.
// "unix_stream://localhost:0" or "127.0.0.1:8080".
func (c Contact) String() string {
	hostPort := c.Host
	if c.Port > 0 {
		hostPort = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	}
	if hostPort == "" {
		hostPort = c.Name
	}
	if c.Carrier != "" {
		return fmt.Sprintf("%s://%s", c.Carrier, hostPort)
	}
	return hostPort
}
