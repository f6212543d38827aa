package contact

import (
	"net"
	"testing"
)

func TestContactString(t *testing.T) {
	tests := []struct {
		name     string
		contact  Contact
		expected string
	}{
		{"HostPort", New("127.0.0.1", 8080), "127.0.0.1:8080"},
		{"WithCarrier", New("localhost", 10002).WithCarrier("unix_stream"), "unix_stream://localhost:10002"},
		{"HostOnly", Contact{Host: "localhost"}, "localhost"},
		{"NameOnly", Contact{Name: "/tmp/test.sock"}, "/tmp/test.sock"},
		{"Zero", Contact{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.contact.String(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestContactValid(t *testing.T) {
	if (Contact{}).Valid() {
		t.Errorf("zero Contact should not be valid")
	}
	if !New("localhost", 0).Valid() {
		t.Errorf("Contact with host should be valid")
	}
	if !(Contact{Name: "/tmp/x.sock"}).Valid() {
		t.Errorf("Contact with name should be valid")
	}
}

func TestFromNetAddr(t *testing.T) {
	tcp := &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9000}
	c := FromNetAddr(tcp)
	if c.Host != "127.0.0.1" || c.Port != 9000 {
		t.Errorf("unexpected contact from tcp addr: %+v", c)
	}

	unix := &net.UnixAddr{Name: "/tmp/test.sock", Net: "unix"}
	c = FromNetAddr(unix)
	if c.Name != "/tmp/test.sock" {
		t.Errorf("expected socket path in Name, got %+v", c)
	}

	if got := FromNetAddr(nil); got.Valid() {
		t.Errorf("nil addr should produce an invalid contact, got %+v", got)
	}
}
