package unixsock

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/drdanz/yarp-unix-socket/lib/stream"
)

// AbstractPrefix marks an endpoint address as living in the Linux abstract
// socket namespace (the convention of the net package: the prefix stands in
// for the leading NUL byte). Abstract addresses have no filesystem entry.
const AbstractPrefix = "@"

// IsAbstract reports whether address names the abstract socket namespace.
func IsAbstract(address string) bool {
	return strings.HasPrefix(address, AbstractPrefix)
}

// ResolveAddress validates address and resolves it to a unix socket address.
// An empty address is invalid.
func ResolveAddress(address string) (*net.UnixAddr, error) {
	if address == "" {
		return nil, stream.NewError(stream.ErrCOpenFailed, "empty endpoint address")
	}
	addr, err := net.ResolveUnixAddr("unix", address)
	if err != nil {
		return nil, stream.NewError(stream.ErrCOpenFailed, fmt.Sprintf("resolve %s: %v", address, err))
	}
	return addr, nil
}

// removeEntry removes the filesystem entry of address. A missing entry is
// fine (the common case); abstract addresses have no entry and are left
// alone.
func removeEntry(address string) error {
	if IsAbstract(address) {
		return nil
	}
	if err := os.Remove(address); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
