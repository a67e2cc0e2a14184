package netutil

import (
	"fmt"
	"net"
)

// ParseSubnet parses a CIDR or a bare IP. Bare addresses become /32 (or /128
// for IPv6) networks so every stored subnet can be matched uniformly.
func ParseSubnet(s string) (*net.IPNet, error) {
	_, ipnet, err := net.ParseCIDR(s)
	if err == nil {
		return ipnet, nil
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("invalid subnet or address %q", s)
	}
	mask := net.CIDRMask(32, 32)
	if ip.To4() == nil {
		mask = net.CIDRMask(128, 128)
	}
	return &net.IPNet{IP: ip, Mask: mask}, nil
}

// PrefixLen returns the prefix length of the network mask.
func PrefixLen(n *net.IPNet) int {
	ones, _ := n.Mask.Size()
	return ones
}
