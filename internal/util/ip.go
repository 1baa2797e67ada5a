package util

import "net/netip"

// ParseIPv4 parses a dotted-quad IPv4 address. IPv4-mapped IPv6
// addresses are unwrapped to their IPv4 form. Anything else, including
// native IPv6, returns false: all CIDR arithmetic in this gateway is
// IPv4-only and non-IPv4 addresses must never match a range.
func ParseIPv4(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	if addr.Is4In6() {
		addr = addr.Unmap()
	}
	if !addr.Is4() {
		return netip.Addr{}, false
	}
	return addr, true
}

// IPInCIDR reports whether ip is inside the IPv4 CIDR range. Malformed
// inputs and non-IPv4 addresses report false.
func IPInCIDR(ip, cidr string) bool {
	addr, ok := ParseIPv4(ip)
	if !ok {
		return false
	}
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return false
	}
	if !prefix.Addr().Is4() {
		return false
	}
	return prefix.Contains(addr)
}

// IPInAnyCIDR reports whether ip is inside at least one of the ranges.
func IPInAnyCIDR(ip string, cidrs []string) bool {
	for _, cidr := range cidrs {
		if IPInCIDR(ip, cidr) {
			return true
		}
	}
	return false
}
