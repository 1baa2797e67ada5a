package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIPv4(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"plain IPv4", "66.249.66.1", "66.249.66.1", true},
		{"IPv4-mapped IPv6", "::ffff:66.249.66.1", "66.249.66.1", true},
		{"native IPv6", "2001:db8::1", "", false},
		{"garbage", "not-an-ip", "", false},
		{"empty", "", "", false},
		{"out of range octet", "300.1.1.1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, ok := ParseIPv4(tt.input)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, addr.String())
			}
		})
	}
}

func TestIPInCIDR(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		cidr string
		want bool
	}{
		{"inside range", "66.249.66.1", "66.249.64.0/19", true},
		{"outside range", "66.250.0.1", "66.249.64.0/19", false},
		{"range boundary start", "66.249.64.0", "66.249.64.0/19", true},
		{"mapped IPv6 inside range", "::ffff:66.249.66.1", "66.249.64.0/19", true},
		{"native IPv6 never matches", "2001:db8::1", "66.249.64.0/19", false},
		{"malformed ip", "bogus", "66.249.64.0/19", false},
		{"malformed cidr", "66.249.66.1", "not-a-cidr", false},
		{"ipv6 cidr never matches", "66.249.66.1", "2001:db8::/32", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IPInCIDR(tt.ip, tt.cidr))
		})
	}
}

func TestIPInAnyCIDR(t *testing.T) {
	ranges := []string{"10.0.0.0/8", "192.168.0.0/16"}

	assert.True(t, IPInAnyCIDR("10.1.2.3", ranges))
	assert.True(t, IPInAnyCIDR("192.168.1.1", ranges))
	assert.False(t, IPInAnyCIDR("172.16.0.1", ranges))
	assert.False(t, IPInAnyCIDR("10.1.2.3", nil))
}
