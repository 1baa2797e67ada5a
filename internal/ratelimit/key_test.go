package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vyrodovalexey/trustgw/internal/classifier"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		identity classifier.Identity
		ip       string
		want     string
	}{
		{
			name:     "mtls client keyed by client id",
			identity: classifier.Identity{Type: classifier.IdentityMTLS, ClientID: "svc-billing"},
			ip:       "10.0.0.5",
			want:     "mtls:svc-billing",
		},
		{
			name:     "bot keyed by family and ip",
			identity: classifier.Identity{Type: classifier.IdentityBot, BotName: "googlebot"},
			ip:       "66.249.66.1",
			want:     "bot:googlebot:66.249.66.1",
		},
		{
			name:     "anonymous keyed by ip",
			identity: classifier.Identity{Type: classifier.IdentityAnonymous},
			ip:       "203.0.113.10",
			want:     "ip:203.0.113.10",
		},
		{
			name:     "mtls without client id falls back to ip",
			identity: classifier.Identity{Type: classifier.IdentityMTLS},
			ip:       "10.0.0.5",
			want:     "ip:10.0.0.5",
		},
		{
			name:     "bot without name falls back to ip",
			identity: classifier.Identity{Type: classifier.IdentityBot},
			ip:       "66.249.66.1",
			want:     "ip:66.249.66.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.identity, tt.ip))
		})
	}
}
