package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDurationUnmarshalYAML(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
		ok    bool
	}{
		{`"30s"`, 30 * time.Second, true},
		{`"300ms"`, 300 * time.Millisecond, true},
		{`"1h30m"`, 90 * time.Minute, true},
		{`""`, 0, true},
		{`"soon"`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			err := yaml.Unmarshal([]byte(tt.input), &d)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration())
		})
	}
}

func TestDurationMarshalYAML(t *testing.T) {
	out, err := yaml.Marshal(Duration(45 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, "45s\n", string(out))
}
