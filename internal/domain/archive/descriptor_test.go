package archive

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{
			name: "typical archive key",
			key:  "AWSLogs/123456789012/CloudTrail/us-east-1/2024/01/15/events_01.json.gz",
		},
		{
			name: "exactly at the length limit",
			key:  strings.Repeat("a", 1024),
		},
		{
			name:    "empty",
			key:     "",
			wantErr: ErrEmptyKey,
		},
		{
			name:    "one byte over the limit",
			key:     strings.Repeat("a", 1025),
			wantErr: ErrKeyTooLong,
		},
		{
			name:    "leading slash",
			key:     "/etc/passwd",
			wantErr: ErrUnsafeKey,
		},
		{
			name:    "parent traversal segment",
			key:     "logs/../../outside/evil.gz",
			wantErr: ErrUnsafeKey,
		},
		{
			name:    "newline",
			key:     "logs/evil\nINJECTED.gz",
			wantErr: ErrUnsafeKey,
		},
		{
			name:    "tab",
			key:     "logs/evil\t.gz",
			wantErr: ErrUnsafeKey,
		},
		{
			name: "dotdot inside a segment name is fine",
			key:  "logs/archive..old/events.gz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)

			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDescriptor_Validate(t *testing.T) {
	t.Run("valid descriptor", func(t *testing.T) {
		d := Descriptor{Key: "logs/2024/01/15/events_01.json.gz", Size: 1024}
		assert.NoError(t, d.Validate())
	})

	t.Run("key rules apply", func(t *testing.T) {
		d := Descriptor{Key: "../evil.gz", Size: 1024}
		assert.ErrorIs(t, d.Validate(), ErrUnsafeKey)
	})

	t.Run("negative size rejected", func(t *testing.T) {
		d := Descriptor{Key: "logs/events.gz", Size: -1}
		require.Error(t, d.Validate())
		assert.Contains(t, d.Validate().Error(), "negative size")
	})

	t.Run("zero size is allowed", func(t *testing.T) {
		d := Descriptor{Key: "logs/empty.gz"}
		assert.NoError(t, d.Validate())
	})
}
