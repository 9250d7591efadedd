package connection

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{name: "empty", key: "", want: ""},
		{name: "short", key: "abc", want: "***"},
		{name: "boundary", key: "0123456789", want: "**********"},
		{name: "long", key: "eyJhbGciOiJIUzI1NiJ9.payload.sig", want: "eyJhbG....sig"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskKey(tt.key))
		})
	}
}

func TestCredentials_Complete(t *testing.T) {
	assert.True(t, Credentials{URL: "https://x.test", Key: "k1"}.Complete())
	assert.False(t, Credentials{URL: "https://x.test"}.Complete())
	assert.False(t, Credentials{Key: "k1"}.Complete())
}

func TestCredentials_Trimmed(t *testing.T) {
	got := Credentials{URL: "  https://x.test ", Key: "\tk1\n"}.Trimmed()
	assert.Equal(t, Credentials{URL: "https://x.test", Key: "k1"}, got)
}

func TestStatus_LogValueMasksKey(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	secret := "super-secret-anon-key-value"
	logger.Info("resolved", "status", ConfiguredFrom(SourceStorage, Credentials{URL: "https://x.test", Key: secret}))

	out := buf.String()
	assert.NotContains(t, out, secret)
	assert.True(t, strings.Contains(out, "super-...alue"), out)
	assert.Contains(t, out, "https://x.test")
}
