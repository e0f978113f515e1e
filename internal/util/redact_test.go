package util

import (
	"strings"
	"testing"
)

func TestRedactSecrets(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		absent string
	}{
		{
			name:   "bearer token",
			in:     `request failed: Authorization: Bearer sk-abc123def`,
			absent: "sk-abc123def",
		},
		{
			name:   "api key pair",
			in:     `config error: api_key=AIzaSyExample rejected`,
			absent: "AIzaSyExample",
		},
		{
			name:   "key query parameter",
			in:     `Post "https://example.test/v1beta/models/m:generateContent?key=AIzaSyExample&alt=json": timeout`,
			absent: "AIzaSyExample",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RedactSecrets(tc.in)
			if strings.Contains(got, tc.absent) {
				t.Fatalf("secret survived redaction: %q", got)
			}
		})
	}

	t.Run("plain text untouched", func(t *testing.T) {
		in := "undefined column \"amount\""
		if got := RedactSecrets(in); got != in {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := RedactSecrets(""); got != "" {
			t.Fatalf("got %q", got)
		}
	})
}
