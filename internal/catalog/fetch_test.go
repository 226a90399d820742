package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "query string stripped",
			in:   "https://example.com/feeds/events.json?token=abcd",
			want: "https://example.com/...(redacted)",
		},
		{
			name: "path stripped",
			in:   "https://example.com/private/artists.json",
			want: "https://example.com/...(redacted)",
		},
		{
			name: "bare host",
			in:   "https://example.com",
			want: "https://example.com/...(redacted)",
		},
		{
			name: "no scheme",
			in:   "not a url",
			want: "...(redacted)",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, redactURL(tc.in))
		})
	}
}
