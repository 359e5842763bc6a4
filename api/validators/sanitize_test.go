package validators

import "testing"

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"  Ada Fabrics  ", 0, "Ada Fabrics"},
		{"line\x00one\x1b", 0, "lineone"},
		{"two\nlines", 0, "two\nlines"},
		{"abcdef", 3, "abc"},
		{"Naïra", 3, "Na"},
		{"₦5000", 2, ""},
	}
	for _, tc := range cases {
		if got := SanitizeString(tc.in, tc.maxLen); got != tc.want {
			t.Errorf("SanitizeString(%q, %d) = %q, want %q", tc.in, tc.maxLen, got, tc.want)
		}
	}
}
