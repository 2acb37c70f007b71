package style

import "testing"

func TestTruncate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		n    int
		want string
	}{
		{"linking failed", 20, "linking failed"},
		{"linking failed", 8, "linking…"},
		{"linking failed", 1, "…"},
		{"linking failed", 0, "linking failed"},
	}
	for _, tc := range testCases {
		if got := Truncate(tc.in, tc.n); got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}
