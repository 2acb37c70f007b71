package main

import "testing"

func TestVerboseRequested(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		args []string
		want bool
	}{
		{[]string{"run", "--verbose"}, true},
		{[]string{"-v", "gate"}, true},
		{[]string{"run", "--dry-run"}, false},
		{[]string{"gate", "--", "-v"}, false},
	}

	for _, tc := range testCases {
		if got := verboseRequested(tc.args); got != tc.want {
			t.Errorf("verboseRequested(%v) = %v, want %v", tc.args, got, tc.want)
		}
	}
}
