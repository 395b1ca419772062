package process

// Notes:
// - Only PIDs that cannot name a live process are used. Killing a launched
//   browser is covered by the browser integration test.
// - PID 0 must be a no-op: syscall.Kill(-0, SIGKILL) would kill the test's
//   own process group.

import "testing"

// ---------------------------------------------------------------------------
// TestKillTree - Harmless PIDs
// ---------------------------------------------------------------------------

func TestKillTree(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pid  int
	}{
		{"zero is ignored", 0},
		{"negative is ignored", -42},
		{"non-existent pid", 999999999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			KillTree(tt.pid)
		})
	}
}
