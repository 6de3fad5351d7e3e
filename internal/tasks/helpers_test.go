package tasks

import (
	"testing"

	"go.uber.org/zap"
)

// testLogger returns a no-op logger, matching how the tracker/netlink
// packages' own tests avoid asserting on log output.
func testLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zap.NewNop()
}
