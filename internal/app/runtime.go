package app

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// TestModeEnv makes cmd/portal exit before dialing Redis or the backend API,
// so package tests can import the binary's wiring without a live stack.
const TestModeEnv = "PORTAL_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

func readTestMode() bool {
	raw := strings.TrimSpace(os.Getenv(TestModeEnv))
	if raw == "" {
		return false
	}
	on, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Default().Warn("ignoring malformed test mode flag",
			slog.String("env", TestModeEnv), slog.String("value", raw))
		return false
	}
	return on
}

// InTestMode reports whether the portal should skip its runtime startup.
func InTestMode() bool {
	testModeOnce.Do(func() { testMode.Store(readTestMode()) })
	return testMode.Load()
}

// RefreshTestMode re-reads PORTAL_TEST_MODE after the environment changed.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	testMode.Store(readTestMode())
}
