package quotagate_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	qg "github.com/ineyio/quotagate"
)

const watchConfigTemplate = `
credentials:
  - id: k1
    secret: s1
    tiers:
      - name: std
        short_ceiling: %s
        short_window: 1m
        long_ceiling: 100
        long_window: 24h
`

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := writeConfig(t, sprintfConfig("10"))

	cfg, err := qg.LoadConfig(path)
	require.NoError(t, err)
	g := newTestGate(t, cfg)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := qg.NewWatcher(path, g, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// Give the watcher a moment to register before mutating the file.
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(sprintfConfig("25")), 0o600))

	require.Eventually(t, func() bool {
		return g.Status()[0].Tiers[0].Short.Ceiling == 25
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_KeepsRunningOnBadConfig(t *testing.T) {
	path := writeConfig(t, sprintfConfig("10"))

	cfg, err := qg.LoadConfig(path)
	require.NoError(t, err)
	g := newTestGate(t, cfg)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := qg.NewWatcher(path, g, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	time.Sleep(200 * time.Millisecond)

	// A broken write is skipped; the gate keeps the old config.
	require.NoError(t, os.WriteFile(path, []byte("credentials: ["), 0o600))
	time.Sleep(300 * time.Millisecond)
	require.EqualValues(t, 10, g.Status()[0].Tiers[0].Short.Ceiling)

	// And a subsequent good write still lands.
	require.NoError(t, os.WriteFile(path, []byte(sprintfConfig("15")), 0o600))
	require.Eventually(t, func() bool {
		return g.Status()[0].Tiers[0].Short.Ceiling == 15
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func sprintfConfig(ceiling string) string {
	return fmt.Sprintf(watchConfigTemplate, ceiling)
}
