package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/launchchime/internal/core"
	"github.com/jmylchreest/launchchime/internal/daemon"
	"github.com/jmylchreest/launchchime/internal/kv"
	"github.com/jmylchreest/launchchime/internal/launch"
	"github.com/jmylchreest/launchchime/internal/store"
)

type recordingPlayer struct {
	mu    sync.Mutex
	plays []string
}

func (p *recordingPlayer) Play(name string, volume float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays = append(p.plays, name)
	return nil
}

func (p *recordingPlayer) Close() {}

func (p *recordingPlayer) Plays() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.plays...)
}

func newTestControl(t *testing.T) (*daemonControl, *recordingPlayer) {
	t.Helper()
	st := store.NewStore(kv.NewMemoryStore(), nil)
	require.NoError(t, st.ResetToDefaults())
	t.Cleanup(func() { st.Close() })

	player := &recordingPlayer{}
	d := daemon.NewDispatcher(st, player, nil)
	d.SetEnabled(true)
	t.Cleanup(func() { d.Stop() })

	return &daemonControl{
		dispatcher: d,
		svc:        &core.Services{Store: st},
		manual:     launch.NewManualFeed(),
		watcher:    daemon.NewConfigWatcher(t.TempDir()+"/config.toml", nil),
	}, player
}

func TestDaemonControl_Status(t *testing.T) {
	c, _ := newTestControl(t)
	c.setFeed("process")

	status := c.Status()
	assert.Equal(t, "idle", status.State)
	assert.True(t, status.Enabled)
	assert.Equal(t, 3, status.Apps)
	assert.Equal(t, "process", status.Feed)
	assert.Equal(t, version, status.Version)

	c.SetEnabled(false)
	assert.False(t, c.Status().Enabled)
}

func TestDaemonControl_Simulate(t *testing.T) {
	c, player := newTestControl(t)

	assert.Error(t, c.Simulate("com.cursor.Cursor"), "dispatcher not started")
	assert.Error(t, c.Simulate("  "))

	require.NoError(t, c.dispatcher.Start(context.Background(), c.manual))
	require.NoError(t, c.Simulate(" com.cursor.Cursor "))

	assert.Eventually(t, func() bool { return len(player.Plays()) == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"depth"}, player.Plays())
}
