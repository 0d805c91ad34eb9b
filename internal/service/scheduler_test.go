package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wot-clan-dashboard/internal/cache"
)

func TestSchedulerTriggerNowRunsOneSync(t *testing.T) {
	client := rosterFixture()
	garage := newFakeGarage()
	cfg := testSyncConfig(t)
	s := NewSyncService(client, newFakePlayers(), garage, cache.NewTankCache(cfg.TankCachePath), cfg)

	sched := NewSyncScheduler(s, time.Hour)
	sched.Start()
	defer sched.Stop()

	sched.TriggerNow()

	require.Eventually(t, func() bool {
		garage.mu.Lock()
		defer garage.mu.Unlock()
		return garage.replaceCalls == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerTriggersCollapseWhileQueued(t *testing.T) {
	client := rosterFixture()
	client.blockMembers = make(chan struct{})
	garage := newFakeGarage()
	cfg := testSyncConfig(t)
	s := NewSyncService(client, newFakePlayers(), garage, cache.NewTankCache(cfg.TankCachePath), cfg)

	sched := NewSyncScheduler(s, time.Hour)
	sched.Start()
	defer sched.Stop()

	// First trigger starts a run that parks on the roster fetch; the rest
	// collapse into a single queued trigger, which the debounce then drops.
	sched.TriggerNow()
	require.Eventually(t, func() bool { return s.Status().Running }, time.Second, time.Millisecond)
	sched.TriggerNow()
	sched.TriggerNow()
	sched.TriggerNow()

	close(client.blockMembers)
	require.Eventually(t, func() bool { return !s.Status().Running }, 2*time.Second, time.Millisecond)

	// Give the queued trigger a chance to drain through the loop.
	time.Sleep(50 * time.Millisecond)

	client.mu.Lock()
	calls := client.memberCalls
	client.mu.Unlock()
	require.Equal(t, 1, calls)

	garage.mu.Lock()
	replaces := garage.replaceCalls
	garage.mu.Unlock()
	require.Equal(t, 1, replaces)
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	cfg := testSyncConfig(t)
	s := NewSyncService(&fakeClient{}, newFakePlayers(), newFakeGarage(), cache.NewTankCache(cfg.TankCachePath), cfg)

	sched := NewSyncScheduler(s, time.Hour)
	sched.Start()
	sched.Stop()
	sched.Stop()
}
