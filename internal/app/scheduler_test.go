package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeJobs struct {
	mu        sync.Mutex
	completed int
	rosters   int
	lookahead time.Duration
	err       error
}

func (f *fakeJobs) CompleteEndedClasses(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed++
	return 1, f.err
}

func (f *fakeJobs) MaterializeUpcoming(_ context.Context, lookahead time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosters++
	f.lookahead = lookahead
	return 3, f.err
}

func TestSchedulerRunsJobsOnStart(t *testing.T) {
	jobs := &fakeJobs{}
	s := NewScheduler(jobs, ScheduleConfig{
		CloseClassesSpec: "*/15 * * * *",
		RosterSpec:       "*/5 * * * *",
		RosterLookahead:  30 * time.Minute,
	}, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	s.Stop()

	assert.Equal(t, 1, jobs.completed)
	assert.Equal(t, 1, jobs.rosters)
	assert.Equal(t, 30*time.Minute, jobs.lookahead)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&fakeJobs{}, ScheduleConfig{CloseClassesSpec: "often", RosterSpec: "*/5 * * * *"}, zap.NewNop())
	assert.Error(t, s.Start(context.Background()))
}

func TestSchedulerSurvivesJobErrors(t *testing.T) {
	jobs := &fakeJobs{err: errors.New("db down")}
	s := NewScheduler(jobs, ScheduleConfig{CloseClassesSpec: "@hourly", RosterSpec: "@hourly"}, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	assert.Equal(t, 1, jobs.completed)
}

func TestSchedulerSkipsCancelledContext(t *testing.T) {
	jobs := &fakeJobs{}
	s := NewScheduler(jobs, ScheduleConfig{CloseClassesSpec: "@hourly", RosterSpec: "@hourly"}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Start(ctx))
	s.Stop()
	assert.Zero(t, jobs.completed)
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		logger, err := NewLogger(env)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	}
}
