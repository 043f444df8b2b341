package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBackuper struct {
	mock.Mock
}

func (m *mockBackuper) PerformBackup(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockBackuper) CleanupOldBackups() int {
	return m.Called().Int(0)
}

type mockSaver struct {
	mock.Mock
}

func (m *mockSaver) SaveFile(ctx context.Context, start, end time.Time) (string, error) {
	args := m.Called(ctx, start, end)
	return args.String(0), args.Error(1)
}

func TestSchedulerAdd(t *testing.T) {
	logger := zerolog.Nop()
	s := NewScheduler(time.UTC, &logger)
	noop := func(context.Context) (int, error) { return 0, nil }

	require.NoError(t, s.Add("sweep", "@every 15m", noop))
	require.NoError(t, s.Add("disabled", "", noop))
	assert.Error(t, s.Add("broken", "not a schedule", noop))
	assert.Equal(t, 1, s.Entries())
}

func TestSchedulerRunsJobs(t *testing.T) {
	logger := zerolog.Nop()
	s := NewScheduler(time.UTC, &logger)

	ran := make(chan struct{}, 1)
	require.NoError(t, s.Add("tick", "@every 1s", func(context.Context) (int, error) {
		select {
		case ran <- struct{}{}:
		default:
		}
		return 1, nil
	}))
	s.Start()
	defer s.Stop(context.Background())

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestSchedulerRunSurvivesJobError(t *testing.T) {
	logger := zerolog.Nop()
	s := NewScheduler(time.UTC, &logger)
	assert.NotPanics(t, func() {
		s.run("boom", func(context.Context) (int, error) { return 0, errors.New("boom") })
	})
}

func TestBackupJob(t *testing.T) {
	b := new(mockBackuper)
	b.On("PerformBackup", mock.Anything).Return("/backups/resort.db", nil)
	b.On("CleanupOldBackups").Return(2)

	n, err := Backup(b)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	b.AssertExpectations(t)
}

func TestBackupJobSkipsCleanupOnFailure(t *testing.T) {
	b := new(mockBackuper)
	b.On("PerformBackup", mock.Anything).Return("", errors.New("disk full"))

	_, err := Backup(b)(context.Background())
	assert.EqualError(t, err, "disk full")
	b.AssertNotCalled(t, "CleanupOldBackups")
}

func TestScheduleExportJob(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 6, 1, 22, 30, 0, 0, time.UTC) }
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	saver := new(mockSaver)
	saver.On("SaveFile", mock.Anything, start, start.AddDate(0, 0, 30)).Return("exports/x.xlsx", nil)

	n, err := ScheduleExport(saver, now, 30)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	saver.AssertExpectations(t)
}
