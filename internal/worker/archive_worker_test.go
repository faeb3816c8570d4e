package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) Sweep(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestNewArchiveWorker(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{name: "default schedule", schedule: ""},
		{name: "every five minutes", schedule: "*/5 * * * *"},
		{name: "six fields rejected", schedule: "0 0 * * * *", wantErr: true},
		{name: "garbage", schedule: "whenever", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewArchiveWorker(new(MockSweeper), tt.schedule, 0)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, w)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, w)
		})
	}
}

func TestArchiveWorker_Next(t *testing.T) {
	w, err := NewArchiveWorker(new(MockSweeper), "0 9 * * *", 0)
	require.NoError(t, err)

	w.now = func() time.Time { return time.Date(2026, 3, 2, 8, 30, 0, 0, time.Local) }
	assert.Equal(t, 30*time.Minute, w.next())

	w.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local) }
	assert.Equal(t, 24*time.Hour, w.next())
}

func TestArchiveWorker_Check(t *testing.T) {
	tests := []struct {
		name     string
		archived int
		err      error
		want     int
	}{
		{name: "archives tasks", archived: 3, want: 3},
		{name: "nothing to do", archived: 0, want: 0},
		{name: "sweep fails", err: errors.New("store down"), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sweeper := new(MockSweeper)
			sweeper.On("Sweep", mock.Anything).Return(tt.archived, tt.err).Once()

			w, err := NewArchiveWorker(sweeper, "", 0)
			require.NoError(t, err)

			assert.Equal(t, tt.want, w.Check(context.Background()))
			sweeper.AssertExpectations(t)
		})
	}
}

func TestArchiveWorker_StartRunsStartupSweep(t *testing.T) {
	sweeper := new(MockSweeper)
	swept := make(chan struct{})
	sweeper.On("Sweep", mock.Anything).Return(1, nil).Once().Run(func(mock.Arguments) { close(swept) })

	w, err := NewArchiveWorker(sweeper, "0 0 1 1 *", 10*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("startup sweep did not run")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	sweeper.AssertExpectations(t)
}

func TestArchiveWorker_StopsBeforeStartupDelay(t *testing.T) {
	sweeper := new(MockSweeper)
	w, err := NewArchiveWorker(sweeper, "", time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)
	sweeper.AssertNotCalled(t, "Sweep", mock.Anything)
}
