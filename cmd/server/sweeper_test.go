package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Seanzed08/SmartLab/internal/dto"
	"github.com/Seanzed08/SmartLab/pkg/clock"
)

type countingSessions struct {
	calls atomic.Int32
	err   error
}

func (s *countingSessions) Tap(context.Context, string, string) (*dto.TapResponse, error) {
	return nil, errors.New("unused")
}
func (s *countingSessions) SweepOverdue(context.Context, time.Time) (*dto.SweepResponse, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &dto.SweepResponse{Completed: 1, MarksClosed: 2}, nil
}
func (s *countingSessions) ActiveSessions(context.Context, string, string) ([]dto.ActiveSessionResponse, error) {
	return nil, nil
}

func TestRunSweeper_TicksUntilCancelled(t *testing.T) {
	sessions := &countingSessions{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runSweeper(ctx, sessions, clock.Real{}, 5*time.Millisecond, zap.NewNop())
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sessions.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("sweeper did not tick, calls=%d", sessions.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestSweepOnce_ErrorIsLogged(t *testing.T) {
	sessions := &countingSessions{err: errors.New("db down")}
	sweepOnce(context.Background(), sessions, clock.Real{}, zap.NewNop())
	if sessions.calls.Load() != 1 {
		t.Errorf("expected one sweep, got %d", sessions.calls.Load())
	}
}
