package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replog/internal/logging"
	"replog/internal/model"
)

func TestProber_EmitsSuspectedThenFailed(t *testing.T) {
	cfg := Config{
		FailBudget:       2,
		Interval:         10 * time.Millisecond,
		RequestTimeout:   5 * time.Millisecond,
		PostFailInterval: 10 * time.Millisecond,
		EmitSendTimeout:  time.Second,
	}
	var calls atomic.Int32
	ping := func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("down")
	}
	log := logging.New("test", 3)
	p := New(cfg, "node-a", ping, log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go p.Run(ctx)

	var got []model.NodeHealth
	for s := range p.Signals {
		got = append(got, s)
	}
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, model.Suspected, got[0])
	assert.Equal(t, model.Failed, got[len(got)-1])
}

func TestProber_RecoversWithoutEmittingWhenAlreadyHealthy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interval = 10 * time.Millisecond
	cfg.RequestTimeout = 5 * time.Millisecond
	ping := func(ctx context.Context) error { return nil }
	log := logging.New("test", 3)
	p := New(cfg, "node-b", ping, log)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	go p.Run(ctx)

	for range p.Signals {
		t.Fatal("expected no signals while continuously healthy")
	}
}
