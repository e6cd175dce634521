package ordering

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replog/internal/model"
)

func TestClassify(t *testing.T) {
	s := NewState()
	s.SetCurrentOrdering(5)

	assert.Equal(t, Correct, Classify(s, model.Replica{ID: "a", Order: 6}))
	assert.Equal(t, Disordered, Classify(s, model.Replica{ID: "b", Order: 8}))
	assert.Equal(t, Invalid, Classify(s, model.Replica{ID: "c", Order: 3}))

	s.ModifyLostMessageCount(2)
	assert.Equal(t, Belated, Classify(s, model.Replica{ID: "d", Order: 3}))

	s.RegisterID("e")
	assert.Equal(t, Invalid, Classify(s, model.Replica{ID: "e", Order: 100}))
}

func TestApply_Correct(t *testing.T) {
	s := NewState()
	var got []string
	err := Apply(context.Background(), DefaultConfig(), s, model.Replica{ID: "a", Order: 1, Content: "hi"}, Correct, func(c string) { got = append(got, c) })
	require.NoError(t, err)
	assert.Equal(t, []string{"hi"}, got)
	assert.EqualValues(t, 1, s.CurrentOrdering())
	assert.True(t, s.Duplicate("a"))
}

func TestApply_Belated(t *testing.T) {
	s := NewState()
	s.SetCurrentOrdering(5)
	s.ModifyLostMessageCount(1)
	var got []string
	err := Apply(context.Background(), DefaultConfig(), s, model.Replica{ID: "a", Order: 3, Content: "gap-fill"}, Belated, func(c string) { got = append(got, c) })
	require.NoError(t, err)
	assert.Equal(t, []string{"gap-fill"}, got)
	assert.EqualValues(t, 5, s.CurrentOrdering()) // C does not move on Belated
	assert.EqualValues(t, 0, s.MessagesLost())
}

func TestApply_Invalid(t *testing.T) {
	s := NewState()
	s.RegisterID("dup")
	var called bool
	err := Apply(context.Background(), DefaultConfig(), s, model.Replica{ID: "dup", Order: 1}, Invalid, func(c string) { called = true })
	require.Error(t, err)
	assert.False(t, called)
}

func TestGapWait_FillsBeforeTimeout(t *testing.T) {
	s := NewState()
	s.SetCurrentOrdering(1)
	cfg := Config{OrderDiffMultiplier: 0.2, OrderCorrectionTimeLimit: 3 * time.Second, RequestTimeout: 120 * time.Second}

	go func() {
		time.Sleep(200 * time.Millisecond)
		s.SetCurrentOrdering(2)
	}()

	// order=3 means we wait for current_ordering==2.
	err := GapWait(context.Background(), cfg, s, 3)
	assert.NoError(t, err)
}

func TestGapWaitBudget_RespectsCeiling(t *testing.T) {
	cfg := Config{OrderDiffMultiplier: 0.2, OrderCorrectionTimeLimit: 60 * time.Second, RequestTimeout: 120 * time.Second}
	b := gapWaitBudget(cfg, 100)
	assert.LessOrEqual(t, b, cfg.RequestTimeout-10*time.Second)
}
