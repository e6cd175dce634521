package secondary

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replog/internal/logging"
	"replog/internal/logstore"
	"replog/internal/model"
	"replog/internal/ordering"
	"replog/internal/rerrors"
)

func newTestServer() *Server {
	cfg := Config{Ordering: ordering.Config{OrderDiffMultiplier: 0.2, OrderCorrectionTimeLimit: time.Second, RequestTimeout: 15 * time.Second}, ReplicationDelay: 0}
	return NewServer(cfg, ordering.NewState(), logstore.New(), logging.New("test", 3))
}

func TestServer_AcceptsInOrder(t *testing.T) {
	s := newTestServer()
	err := s.Replicate(context.Background(), model.Replica{ID: "a", Order: 1, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hi"}, s.Log().All())
}

func TestServer_DuplicateRejected(t *testing.T) {
	s := newTestServer()
	require.NoError(t, s.Replicate(context.Background(), model.Replica{ID: "a", Order: 1, Content: "hi"}))
	err := s.Replicate(context.Background(), model.Replica{ID: "a", Order: 1, Content: "hi"})
	require.Error(t, err)
	assert.True(t, rerrors.IsKind(err, rerrors.KindValidationInvalid))
	assert.Equal(t, 1, s.Log().Len())
}

func TestServer_SabotageAppliesLocallyButReportsFailure(t *testing.T) {
	s := newTestServer()
	s.SetSabotage(true)
	err := s.Replicate(context.Background(), model.Replica{ID: "a", Order: 1, Content: "hi"})
	require.Error(t, err)
	assert.True(t, rerrors.IsKind(err, rerrors.KindRemoteReject))
	assert.Equal(t, []string{"hi"}, s.Log().All()) // applied locally despite reported failure
}

func TestServer_DisorderedWaitsThenAccepts(t *testing.T) {
	s := newTestServer()
	go func() {
		time.Sleep(50 * time.Millisecond)
		require.NoError(t, s.Replicate(context.Background(), model.Replica{ID: "m1", Order: 1, Content: "m1"}))
	}()
	err := s.Replicate(context.Background(), model.Replica{ID: "m2", Order: 2, Content: "m2"})
	require.NoError(t, err)
	assert.Contains(t, s.Log().All(), "m2")
}
