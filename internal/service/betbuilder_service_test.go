package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketgroups/internal/domain"
)

type blockAllFetcher struct{}

func (blockAllFetcher) FetchGrayouts(_ context.Context, _ string, ids []string) (domain.GrayoutsState, error) {
	state := domain.DefaultGrayouts()
	state.Blocked["x-"+ids[0]] = domain.OutcomePointer{OutcomeID: "x-" + ids[0]}
	return state, nil
}

func TestBetBuilderService(t *testing.T) {
	bus := newFakeBus()
	svc := NewBetBuilderService(blockAllFetcher{}, bus, nil, time.Second, discard)
	defer svc.Close()

	assert.False(t, svc.ShouldGrayout("s1", "x-a"))
	assert.Equal(t, domain.DefaultGrayouts(), svc.Grayouts("unknown"))

	require.True(t, svc.SelectionsChanged(context.Background(), "s1", []string{"a"}))

	var msg published
	select {
	case msg = <-bus.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no grayouts published")
	}
	assert.Equal(t, "grayouts:s1", msg.channel)

	var update domain.GrayoutsUpdate
	require.NoError(t, json.Unmarshal(msg.payload, &update))
	assert.Equal(t, "s1", update.SessionID)
	assert.Contains(t, update.State.Blocked, "x-a")
	assert.False(t, update.Unavailable)

	assert.True(t, svc.ShouldGrayout("s1", "x-a"))
	assert.False(t, svc.SelectionsChanged(context.Background(), "s1", []string{"a"}))
	assert.Equal(t, 1, svc.Sessions())

	svc.EndSession("s1")
	assert.Equal(t, 0, svc.Sessions())
	assert.False(t, svc.ShouldGrayout("s1", "x-a"))
}

func TestBetBuilderService_SweeperEndsIdleSessions(t *testing.T) {
	svc := NewBetBuilderService(blockAllFetcher{}, nil, nil, time.Second, discard)
	defer svc.Close()

	svc.SelectionsChanged(context.Background(), "s1", nil)
	require.Equal(t, 1, svc.Sessions())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.RunSweeper(ctx, 5*time.Millisecond, time.Millisecond) }()

	require.Eventually(t, func() bool { return svc.Sessions() == 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
