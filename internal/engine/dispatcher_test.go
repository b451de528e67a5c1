package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bantrap/internal/models"
	"bantrap/internal/platform"
)

// blockingGateway holds BanMember until released.
type blockingGateway struct {
	release chan struct{}
	entered chan string
}

func (g *blockingGateway) FetchMember(ctx context.Context, communityID, userID string) (platform.Member, error) {
	return platform.Member{User: platform.User{ID: userID}}, nil
}

func (g *blockingGateway) BanMember(ctx context.Context, communityID, userID string, opts platform.BanOptions) error {
	g.entered <- communityID
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *blockingGateway) DeleteMessage(ctx context.Context, ref platform.MessageRef) error {
	return nil
}

func (g *blockingGateway) FetchChannel(ctx context.Context, communityID, channelID string) (platform.Channel, error) {
	return platform.Channel{}, platform.ErrNotFound
}

func (g *blockingGateway) SendMessage(ctx context.Context, channel platform.Channel, record platform.AuditRecord) error {
	return nil
}

func (g *blockingGateway) MentionChannel(channelID string) string { return channelID }

type panicConfigs struct{}

func (panicConfigs) Get(string) models.CommunityConfig { panic("boom") }

func TestDispatcherProcessesEventsConcurrently(t *testing.T) {
	configs := staticConfigs{
		"g1": {TrapChannelID: "t1"},
		"g2": {TrapChannelID: "t2"},
	}
	gw := &blockingGateway{release: make(chan struct{}), entered: make(chan string, 2)}
	d := NewDispatcher(New(configs, gw, nil, DefaultRetentionWindow), NewStats(), 4, time.Minute)

	d.MessageCreated(platform.MessageEvent{CommunityID: "g1", ChannelID: "t1", Author: platform.User{ID: "a"}})
	d.MessageCreated(platform.MessageEvent{CommunityID: "g2", ChannelID: "t2", Author: platform.User{ID: "b"}})

	// both bans are in flight at the same time
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-gw.entered:
			seen[id] = true
		case <-time.After(5 * time.Second):
			t.Fatal("events were not processed concurrently")
		}
	}
	assert.Equal(t, map[string]bool{"g1": true, "g2": true}, seen)

	close(gw.release)
	require.True(t, d.Wait(5*time.Second))

	stats := d.Stats().Snapshot()
	assert.Equal(t, int64(2), stats["processed"])
	assert.Equal(t, int64(2), stats["banned"])
	assert.Equal(t, int64(0), stats["active_handlers"])
}

func TestDispatcherEventTimeout(t *testing.T) {
	configs := staticConfigs{"g1": {TrapChannelID: "t1"}}
	gw := &blockingGateway{release: make(chan struct{}), entered: make(chan string, 1)}
	d := NewDispatcher(New(configs, gw, nil, DefaultRetentionWindow), nil, 1, 50*time.Millisecond)

	d.MessageCreated(platform.MessageEvent{CommunityID: "g1", ChannelID: "t1", Author: platform.User{ID: "a"}})
	require.True(t, d.Wait(5*time.Second))

	stats := d.Stats().Snapshot()
	assert.Equal(t, int64(1), stats["failed"])
	assert.Equal(t, int64(1), stats["timeouts"])
}

func TestDispatcherRecoversPanics(t *testing.T) {
	d := NewDispatcher(New(panicConfigs{}, nil, nil, DefaultRetentionWindow), nil, 2, time.Second)

	assert.NotPanics(t, func() {
		d.MessageCreated(platform.MessageEvent{CommunityID: "g1", ChannelID: "t1", Author: platform.User{ID: "a"}})
		require.True(t, d.Wait(5*time.Second))
	})
	assert.Equal(t, int64(1), d.Stats().Snapshot()["panics"])
}

func TestDispatcherClosedDropsEvents(t *testing.T) {
	f := newFixture(t, models.CommunityConfig{CommunityID: guild, TrapChannelID: trapID})
	d := NewDispatcher(f.engine, nil, 2, time.Second)

	require.True(t, d.Close(time.Second))
	d.MessageCreated(message(trapID, "user-u", "late"))
	require.True(t, d.Wait(time.Second))

	assert.Equal(t, 0, f.gw.BanCount())
}

func TestDispatcherReadyCallback(t *testing.T) {
	d := NewDispatcher(New(staticConfigs{}, nil, nil, 0), nil, 0, 0)
	var mu sync.Mutex
	var got string
	d.OnReady(func(name string) {
		mu.Lock()
		defer mu.Unlock()
		got = name
	})

	d.Ready("bantrap#0001")
	assert.Equal(t, "bantrap#0001", got)
}

func TestDispatcherManyEvents(t *testing.T) {
	f := newFixture(t, models.CommunityConfig{CommunityID: guild, TrapChannelID: trapID})
	d := NewDispatcher(f.engine, nil, 8, time.Second)

	for i := 0; i < 100; i++ {
		evt := message(trapID, "user-u", fmt.Sprintf("spam %d", i))
		d.MessageCreated(evt)
	}
	require.True(t, d.Wait(5*time.Second))

	assert.Equal(t, 100, f.gw.BanCount())
	assert.Equal(t, int64(100), d.Stats().Snapshot()["banned"])
}
