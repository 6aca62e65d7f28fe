package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DemandLoop/internal/domain/models"
)

func startHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()
	h := NewHub(nil, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func fakeClient(h *Hub, places ...string) *Client {
	c := newClient(h, nil, places)
	h.register <- c
	return c
}

func prediction(id string) *models.Prediction {
	return &models.Prediction{
		VenueID:     id,
		Now:         models.ColdStartEstimate(),
		GeneratedAt: time.Date(2025, 3, 4, 17, 30, 0, 0, time.UTC),
	}
}

func receive(t *testing.T, c *Client) models.PredictionEvent {
	t.Helper()
	select {
	case b := <-c.send:
		var ev models.PredictionEvent
		require.NoError(t, json.Unmarshal(b, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
	return models.PredictionEvent{}
}

func TestHub_BroadcastRespectsSubscriptions(t *testing.T) {
	h := startHub(t)
	all := fakeClient(h)
	onlyA := fakeClient(h, "a")
	onlyB := fakeClient(h, "b")
	require.Eventually(t, func() bool { return h.ClientCount() == 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.PublishPrediction(context.Background(), prediction("a")))

	assert.Equal(t, "a", receive(t, all).PlaceID)
	ev := receive(t, onlyA)
	assert.Equal(t, models.EventPredictionUpdated, ev.Type)
	assert.Equal(t, "medium", ev.Now.CrowdLevel)

	select {
	case <-onlyB.send:
		t.Fatal("client subscribed to b received an event for a")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_DropsSlowClients(t *testing.T) {
	h := startHub(t, WithSendBuffer(1))
	c := fakeClient(h)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.PublishPrediction(context.Background(), prediction("a")))
	require.NoError(t, h.PublishPrediction(context.Background(), prediction("b")))

	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	// the buffered event is still readable before the closed channel
	_, ok := <-c.send
	assert.True(t, ok)
	_, ok = <-c.send
	assert.False(t, ok)
}

func TestHub_ServeWSEndToEnd(t *testing.T) {
	h := startHub(t, WithCheckOrigin(func(*http.Request) bool { return true }))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.ServeWS(w, r, []string{"cafe-1"})
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.PublishPrediction(context.Background(), prediction("cafe-1")))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev models.PredictionEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "cafe-1", ev.PlaceID)
	assert.Equal(t, "2025-03-04T17:30:00Z", ev.GeneratedAt)
}

func TestHub_PublishAfterStopIsNoop(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, h.Run(ctx), context.Canceled)

	for i := 0; i < 300; i++ {
		require.NoError(t, h.PublishPrediction(context.Background(), prediction("a")))
	}
	assert.Empty(t, h.broadcast)
}
