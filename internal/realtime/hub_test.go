package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"animeportal/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/goleak"
)

func TestHub_PublishSubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	events, cancel := hub.Subscribe(context.Background())
	defer cancel()

	hub.Publish(models.ViewEvent{ArticleID: "a", Views: 3})
	select {
	case ev := <-events:
		if ev.ArticleID != "a" || ev.Views != 3 {
			t.Errorf("Expected event for a with 3 views, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected an event")
	}
}

func TestHub_Filter(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	events, cancel := hub.Subscribe(context.Background(), "b")
	defer cancel()

	hub.Publish(models.ViewEvent{ArticleID: "a", Views: 1})
	hub.Publish(models.ViewEvent{ArticleID: "b", Views: 2})

	ev := <-events
	if ev.ArticleID != "b" {
		t.Errorf("Expected only events for b, got %+v", ev)
	}
	if len(events) != 0 {
		t.Errorf("Expected no further events, got %d", len(events))
	}
}

func TestHub_CancelClosesChannel(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	events, cancel := hub.Subscribe(context.Background())
	if hub.Count() != 1 {
		t.Errorf("Expected 1 subscriber, got %d", hub.Count())
	}
	cancel()
	cancel()

	if _, ok := <-events; ok {
		t.Error("Expected closed channel after cancel")
	}
	if hub.Count() != 0 {
		t.Errorf("Expected 0 subscribers, got %d", hub.Count())
	}
	hub.Publish(models.ViewEvent{ArticleID: "a"})
}

func TestHub_ContextEndsSubscription(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	ctx, stop := context.WithCancel(context.Background())
	events, cancel := hub.Subscribe(ctx)
	defer cancel()

	stop()
	select {
	case _, ok := <-events:
		if ok {
			t.Error("Expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("Expected subscription to end with its context")
	}
	if hub.Count() != 0 {
		t.Errorf("Expected 0 subscribers, got %d", hub.Count())
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	_, cancel := hub.Subscribe(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			hub.Publish(models.ViewEvent{ArticleID: "a", Views: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected Publish not to block on a full subscriber")
	}
	if hub.Dropped() != subscriberBuffer {
		t.Errorf("Expected %d dropped events, got %d", subscriberBuffer, hub.Dropped())
	}
}

func TestWSHandler_StreamsEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	router := gin.New()
	router.GET("/ws/views", WSHandler(hub))
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/views?ids=a"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	var welcome map[string]any
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if welcome["type"] != "welcome" {
		t.Errorf("Expected welcome message, got %v", welcome)
	}

	hub.Publish(models.ViewEvent{ArticleID: "other", Views: 9})
	hub.Publish(models.ViewEvent{ArticleID: "a", Views: 42, At: time.Now()})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg["article_id"] != "a" || msg["views"] != float64(42) {
		t.Errorf("Expected views event for a, got %v", msg)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Count() != 0 {
		t.Errorf("Expected subscription to end when the client leaves, got %d", hub.Count())
	}
}
