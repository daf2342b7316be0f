package broker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mossy-p/social-signaling/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestRedisBroker_PublishReachesSubscriber(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	b := NewRedis(client, zap.NewNop())
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Delivery, 1)
	if err := b.Subscribe(ctx, "node-b", func(d Delivery) { got <- d }); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	sent := Delivery{
		Origin: "node-a",
		ToUser: "bob",
		ConnID: "h2",
		Envelope: models.Envelope{
			Event: models.EventIncomingCall,
			Data:  map[string]any{"from": "alice"},
		},
	}
	if err := b.Publish(ctx, "node-b", sent); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case d := <-got:
		if d.ToUser != "bob" || d.ConnID != "h2" || d.Envelope.Event != models.EventIncomingCall {
			t.Errorf("Unexpected delivery: %+v", d)
		}
		data, ok := d.Envelope.Data.(map[string]any)
		if !ok || data["from"] != "alice" {
			t.Errorf("Expected payload to survive the hop, got %#v", d.Envelope.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for delivery")
	}
}

func TestRedisBroker_OtherInstanceDoesNotReceive(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	b := NewRedis(client, zap.NewNop())
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Delivery, 1)
	if err := b.Subscribe(ctx, "node-c", func(d Delivery) { got <- d }); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := b.Publish(ctx, "node-b", Delivery{ToUser: "bob"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case d := <-got:
		t.Errorf("Expected no delivery for another instance, got %+v", d)
	case <-time.After(200 * time.Millisecond):
	}
}
