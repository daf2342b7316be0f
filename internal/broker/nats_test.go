package broker

import (
	"context"
	"testing"
	"time"

	"github.com/mossy-p/social-signaling/internal/models"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

func runNATSServer(t *testing.T) *server.Server {
	t.Helper()
	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	if err != nil {
		t.Fatalf("Failed to create NATS server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(ns.Shutdown)
	return ns
}

func newNATSBroker(t *testing.T, ns *server.Server) *NATS {
	t.Helper()
	nc, err := nats.Connect(ns.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to NATS: %v", err)
	}
	b := NewNATS(nc, zap.NewNop())
	t.Cleanup(func() { b.Close() })
	return b
}

func TestNATSBroker_PublishReachesSubscriber(t *testing.T) {
	ns := runNATSServer(t)
	sub, pub := newNATSBroker(t, ns), newNATSBroker(t, ns)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Delivery, 1)
	if err := sub.Subscribe(ctx, "node-b", func(d Delivery) { got <- d }); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	sent := Delivery{
		Origin: "node-a",
		ToUser: "bob",
		ConnID: "h2",
		Envelope: models.Envelope{
			Event: models.EventICECandidate,
			Data:  map[string]any{"from": "alice", "candidate": "c1"},
		},
	}
	if err := pub.Publish(ctx, "node-b", sent); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case d := <-got:
		if d.Origin != "node-a" || d.ToUser != "bob" || d.Envelope.Event != models.EventICECandidate {
			t.Errorf("Unexpected delivery: %+v", d)
		}
		data, ok := d.Envelope.Data.(map[string]any)
		if !ok || data["candidate"] != "c1" {
			t.Errorf("Expected payload to survive the hop, got %#v", d.Envelope.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for delivery")
	}
}

func TestNATSBroker_OtherInstanceDoesNotReceive(t *testing.T) {
	ns := runNATSServer(t)
	b := newNATSBroker(t, ns)

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

func TestNATSBroker_UnsubscribesOnCancel(t *testing.T) {
	ns := runNATSServer(t)
	b := newNATSBroker(t, ns)
	base := ns.NumSubscriptions()

	ctx, cancel := context.WithCancel(context.Background())
	if err := b.Subscribe(ctx, "node-b", func(Delivery) {}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if n := ns.NumSubscriptions(); n != base+1 {
		t.Fatalf("Expected %d subscriptions after Subscribe, got %d", base+1, n)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for ns.NumSubscriptions() != base && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := ns.NumSubscriptions(); n != base {
		t.Errorf("Expected subscription removed after cancel, got %d (base %d)", n, base)
	}
}
