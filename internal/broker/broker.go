// Package broker carries relayed frames between instances when presence is
// shared. Each instance listens on a channel named after its instance id.
package broker

import (
	"context"
	"encoding/json"

	"github.com/mossy-p/social-signaling/internal/models"
	"github.com/pkg/errors"
)

// Delivery is a frame addressed to a user connected to another instance.
type Delivery struct {
	Origin   string          `json:"origin"`
	ToUser   string          `json:"toUser"`
	ConnID   string          `json:"connId"`
	Envelope models.Envelope `json:"envelope"`
}

type Handler func(Delivery)

type Broker interface {
	Publish(ctx context.Context, instance string, d Delivery) error
	// Subscribe starts delivering frames for instance to h and returns once
	// the subscription is live. Delivery stops when ctx is done or Close is
	// called.
	Subscribe(ctx context.Context, instance string, h Handler) error
	Close() error
}

func encode(d Delivery) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, errors.Wrap(err, "encode delivery")
	}
	return data, nil
}

func decode(data []byte) (Delivery, error) {
	var d Delivery
	if err := json.Unmarshal(data, &d); err != nil {
		return Delivery{}, errors.Wrap(err, "decode delivery")
	}
	return d, nil
}
