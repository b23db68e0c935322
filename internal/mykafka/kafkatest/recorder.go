// Package kafkatest provides an in-memory mykafka.Publisher for tests.
package kafkatest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Skotchmaster/shop_orders/internal/mykafka"
)

type Message struct {
	Topic    string
	Key      string
	Envelope mykafka.Envelope
}

type Recorder struct {
	mu   sync.Mutex
	msgs []Message

	// Err, when set, is returned by every publish.
	Err error
}

func (r *Recorder) PublishEvent(_ context.Context, topic, key string, event any) error {
	if r.Err != nil {
		return r.Err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	var env mykafka.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, Message{Topic: topic, Key: key, Envelope: env})
	return nil
}

func (r *Recorder) Messages(topic string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Message
	for _, m := range r.msgs {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}
