package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nikhil/eaven-routing/internal/logger"
)

// Publisher pushes one event onto a named realtime channel. Delivery is
// fire-and-forget: no acknowledgement from subscribers is awaited.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}

// Envelope is the wire form of every realtime event
type Envelope struct {
	ID      string    `json:"id"`
	Channel string    `json:"channel"`
	Event   string    `json:"event"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload"`
}

// stamper fills envelope metadata; tests replace its functions for stable output
type stamper struct {
	newID func() string
	now   func() time.Time
}

func defaultStamper() stamper {
	return stamper{
		newID: func() string { return uuid.NewString() },
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s stamper) encode(channel, event string, payload any) (Envelope, []byte, error) {
	env := Envelope{
		ID:      s.newID(),
		Channel: channel,
		Event:   event,
		Time:    s.now(),
		Payload: payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, nil, fmt.Errorf("marshal %s event: %w", event, err)
	}
	return env, body, nil
}

// Sink is a named publisher inside a Fanout
type Sink struct {
	Name string
	Publisher
}

// Fanout publishes each event to every sink. A failing sink does not stop
// the rest; all failures are returned joined.
type Fanout struct {
	sinks []Sink
	log   *logger.Logger
}

func NewFanout(log *logger.Logger, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, log: log}
}

func (f *Fanout) Publish(ctx context.Context, channel, event string, payload any) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, channel, event, payload); err != nil {
			f.log.Warn("Realtime sink failed", "sink", sink.Name, "channel", channel, "event", event, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name, err))
		}
	}
	return errors.Join(errs...)
}
