// Package notify delivers best-effort e-mail notices. Delivery failures are
// logged and never reported to the code that triggered them.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Message struct {
	To      []string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher runs sends in the background with a per-message timeout.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	log     zerolog.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, timeout time.Duration, log zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{sender: sender, timeout: timeout, log: log.With().Str("component", "notify").Logger()}
}

// Dispatch returns immediately. kind labels the notice in logs.
func (d *Dispatcher) Dispatch(kind string, msg Message) {
	if len(msg.To) == 0 {
		d.log.Debug().Str("kind", kind).Msg("no recipients, notice dropped")
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sender.Send(ctx, msg); err != nil {
			d.log.Error().Err(err).Str("kind", kind).Strs("to", msg.To).Msg("notification failed")
			return
		}
		d.log.Info().Str("kind", kind).Int("recipients", len(msg.To)).Msg("notification sent")
	}()
}

// Wait blocks until in-flight sends finish. Called on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
