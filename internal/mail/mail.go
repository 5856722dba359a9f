// Package mail renders and delivers notification emails.
package mail

import (
	"context"
	"errors"
	"sync"
	"time"

	"confhub/internal/logging"
)

// Message is one outgoing HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a message. Implementations honour ctx cancellation.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

var ErrNoRecipient = errors.New("mail: message has no recipient")

// Dispatcher sends messages in the background, each bounded by a timeout.
// Failures are logged, never returned to the caller.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	log     logging.Logger
	wg      sync.WaitGroup
}

// NewDispatcher bounds each send by timeout.
func NewDispatcher(sender Sender, timeout time.Duration, log logging.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, timeout: timeout, log: log}
}

// Dispatch starts delivering msg and returns immediately. The send keeps
// ctx's values but not its cancellation.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := d.send(ctx, msg); err != nil {
			d.log.Error(ctx, "failed to send email", "to", msg.To, "subject", msg.Subject, "error", err)
			return
		}
		d.log.Info(ctx, "email sent", "to", msg.To, "subject", msg.Subject)
	}()
}

func (d *Dispatcher) send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	return d.sender.Send(ctx, msg)
}

// Wait blocks until in-flight sends finish or ctx ends.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
