package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/logging"
)

// Dispatcher sends notifications in the background so that request handlers
// never wait on a slow sink. Each send gets its own timeout and is detached
// from the caller's context. Failures are logged and otherwise dropped.
type Dispatcher struct {
	next    Notifier
	log     logging.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(next Notifier, log logging.Logger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{next: next, log: log, timeout: timeout}
}

// SendVerification schedules msg and returns immediately.
func (d *Dispatcher) SendVerification(ctx context.Context, msg VerificationMessage) error {
	// keep request-scoped values for logging, drop its cancellation
	base := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()

		if err := d.next.SendVerification(sendCtx, msg); err != nil {
			d.log.Error(sendCtx, "failed to send verification", "user_id", msg.UserID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until pending sends finish or ctx is done.
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
