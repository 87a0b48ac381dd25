package business

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	log "github.com/sirupsen/logrus"
)

// WithRetry runs op until it stops failing with Conflict or attempts run out.
// Every other failure is returned immediately.
func WithRetry[T any](ctx context.Context, attempts uint, op func() (T, error)) (T, error) {
	if attempts == 0 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond

	try := 0
	return backoff.Retry(ctx, func() (T, error) {
		try++
		v, err := op()
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrConflict) {
			return v, backoff.Permanent(err)
		}
		log.WithFields(log.Fields{
			"attempt":  try,
			"attempts": attempts,
		}).Warnf("Ledger conflict, retrying: %v", err)
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(attempts))
}
