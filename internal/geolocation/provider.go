// Package geolocation provides best-effort location fixes for check-ins.
package geolocation

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/models"
)

// ErrUnavailable means no fix could be obtained. It is never fatal to a
// submission.
var ErrUnavailable = errors.New("location unavailable")

// Provider returns the current location of the submitting device.
type Provider interface {
	Locate(ctx context.Context) (models.Fix, error)
}

// Static always returns the same fix.
type Static struct {
	Fix models.Fix
}

func (s Static) Locate(ctx context.Context) (models.Fix, error) {
	if err := ctx.Err(); err != nil {
		return models.Fix{}, err
	}
	return s.Fix, nil
}

// Unavailable never has a fix.
type Unavailable struct{}

func (Unavailable) Locate(context.Context) (models.Fix, error) {
	return models.Fix{}, ErrUnavailable
}

// Func adapts a function to Provider.
type Func func(ctx context.Context) (models.Fix, error)

func (f Func) Locate(ctx context.Context) (models.Fix, error) {
	return f(ctx)
}

// Acquire asks p for a fix within timeout. It returns nil when no fix arrives
// in time or the provider fails; the caller's own cancellation is reported as
// an error so an abandoned attempt can stop.
func Acquire(ctx context.Context, p Provider, timeout time.Duration) (*models.Fix, error) {
	if p == nil {
		return nil, nil
	}
	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		fix models.Fix
		err error
	}
	ch := make(chan result, 1)
	go func() {
		fix, err := p.Locate(lctx)
		ch <- result{fix, err}
	}()

	select {
	case r := <-ch:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if r.err != nil {
			return nil, nil
		}
		return &r.fix, nil
	case <-lctx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
}
