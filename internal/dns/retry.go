package dns

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"
)

// DefaultBackoff is used by WithRetry when no backoff is given.
var DefaultBackoff = wait.Backoff{
	Steps:    4,
	Duration: 500 * time.Millisecond,
	Factor:   2.0,
	Jitter:   0.1,
}

type retrying struct {
	Provider
	backoff wait.Backoff
}

// WithRetry wraps p so that list and delete calls failing with a
// *TransportError are retried with backoff. Creates are passed through
// unchanged since a lost response may still have created the record.
func WithRetry(p Provider, backoff wait.Backoff) Provider {
	return &retrying{Provider: p, backoff: backoff}
}

func (r *retrying) ListZones(ctx context.Context) ([]Zone, error) {
	var zones []Zone
	err := retry.OnError(r.backoff, retriable(ctx), func() error {
		var err error
		zones, err = r.Provider.ListZones(ctx)
		return err
	})
	return zones, err
}

func (r *retrying) ListRecords(ctx context.Context, zoneID string) ([]Record, error) {
	var records []Record
	err := retry.OnError(r.backoff, retriable(ctx), func() error {
		var err error
		records, err = r.Provider.ListRecords(ctx, zoneID)
		return err
	})
	return records, err
}

func (r *retrying) DeleteRecord(ctx context.Context, zoneID, recordID string) error {
	return retry.OnError(r.backoff, retriable(ctx), func() error {
		return r.Provider.DeleteRecord(ctx, zoneID, recordID)
	})
}

func retriable(ctx context.Context) func(error) bool {
	return func(err error) bool {
		return ctx.Err() == nil && IsTransportError(err)
	}
}
