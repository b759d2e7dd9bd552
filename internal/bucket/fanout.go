package bucket

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Lookup is the per-key outcome of GetAll.
type Lookup[T any] struct {
	Key   string
	Value T
	Found bool
	Err   error
}

// GetAll loads keys concurrently and returns one Lookup per key in input order.
//
// A failed key is reported on its own Lookup and does not abandon the batch. The
// returned error is non-nil only when ctx ends before every lookup has run.
func GetAll[T any](ctx context.Context, tb *ThrowableBucket, keys []string) ([]Lookup[T], error) {
	lookups := make([]Lookup[T], len(keys))
	group := new(errgroup.Group)
	group.SetLimit(tb.fanoutLimit)
	for index, key := range keys {
		lookups[index].Key = key
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				lookups[index].Err = err
				return nil
			}
			var value T
			found, err := tb.GetInto(ctx, key, &value)
			lookups[index] = Lookup[T]{Key: key, Value: value, Found: found && err == nil, Err: err}
			return nil
		})
	}
	_ = group.Wait()
	if err := ctx.Err(); err != nil {
		return lookups, err
	}
	return lookups, nil
}

// FirstError returns the first lookup error in input order.
func FirstError[T any](lookups []Lookup[T]) error {
	for _, lookup := range lookups {
		if lookup.Err != nil {
			return lookup.Err
		}
	}
	return nil
}

// Step is one independent key write in a parallel batch.
type Step struct {
	Key string
	Run func(ctx context.Context) error
}

// Parallel runs every step concurrently and waits for all of them.
//
// Steps that succeed are never undone when a sibling fails. The returned keys are the
// steps that completed, in step order. A single failure is returned unchanged; several
// are joined, so callers can still match a *StoreError with errors.As.
func (t *ThrowableBucket) Parallel(ctx context.Context, steps ...Step) ([]string, error) {
	failures := make([]error, len(steps))
	group := new(errgroup.Group)
	group.SetLimit(t.fanoutLimit)
	for index, step := range steps {
		group.Go(func() error {
			failures[index] = step.Run(ctx)
			return nil
		})
	}
	_ = group.Wait()

	applied := make([]string, 0, len(steps))
	failed := make([]error, 0, len(steps))
	for index, step := range steps {
		if failures[index] == nil {
			applied = append(applied, step.Key)
			continue
		}
		failed = append(failed, failures[index])
	}
	switch len(failed) {
	case 0:
		return applied, nil
	case 1:
		return applied, failed[0]
	default:
		return applied, errors.Join(failed...)
	}
}
