// Copyright (c) Microsoft. All rights reserved.

package gptclient

import (
	"context"
	"sync"
)

// Stream is a pull-based iterator over values delivered incrementally
// by a producer goroutine. It is lazy, forward-only, and not
// restartable: each value is observed at most once, in production
// order, and exactly one terminal signal follows the last value —
// either normal exhaustion or a single terminal error.
//
// Callers must call Close when done, even after an early exit, so the
// producer and any resource it holds (typically an HTTP response body)
// are released promptly.
type Stream[T any] struct {
	ch        <-chan T
	errCh     <-chan error
	cancel    context.CancelFunc
	closeOnce sync.Once
	err       error
}

// NewStream runs produce in a goroutine and returns a [Stream] over the
// values it sends. The channel is closed when produce returns; a
// non-nil return value becomes the stream's terminal error. The context
// passed to produce is cancelled by [Stream.Close].
func NewStream[T any](ctx context.Context, produce func(ctx context.Context, ch chan<- T) error) *Stream[T] {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan T, 1) // one-item buffer keeps the producer a step ahead
	errCh := make(chan error, 1)

	go func() {
		defer close(ch)
		if err := produce(ctx, ch); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	return &Stream[T]{
		ch:     ch,
		errCh:  errCh,
		cancel: cancel,
	}
}

// Next returns the next value. ok is false when the stream is
// exhausted; err is the terminal error, if any. After Next reports the
// terminal signal it keeps reporting it — no values follow.
func (s *Stream[T]) Next(ctx context.Context) (val T, ok bool, err error) {
	var zero T
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case v, open := <-s.ch:
		if !open {
			// Producer finished — latch its error, if it reported one.
			select {
			case e, got := <-s.errCh:
				if got {
					s.err = e
				}
			default:
			}
			return zero, false, s.err
		}
		return v, true, nil
	}
}

// Collect drains the stream and returns every remaining value. On a
// terminal error the values received before it are returned alongside
// the error.
func (s *Stream[T]) Collect(ctx context.Context) ([]T, error) {
	var vals []T
	for {
		v, ok, err := s.Next(ctx)
		if err != nil {
			return vals, err
		}
		if !ok {
			return vals, nil
		}
		vals = append(vals, v)
	}
}

// Err returns the terminal error observed so far, or nil. It is only
// meaningful after [Stream.Next] has reported the end of the stream.
func (s *Stream[T]) Err() error { return s.err }

// Close cancels the producer and releases its resources. Safe to call
// multiple times and concurrently with Next.
func (s *Stream[T]) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		// Unblock the producer if it is mid-send.
		for range s.ch {
		}
		select {
		case e, got := <-s.errCh:
			if got && s.err == nil {
				s.err = e
			}
		default:
		}
	})
	return nil
}
