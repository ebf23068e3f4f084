package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

var ErrQueueClosed = errors.New("panel request queue is closed")

type job struct {
	id   string
	name string
	ctx  context.Context
	run  func(ctx context.Context) error
	done chan error
}

// Queue executes panel calls one at a time in FIFO order and waits a fixed
// delay after every completed call.
type Queue struct {
	jobs  chan *job
	delay time.Duration
	log   *zerolog.Logger

	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewQueue(delay time.Duration, log *zerolog.Logger) *Queue {
	l := log.With().Str("component", "panel_queue").Logger()
	q := &Queue{
		jobs:    make(chan *job, 128),
		delay:   delay,
		log:     &l,
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.loop()
	return q
}

// Stop fails every pending job and waits for the in-flight one to finish.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() { close(q.quit) })
	<-q.stopped
}

// Do enqueues fn and blocks until it has run. A job whose context is
// cancelled before it reaches the head of the queue is skipped; once started
// it runs to completion.
func (q *Queue) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	j := &job{
		id:   ulid.Make().String(),
		name: name,
		ctx:  ctx,
		run:  fn,
		done: make(chan error, 1),
	}

	select {
	case <-q.quit:
		return ErrQueueClosed
	default:
	}

	select {
	case q.jobs <- j:
	case <-q.quit:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	q.log.Debug().Str("job_id", j.id).Str("op", name).Int("pending", len(q.jobs)).Msg("job enqueued")

	select {
	case err := <-j.done:
		return err
	case <-q.stopped:
		select {
		case err := <-j.done:
			return err
		default:
			return ErrQueueClosed
		}
	}
}

// Submit is Do for calls that return a value.
func Submit[T any](ctx context.Context, q *Queue, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := q.Do(ctx, name, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (q *Queue) loop() {
	defer close(q.stopped)
	for {
		select {
		case <-q.quit:
			q.drain()
			return
		case j := <-q.jobs:
			q.execute(j)
			if !q.pause() {
				q.drain()
				return
			}
		}
	}
}

func (q *Queue) execute(j *job) {
	if err := j.ctx.Err(); err != nil {
		q.log.Debug().Str("job_id", j.id).Str("op", j.name).Msg("job skipped, caller gone")
		j.done <- err
		return
	}

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panel job %s panicked: %v", j.name, r)
			}
		}()
		return j.run(context.WithoutCancel(j.ctx))
	}()

	ev := q.log.Debug()
	if err != nil {
		ev = q.log.Warn().Err(err)
	}
	ev.Str("job_id", j.id).Str("op", j.name).Dur("took", time.Since(start)).Msg("job finished")
	j.done <- err
}

// pause waits the inter-request delay; false means the queue was stopped.
func (q *Queue) pause() bool {
	if q.delay <= 0 {
		return true
	}
	t := time.NewTimer(q.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-q.quit:
		return false
	}
}

func (q *Queue) drain() {
	for {
		select {
		case j := <-q.jobs:
			j.done <- ErrQueueClosed
		default:
			return
		}
	}
}
