// Package tasks schedules and runs background work on asynq.  A delayed
// task expires each unpaid reservation hold once its TTL has passed, so
// the held unit returns to inventory even if no other reservation
// touches the room.  A periodic sweep catches holds whose task was lost.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/iliyamo/resort-booking/internal/config"
)

const (
	TypeHoldExpire = "booking:hold-expire"
	TypeHoldSweep  = "booking:hold-sweep"
)

// HoldExpirePayload identifies the booking whose hold should lapse.
type HoldExpirePayload struct {
	BookingID uint64 `json:"booking_id"`
}

// NewHoldExpireTask builds the task and its options.  The task id is
// derived from the booking so scheduling twice is a no-op.
func NewHoldExpireTask(bookingID uint64, at time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(HoldExpirePayload{BookingID: bookingID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeHoldExpire, b)
	opts := []asynq.Option{
		asynq.ProcessAt(at),
		asynq.MaxRetry(5),
		asynq.TaskID(fmt.Sprintf("hold-expire:%d", bookingID)),
	}
	return task, opts, nil
}

// RedisOpt converts the Redis settings into asynq connection options.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	o := cfg.Options()
	return asynq.RedisClientOpt{Addr: o.Addr, Password: o.Password, DB: o.DB, TLSConfig: o.TLSConfig}
}

// Scheduler enqueues hold-expiry tasks.
type Scheduler struct {
	client *asynq.Client
}

// NewScheduler returns a Scheduler using the given connection options.
func NewScheduler(opt asynq.RedisConnOpt) *Scheduler {
	return &Scheduler{client: asynq.NewClient(opt)}
}

// ScheduleHoldExpiry enqueues the expiry of bookingID at the given time.
func (s *Scheduler) ScheduleHoldExpiry(ctx context.Context, bookingID uint64, at time.Time) error {
	task, opts, err := NewHoldExpireTask(bookingID, at)
	if err != nil {
		return err
	}
	if _, err := s.client.EnqueueContext(ctx, task, opts...); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueue %s: %w", TypeHoldExpire, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (s *Scheduler) Close() error { return s.client.Close() }

// HoldExpirer is implemented by the booking service.
type HoldExpirer interface {
	ExpireHold(ctx context.Context, bookingID uint64) (bool, error)
}

// NewHoldExpireHandler returns the asynq handler for TypeHoldExpire.  A
// payload that cannot be decoded is not retried.
func NewHoldExpireHandler(svc HoldExpirer, log *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p HoldExpirePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil || p.BookingID == 0 {
			log.Warn("invalid hold-expire payload", zap.ByteString("payload", t.Payload()), zap.Error(err))
			return fmt.Errorf("invalid %s payload: %w", TypeHoldExpire, asynq.SkipRetry)
		}
		expired, err := svc.ExpireHold(ctx, p.BookingID)
		if err != nil {
			return err
		}
		log.Debug("hold expiry processed", zap.Uint64("booking_id", p.BookingID), zap.Bool("cancelled", expired))
		return nil
	}
}

// HoldSweeper cancels every lapsed hold at once.
type HoldSweeper interface {
	SweepHolds(ctx context.Context) (int64, error)
}

// NewHoldSweepHandler returns the asynq handler for TypeHoldSweep.
func NewHoldSweepHandler(svc HoldSweeper, log *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := svc.SweepHolds(ctx)
		if err != nil {
			return err
		}
		log.Debug("hold sweep done", zap.Int64("cancelled", n))
		return nil
	}
}

// NewPeriodicScheduler registers the hold sweep under cronspec, e.g.
// "@every 1m".  The sweep is unique for one minute so overlapping
// instances do not pile up duplicates.
func NewPeriodicScheduler(opt asynq.RedisConnOpt, cronspec string, log *zap.Logger) (*asynq.Scheduler, error) {
	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Logger: log.Sugar(), Location: time.UTC})
	if _, err := s.Register(cronspec, asynq.NewTask(TypeHoldSweep, nil), asynq.MaxRetry(0), asynq.Unique(time.Minute)); err != nil {
		return nil, fmt.Errorf("register %s: %w", TypeHoldSweep, err)
	}
	return s, nil
}

// HoldService is everything the worker needs from the booking service.
type HoldService interface {
	HoldExpirer
	HoldSweeper
}

// NewServer builds the asynq worker server with a mux that routes both
// hold tasks to svc.
func NewServer(opt asynq.RedisConnOpt, svc HoldService, log *zap.Logger) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{"default": 1},
		Logger:      log.Sugar(),
	})
	mux := asynq.NewServeMux()
	mux.Handle(TypeHoldExpire, NewHoldExpireHandler(svc, log))
	mux.Handle(TypeHoldSweep, NewHoldSweepHandler(svc, log))
	return srv, mux
}
