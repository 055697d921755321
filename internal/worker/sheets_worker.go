// Package worker mirrors confirmed bookings to the spreadsheet in the background.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medbook/internal/domain"
	"medbook/internal/events"
	"medbook/internal/logging"
	"medbook/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var ErrQueueFull = errors.New("sheets queue is full")

type sheetTask struct {
	Booking  *models.Booking `json:"booking"`
	Attempts int             `json:"attempts"`
	LastErr  string          `json:"last_error,omitempty"`
}

// SheetsWorker applies booking rows to the spreadsheet with retries.
// Redis is used as a durable queue when configured; otherwise tasks live in memory.
type SheetsWorker struct {
	sheets        domain.SheetsWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan sheetTask
	redisQueueKey string
	deadLetterKey string
	popTimeout    time.Duration
	logger        zerolog.Logger
	sleep         func(ctx context.Context, d time.Duration) error
}

func NewSheetsWorker(sheets domain.SheetsWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	return &SheetsWorker{
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry.withDefaults(),
		queue:         make(chan sheetTask, models.WorkerQueueSize),
		redisQueueKey: "sheets:queue",
		deadLetterKey: "sheets:deadletter",
		popTimeout:    time.Second,
		logger:        logging.Component(logger, "sheets_worker"),
		sleep:         sleepCtx,
	}
}

// EnqueueBooking schedules a booking row for the spreadsheet.
func (w *SheetsWorker) EnqueueBooking(ctx context.Context, booking *models.Booking) error {
	if booking == nil || booking.ID == 0 {
		return errors.New("booking id is required")
	}
	task := sheetTask{Booking: booking}

	if w.redis != nil {
		if err := w.pushRedis(ctx, w.redisQueueKey, task); err != nil {
			w.logger.Warn().Err(err).Int64("booking_id", booking.ID).Msg("redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// HandleEvent adapts booking_confirmed events to EnqueueBooking.
func (w *SheetsWorker) HandleEvent(event *events.Event) error {
	payload, err := events.DecodeBooking(event)
	if err != nil {
		return fmt.Errorf("decode %s: %w", event.Type, err)
	}
	return w.EnqueueBooking(context.Background(), payload.Booking())
}

// Start consumes tasks until ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("started")
	defer w.logger.Info().Msg("stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.process(ctx, t)
			continue
		}

		if w.redis == nil {
			select {
			case <-ctx.Done():
				return
			case t := <-w.queue:
				w.process(ctx, t)
			}
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.process(ctx, t)
		}
	}
}

func (w *SheetsWorker) tryLocalQueue() (sheetTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return sheetTask{}, false
	}
}

func (w *SheetsWorker) tryRedis(ctx context.Context) (sheetTask, bool) {
	res, err := w.redis.BRPop(ctx, w.popTimeout, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("redis BRPOP error")
			_ = w.sleep(ctx, w.popTimeout)
		}
		return sheetTask{}, false
	}
	if len(res) != 2 {
		return sheetTask{}, false
	}

	var task sheetTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil || task.Booking == nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return sheetTask{}, false
	}
	return task, true
}

// process retries with backoff until the row is written, the policy gives up, or ctx ends.
func (w *SheetsWorker) process(ctx context.Context, task sheetTask) {
	log := w.logger.With().Int64("booking_id", task.Booking.ID).Logger()

	for {
		task.Attempts++
		err := w.sheets.AppendBooking(ctx, task.Booking)
		if err == nil {
			log.Info().Int("attempts", task.Attempts).Msg("booking mirrored")
			return
		}
		task.LastErr = err.Error()

		if task.Attempts >= w.retryPolicy.MaxRetries {
			log.Error().Err(err).Int("attempts", task.Attempts).Msg("giving up on booking")
			w.deadLetter(task)
			return
		}

		delay := w.retryPolicy.NextDelay(task.Attempts)
		log.Warn().Err(err).Int("attempt", task.Attempts).Dur("retry_in", delay).Msg("sheets write failed")
		if w.sleep(ctx, delay) != nil {
			w.requeue(task)
			return
		}
	}
}

// requeue keeps an interrupted task for the next run when redis is available.
func (w *SheetsWorker) requeue(task sheetTask) {
	if w.redis == nil {
		w.logger.Warn().Int64("booking_id", task.Booking.ID).Msg("shutdown interrupted retry, task dropped")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.pushRedis(ctx, w.redisQueueKey, task); err != nil {
		w.logger.Error().Err(err).Int64("booking_id", task.Booking.ID).Msg("requeue failed")
	}
}

func (w *SheetsWorker) deadLetter(task sheetTask) {
	if w.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.pushRedis(ctx, w.deadLetterKey, task); err != nil {
		w.logger.Error().Err(err).Int64("booking_id", task.Booking.ID).Msg("deadletter push failed")
	}
}

func (w *SheetsWorker) pushRedis(ctx context.Context, key string, task sheetTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}
