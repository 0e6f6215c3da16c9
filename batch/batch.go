// Package batch shares large photo sets as a sequence of confirmed batches.
package batch

import (
	"context"
	"fmt"
	"time"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/urlscheme"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const DefaultSize = 10

// State is a step of the batch state machine.
type State string

const (
	StateIdle                 State = "idle"
	StatePreparingBatch       State = "preparing_batch"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateSharing              State = "sharing"
	StateBatchSucceeded       State = "batch_succeeded"
	StateBatchFailed          State = "batch_failed"
	StateCompleted            State = "completed"
	StatePartiallyCompleted   State = "partially_completed"
	StateCancelled            State = "cancelled"
)

// Transition is reported to the state hook. Batch is zero based and -1 for
// states that do not belong to a batch.
type Transition struct {
	State State
	Batch int
	Total int
}

// Sharer shares one batch as files.
type Sharer interface {
	Share(ctx context.Context, photos []photoshare.ShareablePhoto, limits photoshare.SizeLimits) photoshare.ShareOutcome
}

// Split cuts photos into contiguous groups of size. Every group but the last
// has exactly size photos and the concatenation equals the input.
func Split(photos []photoshare.ShareablePhoto, size int) [][]photoshare.ShareablePhoto {
	if size <= 0 {
		size = DefaultSize
	}
	var groups [][]photoshare.ShareablePhoto
	for start := 0; start < len(photos); start += size {
		end := min(start+size, len(photos))
		groups = append(groups, photos[start:end:end])
	}
	return groups
}

type Option func(*Orchestrator)

func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithNotifier(n photoshare.Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

func WithSize(size int) Option {
	return func(o *Orchestrator) {
		if size > 0 {
			o.size = size
		}
	}
}

// WithFallback shares a batch through links when its file share fails.
func WithFallback(links *urlscheme.Channel) Option {
	return func(o *Orchestrator) {
		o.fallback = links
	}
}

// WithStateHook observes every state transition.
func WithStateHook(hook func(Transition)) Option {
	return func(o *Orchestrator) {
		o.hook = hook
	}
}

// Orchestrator runs batches strictly one after another. Every batch after the
// first waits for the user to confirm.
type Orchestrator struct {
	sharer    Sharer
	confirmer photoshare.Confirmer
	fallback  *urlscheme.Channel
	size      int
	hook      func(Transition)
	logger    *zap.Logger
	notifier  photoshare.Notifier
	tracer    oteltrace.Tracer
}

func New(sharer Sharer, confirmer photoshare.Confirmer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sharer:    sharer,
		confirmer: confirmer,
		size:      DefaultSize,
		logger:    zap.NewNop(),
		notifier:  photoshare.NopNotifier,
		tracer:    otel.Tracer("batch"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) enter(state State, batch, total int) {
	o.logger.Debug("batch state", zap.String("state", string(state)), zap.Int("batch", batch+1), zap.Int("total", total))
	if o.hook != nil {
		o.hook(Transition{State: state, Batch: batch, Total: total})
	}
}

// Run shares photos batch by batch. A batch that fails entirely stops the
// loop. A declined confirmation stops the loop with StatusCancelled and is not
// an error. Photos in batches never attempted are not reported as failed.
// A dismissed share dialog skips its batch; the run then ends cancelled when
// nothing was shared and partial otherwise.
func (o *Orchestrator) Run(ctx context.Context, photos []photoshare.ShareablePhoto, profile photoshare.CapabilityProfile) (photoshare.ShareOutcome, error) {
	ctx, span := o.tracer.Start(ctx, "batched_share")
	defer span.End()

	out := photoshare.NewOutcome(photoshare.MethodBatched)
	batches := Split(photos, o.size)
	total := len(batches)
	span.SetAttributes(attribute.Int("batches.total", total))
	o.enter(StateIdle, -1, total)

	if total == 0 {
		out.Reason = photoshare.ReasonNothingToShare
		return out, nil
	}
	if !profile.SupportsFileShare {
		out.Reason = photoshare.ReasonUnsupported
		return out, photoshare.NewError(photoshare.ErrCapabilityUnavailable, "batched share", "", fmt.Errorf("file sharing not supported"))
	}

	o.notifier.Notify(photoshare.Notification{
		Kind:   photoshare.NotifyPreparing,
		Title:  "Starting batch sharing",
		Detail: fmt.Sprintf("%d photos in %d batches", len(photos), total),
		Time:   time.Now(),
	})

	var dismissed []string
	for i, group := range batches {
		o.enter(StatePreparingBatch, i, total)

		if i > 0 {
			o.enter(StateAwaitingConfirmation, i, total)
			ok, err := o.confirm(ctx, i, total, len(group))
			if err != nil || !ok {
				o.logger.Info("batched sharing cancelled at gate",
					zap.Int("batch", i+1), zap.Int("succeeded", out.SucceededCount), zap.Error(err))
				o.enter(StateCancelled, i, total)
				out.Status = photoshare.StatusCancelled
				if out.SucceededCount > 0 {
					out.AddFailed(dismissed...)
				}
				out.Settle()
				return out, nil
			}
		}

		o.enter(StateSharing, i, total)
		res := o.shareBatch(ctx, group, profile.SizeLimits)

		if res.Status == photoshare.StatusCancelled {
			o.logger.Info("share dialog dismissed", zap.Int("batch", i+1))
			o.enter(StateCancelled, i, total)
			dismissed = append(dismissed, photoshare.IDs(group)...)
			continue
		}
		out.SucceededCount += res.SucceededCount
		out.AddFailed(res.FailedPhotoIDs...)

		if res.SucceededCount == 0 {
			o.enter(StateBatchFailed, i, total)
			o.notifier.Notify(photoshare.Notification{
				Kind:   photoshare.NotifyProgress,
				Title:  fmt.Sprintf("Batch %d failed", i+1),
				Detail: fmt.Sprintf("Unable to share batch %d of %d", i+1, total),
				Reason: res.Reason,
				Time:   time.Now(),
			})
			o.enter(StatePartiallyCompleted, i, total)
			if out.SucceededCount == 0 {
				out.Reason = res.Reason
			} else {
				out.AddFailed(dismissed...)
			}
			out.Settle()
			if out.Status == photoshare.StatusSucceeded {
				out.Status = photoshare.StatusPartial
				out.Reason = photoshare.ReasonPartial
			}
			return out, nil
		}

		o.enter(StateBatchSucceeded, i, total)
		o.notifier.Notify(photoshare.Notification{
			Kind:   photoshare.NotifyProgress,
			Title:  fmt.Sprintf("Batch %d shared!", i+1),
			Detail: fmt.Sprintf("%d photos shared", res.SucceededCount),
			Time:   time.Now(),
		})
	}

	switch {
	case len(dismissed) > 0 && out.SucceededCount == 0:
		out.Status = photoshare.StatusCancelled
	case len(dismissed) > 0:
		out.AddFailed(dismissed...)
		out.Reason = photoshare.ReasonCancelled
	}
	out.Settle()
	if out.Status == photoshare.StatusCancelled {
		o.enter(StateCancelled, -1, total)
	} else if len(out.FailedPhotoIDs) == 0 {
		o.enter(StateCompleted, -1, total)
	} else {
		o.enter(StatePartiallyCompleted, -1, total)
	}
	span.SetAttributes(attribute.Int("photos.succeeded", out.SucceededCount))
	return out, nil
}

func (o *Orchestrator) shareBatch(ctx context.Context, group []photoshare.ShareablePhoto, limits photoshare.SizeLimits) photoshare.ShareOutcome {
	res := o.sharer.Share(ctx, group, limits)
	if res.SucceededCount > 0 || res.Status == photoshare.StatusCancelled || o.fallback == nil {
		return res
	}
	o.logger.Info("file share failed for batch, trying links", zap.String("reason", string(res.Reason)))
	return o.fallback.ShareEach(ctx, group, "")
}

func (o *Orchestrator) confirm(ctx context.Context, i, total, size int) (bool, error) {
	if o.confirmer == nil {
		return false, fmt.Errorf("no confirmer configured")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	type answer struct {
		ok  bool
		err error
	}
	done := make(chan answer, 1)
	go func() {
		ok, err := o.confirmer.Confirm(ctx, photoshare.Prompt{
			Title:        fmt.Sprintf("Ready for Batch %d", i+1),
			Message:      fmt.Sprintf("Sharing batch %d of %d (%d photos)", i+1, total, size),
			Batch:        i + 1,
			TotalBatches: total,
			BatchSize:    size,
		})
		done <- answer{ok, err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-done:
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return a.ok, a.err
	}
}
