package mediation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/lootsheet/internal/core/domain"
	"github.com/rl1809/lootsheet/internal/core/service"
	"github.com/rl1809/lootsheet/internal/port"
)

const handleTimeout = 5 * time.Second

// Executor runs the transfers an authority applies on request.
type Executor interface {
	Purchase(ctx context.Context, exec service.ExecutionContext, sellerID, buyerID, itemID string, quantity int) (*service.Receipt, error)
	Loot(ctx context.Context, exec service.ExecutionContext, containerID, looterID, itemID string, quantity int) (*domain.TransferResult, error)
	DropOrSell(ctx context.Context, exec service.ExecutionContext, containerID, giverID, itemID string) (*service.Receipt, error)
}

// HandlerFunc applies one kind of request.
type HandlerFunc func(ctx context.Context, exec service.ExecutionContext, req domain.Request) error

type Outcome struct {
	RequestID string               `json:"requestId"`
	Kind      domain.RequestKind   `json:"kind"`
	Status    domain.RequestStatus `json:"status"`
	Err       error                `json:"-"`
}

// Dispatcher applies the requests addressed to one authority, one at a time.
type Dispatcher struct {
	// mu is held while a request or an Exclusive call mutates state.
	mu          sync.Mutex
	authorityID string
	guard       port.IdempotencyGuard
	notifier    port.Notifier
	settings    service.Settings
	handlers    map[domain.RequestKind]HandlerFunc
	logger      *zap.Logger
}

func NewDispatcher(authorityID string, exec Executor, guard port.IdempotencyGuard, notifier port.Notifier, settings service.Settings, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		authorityID: authorityID,
		guard:       guard,
		notifier:    notifier,
		settings:    settings,
		logger:      logger,
	}
	d.handlers = map[domain.RequestKind]HandlerFunc{
		domain.RequestKindBuy: func(ctx context.Context, ec service.ExecutionContext, req domain.Request) error {
			_, err := exec.Purchase(ctx, ec, req.TargetContainerID, req.ActingActorID, req.ItemID, req.Quantity)
			return err
		},
		domain.RequestKindLoot: func(ctx context.Context, ec service.ExecutionContext, req domain.Request) error {
			_, err := exec.Loot(ctx, ec, req.TargetContainerID, req.ActingActorID, req.ItemID, req.Quantity)
			return err
		},
		domain.RequestKindDrop: func(ctx context.Context, ec service.ExecutionContext, req domain.Request) error {
			_, err := exec.DropOrSell(ctx, ec, req.TargetContainerID, req.ActingActorID, req.ItemID)
			return err
		},
	}
	return d
}

// Handle applies req if it is addressed to this authority and has not been
// seen before.
func (d *Dispatcher) Handle(ctx context.Context, req domain.Request) Outcome {
	out := Outcome{RequestID: req.ID, Kind: req.Kind}

	if req.AuthorityUserID != d.authorityID {
		out.Status = domain.RequestStatusIgnored
		return out
	}

	handler, ok := d.handlers[req.Kind]
	if err := validate(req); err != nil || !ok || req.ID == "" {
		reason := fmt.Sprintf("cannot handle %q request", req.Kind)
		if v, isSvc := err.(*service.Error); isSvc {
			reason = v.Reason
		}
		e := service.NewError(service.ErrInvalidRequest, req.ActingActorID, reason, nil)
		out.Status = domain.RequestStatusRejected
		out.Err = e
		d.notifier.ReportError(ctx, req.ActingActorID, e.Reason)
		return out
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	fresh, err := d.guard.SetIdempotency(ctx, "request:"+req.ID)
	if err != nil {
		out.Status = domain.RequestStatusRejected
		out.Err = fmt.Errorf("idempotency check failed: %w", err)
		d.logger.Error("idempotency check failed", zap.String("request_id", req.ID), zap.Error(err))
		return out
	}
	if !fresh {
		out.Status = domain.RequestStatusRejected
		out.Err = service.NewError(service.ErrDuplicateRequest, req.ActingActorID, "request already handled", nil)
		d.logger.Info("duplicate request dropped", zap.String("request_id", req.ID))
		return out
	}

	exec := service.ExecutionContext{
		CallingUser: req.RequesterUserID,
		Speaker:     req.ActingActorID,
		Settings:    d.settings,
	}
	if err := handler(ctx, exec, req); err != nil {
		out.Status = domain.RequestStatusRejected
		out.Err = err
		var e *service.Error
		if !errors.As(err, &e) {
			// the service only reports its own failures
			d.notifier.ReportError(ctx, req.ActingActorID, "the request could not be applied")
		}
		return out
	}

	out.Status = domain.RequestStatusApplied
	return out
}

// Exclusive runs fn while no request is being applied. Authority-local
// mutations that do not travel through the queue go through here.
func (d *Dispatcher) Exclusive(fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn()
}

// Run applies requests from queue one at a time until the queue closes or
// ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, queue <-chan domain.Request) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-queue:
			if !ok {
				return
			}
			hctx, cancel := context.WithTimeout(ctx, handleTimeout)
			out := d.Handle(hctx, req)
			cancel()

			switch out.Status {
			case domain.RequestStatusApplied:
				d.logger.Info("request applied", zap.String("request_id", out.RequestID), zap.String("kind", string(out.Kind)))
			case domain.RequestStatusRejected:
				d.logger.Warn("request rejected", zap.String("request_id", out.RequestID),
					zap.String("kind", string(out.Kind)), zap.Error(out.Err))
			}
		}
	}
}
