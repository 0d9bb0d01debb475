package mediation

import (
	"context"

	"github.com/rl1809/lootsheet/internal/core/service"
)

// ContainerService covers the authority-local container operations.
type ContainerService interface {
	Sheet(ctx context.Context, partyID string, isAuthority bool) (*service.SheetView, error)
	ConvertLoot(ctx context.Context, exec service.ExecutionContext, containerID string) (*service.ConversionResult, error)
	DistributeCoins(ctx context.Context, exec service.ExecutionContext, containerID string) ([]service.Share, error)
}

// Containers runs container operations on the dispatcher's turn, so they
// never overlap a request being applied.
type Containers struct {
	svc        ContainerService
	dispatcher *Dispatcher
}

func NewContainers(svc ContainerService, dispatcher *Dispatcher) *Containers {
	return &Containers{svc: svc, dispatcher: dispatcher}
}

func (c *Containers) Sheet(ctx context.Context, partyID string, isAuthority bool) (*service.SheetView, error) {
	return c.svc.Sheet(ctx, partyID, isAuthority)
}

func (c *Containers) ConvertLoot(ctx context.Context, exec service.ExecutionContext, containerID string) (*service.ConversionResult, error) {
	var res *service.ConversionResult
	err := c.dispatcher.Exclusive(func() error {
		var err error
		res, err = c.svc.ConvertLoot(ctx, exec, containerID)
		return err
	})
	return res, err
}

func (c *Containers) DistributeCoins(ctx context.Context, exec service.ExecutionContext, containerID string) ([]service.Share, error) {
	var shares []service.Share
	err := c.dispatcher.Exclusive(func() error {
		var err error
		shares, err = c.svc.DistributeCoins(ctx, exec, containerID)
		return err
	})
	return shares, err
}
