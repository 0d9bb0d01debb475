// Package mediation carries transfer requests from players to the authority
// that is allowed to apply them.
package mediation

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/lootsheet/internal/core/domain"
	"github.com/rl1809/lootsheet/internal/core/service"
	"github.com/rl1809/lootsheet/internal/port"
)

type Requester struct {
	presence  port.Presence
	transport port.Transport
	logger    *zap.Logger
	newID     func() string
}

func NewRequester(presence port.Presence, transport port.Transport, logger *zap.Logger) *Requester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Requester{
		presence:  presence,
		transport: transport,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// Submit addresses req to an active authority and publishes it. The returned
// request carries the assigned id and authority. When nobody can take the
// request it fails with ErrNoActiveAuthority and nothing is published.
func (r *Requester) Submit(ctx context.Context, req domain.Request) (domain.Request, error) {
	if err := validate(req); err != nil {
		return req, err
	}

	authorities, err := r.presence.ActiveAuthorities(ctx)
	if err != nil {
		return req, fmt.Errorf("list authorities: %w", err)
	}
	authority, ok := pickAuthority(authorities, req.SceneID)
	if !ok {
		r.logger.Warn("no authority available",
			zap.String("requester", req.RequesterUserID), zap.String("scene", req.SceneID))
		return req, service.NewError(service.ErrNoActiveAuthority, req.ActingActorID,
			"no authority is available to handle the request", nil)
	}

	if req.ID == "" {
		req.ID = r.newID()
	}
	req.AuthorityUserID = authority.UserID
	if err := r.transport.Publish(ctx, req); err != nil {
		return req, fmt.Errorf("publish request %s: %w", req.ID, err)
	}

	r.logger.Debug("request dispatched",
		zap.String("request_id", req.ID),
		zap.String("kind", string(req.Kind)),
		zap.String("authority", req.AuthorityUserID),
	)
	return req, nil
}

func validate(req domain.Request) error {
	var reason string
	switch {
	case !req.Kind.Valid():
		reason = fmt.Sprintf("unknown request kind %q", req.Kind)
	case req.RequesterUserID == "":
		reason = "requester is required"
	case req.ActingActorID == "":
		reason = "acting actor is required"
	case req.TargetContainerID == "":
		reason = "target container is required"
	case req.ItemID == "":
		reason = "item is required"
	case req.Quantity < 0:
		reason = "quantity must not be negative"
	default:
		return nil
	}
	return service.NewError(service.ErrInvalidRequest, req.ActingActorID, reason, nil)
}

// pickAuthority returns the authority with the lowest user id among those in
// sceneID. An authority without a scene serves every scene; a request without
// a scene can go to anyone.
func pickAuthority(authorities []domain.Authority, sceneID string) (domain.Authority, bool) {
	var candidates []domain.Authority
	for _, a := range authorities {
		if sceneID == "" || a.SceneID == "" || a.SceneID == sceneID {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return domain.Authority{}, false
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].UserID < candidates[j].UserID })
	return candidates[0], true
}
