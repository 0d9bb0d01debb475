package port

import (
	"context"

	"github.com/rl1809/lootsheet/internal/core/domain"
)

type IdempotencyGuard interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)
}

type Presence interface {
	// ActiveAuthorities lists authorities that announced themselves recently.
	ActiveAuthorities(ctx context.Context) ([]domain.Authority, error)
}

type Transport interface {
	// Publish hands a request to the authority named in it. Delivery is
	// fire-and-forget.
	Publish(ctx context.Context, req domain.Request) error
}

type Notifier interface {
	// ReportError tells one party why its request failed.
	ReportError(ctx context.Context, targetPartyID, message string)
	// ReportWarning surfaces a recoverable problem such as a missing item.
	ReportWarning(ctx context.Context, targetPartyID, message string)
	// ReportInfo records a chat entry about a completed transfer.
	ReportInfo(ctx context.Context, entry domain.ChatEntry)
}
