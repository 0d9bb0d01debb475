// Package notify delivers the notices and chat entries produced by transfers.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/lootsheet/internal/core/domain"
)

// NoticeSink receives notices addressed to parties.
type NoticeSink interface {
	Send(n domain.Notice)
}

// ChatSink records chat entries.
type ChatSink interface {
	Write(entry domain.ChatEntry) error
}

// Notifier fans notices out to a NoticeSink and chat entries to a ChatSink.
// Either sink may be nil.
type Notifier struct {
	notices NoticeSink
	chat    ChatSink
	logger  *zap.Logger
	now     func() time.Time
}

func NewNotifier(notices NoticeSink, chat ChatSink, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{notices: notices, chat: chat, logger: logger, now: time.Now}
}

func (n *Notifier) ReportError(ctx context.Context, targetPartyID, message string) {
	n.send(domain.NoticeError, targetPartyID, message)
}

func (n *Notifier) ReportWarning(ctx context.Context, targetPartyID, message string) {
	n.send(domain.NoticeWarn, targetPartyID, message)
}

func (n *Notifier) ReportInfo(ctx context.Context, entry domain.ChatEntry) {
	if n.chat != nil {
		if err := n.chat.Write(entry); err != nil {
			n.logger.Error("chat log write failed", zap.Error(err))
		}
	}
	n.send(domain.NoticeInfo, "", entry.Message)
}

func (n *Notifier) send(level domain.NoticeLevel, target, message string) {
	n.logger.Debug("notice", zap.String("level", string(level)), zap.String("target", target), zap.String("message", message))
	if n.notices == nil {
		return
	}
	n.notices.Send(domain.Notice{Level: level, TargetID: target, Message: message, CreatedAt: n.now()})
}
