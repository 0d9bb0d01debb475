package domain

import "time"

type RequestKind string

const (
	RequestKindBuy  RequestKind = "buy"
	RequestKindLoot RequestKind = "loot"
	RequestKindDrop RequestKind = "drop"
)

func (k RequestKind) Valid() bool {
	switch k {
	case RequestKindBuy, RequestKindLoot, RequestKindDrop:
		return true
	}
	return false
}

type RequestStatus string

const (
	RequestStatusRequested  RequestStatus = "requested"
	RequestStatusDispatched RequestStatus = "dispatched"
	RequestStatusApplied    RequestStatus = "applied"
	RequestStatusRejected   RequestStatus = "rejected"
	// RequestStatusIgnored marks a message addressed to another authority.
	RequestStatusIgnored RequestStatus = "ignored"
)

// Request asks an authority to run a transfer the requester cannot perform
// itself. For buy and loot the target container is the item source, for drop
// it is the destination. A zero Quantity means the full stack.
type Request struct {
	ID                string      `json:"requestId"`
	Kind              RequestKind `json:"kind"`
	RequesterUserID   string      `json:"requesterUserId"`
	ActingActorID     string      `json:"actingActorId"`
	TargetContainerID string      `json:"targetContainerId"`
	ItemID            string      `json:"itemId"`
	Quantity          int         `json:"quantity,omitempty"`
	AuthorityUserID   string      `json:"authorityUserId"`
	SceneID           string      `json:"sceneId,omitempty"`
}

type Authority struct {
	UserID  string    `json:"userId"`
	SceneID string    `json:"sceneId"`
	SeenAt  time.Time `json:"seenAt"`
}

type ChatEntry struct {
	SpeakerID string    `json:"speakerId"`
	OwnerID   string    `json:"ownerId"`
	Message   string    `json:"message"`
	ItemID    string    `json:"itemId,omitempty"`
	ItemName  string    `json:"itemName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type NoticeLevel string

const (
	NoticeError NoticeLevel = "error"
	NoticeWarn  NoticeLevel = "warn"
	NoticeInfo  NoticeLevel = "info"
)

// Notice is a message addressed to a single party.
type Notice struct {
	Level     NoticeLevel `json:"level"`
	TargetID  string      `json:"targetId"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"createdAt"`
}
