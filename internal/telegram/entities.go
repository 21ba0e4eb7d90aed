package telegram

import (
	"context"
	"time"
)

// Ref identifies a channel on Telegram. MTProto needs the access hash next
// to the id, so the pair together is the external reference chats store.
type Ref struct {
	ID         int64
	AccessHash int64
}

// Snapshot is the observed state of one channel, re-read on every
// reconciliation pass and never persisted.
type Snapshot struct {
	Ref             Ref
	Title           string
	Description     string
	InviteLink      string
	Broadcast       bool
	AllReactions    bool
	SlowModeSeconds int
}

type CreateRequest struct {
	Title       string
	Description string
	Broadcast   bool
}

type Created struct {
	Ref        Ref
	InviteLink string
}

// UpdateRequest carries only the fields to change; nil means leave as is.
type UpdateRequest struct {
	Ref             Ref
	Title           *string
	Description     *string
	AllReactions    *bool
	SlowModeSeconds *int
}

// IsEmpty reports whether the request would change nothing.
func (r UpdateRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && r.AllReactions == nil && r.SlowModeSeconds == nil
}

// Message is one inbound group message as delivered by the capture bot.
type Message struct {
	ChatID    int64
	UserID    int64
	Body      string
	CreatedAt time.Time
}

// Platform is the surface of Telegram the sync engine converges against.
type Platform interface {
	// Get returns the channel snapshot, or ErrNotFound if it is gone.
	Get(ctx context.Context, ref Ref) (*Snapshot, error)

	// Create makes a new channel (broadcast) or supergroup.
	Create(ctx context.Context, req CreateRequest) (*Created, error)

	// Update applies a partial update; re-applying current values is a no-op.
	Update(ctx context.Context, req UpdateRequest) error

	// Delete removes the channel; an already-absent channel is success.
	// Flood waits surface as ErrRateLimited.
	Delete(ctx context.Context, ref Ref) error

	// UpdateFolder replaces the membership of the named dialog folder.
	UpdateFolder(ctx context.Context, title string, refs []Ref) error
}
