package services

import (
	"context"
	"time"

	"github.com/odookit/commentsync/internal/store"
)

// Model names of the records the engine touches.
const (
	ThreadModel     = "mail.activity.thread"
	MessageModel    = "mail.message"
	AttachmentModel = "ir.attachment"
)

// EntityType distinguishes the two kinds of host entities a thread can
// attach to.
type EntityType string

const (
	// EntityActivity is a pending task card.
	EntityActivity EntityType = "activity"
	// EntityMessage is the posted record of a completed task.
	EntityMessage EntityType = "message"
)

// HostEntity references the activity or posted message a comment thread
// belongs to. It is owned by the host UI; the engine only reads it.
type HostEntity struct {
	ID       int64
	Type     EntityType
	ResModel string
	// ResID is the target business record id as the host delivers it:
	// a number, a numeric string, or an [id, label] pair.
	ResID    any
	BodyText string
}

// Author is the resolved sender of a comment.
type Author struct {
	ID        int64
	Name      string
	AvatarURL string
}

// Comment is a normalized, display-ready projection of a persisted message.
type Comment struct {
	ID          int64
	RawBody     string
	Author      Author
	CreatedAt   time.Time
	DateLabel   string
	Attachments []store.Attachment
	Editable    bool
}

// ThreadService maps host entities to their unique backing threads.
type ThreadService interface {
	ResolveThread(ctx context.Context, entity HostEntity) (*store.Thread, error)
	MarkActivityDone(ctx context.Context, threadID, doneMessageID int64) (bool, error)
	TransferThreadToActivity(ctx context.Context, doneMessageID, activityID int64) (bool, error)
}

// AttachmentService batch-resolves attachment ids to downloadable metadata.
type AttachmentService interface {
	ResolveAttachments(ctx context.Context, ids []int64) (map[int64]store.Attachment, error)
	DownloadURL(id int64, accessToken string) string
}

// SyncService owns the authoritative comment list per surface and refreshes
// it from network or push events. All trigger paths converge on Refresh.
type SyncService interface {
	NewSurface(entity HostEntity) *Surface
	DisposeSurface(surf *Surface)
	Initialize(ctx context.Context, surf *Surface) error
	Refresh(ctx context.Context, surf *Surface) ([]Comment, error)

	CanPost(surf *Surface, body string) bool
	PostComment(ctx context.Context, surf *Surface, body string) error
	Edit(surf *Surface, commentID int64)
	SaveEdit(ctx context.Context, surf *Surface, commentID int64, newBody string) error
	CancelEdit(surf *Surface)
	DeleteComment(ctx context.Context, surf *Surface, commentID int64) error
	CopyShareableLink(surf *Surface, commentID int64) (string, error)
	RemoveAttachment(ctx context.Context, surf *Surface, attachmentID int64) error
}

// VisibilityService coordinates per-surface show/hide and count state.
type VisibilityService interface {
	Toggle(surf *Surface)
	ToggleLabel(surf *Surface) string
	RecomputeCount(surf *Surface) int
}

// HandoffService passes "open this thread" intent across a full navigation.
type HandoffService interface {
	Signal(ctx context.Context, sig HandoffSignal) error
	SignalFromThread(ctx context.Context, threadID int64) error
	Consume(ctx context.Context, entity HostEntity) (bool, error)
}

// HandoffSignal is the single-slot pending record written before a
// navigation and consumed by the next surface that matches it.
type HandoffSignal struct {
	ThreadModel           string `json:"threadModel"`
	ThreadID              int64  `json:"threadId,omitempty"`
	ActivityID            int64  `json:"activityId,omitempty"`
	ActivityDoneMessageID int64  `json:"activityDoneMessageId,omitempty"`
}
