package services

import (
	"sync"

	"github.com/google/uuid"
	"github.com/odookit/commentsync/internal/store"
)

// SurfaceState is the synchronization state of one UI surface.
type SurfaceState int

const (
	SurfaceUninitialized SurfaceState = iota
	SurfaceResolving
	SurfaceSynchronized
	SurfaceSynchronizing
)

func (s SurfaceState) String() string {
	switch s {
	case SurfaceUninitialized:
		return "uninitialized"
	case SurfaceResolving:
		return "resolving"
	case SurfaceSynchronized:
		return "synchronized"
	case SurfaceSynchronizing:
		return "synchronizing"
	default:
		return "unknown"
	}
}

// Surface is one UI instantiation of the comment panel: one activity card
// or one message bubble. It owns its visibility state and the comment list
// derived for it; the message data itself lives in the shared store.
type Surface struct {
	id     string
	entity HostEntity

	mu       sync.Mutex
	state    SurfaceState
	thread   *store.Thread
	comments []Comment
	disposed bool

	// fetch sequencing: the most recently started fetch wins
	fetchSeq   uint64
	appliedSeq uint64

	// visibility state
	showComments bool
	commentCount int
	editingID    int64

	// composer state
	draft   string
	pending []store.Attachment

	// bus subscriptions held while the surface is live
	busSub    string
	postedSub string

	// render hooks supplied by the host surface; nil is valid
	scrollToBottom func()
	scrollIntoView func()
}

func newSurface(entity HostEntity) *Surface {
	return &Surface{
		id:     uuid.NewString(),
		entity: entity,
	}
}

// ID returns the surface instance id.
func (s *Surface) ID() string { return s.id }

// Entity returns the host entity this surface is attached to.
func (s *Surface) Entity() HostEntity { return s.entity }

// State returns the current synchronization state.
func (s *Surface) State() SurfaceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Thread returns the resolved thread, or nil before resolution.
func (s *Surface) Thread() *store.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thread
}

// Comments returns a snapshot of the surface's current comment list.
func (s *Surface) Comments() []Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Comment, len(s.comments))
	copy(out, s.comments)
	return out
}

// Disposed reports whether the surface has been torn down.
func (s *Surface) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// ShowComments reports whether the comment list is visible.
func (s *Surface) ShowComments() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showComments
}

// CommentCount returns the last recomputed comment count.
func (s *Surface) CommentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commentCount
}

// EditingCommentID returns the comment currently being edited, 0 if none.
func (s *Surface) EditingCommentID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editingID
}

// Draft returns the composer's draft text.
func (s *Surface) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetDraft replaces the composer's draft text.
func (s *Surface) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
}

// PendingAttachments returns the composer's uploaded-but-unposted
// attachments.
func (s *Surface) PendingAttachments() []store.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Attachment, len(s.pending))
	copy(out, s.pending)
	return out
}

// AddPendingAttachment registers an uploaded attachment on the composer.
func (s *Surface) AddPendingAttachment(att store.Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, att)
}

// RemovePendingAttachment drops a composer attachment before posting.
func (s *Surface) RemovePendingAttachment(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.pending[:0]
	for _, att := range s.pending {
		if att.ID != id {
			kept = append(kept, att)
		}
	}
	s.pending = kept
}

// SetScrollHooks installs the host surface's scroll callbacks. Either may
// be nil when the host cannot scroll.
func (s *Surface) SetScrollHooks(toBottom, intoView func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollToBottom = toBottom
	s.scrollIntoView = intoView
}
