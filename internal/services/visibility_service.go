package services

import (
	"fmt"
	"log"
	"time"

	"github.com/odookit/commentsync/internal/store"
)

// Toggle label forms. Shown state wins over count; the zero-count form only
// applies while hidden.
const (
	labelHideComments = "Hide Comments"
	labelSeeComments  = "See Comments (%d)"
	labelAddComment   = "Add a Comment"
)

// VisibilityServiceImpl implements VisibilityService
type VisibilityServiceImpl struct {
	store  *store.Store
	settle time.Duration
	logger *log.Logger // Optional - for debug logging
}

// NewVisibilityService creates a new visibility coordinator. settle is the
// render-settle delay before scroll pinning.
func NewVisibilityService(st *store.Store, settle time.Duration) *VisibilityServiceImpl {
	return &VisibilityServiceImpl{
		store:  st,
		settle: settle,
	}
}

// SetLogger attaches an optional logger.
func (s *VisibilityServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// Toggle flips the surface's comment visibility. On hide the count is
// recomputed from the authoritative message set; on show the scroll
// position is pinned to the newest comment after the next render pass.
func (s *VisibilityServiceImpl) Toggle(surf *Surface) {
	if surf == nil {
		return
	}
	surf.mu.Lock()
	surf.showComments = !surf.showComments
	shown := surf.showComments
	scroll := surf.scrollToBottom
	surf.mu.Unlock()

	if !shown {
		s.RecomputeCount(surf)
		return
	}
	if scroll != nil {
		time.AfterFunc(s.settle, scroll)
	}
}

// ToggleLabel returns the text for the toggle control.
func (s *VisibilityServiceImpl) ToggleLabel(surf *Surface) string {
	if surf == nil {
		return labelAddComment
	}
	surf.mu.Lock()
	shown := surf.showComments
	count := surf.commentCount
	surf.mu.Unlock()

	switch {
	case shown:
		return labelHideComments
	case count > 0:
		return fmt.Sprintf(labelSeeComments, count)
	default:
		return labelAddComment
	}
}

// RecomputeCount derives the comment count from the shared store: messages
// on this thread of comment subtype with a non-empty body or attachments.
// The count is never mutated independently of the message set.
func (s *VisibilityServiceImpl) RecomputeCount(surf *Surface) int {
	if surf == nil {
		return 0
	}
	surf.mu.Lock()
	thread := surf.thread
	surf.mu.Unlock()
	if thread == nil {
		return 0
	}

	count := 0
	for _, msg := range s.store.MessagesForThread(thread.Model, thread.ID) {
		if IsComment(msg) {
			count++
		}
	}
	surf.mu.Lock()
	surf.commentCount = count
	surf.mu.Unlock()
	return count
}
