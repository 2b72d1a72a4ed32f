package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/odookit/commentsync/internal/odoo"
	"github.com/odookit/commentsync/internal/session"
)

// HandoffKey is the single session-storage slot holding a pending signal.
const HandoffKey = "open_activity_comments"

// HandoffServiceImpl implements HandoffService
type HandoffServiceImpl struct {
	storage session.Storage
	client  odoo.Transport
	logger  *log.Logger // Optional - for debug logging
}

// NewHandoffService creates a new cross-navigation handoff channel.
func NewHandoffService(storage session.Storage, client odoo.Transport) *HandoffServiceImpl {
	return &HandoffServiceImpl{
		storage: storage,
		client:  client,
	}
}

// SetLogger attaches an optional logger.
func (s *HandoffServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

func (s *HandoffServiceImpl) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// Signal writes a pending handoff, overwriting any unconsumed prior one.
func (s *HandoffServiceImpl) Signal(ctx context.Context, sig HandoffSignal) error {
	if sig.ThreadModel == "" {
		return fmt.Errorf("%w: thread model required", ErrInvalidInput)
	}
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("%w: encoding signal: %v", ErrInvalidInput, err)
	}
	if err := s.storage.Set(ctx, HandoffKey, string(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// SignalFromThread looks up the thread's linking keys and writes the full
// handoff signal before a navigation. A thread whose business-record id
// cannot be coerced aborts without writing.
func (s *HandoffServiceImpl) SignalFromThread(ctx context.Context, threadID int64) error {
	if threadID == 0 {
		return fmt.Errorf("%w: threadID required", ErrInvalidInput)
	}
	records, err := s.client.SearchRead(ctx, ThreadModel,
		odoo.Domain{odoo.Eq("id", threadID)},
		[]string{"id", "activity_id", "activity_done_message_id", "res_model", "res_id"})
	if err != nil {
		return fmt.Errorf("%w: reading thread %d: %v", ErrFetchFailure, threadID, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: thread %d not found", ErrFetchFailure, threadID)
	}
	rec := records[0]
	if _, err := odoo.CoerceID(rec["res_id"]); err != nil {
		return fmt.Errorf("%w: thread %d res_id: %v", ErrInvalidReference, threadID, err)
	}

	sig := HandoffSignal{
		ThreadModel: ThreadModel,
		ThreadID:    threadID,
	}
	if id, _, ok := odoo.Many2One(rec["activity_id"]); ok {
		sig.ActivityID = id
	}
	if id, _, ok := odoo.Many2One(rec["activity_done_message_id"]); ok {
		sig.ActivityDoneMessageID = id
	}
	return s.Signal(ctx, sig)
}

// Consume reads the pending signal; on a match with the candidate entity it
// deletes the signal and returns true. A mismatch leaves the signal
// untouched. Malformed stored JSON is treated as no signal.
func (s *HandoffServiceImpl) Consume(ctx context.Context, entity HostEntity) (bool, error) {
	raw, ok, err := s.storage.Get(ctx, HandoffKey)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if !ok {
		return false, nil
	}
	var sig HandoffSignal
	if err := json.Unmarshal([]byte(raw), &sig); err != nil {
		s.logf("handoff_service: malformed signal %q, ignoring", raw)
		return false, nil
	}
	if sig.ThreadModel != ThreadModel {
		return false, nil
	}

	matched := false
	switch entity.Type {
	case EntityActivity:
		matched = sig.ActivityID != 0 && sig.ActivityID == entity.ID
	case EntityMessage:
		matched = sig.ActivityDoneMessageID != 0 && sig.ActivityDoneMessageID == entity.ID
	}
	if !matched {
		return false, nil
	}
	if err := s.storage.Remove(ctx, HandoffKey); err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return true, nil
}

// ApplyHandoff runs the mount-time handoff check for a surface: on a match
// the panel is forced open and, for message-anchored threads, the surface
// is asked to scroll itself into view. Storage failures leave the surface
// usable and report false.
func ApplyHandoff(ctx context.Context, handoff HandoffService, vis VisibilityService, surf *Surface) bool {
	if handoff == nil || vis == nil || surf == nil {
		return false
	}
	matched, err := handoff.Consume(ctx, surf.Entity())
	if err != nil || !matched {
		return false
	}
	if !surf.ShowComments() {
		vis.Toggle(surf)
	}
	if surf.Entity().Type == EntityMessage {
		surf.mu.Lock()
		intoView := surf.scrollIntoView
		surf.mu.Unlock()
		if intoView != nil {
			intoView()
		}
	}
	return true
}
