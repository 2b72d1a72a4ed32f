package services

import (
	"context"
	"fmt"
	"log"

	"github.com/odookit/commentsync/internal/odoo"
	"github.com/odookit/commentsync/internal/store"
)

// ThreadServiceImpl implements ThreadService
type ThreadServiceImpl struct {
	client odoo.Transport
	store  *store.Store
	logger *log.Logger // Optional - for debug logging
}

// NewThreadService creates a new thread service
func NewThreadService(client odoo.Transport, st *store.Store) *ThreadServiceImpl {
	return &ThreadServiceImpl{
		client: client,
		store:  st,
	}
}

// SetLogger attaches an optional logger.
func (s *ThreadServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

func (s *ThreadServiceImpl) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

func linkingField(t EntityType) (string, error) {
	switch t {
	case EntityActivity:
		return "activity_id", nil
	case EntityMessage:
		return "activity_done_message_id", nil
	default:
		return "", fmt.Errorf("%w: unknown entity type %q", ErrInvalidInput, t)
	}
}

// ResolveThread returns the unique thread backing the given host entity,
// creating it on first use. The query-then-create sequence is not atomic
// against concurrent callers from other clients; surfaces serialize their
// own initialization, which leaves only a narrow duplicate window that the
// server does not currently guard against.
func (s *ThreadServiceImpl) ResolveThread(ctx context.Context, entity HostEntity) (*store.Thread, error) {
	if entity.ID == 0 {
		return nil, fmt.Errorf("%w: entity id missing", ErrInvalidInput)
	}
	field, err := linkingField(entity.Type)
	if err != nil {
		return nil, err
	}
	resID, err := odoo.CoerceID(entity.ResID)
	if err != nil {
		return nil, fmt.Errorf("%w: res_id for %s/%d: %v", ErrInvalidReference, entity.ResModel, entity.ID, err)
	}
	if entity.ResModel == "" {
		return nil, fmt.Errorf("%w: res_model missing for entity %d", ErrInvalidReference, entity.ID)
	}

	records, err := s.client.SearchRead(ctx, ThreadModel,
		odoo.Domain{odoo.Eq(field, entity.ID)}, []string{"id"})
	if err != nil {
		return nil, fmt.Errorf("%w: searching by %s=%d: %v", ErrThreadResolution, field, entity.ID, err)
	}

	var threadID int64
	if len(records) == 0 {
		values := map[string]any{
			field:       entity.ID,
			"res_model": entity.ResModel,
			"res_id":    resID,
		}
		ids, err := s.client.Create(ctx, ThreadModel, []map[string]any{values})
		if err != nil || len(ids) == 0 {
			return nil, fmt.Errorf("%w: creating thread for %s=%d: %v", ErrThreadResolution, field, entity.ID, err)
		}
		threadID = ids[0]
		s.logf("thread_service: created thread %d (%s=%d)", threadID, field, entity.ID)
	} else {
		threadID, err = odoo.CoerceID(records[0]["id"])
		if err != nil {
			return nil, fmt.Errorf("%w: thread id: %v", ErrThreadResolution, err)
		}
	}

	thread := store.Thread{
		ID:       threadID,
		Model:    ThreadModel,
		ResModel: entity.ResModel,
		ResID:    resID,
	}
	switch entity.Type {
	case EntityActivity:
		thread.ActivityID = entity.ID
	case EntityMessage:
		thread.ActivityDoneMessageID = entity.ID
	}
	return s.store.InsertThread(thread), nil
}

// MarkActivityDone relinks a thread from its (now deleted) activity to the
// message created when the activity was completed. Returns false when no
// thread exists for threadID.
func (s *ThreadServiceImpl) MarkActivityDone(ctx context.Context, threadID, doneMessageID int64) (bool, error) {
	if threadID == 0 || doneMessageID == 0 {
		return false, fmt.Errorf("%w: threadID and doneMessageID required", ErrInvalidInput)
	}
	records, err := s.client.SearchRead(ctx, ThreadModel,
		odoo.Domain{odoo.Eq("id", threadID)}, []string{"id"})
	if err != nil {
		return false, fmt.Errorf("%w: locating thread %d: %v", ErrWriteFailure, threadID, err)
	}
	if len(records) == 0 {
		return false, nil
	}
	err = s.client.Write(ctx, ThreadModel, []int64{threadID}, map[string]any{
		"activity_id":              false,
		"activity_done_message_id": doneMessageID,
	})
	if err != nil {
		return false, fmt.Errorf("%w: marking thread %d done: %v", ErrWriteFailure, threadID, err)
	}
	s.store.InsertThread(store.Thread{
		ID:                    threadID,
		Model:                 ThreadModel,
		ActivityDoneMessageID: doneMessageID,
	})
	return true, nil
}

// TransferThreadToActivity relinks a done-message thread to a new activity,
// used when a completed activity is reopened for editing. Returns false
// when no thread is linked to doneMessageID.
func (s *ThreadServiceImpl) TransferThreadToActivity(ctx context.Context, doneMessageID, activityID int64) (bool, error) {
	if doneMessageID == 0 || activityID == 0 {
		return false, fmt.Errorf("%w: doneMessageID and activityID required", ErrInvalidInput)
	}
	records, err := s.client.SearchRead(ctx, ThreadModel,
		odoo.Domain{odoo.Eq("activity_done_message_id", doneMessageID)}, []string{"id"})
	if err != nil {
		return false, fmt.Errorf("%w: locating thread for message %d: %v", ErrWriteFailure, doneMessageID, err)
	}
	if len(records) == 0 {
		return false, nil
	}
	threadID, err := odoo.CoerceID(records[0]["id"])
	if err != nil {
		return false, fmt.Errorf("%w: thread id: %v", ErrWriteFailure, err)
	}
	err = s.client.Write(ctx, ThreadModel, []int64{threadID}, map[string]any{
		"activity_id": activityID,
	})
	if err != nil {
		return false, fmt.Errorf("%w: transferring thread %d: %v", ErrWriteFailure, threadID, err)
	}
	s.store.InsertThread(store.Thread{
		ID:         threadID,
		Model:      ThreadModel,
		ActivityID: activityID,
	})
	return true, nil
}
