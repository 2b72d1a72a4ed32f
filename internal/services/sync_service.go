package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/odookit/commentsync/internal/bus"
	"github.com/odookit/commentsync/internal/odoo"
	"github.com/odookit/commentsync/internal/render"
	"github.com/odookit/commentsync/internal/store"
)

// SyncServiceImpl implements SyncService
type SyncServiceImpl struct {
	client      odoo.Transport
	store       *store.Store
	bus         *bus.Bus
	threads     ThreadService
	attachments AttachmentService
	normalizer  *Normalizer
	shareBase   string
	fetchLimit  int
	logger      *log.Logger // Optional - for debug logging
}

// NewSyncService creates a new comment synchronizer.
func NewSyncService(
	client odoo.Transport,
	st *store.Store,
	b *bus.Bus,
	threads ThreadService,
	attachments AttachmentService,
	normalizer *Normalizer,
	shareBase string,
	fetchLimit int,
) *SyncServiceImpl {
	return &SyncServiceImpl{
		client:      client,
		store:       st,
		bus:         b,
		threads:     threads,
		attachments: attachments,
		normalizer:  normalizer,
		shareBase:   strings.TrimRight(shareBase, "/"),
		fetchLimit:  fetchLimit,
	}
}

// SetLogger attaches an optional logger.
func (s *SyncServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

func (s *SyncServiceImpl) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// NewSurface creates a surface for the given host entity and wires it to
// the push channel and the same-tab posted signal.
func (s *SyncServiceImpl) NewSurface(entity HostEntity) *Surface {
	surf := newSurface(entity)
	if s.bus != nil {
		surf.busSub = s.bus.Subscribe(func(n bus.Notification) {
			s.handlePush(surf, n)
		})
		surf.postedSub = s.bus.SubscribePosted(func(sig bus.PostedSignal) {
			s.handlePosted(surf, sig)
		})
	}
	return surf
}

// DisposeSurface tears a surface down: it stops reacting to push events and
// turns any still-in-flight refresh into a no-op on completion.
func (s *SyncServiceImpl) DisposeSurface(surf *Surface) {
	if surf == nil {
		return
	}
	surf.mu.Lock()
	surf.disposed = true
	busSub, postedSub := surf.busSub, surf.postedSub
	surf.busSub, surf.postedSub = "", ""
	surf.mu.Unlock()
	if s.bus != nil {
		if busSub != "" {
			s.bus.Unsubscribe(busSub)
		}
		if postedSub != "" {
			s.bus.UnsubscribePosted(postedSub)
		}
	}
}

// Initialize resolves the surface's thread and performs the first refresh.
// On failure the surface returns to Uninitialized and keeps working with an
// empty comment list; the next trigger retries.
func (s *SyncServiceImpl) Initialize(ctx context.Context, surf *Surface) error {
	if surf == nil {
		return fmt.Errorf("%w: nil surface", ErrInvalidInput)
	}
	surf.mu.Lock()
	if surf.disposed {
		surf.mu.Unlock()
		return nil
	}
	if surf.thread != nil {
		surf.mu.Unlock()
		_, err := s.Refresh(ctx, surf)
		return err
	}
	surf.state = SurfaceResolving
	entity := surf.entity
	surf.mu.Unlock()

	thread, err := s.threads.ResolveThread(ctx, entity)
	surf.mu.Lock()
	if surf.disposed {
		surf.mu.Unlock()
		return nil
	}
	if err != nil {
		surf.state = SurfaceUninitialized
		surf.mu.Unlock()
		s.logf("sync_service: resolving thread for %s %d: %v", entity.Type, entity.ID, err)
		return err
	}
	surf.thread = thread
	surf.mu.Unlock()

	_, err = s.Refresh(ctx, surf)
	return err
}

// Refresh fetches the thread's message set, reconciles the shared store and
// rebuilds the surface's comment list. Idempotent and safe to call
// repeatedly; a refresh completing after the surface was torn down, or
// after a later-started refresh already applied, silently does nothing to
// the surface.
func (s *SyncServiceImpl) Refresh(ctx context.Context, surf *Surface) ([]Comment, error) {
	if surf == nil {
		return nil, fmt.Errorf("%w: nil surface", ErrInvalidInput)
	}
	surf.mu.Lock()
	if surf.disposed {
		surf.mu.Unlock()
		return nil, nil
	}
	if surf.thread == nil {
		surf.mu.Unlock()
		return nil, ErrNoThread
	}
	thread := *surf.thread
	surf.fetchSeq++
	seq := surf.fetchSeq
	// Synchronizing still counts as stable: an overlapping refresh is
	// running over a synchronized surface.
	wasStable := surf.state == SurfaceSynchronized || surf.state == SurfaceSynchronizing
	if surf.state == SurfaceSynchronized {
		surf.state = SurfaceSynchronizing
	}
	surf.mu.Unlock()

	comments, err := s.fetchAndStore(ctx, thread)

	surf.mu.Lock()
	defer surf.mu.Unlock()
	if surf.disposed {
		return nil, nil
	}
	if err != nil {
		// return to the prior stable state; last-known-good comments stay
		if wasStable {
			surf.state = SurfaceSynchronized
		} else {
			surf.state = SurfaceUninitialized
		}
		s.logf("sync_service: refresh thread %d: %v", thread.ID, err)
		return nil, err
	}
	if seq < surf.appliedSeq {
		// a later-started fetch already applied its result
		return comments, nil
	}
	surf.appliedSeq = seq
	surf.comments = comments
	surf.commentCount = len(comments)
	surf.state = SurfaceSynchronized
	return comments, nil
}

// fetchAndStore performs the network half of a refresh against the shared
// store and returns the thread's normalized comment sequence.
func (s *SyncServiceImpl) fetchAndStore(ctx context.Context, thread store.Thread) ([]Comment, error) {
	result, err := s.client.ThreadMessages(ctx, thread.Model, thread.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: thread %d: %v", ErrFetchFailure, thread.ID, err)
	}

	var raw []odoo.Message
	for _, rec := range result.Records {
		msg, err := odoo.ParseMessage(rec)
		if err != nil {
			s.logf("sync_service: skipping malformed message record: %v", err)
			continue
		}
		raw = append(raw, msg)
	}
	if len(result.IDs) > 0 {
		ids := result.IDs
		if s.fetchLimit > 0 && len(ids) > s.fetchLimit {
			ids = ids[:s.fetchLimit]
		}
		records, err := s.client.SearchRead(ctx, MessageModel,
			odoo.Domain{odoo.In("id", ids)}, odoo.MessageFields)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %d messages: %v", ErrFetchFailure, len(ids), err)
		}
		for _, rec := range records {
			msg, err := odoo.ParseMessage(rec)
			if err != nil {
				s.logf("sync_service: skipping malformed message record: %v", err)
				continue
			}
			raw = append(raw, msg)
		}
	}

	var attachmentIDs []int64
	for _, msg := range raw {
		attachmentIDs = append(attachmentIDs, msg.AttachmentIDs...)
	}
	index, err := s.attachments.ResolveAttachments(ctx, attachmentIDs)
	if err != nil {
		return nil, err
	}

	for _, msg := range raw {
		resolved := make([]store.Attachment, 0, len(msg.AttachmentIDs))
		for _, id := range msg.AttachmentIDs {
			if att, ok := index[id]; ok {
				resolved = append(resolved, att)
			}
		}
		s.store.UpsertMessage(store.Message{
			ID:            msg.ID,
			ThreadID:      thread.ID,
			ThreadModel:   thread.Model,
			Body:          msg.Body,
			AuthorID:      msg.AuthorID,
			AuthorName:    msg.AuthorName,
			EmailFrom:     msg.EmailFrom,
			CreateDate:    msg.CreateDate,
			MessageType:   msg.MessageType,
			AttachmentIDs: msg.AttachmentIDs,
			Attachments:   resolved,
		})
	}

	stored := s.store.MessagesForThread(thread.Model, thread.ID)
	for _, m := range stored {
		for _, att := range m.Attachments {
			index[att.ID] = att
		}
	}
	comments := make([]Comment, 0, len(stored))
	for _, m := range stored {
		if c, ok := s.normalizer.NormalizeMessage(m, index); ok {
			comments = append(comments, c)
		}
	}
	SortComments(comments)
	return comments, nil
}

func (s *SyncServiceImpl) handlePush(surf *Surface, n bus.Notification) {
	if n.Type != bus.TypeMessageNew && n.Type != bus.TypeMessageDelete {
		return
	}
	surf.mu.Lock()
	match := !surf.disposed && surf.thread != nil &&
		n.Payload.Model == surf.thread.Model && n.Payload.ResID == surf.thread.ID
	surf.mu.Unlock()
	if !match {
		return
	}
	// Drop the deleted row before refetching so the comment disappears even
	// when the refresh itself fails.
	if n.Type == bus.TypeMessageDelete && n.Payload.MessageID != 0 {
		s.store.RemoveMessage(n.Payload.MessageID)
	}
	if _, err := s.Refresh(context.Background(), surf); err != nil {
		s.logf("sync_service: push refresh: %v", err)
	}
}

func (s *SyncServiceImpl) handlePosted(surf *Surface, sig bus.PostedSignal) {
	surf.mu.Lock()
	match := !surf.disposed && surf.thread != nil &&
		sig.ThreadModel == surf.thread.Model && sig.ThreadID == surf.thread.ID
	surf.mu.Unlock()
	if !match {
		return
	}
	if _, err := s.Refresh(context.Background(), surf); err != nil {
		s.logf("sync_service: posted refresh: %v", err)
	}
}

// CanPost reports whether the composer holds anything postable.
func (s *SyncServiceImpl) CanPost(surf *Surface, body string) bool {
	if surf == nil {
		return false
	}
	if render.ExtractText(body) != "" {
		return true
	}
	return len(surf.PendingAttachments()) > 0
}

// PostComment posts the body plus the composer's pending attachments as a
// note on the surface's thread, resolving the thread first if needed. On
// success the composer is cleared, the surface refreshed, and the same-tab
// posted signal emitted so sibling surfaces converge.
func (s *SyncServiceImpl) PostComment(ctx context.Context, surf *Surface, body string) error {
	if surf == nil {
		return fmt.Errorf("%w: nil surface", ErrInvalidInput)
	}
	if surf.Disposed() {
		return ErrSurfaceDisposed
	}
	if surf.Thread() == nil {
		if err := s.Initialize(ctx, surf); err != nil {
			return fmt.Errorf("%w: preloading thread: %v", ErrThreadResolution, err)
		}
	}
	thread := surf.Thread()
	if thread == nil {
		return ErrNoThread
	}
	if !s.CanPost(surf, body) {
		return ErrNothingToPost
	}

	pending := surf.PendingAttachments()
	attachmentIDs := make([]int64, len(pending))
	for i, att := range pending {
		attachmentIDs[i] = att.ID
	}

	err := s.client.PostMessage(ctx, odoo.PostRequest{
		ThreadModel:   thread.Model,
		ThreadID:      thread.ID,
		Body:          body,
		AttachmentIDs: attachmentIDs,
	})
	if err != nil {
		// Fall back to a direct message create when the endpoint rejects.
		s.logf("sync_service: thread post failed, falling back to create: %v", err)
		_, err = s.client.Create(ctx, MessageModel, []map[string]any{{
			"model":          thread.Model,
			"res_id":         thread.ID,
			"body":           body,
			"message_type":   "comment",
			"subtype_xmlid":  "mail.mt_note",
			"attachment_ids": attachmentIDs,
		}})
		if err != nil {
			return fmt.Errorf("%w: posting to thread %d: %v", ErrWriteFailure, thread.ID, err)
		}
	}

	surf.mu.Lock()
	surf.draft = ""
	surf.pending = nil
	surf.mu.Unlock()

	if _, err := s.Refresh(ctx, surf); err != nil {
		s.logf("sync_service: post-refresh: %v", err)
	}
	if s.bus != nil {
		s.bus.PublishPosted(bus.PostedSignal{ThreadID: thread.ID, ThreadModel: thread.Model})
	}
	return nil
}

// Edit marks a comment as being edited on this surface.
func (s *SyncServiceImpl) Edit(surf *Surface, commentID int64) {
	if surf == nil {
		return
	}
	surf.mu.Lock()
	surf.editingID = commentID
	surf.mu.Unlock()
}

// SaveEdit writes the new body to the persisted message, clears the editing
// state and refreshes.
func (s *SyncServiceImpl) SaveEdit(ctx context.Context, surf *Surface, commentID int64, newBody string) error {
	if surf == nil || commentID == 0 {
		return fmt.Errorf("%w: surface and commentID required", ErrInvalidInput)
	}
	if surf.Disposed() {
		return ErrSurfaceDisposed
	}
	err := s.client.Write(ctx, MessageModel, []int64{commentID}, map[string]any{
		"body": newBody,
	})
	if err != nil {
		return fmt.Errorf("%w: editing comment %d: %v", ErrWriteFailure, commentID, err)
	}
	surf.mu.Lock()
	if surf.editingID == commentID {
		surf.editingID = 0
	}
	surf.mu.Unlock()
	if _, err := s.Refresh(ctx, surf); err != nil {
		s.logf("sync_service: edit refresh: %v", err)
	}
	return nil
}

// CancelEdit clears the editing state without writing.
func (s *SyncServiceImpl) CancelEdit(surf *Surface) {
	if surf == nil {
		return
	}
	surf.mu.Lock()
	surf.editingID = 0
	surf.mu.Unlock()
}

// DeleteComment is not wired to the transport yet. It clears the editing
// state so the panel cannot wedge, then reports ErrNotImplemented.
// TODO: wire to unlink once the server exposes a guarded delete for
// thread notes.
func (s *SyncServiceImpl) DeleteComment(_ context.Context, surf *Surface, commentID int64) error {
	if surf == nil || commentID == 0 {
		return fmt.Errorf("%w: surface and commentID required", ErrInvalidInput)
	}
	surf.mu.Lock()
	if surf.editingID == commentID {
		surf.editingID = 0
	}
	surf.mu.Unlock()
	return ErrNotImplemented
}

// CopyShareableLink builds a URL embedding the thread and comment id,
// suitable for pasting into other tools.
func (s *SyncServiceImpl) CopyShareableLink(surf *Surface, commentID int64) (string, error) {
	if surf == nil || commentID == 0 {
		return "", fmt.Errorf("%w: surface and commentID required", ErrInvalidInput)
	}
	thread := surf.Thread()
	if thread == nil {
		return "", ErrNoThread
	}
	if msg, ok := s.store.Message(commentID); ok {
		s.logf("sync_service: share link for comment %d (%s)", commentID, render.Preview(msg.Body, 40))
	}
	return fmt.Sprintf("%s/odoo/%s/%d?thread=%d&comment=%d",
		s.shareBase, thread.ResModel, thread.ResID, thread.ID, commentID), nil
}

// RemoveAttachment deletes a posted attachment via the transport and
// refreshes so no comment re-includes it.
func (s *SyncServiceImpl) RemoveAttachment(ctx context.Context, surf *Surface, attachmentID int64) error {
	if surf == nil || attachmentID == 0 {
		return fmt.Errorf("%w: surface and attachmentID required", ErrInvalidInput)
	}
	if surf.Disposed() {
		return ErrSurfaceDisposed
	}
	if err := s.client.Unlink(ctx, AttachmentModel, []int64{attachmentID}); err != nil {
		return fmt.Errorf("%w: removing attachment %d: %v", ErrWriteFailure, attachmentID, err)
	}
	if _, err := s.Refresh(ctx, surf); err != nil {
		s.logf("sync_service: attachment refresh: %v", err)
	}
	return nil
}
