package store

import (
	"sort"
	"sync"
)

// Thread is an in-memory projection of a persisted discussion container.
type Thread struct {
	ID                    int64
	Model                 string
	ActivityID            int64
	ActivityDoneMessageID int64
	ResModel              string
	ResID                 int64
}

// Attachment is resolved attachment metadata attached to a stored message.
type Attachment struct {
	ID       int64
	Name     string
	Mimetype string
	URL      string
}

// Message is a stored message merged with its thread reference and resolved
// attachments. All surfaces viewing the same thread read these rows.
type Message struct {
	ID            int64
	ThreadID      int64
	ThreadModel   string
	Body          string
	AuthorID      int64
	AuthorName    string
	EmailFrom     string
	CreateDate    string
	MessageType   string
	AttachmentIDs []int64
	Attachments   []Attachment
}

// Store is the shared reactive index of threads and messages. Writes are
// additive upserts keyed by id, so concurrent refreshes from different
// surfaces converge without ordering sensitivity. It is the single
// synchronization point across surfaces; services must not keep their own
// per-surface message caches.
type Store struct {
	mu       sync.RWMutex
	threads  map[int64]*Thread
	messages map[int64]Message
}

// New creates an empty store.
func New() *Store {
	return &Store{
		threads:  make(map[int64]*Thread),
		messages: make(map[int64]Message),
	}
}

// InsertThread upserts a thread by id and returns the stored value.
// Zero fields in the incoming value do not clear previously known ones.
func (s *Store) InsertThread(t Thread) *Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.threads[t.ID]
	if !ok {
		copied := t
		s.threads[t.ID] = &copied
		return &copied
	}
	if t.Model != "" {
		existing.Model = t.Model
	}
	if t.ActivityID != 0 {
		existing.ActivityID = t.ActivityID
	}
	if t.ActivityDoneMessageID != 0 {
		existing.ActivityDoneMessageID = t.ActivityDoneMessageID
	}
	if t.ResModel != "" {
		existing.ResModel = t.ResModel
	}
	if t.ResID != 0 {
		existing.ResID = t.ResID
	}
	return existing
}

// Thread returns a stored thread by id.
func (s *Store) Thread(id int64) (Thread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	if !ok {
		return Thread{}, false
	}
	return *t, true
}

// UpsertMessage inserts or replaces a message by id.
func (s *Store) UpsertMessage(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[m.ID] = m
}

// Message returns a stored message by id.
func (s *Store) Message(id int64) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	return m, ok
}

// Messages returns a snapshot of all stored messages keyed by id, for
// consumers that reconcile across threads.
func (s *Store) Messages() map[int64]Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]Message, len(s.messages))
	for id, m := range s.messages {
		out[id] = m
	}
	return out
}

// MessagesForThread returns the messages referencing the given thread,
// ordered by id ascending.
func (s *Store) MessagesForThread(threadModel string, threadID int64) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Message
	for _, m := range s.messages {
		if m.ThreadID == threadID && m.ThreadModel == threadModel {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RemoveMessage deletes a message by id. Called when the push channel
// reports a message deleted elsewhere.
func (s *Store) RemoveMessage(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, id)
}
