package odoo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Condition is a single domain triple, e.g. ["activity_id", "=", 42].
type Condition [3]any

// Domain is a search filter: a list of conditions, implicitly AND-ed.
type Domain []Condition

// Eq builds an equality condition.
func Eq(field string, value any) Condition {
	return Condition{field, "=", value}
}

// In builds a membership condition.
func In(field string, values []int64) Condition {
	ids := make([]any, len(values))
	for i, v := range values {
		ids[i] = v
	}
	return Condition{field, "in", ids}
}

// Record is a raw row as returned by search_read: field name to value.
// Many2one fields arrive as [id, label] pairs or false when unset.
type Record map[string]any

// CoerceID converts the transport's loose id representations to int64.
// Accepted forms: whole numbers, numeric strings, and [id, label] pairs.
func CoerceID(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		if t != float64(int64(t)) {
			return 0, fmt.Errorf("non-integral id %v", t)
		}
		return int64(t), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, fmt.Errorf("empty id string")
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric id %q", t)
		}
		return n, nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, fmt.Errorf("non-integral id %v", t)
		}
		return n, nil
	case []any:
		if len(t) == 0 {
			return 0, fmt.Errorf("empty id pair")
		}
		return CoerceID(t[0])
	default:
		return 0, fmt.Errorf("unsupported id type %T", v)
	}
}

// Many2One decodes a many2one field value into (id, label, ok).
// Unset relations arrive as false.
func Many2One(v any) (int64, string, bool) {
	pair, ok := v.([]any)
	if !ok || len(pair) < 1 {
		return 0, "", false
	}
	id, err := CoerceID(pair[0])
	if err != nil {
		return 0, "", false
	}
	label := ""
	if len(pair) > 1 {
		label, _ = pair[1].(string)
	}
	return id, label, true
}

// Str reads a string field, treating false (unset) as empty.
func Str(v any) string {
	s, _ := v.(string)
	return s
}

// IDList decodes an id-list field such as attachment_ids.
func IDList(v any) []int64 {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(raw))
	for _, item := range raw {
		id, err := CoerceID(item)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Message is the subset of a mail.message row the engine consumes.
type Message struct {
	ID            int64
	Body          string
	AuthorID      int64
	AuthorName    string
	EmailFrom     string
	CreateDate    string
	MessageType   string
	AttachmentIDs []int64
}

// MessageFields is the field list requested for bulk message reads.
var MessageFields = []string{
	"id", "body", "author_id", "email_from", "create_date", "message_type", "attachment_ids",
}

// ParseMessage decodes a raw search_read row into a Message.
func ParseMessage(rec Record) (Message, error) {
	id, err := CoerceID(rec["id"])
	if err != nil {
		return Message{}, fmt.Errorf("message id: %w", err)
	}
	msg := Message{
		ID:            id,
		Body:          Str(rec["body"]),
		EmailFrom:     Str(rec["email_from"]),
		CreateDate:    Str(rec["create_date"]),
		MessageType:   Str(rec["message_type"]),
		AttachmentIDs: IDList(rec["attachment_ids"]),
	}
	if aid, name, ok := Many2One(rec["author_id"]); ok {
		msg.AuthorID = aid
		msg.AuthorName = name
	}
	return msg, nil
}

// ThreadMessagesResult is the response of the thread-messages endpoint.
// Depending on server version the messages array holds either full records
// or bare ids; exactly one of Records/IDs is populated.
type ThreadMessagesResult struct {
	Records []Record
	IDs     []int64
}

// PostRequest describes a comment post against a thread.
type PostRequest struct {
	ThreadModel   string
	ThreadID      int64
	Body          string
	SubtypeXMLID  string
	AttachmentIDs []int64
}

// RPCError is a structured error returned by the remote endpoint.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name  string `json:"name"`
		Debug string `json:"debug"`
	} `json:"data"`
}

func (e *RPCError) Error() string {
	if e.Data.Name != "" {
		return fmt.Sprintf("rpc error %d: %s (%s)", e.Code, e.Message, e.Data.Name)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
