package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/odookit/commentsync/internal/render"
	"github.com/odookit/commentsync/internal/store"
)

// naiveDateLayout is the server's timezone-less timestamp form, always UTC.
const naiveDateLayout = "2006-01-02 15:04:05"

// absoluteDateLayout formats timestamps older than the relative window.
const absoluteDateLayout = "Jan 2, 2006 3:04 PM"

// Normalizer turns raw stored messages into display-ready comments. It is
// pure: no I/O, clock and timezone are injected.
type Normalizer struct {
	// Location is the viewer's timezone for absolute dates.
	Location *time.Location
	// Now supplies the reference time for relative labels.
	Now func() time.Time
	// SelfPartnerID marks comments authored by the viewer as editable.
	// Zero means no comment is editable.
	SelfPartnerID int64
}

// NewNormalizer creates a normalizer with the given viewer timezone.
// A nil location falls back to the runtime's local timezone.
func NewNormalizer(loc *time.Location, selfPartnerID int64) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{
		Location:      loc,
		Now:           time.Now,
		SelfPartnerID: selfPartnerID,
	}
}

// LocationFromCookie resolves a timezone cookie value to a location,
// falling back to the runtime's local timezone for empty or unknown names.
func LocationFromCookie(value string) *time.Location {
	if value == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(value)
	if err != nil {
		return time.Local
	}
	return loc
}

// NormalizeMessage projects a stored message into a Comment. The second
// return is false when the message must not appear as a comment: wrong
// subtype, or empty body with no resolved attachments.
func (n *Normalizer) NormalizeMessage(msg store.Message, index map[int64]store.Attachment) (Comment, bool) {
	if msg.MessageType != "comment" {
		return Comment{}, false
	}

	attachments := make([]store.Attachment, 0, len(msg.AttachmentIDs))
	for _, id := range msg.AttachmentIDs {
		if att, ok := index[id]; ok {
			attachments = append(attachments, att)
		}
	}

	if render.IsEmpty(msg.Body) && len(attachments) == 0 {
		return Comment{}, false
	}

	createdAt := parseCreateDate(msg.CreateDate)
	return Comment{
		ID:          msg.ID,
		RawBody:     render.Sanitize(msg.Body),
		Author:      n.resolveAuthor(msg),
		CreatedAt:   createdAt,
		DateLabel:   n.DateLabel(createdAt),
		Attachments: attachments,
		Editable:    n.SelfPartnerID != 0 && msg.AuthorID == n.SelfPartnerID,
	}, true
}

// IsComment reports whether a stored message counts as a comment: comment
// subtype with a non-empty body or at least one attachment reference.
func IsComment(msg store.Message) bool {
	if msg.MessageType != "comment" {
		return false
	}
	return !render.IsEmpty(msg.Body) || len(msg.AttachmentIDs) > 0
}

func (n *Normalizer) resolveAuthor(msg store.Message) Author {
	if msg.AuthorID != 0 {
		name := msg.AuthorName
		if name == "" {
			name = msg.EmailFrom
		}
		if name == "" {
			name = "Unknown"
		}
		return Author{
			ID:        msg.AuthorID,
			Name:      name,
			AvatarURL: fmt.Sprintf("/web/image/res.partner/%d/avatar_128", msg.AuthorID),
		}
	}
	if msg.EmailFrom != "" {
		return Author{Name: msg.EmailFrom}
	}
	return Author{Name: "Unknown"}
}

// parseCreateDate interprets the server timestamp. Naive timestamps are
// UTC; anything else is parsed as given.
func parseCreateDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.ParseInLocation(naiveDateLayout, value, time.UTC); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}

// DateLabel renders a stable relative label for recent timestamps and an
// absolute date in the viewer's timezone beyond thirty days.
func (n *Normalizer) DateLabel(createdAt time.Time) string {
	if createdAt.IsZero() {
		return ""
	}
	now := n.Now()
	diff := now.Sub(createdAt)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return pluralize(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return pluralize(int(diff.Hours()), "hour")
	case diff < 30*24*time.Hour:
		return pluralize(int(diff.Hours()/24), "day")
	default:
		return createdAt.In(n.Location).Format(absoluteDateLayout)
	}
}

func pluralize(count int, unit string) string {
	if count == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", count, unit)
}

// SortComments orders comments ascending by creation time, ties broken by
// id ascending.
func SortComments(comments []Comment) {
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
}
