package odoo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceID(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    int64
		wantErr bool
	}{
		{"int", 7, 7, false},
		{"int64", int64(9), 9, false},
		{"whole_float", float64(42), 42, false},
		{"fractional_float", 4.5, 0, true},
		{"numeric_string", "123", 123, false},
		{"padded_numeric_string", " 123 ", 123, false},
		{"empty_string", "", 0, true},
		{"alpha_string", "abc", 0, true},
		{"id_label_pair", []any{float64(5), "Deco Addict"}, 5, false},
		{"bare_pair", []any{float64(5)}, 5, false},
		{"empty_pair", []any{}, 0, true},
		{"json_number", json.Number("77"), 77, false},
		{"bool", true, 0, true},
		{"nil", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMany2One(t *testing.T) {
	id, label, ok := Many2One([]any{float64(3), "Mitchell Admin"})
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)
	assert.Equal(t, "Mitchell Admin", label)

	// unset relations arrive as false
	_, _, ok = Many2One(false)
	assert.False(t, ok)

	_, _, ok = Many2One(nil)
	assert.False(t, ok)
}

func TestIDList(t *testing.T) {
	assert.Equal(t, []int64{7, 9}, IDList([]any{float64(7), float64(9)}))
	assert.Empty(t, IDList(false))
	assert.Empty(t, IDList(nil))
	// non-numeric entries are skipped
	assert.Equal(t, []int64{4}, IDList([]any{"x", float64(4)}))
}

func TestParseMessage(t *testing.T) {
	rec := Record{
		"id":             float64(12),
		"body":           "<p>hello</p>",
		"author_id":      []any{float64(3), "Mitchell Admin"},
		"email_from":     "admin@example.com",
		"create_date":    "2026-08-30 10:00:00",
		"message_type":   "comment",
		"attachment_ids": []any{float64(7), float64(9)},
	}
	msg, err := ParseMessage(rec)
	require.NoError(t, err)
	assert.Equal(t, int64(12), msg.ID)
	assert.Equal(t, "<p>hello</p>", msg.Body)
	assert.Equal(t, int64(3), msg.AuthorID)
	assert.Equal(t, "Mitchell Admin", msg.AuthorName)
	assert.Equal(t, "comment", msg.MessageType)
	assert.Equal(t, []int64{7, 9}, msg.AttachmentIDs)
}

func TestParseMessage_UnsetFields(t *testing.T) {
	rec := Record{
		"id":             float64(1),
		"body":           false,
		"author_id":      false,
		"email_from":     false,
		"create_date":    "2026-08-30 10:00:00",
		"message_type":   "comment",
		"attachment_ids": []any{},
	}
	msg, err := ParseMessage(rec)
	require.NoError(t, err)
	assert.Empty(t, msg.Body)
	assert.Zero(t, msg.AuthorID)
	assert.Empty(t, msg.EmailFrom)
	assert.Empty(t, msg.AttachmentIDs)
}

func TestParseMessage_MissingID(t *testing.T) {
	_, err := ParseMessage(Record{"body": "<p>x</p>"})
	assert.Error(t, err)
}
