package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/odookit/commentsync/internal/odoo"
	"github.com/odookit/commentsync/internal/store"
)

// AttachmentServiceImpl implements AttachmentService
type AttachmentServiceImpl struct {
	client  odoo.Transport
	baseURL string
}

// NewAttachmentService creates a new attachment service. baseURL is the
// server base used to build download URLs.
func NewAttachmentService(client odoo.Transport, baseURL string) *AttachmentServiceImpl {
	return &AttachmentServiceImpl{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

var attachmentFields = []string{"id", "name", "mimetype", "access_token"}

// ResolveAttachments resolves attachment ids to downloadable metadata in a
// single batched lookup. Ids the server does not return are absent from the
// result; callers drop those references.
func (s *AttachmentServiceImpl) ResolveAttachments(ctx context.Context, ids []int64) (map[int64]store.Attachment, error) {
	out := make(map[int64]store.Attachment)
	if len(ids) == 0 {
		return out, nil
	}
	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	records, err := s.client.SearchRead(ctx, AttachmentModel,
		odoo.Domain{odoo.In("id", unique)}, attachmentFields)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving %d attachments: %v", ErrFetchFailure, len(unique), err)
	}
	for _, rec := range records {
		id, err := odoo.CoerceID(rec["id"])
		if err != nil {
			continue
		}
		out[id] = store.Attachment{
			ID:       id,
			Name:     odoo.Str(rec["name"]),
			Mimetype: odoo.Str(rec["mimetype"]),
			URL:      s.DownloadURL(id, odoo.Str(rec["access_token"])),
		}
	}
	return out, nil
}

// DownloadURL builds the content URL for an attachment. A non-empty access
// token is embedded as a query parameter; otherwise the bare content URL is
// returned.
func (s *AttachmentServiceImpl) DownloadURL(id int64, accessToken string) string {
	u := fmt.Sprintf("%s/web/content/%d", s.baseURL, id)
	if strings.TrimSpace(accessToken) != "" {
		u += "?access_token=" + url.QueryEscape(accessToken)
	}
	return u
}
