package services

import (
	"context"
	"sync"

	"github.com/odookit/commentsync/internal/odoo"
)

// transportCall records one remote invocation for assertions.
type transportCall struct {
	method string
	model  string
	domain odoo.Domain
	fields []string
	create []map[string]any
	ids    []int64
	vals   map[string]any
	post   odoo.PostRequest
}

// fakeTransport implements odoo.Transport with scripted responses. Unset
// function fields answer with benign defaults.
type fakeTransport struct {
	mu    sync.Mutex
	calls []transportCall

	searchReadFn     func(ctx context.Context, model string, domain odoo.Domain, fields []string) ([]odoo.Record, error)
	createFn         func(ctx context.Context, model string, values []map[string]any) ([]int64, error)
	writeFn          func(ctx context.Context, model string, ids []int64, values map[string]any) error
	unlinkFn         func(ctx context.Context, model string, ids []int64) error
	threadMessagesFn func(ctx context.Context, threadModel string, threadID int64) (odoo.ThreadMessagesResult, error)
	postMessageFn    func(ctx context.Context, req odoo.PostRequest) error
}

func (f *fakeTransport) record(c transportCall) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

// callsTo returns the recorded calls matching method (and model, when
// non-empty).
func (f *fakeTransport) callsTo(method, model string) []transportCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []transportCall
	for _, c := range f.calls {
		if c.method == method && (model == "" || c.model == model) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTransport) SearchRead(ctx context.Context, model string, domain odoo.Domain, fields []string) ([]odoo.Record, error) {
	f.record(transportCall{method: "search_read", model: model, domain: domain, fields: fields})
	if f.searchReadFn != nil {
		return f.searchReadFn(ctx, model, domain, fields)
	}
	return nil, nil
}

func (f *fakeTransport) Create(ctx context.Context, model string, values []map[string]any) ([]int64, error) {
	f.record(transportCall{method: "create", model: model, create: values})
	if f.createFn != nil {
		return f.createFn(ctx, model, values)
	}
	return []int64{1}, nil
}

func (f *fakeTransport) Write(ctx context.Context, model string, ids []int64, values map[string]any) error {
	f.record(transportCall{method: "write", model: model, ids: ids, vals: values})
	if f.writeFn != nil {
		return f.writeFn(ctx, model, ids, values)
	}
	return nil
}

func (f *fakeTransport) Unlink(ctx context.Context, model string, ids []int64) error {
	f.record(transportCall{method: "unlink", model: model, ids: ids})
	if f.unlinkFn != nil {
		return f.unlinkFn(ctx, model, ids)
	}
	return nil
}

func (f *fakeTransport) ThreadMessages(ctx context.Context, threadModel string, threadID int64) (odoo.ThreadMessagesResult, error) {
	f.record(transportCall{method: "thread_messages", model: threadModel, ids: []int64{threadID}})
	if f.threadMessagesFn != nil {
		return f.threadMessagesFn(ctx, threadModel, threadID)
	}
	return odoo.ThreadMessagesResult{}, nil
}

func (f *fakeTransport) PostMessage(ctx context.Context, req odoo.PostRequest) error {
	f.record(transportCall{method: "post_message", model: req.ThreadModel, post: req})
	if f.postMessageFn != nil {
		return f.postMessageFn(ctx, req)
	}
	return nil
}
