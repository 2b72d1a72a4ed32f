package odoo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcHandler captures the decoded request body and replies with the given
// result or error payload.
func rpcHandler(t *testing.T, wantPath string, result any, rpcErr *RPCError, got *map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, wantPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2.0", body["jsonrpc"])
		assert.Equal(t, "call", body["method"])
		if got != nil {
			*got = body
		}

		resp := map[string]any{"jsonrpc": "2.0", "id": body["id"]}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func TestSearchRead(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(rpcHandler(t, "/web/dataset/call_kw",
		[]map[string]any{{"id": 301, "res_model": "res.partner"}}, nil, &got))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	records, err := client.SearchRead(context.Background(), "mail.activity.thread",
		Domain{Eq("activity_id", int64(12))}, []string{"id", "res_model"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, float64(301), records[0]["id"])

	params := got["params"].(map[string]any)
	assert.Equal(t, "mail.activity.thread", params["model"])
	assert.Equal(t, "search_read", params["method"])
	args := params["args"].([]any)
	require.Len(t, args, 2)
	assert.Equal(t, []any{[]any{"activity_id", "=", float64(12)}}, args[0])
	assert.Equal(t, []any{"id", "res_model"}, args[1])
}

func TestSearchRead_EmptyModel(t *testing.T) {
	client := NewClient("http://unused.invalid", nil)
	_, err := client.SearchRead(context.Background(), "", nil, nil)
	assert.Error(t, err)
}

func TestSearchRead_RPCError(t *testing.T) {
	rpcErr := &RPCError{Code: 200, Message: "Odoo Server Error"}
	rpcErr.Data.Name = "odoo.exceptions.AccessError"
	srv := httptest.NewServer(rpcHandler(t, "/web/dataset/call_kw", nil, rpcErr, nil))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	_, err := client.SearchRead(context.Background(), "mail.message", nil, []string{"id"})
	require.Error(t, err)

	var asRPC *RPCError
	require.ErrorAs(t, err, &asRPC)
	assert.Equal(t, 200, asRPC.Code)
	assert.Contains(t, err.Error(), "odoo.exceptions.AccessError")
}

func TestCreate_ResultForms(t *testing.T) {
	tests := []struct {
		name   string
		result any
		want   []int64
	}{
		{"single_id", 301, []int64{301}},
		{"id_list", []int64{301, 302}, []int64{301, 302}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(rpcHandler(t, "/web/dataset/call_kw", tt.result, nil, nil))
			defer srv.Close()

			client := NewClient(srv.URL, srv.Client())
			ids, err := client.Create(context.Background(), "mail.activity.thread",
				[]map[string]any{{"activity_id": 12}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestCreate_NoValues(t *testing.T) {
	client := NewClient("http://unused.invalid", nil)
	_, err := client.Create(context.Background(), "mail.message", nil)
	assert.Error(t, err)
}

func TestWriteAndUnlink(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(rpcHandler(t, "/web/dataset/call_kw", true, nil, &got))
	defer srv.Close()
	client := NewClient(srv.URL, srv.Client())

	require.NoError(t, client.Write(context.Background(), "mail.message",
		[]int64{5}, map[string]any{"body": "<p>edited</p>"}))
	params := got["params"].(map[string]any)
	assert.Equal(t, "write", params["method"])
	args := params["args"].([]any)
	assert.Equal(t, []any{float64(5)}, args[0])
	assert.Equal(t, map[string]any{"body": "<p>edited</p>"}, args[1])

	require.NoError(t, client.Unlink(context.Background(), "ir.attachment", []int64{7}))
	params = got["params"].(map[string]any)
	assert.Equal(t, "unlink", params["method"])

	assert.Error(t, client.Write(context.Background(), "mail.message", nil, nil))
	assert.Error(t, client.Unlink(context.Background(), "", []int64{1}))
}

func TestThreadMessages_RecordsAndBareIDs(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(rpcHandler(t, "/mail/thread/messages", map[string]any{
		"messages": []any{
			map[string]any{"id": 1, "body": "<p>hello</p>", "message_type": "comment"},
			3,
			7,
		},
	}, nil, &got))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	result, err := client.ThreadMessages(context.Background(), "mail.activity.thread", 101)
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	assert.Equal(t, float64(1), result.Records[0]["id"])
	assert.Equal(t, []int64{3, 7}, result.IDs)

	params := got["params"].(map[string]any)
	assert.Equal(t, "mail.activity.thread", params["thread_model"])
	assert.Equal(t, float64(101), params["thread_id"])
}

func TestPostMessage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(rpcHandler(t, "/mail/thread/post", true, nil, &got))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	err := client.PostMessage(context.Background(), PostRequest{
		ThreadModel: "mail.activity.thread",
		ThreadID:    101,
		Body:        "<p>hello</p>",
	})
	require.NoError(t, err)

	params := got["params"].(map[string]any)
	assert.Equal(t, "mail.activity.thread", params["thread_model"])
	assert.Equal(t, float64(101), params["thread_id"])
	assert.Equal(t, "<p>hello</p>", params["body"])
	// the note subtype is the default; attachments are never null
	assert.Equal(t, "mail.mt_note", params["subtype_xmlid"])
	assert.Equal(t, []any{}, params["attachment_ids"])
}

func TestCall_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	_, err := client.SearchRead(context.Background(), "mail.message", nil, []string{"id"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_Cookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("session_id")
		require.NoError(t, err)
		assert.Equal(t, "abc", ck.Value)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	client.SetCookies([]*http.Cookie{{Name: "session_id", Value: "abc"}})
	_, err := client.SearchRead(context.Background(), "mail.message", nil, []string{"id"})
	assert.NoError(t, err)
}
