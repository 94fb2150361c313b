package turn

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestValidate(t *testing.T) {
	t.Parallel()

	approve := ActionApprove
	bogus := Action("maybe")
	empty := "   "
	text := "hello"

	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{name: "text", req: TextRequest("session-1", "hello")},
		{name: "decision", req: DecisionRequest("session-1", ActionReject)},
		{name: "missing token", req: Request{Message: &text}, wantErr: true},
		{name: "neither", req: Request{SessionToken: "s"}, wantErr: true},
		{name: "both", req: Request{SessionToken: "s", Message: &text, Action: &approve}, wantErr: true},
		{name: "blank text", req: Request{SessionToken: "s", Message: &empty}, wantErr: true},
		{name: "unknown action", req: Request{SessionToken: "s", Action: &bogus}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.req.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRequestEncodesAbsentFieldAsNull(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(DecisionRequest("session-1", ActionApprove))
	require.NoError(t, err)
	assert.JSONEq(t, `{"session_token":"session-1","message":null,"action":"approve"}`, string(raw))

	raw, err = json.Marshal(TextRequest("session-1", "track parcel 12345"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"session_token":"session-1","message":"track parcel 12345","action":null}`, string(raw))
}

func TestResponsePendingCallSurfacesOnlyFirst(t *testing.T) {
	t.Parallel()

	resp := Response{
		IsPending: true,
		ToolCalls: []ToolCall{
			{Name: "create_investigation_report", Args: map[string]any{"destination": "Sapporo"}},
			{Name: "search_slip_info", Args: map[string]any{"slip_id": "12345"}},
		},
	}
	call, ok := resp.PendingCall()
	require.True(t, ok)
	assert.Equal(t, "create_investigation_report", call.Name)

	resp.IsPending = false
	_, ok = resp.PendingCall()
	assert.False(t, ok)

	_, ok = Response{IsPending: true}.PendingCall()
	assert.False(t, ok)
}

func TestIsConfirmPlaceholderMatchesExactly(t *testing.T) {
	t.Parallel()

	assert.True(t, IsConfirmPlaceholder(ConfirmPlaceholder))
	assert.False(t, IsConfirmPlaceholder(" "+ConfirmPlaceholder))
	assert.False(t, IsConfirmPlaceholder(ConfirmPlaceholder+"\n"))
	assert.False(t, IsConfirmPlaceholder("Please "+ConfirmPlaceholder))
	assert.False(t, IsConfirmPlaceholder(""))
}

func TestClientSendPostsTurnAndDecodesReply(t *testing.T) {
	t.Parallel()

	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"content": "please confirm this action",
			"is_pending": true,
			"tool_calls": [{"name": "create_investigation_report", "args": {"destination": "Sapporo"}}]
		}`)
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL + "/"})
	require.NoError(t, err)

	resp, err := client.Send(context.Background(), TextRequest("session-abc", "create report for Sapporo"))
	require.NoError(t, err)

	require.NotNil(t, got.Message)
	assert.Equal(t, "session-abc", got.SessionToken)
	assert.Equal(t, "create report for Sapporo", *got.Message)
	assert.Nil(t, got.Action)

	require.NotNil(t, resp.Content)
	assert.True(t, IsConfirmPlaceholder(*resp.Content))
	assert.True(t, resp.IsPending)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "Sapporo", resp.ToolCalls[0].Args["destination"])
}

func TestClientSendReportsStatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "error field", body: `{"error":"thread is awaiting a decision"}`, wantMsg: "thread is awaiting a decision"},
		{name: "detail field", body: `{"detail":"Internal Server Error"}`, wantMsg: "Internal Server Error"},
		{name: "plain text", body: "upstream down", wantMsg: "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusConflict)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client, err := NewClient(ClientConfig{BaseURL: server.URL})
			require.NoError(t, err)

			_, err = client.Send(context.Background(), DecisionRequest("session-abc", ActionApprove))
			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr), "error = %v", err)
			assert.Equal(t, http.StatusConflict, statusErr.StatusCode)
			assert.Equal(t, tt.wantMsg, statusErr.Message)
		})
	}
}

func TestClientSendRejectsInvalidRequestWithoutNetwork(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Send(context.Background(), Request{SessionToken: "s"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Zero(t, calls)
}

func TestClientRecords(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/records", r.URL.Path)
		_, _ = io.WriteString(w, `{"records":[{"id":"12345","origin":"Tokyo","destination":"Nagoya","status":"done","note":"precision equipment"}]}`)
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	require.NoError(t, err)

	records, err := client.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "12345", records[0].ID)
	assert.Equal(t, "Nagoya", records[0].Destination)
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient(ClientConfig{})
	require.ErrorIs(t, err, ErrBaseURLRequired)

	_, err = NewClient(ClientConfig{BaseURL: "ftp://example.com"})
	require.Error(t, err)

	client, err := NewClient(ClientConfig{BaseURL: " http://localhost:8000/ "})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", client.BaseURL())
}
