package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"

	"github.com/masumkhan081/socket-talk/internal/api"
	myMiddleware "github.com/masumkhan081/socket-talk/internal/middleware"
)

func authedRequest(method, target, body string, userID int64, params map[string]string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, myMiddleware.UserKey, userID)
	return req.WithContext(ctx)
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) api.Response {
	t.Helper()
	var res api.Response
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return res
}

// A non-participant must not learn whether the conversation exists, so
// both message endpoints answer not-found rather than forbidden.
func TestListMessagesHidesConversationFromNonParticipant(t *testing.T) {
	svc, mock := newTestService(t)
	h := NewHandler(svc, nil)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	rr := httptest.NewRecorder()
	h.ListMessages(rr, authedRequest(http.MethodGet, "/api/chat/conversations/7/messages", "", 1,
		map[string]string{"conversationId": "7"}))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	res := decodeEnvelope(t, rr)
	if res.Success || res.Message != "Conversation not found" {
		t.Fatalf("envelope = %+v, want not-found failure", res)
	}
}

func TestSendMessageHidesConversationFromNonParticipant(t *testing.T) {
	svc, mock := newTestService(t)
	h := NewHandler(svc, nil)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	rr := httptest.NewRecorder()
	h.SendMessage(rr, authedRequest(http.MethodPost, "/api/chat/conversations/7/messages",
		`{"content":"hello"}`, 1, map[string]string{"conversationId": "7"}))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	res := decodeEnvelope(t, rr)
	if res.Success || res.Message != "Conversation not found" {
		t.Fatalf("envelope = %+v, want not-found failure", res)
	}
}
