package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/triage_inbox/backend/internal/config"
	"github.com/triage_inbox/backend/internal/conversation"
	"github.com/triage_inbox/backend/internal/ingest"
	"github.com/triage_inbox/backend/internal/models"
)

const fixtureCSV = "id,time,body\n" +
	"7,2017-01-30 10:00:00,\"Hi, I need help\"\n" +
	"8,2017-01-30 11:00:00,my loan was rejected\n" +
	"8,2017-01-30 12:00:00,waiting for the money\n" +
	"broken\n"

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func newTestRouter(t *testing.T) (*gin.Engine, *conversation.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := conversation.New()
	if err := store.Load(ingest.Parse(fixtureCSV)); err != nil {
		t.Fatalf("load: %v", err)
	}
	h := &Handler{
		Store:          store,
		Validator:      validator.New(),
		Logger:         zerolog.Nop(),
		Directory:      config.DefaultDirectory(),
		DefaultAgentID: "agent_1",
	}
	r := gin.New()
	r.GET("/healthz", h.Healthz)
	r.GET("/api/inbox", h.Inbox)
	r.GET("/api/conversations/:userId", h.Conversation)
	r.POST("/api/conversations/:userId/messages", h.AppendMessage)
	r.POST("/api/conversations/:userId/resolve", h.ResolveConversation)
	r.POST("/api/messages/:id/read", h.MarkAsRead)
	r.POST("/api/messages/:id/resolve", h.ResolveMessage)
	r.GET("/api/agents", h.AgentsList)
	r.POST("/api/import", h.Import)
	return r, store
}

func do(t *testing.T, r *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

type inboxResponse struct {
	Items  []InboxItem     `json:"items"`
	Total  int             `json:"total"`
	Unread int             `json:"unread"`
	Stages map[string]int  `json:"stages"`
	Error  json.RawMessage `json:"error"`
}

func TestInboxDefaultsToOpenByUrgency(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/api/inbox", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp inboxResponse
	decode(t, w, &resp)
	if resp.Total != 3 || resp.Unread != 3 {
		t.Fatalf("unexpected counts %+v", resp)
	}
	// msg_2 and msg_3 tie on urgency; the later one wins.
	if resp.Items[0].ID != "msg_3" || resp.Items[1].ID != "msg_2" || resp.Items[0].UrgencyLevel != "high" {
		t.Fatalf("unexpected order %+v", resp.Items)
	}
	if resp.Items[0].CustomerName != "Customer 8" {
		t.Fatalf("unexpected customer name %q", resp.Items[0].CustomerName)
	}
	if resp.Stages["all"] != 3 {
		t.Fatalf("unexpected stages %+v", resp.Stages)
	}
}

func TestInboxSearchAndSort(t *testing.T) {
	r, _ := newTestRouter(t)
	var resp inboxResponse
	decode(t, do(t, r, http.MethodGet, "/api/inbox?q=customer+8&sort=oldest", nil), &resp)
	if resp.Total != 2 || resp.Items[0].ID != "msg_2" || resp.Items[1].ID != "msg_3" {
		t.Fatalf("unexpected items %+v", resp.Items)
	}
}

func TestInboxRejectsUnknownSort(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/api/inbox?sort=random", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestConversationTranscriptAndNotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/api/conversations/8", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var view ConversationView
	decode(t, w, &view)
	if !view.IsOpen || len(view.Messages) != 2 || view.Messages[0].ID != "msg_2" {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Profile.UserID != "8" || view.Profile.RiskTier != models.RiskMedium {
		t.Fatalf("unexpected profile %+v", view.Profile)
	}

	w = do(t, r, http.MethodGet, "/api/conversations/404", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAppendOutboundUsesDefaultAgent(t *testing.T) {
	r, store := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/conversations/8/messages", []byte(`{"body":"We are looking into it","direction":"outbound"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var msg models.Message
	decode(t, w, &msg)
	if msg.AgentID == nil || *msg.AgentID != "agent_1" || !msg.IsRead || msg.UrgencyScore != 0 {
		t.Fatalf("unexpected outbound message %+v", msg)
	}
	if store.Len() != 4 {
		t.Fatalf("expected 4 messages, got %d", store.Len())
	}
}

func TestAppendInboundCreatesProfile(t *testing.T) {
	r, store := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/conversations/55/messages", []byte(`{"body":"someone used my I.D","agent_id":"ignored"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var msg models.Message
	decode(t, w, &msg)
	if msg.Direction != models.DirectionInbound || msg.UrgencyScore != 90 || msg.AgentID != nil || msg.IsRead {
		t.Fatalf("unexpected inbound message %+v", msg)
	}
	if _, ok := store.Profile("55"); !ok {
		t.Fatalf("expected profile for new customer")
	}
}

func TestAppendValidation(t *testing.T) {
	r, store := newTestRouter(t)
	for _, body := range []string{`{"body":""}`, `{"body":"   "}`, `{"body":"hi","direction":"sideways"}`} {
		w := do(t, r, http.MethodPost, "/api/conversations/8/messages", []byte(body))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, w.Code)
		}
		var resp struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		decode(t, w, &resp)
		if resp.Error.Code != "VALIDATION_ERROR" {
			t.Fatalf("%s: expected VALIDATION_ERROR, got %q", body, resp.Error.Code)
		}
	}
	if store.Len() != 3 {
		t.Fatalf("rejected appends must not reach the store")
	}
}

func TestResolveConversationAndMessage(t *testing.T) {
	r, _ := newTestRouter(t)
	var res struct {
		Resolved int  `json:"resolved"`
		IsOpen   bool `json:"is_open"`
		Changed  bool `json:"changed"`
	}
	decode(t, do(t, r, http.MethodPost, "/api/messages/msg_2/resolve", nil), &res)
	if !res.Changed {
		t.Fatalf("expected message resolve to change state")
	}
	decode(t, do(t, r, http.MethodPost, "/api/conversations/8/resolve", nil), &res)
	if res.Resolved != 1 || res.IsOpen {
		t.Fatalf("unexpected resolve result %+v", res)
	}

	var inbox inboxResponse
	decode(t, do(t, r, http.MethodGet, "/api/inbox?status=resolved", nil), &inbox)
	if inbox.Total != 2 {
		t.Fatalf("expected 2 resolved, got %d", inbox.Total)
	}
}

func TestMarkAsReadNoopOnUnknown(t *testing.T) {
	r, _ := newTestRouter(t)
	var res struct {
		Changed bool `json:"changed"`
	}
	w := do(t, r, http.MethodPost, "/api/messages/unknown/read", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	decode(t, w, &res)
	if res.Changed {
		t.Fatalf("expected no-op")
	}
	decode(t, do(t, r, http.MethodPost, "/api/messages/msg_1/read", nil), &res)
	if !res.Changed {
		t.Fatalf("expected mark to change state")
	}
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)
	if w := do(t, r, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	gin.SetMode(gin.TestMode)
	h := &Handler{Store: conversation.New(), DB: fakePinger{err: errors.New("down")}, Logger: zerolog.Nop()}
	e := gin.New()
	e.GET("/healthz", h.Healthz)
	if w := do(t, e, http.MethodGet, "/healthz", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func postImport(t *testing.T, r *gin.Engine, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("messages", "batch.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req, _ := http.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestImportKeepsLiveMessagesAndState(t *testing.T) {
	r, store := newTestRouter(t)
	live := store.Append("8", "still waiting", models.DirectionInbound, nil)
	if w := do(t, r, http.MethodPost, "/api/messages/msg_1/resolve", nil); w.Code != http.StatusOK {
		t.Fatalf("resolve: expected 200, got %d", w.Code)
	}

	w := postImport(t, r, "id,time,body\n9,2017-02-01 09:00:00,clearance letter\nbad\n")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var summary ImportSummary
	decode(t, w, &summary)
	if summary.Parsed != 1 || summary.Dropped != 1 || summary.Messages != 5 || len(summary.Imported) != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Imported[0] == "msg_1" {
		t.Fatalf("import reused id msg_1")
	}

	msgs, _ := store.Snapshot()
	seen := map[string]models.Message{}
	for _, m := range msgs {
		if _, dup := seen[m.ID]; dup {
			t.Fatalf("duplicate id %s", m.ID)
		}
		seen[m.ID] = m
	}
	if _, ok := seen[live.ID]; !ok {
		t.Fatalf("live message %s lost on import", live.ID)
	}
	if seen["msg_1"].Status != models.StatusResolved {
		t.Fatalf("msg_1 lost resolved state: %+v", seen["msg_1"])
	}
	if seen[summary.Imported[0]].UserID != "9" {
		t.Fatalf("imported message not stored: %+v", seen[summary.Imported[0]])
	}
}

func TestImportRequiresCSV(t *testing.T) {
	r, _ := newTestRouter(t)
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, _ := writer.CreateFormFile("messages", "batch.txt")
	_, _ = part.Write([]byte("id,time,body\n"))
	_ = writer.Close()

	req, _ := http.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAgentsList(t *testing.T) {
	r, _ := newTestRouter(t)
	var resp struct {
		Items []models.Agent `json:"items"`
	}
	decode(t, do(t, r, http.MethodGet, "/api/agents", nil), &resp)
	if len(resp.Items) == 0 || resp.Items[0].ID != "agent_1" {
		t.Fatalf("unexpected agents %+v", resp.Items)
	}
}
