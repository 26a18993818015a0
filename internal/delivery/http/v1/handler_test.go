package v1

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-boards/internal/cache"
	"github.com/adanyl0v/go-boards/internal/services"
	"github.com/adanyl0v/go-boards/internal/storage/sqlite"
)

const (
	testIssuer     = "go-boards-test"
	testSigningKey = "test-signing-key"
)

type testServer struct {
	router http.Handler
	store  *sqlite.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := sqlite.Open(context.Background(), zerolog.Nop(), filepath.Join(t.TempDir(), "boards.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	logger := zerolog.Nop()
	nop := cache.NopBoardCache{}
	h := New(
		logger,
		store,
		services.NewBoardService(logger, store, nop),
		services.NewOrderService(logger, store, nop),
		services.NewSubtaskService(logger, store, nop),
		testIssuer,
		testSigningKey,
	)

	router := gin.New()
	router.Use(h.HandleRequestID, h.HandleRequestLogger, gin.Recovery())
	RegisterRoutes(router, h)
	return &testServer{router: router, store: store}
}

func signToken(t *testing.T, subject, issuer string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		if payload, err = sonic.Marshal(b); err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := sonic.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
}

type ids struct {
	board int64
	lists []int64
	cards []int64
}

// seedBoard creates a board with lists L1=[A B C] and L2=[D].
func (s *testServer) seedBoard(t *testing.T, token string) ids {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/v1/boards", token, gin.H{"title": "board"})
	expectStatus(t, rec, http.StatusCreated)
	board := decode[boardResponse](t, rec)

	out := ids{board: board.ID}
	for _, l := range []struct {
		title string
		cards []string
	}{
		{title: "L1", cards: []string{"A", "B", "C"}},
		{title: "L2", cards: []string{"D"}},
	} {
		rec = s.do(t, http.MethodPost, "/api/v1/boards/"+strconv.FormatInt(board.ID, 10)+"/lists", token, gin.H{"title": l.title})
		expectStatus(t, rec, http.StatusCreated)
		list := decode[listResponse](t, rec)
		out.lists = append(out.lists, list.ID)

		for _, title := range l.cards {
			rec = s.do(t, http.MethodPost, "/api/v1/lists/"+strconv.FormatInt(list.ID, 10)+"/cards", token, gin.H{"title": title})
			expectStatus(t, rec, http.StatusCreated)
			out.cards = append(out.cards, decode[cardResponse](t, rec).ID)
		}
	}
	return out
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    testIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte(testSigningKey))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing", header: ""},
		{name: "not bearer", header: "Basic abc"},
		{name: "garbage", header: "Bearer abc"},
		{name: "wrong issuer", header: "Bearer " + signToken(t, "user-1", "someone-else")},
		{name: "no subject", header: "Bearer " + signToken(t, "", testIssuer)},
		{name: "expired", header: "Bearer " + expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/boards", bytes.NewReader([]byte(`{"title":"x"}`)))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)
			expectStatus(t, rec, http.StatusUnauthorized)
		})
	}
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}
}

func TestBoardLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1", testIssuer)
	seeded := s.seedBoard(t, token)
	boardPath := "/api/v1/boards/" + strconv.FormatInt(seeded.board, 10)

	rec := s.do(t, http.MethodGet, boardPath, token, nil)
	expectStatus(t, rec, http.StatusOK)
	view := decode[boardViewResponse](t, rec)
	if view.Title != "board" || len(view.Lists) != 2 {
		t.Fatalf("unexpected board: %s", rec.Body.String())
	}
	if len(view.Lists[0].Cards) != 3 || view.Lists[0].Cards[2].Order != 2 || view.Lists[0].Cards[0].Status != "todo" {
		t.Fatalf("unexpected first list: %s", rec.Body.String())
	}

	rec = s.do(t, http.MethodDelete, "/api/v1/cards/"+strconv.FormatInt(seeded.cards[0], 10), token, nil)
	expectStatus(t, rec, http.StatusNoContent)
	rec = s.do(t, http.MethodDelete, "/api/v1/lists/"+strconv.FormatInt(seeded.lists[1], 10), token, nil)
	expectStatus(t, rec, http.StatusNoContent)

	rec = s.do(t, http.MethodGet, boardPath, token, nil)
	expectStatus(t, rec, http.StatusOK)
	view = decode[boardViewResponse](t, rec)
	if len(view.Lists) != 1 || len(view.Lists[0].Cards) != 2 {
		t.Fatalf("unexpected board after deletes: %s", rec.Body.String())
	}

	rec = s.do(t, http.MethodDelete, boardPath, token, nil)
	expectStatus(t, rec, http.StatusNoContent)
	rec = s.do(t, http.MethodGet, boardPath, token, nil)
	expectStatus(t, rec, http.StatusForbidden)
}

func TestCreateCardBinding(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1", testIssuer)
	seeded := s.seedBoard(t, token)
	path := "/api/v1/lists/" + strconv.FormatInt(seeded.lists[0], 10) + "/cards"

	rec := s.do(t, http.MethodPost, path, token, gin.H{
		"title":    "full",
		"status":   "done",
		"priority": 2,
		"due_date": "2026-03-01T12:00:00Z",
		"emotion":  "proud",
	})
	expectStatus(t, rec, http.StatusCreated)
	card := decode[cardResponse](t, rec)
	if card.Order != 3 || card.Status != "done" || card.Priority != 2 || card.Emotion == nil || *card.Emotion != "proud" {
		t.Fatalf("unexpected card: %s", rec.Body.String())
	}

	for _, body := range []any{
		gin.H{"title": ""},
		gin.H{"title": "x", "status": "later"},
		gin.H{"title": "x", "priority": 4},
		"{not json",
	} {
		rec = s.do(t, http.MethodPost, path, token, body)
		expectStatus(t, rec, http.StatusBadRequest)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/lists/abc/cards", token, gin.H{"title": "x"})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestReorderCards(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1", testIssuer)
	seeded := s.seedBoard(t, token)
	l1, l2 := seeded.lists[0], seeded.lists[1]
	a, b, c, d := seeded.cards[0], seeded.cards[1], seeded.cards[2], seeded.cards[3]

	rec := s.do(t, http.MethodPut, "/api/v1/cards/order", token, gin.H{"cards": []gin.H{
		{"id": a, "order": 0, "list_id": l1},
		{"id": c, "order": 1, "list_id": l1},
		{"id": b, "order": 0, "list_id": l2},
		{"id": d, "order": 1, "list_id": l2},
	}})
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.Len() != 0 {
		t.Fatalf("expected no payload, got %q", rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/api/v1/boards/"+strconv.FormatInt(seeded.board, 10), token, nil)
	expectStatus(t, rec, http.StatusOK)
	view := decode[boardViewResponse](t, rec)

	want := map[int64][]int64{l1: {a, c}, l2: {b, d}}
	for _, l := range view.Lists {
		var got []int64
		for _, card := range l.Cards {
			got = append(got, card.ID)
		}
		if len(got) != len(want[l.ID]) {
			t.Fatalf("list %d: expected %v, got %v", l.ID, want[l.ID], got)
		}
		for i := range got {
			if got[i] != want[l.ID][i] {
				t.Fatalf("list %d: expected %v, got %v", l.ID, want[l.ID], got)
			}
		}
	}
}

func TestReorderCardsErrors(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1", testIssuer)
	seeded := s.seedBoard(t, token)
	other := signToken(t, "user-2", testIssuer)

	tests := []struct {
		name   string
		token  string
		body   any
		status int
	}{
		{name: "empty", token: token, body: gin.H{"cards": []gin.H{}}, status: http.StatusBadRequest},
		{name: "missing cards", token: token, body: gin.H{}, status: http.StatusBadRequest},
		{name: "missing order", token: token, body: gin.H{"cards": []gin.H{{"id": seeded.cards[0], "list_id": seeded.lists[0]}}}, status: http.StatusBadRequest},
		{name: "negative order", token: token, body: gin.H{"cards": []gin.H{{"id": seeded.cards[0], "order": -1, "list_id": seeded.lists[0]}}}, status: http.StatusBadRequest},
		{name: "foreign user", token: other, body: gin.H{"cards": []gin.H{{"id": seeded.cards[0], "order": 0, "list_id": seeded.lists[0]}}}, status: http.StatusForbidden},
		{name: "unknown card", token: token, body: gin.H{"cards": []gin.H{{"id": 9999, "order": 0, "list_id": seeded.lists[0]}}}, status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPut, "/api/v1/cards/order", tt.token, tt.body)
			expectStatus(t, rec, tt.status)
			if body := decode[gin.H](t, rec); body["error"] == nil {
				t.Fatalf("expected error body, got %s", rec.Body.String())
			}
		})
	}
}

func TestReplaceSubtasks(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1", testIssuer)
	seeded := s.seedBoard(t, token)
	path := "/api/v1/cards/" + strconv.FormatInt(seeded.cards[0], 10) + "/subtasks"

	rec := s.do(t, http.MethodPost, path, token, gin.H{"title": "x"})
	expectStatus(t, rec, http.StatusCreated)
	x := decode[subtaskResponse](t, rec)

	rec = s.do(t, http.MethodPut, path, token, gin.H{"subtasks": []gin.H{
		{"title": "y", "is_completed": false},
		{"id": x.ID, "title": "x2", "is_completed": true},
	}})
	expectStatus(t, rec, http.StatusOK)
	got := decode[[]subtaskResponse](t, rec)
	if len(got) != 2 {
		t.Fatalf("expected 2 subtasks, got %s", rec.Body.String())
	}
	if got[0].ID == x.ID || got[0].Title != "y" || got[0].Order != 0 {
		t.Fatalf("unexpected first subtask: %+v", got[0])
	}
	if got[1].ID != x.ID || got[1].Title != "x2" || got[1].Order != 1 || !got[1].IsCompleted {
		t.Fatalf("unexpected second subtask: %+v", got[1])
	}

	rec = s.do(t, http.MethodGet, path, token, nil)
	expectStatus(t, rec, http.StatusOK)
	if listed := decode[[]subtaskResponse](t, rec); len(listed) != 2 {
		t.Fatalf("expected 2 stored subtasks, got %s", rec.Body.String())
	}

	rec = s.do(t, http.MethodPut, path, token, gin.H{"subtasks": []gin.H{}})
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "[]" {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}

func TestReplaceSubtasksErrors(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1", testIssuer)
	seeded := s.seedBoard(t, token)
	path := "/api/v1/cards/" + strconv.FormatInt(seeded.cards[0], 10) + "/subtasks"

	tests := []struct {
		name   string
		token  string
		body   any
		status int
	}{
		{name: "missing array", token: token, body: gin.H{}, status: http.StatusBadRequest},
		{name: "null array", token: token, body: `{"subtasks":null}`, status: http.StatusBadRequest},
		{name: "blank title", token: token, body: gin.H{"subtasks": []gin.H{{"title": ""}}}, status: http.StatusBadRequest},
		{name: "whitespace title", token: token, body: gin.H{"subtasks": []gin.H{{"title": "   "}}}, status: http.StatusBadRequest},
		{name: "duplicate ids", token: token, body: gin.H{"subtasks": []gin.H{{"id": 1, "title": "a"}, {"id": 1, "title": "b"}}}, status: http.StatusBadRequest},
		{name: "foreign user", token: signToken(t, "user-2", testIssuer), body: gin.H{"subtasks": []gin.H{}}, status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPut, path, tt.token, tt.body)
			expectStatus(t, rec, tt.status)
		})
	}
}

func TestStorageFailure(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1", testIssuer)

	if err := s.store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	rec := s.do(t, http.MethodPost, "/api/v1/boards", token, gin.H{"title": "x"})
	expectStatus(t, rec, http.StatusInternalServerError)
	if body := decode[gin.H](t, rec); body["error"] != http.StatusText(http.StatusInternalServerError) {
		t.Fatalf("expected generic error, got %s", rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/healthz", "", nil)
	expectStatus(t, rec, http.StatusServiceUnavailable)
}

type ctxKey struct{}

type recordingPinger struct {
	ctx context.Context
}

func (p *recordingPinger) Ping(ctx context.Context) error {
	p.ctx = ctx
	return nil
}

func TestHandlersUseRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	pinger := &recordingPinger{}
	h := New(zerolog.Nop(), pinger, nil, nil, nil, testIssuer, testSigningKey)
	router := gin.New()
	RegisterRoutes(router, h)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req = req.WithContext(context.WithValue(req.Context(), ctxKey{}, "request"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK)

	// gin recycles its contexts once the handler returns
	if _, ok := pinger.ctx.(*gin.Context); ok {
		t.Fatal("expected the request context, got the gin context")
	}
	if pinger.ctx.Value(ctxKey{}) != "request" {
		t.Fatal("expected the request context to reach the pinger")
	}
}

func TestCanceledRequestStopsStorage(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1", testIssuer)
	seed := s.seedBoard(t, token)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/boards/"+strconv.FormatInt(seed.board, 10), nil)
	req = req.WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	expectStatus(t, rec, http.StatusInternalServerError)
}

func TestConcurrentRequests(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1", testIssuer)
	seed := s.seedBoard(t, token)
	path := "/api/v1/boards/" + strconv.FormatInt(seed.board, 10)

	var wg sync.WaitGroup
	codes := make([]int, 16)
	for i := range codes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}()
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
}
