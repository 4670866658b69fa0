package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"winetopia_backend/internal/accounts"
	"winetopia_backend/internal/events"
	"winetopia_backend/internal/identity"
	"winetopia_backend/platform/httpkit"
	"winetopia_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type countingStore struct {
	accounts.Store
	lookups atomic.Int32
}

func (s *countingStore) Get(ctx context.Context, ticketNumber string) accounts.LookupResult {
	s.lookups.Add(1)
	return s.Store.Get(ctx, ticketNumber)
}

type recordingArchive struct {
	mu     sync.Mutex
	bodies [][]byte
	err    error
	// hang blocks Store until its context is done.
	hang bool
}

func (a *recordingArchive) Store(ctx context.Context, source string, body []byte) (string, error) {
	a.mu.Lock()
	a.bodies = append(a.bodies, body)
	a.mu.Unlock()
	if a.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if a.err != nil {
		return "", a.err
	}
	return source + "/key.json", nil
}

func (a *recordingArchive) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.bodies)
}

type handlerFixture struct {
	router   *gin.Engine
	service  *Service
	store    *countingStore
	archive  *recordingArchive
	notifier *recordingNotifier
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	bus := events.NewInMemoryBus(log)
	f := &handlerFixture{
		store:    &countingStore{Store: accounts.NewMemoryStore()},
		archive:  &recordingArchive{},
		notifier: &recordingNotifier{},
	}
	engine := NewEngine(f.store, identity.NewMemoryProvider(bus, "initial-secret"), f.notifier, bus, log)
	f.service = NewService(newTestValidator(), engine, f.store, f.archive, log)
	f.router = newTestRouter(f.service, log)
	t.Cleanup(bus.Wait)
	return f
}

func newTestRouter(svc *Service, log *logger.Logger) *gin.Engine {
	h := NewHandler(svc, log)
	router := gin.New()
	router.POST("/webhook/flicket", h.HandleFlicketWebhook)
	router.GET("/admin/accounts/:ticketNumber", func(c *gin.Context) {
		c.Set(httpkit.ContextSubjectKey, "admin-1")
		c.Set(httpkit.ContextRolesKey, []string{"admin"})
		c.Next()
	}, h.HandleGetAccount)
	return router
}

func postWebhook(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/flicket", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func (f *handlerFixture) post(body string) *httptest.ResponseRecorder {
	return postWebhook(f.router, body)
}

// expectStatus asserts a 200 carrying the given status string.
func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var resp httpkit.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	if resp.Status != want {
		t.Fatalf("expected status %q, got %q", want, resp.Status)
	}
}

func validBody(barcode, tier, email string) string {
	return `{"event_id":"` + testEventID + `","ticket_type":"` + tier + `","barcode":"` + barcode + `",` +
		`"ticket_holder_details":{"email":"` + email + `","first_name":"Ana","last_name":"Smith","cell_phone":"021 123 4567"}}`
}

func TestWebhookParseFailureReturns400(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.post(`{"event_id":`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if n := f.store.lookups.Load(); n != 0 {
		t.Fatalf("expected no lookups, got %d", n)
	}
	if n := f.archive.count(); n != 1 {
		t.Fatalf("expected the raw body to be archived before parsing, got %d bodies", n)
	}
}

func TestWebhookForOtherEventDoesNoLookups(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.post(`{"event_id":"another-event","ticket_type":"premium","barcode":"T1","ticket_holder_details":{"email":"a@x.com"}}`)

	expectStatus(t, rec, "not_for_event")
	if n := f.store.lookups.Load(); n != 0 {
		t.Fatalf("expected no lookups, got %d", n)
	}
}

func TestWebhookMistypedMembersAreRejectionsNot400(t *testing.T) {
	f := newHandlerFixture(t)

	cases := []struct {
		body string
		want string
	}{
		{`{"event_id":"another-event","ticket_type":{"name":"VIP"},"barcode":123}`, "not_for_event"},
		{`{"event_id":"another-event","ticket_holder_details":"n/a"}`, "not_for_event"},
		{`{"event_id":"` + testEventID + `","ticket_holder_details":null,"barcode":true}`, "missing_ticket_holder_details"},
		{`{"event_id":"` + testEventID + `","ticket_holder_details":{"email":"a@x.com"},"ticket_type":["premium"],"barcode":"T1"}`, "missing_ticket_type"},
	}
	for _, tc := range cases {
		expectStatus(t, f.post(tc.body), tc.want)
	}
	if n := f.store.lookups.Load(); n != 0 {
		t.Fatalf("expected no lookups for rejected payloads, got %d", n)
	}
}

func TestWebhookValidationRejectionsReturn200(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.post(`{"event_id":"` + testEventID + `","ticket_holder_details":{"email":"a@x.com"},"ticket_type":"premium"}`)

	expectStatus(t, rec, "missing_barcode")
	if n := f.store.lookups.Load(); n != 0 {
		t.Fatalf("expected no lookups, got %d", n)
	}
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	f := newHandlerFixture(t)
	padding := strings.Repeat("x", maxWebhookBodyBytes)

	rec := f.post(`{"event_id":"` + testEventID + `","padding":"` + padding + `"}`)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	if n := f.archive.count(); n != 0 {
		t.Fatalf("expected oversized body not to be archived, got %d", n)
	}
}

func TestWebhookAcceptsBodyAtLimit(t *testing.T) {
	f := newHandlerFixture(t)
	prefix := `{"event_id":"another-event","padding":"`
	suffix := `"}`
	body := prefix + strings.Repeat("x", maxWebhookBodyBytes-len(prefix)-len(suffix)) + suffix

	expectStatus(t, f.post(body), "not_for_event")
}

func TestWebhookReconcilePaths(t *testing.T) {
	f := newHandlerFixture(t)

	steps := []struct {
		body string
		want string
	}{
		{validBody("T1", "standard", "a@x.com"), "new"},
		{validBody("T1", "standard", "a@x.com"), "detail_update"},
		{validBody("T1", "premium", "a@x.com"), "upgrade"},
		{validBody("T1", "premium", "b@x.com"), "reassignment"},
		{validBody("T2", "standard", "b@x.com"), "email_already_used"},
	}
	for _, step := range steps {
		expectStatus(t, f.post(step.body), step.want)
	}

	res := f.store.Store.Get(context.Background(), "T1")
	if res.Status != accounts.LookupFound {
		t.Fatalf("expected T1 to exist, got %s", res.Status)
	}
	if res.Account.SilverToken != 10 || res.Account.GoldToken != 1 || res.Account.Email != "b@x.com" {
		t.Fatalf("unexpected final account %+v", res.Account)
	}
	if n := f.notifier.count("email_already_used"); n != 1 {
		t.Fatalf("expected one email_already_used notification, got %d", n)
	}
}

func TestWebhookArchiveFailureDoesNotBlockProcessing(t *testing.T) {
	f := newHandlerFixture(t)
	f.archive.err = errors.New("bucket unavailable")

	expectStatus(t, f.post(validBody("T1", "premium", "a@x.com")), "new")
}

func TestWebhookSlowArchiveIsBounded(t *testing.T) {
	f := newHandlerFixture(t)
	f.archive.hang = true
	f.service.archiveTimeout = 20 * time.Millisecond

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- f.post(validBody("T1", "premium", "a@x.com")) }()

	select {
	case rec := <-done:
		expectStatus(t, rec, "new")
	case <-time.After(2 * time.Second):
		t.Fatal("webhook response waited on a hung archive")
	}
}

func TestWebhookCollaboratorFailureStill200(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	bus := events.NewInMemoryBus(log)
	store := &flakyStore{Store: accounts.NewMemoryStore(), getErr: errors.New("timeout")}
	engine := NewEngine(store, identity.NewMemoryProvider(bus, "initial-secret"), &recordingNotifier{}, bus, log)
	router := newTestRouter(NewService(newTestValidator(), engine, store, nil, log), log)

	expectStatus(t, postWebhook(router, validBody("T1", "premium", "a@x.com")), "failed")
}

func TestGetAccount(t *testing.T) {
	f := newHandlerFixture(t)
	expectStatus(t, f.post(validBody("T1", "premium", "a@x.com")), "new")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/accounts/T1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got accounts.Account
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if got.TicketNumber != "T1" || got.TicketType != accounts.TicketTypePremium || got.SilverToken != 10 {
		t.Fatalf("unexpected account %+v", got)
	}

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/accounts/T9", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown ticket, got %d", rec.Code)
	}
}

// silentFailStore reports a lookup error without a cause.
type silentFailStore struct {
	accounts.Store
}

func (silentFailStore) Get(context.Context, string) accounts.LookupResult {
	return accounts.LookupResult{Status: accounts.LookupError}
}

func TestGetAccountLookupFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	bus := events.NewInMemoryBus(log)
	identities := identity.NewMemoryProvider(bus, "initial-secret")

	cases := []struct {
		name  string
		store accounts.Store
		want  int
	}{
		{"store error", &flakyStore{Store: accounts.NewMemoryStore(), getErr: errors.New("timeout")}, http.StatusServiceUnavailable},
		{"error without cause", silentFailStore{Store: accounts.NewMemoryStore()}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := NewEngine(tc.store, identities, &recordingNotifier{}, bus, log)
			router := newTestRouter(NewService(newTestValidator(), engine, tc.store, nil, log), log)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/accounts/T1", nil))
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}
