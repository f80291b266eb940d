package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/decks/internal/auth"
	"github.com/MarcoPoloResearchLab/decks/internal/catalog"
	"github.com/MarcoPoloResearchLab/decks/internal/deck"
	"github.com/MarcoPoloResearchLab/decks/internal/preferences"
	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSigningSecret     = "test-signing-secret"
	testViewerCookieName  = "decks_viewer"
	testProfileCookieName = "decks_profile"
)

type sequenceIDs struct {
	mu    sync.Mutex
	ids   []string
	index int
}

func (s *sequenceIDs) NewID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index >= len(s.ids) {
		return "", errors.New("exhausted ids")
	}
	id := s.ids[s.index]
	s.index++
	return id, nil
}

type recordingTracker struct {
	mu     sync.Mutex
	events []deck.ViewEventInput
	reject bool
}

func (r *recordingTracker) Track(event deck.ViewEventInput) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject {
		return false
	}
	r.events = append(r.events, event)
	return true
}

func (r *recordingTracker) recorded() []deck.ViewEventInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]deck.ViewEventInput(nil), r.events...)
}

type testEnv struct {
	handler  http.Handler
	service  *deck.Service
	issuer   *auth.TokenIssuer
	tracker  *recordingTracker
	realtime *RealtimeDispatcher
}

func newTestEnv(t *testing.T, slideIDs []string, linkIDs ...string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "server.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	models := append(deck.Models(), &preferences.Preference{})
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo, err := deck.NewGormRepository(db)
	if err != nil {
		t.Fatalf("failed to build repository: %v", err)
	}
	slides := make([]catalog.Slide, 0, len(slideIDs))
	for _, id := range slideIDs {
		slides = append(slides, catalog.Slide{ID: id, Layout: catalog.LayoutBullets, Title: "Slide " + id, Bullets: []string{"one", "two"}})
	}
	slideCatalog, err := catalog.New(slides)
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	service, err := deck.NewService(deck.ServiceConfig{
		Repository:     repo,
		Catalog:        slideCatalog,
		IDProvider:     deck.NewUUIDProvider(),
		LinkIDProvider: &sequenceIDs{ids: linkIDs},
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{SigningSecret: []byte(testSigningSecret), TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("failed to build issuer: %v", err)
	}
	sessions, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(testSigningSecret),
		CookieName:    testViewerCookieName,
	})
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}
	store, err := preferences.NewGormStore(db)
	if err != nil {
		t.Fatalf("failed to build preference store: %v", err)
	}

	tracker := &recordingTracker{}
	realtime := NewRealtimeDispatcher()
	handler, err := NewHTTPHandler(Dependencies{
		DeckService:       service,
		TokenIssuer:       issuer,
		Sessions:          sessions,
		Preferences:       store,
		Tracker:           tracker,
		Realtime:          realtime,
		ProfileCookieName: testProfileCookieName,
		HeartbeatInterval: time.Hour,
		Logger:            zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}
	return &testEnv{handler: handler, service: service, issuer: issuer, tracker: tracker, realtime: realtime}
}

func (e *testEnv) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var request *http.Request
	if body == "" {
		request = httptest.NewRequest(method, path, http.NoBody)
	} else {
		request = httptest.NewRequest(method, path, strings.NewReader(body))
		request.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	e.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}

func expectStatus(t *testing.T, recorder *httptest.ResponseRecorder, want int) {
	t.Helper()
	if recorder.Code != want {
		t.Fatalf("unexpected status: got %d want %d (body %s)", recorder.Code, want, recorder.Body.String())
	}
}

func responseCookie(recorder *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

type slideIDsPayload struct {
	Slides []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"slides"`
	GraveyardIndex int `json:"graveyard_index"`
}

func (p slideIDsPayload) ids() []string {
	ids := make([]string, 0, len(p.Slides))
	for _, slide := range p.Slides {
		ids = append(ids, slide.ID)
	}
	return ids
}

func assertStrings(t *testing.T, got, want []string) {
	t.Helper()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", got, want)
	}
}
