package deck

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/decks/internal/catalog"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type staticIDGenerator struct {
	ids   []string
	index int
}

func (g *staticIDGenerator) NewID() (string, error) {
	if g.index >= len(g.ids) {
		return "", errors.New("exhausted ids")
	}
	id := g.ids[g.index]
	g.index++
	return id, nil
}

type steppingClock struct {
	current time.Time
}

func (c *steppingClock) Now() time.Time {
	c.current = c.current.Add(time.Second)
	return c.current
}

func newTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "deck.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestCatalog(t *testing.T, ids ...string) *catalog.Catalog {
	t.Helper()
	slides := make([]catalog.Slide, 0, len(ids))
	for _, id := range ids {
		slides = append(slides, catalog.Slide{
			ID:      id,
			Layout:  catalog.LayoutBullets,
			Title:   "Slide " + id,
			Bullets: []string{"first", "second", "third"},
		})
	}
	deck, err := catalog.New(slides)
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	return deck
}

func newTestService(t *testing.T, slideIDs []string, linkIDs []string) (*Service, *GormRepository) {
	t.Helper()
	clock := &steppingClock{current: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
	return newTestServiceWithClock(t, slideIDs, linkIDs, clock.Now)
}

func newTestServiceWithClock(t *testing.T, slideIDs []string, linkIDs []string, clock func() time.Time) (*Service, *GormRepository) {
	t.Helper()
	repo, err := NewGormRepository(newTestDatabase(t))
	if err != nil {
		t.Fatalf("failed to build repository: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Repository:     repo,
		Catalog:        newTestCatalog(t, slideIDs...),
		Clock:          clock,
		IDProvider:     &staticIDGenerator{ids: []string{"comment-1", "comment-2", "comment-3"}},
		LinkIDProvider: &staticIDGenerator{ids: linkIDs},
		Logger:         zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service, repo
}

func slideIDsOf(slides []catalog.Slide) []string {
	ids := make([]string, len(slides))
	for index, slide := range slides {
		ids[index] = slide.ID
	}
	return ids
}

func assertStrings(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for index := range want {
		if got[index] != want[index] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
