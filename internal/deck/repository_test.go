package deck

import (
	"context"
	"testing"
)

func TestGormRepositoryKeepsLatestEditPerField(t *testing.T) {
	repo, err := NewGormRepository(newTestDatabase(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	if err := repo.SaveSlideEdit(ctx, SlideEdit{SlideID: "slide1", FieldPath: "title", ValueJSON: `"A"`, UpdatedAtSeconds: 1}); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if err := repo.SaveSlideEdit(ctx, SlideEdit{SlideID: "slide1", FieldPath: "title", ValueJSON: `"B"`, UpdatedAtSeconds: 2}); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	edits, err := repo.GetSlideEdits(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(edits) != 1 {
		t.Fatalf("expected a single edit for the pair, got %d", len(edits))
	}
	if edits[0].ValueJSON != `"B"` || edits[0].UpdatedAtSeconds != 2 {
		t.Fatalf("expected latest value to win, got %+v", edits[0])
	}
}

func TestGormRepositoryReplaysEditsInWriteOrder(t *testing.T) {
	repo, err := NewGormRepository(newTestDatabase(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	writes := [][]SlideEdit{
		{
			{SlideID: "s", FieldPath: "bullets.0", ValueJSON: `"x"`, UpdatedAtSeconds: 5},
			{SlideID: "s", FieldPath: "bullets", ValueJSON: `["p"]`, UpdatedAtSeconds: 5},
		},
		{
			{SlideID: "s", FieldPath: "bullets.0", ValueJSON: `"y"`, UpdatedAtSeconds: 5},
		},
	}
	for _, batch := range writes {
		if err := repo.SaveSlideEdits(ctx, batch); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	edits, err := repo.GetSlideEdits(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(edits) != 2 {
		t.Fatalf("expected 2 edits, got %d", len(edits))
	}
	if edits[0].FieldPath != "bullets" || edits[1].FieldPath != "bullets.0" || edits[1].ValueJSON != `"y"` {
		t.Fatalf("expected write order bullets then bullets.0, got %+v", edits)
	}
	if edits[0].WriteSequence >= edits[1].WriteSequence {
		t.Fatalf("expected increasing write sequence, got %d then %d", edits[0].WriteSequence, edits[1].WriteSequence)
	}
}

func TestGormRepositoryOrderRoundTrip(t *testing.T) {
	repo, err := NewGormRepository(newTestDatabase(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	order, err := repo.GetSlideOrder(ctx)
	if err != nil || order != nil {
		t.Fatalf("expected no order before first save, got %+v (%v)", order, err)
	}

	if err := repo.SaveSlideOrder(ctx, SlideOrder{SlideIDs: []string{"b", "a"}, GraveyardIndex: 1, UpdatedAtSeconds: 5}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := repo.SaveSlideOrder(ctx, SlideOrder{SlideIDs: []string{"a", "b", "c"}, GraveyardIndex: -1, UpdatedAtSeconds: 6}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	order, err = repo.GetSlideOrder(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	assertStrings(t, order.SlideIDs, "a", "b", "c")
	if order.GraveyardIndex != -1 {
		t.Fatalf("expected graveyard to be replaced, got %d", order.GraveyardIndex)
	}
}

func TestGormRepositoryUpdateUnknownShareLinkReturnsNil(t *testing.T) {
	repo, err := NewGormRepository(newTestDatabase(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	disabled := true
	updated, err := repo.UpdateShareLink(context.Background(), "missing", ShareLinkUpdate{Disabled: &disabled})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated != nil {
		t.Fatalf("expected nil link for unknown id, got %+v", updated)
	}
}

func TestGormRepositoryVisitorKeepsFirstSeen(t *testing.T) {
	repo, err := NewGormRepository(newTestDatabase(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	if err := repo.UpsertVisitor(ctx, Visitor{LinkID: "l1", Email: "a@b.co", FirstSeenAtSeconds: 10, LastSeenAtSeconds: 10}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := repo.UpsertVisitor(ctx, Visitor{LinkID: "l1", Email: "a@b.co", FirstSeenAtSeconds: 20, LastSeenAtSeconds: 20}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	visitors, err := repo.ListVisitors(ctx, "l1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(visitors) != 1 || visitors[0].FirstSeenAtSeconds != 10 || visitors[0].LastSeenAtSeconds != 20 {
		t.Fatalf("unexpected visitors %+v", visitors)
	}
	counts, err := repo.CountVisitorsByLink(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if counts["l1"] != 1 {
		t.Fatalf("expected one visitor, got %v", counts)
	}
}
