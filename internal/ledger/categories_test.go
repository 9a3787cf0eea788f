package ledger

import (
	"context"
	"errors"
	"testing"

	"ledger/internal/core"
	"ledger/internal/kv/memory"
)

func TestSeedingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	medium := memory.New()

	s, err := Open(ctx, medium)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	first, err := s.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) != 6 {
		t.Fatalf("expected 6 defaults, got %d", len(first))
	}
	for i, c := range first {
		if !c.Protected || c.ID != defaultCategories[i].ID || c.Name != defaultCategories[i].Name {
			t.Fatalf("unexpected default %d: %+v", i, c)
		}
	}

	again, err := Open(ctx, medium)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	second, _ := again.ListCategories(ctx)
	if mustJSON(t, second) != mustJSON(t, first) {
		t.Fatalf("seeding not idempotent")
	}
}

func TestSeedingRespectsEmptyCollection(t *testing.T) {
	ctx := context.Background()
	medium := memory.New()
	if err := medium.Set(ctx, KeyCategories, []byte(`[]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	s, err := Open(ctx, medium)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	cats, _ := s.ListCategories(ctx)
	if len(cats) != 0 {
		t.Fatalf("expected stored empty list to be kept, got %d", len(cats))
	}
}

func TestLegacyColorsNormalizeOnLoad(t *testing.T) {
	ctx := context.Background()
	medium := memory.New()
	raw := `[{"id":"1","name":"Food","color":"expense-red"},{"id":"x","name":"Gym","color":"Indigo"}]`
	if err := medium.Set(ctx, KeyCategories, []byte(raw)); err != nil {
		t.Fatalf("set: %v", err)
	}
	s, _ := Open(ctx, medium)
	cats, err := s.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if cats[0].Color != core.Red || cats[1].Color != core.Indigo {
		t.Fatalf("expected normalized colors, got %+v", cats)
	}
}

func TestDeleteProtectedCategory(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	before, _ := s.ListCategories(ctx)
	for _, c := range before {
		_, err := s.DeleteCategory(ctx, c.ID)
		var protected *core.ProtectedEntityError
		if !errors.As(err, &protected) || protected.Name != c.Name {
			t.Fatalf("expected protected error for %s, got %v", c.Name, err)
		}
	}
	after, _ := s.ListCategories(ctx)
	if mustJSON(t, after) != mustJSON(t, before) {
		t.Fatalf("protected delete mutated categories")
	}

	gym, err := s.AddCategory(ctx, core.Category{Name: "Gym", Color: core.Indigo})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	removed, err := s.DeleteCategory(ctx, gym.ID)
	if err != nil || !removed {
		t.Fatalf("expected user category delete, got %v %v", removed, err)
	}
	removed, err = s.DeleteCategory(ctx, "missing")
	if err != nil || removed {
		t.Fatalf("expected soft no-op, got %v %v", removed, err)
	}
}

func TestAddCategory(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	cases := []struct {
		name string
		in   core.Category
		ok   bool
	}{
		{"new name", core.Category{Name: "Gym", Color: core.Indigo}, true},
		{"trimmed and default color", core.Category{Name: "  Pets  "}, true},
		{"duplicate default", core.Category{Name: "Food", Color: core.Red}, false},
		{"duplicate after trim", core.Category{Name: " Gym ", Color: core.Red}, false},
		{"blank", core.Category{Name: "   ", Color: core.Red}, false},
		{"unknown color", core.Category{Name: "Travel", Color: "pink"}, false},
		{"protected flag ignored", core.Category{Name: "Travel", Color: core.Green, Protected: true}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.AddCategory(ctx, tc.in)
			if tc.ok {
				if err != nil {
					t.Fatalf("expected ok, got %v", err)
				}
				if got.ID == "" || got.Protected {
					t.Fatalf("unexpected stored category %+v", got)
				}
				return
			}
			if !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	cats, _ := s.ListCategories(ctx)
	last := cats[len(cats)-1]
	if last.Name != "Travel" {
		t.Fatalf("expected append order, got last %q", last.Name)
	}
	for _, c := range cats {
		if c.Name == "Pets" && c.Color != core.DefaultColor {
			t.Fatalf("expected default color, got %q", c.Color)
		}
	}
}

func TestUpdateCategory(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	gym, _ := s.AddCategory(ctx, core.Category{Name: "Gym", Color: core.Indigo})

	if ok, err := s.UpdateCategory(ctx, core.Category{ID: gym.ID, Name: "Gym", Color: core.Red}); err != nil || !ok {
		t.Fatalf("expected rename to own name accepted, got %v %v", ok, err)
	}
	if _, err := s.UpdateCategory(ctx, core.Category{ID: gym.ID, Name: "Food", Color: core.Red}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected duplicate rename rejected, got %v", err)
	}
	if ok, err := s.UpdateCategory(ctx, core.Category{ID: "missing", Name: "Nope", Color: core.Red}); err != nil || ok {
		t.Fatalf("expected soft no-op, got %v %v", ok, err)
	}

	if ok, err := s.UpdateCategory(ctx, core.Category{ID: "1", Name: "Groceries", Color: core.Green}); err != nil || !ok {
		t.Fatalf("expected default rename accepted, got %v %v", ok, err)
	}
	if _, err := s.DeleteCategory(ctx, "1"); !errors.Is(err, core.ErrProtected) {
		t.Fatalf("renamed default must stay protected, got %v", err)
	}

	cats, _ := s.ListCategories(ctx)
	if cats[0].Name != "Groceries" || cats[0].Color != core.Green || !cats[0].Protected {
		t.Fatalf("update not applied in place: %+v", cats[0])
	}
}

func TestCategoriesFor(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	exp, err := s.CategoriesFor(ctx, core.Expense)
	if err != nil {
		t.Fatalf("expense: %v", err)
	}
	if len(exp) != 5 {
		t.Fatalf("expected 5 expense categories, got %d", len(exp))
	}
	for _, c := range exp {
		if c.Name == IncomeCategory {
			t.Fatalf("income category offered for expenses")
		}
	}
	inc, _ := s.CategoriesFor(ctx, core.Income)
	if len(inc) != 1 || inc[0].ID != IncomeID {
		t.Fatalf("expected only Income, got %+v", inc)
	}
	if _, err := s.CategoriesFor(ctx, "transfer"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error for bad type, got %v", err)
	}
}

func TestLegacyDefaultsStayProtected(t *testing.T) {
	ctx := context.Background()
	medium := memory.New()
	raw := `[{"id":"1","name":"Food","color":"expense-red"},` +
		`{"id":"2","name":"Transportation","color":"expense-blue"},` +
		`{"id":"6","name":"Income","color":"expense-green"},` +
		`{"id":"7","name":"Gym","color":"expense-indigo"}]`
	if err := medium.Set(ctx, KeyCategories, []byte(raw)); err != nil {
		t.Fatalf("set: %v", err)
	}
	s, err := Open(ctx, medium)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	for _, id := range []string{"1", "6"} {
		removed, err := s.DeleteCategory(ctx, id)
		if removed || !errors.Is(err, core.ErrProtected) {
			t.Fatalf("delete %s: removed=%v err=%v, want ErrProtected", id, removed, err)
		}
	}
	cats, _ := s.ListCategories(ctx)
	if len(cats) != 4 || !cats[0].Protected || !cats[1].Protected || cats[3].Protected {
		t.Fatalf("expected defaults flagged and Gym unflagged, got %+v", cats)
	}
	if removed, err := s.DeleteCategory(ctx, "7"); !removed || err != nil {
		t.Fatalf("delete user category: removed=%v err=%v", removed, err)
	}

	// Written after Open, bypassing the upgrade.
	if err := s.SaveCategories(ctx, []core.Category{{ID: "3", Name: "Shopping", Color: core.Yellow}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.DeleteCategory(ctx, "3"); !errors.Is(err, core.ErrProtected) {
		t.Fatalf("expected unflagged default to be protected, got %v", err)
	}
	if ok, err := s.UpdateCategory(ctx, core.Category{ID: "3", Name: "Groceries", Color: core.Yellow}); !ok || err != nil {
		t.Fatalf("rename: ok=%v err=%v", ok, err)
	}
	if _, err := s.DeleteCategory(ctx, "3"); !errors.Is(err, core.ErrProtected) {
		t.Fatalf("expected renamed default to keep protection, got %v", err)
	}
}

func TestOpenKeepsCorruptCategories(t *testing.T) {
	ctx := context.Background()
	medium := memory.New()
	if err := medium.Set(ctx, KeyCategories, []byte(`{"broken"`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	s, err := Open(ctx, medium)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.ListCategories(ctx); !errors.Is(err, core.ErrCorrupt) {
		t.Fatalf("expected corruption on read, got %v", err)
	}
	raw, _, _ := medium.Get(ctx, KeyCategories)
	if string(raw) != `{"broken"` {
		t.Fatalf("corrupt categories were overwritten: %s", raw)
	}
}
