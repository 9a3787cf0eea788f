package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"ledger/internal/core"
)

// IncomeCategory is the name that routes a category to income transactions.
const IncomeCategory = "Income"

var defaultCategories = []core.Category{
	{ID: "1", Name: "Food", Color: core.Red, Protected: true},
	{ID: "2", Name: "Transportation", Color: core.Blue, Protected: true},
	{ID: "3", Name: "Shopping", Color: core.Yellow, Protected: true},
	{ID: "4", Name: "Bills", Color: core.Purple, Protected: true},
	{ID: "5", Name: "Entertainment", Color: core.Orange, Protected: true},
	{ID: IncomeID, Name: IncomeCategory, Color: core.Green, Protected: true},
}

// IncomeID is the id of the seeded Income category.
const IncomeID = "6"

// DefaultCategories returns a copy of the seeded category set.
func DefaultCategories() []core.Category {
	out := make([]core.Category, len(defaultCategories))
	copy(out, defaultCategories)
	return out
}

// isSeededDefault reports whether c still has the id and name of one of the
// seeded defaults. Collections written before the protected flag existed
// carry the defaults without it.
func isSeededDefault(c core.Category) bool {
	for _, d := range defaultCategories {
		if c.ID == d.ID && c.Name == d.Name {
			return true
		}
	}
	return false
}

func isProtected(c core.Category) bool {
	return c.Protected || isSeededDefault(c)
}

// adoptLegacyDefaults sets the protected flag on unflagged seeded defaults
// and reports whether anything changed.
func adoptLegacyDefaults(cats []core.Category) bool {
	changed := false
	for i := range cats {
		if !cats[i].Protected && isSeededDefault(cats[i]) {
			cats[i].Protected = true
			changed = true
		}
	}
	return changed
}

// EnsureDefaults writes the default categories when the categories key has
// never been written. An existing collection, even an empty one, is kept;
// seeded defaults in it that lack the protected flag get it back.
func (s *Store) EnsureDefaults(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cats, ok, err := load[core.Category](ctx, s.kv, KeyCategories)
	if errors.Is(err, core.ErrCorrupt) {
		// Left for reads to report; it is never replaced.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if ok {
		if adoptLegacyDefaults(cats) {
			if err := save(ctx, s.kv, KeyCategories, cats); err != nil {
				return false, err
			}
			s.logger.InfoContext(ctx, "Restored protection on stored default categories")
		}
		return false, nil
	}
	if err := save(ctx, s.kv, KeyCategories, defaultCategories); err != nil {
		return false, err
	}
	return true, nil
}

// ListCategories returns the stored categories in insertion order.
func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cats, _, err := load[core.Category](ctx, s.kv, KeyCategories)
	return cats, err
}

// SaveCategories overwrites the stored collection without validating it.
func (s *Store) SaveCategories(ctx context.Context, cats []core.Category) error {
	return s.mutate(ctx, func() (*core.Change, error) {
		if err := save(ctx, s.kv, KeyCategories, cats); err != nil {
			return nil, err
		}
		c := s.change(core.CollectionCategories, core.OpReplace)
		c.Count = len(cats)
		return c, nil
	})
}

// CategoriesFor returns the categories offered for a transaction type:
// Income alone for income, everything else for expenses.
func (s *Store) CategoriesFor(ctx context.Context, typ core.TransactionType) ([]core.Category, error) {
	if !typ.IsValid() {
		return nil, &core.ValidationError{Field: "type", Message: "invalid transaction type " + string(typ)}
	}
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Category, 0, len(cats))
	for _, c := range cats {
		if (c.Name == IncomeCategory) == (typ == core.Income) {
			out = append(out, c)
		}
	}
	return out, nil
}

func normalizeCategory(c core.Category) core.Category {
	c.ID = strings.TrimSpace(c.ID)
	c.Name = strings.TrimSpace(c.Name)
	c.Icon = strings.TrimSpace(c.Icon)
	c.Color = core.NormalizeColor(string(c.Color))
	return c
}

func nameTaken(cats []core.Category, name, exceptID string) bool {
	for _, c := range cats {
		if c.ID != exceptID && c.Name == name {
			return true
		}
	}
	return false
}

// AddCategory validates c and appends it. Names must be unique; user-created
// categories are never protected.
func (s *Store) AddCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c = normalizeCategory(c)
	c.Protected = false
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	err := s.mutate(ctx, func() (*core.Change, error) {
		cats, _, err := load[core.Category](ctx, s.kv, KeyCategories)
		if err != nil {
			return nil, err
		}
		if nameTaken(cats, c.Name, "") {
			return nil, core.NewValidationError("name", core.ErrDuplicateName)
		}
		for _, existing := range cats {
			if existing.ID == c.ID {
				return nil, &core.ValidationError{Field: "id", Message: "category id already exists"}
			}
		}
		if err := save(ctx, s.kv, KeyCategories, append(cats, c)); err != nil {
			return nil, err
		}
		change := s.change(core.CollectionCategories, core.OpCreate)
		change.ID = c.ID
		return change, nil
	})
	if err != nil {
		return core.Category{}, err
	}

	s.logger.InfoContext(ctx, "Category added", "id", c.ID, "name", c.Name, "color", c.Color)
	return c, nil
}

// UpdateCategory replaces the category with the same id in place. An unknown
// id is a no-op. The stored protection survives the update.
func (s *Store) UpdateCategory(ctx context.Context, c core.Category) (bool, error) {
	c = normalizeCategory(c)
	if err := c.Validate(); err != nil {
		return false, err
	}

	updated := false
	err := s.mutate(ctx, func() (*core.Change, error) {
		cats, _, err := load[core.Category](ctx, s.kv, KeyCategories)
		if err != nil {
			return nil, err
		}
		idx := indexOfCategory(cats, c.ID)
		if idx < 0 {
			return nil, nil
		}
		if nameTaken(cats, c.Name, c.ID) {
			return nil, core.NewValidationError("name", core.ErrDuplicateName)
		}
		c.Protected = isProtected(cats[idx])
		cats[idx] = c
		if err := save(ctx, s.kv, KeyCategories, cats); err != nil {
			return nil, err
		}
		updated = true
		change := s.change(core.CollectionCategories, core.OpUpdate)
		change.ID = c.ID
		return change, nil
	})
	if err != nil {
		return false, err
	}
	if !updated {
		s.logger.DebugContext(ctx, "Category not found for update", "id", c.ID)
		return false, nil
	}

	s.logger.InfoContext(ctx, "Category updated", "id", c.ID, "name", c.Name, "color", c.Color)
	return true, nil
}

func indexOfCategory(cats []core.Category, id string) int {
	for i, c := range cats {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// DeleteCategory removes the category with id. Protected categories are
// rejected with a ProtectedEntityError and an unknown id is a no-op.
// Transactions that reference the category by name are left untouched.
func (s *Store) DeleteCategory(ctx context.Context, id string) (bool, error) {
	var name string
	removed := false
	err := s.mutate(ctx, func() (*core.Change, error) {
		cats, _, err := load[core.Category](ctx, s.kv, KeyCategories)
		if err != nil {
			return nil, err
		}
		idx := indexOfCategory(cats, id)
		if idx < 0 {
			return nil, nil
		}
		if isProtected(cats[idx]) {
			return nil, &core.ProtectedEntityError{ID: id, Name: cats[idx].Name}
		}
		name = cats[idx].Name
		removed = true
		cats = append(cats[:idx], cats[idx+1:]...)
		if err := save(ctx, s.kv, KeyCategories, cats); err != nil {
			return nil, err
		}
		change := s.change(core.CollectionCategories, core.OpDelete)
		change.ID = id
		return change, nil
	})
	if err != nil || !removed {
		return false, err
	}

	s.logger.InfoContext(ctx, "Category deleted", "id", id, "name", name)
	return true, nil
}
