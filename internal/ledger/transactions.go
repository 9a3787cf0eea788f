package ledger

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"ledger/internal/core"
)

// ListTransactions returns every stored transaction, newest first.
func (s *Store) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txs, _, err := load[core.Transaction](ctx, s.kv, KeyTransactions)
	return txs, err
}

// SaveTransactions overwrites the stored collection without validating it.
func (s *Store) SaveTransactions(ctx context.Context, txs []core.Transaction) error {
	return s.mutate(ctx, func() (*core.Change, error) {
		if err := save(ctx, s.kv, KeyTransactions, txs); err != nil {
			return nil, err
		}
		c := s.change(core.CollectionTransactions, core.OpReplace)
		c.Count = len(txs)
		return c, nil
	})
}

// prepareTransaction assigns an id when missing and validates tx.
func prepareTransaction(tx core.Transaction) (core.Transaction, error) {
	tx.ID = strings.TrimSpace(tx.ID)
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.Category = strings.TrimSpace(tx.Category)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// AddTransaction validates tx and stores it at the front of the collection.
// An empty ID is replaced with a generated one; the stored value is returned.
func (s *Store) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx, err := prepareTransaction(tx)
	if err != nil {
		return core.Transaction{}, err
	}

	err = s.mutate(ctx, func() (*core.Change, error) {
		txs, _, err := load[core.Transaction](ctx, s.kv, KeyTransactions)
		if err != nil {
			return nil, err
		}
		txs = append([]core.Transaction{tx}, txs...)
		if err := save(ctx, s.kv, KeyTransactions, txs); err != nil {
			return nil, err
		}
		c := s.change(core.CollectionTransactions, core.OpCreate)
		c.ID = tx.ID
		return c, nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "Transaction added",
		"id", tx.ID,
		"type", tx.Type,
		"amount_cents", tx.Amount.Cents,
		"category", tx.Category,
		"date", tx.Date.String())
	return tx, nil
}

// ImportTransactions validates every row before writing anything, then
// prepends the batch in the given order with a single write.
func (s *Store) ImportTransactions(ctx context.Context, batch []core.Transaction) (int, error) {
	prepared := make([]core.Transaction, 0, len(batch))
	for i, tx := range batch {
		p, err := prepareTransaction(tx)
		if err != nil {
			return 0, &core.ValidationError{Field: "row " + strconv.Itoa(i+1), Message: err.Error()}
		}
		prepared = append(prepared, p)
	}
	if len(prepared) == 0 {
		return 0, nil
	}

	err := s.mutate(ctx, func() (*core.Change, error) {
		txs, _, err := load[core.Transaction](ctx, s.kv, KeyTransactions)
		if err != nil {
			return nil, err
		}
		if err := save(ctx, s.kv, KeyTransactions, append(prepared, txs...)); err != nil {
			return nil, err
		}
		c := s.change(core.CollectionTransactions, core.OpImport)
		c.Count = len(prepared)
		return c, nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "Transactions imported", "count", len(prepared))
	return len(prepared), nil
}

// DeleteTransaction removes the transaction with id. An unknown id is not an
// error; the returned flag reports whether anything was removed.
func (s *Store) DeleteTransaction(ctx context.Context, id string) (bool, error) {
	removed := false
	err := s.mutate(ctx, func() (*core.Change, error) {
		txs, _, err := load[core.Transaction](ctx, s.kv, KeyTransactions)
		if err != nil {
			return nil, err
		}
		kept := txs[:0:0]
		for _, tx := range txs {
			if tx.ID != id {
				kept = append(kept, tx)
			}
		}
		if len(kept) == len(txs) {
			return nil, nil
		}
		if err := save(ctx, s.kv, KeyTransactions, kept); err != nil {
			return nil, err
		}
		removed = true
		c := s.change(core.CollectionTransactions, core.OpDelete)
		c.ID = id
		return c, nil
	})
	if err != nil {
		return false, err
	}
	if !removed {
		s.logger.DebugContext(ctx, "Transaction not found for delete", "id", id)
		return false, nil
	}

	s.logger.InfoContext(ctx, "Transaction deleted", "id", id)
	return true, nil
}
