package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.store.ListTransactions(r.Context())
	if err != nil {
		s.logStoreError(r, "Failed to list transactions", err, applog.OpList)
		ErrorFor(err).Write(w)
		return
	}
	if typ, ok := ParseTransactionType(r); ok {
		if !typ.IsValid() {
			UnprocessableEntityError("type", "type must be expense or income").Write(w)
			return
		}
		filtered := make([]core.Transaction, 0, len(txs))
		for _, tx := range txs {
			if tx.Type == typ {
				filtered = append(filtered, tx)
			}
		}
		txs = filtered
	}
	NewJSONResponse().Body(txs).Write(w)
}

func (s *Server) handleCurrentMonthTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.store.CurrentMonthTransactions(r.Context())
	if err != nil {
		s.logStoreError(r, "Failed to list current month transactions", err, applog.OpList)
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Body(txs).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := DecodeJSON(w, r, &tx); err != nil {
		writeDecodeError(w, err)
		return
	}
	tx.Category = sanitizeInput(tx.Category)
	tx.Description = sanitizeInput(tx.Description)

	stored, err := s.store.AddTransaction(r.Context(), tx)
	if err != nil {
		s.logStoreError(r, "Failed to save transaction", err, applog.OpCreate)
		ErrorFor(err).Write(w)
		return
	}
	s.recordWrite()

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		applog.FieldEntityID, stored.ID,
		applog.FieldAmountCents, stored.Amount.Cents,
		applog.FieldCategory, stored.Category,
		"type", stored.Type)

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+stored.ID).
		Body(stored).
		Write(w)
}

// handleReplaceTransactions overwrites the whole collection with the body.
func (s *Server) handleReplaceTransactions(w http.ResponseWriter, r *http.Request) {
	var txs []core.Transaction
	if err := DecodeJSON(w, r, &txs); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := s.store.SaveTransactions(r.Context(), txs); err != nil {
		s.logStoreError(r, "Failed to replace transactions", err, applog.OpUpdate)
		ErrorFor(err).Write(w)
		return
	}
	s.recordWrite()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := s.store.DeleteTransaction(r.Context(), id)
	if err != nil {
		s.logStoreError(r, "Failed to delete transaction", err, applog.OpDelete)
		ErrorFor(err).Write(w)
		return
	}
	if !removed {
		NotFoundError("transaction not found").Write(w)
		return
	}
	s.recordWrite()
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted", applog.FieldEntityID, id)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// logStoreError logs failures that are not the caller's fault.
func (s *Server) logStoreError(r *http.Request, msg string, err error, op string) {
	errType := applog.ErrorTypeDatabase
	switch {
	case isClientError(err):
		return
	case isCorruption(err):
		errType = applog.ErrorTypeCorruption
	}
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogError(r.Context(), msg, err, errType, op, nil)
}
