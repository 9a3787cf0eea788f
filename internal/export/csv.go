package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"ledger/internal/core"
)

type CSVCodec struct{}

func (CSVCodec) ContentType() string { return "text/csv; charset=utf-8" }

func (CSVCodec) Encode(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, tx := range txs {
		rec := []string{
			string(tx.Type),
			tx.Amount.String(),
			tx.Date.String(),
			tx.Category,
			tx.Description,
			tx.ID,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode reads rows by header name, so column order is free and the id
// column is optional. Any malformed row fails the whole decode.
func (CSVCodec) Decode(r io.Reader) ([]core.Transaction, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []core.Transaction{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"type", "amount", "date", "category"} {
		if _, ok := idx[required]; !ok {
			return nil, &core.ValidationError{Field: "header", Message: "missing column " + required}
		}
	}
	cr.FieldsPerRecord = len(header)

	field := func(rec []string, name string) string {
		if i, ok := idx[name]; ok {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	out := []core.Transaction{}
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, rowError(row, err)
		}
		amount, err := core.ParseAmount(field(rec, "amount"))
		if err != nil {
			return nil, rowError(row, err)
		}
		date, err := core.ParseDate(field(rec, "date"))
		if err != nil {
			return nil, rowError(row, err)
		}
		out = append(out, core.Transaction{
			ID:          field(rec, "id"),
			Type:        core.TransactionType(strings.ToLower(field(rec, "type"))),
			Amount:      amount,
			Date:        date,
			Category:    field(rec, "category"),
			Description: field(rec, "description"),
		})
	}
	return out, nil
}
