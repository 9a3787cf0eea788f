package export

import (
	"encoding/json"
	"io"

	"ledger/internal/core"
)

type JSONCodec struct{}

func (JSONCodec) ContentType() string { return "application/json" }

func (JSONCodec) Encode(w io.Writer, txs []core.Transaction) error {
	if txs == nil {
		txs = []core.Transaction{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(txs)
}

func (JSONCodec) Decode(r io.Reader) ([]core.Transaction, error) {
	var out []core.Transaction
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		if err == io.EOF {
			return []core.Transaction{}, nil
		}
		return nil, &core.ValidationError{Field: "body", Message: err.Error()}
	}
	if out == nil {
		out = []core.Transaction{}
	}
	return out, nil
}
