package export

import (
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	"ledger/internal/core"
)

type YAMLCodec struct{}

func (YAMLCodec) ContentType() string { return "application/yaml" }

func (YAMLCodec) Encode(w io.Writer, txs []core.Transaction) error {
	if txs == nil {
		txs = []core.Transaction{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(txs); err != nil {
		return err
	}
	return enc.Close()
}

func (YAMLCodec) Decode(r io.Reader) ([]core.Transaction, error) {
	var out []core.Transaction
	if err := yaml.NewDecoder(r).Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return []core.Transaction{}, nil
		}
		return nil, &core.ValidationError{Field: "body", Message: err.Error()}
	}
	if out == nil {
		out = []core.Transaction{}
	}
	return out, nil
}
