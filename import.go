package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/oszuidwest/diario-bordo/internal/types"
	"github.com/oszuidwest/diario-bordo/internal/util"
)

// refugoUpserter stores scrap label records.
type refugoUpserter interface {
	UpsertRefugos(ctx context.Context, refugos []types.Refugo) error
}

// importRefugos reads a JSON array of scrap records and stores them.
func importRefugos(ctx context.Context, st refugoUpserter, r io.Reader) (int, error) {
	var refugos []types.Refugo
	if err := json.NewDecoder(r).Decode(&refugos); err != nil {
		return 0, util.WrapError("decode refugos", err)
	}
	for i := range refugos {
		if refugos[i].Etiqueta == "" {
			return 0, fmt.Errorf("refugo %d: etiqueta is required", refugos[i].ID)
		}
	}
	if len(refugos) == 0 {
		return 0, nil
	}
	if err := st.UpsertRefugos(ctx, refugos); err != nil {
		return 0, err
	}
	return len(refugos), nil
}

// importRefugosFile imports scrap records from a file.
func importRefugosFile(ctx context.Context, st refugoUpserter, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return util.WrapError("open import file", err)
	}
	defer f.Close() //nolint:errcheck // Read-only operation, close error not critical

	n, err := importRefugos(ctx, st, f)
	if err != nil {
		return err
	}
	slog.Info("imported refugos", "path", path, "count", n)
	return nil
}
