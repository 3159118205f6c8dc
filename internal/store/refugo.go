package store

import (
	"context"
	"database/sql"

	"github.com/oszuidwest/diario-bordo/internal/types"
	"github.com/oszuidwest/diario-bordo/internal/util"
)

// Refugo list limits.
const (
	DefaultRefugoLimit = 50
	maxRefugoLimit     = 1000
)

const refugoColumns = `id, filial, data_registro, dt_refugo, etiqueta, cod_produto, op,
	centro_custo, cod_defeito, desc_defeito, usuario, qtd_retrabalho, qtd_refugo,
	numseq, turno, recurso`

// RefugoByEtiqueta returns the newest scrap record for a label.
func (s *Store) RefugoByEtiqueta(ctx context.Context, etiqueta string) (*types.Refugo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+refugoColumns+`
		FROM refugo
		WHERE etiqueta = ?
		ORDER BY dt_refugo DESC
		LIMIT 1
	`, etiqueta)

	r, err := scanRefugo(row)
	if err != nil {
		return nil, wrapNotFound("get refugo", err)
	}
	return r, nil
}

// ListRefugos returns the most recent scrap records.
func (s *Store) ListRefugos(ctx context.Context, limit int) ([]types.Refugo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+refugoColumns+`
		FROM refugo
		ORDER BY dt_refugo DESC
		LIMIT ?
	`, clampLimit(limit, DefaultRefugoLimit, maxRefugoLimit))
	if err != nil {
		return nil, util.WrapError("list refugos", err)
	}
	defer util.SafeCloseFunc(rows, "refugo rows")()

	refugos := make([]types.Refugo, 0)
	for rows.Next() {
		r, err := scanRefugo(rows)
		if err != nil {
			return nil, util.WrapError("scan refugo", err)
		}
		refugos = append(refugos, *r)
	}
	return refugos, rows.Err()
}

// UpsertRefugos inserts or replaces scrap records by ID in one transaction.
func (s *Store) UpsertRefugos(ctx context.Context, refugos []types.Refugo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return util.WrapError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO refugo (`+refugoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filial = excluded.filial,
			data_registro = excluded.data_registro,
			dt_refugo = excluded.dt_refugo,
			etiqueta = excluded.etiqueta,
			cod_produto = excluded.cod_produto,
			op = excluded.op,
			centro_custo = excluded.centro_custo,
			cod_defeito = excluded.cod_defeito,
			desc_defeito = excluded.desc_defeito,
			usuario = excluded.usuario,
			qtd_retrabalho = excluded.qtd_retrabalho,
			qtd_refugo = excluded.qtd_refugo,
			numseq = excluded.numseq,
			turno = excluded.turno,
			recurso = excluded.recurso
	`)
	if err != nil {
		return util.WrapError("prepare refugo upsert", err)
	}
	defer util.SafeCloseFunc(stmt, "refugo statement")()

	for i := range refugos {
		r := &refugos[i]
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Filial, r.DataRegistro.UTC(), r.DtRefugo.UTC(), r.Etiqueta, r.CodProduto, r.OP,
			r.CentroCusto, r.CodDefeito, r.DescDefeito, r.Usuario, r.QtdRetrabalho, r.QtdRefugo,
			r.Numseq, r.Turno, r.Recurso,
		); err != nil {
			return util.WrapError("upsert refugo", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return util.WrapError("commit refugos", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRefugo(row scanner) (*types.Refugo, error) {
	var r types.Refugo
	var dataRegistro, dtRefugo sql.NullTime
	if err := row.Scan(
		&r.ID, &r.Filial, &dataRegistro, &dtRefugo, &r.Etiqueta, &r.CodProduto, &r.OP,
		&r.CentroCusto, &r.CodDefeito, &r.DescDefeito, &r.Usuario, &r.QtdRetrabalho, &r.QtdRefugo,
		&r.Numseq, &r.Turno, &r.Recurso,
	); err != nil {
		return nil, err
	}
	r.DataRegistro = dataRegistro.Time
	r.DtRefugo = dtRefugo.Time
	return &r, nil
}
