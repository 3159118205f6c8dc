package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oszuidwest/diario-bordo/internal/types"
	"github.com/oszuidwest/diario-bordo/internal/util"
)

// Evento list limits.
const (
	DefaultEventoLimit = 100
	maxEventoLimit     = 1000
)

const eventoColumns = `evento_id, etiqueta, cod_defeito, desc_defeito, cod_produto, op,
	dt_refugo, centro_custo, usuario_nome, usuario_matricula, transcricao_detalhe,
	transcricao_observacao, status, created_at`

// CreateEvento inserts a draft diary event and returns the stored row.
func (s *Store) CreateEvento(ctx context.Context, e *types.NewEvento) (*types.Evento, error) {
	id := uuid.NewString()

	var dtRefugo sql.NullTime
	if e.DtRefugo != nil {
		dtRefugo = sql.NullTime{Time: e.DtRefugo.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dw_diariobordo_refugo_evento (`+eventoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, e.Etiqueta, e.CodDefeito, e.DescDefeito, e.CodProduto, e.OP,
		dtRefugo, e.CentroCusto, e.UsuarioNome, e.UsuarioMatricula, e.TranscricaoDetalhe,
		e.TranscricaoObservacao, types.StatusDraft, time.Now().UTC())
	if err != nil {
		return nil, util.WrapError("create evento", err)
	}

	return s.eventoRow(ctx, id)
}

// Evento returns a diary event with its media.
func (s *Store) Evento(ctx context.Context, id string) (*types.Evento, error) {
	e, err := s.eventoRow(ctx, id)
	if err != nil {
		return nil, err
	}

	midias, err := s.midiasFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	e.Midias = midias[id]
	if e.Midias == nil {
		e.Midias = []types.Midia{}
	}
	return e, nil
}

// ListEventos returns the newest diary events, each with its media.
func (s *Store) ListEventos(ctx context.Context, limit int) ([]types.Evento, error) {
	return s.queryEventos(ctx, `
		SELECT `+eventoColumns+`
		FROM dw_diariobordo_refugo_evento
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, clampLimit(limit, DefaultEventoLimit, maxEventoLimit))
}

// PendingTranscriptions returns the newest events that miss at least one
// transcription, null or empty, each with its media.
func (s *Store) PendingTranscriptions(ctx context.Context, limit int) ([]types.Evento, error) {
	return s.queryEventos(ctx, `
		SELECT `+eventoColumns+`
		FROM dw_diariobordo_refugo_evento
		WHERE COALESCE(transcricao_detalhe, '') = '' OR COALESCE(transcricao_observacao, '') = ''
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, clampLimit(limit, DefaultRefugoLimit, maxEventoLimit))
}

// UpdateTranscricao sets the given transcriptions. Absent fields are left
// untouched and null fields are cleared; both absent returns
// ErrNothingToUpdate.
func (s *Store) UpdateTranscricao(ctx context.Context, id string, detalhe, observacao types.OptionalString) (*types.Evento, error) {
	var sets []string
	var args []any
	if detalhe.Set {
		sets = append(sets, "transcricao_detalhe = ?")
		args = append(args, detalhe.Ptr())
	}
	if observacao.Set {
		sets = append(sets, "transcricao_observacao = ?")
		args = append(args, observacao.Ptr())
	}
	if len(sets) == 0 {
		return nil, ErrNothingToUpdate
	}
	if !validID(id) {
		return nil, ErrNotFound
	}

	args = append(args, id)
	if err := s.execOne(ctx, "update transcricao",
		"UPDATE dw_diariobordo_refugo_evento SET "+strings.Join(sets, ", ")+" WHERE evento_id = ?",
		args...); err != nil {
		return nil, err
	}
	return s.eventoRow(ctx, id)
}

// SetTranscricao stores one transcription. Kind "detalhe" targets the detail
// column; any other kind targets the observation column.
func (s *Store) SetTranscricao(ctx context.Context, id, kind, text string) error {
	if !validID(id) {
		return ErrNotFound
	}
	column := "transcricao_observacao"
	if kind == types.TranscricaoDetalhe {
		column = "transcricao_detalhe"
	}
	return s.execOne(ctx, "set transcricao",
		"UPDATE dw_diariobordo_refugo_evento SET "+column+" = ? WHERE evento_id = ?", text, id)
}

// FinalizeEvento marks an event as saved.
func (s *Store) FinalizeEvento(ctx context.Context, id string) (*types.Evento, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	if err := s.execOne(ctx, "finalize evento",
		"UPDATE dw_diariobordo_refugo_evento SET status = ? WHERE evento_id = ?",
		types.StatusSaved, id); err != nil {
		return nil, err
	}
	return s.eventoRow(ctx, id)
}

// DeleteEvento removes an event and its media rows in one transaction and
// returns the media file paths so the caller can remove the files.
func (s *Store) DeleteEvento(ctx context.Context, id string) ([]string, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, util.WrapError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		"SELECT arquivo_path FROM dw_diariobordo_refugo_midia WHERE evento_id = ?", id)
	if err != nil {
		return nil, util.WrapError("query midia paths", err)
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			_ = rows.Close()
			return nil, util.WrapError("scan midia path", err)
		}
		if p != "" {
			paths = append(paths, p)
		}
	}
	if err := rows.Close(); err != nil {
		return nil, util.WrapError("read midia paths", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM dw_diariobordo_refugo_midia WHERE evento_id = ?", id); err != nil {
		return nil, util.WrapError("delete midias", err)
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM dw_diariobordo_refugo_evento WHERE evento_id = ?", id)
	if err != nil {
		return nil, util.WrapError("delete evento", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, util.WrapError("delete evento", err)
	} else if n == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, util.WrapError("commit delete", err)
	}
	return paths, nil
}

// execOne runs an update that must affect exactly one event.
func (s *Store) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return util.WrapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return util.WrapError(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) eventoRow(ctx context.Context, id string) (*types.Evento, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventoColumns+`
		FROM dw_diariobordo_refugo_evento
		WHERE evento_id = ?
	`, id)

	e, err := scanEvento(row)
	if err != nil {
		return nil, wrapNotFound("get evento", err)
	}
	return e, nil
}

// queryEventos runs an event query and attaches media with a single lookup.
func (s *Store) queryEventos(ctx context.Context, query string, args ...any) ([]types.Evento, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, util.WrapError("list eventos", err)
	}
	defer util.SafeCloseFunc(rows, "evento rows")()

	eventos := make([]types.Evento, 0)
	var ids []string
	for rows.Next() {
		e, err := scanEvento(rows)
		if err != nil {
			return nil, util.WrapError("scan evento", err)
		}
		eventos = append(eventos, *e)
		ids = append(ids, e.EventoID)
	}
	if err := rows.Err(); err != nil {
		return nil, util.WrapError("list eventos", err)
	}

	midias, err := s.midiasFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range eventos {
		eventos[i].Midias = midias[eventos[i].EventoID]
		if eventos[i].Midias == nil {
			eventos[i].Midias = []types.Midia{}
		}
	}
	return eventos, nil
}

func scanEvento(row scanner) (*types.Evento, error) {
	var e types.Evento
	var dtRefugo sql.NullTime
	var detalhe, observacao sql.NullString
	if err := row.Scan(
		&e.EventoID, &e.Etiqueta, &e.CodDefeito, &e.DescDefeito, &e.CodProduto, &e.OP,
		&dtRefugo, &e.CentroCusto, &e.UsuarioNome, &e.UsuarioMatricula, &detalhe,
		&observacao, &e.Status, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	if dtRefugo.Valid {
		t := dtRefugo.Time
		e.DtRefugo = &t
	}
	if detalhe.Valid {
		e.TranscricaoDetalhe = &detalhe.String
	}
	if observacao.Valid {
		e.TranscricaoObservacao = &observacao.String
	}
	return &e, nil
}
