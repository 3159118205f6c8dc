package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/oszuidwest/diario-bordo/internal/types"
	"github.com/oszuidwest/diario-bordo/internal/util"
)

const midiaColumns = `midia_id, evento_id, tipo, arquivo_url, arquivo_path, mime_type,
	duracao_seg, tamanho_bytes, created_at`

// CreateMidia registers media for an event. It returns ErrNotFound when the
// event does not exist.
func (s *Store) CreateMidia(ctx context.Context, m *types.NewMidia) (*types.Midia, error) {
	if !validID(m.EventoID) {
		return nil, ErrNotFound
	}

	midia := types.Midia{
		MidiaID:      uuid.NewString(),
		EventoID:     m.EventoID,
		Tipo:         m.Tipo,
		ArquivoURL:   m.ArquivoURL,
		ArquivoPath:  m.ArquivoPath,
		MimeType:     m.MimeType,
		DuracaoSeg:   m.DuracaoSeg,
		TamanhoBytes: m.TamanhoBytes,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dw_diariobordo_refugo_midia (`+midiaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, midia.MidiaID, midia.EventoID, midia.Tipo, midia.ArquivoURL, midia.ArquivoPath,
		midia.MimeType, midia.DuracaoSeg, midia.TamanhoBytes, midia.CreatedAt)
	if isForeignKeyViolation(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, util.WrapError("create midia", err)
	}
	return &midia, nil
}

// midiasFor returns the media of the given events keyed by event ID.
func (s *Store) midiasFor(ctx context.Context, ids []string) (map[string][]types.Midia, error) {
	out := make(map[string][]types.Midia, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+midiaColumns+`
		FROM dw_diariobordo_refugo_midia
		WHERE evento_id IN (`+placeholders(len(ids))+`)
		ORDER BY created_at, rowid
	`, args...)
	if err != nil {
		return nil, util.WrapError("list midias", err)
	}
	defer util.SafeCloseFunc(rows, "midia rows")()

	for rows.Next() {
		var m types.Midia
		var duracao sql.NullInt64
		if err := rows.Scan(&m.MidiaID, &m.EventoID, &m.Tipo, &m.ArquivoURL, &m.ArquivoPath,
			&m.MimeType, &duracao, &m.TamanhoBytes, &m.CreatedAt); err != nil {
			return nil, util.WrapError("scan midia", err)
		}
		if duracao.Valid {
			d := int(duracao.Int64)
			m.DuracaoSeg = &d
		}
		out[m.EventoID] = append(out[m.EventoID], m)
	}
	return out, rows.Err()
}
