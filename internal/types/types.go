package types

import "time"

// EventoStatus is the lifecycle status of a diary event.
type EventoStatus string

const (
	// StatusDraft is the status of a newly created event.
	StatusDraft EventoStatus = "DRAFT"
	// StatusSaved marks an event the operator finalized.
	StatusSaved EventoStatus = "SAVED"
)

// Media kinds attached to diary events.
const (
	MidiaAudioDetalhe    = "AUDIO_DETALHE"
	MidiaAudioObservacao = "AUDIO_OBSERVACAO"
	MidiaFoto            = "FOTO"
)

// Transcription targets used by the transcription endpoint.
const (
	TranscricaoDetalhe    = "detalhe"
	TranscricaoObservacao = "observacao"
)

// Refugo is a scrap label record from the production system.
type Refugo struct {
	ID            int64     `json:"id"`
	Filial        string    `json:"filial"`
	DataRegistro  time.Time `json:"data_registro"`
	DtRefugo      time.Time `json:"dt_refugo"`
	Etiqueta      string    `json:"etiqueta"`
	CodProduto    string    `json:"cod_produto"`
	OP            string    `json:"op"`
	CentroCusto   string    `json:"centro_custo"`
	CodDefeito    string    `json:"cod_defeito"`
	DescDefeito   string    `json:"desc_defeito"`
	Usuario       string    `json:"usuario"`
	QtdRetrabalho float64   `json:"qtd_retrabalho"`
	QtdRefugo     float64   `json:"qtd_refugo"`
	Numseq        int64     `json:"numseq"`
	Turno         string    `json:"turno"`
	Recurso       string    `json:"recurso"`
}

// Evento is a diary entry recorded against a scrap label.
type Evento struct {
	EventoID              string       `json:"evento_id"`
	Etiqueta              string       `json:"etiqueta"`
	CodDefeito            string       `json:"cod_defeito"`
	DescDefeito           string       `json:"desc_defeito"`
	CodProduto            string       `json:"cod_produto"`
	OP                    string       `json:"op"`
	DtRefugo              *time.Time   `json:"dt_refugo"`
	CentroCusto           string       `json:"centro_custo"`
	UsuarioNome           string       `json:"usuario_nome"`
	UsuarioMatricula      string       `json:"usuario_matricula"`
	TranscricaoDetalhe    *string      `json:"transcricao_detalhe"`
	TranscricaoObservacao *string      `json:"transcricao_observacao"`
	Status                EventoStatus `json:"status"`
	CreatedAt             time.Time    `json:"created_at"`
	Midias                []Midia      `json:"midias,omitempty"`
}

// NewEvento holds the fields supplied when creating a diary event.
type NewEvento struct {
	Etiqueta              string     `json:"etiqueta" validate:"required,max=64"`
	CodDefeito            string     `json:"cod_defeito" validate:"max=64"`
	DescDefeito           string     `json:"desc_defeito" validate:"max=255"`
	CodProduto            string     `json:"cod_produto" validate:"max=64"`
	OP                    string     `json:"op" validate:"max=64"`
	DtRefugo              *time.Time `json:"dt_refugo"`
	CentroCusto           string     `json:"centro_custo" validate:"max=64"`
	UsuarioNome           string     `json:"usuario_nome" validate:"max=128"`
	UsuarioMatricula      string     `json:"usuario_matricula" validate:"max=64"`
	TranscricaoDetalhe    *string    `json:"transcricao_detalhe"`
	TranscricaoObservacao *string    `json:"transcricao_observacao"`
}

// Midia is a media file attached to a diary event.
type Midia struct {
	MidiaID      string    `json:"midia_id"`
	EventoID     string    `json:"evento_id"`
	Tipo         string    `json:"tipo"`
	ArquivoURL   string    `json:"arquivo_url"`
	ArquivoPath  string    `json:"arquivo_path"`
	MimeType     string    `json:"mime_type"`
	DuracaoSeg   *int      `json:"duracao_seg"`
	TamanhoBytes int64     `json:"tamanho_bytes"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewMidia holds the fields supplied when registering media.
type NewMidia struct {
	EventoID     string `json:"evento_id" validate:"required,uuid"`
	Tipo         string `json:"tipo" validate:"required,max=32"`
	ArquivoURL   string `json:"arquivo_url" validate:"required,max=1024"`
	ArquivoPath  string `json:"arquivo_path" validate:"max=1024"`
	MimeType     string `json:"mime_type" validate:"max=128"`
	DuracaoSeg   *int   `json:"duracao_seg" validate:"omitempty,gte=0"`
	TamanhoBytes int64  `json:"tamanho_bytes" validate:"gte=0"`
}

// IsAudio reports whether the media is a voice memo.
func (m *Midia) IsAudio() bool {
	return m.Tipo == MidiaAudioDetalhe || m.Tipo == MidiaAudioObservacao
}

// VersionInfo contains version comparison data.
type VersionInfo struct {
	Current     string `json:"current"`              // Current version
	Latest      string `json:"latest,omitempty"`     // Latest available version
	UpdateAvail bool   `json:"update_available"`     // Update is available
	Commit      string `json:"commit,omitempty"`     // Git commit hash
	BuildTime   string `json:"build_time,omitempty"` // Build timestamp
}

const (
	// ShutdownTimeout is the duration to wait for graceful shutdown.
	ShutdownTimeout = 3000 * time.Millisecond
	// InitialRetryDelay is the starting delay between retry attempts.
	InitialRetryDelay = 3000 * time.Millisecond
	// MaxRetryDelay is the maximum delay between retry attempts.
	MaxRetryDelay = 60000 * time.Millisecond
)
