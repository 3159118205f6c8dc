// Package fmea serves the static FMEA Vivo analytics. The data is canned and
// embedded in the binary; nothing is computed.
package fmea

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed data.json
var rawData []byte

// SPC chart statuses.
const (
	StatusNormal    = "normal"
	StatusTendencia = "tendencia"
	StatusDesvio    = "desvio"
)

// Dataset is the complete mock dataset.
type Dataset struct {
	Insights       Insights       `json:"insights"`
	Clusters       []Cluster      `json:"clusters"`
	KnowledgeGraph KnowledgeGraph `json:"knowledge_graph"`
	PFMEA          PFMEA          `json:"pfmea"`
	SPC            []SPCChart     `json:"spc"`
}

// Insights summarizes the operator perceptions for one failure mode.
type Insights struct {
	ModoFalha       string       `json:"modo_falha"`
	Periodo         string       `json:"periodo"`
	TotalRegistros  int          `json:"total_registros"`
	TotalTendencias int          `json:"total_tendencias"`
	TotalDesvios    int          `json:"total_desvios"`
	TopPercepcoes   []Count      `json:"top_percepcoes"`
	TopCausas       []Count      `json:"top_causas"`
	AcoesEfetivas   []Acao       `json:"acoes_efetivas"`
	Recomendacao    Recomendacao `json:"recomendacao_causa_provavel"`
}

// Count is a labelled occurrence count.
type Count struct {
	Chave  string `json:"chave"`
	Rotulo string `json:"rotulo"`
	Qtd    int    `json:"qtd"`
}

// Acao is a corrective action and how often it worked.
type Acao struct {
	Acao     string `json:"acao"`
	Rotulo   string `json:"rotulo"`
	Aplicada int    `json:"aplicada"`
	Efetiva  int    `json:"efetiva"`
}

// Recomendacao is the suggested probable cause.
type Recomendacao struct {
	Causa           string   `json:"causa"`
	Confianca       float64  `json:"confianca"`
	ExplicacaoCurta []string `json:"explicacao_curta"`
}

// Cluster groups similar perceptions.
type Cluster struct {
	ClusterID        string   `json:"cluster_id"`
	Rotulo           string   `json:"rotulo"`
	QtdRegistros     int      `json:"qtd_registros"`
	Sinais           []string `json:"sinais"`
	CausasAssociadas []string `json:"causas_associadas"`
}

// KnowledgeGraph links signals, causes and actions to the failure mode.
type KnowledgeGraph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is a knowledge graph vertex.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Edge is a weighted knowledge graph link.
type Edge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Weight int    `json:"weight"`
}

// PFMEA is the current process FMEA row and the proposed update.
type PFMEA struct {
	PFMEAID          string         `json:"pfmea_id"`
	Revisao          string         `json:"revisao"`
	ModoFalha        string         `json:"modo_falha"`
	Efeito           string         `json:"efeito"`
	Severidade       int            `json:"severidade"`
	Ocorrencia       int            `json:"ocorrencia"`
	Deteccao         int            `json:"deteccao"`
	CausasConhecidas []Causa        `json:"causas_conhecidas"`
	Atualizacao      UpdateProposal `json:"atualizacao_assistida"`
}

// Causa is a known cause in the PFMEA.
type Causa struct {
	CausaID   string `json:"causa_id"`
	Descricao string `json:"descricao"`
}

// UpdateProposal is a suggested PFMEA revision.
type UpdateProposal struct {
	Status    string   `json:"status"`
	DiffTexto []string `json:"diff_texto"`
	AcaoMock  string   `json:"acao_mock"`
}

// SPCChart is one control chart with fixed limits.
type SPCChart struct {
	EventID    string    `json:"event_id"`
	Maquina    string    `json:"maquina"`
	Variavel   string    `json:"variavel"`
	Unidade    string    `json:"unidade"`
	LSE        float64   `json:"lse"`
	LIE        float64   `json:"lie"`
	LC         float64   `json:"lc"`
	ValorAtual float64   `json:"valor_atual"`
	Status     string    `json:"status"`
	Regra      string    `json:"regra"`
	Turno      string    `json:"turno"`
	Pontos     []float64 `json:"pontos"`
}

var load = sync.OnceValues(func() (*Dataset, error) {
	var d Dataset
	if err := json.Unmarshal(rawData, &d); err != nil {
		return nil, fmt.Errorf("decode fmea data: %w", err)
	}
	return &d, nil
})

// Load returns the embedded dataset. The result is shared and must not be
// modified.
func Load() (*Dataset, error) {
	return load()
}

// ValidStatus reports whether s is an SPC status filter. Empty matches all.
func ValidStatus(s string) bool {
	switch s {
	case "", StatusNormal, StatusTendencia, StatusDesvio:
		return true
	}
	return false
}

// ChartsByStatus returns the SPC charts with the given status, or all
// charts when status is empty.
func (d *Dataset) ChartsByStatus(status string) []SPCChart {
	if status == "" {
		return d.SPC
	}
	charts := make([]SPCChart, 0, len(d.SPC))
	for _, c := range d.SPC {
		if c.Status == status {
			charts = append(charts, c)
		}
	}
	return charts
}
