package server

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oszuidwest/diario-bordo/internal/types"
)

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
		wantJSON  bool
	}{
		{"valid", `{"evento_id":"3f1c1f7e-6b0a-4a53-8d0c-6f1f0c2b8d11","tipo":"detalhe"}`, "", false},
		{"empty body", ``, "", false},
		{"bad uuid", `{"evento_id":"abc"}`, "evento_id", false},
		{"free tipo", `{"tipo":"audio"}`, "", false},
		{"long tipo", `{"tipo":"` + strings.Repeat("a", 33) + `"}`, "tipo", false},
		{"malformed", `{"tipo":`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req TranscribeFormRequest
			err := DecodeAndValidate([]byte(tt.body), &req)

			if tt.wantJSON {
				if !errors.Is(err, ErrInvalidJSON) {
					t.Errorf("error = %v, want ErrInvalidJSON", err)
				}
				return
			}
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("error = %v", err)
				}
				return
			}

			var verr *types.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *types.ValidationError", err)
			}
			if len(verr.Errors) != 1 || verr.Errors[0].Field != tt.wantField {
				t.Errorf("errors = %+v", verr.Errors)
			}
		})
	}
}

func TestValidationMessageUsesJSONName(t *testing.T) {
	bars := 0
	err := Validate(&MeterConfigRequest{Bars: &bars})

	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v", err)
	}
	if got := verr.Errors[0].Message; got != "bars must be greater than or equal to 1" {
		t.Errorf("message = %q", got)
	}
}

func TestSendErrorKeepsFields(t *testing.T) {
	send := make(chan any, 1)
	verr := types.NewValidationError()
	verr.Add("bars", "bars is required", nil)
	SendError(send, "meter/config", verr)

	res := (<-send).(types.WSCommandResult)
	if res.Type != "meter/config_result" || res.Success || res.Error.Errors[0].Field != "bars" {
		t.Errorf("result = %+v", res)
	}
}

func TestTrySendDropsWhenFull(t *testing.T) {
	send := make(chan any)
	SendSuccess(send, "meter/state", nil) // must not block
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		origin string
		host   string
		want   bool
	}{
		{"", "diario.local", true},
		{"http://localhost:5173", "diario.local", true},
		{"https://diario.local", "diario.local:3001", true},
		{"http://192.168.10.20", "diario.local", true},
		{"https://evil.example.com", "diario.local", false},
		{"://bad", "diario.local", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/ws/meter", nil)
		r.Host = tt.host
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := checkOrigin(r); got != tt.want {
			t.Errorf("checkOrigin(%q, %q) = %v, want %v", tt.origin, tt.host, got, tt.want)
		}
	}
}

func TestUpdateTranscricaoRequestPresence(t *testing.T) {
	var req UpdateTranscricaoRequest
	if err := DecodeAndValidate([]byte(`{"detalhe":"trinca","observacao":null}`), &req); err != nil {
		t.Fatalf("error = %v", err)
	}
	if !req.Detalhe.Set || req.Detalhe.Null || req.Detalhe.Value != "trinca" {
		t.Errorf("detalhe = %+v", req.Detalhe)
	}
	if !req.Observacao.Set || !req.Observacao.Null || req.Observacao.Ptr() != nil {
		t.Errorf("observacao = %+v", req.Observacao)
	}

	var absent UpdateTranscricaoRequest
	if err := DecodeAndValidate([]byte(`{"detalhe":""}`), &absent); err != nil {
		t.Fatalf("error = %v", err)
	}
	if absent.Observacao.Set {
		t.Errorf("absent observacao marked set")
	}
	if p := absent.Detalhe.Ptr(); p == nil || *p != "" {
		t.Errorf("empty detalhe = %v, want empty string", p)
	}
}
