package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const outputPrefix = "Output: "

// ClientID identifies the caller in a call outcome.
type ClientID struct {
	OrderNumber *string `json:"numero_encomenda"`
	Email       *string `json:"email"`
}

// Outcome is the structured result the backend produces when a call ends.
type Outcome struct {
	Client         *ClientID `json:"identificacao_cliente"`
	Classification string    `json:"tipificacao"`
	Redirect       *bool     `json:"redirecionamento"`
	Summary        string    `json:"resumo"`
}

// StripOutput removes the "Output: " label from a text_output value.
func StripOutput(value string) string {
	return strings.Replace(value, outputPrefix, "", 1)
}

// CleanOutput removes the label, surrounding space and one trailing backtick
// from a text_output value, leaving the outcome document.
func CleanOutput(value string) string {
	raw := strings.TrimSpace(StripOutput(value))
	if strings.HasSuffix(raw, "`") {
		raw = strings.TrimSpace(strings.TrimSuffix(raw, "`"))
	}
	return raw
}

// ParseOutput decodes the call outcome carried by a text_output value, as
// cleaned by [CleanOutput]. It returns false when the remainder is not a JSON
// object.
func ParseOutput(value string) (Outcome, bool) {
	var o Outcome
	if err := json.Unmarshal([]byte(CleanOutput(value)), &o); err != nil {
		return Outcome{}, false
	}
	return o, true
}

// Lines renders o for display, omitting absent fields.
func (o Outcome) Lines() []string {
	var lines []string
	if c := o.Client; c != nil {
		lines = append(lines,
			"Número de Encomenda: "+orNA(c.OrderNumber),
			"Email: "+orNA(c.Email),
		)
	}
	if o.Classification != "" {
		lines = append(lines, "Tipificação: "+o.Classification)
	}
	if o.Redirect != nil {
		answer := "Não"
		if *o.Redirect {
			answer = "Sim"
		}
		lines = append(lines, "Redirecionamento: "+answer)
	}
	if o.Summary != "" {
		lines = append(lines, "Resumo: "+o.Summary)
	}
	return lines
}

func orNA(s *string) string {
	if s == nil {
		return "N/A"
	}
	return *s
}

// ExportOutput writes the text_output value, cleaned by [CleanOutput], to
// path. Missing parent directories are created.
func ExportOutput(path, value string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("transcript: export output: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(CleanOutput(value)), 0o644); err != nil {
		return fmt.Errorf("transcript: export output: %w", err)
	}
	return nil
}
