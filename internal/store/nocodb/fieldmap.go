package nocodb

import (
	"encoding/json"
	"fmt"
	"strings"

	"contas/internal/core"
)

// FieldMap names the remote columns for each logical field. The first
// spelling is canonical and used for writes; reads accept any listed
// spelling, compared by normalized key, because real projects drift
// between accented and plain column titles.
type FieldMap struct {
	Name         []string
	Description  []string
	Amount       []string
	DueDay       []string
	DueDate      []string
	Competency   []string
	Company      []string
	Category     []string
	Email        []string
	Protocoled   []string
	ProtocoledAt []string
	Invoice      []string
	Boleto       []string
}

// DefaultFieldMap matches the stock pt-BR schema.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		Name:         []string{"NOME"},
		Description:  []string{"DESCRIÇÃO", "DESCRICAO"},
		Amount:       []string{"VALOR"},
		DueDay:       []string{"DIA_VENCIMENTO"},
		DueDate:      []string{"DATA_VENCIMENTO"},
		Competency:   []string{"COMPETENCIA"},
		Company:      []string{"EMPRESA_FORNECEDOR"},
		Category:     []string{"CATEGORIA"},
		Email:        []string{"EMAIL"},
		Protocoled:   []string{"PROTOCOLADA"},
		ProtocoledAt: []string{"PROTOCOLADA_EM"},
		Invoice:      []string{"NOTA_FISCAL"},
		Boleto:       []string{"BOLETO"},
	}
}

// column is the canonical spelling, used when writing fields.
func column(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// fieldValue finds a field by any of its accepted spellings, comparing
// normalized keys so accents and casing never break the mapping.
func fieldValue(fields map[string]any, names ...string) (any, bool) {
	if len(fields) == 0 {
		return nil, false
	}
	byNorm := make(map[string]any, len(fields))
	for k, v := range fields {
		byNorm[core.NormalizeKey(k)] = v
	}
	for _, name := range names {
		if v, ok := byNorm[core.NormalizeKey(name)]; ok {
			return v, true
		}
	}
	return nil, false
}

func fieldString(fields map[string]any, names ...string) string {
	v, ok := fieldValue(fields, names...)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return stringify(v)
}

func fieldBool(fields map[string]any, names ...string) bool {
	v, ok := fieldValue(fields, names...)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "1"
	default:
		return stringify(v) == "1"
	}
}

func fieldInt(fields map[string]any, fallback int, names ...string) int {
	v, ok := fieldValue(fields, names...)
	if !ok || v == nil {
		return fallback
	}
	s := stringify(v)
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return fallback
		}
		n = n*10 + int(r-'0')
	}
	if s == "" || n == 0 {
		return fallback
	}
	return n
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
