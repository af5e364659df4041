package core

import (
	"strings"
	"time"
)

const (
	CategoryInternet Category = "internet"
	CategoryTelefone Category = "telefone"
	CategorySoftware Category = "software"
	CategoryHardware Category = "hardware"
	CategoryOutros   Category = "outros"
)

type (
	// Category is the flat classification used when the backing store has no
	// linked vendor entity.
	Category string

	// Bill is a payable obligation. After creation the only mutation is the
	// one-way protocol flip (with optional reference-number merge) or
	// deletion; every other field is immutable.
	Bill struct {
		ID          string
		Name        string
		Description string
		Amount      Money
		DueDate     Date
		Category    Category
		// Company is the linked counterparty label when the store models
		// vendors as first-class records; empty in the flat-category model.
		Company       string
		IsProtocoled  bool
		ProtocoledAt  time.Time
		InvoiceNumber string
		BoletoNumber  string
		CreatedAt     time.Time
	}

	// BillDraft is the caller-supplied input for creating one bill or a
	// recurring series.
	BillDraft struct {
		Name          string
		Description   string
		Amount        Money
		DueDate       Date
		Category      Category
		Company       string
		InvoiceNumber string
		BoletoNumber  string
	}

	// ProtocolPayload carries optional reference numbers attached at
	// protocol time. Empty fields preserve whatever is already stored.
	ProtocolPayload struct {
		InvoiceNumber string
		BoletoNumber  string
	}

	// Recurrence asks for Count bills spaced IntervalMonths apart, starting
	// at the draft's due date. It is consumed at creation time and not
	// persisted in the minimal model.
	Recurrence struct {
		IntervalMonths int
		Count          int
	}
)

var categoryLabels = map[Category]string{
	CategoryInternet: "Internet",
	CategoryTelefone: "Telefone",
	CategorySoftware: "Software",
	CategoryHardware: "Hardware",
	CategoryOutros:   "Outros",
}

func (c Category) IsValid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the display label for the category. Unknown values fall
// back to the raw string so adapter-sourced categories still render.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// DisplayLabel is the human-facing name of the bill: name, then company,
// then description, then a short id fallback.
func (b Bill) DisplayLabel() string {
	switch {
	case b.Name != "":
		return b.Name
	case b.Company != "":
		return b.Company
	case b.Description != "":
		return b.Description
	default:
		id := b.ID
		if len(id) > 6 {
			id = id[:6]
		}
		return "Conta " + id
	}
}

// CompanyLabel unifies the flat-category and linked-entity models at the
// presentation boundary: the linked company wins, then the category label,
// then the display label.
func (b Bill) CompanyLabel() string {
	if b.Company != "" {
		return b.Company
	}
	if b.Category != "" {
		return b.Category.Label()
	}
	return b.DisplayLabel()
}

// GeneralText is the free-text haystack for unscoped search.
func (b Bill) GeneralText() string {
	return b.CompanyLabel() + " " + b.DisplayLabel() + " " + b.Description
}

func (d BillDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	if len(d.Name) > 200 {
		return ErrNameTooLong
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if d.DueDate.IsZero() {
		return ErrInvalidDueDate
	}
	if d.Category != "" && !d.Category.IsValid() {
		return ErrInvalidCategory
	}
	return nil
}

func (r Recurrence) Validate() error {
	if r.Count < 1 || r.IntervalMonths < 1 {
		return ErrInvalidRecurrence
	}
	return nil
}
