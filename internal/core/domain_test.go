package core

import (
	"errors"
	"strings"
	"testing"
)

func validDraft() BillDraft {
	return BillDraft{
		Name:     "Vivo Fibra",
		Amount:   Money{Cents: 45000},
		DueDate:  NewDate(2025, 3, 15),
		Category: CategoryInternet,
	}
}

func TestBillDraftValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*BillDraft)
		wantErr error
	}{
		{"valid draft", func(d *BillDraft) {}, nil},
		{"category optional", func(d *BillDraft) { d.Category = "" }, nil},
		{"empty name", func(d *BillDraft) { d.Name = "  " }, ErrEmptyName},
		{"name too long", func(d *BillDraft) { d.Name = strings.Repeat("x", 201) }, ErrNameTooLong},
		{"zero amount", func(d *BillDraft) { d.Amount = Money{} }, ErrInvalidAmount},
		{"missing due date", func(d *BillDraft) { d.DueDate = Date{} }, ErrInvalidDueDate},
		{"unknown category", func(d *BillDraft) { d.Category = "energia" }, ErrInvalidCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)
			if err := d.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCategoryLabel(t *testing.T) {
	tests := []struct {
		cat  Category
		want string
	}{
		{CategoryInternet, "Internet"},
		{CategoryTelefone, "Telefone"},
		{CategoryOutros, "Outros"},
		{"energia", "energia"},
	}
	for _, tt := range tests {
		if got := tt.cat.Label(); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.cat, got, tt.want)
		}
	}
}

func TestBillCompanyLabel(t *testing.T) {
	tests := []struct {
		name string
		bill Bill
		want string
	}{
		{"linked company wins", Bill{Company: "Vivo", Category: CategoryInternet, Name: "Link matriz"}, "Vivo"},
		{"category label fallback", Bill{Category: CategorySoftware, Name: "Licenças"}, "Software"},
		{"name fallback", Bill{Name: "AWS"}, "AWS"},
		{"short id fallback", Bill{ID: "abcdef123456"}, "Conta abcdef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bill.CompanyLabel(); got != tt.want {
				t.Errorf("CompanyLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Vivo", "vivo"},
		{" vívo  ", "vivo"},
		{"SÃO PAULO", "sao paulo"},
		{"DESCRIÇÃO", "descricao"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeKey(tt.input); got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
