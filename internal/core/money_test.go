package core

import "testing"

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"plain integer", "1234", 123400, false},
		{"dot decimal", "1234.56", 123456, false},
		{"comma decimal", "1234,56", 123456, false},
		{"pt-BR thousands", "1.234,56", 123456, false},
		{"en-US thousands", "1,234.56", 123456, false},
		{"currency prefix", "R$ 450,00", 45000, false},
		{"currency prefix with thousands", "R$ 3.200,00", 320000, false},
		{"third decimal rounds down", "12.344", 1234, false},
		{"third decimal rounds up", "12.346", 1235, false},
		{"empty", "", 0, true},
		{"negative", "-12.34", 0, true},
		{"explicit plus", "+12.34", 0, true},
		{"letters", "abc", 0, true},
		{"two decimal separators", "1.2.3.4", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMoney(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got.Cents != tt.want {
				t.Errorf("ParseMoney(%q) = %d cents, want %d", tt.input, got.Cents, tt.want)
			}
		})
	}
}

func TestMoneyFormatBRL(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "R$ 0,00"},
		{45000, "R$ 450,00"},
		{123456, "R$ 1.234,56"},
		{123456789, "R$ 1.234.567,89"},
		{-98765, "-R$ 987,65"},
	}
	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).FormatBRL(); got != tt.want {
			t.Errorf("FormatBRL(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 100}).Validate(); err != nil {
		t.Errorf("positive amount should validate, got %v", err)
	}
	if err := (Money{}).Validate(); err != ErrInvalidAmount {
		t.Errorf("zero amount error = %v, want ErrInvalidAmount", err)
	}
	if err := (Money{Cents: -1}).Validate(); err != ErrInvalidAmount {
		t.Errorf("negative amount error = %v, want ErrInvalidAmount", err)
	}
}
