package memory

import (
	"time"

	"contas/internal/core"

	"github.com/google/uuid"
)

// Seed fills an empty store with a small demo dataset for local runs: one
// bill due soon, one overdue, one comfortably pending and one protocoled.
func (s *Store) Seed(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) > 0 {
		return
	}

	day := func(offset int) core.Date {
		return core.Today(now.AddDate(0, 0, offset))
	}
	protocoledAt := now

	s.items = []core.Bill{
		{
			ID:          uuid.NewString(),
			Name:        "Vivo Fibra",
			Description: "Link de internet 500MB matriz",
			Amount:      core.Money{Cents: 45000},
			DueDate:     day(2),
			Category:    core.CategoryInternet,
			CreatedAt:   now,
		},
		{
			ID:          uuid.NewString(),
			Name:        "Microsoft 365",
			Description: "Licenças corporativas - 50 usuários",
			Amount:      core.Money{Cents: 250000},
			DueDate:     day(-3),
			Category:    core.CategorySoftware,
			CreatedAt:   now,
		},
		{
			ID:          uuid.NewString(),
			Name:        "Claro Móvel",
			Description: "Plano corporativo 20 linhas",
			Amount:      core.Money{Cents: 89000},
			DueDate:     day(10),
			Category:    core.CategoryTelefone,
			CreatedAt:   now,
		},
		{
			ID:            uuid.NewString(),
			Name:          "AWS",
			Description:   "Serviços cloud - servidores",
			Amount:        core.Money{Cents: 320000},
			DueDate:       day(-1),
			Category:      core.CategorySoftware,
			IsProtocoled:  true,
			ProtocoledAt:  protocoledAt,
			InvoiceNumber: "123456",
			BoletoNumber:  "34191",
			CreatedAt:     now,
		},
	}
	_ = s.persist("seed")
}
