package nocodb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"contas/internal/core"
	"contas/internal/store"
)

const (
	testProject = "p1"

	tblSectors     = "tbl_setores"
	tblBills       = "tbl_contas"
	tblGenerations = "tbl_geracoes"

	lnkSectorBills     = "lnk_setor_contas"
	lnkBillSector      = "lnk_conta_setor"
	lnkBillCompany     = "lnk_conta_empresa"
	lnkBillCategory    = "lnk_conta_categoria"
	lnkBillGenerations = "lnk_conta_geracoes"
)

func testTables() Tables {
	return Tables{
		Sectors:     tblSectors,
		Bills:       tblBills,
		Generations: tblGenerations,
	}
}

func testLinks() Links {
	return Links{
		SectorBills:     lnkSectorBills,
		BillSector:      lnkBillSector,
		BillCompany:     lnkBillCompany,
		BillCategory:    lnkBillCategory,
		BillGenerations: lnkBillGenerations,
	}
}

func recordsJSON(records ...string) string {
	out := "{\"records\":["
	for i, r := range records {
		if i > 0 {
			out += ","
		}
		out += r
	}
	return out + "]}"
}

func newTestAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "token", testProject)
	scope := NewScope(client, testTables(), DefaultFieldMap(), "contas@empresa.com", nil)
	return NewAdapter(client, testTables(), testLinks(), DefaultFieldMap(), scope)
}

func route(table string) string {
	return fmt.Sprintf("/api/v3/data/%s/%s/records", testProject, table)
}

func linkRoute(table, link, record string) string {
	return fmt.Sprintf("/api/v3/data/%s/%s/links/%s/%s", testProject, table, link, record)
}

func sectorHandler(mux *http.ServeMux) {
	mux.HandleFunc(route(tblSectors), func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, recordsJSON(`{"id":"setor-1","fields":{"SETORES":"TI","EMAIL":"contas@empresa.com"}}`))
	})
}

func TestListBillsSingleDueDate(t *testing.T) {
	mux := http.NewServeMux()
	sectorHandler(mux)
	mux.HandleFunc(linkRoute(tblSectors, lnkSectorBills, "setor-1"), func(w http.ResponseWriter, r *http.Request) {
		// DESCRIÇÃO comes back unaccented on this install; VALOR as pt-BR text.
		fmt.Fprint(w, recordsJSON(`{"id":7,"fields":{"NOME":"Vivo Fibra","DESCRICAO":"link 500mb","VALOR":"R$ 120,00","DATA_VENCIMENTO":"12-03-2025"}}`))
	})
	mux.HandleFunc(linkRoute(tblBills, lnkBillCompany, "7"), func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, recordsJSON(`{"id":"e1","fields":{"EMPRESA_FORNECEDOR":"Vivo"}}`))
	})
	mux.HandleFunc(linkRoute(tblBills, lnkBillCategory, "7"), func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, recordsJSON(`{"id":"c1","fields":{"CATEGORIA":"internet"}}`))
	})

	a := newTestAdapter(t, mux)
	bills, err := a.ListBills(context.Background())
	if err != nil {
		t.Fatalf("ListBills: %v", err)
	}
	if len(bills) != 1 {
		t.Fatalf("len = %d, want 1", len(bills))
	}
	b := bills[0]
	if b.ID != "7" || b.Name != "Vivo Fibra" || b.Description != "link 500mb" {
		t.Fatalf("bill = %+v", b)
	}
	if b.Amount.Cents != 12000 {
		t.Fatalf("amount = %d", b.Amount.Cents)
	}
	if b.DueDate.String() != "2025-03-12" {
		t.Fatalf("due date = %s", b.DueDate)
	}
	if b.Company != "Vivo" || b.Category != core.CategoryInternet {
		t.Fatalf("links = %q / %q", b.Company, b.Category)
	}
}

func TestListBillsExpandsGenerations(t *testing.T) {
	mux := http.NewServeMux()
	sectorHandler(mux)
	mux.HandleFunc(linkRoute(tblSectors, lnkSectorBills, "setor-1"), func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, recordsJSON(`{"id":"conta-9","fields":{"NOME":"Aluguel sala","VALOR":2500,"DIA_VENCIMENTO":31}}`))
	})
	mux.HandleFunc(linkRoute(tblBills, lnkBillGenerations, "conta-9"), func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, recordsJSON(
			`{"id":"g1","fields":{"COMPETENCIA":"2025-01"}}`,
			`{"id":"g2","fields":{"COMPETENCIA":"2025-02"}}`,
			`{"id":"g3","fields":{"COMPETENCIA":"invalida"}}`,
		))
	})
	mux.HandleFunc(linkRoute(tblBills, lnkBillCompany, "conta-9"), func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, recordsJSON())
	})
	mux.HandleFunc(linkRoute(tblBills, lnkBillCategory, "conta-9"), func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, recordsJSON())
	})

	a := newTestAdapter(t, mux)
	bills, err := a.ListBills(context.Background())
	if err != nil {
		t.Fatalf("ListBills: %v", err)
	}
	// Unparseable competency is skipped, day 31 clamps in February.
	if len(bills) != 2 {
		t.Fatalf("len = %d, want 2", len(bills))
	}
	if bills[0].ID != "g1" || bills[0].DueDate.String() != "2025-01-31" {
		t.Fatalf("first = %s %s", bills[0].ID, bills[0].DueDate)
	}
	if bills[1].ID != "g2" || bills[1].DueDate.String() != "2025-02-28" {
		t.Fatalf("second = %s %s", bills[1].ID, bills[1].DueDate)
	}
	if bills[0].Amount.Cents != 250000 {
		t.Fatalf("amount = %d", bills[0].Amount.Cents)
	}
}

func TestCreateBillsLinksSector(t *testing.T) {
	var linked bool
	mux := http.NewServeMux()
	sectorHandler(mux)
	mux.HandleFunc(route(tblBills), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var body struct {
			Fields map[string]any `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode create body: %v", err)
		}
		if body.Fields["NOME"] != "Vivo Fibra" {
			t.Errorf("fields = %v", body.Fields)
		}
		fmt.Fprint(w, recordsJSON(`{"id":"novo-1","fields":{}}`))
	})
	mux.HandleFunc(linkRoute(tblBills, lnkBillSector, "novo-1"), func(w http.ResponseWriter, r *http.Request) {
		linked = true
		fmt.Fprint(w, `{}`)
	})

	a := newTestAdapter(t, mux)
	due, _ := core.ParseLocalDate("2025-03-12")
	err := a.CreateBills(context.Background(), []core.Bill{{
		ID:      "local-id",
		Name:    "Vivo Fibra",
		Amount:  core.Money{Cents: 12000},
		DueDate: due,
	}})
	if err != nil {
		t.Fatalf("CreateBills: %v", err)
	}
	if !linked {
		t.Fatal("created bill was not linked to the sector")
	}
}

func TestLinkRecordsAlreadyExistsIsNoOp(t *testing.T) {
	mux := http.NewServeMux()
	sectorHandler(mux)
	mux.HandleFunc(linkRoute(tblBills, lnkBillCompany, "b1"), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"msg":"Record already exists"}`)
	})

	a := newTestAdapter(t, mux)
	if err := a.LinkEntities(context.Background(), "b1", lnkBillCompany, []string{"e1"}); err != nil {
		t.Fatalf("LinkEntities: %v", err)
	}
}

func TestUpdateBillPatchFields(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc(route(tblBills), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s", r.Method)
		}
		var body struct {
			ID     string         `json:"id"`
			Fields map[string]any `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode patch body: %v", err)
		}
		if body.ID != "b1" {
			t.Errorf("id = %s", body.ID)
		}
		got = body.Fields
		fmt.Fprint(w, `{}`)
	})

	a := newTestAdapter(t, mux)
	yes := true
	nf := "NF-100"
	err := a.UpdateBill(context.Background(), "b1", store.BillPatch{
		IsProtocoled:  &yes,
		InvoiceNumber: &nf,
	})
	if err != nil {
		t.Fatalf("UpdateBill: %v", err)
	}
	if got["PROTOCOLADA"] != true || got["NOTA_FISCAL"] != "NF-100" {
		t.Fatalf("patch fields = %v", got)
	}
	if _, ok := got["BOLETO"]; ok {
		t.Fatal("nil patch field was sent")
	}
}

func TestUpdateBillNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(route(tblBills), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"msg":"Record not found"}`)
	})

	a := newTestAdapter(t, mux)
	yes := true
	err := a.UpdateBill(context.Background(), "missing", store.BillPatch{IsProtocoled: &yes})
	if !core.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestScopeCachesSectorID(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc(route(tblSectors), func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, recordsJSON(`{"id":"setor-1","fields":{"EMAIL":"contas@empresa.com"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	scope := NewScope(NewClient(srv.URL, "token", testProject), testTables(), DefaultFieldMap(), "contas@empresa.com", nil)
	for i := 0; i < 3; i++ {
		id, err := scope.Resolve(context.Background())
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if id != "setor-1" {
			t.Fatalf("id = %s", id)
		}
	}
	if calls != 1 {
		t.Fatalf("remote lookups = %d, want 1", calls)
	}

	scope.Invalidate()
	if _, err := scope.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve after invalidate: %v", err)
	}
	if calls != 2 {
		t.Fatalf("remote lookups = %d, want 2", calls)
	}
}
