package ingest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/contador-app/contador/internal/classifier"
	"github.com/contador-app/contador/internal/invoices"
	"github.com/contador-app/contador/internal/payments"
	"github.com/contador-app/contador/internal/providers"
	"github.com/contador-app/contador/internal/units"
)

type fakeProviders struct {
	provider *providers.Provider
	gotTaxID string
	gotName  string
	calls    int
}

func (f *fakeProviders) FindOrCreate(ctx context.Context, taxID, name string) (*providers.Provider, error) {
	f.calls++
	f.gotTaxID = taxID
	f.gotName = name
	return f.provider, nil
}

type fakeInvoices struct {
	existing  *invoices.Invoice
	created   *invoices.CreateCommand
	gotNumber string
}

func (f *fakeInvoices) FindByNumber(ctx context.Context, providerID uuid.UUID, number string) (*invoices.Invoice, error) {
	f.gotNumber = number
	if f.existing != nil && f.existing.InvoiceNumber == number {
		return f.existing, nil
	}
	return nil, invoices.ErrNotFound
}

func (f *fakeInvoices) Create(ctx context.Context, cmd invoices.CreateCommand) (*invoices.Invoice, error) {
	f.created = &cmd
	return &invoices.Invoice{ID: uuid.New(), InvoiceNumber: cmd.InvoiceNumber}, nil
}

type fakePayments struct {
	existing *payments.Payment
	created  *payments.CreateCommand
}

func (f *fakePayments) FindByReceiptKey(ctx context.Context, unitID uuid.UUID, ref string, amount float64) (*payments.Payment, error) {
	if f.existing != nil && f.existing.TransactionRef != nil && *f.existing.TransactionRef == ref {
		return f.existing, nil
	}
	return nil, payments.ErrNotFound
}

func (f *fakePayments) Create(ctx context.Context, cmd payments.CreateCommand) (*payments.Payment, error) {
	f.created = &cmd
	return &payments.Payment{ID: uuid.New(), UnitID: cmd.UnitID}, nil
}

type fakeStorage struct {
	folder string
	calls  int
}

func (f *fakeStorage) Store(ctx context.Context, data []byte, filename, folder, contentType string) (string, error) {
	f.calls++
	f.folder = folder
	return "https://blob.example/" + folder + "/" + filename, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testUnit() *units.Unit {
	return &units.Unit{ID: uuid.New(), Name: "Conjunto Los Pinos", TaxID: "901234567-1"}
}

func testSource() Source {
	return Source{
		Data:        []byte("%PDF-1.7"),
		Filename:    "factura.pdf",
		ContentType: "application/pdf",
		Subject:     "Factura julio",
		Sender:      "facturacion@proveedor.co",
		Date:        time.Date(2026, 7, 16, 8, 0, 0, 0, time.UTC),
	}
}

func rate(v float64) *float64 { return &v }

func TestProcessInvoiceCreatesDraftWithWithholdings(t *testing.T) {
	prov := &fakeProviders{provider: &providers.Provider{
		ID:             uuid.New(),
		TaxID:          "900123456",
		Name:           "Aseo Total SAS",
		RetefuenteRate: rate(4),
		ReteicaRate:    rate(9.66),
	}}
	inv := &fakeInvoices{}
	store := &fakeStorage{}
	sys := New(prov, inv, &fakePayments{}, store, testLogger())

	data := &classifier.InvoiceData{
		TaxID:          "900.123.456-7",
		ProviderName:   "Aseo Total SAS",
		DocumentNumber: "FV-1042",
		TotalAmount:    1250000.0,
		Date:           "2026-07-15",
		Concept:        "Aseo zonas comunes",
	}

	outcome, err := sys.ProcessInvoice(context.Background(), testUnit(), data, testSource())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusCreated {
		t.Fatalf("status: got %s, want created", outcome.Status)
	}
	if outcome.DocumentID == nil {
		t.Fatal("expected a document id")
	}
	if prov.gotTaxID != "9001234567" {
		t.Errorf("tax id not normalized: got %s", prov.gotTaxID)
	}
	if store.folder != "invoices" {
		t.Errorf("storage folder: got %s", store.folder)
	}
	if inv.created == nil {
		t.Fatal("invoice not created")
	}
	if inv.created.RetefuenteAmount != 50000 {
		t.Errorf("retefuente: got %v, want 50000", inv.created.RetefuenteAmount)
	}
	if inv.created.ReteicaAmount != 12075 {
		t.Errorf("reteica: got %v, want 12075", inv.created.ReteicaAmount)
	}
	if inv.created.Source == nil || *inv.created.Source != SourceEmail {
		t.Error("missing EMAIL provenance")
	}
	if inv.created.EmailSubject == nil || *inv.created.EmailSubject != "Factura julio" {
		t.Error("missing email subject provenance")
	}
}

func TestProcessInvoiceDuplicateIsSilentNoOp(t *testing.T) {
	existingID := uuid.New()
	prov := &fakeProviders{provider: &providers.Provider{ID: uuid.New()}}
	inv := &fakeInvoices{existing: &invoices.Invoice{ID: existingID, InvoiceNumber: "FV-1042"}}
	store := &fakeStorage{}
	sys := New(prov, inv, &fakePayments{}, store, testLogger())

	data := &classifier.InvoiceData{
		TaxID:          "900123456",
		ProviderName:   "Aseo Total SAS",
		DocumentNumber: "FV-1042",
		TotalAmount:    1250000.0,
	}

	outcome, err := sys.ProcessInvoice(context.Background(), testUnit(), data, testSource())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusDuplicate {
		t.Fatalf("status: got %s, want duplicate", outcome.Status)
	}
	if outcome.DocumentID == nil || *outcome.DocumentID != existingID {
		t.Error("expected the existing document id")
	}
	if store.calls != 0 {
		t.Error("duplicate must not upload")
	}
	if inv.created != nil {
		t.Error("duplicate must not create")
	}
}

func TestProcessInvoiceSkipsWithoutProviderIdentity(t *testing.T) {
	prov := &fakeProviders{}
	sys := New(prov, &fakeInvoices{}, &fakePayments{}, &fakeStorage{}, testLogger())

	data := &classifier.InvoiceData{TotalAmount: 50000.0}

	outcome, err := sys.ProcessInvoice(context.Background(), testUnit(), data, testSource())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusSkipped {
		t.Fatalf("status: got %s, want skipped", outcome.Status)
	}
	if prov.calls != 0 {
		t.Error("must not touch the provider directory")
	}
}

func TestProcessInvoiceSkipsOwnershipMismatch(t *testing.T) {
	prov := &fakeProviders{}
	sys := New(prov, &fakeInvoices{}, &fakePayments{}, &fakeStorage{}, testLogger())

	data := &classifier.InvoiceData{
		TaxID:        "900123456",
		ProviderName: "Aseo Total SAS",
		ClientTaxID:  "800999888-3",
	}

	outcome, err := sys.ProcessInvoice(context.Background(), testUnit(), data, testSource())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusSkipped {
		t.Fatalf("status: got %s, want skipped", outcome.Status)
	}
	if prov.calls != 0 {
		t.Error("mismatched document must not create a provider")
	}
}

func TestProcessInvoiceMatchingClientTaxIDPasses(t *testing.T) {
	prov := &fakeProviders{provider: &providers.Provider{ID: uuid.New()}}
	inv := &fakeInvoices{}
	sys := New(prov, inv, &fakePayments{}, &fakeStorage{}, testLogger())

	// unit tax id 901234567-1 normalizes to the same leading 9 digits
	data := &classifier.InvoiceData{
		TaxID:        "900123456",
		ProviderName: "Aseo Total SAS",
		ClientTaxID:  "901.234.567-1",
	}

	outcome, err := sys.ProcessInvoice(context.Background(), testUnit(), data, testSource())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusCreated {
		t.Fatalf("status: got %s, want created", outcome.Status)
	}
}

func TestProcessInvoiceMissingNumberUsesSentinel(t *testing.T) {
	prov := &fakeProviders{provider: &providers.Provider{ID: uuid.New()}}
	inv := &fakeInvoices{}
	sys := New(prov, inv, &fakePayments{}, &fakeStorage{}, testLogger())

	data := &classifier.InvoiceData{
		TaxID:        "900123456",
		ProviderName: "Aseo Total SAS",
		TotalAmount:  "98000",
	}

	outcome, err := sys.ProcessInvoice(context.Background(), testUnit(), data, testSource())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusCreated {
		t.Fatalf("status: got %s, want created", outcome.Status)
	}
	if inv.gotNumber != invoices.NoReference {
		t.Errorf("dedup number: got %s, want %s", inv.gotNumber, invoices.NoReference)
	}
	if inv.created.TotalAmount != 98000 {
		t.Errorf("amount: got %v, want 98000", inv.created.TotalAmount)
	}
}

func TestProcessReceiptCreatesExternalDraft(t *testing.T) {
	pay := &fakePayments{}
	store := &fakeStorage{}
	sys := New(&fakeProviders{}, &fakeInvoices{}, pay, store, testLogger())

	unit := testUnit()
	data := &classifier.ReceiptData{
		BankName:       "Bancolombia",
		TransactionRef: "TRX-778",
		TotalAmount:    "350000,50",
		Date:           "15/07/2026",
		Concept:        "Pago vigilancia",
	}

	outcome, err := sys.ProcessReceipt(context.Background(), unit, data, testSource())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusCreated {
		t.Fatalf("status: got %s, want created", outcome.Status)
	}
	if pay.created == nil {
		t.Fatal("payment not created")
	}
	if pay.created.SourceType != payments.SourceExternal {
		t.Errorf("source type: got %s, want EXTERNAL", pay.created.SourceType)
	}
	if pay.created.TotalAmount != 350000.50 {
		t.Errorf("amount: got %v, want 350000.50", pay.created.TotalAmount)
	}
	if pay.created.PaymentDate != time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC) {
		t.Errorf("payment date: got %v", pay.created.PaymentDate)
	}
	if store.folder != "receipts" {
		t.Errorf("storage folder: got %s", store.folder)
	}
}

func TestProcessReceiptSkipsWithoutReference(t *testing.T) {
	pay := &fakePayments{}
	sys := New(&fakeProviders{}, &fakeInvoices{}, pay, &fakeStorage{}, testLogger())

	data := &classifier.ReceiptData{BankName: "Bancolombia", TotalAmount: 350000.0}

	outcome, err := sys.ProcessReceipt(context.Background(), testUnit(), data, testSource())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusSkipped {
		t.Fatalf("status: got %s, want skipped", outcome.Status)
	}
	if pay.created != nil {
		t.Error("must not create without a reference")
	}
}

func TestProcessReceiptDuplicateByKey(t *testing.T) {
	ref := "TRX-778"
	existing := &payments.Payment{ID: uuid.New(), TransactionRef: &ref}
	pay := &fakePayments{existing: existing}
	store := &fakeStorage{}
	sys := New(&fakeProviders{}, &fakeInvoices{}, pay, store, testLogger())

	data := &classifier.ReceiptData{TransactionRef: "TRX-778", TotalAmount: 350000.0}

	outcome, err := sys.ProcessReceipt(context.Background(), testUnit(), data, testSource())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusDuplicate {
		t.Fatalf("status: got %s, want duplicate", outcome.Status)
	}
	if store.calls != 0 {
		t.Error("duplicate must not upload")
	}
}
