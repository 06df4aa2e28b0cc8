package scans

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/contador-app/contador/internal/classifier"
	"github.com/contador-app/contador/internal/config"
	"github.com/contador-app/contador/internal/ingest"
	"github.com/contador-app/contador/internal/mailbox"
	"github.com/contador-app/contador/internal/units"
)

type fakeJobs struct {
	mu           sync.Mutex
	job          *ScanJob
	progressLog  []int
	processedLog []int
}

func (f *fakeJobs) create(ctx context.Context, unitID uuid.UUID) (*ScanJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.job = &ScanJob{ID: uuid.New(), UnitID: unitID, Status: StatusPending}
	return f.snapshot(), nil
}

func (f *fakeJobs) find(ctx context.Context, id uuid.UUID) (*ScanJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.job == nil || f.job.ID != id {
		return nil, ErrNotFound
	}
	return f.snapshot(), nil
}

func (f *fakeJobs) markProcessing(ctx context.Context, id uuid.UUID, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.job.Status = StatusProcessing
	f.job.Progress = 10
	f.job.TotalItems = total
	return nil
}

func (f *fakeJobs) checkpoint(ctx context.Context, id uuid.UUID, progress, processed int, results []Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.job.Progress = progress
	f.job.ProcessedCount = processed
	f.job.Results = append([]Item(nil), results...)
	f.progressLog = append(f.progressLog, progress)
	f.processedLog = append(f.processedLog, processed)
	return nil
}

func (f *fakeJobs) complete(ctx context.Context, id uuid.UUID, results []Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.job.Status = StatusCompleted
	f.job.Progress = 100
	f.job.Results = append([]Item(nil), results...)
	return nil
}

func (f *fakeJobs) fail(ctx context.Context, id uuid.UUID, message string, results []Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.job.Status = StatusFailed
	f.job.Error = &message
	f.job.Results = append([]Item(nil), results...)
	return nil
}

func (f *fakeJobs) snapshot() *ScanJob {
	copied := *f.job
	return &copied
}

type fakeUnits struct {
	unit    *units.Unit
	findErr error
	touched int
}

func (f *fakeUnits) Find(ctx context.Context, id uuid.UUID) (*units.Unit, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.unit, nil
}

func (f *fakeUnits) TouchLastScan(ctx context.Context, id uuid.UUID) error {
	f.touched++
	return nil
}

type fakeMail struct {
	refs        []mailbox.MessageRef
	messages    map[string]*mailbox.EmailMessage
	attachments map[string][]byte
	listErr     error

	ensuredLabel string
	labeled      []string
}

func (f *fakeMail) ListUnread(ctx context.Context, unitID uuid.UUID, window string) ([]mailbox.MessageRef, error) {
	return f.refs, f.listErr
}

func (f *fakeMail) Message(ctx context.Context, unitID uuid.UUID, messageID string) (*mailbox.EmailMessage, error) {
	msg, ok := f.messages[messageID]
	if !ok {
		return nil, errors.New("message gone")
	}
	return msg, nil
}

func (f *fakeMail) Attachment(ctx context.Context, unitID uuid.UUID, messageID, attachmentID string) ([]byte, error) {
	data, ok := f.attachments[attachmentID]
	if !ok {
		return nil, errors.New("attachment gone")
	}
	return data, nil
}

func (f *fakeMail) EnsureLabel(ctx context.Context, unitID uuid.UUID, name string) (string, error) {
	f.ensuredLabel = name
	return "label-1", nil
}

func (f *fakeMail) ApplyProcessed(ctx context.Context, unitID uuid.UUID, messageID, labelID string) error {
	f.labeled = append(f.labeled, messageID)
	return nil
}

type classifyResponse struct {
	result *classifier.Result
	err    error
}

type fakeClassifier struct {
	responses []classifyResponse
	calls     int
}

func (f *fakeClassifier) Classify(ctx context.Context, data []byte, mimeType string, unitCtx classifier.UnitContext) (*classifier.Result, error) {
	if f.calls >= len(f.responses) {
		return classifier.Other(), nil
	}
	resp := f.responses[f.calls]
	f.calls++
	return resp.result, resp.err
}

type fakeSink struct {
	invoices int
	receipts int
}

func (f *fakeSink) ProcessInvoice(ctx context.Context, unit *units.Unit, data *classifier.InvoiceData, src ingest.Source) (*ingest.Outcome, error) {
	f.invoices++
	id := uuid.New()
	return &ingest.Outcome{Status: ingest.StatusCreated, DocumentID: &id}, nil
}

func (f *fakeSink) ProcessReceipt(ctx context.Context, unit *units.Unit, data *classifier.ReceiptData, src ingest.Source) (*ingest.Outcome, error) {
	f.receipts++
	id := uuid.New()
	return &ingest.Outcome{Status: ingest.StatusCreated, DocumentID: &id}, nil
}

func testOrchestrator(jobs *fakeJobs, dir *fakeUnits, mail *fakeMail, cls *fakeClassifier, sink *fakeSink) (*orchestrator, *[]time.Duration) {
	mailCfg := &config.MailboxConfig{ScanWindow: "7d", ProcessedLabel: "Procesados"}
	clsCfg := &config.ClassifierConfig{RequestDelay: "2s", RateLimitBackoff: "30s", MaxRetries: 3}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := newOrchestrator(jobs, mailCfg, clsCfg, dir, mail, cls, sink, logger)

	var slept []time.Duration
	o.sleep = func(d time.Duration) { slept = append(slept, d) }
	return o, &slept
}

func labelingUnit() *units.Unit {
	return &units.Unit{
		ID:              uuid.New(),
		Name:            "Conjunto Los Pinos",
		TaxID:           "901234567",
		LabelingEnabled: true,
	}
}

func invoiceResult() *classifier.Result {
	return &classifier.Result{
		Type: classifier.KindInvoice,
		Invoice: &classifier.InvoiceData{
			TaxID:          "900123456",
			ProviderName:   "Aseo Total SAS",
			DocumentNumber: "FV-1042",
			TotalAmount:    1250000.0,
		},
	}
}

func pdfMessage(id, attachmentID string) *mailbox.EmailMessage {
	return &mailbox.EmailMessage{
		ID:      id,
		Sender:  "facturacion@proveedor.co",
		Subject: "Factura julio",
		Date:    "Wed, 15 Jul 2026 10:30:00 -0500",
		Attachments: []mailbox.Attachment{
			{Filename: "factura.pdf", MimeType: "application/pdf", AttachmentID: attachmentID},
		},
	}
}

func zipArchive(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range names {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte("content")); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestScanCreatesInvoiceAndLabelsMessage(t *testing.T) {
	jobs := &fakeJobs{}
	dir := &fakeUnits{unit: labelingUnit()}
	mail := &fakeMail{
		refs: []mailbox.MessageRef{{ID: "m1"}, {ID: "m2"}},
		messages: map[string]*mailbox.EmailMessage{
			"m1": pdfMessage("m1", "a1"),
			"m2": {ID: "m2", Subject: "Sin adjuntos procesables"},
		},
		attachments: map[string][]byte{"a1": []byte("%PDF-1.7")},
	}
	cls := &fakeClassifier{responses: []classifyResponse{{result: invoiceResult()}}}
	sink := &fakeSink{}

	o, _ := testOrchestrator(jobs, dir, mail, cls, sink)
	job, _ := jobs.create(context.Background(), dir.unit.ID)
	o.run(context.Background(), job.ID, dir.unit.ID)

	if jobs.job.Status != StatusCompleted {
		t.Fatalf("status: got %s, want COMPLETED", jobs.job.Status)
	}
	if jobs.job.Progress != 100 {
		t.Errorf("progress: got %d, want 100", jobs.job.Progress)
	}
	if sink.invoices != 1 {
		t.Errorf("invoices persisted: got %d, want 1", sink.invoices)
	}
	if len(mail.labeled) != 1 || mail.labeled[0] != "m1" {
		t.Errorf("labeled messages: got %v, want [m1]", mail.labeled)
	}
	if mail.ensuredLabel != "Procesados" {
		t.Errorf("label name: got %s", mail.ensuredLabel)
	}
	if dir.touched != 1 {
		t.Errorf("last scan stamps: got %d, want 1", dir.touched)
	}

	// 1/2 → 53, 2/2 → 95
	if len(jobs.progressLog) != 2 || jobs.progressLog[0] != 53 || jobs.progressLog[1] != 95 {
		t.Errorf("progress log: got %v, want [53 95]", jobs.progressLog)
	}
}

func TestScanProgressIsMonotone(t *testing.T) {
	jobs := &fakeJobs{}
	dir := &fakeUnits{unit: labelingUnit()}

	refs := []mailbox.MessageRef{{ID: "m1"}, {ID: "m2"}, {ID: "m3"}}
	messages := map[string]*mailbox.EmailMessage{
		"m1": pdfMessage("m1", "a1"),
		"m2": pdfMessage("m2", "a2"),
		"m3": pdfMessage("m3", "a3"),
	}
	mail := &fakeMail{
		refs:     refs,
		messages: messages,
		attachments: map[string][]byte{
			"a1": []byte("%PDF-1.7"), "a2": []byte("%PDF-1.7"), "a3": []byte("%PDF-1.7"),
		},
	}
	cls := &fakeClassifier{}
	sink := &fakeSink{}

	o, _ := testOrchestrator(jobs, dir, mail, cls, sink)
	job, _ := jobs.create(context.Background(), dir.unit.ID)
	o.run(context.Background(), job.ID, dir.unit.ID)

	prev := 0
	for _, p := range jobs.progressLog {
		if p < prev {
			t.Fatalf("progress regressed: %v", jobs.progressLog)
		}
		if p < 0 || p > 100 {
			t.Fatalf("progress out of range: %v", jobs.progressLog)
		}
		prev = p
	}
	for i, p := range jobs.processedLog {
		if p > jobs.job.TotalItems {
			t.Fatalf("processed %d exceeds total %d", p, jobs.job.TotalItems)
		}
		if p != i+1 {
			t.Fatalf("processed log not sequential: %v", jobs.processedLog)
		}
	}
}

func TestScanOtherDocumentCountsAsProcessed(t *testing.T) {
	jobs := &fakeJobs{}
	dir := &fakeUnits{unit: labelingUnit()}
	mail := &fakeMail{
		refs:        []mailbox.MessageRef{{ID: "m1"}},
		messages:    map[string]*mailbox.EmailMessage{"m1": pdfMessage("m1", "a1")},
		attachments: map[string][]byte{"a1": []byte("%PDF-1.7")},
	}
	cls := &fakeClassifier{responses: []classifyResponse{{result: classifier.Other()}}}
	sink := &fakeSink{}

	o, _ := testOrchestrator(jobs, dir, mail, cls, sink)
	job, _ := jobs.create(context.Background(), dir.unit.ID)
	o.run(context.Background(), job.ID, dir.unit.ID)

	if jobs.job.Status != StatusCompleted {
		t.Fatalf("status: got %s, want COMPLETED", jobs.job.Status)
	}
	if jobs.job.ProcessedCount != 1 {
		t.Errorf("processed count: got %d, want 1", jobs.job.ProcessedCount)
	}
	if sink.invoices != 0 || sink.receipts != 0 {
		t.Error("OTHER must not persist anything")
	}
	if len(mail.labeled) != 0 {
		t.Error("OTHER must not mark the message processed")
	}
	if len(jobs.job.Results) != 1 || jobs.job.Results[0].Status != ingest.StatusSkipped {
		t.Errorf("results: got %+v", jobs.job.Results)
	}
}

func TestScanZeroMessagesCompletesImmediately(t *testing.T) {
	jobs := &fakeJobs{}
	dir := &fakeUnits{unit: labelingUnit()}
	mail := &fakeMail{}
	cls := &fakeClassifier{}

	o, _ := testOrchestrator(jobs, dir, mail, cls, &fakeSink{})
	job, _ := jobs.create(context.Background(), dir.unit.ID)
	o.run(context.Background(), job.ID, dir.unit.ID)

	if jobs.job.Status != StatusCompleted {
		t.Fatalf("status: got %s, want COMPLETED", jobs.job.Status)
	}
	if jobs.job.Progress != 100 {
		t.Errorf("progress: got %d, want 100", jobs.job.Progress)
	}
	if len(jobs.job.Results) != 0 {
		t.Errorf("results: got %v, want empty", jobs.job.Results)
	}
	if cls.calls != 0 {
		t.Error("classifier must not be called")
	}
	if dir.touched != 1 {
		t.Errorf("last scan stamps: got %d, want 1", dir.touched)
	}
}

func TestScanUnitNotFoundFailsJob(t *testing.T) {
	jobs := &fakeJobs{}
	dir := &fakeUnits{findErr: units.ErrNotFound}
	cls := &fakeClassifier{}

	o, _ := testOrchestrator(jobs, dir, &fakeMail{}, cls, &fakeSink{})
	unitID := uuid.New()
	job, _ := jobs.create(context.Background(), unitID)
	o.run(context.Background(), job.ID, unitID)

	if jobs.job.Status != StatusFailed {
		t.Fatalf("status: got %s, want FAILED", jobs.job.Status)
	}
	if jobs.job.Error == nil {
		t.Fatal("expected a stored error message")
	}
	if cls.calls != 0 {
		t.Error("classifier must not be called")
	}
	if dir.touched != 0 {
		t.Error("failed scans must not stamp last scan")
	}
}

func TestScanMailboxFailureFailsJob(t *testing.T) {
	jobs := &fakeJobs{}
	dir := &fakeUnits{unit: labelingUnit()}
	mail := &fakeMail{listErr: errors.New("credentials revoked")}

	o, _ := testOrchestrator(jobs, dir, mail, &fakeClassifier{}, &fakeSink{})
	job, _ := jobs.create(context.Background(), dir.unit.ID)
	o.run(context.Background(), job.ID, dir.unit.ID)

	if jobs.job.Status != StatusFailed {
		t.Fatalf("status: got %s, want FAILED", jobs.job.Status)
	}
}

func TestScanZipWithoutPDFIsSkipped(t *testing.T) {
	jobs := &fakeJobs{}
	dir := &fakeUnits{unit: labelingUnit()}

	msg := &mailbox.EmailMessage{
		ID: "m1",
		Attachments: []mailbox.Attachment{
			{Filename: "soportes.zip", MimeType: "application/zip", AttachmentID: "a1"},
		},
	}
	mail := &fakeMail{
		refs:        []mailbox.MessageRef{{ID: "m1"}},
		messages:    map[string]*mailbox.EmailMessage{"m1": msg},
		attachments: map[string][]byte{"a1": zipArchive(t, "notas.txt", "foto.jpg")},
	}
	cls := &fakeClassifier{}

	o, _ := testOrchestrator(jobs, dir, mail, cls, &fakeSink{})
	job, _ := jobs.create(context.Background(), dir.unit.ID)
	o.run(context.Background(), job.ID, dir.unit.ID)

	if jobs.job.Status != StatusCompleted {
		t.Fatalf("status: got %s, want COMPLETED", jobs.job.Status)
	}
	if cls.calls != 0 {
		t.Error("classifier must not see an unresolved zip")
	}
	if len(jobs.job.Results) != 1 || jobs.job.Results[0].Status != ingest.StatusSkipped {
		t.Errorf("results: got %+v", jobs.job.Results)
	}
}

func TestScanZipWithPDFIsClassified(t *testing.T) {
	jobs := &fakeJobs{}
	dir := &fakeUnits{unit: labelingUnit()}

	msg := &mailbox.EmailMessage{
		ID: "m1",
		Attachments: []mailbox.Attachment{
			{Filename: "soportes.zip", MimeType: "application/zip", AttachmentID: "a1"},
		},
	}
	mail := &fakeMail{
		refs:        []mailbox.MessageRef{{ID: "m1"}},
		messages:    map[string]*mailbox.EmailMessage{"m1": msg},
		attachments: map[string][]byte{"a1": zipArchive(t, "notas.txt", "factura.pdf")},
	}
	cls := &fakeClassifier{responses: []classifyResponse{{result: invoiceResult()}}}
	sink := &fakeSink{}

	o, _ := testOrchestrator(jobs, dir, mail, cls, sink)
	job, _ := jobs.create(context.Background(), dir.unit.ID)
	o.run(context.Background(), job.ID, dir.unit.ID)

	if cls.calls != 1 {
		t.Fatalf("classifier calls: got %d, want 1", cls.calls)
	}
	if sink.invoices != 1 {
		t.Errorf("invoices persisted: got %d, want 1", sink.invoices)
	}
}

func TestScanRateLimitBacksOffAndRetries(t *testing.T) {
	jobs := &fakeJobs{}
	dir := &fakeUnits{unit: labelingUnit()}
	mail := &fakeMail{
		refs:        []mailbox.MessageRef{{ID: "m1"}},
		messages:    map[string]*mailbox.EmailMessage{"m1": pdfMessage("m1", "a1")},
		attachments: map[string][]byte{"a1": []byte("%PDF-1.7")},
	}
	cls := &fakeClassifier{responses: []classifyResponse{
		{err: classifier.ErrRateLimited},
		{result: invoiceResult()},
	}}
	sink := &fakeSink{}

	o, slept := testOrchestrator(jobs, dir, mail, cls, sink)
	job, _ := jobs.create(context.Background(), dir.unit.ID)
	o.run(context.Background(), job.ID, dir.unit.ID)

	if cls.calls != 2 {
		t.Fatalf("classifier calls: got %d, want 2", cls.calls)
	}
	if sink.invoices != 1 {
		t.Errorf("invoices persisted: got %d, want 1", sink.invoices)
	}

	// delay, backoff, delay
	want := []time.Duration{2 * time.Second, 30 * time.Second, 2 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("sleeps: got %v, want %v", *slept, want)
	}
	for i, d := range want {
		if (*slept)[i] != d {
			t.Fatalf("sleeps: got %v, want %v", *slept, want)
		}
	}
}

func TestScanAttachmentErrorDoesNotAbortJob(t *testing.T) {
	jobs := &fakeJobs{}
	dir := &fakeUnits{unit: labelingUnit()}

	m1 := pdfMessage("m1", "missing")
	m2 := pdfMessage("m2", "a2")
	mail := &fakeMail{
		refs:        []mailbox.MessageRef{{ID: "m1"}, {ID: "m2"}},
		messages:    map[string]*mailbox.EmailMessage{"m1": m1, "m2": m2},
		attachments: map[string][]byte{"a2": []byte("%PDF-1.7")},
	}
	cls := &fakeClassifier{responses: []classifyResponse{{result: invoiceResult()}}}
	sink := &fakeSink{}

	o, _ := testOrchestrator(jobs, dir, mail, cls, sink)
	job, _ := jobs.create(context.Background(), dir.unit.ID)
	o.run(context.Background(), job.ID, dir.unit.ID)

	if jobs.job.Status != StatusCompleted {
		t.Fatalf("status: got %s, want COMPLETED", jobs.job.Status)
	}
	if sink.invoices != 1 {
		t.Errorf("invoices persisted: got %d, want 1", sink.invoices)
	}
	if len(jobs.job.Results) != 2 {
		t.Fatalf("results: got %+v", jobs.job.Results)
	}
	if jobs.job.Results[0].Status != ItemStatusError {
		t.Errorf("first item: got %s, want error", jobs.job.Results[0].Status)
	}
}

func TestStartReturnsActiveJobID(t *testing.T) {
	jobs := &fakeJobs{}
	dir := &fakeUnits{unit: labelingUnit()}

	o, _ := testOrchestrator(jobs, dir, &fakeMail{}, &fakeClassifier{}, &fakeSink{})

	activeJob := uuid.New()
	o.active[dir.unit.ID] = activeJob

	got, err := o.Start(context.Background(), dir.unit.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != activeJob {
		t.Errorf("job id: got %s, want the active job %s", got, activeJob)
	}
	if jobs.job != nil {
		t.Error("must not create a second job while one is in flight")
	}
}

func TestProgressFor(t *testing.T) {
	tests := []struct {
		processed int
		total     int
		want      int
	}{
		{0, 4, 10},
		{1, 4, 31},
		{2, 4, 53},
		{4, 4, 95},
		{0, 0, 100},
	}

	for _, tc := range tests {
		if got := progressFor(tc.processed, tc.total); got != tc.want {
			t.Errorf("progressFor(%d, %d): got %d, want %d", tc.processed, tc.total, got, tc.want)
		}
	}
}
