package mailbox_test

import (
	"archive/zip"
	"bytes"
	"testing"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/contador-app/contador/internal/mailbox"
)

func TestCollectAttachments(t *testing.T) {
	t.Run("nested multiparts are all visited", func(t *testing.T) {
		tree := &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmail.MessagePart{
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: "aGVsbG8"}},
				{
					Filename: "factura.pdf",
					MimeType: "application/pdf",
					Body:     &gmail.MessagePartBody{AttachmentId: "att-1"},
				},
				{
					MimeType: "multipart/alternative",
					Parts: []*gmail.MessagePart{
						{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: "PGI+"}},
						{
							MimeType: "multipart/related",
							Parts: []*gmail.MessagePart{
								{
									Filename: "soporte.zip",
									MimeType: "application/zip",
									Body:     &gmail.MessagePartBody{AttachmentId: "att-2"},
								},
							},
						},
					},
				},
			},
		}

		got := mailbox.CollectAttachments(tree)
		if len(got) != 2 {
			t.Fatalf("attachments: got %d, want 2", len(got))
		}

		found := map[string]bool{}
		for _, a := range got {
			found[a.AttachmentID] = true
		}
		if !found["att-1"] || !found["att-2"] {
			t.Errorf("missing attachment ids in %+v", got)
		}
	})

	t.Run("filename without body id is not an attachment", func(t *testing.T) {
		tree := &gmail.MessagePart{
			Parts: []*gmail.MessagePart{
				{Filename: "inline.png", MimeType: "image/png", Body: &gmail.MessagePartBody{}},
			},
		}

		if got := mailbox.CollectAttachments(tree); len(got) != 0 {
			t.Errorf("expected no attachments, got %+v", got)
		}
	})

	t.Run("nil root", func(t *testing.T) {
		if got := mailbox.CollectAttachments(nil); got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})
}

func buildZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := f.Write(content); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestResolveZip(t *testing.T) {
	t.Run("pdf entry extracted", func(t *testing.T) {
		data := buildZip(t, map[string][]byte{
			"docs/Factura-001.PDF": []byte("%PDF-1.4 fake"),
		})

		entry, err := mailbox.ResolveZip(data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if entry == nil {
			t.Fatal("expected an entry")
		}
		if entry.Filename != "Factura-001.PDF" {
			t.Errorf("filename: got %s", entry.Filename)
		}
		if entry.MimeType != "application/pdf" {
			t.Errorf("mime: got %s", entry.MimeType)
		}
		if string(entry.Data) != "%PDF-1.4 fake" {
			t.Errorf("data: got %q", entry.Data)
		}
	})

	t.Run("archive without pdf yields nil entry", func(t *testing.T) {
		data := buildZip(t, map[string][]byte{
			"readme.txt": []byte("nothing here"),
		})

		entry, err := mailbox.ResolveZip(data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if entry != nil {
			t.Errorf("expected nil entry, got %+v", entry)
		}
	})

	t.Run("corrupt archive errors", func(t *testing.T) {
		if _, err := mailbox.ResolveZip([]byte("not a zip")); err == nil {
			t.Error("expected error")
		}
	})
}

func TestRefineMIME(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		filename string
		want     string
	}{
		{"declared type kept", "application/pdf", "x.bin", "application/pdf"},
		{"octet-stream refined from pdf", "application/octet-stream", "factura.pdf", "application/pdf"},
		{"empty refined from jpeg", "", "foto.JPEG", "image/jpeg"},
		{"empty refined from png", "", "scan.png", "image/png"},
		{"unresolved", "application/octet-stream", "data.bin", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mailbox.RefineMIME(tt.declared, tt.filename); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
