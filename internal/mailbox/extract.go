package mailbox

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// CollectAttachments walks a message part tree and returns every part that
// carries both a filename and an attachment body id. Parts nest arbitrarily
// (multipart within multipart); the walk uses an explicit stack so depth is
// unbounded.
func CollectAttachments(root *gmail.MessagePart) []Attachment {
	if root == nil {
		return nil
	}

	var out []Attachment
	stack := []*gmail.MessagePart{root}

	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
			out = append(out, Attachment{
				Filename:     part.Filename,
				MimeType:     part.MimeType,
				AttachmentID: part.Body.AttachmentId,
			})
		}

		for _, child := range part.Parts {
			stack = append(stack, child)
		}
	}

	return out
}

// ZipEntry is a PDF extracted from a ZIP attachment.
type ZipEntry struct {
	Data     []byte
	MimeType string
	Filename string
}

// ResolveZip opens a ZIP archive and returns the first non-directory entry
// whose lowercased name ends in ".pdf". A nil entry with nil error means the
// archive holds no PDF and the attachment should be skipped.
func ResolveZip(data []byte) (*ZipEntry, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(file.Name), ".pdf") {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open zip entry %s: %w", file.Name, err)
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read zip entry %s: %w", file.Name, err)
		}

		return &ZipEntry{
			Data:     content,
			MimeType: "application/pdf",
			Filename: path.Base(file.Name),
		}, nil
	}

	return nil, nil
}

// RefineMIME resolves a generic or missing declared type from the filename
// extension. Returns an empty string when the type stays unresolved, which
// callers treat as a skip.
func RefineMIME(declared, filename string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}

	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return ""
	}
}
