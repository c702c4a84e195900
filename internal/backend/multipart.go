package backend

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/Veraticus/recon/internal/model"
)

// Multipart field names expected by the upload endpoint.
const (
	FieldBankStatement = "bank_statement"
	FieldInvoices      = "invoices"
)

var mediaTypes = map[string]string{
	"csv":  "text/csv",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"xls":  "application/vnd.ms-excel",
}

// FilePart is one named binary part of a multipart upload.
type FilePart struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

// MediaTypeFor returns the declared media type for a file extension.
func MediaTypeFor(extension string) string {
	if mt, ok := mediaTypes[strings.ToLower(extension)]; ok {
		return mt
	}
	return "application/octet-stream"
}

// FilePartFor builds the multipart part for a file candidate.
func FilePartFor(field string, file *model.FileCandidate) FilePart {
	return FilePart{
		Field:       field,
		FileName:    file.Name,
		ContentType: MediaTypeFor(strings.ToLower(file.Extension)),
		Data:        file.Bytes,
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(parts []FilePart) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, part := range parts {
		if part.Field == "" {
			return nil, "", fmt.Errorf("%w: multipart field name is required", ErrInvalidRequest)
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(part.Field), quoteEscaper.Replace(part.FileName)))
		contentType := part.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		pw, err := w.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create part %s: %w", part.Field, err)
		}
		if _, err := pw.Write(part.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write part %s: %w", part.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
