package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/matchwise/matchwise/internal/domain/document"
)

// Extractor implements document.Extractor for PDF and Word resumes.
// Nothing raises past this boundary: parser errors and panics become
// tagged results so callers can persist a human-readable reason.
type Extractor struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract converts a binary resume stream into plain text based on the
// declared content type.
func (e *Extractor) Extract(r io.Reader, contentType string) document.ExtractResult {
	data, err := io.ReadAll(r)
	if err != nil {
		return failure(document.FailureExtractionError, fmt.Sprintf("reading stream: %v", err))
	}

	var text string
	switch normalizeContentType(contentType) {
	case "pdf":
		text, err = e.extractPDF(data)
	case "doc", "docx":
		text, err = e.extractDocx(data)
	default:
		return failure(document.FailureUnsupportedFormat, fmt.Sprintf("content type %q", contentType))
	}
	if err != nil {
		e.logger.Warn("resume extraction failed",
			zap.String("content_type", contentType), zap.Error(err))
		return failure(document.FailureExtractionError, err.Error())
	}

	text = normalizeWhitespace(text)
	if text == "" {
		return failure(document.FailureEmptyExtraction, "parser produced no text")
	}
	return document.ExtractResult{Text: text}
}

func normalizeContentType(ct string) string {
	switch strings.ToLower(strings.TrimSpace(ct)) {
	case "application/pdf", "pdf":
		return "pdf"
	case "application/msword", "doc":
		return "doc"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "docx":
		return "docx"
	default:
		return ""
	}
}

// extractPDF pulls plain text out of a PDF. The pdf package can panic on
// malformed files, so the panic is converted to an error here.
func (e *Extractor) extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	rs, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rs); err != nil {
		return "", fmt.Errorf("copying pdf text: %w", err)
	}
	return buf.String(), nil
}

var xmlTagRe = regexp.MustCompile(`<[^>]+>`)

// extractDocx reads word/document.xml out of the docx zip container and
// strips the markup. Legacy .doc files routed here fail the zip open and
// surface as extraction errors.
func (e *Extractor) extractDocx(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening docx container: %w", err)
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("opening document.xml: %w", err)
		}
		docXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("reading document.xml: %w", err)
		}
		break
	}
	if len(docXML) == 0 {
		return "", fmt.Errorf("no document.xml found in docx")
	}

	xml := string(docXML)
	xml = strings.ReplaceAll(xml, "</w:p>", "\n")
	xml = strings.ReplaceAll(xml, "<w:tab/>", "\t")
	return xmlTagRe.ReplaceAllString(xml, " "), nil
}

var (
	spaceRunRe   = regexp.MustCompile(`[ \t\r\f\v]+`)
	newlineRunRe = regexp.MustCompile(`\n+`)
)

func normalizeWhitespace(s string) string {
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, " ", " ")
	s = newlineRunRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

func failure(kind document.FailureKind, detail string) document.ExtractResult {
	return document.ExtractResult{Failure: kind, Detail: detail}
}
