package extract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchwise/matchwise/internal/domain/document"
)

func docxWith(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractDocx(t *testing.T) {
	e := New(nil)

	data := docxWith(t, `<w:document><w:body>`+
		`<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>Senior Engineer</w:t></w:r></w:p>`+
		`</w:body></w:document>`)

	res := e.Extract(bytes.NewReader(data),
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	require.True(t, res.OK())
	assert.Contains(t, res.Text, "Jane Doe")
	assert.Contains(t, res.Text, "Senior Engineer")
}

func TestExtractUnsupportedFormat(t *testing.T) {
	e := New(nil)

	res := e.Extract(bytes.NewReader([]byte("plain text")), "text/plain")
	assert.False(t, res.OK())
	assert.Equal(t, document.FailureUnsupportedFormat, res.Failure)
	assert.Equal(t, "unsupported resume format", res.Message())
}

func TestExtractEmptyDocx(t *testing.T) {
	e := New(nil)

	data := docxWith(t, `<w:document><w:body></w:body></w:document>`)
	res := e.Extract(bytes.NewReader(data), "docx")
	assert.False(t, res.OK())
	assert.Equal(t, document.FailureEmptyExtraction, res.Failure)
	assert.Equal(t, "resume contained no extractable text", res.Message())
}

func TestExtractCorruptFile(t *testing.T) {
	e := New(nil)

	// Random bytes fail both the pdf and docx parsers without panicking
	// the caller.
	garbage := []byte{0x00, 0x01, 0x02, 0x03, 0xFF}
	res := e.Extract(bytes.NewReader(garbage), "application/pdf")
	assert.False(t, res.OK())
	assert.Equal(t, document.FailureExtractionError, res.Failure)

	res = e.Extract(bytes.NewReader(garbage), "application/msword")
	assert.False(t, res.OK())
	assert.Equal(t, document.FailureExtractionError, res.Failure)
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b\nc", normalizeWhitespace("a \t b\n\n\nc  "))
	assert.Equal(t, "a b", normalizeWhitespace("a b"))
}

func TestNormalizeContentTypeTokens(t *testing.T) {
	assert.Equal(t, "pdf", normalizeContentType(" PDF "))
	assert.Equal(t, "docx", normalizeContentType("docx"))
	assert.Equal(t, "doc", normalizeContentType("application/msword"))
	assert.Equal(t, "", normalizeContentType("image/png"))
}
