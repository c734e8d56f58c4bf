// Package format detects document formats from file names and content.
package format

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

// Format represents a supported document format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// PDF indicates a PDF document.
	PDF
	// XLSX indicates an Excel workbook (.xlsx, .xlsm).
	XLSX
	// DOCX indicates a Microsoft Word (.docx) document.
	DOCX
	// PPTX indicates a Microsoft PowerPoint (.pptx) document.
	PPTX
	// Markdown indicates a Markdown text file.
	Markdown
	// Text indicates plain text.
	Text
	// HTML indicates an HTML document.
	HTML
	// ODT indicates an OpenDocument Text (.odt) document.
	ODT
	// EPUB indicates an EPUB e-book.
	EPUB
)

// String returns the lowercase name reported in results and errors.
func (f Format) String() string {
	switch f {
	case PDF:
		return "pdf"
	case XLSX:
		return "xlsx"
	case DOCX:
		return "docx"
	case PPTX:
		return "pptx"
	case Markdown:
		return "markdown"
	case Text:
		return "txt"
	case HTML:
		return "html"
	case ODT:
		return "odt"
	case EPUB:
		return "epub"
	default:
		return "unknown"
	}
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case PDF:
		return ".pdf"
	case XLSX:
		return ".xlsx"
	case DOCX:
		return ".docx"
	case PPTX:
		return ".pptx"
	case Markdown:
		return ".md"
	case Text:
		return ".txt"
	case HTML:
		return ".html"
	case ODT:
		return ".odt"
	case EPUB:
		return ".epub"
	default:
		return ""
	}
}

// Detect determines the format of data, trying the filename extension
// first and the content second. filename may be empty.
func Detect(filename string, data []byte) Format {
	if f := FromExtension(filename); f != Unknown {
		return f
	}
	return DetectFromMagic(data)
}

// FromExtension determines the format from the filename extension alone.
func FromExtension(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return PDF
	case ".xlsx", ".xlsm":
		return XLSX
	case ".docx":
		return DOCX
	case ".pptx":
		return PPTX
	case ".md", ".markdown":
		return Markdown
	case ".txt":
		return Text
	case ".html", ".htm":
		return HTML
	case ".odt":
		return ODT
	case ".epub":
		return EPUB
	default:
		return Unknown
	}
}

// DetectFromMagic determines the format from content. ZIP archives are
// opened to tell the Office formats apart; archives that are none of them
// are assumed to be workbooks.
func DetectFromMagic(data []byte) Format {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return PDF
	}

	if len(data) >= 4 && data[0] == 'P' && data[1] == 'K' {
		return detectZIPFormat(data)
	}

	if detectHTMLMagic(data) {
		return HTML
	}

	if len(data) > 0 && isPrintable(data) {
		return Text
	}

	return Unknown
}

// detectHTMLMagic checks if the data looks like HTML content.
func detectHTMLMagic(data []byte) bool {
	data = bytes.TrimLeft(data, " \t\r\n")
	if len(data) == 0 {
		return false
	}

	// Check for common HTML signatures (case-insensitive for DOCTYPE)
	head := bytes.ToUpper(data[:min(512, len(data))])
	if bytes.HasPrefix(head, []byte("<!DOCTYPE HTML")) || bytes.HasPrefix(head, []byte("<HTML")) {
		return true
	}
	// XML declaration followed by html-like content could be XHTML
	return bytes.HasPrefix(head, []byte("<?XML")) && bytes.Contains(head, []byte("<HTML"))
}

// isPrintable reports whether every byte is tab, LF, CR or printable ASCII.
func isPrintable(data []byte) bool {
	for _, b := range data {
		if b != '\t' && b != '\n' && b != '\r' && (b < 32 || b > 127) {
			return false
		}
	}
	return true
}

// detectZIPFormat names the package type of a ZIP archive from its mimetype
// member or its part directories. Unrecognized archives are assumed to be
// spreadsheets.
func detectZIPFormat(data []byte) Format {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return XLSX
	}

	// OpenDocument and EPUB packages name their type in a mimetype member.
	for _, f := range zr.File {
		if f.Name != "mimetype" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			break
		}
		head := make([]byte, 256)
		n, _ := io.ReadFull(rc, head)
		rc.Close()
		mimeType := strings.TrimSpace(string(head[:n]))
		switch {
		case strings.HasPrefix(mimeType, "application/vnd.oasis.opendocument.text"):
			return ODT
		case mimeType == "application/epub+zip":
			return EPUB
		}
		break
	}

	for _, f := range zr.File {
		switch {
		case f.Name == "META-INF/container.xml":
			return EPUB
		case strings.HasPrefix(f.Name, "word/"):
			return DOCX
		case strings.HasPrefix(f.Name, "ppt/"):
			return PPTX
		case strings.HasPrefix(f.Name, "xl/"):
			return XLSX
		}
	}
	return XLSX
}
