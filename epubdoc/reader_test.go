package epubdoc

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/tsawler/pagecount/model"
	"github.com/tsawler/pagecount/textdoc"
)

const testContainer = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Test Book</dc:title>
    <dc:creator>Test Author</dc:creator>
    <dc:creator>Second Author</dc:creator>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="chapter1" href="chapter1.xhtml" media-type="application/xhtml+xml"/>
    <item id="chapter2" href="text/chapter%202.xhtml" media-type="application/xhtml+xml"/>
    <item id="notes" href="notes.xhtml" media-type="application/xhtml+xml"/>
    <item id="plate" href="plate.png" media-type="image/png"/>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
  </manifest>
  <spine>
    <itemref idref="chapter1"/>
    <itemref idref="chapter2"/>
    <itemref idref="missing"/>
    <itemref idref="plate"/>
    <itemref idref="notes" linear="no"/>
  </spine>
</package>`

// createTestEPUB builds an EPUB in memory. files are added after the
// mimetype member, so they may replace the defaults.
func createTestEPUB(t testing.TB, files map[string]string) []byte {
	t.Helper()

	contents := map[string]string{
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf":      testOPF,
		"OEBPS/chapter1.xhtml": `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Chapter 1</title></head>
<body><p>` + strings.Repeat("a", 150) + `</p><img src="fig.png"/></body>
</html>`,
		"OEBPS/text/chapter 2.xhtml": `<html><body><p>` + strings.Repeat("b", 100) + `</p></body></html>`,
		"OEBPS/notes.xhtml":          `<html><body><p>note</p></body></html>`,
		"OEBPS/plate.png":            "\x89PNG",
	}
	for name, content := range files {
		if content == "" {
			delete(contents, name)
			continue
		}
		contents[name] = content
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	// mimetype must be first and uncompressed
	mime := "application/epub+zip"
	if m, ok := files["mimetype"]; ok {
		mime = m
	}
	if mime != "" {
		mw, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
		if err != nil {
			t.Fatal(err)
		}
		mw.Write([]byte(mime))
	}
	delete(contents, "mimetype")

	for name, content := range contents {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestOpenBytes(t *testing.T) {
	r, err := OpenBytes(createTestEPUB(t, nil))
	if err != nil {
		t.Fatalf("OpenBytes failed: %v", err)
	}

	if r.ChapterCount() != 3 {
		t.Errorf("ChapterCount = %d, want 3", r.ChapterCount())
	}
	if r.Version() != "3.0" {
		t.Errorf("Version = %q, want 3.0", r.Version())
	}

	chapters := r.Chapters()
	wantHrefs := []string{"OEBPS/chapter1.xhtml", "OEBPS/text/chapter 2.xhtml", "OEBPS/notes.xhtml"}
	for i, want := range wantHrefs {
		if chapters[i].Href != want {
			t.Errorf("chapter %d Href = %q, want %q", i, chapters[i].Href, want)
		}
	}
	if chapters[0].Title != "Chapter 1" {
		t.Errorf("chapter 0 Title = %q", chapters[0].Title)
	}
	if !chapters[1].Linear || chapters[2].Linear {
		t.Errorf("Linear = %v, %v; want true, false", chapters[1].Linear, chapters[2].Linear)
	}
	if r.Images() != 2 {
		t.Errorf("Images = %d, want 2", r.Images())
	}
}

func TestMetadata(t *testing.T) {
	r, err := OpenBytes(createTestEPUB(t, nil))
	if err != nil {
		t.Fatalf("OpenBytes failed: %v", err)
	}

	meta := r.Metadata()
	if meta.Title != "Test Book" {
		t.Errorf("Title = %q, want %q", meta.Title, "Test Book")
	}
	if len(meta.Creator) != 2 || meta.Creator[0] != "Test Author" {
		t.Errorf("Creator = %v, want [Test Author Second Author]", meta.Creator)
	}
	if meta.Language != "en" {
		t.Errorf("Language = %q, want %q", meta.Language, "en")
	}
}

func TestText(t *testing.T) {
	r, err := OpenBytes(createTestEPUB(t, nil))
	if err != nil {
		t.Fatalf("OpenBytes failed: %v", err)
	}

	want := strings.Repeat("a", 150) + "\n\n" + strings.Repeat("b", 100) + "\n\nnote"
	if got := r.Text(); got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}
}

func TestEstimate(t *testing.T) {
	res, err := Estimate(createTestEPUB(t, nil), textdoc.Options{CharsPerPage: 100, PageSize: model.Letter.Size()})
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	// 150 + 2 + 100 + 2 + 4 characters
	if res.PageCount != 3 {
		t.Errorf("PageCount = %d, want 3", res.PageCount)
	}
	if res.Format != "epub" {
		t.Errorf("Format = %q, want epub", res.Format)
	}
	if len(res.PageSizes) != 3 || res.PageSizes[0] != model.Letter.Size() {
		t.Errorf("PageSizes = %v, want 3 x Letter", res.PageSizes)
	}

	for _, want := range []string{
		"chars: 258, chars_per_page: 100",
		"Title: Test Book",
		"Author: Test Author, Second Author",
		"EPUB has 3 chapters",
		"Includes 1 non-linear spine items",
		"EPUB parsed as text; images/embedded content not considered.",
		"EPUB contains 2 images",
	} {
		found := false
		for _, note := range res.Notes {
			if note == want {
				found = true
			}
		}
		if !found {
			t.Errorf("notes %q missing %q", res.Notes, want)
		}
	}
}

func TestEstimate_Defaults(t *testing.T) {
	res, err := Estimate(createTestEPUB(t, nil), textdoc.Options{})
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if res.PageCount != 1 {
		t.Errorf("PageCount = %d, want 1", res.PageCount)
	}
	if res.PageSizes[0] != model.A4.Size() {
		t.Errorf("PageSizes[0] = %v, want A4", res.PageSizes[0])
	}
}

func TestDRMRejection(t *testing.T) {
	encryption := func(algorithm, uri string) string {
		return `<?xml version="1.0"?>
<encryption xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <EncryptedData xmlns="http://www.w3.org/2001/04/xmlenc#">
    <EncryptionMethod Algorithm="` + algorithm + `"/>
    <CipherData><CipherReference URI="` + uri + `"/></CipherData>
  </EncryptedData>
</encryption>`
	}

	tests := []struct {
		name    string
		files   map[string]string
		wantErr error
	}{
		{
			name:    "adobe rights",
			files:   map[string]string{"META-INF/rights.xml": `<rights xmlns="http://ns.adobe.com/adept"><encryptedKey>...</encryptedKey></rights>`},
			wantErr: ErrDRMProtected,
		},
		{
			name:    "encrypted chapter",
			files:   map[string]string{"META-INF/encryption.xml": encryption("http://www.w3.org/2001/04/xmlenc#aes256-cbc", "OEBPS/chapter1.xhtml")},
			wantErr: ErrDRMProtected,
		},
		{
			name:    "unparseable encryption",
			files:   map[string]string{"META-INF/encryption.xml": `<encryption`},
			wantErr: ErrDRMProtected,
		},
		{
			name:  "font obfuscation",
			files: map[string]string{"META-INF/encryption.xml": encryption("http://www.idpf.org/2008/embedding/obfuscation", "OEBPS/fonts/serif.otf")},
		},
		{
			name:  "encrypted font",
			files: map[string]string{"META-INF/encryption.xml": encryption("http://www.w3.org/2001/04/xmlenc#aes256-cbc", "OEBPS/fonts/serif.otf")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenBytes(createTestEPUB(t, tt.files))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("OpenBytes error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInvalidEPUB(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"not a zip", []byte("not a zip file"), ErrInvalidArchive},
		{"wrong mimetype", createTestEPUB(t, map[string]string{"mimetype": "application/vnd.oasis.opendocument.text"}), ErrInvalidMimetype},
		{"no container", createTestEPUB(t, map[string]string{"META-INF/container.xml": ""}), ErrNoContainer},
		{"bad container", createTestEPUB(t, map[string]string{"META-INF/container.xml": "<container"}), ErrInvalidContainer},
		{"no rootfile", createTestEPUB(t, map[string]string{"META-INF/container.xml": `<container><rootfiles/></container>`}), ErrNoRootfile},
		{"no package", createTestEPUB(t, map[string]string{"OEBPS/content.opf": ""}), ErrNoOPF},
		{"bad package", createTestEPUB(t, map[string]string{"OEBPS/content.opf": "<package"}), ErrInvalidOPF},
		{"empty spine", createTestEPUB(t, map[string]string{"OEBPS/content.opf": `<package version="3.0"><manifest/><spine/></package>`}), ErrEmptySpine},
		{
			"nothing readable",
			createTestEPUB(t, map[string]string{"OEBPS/content.opf": `<package version="3.0"><manifest><item id="x" href="gone.xhtml" media-type="application/xhtml+xml"/></manifest><spine><itemref idref="x"/></spine></package>`}),
			ErrEmptySpine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenBytes(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("OpenBytes error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMissingMimetypeAccepted(t *testing.T) {
	r, err := OpenBytes(createTestEPUB(t, map[string]string{"mimetype": ""}))
	if err != nil {
		t.Fatalf("OpenBytes failed: %v", err)
	}
	if r.ChapterCount() != 3 {
		t.Errorf("ChapterCount = %d, want 3", r.ChapterCount())
	}
}
