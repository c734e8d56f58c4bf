package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tsawler/pagecount/internal/pdftest"
)

type outLine struct {
	File   string `json:"file"`
	Result struct {
		PageCount int      `json:"page_count"`
		Notes     []string `json:"notes"`
		Error     string   `json:"error"`
		Detected  string   `json:"detected"`
	} `json:"result"`
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func parseLines(t *testing.T, out string) []outLine {
	t.Helper()
	var lines []outLine
	for _, s := range strings.Split(strings.TrimSpace(out), "\n") {
		var l outLine
		if err := json.Unmarshal([]byte(s), &l); err != nil {
			t.Fatalf("invalid output line %q: %v", s, err)
		}
		lines = append(lines, l)
	}
	return lines
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	pdf := writeFile(t, dir, "a.pdf", pdftest.Classic(pdftest.FlatTree(pdftest.Letter, pdftest.Letter), ""))
	txt := writeFile(t, dir, "b.txt", bytes.Repeat([]byte("z"), 250))
	bad := writeFile(t, dir, "c.bin", []byte{0x00, 0x01})
	missing := filepath.Join(dir, "missing.pdf")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-workers", "2", "-chars", "100", pdf, txt, bad, missing}, &stdout, &stderr)
	if code != 1 {
		t.Errorf("exit code = %d, want 1 (stderr: %s)", code, stderr.String())
	}

	lines := parseLines(t, stdout.String())
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), stdout.String())
	}

	tests := []struct {
		file      string
		wantPages int
		wantError string
	}{
		{pdf, 2, ""},
		{txt, 3, ""},
		{bad, 0, "Unsupported or unrecognized format: unknown"},
		{missing, 0, "missing.pdf"},
	}
	for i, tt := range tests {
		l := lines[i]
		if l.File != tt.file {
			t.Errorf("line %d file = %q, want %q", i, l.File, tt.file)
		}
		if l.Result.PageCount != tt.wantPages {
			t.Errorf("line %d page_count = %d, want %d", i, l.Result.PageCount, tt.wantPages)
		}
		if !strings.Contains(l.Result.Error, tt.wantError) || (tt.wantError == "") != (l.Result.Error == "") {
			t.Errorf("line %d error = %q, want %q", i, l.Result.Error, tt.wantError)
		}
	}
}

func TestRun_AllSucceed(t *testing.T) {
	dir := t.TempDir()
	md := writeFile(t, dir, "n.md", []byte("# Notes\n\nhello"))

	var stdout, stderr bytes.Buffer
	if code := run([]string{md}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, want 0 (stderr: %s)", code, stderr.String())
	}
	if lines := parseLines(t, stdout.String()); lines[0].Result.PageCount != 1 {
		t.Errorf("page_count = %d, want 1", lines[0].Result.PageCount)
	}
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "Usage: pagecount") {
		t.Errorf("stderr = %q, want usage", stderr.String())
	}

	stderr.Reset()
	if code := run([]string{"-paper", "tabloid", "x.txt"}, &stdout, &stderr); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestRun_Script(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "count.js", []byte(`function pages(buf) { return {page_count: 12, width_pt: 612, height_pt: 792}; }`))
	pdf := writeFile(t, dir, "a.pdf", pdftest.Classic(pdftest.FlatTree(pdftest.A4), ""))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-script", script, "-function", "pages", pdf}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0 (stderr: %s)", code, stderr.String())
	}
	if l := parseLines(t, stdout.String())[0]; l.Result.PageCount != 12 {
		t.Errorf("page_count = %d, want 12 from the script", l.Result.PageCount)
	}

	stderr.Reset()
	if code := run([]string{"-script", script, pdf}, &stdout, &stderr); code != 1 {
		t.Errorf("exit code = %d, want 1 for a missing function", code)
	}
}

func TestRun_Verbose(t *testing.T) {
	dir := t.TempDir()
	pdf := writeFile(t, dir, "a.pdf", pdftest.Classic(pdftest.FlatTree(pdftest.A4), ""))

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-v", pdf}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stderr.String(), "page count found") {
		t.Errorf("stderr = %q, want debug log", stderr.String())
	}
}
