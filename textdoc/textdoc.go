// Package textdoc estimates page counts for plain text and Markdown from
// character counts.
package textdoc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/tsawler/pagecount/model"
)

// DefaultCharsPerPage is roughly one printed page of prose.
const DefaultCharsPerPage = 1800

// ErrInvalidUTF8 is returned by Decode for text that is neither UTF-8 nor
// UTF-16 with a byte order mark.
var ErrInvalidUTF8 = errors.New("text not valid UTF-8")

// Options configures estimation.
type Options struct {
	CharsPerPage int
	PageSize     model.PageSize
}

func (o Options) charsPerPage() int {
	if o.CharsPerPage <= 0 {
		return DefaultCharsPerPage
	}
	return o.CharsPerPage
}

func (o Options) pageSize() model.PageSize {
	if o.PageSize.WidthMM <= 0 || o.PageSize.HeightMM <= 0 {
		return model.A4.Size()
	}
	return o.PageSize
}

// Decode returns data as a string. UTF-16 input must start with a byte
// order mark; a UTF-8 byte order mark is dropped.
func Decode(data []byte) (string, error) {
	if !hasUTF16BOM(data) && !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return string(out), nil
}

func hasUTF16BOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xFE, 0xFF}) || bytes.HasPrefix(data, []byte{0xFF, 0xFE})
}

// EstimateText estimates pages as ceil(characters / chars per page).
// Invalid text yields zero pages and a note rather than an error.
func EstimateText(data []byte, opts Options) *model.Result {
	s, err := Decode(data)
	if err != nil {
		res := model.NewResult("txt")
		res.AddNote("Text not valid UTF-8")
		return res
	}
	return estimateChars("txt", utf8.RuneCountInString(s), opts)
}

// EstimateMarkdown counts the characters of the rendered text, so markup
// such as emphasis markers and link targets is not counted.
func EstimateMarkdown(data []byte, opts Options) *model.Result {
	s, err := Decode(data)
	if err != nil {
		res := model.NewResult("markdown")
		res.AddNote("Text not valid UTF-8")
		return res
	}

	plain, images := RenderMarkdown([]byte(s))
	res := estimateChars("markdown", utf8.RuneCountInString(plain), opts)
	res.AddNote("Markdown parsed as text; images/embedded content not considered.")
	if images > 0 {
		res.AddNote(fmt.Sprintf("Markdown contains %d images", images))
	}
	return res
}

func estimateChars(format string, chars int, opts Options) *model.Result {
	cpp := opts.charsPerPage()
	res := model.NewResult(format)
	res.PageCount = model.PagesFor(chars, cpp)
	res.FillPageSizes(opts.pageSize())
	res.AddNote(fmt.Sprintf("chars: %d, chars_per_page: %d", chars, cpp))
	return res
}

// RenderMarkdown returns the visible text of a Markdown document and the
// number of images it references. Blocks are separated by newlines.
func RenderMarkdown(src []byte) (string, int) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var sb strings.Builder
	images := 0
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument && sb.Len() > 0 {
				ensureNewline(&sb)
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Image:
			images++
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			sb.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.String:
			sb.Write(node.Value)
		case *ast.AutoLink:
			sb.Write(node.Label(src))
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(src))
			}
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimRight(sb.String(), "\n"), images
}

func ensureNewline(sb *strings.Builder) {
	s := sb.String()
	if !strings.HasSuffix(s, "\n") {
		sb.WriteByte('\n')
	}
}
