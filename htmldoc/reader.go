// Package htmldoc estimates page counts for HTML documents from their
// visible text.
package htmldoc

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/tsawler/pagecount/model"
	"github.com/tsawler/pagecount/textdoc"
)

// Reader provides access to HTML document content.
type Reader struct {
	doc      *html.Node
	title    string
	metadata map[string]string
	images   int
}

// OpenBytes parses an HTML document. The parser is lenient, so malformed
// markup still yields a tree.
func OpenBytes(data []byte) (*Reader, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	reader := &Reader{
		doc:      doc,
		metadata: make(map[string]string),
	}

	// Extract title and metadata from head
	reader.extractHead(doc)
	reader.images = countElements(doc, "img")

	return reader, nil
}

// extractHead extracts title and meta tags from the head element.
func (r *Reader) extractHead(n *html.Node) {
	if n.Type == html.ElementNode && n.Data == "head" {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				switch c.Data {
				case "title":
					r.title = getTextContent(c)
				case "meta":
					name, content := "", ""
					for _, attr := range c.Attr {
						switch attr.Key {
						case "name", "property":
							name = attr.Val
						case "content":
							content = attr.Val
						}
					}
					if name != "" && content != "" {
						r.metadata[name] = content
					}
				}
			}
		}
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.extractHead(c)
	}
}

// Title returns the document title, if any.
func (r *Reader) Title() string {
	return r.title
}

// Metadata returns the name/content pairs of the head's meta tags.
func (r *Reader) Metadata() map[string]string {
	return r.metadata
}

// Images returns the number of img elements.
func (r *Reader) Images() int {
	return r.images
}

// Text returns the visible body text with runs of whitespace collapsed and
// one newline between blocks.
func (r *Reader) Text() string {
	body := findElement(r.doc, "body")
	if body == nil {
		// No body tag, try to extract from root
		body = r.doc
	}

	var raw strings.Builder
	getTextContentRecursive(body, &raw)

	lines := strings.Split(raw.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Estimate returns ceil(visible characters / chars per page) pages.
func Estimate(data []byte, opts textdoc.Options) (*model.Result, error) {
	r, err := OpenBytes(data)
	if err != nil {
		return nil, err
	}

	cpp := opts.CharsPerPage
	if cpp <= 0 {
		cpp = textdoc.DefaultCharsPerPage
	}
	size := opts.PageSize
	if size.WidthMM <= 0 || size.HeightMM <= 0 {
		size = model.A4.Size()
	}

	chars := utf8.RuneCountInString(r.Text())
	res := model.NewResult("html")
	res.PageCount = model.PagesFor(chars, cpp)
	res.FillPageSizes(size)
	res.AddNote(fmt.Sprintf("chars: %d, chars_per_page: %d", chars, cpp))
	if r.title != "" {
		res.AddNote(fmt.Sprintf("Title: %s", r.title))
	}
	res.AddNote("HTML parsed as text; images/embedded content not considered.")
	if r.images > 0 {
		res.AddNote(fmt.Sprintf("HTML contains %d images", r.images))
	}
	return res, nil
}

// shouldSkipElement returns true if the element should be skipped during content extraction.
func shouldSkipElement(tagName string) bool {
	switch tagName {
	case "head", "script", "style", "noscript", "template", "svg", "math", "iframe", "object", "embed":
		return true
	}
	return false
}

// findElement finds the first element with the given tag name.
func findElement(n *html.Node, tagName string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tagName {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result := findElement(c, tagName); result != nil {
			return result
		}
	}
	return nil
}

func countElements(n *html.Node, tagName string) int {
	count := 0
	if n.Type == html.ElementNode && n.Data == tagName {
		count++
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count += countElements(c, tagName)
	}
	return count
}

// getTextContent extracts all text content from a node and its descendants.
func getTextContent(n *html.Node) string {
	var result strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			result.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(result.String())
}

// source line breaks are not visible
var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

func getTextContentRecursive(n *html.Node, result *strings.Builder) {
	if n.Type == html.TextNode {
		result.WriteString(lineBreaks.Replace(n.Data))
	}
	if n.Type == html.ElementNode {
		// Skip script/style content
		if shouldSkipElement(n.Data) {
			return
		}
		if n.Data == "br" {
			result.WriteString("\n")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		getTextContentRecursive(c, result)
	}
	// Break after block elements
	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6", "tr", "pre", "blockquote", "table", "section", "article":
			result.WriteString("\n")
		case "td", "th":
			result.WriteString(" ")
		}
	}
}
