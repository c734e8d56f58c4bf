package odt

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/tsawler/pagecount/model"
)

// stylesXML represents the structure of styles.xml
type stylesXML struct {
	XMLName      xml.Name         `xml:"document-styles"`
	Styles       *styleListXML    `xml:"styles"`
	AutoStyles   *autoStylesXML   `xml:"automatic-styles"`
	MasterStyles *masterStylesXML `xml:"master-styles"`
}

// styleListXML holds style:style definitions, from office:styles in
// styles.xml or office:automatic-styles in content.xml.
type styleListXML struct {
	Styles []styleDefXML `xml:"style"`
}

// autoStylesXML represents the office:automatic-styles element of styles.xml.
type autoStylesXML struct {
	Styles      []styleDefXML   `xml:"style"`
	PageLayouts []pageLayoutXML `xml:"page-layout"`
}

// masterStylesXML represents the office:master-styles element.
type masterStylesXML struct {
	MasterPages []masterPageXML `xml:"master-page"`
}

// styleDefXML represents a style definition (<style:style>).
type styleDefXML struct {
	Name            string             `xml:"name,attr"`
	Family          string             `xml:"family,attr"`
	ParentStyleName string             `xml:"parent-style-name,attr"`
	MasterPageName  string             `xml:"master-page-name,attr"`
	ParagraphProps  *paragraphPropsXML `xml:"paragraph-properties"`
}

// paragraphPropsXML represents paragraph properties (<style:paragraph-properties>).
type paragraphPropsXML struct {
	BreakBefore string `xml:"break-before,attr"`
	BreakAfter  string `xml:"break-after,attr"`
}

// pageLayoutXML represents a page layout (<style:page-layout>).
type pageLayoutXML struct {
	Name      string        `xml:"name,attr"`
	PageProps *pagePropsXML `xml:"page-layout-properties"`
}

// pagePropsXML represents page layout properties.
type pagePropsXML struct {
	PageWidth  string `xml:"page-width,attr"`
	PageHeight string `xml:"page-height,attr"`
}

// masterPageXML represents a master page (<style:master-page>).
type masterPageXML struct {
	Name           string `xml:"name,attr"`
	PageLayoutName string `xml:"page-layout-name,attr"`
}

// breakStyles records which paragraph styles force a page break, following
// parent styles.
type breakStyles struct {
	styles map[string]*styleDefXML
	cache  map[string]pageBreak
}

// pageBreak is the page break behaviour of a paragraph style.
type pageBreak struct {
	before, after bool
}

func newBreakStyles(lists ...[]styleDefXML) *breakStyles {
	b := &breakStyles{
		styles: make(map[string]*styleDefXML),
		cache:  make(map[string]pageBreak),
	}
	for _, list := range lists {
		for i := range list {
			def := &list[i]
			if def.Family != "" && def.Family != "paragraph" {
				continue
			}
			b.styles[def.Name] = def
		}
	}
	return b
}

// lookup returns the page breaks a paragraph with the named style forces.
// The nearest style in the parent chain that sets a property decides it. A
// style that switches master page breaks before the paragraph.
func (b *breakStyles) lookup(name string) pageBreak {
	if pb, ok := b.cache[name]; ok {
		return pb
	}

	var pb pageBreak
	var beforeSet, afterSet bool
	visited := make(map[string]bool)
	for current := name; current != "" && !visited[current]; {
		visited[current] = true
		def, ok := b.styles[current]
		if !ok {
			break
		}
		if current == name && def.MasterPageName != "" {
			pb.before, beforeSet = true, true
		}
		if p := def.ParagraphProps; p != nil {
			if !beforeSet && p.BreakBefore != "" {
				pb.before, beforeSet = p.BreakBefore == "page", true
			}
			if !afterSet && p.BreakAfter != "" {
				pb.after, afterSet = p.BreakAfter == "page", true
			}
		}
		current = def.ParentStyleName
	}

	b.cache[name] = pb
	return pb
}

// pageSize returns the size of the page layout used by the first master
// page, or of the first page layout when no master page names one.
func (s *stylesXML) pageSize() (model.PageSize, bool) {
	if s == nil || s.AutoStyles == nil {
		return model.PageSize{}, false
	}
	layouts := s.AutoStyles.PageLayouts

	if s.MasterStyles != nil {
		for _, mp := range s.MasterStyles.MasterPages {
			for _, pl := range layouts {
				if pl.Name == mp.PageLayoutName {
					if size, ok := pl.size(); ok {
						return size, true
					}
				}
			}
		}
	}
	for _, pl := range layouts {
		if size, ok := pl.size(); ok {
			return size, true
		}
	}
	return model.PageSize{}, false
}

func (pl pageLayoutXML) size() (model.PageSize, bool) {
	if pl.PageProps == nil {
		return model.PageSize{}, false
	}
	w := parseLength(pl.PageProps.PageWidth)
	h := parseLength(pl.PageProps.PageHeight)
	if w <= 0 || h <= 0 {
		return model.PageSize{}, false
	}
	return model.PageSizeFromPoints(w, h), true
}

// parseLength parses an ODF length value to points.
// Supports: pt, pc, in, cm, mm, px
func parseLength(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	// Find where digits end and unit begins
	i := 0
	for ; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && c != '.' && c != '-' {
			break
		}
	}
	if i == 0 {
		return 0
	}

	value, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0
	}

	switch strings.ToLower(strings.TrimSpace(s[i:])) {
	case "pt", "":
		return value
	case "pc":
		return value * 12
	case "in":
		return value * 72
	case "cm":
		return value * 72 / 2.54
	case "mm":
		return value * 72 / 25.4
	case "px":
		return value * 0.75 // 96 DPI
	default:
		return 0
	}
}
