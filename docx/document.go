package docx

import "encoding/xml"

// documentXML represents the structure of word/document.xml
type documentXML struct {
	XMLName xml.Name `xml:"document"`
	Body    *bodyXML `xml:"body"`
}

// bodyXML represents the document body. Paragraphs and tables are collected
// separately, which is enough for counting characters.
type bodyXML struct {
	Paragraphs []paragraphXML `xml:"p"`
	Tables     []tableXML     `xml:"tbl"`
	SectPr     *sectPrXML     `xml:"sectPr"` // properties of the final section
}

// paragraphXML represents a paragraph element (<w:p>).
type paragraphXML struct {
	XMLName    xml.Name          `xml:"p"`
	Properties paragraphPropsXML `xml:"pPr"`
	Runs       []runXML          `xml:"r"`
	Hyperlinks []hyperlinkXML    `xml:"hyperlink"`
}

// paragraphPropsXML represents paragraph properties (<w:pPr>).
type paragraphPropsXML struct {
	PageBreakBefore *struct{} `xml:"pageBreakBefore"`
	SectPr          *sectPrXML `xml:"sectPr"` // ends a section that is not the last
}

// sectPrXML represents section properties (<w:sectPr>).
type sectPrXML struct {
	PgSz *pgSzXML `xml:"pgSz"`
}

// pgSzXML is a section's page size in twentieths of a point.
type pgSzXML struct {
	W      string `xml:"w,attr"`
	H      string `xml:"h,attr"`
	Orient string `xml:"orient,attr"` // portrait or landscape
}

// runXML represents a text run (<w:r>).
type runXML struct {
	XMLName          xml.Name              `xml:"r"`
	Text             []textXML             `xml:"t"`
	Tabs             []tabXML              `xml:"tab"`
	Breaks           []breakXML            `xml:"br"`
	Drawing          []drawingXML          `xml:"drawing"`
	Symbols          []symXML              `xml:"sym"`
	AlternateContent []alternateContentXML `xml:"AlternateContent"`
}

// symXML represents a symbol character (<w:sym>).
type symXML struct {
	Font string `xml:"font,attr"`
	Char string `xml:"char,attr"` // Hex character code
}

// alternateContentXML represents mc:AlternateContent for emoji fallbacks.
type alternateContentXML struct {
	Fallback fallbackXML `xml:"Fallback"`
}

// fallbackXML represents mc:Fallback containing text.
type fallbackXML struct {
	Text []textXML `xml:"t"`
}

// textXML represents text content (<w:t>).
type textXML struct {
	XMLName xml.Name `xml:"t"`
	Value   string   `xml:",chardata"`
}

// tabXML represents a tab character.
type tabXML struct {
	XMLName xml.Name `xml:"tab"`
}

// breakXML represents a break (line or page).
type breakXML struct {
	XMLName xml.Name `xml:"br"`
	Type    string   `xml:"type,attr"` // page, column, textWrapping
}

// drawingXML represents an embedded drawing or image.
type drawingXML struct {
	XMLName xml.Name `xml:"drawing"`
}

// hyperlinkXML represents a hyperlink.
type hyperlinkXML struct {
	Runs []runXML `xml:"r"`
}

// tableXML represents a table (<w:tbl>).
type tableXML struct {
	XMLName xml.Name      `xml:"tbl"`
	Rows    []tableRowXML `xml:"tr"`
}

// tableRowXML represents a table row (<w:tr>).
type tableRowXML struct {
	XMLName xml.Name       `xml:"tr"`
	Cells   []tableCellXML `xml:"tc"`
}

// tableCellXML represents a table cell (<w:tc>). Cells may nest tables.
type tableCellXML struct {
	XMLName    xml.Name       `xml:"tc"`
	Paragraphs []paragraphXML `xml:"p"`
	Tables     []tableXML     `xml:"tbl"`
}

// corePropertiesXML represents docProps/core.xml (Dublin Core metadata)
type corePropertiesXML struct {
	XMLName xml.Name `xml:"coreProperties"`
	Title   string   `xml:"title"`
	Creator string   `xml:"creator"`
}

// appPropertiesXML represents docProps/app.xml
type appPropertiesXML struct {
	XMLName     xml.Name `xml:"Properties"`
	Pages       string   `xml:"Pages"`
	Words       string   `xml:"Words"`
	Characters  string   `xml:"Characters"`
	Application string   `xml:"Application"`
}
