// Package xlsx reads Office Open XML workbooks and estimates how many printed
// pages their worksheets fill.
package xlsx

import "encoding/xml"

// workbookXML represents the xl/workbook.xml file structure.
type workbookXML struct {
	XMLName xml.Name  `xml:"workbook"`
	Sheets  sheetsXML `xml:"sheets"`
}

type sheetsXML struct {
	Sheet []sheetRefXML `xml:"sheet"`
}

type sheetRefXML struct {
	Name    string `xml:"name,attr"`
	SheetID string `xml:"sheetId,attr"`
	RID     string `xml:"id,attr"` // r:id attribute for relationship
}

// worksheetXML represents a xl/worksheets/sheet*.xml file structure.
type worksheetXML struct {
	XMLName   xml.Name     `xml:"worksheet"`
	SheetData sheetDataXML `xml:"sheetData"`
}

type sheetDataXML struct {
	Rows []rowXML `xml:"row"`
}

type rowXML struct {
	R     int       `xml:"r,attr"` // Row number (1-indexed), optional
	Cells []cellXML `xml:"c"`
}

type cellXML struct {
	R  string        `xml:"r,attr"` // Cell reference (e.g., "A1")
	T  string        `xml:"t,attr"` // Type: s=shared string, n=number, b=bool, str=formula string, e=error
	V  *string       `xml:"v"`      // Value; nil when absent
	F  string        `xml:"f"`      // Formula (optional)
	Is *inlineStrXML `xml:"is"`     // Inline string (optional)
}

type inlineStrXML struct {
	T string `xml:"t"`
	R []rXML `xml:"r"`
}

// sharedStringsXML represents the xl/sharedStrings.xml file structure.
type sharedStringsXML struct {
	XMLName xml.Name `xml:"sst"`
	SI      []siXML  `xml:"si"`
}

type siXML struct {
	T string `xml:"t"` // Simple text
	R []rXML `xml:"r"` // Rich text runs
}

type rXML struct {
	T string `xml:"t"` // Text in run
}

// relationshipsXML represents .rels files.
type relationshipsXML struct {
	XMLName      xml.Name          `xml:"Relationships"`
	Relationship []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}
