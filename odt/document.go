package odt

import "encoding/xml"

// ODF XML namespaces
const (
	nsOffice = "urn:oasis:names:tc:opendocument:xmlns:office:1.0"
	nsText   = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
	nsDraw   = "urn:oasis:names:tc:opendocument:xmlns:drawing:1.0"
)

// metaXML represents the structure of meta.xml
type metaXML struct {
	XMLName xml.Name     `xml:"document-meta"`
	Meta    *metaBodyXML `xml:"meta"`
}

// metaBodyXML represents the office:meta element.
type metaBodyXML struct {
	Title      string            `xml:"title"`
	Generator  string            `xml:"generator"`
	Statistics *documentStatsXML `xml:"document-statistic"`
}

// documentStatsXML represents meta:document-statistic.
type documentStatsXML struct {
	PageCount      string `xml:"page-count,attr"`
	CharacterCount string `xml:"character-count,attr"`
	ImageCount     string `xml:"image-count,attr"`
}
