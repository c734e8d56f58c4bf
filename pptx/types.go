// Package pptx reads PowerPoint (Office Open XML) presentations far enough to
// report how many slides they hold and how large each slide is.
package pptx

import "encoding/xml"

// presentationXML represents the ppt/presentation.xml file structure.
type presentationXML struct {
	XMLName     xml.Name        `xml:"presentation"`
	SlideIdList *slideIdListXML `xml:"sldIdLst"`
	SlideSz     *slideSzXML     `xml:"sldSz"`
}

type slideIdListXML struct {
	SlideId []slideIdXML `xml:"sldId"`
}

type slideIdXML struct {
	ID  string `xml:"id,attr"`
	RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"` // r:id attribute for relationship
}

type slideSzXML struct {
	Cx int64 `xml:"cx,attr"` // Width in EMUs
	Cy int64 `xml:"cy,attr"` // Height in EMUs
}

// slideXML represents the root of a ppt/slides/slide*.xml file. Only the
// visibility flag is decoded.
type slideXML struct {
	XMLName xml.Name `xml:"sld"`
	Show    string   `xml:"show,attr"` // "0" or "false" hides the slide
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

// corePropertiesXML represents docProps/core.xml.
type corePropertiesXML struct {
	XMLName xml.Name `xml:"coreProperties"`
	Title   string   `xml:"title"`
}

// appPropertiesXML represents docProps/app.xml.
type appPropertiesXML struct {
	XMLName      xml.Name `xml:"Properties"`
	Application  string   `xml:"Application"`
	Slides       string   `xml:"Slides"`
	HiddenSlides string   `xml:"HiddenSlides"`
}
