package epubdoc

import (
	"encoding/xml"
	"errors"
	"path"
	"strings"
)

// OPF-related errors.
var (
	ErrNoOPF      = errors.New("epub: missing package document (OPF)")
	ErrInvalidOPF = errors.New("epub: invalid package document")
	ErrEmptySpine = errors.New("epub: no content in spine")
)

// opfPackage represents the OPF package document.
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	Title    []dcElement `xml:"title"`
	Creator  []dcElement `xml:"creator"`
	Language []dcElement `xml:"language"`
}

type dcElement struct {
	ID      string `xml:"id,attr"`
	Content string `xml:",chardata"`
}

type opfManifest struct {
	Items []opfItem `xml:"item"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type opfSpine struct {
	ItemRefs []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

// parseOPF parses the package document at opfPath and returns it with the
// directory its hrefs are relative to.
func (r *Reader) parseOPF(opfPath string) (*Package, string, error) {
	if r.files[opfPath] == nil {
		return nil, "", ErrNoOPF
	}

	// Get base directory for resolving relative paths
	baseDir := path.Dir(opfPath)
	if baseDir == "." {
		baseDir = ""
	}

	data, err := r.getFileContent(opfPath)
	if err != nil {
		return nil, "", err
	}

	var opf opfPackage
	if err := xml.Unmarshal(data, &opf); err != nil {
		return nil, "", ErrInvalidOPF
	}

	pkg := &Package{
		Version:  opf.Version,
		Metadata: convertMetadata(&opf.Metadata),
		Manifest: convertManifest(&opf.Manifest),
		Spine:    convertSpine(&opf.Spine),
	}

	if len(pkg.Spine) == 0 {
		return nil, "", ErrEmptySpine
	}

	return pkg, baseDir, nil
}

func convertMetadata(m *opfMetadata) Metadata {
	meta := Metadata{}

	// Title - take first
	if len(m.Title) > 0 {
		meta.Title = strings.TrimSpace(m.Title[0].Content)
	}

	for _, c := range m.Creator {
		if s := strings.TrimSpace(c.Content); s != "" {
			meta.Creator = append(meta.Creator, s)
		}
	}

	if len(m.Language) > 0 {
		meta.Language = strings.TrimSpace(m.Language[0].Content)
	}

	return meta
}

func convertManifest(m *opfManifest) map[string]ManifestItem {
	manifest := make(map[string]ManifestItem, len(m.Items))

	for _, item := range m.Items {
		mi := ManifestItem{
			ID:        item.ID,
			Href:      item.Href,
			MediaType: item.MediaType,
		}
		if item.Properties != "" {
			mi.Properties = strings.Fields(item.Properties)
		}
		manifest[item.ID] = mi
	}

	return manifest
}

func convertSpine(s *opfSpine) []SpineItem {
	spine := make([]SpineItem, 0, len(s.ItemRefs))

	for _, ref := range s.ItemRefs {
		spine = append(spine, SpineItem{
			IDRef:  ref.IDRef,
			Linear: ref.Linear != "no", // Default is true
		})
	}

	return spine
}
