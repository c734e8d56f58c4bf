package epubdoc

import (
	"encoding/xml"
	"errors"
)

// Container-related errors.
var (
	ErrNoContainer      = errors.New("epub: missing META-INF/container.xml")
	ErrInvalidContainer = errors.New("epub: invalid container.xml")
	ErrNoRootfile       = errors.New("epub: no rootfile found in container.xml")
)

// containerXML represents the structure of META-INF/container.xml.
type containerXML struct {
	XMLName   xml.Name  `xml:"container"`
	Rootfiles rootfiles `xml:"rootfiles"`
}

type rootfiles struct {
	Rootfile []rootfile `xml:"rootfile"`
}

type rootfile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// parseContainer parses META-INF/container.xml and returns the path to the
// package document.
func (r *Reader) parseContainer() (string, error) {
	if r.files["META-INF/container.xml"] == nil {
		return "", ErrNoContainer
	}
	data, err := r.getFileContent("META-INF/container.xml")
	if err != nil {
		return "", err
	}

	var container containerXML
	if err := xml.Unmarshal(data, &container); err != nil {
		return "", ErrInvalidContainer
	}

	// Find the OPF rootfile
	for _, rf := range container.Rootfiles.Rootfile {
		if rf.MediaType == "application/oebps-package+xml" || rf.MediaType == "" {
			if rf.FullPath != "" {
				return rf.FullPath, nil
			}
		}
	}

	// If no media-type match, take the first one that names a path
	for _, rf := range container.Rootfiles.Rootfile {
		if rf.FullPath != "" {
			return rf.FullPath, nil
		}
	}

	return "", ErrNoRootfile
}
