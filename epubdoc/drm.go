package epubdoc

import (
	"encoding/xml"
	"errors"
	"strings"
)

// ErrDRMProtected is returned for publications whose content is encrypted.
var ErrDRMProtected = errors.New("epub: DRM-protected content cannot be processed")

// encryptionXML represents the structure of META-INF/encryption.xml.
type encryptionXML struct {
	XMLName       xml.Name        `xml:"encryption"`
	EncryptedData []encryptedData `xml:"EncryptedData"`
}

type encryptedData struct {
	EncryptionMethod encryptionMethod `xml:"EncryptionMethod"`
	CipherData       cipherData       `xml:"CipherData"`
}

type encryptionMethod struct {
	Algorithm string `xml:"Algorithm,attr"`
}

type cipherData struct {
	CipherReference cipherReference `xml:"CipherReference"`
}

type cipherReference struct {
	URI string `xml:"URI,attr"`
}

// checkForDRM returns ErrDRMProtected when the archive carries Adobe rights
// or encrypts any content document. Encrypted text cannot be measured.
func (r *Reader) checkForDRM() error {
	if r.files["META-INF/rights.xml"] != nil {
		return ErrDRMProtected
	}
	if r.files["META-INF/encryption.xml"] == nil {
		return nil
	}

	data, err := r.getFileContent("META-INF/encryption.xml")
	if err != nil {
		return ErrDRMProtected
	}
	var enc encryptionXML
	if err := xml.Unmarshal(data, &enc); err != nil {
		// If we can't parse it, assume it's DRM
		return ErrDRMProtected
	}

	for _, ed := range enc.EncryptedData {
		if isFontObfuscation(ed.EncryptionMethod.Algorithm) {
			continue
		}
		if isContentFile(ed.CipherData.CipherReference.URI) {
			return ErrDRMProtected
		}
	}
	return nil
}

// isFontObfuscation reports whether algorithm is the Adobe or IDPF font
// mangling scheme, which leaves text readable.
func isFontObfuscation(algorithm string) bool {
	if !strings.Contains(algorithm, "obfuscation") {
		return false
	}
	return strings.Contains(algorithm, "adobe.com") || strings.Contains(algorithm, "idpf.org")
}

// isContentFile reports whether uri names a document or stylesheet.
func isContentFile(uri string) bool {
	uri = strings.ToLower(uri)
	for _, ext := range []string{".xhtml", ".html", ".htm", ".xml", ".css"} {
		if strings.HasSuffix(uri, ext) {
			return true
		}
	}
	return false
}
