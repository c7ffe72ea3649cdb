package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
)

// DefaultStyleName is reported for paragraphs without an explicit style.
const DefaultStyleName = "Normal"

// styleNames maps paragraph style IDs to their display names.
type styleNames map[string]string

var builtinHeading = regexp.MustCompile(`(?i)^heading\s*([0-9])$`)

// resolve turns a style ID into the name Word shows for it. Built-in heading
// and title styles are normalised to their canonical English names.
func (s styleNames) resolve(id string) string {
	name := id
	if n, ok := s[id]; ok && n != "" {
		name = n
	}
	if name == "" {
		if n, ok := s[s.defaultID()]; ok && n != "" {
			return canonicalStyleName(n)
		}
		return DefaultStyleName
	}
	return canonicalStyleName(name)
}

func (s styleNames) defaultID() string {
	return s[defaultKey]
}

// defaultKey stores the ID of the default paragraph style. IDs never contain NUL.
const defaultKey = "\x00default"

func canonicalStyleName(name string) string {
	if m := builtinHeading.FindStringSubmatch(name); m != nil {
		return "Heading " + m[1]
	}
	switch strings.ToLower(name) {
	case "normal":
		return "Normal"
	case "title":
		return "Title"
	}
	return name
}

type stylesXML struct {
	Styles []struct {
		Type    string `xml:"type,attr"`
		ID      string `xml:"styleId,attr"`
		Default string `xml:"default,attr"`
		Name    struct {
			Val string `xml:"val,attr"`
		} `xml:"name"`
	} `xml:"style"`
}

// readStyleNames reads word/styles.xml. A document without one yields an
// empty mapping.
func readStyleNames(data []byte) (styleNames, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	names := styleNames{}
	for _, f := range zr.File {
		if !strings.EqualFold(f.Name, "word/styles.xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		var doc stylesXML
		err = xml.NewDecoder(rc).Decode(&doc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Name, err)
		}
		for _, st := range doc.Styles {
			if st.Type != "" && st.Type != "paragraph" {
				continue
			}
			names[st.ID] = st.Name.Val
			if st.Default == "1" || st.Default == "true" {
				names[defaultKey] = st.ID
			}
		}
		break
	}
	return names, nil
}
