package httpbin

import (
	"encoding/xml"
	"fmt"

	"github.com/goccy/go-yaml"
)

// SampleXML renders Sample the way /xml serves it.
func SampleXML() ([]byte, error) {
	body, err := xml.MarshalIndent(struct {
		XMLName xml.Name `xml:"slideshow"`
		Slideshow
	}{Slideshow: Sample}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding xml fixture: %w", err)
	}

	return append([]byte(xml.Header), body...), nil
}

// SampleYAML renders Sample the way /yaml serves it.
func SampleYAML() ([]byte, error) {
	body, err := yaml.Marshal(map[string]Slideshow{"slideshow": Sample})
	if err != nil {
		return nil, fmt.Errorf("encoding yaml fixture: %w", err)
	}

	return body, nil
}
