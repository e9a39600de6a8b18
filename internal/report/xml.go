package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

type xmlReport struct {
	XMLName xml.Name   `xml:"Rapportage"`
	Fields  []xmlField `xml:"Veld"`
}

type xmlField struct {
	Name  string `xml:"naam,attr"`
	Value string `xml:",chardata"`
}

// Export writes every form field, in form order, as a Rapportage document
func Export(w io.Writer, values Values) error {
	doc := xmlReport{Fields: make([]xmlField, 0, len(Fields))}
	for _, f := range Fields {
		doc.Fields = append(doc.Fields, xmlField{Name: f.Label, Value: values[f.Label]})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write xml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Import reads a Rapportage document. Fields the form does not know are
// returned separately and otherwise ignored.
func Import(r io.Reader) (Values, []string, error) {
	var doc xmlReport
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("failed to decode report: %w", err)
	}

	values := Values{}
	var unknown []string
	for _, f := range doc.Fields {
		if _, ok := Lookup(f.Name); !ok {
			unknown = append(unknown, f.Name)
			continue
		}
		values[f.Name] = f.Value
	}
	return values, unknown, nil
}

// ExportFile writes the values to path, replacing any existing file
func ExportFile(path string, values Values) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Export(file, values); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ImportFile reads a Rapportage document from path
func ImportFile(path string) (Values, []string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()
	return Import(file)
}
