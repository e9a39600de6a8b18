package report

import (
	"fmt"
	"io"
	"strings"
)

// Field is one entry of the report metadata form
type Field struct {
	Section string
	Label   string
	Choices []string
}

// Values maps field labels to their text
type Values map[string]string

const (
	SectionCustomer     = "KLANT- EN CONTRACTINFORMATIE"
	SectionServices     = "INFORMATIE EQUANS SERVICES"
	SectionMaintenance  = "INFORMATIE ONDERHOUDSBEURT"
	SectionInstallation = "INFORMATIE REGELINSTALLATIE"
	SectionClimate      = "INFORMATIE KLIMAATINSTALLATIES EN ENERGIE"
)

const (
	FieldCustomer     = "Klantnaam:"
	FieldBuildingUse  = "Type gebouwgebruik:"
	FieldBuildingSpec = "Type gebouwgebruik: (specificeer)"
	FieldContractTier = "Contractniveau:"
)

var Fields = []Field{
	{Section: SectionCustomer, Label: FieldCustomer},
	{Section: SectionCustomer, Label: "Locatie:"},
	{Section: SectionCustomer, Label: "Adres:"},
	{Section: SectionCustomer, Label: FieldBuildingUse, Choices: []string{
		"Kantoor (gehuurd)", "Kantoor (verhuurd)", "Kantoor eigen gebruik",
		"School", "Ziekenhuis", "Overig",
	}},
	{Section: SectionCustomer, Label: FieldBuildingSpec},
	{Section: SectionCustomer, Label: "Contactpersoon technische dienst:"},
	{Section: SectionCustomer, Label: "Telefoonnummer contactpersoon:"},
	{Section: SectionCustomer, Label: "Email contactpersoon:"},
	{Section: SectionCustomer, Label: "Contactpersoon contract:"},
	{Section: SectionCustomer, Label: "Telefoonnummer contactpersoon contract:"},
	{Section: SectionCustomer, Label: "Email contactpersoon contract:"},
	{Section: SectionCustomer, Label: "Contractjaar:"},
	{Section: SectionCustomer, Label: FieldContractTier, Choices: []string{"Basis", "Standaard", "Totaal"}},

	{Section: SectionServices, Label: "Onderhoud uitgevoerd door:"},
	{Section: SectionServices, Label: "Rapportage opgesteld door:"},
	{Section: SectionServices, Label: "Contractmanager Services:"},

	{Section: SectionMaintenance, Label: "Datum of periode uitgevoerde onderhoud:"},

	{Section: SectionInstallation, Label: "Versie GBS software:"},
	{Section: SectionInstallation, Label: "Aantal centrale regelpanelen aanwezig:"},
	{Section: SectionInstallation, Label: "Aantal floormanagerpanelen aanwezig:"},
	{Section: SectionInstallation, Label: "Aantal naregelingen aanwezig:"},
	{Section: SectionInstallation, Label: "Aantal ruimtebedieningen aanwezig:"},

	{Section: SectionClimate, Label: "Aantal aanwezige luchtbehandelingskasten:"},
}

// Lookup returns the field with this exact label
func Lookup(label string) (Field, bool) {
	for _, f := range Fields {
		if f.Label == label {
			return f, true
		}
	}
	return Field{}, false
}

// Labels returns every field label in form order
func Labels() []string {
	labels := make([]string, len(Fields))
	for i, f := range Fields {
		labels[i] = f.Label
	}
	return labels
}

// Print writes the values grouped by section, in form order
func Print(w io.Writer, values Values) {
	section := ""
	for _, f := range Fields {
		if f.Section != section {
			if section != "" {
				fmt.Fprintln(w)
			}
			section = f.Section
			fmt.Fprintln(w, section)
		}
		if f.Label == FieldBuildingSpec && values[FieldBuildingUse] != "Overig" {
			continue
		}
		fmt.Fprintf(w, "  %-42s %s\n", f.Label, values[f.Label])
	}
}

// normalizeLabel makes spreadsheet labels comparable with form labels
func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.TrimSuffix(label, ":")
	return strings.Join(strings.Fields(label), " ")
}

// aliases maps labels used on the Gegevens sheet to form labels
var aliases = map[string]string{
	"klant":                          FieldCustomer,
	"naam klant":                     FieldCustomer,
	"locatienaam":                    "Locatie:",
	"adres locatie":                  "Adres:",
	"gebouwgebruik":                  FieldBuildingUse,
	"contactpersoon td":              "Contactpersoon technische dienst:",
	"contractniveau services":        FieldContractTier,
	"monteur":                        "Onderhoud uitgevoerd door:",
	"opgesteld door":                 "Rapportage opgesteld door:",
	"contractmanager":                "Contractmanager Services:",
	"onderhoudsdatum":                "Datum of periode uitgevoerde onderhoud:",
	"versie gbs":                     "Versie GBS software:",
	"gbs versie":                     "Versie GBS software:",
	"aantal regelpanelen":            "Aantal centrale regelpanelen aanwezig:",
	"aantal floormanagers":           "Aantal floormanagerpanelen aanwezig:",
	"aantal naregelingen":            "Aantal naregelingen aanwezig:",
	"aantal ruimtebedieningen":       "Aantal ruimtebedieningen aanwezig:",
	"aantal luchtbehandelingskasten": "Aantal aanwezige luchtbehandelingskasten:",
	"aantal lbk's":                   "Aantal aanwezige luchtbehandelingskasten:",
}

// matchLabel maps a spreadsheet label to a form label using the fixed dictionary
func matchLabel(label string) (string, bool) {
	norm := normalizeLabel(label)
	if norm == "" {
		return "", false
	}
	for _, f := range Fields {
		if normalizeLabel(f.Label) == norm {
			return f.Label, true
		}
	}
	target, ok := aliases[norm]
	return target, ok
}
