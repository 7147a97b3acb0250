package fhir

import "fmt"

// ResourceTree is a raw FHIR resource as an ordered nested structure.
// Mapping code builds these and the validator consumes them, so both
// sides share the same representation as the wire format.
type ResourceTree = map[string]interface{}

// Identifier and terminology systems used across resources.
const (
	SystemNPI          = "http://hl7.org/fhir/sid/us-npi"
	SystemV2IDType     = "http://terminology.hl7.org/CodeSystem/v2-0203"
	SystemNUCCTaxonomy = "http://nucc.org/provider-taxonomy"

	ExtLicense            = "http://providercard.io/fhir/StructureDefinition/license"
	ExtAcceptedInsurances = "http://providercard.io/fhir/StructureDefinition/accepted-insurances"
)

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// OperationOutcome represents a FHIR OperationOutcome for errors.
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string   `json:"severity"`
	Code        string   `json:"code"`
	Diagnostics string   `json:"diagnostics,omitempty"`
	Expression  []string `json:"expression,omitempty"`
}

func NewOperationOutcome(severity, code, diagnostics string) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue: []OperationOutcomeIssue{
			{
				Severity:    severity,
				Code:        code,
				Diagnostics: diagnostics,
			},
		},
	}
}

func ErrorOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome("error", "processing", diagnostics)
}

func NotFoundOutcome(resourceType, id string) *OperationOutcome {
	return NewOperationOutcome("error", "not-found", resourceType+"/"+id+" not found")
}

// FormatReference creates a FHIR reference string.
func FormatReference(resourceType, id string) string {
	return fmt.Sprintf("%s/%s", resourceType, id)
}
