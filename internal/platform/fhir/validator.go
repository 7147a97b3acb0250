package fhir

import (
	"errors"
	"fmt"
	"strings"
)

// Value sets taken from the FHIR R4 definitions for the fields the
// validator inspects.
var (
	validGenderValues        = []string{"male", "female", "other", "unknown"}
	validNameUseValues       = []string{"usual", "official", "temp", "nickname", "anonymous", "old", "maiden"}
	validTelecomSystemValues = []string{"phone", "fax", "email", "pager", "url", "sms", "other"}
	validAddressUseValues    = []string{"home", "work", "temp", "old", "billing"}
)

// ValidationResult holds the full violation list for one resource.
// An empty Errors list means the resource is structurally valid.
type ValidationResult struct {
	Valid        bool     `json:"valid"`
	Errors       []string `json:"errors"`
	ResourceType string   `json:"resource_type,omitempty"`
	ResourceID   string   `json:"resource_id,omitempty"`
}

// Err returns nil when the result is valid, otherwise an error carrying
// every violation. Mutation paths use this to reject invalid resources
// without losing any individual message.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("FHIR ")
	sb.WriteString(r.ResourceType)
	sb.WriteString(" validation failed:")
	for _, e := range r.Errors {
		sb.WriteString("\n  - ")
		sb.WriteString(e)
	}
	return errors.New(sb.String())
}

// Validator performs structural validation of FHIR resource trees.
// It checks a bounded subset of the R4 shape rules. Bundles are never
// validated here; it handles single-resource shapes only.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate collects every structural violation in the resource. Checks
// are independent and never short-circuit, so callers always see the
// complete list.
func (v *Validator) Validate(resource ResourceTree, expectedType string) *ValidationResult {
	var errs []string

	rt, _ := resource["resourceType"].(string)
	if rt != expectedType {
		errs = append(errs, fmt.Sprintf("resourceType must be '%s'", expectedType))
	}

	for _, field := range []string{"resourceType", "id"} {
		if _, ok := resource[field]; !ok {
			errs = append(errs, "Missing required field: "+field)
		}
	}

	if id, ok := resource["id"]; ok {
		if s, isStr := id.(string); !isStr || s == "" {
			errs = append(errs, "id must be a non-empty string")
		}
	}

	if identifiers, ok := resource["identifier"]; ok {
		errs = append(errs, validateIdentifiers(identifiers)...)
	}

	if active, ok := resource["active"]; ok {
		if _, isBool := active.(bool); !isBool {
			errs = append(errs, "active must be a boolean")
		}
	}

	if names, ok := resource["name"]; ok {
		errs = append(errs, validateNames(names)...)
	}

	if telecoms, ok := resource["telecom"]; ok {
		errs = append(errs, validateTelecoms(telecoms)...)
	}

	if addresses, ok := resource["address"]; ok {
		errs = append(errs, validateAddresses(addresses)...)
	}

	if gender, ok := resource["gender"]; ok {
		s, isStr := gender.(string)
		if !isStr || !contains(validGenderValues, s) {
			errs = append(errs, "gender must be one of: "+strings.Join(validGenderValues, ", "))
		}
	}

	if birthDate, ok := resource["birthDate"]; ok {
		if _, isStr := birthDate.(string); !isStr {
			errs = append(errs, "birthDate must be a string in YYYY-MM-DD format")
		}
	}

	if quals, ok := resource["qualification"]; ok {
		errs = append(errs, validateQualifications(quals)...)
	}

	id, _ := resource["id"].(string)
	return &ValidationResult{
		Valid:        len(errs) == 0,
		Errors:       errs,
		ResourceType: rt,
		ResourceID:   id,
	}
}

// ValidatePractitioner validates a Practitioner resource tree.
func (v *Validator) ValidatePractitioner(resource ResourceTree) *ValidationResult {
	return v.Validate(resource, "Practitioner")
}

// ValidatePractitionerRole validates a PractitionerRole resource tree.
func (v *Validator) ValidatePractitionerRole(resource ResourceTree) *ValidationResult {
	return v.Validate(resource, "PractitionerRole")
}

func validateIdentifiers(identifiers interface{}) []string {
	list, ok := identifiers.([]interface{})
	if !ok {
		return []string{"identifier must be an array"}
	}

	var errs []string
	for i, entry := range list {
		identifier, isObj := entry.(map[string]interface{})
		if !isObj {
			errs = append(errs, fmt.Sprintf("identifier[%d] must be an object", i))
			continue
		}

		_, hasSystem := identifier["system"]
		_, hasValue := identifier["value"]
		if !hasSystem && !hasValue {
			errs = append(errs, fmt.Sprintf("identifier[%d] must have system or value", i))
		}

		if sys, ok := identifier["system"]; ok {
			if _, isStr := sys.(string); !isStr {
				errs = append(errs, fmt.Sprintf("identifier[%d].system must be a string", i))
			}
		}

		if val, ok := identifier["value"]; ok {
			if _, isStr := val.(string); !isStr {
				errs = append(errs, fmt.Sprintf("identifier[%d].value must be a string", i))
			}
		}
	}
	return errs
}

func validateNames(names interface{}) []string {
	list, ok := names.([]interface{})
	if !ok {
		return []string{"name must be an array"}
	}

	var errs []string
	if len(list) == 0 {
		errs = append(errs, "name array must not be empty")
	}

	for i, entry := range list {
		name, isObj := entry.(map[string]interface{})
		if !isObj {
			errs = append(errs, fmt.Sprintf("name[%d] must be an object", i))
			continue
		}

		_, hasFamily := name["family"]
		_, hasGiven := name["given"]
		if !hasFamily && !hasGiven {
			errs = append(errs, fmt.Sprintf("name[%d] must have family or given", i))
		}

		if use, ok := name["use"]; ok {
			s, isStr := use.(string)
			if !isStr || !contains(validNameUseValues, s) {
				errs = append(errs, fmt.Sprintf("name[%d].use must be one of: %s", i, strings.Join(validNameUseValues, ", ")))
			}
		}

		if given, ok := name["given"]; ok {
			errs = append(errs, validateStringArray(given, fmt.Sprintf("name[%d].given", i))...)
		}

		for _, field := range []string{"prefix", "suffix"} {
			if val, ok := name[field]; ok {
				errs = append(errs, validateStringArray(val, fmt.Sprintf("name[%d].%s", i, field))...)
			}
		}
	}
	return errs
}

func validateTelecoms(telecoms interface{}) []string {
	list, ok := telecoms.([]interface{})
	if !ok {
		return []string{"telecom must be an array"}
	}

	var errs []string
	for i, entry := range list {
		telecom, isObj := entry.(map[string]interface{})
		if !isObj {
			errs = append(errs, fmt.Sprintf("telecom[%d] must be an object", i))
			continue
		}

		if sys, ok := telecom["system"]; !ok {
			errs = append(errs, fmt.Sprintf("telecom[%d] must have system", i))
		} else {
			s, isStr := sys.(string)
			if !isStr || !contains(validTelecomSystemValues, s) {
				errs = append(errs, fmt.Sprintf("telecom[%d].system must be one of: %s", i, strings.Join(validTelecomSystemValues, ", ")))
			}
		}

		if val, ok := telecom["value"]; !ok {
			errs = append(errs, fmt.Sprintf("telecom[%d] must have value", i))
		} else if _, isStr := val.(string); !isStr {
			errs = append(errs, fmt.Sprintf("telecom[%d].value must be a string", i))
		}
	}
	return errs
}

func validateAddresses(addresses interface{}) []string {
	list, ok := addresses.([]interface{})
	if !ok {
		return []string{"address must be an array"}
	}

	var errs []string
	for i, entry := range list {
		address, isObj := entry.(map[string]interface{})
		if !isObj {
			errs = append(errs, fmt.Sprintf("address[%d] must be an object", i))
			continue
		}

		if use, ok := address["use"]; ok {
			s, isStr := use.(string)
			if !isStr || !contains(validAddressUseValues, s) {
				errs = append(errs, fmt.Sprintf("address[%d].use must be one of: %s", i, strings.Join(validAddressUseValues, ", ")))
			}
		}

		if line, ok := address["line"]; ok {
			errs = append(errs, validateStringArray(line, fmt.Sprintf("address[%d].line", i))...)
		}
	}
	return errs
}

func validateQualifications(qualifications interface{}) []string {
	list, ok := qualifications.([]interface{})
	if !ok {
		return []string{"qualification must be an array"}
	}

	var errs []string
	for i, entry := range list {
		qual, isObj := entry.(map[string]interface{})
		if !isObj {
			errs = append(errs, fmt.Sprintf("qualification[%d] must be an object", i))
			continue
		}

		if code, ok := qual["code"]; !ok {
			errs = append(errs, fmt.Sprintf("qualification[%d] must have code", i))
		} else if _, isObj := code.(map[string]interface{}); !isObj {
			errs = append(errs, fmt.Sprintf("qualification[%d].code must be an object", i))
		}
	}
	return errs
}

func validateStringArray(val interface{}, path string) []string {
	list, ok := val.([]interface{})
	if !ok {
		return []string{path + " must be an array"}
	}
	for _, item := range list {
		if _, isStr := item.(string); !isStr {
			return []string{path + " must contain only strings"}
		}
	}
	return nil
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
