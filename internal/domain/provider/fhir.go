package provider

import (
	"fmt"
	"strings"

	"github.com/providercard/providercard/internal/platform/fhir"
)

// ToFHIR renders the provider as a FHIR R4 Practitioner resource tree.
// The mapping is deterministic: the same record always yields the same
// tree, and trees are rebuilt fresh on every call.
func (p *Provider) ToFHIR() fhir.ResourceTree {
	resource := fhir.ResourceTree{
		"resourceType": "Practitioner",
		"id":           p.FHIRID,
		"active":       p.Status == StatusVerified,
		"identifier":   p.fhirIdentifiers(),
		"name":         []interface{}{p.fhirName()},
		"telecom":      p.fhirTelecoms(),
		"address":      p.fhirAddresses(),
	}

	gender := "unknown"
	if strSet(p.Gender) {
		gender = *p.Gender
	}
	resource["gender"] = gender

	return resource
}

func (p *Provider) fhirIdentifiers() []interface{} {
	identifiers := []interface{}{}
	if strSet(p.NPI) {
		identifiers = append(identifiers, map[string]interface{}{
			"system": fhir.SystemNPI,
			"value":  *p.NPI,
		})
	}
	if strSet(p.DEANumber) {
		identifiers = append(identifiers, map[string]interface{}{
			"system": fhir.SystemV2IDType,
			"value":  *p.DEANumber,
			"type": map[string]interface{}{
				"coding": []interface{}{
					map[string]interface{}{
						"code":    "DEA",
						"display": "DEA Number",
					},
				},
			},
		})
	}
	return identifiers
}

func (p *Provider) fhirName() map[string]interface{} {
	given := []interface{}{p.FirstName}
	if strSet(p.MiddleName) {
		given = append(given, *p.MiddleName)
	}
	// The honorific prefix is only emitted alongside a suffix; both
	// arrays are always present.
	prefix := []interface{}{}
	suffix := []interface{}{}
	if strSet(p.Suffix) {
		prefix = append(prefix, "Dr.")
		suffix = append(suffix, *p.Suffix)
	}
	return map[string]interface{}{
		"use":    "official",
		"family": p.LastName,
		"given":  given,
		"prefix": prefix,
		"suffix": suffix,
	}
}

func (p *Provider) fhirTelecoms() []interface{} {
	telecoms := []interface{}{}
	if p.Email != "" {
		telecoms = append(telecoms, map[string]interface{}{
			"system": "email",
			"value":  p.Email,
			"use":    "work",
		})
	}
	if strSet(p.Phone) {
		telecoms = append(telecoms, map[string]interface{}{
			"system": "phone",
			"value":  *p.Phone,
			"use":    "work",
		})
	}
	return telecoms
}

func (p *Provider) fhirAddresses() []interface{} {
	addresses := []interface{}{}
	if !strSet(p.AddressLine1) {
		return addresses
	}
	lines := []interface{}{*p.AddressLine1}
	if strSet(p.AddressLine2) {
		lines = append(lines, *p.AddressLine2)
	}
	addr := map[string]interface{}{
		"use":  "work",
		"line": lines,
	}
	if strSet(p.City) {
		addr["city"] = *p.City
	}
	if strSet(p.State) {
		addr["state"] = *p.State
	}
	if strSet(p.PostalCode) {
		addr["postalCode"] = *p.PostalCode
	}
	country := "US"
	if strSet(p.Country) {
		country = *p.Country
	}
	addr["country"] = country
	return append(addresses, addr)
}

// ToFHIR renders the role as a FHIR R4 PractitionerRole resource tree
// referencing its owning practitioner.
func (r *Role) ToFHIR(p *Provider) fhir.ResourceTree {
	resource := fhir.ResourceTree{
		"resourceType": "PractitionerRole",
		"id":           r.FHIRID,
		"active":       r.Active,
		"practitioner": map[string]interface{}{
			"reference": fhir.FormatReference("Practitioner", p.FHIRID),
			"display":   fmt.Sprintf("Dr. %s %s", p.FirstName, p.LastName),
		},
		"specialty": []interface{}{},
		"location":  []interface{}{},
		"telecom":   []interface{}{},
	}

	if strSet(r.SpecialtyCode) {
		coding := map[string]interface{}{
			"system": fhir.SystemNUCCTaxonomy,
			"code":   *r.SpecialtyCode,
		}
		if strSet(r.SpecialtyDisplay) {
			coding["display"] = *r.SpecialtyDisplay
		}
		resource["specialty"] = []interface{}{
			map[string]interface{}{"coding": []interface{}{coding}},
		}
	}

	if strSet(r.PracticeName) || strSet(r.PracticeAddressLine1) {
		display := "Primary Practice"
		if strSet(r.PracticeName) {
			display = *r.PracticeName
		}
		resource["location"] = []interface{}{
			map[string]interface{}{"display": display},
		}
	}

	var extensions []interface{}
	if strSet(r.LicenseNumber) {
		extensions = append(extensions, r.licenseExtension())
	}
	if len(r.AcceptedInsurances) > 0 {
		names := make([]string, 0, len(r.AcceptedInsurances))
		for _, ins := range r.AcceptedInsurances {
			names = append(names, ins.Name)
		}
		extensions = append(extensions, map[string]interface{}{
			"url":         fhir.ExtAcceptedInsurances,
			"valueString": strings.Join(names, ", "),
		})
	}
	if extensions != nil {
		resource["extension"] = extensions
	}

	return resource
}

func (r *Role) licenseExtension() map[string]interface{} {
	var expiration interface{}
	if r.LicenseExpiration != nil {
		expiration = r.LicenseExpiration.Format("2006-01-02")
	}
	nested := []interface{}{}
	if strSet(r.LicenseState) {
		nested = append(nested, map[string]interface{}{
			"url":         "state",
			"valueString": *r.LicenseState,
		})
	}
	if strSet(r.LicenseNumber) {
		nested = append(nested, map[string]interface{}{
			"url":         "number",
			"valueString": *r.LicenseNumber,
		})
	}
	nested = append(nested, map[string]interface{}{
		"url":       "expiration",
		"valueDate": expiration,
	})
	return map[string]interface{}{
		"url":       fhir.ExtLicense,
		"extension": nested,
	}
}
