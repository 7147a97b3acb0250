package provider

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/providercard/providercard/internal/platform/fhir"
)

func strPtr(s string) *string { return &s }

func sampleProvider() *Provider {
	return &Provider{
		FHIRID:    "prac-1",
		Email:     "jane@clinic.example",
		FirstName: "Jane",
		LastName:  "Rivera",
		NPI:       strPtr("1234567890"),
		Status:    StatusVerified,
	}
}

func sampleRole(p *Provider) *Role {
	exp := time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC)
	return &Role{
		FHIRID:           "role-1",
		ProviderID:       p.ID,
		Active:           true,
		SpecialtyCode:    strPtr("207Q00000X"),
		SpecialtyDisplay: strPtr("Family Medicine"),
		PracticeName:     strPtr("Rivera Family Clinic"),
		LicenseState:     strPtr("CA"),
		LicenseNumber:    strPtr("A-12345"),
		LicenseExpiration: &exp,
		AcceptedInsurances: []Insurance{
			{Name: "Acme Health", PlanType: "PPO"},
			{Name: "Blue Plan"},
		},
	}
}

func TestCalculateCompleteness_PartialProfile(t *testing.T) {
	p := sampleProvider()
	role := &Role{
		SpecialtyCode: strPtr("207Q00000X"),
		LicenseNumber: strPtr("A-12345"),
	}
	// npi 15 + name 10 + email 10 + roles 20 + specialty 10 + license 10
	if got := CalculateCompleteness(p, []*Role{role}); got != 75 {
		t.Fatalf("completeness = %d, want 75", got)
	}
}

func TestCalculateCompleteness_EmptyAndFull(t *testing.T) {
	if got := CalculateCompleteness(&Provider{}, nil); got != 0 {
		t.Fatalf("empty profile completeness = %d, want 0", got)
	}

	p := sampleProvider()
	p.Phone = strPtr("555-0100")
	p.AddressLine1 = strPtr("100 Main St")
	p.City = strPtr("Sacramento")
	p.State = strPtr("CA")
	if got := CalculateCompleteness(p, []*Role{sampleRole(p)}); got != 100 {
		t.Fatalf("full profile completeness = %d, want 100", got)
	}
}

func TestCalculateCompleteness_AddressRequiresAllParts(t *testing.T) {
	p := sampleProvider()
	p.AddressLine1 = strPtr("100 Main St")
	p.City = strPtr("Sacramento")
	// state missing, so no address points
	if got := CalculateCompleteness(p, nil); got != 35 {
		t.Fatalf("completeness = %d, want 35", got)
	}
}

func TestProviderToFHIR_Minimal(t *testing.T) {
	p := &Provider{FHIRID: "prac-min", Email: "min@example.com", FirstName: "Min", LastName: "Imal", Status: StatusPendingVerification}
	tree := p.ToFHIR()

	if tree["resourceType"] != "Practitioner" || tree["id"] != "prac-min" {
		t.Fatalf("unexpected resource header: %v / %v", tree["resourceType"], tree["id"])
	}
	if tree["active"] != false {
		t.Errorf("active = %v, want false for unverified provider", tree["active"])
	}
	if tree["gender"] != "unknown" {
		t.Errorf("gender = %v, want unknown default", tree["gender"])
	}
	if ids := tree["identifier"].([]interface{}); len(ids) != 0 {
		t.Errorf("identifier = %v, want empty array", ids)
	}
	if addrs := tree["address"].([]interface{}); len(addrs) != 0 {
		t.Errorf("address = %v, want empty array", addrs)
	}

	name := tree["name"].([]interface{})[0].(map[string]interface{})
	if name["use"] != "official" || name["family"] != "Imal" {
		t.Errorf("unexpected name: %v", name)
	}
	if prefix := name["prefix"].([]interface{}); len(prefix) != 0 {
		t.Errorf("prefix emitted without suffix: %v", prefix)
	}
}

func TestProviderToFHIR_FullProfile(t *testing.T) {
	p := sampleProvider()
	p.DEANumber = strPtr("BR1234567")
	p.MiddleName = strPtr("Q")
	p.Suffix = strPtr("MD")
	p.Gender = strPtr("female")
	p.Phone = strPtr("555-0100")
	p.AddressLine1 = strPtr("100 Main St")
	p.AddressLine2 = strPtr("Suite 4")
	p.City = strPtr("Sacramento")
	p.State = strPtr("CA")
	p.PostalCode = strPtr("95814")

	tree := p.ToFHIR()

	if tree["active"] != true {
		t.Errorf("active = %v, want true for verified provider", tree["active"])
	}
	if tree["gender"] != "female" {
		t.Errorf("gender = %v", tree["gender"])
	}

	ids := tree["identifier"].([]interface{})
	if len(ids) != 2 {
		t.Fatalf("identifiers = %d, want 2", len(ids))
	}
	npi := ids[0].(map[string]interface{})
	if npi["system"] != fhir.SystemNPI || npi["value"] != "1234567890" {
		t.Errorf("unexpected NPI identifier: %v", npi)
	}
	dea := ids[1].(map[string]interface{})
	coding := dea["type"].(map[string]interface{})["coding"].([]interface{})[0].(map[string]interface{})
	if coding["code"] != "DEA" || coding["display"] != "DEA Number" {
		t.Errorf("unexpected DEA type coding: %v", coding)
	}

	name := tree["name"].([]interface{})[0].(map[string]interface{})
	given := name["given"].([]interface{})
	if len(given) != 2 || given[0] != "Jane" || given[1] != "Q" {
		t.Errorf("given = %v", given)
	}
	if prefix := name["prefix"].([]interface{}); len(prefix) != 1 || prefix[0] != "Dr." {
		t.Errorf("prefix = %v, want [Dr.] alongside suffix", prefix)
	}
	if suffix := name["suffix"].([]interface{}); len(suffix) != 1 || suffix[0] != "MD" {
		t.Errorf("suffix = %v", suffix)
	}

	telecoms := tree["telecom"].([]interface{})
	if len(telecoms) != 2 {
		t.Fatalf("telecoms = %d, want email then phone", len(telecoms))
	}
	if telecoms[0].(map[string]interface{})["system"] != "email" {
		t.Errorf("first telecom should be email: %v", telecoms[0])
	}
	if telecoms[1].(map[string]interface{})["system"] != "phone" {
		t.Errorf("second telecom should be phone: %v", telecoms[1])
	}

	addr := tree["address"].([]interface{})[0].(map[string]interface{})
	lines := addr["line"].([]interface{})
	if len(lines) != 2 || lines[1] != "Suite 4" {
		t.Errorf("address lines = %v", lines)
	}
	if addr["country"] != "US" {
		t.Errorf("country = %v, want US default", addr["country"])
	}
}

func TestProviderToFHIR_Deterministic(t *testing.T) {
	p := sampleProvider()
	p.Suffix = strPtr("MD")
	p.Phone = strPtr("555-0100")

	first := p.ToFHIR()
	second := p.ToFHIR()
	if !reflect.DeepEqual(first, second) {
		t.Fatal("repeated renderings differ")
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatal("serialized renderings differ")
	}
}

func TestProviderToFHIR_PassesValidation(t *testing.T) {
	p := sampleProvider()
	p.DEANumber = strPtr("BR1234567")
	p.MiddleName = strPtr("Q")
	p.Suffix = strPtr("MD")
	p.Gender = strPtr("female")
	p.Phone = strPtr("555-0100")
	p.AddressLine1 = strPtr("100 Main St")
	p.City = strPtr("Sacramento")
	p.State = strPtr("CA")

	result := fhir.NewValidator().Validate(p.ToFHIR(), "Practitioner")
	if !result.Valid {
		t.Fatalf("mapped practitioner failed validation: %v", result.Errors)
	}
}

func TestRoleToFHIR(t *testing.T) {
	p := sampleProvider()
	role := sampleRole(p)
	tree := role.ToFHIR(p)

	if tree["resourceType"] != "PractitionerRole" || tree["id"] != "role-1" {
		t.Fatalf("unexpected resource header: %v / %v", tree["resourceType"], tree["id"])
	}

	ref := tree["practitioner"].(map[string]interface{})
	if ref["reference"] != "Practitioner/prac-1" {
		t.Errorf("reference = %v", ref["reference"])
	}
	if ref["display"] != "Dr. Jane Rivera" {
		t.Errorf("display = %v", ref["display"])
	}

	coding := tree["specialty"].([]interface{})[0].(map[string]interface{})["coding"].([]interface{})[0].(map[string]interface{})
	if coding["system"] != fhir.SystemNUCCTaxonomy || coding["code"] != "207Q00000X" {
		t.Errorf("unexpected specialty coding: %v", coding)
	}

	loc := tree["location"].([]interface{})[0].(map[string]interface{})
	if loc["display"] != "Rivera Family Clinic" {
		t.Errorf("location display = %v", loc["display"])
	}

	exts := tree["extension"].([]interface{})
	if len(exts) != 2 {
		t.Fatalf("extensions = %d, want license and insurances", len(exts))
	}
	license := exts[0].(map[string]interface{})
	if license["url"] != fhir.ExtLicense {
		t.Errorf("license url = %v", license["url"])
	}
	nested := license["extension"].([]interface{})
	last := nested[len(nested)-1].(map[string]interface{})
	if last["url"] != "expiration" || last["valueDate"] != "2027-06-30" {
		t.Errorf("expiration entry = %v", last)
	}

	insurances := exts[1].(map[string]interface{})
	if insurances["valueString"] != "Acme Health, Blue Plan" {
		t.Errorf("insurances = %v", insurances["valueString"])
	}
}

func TestRoleToFHIR_SparseRole(t *testing.T) {
	p := sampleProvider()
	role := &Role{FHIRID: "role-2", ProviderID: p.ID, Active: true}
	tree := role.ToFHIR(p)

	if specialty := tree["specialty"].([]interface{}); len(specialty) != 0 {
		t.Errorf("specialty = %v, want empty array", specialty)
	}
	if location := tree["location"].([]interface{}); len(location) != 0 {
		t.Errorf("location = %v, want empty array", location)
	}
	if _, present := tree["extension"]; present {
		t.Error("extension list emitted for role with no license or insurances")
	}
}

func TestRoleToFHIR_DefaultLocationDisplay(t *testing.T) {
	p := sampleProvider()
	role := &Role{
		FHIRID:               "role-3",
		Active:               true,
		PracticeAddressLine1: strPtr("200 Oak Ave"),
	}
	tree := role.ToFHIR(p)
	loc := tree["location"].([]interface{})[0].(map[string]interface{})
	if loc["display"] != "Primary Practice" {
		t.Errorf("location display = %v, want Primary Practice fallback", loc["display"])
	}
}

func TestRoleToFHIR_LicenseWithoutExpiration(t *testing.T) {
	p := sampleProvider()
	role := &Role{
		FHIRID:        "role-4",
		Active:        true,
		LicenseState:  strPtr("NY"),
		LicenseNumber: strPtr("X-999"),
	}
	tree := role.ToFHIR(p)
	license := tree["extension"].([]interface{})[0].(map[string]interface{})
	nested := license["extension"].([]interface{})
	last := nested[len(nested)-1].(map[string]interface{})
	if last["url"] != "expiration" {
		t.Fatalf("expiration entry missing: %v", nested)
	}
	if last["valueDate"] != nil {
		t.Errorf("valueDate = %v, want null", last["valueDate"])
	}
}

func TestRoleToFHIR_PassesValidation(t *testing.T) {
	p := sampleProvider()
	result := fhir.NewValidator().Validate(sampleRole(p).ToFHIR(p), "PractitionerRole")
	if !result.Valid {
		t.Fatalf("mapped role failed validation: %v", result.Errors)
	}
}
