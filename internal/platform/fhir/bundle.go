package fhir

import "fmt"

// NewBundle assembles resource trees into a FHIR Bundle of the given
// type. Each entry carries a synthesized fullUrl pointing at the
// resource under baseURL. The assembled bundle is not validated.
func NewBundle(resources []ResourceTree, bundleType, baseURL string) ResourceTree {
	entries := make([]interface{}, 0, len(resources))
	for _, r := range resources {
		entries = append(entries, map[string]interface{}{
			"fullUrl":  entryFullURL(r, baseURL),
			"resource": r,
		})
	}
	return ResourceTree{
		"resourceType": "Bundle",
		"type":         bundleType,
		"total":        len(resources),
		"entry":        entries,
	}
}

// NewBatchBundle assembles a batch bundle where each entry additionally
// carries a PUT request against the resource's canonical URL, suitable
// for replaying the export into another FHIR server.
func NewBatchBundle(resources []ResourceTree, baseURL string) ResourceTree {
	entries := make([]interface{}, 0, len(resources))
	for _, r := range resources {
		rt, _ := r["resourceType"].(string)
		id, _ := r["id"].(string)
		entries = append(entries, map[string]interface{}{
			"fullUrl":  entryFullURL(r, baseURL),
			"resource": r,
			"request": map[string]interface{}{
				"method": "PUT",
				"url":    FormatReference(rt, id),
			},
		})
	}
	return ResourceTree{
		"resourceType": "Bundle",
		"type":         "batch",
		"total":        len(resources),
		"entry":        entries,
	}
}

func entryFullURL(r ResourceTree, baseURL string) string {
	rt, _ := r["resourceType"].(string)
	id, _ := r["id"].(string)
	return fmt.Sprintf("%s/%s/%s", baseURL, rt, id)
}
