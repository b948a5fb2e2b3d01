package flow

import (
	"reflect"
	"testing"

	"github.com/TenantGuard/intake-engine/internal/models"
)

func TestBuildAttorneyCatalogFeeBranches(t *testing.T) {
	tests := []struct {
		fee     string
		expect  string
		exclude []string
	}{
		{"contingency", "contingencyPercent", []string{"hourlyRate", "flatFeeRange"}},
		{"hourly", "hourlyRate", []string{"contingencyPercent", "flatFeeRange"}},
		{"flat", "flatFeeRange", []string{"contingencyPercent", "hourlyRate"}},
	}

	for _, tt := range tests {
		catalog := BuildAttorneyCatalog(models.Answers{"feeStructure": tt.fee})
		if !containsID(catalog, tt.expect) {
			t.Errorf("feeStructure=%s catalog missing %s", tt.fee, tt.expect)
		}
		for _, id := range tt.exclude {
			if containsID(catalog, id) {
				t.Errorf("feeStructure=%s catalog should not contain %s", tt.fee, id)
			}
		}
	}

	unanswered := BuildAttorneyCatalog(models.Answers{})
	for _, id := range []string{"contingencyPercent", "hourlyRate", "flatFeeRange"} {
		if containsID(unanswered, id) {
			t.Errorf("catalog with no fee answer should not contain %s", id)
		}
	}
}

func TestBuildAttorneyCatalogLegalAidGate(t *testing.T) {
	withAid := BuildAttorneyCatalog(models.Answers{"acceptsLegalAid": "yes"})
	if !containsID(withAid, "legalAidPrograms") {
		t.Error("acceptsLegalAid=yes catalog missing legalAidPrograms")
	}

	withoutAid := BuildAttorneyCatalog(models.Answers{"acceptsLegalAid": "no"})
	if containsID(withoutAid, "legalAidPrograms") {
		t.Error("acceptsLegalAid=no catalog should not contain legalAidPrograms")
	}
}

func TestBuildAttorneyCatalogClosingStepsAlwaysLast(t *testing.T) {
	closing := []string{"weeklyCapacity", "practiceFocus", "referralConsent", "marketingConsent"}
	variants := []models.Answers{
		{},
		{"feeStructure": "hourly", "acceptsLegalAid": "yes"},
		{"feeStructure": "flat", "acceptsLegalAid": "no"},
	}

	for _, answers := range variants {
		catalog := BuildAttorneyCatalog(answers)
		tail := catalogIDs(catalog[len(catalog)-len(closing):])
		if !reflect.DeepEqual(tail, closing) {
			t.Errorf("closing steps not last for answers %v: got %v", answers, tail)
		}
	}
}
