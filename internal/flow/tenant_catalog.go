// Package flow provides the tenant intake catalog builder.
package flow

import (
	"fmt"
	"strings"

	"github.com/TenantGuard/intake-engine/internal/models"
)

var yesNoChoices = []models.Choice{
	{Label: "Yes", Value: "yes"},
	{Label: "No", Value: "no"},
}

// BuildTenantCatalog derives the tenant questionnaire from the current answer
// store. Sections are layered: an unconditional base sequence, conditional
// sections keyed on gate answers, and a fixed closing sequence that is always
// the last four steps. A gate whose answer has not been collected yet
// contributes no conditional steps; absence means "not yet decided", not a
// default branch.
func BuildTenantCatalog(answers models.Answers) []models.Step {
	var catalog []models.Step

	// Base identity, contact and property questions.
	catalog = append(catalog,
		models.Step{
			ID:     "firstName",
			Prompt: "Hi, I'm here to help with your landlord-tenant issue. What's your first name?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("firstName"),
		},
		models.Step{
			ID:     "lastName",
			Prompt: withName(answers, "Thanks%s. What's your last name?"),
			Kind:   models.InputKindText,
			Apply:  models.SetField("lastName"),
		},
		models.Step{
			ID:     "email",
			Prompt: "What email address should we use to reach you?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("email"),
		},
		models.Step{
			ID:     "phone",
			Prompt: "And a phone number?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("phone"),
		},
		models.Step{
			ID:     "preferredContact",
			Prompt: "How do you prefer to be contacted?",
			Kind:   models.InputKindChoice,
			Choices: []models.Choice{
				{Label: "Email", Value: "email"},
				{Label: "Phone call", Value: "phone"},
				{Label: "Text message", Value: "text"},
			},
			Apply: models.SetField("preferredContact"),
		},
		models.Step{
			ID:     "rentalAddress",
			Prompt: "What's the street address of the rental property?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("rentalAddress"),
		},
		models.Step{
			ID:     "countyState",
			Prompt: "What county and state is the property in? (for example: Cook County, Illinois)",
			Kind:   models.InputKindText,
			Apply:  applyCountyState,
		},
		models.Step{
			ID:     "monthlyRent",
			Prompt: "How much is your monthly rent?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("monthlyRent"),
		},
		models.Step{
			ID:     "landlordName",
			Prompt: "What's your landlord's (or property manager's) name?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("landlordName"),
		},
		models.Step{
			ID:      "governmentAssistance",
			Prompt:  "Do you receive any government rental assistance (such as Section 8)?",
			Kind:    models.InputKindChoice,
			Choices: yesNoChoices,
			Apply:   models.SetField("governmentAssistance"),
		},
	)

	// Notice gate: the yes branch and the warnings fallback are disjoint.
	catalog = append(catalog, models.Step{
		ID:      "noticeReceived",
		Prompt:  withName(answers, "Thanks%s. Has your landlord given you a written eviction notice?"),
		Kind:    models.InputKindChoice,
		Choices: yesNoChoices,
		Apply:   models.SetField("noticeReceived"),
	})
	switch answers["noticeReceived"] {
	case "yes":
		catalog = append(catalog,
			models.Step{
				ID:     "evictionNoticeType",
				Prompt: "What kind of notice was it?",
				Kind:   models.InputKindChoice,
				Choices: []models.Choice{
					{Label: "Pay rent or quit", Value: "pay-or-quit"},
					{Label: "Fix a lease violation or quit", Value: "cure-or-quit"},
					{Label: "Unconditional quit / end of tenancy", Value: "unconditional-quit"},
					{Label: "Something else / not sure", Value: "other"},
				},
				Apply: models.SetField("evictionNoticeType"),
			},
			models.Step{
				ID:           "evictionNoticeDate",
				Prompt:       "What date is on the notice? If you don't have it handy, answer \"unknown\".",
				Kind:         models.InputKindDate,
				AllowUnknown: true,
				Apply:        models.SetField("evictionNoticeDate"),
			},
			models.Step{
				ID:      "rentAcceptedAfterNotice",
				Prompt:  "Has your landlord accepted any rent from you since giving the notice?",
				Kind:    models.InputKindChoice,
				Choices: yesNoChoices,
				Apply:   models.SetField("rentAcceptedAfterNotice"),
			},
		)
		if answers.IsYes("rentAcceptedAfterNotice") {
			catalog = append(catalog, models.Step{
				ID:           "rentAcceptedDate",
				Prompt:       "When did the landlord last accept rent? Answer \"unknown\" if you're not sure.",
				Kind:         models.InputKindDate,
				AllowUnknown: true,
				Apply:        models.SetField("rentAcceptedDate"),
			})
		}
	case "no":
		catalog = append(catalog, models.Step{
			ID:     "warningDetails",
			Prompt: "Has the landlord given you any verbal warnings or threats about your tenancy? Describe anything that's been said.",
			Kind:   models.InputKindText,
			Apply:  models.SetField("warningDetails"),
		})
	}

	// Lease gate: written, verbal, or no agreement.
	catalog = append(catalog, models.Step{
		ID:     "leaseType",
		Prompt: "What kind of rental agreement do you have?",
		Kind:   models.InputKindChoice,
		Choices: []models.Choice{
			{Label: "Written lease", Value: "written"},
			{Label: "Verbal agreement", Value: "verbal"},
			{Label: "No agreement / not sure", Value: "none"},
		},
		Apply: models.SetField("leaseType"),
	})
	switch answers["leaseType"] {
	case "written":
		catalog = append(catalog,
			models.Step{
				ID:           "leaseStartDate",
				Prompt:       "When did the lease start? Answer \"unknown\" if you can't recall.",
				Kind:         models.InputKindDate,
				AllowUnknown: true,
				Apply:        models.SetField("leaseStartDate"),
			},
			models.Step{
				ID:           "leaseEndDate",
				Prompt:       "And when does (or did) the lease end? Answer \"unknown\" if you can't recall.",
				Kind:         models.InputKindDate,
				AllowUnknown: true,
				Apply:        models.SetField("leaseEndDate"),
			},
		)
	case "verbal":
		catalog = append(catalog, models.Step{
			ID:           "moveInDate",
			Prompt:       "When did you move in? Answer \"unknown\" if you can't recall.",
			Kind:         models.InputKindDate,
			AllowUnknown: true,
			Apply:        models.SetField("moveInDate"),
		})
	}

	// Issue gate: one specialized fact-gathering section, or none for issue
	// types with no specialized branch.
	catalog = append(catalog, models.Step{
		ID:     "issueType",
		Prompt: "Which of these best describes your main issue?",
		Kind:   models.InputKindChoice,
		Choices: []models.Choice{
			{Label: "Eviction", Value: "eviction"},
			{Label: "Unsafe or unhealthy conditions", Value: "habitability"},
			{Label: "Landlord retaliation", Value: "retaliation"},
			{Label: "Discrimination", Value: "discrimination"},
			{Label: "Security deposit", Value: "deposit"},
			{Label: "Something else", Value: "other"},
		},
		Apply: models.SetField("issueType"),
	})
	switch answers["issueType"] {
	case "habitability":
		catalog = append(catalog,
			models.Step{
				ID:     "habitabilityConditions",
				Prompt: "Describe the conditions in the unit (mold, pests, no heat or water, broken locks, and so on).",
				Kind:   models.InputKindText,
				Apply:  models.SetField("habitabilityConditions"),
			},
			models.Step{
				ID:      "repairsRequested",
				Prompt:  "Have you asked the landlord to fix these problems?",
				Kind:    models.InputKindChoice,
				Choices: yesNoChoices,
				Apply:   models.SetField("repairsRequested"),
			},
		)
	case "retaliation":
		catalog = append(catalog,
			models.Step{
				ID:     "retaliationProtectedAction",
				Prompt: "What did you do shortly before the landlord's action (report a code violation, request repairs, join a tenant union, etc.)?",
				Kind:   models.InputKindText,
				Apply:  models.SetField("retaliationProtectedAction"),
			},
			models.Step{
				ID:     "retaliationDetails",
				Prompt: "What has the landlord done since then?",
				Kind:   models.InputKindText,
				Apply:  models.SetField("retaliationDetails"),
			},
		)
	case "discrimination":
		catalog = append(catalog,
			models.Step{
				ID:     "discriminationBasis",
				Prompt: "What do you believe the discrimination is based on?",
				Kind:   models.InputKindChoice,
				Choices: []models.Choice{
					{Label: "Race or color", Value: "race"},
					{Label: "National origin", Value: "national-origin"},
					{Label: "Religion", Value: "religion"},
					{Label: "Disability", Value: "disability"},
					{Label: "Family status", Value: "family-status"},
					{Label: "Sex or gender", Value: "gender"},
					{Label: "Other", Value: "other"},
				},
				Apply: models.SetField("discriminationBasis"),
			},
			models.Step{
				ID:     "discriminationDetails",
				Prompt: "Tell me what happened.",
				Kind:   models.InputKindText,
				Apply:  models.SetField("discriminationDetails"),
			},
		)
	}

	// Closing sequence, always the last four steps regardless of which
	// conditional sections fired.
	catalog = append(catalog, closingSteps(answers)...)

	return catalog
}

// closingSteps returns the fixed closing sequence shared by every tenant
// catalog build.
func closingSteps(answers models.Answers) []models.Step {
	return []models.Step{
		{
			ID:     "urgencyLevel",
			Prompt: "How urgent is your situation?",
			Kind:   models.InputKindChoice,
			Choices: []models.Choice{
				{Label: "Emergency - I could lose housing within days", Value: "emergency"},
				{Label: "Urgent - within the next few weeks", Value: "soon"},
				{Label: "Planning ahead", Value: "planning"},
			},
			Apply: models.SetField("urgencyLevel"),
		},
		{
			ID:     "caseSummary",
			Prompt: withName(answers, "Almost done%s. In your own words, summarize what's going on."),
			Kind:   models.InputKindText,
			Apply:  models.SetField("caseSummary"),
		},
		{
			ID:     "desiredOutcome",
			Prompt: "What outcome are you hoping for?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("desiredOutcome"),
		},
		{
			ID:     "evidenceList",
			Prompt: "Finally, list any evidence you have (photos, texts, letters, receipts, witnesses).",
			Kind:   models.InputKindText,
			Apply:  models.SetField("evidenceList"),
		},
	}
}

// withName parameterizes a prompt with the collected first name. The format
// string receives either ", <name>" or "" so prompts read naturally before the
// name has been collected.
func withName(answers models.Answers, format string) string {
	name := answers["firstName"]
	if name == "" {
		return fmt.Sprintf(format, "")
	}
	return fmt.Sprintf(format, ", "+name)
}

// applyCountyState splits a combined "county, state" answer into two fields.
// Without a comma the whole answer is treated as the county.
func applyCountyState(raw string, answers models.Answers) {
	county, state, found := strings.Cut(raw, ",")
	answers["county"] = strings.TrimSpace(county)
	if found {
		answers["state"] = strings.TrimSpace(state)
	}
}
