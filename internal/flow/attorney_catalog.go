// Package flow provides the attorney application catalog builder.
package flow

import "github.com/TenantGuard/intake-engine/internal/models"

// BuildAttorneyCatalog derives the attorney application questionnaire from the
// current answer store. Same layering rules as the tenant catalog: base
// identity and credential questions, gated fee and legal-aid sections, and a
// fixed closing sequence.
func BuildAttorneyCatalog(answers models.Answers) []models.Step {
	var catalog []models.Step

	catalog = append(catalog,
		models.Step{
			ID:     "firstName",
			Prompt: "Welcome! Let's get your attorney application started. What's your first name?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("firstName"),
		},
		models.Step{
			ID:     "lastName",
			Prompt: withName(answers, "Thanks%s. And your last name?"),
			Kind:   models.InputKindText,
			Apply:  models.SetField("lastName"),
		},
		models.Step{
			ID:     "firmName",
			Prompt: "What firm are you with? (Answer \"solo\" if you practice independently.)",
			Kind:   models.InputKindText,
			Apply:  models.SetField("firmName"),
		},
		models.Step{
			ID:     "email",
			Prompt: "What's the best email address for your practice?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("email"),
		},
		models.Step{
			ID:     "phone",
			Prompt: "And a direct phone number?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("phone"),
		},
		models.Step{
			ID:     "barNumber",
			Prompt: "What's your bar number?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("barNumber"),
		},
		models.Step{
			ID:     "barState",
			Prompt: "Which state issued your bar license?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("barState"),
		},
		models.Step{
			ID:     "yearsLicensed",
			Prompt: "How many years have you been licensed?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("yearsLicensed"),
		},
	)

	// Fee gate: each structure gets its own follow-up, never more than one.
	catalog = append(catalog, models.Step{
		ID:     "feeStructure",
		Prompt: "How do you typically bill tenant-side cases?",
		Kind:   models.InputKindChoice,
		Choices: []models.Choice{
			{Label: "Contingency", Value: "contingency"},
			{Label: "Hourly", Value: "hourly"},
			{Label: "Flat fee", Value: "flat"},
		},
		Apply: models.SetField("feeStructure"),
	})
	switch answers["feeStructure"] {
	case "contingency":
		catalog = append(catalog, models.Step{
			ID:     "contingencyPercent",
			Prompt: "What contingency percentage do you usually charge?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("contingencyPercent"),
		})
	case "hourly":
		catalog = append(catalog, models.Step{
			ID:     "hourlyRate",
			Prompt: "What's your standard hourly rate?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("hourlyRate"),
		})
	case "flat":
		catalog = append(catalog, models.Step{
			ID:     "flatFeeRange",
			Prompt: "What flat-fee range do you offer for a typical matter?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("flatFeeRange"),
		})
	}

	// Legal-aid gate: follow-up only on an affirmative answer.
	catalog = append(catalog, models.Step{
		ID:      "acceptsLegalAid",
		Prompt:  "Do you accept legal-aid or pro bono referrals?",
		Kind:    models.InputKindChoice,
		Choices: yesNoChoices,
		Apply:   models.SetField("acceptsLegalAid"),
	})
	if answers.IsYes("acceptsLegalAid") {
		catalog = append(catalog, models.Step{
			ID:     "legalAidPrograms",
			Prompt: "Which legal-aid programs or organizations do you work with?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("legalAidPrograms"),
		})
	}

	// Fixed closing sequence.
	catalog = append(catalog,
		models.Step{
			ID:     "weeklyCapacity",
			Prompt: "Roughly how many new matters can you take on per week?",
			Kind:   models.InputKindText,
			Apply:  models.SetField("weeklyCapacity"),
		},
		models.Step{
			ID:     "practiceFocus",
			Prompt: "Briefly describe your landlord-tenant practice focus.",
			Kind:   models.InputKindText,
			Apply:  models.SetField("practiceFocus"),
		},
		models.Step{
			ID:      "referralConsent",
			Prompt:  "Do you consent to receiving client referrals through the platform?",
			Kind:    models.InputKindChoice,
			Choices: yesNoChoices,
			Apply:   models.SetField("referralConsent"),
		},
		models.Step{
			ID:      "marketingConsent",
			Prompt:  "May we contact you about platform updates and marketing?",
			Kind:    models.InputKindChoice,
			Choices: yesNoChoices,
			Apply:   models.SetField("marketingConsent"),
		},
	)

	return catalog
}
