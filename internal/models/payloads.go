// Package models defines the payloads exchanged with the external case-management API.
package models

import "time"

// CaseRequest is the case-creation payload for the tenant flow. Field names match
// the external case-management API schema. Date fields may carry the literal
// "unknown" sentinel, which is propagated uninterpreted.
type CaseRequest struct {
	FirstName               string `json:"first_name"`
	LastName                string `json:"last_name"`
	Email                   string `json:"email"`
	Phone                   string `json:"phone"`
	PreferredContact        string `json:"preferred_contact"`
	RentalAddress           string `json:"rental_address"`
	County                  string `json:"county,omitempty"`
	State                   string `json:"state,omitempty"`
	MonthlyRent             string `json:"monthly_rent"`
	LandlordName            string `json:"landlord_name"`
	IssueType               string `json:"issue_type"`
	IssueDescription        string `json:"issue_description,omitempty"`
	UrgencyLevel            string `json:"urgency_level"`
	EvictionNoticeReceived  bool   `json:"eviction_notice_received"`
	EvictionNoticeType      string `json:"eviction_notice_type,omitempty"`
	EvictionNoticeDate      string `json:"eviction_notice_date,omitempty"`
	RentAcceptedAfterNotice bool   `json:"rent_accepted_after_notice"`
	RentAcceptedDate        string `json:"rent_accepted_date,omitempty"`
	WarningDetails          string `json:"warning_details,omitempty"`
	LeaseType               string `json:"lease_type"`
	LeaseStartDate          string `json:"lease_start_date,omitempty"`
	LeaseEndDate            string `json:"lease_end_date,omitempty"`
	MoveInDate              string `json:"move_in_date,omitempty"`
	GovernmentAssistance    bool   `json:"government_assistance"`
	CaseSummary             string `json:"case_summary"`
	DesiredOutcome          string `json:"desired_outcome"`
	EvidenceList            string `json:"evidence_list"`
}

// AttorneyApplicationRequest is the application-creation payload for the attorney flow.
type AttorneyApplicationRequest struct {
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	FirmName           string `json:"firm_name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	BarNumber          string `json:"bar_number"`
	BarState           string `json:"bar_state"`
	YearsLicensed      string `json:"years_licensed"`
	FeeStructure       string `json:"fee_structure"`
	ContingencyPercent string `json:"contingency_percent,omitempty"`
	HourlyRate         string `json:"hourly_rate,omitempty"`
	FlatFeeRange       string `json:"flat_fee_range,omitempty"`
	AcceptsLegalAid    bool   `json:"accepts_legal_aid"`
	LegalAidPrograms   string `json:"legal_aid_programs,omitempty"`
	WeeklyCapacity     string `json:"weekly_capacity"`
	PracticeFocus      string `json:"practice_focus"`
	ReferralConsent    bool   `json:"referral_consent"`
	MarketingConsent   bool   `json:"marketing_consent"`
}

// ConversationMessage is one transcript entry in the conversation-storage payload.
type ConversationMessage struct {
	ID           string `json:"id"`
	Role         string `json:"role"`
	TimestampUTC string `json:"timestamp_utc"`
	Content      string `json:"content"`
}

// ConversationRequest is the conversation-storage payload, posted once per
// submission against the identifier returned by case creation.
type ConversationRequest struct {
	ConversationID string                `json:"conversation_id"`
	Platform       string                `json:"platform"`
	CreatedUTC     string                `json:"created_utc"`
	Messages       []ConversationMessage `json:"messages"`
}

// CaseCreateResponse is the case-creation endpoint response.
type CaseCreateResponse struct {
	Success bool `json:"success"`
	Case    struct {
		CaseNumber string `json:"case_number"`
	} `json:"case"`
	Error string `json:"error,omitempty"`
}

// ApplicationCreateResponse is the attorney-application endpoint response.
type ApplicationCreateResponse struct {
	Success  bool `json:"success"`
	Attorney struct {
		ApplicationID string `json:"application_id"`
	} `json:"attorney"`
	Error string `json:"error,omitempty"`
}

// ConversationStoreResponse is the transcript-storage endpoint response.
type ConversationStoreResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ToCaseRequest maps the final tenant answer store into the case-creation payload.
// It is a read-only snapshot: the answer store is not modified and the payload is
// never mutated after creation. Answers sitting on branches the final gate values
// turned off are left out of the payload.
func ToCaseRequest(answers Answers) CaseRequest {
	req := CaseRequest{
		FirstName:            answers["firstName"],
		LastName:             answers["lastName"],
		Email:                answers["email"],
		Phone:                answers["phone"],
		PreferredContact:     answers["preferredContact"],
		RentalAddress:        answers["rentalAddress"],
		County:               answers["county"],
		State:                answers["state"],
		MonthlyRent:          answers["monthlyRent"],
		LandlordName:         answers["landlordName"],
		IssueType:            answers["issueType"],
		UrgencyLevel:         answers["urgencyLevel"],
		LeaseType:            answers["leaseType"],
		GovernmentAssistance: answers.IsYes("governmentAssistance"),
		CaseSummary:          answers["caseSummary"],
		DesiredOutcome:       answers["desiredOutcome"],
		EvidenceList:         answers["evidenceList"],
	}

	if answers.IsYes("noticeReceived") {
		req.EvictionNoticeReceived = true
		req.EvictionNoticeType = answers["evictionNoticeType"]
		req.EvictionNoticeDate = answers["evictionNoticeDate"]
		if answers.IsYes("rentAcceptedAfterNotice") {
			req.RentAcceptedAfterNotice = true
			req.RentAcceptedDate = answers["rentAcceptedDate"]
		}
	} else {
		req.WarningDetails = answers["warningDetails"]
	}

	switch answers["leaseType"] {
	case "written":
		req.LeaseStartDate = answers["leaseStartDate"]
		req.LeaseEndDate = answers["leaseEndDate"]
	case "verbal":
		req.MoveInDate = answers["moveInDate"]
	}

	switch answers["issueType"] {
	case "habitability":
		req.IssueDescription = answers["habitabilityConditions"]
	case "retaliation":
		req.IssueDescription = answers["retaliationDetails"]
	case "discrimination":
		req.IssueDescription = answers["discriminationDetails"]
	}

	return req
}

// ToAttorneyApplicationRequest maps the final attorney answer store into the
// application-creation payload.
func ToAttorneyApplicationRequest(answers Answers) AttorneyApplicationRequest {
	req := AttorneyApplicationRequest{
		FirstName:        answers["firstName"],
		LastName:         answers["lastName"],
		FirmName:         answers["firmName"],
		Email:            answers["email"],
		Phone:            answers["phone"],
		BarNumber:        answers["barNumber"],
		BarState:         answers["barState"],
		YearsLicensed:    answers["yearsLicensed"],
		FeeStructure:     answers["feeStructure"],
		AcceptsLegalAid:  answers.IsYes("acceptsLegalAid"),
		WeeklyCapacity:   answers["weeklyCapacity"],
		PracticeFocus:    answers["practiceFocus"],
		ReferralConsent:  answers.IsYes("referralConsent"),
		MarketingConsent: answers.IsYes("marketingConsent"),
	}

	switch answers["feeStructure"] {
	case "contingency":
		req.ContingencyPercent = answers["contingencyPercent"]
	case "hourly":
		req.HourlyRate = answers["hourlyRate"]
	case "flat":
		req.FlatFeeRange = answers["flatFeeRange"]
	}

	if req.AcceptsLegalAid {
		req.LegalAidPrograms = answers["legalAidPrograms"]
	}

	return req
}

// ToConversationRequest wraps a transcript into the conversation-storage payload.
func ToConversationRequest(conversationID, platform string, createdAt time.Time, transcript []Message) ConversationRequest {
	messages := make([]ConversationMessage, 0, len(transcript))
	for _, m := range transcript {
		messages = append(messages, ConversationMessage{
			ID:           m.ID,
			Role:         string(m.Role),
			TimestampUTC: m.Timestamp.UTC().Format(time.RFC3339),
			Content:      m.Content,
		})
	}
	return ConversationRequest{
		ConversationID: conversationID,
		Platform:       platform,
		CreatedUTC:     createdAt.UTC().Format(time.RFC3339),
		Messages:       messages,
	}
}
