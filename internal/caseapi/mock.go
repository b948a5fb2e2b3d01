package caseapi

import (
	"context"

	"github.com/TenantGuard/intake-engine/internal/models"
)

// MockClient records calls for tests. Configure the response fields before
// use; zero values produce successful creations with empty identifiers.
type MockClient struct {
	CaseRequests         []models.CaseRequest
	ApplicationRequests  []models.AttorneyApplicationRequest
	ConversationRequests []StoredConversation

	CaseResponse        *models.CaseCreateResponse
	CaseErr             error
	ApplicationResponse *models.ApplicationCreateResponse
	ApplicationErr      error
	ConversationErr     error
}

// StoredConversation captures one StoreConversation call.
type StoredConversation struct {
	Flow        models.FlowType
	ReferenceID string
	Request     models.ConversationRequest
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) CreateCase(ctx context.Context, req models.CaseRequest) (*models.CaseCreateResponse, error) {
	m.CaseRequests = append(m.CaseRequests, req)
	if m.CaseErr != nil {
		return nil, m.CaseErr
	}
	if m.CaseResponse != nil {
		return m.CaseResponse, nil
	}
	return &models.CaseCreateResponse{Success: true}, nil
}

func (m *MockClient) CreateAttorneyApplication(ctx context.Context, req models.AttorneyApplicationRequest) (*models.ApplicationCreateResponse, error) {
	m.ApplicationRequests = append(m.ApplicationRequests, req)
	if m.ApplicationErr != nil {
		return nil, m.ApplicationErr
	}
	if m.ApplicationResponse != nil {
		return m.ApplicationResponse, nil
	}
	return &models.ApplicationCreateResponse{Success: true}, nil
}

func (m *MockClient) StoreConversation(ctx context.Context, flow models.FlowType, referenceID string, req models.ConversationRequest) error {
	m.ConversationRequests = append(m.ConversationRequests, StoredConversation{
		Flow:        flow,
		ReferenceID: referenceID,
		Request:     req,
	})
	return m.ConversationErr
}
