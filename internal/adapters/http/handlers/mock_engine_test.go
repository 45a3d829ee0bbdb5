package handlers_test

import (
	"context"

	"perpus-loan/internal/adapters/persistence/models"
	"perpus-loan/internal/core/domain"
	"perpus-loan/internal/core/services"
)

type MockLoanEngine struct {
	MockView    *models.LoanView
	MockViews   []*models.LoanView
	MockPage    *services.ListLoansOutput
	MockReturn  *domain.ReturnResult
	MockHistory []*models.LoanHistory
	MockStats   *domain.LoanStats
	MockSweep   *services.SweepResult
	MockError   error

	LastUserID  uint
	LastLoanID  uint
	LastReason  string
	LastStatus  domain.LoanStatus
	LastCaller  domain.Caller
	LastRequest *services.RequestLoanInput
	LastList    services.ListLoansInput
}

func (m *MockLoanEngine) RequestLoan(ctx context.Context, borrowerID uint, input *services.RequestLoanInput) (*models.LoanView, error) {
	m.LastUserID, m.LastRequest = borrowerID, input
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockView, nil
}

func (m *MockLoanEngine) ApproveLoan(ctx context.Context, loanID, adminID uint) (*models.LoanView, error) {
	m.LastLoanID, m.LastUserID = loanID, adminID
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockView, nil
}

func (m *MockLoanEngine) RejectLoan(ctx context.Context, loanID, adminID uint, reason string) (*models.LoanView, error) {
	m.LastLoanID, m.LastUserID, m.LastReason = loanID, adminID, reason
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockView, nil
}

func (m *MockLoanEngine) ReturnLoan(ctx context.Context, loanID, borrowerID uint) (*domain.ReturnResult, error) {
	m.LastLoanID, m.LastUserID = loanID, borrowerID
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockReturn, nil
}

func (m *MockLoanEngine) ExtendLoan(ctx context.Context, loanID, borrowerID uint) (*models.LoanView, error) {
	m.LastLoanID, m.LastUserID = loanID, borrowerID
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockView, nil
}

func (m *MockLoanEngine) GetLoan(ctx context.Context, loanID uint, caller domain.Caller) (*models.LoanView, error) {
	m.LastLoanID, m.LastCaller = loanID, caller
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockView, nil
}

func (m *MockLoanEngine) ListMyLoans(ctx context.Context, borrowerID uint, status domain.LoanStatus) ([]*models.LoanView, error) {
	m.LastUserID, m.LastStatus = borrowerID, status
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockViews, nil
}

func (m *MockLoanEngine) LoanHistory(ctx context.Context, loanID uint, caller domain.Caller) ([]*models.LoanHistory, error) {
	m.LastLoanID, m.LastCaller = loanID, caller
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockHistory, nil
}

func (m *MockLoanEngine) ListAllLoans(ctx context.Context, input services.ListLoansInput) (*services.ListLoansOutput, error) {
	m.LastList = input
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockPage, nil
}

func (m *MockLoanEngine) ListPendingLoans(ctx context.Context) ([]*models.LoanView, error) {
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockViews, nil
}

func (m *MockLoanEngine) LoanStats(ctx context.Context) (*domain.LoanStats, error) {
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockStats, nil
}

func (m *MockLoanEngine) SweepOverdue(ctx context.Context) (*services.SweepResult, error) {
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockSweep, nil
}

type MockAuthenticator struct {
	MockResponse *services.AuthResponse
	MockUser     *models.UserResponse
	MockError    error
}

func (m *MockAuthenticator) Login(ctx context.Context, input *services.LoginInput) (*services.AuthResponse, error) {
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockResponse, nil
}

func (m *MockAuthenticator) Me(ctx context.Context, userID uint) (*models.UserResponse, error) {
	if m.MockError != nil {
		return nil, m.MockError
	}
	return m.MockUser, nil
}
