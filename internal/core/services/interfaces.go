package services

import (
	"context"

	"perpus-loan/internal/adapters/persistence/models"
	"perpus-loan/internal/core/domain"
)

// LoanEngine is what the HTTP layer needs from the loan service
type LoanEngine interface {
	RequestLoan(ctx context.Context, borrowerID uint, input *RequestLoanInput) (*models.LoanView, error)
	ApproveLoan(ctx context.Context, loanID, adminID uint) (*models.LoanView, error)
	RejectLoan(ctx context.Context, loanID, adminID uint, reason string) (*models.LoanView, error)
	ReturnLoan(ctx context.Context, loanID, borrowerID uint) (*domain.ReturnResult, error)
	ExtendLoan(ctx context.Context, loanID, borrowerID uint) (*models.LoanView, error)

	GetLoan(ctx context.Context, loanID uint, caller domain.Caller) (*models.LoanView, error)
	ListMyLoans(ctx context.Context, borrowerID uint, status domain.LoanStatus) ([]*models.LoanView, error)
	LoanHistory(ctx context.Context, loanID uint, caller domain.Caller) ([]*models.LoanHistory, error)
	ListAllLoans(ctx context.Context, input ListLoansInput) (*ListLoansOutput, error)
	ListPendingLoans(ctx context.Context) ([]*models.LoanView, error)
	LoanStats(ctx context.Context) (*domain.LoanStats, error)
	SweepOverdue(ctx context.Context) (*SweepResult, error)
}

// Authenticator is what the HTTP layer needs from the auth service
type Authenticator interface {
	Login(ctx context.Context, input *LoginInput) (*AuthResponse, error)
	Me(ctx context.Context, userID uint) (*models.UserResponse, error)
}

var (
	_ LoanEngine    = (*LoanService)(nil)
	_ Authenticator = (*AuthService)(nil)
	_ Notifier      = (*NotificationService)(nil)
)
