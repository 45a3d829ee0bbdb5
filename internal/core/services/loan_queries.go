package services

import (
	"context"
	"errors"
	"time"

	"perpus-loan/internal/adapters/persistence/models"
	"perpus-loan/internal/adapters/persistence/repositories"
	"perpus-loan/internal/core/domain"
	"perpus-loan/internal/pkg/pagination"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ============================================================
// Borrower views
// ============================================================

// GetLoan returns one loan. Borrowers only see their own loans.
func (s *LoanService) GetLoan(ctx context.Context, loanID uint, caller domain.Caller) (*models.LoanView, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.GetLoan", trace.WithAttributes(
		attribute.Int64("loan.id", int64(loanID)),
	))
	defer span.End()

	loan, err := s.loanFor(ctx, loanID, caller)
	if err != nil {
		return nil, s.fail(span, "get loan", err)
	}
	return loan.ToView(s.today(), s.policy.FinePerDay, caller.IsAdmin()), nil
}

// ListMyLoans lists a borrower's loans newest first. A non-empty status
// filters on the derived status, so terlambat selects overdue active loans.
func (s *LoanService) ListMyLoans(ctx context.Context, borrowerID uint, status domain.LoanStatus) ([]*models.LoanView, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.ListMyLoans", trace.WithAttributes(
		attribute.Int64("loan.user_id", int64(borrowerID)),
	))
	defer span.End()

	if status != "" && !status.IsValid() {
		return nil, s.fail(span, "list my loans", domain.InvalidArgument("unknown loan status "+string(status)))
	}

	loans, err := s.loanRepo.List(ctx, repositories.LoanFilter{
		UserID:   &borrowerID,
		Statuses: storedStatusesFor(status),
	})
	if err != nil {
		return nil, s.fail(span, "list my loans", err)
	}

	return s.views(loans, status, false), nil
}

// LoanHistory returns the recorded transitions of a loan, newest first
func (s *LoanService) LoanHistory(ctx context.Context, loanID uint, caller domain.Caller) ([]*models.LoanHistory, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.LoanHistory", trace.WithAttributes(
		attribute.Int64("loan.id", int64(loanID)),
	))
	defer span.End()

	if _, err := s.loanFor(ctx, loanID, caller); err != nil {
		return nil, s.fail(span, "loan history", err)
	}

	entries, err := s.historyRepo.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, s.fail(span, "loan history", err)
	}
	return entries, nil
}

// ============================================================
// Admin views
// ============================================================

// ListLoansInput filters the admin listing
type ListLoansInput struct {
	Status domain.LoanStatus
	Page   int
	Limit  int
}

// ListLoansOutput is one page of the admin listing
type ListLoansOutput struct {
	Data []*models.LoanView `json:"data"`
	Meta *pagination.Meta   `json:"meta"`
}

// ListAllLoans lists every loan ordered pending, late, active, returned,
// rejected and newest first inside each group.
func (s *LoanService) ListAllLoans(ctx context.Context, input ListLoansInput) (*ListLoansOutput, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.ListAllLoans", trace.WithAttributes(
		attribute.String("loan.status_filter", string(input.Status)),
	))
	defer span.End()

	if input.Status != "" && !input.Status.IsValid() {
		return nil, s.fail(span, "list loans", domain.InvalidArgument("unknown loan status "+string(input.Status)))
	}

	loans, err := s.loanRepo.List(ctx, repositories.LoanFilter{Statuses: storedStatusesFor(input.Status)})
	if err != nil {
		return nil, s.fail(span, "list loans", err)
	}

	views := s.views(loans, input.Status, true)
	domain.SortForAdmin(views)

	params := pagination.NewParams(input.Page, input.Limit)
	return &ListLoansOutput{
		Data: pagination.Slice(views, params),
		Meta: pagination.GetMeta(params, int64(len(views))),
	}, nil
}

// ListPendingLoans lists undecided requests oldest first with how long each has waited
func (s *LoanService) ListPendingLoans(ctx context.Context) ([]*models.LoanView, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.ListPendingLoans")
	defer span.End()

	loans, err := s.loanRepo.ListPending(ctx)
	if err != nil {
		return nil, s.fail(span, "list pending loans", err)
	}

	today := s.today()
	views := make([]*models.LoanView, 0, len(loans))
	for _, loan := range loans {
		v := loan.ToView(today, s.policy.FinePerDay, true)
		waited := domain.DaysBetween(domain.DateOf(loan.CreatedAt, s.policy.Location), today)
		if waited < 0 {
			waited = 0
		}
		v.WaitingDays = &waited
		views = append(views, v)
	}
	return views, nil
}

// LoanStats summarizes the loan table as of today
func (s *LoanService) LoanStats(ctx context.Context) (*domain.LoanStats, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.LoanStats")
	defer span.End()

	open, err := s.loanRepo.List(ctx, repositories.LoanFilter{Statuses: domain.OpenStatuses})
	if err != nil {
		return nil, s.fail(span, "loan stats", err)
	}

	stats := &domain.LoanStats{
		ByStatus: map[domain.LoanStatus]int64{
			domain.StatusPending:  0,
			domain.StatusBorrowed: 0,
			domain.StatusLate:     0,
			domain.StatusReturned: 0,
			domain.StatusRejected: 0,
		},
		GeneratedAt: s.now(),
	}

	today := s.today()
	for _, loan := range open {
		acc := loan.Accrual(today, s.policy.FinePerDay)
		stats.ByStatus[acc.Status]++
		stats.OutstandingFines += acc.Fine
	}

	for _, status := range []domain.LoanStatus{domain.StatusPending, domain.StatusReturned, domain.StatusRejected} {
		n, err := s.loanRepo.CountByStatus(ctx, status)
		if err != nil {
			return nil, s.fail(span, "loan stats", err)
		}
		stats.ByStatus[status] = n
	}

	if stats.CollectedFines, err = s.loanRepo.SumFines(ctx, domain.StatusReturned); err != nil {
		return nil, s.fail(span, "loan stats", err)
	}
	if stats.BooksOnLoan, err = s.loanRepo.CountDistinctBooks(ctx, domain.OpenStatuses); err != nil {
		return nil, s.fail(span, "loan stats", err)
	}
	if stats.AvailableCopies, err = s.bookRepo.SumAvailable(ctx); err != nil {
		return nil, s.fail(span, "loan stats", err)
	}

	return stats, nil
}

// ============================================================
// Overdue sweep
// ============================================================

// SweepResult reports one sweep run
type SweepResult struct {
	Overdue int       `json:"terlambat"`
	Updated int       `json:"diperbarui"`
	RanAt   time.Time `json:"ran_at"`
}

// SweepOverdue refreshes the stored lateness snapshot of every overdue open
// loan and publishes a reminder for each. Stored statuses are left alone so
// returns keep working; running it twice on the same day changes nothing.
func (s *LoanService) SweepOverdue(ctx context.Context) (*SweepResult, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.SweepOverdue")
	defer span.End()

	loans, err := s.loanRepo.List(ctx, repositories.LoanFilter{Statuses: domain.OpenStatuses})
	if err != nil {
		return nil, s.fail(span, "sweep overdue", err)
	}

	today := s.today()
	result := &SweepResult{RanAt: s.now()}

	for _, loan := range loans {
		acc := loan.Accrual(today, s.policy.FinePerDay)
		if acc.Status != domain.StatusLate {
			continue
		}
		result.Overdue++

		if loan.OverdueDays != acc.OverdueDays || loan.Fine != acc.Fine {
			ok, err := s.loanRepo.Transition(ctx, loan.ID, domain.OpenStatuses, map[string]interface{}{
				"hari_terlambat": acc.OverdueDays,
				"denda":          acc.Fine,
			})
			if err != nil {
				return nil, s.fail(span, "sweep overdue", err)
			}
			if ok {
				result.Updated++
			}
		}

		loan.OverdueDays = acc.OverdueDays
		loan.Fine = acc.Fine
		s.notifier.Publish(ctx, newLoanEvent(EventLoanOverdue, loan, result.RanAt))
	}

	span.SetAttributes(
		attribute.Int("loan.overdue", result.Overdue),
		attribute.Int("loan.updated", result.Updated),
	)
	s.log.Info("overdue sweep finished",
		zap.Int("overdue", result.Overdue),
		zap.Int("updated", result.Updated),
	)

	return result, nil
}

// ============================================================
// Helpers
// ============================================================

// loanFor loads a loan the caller is allowed to read
func (s *LoanService) loanFor(ctx context.Context, loanID uint, caller domain.Caller) (*models.Loan, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && loan.UserID != caller.UserID {
		return nil, domain.ErrNotLoanOwner
	}
	return loan, nil
}

// views derives every loan for today and keeps those matching status
func (s *LoanService) views(loans []*models.Loan, status domain.LoanStatus, withBorrower bool) []*models.LoanView {
	today := s.today()
	out := make([]*models.LoanView, 0, len(loans))
	for _, loan := range loans {
		v := loan.ToView(today, s.policy.FinePerDay, withBorrower)
		if status != "" && v.Status != status {
			continue
		}
		out = append(out, v)
	}
	return out
}

// storedStatusesFor narrows the query for a derived status filter
func storedStatusesFor(status domain.LoanStatus) []domain.LoanStatus {
	switch status {
	case "":
		return nil
	case domain.StatusBorrowed, domain.StatusLate:
		return domain.OpenStatuses
	default:
		return []domain.LoanStatus{status}
	}
}

// isNotFound reports whether err means the row does not exist
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
