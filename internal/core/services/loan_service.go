package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"perpus-loan/internal/adapters/persistence/models"
	"perpus-loan/internal/adapters/persistence/repositories"
	"perpus-loan/internal/config"
	"perpus-loan/internal/core/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	instrumentationName = "perpus-loan/services"
	maxInsertAttempts   = 3
)

// LoanService is the loan lifecycle engine: request, approve, reject,
// return and extend, plus the read models built on the same lateness rules.
type LoanService struct {
	db          *gorm.DB
	loanRepo    repositories.LoanRepository
	bookRepo    repositories.BookRepository
	historyRepo repositories.HistoryRepository
	notifier    Notifier
	receipts    *ReceiptGenerator
	policy      config.LoanConfig
	now         func() time.Time
	log         *zap.Logger

	tracer      trace.Tracer
	transitions metric.Int64Counter
	finesIssued metric.Int64Counter
}

// LoanServiceOption customizes a LoanService
type LoanServiceOption func(*LoanService)

// WithClock replaces the wall clock, mainly for tests that fast-forward time
func WithClock(now func() time.Time) LoanServiceOption {
	return func(s *LoanService) {
		s.now = now
	}
}

// NewLoanService creates a new loan service
func NewLoanService(
	db *gorm.DB,
	loanRepo repositories.LoanRepository,
	bookRepo repositories.BookRepository,
	historyRepo repositories.HistoryRepository,
	notifier Notifier,
	policy config.LoanConfig,
	log *zap.Logger,
	opts ...LoanServiceOption,
) *LoanService {
	s := &LoanService{
		db:          db,
		loanRepo:    loanRepo,
		bookRepo:    bookRepo,
		historyRepo: historyRepo,
		notifier:    notifier,
		policy:      normalizePolicy(policy),
		now:         time.Now,
		log:         log.Named("loan"),
		tracer:      otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.receipts = NewReceiptGenerator(loanRepo.ExistsByCode, func() time.Time { return s.now() }, s.policy.Location)

	meter := otel.Meter(instrumentationName)
	s.transitions, _ = meter.Int64Counter("loan.transitions",
		metric.WithDescription("Loan lifecycle transitions by action"),
		metric.WithUnit("{transition}"),
	)
	s.finesIssued, _ = meter.Int64Counter("loan.fines.assessed",
		metric.WithDescription("Late fines frozen at return"),
		metric.WithUnit("{rupiah}"),
	)

	return s
}

func normalizePolicy(p config.LoanConfig) config.LoanConfig {
	if p.MaxActive <= 0 {
		p.MaxActive = domain.DefaultMaxActiveLoans
	}
	if p.DefaultDays <= 0 {
		p.DefaultDays = domain.DefaultLoanDays
	}
	if p.ExtensionDays <= 0 {
		p.ExtensionDays = domain.DefaultExtensionDays
	}
	if p.FinePerDay < 0 {
		p.FinePerDay = domain.DefaultFinePerDay
	}
	if p.Location == nil {
		p.Location = time.UTC
	}
	return p
}

// today is the current calendar date in the library's timezone
func (s *LoanService) today() time.Time {
	return domain.DateOf(s.now(), s.policy.Location)
}

// RequestLoanInput represents a borrower's loan request
type RequestLoanInput struct {
	BookID            uint   `json:"buku_id" validate:"required,gt=0"`
	DesiredReturnDate string `json:"tanggal_pengembalian" validate:"required,datetime=2006-01-02"`
	Note              string `json:"catatan" validate:"max=500"`
}

// RequestLoan files a pending loan request for borrowerID
func (s *LoanService) RequestLoan(ctx context.Context, borrowerID uint, input *RequestLoanInput) (*models.LoanView, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.RequestLoan", trace.WithAttributes(
		attribute.Int64("loan.user_id", int64(borrowerID)),
		attribute.Int64("loan.book_id", int64(input.BookID)),
	))
	defer span.End()

	today := s.today()

	if strings.TrimSpace(input.DesiredReturnDate) == "" {
		return nil, s.fail(span, "request loan", domain.ErrReturnDateRequired)
	}
	desired, err := domain.ParseDate(strings.TrimSpace(input.DesiredReturnDate))
	if err != nil {
		return nil, s.fail(span, "request loan", domain.InvalidArgument("desired return date must be a calendar date (YYYY-MM-DD)"))
	}
	if desired.Before(today) {
		return nil, s.fail(span, "request loan", domain.ErrReturnDateInPast)
	}

	book, err := s.bookRepo.GetByID(ctx, input.BookID)
	if err != nil {
		if isNotFound(err) {
			return nil, s.fail(span, "request loan", domain.ErrBookNotFound)
		}
		return nil, s.fail(span, "request loan", err)
	}
	if !book.IsActive() {
		return nil, s.fail(span, "request loan", domain.ErrBookUnavailable)
	}

	held, err := s.loanRepo.CountByUserAndStatus(ctx, borrowerID, domain.CapacityStatuses)
	if err != nil {
		return nil, s.fail(span, "request loan", err)
	}
	if held >= int64(s.policy.MaxActive) {
		return nil, s.fail(span, "request loan", domain.ErrCapacityExceeded)
	}

	if s.policy.BlockDuplicatePending {
		dup, err := s.loanRepo.ExistsPendingForBook(ctx, borrowerID, book.ID)
		if err != nil {
			return nil, s.fail(span, "request loan", err)
		}
		if dup {
			return nil, s.fail(span, "request loan", domain.ErrDuplicatePendingRequest)
		}
	}

	// advisory only; approval re-checks with a guarded decrement
	if book.Available <= 0 {
		return nil, s.fail(span, "request loan", domain.ErrBookUnavailable)
	}

	loan, err := s.insertPending(ctx, borrowerID, book.ID, desired, strings.TrimSpace(input.Note))
	if err != nil {
		return nil, s.fail(span, "request loan", err)
	}
	loan.Book = book

	s.record(ctx, domain.ActionRequest)
	s.notifier.Publish(ctx, newLoanEvent(EventLoanRequested, loan, s.now()))
	s.log.Info("loan requested",
		zap.Uint("loan_id", loan.ID),
		zap.String("code", loan.Code),
		zap.Uint("user_id", borrowerID),
		zap.Uint("book_id", book.ID),
	)

	return loan.ToView(today, s.policy.FinePerDay, false), nil
}

// insertPending writes the loan and its history row. A receipt code that
// lost a race to the unique index is regenerated.
func (s *LoanService) insertPending(ctx context.Context, borrowerID, bookID uint, desired time.Time, note string) (*models.Loan, error) {
	var lastErr error

	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		code, err := s.receipts.Generate(ctx)
		if err != nil {
			return nil, err
		}

		loan := &models.Loan{
			Code:              code,
			UserID:            borrowerID,
			BookID:            bookID,
			DesiredReturnDate: &desired,
			Status:            domain.StatusPending,
			Note:              note,
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.loanRepo.WithTx(tx).Create(ctx, loan); err != nil {
				return err
			}
			return s.historyRepo.WithTx(tx).Create(ctx, &models.LoanHistory{
				LoanID:      loan.ID,
				Action:      domain.ActionRequest,
				ToStatus:    domain.StatusPending,
				Description: "Pengajuan peminjaman " + code,
				PerformedBy: &borrowerID,
			})
		})
		if err == nil {
			return loan, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}

		lastErr = err
		s.log.Warn("receipt code collided on insert, regenerating", zap.String("code", code))
	}

	return nil, fmt.Errorf("could not allocate a unique receipt code: %w", lastErr)
}

// ApproveLoan moves a pending loan to dipinjam and takes one copy off the shelf
func (s *LoanService) ApproveLoan(ctx context.Context, loanID, adminID uint) (*models.LoanView, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.ApproveLoan", trace.WithAttributes(
		attribute.Int64("loan.id", int64(loanID)),
	))
	defer span.End()

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, s.fail(span, "approve loan", err)
	}
	if loan.Status != domain.StatusPending {
		return nil, s.fail(span, "approve loan", domain.ErrLoanAlreadyProcessed)
	}

	now := s.now()
	today := s.today()

	due := today.AddDate(0, 0, s.policy.DefaultDays)
	if loan.DesiredReturnDate != nil {
		due = domain.DateOf(*loan.DesiredReturnDate, time.UTC)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.loanRepo.WithTx(tx).Transition(ctx, loan.ID, []domain.LoanStatus{domain.StatusPending}, map[string]interface{}{
			"status":              domain.StatusBorrowed,
			"tanggal_pinjam":      today,
			"tanggal_kembali":     due,
			"disetujui_oleh":      adminID,
			"tanggal_persetujuan": now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrLoanAlreadyProcessed
		}

		ok, err = s.bookRepo.WithTx(tx).DecrementAvailable(ctx, loan.BookID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrBookUnavailable
		}

		return s.historyRepo.WithTx(tx).Create(ctx, &models.LoanHistory{
			LoanID:      loan.ID,
			Action:      domain.ActionApprove,
			FromStatus:  domain.StatusPending,
			ToStatus:    domain.StatusBorrowed,
			Description: "Disetujui, jatuh tempo " + due.Format(domain.DateLayout),
			PerformedBy: &adminID,
		})
	})
	if err != nil {
		return nil, s.fail(span, "approve loan", err)
	}

	loan.Status = domain.StatusBorrowed
	loan.BorrowDate = &today
	loan.DueDate = &due
	loan.ApprovedBy = &adminID
	loan.ApprovedAt = &now
	if loan.Book != nil {
		loan.Book.Available--
	}

	s.record(ctx, domain.ActionApprove)
	s.notifier.Publish(ctx, newLoanEvent(EventLoanApproved, loan, now))
	s.log.Info("loan approved",
		zap.Uint("loan_id", loan.ID),
		zap.Uint("admin_id", adminID),
		zap.String("due_date", due.Format(domain.DateLayout)),
	)

	return loan.ToView(today, s.policy.FinePerDay, true), nil
}

// RejectLoan closes a pending loan with a reason; stock is untouched
func (s *LoanService) RejectLoan(ctx context.Context, loanID, adminID uint, reason string) (*models.LoanView, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.RejectLoan", trace.WithAttributes(
		attribute.Int64("loan.id", int64(loanID)),
	))
	defer span.End()

	if strings.TrimSpace(reason) == "" {
		return nil, s.fail(span, "reject loan", domain.ErrReasonRequired)
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, s.fail(span, "reject loan", err)
	}
	if loan.Status != domain.StatusPending {
		return nil, s.fail(span, "reject loan", domain.ErrLoanAlreadyProcessed)
	}

	now := s.now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.loanRepo.WithTx(tx).Transition(ctx, loan.ID, []domain.LoanStatus{domain.StatusPending}, map[string]interface{}{
			"status":              domain.StatusRejected,
			"alasan_tolak":        reason,
			"disetujui_oleh":      adminID,
			"tanggal_persetujuan": now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrLoanAlreadyProcessed
		}

		return s.historyRepo.WithTx(tx).Create(ctx, &models.LoanHistory{
			LoanID:      loan.ID,
			Action:      domain.ActionReject,
			FromStatus:  domain.StatusPending,
			ToStatus:    domain.StatusRejected,
			Description: "Ditolak: " + reason,
			PerformedBy: &adminID,
		})
	})
	if err != nil {
		return nil, s.fail(span, "reject loan", err)
	}

	loan.Status = domain.StatusRejected
	loan.RejectReason = reason
	loan.ApprovedBy = &adminID
	loan.ApprovedAt = &now

	s.record(ctx, domain.ActionReject)
	s.notifier.Publish(ctx, newLoanEvent(EventLoanRejected, loan, now))
	s.log.Info("loan rejected", zap.Uint("loan_id", loan.ID), zap.Uint("admin_id", adminID))

	return loan.ToView(s.today(), s.policy.FinePerDay, true), nil
}

// ReturnLoan closes an open loan, freezes its fine and puts the copy back
func (s *LoanService) ReturnLoan(ctx context.Context, loanID, borrowerID uint) (*domain.ReturnResult, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.ReturnLoan", trace.WithAttributes(
		attribute.Int64("loan.id", int64(loanID)),
		attribute.Int64("loan.user_id", int64(borrowerID)),
	))
	defer span.End()

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, s.fail(span, "return loan", err)
	}
	if loan.UserID != borrowerID {
		return nil, s.fail(span, "return loan", domain.ErrNotLoanOwner)
	}

	today := s.today()
	from := loan.Status
	if !domain.DeriveStatus(loan.Status, loan.DueDate, today).IsOpen() {
		return nil, s.fail(span, "return loan", domain.ErrLoanNotOpen)
	}

	overdue := 0
	if loan.DueDate != nil {
		overdue = domain.OverdueDays(*loan.DueDate, today)
	}
	fine := domain.Fine(overdue, s.policy.FinePerDay)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.loanRepo.WithTx(tx).Transition(ctx, loan.ID, domain.OpenStatuses, map[string]interface{}{
			"status":               domain.StatusReturned,
			"tanggal_dikembalikan": today,
			"hari_terlambat":       overdue,
			"denda":                fine,
		})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrLoanNotOpen
		}

		ok, err = s.bookRepo.WithTx(tx).IncrementAvailable(ctx, loan.BookID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("book %d already has all copies on the shelf: %w", loan.BookID, domain.ErrStockInvariant)
		}

		return s.historyRepo.WithTx(tx).Create(ctx, &models.LoanHistory{
			LoanID:      loan.ID,
			Action:      domain.ActionReturn,
			FromStatus:  from,
			ToStatus:    domain.StatusReturned,
			Description: fmt.Sprintf("Dikembalikan, terlambat %d hari, denda %d", overdue, fine),
			PerformedBy: &borrowerID,
		})
	})
	if err != nil {
		return nil, s.fail(span, "return loan", err)
	}

	loan.Status = domain.StatusReturned
	loan.ReturnedDate = &today
	loan.OverdueDays = overdue
	loan.Fine = fine

	s.record(ctx, domain.ActionReturn)
	if fine > 0 {
		s.finesIssued.Add(ctx, fine)
	}
	s.notifier.Publish(ctx, newLoanEvent(EventLoanReturned, loan, s.now()))
	s.log.Info("loan returned",
		zap.Uint("loan_id", loan.ID),
		zap.Int("overdue_days", overdue),
		zap.Int64("fine", fine),
	)

	return &domain.ReturnResult{
		LoanID:      loan.ID,
		Code:        loan.Code,
		ReturnedOn:  today.Format(domain.DateLayout),
		OverdueDays: overdue,
		Fine:        fine,
	}, nil
}

// ExtendLoan pushes the due date of an open loan forward
func (s *LoanService) ExtendLoan(ctx context.Context, loanID, borrowerID uint) (*models.LoanView, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.ExtendLoan", trace.WithAttributes(
		attribute.Int64("loan.id", int64(loanID)),
		attribute.Int64("loan.user_id", int64(borrowerID)),
	))
	defer span.End()

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, s.fail(span, "extend loan", err)
	}
	if loan.UserID != borrowerID {
		return nil, s.fail(span, "extend loan", domain.ErrNotLoanOwner)
	}

	today := s.today()
	from := domain.DeriveStatus(loan.Status, loan.DueDate, today)
	if !from.IsOpen() {
		return nil, s.fail(span, "extend loan", domain.ErrLoanNotOpen)
	}
	if s.policy.MaxExtensions > 0 && loan.ExtensionCount >= s.policy.MaxExtensions {
		return nil, s.fail(span, "extend loan", domain.ErrExtensionLimitReached)
	}

	base := today
	if loan.DueDate != nil {
		base = domain.DateOf(*loan.DueDate, time.UTC)
	}
	due := base.AddDate(0, 0, s.policy.ExtensionDays)
	note := appendNote(loan.Note, "Diperpanjang pada "+today.Format(domain.DateLayout))

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.loanRepo.WithTx(tx).UpdateIfExtensionCount(ctx, loan.ID, loan.ExtensionCount, map[string]interface{}{
			"tanggal_kembali":     due,
			"catatan":             note,
			"status":              domain.StatusBorrowed,
			"jumlah_perpanjangan": loan.ExtensionCount + 1,
		})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrLoanNotOpen
		}

		return s.historyRepo.WithTx(tx).Create(ctx, &models.LoanHistory{
			LoanID:      loan.ID,
			Action:      domain.ActionExtend,
			FromStatus:  from,
			ToStatus:    domain.StatusBorrowed,
			Description: "Jatuh tempo baru " + due.Format(domain.DateLayout),
			PerformedBy: &borrowerID,
		})
	})
	if err != nil {
		return nil, s.fail(span, "extend loan", err)
	}

	loan.Status = domain.StatusBorrowed
	loan.DueDate = &due
	loan.Note = note
	loan.ExtensionCount++

	s.record(ctx, domain.ActionExtend)
	s.notifier.Publish(ctx, newLoanEvent(EventLoanExtended, loan, s.now()))
	s.log.Info("loan extended",
		zap.Uint("loan_id", loan.ID),
		zap.String("due_date", due.Format(domain.DateLayout)),
		zap.Int("extensions", loan.ExtensionCount),
	)

	return loan.ToView(today, s.policy.FinePerDay, false), nil
}

// getLoan loads a loan with its borrower and book
func (s *LoanService) getLoan(ctx context.Context, id uint) (*models.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}

func (s *LoanService) record(ctx context.Context, action domain.HistoryAction) {
	s.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("action", string(action))))
}

// fail annotates the span and passes business errors through untouched.
// Infrastructure errors are logged and wrapped with the operation name.
func (s *LoanService) fail(span trace.Span, op string, err error) error {
	kind := domain.KindOf(err)
	span.SetAttributes(attribute.String("loan.error_kind", string(kind)))

	if kind != domain.KindInternal {
		return err
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.log.Error(op+" failed", zap.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}

func appendNote(existing, line string) string {
	if strings.TrimSpace(existing) == "" {
		return line
	}
	return existing + "\n" + line
}
