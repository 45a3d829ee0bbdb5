package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"perpus-loan/internal/adapters/persistence/models"
	"perpus-loan/internal/adapters/persistence/repositories"
	"perpus-loan/internal/config"
	"perpus-loan/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var wib = time.FixedZone("WIB", 7*60*60)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) AdvanceDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.AddDate(0, 0, n)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []LoanEvent
}

func (n *recordingNotifier) Publish(_ context.Context, e LoanEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type LoanServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	db     *gorm.DB
	clock  *fakeClock
	events *recordingNotifier
	svc    *LoanService

	admin    *models.User
	borrower *models.User
	other    *models.User
	book     *models.Book
	single   *models.Book
}

func TestLoanServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LoanServiceTestSuite))
}

func (s *LoanServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	// 09:00 WIB
	s.clock = &fakeClock{t: time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)}
	s.events = &recordingNotifier{}

	dsn := filepath.Join(s.T().TempDir(), "loans.db") + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return s.clock.Now().UTC()
		},
	})
	s.Require().NoError(err)

	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.T().Cleanup(func() { _ = sqlDB.Close() })

	s.Require().NoError(models.AutoMigrate(db))
	s.db = db

	s.admin = s.createUser("ADMIN001", "Pustakawan", domain.RoleAdmin)
	s.borrower = s.createUser("2024001", "Siti Aminah", domain.RoleUser)
	s.other = s.createUser("2024002", "Budi Santoso", domain.RoleUser)
	s.book = s.createBook("BK-001", "Laskar Pelangi", 2)
	s.single = s.createBook("BK-002", "Bumi Manusia", 1)

	s.svc = s.newService()
}

func (s *LoanServiceTestSuite) newService(mutate ...func(*config.LoanConfig)) *LoanService {
	policy := config.LoanConfig{
		MaxActive:     3,
		FinePerDay:    1000,
		DefaultDays:   7,
		ExtensionDays: 7,
		Location:      wib,
	}
	for _, m := range mutate {
		m(&policy)
	}

	return NewLoanService(
		s.db,
		repositories.NewLoanRepository(s.db),
		repositories.NewBookRepository(s.db),
		repositories.NewHistoryRepository(s.db),
		s.events,
		policy,
		zap.NewNop(),
		WithClock(s.clock.Now),
	)
}

func (s *LoanServiceTestSuite) createUser(nipd, name string, role domain.Role) *models.User {
	u := &models.User{NIPD: nipd, Name: name, Password: "x", Role: role}
	s.Require().NoError(s.db.Create(u).Error)
	return u
}

func (s *LoanServiceTestSuite) createBook(code, title string, copies int) *models.Book {
	b := &models.Book{
		Code:      code,
		Title:     title,
		Author:    "Penulis",
		Total:     copies,
		Available: copies,
		Status:    domain.BookActive,
	}
	s.Require().NoError(s.db.Create(b).Error)
	return b
}

// dateIn returns the calendar date n days from the fake today
func (s *LoanServiceTestSuite) dateIn(n int) string {
	return domain.DateOf(s.clock.Now(), wib).AddDate(0, 0, n).Format(domain.DateLayout)
}

func (s *LoanServiceTestSuite) available(bookID uint) int {
	var b models.Book
	s.Require().NoError(s.db.First(&b, bookID).Error)
	return b.Available
}

func (s *LoanServiceTestSuite) storedLoan(id uint) models.Loan {
	var l models.Loan
	s.Require().NoError(s.db.First(&l, id).Error)
	return l
}

func (s *LoanServiceTestSuite) request(user *models.User, book *models.Book, days int) *models.LoanView {
	v, err := s.svc.RequestLoan(s.ctx, user.ID, &RequestLoanInput{
		BookID:            book.ID,
		DesiredReturnDate: s.dateIn(days),
	})
	s.Require().NoError(err)
	return v
}

func (s *LoanServiceTestSuite) borrow(user *models.User, book *models.Book, days int) *models.LoanView {
	v := s.request(user, book, days)
	approved, err := s.svc.ApproveLoan(s.ctx, v.ID, s.admin.ID)
	s.Require().NoError(err)
	return approved
}

func (s *LoanServiceTestSuite) assertKind(err error, kind domain.ErrorKind) {
	s.T().Helper()
	s.Require().Error(err)
	s.Equal(kind, domain.KindOf(err), err.Error())
}

// ============================================================
// Request
// ============================================================

func (s *LoanServiceTestSuite) TestRequestLoanCreatesPendingRequest() {
	v, err := s.svc.RequestLoan(s.ctx, s.borrower.ID, &RequestLoanInput{
		BookID:            s.book.ID,
		DesiredReturnDate: s.dateIn(5),
		Note:              "  untuk tugas  ",
	})
	s.Require().NoError(err)

	s.Equal(domain.StatusPending, v.Status)
	s.Regexp(receiptPattern, v.Code)
	s.True(strings.HasPrefix(v.Code, "PJM-20260310-"))
	s.Equal("untuk tugas", v.Note)
	s.Nil(v.DueDate)
	s.Require().NotNil(v.DesiredReturnDate)
	s.Equal(s.dateIn(5), *v.DesiredReturnDate)
	s.Require().NotNil(v.Book)
	s.Equal("Laskar Pelangi", v.Book.Title)

	s.Equal(2, s.available(s.book.ID), "requesting never touches stock")
	s.Equal([]string{EventLoanRequested}, s.events.types())

	history, err := s.svc.LoanHistory(s.ctx, v.ID, domain.Caller{UserID: s.borrower.ID, Role: domain.RoleUser})
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(domain.ActionRequest, history[0].Action)
}

func (s *LoanServiceTestSuite) TestRequestLoanValidation() {
	inactive := s.createBook("BK-003", "Arsip", 1)
	s.Require().NoError(s.db.Model(inactive).Update("status", domain.BookInactive).Error)

	empty := s.createBook("BK-004", "Habis", 1)
	s.Require().NoError(s.db.Model(empty).Update("jumlah_tersedia", 0).Error)

	tests := []struct {
		name  string
		input RequestLoanInput
		kind  domain.ErrorKind
		err   error
	}{
		{"missing date", RequestLoanInput{BookID: s.book.ID}, domain.KindInvalidArgument, domain.ErrReturnDateRequired},
		{"malformed date", RequestLoanInput{BookID: s.book.ID, DesiredReturnDate: "10/03/2026"}, domain.KindInvalidArgument, nil},
		{"date in the past", RequestLoanInput{BookID: s.book.ID, DesiredReturnDate: s.dateIn(-1)}, domain.KindInvalidArgument, domain.ErrReturnDateInPast},
		{"unknown book", RequestLoanInput{BookID: 9999, DesiredReturnDate: s.dateIn(3)}, domain.KindNotFound, domain.ErrBookNotFound},
		{"inactive book", RequestLoanInput{BookID: inactive.ID, DesiredReturnDate: s.dateIn(3)}, domain.KindBookUnavailable, nil},
		{"no copies left", RequestLoanInput{BookID: empty.ID, DesiredReturnDate: s.dateIn(3)}, domain.KindBookUnavailable, nil},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			input := tt.input
			_, err := s.svc.RequestLoan(s.ctx, s.borrower.ID, &input)
			s.assertKind(err, tt.kind)
			if tt.err != nil {
				s.ErrorIs(err, tt.err)
			}
		})
	}

	_, err := s.svc.RequestLoan(s.ctx, s.borrower.ID, &RequestLoanInput{BookID: s.book.ID, DesiredReturnDate: s.dateIn(0)})
	s.NoError(err, "today is a valid return date")
}

func (s *LoanServiceTestSuite) TestCapacityCountsPendingActiveAndLate() {
	extra := s.createBook("BK-005", "Negeri 5 Menara", 5)

	late := s.borrow(s.borrower, extra, 1)
	s.borrow(s.borrower, extra, 10)
	s.clock.AdvanceDays(3)

	got, err := s.svc.GetLoan(s.ctx, late.ID, domain.Caller{UserID: s.borrower.ID})
	s.Require().NoError(err)
	s.Equal(domain.StatusLate, got.Status)

	pending := s.request(s.borrower, extra, 5)

	_, err = s.svc.RequestLoan(s.ctx, s.borrower.ID, &RequestLoanInput{BookID: extra.ID, DesiredReturnDate: s.dateIn(5)})
	s.assertKind(err, domain.KindCapacityExceeded)
	s.ErrorIs(err, domain.ErrCapacityExceeded)

	// a rejected request frees the slot
	_, err = s.svc.RejectLoan(s.ctx, pending.ID, s.admin.ID, "stok dipesan kelas lain")
	s.Require().NoError(err)

	_, err = s.svc.RequestLoan(s.ctx, s.borrower.ID, &RequestLoanInput{BookID: extra.ID, DesiredReturnDate: s.dateIn(5)})
	s.NoError(err)

	// other borrowers are unaffected
	_, err = s.svc.RequestLoan(s.ctx, s.other.ID, &RequestLoanInput{BookID: extra.ID, DesiredReturnDate: s.dateIn(5)})
	s.NoError(err)
}

func (s *LoanServiceTestSuite) TestDuplicatePendingRequests() {
	s.request(s.borrower, s.book, 3)
	s.request(s.borrower, s.book, 4)

	strict := s.newService(func(p *config.LoanConfig) { p.BlockDuplicatePending = true })
	_, err := strict.RequestLoan(s.ctx, s.borrower.ID, &RequestLoanInput{BookID: s.book.ID, DesiredReturnDate: s.dateIn(3)})
	s.assertKind(err, domain.KindInvalidState)
	s.ErrorIs(err, domain.ErrDuplicatePendingRequest)

	_, err = strict.RequestLoan(s.ctx, s.borrower.ID, &RequestLoanInput{BookID: s.single.ID, DesiredReturnDate: s.dateIn(3)})
	s.NoError(err)
}

// ============================================================
// Approve / Reject
// ============================================================

func (s *LoanServiceTestSuite) TestApproveUsesDesiredReturnDate() {
	req := s.request(s.borrower, s.book, 5)

	v, err := s.svc.ApproveLoan(s.ctx, req.ID, s.admin.ID)
	s.Require().NoError(err)

	s.Equal(domain.StatusBorrowed, v.Status)
	s.Require().NotNil(v.DueDate)
	s.Equal(s.dateIn(5), *v.DueDate)
	s.Require().NotNil(v.BorrowDate)
	s.Equal(s.dateIn(0), *v.BorrowDate)
	s.Require().NotNil(v.ApprovedBy)
	s.Equal(s.admin.ID, *v.ApprovedBy)
	s.Require().NotNil(v.Borrower)
	s.Equal("2024001", v.Borrower.NIPD)

	s.Equal(1, s.available(s.book.ID))

	stored := s.storedLoan(req.ID)
	s.Equal(domain.StatusBorrowed, stored.Status)

	_, err = s.svc.ApproveLoan(s.ctx, req.ID, s.admin.ID)
	s.assertKind(err, domain.KindAlreadyProcessed)
	s.Equal(1, s.available(s.book.ID), "second approval must not take another copy")

	s.Equal([]string{EventLoanRequested, EventLoanApproved}, s.events.types())
}

func (s *LoanServiceTestSuite) TestApproveWithoutDesiredDateUsesDefaultPeriod() {
	legacy := &models.Loan{
		Code:   "PJM-LEGACY-0001",
		UserID: s.borrower.ID,
		BookID: s.book.ID,
		Status: domain.StatusPending,
	}
	s.Require().NoError(s.db.Create(legacy).Error)

	v, err := s.svc.ApproveLoan(s.ctx, legacy.ID, s.admin.ID)
	s.Require().NoError(err)
	s.Require().NotNil(v.DueDate)
	s.Equal(s.dateIn(7), *v.DueDate)
}

func (s *LoanServiceTestSuite) TestApproveWithoutStockRollsBack() {
	first := s.request(s.borrower, s.single, 3)
	second := s.request(s.other, s.single, 3)

	_, err := s.svc.ApproveLoan(s.ctx, first.ID, s.admin.ID)
	s.Require().NoError(err)

	_, err = s.svc.ApproveLoan(s.ctx, second.ID, s.admin.ID)
	s.assertKind(err, domain.KindBookUnavailable)

	s.Equal(domain.StatusPending, s.storedLoan(second.ID).Status)
	s.Equal(0, s.available(s.single.ID))
}

func (s *LoanServiceTestSuite) TestConcurrentApprovalsTakeOneCopy() {
	req := s.request(s.borrower, s.book, 3)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.ApproveLoan(s.ctx, req.ID, s.admin.ID)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.Equal(s.T(), domain.KindAlreadyProcessed, domain.KindOf(err))
		}()
	}
	wg.Wait()

	s.Equal(1, successes)
	s.Equal(1, s.available(s.book.ID))
}

func (s *LoanServiceTestSuite) TestRejectLoan() {
	req := s.request(s.borrower, s.book, 3)

	_, err := s.svc.RejectLoan(s.ctx, req.ID, s.admin.ID, "   ")
	s.assertKind(err, domain.KindInvalidArgument)
	s.ErrorIs(err, domain.ErrReasonRequired)

	v, err := s.svc.RejectLoan(s.ctx, req.ID, s.admin.ID, "buku sedang direnovasi ulang")
	s.Require().NoError(err)
	s.Equal(domain.StatusRejected, v.Status)
	s.Equal("buku sedang direnovasi ulang", v.RejectReason)
	s.Equal(2, s.available(s.book.ID))

	_, err = s.svc.ApproveLoan(s.ctx, req.ID, s.admin.ID)
	s.assertKind(err, domain.KindAlreadyProcessed)

	_, err = s.svc.RejectLoan(s.ctx, req.ID, s.admin.ID, "lagi")
	s.assertKind(err, domain.KindAlreadyProcessed)

	_, err = s.svc.ReturnLoan(s.ctx, req.ID, s.borrower.ID)
	s.assertKind(err, domain.KindInvalidState)

	_, err = s.svc.ApproveLoan(s.ctx, 9999, s.admin.ID)
	s.assertKind(err, domain.KindNotFound)
}

// ============================================================
// Return
// ============================================================

func (s *LoanServiceTestSuite) TestReturnOnTime() {
	loan := s.borrow(s.borrower, s.book, 5)
	s.clock.AdvanceDays(5)

	res, err := s.svc.ReturnLoan(s.ctx, loan.ID, s.borrower.ID)
	s.Require().NoError(err)
	s.Equal(0, res.OverdueDays)
	s.Equal(int64(0), res.Fine)
	s.Equal(s.dateIn(0), res.ReturnedOn)
	s.Equal(loan.Code, res.Code)

	s.Equal(2, s.available(s.book.ID))
	s.Equal(domain.StatusReturned, s.storedLoan(loan.ID).Status)

	_, err = s.svc.ReturnLoan(s.ctx, loan.ID, s.borrower.ID)
	s.assertKind(err, domain.KindInvalidState)
	s.ErrorIs(err, domain.ErrLoanNotOpen)
	s.Equal(2, s.available(s.book.ID))
}

func (s *LoanServiceTestSuite) TestLateReturnFreezesFine() {
	loan := s.borrow(s.borrower, s.book, 2)
	caller := domain.Caller{UserID: s.borrower.ID, Role: domain.RoleUser}

	s.clock.AdvanceDays(5)

	live, err := s.svc.GetLoan(s.ctx, loan.ID, caller)
	s.Require().NoError(err)
	s.Equal(domain.StatusLate, live.Status)
	s.Equal(3, live.OverdueDays)
	s.Equal(int64(3000), live.Fine)
	s.Equal(domain.StatusBorrowed, s.storedLoan(loan.ID).Status, "lateness is derived, not stored")

	res, err := s.svc.ReturnLoan(s.ctx, loan.ID, s.borrower.ID)
	s.Require().NoError(err)
	s.Equal(3, res.OverdueDays)
	s.Equal(int64(3000), res.Fine)

	s.clock.AdvanceDays(10)

	frozen, err := s.svc.GetLoan(s.ctx, loan.ID, caller)
	s.Require().NoError(err)
	s.Equal(domain.StatusReturned, frozen.Status)
	s.Equal(3, frozen.OverdueDays)
	s.Equal(int64(3000), frozen.Fine)
}

func (s *LoanServiceTestSuite) TestReturnByAnotherBorrowerIsForbidden() {
	loan := s.borrow(s.borrower, s.book, 3)

	_, err := s.svc.ReturnLoan(s.ctx, loan.ID, s.other.ID)
	s.assertKind(err, domain.KindForbidden)
	s.Equal(1, s.available(s.book.ID))

	_, err = s.svc.ReturnLoan(s.ctx, 9999, s.borrower.ID)
	s.assertKind(err, domain.KindNotFound)
}

func (s *LoanServiceTestSuite) TestReturnOnFullShelfRollsBack() {
	loan := s.borrow(s.borrower, s.book, 3)
	s.Require().NoError(s.db.Model(&models.Book{}).Where("id = ?", s.book.ID).Update("jumlah_tersedia", 2).Error)

	_, err := s.svc.ReturnLoan(s.ctx, loan.ID, s.borrower.ID)
	s.Require().Error(err)
	s.Equal(domain.KindInternal, domain.KindOf(err))
	s.True(errors.Is(err, domain.ErrStockInvariant))

	s.Equal(domain.StatusBorrowed, s.storedLoan(loan.ID).Status)
	s.Equal(2, s.available(s.book.ID))
}

// ============================================================
// Extend
// ============================================================

func (s *LoanServiceTestSuite) TestExtendLoan() {
	loan := s.borrow(s.borrower, s.book, 3)

	v, err := s.svc.ExtendLoan(s.ctx, loan.ID, s.borrower.ID)
	s.Require().NoError(err)
	s.Require().NotNil(v.DueDate)
	s.Equal(s.dateIn(10), *v.DueDate)
	s.Equal(1, v.ExtensionCount)
	s.Contains(v.Note, "Diperpanjang pada "+s.dateIn(0))

	_, err = s.svc.ExtendLoan(s.ctx, loan.ID, s.other.ID)
	s.assertKind(err, domain.KindForbidden)

	v, err = s.svc.ExtendLoan(s.ctx, loan.ID, s.borrower.ID)
	s.Require().NoError(err)
	s.Equal(s.dateIn(17), *v.DueDate)
	s.Equal(2, v.ExtensionCount)
	s.Equal(2, strings.Count(v.Note, "Diperpanjang pada"))
}

func (s *LoanServiceTestSuite) TestExtendLateLoanNormalizesStatus() {
	loan := s.borrow(s.borrower, s.book, 1)
	s.clock.AdvanceDays(3)

	v, err := s.svc.ExtendLoan(s.ctx, loan.ID, s.borrower.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusBorrowed, v.Status)
	s.Equal(s.dateIn(5), *v.DueDate)
	s.Equal(0, v.OverdueDays)
}

func (s *LoanServiceTestSuite) TestExtensionLimit() {
	svc := s.newService(func(p *config.LoanConfig) { p.MaxExtensions = 1 })
	loan := s.borrow(s.borrower, s.book, 3)

	_, err := svc.ExtendLoan(s.ctx, loan.ID, s.borrower.ID)
	s.Require().NoError(err)

	_, err = svc.ExtendLoan(s.ctx, loan.ID, s.borrower.ID)
	s.assertKind(err, domain.KindInvalidState)
	s.ErrorIs(err, domain.ErrExtensionLimitReached)
}

func (s *LoanServiceTestSuite) TestExtendRequiresOpenLoan() {
	pending := s.request(s.borrower, s.book, 3)
	_, err := s.svc.ExtendLoan(s.ctx, pending.ID, s.borrower.ID)
	s.assertKind(err, domain.KindInvalidState)
}

// ============================================================
// Listings
// ============================================================

func (s *LoanServiceTestSuite) TestListMyLoansFiltersByDerivedStatus() {
	extra := s.createBook("BK-006", "Ronggeng Dukuh Paruk", 5)

	late := s.borrow(s.borrower, extra, 1)
	active := s.borrow(s.borrower, extra, 10)
	s.request(s.other, extra, 3)
	s.clock.AdvanceDays(2)
	pending := s.request(s.borrower, extra, 3)

	all, err := s.svc.ListMyLoans(s.ctx, s.borrower.ID, "")
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(pending.ID, all[0].ID, "newest first")
	for _, v := range all {
		s.Nil(v.Borrower)
	}

	lateOnly, err := s.svc.ListMyLoans(s.ctx, s.borrower.ID, domain.StatusLate)
	s.Require().NoError(err)
	s.Require().Len(lateOnly, 1)
	s.Equal(late.ID, lateOnly[0].ID)
	s.Equal(int64(1000), lateOnly[0].Fine)

	activeOnly, err := s.svc.ListMyLoans(s.ctx, s.borrower.ID, domain.StatusBorrowed)
	s.Require().NoError(err)
	s.Require().Len(activeOnly, 1)
	s.Equal(active.ID, activeOnly[0].ID)

	_, err = s.svc.ListMyLoans(s.ctx, s.borrower.ID, "hilang")
	s.assertKind(err, domain.KindInvalidArgument)
}

func (s *LoanServiceTestSuite) TestListAllLoansOrdering() {
	extra := s.createBook("BK-007", "Cantik Itu Luka", 10)

	returned := s.borrow(s.borrower, extra, 5)
	_, err := s.svc.ReturnLoan(s.ctx, returned.ID, s.borrower.ID)
	s.Require().NoError(err)

	rejected := s.request(s.other, extra, 5)
	_, err = s.svc.RejectLoan(s.ctx, rejected.ID, s.admin.ID, "kuota kelas")
	s.Require().NoError(err)

	late := s.borrow(s.other, extra, 1)
	s.clock.AdvanceDays(3)
	active := s.borrow(s.borrower, extra, 5)
	pending := s.request(s.borrower, extra, 5)

	out, err := s.svc.ListAllLoans(s.ctx, ListLoansInput{})
	s.Require().NoError(err)
	s.Require().Len(out.Data, 5)

	ids := make([]uint, 0, len(out.Data))
	for _, v := range out.Data {
		ids = append(ids, v.ID)
		s.NotNil(v.Borrower)
	}
	s.Equal([]uint{pending.ID, late.ID, active.ID, returned.ID, rejected.ID}, ids)

	page, err := s.svc.ListAllLoans(s.ctx, ListLoansInput{Page: 2, Limit: 2})
	s.Require().NoError(err)
	s.Equal(int64(5), page.Meta.Total)
	s.Equal(3, page.Meta.TotalPages)
	s.Require().Len(page.Data, 2)
	s.Equal(active.ID, page.Data[0].ID)

	onlyLate, err := s.svc.ListAllLoans(s.ctx, ListLoansInput{Status: domain.StatusLate})
	s.Require().NoError(err)
	s.Require().Len(onlyLate.Data, 1)
	s.Equal(late.ID, onlyLate.Data[0].ID)
}

func (s *LoanServiceTestSuite) TestListPendingLoansReportsWaitingDays() {
	first := s.request(s.borrower, s.book, 5)
	s.clock.AdvanceDays(2)
	second := s.request(s.other, s.book, 5)

	pending, err := s.svc.ListPendingLoans(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)

	s.Equal(first.ID, pending[0].ID, "oldest first")
	s.Require().NotNil(pending[0].WaitingDays)
	s.Equal(2, *pending[0].WaitingDays)
	s.Equal(second.ID, pending[1].ID)
	s.Equal(0, *pending[1].WaitingDays)
}

func (s *LoanServiceTestSuite) TestGetLoanAccess() {
	loan := s.request(s.borrower, s.book, 3)

	_, err := s.svc.GetLoan(s.ctx, loan.ID, domain.Caller{UserID: s.other.ID, Role: domain.RoleUser})
	s.assertKind(err, domain.KindForbidden)

	_, err = s.svc.LoanHistory(s.ctx, loan.ID, domain.Caller{UserID: s.other.ID, Role: domain.RoleUser})
	s.assertKind(err, domain.KindForbidden)

	v, err := s.svc.GetLoan(s.ctx, loan.ID, domain.Caller{UserID: s.admin.ID, Role: domain.RoleAdmin})
	s.Require().NoError(err)
	s.Require().NotNil(v.Borrower)
	s.Equal("Siti Aminah", v.Borrower.Name)
}

func (s *LoanServiceTestSuite) TestLoanHistoryRecordsEveryTransition() {
	loan := s.borrow(s.borrower, s.book, 3)
	_, err := s.svc.ExtendLoan(s.ctx, loan.ID, s.borrower.ID)
	s.Require().NoError(err)
	_, err = s.svc.ReturnLoan(s.ctx, loan.ID, s.borrower.ID)
	s.Require().NoError(err)

	history, err := s.svc.LoanHistory(s.ctx, loan.ID, domain.Caller{UserID: s.admin.ID, Role: domain.RoleAdmin})
	s.Require().NoError(err)

	actions := make([]domain.HistoryAction, 0, len(history))
	for _, h := range history {
		actions = append(actions, h.Action)
	}
	s.Equal([]domain.HistoryAction{
		domain.ActionReturn,
		domain.ActionExtend,
		domain.ActionApprove,
		domain.ActionRequest,
	}, actions)
	s.Require().NotNil(history[2].Performer)
	s.Equal(s.admin.ID, history[2].Performer.ID)
}

// ============================================================
// Sweep & stats
// ============================================================

func (s *LoanServiceTestSuite) TestSweepOverdueIsIdempotent() {
	late := s.borrow(s.borrower, s.book, 1)
	s.borrow(s.other, s.book, 10)
	s.clock.AdvanceDays(4)

	res, err := s.svc.SweepOverdue(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, res.Overdue)
	s.Equal(1, res.Updated)

	stored := s.storedLoan(late.ID)
	s.Equal(domain.StatusBorrowed, stored.Status)
	s.Equal(3, stored.OverdueDays)
	s.Equal(int64(3000), stored.Fine)

	res, err = s.svc.SweepOverdue(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, res.Overdue)
	s.Equal(0, res.Updated)

	s.clock.AdvanceDays(1)
	res, err = s.svc.SweepOverdue(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, res.Updated)

	overdue := 0
	for _, t := range s.events.types() {
		if t == EventLoanOverdue {
			overdue++
		}
	}
	s.Equal(3, overdue)

	// the sweep never blocks a return
	ret, err := s.svc.ReturnLoan(s.ctx, late.ID, s.borrower.ID)
	s.Require().NoError(err)
	s.Equal(4, ret.OverdueDays)
	s.Equal(int64(4000), ret.Fine)
}

func (s *LoanServiceTestSuite) TestLoanStats() {
	extra := s.createBook("BK-008", "Pulang", 4)

	returned := s.borrow(s.borrower, extra, 1)
	s.borrow(s.other, extra, 1)
	s.borrow(s.borrower, s.book, 20)
	s.request(s.other, s.single, 3)
	s.clock.AdvanceDays(3)

	_, err := s.svc.ReturnLoan(s.ctx, returned.ID, s.borrower.ID)
	s.Require().NoError(err)

	stats, err := s.svc.LoanStats(s.ctx)
	s.Require().NoError(err)

	s.Equal(int64(1), stats.ByStatus[domain.StatusPending])
	s.Equal(int64(1), stats.ByStatus[domain.StatusBorrowed])
	s.Equal(int64(1), stats.ByStatus[domain.StatusLate])
	s.Equal(int64(1), stats.ByStatus[domain.StatusReturned])
	s.Equal(int64(0), stats.ByStatus[domain.StatusRejected])
	s.Equal(int64(2000), stats.OutstandingFines)
	s.Equal(int64(2000), stats.CollectedFines)
	s.Equal(int64(2), stats.BooksOnLoan)
	// BK-001: 1, BK-002: 1, BK-008: 3
	s.Equal(int64(5), stats.AvailableCopies)
}

func TestNormalizePolicyFillsDefaults(t *testing.T) {
	p := normalizePolicy(config.LoanConfig{FinePerDay: -5})
	require.Equal(t, domain.DefaultMaxActiveLoans, p.MaxActive)
	assert.Equal(t, domain.DefaultLoanDays, p.DefaultDays)
	assert.Equal(t, domain.DefaultExtensionDays, p.ExtensionDays)
	assert.Equal(t, domain.DefaultFinePerDay, p.FinePerDay)
	assert.Equal(t, time.UTC, p.Location)
	assert.Equal(t, 0, p.MaxExtensions)
}
