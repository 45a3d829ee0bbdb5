package repositories

import (
	"context"

	"perpus-loan/internal/adapters/persistence/models"
	"perpus-loan/internal/core/domain"

	"gorm.io/gorm"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByNIPD(ctx context.Context, nipd string) (*models.User, error)
	CountByRole(ctx context.Context, role domain.Role) (int64, error)
}

// BookRepository defines the stock operations the loan engine needs.
// Decrement and Increment are single conditional statements and report
// whether a row was changed.
type BookRepository interface {
	WithTx(tx *gorm.DB) BookRepository
	Create(ctx context.Context, book *models.Book) error
	GetByID(ctx context.Context, id uint) (*models.Book, error)
	Count(ctx context.Context) (int64, error)
	DecrementAvailable(ctx context.Context, id uint) (bool, error)
	IncrementAvailable(ctx context.Context, id uint) (bool, error)
	SumAvailable(ctx context.Context) (int64, error)
}

// LoanFilter narrows loan listings by stored status
type LoanFilter struct {
	UserID   *uint
	Statuses []domain.LoanStatus
}

// LoanRepository defines loan repository interface
type LoanRepository interface {
	WithTx(tx *gorm.DB) LoanRepository
	Create(ctx context.Context, loan *models.Loan) error
	GetByID(ctx context.Context, id uint) (*models.Loan, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	CountByUserAndStatus(ctx context.Context, userID uint, statuses []domain.LoanStatus) (int64, error)
	CountByStatus(ctx context.Context, status domain.LoanStatus) (int64, error)
	ExistsPendingForBook(ctx context.Context, userID, bookID uint) (bool, error)
	List(ctx context.Context, filter LoanFilter) ([]*models.Loan, error)
	ListPending(ctx context.Context) ([]*models.Loan, error)
	Transition(ctx context.Context, id uint, from []domain.LoanStatus, updates map[string]interface{}) (bool, error)
	UpdateIfExtensionCount(ctx context.Context, id uint, count int, updates map[string]interface{}) (bool, error)
	SumFines(ctx context.Context, status domain.LoanStatus) (int64, error)
	CountDistinctBooks(ctx context.Context, statuses []domain.LoanStatus) (int64, error)
}

// HistoryRepository defines loan history repository interface
type HistoryRepository interface {
	WithTx(tx *gorm.DB) HistoryRepository
	Create(ctx context.Context, entry *models.LoanHistory) error
	ListByLoan(ctx context.Context, loanID uint) ([]*models.LoanHistory, error)
}
