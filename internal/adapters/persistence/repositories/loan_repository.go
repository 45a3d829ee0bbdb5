package repositories

import (
	"context"

	"perpus-loan/internal/adapters/persistence/models"
	"perpus-loan/internal/core/domain"

	"gorm.io/gorm"
)

// loanRepository implements LoanRepository interface
type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *loanRepository) WithTx(tx *gorm.DB) LoanRepository {
	return &loanRepository{db: tx}
}

// Create creates a new loan
func (r *loanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

// GetByID gets a loan by ID with borrower and book
func (r *loanRepository) GetByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Book").
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// ExistsByCode checks whether a receipt code is taken
func (r *loanRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Loan{}).Where("kode_peminjaman = ?", code).Count(&count).Error
	return count > 0, err
}

// CountByUserAndStatus counts a borrower's loans in the given stored statuses
func (r *loanRepository) CountByUserAndStatus(ctx context.Context, userID uint, statuses []domain.LoanStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("user_id = ? AND status IN ?", userID, statuses).
		Count(&count).Error
	return count, err
}

// CountByStatus counts loans with a stored status
func (r *loanRepository) CountByStatus(ctx context.Context, status domain.LoanStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Loan{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// ExistsPendingForBook checks for an undecided request of the same book
func (r *loanRepository) ExistsPendingForBook(ctx context.Context, userID, bookID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("user_id = ? AND buku_id = ? AND status = ?", userID, bookID, domain.StatusPending).
		Count(&count).Error
	return count > 0, err
}

// List lists loans newest first with borrower and book
func (r *loanRepository) List(ctx context.Context, filter LoanFilter) ([]*models.Loan, error) {
	var loans []*models.Loan

	query := r.db.WithContext(ctx).
		Preload("User").
		Preload("Book")

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	err := query.Order("created_at DESC").Order("id DESC").Find(&loans).Error
	return loans, err
}

// ListPending lists undecided requests oldest first
func (r *loanRepository) ListPending(ctx context.Context) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Book").
		Where("status = ?", domain.StatusPending).
		Order("created_at ASC").
		Order("id ASC").
		Find(&loans).Error
	return loans, err
}

// Transition applies updates only while the loan is still in one of `from`
func (r *loanRepository) Transition(ctx context.Context, id uint, from []domain.LoanStatus, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateIfExtensionCount applies updates only if nobody extended the loan since it was read
func (r *loanRepository) UpdateIfExtensionCount(ctx context.Context, id uint, count int, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("id = ? AND jumlah_perpanjangan = ? AND status IN ?", id, count, domain.OpenStatuses).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SumFines sums the stored fine column for a status
func (r *loanRepository) SumFines(ctx context.Context, status domain.LoanStatus) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("status = ?", status).
		Select("COALESCE(SUM(denda), 0)").
		Scan(&total).Error
	return total, err
}

// CountDistinctBooks counts distinct books referenced by loans in the given statuses
func (r *loanRepository) CountDistinctBooks(ctx context.Context, statuses []domain.LoanStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("status IN ?", statuses).
		Distinct("buku_id").
		Count(&count).Error
	return count, err
}
