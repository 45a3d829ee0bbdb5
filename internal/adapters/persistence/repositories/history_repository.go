package repositories

import (
	"context"

	"perpus-loan/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// historyRepository implements HistoryRepository interface
type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new loan history repository
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *historyRepository) WithTx(tx *gorm.DB) HistoryRepository {
	return &historyRepository{db: tx}
}

// Create appends a history entry
func (r *historyRepository) Create(ctx context.Context, entry *models.LoanHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByLoan gets the history of a loan, newest first
func (r *historyRepository) ListByLoan(ctx context.Context, loanID uint) ([]*models.LoanHistory, error) {
	var entries []*models.LoanHistory
	err := r.db.WithContext(ctx).
		Preload("Performer").
		Where("peminjaman_id = ?", loanID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&entries).Error
	return entries, err
}
