package config

import (
	"perpus-loan/internal/adapters/persistence/models"
	"perpus-loan/internal/core/domain"
	"perpus-loan/internal/pkg/password"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, log *zap.Logger) *Seeder {
	return &Seeder{db: db, log: log}
}

// Run executes all seeders. Each seeder is skipped when its table already has rows.
func (s *Seeder) Run() error {
	s.log.Info("running database seeders")

	if err := s.seedUsers(); err != nil {
		s.log.Warn("user seeder skipped", zap.Error(err))
	}
	if err := s.seedBooks(); err != nil {
		s.log.Warn("book seeder skipped", zap.Error(err))
	}

	s.log.Info("database seeding completed")
	return nil
}

// seedUsers seeds a default librarian and borrower.
// Development only; production accounts come from account management.
func (s *Seeder) seedUsers() error {
	var count int64
	if err := s.db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	adminHash, err := password.Hash("admin123456")
	if err != nil {
		return err
	}
	userHash, err := password.Hash("siswa123456")
	if err != nil {
		return err
	}

	users := []models.User{
		{NIPD: "ADMIN001", Name: "Pustakawan", Password: adminHash, Role: domain.RoleAdmin},
		{NIPD: "2024001", Name: "Siswa Contoh", Password: userHash, Role: domain.RoleUser},
	}
	if err := s.db.Create(&users).Error; err != nil {
		return err
	}

	s.log.Info("seeded users", zap.Int("count", len(users)))
	return nil
}

// seedBooks seeds a handful of catalog entries
func (s *Seeder) seedBooks() error {
	var count int64
	if err := s.db.Model(&models.Book{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	books := []models.Book{
		{Code: "BK-0001", Title: "Laskar Pelangi", Author: "Andrea Hirata", Category: "Novel", ShelfLoc: "A1", Total: 3, Available: 3},
		{Code: "BK-0002", Title: "Bumi Manusia", Author: "Pramoedya Ananta Toer", Category: "Novel", ShelfLoc: "A2", Total: 2, Available: 2},
		{Code: "BK-0003", Title: "Matematika Dasar", Author: "Tim Guru", Category: "Pelajaran", ShelfLoc: "B1", Total: 5, Available: 5},
		{Code: "BK-0004", Title: "Ensiklopedia Sains", Author: "Redaksi", Category: "Referensi", ShelfLoc: "C1", Total: 1, Available: 1},
	}
	for i := range books {
		books[i].Status = domain.BookActive
	}
	if err := s.db.Create(&books).Error; err != nil {
		return err
	}

	s.log.Info("seeded books", zap.Int("count", len(books)))
	return nil
}
