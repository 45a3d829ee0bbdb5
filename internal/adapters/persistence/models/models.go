package models

import (
	"time"

	"perpus-loan/internal/core/domain"

	"gorm.io/gorm"
)

// ============================================================
// Accounts
// ============================================================

// User represents users table (owned by account management, read-only here)
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	NIPD      string         `gorm:"column:nipd;uniqueIndex;size:30;not null" json:"nipd"`
	Name      string         `gorm:"column:nama;size:100;not null" json:"nama"`
	Email     *string        `gorm:"size:100" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      domain.Role    `gorm:"size:20;not null;default:user" json:"role"`
	AvatarURL *string        `gorm:"column:foto_profil;size:255" json:"foto_profil"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID        uint        `json:"id"`
	NIPD      string      `json:"nipd"`
	Name      string      `json:"nama"`
	Email     *string     `json:"email"`
	Role      domain.Role `json:"role"`
	AvatarURL *string     `json:"foto_profil"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		NIPD:      u.NIPD,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
	}
}

// ============================================================
// Catalog
// ============================================================

// Book represents books table.
// jumlah_tersedia is the only column the loan engine writes.
type Book struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Code        string            `gorm:"column:kode_buku;uniqueIndex;size:30;not null" json:"kode_buku"`
	Title       string            `gorm:"column:judul;size:255;not null" json:"judul"`
	Author      string            `gorm:"column:pengarang;size:150;not null" json:"pengarang"`
	Publisher   string            `gorm:"column:penerbit;size:150" json:"penerbit"`
	Year        *int              `gorm:"column:tahun_terbit" json:"tahun_terbit"`
	ISBN        string            `gorm:"column:isbn;size:20" json:"isbn"`
	Category    string            `gorm:"column:kategori;size:100" json:"kategori"`
	ShelfLoc    string            `gorm:"column:lokasi_rak;size:50" json:"lokasi_rak"`
	Description string            `gorm:"column:deskripsi;type:text" json:"deskripsi"`
	CoverURL    string            `gorm:"column:cover_url;size:255" json:"cover_url"`
	Total       int               `gorm:"column:jumlah_total;not null;default:1" json:"jumlah_total"`
	Available   int               `gorm:"column:jumlah_tersedia;not null;default:1;check:chk_books_stock,jumlah_tersedia >= 0 AND jumlah_tersedia <= jumlah_total" json:"jumlah_tersedia"`
	Status      domain.BookStatus `gorm:"column:status;size:20;not null;default:active" json:"status"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// IsActive returns true if the book can still be requested
func (b *Book) IsActive() bool {
	return b.Status == "" || b.Status == domain.BookActive
}

// ============================================================
// Loans
// ============================================================

// Loan represents peminjaman table
type Loan struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	Code              string            `gorm:"column:kode_peminjaman;size:40;uniqueIndex;not null" json:"kode_peminjaman"`
	UserID            uint              `gorm:"column:user_id;not null;index" json:"user_id"`
	BookID            uint              `gorm:"column:buku_id;not null;index" json:"buku_id"`
	DesiredReturnDate *time.Time        `gorm:"column:tanggal_pengembalian_diinginkan;type:date" json:"tanggal_pengembalian_diinginkan"`
	DueDate           *time.Time        `gorm:"column:tanggal_kembali;type:date" json:"tanggal_kembali"`
	BorrowDate        *time.Time        `gorm:"column:tanggal_pinjam;type:date" json:"tanggal_pinjam"`
	ReturnedDate      *time.Time        `gorm:"column:tanggal_dikembalikan;type:date" json:"tanggal_dikembalikan"`
	Status            domain.LoanStatus `gorm:"column:status;size:20;not null;index" json:"status"`
	Note              string            `gorm:"column:catatan;type:text" json:"catatan"`
	RejectReason      string            `gorm:"column:alasan_tolak;type:text" json:"alasan_tolak"`
	ApprovedBy        *uint             `gorm:"column:disetujui_oleh" json:"disetujui_oleh"`
	ApprovedAt        *time.Time        `gorm:"column:tanggal_persetujuan" json:"tanggal_persetujuan"`
	OverdueDays       int               `gorm:"column:hari_terlambat;not null;default:0" json:"hari_terlambat"`
	Fine              int64             `gorm:"column:denda;not null;default:0" json:"denda"`
	ExtensionCount    int               `gorm:"column:jumlah_perpanjangan;not null;default:0" json:"jumlah_perpanjangan"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (Loan) TableName() string {
	return "peminjaman"
}

// LoanHistory is the audit trail of a loan's transitions
type LoanHistory struct {
	ID          uint                 `gorm:"primaryKey" json:"id"`
	LoanID      uint                 `gorm:"column:peminjaman_id;not null;index" json:"peminjaman_id"`
	Action      domain.HistoryAction `gorm:"size:20;not null" json:"action"`
	FromStatus  domain.LoanStatus    `gorm:"size:20" json:"from_status"`
	ToStatus    domain.LoanStatus    `gorm:"size:20" json:"to_status"`
	Description string               `gorm:"type:text" json:"description"`
	PerformedBy *uint                `json:"performed_by"`
	CreatedAt   time.Time            `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Performer *User `gorm:"foreignKey:PerformedBy" json:"performer,omitempty"`
}

func (LoanHistory) TableName() string {
	return "peminjaman_riwayat"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Book{},
		&Loan{},
		&LoanHistory{},
	)
}
