package models

import (
	"time"

	"perpus-loan/internal/core/domain"
)

// BookSummary is the book part of a loan view
type BookSummary struct {
	ID       uint   `json:"id"`
	Code     string `json:"kode_buku"`
	Title    string `json:"judul"`
	Author   string `json:"pengarang"`
	CoverURL string `json:"cover_url,omitempty"`
}

// BorrowerSummary is the borrower part of an admin loan view
type BorrowerSummary struct {
	ID    uint    `json:"id"`
	NIPD  string  `json:"nipd"`
	Name  string  `json:"nama"`
	Email *string `json:"email,omitempty"`
}

// LoanView is a loan as exposed to readers on a given day.
// Status, overdue days and fine are derived, never read raw.
type LoanView struct {
	ID                uint              `json:"id"`
	Code              string            `json:"kode_peminjaman"`
	UserID            uint              `json:"user_id"`
	BookID            uint              `json:"buku_id"`
	Status            domain.LoanStatus `json:"status"`
	DesiredReturnDate *string           `json:"tanggal_pengembalian_diinginkan"`
	BorrowDate        *string           `json:"tanggal_pinjam"`
	DueDate           *string           `json:"tanggal_kembali"`
	ReturnedDate      *string           `json:"tanggal_dikembalikan"`
	OverdueDays       int               `json:"hari_terlambat"`
	Fine              int64             `json:"denda"`
	Note              string            `json:"catatan,omitempty"`
	RejectReason      string            `json:"alasan_tolak,omitempty"`
	ApprovedBy        *uint             `json:"disetujui_oleh,omitempty"`
	ApprovedAt        *time.Time        `json:"tanggal_persetujuan,omitempty"`
	ExtensionCount    int               `json:"jumlah_perpanjangan"`
	WaitingDays       *int              `json:"hari_menunggu,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	Book              *BookSummary      `json:"buku,omitempty"`
	Borrower          *BorrowerSummary  `json:"peminjam,omitempty"`
}

// DerivedStatus implements domain.Rankable
func (v *LoanView) DerivedStatus() domain.LoanStatus {
	return v.Status
}

// Created implements domain.Rankable
func (v *LoanView) Created() time.Time {
	return v.CreatedAt
}

// Accrual derives the loan's lateness on `today`
func (l *Loan) Accrual(today time.Time, finePerDay int64) domain.Accrual {
	return domain.Accrue(l.Status, l.DueDate, l.OverdueDays, l.Fine, today, finePerDay)
}

// ToView builds the read model of a loan. withBorrower adds the borrower
// identity for admin listings.
func (l *Loan) ToView(today time.Time, finePerDay int64, withBorrower bool) *LoanView {
	acc := l.Accrual(today, finePerDay)

	v := &LoanView{
		ID:                l.ID,
		Code:              l.Code,
		UserID:            l.UserID,
		BookID:            l.BookID,
		Status:            acc.Status,
		DesiredReturnDate: domain.FormatDate(l.DesiredReturnDate),
		BorrowDate:        domain.FormatDate(l.BorrowDate),
		DueDate:           domain.FormatDate(l.DueDate),
		ReturnedDate:      domain.FormatDate(l.ReturnedDate),
		OverdueDays:       acc.OverdueDays,
		Fine:              acc.Fine,
		Note:              l.Note,
		RejectReason:      l.RejectReason,
		ApprovedBy:        l.ApprovedBy,
		ApprovedAt:        l.ApprovedAt,
		ExtensionCount:    l.ExtensionCount,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}

	if l.Book != nil {
		v.Book = &BookSummary{
			ID:       l.Book.ID,
			Code:     l.Book.Code,
			Title:    l.Book.Title,
			Author:   l.Book.Author,
			CoverURL: l.Book.CoverURL,
		}
	}
	if withBorrower && l.User != nil {
		v.Borrower = &BorrowerSummary{
			ID:    l.User.ID,
			NIPD:  l.User.NIPD,
			Name:  l.User.Name,
			Email: l.User.Email,
		}
	}

	return v
}
