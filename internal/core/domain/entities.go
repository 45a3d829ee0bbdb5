package domain

import "time"

// Role represents user role in the system
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Caller identifies who is invoking a loan operation
type Caller struct {
	UserID uint
	Role   Role
}

// IsAdmin returns true if the caller holds the admin role
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// LoanStatus is the lifecycle status of a loan.
// Only menunggu, dipinjam, dikembalikan and ditolak are written by the engine;
// terlambat is derived from dipinjam at read time.
type LoanStatus string

const (
	StatusPending  LoanStatus = "menunggu"
	StatusBorrowed LoanStatus = "dipinjam"
	StatusLate     LoanStatus = "terlambat"
	StatusReturned LoanStatus = "dikembalikan"
	StatusRejected LoanStatus = "ditolak"
)

// OpenStatuses are the stored statuses of a loan the borrower still holds
var OpenStatuses = []LoanStatus{StatusBorrowed, StatusLate}

// CapacityStatuses count towards the borrower's simultaneous loan limit
var CapacityStatuses = []LoanStatus{StatusPending, StatusBorrowed, StatusLate}

// IsOpen reports whether the book is currently held by the borrower
func (s LoanStatus) IsOpen() bool {
	return s == StatusBorrowed || s == StatusLate
}

// IsValid reports whether s is a known status
func (s LoanStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusBorrowed, StatusLate, StatusReturned, StatusRejected:
		return true
	}
	return false
}

// BookStatus is the catalog lifecycle of a book
type BookStatus string

const (
	BookActive   BookStatus = "active"
	BookInactive BookStatus = "inactive"
)

// HistoryAction names a recorded loan transition
type HistoryAction string

const (
	ActionRequest HistoryAction = "request"
	ActionApprove HistoryAction = "approve"
	ActionReject  HistoryAction = "reject"
	ActionReturn  HistoryAction = "return"
	ActionExtend  HistoryAction = "extend"
)

// ReturnResult is handed back to the borrower after a return
type ReturnResult struct {
	LoanID      uint   `json:"id"`
	Code        string `json:"kode_peminjaman"`
	ReturnedOn  string `json:"tanggal_dikembalikan"`
	OverdueDays int    `json:"hari_terlambat"`
	Fine        int64  `json:"denda"`
}

// LoanStats summarizes the loan table for the admin dashboard
type LoanStats struct {
	ByStatus         map[LoanStatus]int64 `json:"per_status"`
	OutstandingFines int64                `json:"denda_berjalan"`
	CollectedFines   int64                `json:"denda_terkumpul"`
	BooksOnLoan      int64                `json:"buku_dipinjam"`
	AvailableCopies  int64                `json:"eksemplar_tersedia"`
	GeneratedAt      time.Time            `json:"generated_at"`
}
