package handlers

import (
	"perpus-loan/internal/adapters/http/middleware"
	"perpus-loan/internal/core/domain"
	"perpus-loan/internal/core/services"
	"perpus-loan/internal/pkg/pagination"
	"perpus-loan/internal/pkg/response"
	"perpus-loan/internal/pkg/validator"

	"github.com/gofiber/fiber/v2"
)

// AdminLoanHandler handles the librarian side of /admin/borrow
type AdminLoanHandler struct {
	loans services.LoanEngine
}

// NewAdminLoanHandler creates a new admin loan handler
func NewAdminLoanHandler(loans services.LoanEngine) *AdminLoanHandler {
	return &AdminLoanHandler{loans: loans}
}

// RejectRequest represents reject request body
type RejectRequest struct {
	Reason string `json:"alasan" validate:"required,max=500"`
}

// All lists every loan
// @Summary All loans
// @Description Pending first, then late, active, returned and rejected. Newest first inside each group.
// @Tags Admin Borrow
// @Produce json
// @Security BearerAuth
// @Param status query string false "Derived status filter"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response{data=services.ListLoansOutput}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/borrow/all [get]
func (h *AdminLoanHandler) All(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	out, err := h.loans.ListAllLoans(c.UserContext(), services.ListLoansInput{
		Status: domain.LoanStatus(c.Query("status")),
		Page:   params.Page,
		Limit:  params.Limit,
	})
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "", out)
}

// Pending lists requests waiting for a decision
// @Summary Pending requests
// @Description Oldest first, with hari_menunggu
// @Tags Admin Borrow
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]models.LoanView}
// @Router /admin/borrow/pending [get]
func (h *AdminLoanHandler) Pending(c *fiber.Ctx) error {
	loans, err := h.loans.ListPendingLoans(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "", loans)
}

// Stats summarizes the loan table
// @Summary Loan statistics
// @Tags Admin Borrow
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=domain.LoanStats}
// @Router /admin/borrow/stats [get]
func (h *AdminLoanHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.loans.LoanStats(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "", stats)
}

// Approve approves a pending request
// @Summary Approve a loan
// @Description Takes one copy off the shelf. Due date is the requested return date.
// @Tags Admin Borrow
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response{data=models.LoanView}
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/borrow/{id}/approve [post]
func (h *AdminLoanHandler) Approve(c *fiber.Ctx) error {
	who, ok := middleware.CurrentCaller(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	loan, err := h.loans.ApproveLoan(c.UserContext(), id, who.UserID)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Peminjaman disetujui", loan)
}

// Reject rejects a pending request
// @Summary Reject a loan
// @Tags Admin Borrow
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body RejectRequest true "Rejection reason"
// @Success 200 {object} response.Response{data=models.LoanView}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/borrow/{id}/reject [post]
func (h *AdminLoanHandler) Reject(c *fiber.Ctx) error {
	who, ok := middleware.CurrentCaller(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	var req RejectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validator.Struct(&req); err != nil {
		return response.ErrorWithCode(c, fiber.StatusBadRequest, string(domain.KindInvalidArgument), err.Error())
	}

	loan, err := h.loans.RejectLoan(c.UserContext(), id, who.UserID, req.Reason)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Peminjaman ditolak", loan)
}

// SweepOverdue runs the overdue sweep now
// @Summary Run overdue sweep
// @Tags Admin Borrow
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=services.SweepResult}
// @Router /admin/borrow/sweep-overdue [post]
func (h *AdminLoanHandler) SweepOverdue(c *fiber.Ctx) error {
	result, err := h.loans.SweepOverdue(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Pemeriksaan keterlambatan selesai", result)
}
