package handlers

import (
	"perpus-loan/internal/adapters/http/middleware"
	"perpus-loan/internal/core/domain"
	"perpus-loan/internal/core/services"
	"perpus-loan/internal/pkg/response"
	"perpus-loan/internal/pkg/validator"

	"github.com/gofiber/fiber/v2"
)

// LoanHandler handles the borrower side of /borrow
type LoanHandler struct {
	loans services.LoanEngine
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loans services.LoanEngine) *LoanHandler {
	return &LoanHandler{loans: loans}
}

// Request files a loan request
// @Summary Request a loan
// @Description Borrower asks to borrow a book until the given date. The request waits for a librarian.
// @Tags Borrow
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.RequestLoanInput true "Loan request"
// @Success 201 {object} response.Response{data=models.LoanView}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /borrow/request [post]
func (h *LoanHandler) Request(c *fiber.Ctx) error {
	who, ok := middleware.CurrentCaller(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.RequestLoanInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validator.Struct(&input); err != nil {
		return response.ErrorWithCode(c, fiber.StatusBadRequest, string(domain.KindInvalidArgument), err.Error())
	}

	loan, err := h.loans.RequestLoan(c.UserContext(), who.UserID, &input)
	if err != nil {
		return writeError(c, err)
	}

	return response.Created(c, "Pengajuan peminjaman berhasil dikirim", loan)
}

// My lists the caller's loans
// @Summary My loans
// @Description Lists the caller's loans newest first with live overdue days and fines
// @Tags Borrow
// @Produce json
// @Security BearerAuth
// @Param status query string false "menunggu, dipinjam, terlambat, dikembalikan or ditolak"
// @Success 200 {object} response.Response{data=[]models.LoanView}
// @Failure 400 {object} response.Response
// @Router /borrow/my [get]
func (h *LoanHandler) My(c *fiber.Ctx) error {
	who, ok := middleware.CurrentCaller(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loans, err := h.loans.ListMyLoans(c.UserContext(), who.UserID, domain.LoanStatus(c.Query("status")))
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "", loans)
}

// Get returns one loan
// @Summary Loan detail
// @Tags Borrow
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response{data=models.LoanView}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /borrow/{id} [get]
func (h *LoanHandler) Get(c *fiber.Ctx) error {
	who, ok := middleware.CurrentCaller(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	loan, err := h.loans.GetLoan(c.UserContext(), id, who)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "", loan)
}

// History returns the audit trail of a loan
// @Summary Loan history
// @Tags Borrow
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response{data=[]models.LoanHistory}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /borrow/{id}/history [get]
func (h *LoanHandler) History(c *fiber.Ctx) error {
	who, ok := middleware.CurrentCaller(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	entries, err := h.loans.LoanHistory(c.UserContext(), id, who)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "", entries)
}

// Return hands a borrowed book back
// @Summary Return a book
// @Description Closes the loan, freezes the late fine and puts the copy back on the shelf
// @Tags Borrow
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response{data=domain.ReturnResult}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /borrow/{id}/return [post]
func (h *LoanHandler) Return(c *fiber.Ctx) error {
	who, ok := middleware.CurrentCaller(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	result, err := h.loans.ReturnLoan(c.UserContext(), id, who.UserID)
	if err != nil {
		return writeError(c, err)
	}

	message := "Buku berhasil dikembalikan"
	if result.Fine > 0 {
		message = "Buku dikembalikan terlambat, silakan lunasi denda"
	}
	return response.Success(c, message, result)
}

// Extend pushes the due date forward
// @Summary Extend a loan
// @Tags Borrow
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response{data=models.LoanView}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /borrow/{id}/extend [post]
func (h *LoanHandler) Extend(c *fiber.Ctx) error {
	who, ok := middleware.CurrentCaller(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	loan, err := h.loans.ExtendLoan(c.UserContext(), id, who.UserID)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Peminjaman berhasil diperpanjang", loan)
}
