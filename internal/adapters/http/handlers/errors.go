package handlers

import (
	"errors"

	"perpus-loan/internal/core/domain"
	"perpus-loan/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

var kindStatus = map[domain.ErrorKind]int{
	domain.KindNotFound:         fiber.StatusNotFound,
	domain.KindForbidden:        fiber.StatusForbidden,
	domain.KindAlreadyProcessed: fiber.StatusConflict,
	domain.KindInvalidState:     fiber.StatusConflict,
	domain.KindBookUnavailable:  fiber.StatusConflict,
	domain.KindCapacityExceeded: fiber.StatusUnprocessableEntity,
	domain.KindInvalidArgument:  fiber.StatusBadRequest,
}

// writeError maps a service error onto the response envelope.
// Internal failures never leak their message.
func writeError(c *fiber.Ctx, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		status, ok := kindStatus[de.Kind]
		if !ok {
			status = fiber.StatusInternalServerError
		}
		return response.ErrorWithCode(c, status, string(de.Kind), de.Message)
	}
	return response.ErrorWithCode(c, fiber.StatusInternalServerError, string(domain.KindInternal), "Internal server error")
}

// paramID reads a positive numeric route parameter
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, domain.InvalidArgument("invalid " + name)
	}
	return uint(id), nil
}
