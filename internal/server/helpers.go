package server

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"discussify/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten signals that a helper already wrote the error response.
// Handlers receiving it must return nil so fiber's ErrorHandler does not
// clobber the body.
var errResponseWritten = errors.New("response already written")

const maxPaginationLimit = 100

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination reads limit and offset from the query string. Out-of-range
// values are clamped rather than rejected.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	p := Pagination{
		Limit:  c.QueryInt("limit", defaultLimit),
		Offset: c.QueryInt("offset", 0),
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	} else if p.Limit > maxPaginationLimit {
		p.Limit = maxPaginationLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// parseID reads a positive numeric route parameter. A bad value gets a 400
// written here; the caller sees errResponseWritten and must return nil.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 32)
	if err != nil || id == 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam renders a camelCase route parameter as an error-message
// label: "id" becomes "ID", "userId" becomes "user ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	stem, ok := strings.CutSuffix(param, "Id")
	if !ok {
		return param
	}

	var b strings.Builder
	for i, r := range stem {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	b.WriteString(" ID")
	return b.String()
}

// successEnvelope is the standard success payload shape.
type successEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// respondData writes a success envelope carrying a single object.
func respondData(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(successEnvelope{Success: true, Data: data})
}

// respondList writes a success envelope carrying a collection and its count.
func respondList(c *fiber.Ctx, data any, count int) error {
	return c.Status(fiber.StatusOK).JSON(successEnvelope{Success: true, Count: &count, Data: data})
}

// respondMessage writes a success envelope with a human-readable message and
// optional data.
func respondMessage(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(successEnvelope{Success: true, Message: message, Data: data})
}

// currentUserID reads the authenticated user ID set by AuthRequired.
func currentUserID(c *fiber.Ctx) uint {
	return c.Locals("userID").(uint)
}
