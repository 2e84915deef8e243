package api

import (
	"github.com/gofiber/fiber/v2"
)

const (
	StatusOk             = fiber.StatusOK
	StatusBadRequest     = fiber.StatusBadRequest
	StatusNotFound       = fiber.StatusNotFound
	StatusUnauthorized   = fiber.StatusUnauthorized
	StatusCreated        = fiber.StatusCreated
	StatusRequestTimeout = fiber.StatusRequestTimeout
)

// MaxRunOps caps the total operations of a run submitted over the API.
const MaxRunOps = 100_000

const (
	ErrBadRequest          = "bad request body"
	ErrUnauthorized        = "authorization failed"
	ErrBadUsernamePassword = "invalid username or password"
	ErrBadReportID         = "invalid report id"
	ErrReportNotFound      = "report not found"
	ErrRunTooLarge         = "run exceeds the operation limit"
	ErrRunTimeout          = "run timed out"
)

type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Page is the paging window of a report listing.
type Page struct {
	Limit  int `validate:"gte=1,lte=100"`
	Offset int `validate:"gte=0"`
}
