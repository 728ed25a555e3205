package http

import (
	"errors"
	"net/http"
	"time"

	customErrors "github.com/casaviva/auth-service/internal/domain/auth/errors"
	"github.com/casaviva/auth-service/internal/domain/auth/model"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Code    string       `json:"code,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// UserResponse is the client-facing view of a user. The password hash never
// leaves the service.
type UserResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Phone         string     `json:"phone,omitempty"`
	NationalID    string     `json:"nationalId,omitempty"`
	Role          model.Role `json:"role"`
	IsActive      bool       `json:"isActive"`
	EmailVerified bool       `json:"emailVerified"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func toUserResponse(u model.User) UserResponse {
	out := UserResponse{
		ID:            u.ID.String(),
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Phone:         u.Phone,
		Role:          u.Role,
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
	if u.NationalID != nil {
		out.NationalID = *u.NationalID
	}
	return out
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

// respondError maps a domain error onto its HTTP status and machine code.
// Unexpected failures are logged with full context and reported as a
// generic internal error.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	code := customErrors.Code(err)

	switch {
	case customErrors.IsInvalidArgument(err):
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: err.Error(), Code: code})
	case errors.Is(err, customErrors.ErrInvalidCurrentPassword):
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: err.Error(), Code: code})
	case errors.Is(err, customErrors.ErrEmailAlreadyVerified):
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: err.Error(), Code: code})
	case customErrors.IsUnauthorized(err):
		c.JSON(http.StatusUnauthorized, Response{Success: false, Message: err.Error(), Code: code})
	case customErrors.IsForbidden(err):
		c.JSON(http.StatusForbidden, Response{Success: false, Message: err.Error(), Code: code})
	case customErrors.IsConflict(err):
		c.JSON(http.StatusConflict, Response{Success: false, Message: err.Error(), Code: code})
	case customErrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, Response{Success: false, Message: err.Error(), Code: code})
	default:
		log.Error("unexpected error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Message: "internal server error",
			Code:    "INTERNAL_ERROR",
		})
	}
}

// respondValidation turns validator failures into a 400 with a field-level
// detail list.
func respondValidation(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Message: "invalid request body",
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Message: validationMessage(fe),
		})
	}
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Message: "validation failed",
		Code:    "VALIDATION_ERROR",
		Errors:  fields,
	})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "strongpwd":
		return "must be at least 8 characters with one lowercase, one uppercase, one digit and one symbol"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "uuid":
		return "must be a valid UUID"
	default:
		return "is invalid"
	}
}
