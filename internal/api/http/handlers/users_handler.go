package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/service"
	"github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// UsersHandler exposes the register, login and identity endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}

	if err := h.auth.Register(c.UserContext(), req.Username, req.Password); err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(dto.MessageResponse{Message: "User registered successfully"})
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}

	issued, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(dto.AuthResponse{Token: issued.Token, ExpiresAt: issued.ExpiresAt})
}

func invalidPayload() error {
	return errorutil.NewValidationError("invalid payload", map[string]any{
		"expected": "JSON object with username and password",
	})
}

// Me handles GET /auth/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	subject, ok := auth.SubjectFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	return c.JSON(dto.SubjectResponse{Subject: subject})
}
