package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dispute-service/internal/api/dto"
	"github.com/spec-kit/dispute-service/internal/service"
)

// AuthHandler exposes registration and one-time code login.
type AuthHandler struct {
	accounts *service.AccountService
	otp      *service.OTPService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(accounts *service.AccountService, otp *service.OTPService) *AuthHandler {
	return &AuthHandler{accounts: accounts, otp: otp}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.accounts.Register(c.UserContext(), service.RegisterInput{
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		NationalID:  req.NationalID,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, fiber.Map{"user": dto.NewUserResponse(user)})
}

// RequestCode handles POST /auth/otp/request. The response does not reveal
// whether the contact is registered.
func (h *AuthHandler) RequestCode(c *fiber.Ctx) error {
	var req dto.OTPRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	warnings, err := h.otp.RequestCode(c.UserContext(), req.Contact)
	if err != nil {
		return err
	}
	return data(c, http.StatusAccepted, fiber.Map{
		"status":   "code_requested",
		"warnings": dto.NewWarningResponses(warnings),
	})
}

// VerifyCode handles POST /auth/otp/verify.
func (h *AuthHandler) VerifyCode(c *fiber.Ctx) error {
	var req dto.OTPVerifyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	token, user, err := h.otp.VerifyCode(c.UserContext(), req.Contact, req.Code)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, fiber.Map{
		"user": dto.NewUserResponse(user),
		"auth": dto.AuthResponse{Token: token.Value, ExpiresAt: token.ExpiresAt},
	})
}
