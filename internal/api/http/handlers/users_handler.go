package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/query"
	"github.com/spec-kit/user-service/internal/service"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// UsersHandler exposes CRUD endpoints for users.
type UsersHandler struct {
	service  *service.UsersService
	validate *validator.Validate
}

// NewUsersHandler constructs handler.
func NewUsersHandler(usersService *service.UsersService, validate *validator.Validate) *UsersHandler {
	if validate == nil {
		validate = NewValidator()
	}
	return &UsersHandler{service: usersService, validate: validate}
}

// FindAll GET /users.
func (h *UsersHandler) FindAll(c *fiber.Ctx) error {
	users, err := h.service.FindAll(c.UserContext(), query.Parse(c.Queries()))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserListResponse(users))
}

// FindOne GET /users/:upn.
func (h *UsersHandler) FindOne(c *fiber.Ctx) error {
	key, err := h.key(c)
	if err != nil {
		return err
	}
	user, err := h.service.FindOne(c.UserContext(), key)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Create POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validatePayload(h.validate, req); err != nil {
		return err
	}

	user, err := h.service.Create(c.UserContext(), req.Input())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewUserResponse(user))
}

// Update PUT /users/:upn.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	key, err := h.key(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validatePayload(h.validate, req); err != nil {
		return err
	}

	user, err := h.service.Update(c.UserContext(), key, req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Delete DELETE /users/:upn.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	key, err := h.key(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), key); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// key reads the key path parameter. Fiber leaves route params escaped, so
// the value is percent-decoded exactly once here.
func (h *UsersHandler) key(c *fiber.Ctx) (string, error) {
	name := h.service.Metadata().KeyName
	return decodeKey(name, c.Params(name))
}

func decodeKey(name, raw string) (string, error) {
	key, err := url.PathUnescape(raw)
	if err != nil {
		return "", apperrors.NewValidationError("invalid "+name, map[string]any{name: raw})
	}
	return key, nil
}
