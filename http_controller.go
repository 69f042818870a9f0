package accounts

import (
	"errors"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

const (
	headerActorID   = "X-Actor-Id"
	headerActorType = "X-Actor-Type"

	actorTypeAdmin = "admin"
	actorTypeUser  = "user"
)

// CreateUserPayload is the request body for user creation.
type CreateUserPayload struct {
	ID        string `json:"id,omitempty"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone_number"`
}

// Validate implements the payload contract. Identifiers are always
// server-generated, so a client-supplied id is rejected outright.
func (p CreateUserPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.By(func(any) error {
			if p.ID != "" {
				return errors.New("id is assigned by the server")
			}
			return nil
		})),
		validation.Field(&p.Username,
			validation.Required.Error("username is required"),
			validation.Length(1, 25).Error("username must not exceed 25 characters"),
			validation.Match(usernamePattern).Error("username must contain only alphanumeric characters"),
		),
		validation.Field(&p.Email,
			validation.Required.Error("email is required"),
			is.Email.Error("email must be a valid email address"),
		),
		validation.Field(&p.Password, validation.By(func(any) error {
			return ValidatePassword(p.Password)
		})),
		validation.Field(&p.Phone, validation.By(validatePhone)),
	)
}

// UpdateUserPayload is the request body for user updates. Password is
// optional: when empty the stored hash is kept.
type UpdateUserPayload struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone_number"`
}

func (p UpdateUserPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username,
			validation.Required.Error("username is required"),
			validation.Length(1, 25).Error("username must not exceed 25 characters"),
			validation.Match(usernamePattern).Error("username must contain only alphanumeric characters"),
		),
		validation.Field(&p.Email,
			validation.Required.Error("email is required"),
			is.Email.Error("email must be a valid email address"),
		),
		validation.Field(&p.Password, validation.By(func(any) error {
			if p.Password == "" {
				return nil
			}
			return ValidatePassword(p.Password)
		})),
		validation.Field(&p.Phone, validation.By(validatePhone)),
	)
}

func validatePhone(value any) error {
	phone, _ := value.(string)
	if phone == "" {
		return nil
	}
	parsed, err := phonenumbers.Parse(phone, "US")
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return errors.New("phone number is not valid")
	}
	return nil
}

// UserResponse is the wire representation of a user.
type UserResponse struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	Phone     string     `json:"phone_number,omitempty"`
	Status    UserStatus `json:"status"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func toUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toUserResponses(records []*User) []UserResponse {
	out := make([]UserResponse, len(records))
	for i, u := range records {
		out[i] = toUserResponse(u)
	}
	return out
}

// UserController serves the user CRUD and lifecycle endpoints.
type UserController struct {
	Logger Logger
	Repo   RepositoryManager
}

// UserControllerOption customizes the controller.
type UserControllerOption func(*UserController)

// WithUserControllerLogger overrides the controller logger.
func WithUserControllerLogger(logger Logger) UserControllerOption {
	return func(c *UserController) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// NewUserController builds a controller over the repository manager.
func NewUserController(repo RepositoryManager, opts ...UserControllerOption) *UserController {
	c := &UserController{
		Logger: defLogger{},
		Repo:   repo,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// RegisterUserRoutes mounts the controller under /api/users.
func RegisterUserRoutes(app fiber.Router, controller *UserController) {
	grp := app.Group("/api/users")

	grp.Post("/", controller.Create)
	grp.Get("/", controller.List)
	grp.Get("/active", controller.ListActive)
	grp.Get("/status/:status", controller.ListByStatus)
	grp.Get("/username/:username", controller.GetByUsername)
	grp.Get("/:id", controller.GetByID)
	grp.Put("/:id", controller.Update)
	grp.Delete("/:id", controller.Delete)
	grp.Patch("/:id/deactivate", controller.Deactivate)
	grp.Patch("/:id/reactivate", controller.Reactivate)
	grp.Patch("/:id/suspend", controller.Suspend)
	grp.Patch("/:id/lock", controller.Lock)
	grp.Patch("/:id/status", controller.UpdateStatus)
}

func (h *UserController) Create(c *fiber.Ctx) error {
	payload := CreateUserPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return respondError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return respondError(c, err)
	}

	hash, err := HashPassword(payload.Password)
	if err != nil {
		return respondError(c, err)
	}

	user := NewUser(payload.Username, payload.Email, hash)
	user.FirstName = payload.FirstName
	user.LastName = payload.LastName
	user.Phone = payload.Phone

	record, err := h.Repo.Users().Create(c.Context(), user)
	if err != nil {
		return respondError(c, err)
	}

	h.Logger.Info("user created id=%s username=%s", record.ID, record.Username)

	return c.Status(fiber.StatusCreated).JSON(toUserResponse(record))
}

func (h *UserController) List(c *fiber.Ctx) error {
	records, err := h.Repo.Users().List(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toUserResponses(records))
}

func (h *UserController) ListActive(c *fiber.Ctx) error {
	records, err := h.Repo.Users().ListByStatus(c.Context(), UserStatusActive)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toUserResponses(records))
}

func (h *UserController) ListByStatus(c *fiber.Ctx) error {
	status, err := ParseUserStatus(c.Params("status"))
	if err != nil {
		return respondError(c, err)
	}

	records, err := h.Repo.Users().ListByStatus(c.Context(), status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toUserResponses(records))
}

func (h *UserController) GetByID(c *fiber.Ctx) error {
	record, err := h.Repo.Users().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toUserResponse(record))
}

func (h *UserController) GetByUsername(c *fiber.Ctx) error {
	record, err := h.Repo.Users().GetByUsername(c.Context(), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toUserResponse(record))
}

func (h *UserController) Update(c *fiber.Ctx) error {
	payload := UpdateUserPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return respondError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return respondError(c, err)
	}

	record, err := h.Repo.Users().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	record.Username = payload.Username
	record.Email = payload.Email
	record.FirstName = payload.FirstName
	record.LastName = payload.LastName
	record.Phone = payload.Phone

	if payload.Password != "" {
		hash, err := HashPassword(payload.Password)
		if err != nil {
			return respondError(c, err)
		}
		record.PasswordHash = hash
	}

	updated, err := h.Repo.Users().Update(c.Context(), record)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(toUserResponse(updated))
}

// Delete performs a soft delete: the record is kept, its status moves to
// deleted. Repeating the call is a no-op success.
func (h *UserController) Delete(c *fiber.Ctx) error {
	record, err := h.Repo.Users().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	if _, err := h.Repo.Users().SoftDelete(c.Context(), actorFromRequest(c), record); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *UserController) Deactivate(c *fiber.Ctx) error {
	return h.transitionTo(c, UserStatusInactive)
}

// Reactivate moves an account back to active. Accounts in a status that
// cannot self-reactivate (suspended, locked) need an admin actor.
func (h *UserController) Reactivate(c *fiber.Ctx) error {
	record, err := h.Repo.Users().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	actor := actorFromRequest(c)
	if !record.Status.CanSelfReactivate() && !record.IsDeleted() && actor.Type != actorTypeAdmin {
		return respondError(c, goerrors.New("status requires an administrator to reactivate", goerrors.CategoryAuth).
			WithTextCode("REACTIVATION_FORBIDDEN").
			WithMetadata(map[string]any{
				"status": record.Status.String(),
			}))
	}

	if _, err := h.Repo.Users().Reactivate(c.Context(), actor, record); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *UserController) Suspend(c *fiber.Ctx) error {
	return h.transitionTo(c, UserStatusSuspended)
}

func (h *UserController) Lock(c *fiber.Ctx) error {
	return h.transitionTo(c, UserStatusLocked)
}

func (h *UserController) UpdateStatus(c *fiber.Ctx) error {
	status, err := ParseUserStatus(c.Query("status"))
	if err != nil {
		return respondError(c, err)
	}
	return h.transitionTo(c, status)
}

func (h *UserController) transitionTo(c *fiber.Ctx, target UserStatus) error {
	record, err := h.Repo.Users().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	if _, err := h.Repo.Users().Transition(c.Context(), actorFromRequest(c), record, target); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func actorFromRequest(c *fiber.Ctx) ActorRef {
	actor := ActorRef{
		ID:   c.Get(headerActorID),
		Type: c.Get(headerActorType),
	}
	if actor.Type == "" {
		actor.Type = actorTypeUser
	}
	return actor
}
