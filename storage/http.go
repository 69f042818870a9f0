package storage

import (
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// Controller serves the file upload/download endpoints.
type Controller struct {
	store *Store
}

// NewController builds a controller over the store.
func NewController(store *Store) *Controller {
	return &Controller{store: store}
}

// RegisterFileRoutes mounts the controller under /api/files.
func RegisterFileRoutes(app fiber.Router, controller *Controller) {
	grp := app.Group("/api/files")

	grp.Post("/", controller.Upload)
	grp.Get("/:id", controller.Download)
	grp.Get("/:id/info", controller.Stat)
	grp.Delete("/:id", controller.Delete)
}

// Upload accepts a multipart form with a single "file" part.
func (h *Controller) Upload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return respondProblem(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "missing file part").
			WithCode(goerrors.CodeBadRequest))
	}

	file, err := header.Open()
	if err != nil {
		return respondProblem(c, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read upload"))
	}
	defer file.Close()

	obj, err := h.store.Upload(c.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		return respondProblem(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(obj)
}

func (h *Controller) Download(c *fiber.Ctx) error {
	body, obj, err := h.store.Download(c.Context(), c.Params("id"))
	if err != nil {
		return respondProblem(c, err)
	}

	if obj.ContentType != "" {
		c.Set(fiber.HeaderContentType, obj.ContentType)
	}
	if obj.Filename != "" {
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+obj.Filename+`"`)
	}

	return c.SendStream(body)
}

func (h *Controller) Stat(c *fiber.Ctx) error {
	obj, err := h.store.Stat(c.Context(), c.Params("id"))
	if err != nil {
		return respondProblem(c, err)
	}
	return c.JSON(obj)
}

func (h *Controller) Delete(c *fiber.Ctx) error {
	if err := h.store.Delete(c.Context(), c.Params("id")); err != nil {
		return respondProblem(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type problemResponse struct {
	Status    int       `json:"status"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail,omitempty"`
	ErrorCode string    `json:"error_code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func respondProblem(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	title := "Internal Server Error"
	detail := "an unexpected error occurred"
	code := "INTERNAL_ERROR"

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		detail = richErr.Message
		code = richErr.TextCode

		switch {
		case richErr.Code > 0:
			status = int(richErr.Code)
		case richErr.Category == goerrors.CategoryNotFound:
			status = fiber.StatusNotFound
		case richErr.Category == goerrors.CategoryValidation,
			richErr.Category == goerrors.CategoryBadInput:
			status = fiber.StatusBadRequest
		}

		switch richErr.TextCode {
		case textCodeFileNotFound:
			title = "File Not Found"
		case textCodeFileTooLarge:
			title = "File Too Large"
		case textCodeInvalidFileType:
			title = "Invalid File Type"
		case textCodeUploadFailed:
			title = "Upload Failed"
		default:
			title = "Request Failed"
		}
	}

	return c.Status(status).JSON(problemResponse{
		Status:    status,
		Title:     title,
		Detail:    detail,
		ErrorCode: code,
		Timestamp: time.Now().UTC(),
	})
}
