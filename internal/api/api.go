// Package api is the HTTP surface over the ingestion service.
package api

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/pesobook/pesobook/internal/extractor"
	"github.com/pesobook/pesobook/internal/ingest"
	"github.com/pesobook/pesobook/internal/models"
	"github.com/pesobook/pesobook/internal/parser"
	"github.com/pesobook/pesobook/internal/quality"
	"github.com/pesobook/pesobook/internal/store"
)

var validate = validator.New()

// Handler holds the route handlers.
type Handler struct {
	svc *ingest.Service
	log *slog.Logger
}

// NewApp builds the fiber application with all routes registered.
func NewApp(svc *ingest.Service, log *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 32 << 20, // statement PDFs are small; 32MB is generous
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			}
			return problemJSON(c, status, "Internal Server Error", err.Error())
		},
	})
	app.Use(recover.New())

	h := &Handler{svc: svc, log: log}

	app.Get("/api/health", h.health)
	app.Post("/api/ingest", h.ingest)
	app.Get("/api/duplicates", h.listDuplicates)
	app.Post("/api/resolve", h.resolve)
	app.Post("/api/corrections", h.correct)
	app.Post("/api/transfers/scan", h.transferScan)
	app.Get("/api/uncategorized", h.uncategorized)

	return app
}

func (h *Handler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// ingest accepts a multipart upload: file (required), plus optional
// provider, password, and alias form fields.
func (h *Handler) ingest(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return problemJSON(c, fiber.StatusBadRequest, "Missing upload", "use form field 'file'")
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") {
		return problemJSON(c, fiber.StatusBadRequest, "Unsupported file type", "only PDF statements are accepted")
	}

	provider := models.ProviderFormat(strings.ToLower(c.FormValue("provider")))
	if provider != models.ProviderUnknown {
		// Reject a bad provider hint before touching the file.
		if _, err := parser.New(provider); err != nil {
			return ingestProblem(c, err)
		}
	}

	tmp, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return problemJSON(c, fiber.StatusInternalServerError, "Upload failed", err.Error())
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveFile(file, tmpPath); err != nil {
		return problemJSON(c, fiber.StatusInternalServerError, "Upload failed", err.Error())
	}

	opts := ingest.IngestOptions{
		Provider:     provider,
		Password:     c.FormValue("password"),
		AccountAlias: c.FormValue("alias"),
	}
	if opts.AccountAlias == "" {
		opts.AccountAlias = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}

	result, err := h.svc.Ingest(tmpPath, opts)
	if err != nil {
		return ingestProblem(c, err)
	}
	return c.JSON(result)
}

// ingestProblem maps pipeline errors onto HTTP statuses with enough detail
// for the caller to re-prompt (wrong password vs password required, etc.).
func ingestProblem(c *fiber.Ctx, err error) error {
	var docErr *extractor.DocumentError
	if errors.As(err, &docErr) {
		status := fiber.StatusUnprocessableEntity
		if docErr.Kind == extractor.KindPasswordRequired || docErr.Kind == extractor.KindWrongPassword {
			status = fiber.StatusUnauthorized
		}
		return problemJSON(c, status, "Document error", docErr.Error())
	}
	var noExport *parser.NoExportError
	if errors.As(err, &noExport) {
		return problemJSON(c, fiber.StatusUnprocessableEntity, "Unsupported provider", noExport.Error())
	}
	if errors.Is(err, parser.ErrUnknownFormat) {
		return problemJSON(c, fiber.StatusUnprocessableEntity, "Unknown statement format", err.Error())
	}
	if errors.Is(err, parser.ErrUnsupportedProvider) {
		return problemJSON(c, fiber.StatusBadRequest, "Unknown provider", err.Error())
	}
	var gateErr *quality.GateError
	if errors.As(err, &gateErr) {
		return problemJSON(c, fiber.StatusUnprocessableEntity, "Statement quality too low", gateErr.Error())
	}
	return problemJSON(c, fiber.StatusInternalServerError, "Ingestion failed", err.Error())
}

func (h *Handler) listDuplicates(c *fiber.Ctx) error {
	var accountID *uuid.UUID
	if raw := c.Query("account"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return problemJSON(c, fiber.StatusBadRequest, "Invalid account id", err.Error())
		}
		accountID = &id
	}

	reviews, err := h.svc.ReviewDuplicates(accountID)
	if err != nil {
		return problemJSON(c, fiber.StatusInternalServerError, "Listing reviews failed", err.Error())
	}
	return c.JSON(fiber.Map{"pending": reviews, "count": len(reviews)})
}

type resolveRequest struct {
	Action  string `json:"action" validate:"required,oneof=merge keep-both link-transfer"`
	KeepID  string `json:"keep_id" validate:"required,uuid4"`
	OtherID string `json:"other_id" validate:"required,uuid4"`
}

func (h *Handler) resolve(c *fiber.Ctx) error {
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return problemJSON(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return problemJSON(c, fiber.StatusBadRequest, "Validation failed", err.Error())
	}

	keepID, _ := uuid.Parse(req.KeepID)
	otherID, _ := uuid.Parse(req.OtherID)
	if err := h.svc.Resolve(ingest.ResolveAction(req.Action), keepID, otherID); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			return problemJSON(c, fiber.StatusConflict, "Invalid status transition", err.Error())
		}
		return problemJSON(c, fiber.StatusInternalServerError, "Resolution failed", err.Error())
	}
	return c.JSON(fiber.Map{"resolved": true})
}

type correctionRequest struct {
	Pattern  string `json:"pattern" validate:"required,min=2,max=128"`
	Merchant string `json:"merchant" validate:"required,max=128"`
	Category string `json:"category" validate:"required"`
}

func (h *Handler) correct(c *fiber.Ctx) error {
	var req correctionRequest
	if err := c.BodyParser(&req); err != nil {
		return problemJSON(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return problemJSON(c, fiber.StatusBadRequest, "Validation failed", err.Error())
	}
	cat, ok := models.ParseCategory(req.Category)
	if !ok {
		return problemJSON(c, fiber.StatusBadRequest, "Unknown category", req.Category)
	}

	updated, err := h.svc.CorrectMerchant(req.Pattern, req.Merchant, cat)
	if err != nil {
		return problemJSON(c, fiber.StatusInternalServerError, "Correction failed", err.Error())
	}
	return c.JSON(fiber.Map{"retroactive_updates": updated})
}

type transferScanRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

func (h *Handler) transferScan(c *fiber.Ctx) error {
	var req transferScanRequest
	if err := c.BodyParser(&req); err != nil {
		return problemJSON(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return problemJSON(c, fiber.StatusBadRequest, "Validation failed", err.Error())
	}
	from, err := time.ParseInLocation("2006-01-02", req.From, models.Manila)
	if err != nil {
		return problemJSON(c, fiber.StatusBadRequest, "Invalid from date", err.Error())
	}
	to, err := time.ParseInLocation("2006-01-02", req.To, models.Manila)
	if err != nil {
		return problemJSON(c, fiber.StatusBadRequest, "Invalid to date", err.Error())
	}

	linked, err := h.svc.TransferScan(from, to.Add(24*time.Hour-time.Second))
	if err != nil {
		return problemJSON(c, fiber.StatusInternalServerError, "Transfer scan failed", err.Error())
	}
	return c.JSON(fiber.Map{"linked_pairs": linked})
}

func (h *Handler) uncategorized(c *fiber.Ctx) error {
	n, err := h.svc.UncategorizedCount()
	if err != nil {
		return problemJSON(c, fiber.StatusInternalServerError, "Count failed", err.Error())
	}
	return c.JSON(fiber.Map{"uncategorized": n})
}

// problemDetails follows RFC 9457.
type problemDetails struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func problemJSON(c *fiber.Ctx, status int, title, detail string) error {
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(status).JSON(problemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.OriginalURL(),
	})
}
