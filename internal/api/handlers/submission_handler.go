package handlers

import (
	"context"
	"time"

	"ressync-audit-service/internal/audit"
	"ressync-audit-service/internal/domain/dtos"
	"ressync-audit-service/internal/forms"
	"ressync-audit-service/internal/services"

	"github.com/go-kit/log"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SubmissionHandler serves the submission target of the governed forms: it
// accepts the multipart POST carrying the native fields and the four audit
// hidden fields, and exposes the audit trail of a record.
type SubmissionHandler struct {
	submissionService services.SubmissionServiceContract
	logger            log.Logger
}

// NewSubmissionHandler creates a SubmissionHandler.
func NewSubmissionHandler(ss services.SubmissionServiceContract, logger log.Logger) *SubmissionHandler {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &SubmissionHandler{
		submissionService: ss,
		logger:            logger,
	}
}

// SubmitForm handles POST /forms/:formType/records and
// POST /forms/:formType/records/:id. The response always carries the
// {success, message, redirect_url, errors} document the form clients expect.
func (h *SubmissionHandler) SubmitForm(c *fiber.Ctx) error {
	formType := c.Params("formType")
	if _, ok := forms.Lookup(formType); !ok {
		return c.Status(fiber.StatusNotFound).JSON(dtos.SubmissionResult{
			Success: false,
			Message: "unknown form type: " + formType,
		})
	}

	recordID := uuid.Nil
	if raw := c.Params("id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dtos.SubmissionResult{
				Success: false,
				Message: "invalid record identifier",
				Errors:  map[string]string{"id": "must be a UUID"},
			})
		}
		recordID = parsed
	}

	form, err := c.MultipartForm()
	if err != nil {
		_ = h.logger.Log("msg", "unreadable submission body", "form", formType, "err", err)
		return c.Status(fiber.StatusBadRequest).JSON(dtos.SubmissionResult{
			Success: false,
			Message: "could not parse the submitted form: " + err.Error(),
		})
	}

	submission := dtos.FormSubmission{
		FormType:    formType,
		RecordID:    recordID,
		Fields:      make(map[string]string),
		SubmittedBy: c.Get("X-Ressync-User"),
		IPAddress:   c.IP(),
	}
	for name, values := range form.Value {
		if len(values) == 0 {
			continue
		}
		value := values[0]
		switch name {
		case audit.OldDataField:
			submission.OldDataJSON = value
		case audit.NewDataField:
			submission.NewDataJSON = value
		case audit.ReasonsField:
			submission.ReasonsJSON = value
		case audit.ReasonSummaryField:
			submission.ReasonSummary = value
		case audit.CSRFTokenField:
			// Token verification is the gateway's job; it is never stored.
		default:
			submission.Fields[name] = value
		}
	}

	ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
	defer cancel()

	storedID, err := h.submissionService.SubmitForm(ctx, submission)
	if err != nil {
		_ = h.logger.Log("msg", "submission rejected", "form", formType, "err", err)
		return c.Status(fiber.StatusBadRequest).JSON(dtos.SubmissionResult{
			Success: false,
			Message: "submission rejected: " + err.Error(),
			Errors:  map[string]string{audit.OldDataField: "audit documents must be valid JSON"},
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(dtos.SubmissionResult{
		Success:     true,
		Message:     "submission queued",
		RedirectURL: "/forms/" + formType + "/records/" + storedID.String(),
	})
}

// GetAuditTrail handles GET /records/:id/audit.
func (h *SubmissionHandler) GetAuditTrail(c *fiber.Ctx) error {
	recordID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dtos.SubmissionResult{
			Success: false,
			Message: "invalid record identifier",
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
	defer cancel()

	trail, err := h.submissionService.GetAuditTrail(ctx, recordID)
	if err != nil {
		_ = h.logger.Log("msg", "audit trail lookup failed", "record", recordID, "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dtos.SubmissionResult{
			Success: false,
			Message: "could not load the audit trail",
		})
	}

	return c.JSON(trail)
}

// RegisterSubmissionRoutes wires the handler into the fiber app.
func RegisterSubmissionRoutes(app *fiber.App, h *SubmissionHandler) {
	formGroup := app.Group("/forms/:formType")
	formGroup.Post("/records", h.SubmitForm)
	formGroup.Post("/records/:id", h.SubmitForm)

	app.Get("/records/:id/audit", h.GetAuditTrail)
}
