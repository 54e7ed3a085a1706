package sales

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kasa-backend/internal/audit"
	"kasa-backend/internal/auth"
	"kasa-backend/internal/models"
	"kasa-backend/internal/shift"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

type CreateSalesEntryRequest struct {
	Date        *string            `json:"date"` // "2025-12-09" formatında, boşsa bugün
	Method      models.SalesMethod `json:"method" validate:"required,oneof=cash pos online"`
	Amount      decimal.Decimal    `json:"amount"`
	Description string             `json:"description" validate:"max=255"`
	ShiftID     *uint              `json:"shift_id"`
	ClientRef   *uuid.UUID         `json:"client_ref"`
	// super_admin için opsiyonel:
	BranchID *uint `json:"branch_id"`
}

type SalesEntryResponse struct {
	ID          uint               `json:"id"`
	BranchID    uint               `json:"branch_id"`
	ShiftID     *uint              `json:"shift_id"`
	Date        string             `json:"date"`
	Method      models.SalesMethod `json:"method"`
	Amount      decimal.Decimal    `json:"amount"`
	Description string             `json:"description"`
}

func toResponse(e models.SalesEntry) SalesEntryResponse {
	return SalesEntryResponse{
		ID:          e.ID,
		BranchID:    e.BranchID,
		ShiftID:     e.ShiftID,
		Date:        e.Date.Format("2006-01-02"),
		Method:      e.Method,
		Amount:      e.Amount,
		Description: e.Description,
	}
}

type Handler struct {
	svc    *Service
	audit  *audit.Writer
	logger *slog.Logger
}

func NewHandler(svc *Service, auditWriter *audit.Writer, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, audit: auditWriter, logger: logger}
}

// -------------------------------------------------
// POST /api/sales-entries
// -------------------------------------------------
func (h *Handler) CreateSalesEntryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSalesEntryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz method (cash|pos|online) veya açıklama")
		}

		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		branchID, err := auth.BranchForRequest(c, body.BranchID)
		if err != nil {
			return err
		}

		var date time.Time
		if body.Date != nil && *body.Date != "" {
			d, err := time.Parse("2006-01-02", *body.Date)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Tarih formatı geçersiz, 'YYYY-MM-DD' olmalı")
			}
			date = d
		}

		entry, err := h.svc.Create(c.UserContext(), CreateInput{
			BranchID:    branchID,
			ShiftID:     body.ShiftID,
			Date:        date,
			Method:      body.Method,
			Amount:      body.Amount,
			Description: body.Description,
			Actor:       actor.UserID,
			ClientRef:   body.ClientRef,
		})
		var vErr *shift.ValidationError
		switch {
		case errors.As(err, &vErr):
			return fiber.NewError(fiber.StatusBadRequest, vErr.Error())
		case errors.Is(err, shift.ErrNotFound):
			return fiber.NewError(fiber.StatusNotFound, "Vardiya bulunamadı")
		case errors.Is(err, shift.ErrShiftClosed):
			return fiber.NewError(fiber.StatusConflict, "Vardiya kapalı, satış eklenemez")
		case err != nil:
			h.logger.Error("ciro kaydı oluşturulamadı", slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "Kayıt oluşturulamadı")
		}

		if logErr := h.audit.WriteLog(c.UserContext(), audit.LogOptions{
			BranchID:    &entry.BranchID,
			UserID:      actor.UserID,
			EntityType:  "sales_entry",
			EntityID:    entry.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Ciro eklendi: %s - %s TL", entry.Method, entry.Amount.StringFixed(2)),
			Data:        toResponse(entry),
		}); logErr != nil {
			// Log hatası kritik değil
			h.logger.Warn("audit log yazılamadı", slog.Any("error", logErr))
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(entry))
	}
}

// -------------------------------------------------
// GET /api/sales-entries?from=2025-12-01&to=2025-12-31&method=cash&shift_id=3
// -------------------------------------------------
func (h *Handler) ListSalesEntriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.BranchFromQuery(c)
		if err != nil {
			return err
		}

		f := ListFilter{BranchID: branchID, Method: models.SalesMethod(c.Query("method"))}
		if f.ShiftID, err = auth.OptionalUintQuery(c, "shift_id"); err != nil {
			return err
		}
		if fromStr := c.Query("from"); fromStr != "" {
			from, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "from tarihi geçersiz")
			}
			f.From = &from
		}
		if toStr := c.Query("to"); toStr != "" {
			to, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "to tarihi geçersiz")
			}
			f.To = &to
		}

		entries, err := h.svc.List(c.UserContext(), f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kayıtlar listelenemedi")
		}

		resp := make([]SalesEntryResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, toResponse(e))
		}
		return c.JSON(resp)
	}
}

// -------------------------------------------------
// GET /api/sales-entries/summary/monthly?year=2025&month=12&branch_id=1
// şube kullanıcıları için branch_id query gerekmez (JWT'den)
// -------------------------------------------------
func (h *Handler) MonthlySummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.BranchFromQuery(c)
		if err != nil {
			return err
		}

		year := c.QueryInt("year")
		month := c.QueryInt("month")
		if year < 2000 {
			return fiber.NewError(fiber.StatusBadRequest, "year geçersiz")
		}
		if month < 1 || month > 12 {
			return fiber.NewError(fiber.StatusBadRequest, "month geçersiz")
		}

		summary, err := h.svc.MonthlySummary(c.UserContext(), branchID, year, month)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Özet hesaplanamadı")
		}
		return c.JSON(summary)
	}
}
