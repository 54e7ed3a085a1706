package shift

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"kasa-backend/internal/audit"
	"kasa-backend/internal/auth"
	"kasa-backend/internal/models"
	"kasa-backend/internal/prefs"
	"kasa-backend/internal/resolver"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

type OpenShiftRequest struct {
	BranchID    *uint               `json:"branch_id"` // sadece super_admin
	SectionID   uint                `json:"section_id" validate:"required"`
	OpeningCash decimal.NullDecimal `json:"opening_cash"`
}

type CloseShiftRequest struct {
	ClosingCash decimal.NullDecimal `json:"closing_cash"`
}

type MovementRequest struct {
	Type      models.MovementType `json:"type" validate:"required,oneof=pay_in pay_out"`
	Amount    decimal.Decimal     `json:"amount"`
	Note      string              `json:"note" validate:"max=255"`
	ClientRef *uuid.UUID          `json:"client_ref"`
}

type CurrentShiftResponse struct {
	Shift    *models.Shift `json:"shift"`
	Strategy string        `json:"strategy,omitempty"`
	Pinned   bool          `json:"pinned"`
}

type OpenShiftResponse struct {
	Shift   models.Shift `json:"shift"`
	Adopted bool         `json:"adopted"`
}

type CloseShiftResponse struct {
	Summary
	AlreadyClosed bool `json:"already_closed"`
}

type Handler struct {
	svc      *Service
	resolver *resolver.Resolver
	pins     *prefs.PinStore
	hints    *prefs.Store
	audit    *audit.Writer
	logger   *slog.Logger
}

func NewHandler(svc *Service, res *resolver.Resolver, pins *prefs.PinStore, hints *prefs.Store, auditWriter *audit.Writer, logger *slog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		resolver: res,
		pins:     pins,
		hints:    hints,
		audit:    auditWriter,
		logger:   logger,
	}
}

// -------------------------------------------------
// GET /api/shifts/current?branch_id=1&section_id=2
// -------------------------------------------------
func (h *Handler) CurrentShiftHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		branchID, err := auth.BranchFromQuery(c)
		if err != nil {
			return err
		}
		sectionID, err := auth.OptionalUintQuery(c, "section_id")
		if err != nil {
			return err
		}

		ctx := c.UserContext()
		session := resolver.NewSession(h.resolver, resolver.Scope{
			ActorID:      actor.UserID,
			BranchID:     branchID,
			SectionID:    sectionID,
			AuthBranchID: actor.BranchID,
		})

		pinned, err := h.pins.Load(ctx, actor.UserID, branchID)
		if err != nil {
			h.logger.Warn("sabit vardiya okunamadı", slog.Any("error", err))
		}
		if pinned != nil {
			session.Pin(*pinned)
		}

		out, err := session.Refresh(ctx)
		if err != nil {
			h.logger.Error("aktif vardiya çözülemedi", slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "Vardiya bilgisine ulaşılamadı")
		}
		if out.PinnedClosed {
			if err := h.pins.Clear(ctx, actor.UserID, branchID); err != nil {
				h.logger.Warn("sabit vardiya temizlenemedi", slog.Any("error", err))
			}
		}

		_, isPinned := session.Scope().Pinned()
		return c.JSON(CurrentShiftResponse{
			Shift:    out.Shift,
			Strategy: out.Strategy,
			Pinned:   isPinned,
		})
	}
}

// -------------------------------------------------
// POST /api/shifts
// Aynı bölümde açık vardiya varsa 200 ile o döner.
// -------------------------------------------------
func (h *Handler) OpenShiftHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body OpenShiftRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "section_id zorunlu")
		}
		if !body.OpeningCash.Valid {
			return h.httpError(ErrMissingOpeningCash, "Vardiya açılamadı")
		}

		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		branchID, err := auth.BranchForRequest(c, body.BranchID)
		if err != nil {
			return err
		}

		ctx := c.UserContext()
		res, err := h.svc.Open(ctx, OpenInput{
			BranchID:    branchID,
			SectionID:   body.SectionID,
			OpeningCash: body.OpeningCash.Decimal,
			Actor:       actor.UserID,
		})
		if err != nil {
			return h.httpError(err, "Vardiya açılamadı")
		}

		if err := h.pins.Save(ctx, actor.UserID, res.Shift); err != nil {
			h.logger.Warn("vardiya sabitlenemedi", slog.Any("error", err))
		}
		if err := h.hints.RememberSection(ctx, branchID, res.Shift.SectionID); err != nil {
			h.logger.Warn("bölüm ipucu yazılamadı", slog.Any("error", err))
		}

		action, desc := models.AuditActionCreate, "Vardiya açıldı"
		status := fiber.StatusCreated
		if res.Adopted {
			action, desc = models.AuditActionAdopt, "Açık vardiya devralındı"
			status = fiber.StatusOK
		}
		h.writeAudit(c, audit.LogOptions{
			BranchID:    &res.Shift.BranchID,
			UserID:      actor.UserID,
			EntityType:  "shift",
			EntityID:    res.Shift.ID,
			Action:      action,
			Description: fmt.Sprintf("%s (açılış: %s TL)", desc, res.Shift.OpeningCash.StringFixed(2)),
			Data:        res.Shift,
		})

		return c.Status(status).JSON(OpenShiftResponse{Shift: res.Shift, Adopted: res.Adopted})
	}
}

// -------------------------------------------------
// GET /api/shifts?branch_id=&section_id=&status=open&limit=20&offset=0
// -------------------------------------------------
func (h *Handler) ListShiftsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.BranchFromQuery(c)
		if err != nil {
			return err
		}

		f := ListFilter{
			BranchID: &branchID,
			Limit:    c.QueryInt("limit", 0),
			Offset:   c.QueryInt("offset", 0),
		}
		if f.SectionID, err = auth.OptionalUintQuery(c, "section_id"); err != nil {
			return err
		}
		if raw := c.Query("status"); raw != "" {
			status := models.ShiftStatus(raw)
			if status != models.ShiftStatusOpen && status != models.ShiftStatusClosed {
				return fiber.NewError(fiber.StatusBadRequest, "status geçersiz (open|closed)")
			}
			f.Status = &status
		}
		if f.Limit < 0 || f.Offset < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "limit/offset negatif olamaz")
		}

		page, err := h.svc.List(c.UserContext(), f)
		if err != nil {
			return h.httpError(err, "Vardiyalar listelenemedi")
		}
		return c.JSON(page)
	}
}

// GET /api/shifts/:id
func (h *Handler) GetShiftHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sh, err := h.loadShift(c)
		if err != nil {
			return err
		}
		return c.JSON(sh)
	}
}

// GET /api/shifts/:id/summary
func (h *Handler) ShiftSummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sh, err := h.loadShift(c)
		if err != nil {
			return err
		}
		summary, err := h.svc.Summary(c.UserContext(), sh.ID)
		if err != nil {
			return h.httpError(err, "Özet hesaplanamadı")
		}
		return c.JSON(summary)
	}
}

// -------------------------------------------------
// POST /api/shifts/:id/close
// Zaten kapalı vardiya için ilk kapanışın özeti already_closed=true ile döner.
// -------------------------------------------------
func (h *Handler) CloseShiftHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CloseShiftRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if !body.ClosingCash.Valid {
			// Sayım zorunlu, eksik alan sıfır sayılmaz
			return h.httpError(ErrMissingClosingCash, "Vardiya kapatılamadı")
		}

		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		sh, err := h.loadShift(c)
		if err != nil {
			return err
		}

		ctx := c.UserContext()
		summary, err := h.svc.Close(ctx, CloseInput{
			ShiftID:     sh.ID,
			ClosingCash: body.ClosingCash.Decimal,
			Actor:       actor.UserID,
		})
		var closedErr *AlreadyClosedError
		if err != nil && !errors.As(err, &closedErr) {
			return h.httpError(err, "Vardiya kapatılamadı")
		}

		if err := h.pins.Clear(ctx, actor.UserID, sh.BranchID); err != nil {
			h.logger.Warn("sabit vardiya temizlenemedi", slog.Any("error", err))
		}
		if closedErr != nil {
			return c.JSON(CloseShiftResponse{Summary: closedErr.Summary, AlreadyClosed: true})
		}
		h.writeAudit(c, audit.LogOptions{
			BranchID:   &sh.BranchID,
			UserID:     actor.UserID,
			EntityType: "shift",
			EntityID:   sh.ID,
			Action:     models.AuditActionClose,
			Description: fmt.Sprintf("Vardiya kapandı (beklenen: %s TL, fark: %s TL)",
				summary.ExpectedCash.StringFixed(2), summary.Difference.Decimal.StringFixed(2)),
			Data: summary,
		})

		return c.JSON(CloseShiftResponse{Summary: summary})
	}
}

// -------------------------------------------------
// POST /api/shifts/:id/pin
// Kullanıcının şubedeki oturumu için vardiyayı seçer.
// -------------------------------------------------
func (h *Handler) PinShiftHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		sh, err := h.loadShift(c)
		if err != nil {
			return err
		}
		if !sh.IsOpen() {
			return fiber.NewError(fiber.StatusConflict, "Kapalı vardiya seçilemez")
		}
		if err := h.pins.Save(c.UserContext(), actor.UserID, sh); err != nil {
			return h.httpError(err, "Vardiya seçilemedi")
		}
		return c.JSON(CurrentShiftResponse{Shift: &sh, Pinned: true})
	}
}

// -------------------------------------------------
// POST /api/shifts/:id/movements
// -------------------------------------------------
func (h *Handler) RecordMovementHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body MovementRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz hareket tipi (pay_in|pay_out) veya açıklama")
		}

		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		sh, err := h.loadShift(c)
		if err != nil {
			return err
		}

		mov, err := h.svc.RecordMovement(c.UserContext(), MovementInput{
			ShiftID:   sh.ID,
			Type:      body.Type,
			Amount:    body.Amount,
			Note:      body.Note,
			Actor:     actor.UserID,
			ClientRef: body.ClientRef,
		})
		if err != nil {
			return h.httpError(err, "Kasa hareketi kaydedilemedi")
		}

		label := "Kasa girişi"
		if mov.Type == models.MovementPayOut {
			label = "Kasa çıkışı"
		}
		h.writeAudit(c, audit.LogOptions{
			BranchID:    &sh.BranchID,
			UserID:      actor.UserID,
			EntityType:  "cash_movement",
			EntityID:    mov.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%s: %s TL", label, mov.Amount.StringFixed(2)),
			Data:        mov,
		})

		return c.Status(fiber.StatusCreated).JSON(mov)
	}
}

// GET /api/shifts/:id/movements
func (h *Handler) ListMovementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sh, err := h.loadShift(c)
		if err != nil {
			return err
		}
		movs, err := h.svc.ListMovements(c.UserContext(), sh.ID)
		if err != nil {
			return h.httpError(err, "Kasa hareketleri listelenemedi")
		}
		return c.JSON(movs)
	}
}

// loadShift :id parametresindeki vardiyayı okur ve şube erişimini kontrol eder.
func (h *Handler) loadShift(c *fiber.Ctx) (models.Shift, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return models.Shift{}, fiber.NewError(fiber.StatusBadRequest, "Geçersiz vardiya ID")
	}
	actor, err := auth.ActorFrom(c)
	if err != nil {
		return models.Shift{}, err
	}

	sh, err := h.svc.Get(c.UserContext(), uint(id))
	if err != nil {
		return models.Shift{}, h.httpError(err, "Vardiya okunamadı")
	}
	if !actor.CanAccessBranch(sh.BranchID) {
		// Başka şubenin vardiyası 404 döner
		return models.Shift{}, fiber.NewError(fiber.StatusNotFound, "Vardiya bulunamadı")
	}
	return sh, nil
}

func (h *Handler) httpError(err error, fallback string) error {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return fiber.NewError(fiber.StatusBadRequest, vErr.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Vardiya bulunamadı")
	case errors.Is(err, ErrShiftClosed):
		return fiber.NewError(fiber.StatusConflict, "Vardiya kapalı")
	default:
		h.logger.Error(fallback, slog.Any("error", err))
		return fiber.NewError(fiber.StatusInternalServerError, fallback)
	}
}

func (h *Handler) writeAudit(c *fiber.Ctx, opts audit.LogOptions) {
	if err := h.audit.WriteLog(c.UserContext(), opts); err != nil {
		// Log hatası kritik değil
		h.logger.Warn("audit log yazılamadı", slog.Any("error", err))
	}
}
