package shift_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"kasa-backend/internal/audit"
	"kasa-backend/internal/auth"
	"kasa-backend/internal/database/dbtest"
	"kasa-backend/internal/logging"
	"kasa-backend/internal/models"
	"kasa-backend/internal/prefs"
	"kasa-backend/internal/resolver"
	"kasa-backend/internal/sales"
	"kasa-backend/internal/sections"
	"kasa-backend/internal/shift"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type harness struct {
	t        *testing.T
	app      *fiber.App
	db       *gorm.DB
	sales    *sales.Service
	mr       *miniredis.Miniredis
	sections []models.Section
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := dbtest.Open(t)
	require.NoError(t, db.Create(&models.Branch{ID: 1, Name: "Merkez"}).Error)
	require.NoError(t, db.Create(&models.Branch{ID: 2, Name: "Kadıköy"}).Error)

	ctx := context.Background()
	dir := sections.NewDirectory(db)
	s1, err := dir.CreateSection(ctx, 1, "Bahçe")
	require.NoError(t, err)
	s2, err := dir.CreateSection(ctx, 1, "Salon")
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client, err := prefs.NewClient(ctx, mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	logger := logging.Discard()
	prefStore := prefs.NewStore(client)
	salesSvc := sales.NewService(db)
	svc := shift.NewService(shift.NewGormRepository(db), salesSvc, dir, logger)
	res := resolver.New(svc, dir, prefStore, resolver.Options{
		ProbeTimeout:       2 * time.Second,
		SectionConcurrency: 2,
		Logger:             logger,
	})
	h := shift.NewHandler(svc, res, prefs.NewPinStore(client, time.Hour), prefStore, audit.NewWriter(db), logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	api := app.Group("/api", auth.JWTMiddleware(testSecret))
	api.Get("/shifts/current", h.CurrentShiftHandler())
	api.Post("/shifts", h.OpenShiftHandler())
	api.Get("/shifts", h.ListShiftsHandler())
	api.Get("/shifts/:id", h.GetShiftHandler())
	api.Get("/shifts/:id/summary", h.ShiftSummaryHandler())
	api.Post("/shifts/:id/close", h.CloseShiftHandler())
	api.Post("/shifts/:id/pin", h.PinShiftHandler())
	api.Post("/shifts/:id/movements", h.RecordMovementHandler())
	api.Get("/shifts/:id/movements", h.ListMovementsHandler())

	return &harness{t: t, app: app, db: db, sales: salesSvc, mr: mr, sections: []models.Section{s1, s2}}
}

func (h *harness) token(userID uint, role models.UserRole, branchID *uint) string {
	token, err := auth.GenerateToken(testSecret, time.Hour, &models.User{ID: userID, Role: role, BranchID: branchID})
	require.NoError(h.t, err)
	return token
}

func (h *harness) cashier(userID uint) string {
	branch := uint(1)
	return h.token(userID, models.RoleCashier, &branch)
}

func (h *harness) do(method, path, token, body string, out any) int {
	h.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := h.app.Test(req, 10000)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	if out != nil && len(raw) > 0 {
		require.NoError(h.t, json.Unmarshal(raw, out), string(raw))
	}
	return resp.StatusCode
}

type currentResp struct {
	Shift    *models.Shift `json:"shift"`
	Strategy string        `json:"strategy"`
	Pinned   bool          `json:"pinned"`
}

type openResp struct {
	Shift   models.Shift `json:"shift"`
	Adopted bool         `json:"adopted"`
}

type closeResp struct {
	ExpectedCash  decimal.Decimal     `json:"expected_cash"`
	ClosingCash   decimal.NullDecimal `json:"closing_cash"`
	Difference    decimal.NullDecimal `json:"difference"`
	MovementCount int                 `json:"movement_count"`
	AlreadyClosed bool                `json:"already_closed"`
}

func (h *harness) open(token string, sectionID uint, opening string) openResp {
	h.t.Helper()
	var out openResp
	body := `{"section_id":` + strconv.Itoa(int(sectionID)) + `,"opening_cash":"` + opening + `"}`
	status := h.do(http.MethodPost, "/api/shifts", token, body, &out)
	require.Contains(h.t, []int{http.StatusCreated, http.StatusOK}, status)
	return out
}

func shiftPath(id uint, suffix string) string {
	return "/api/shifts/" + strconv.Itoa(int(id)) + suffix
}

func TestOpenAdoptsAndPins(t *testing.T) {
	h := newHarness(t)
	alice, bob := h.cashier(7), h.cashier(8)

	var first openResp
	status := h.do(http.MethodPost, "/api/shifts", alice, `{"section_id":1,"opening_cash":"300.00"}`, &first)
	require.Equal(t, http.StatusCreated, status)
	require.False(t, first.Adopted)
	require.Equal(t, uint(1), first.Shift.BranchID)

	var second openResp
	status = h.do(http.MethodPost, "/api/shifts", bob, `{"section_id":1,"opening_cash":"10"}`, &second)
	require.Equal(t, http.StatusOK, status)
	require.True(t, second.Adopted)
	require.Equal(t, first.Shift.ID, second.Shift.ID)

	var cur currentResp
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/shifts/current", alice, "", &cur))
	require.NotNil(t, cur.Shift)
	require.Equal(t, first.Shift.ID, cur.Shift.ID)
	require.True(t, cur.Pinned)
	require.Equal(t, resolver.StrategyPinned, cur.Strategy)

	require.True(t, h.mr.Exists("kasa:pin:7:1"))
	last, err := h.mr.Get("kasa:pref:last_section:1")
	require.NoError(t, err)
	require.Equal(t, "1", last)

	var logs []models.AuditLog
	require.NoError(t, h.db.Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)
	require.Equal(t, models.AuditActionCreate, logs[0].Action)
	require.Equal(t, models.AuditActionAdopt, logs[1].Action)
}

func TestOpenValidation(t *testing.T) {
	h := newHarness(t)
	alice := h.cashier(7)

	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/shifts", alice, `{"section_id":1,"opening_cash":"-1"}`, nil))
	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/shifts", alice, `{"opening_cash":"1"}`, nil))
	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/shifts", alice, `{"section_id":99,"opening_cash":"1"}`, nil))
}

func TestCurrentWithoutPinUsesStrategies(t *testing.T) {
	h := newHarness(t)
	opened := h.open(h.cashier(7), 2, "50")

	var cur currentResp
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/shifts/current", h.cashier(11), "", &cur))
	require.NotNil(t, cur.Shift)
	require.Equal(t, opened.Shift.ID, cur.Shift.ID)
	require.Equal(t, resolver.StrategyAuthScope, cur.Strategy)
	require.False(t, cur.Pinned)

	// Tekrar çağrı aynı vardiyayı döner
	var again currentResp
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/shifts/current", h.cashier(11), "", &again))
	require.Equal(t, cur.Shift.ID, again.Shift.ID)
}

func TestCurrentNoShift(t *testing.T) {
	h := newHarness(t)
	var cur currentResp
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/shifts/current", h.cashier(7), "", &cur))
	require.Nil(t, cur.Shift)
	require.Empty(t, cur.Strategy)
}

func TestPinnedShiftBeatsOtherOpenShifts(t *testing.T) {
	h := newHarness(t)
	garden := h.open(h.cashier(7), 1, "10")
	salon := h.open(h.cashier(8), 2, "20")
	carol := h.cashier(12)

	var cur currentResp
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/shifts/current", carol, "", &cur))
	require.NotEqual(t, garden.Shift.ID, salon.Shift.ID)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, shiftPath(garden.Shift.ID, "/pin"), carol, "", nil))
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/shifts/current", carol, "", &cur))
	require.Equal(t, garden.Shift.ID, cur.Shift.ID)
	require.True(t, cur.Pinned)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, shiftPath(salon.Shift.ID, "/pin"), carol, "", nil))
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/shifts/current", carol, "", &cur))
	require.Equal(t, salon.Shift.ID, cur.Shift.ID)

	// Sabitlenen vardiya başkası tarafından kapatılınca sabitleme düşer
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, shiftPath(salon.Shift.ID, "/close"), h.cashier(8), `{"closing_cash":"20"}`, nil))
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/shifts/current", carol, "", &cur))
	require.Equal(t, garden.Shift.ID, cur.Shift.ID)
	require.False(t, cur.Pinned)
	require.False(t, h.mr.Exists("kasa:pin:12:1"))

	require.Equal(t, http.StatusConflict, h.do(http.MethodPost, shiftPath(salon.Shift.ID, "/pin"), carol, "", nil))
}

func TestMovementsAndClose(t *testing.T) {
	h := newHarness(t)
	alice := h.cashier(7)
	opened := h.open(alice, 1, "300.00")
	id := opened.Shift.ID

	var mov models.CashMovement
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, shiftPath(id, "/movements"), alice, `{"type":"pay_in","amount":"50.00","note":"bozuk para"}`, &mov))
	require.Equal(t, models.MovementPayIn, mov.Type)
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, shiftPath(id, "/movements"), alice, `{"type":"pay_out","amount":20}`, nil))

	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, shiftPath(id, "/movements"), alice, `{"type":"pay_in","amount":"0"}`, nil))
	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, shiftPath(id, "/movements"), alice, `{"type":"refund","amount":"5"}`, nil))

	_, err := h.sales.Create(context.Background(), sales.CreateInput{
		BranchID: 1, ShiftID: &id, Method: models.SalesMethodCash, Amount: decimal.RequireFromString("120"), Actor: 7,
	})
	require.NoError(t, err)

	var summary closeResp
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, shiftPath(id, "/summary"), alice, "", &summary))
	require.True(t, summary.ExpectedCash.Equal(decimal.RequireFromString("450")))
	require.False(t, summary.Difference.Valid)

	var closed closeResp
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, shiftPath(id, "/close"), alice, `{"closing_cash":"445.00"}`, &closed))
	require.False(t, closed.AlreadyClosed)
	require.True(t, closed.ExpectedCash.Equal(decimal.RequireFromString("450")))
	require.True(t, closed.Difference.Decimal.Equal(decimal.RequireFromString("-5")))
	require.False(t, h.mr.Exists("kasa:pin:7:1"))

	var again closeResp
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, shiftPath(id, "/close"), alice, `{"closing_cash":"999"}`, &again))
	require.True(t, again.AlreadyClosed)
	require.True(t, again.ClosingCash.Decimal.Equal(decimal.RequireFromString("445")))
	require.True(t, again.Difference.Decimal.Equal(decimal.RequireFromString("-5")))

	require.Equal(t, http.StatusConflict, h.do(http.MethodPost, shiftPath(id, "/movements"), alice, `{"type":"pay_in","amount":"1"}`, nil))

	var movs []models.CashMovement
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, shiftPath(id, "/movements"), alice, "", &movs))
	require.Len(t, movs, 2)
	require.Equal(t, models.MovementPayOut, movs[0].Type)

	var cur currentResp
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/shifts/current", alice, "", &cur))
	require.Nil(t, cur.Shift)
}

func TestBranchIsolation(t *testing.T) {
	h := newHarness(t)
	opened := h.open(h.cashier(7), 1, "10")

	other := uint(2)
	outsider := h.token(20, models.RoleBranchAdmin, &other)
	require.Equal(t, http.StatusNotFound, h.do(http.MethodGet, shiftPath(opened.Shift.ID, ""), outsider, "", nil))
	require.Equal(t, http.StatusNotFound, h.do(http.MethodPost, shiftPath(opened.Shift.ID, "/close"), outsider, `{"closing_cash":"1"}`, nil))

	super := h.token(1, models.RoleSuperAdmin, nil)
	var got models.Shift
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, shiftPath(opened.Shift.ID, ""), super, "", &got))
	require.Equal(t, opened.Shift.ID, got.ID)

	require.Equal(t, http.StatusNotFound, h.do(http.MethodGet, shiftPath(404, ""), super, "", nil))
	require.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/shifts/abc", super, "", nil))
}

func TestListShifts(t *testing.T) {
	h := newHarness(t)
	alice := h.cashier(7)
	first := h.open(alice, 1, "10")
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, shiftPath(first.Shift.ID, "/close"), alice, `{"closing_cash":"10"}`, nil))
	h.open(alice, 1, "10")
	h.open(alice, 2, "10")

	var page shift.Page
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/shifts?status=open", alice, "", &page))
	require.Equal(t, int64(2), page.Total)

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/shifts?section_id=1&limit=1", alice, "", &page))
	require.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 1)

	require.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/shifts?status=paused", alice, "", nil))

	super := h.token(1, models.RoleSuperAdmin, nil)
	require.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/shifts", super, "", nil))
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/shifts?branch_id=2", super, "", &page))
	require.Zero(t, page.Total)
}

func TestCloseRequiresCountedCash(t *testing.T) {
	h := newHarness(t)
	alice := h.cashier(7)
	opened := h.open(alice, 1, "300")
	id := opened.Shift.ID

	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, shiftPath(id, "/close"), alice, `{}`, nil))
	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, shiftPath(id, "/close"), alice, `{"closingCash":"445.00"}`, nil))
	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, shiftPath(id, "/close"), alice, `{"closing_cash":null}`, nil))

	var got models.Shift
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, shiftPath(id, ""), alice, "", &got))
	require.True(t, got.IsOpen())

	var closed closeResp
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, shiftPath(id, "/close"), alice, `{"closing_cash":"0"}`, &closed))
	require.False(t, closed.AlreadyClosed)
	require.True(t, closed.ClosingCash.Decimal.IsZero())
}

func TestOpenRequiresOpeningCash(t *testing.T) {
	h := newHarness(t)
	alice := h.cashier(7)

	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/shifts", alice, `{"section_id":1}`, nil))
	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/shifts", alice, `{"section_id":1,"openingCash":"5"}`, nil))

	var page shift.Page
	super := h.token(1, models.RoleSuperAdmin, nil)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/shifts?branch_id=1", super, "", &page))
	require.Zero(t, page.Total)

	var created openResp
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/shifts", alice, `{"section_id":1,"opening_cash":0}`, &created))
	require.True(t, created.Shift.OpeningCash.IsZero())
}

// Kullanıcı başka şubeye taşındıktan sonra eski şubedeki açık vardiyası
// yeni şubedeki aramayı kesmemeli.
func TestCurrentSkipsActorShiftOutsideBranch(t *testing.T) {
	h := newHarness(t)
	old := h.open(h.cashier(7), 1, "10")

	ctx := context.Background()
	salon, err := sections.NewDirectory(h.db).CreateSection(ctx, 2, "Salon")
	require.NoError(t, err)
	moda := uint(2)
	other := h.open(h.token(30, models.RoleCashier, &moda), salon.ID, "20")

	var cur currentResp
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/shifts/current", h.token(7, models.RoleCashier, &moda), "", &cur))
	require.NotNil(t, cur.Shift)
	require.Equal(t, other.Shift.ID, cur.Shift.ID)
	require.NotEqual(t, old.Shift.ID, cur.Shift.ID)
	require.Equal(t, resolver.StrategyAuthScope, cur.Strategy)
}
