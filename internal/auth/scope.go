package auth

import (
	"strconv"

	"kasa-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Actor JWT'den çözülen istek sahibi.
type Actor struct {
	UserID   uint
	Role     models.UserRole
	BranchID *uint // super_admin için nil
}

func (a Actor) IsSuperAdmin() bool {
	return a.Role == models.RoleSuperAdmin
}

// CanAccessBranch super_admin her şubeye, diğerleri sadece kendi şubesine erişir.
func (a Actor) CanAccessBranch(branchID uint) bool {
	if a.IsSuperAdmin() {
		return true
	}
	return a.BranchID != nil && *a.BranchID == branchID
}

func ActorFrom(c *fiber.Ctx) (Actor, error) {
	userID, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok || userID == 0 {
		return Actor{}, fiber.NewError(fiber.StatusForbidden, "Kullanıcı bilgisi alınamadı")
	}
	role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
	if !ok {
		return Actor{}, fiber.NewError(fiber.StatusForbidden, "Rol bilgisi alınamadı")
	}
	actor := Actor{UserID: userID, Role: role}
	if bPtr, ok := c.Locals(CtxBranchIDKey).(*uint); ok && bPtr != nil {
		b := *bPtr
		actor.BranchID = &b
	}
	return actor, nil
}

// BranchForRequest şube kullanıcıları için JWT'deki şubeyi, super_admin için
// istekte gelen branch_id'yi döner.
func BranchForRequest(c *fiber.Ctx, requested *uint) (uint, error) {
	actor, err := ActorFrom(c)
	if err != nil {
		return 0, err
	}
	if !actor.IsSuperAdmin() {
		if actor.BranchID == nil {
			return 0, fiber.NewError(fiber.StatusForbidden, "Şube bilgisi bulunamadı")
		}
		return *actor.BranchID, nil
	}
	if requested == nil || *requested == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "branch_id zorunlu")
	}
	return *requested, nil
}

// BranchFromQuery BranchForRequest'in ?branch_id= sorgu parametresi hali.
func BranchFromQuery(c *fiber.Ctx) (uint, error) {
	requested, err := OptionalUintQuery(c, "branch_id")
	if err != nil {
		return 0, err
	}
	return BranchForRequest(c, requested)
}

func OptionalUintQuery(c *fiber.Ctx, key string) (*uint, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, key+" geçersiz")
	}
	out := uint(v)
	return &out, nil
}
