package sections

import (
	"errors"

	"kasa-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

type SectionResponse struct {
	ID       uint   `json:"id"`
	BranchID uint   `json:"branch_id"`
	Name     string `json:"name"`
}

type CreateSectionRequest struct {
	Name string `json:"name"`
}

// -------------------------------------------------
// GET /api/sections?branch_id=1
// branch kullanıcıları için branch_id JWT'den gelir
// -------------------------------------------------
func ListSectionsHandler(dir *Directory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.BranchFromQuery(c)
		if err != nil {
			return err
		}

		list, err := dir.ListSections(c.UserContext(), branchID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bölümler listelenemedi")
		}

		resp := make([]SectionResponse, 0, len(list))
		for _, s := range list {
			resp = append(resp, SectionResponse{ID: s.ID, BranchID: s.BranchID, Name: s.Name})
		}
		return c.JSON(resp)
	}
}

// -------------------------------------------------
// POST /api/admin/branches/:id/sections
// -------------------------------------------------
func CreateSectionHandler(dir *Directory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := c.ParamsInt("id")
		if err != nil || branchID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Şube id geçersiz")
		}

		var body CreateSectionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		sec, err := dir.CreateSection(c.UserContext(), uint(branchID), body.Name)
		switch {
		case errors.Is(err, ErrEmptyName):
			return fiber.NewError(fiber.StatusBadRequest, "Bölüm adı boş olamaz")
		case errors.Is(err, ErrDuplicate):
			return fiber.NewError(fiber.StatusConflict, "Bu şubede aynı isimde bölüm var")
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, "Bölüm oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(SectionResponse{ID: sec.ID, BranchID: sec.BranchID, Name: sec.Name})
	}
}
