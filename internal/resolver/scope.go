package resolver

import "kasa-backend/internal/models"

// Scope bir oturumun çözümleme bağlamı. Değer olarak taşınır; With* metotları
// kopya döner, mevcut Scope değişmez.
type Scope struct {
	ActorID   uint
	BranchID  uint
	SectionID *uint
	// AuthBranchID token'daki şube; super_admin için nil
	AuthBranchID  *uint
	PinnedShiftID *uint
}

func (s Scope) WithPinned(shiftID uint) Scope {
	s.PinnedShiftID = &shiftID
	return s
}

func (s Scope) WithoutPin() Scope {
	s.PinnedShiftID = nil
	return s
}

// WithBranch şube değişiminde sabitlenmiş vardiyayı bırakır.
func (s Scope) WithBranch(branchID uint, sectionID *uint) Scope {
	s.BranchID = branchID
	s.SectionID = copyUint(sectionID)
	s.PinnedShiftID = nil
	return s
}

// Allows vardiyanın token kapsamında görünür olup olmadığını söyler.
// super_admin her şubeyi görür.
func (s Scope) Allows(sh *models.Shift) bool {
	if sh == nil {
		return false
	}
	return s.AuthBranchID == nil || sh.BranchID == *s.AuthBranchID
}

func (s Scope) Pinned() (uint, bool) {
	if s.PinnedShiftID == nil {
		return 0, false
	}
	return *s.PinnedShiftID, true
}

func copyUint(v *uint) *uint {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
