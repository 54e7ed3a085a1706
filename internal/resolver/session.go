package resolver

import (
	"context"
	"sync"

	"kasa-backend/internal/models"
)

// Session tek bir kullanıcı oturumunun aktif vardiya durumu.
// Tüm yazımlar kilit altında yapılır; eşzamanlı gelen sorgu sonuçları sabitlenmiş
// vardiyanın üzerine yazamaz.
type Session struct {
	mu       sync.Mutex
	resolver *Resolver
	scope    Scope
	current  *models.Shift
	// gen bağlam her değiştiğinde artar; eski bağlamın sonuçları atılır
	gen     uint64
	settled bool
}

func NewSession(r *Resolver, sc Scope) *Session {
	return &Session{resolver: r, scope: sc}
}

func (s *Session) Scope() Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}

func (s *Session) Current() *models.Shift {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneShift(s.current)
}

// Pin açılan veya kullanıcı tarafından seçilen vardiyayı sabitler.
func (s *Session) Pin(sh models.Shift) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scope = s.scope.WithPinned(sh.ID)
	s.current = &sh
	s.settled = false
}

func (s *Session) Unpin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scope = s.scope.WithoutPin()
	s.settled = false
}

// Offer dışarıdan gelen bir sorgu sonucunu uygular. Sabitlenmiş vardiya varken
// farklı kimlikli (veya boş) sonuçlar yok sayılır.
func (s *Session) Offer(sh *models.Shift) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offerLocked(sh)
}

func (s *Session) offerLocked(sh *models.Shift) bool {
	if pinned, ok := s.scope.Pinned(); ok {
		if sh == nil || sh.ID != pinned {
			return false
		}
	}
	s.current = cloneShift(sh)
	return true
}

// ShiftClosed vardiya kapandığında çağrılır; sabitleme ve aktif vardiya temizlenir.
func (s *Session) ShiftClosed(shiftID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pinned, ok := s.scope.Pinned(); ok && pinned == shiftID {
		s.scope = s.scope.WithoutPin()
	}
	if s.current != nil && s.current.ID == shiftID {
		s.current = nil
	}
	s.settled = false
}

// SwitchBranch bağlamı değiştirir; süren sorguların sonuçları geçersiz olur.
func (s *Session) SwitchBranch(branchID uint, sectionID *uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scope = s.scope.WithBranch(branchID, sectionID)
	s.current = nil
	s.gen++
	s.settled = false
}

// Refresh bağlam için aktif vardiyayı çözer. Boş sonuç bir kez kesinleştikten
// sonra bağlam değişene kadar tekrar sorgulanmaz.
func (s *Session) Refresh(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	sc := s.scope
	gen := s.gen
	if s.settled {
		out := Outcome{Shift: cloneShift(s.current)}
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	out, err := s.resolver.ResolveSettled(ctx, sc)
	if err != nil {
		return Outcome{Shift: s.Current()}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return Outcome{Shift: cloneShift(s.current)}, nil
	}
	if out.PinnedClosed {
		if probed, ok := sc.Pinned(); ok {
			if pinned, still := s.scope.Pinned(); still && pinned == probed {
				s.scope = s.scope.WithoutPin()
				if s.current != nil && s.current.ID == pinned {
					s.current = nil
				}
			}
		}
	}
	applied := s.offerLocked(out.Shift)
	if s.current == nil {
		s.settled = true
	}

	res := Outcome{Shift: cloneShift(s.current), PinnedClosed: out.PinnedClosed}
	if applied {
		res.Strategy = out.Strategy
	}
	return res, nil
}

func cloneShift(sh *models.Shift) *models.Shift {
	if sh == nil {
		return nil
	}
	out := *sh
	return &out
}
