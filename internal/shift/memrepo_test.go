package shift

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"kasa-backend/internal/models"
	"kasa-backend/internal/sections"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memRepo Repository'nin bellek içi sahtesi. Açık vardiya tekilliği ve
// client_ref tekilliği veritabanındaki unique index'ler gibi uygulanır.
type memRepo struct {
	txMu sync.Mutex
	mu   sync.Mutex

	shifts    map[uint]models.Shift
	movements []models.CashMovement
	nextShift uint
	nextMov   uint
}

func newMemRepo() *memRepo {
	return &memRepo{shifts: map[uint]models.Shift{}}
}

func (r *memRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	shifts := make(map[uint]models.Shift, len(r.shifts))
	for k, v := range r.shifts {
		shifts[k] = v
	}
	movements := append([]models.CashMovement(nil), r.movements...)
	r.mu.Unlock()

	if err := fn(ctx, r); err != nil {
		r.mu.Lock()
		r.shifts = shifts
		r.movements = movements
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memRepo) CreateShift(_ context.Context, sh *models.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.shifts {
		if existing.IsOpen() && sh.IsOpen() &&
			existing.BranchID == sh.BranchID && existing.SectionID == sh.SectionID {
			return fmt.Errorf("%w: ux_shifts_open_scope", ErrConflict)
		}
	}
	r.nextShift++
	sh.ID = r.nextShift
	r.shifts[sh.ID] = *sh
	return nil
}

func (r *memRepo) GetShift(_ context.Context, id uint) (models.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sh, ok := r.shifts[id]
	if !ok {
		return models.Shift{}, ErrNotFound
	}
	return sh, nil
}

func (r *memRepo) sortedShifts() []models.Shift {
	out := make([]models.Shift, 0, len(r.shifts))
	for _, sh := range r.shifts {
		out = append(out, sh)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].OpenedAt.After(out[j].OpenedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *memRepo) FindOpenShift(_ context.Context, q OpenShiftQuery) (models.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sh := range r.sortedShifts() {
		if !sh.IsOpen() {
			continue
		}
		if q.BranchID != nil && sh.BranchID != *q.BranchID {
			continue
		}
		if q.SectionID != nil && sh.SectionID != *q.SectionID {
			continue
		}
		if q.OpenedBy != nil && sh.OpenedBy != *q.OpenedBy {
			continue
		}
		return sh, nil
	}
	return models.Shift{}, ErrNotFound
}

func (r *memRepo) ListShifts(_ context.Context, f ListFilter) ([]models.Shift, int64, error) {
	f = f.normalized()
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.Shift
	for _, sh := range r.sortedShifts() {
		if f.BranchID != nil && sh.BranchID != *f.BranchID {
			continue
		}
		if f.SectionID != nil && sh.SectionID != *f.SectionID {
			continue
		}
		if f.Status != nil && sh.Status != *f.Status {
			continue
		}
		matched = append(matched, sh)
	}
	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return nil, total, nil
	}
	end := f.Offset + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[f.Offset:end], total, nil
}

// MarkClosed açık işlemlerin bitmesini bekler; Postgres'teki satır kilidinin karşılığı.
func (r *memRepo) MarkClosed(_ context.Context, id uint, closingCash decimal.Decimal, actor uint, at time.Time) (bool, error) {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	sh, ok := r.shifts[id]
	if !ok || !sh.IsOpen() {
		return false, nil
	}
	sh.Status = models.ShiftStatusClosed
	sh.ClosingCash = decimal.NewNullDecimal(closingCash)
	sh.ClosedAt = &at
	sh.ClosedBy = &actor
	sh.Revision++
	r.shifts[id] = sh
	return true, nil
}

func (r *memRepo) BumpOpenRevision(_ context.Context, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sh, ok := r.shifts[id]
	if !ok || !sh.IsOpen() {
		return false, nil
	}
	sh.Revision++
	r.shifts[id] = sh
	return true, nil
}

func (r *memRepo) CreateMovement(_ context.Context, m *models.CashMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ClientRef != nil {
		for _, existing := range r.movements {
			if existing.ShiftID == m.ShiftID && existing.ClientRef != nil && *existing.ClientRef == *m.ClientRef {
				return fmt.Errorf("%w: ux_cash_movements_client_ref", ErrConflict)
			}
		}
	}
	r.nextMov++
	m.ID = r.nextMov
	r.movements = append(r.movements, *m)
	return nil
}

func (r *memRepo) FindMovementByRef(_ context.Context, shiftID uint, ref uuid.UUID) (models.CashMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.movements {
		if m.ShiftID == shiftID && m.ClientRef != nil && *m.ClientRef == ref {
			return m, nil
		}
	}
	return models.CashMovement{}, ErrNotFound
}

func (r *memRepo) ListMovements(_ context.Context, shiftID uint) ([]models.CashMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CashMovement
	for _, m := range r.movements {
		if m.ShiftID == shiftID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *memRepo) openCount(branchID, sectionID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, sh := range r.shifts {
		if sh.IsOpen() && sh.BranchID == branchID && sh.SectionID == sectionID {
			n++
		}
	}
	return n
}

func (r *memRepo) movementCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.movements)
}

type fakeSales struct {
	mu   sync.Mutex
	cash map[uint]decimal.Decimal
	card map[uint]decimal.Decimal
}

func newFakeSales() *fakeSales {
	return &fakeSales{cash: map[uint]decimal.Decimal{}, card: map[uint]decimal.Decimal{}}
}

func (f *fakeSales) CashSalesTotal(_ context.Context, shiftID uint) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cash[shiftID], nil
}

func (f *fakeSales) CardSalesTotal(_ context.Context, shiftID uint) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.card[shiftID], nil
}

func (f *fakeSales) addCash(shiftID uint, amount string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cash[shiftID] = f.cash[shiftID].Add(decimal.RequireFromString(amount))
}

type fakeSections map[uint]models.Section

func (f fakeSections) GetSection(_ context.Context, id uint) (models.Section, error) {
	sec, ok := f[id]
	if !ok {
		return models.Section{}, sections.ErrNotFound
	}
	return sec, nil
}
