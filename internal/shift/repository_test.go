package shift

import (
	"context"
	"testing"
	"time"

	"kasa-backend/internal/database/dbtest"
	"kasa-backend/internal/logging"
	"kasa-backend/internal/models"
	"kasa-backend/internal/sections"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func seedShift(t *testing.T, repo *GormRepository, branchID, sectionID, actor uint, openedAt time.Time) models.Shift {
	t.Helper()
	sh := models.Shift{
		BranchID:    branchID,
		SectionID:   sectionID,
		OpenedBy:    actor,
		OpenedAt:    openedAt,
		OpeningCash: dec("100"),
		Status:      models.ShiftStatusOpen,
	}
	require.NoError(t, repo.CreateShift(context.Background(), &sh))
	return sh
}

func TestGormRepositoryOpenShiftConflict(t *testing.T) {
	repo := NewGormRepository(dbtest.Open(t))
	seedShift(t, repo, 1, 1, 7, fixedNow)

	dup := models.Shift{BranchID: 1, SectionID: 1, OpenedBy: 8, OpenedAt: fixedNow, OpeningCash: dec("5"), Status: models.ShiftStatusOpen}
	err := repo.CreateShift(context.Background(), &dup)
	require.ErrorIs(t, err, ErrConflict)

	// Kapalı vardiyalar index dışında kalır
	closed := models.Shift{BranchID: 1, SectionID: 1, OpenedBy: 8, OpenedAt: fixedNow, OpeningCash: dec("5"), Status: models.ShiftStatusClosed}
	require.NoError(t, repo.CreateShift(context.Background(), &closed))
}

func TestGormRepositoryFindOpenShift(t *testing.T) {
	repo := NewGormRepository(dbtest.Open(t))
	ctx := context.Background()
	older := seedShift(t, repo, 1, 1, 7, fixedNow)
	newer := seedShift(t, repo, 1, 2, 8, fixedNow.Add(time.Hour))
	seedShift(t, repo, 2, 3, 7, fixedNow.Add(2*time.Hour))

	branch := uint(1)
	got, err := repo.FindOpenShift(ctx, OpenShiftQuery{BranchID: &branch})
	require.NoError(t, err)
	require.Equal(t, newer.ID, got.ID)

	section := uint(1)
	got, err = repo.FindOpenShift(ctx, OpenShiftQuery{BranchID: &branch, SectionID: &section})
	require.NoError(t, err)
	require.Equal(t, older.ID, got.ID)

	actor := uint(8)
	got, err = repo.FindOpenShift(ctx, OpenShiftQuery{OpenedBy: &actor})
	require.NoError(t, err)
	require.Equal(t, newer.ID, got.ID)

	missing := uint(99)
	_, err = repo.FindOpenShift(ctx, OpenShiftQuery{BranchID: &missing})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepositoryMarkClosedOnce(t *testing.T) {
	repo := NewGormRepository(dbtest.Open(t))
	ctx := context.Background()
	sh := seedShift(t, repo, 1, 1, 7, fixedNow)

	ok, err := repo.MarkClosed(ctx, sh.ID, dec("95.5"), 9, fixedNow.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.MarkClosed(ctx, sh.ID, dec("1"), 10, fixedNow.Add(2*time.Hour))
	require.NoError(t, err)
	require.False(t, ok)

	got, err := repo.GetShift(ctx, sh.ID)
	require.NoError(t, err)
	require.Equal(t, models.ShiftStatusClosed, got.Status)
	require.True(t, got.ClosingCash.Decimal.Equal(dec("95.5")))
	require.Equal(t, uint(9), *got.ClosedBy)
	require.Equal(t, int64(1), got.Revision)

	open, err := repo.BumpOpenRevision(ctx, sh.ID)
	require.NoError(t, err)
	require.False(t, open)
}

func TestGormRepositoryMovements(t *testing.T) {
	repo := NewGormRepository(dbtest.Open(t))
	ctx := context.Background()
	sh := seedShift(t, repo, 1, 1, 7, fixedNow)
	ref := uuid.New()

	m1 := models.CashMovement{ShiftID: sh.ID, Type: models.MovementPayIn, Amount: dec("10"), CreatedAt: fixedNow, CreatedBy: 7, ClientRef: &ref}
	require.NoError(t, repo.CreateMovement(ctx, &m1))
	m2 := models.CashMovement{ShiftID: sh.ID, Type: models.MovementPayOut, Amount: dec("4"), CreatedAt: fixedNow.Add(time.Minute), CreatedBy: 7}
	require.NoError(t, repo.CreateMovement(ctx, &m2))

	dup := models.CashMovement{ShiftID: sh.ID, Type: models.MovementPayIn, Amount: dec("10"), CreatedAt: fixedNow, CreatedBy: 7, ClientRef: &ref}
	require.ErrorIs(t, repo.CreateMovement(ctx, &dup), ErrConflict)

	found, err := repo.FindMovementByRef(ctx, sh.ID, ref)
	require.NoError(t, err)
	require.Equal(t, m1.ID, found.ID)

	_, err = repo.FindMovementByRef(ctx, sh.ID, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)

	movs, err := repo.ListMovements(ctx, sh.ID)
	require.NoError(t, err)
	require.Len(t, movs, 2)
	require.Equal(t, m2.ID, movs[0].ID)
}

func TestServiceOnSQLite(t *testing.T) {
	db := dbtest.Open(t)
	dir := sections.NewDirectory(db)
	ctx := context.Background()
	require.NoError(t, db.Create(&models.Branch{ID: 1, Name: "Merkez"}).Error)
	sec, err := dir.CreateSection(ctx, 1, "Salon")
	require.NoError(t, err)

	sales := newFakeSales()
	svc := NewService(NewGormRepository(db), sales, dir, logging.Discard())
	svc.WithNow(func() time.Time { return fixedNow })

	first, err := svc.Open(ctx, OpenInput{BranchID: 1, SectionID: sec.ID, OpeningCash: dec("300"), Actor: 7})
	require.NoError(t, err)
	second, err := svc.Open(ctx, OpenInput{BranchID: 1, SectionID: sec.ID, OpeningCash: dec("1"), Actor: 8})
	require.NoError(t, err)
	require.True(t, second.Adopted)
	require.Equal(t, first.Shift.ID, second.Shift.ID)

	id := first.Shift.ID
	_, err = svc.RecordMovement(ctx, MovementInput{ShiftID: id, Type: models.MovementPayIn, Amount: dec("50"), Actor: 7})
	require.NoError(t, err)
	_, err = svc.RecordMovement(ctx, MovementInput{ShiftID: id, Type: models.MovementPayOut, Amount: dec("20"), Actor: 7})
	require.NoError(t, err)
	sales.addCash(id, "120")

	summary, err := svc.Close(ctx, CloseInput{ShiftID: id, ClosingCash: dec("445"), Actor: 7})
	require.NoError(t, err)
	require.True(t, summary.ExpectedCash.Equal(dec("450")))
	require.True(t, summary.Difference.Decimal.Equal(dec("-5")))

	_, err = svc.RecordMovement(ctx, MovementInput{ShiftID: id, Type: models.MovementPayIn, Amount: dec("1"), Actor: 7})
	require.ErrorIs(t, err, ErrShiftClosed)

	_, err = svc.Close(ctx, CloseInput{ShiftID: id, ClosingCash: dec("445"), Actor: 7})
	require.True(t, IsAlreadyClosed(err))
}
