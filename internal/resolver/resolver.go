package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"kasa-backend/internal/models"

	"golang.org/x/sync/errgroup"
)

// Source açık vardiya sorgularını yapan uzak depo. Bulunamadığında (nil, nil) döner.
type Source interface {
	Lookup(ctx context.Context, id uint) (*models.Shift, error)
	CurrentForActor(ctx context.Context, actorID uint) (*models.Shift, error)
	Current(ctx context.Context, branchID, sectionID *uint) (*models.Shift, error)
	ListOpen(ctx context.Context, branchID uint, limit int) ([]models.Shift, error)
}

type SectionLister interface {
	ListSections(ctx context.Context, branchID uint) ([]models.Section, error)
}

// SectionHints şube başına son kullanılan bölüm ipucu.
type SectionHints interface {
	LastSection(ctx context.Context, branchID uint) (uint, error)
	RememberSection(ctx context.Context, branchID, sectionID uint) error
}

const (
	StrategyPinned      = "pinned"
	StrategyActor       = "actor"
	StrategyAuthScope   = "auth_scope"
	StrategyBranch      = "branch"
	StrategyOpenList    = "open_list"
	StrategySectionHint = "section_hint"
	StrategySectionScan = "section_scan"
)

// ErrUnavailable tüm stratejiler hata ile bittiğinde döner; "açık vardiya yok"
// sonucundan ayrıdır. Depo erişilemezken sahte bir vardiya üretilmez.
var ErrUnavailable = errors.New("resolver: vardiya kaynağına ulaşılamıyor")

// errSkip stratejinin bu bağlamda uygulanamadığını belirtir.
var errSkip = errors.New("resolver: strateji atlandı")

// Strategy tek bir sorgu adımı. Hata veya boş sonuç bir sonraki adıma geçirir.
type Strategy struct {
	Name  string
	Probe func(ctx context.Context, sc Scope) (*models.Shift, error)
}

type Outcome struct {
	Shift    *models.Shift
	Strategy string
	// PinnedClosed sabitlenmiş vardiya kapalı bulundu; oturum sabitlemeyi bırakmalı
	PinnedClosed bool
}

type Options struct {
	ReprobeDelay       time.Duration
	ProbeTimeout       time.Duration
	SectionConcurrency int
	Logger             *slog.Logger
}

type Resolver struct {
	source     Source
	sections   SectionLister
	hints      SectionHints
	opts       Options
	strategies []Strategy
	sleep      func(ctx context.Context, d time.Duration) error
}

func New(source Source, sections SectionLister, hints SectionHints, opts Options) *Resolver {
	r := newResolver(opts)
	r.source = source
	r.sections = sections
	r.hints = hints
	r.strategies = []Strategy{
		{Name: StrategyPinned, Probe: r.probePinned},
		{Name: StrategyActor, Probe: r.probeActor},
		{Name: StrategyAuthScope, Probe: r.probeAuthScope},
		{Name: StrategyBranch, Probe: r.probeBranch},
		{Name: StrategyOpenList, Probe: r.probeOpenList},
		{Name: StrategySectionHint, Probe: r.probeSectionHint},
		{Name: StrategySectionScan, Probe: r.probeSectionScan},
	}
	return r
}

// NewWithStrategies zinciri verilen adımlarla kurar.
func NewWithStrategies(opts Options, strategies ...Strategy) *Resolver {
	r := newResolver(opts)
	r.strategies = strategies
	return r
}

func newResolver(opts Options) *Resolver {
	if opts.SectionConcurrency <= 0 {
		opts.SectionConcurrency = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Resolver{opts: opts, sleep: sleepContext}
}

func (r *Resolver) Strategies() []string {
	names := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		names = append(names, s.Name)
	}
	return names
}

// Resolve stratejileri sırayla dener, ilk açık vardiyada durur.
// Hiçbiri bulamazsa Outcome.Shift nil olur; bu hata değildir.
func (r *Resolver) Resolve(ctx context.Context, sc Scope) (Outcome, error) {
	var out Outcome
	var lastErr error
	failures, attempts := 0, 0

	for _, st := range r.strategies {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		sh, err := r.probe(ctx, st, sc)
		if errors.Is(err, errSkip) {
			continue
		}
		attempts++
		if err != nil {
			failures++
			lastErr = err
			r.opts.Logger.Debug("vardiya sorgusu başarısız", slog.String("strategy", st.Name), slog.Any("error", err))
			continue
		}
		if sh == nil {
			continue
		}
		if !sh.IsOpen() {
			if st.Name == StrategyPinned {
				out.PinnedClosed = true
				sc = sc.WithoutPin()
			}
			continue
		}
		if !sc.Allows(sh) {
			// Yetki dışı şubenin vardiyası ıskalama sayılır, zincir devam eder
			r.opts.Logger.Debug("vardiya kapsam dışı",
				slog.String("strategy", st.Name),
				slog.Uint64("shift_id", uint64(sh.ID)))
			continue
		}

		out.Shift = sh
		out.Strategy = st.Name
		r.opts.Logger.Debug("açık vardiya bulundu",
			slog.String("strategy", st.Name),
			slog.Uint64("shift_id", uint64(sh.ID)))
		r.rememberSection(ctx, sc, sh)
		return out, nil
	}

	if attempts > 0 && failures == attempts {
		return out, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
	}
	return out, nil
}

// ResolveSettled ilk çözümleme boş dönerse ReprobeDelay sonra bir kez daha dener.
// Arka uçtaki gecikmeli tutarlılık yarışlarını emer.
func (r *Resolver) ResolveSettled(ctx context.Context, sc Scope) (Outcome, error) {
	out, err := r.Resolve(ctx, sc)
	if err != nil || out.Shift != nil {
		return out, err
	}
	if out.PinnedClosed {
		sc = sc.WithoutPin()
	}
	if err := r.sleep(ctx, r.opts.ReprobeDelay); err != nil {
		return out, err
	}
	again, err := r.Resolve(ctx, sc)
	again.PinnedClosed = again.PinnedClosed || out.PinnedClosed
	return again, err
}

func (r *Resolver) probe(ctx context.Context, st Strategy, sc Scope) (*models.Shift, error) {
	if r.opts.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.ProbeTimeout)
		defer cancel()
	}
	return st.Probe(ctx, sc)
}

func (r *Resolver) rememberSection(ctx context.Context, sc Scope, sh *models.Shift) {
	if r.hints == nil || sh.BranchID != sc.BranchID {
		return
	}
	if err := r.hints.RememberSection(ctx, sc.BranchID, sh.SectionID); err != nil {
		r.opts.Logger.Warn("bölüm ipucu yazılamadı", slog.Any("error", err))
	}
}

// ----------------------------------------
// Stratejiler
// ----------------------------------------

func (r *Resolver) probePinned(ctx context.Context, sc Scope) (*models.Shift, error) {
	id, ok := sc.Pinned()
	if !ok {
		return nil, errSkip
	}
	return r.source.Lookup(ctx, id)
}

func (r *Resolver) probeActor(ctx context.Context, sc Scope) (*models.Shift, error) {
	if sc.ActorID == 0 {
		return nil, errSkip
	}
	return r.source.CurrentForActor(ctx, sc.ActorID)
}

func (r *Resolver) probeAuthScope(ctx context.Context, sc Scope) (*models.Shift, error) {
	branchID := sc.AuthBranchID
	if branchID == nil {
		branchID = &sc.BranchID
	}
	return r.source.Current(ctx, branchID, nil)
}

// probeBranch istenen şubeyi sorgular. Token şubesi istenen şubeyle aynıysa
// (veya super_admin ise) aynı sorgu auth_scope adımında yapılmıştır, atlanır.
func (r *Resolver) probeBranch(ctx context.Context, sc Scope) (*models.Shift, error) {
	if sc.AuthBranchID == nil || *sc.AuthBranchID == sc.BranchID {
		return nil, errSkip
	}
	return r.source.Current(ctx, &sc.BranchID, nil)
}

func (r *Resolver) probeOpenList(ctx context.Context, sc Scope) (*models.Shift, error) {
	list, err := r.source.ListOpen(ctx, sc.BranchID, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

func (r *Resolver) probeSectionHint(ctx context.Context, sc Scope) (*models.Shift, error) {
	var sectionID uint
	switch {
	case sc.SectionID != nil:
		sectionID = *sc.SectionID
	case r.hints != nil:
		hint, err := r.hints.LastSection(ctx, sc.BranchID)
		if err != nil {
			return nil, err
		}
		sectionID = hint
	}
	if sectionID == 0 {
		return nil, errSkip
	}
	return r.source.Current(ctx, &sc.BranchID, &sectionID)
}

// probeSectionScan şubenin tüm bölümlerini paralel sorgular, ilk açık sonucu alır.
// Tek tek bölüm sorgularının hatası taramayı bozmaz.
func (r *Resolver) probeSectionScan(ctx context.Context, sc Scope) (*models.Shift, error) {
	if r.sections == nil {
		return nil, errSkip
	}
	secs, err := r.sections.ListSections(ctx, sc.BranchID)
	if err != nil {
		return nil, err
	}
	if len(secs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	found := make(chan models.Shift, 1)
	done := make(chan struct{})
	var failures atomic.Int32

	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(r.opts.SectionConcurrency)
		for _, sec := range secs {
			sectionID := sec.ID
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				sh, err := r.source.Current(ctx, &sc.BranchID, &sectionID)
				if err != nil {
					failures.Add(1)
					r.opts.Logger.Debug("bölüm sorgusu başarısız",
						slog.Uint64("section_id", uint64(sectionID)), slog.Any("error", err))
					return nil
				}
				if sh == nil || !sh.IsOpen() {
					return nil
				}
				select {
				case found <- *sh:
					cancel()
				default:
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case sh := <-found:
		return &sh, nil
	case <-done:
	}
	select {
	case sh := <-found:
		return &sh, nil
	default:
	}
	if int(failures.Load()) == len(secs) {
		return nil, errors.New("tüm bölüm sorguları başarısız")
	}
	return nil, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
