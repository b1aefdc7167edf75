package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"splitkasse/internal/amqp"
	"splitkasse/internal/cache"
	"splitkasse/internal/core"
	"splitkasse/internal/log"
	"splitkasse/internal/storage"
)

// Publisher sends month-closed events. *amqp.Client implements it.
type Publisher interface {
	PublishMonthClosed(ctx context.Context, msg *amqp.MonthClosedMessage) error
}

// MonthOverview is a month together with the inputs it was settled from and
// the resulting settlement.
type MonthOverview struct {
	Month     storage.Month
	Inputs    core.MonthInputs
	Computed  core.MonthComputed
	Profiles  []storage.Profile
	Transfers []storage.Transfer
}

// MonthService orchestrates storage, the settlement calculator and the
// month-closed publisher.
type MonthService struct {
	repo      *storage.SQLiteRepository
	publisher Publisher
	overviews cache.Cache[MonthOverview]
	now       func() time.Time
	logger    *log.Logger

	// load settles a month from storage; replaced in tests to interleave writes.
	load func(ctx context.Context, monthID int64) (MonthOverview, error)

	// Every invalidation bumps a generation. An overview is only cached when
	// no invalidation happened while it was being loaded.
	genMu       sync.Mutex
	generations map[int64]uint64
	clears      uint64
}

type generation struct {
	month, clears uint64
}

type Option func(*MonthService)

// WithPublisher enables month-closed events. Without one, closes are only
// persisted.
func WithPublisher(p Publisher) Option {
	return func(s *MonthService) { s.publisher = p }
}

// WithCache caches computed overviews by month id.
func WithCache(c cache.Cache[MonthOverview]) Option {
	return func(s *MonthService) { s.overviews = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *MonthService) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *MonthService) { s.logger = l.WithComponent(log.ComponentMonth) }
}

func NewMonthService(repo *storage.SQLiteRepository, opts ...Option) *MonthService {
	s := &MonthService{
		repo:        repo,
		now:         time.Now,
		logger:      log.New(log.DefaultConfig()).WithComponent(log.ComponentMonth),
		generations: make(map[int64]uint64),
	}
	s.load = s.loadOverview
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentMonth returns the month for today, creating it when missing. A new
// month starts at the ending balance of the most recent closed month (0 when
// there is none) and receives a copy of the fixed-cost templates.
func (s *MonthService) CurrentMonth(ctx context.Context) (storage.Month, error) {
	now := s.now()
	year, month := now.Year(), int(now.Month())

	m, err := s.repo.MonthByYearMonth(ctx, year, month)
	if err == nil {
		if _, err := s.repo.EnsureMonthIncomes(ctx, m.ID); err != nil {
			return storage.Month{}, err
		}
		return m, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.Month{}, err
	}

	var start core.Money
	last, err := s.repo.LastClosedMonth(ctx)
	switch {
	case err == nil && last.PrivateBalanceEnd != nil:
		start = *last.PrivateBalanceEnd
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return storage.Month{}, fmt.Errorf("find last closed month: %w", err)
	}

	m, created, err := s.repo.CreateMonth(ctx, year, month, start)
	if err != nil {
		return storage.Month{}, err
	}
	if created {
		if err := s.repo.CopyTemplatesToMonth(ctx, m.ID); err != nil {
			return storage.Month{}, fmt.Errorf("copy templates: %w", err)
		}
		fields := log.NewFields().WithMonth(m.ID, year, month).WithOperation(log.OpCarry).ToSlice()
		s.logger.InfoContext(ctx, "Created month", append(fields, log.FieldBalanceStart, start)...)
	}
	if _, err := s.repo.EnsureMonthIncomes(ctx, m.ID); err != nil {
		return storage.Month{}, err
	}
	return m, nil
}

// CurrentOverview is CurrentMonth followed by Overview.
func (s *MonthService) CurrentOverview(ctx context.Context) (MonthOverview, error) {
	m, err := s.CurrentMonth(ctx)
	if err != nil {
		return MonthOverview{}, err
	}
	return s.Overview(ctx, m.ID)
}

// Overview loads a month's records and settles it.
func (s *MonthService) Overview(ctx context.Context, monthID int64) (MonthOverview, error) {
	key := cacheKey(monthID)
	if s.overviews != nil {
		if ov, ok := s.overviews.Get(key); ok {
			return ov, nil
		}
	}

	gen := s.currentGeneration(monthID)
	ov, err := s.load(ctx, monthID)
	if err != nil {
		return MonthOverview{}, err
	}
	s.store(monthID, gen, ov)
	return ov, nil
}

func (s *MonthService) currentGeneration(monthID int64) generation {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return generation{month: s.generations[monthID], clears: s.clears}
}

// store caches ov unless the month was invalidated after gen was taken.
func (s *MonthService) store(monthID int64, gen generation, ov MonthOverview) {
	if s.overviews == nil {
		return
	}
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if gen != (generation{month: s.generations[monthID], clears: s.clears}) {
		s.logger.Debug("Skipped caching stale overview", log.FieldMonthID, monthID)
		return
	}
	s.overviews.Set(cacheKey(monthID), ov)
}

func (s *MonthService) loadOverview(ctx context.Context, monthID int64) (MonthOverview, error) {
	m, err := s.repo.MonthByID(ctx, monthID)
	if err != nil {
		return MonthOverview{}, err
	}

	var (
		profiles   []storage.Profile
		incomes    []storage.MonthIncome
		categories []core.FixedCategory
		expenses   []core.PrivateExpense
		transfers  []storage.Transfer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		profiles, err = s.repo.ListProfiles(gctx)
		return err
	})
	g.Go(func() (err error) {
		incomes, err = s.repo.ListMonthIncomes(gctx, monthID)
		return err
	})
	g.Go(func() (err error) {
		categories, err = s.repo.ListFixedCategories(gctx, monthID)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.repo.ListPrivateExpenses(gctx, monthID)
		return err
	})
	g.Go(func() (err error) {
		transfers, err = s.repo.ListTransfers(gctx, monthID)
		return err
	})
	if err := g.Wait(); err != nil {
		return MonthOverview{}, fmt.Errorf("load month %d: %w", monthID, err)
	}

	inputs := buildInputs(m, profiles, incomes, categories, expenses, transfers)
	return MonthOverview{
		Month:     m,
		Inputs:    inputs,
		Computed:  core.CalculateMonth(inputs),
		Profiles:  profiles,
		Transfers: transfers,
	}, nil
}

func buildInputs(m storage.Month, profiles []storage.Profile, incomes []storage.MonthIncome, categories []core.FixedCategory, expenses []core.PrivateExpense, transfers []storage.Transfer) core.MonthInputs {
	in := core.MonthInputs{
		Me:                  core.Person{Role: core.RoleMe},
		Partner:             core.Person{Role: core.RolePartner},
		FixedCategories:     categories,
		PrivateExpenses:     expenses,
		PrivateBalanceStart: m.PrivateBalanceStart,
		PrepaymentThisMonth: storage.SumTransfers(transfers),
	}
	for _, p := range profiles {
		switch p.Role {
		case core.RoleMe:
			in.Me.Name = p.Name
		case core.RolePartner:
			in.Partner.Name = p.Name
		}
	}
	for _, inc := range incomes {
		switch inc.Role {
		case core.RoleMe:
			in.Me.NetIncome = inc.NetIncome
		case core.RolePartner:
			in.Partner.NetIncome = inc.NetIncome
		}
	}
	return in
}

// Calculate settles raw inputs without touching storage.
func (s *MonthService) Calculate(in core.MonthInputs) core.MonthComputed {
	return core.CalculateMonth(in)
}

// UpdateIncomes sets the net incomes of an open month. All values are
// validated before any is written.
func (s *MonthService) UpdateIncomes(ctx context.Context, monthID int64, incomes map[core.PersonRole]core.Money) error {
	for role, v := range incomes {
		if err := role.Validate(); err != nil {
			return err
		}
		if err := core.ValidateIncome(v); err != nil {
			return fmt.Errorf("%s: %w", role, err)
		}
	}
	m, err := s.repo.MonthByID(ctx, monthID)
	if err != nil {
		return err
	}
	if m.IsClosed() {
		return storage.ErrMonthClosed
	}

	defer s.invalidate(monthID)
	for _, role := range []core.PersonRole{core.RoleMe, core.RolePartner} {
		v, ok := incomes[role]
		if !ok {
			continue
		}
		p, err := s.repo.ProfileByRole(ctx, role)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateMonthIncome(ctx, monthID, p.ID, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *MonthService) UpdateBalanceStart(ctx context.Context, monthID int64, balance core.Money) error {
	defer s.invalidate(monthID)
	return s.repo.UpdateBalanceStart(ctx, monthID, balance)
}

// CloseMonth settles the month, stores its ending balance and announces the
// close. Publishing is best effort: a failed publish is logged and the close
// still succeeds.
func (s *MonthService) CloseMonth(ctx context.Context, monthID int64) (storage.Month, core.MonthComputed, error) {
	ov, err := s.loadOverview(ctx, monthID)
	if err != nil {
		return storage.Month{}, core.MonthComputed{}, err
	}
	if ov.Month.IsClosed() {
		return storage.Month{}, core.MonthComputed{}, storage.ErrMonthClosed
	}

	closed, err := s.repo.CloseMonth(ctx, monthID, ov.Computed.PrivateBalanceEnd)
	if err != nil {
		return storage.Month{}, core.MonthComputed{}, err
	}
	s.invalidate(monthID)

	logger := s.logger.WithMonth(closed.ID, closed.Year, closed.Month)
	logger.InfoContext(ctx, "Closed month",
		log.FieldOperation, log.OpClose,
		log.FieldBalanceEnd, ov.Computed.PrivateBalanceEnd)

	if s.publisher != nil {
		msg := amqp.NewMonthClosedMessage(closed.ID, closed.Year, closed.Month, ov.Computed.PrivateBalanceEnd, *closed.ClosedAt)
		if err := s.publisher.PublishMonthClosed(ctx, msg); err != nil {
			logger.LogError(ctx, "Failed to publish month closed message", err, log.OpPublish, nil)
		}
	}
	return closed, ov.Computed, nil
}

// ClosedMonths lists the archive, most recent period first.
func (s *MonthService) ClosedMonths(ctx context.Context, limit int) ([]core.ClosedMonthSummary, error) {
	return s.repo.ListClosedMonths(ctx, limit)
}

// History returns the month's activity feed.
func (s *MonthService) History(ctx context.Context, monthID int64, full bool) (core.MonthHistory, error) {
	if _, err := s.repo.MonthByID(ctx, monthID); err != nil {
		return core.MonthHistory{}, err
	}
	return s.repo.MonthHistory(ctx, monthID, full)
}

// ResetMonth clears an open month's records. Development only.
func (s *MonthService) ResetMonth(ctx context.Context, monthID int64) error {
	defer s.invalidate(monthID)
	if err := s.repo.ResetOpenMonth(ctx, monthID); err != nil {
		return err
	}
	s.logger.WarnContext(ctx, "Reset open month", log.FieldMonthID, monthID)
	return nil
}

// DeleteClosedMonth removes a closed month. Development only.
func (s *MonthService) DeleteClosedMonth(ctx context.Context, monthID int64) error {
	defer s.invalidate(monthID)
	if err := s.repo.DeleteClosedMonth(ctx, monthID); err != nil {
		return err
	}
	s.logger.WarnContext(ctx, "Deleted closed month", log.FieldMonthID, monthID)
	return nil
}

func (s *MonthService) Profiles(ctx context.Context) ([]storage.Profile, error) {
	return s.repo.ListProfiles(ctx)
}

// RenameProfile changes a display name. Every cached overview carries the
// names, so the whole cache is dropped.
func (s *MonthService) RenameProfile(ctx context.Context, role core.PersonRole, name string) error {
	if err := role.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpdateProfileName(ctx, role, name); err != nil {
		return err
	}
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.clears++
	if s.overviews != nil {
		s.overviews.Clear()
	}
	return nil
}

func (s *MonthService) invalidate(monthID int64) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.generations[monthID]++
	if s.overviews != nil {
		s.overviews.Delete(cacheKey(monthID))
	}
}

func cacheKey(monthID int64) string {
	return "month:" + strconv.FormatInt(monthID, 10)
}
