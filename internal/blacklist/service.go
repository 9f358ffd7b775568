package blacklist

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cesargomez89/karaqueue/internal/catalog"
	"github.com/cesargomez89/karaqueue/internal/domain"
	"github.com/cesargomez89/karaqueue/internal/events"
	"github.com/cesargomez89/karaqueue/internal/logger"
	"github.com/cesargomez89/karaqueue/internal/store"
)

// CriteriaView is a criterion as listed to administrators.
type CriteriaView struct {
	domain.BlacklistCriteria
	DisplayValue string `json:"value_display"`
}

// Verdict is the outcome of checking one catalog kara.
type Verdict struct {
	Kara *domain.Kara `json:"kara"`
	Result
}

type Service struct {
	Repo     *store.DB
	Catalog  catalog.Catalog
	Engine   *Engine
	Notifier events.Notifier
	Logger   *logger.Logger

	// serializes mutations so engine reloads land in commit order
	mu sync.Mutex
}

func NewService(repo *store.DB, cat catalog.Catalog, engine *Engine, notifier events.Notifier, log *logger.Logger) *Service {
	if notifier == nil {
		notifier = events.Nop
	}
	return &Service{
		Repo:     repo,
		Catalog:  cat,
		Engine:   engine,
		Notifier: notifier,
		Logger:   log.WithComponent("blacklist"),
	}
}

// Reload loads the persisted criteria into the engine.
func (s *Service) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	criteria, err := s.Repo.ListCriteria(ctx)
	if err != nil {
		return domain.StorageError("load criteria", err)
	}
	s.Engine.Load(criteria)
	s.Logger.Info("Blacklist loaded", "criteria", len(criteria), "generation", s.Engine.Generation())
	return nil
}

// Validate checks a kind and value pair and returns them normalized. Duration
// values are rewritten as plain integers.
func Validate(kind domain.CriteriaKind, value string) (domain.CriteriaKind, string, error) {
	k, err := domain.ParseCriteriaKind(string(kind))
	if err != nil {
		return "", "", err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", "", domain.InvalidArgumentf("criteria value cannot be empty")
	}
	if k.IsDuration() {
		n, err := strconv.Atoi(value)
		if err != nil {
			return "", "", domain.InvalidArgumentf("duration value %q is not a number of seconds", value)
		}
		if n < 1 {
			return "", "", domain.InvalidArgumentf("minimum duration 1s")
		}
		value = strconv.Itoa(n)
	}
	return k, value, nil
}

func (s *Service) Add(ctx context.Context, kind domain.CriteriaKind, value string) (*domain.BlacklistCriteria, error) {
	k, v, err := Validate(kind, value)
	if err != nil {
		return nil, err
	}

	c := &domain.BlacklistCriteria{Kind: k, Value: v, CreatedAt: time.Now()}
	err = s.mutate(ctx, "add criteria", func(tx *store.DB) error {
		return tx.CreateCriteria(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("Blacklist criteria added", "bcid", c.ID, "type", c.Kind, "value", c.Value)
	return c, nil
}

func (s *Service) Edit(ctx context.Context, id int64, kind domain.CriteriaKind, value string) (*domain.BlacklistCriteria, error) {
	k, v, err := Validate(kind, value)
	if err != nil {
		return nil, err
	}

	var c *domain.BlacklistCriteria
	err = s.mutate(ctx, "edit criteria", func(tx *store.DB) error {
		existing, err := tx.GetCriteria(ctx, id)
		if err != nil {
			return err
		}
		existing.Kind = k
		existing.Value = v
		c = existing
		return tx.UpdateCriteria(ctx, existing)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("Blacklist criteria edited", "bcid", c.ID, "type", c.Kind, "value", c.Value)
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.mutate(ctx, "delete criteria", func(tx *store.DB) error {
		return tx.DeleteCriteria(ctx, id)
	})
	if err != nil {
		return err
	}
	s.Logger.Info("Blacklist criteria deleted", "bcid", id)
	return nil
}

// Empty removes every criterion.
func (s *Service) Empty(ctx context.Context) error {
	err := s.mutate(ctx, "empty criteria", func(tx *store.DB) error {
		return tx.ClearCriteria(ctx)
	})
	if err != nil {
		return err
	}
	s.Logger.Info("Blacklist emptied")
	return nil
}

// mutate runs fn and reads back the full rule set in one transaction, then
// loads it into the engine before returning.
func (s *Service) mutate(ctx context.Context, op string, fn func(tx *store.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var criteria []*domain.BlacklistCriteria
	err := s.Repo.RunInTx(ctx, func(tx *store.DB) error {
		if err := fn(tx); err != nil {
			return err
		}
		var err error
		criteria, err = tx.ListCriteria(ctx)
		return err
	})
	if err != nil {
		if !domain.IsTyped(err) {
			s.Logger.Error("Blacklist mutation failed", "op", op, "error", err)
		}
		return domain.StorageError(op, err)
	}

	s.Engine.Load(criteria)
	s.Notifier.Notify(ctx, events.New(events.BlacklistUpdated))
	return nil
}

// List returns the persisted criteria with a human readable value: tag ids
// resolve to tag names and durations render as seconds.
func (s *Service) List(ctx context.Context) ([]CriteriaView, error) {
	criteria, err := s.Repo.ListCriteria(ctx)
	if err != nil {
		return nil, domain.StorageError("list criteria", err)
	}

	views := make([]CriteriaView, 0, len(criteria))
	for _, c := range criteria {
		display, err := s.displayValue(ctx, c)
		if err != nil {
			return nil, err
		}
		views = append(views, CriteriaView{BlacklistCriteria: *c, DisplayValue: display})
	}
	return views, nil
}

func (s *Service) displayValue(ctx context.Context, c *domain.BlacklistCriteria) (string, error) {
	switch {
	case c.Kind.IsTag():
		tag, err := s.Catalog.GetTag(ctx, c.Value)
		if errors.Is(err, domain.ErrNotFound) {
			return c.Value, nil
		}
		if err != nil {
			return "", domain.StorageError("resolve tag", err)
		}
		return tag.Name, nil
	case c.Kind.IsDuration():
		n, err := c.DurationSeconds()
		if err != nil {
			return c.Value, nil
		}
		return fmt.Sprintf("%ds", n), nil
	default:
		return c.Value, nil
	}
}

// CheckKara resolves ref in the catalog and evaluates it against the loaded
// rules.
func (s *Service) CheckKara(ctx context.Context, ref domain.KaraRef) (*Verdict, error) {
	if ref.IsZero() {
		return nil, domain.InvalidArgumentf("empty kara reference")
	}
	kara, err := s.Catalog.GetKara(ctx, ref)
	if err != nil {
		return nil, domain.StorageError("lookup kara", err)
	}
	return &Verdict{Kara: kara, Result: s.Engine.Check(kara)}, nil
}
