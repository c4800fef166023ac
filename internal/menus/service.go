package menus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-criteria-cache/criteria"
	"github.com/goliatone/go-criteria-cache/search"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a menu id does not exist.
var ErrNotFound = errors.New("menus: not found")

// ValidationError reports an invalid write request. Err holds the
// per-field validation.Errors keyed by json name.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "menus: invalid menu: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Service reads menus through the cached search service and writes them
// straight to the database, invalidating the cache after every successful
// write.
type Service struct {
	db     bun.IDB
	search *search.Service[Menu]
	logger *slog.Logger
}

// NewService creates a Service. A nil logger means slog.Default().
func NewService(db bun.IDB, svc *search.Service[Menu], logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, search: svc, logger: logger}
}

// Search returns one page of menus matching q.
func (s *Service) Search(ctx context.Context, q Query) (search.Page[Menu], error) {
	size := q.Size
	if size == 0 {
		size = DefaultPageSize
	}
	page, err := criteria.ParsePageable(q.Page, size, q.Sort...)
	if err != nil {
		return search.Page[Menu]{}, err
	}
	return s.search.Search(ctx, q, page)
}

// Get loads one menu by id. Single row reads are not cached.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Menu, error) {
	var m Menu
	err := s.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return Menu{}, notFound(err)
	}
	return m, nil
}

// Create inserts m, assigning an id when it has none.
func (s *Service) Create(ctx context.Context, m Menu) (Menu, error) {
	if err := validate(m); err != nil {
		return Menu{}, err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now().UTC()
	m.CreatedTime, m.UpdatedTime = now, now

	if _, err := s.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return Menu{}, fmt.Errorf("create menu: %w", err)
	}
	s.invalidate(ctx, "create")
	return m, nil
}

// Update replaces the mutable columns of an existing menu.
func (s *Service) Update(ctx context.Context, m Menu) (Menu, error) {
	if err := validate(m); err != nil {
		return Menu{}, err
	}
	m.UpdatedTime = time.Now().UTC()

	res, err := s.db.NewUpdate().
		Model(&m).
		Column("tenant_code", "name", "path", "sort", "attrs", "updated_time").
		WherePK().
		Exec(ctx)
	if err != nil {
		return Menu{}, fmt.Errorf("update menu: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Menu{}, ErrNotFound
	}
	s.invalidate(ctx, "update")
	return s.Get(ctx, m.ID)
}

// Delete removes a menu.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.NewDelete().Model((*Menu)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete menu: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.invalidate(ctx, "delete")
	return nil
}

// invalidate runs after a write committed. A failure leaves stale entries
// until their TTL and is not reported to the writer.
func (s *Service) invalidate(ctx context.Context, op string) {
	if err := s.search.Invalidate(ctx); err != nil {
		s.logger.Warn("menus cache invalidation failed", "op", op, "namespace", s.search.Namespace(), "error", err)
	}
}

func validate(m Menu) error {
	err := validation.ValidateStruct(&m,
		validation.Field(&m.TenantCode, validation.Required, validation.Length(1, 64)),
		validation.Field(&m.Name, validation.Required, validation.Length(1, 128)),
		validation.Field(&m.Sort, validation.Min(0)),
	)
	if err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
