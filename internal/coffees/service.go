// Package coffees is the metadata store for catalog items.
package coffees

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/memohai/roastery/internal/db"
	"github.com/memohai/roastery/internal/db/sqlc"
)

// ErrNotFound is returned when no coffee has the requested id.
var ErrNotFound = errors.New("coffee not found")

// Queries is the subset of the generated queries the service runs.
type Queries interface {
	CreateCoffee(ctx context.Context, arg sqlc.CreateCoffeeParams) (sqlc.Coffee, error)
	GetCoffeeByID(ctx context.Context, id pgtype.UUID) (sqlc.Coffee, error)
	ListCoffees(ctx context.Context) ([]sqlc.Coffee, error)
	UpdateCoffee(ctx context.Context, arg sqlc.UpdateCoffeeParams) (sqlc.UpdateCoffeeRow, error)
	DeleteCoffee(ctx context.Context, id pgtype.UUID) (int64, error)
	ListCoffeeImageRefs(ctx context.Context) ([]string, error)
}

// ImageResolver turns a storage key into a public reference.
type ImageResolver interface {
	AccessPath(key string) string
}

type Service struct {
	queries  Queries
	resolver ImageResolver
	logger   *slog.Logger
}

var _ Queries = (*sqlc.Queries)(nil)

func NewService(log *slog.Logger, queries Queries, resolver ImageResolver) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		queries:  queries,
		resolver: resolver,
		logger:   log.With(slog.String("service", "coffees")),
	}
}

// Create inserts a record owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID string, rec Record) (Coffee, error) {
	var owner pgtype.UUID
	if ownerID != "" {
		parsed, err := db.ParseUUID(ownerID)
		if err != nil {
			return Coffee{}, fmt.Errorf("owner id: %w", err)
		}
		owner = parsed
	}
	f := rec.Normalize()
	row, err := s.queries.CreateCoffee(ctx, sqlc.CreateCoffeeParams{
		Name:        f.Name,
		Brand:       f.Brand,
		RoastLevel:  f.RoastLevel,
		TasteNotes:  f.TasteNotes,
		Origin:      db.TextFrom(f.Origin),
		Description: db.TextFrom(f.Description),
		ImageUrl:    db.TextFrom(rec.ImageRef),
		CreatedBy:   owner,
	})
	if err != nil {
		return Coffee{}, fmt.Errorf("insert coffee: %w", err)
	}
	return s.toCoffee(row), nil
}

// Get loads one coffee. Malformed ids are reported as not found.
func (s *Service) Get(ctx context.Context, id string) (Coffee, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Coffee{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	row, err := s.queries.GetCoffeeByID(ctx, pgID)
	if err != nil {
		if db.IsNoRows(err) {
			return Coffee{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Coffee{}, fmt.Errorf("get coffee: %w", err)
	}
	return s.toCoffee(row), nil
}

// List returns every coffee, newest first.
func (s *Service) List(ctx context.Context) ([]Coffee, error) {
	rows, err := s.queries.ListCoffees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coffees: %w", err)
	}
	items := make([]Coffee, 0, len(rows))
	for _, row := range rows {
		items = append(items, s.toCoffee(row))
	}
	return items, nil
}

// Update replaces the fields and image reference of id. It returns the image
// reference the row held immediately before the write.
func (s *Service) Update(ctx context.Context, id string, rec Record) (Coffee, string, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Coffee{}, "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	f := rec.Normalize()
	row, err := s.queries.UpdateCoffee(ctx, sqlc.UpdateCoffeeParams{
		ID:          pgID,
		Name:        f.Name,
		Brand:       f.Brand,
		RoastLevel:  f.RoastLevel,
		TasteNotes:  f.TasteNotes,
		Origin:      db.TextFrom(f.Origin),
		Description: db.TextFrom(f.Description),
		ImageUrl:    db.TextFrom(rec.ImageRef),
	})
	if err != nil {
		if db.IsNoRows(err) {
			return Coffee{}, "", fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Coffee{}, "", fmt.Errorf("update coffee: %w", err)
	}
	item := s.toCoffee(sqlc.Coffee{
		ID:          row.ID,
		Name:        row.Name,
		Brand:       row.Brand,
		RoastLevel:  row.RoastLevel,
		TasteNotes:  row.TasteNotes,
		Origin:      row.Origin,
		Description: row.Description,
		ImageUrl:    row.ImageUrl,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	})
	return item, db.TextToString(row.PreviousImageUrl), nil
}

// Delete removes id. The referenced image blob, if any, is left in the store.
func (s *Service) Delete(ctx context.Context, id string) error {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	n, err := s.queries.DeleteCoffee(ctx, pgID)
	if err != nil {
		return fmt.Errorf("delete coffee: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ImageKeys returns the set of storage keys referenced by any coffee.
func (s *Service) ImageKeys(ctx context.Context) (map[string]struct{}, error) {
	refs, err := s.queries.ListCoffeeImageRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list image refs: %w", err)
	}
	keys := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if key, ok := ImageKey(ref); ok {
			keys[key] = struct{}{}
		}
	}
	return keys, nil
}

// ResolveImage maps a stored reference to a client-facing URL.
func (s *Service) ResolveImage(ref string) string {
	if key, ok := ImageKey(ref); ok && s.resolver != nil {
		return s.resolver.AccessPath(key)
	}
	return ref
}

func (s *Service) toCoffee(row sqlc.Coffee) Coffee {
	ref := db.TextToString(row.ImageUrl)
	return Coffee{
		ID:          db.UUIDToString(row.ID),
		Name:        row.Name,
		Brand:       row.Brand,
		RoastLevel:  row.RoastLevel,
		TasteNotes:  row.TasteNotes,
		Origin:      db.TextToString(row.Origin),
		Description: db.TextToString(row.Description),
		ImageRef:    ref,
		ImageURL:    s.ResolveImage(ref),
		CreatedBy:   db.UUIDToString(row.CreatedBy),
		CreatedAt:   db.TimeFromPg(row.CreatedAt),
		UpdatedAt:   db.TimeFromPg(row.UpdatedAt),
	}
}
