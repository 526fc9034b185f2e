package coffees

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/roastery/internal/db/sqlc"
)

type fakeQueries struct {
	mu   sync.Mutex
	rows map[[16]byte]sqlc.Coffee
	err  error
	seq  int
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{rows: map[[16]byte]sqlc.Coffee{}}
}

func (f *fakeQueries) CreateCoffee(_ context.Context, arg sqlc.CreateCoffeeParams) (sqlc.Coffee, error) {
	if f.err != nil {
		return sqlc.Coffee{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	now := pgtype.Timestamptz{Time: time.Unix(int64(f.seq), 0).UTC(), Valid: true}
	row := sqlc.Coffee{
		ID:          pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Name:        arg.Name,
		Brand:       arg.Brand,
		RoastLevel:  arg.RoastLevel,
		TasteNotes:  arg.TasteNotes,
		Origin:      arg.Origin,
		Description: arg.Description,
		ImageUrl:    arg.ImageUrl,
		CreatedBy:   arg.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.rows[row.ID.Bytes] = row
	return row, nil
}

func (f *fakeQueries) GetCoffeeByID(_ context.Context, id pgtype.UUID) (sqlc.Coffee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id.Bytes]
	if !ok {
		return sqlc.Coffee{}, pgx.ErrNoRows
	}
	return row, nil
}

func (f *fakeQueries) ListCoffees(context.Context) ([]sqlc.Coffee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sqlc.Coffee, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeQueries) UpdateCoffee(_ context.Context, arg sqlc.UpdateCoffeeParams) (sqlc.UpdateCoffeeRow, error) {
	if f.err != nil {
		return sqlc.UpdateCoffeeRow{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[arg.ID.Bytes]
	if !ok {
		return sqlc.UpdateCoffeeRow{}, pgx.ErrNoRows
	}
	prev := row.ImageUrl
	row.Name, row.Brand, row.RoastLevel, row.TasteNotes = arg.Name, arg.Brand, arg.RoastLevel, arg.TasteNotes
	row.Origin, row.Description, row.ImageUrl = arg.Origin, arg.Description, arg.ImageUrl
	f.rows[arg.ID.Bytes] = row
	return sqlc.UpdateCoffeeRow{
		ID: row.ID, Name: row.Name, Brand: row.Brand, RoastLevel: row.RoastLevel,
		TasteNotes: row.TasteNotes, Origin: row.Origin, Description: row.Description,
		ImageUrl: row.ImageUrl, CreatedBy: row.CreatedBy, CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt, PreviousImageUrl: prev,
	}, nil
}

func (f *fakeQueries) DeleteCoffee(_ context.Context, id pgtype.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id.Bytes]; !ok {
		return 0, nil
	}
	delete(f.rows, id.Bytes)
	return 1, nil
}

func (f *fakeQueries) ListCoffeeImageRefs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, row := range f.rows {
		if row.ImageUrl.Valid {
			out = append(out, row.ImageUrl.String)
		}
	}
	return out, nil
}

type prefixResolver string

func (p prefixResolver) AccessPath(key string) string { return string(p) + "/" + key }

func sampleRecord(ref string) Record {
	return Record{
		Fields: Fields{
			Name:       "  Finca El Paraiso ",
			Brand:      "Onyx",
			RoastLevel: RoastLight,
			TasteNotes: "lychee, rose",
			Origin:     " Colombia ",
		},
		ImageRef: ref,
	}
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc := NewService(nil, newFakeQueries(), prefixResolver("/images"))
	owner := uuid.NewString()

	created, err := svc.Create(ctx, owner, sampleRecord("1-abc.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "Finca El Paraiso", created.Name)
	assert.Equal(t, "Colombia", created.Origin)
	assert.Equal(t, owner, created.CreatedBy)
	assert.Equal(t, "1-abc.jpg", created.ImageRef)
	assert.Equal(t, "/images/1-abc.jpg", created.ImageURL)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestExternalImageURLPassesThrough(t *testing.T) {
	svc := NewService(nil, newFakeQueries(), prefixResolver("/images"))
	created, err := svc.Create(context.Background(), "", sampleRecord("https://example.com/bag.png"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/bag.png", created.ImageURL)
	assert.Empty(t, created.CreatedBy)
}

func TestGetMissing(t *testing.T) {
	svc := NewService(nil, newFakeQueries(), nil)
	_, err := svc.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateReturnsPreviousRef(t *testing.T) {
	ctx := context.Background()
	svc := NewService(nil, newFakeQueries(), nil)
	created, err := svc.Create(ctx, "", sampleRecord("old.jpg"))
	require.NoError(t, err)

	updated, prev, err := svc.Update(ctx, created.ID, sampleRecord("new.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "old.jpg", prev)
	assert.Equal(t, "new.jpg", updated.ImageRef)

	_, _, err = svc.Update(ctx, uuid.NewString(), sampleRecord(""))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewService(nil, newFakeQueries(), nil)
	created, err := svc.Create(ctx, "", sampleRecord(""))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)
}

func TestStoreFailureIsWrapped(t *testing.T) {
	q := newFakeQueries()
	q.err = errors.New("connection refused")
	svc := NewService(nil, q, nil)
	_, err := svc.Create(context.Background(), "", sampleRecord(""))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestImageKeys(t *testing.T) {
	ctx := context.Background()
	svc := NewService(nil, newFakeQueries(), nil)
	for _, ref := range []string{"a.jpg", "https://example.com/x.png", "", "urn:isbn:0451450523", "b.jpg"} {
		_, err := svc.Create(ctx, "", sampleRecord(ref))
		require.NoError(t, err)
	}
	keys, err := svc.ImageKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, "a.jpg")
	assert.Contains(t, keys, "b.jpg")
}
