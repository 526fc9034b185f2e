package ingest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/memohai/roastery/internal/coffees"
	"github.com/memohai/roastery/internal/logger"
	"github.com/memohai/roastery/internal/media"
	"github.com/memohai/roastery/internal/storage"
	"github.com/memohai/roastery/internal/storage/memstore"
)

// journal records cross-store operations in the order they happen.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, fmt.Sprintf(format, args...))
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

type fakeBlobs struct {
	*memstore.Store
	j         *journal
	putErr    error
	deleteErr error
	deleteCtx func(context.Context)

	mu      sync.Mutex
	puts    int
	deletes []string
}

func newFakeBlobs(j *journal) *fakeBlobs {
	return &fakeBlobs{Store: memstore.New("/images"), j: j}
}

func (f *fakeBlobs) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	f.mu.Lock()
	f.puts++
	f.mu.Unlock()
	f.j.add("put %s", key)
	if f.putErr != nil {
		return f.putErr
	}
	return f.Store.Put(ctx, key, r, size, contentType)
}

func (f *fakeBlobs) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	f.deletes = append(f.deletes, key)
	f.mu.Unlock()
	f.j.add("delete %s", key)
	if f.deleteCtx != nil {
		f.deleteCtx(ctx)
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Store.Delete(ctx, key)
}

func (f *fakeBlobs) has(key string) bool {
	rc, err := f.Store.Open(context.Background(), key)
	if err != nil {
		return false
	}
	_ = rc.Close()
	return true
}

func (f *fakeBlobs) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

func (f *fakeBlobs) deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletes...)
}

type fakeMeta struct {
	j         *journal
	createErr error
	updateErr error
	onCreate  func()

	mu      sync.Mutex
	items   map[string]coffees.Coffee
	creates int
}

func newFakeMeta(j *journal) *fakeMeta {
	return &fakeMeta{j: j, items: map[string]coffees.Coffee{}}
}

func (f *fakeMeta) Create(_ context.Context, ownerID string, rec coffees.Record) (coffees.Coffee, error) {
	f.mu.Lock()
	f.creates++
	f.mu.Unlock()
	f.j.add("insert %s", rec.ImageRef)
	if f.onCreate != nil {
		f.onCreate()
	}
	if f.createErr != nil {
		return coffees.Coffee{}, f.createErr
	}
	item := coffees.Coffee{
		ID:          uuid.NewString(),
		Name:        rec.Name,
		Brand:       rec.Brand,
		RoastLevel:  rec.RoastLevel,
		TasteNotes:  rec.TasteNotes,
		Origin:      rec.Origin,
		Description: rec.Description,
		ImageRef:    rec.ImageRef,
		CreatedBy:   ownerID,
		CreatedAt:   time.Now(),
	}
	f.mu.Lock()
	f.items[item.ID] = item
	f.mu.Unlock()
	return item, nil
}

func (f *fakeMeta) Get(_ context.Context, id string) (coffees.Coffee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return coffees.Coffee{}, fmt.Errorf("%w: %s", coffees.ErrNotFound, id)
	}
	return item, nil
}

func (f *fakeMeta) Update(_ context.Context, id string, rec coffees.Record) (coffees.Coffee, string, error) {
	f.j.add("update %s", rec.ImageRef)
	if f.updateErr != nil {
		return coffees.Coffee{}, "", f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return coffees.Coffee{}, "", fmt.Errorf("%w: %s", coffees.ErrNotFound, id)
	}
	prev := item.ImageRef
	item.Name, item.Brand, item.RoastLevel, item.TasteNotes = rec.Name, rec.Brand, rec.RoastLevel, rec.TasteNotes
	item.Origin, item.Description, item.ImageRef = rec.Origin, rec.Description, rec.ImageRef
	f.items[id] = item
	return item, prev, nil
}

func (f *fakeMeta) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return fmt.Errorf("%w: %s", coffees.ErrNotFound, id)
	}
	delete(f.items, id)
	return nil
}

func (f *fakeMeta) put(item coffees.Coffee) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.ID] = item
}

func (f *fakeMeta) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

// fixedKeys hands out keys from a list, then falls back to random ones.
type fixedKeys struct {
	mu   sync.Mutex
	keys []string
}

func (k *fixedKeys) NewKey(hint string, at time.Time) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.keys) == 0 {
		return media.UUIDKeys{}.NewKey(hint, at)
	}
	key := k.keys[0]
	k.keys = k.keys[1:]
	return key, nil
}

type countingObserver struct {
	nopObserver
	mu            sync.Mutex
	collisions    int
	compensations map[string]int
}

func (o *countingObserver) RecordKeyCollision() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.collisions++
}

func (o *countingObserver) RecordCompensation(action string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.compensations == nil {
		o.compensations = map[string]int{}
	}
	o.compensations[action]++
}

type harness struct {
	j        *journal
	blobs    *fakeBlobs
	meta     *fakeMeta
	keys     *fixedKeys
	observer *countingObserver
	coord    *Coordinator
}

func newHarness(t *testing.T, opts ...func(*Deps, *Options)) *harness {
	t.Helper()
	j := &journal{}
	h := &harness{
		j:        j,
		blobs:    newFakeBlobs(j),
		meta:     newFakeMeta(j),
		keys:     &fixedKeys{},
		observer: &countingObserver{},
	}
	deps := Deps{
		Validator:  NewValidator(1 << 20),
		Transcoder: media.NewTranscoder(800, 800, 80),
		Pool:       media.NewPool(4, time.Second),
		Keys:       h.keys,
		Blobs:      h.blobs,
		Metadata:   h.meta,
		Observer:   h.observer,
	}
	options := Options{KeyAttempts: 3, CompensationTimeout: time.Second}
	for _, opt := range opts {
		opt(&deps, &options)
	}
	h.coord = NewCoordinator(logger.Discard(), deps, options)
	return h
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 7 {
		for x := 0; x < w; x += 7 {
			img.Set(x, y, color.RGBA{R: 200, G: 90, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pngUpload(t *testing.T, w, h int) *media.Upload {
	t.Helper()
	data := pngBytes(t, w, h)
	return &media.Upload{Filename: "beans.png", DeclaredType: "image/png", Data: data, Size: int64(len(data))}
}

func validFields() coffees.Fields {
	return coffees.Fields{
		Name:       "Kochere",
		Brand:      "Tim Wendelboe",
		RoastLevel: coffees.RoastLight,
		TasteNotes: "jasmine, lemon",
	}
}

var _ storage.Provider = (*fakeBlobs)(nil)
