// Package ingest owns the image ingestion pipeline: validate, transcode, mint
// a key, write the blob, then link it from the catalog record.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/memohai/roastery/internal/apperr"
	"github.com/memohai/roastery/internal/coffees"
	"github.com/memohai/roastery/internal/media"
	"github.com/memohai/roastery/internal/storage"
)

// Flow names used in logs and metrics.
const (
	FlowCreateWithImage = "create_with_image"
	FlowReplaceImage    = "replace_image"
	FlowCreate          = "create"
	FlowUpdate          = "update"
	FlowDelete          = "delete"
)

const (
	actionDeleteNewBlob      = "delete_new_blob"
	actionDeletePreviousBlob = "delete_previous_blob"
)

// MetadataStore is the record store the coordinator links blobs into.
type MetadataStore interface {
	Create(ctx context.Context, ownerID string, rec coffees.Record) (coffees.Coffee, error)
	Get(ctx context.Context, id string) (coffees.Coffee, error)
	// Update returns the image reference held immediately before the write.
	Update(ctx context.Context, id string, rec coffees.Record) (coffees.Coffee, string, error)
	Delete(ctx context.Context, id string) error
}

// Transcoder converts raw uploads into the canonical image form.
type Transcoder interface {
	Transcode(data []byte) (media.Image, error)
}

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Validator  *Validator
	Transcoder Transcoder
	Pool       *media.Pool
	Keys       media.KeyGenerator
	Blobs      storage.Provider
	Metadata   MetadataStore
	Observer   Observer
}

// Options tune retry and cleanup behaviour.
type Options struct {
	KeyAttempts         int
	CompensationTimeout time.Duration
}

type Coordinator struct {
	validator  *Validator
	transcoder Transcoder
	pool       *media.Pool
	keys       media.KeyGenerator
	blobs      storage.Provider
	meta       MetadataStore
	observer   Observer
	locks      *KeyedMutex
	logger     *slog.Logger

	keyAttempts         int
	compensationTimeout time.Duration
	now                 func() time.Time
}

func NewCoordinator(log *slog.Logger, deps Deps, opts Options) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Keys == nil {
		deps.Keys = media.UUIDKeys{}
	}
	if deps.Pool == nil {
		deps.Pool = media.NewPool(1, 0)
	}
	if opts.KeyAttempts <= 0 {
		opts.KeyAttempts = 1
	}
	return &Coordinator{
		validator:           deps.Validator,
		transcoder:          deps.Transcoder,
		pool:                deps.Pool,
		keys:                deps.Keys,
		blobs:               deps.Blobs,
		meta:                deps.Metadata,
		observer:            deps.Observer,
		locks:               NewKeyedMutex(),
		logger:              log.With(slog.String("service", "ingest")),
		keyAttempts:         opts.KeyAttempts,
		compensationTimeout: opts.CompensationTimeout,
		now:                 time.Now,
	}
}

// CreateWithImage stores the transcoded upload and inserts a record pointing
// at it. If the insert fails the new blob is deleted on a best-effort basis
// and the insert failure is returned.
func (c *Coordinator) CreateWithImage(ctx context.Context, ownerID string, fields coffees.Fields, upload *media.Upload) (item coffees.Coffee, err error) {
	defer c.observe(FlowCreateWithImage, c.now())(&err)

	fields, err = c.validator.ValidateUpload(fields, upload)
	if err != nil {
		return coffees.Coffee{}, err
	}
	img, err := c.transcode(ctx, upload)
	if err != nil {
		return coffees.Coffee{}, err
	}
	asset, err := c.putBlob(ctx, upload.Filename, img)
	if err != nil {
		return coffees.Coffee{}, err
	}

	sg := newSaga(c.logger.With(slog.String("flow", FlowCreateWithImage), slog.String("key", asset.StorageKey)), c.observer, c.compensationTimeout)
	sg.Register(actionDeleteNewBlob, func(ctx context.Context) error {
		return c.blobs.Delete(ctx, asset.StorageKey)
	})

	item, err = c.meta.Create(ctx, ownerID, coffees.Record{Fields: fields, ImageRef: asset.StorageKey})
	if err != nil {
		sg.Rollback(ctx)
		return coffees.Coffee{}, metadataError(err)
	}
	sg.Commit()
	c.logger.Info("item created with image",
		slog.String("id", item.ID),
		slog.String("key", asset.StorageKey),
		slog.Int64("bytes", asset.SizeBytes))
	return item, nil
}

// ReplaceImage writes a new blob, repoints id at it, and only then deletes
// the blob the record referenced before. A failed record update leaves the
// new blob unreferenced and the previous reference intact.
func (c *Coordinator) ReplaceImage(ctx context.Context, id string, fields coffees.Fields, upload *media.Upload) (item coffees.Coffee, err error) {
	defer c.observe(FlowReplaceImage, c.now())(&err)

	fields, err = c.validator.ValidateUpload(fields, upload)
	if err != nil {
		return coffees.Coffee{}, err
	}
	unlock, err := c.lock(ctx, id)
	if err != nil {
		return coffees.Coffee{}, err
	}
	defer unlock()

	if _, err := c.meta.Get(ctx, id); err != nil {
		return coffees.Coffee{}, metadataReadError(err)
	}
	img, err := c.transcode(ctx, upload)
	if err != nil {
		return coffees.Coffee{}, err
	}
	asset, err := c.putBlob(ctx, upload.Filename, img)
	if err != nil {
		return coffees.Coffee{}, err
	}

	item, previous, err := c.meta.Update(ctx, id, coffees.Record{Fields: fields, ImageRef: asset.StorageKey})
	if err != nil {
		c.logger.Warn("record update failed, new blob left unreferenced",
			slog.String("id", id),
			slog.String("key", asset.StorageKey),
			slog.Any("error", err))
		return coffees.Coffee{}, metadataError(err)
	}
	if oldKey, ok := coffees.ImageKey(previous); ok && oldKey != asset.StorageKey {
		c.deleteBestEffort(ctx, actionDeletePreviousBlob, oldKey)
	}
	c.logger.Info("item image replaced",
		slog.String("id", item.ID),
		slog.String("key", asset.StorageKey),
		slog.String("previous", previous))
	return item, nil
}

// Create inserts a record without an upload. imageURL may be empty.
func (c *Coordinator) Create(ctx context.Context, ownerID string, fields coffees.Fields, imageURL string) (item coffees.Coffee, err error) {
	defer c.observe(FlowCreate, c.now())(&err)

	fields, imageURL, err = c.validator.ValidateURL(fields, imageURL)
	if err != nil {
		return coffees.Coffee{}, err
	}
	item, err = c.meta.Create(ctx, ownerID, coffees.Record{Fields: fields, ImageRef: imageURL})
	if err != nil {
		return coffees.Coffee{}, metadataError(err)
	}
	return item, nil
}

// Update rewrites the fields of id. A nil imageURL keeps the current image
// reference; a replaced blob is not deleted.
func (c *Coordinator) Update(ctx context.Context, id string, fields coffees.Fields, imageURL *string) (item coffees.Coffee, err error) {
	defer c.observe(FlowUpdate, c.now())(&err)

	url := ""
	if imageURL != nil {
		url = *imageURL
	}
	fields, url, err = c.validator.ValidateURL(fields, url)
	if err != nil {
		return coffees.Coffee{}, err
	}
	unlock, err := c.lock(ctx, id)
	if err != nil {
		return coffees.Coffee{}, err
	}
	defer unlock()

	ref := url
	if imageURL == nil {
		current, err := c.meta.Get(ctx, id)
		if err != nil {
			return coffees.Coffee{}, metadataReadError(err)
		}
		ref = current.ImageRef
	}
	item, _, err = c.meta.Update(ctx, id, coffees.Record{Fields: fields, ImageRef: ref})
	if err != nil {
		return coffees.Coffee{}, metadataError(err)
	}
	return item, nil
}

// Delete removes the record of id. Its image blob stays in the store.
func (c *Coordinator) Delete(ctx context.Context, id string) (err error) {
	defer c.observe(FlowDelete, c.now())(&err)

	unlock, err := c.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()
	if err := c.meta.Delete(ctx, id); err != nil {
		return metadataError(err)
	}
	return nil
}

func (c *Coordinator) transcode(ctx context.Context, upload *media.Upload) (media.Image, error) {
	var img media.Image
	err := c.pool.Do(ctx, func() error {
		start := c.now()
		out, err := c.transcoder.Transcode(upload.Data)
		if err != nil {
			return err
		}
		c.observer.RecordTranscode(time.Since(start), len(upload.Data), len(out.Data))
		img = out
		return nil
	})
	switch {
	case err == nil:
		return img, nil
	case errors.Is(err, media.ErrPoolSaturated):
		return media.Image{}, &apperr.Error{Kind: apperr.KindCapacity, Stage: apperr.StageTranscode, Message: "image processing is at capacity, retry later", Err: err}
	case errors.Is(err, media.ErrUndecodable), errors.Is(err, media.ErrTooManyPixels), errors.Is(err, media.ErrEmptyAsset):
		return media.Image{}, &apperr.Error{Kind: apperr.KindTranscode, Stage: apperr.StageTranscode, Message: "image could not be processed", Err: err}
	default:
		return media.Image{}, apperr.New(apperr.KindInternal, apperr.StageTranscode, err)
	}
}

// putBlob writes img under a fresh key, minting a new key whenever the store
// reports the previous one as taken.
func (c *Coordinator) putBlob(ctx context.Context, filename string, img media.Image) (media.Asset, error) {
	for attempt := 1; attempt <= c.keyAttempts; attempt++ {
		key, err := c.keys.NewKey(filename, c.now())
		if err != nil {
			return media.Asset{}, apperr.New(apperr.KindInternal, apperr.StageKey, err)
		}
		err = c.blobs.Put(ctx, key, bytes.NewReader(img.Data), int64(len(img.Data)), img.ContentType)
		if err == nil {
			return media.Asset{
				StorageKey:  key,
				ContentType: img.ContentType,
				SizeBytes:   int64(len(img.Data)),
				Width:       img.Width,
				Height:      img.Height,
			}, nil
		}
		if !errors.Is(err, storage.ErrAlreadyExists) {
			return media.Asset{}, apperr.New(apperr.KindStorageWrite, apperr.StageBlobWrite, err)
		}
		c.observer.RecordKeyCollision()
		c.logger.Warn("storage key collision", slog.String("key", key), slog.Int("attempt", attempt))
	}
	return media.Asset{}, apperr.Newf(apperr.KindConflict, apperr.StageKey, "no free storage key after %d attempts", c.keyAttempts)
}

func (c *Coordinator) deleteBestEffort(ctx context.Context, action, key string) {
	ctx = context.WithoutCancel(ctx)
	if c.compensationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.compensationTimeout)
		defer cancel()
	}
	err := c.blobs.Delete(ctx, key)
	c.observer.RecordCompensation(action, err)
	if err != nil {
		c.logger.Warn("blob cleanup failed", slog.String("action", action), slog.String("key", key), slog.Any("error", err))
	}
}

func (c *Coordinator) lock(ctx context.Context, id string) (func(), error) {
	unlock, err := c.locks.Lock(ctx, id)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, "", err)
	}
	return unlock, nil
}

func (c *Coordinator) observe(flow string, start time.Time) func(*error) {
	return func(errp *error) {
		c.observer.RecordIngest(flow, time.Since(start), *errp)
	}
}

func metadataError(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, coffees.ErrNotFound) {
		return apperr.New(apperr.KindNotFound, apperr.StageMetadataWrite, err)
	}
	return apperr.New(apperr.KindMetadataWrite, apperr.StageMetadataWrite, err)
}

func metadataReadError(err error) error {
	if errors.Is(err, coffees.ErrNotFound) {
		return apperr.New(apperr.KindNotFound, apperr.StageMetadataRead, err)
	}
	return apperr.New(apperr.KindInternal, apperr.StageMetadataRead, err)
}
