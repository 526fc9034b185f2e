package media

import "errors"

// Canonical output of the transcoder.
const (
	CanonicalContentType = "image/jpeg"
	CanonicalExt         = ".jpg"
)

// Errors returned by the media components.
var (
	ErrUndecodable   = errors.New("image cannot be decoded")
	ErrTooManyPixels = errors.New("image exceeds pixel limit")
	ErrAssetTooLarge = errors.New("asset exceeds size limit")
	ErrEmptyAsset    = errors.New("asset payload is empty")
	ErrPoolSaturated = errors.New("transcode capacity exhausted")
)

// Upload is a raw file received from a caller, before transcoding.
type Upload struct {
	Filename string
	// DeclaredType is the client-supplied content type; it is advisory only.
	DeclaredType string
	Data         []byte
	// Size is the number of bytes received; it exceeds len(Data) when the
	// payload was cut off at the size limit.
	Size int64
}

// Image is a transcoded, canonical image ready to be stored.
type Image struct {
	Data         []byte
	Width        int
	Height       int
	SourceWidth  int
	SourceHeight int
	SourceFormat string
	ContentType  string
}

// Asset describes an image blob written to the blob store.
type Asset struct {
	StorageKey  string `json:"storage_key"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}
