package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/encontrocomfe/backend/internal/domain/model"
	pgrepo "github.com/encontrocomfe/backend/internal/repo/postgres"
)

var (
	ErrValidation        = errors.New("media: invalid input")
	ErrPhotoLimitReached = errors.New("media: photo limit reached")
	ErrPhotoNotFound     = errors.New("media: photo not found")
	ErrMatchNotFound     = errors.New("media: conversation not found")
	ErrUnsupportedMedia  = errors.New("media: unsupported content type")
	ErrPayloadTooLarge   = errors.New("media: file too large")

	errDepsNotConfigured = errors.New("media: dependencies are not configured")
)

const (
	signedURLTTL    = 15 * time.Minute
	maxActivePhotos = 6
	maxPhotoBytes   = 8 << 20
	maxChatBytes    = 20 << 20
)

type PhotoStore interface {
	Create(ctx context.Context, userID int64, objectKey string, maxActive int, now time.Time) (model.Photo, error)
	ListActive(ctx context.Context, userID int64) ([]model.Photo, error)
	Remove(ctx context.Context, userID, photoID int64) (string, error)
}

type ProfileStore interface {
	SetPrimaryPhoto(ctx context.Context, userID int64, url string) error
}

type MatchStore interface {
	GetByID(ctx context.Context, matchID int64) (model.Match, error)
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Dependencies struct {
	Photos   PhotoStore
	Profiles ProfileStore
	Matches  MatchStore
	Storage  ObjectStorage
}

type Service struct {
	deps Dependencies
	now  func() time.Time
}

func NewService(deps Dependencies) *Service {
	return &Service{deps: deps, now: func() time.Time { return time.Now().UTC() }}
}

var photoContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

var chatContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"audio/webm": true,
	"audio/ogg":  true,
	"audio/mpeg": true,
	"audio/mp4":  true,
}

// UploadProfilePhoto stores the blob and appends a gallery slot. The first
// photo becomes the profile's primary photo.
func (s *Service) UploadProfilePhoto(ctx context.Context, userID int64, fileName, contentType string, body io.Reader, size int64) (model.Photo, error) {
	if userID <= 0 || body == nil || size <= 0 {
		return model.Photo{}, ErrValidation
	}
	if size > maxPhotoBytes {
		return model.Photo{}, ErrPayloadTooLarge
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if !photoContentTypes[contentType] {
		return model.Photo{}, ErrUnsupportedMedia
	}
	if s.deps.Photos == nil || s.deps.Storage == nil {
		return model.Photo{}, errDepsNotConfigured
	}

	if err := s.deps.Storage.EnsureBucket(ctx); err != nil {
		return model.Photo{}, fmt.Errorf("ensure bucket: %w", err)
	}

	key, err := objectKey(fmt.Sprintf("profiles/%d", userID), fileName, s.now())
	if err != nil {
		return model.Photo{}, fmt.Errorf("build object key: %w", err)
	}

	if err := s.deps.Storage.Put(ctx, key, body, size, contentType); err != nil {
		return model.Photo{}, fmt.Errorf("put object: %w", err)
	}

	photo, err := s.deps.Photos.Create(ctx, userID, key, maxActivePhotos, s.now())
	if err != nil {
		_ = s.deps.Storage.Delete(ctx, key)
		if errors.Is(err, pgrepo.ErrPhotoLimit) {
			return model.Photo{}, ErrPhotoLimitReached
		}
		return model.Photo{}, fmt.Errorf("create photo record: %w", err)
	}

	photo.URL, err = s.deps.Storage.PresignGet(ctx, photo.ObjectKey, signedURLTTL)
	if err != nil {
		return model.Photo{}, fmt.Errorf("presign photo url: %w", err)
	}

	if photo.Position == 1 && s.deps.Profiles != nil {
		if err := s.deps.Profiles.SetPrimaryPhoto(ctx, userID, photo.ObjectKey); err != nil {
			return model.Photo{}, fmt.Errorf("set primary photo: %w", err)
		}
	}
	return photo, nil
}

func (s *Service) ListPhotos(ctx context.Context, userID int64) ([]model.Photo, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.deps.Photos == nil || s.deps.Storage == nil {
		return nil, errDepsNotConfigured
	}

	photos, err := s.deps.Photos.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	for i := range photos {
		photos[i].URL, err = s.deps.Storage.PresignGet(ctx, photos[i].ObjectKey, signedURLTTL)
		if err != nil {
			return nil, fmt.Errorf("presign photo url: %w", err)
		}
	}
	return photos, nil
}

func (s *Service) DeletePhoto(ctx context.Context, userID, photoID int64) error {
	if userID <= 0 || photoID <= 0 {
		return ErrValidation
	}
	if s.deps.Photos == nil || s.deps.Storage == nil {
		return errDepsNotConfigured
	}

	key, err := s.deps.Photos.Remove(ctx, userID, photoID)
	if errors.Is(err, pgrepo.ErrPhotoNotFound) {
		return ErrPhotoNotFound
	}
	if err != nil {
		return fmt.Errorf("remove photo: %w", err)
	}
	// The record is already gone; an orphaned blob is acceptable.
	_ = s.deps.Storage.Delete(ctx, key)
	return nil
}

// ChatUpload is the stored blob a client then sends as an image or audio
// message. The presigned URL goes into the message payload.
type ChatUpload struct {
	ObjectKey string
	URL       string
	Kind      model.MessageKind
}

// UploadChatMedia verifies the sender belongs to the conversation before
// accepting the blob.
func (s *Service) UploadChatMedia(ctx context.Context, matchID, senderID int64, fileName, contentType string, body io.Reader, size int64) (ChatUpload, error) {
	if matchID <= 0 || senderID <= 0 || body == nil || size <= 0 {
		return ChatUpload{}, ErrValidation
	}
	if size > maxChatBytes {
		return ChatUpload{}, ErrPayloadTooLarge
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if !chatContentTypes[contentType] {
		return ChatUpload{}, ErrUnsupportedMedia
	}
	if s.deps.Matches == nil || s.deps.Storage == nil {
		return ChatUpload{}, errDepsNotConfigured
	}

	match, err := s.deps.Matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMatchNotFound) {
			return ChatUpload{}, ErrMatchNotFound
		}
		return ChatUpload{}, fmt.Errorf("load match: %w", err)
	}
	if !match.HasParticipant(senderID) {
		return ChatUpload{}, ErrMatchNotFound
	}

	if err := s.deps.Storage.EnsureBucket(ctx); err != nil {
		return ChatUpload{}, fmt.Errorf("ensure bucket: %w", err)
	}

	key, err := objectKey(fmt.Sprintf("chat/%d/%d", matchID, senderID), fileName, s.now())
	if err != nil {
		return ChatUpload{}, fmt.Errorf("build object key: %w", err)
	}
	if err := s.deps.Storage.Put(ctx, key, body, size, contentType); err != nil {
		return ChatUpload{}, fmt.Errorf("put object: %w", err)
	}

	url, err := s.deps.Storage.PresignGet(ctx, key, signedURLTTL)
	if err != nil {
		return ChatUpload{}, fmt.Errorf("presign chat media url: %w", err)
	}

	kind := model.MessageKindImage
	if strings.HasPrefix(contentType, "audio/") {
		kind = model.MessageKindAudio
	}
	return ChatUpload{ObjectKey: key, URL: url, Kind: kind}, nil
}

// PresignGet re-signs a stored object key with the default TTL, used to
// turn gallery keys into fetchable URLs outside upload flows.
func (s *Service) PresignGet(ctx context.Context, key string) (string, error) {
	if s.deps.Storage == nil {
		return "", errDepsNotConfigured
	}
	return s.deps.Storage.PresignGet(ctx, key, signedURLTTL)
}

func objectKey(prefix, fileName string, now time.Time) (string, error) {
	rnd := make([]byte, 8)
	if _, err := rand.Read(rnd); err != nil {
		return "", err
	}

	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	if ext == "" {
		ext = ".bin"
	}

	stamp := now.UTC().Format("20060102T150405")
	return fmt.Sprintf("%s/%s_%s%s", prefix, stamp, hex.EncodeToString(rnd), ext), nil
}

func MaxActivePhotos() int {
	return maxActivePhotos
}
