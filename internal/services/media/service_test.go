package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/encontrocomfe/backend/internal/domain/model"
	pgrepo "github.com/encontrocomfe/backend/internal/repo/postgres"
)

type fakePhotos struct {
	photos []model.Photo
	nextID int64
}

func (f *fakePhotos) Create(_ context.Context, userID int64, objectKey string, maxActive int, now time.Time) (model.Photo, error) {
	if len(f.photos) >= maxActive {
		return model.Photo{}, pgrepo.ErrPhotoLimit
	}
	f.nextID++
	p := model.Photo{
		ID:        f.nextID,
		UserID:    userID,
		Position:  len(f.photos) + 1,
		ObjectKey: objectKey,
		CreatedAt: now,
	}
	f.photos = append(f.photos, p)
	return p, nil
}

func (f *fakePhotos) ListActive(_ context.Context, _ int64) ([]model.Photo, error) {
	out := make([]model.Photo, len(f.photos))
	copy(out, f.photos)
	return out, nil
}

func (f *fakePhotos) Remove(_ context.Context, _, photoID int64) (string, error) {
	for i, p := range f.photos {
		if p.ID == photoID {
			f.photos = append(f.photos[:i], f.photos[i+1:]...)
			return p.ObjectKey, nil
		}
	}
	return "", pgrepo.ErrPhotoNotFound
}

type fakeStorage struct {
	puts    []string
	deletes []string
}

func (f *fakeStorage) EnsureBucket(context.Context) error { return nil }

func (f *fakeStorage) Put(_ context.Context, key string, _ io.Reader, _ int64, _ string) error {
	f.puts = append(f.puts, key)
	return nil
}

func (f *fakeStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://media.local/" + key + "?sig=x", nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	return nil
}

type fakeProfiles struct {
	primary string
}

func (f *fakeProfiles) SetPrimaryPhoto(_ context.Context, _ int64, url string) error {
	f.primary = url
	return nil
}

type fakeMatches struct {
	match model.Match
	err   error
}

func (f *fakeMatches) GetByID(context.Context, int64) (model.Match, error) {
	return f.match, f.err
}

func newTestService(photos *fakePhotos, storage *fakeStorage) (*Service, *fakeProfiles) {
	profiles := &fakeProfiles{}
	svc := NewService(Dependencies{
		Photos:   photos,
		Profiles: profiles,
		Matches:  &fakeMatches{match: model.Match{ID: 9, UserAID: 1, UserBID: 2, Status: "active"}},
		Storage:  storage,
	})
	return svc, profiles
}

func TestUploadProfilePhotoFirstBecomesPrimary(t *testing.T) {
	photos := &fakePhotos{}
	storage := &fakeStorage{}
	svc, profiles := newTestService(photos, storage)

	p, err := svc.UploadProfilePhoto(context.Background(), 1, "selfie.JPG", "image/jpeg", strings.NewReader("img"), 3)
	if err != nil {
		t.Fatalf("UploadProfilePhoto: %v", err)
	}
	if p.Position != 1 {
		t.Fatalf("position = %d", p.Position)
	}
	if !strings.HasPrefix(p.ObjectKey, "profiles/1/") || !strings.HasSuffix(p.ObjectKey, ".jpg") {
		t.Fatalf("object key = %q", p.ObjectKey)
	}
	if profiles.primary != p.ObjectKey {
		t.Fatalf("primary photo not set, got %q", profiles.primary)
	}
	if p.URL == "" {
		t.Fatal("expected a presigned url")
	}
}

func TestUploadProfilePhotoCapDeletesOrphan(t *testing.T) {
	photos := &fakePhotos{}
	storage := &fakeStorage{}
	svc, _ := newTestService(photos, storage)

	for i := 0; i < MaxActivePhotos(); i++ {
		if _, err := svc.UploadProfilePhoto(context.Background(), 1, "a.png", "image/png", strings.NewReader("x"), 1); err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
	}

	_, err := svc.UploadProfilePhoto(context.Background(), 1, "extra.png", "image/png", strings.NewReader("x"), 1)
	if !errors.Is(err, ErrPhotoLimitReached) {
		t.Fatalf("want ErrPhotoLimitReached, got %v", err)
	}
	if len(storage.deletes) != 1 {
		t.Fatalf("over-cap blob should be deleted, deletes = %v", storage.deletes)
	}
}

func TestUploadProfilePhotoRejectsContentType(t *testing.T) {
	svc, _ := newTestService(&fakePhotos{}, &fakeStorage{})

	_, err := svc.UploadProfilePhoto(context.Background(), 1, "doc.pdf", "application/pdf", strings.NewReader("x"), 1)
	if !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("want ErrUnsupportedMedia, got %v", err)
	}
}

func TestUploadChatMediaPrefixesAndKinds(t *testing.T) {
	storage := &fakeStorage{}
	svc, _ := newTestService(&fakePhotos{}, storage)

	up, err := svc.UploadChatMedia(context.Background(), 9, 2, "voice.webm", "audio/webm", strings.NewReader("x"), 4)
	if err != nil {
		t.Fatalf("UploadChatMedia: %v", err)
	}
	if !strings.HasPrefix(up.ObjectKey, "chat/9/2/") {
		t.Fatalf("object key = %q", up.ObjectKey)
	}
	if up.Kind != model.MessageKindAudio {
		t.Fatalf("kind = %q", up.Kind)
	}
}

func TestUploadChatMediaRejectsOutsider(t *testing.T) {
	svc, _ := newTestService(&fakePhotos{}, &fakeStorage{})

	_, err := svc.UploadChatMedia(context.Background(), 9, 77, "pic.jpg", "image/jpeg", strings.NewReader("x"), 4)
	if !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("want ErrMatchNotFound for non-participant, got %v", err)
	}
}

func TestDeletePhotoRemovesBlob(t *testing.T) {
	photos := &fakePhotos{}
	storage := &fakeStorage{}
	svc, _ := newTestService(photos, storage)

	p, err := svc.UploadProfilePhoto(context.Background(), 1, "a.webp", "image/webp", strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := svc.DeletePhoto(context.Background(), 1, p.ID); err != nil {
		t.Fatalf("DeletePhoto: %v", err)
	}
	if len(storage.deletes) != 1 || storage.deletes[0] != p.ObjectKey {
		t.Fatalf("blob not deleted, deletes = %v", storage.deletes)
	}
	if err := svc.DeletePhoto(context.Background(), 1, p.ID); !errors.Is(err, ErrPhotoNotFound) {
		t.Fatalf("want ErrPhotoNotFound on second delete, got %v", err)
	}
}
