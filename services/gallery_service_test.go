package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"festival-tickets/config"
	"festival-tickets/internal/drive"
	"festival-tickets/utils"
)

type galleryFake struct {
	mu           sync.Mutex
	fileRequests int
	fail         bool
}

func (f *galleryFake) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fileRequests
}

func (f *galleryFake) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

// newGalleryFixture wires a GalleryService against a fake Drive API that
// serves one festival year with a workshop image and a social video.
func newGalleryFixture(t *testing.T) (*GalleryService, *galleryFake) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	folderMime := drive.FolderMimeType
	fake := &galleryFake{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			json.NewEncoder(w).Encode(map[string]any{"access_token": "t", "expires_in": 3600})
			return
		}

		fake.mu.Lock()
		fake.fileRequests++
		failing := fake.fail
		fake.mu.Unlock()
		if failing {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		if strings.HasPrefix(r.URL.Path, "/drive/files/") {
			json.NewEncoder(w).Encode(map[string]any{
				"id": "year1", "name": "BoulderFest_2026", "mimeType": folderMime,
				"createdTime": "2026-01-01T00:00:00Z", "modifiedTime": "2026-06-01T00:00:00Z",
			})
			return
		}

		q := r.URL.Query().Get("q")
		var files []map[string]any
		switch {
		case strings.Contains(q, "name='BoulderFest_2026'"):
			files = []map[string]any{{"id": "year1", "name": "BoulderFest_2026", "mimeType": folderMime}}
		case strings.Contains(q, "name='Captured_Moments'"):
			files = []map[string]any{{"id": "cm1", "name": "Captured_Moments", "mimeType": folderMime}}
		case strings.Contains(q, "'year1' in parents") && strings.Contains(q, folderMime):
			files = []map[string]any{
				{"id": "w1", "name": "Workshops", "mimeType": folderMime},
				{"id": "s1", "name": "Socials", "mimeType": folderMime},
				{"id": "x1", "name": "Backstage", "mimeType": folderMime},
			}
		case strings.Contains(q, "'w1' in parents"):
			files = []map[string]any{{
				"id": "img1", "name": "rueda.jpg", "mimeType": "image/jpeg",
				"size": "20480", "createdTime": "2026-05-16T10:00:00Z",
			}}
		case strings.Contains(q, "'s1' in parents"):
			files = []map[string]any{{
				"id": "vid1", "name": "late-night.mp4", "mimeType": "video/mp4",
				"size": "1048576", "createdTime": "2026-05-17T23:00:00Z",
			}}
		case strings.Contains(q, "'cm1' in parents"):
			files = []map[string]any{{
				"id": "feat1", "name": "crowd.jpg", "mimeType": "image/jpeg",
				"size": "4096", "createdTime": "2026-05-18T10:00:00Z",
			}}
		}
		json.NewEncoder(w).Encode(map[string]any{"files": files})
	}))
	t.Cleanup(srv.Close)

	client, err := drive.NewClient(&drive.Config{
		ServiceAccountEmail: "gallery@festival.iam.gserviceaccount.com",
		PrivateKeyPEM:       string(keyPEM),
		TokenURL:            srv.URL + "/token",
		BaseURL:             srv.URL + "/drive",
	})
	require.NoError(t, err)

	svc := &GalleryService{
		drive:        client,
		breaker:      utils.NewCircuitBreaker("google-drive"),
		rootFolderID: "root1",
		folderPrefix: "BoulderFest",
		cacheTTL:     time.Minute,
	}
	return svc, fake
}

func TestGalleryService_Unconfigured(t *testing.T) {
	svc := NewGalleryService(&config.Config{GalleryFolderPrefix: "BoulderFest", GalleryCacheTTL: time.Minute}, nil, nil)

	assert.False(t, svc.Enabled())

	_, err := svc.Gallery(context.Background(), "2026")
	assert.ErrorIs(t, err, ErrGalleryUnavailable)

	_, err = svc.FeaturedPhotos(context.Background())
	assert.ErrorIs(t, err, ErrGalleryUnavailable)
}

func TestGalleryService_Year(t *testing.T) {
	svc, _ := newGalleryFixture(t)

	resp, err := svc.Gallery(context.Background(), "2026")
	require.NoError(t, err)

	assert.Equal(t, "year1", resp.Folder.ID)
	assert.Equal(t, "BoulderFest_2026", resp.Folder.Name)
	assert.Equal(t, "2026", resp.Folder.Year)
	assert.Equal(t, "2026-01-01T00:00:00Z", resp.Folder.CreatedAt)

	require.Equal(t, 2, resp.Count)
	require.Len(t, resp.Items, 2)

	// newest first across categories
	newest := resp.Items[0]
	assert.Equal(t, "vid1", newest.ID)
	assert.Equal(t, "video", newest.Type)
	assert.Equal(t, "Socials", newest.Category)
	assert.Equal(t, int64(1048576), newest.Size)

	older := resp.Items[1]
	assert.Equal(t, "img1", older.ID)
	assert.Equal(t, "image", older.Type)
	assert.Equal(t, "Workshops", older.Category)
	assert.Equal(t, "https://lh3.googleusercontent.com/d/img1=w400", older.ThumbnailURL)
	assert.Equal(t, "https://lh3.googleusercontent.com/d/img1=w1600", older.ViewURL)
	assert.Equal(t, "https://drive.google.com/uc?export=download&id=img1", older.DownloadURL)

	assert.Equal(t, map[string]int{"workshops": 1, "socials": 1}, resp.Categories)
}

func TestGalleryService_YearNotFound(t *testing.T) {
	svc, _ := newGalleryFixture(t)

	_, err := svc.Gallery(context.Background(), "1999")
	assert.ErrorIs(t, err, ErrYearNotFound)
}

func TestGalleryService_Featured(t *testing.T) {
	svc, _ := newGalleryFixture(t)

	resp, err := svc.FeaturedPhotos(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "cm1", resp.Folder.ID)
	assert.Equal(t, "Captured_Moments", resp.Folder.Name)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "https://lh3.googleusercontent.com/d/feat1=w800", resp.Items[0].ThumbnailURL)
	assert.Empty(t, resp.Items[0].Category)
}

func TestGalleryService_CacheHit(t *testing.T) {
	svc, fake := newGalleryFixture(t)
	db, mock := redismock.NewClientMock()
	svc.redis = db

	cached := `{"folder":{"id":"cached1","name":"BoulderFest_2026","year":"2026"},"items":[],"count":0,"categories":{"workshops":0,"socials":0}}`
	mock.ExpectGet("gallery:2026").SetVal(cached)

	resp, err := svc.Gallery(context.Background(), "2026")
	require.NoError(t, err)
	assert.Equal(t, "cached1", resp.Folder.ID)
	assert.Equal(t, 0, fake.count(), "cache hit must not touch Drive")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGalleryService_CacheMissFetchesAndStores(t *testing.T) {
	svc, fake := newGalleryFixture(t)
	db, mock := redismock.NewClientMock()
	svc.redis = db

	mock.ExpectGet("gallery:2026").RedisNil()
	mock.Regexp().ExpectSet("gallery:2026", `.*"year1".*`, time.Minute).SetVal("OK")

	resp, err := svc.Gallery(context.Background(), "2026")
	require.NoError(t, err)
	assert.Equal(t, "year1", resp.Folder.ID)
	assert.Greater(t, fake.count(), 0)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGalleryService_BreakerTripsOnDriveOutage(t *testing.T) {
	svc, fake := newGalleryFixture(t)
	fake.setFail(true)

	for i := 0; i < 5; i++ {
		_, err := svc.Gallery(context.Background(), "2026")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	}

	_, err := svc.Gallery(context.Background(), "2026")
	assert.ErrorIs(t, err, utils.ErrCircuitOpen)
}
