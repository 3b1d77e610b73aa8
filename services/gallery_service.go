package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"festival-tickets/config"
	"festival-tickets/internal/drive"
	"festival-tickets/models"
	"festival-tickets/monitoring"
	"festival-tickets/utils"
)

var (
	// ErrGalleryUnavailable means Drive credentials were never configured.
	ErrGalleryUnavailable = errors.New("gallery is not configured")

	// ErrYearNotFound means no gallery folder exists for the requested year.
	ErrYearNotFound = errors.New("no gallery folder for that year")

	// ErrFeaturedNotFound means the featured photos folder is missing.
	ErrFeaturedNotFound = errors.New("featured photos folder not found")
)

const (
	workshopsFolder = "Workshops"
	socialsFolder   = "Socials"
	featuredFolder  = "Captured_Moments"
)

// GalleryService assembles the photo gallery from a shared Google Drive.
// Responses are cached in Redis and Drive calls run behind a circuit
// breaker, since the festival site keeps serving ticket traffic even when
// Drive misbehaves.
type GalleryService struct {
	drive        *drive.Client
	redis        *redis.Client
	breaker      *utils.CircuitBreaker
	monitor      *monitoring.Monitor
	rootFolderID string
	folderPrefix string
	cacheTTL     time.Duration
}

func NewGalleryService(cfg *config.Config, redisClient *redis.Client, monitor *monitoring.Monitor) *GalleryService {
	svc := &GalleryService{
		redis:        redisClient,
		breaker:      utils.NewCircuitBreaker("google-drive"),
		monitor:      monitor,
		rootFolderID: cfg.GoogleDriveFolderID,
		folderPrefix: cfg.GalleryFolderPrefix,
		cacheTTL:     cfg.GalleryCacheTTL,
	}

	if cfg.GoogleServiceAccountEmail == "" || cfg.GooglePrivateKey == "" || cfg.GoogleDriveFolderID == "" {
		log.Println("Google Drive credentials not configured, gallery disabled")
		return svc
	}

	client, err := drive.NewClient(&drive.Config{
		ServiceAccountEmail: cfg.GoogleServiceAccountEmail,
		PrivateKeyPEM:       cfg.GooglePrivateKey,
	})
	if err != nil {
		log.Printf("Google Drive client init failed, gallery disabled: %v", err)
		return svc
	}
	svc.drive = client

	return svc
}

func (s *GalleryService) Enabled() bool {
	return s.drive != nil
}

// Gallery returns the media for one festival year, grouped from the
// Workshops and Socials folders under the year's Drive folder.
func (s *GalleryService) Gallery(ctx context.Context, year string) (*models.GalleryResponse, error) {
	if s.drive == nil {
		return nil, ErrGalleryUnavailable
	}

	cacheKey := "gallery:" + year
	if cached := s.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	reply, err := s.breaker.Execute(ctx, func() (any, error) {
		return s.fetchGallery(ctx, year)
	})
	if err != nil {
		return nil, err
	}

	gallery := reply.(*models.GalleryResponse)
	if gallery == nil {
		return nil, ErrYearNotFound
	}
	s.toCache(ctx, cacheKey, gallery)
	return gallery, nil
}

// FeaturedPhotos returns the images from the curated featured folder.
func (s *GalleryService) FeaturedPhotos(ctx context.Context) (*models.GalleryResponse, error) {
	if s.drive == nil {
		return nil, ErrGalleryUnavailable
	}

	cacheKey := "gallery:featured"
	if cached := s.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	reply, err := s.breaker.Execute(ctx, func() (any, error) {
		return s.fetchFeatured(ctx)
	})
	if err != nil {
		return nil, err
	}

	featured := reply.(*models.GalleryResponse)
	if featured == nil {
		return nil, ErrFeaturedNotFound
	}
	s.toCache(ctx, cacheKey, featured)
	return featured, nil
}

// fetchGallery does the Drive traversal for one year. A nil response with a
// nil error means the year folder does not exist; that is not a Drive
// failure and must not count against the circuit breaker.
func (s *GalleryService) fetchGallery(ctx context.Context, year string) (*models.GalleryResponse, error) {
	folderName := s.folderPrefix + "_" + year
	yearFolder, err := s.drive.FindFolder(ctx, folderName, s.rootFolderID)
	if err != nil {
		return nil, fmt.Errorf("find year folder: %w", err)
	}
	if yearFolder == nil {
		return nil, nil
	}

	subfolders, err := s.drive.ListChildFolders(ctx, yearFolder.ID)
	if err != nil {
		return nil, fmt.Errorf("list category folders: %w", err)
	}

	var items []models.GalleryItem
	for _, sub := range subfolders {
		if sub.Name != workshopsFolder && sub.Name != socialsFolder {
			continue
		}
		media, err := s.drive.ListMedia(ctx, sub.ID)
		if err != nil {
			return nil, fmt.Errorf("list %s media: %w", sub.Name, err)
		}
		for i := range media {
			items = append(items, galleryItem(&media[i], sub.Name, 400))
		}
	}

	// newest first across both categories
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt > items[j].CreatedAt })

	folder := models.GalleryFolder{ID: yearFolder.ID, Name: yearFolder.Name, Year: year}
	if meta, err := s.drive.GetFile(ctx, yearFolder.ID); err != nil {
		return nil, fmt.Errorf("year folder metadata: %w", err)
	} else if meta != nil {
		folder.CreatedAt = meta.CreatedTime
		folder.ModifiedAt = meta.ModifiedTime
	}

	categories := map[string]int{"workshops": 0, "socials": 0}
	for _, item := range items {
		switch item.Category {
		case workshopsFolder:
			categories["workshops"]++
		case socialsFolder:
			categories["socials"]++
		}
	}

	return &models.GalleryResponse{
		Folder:     folder,
		Items:      items,
		Count:      len(items),
		Categories: categories,
	}, nil
}

func (s *GalleryService) fetchFeatured(ctx context.Context) (*models.GalleryResponse, error) {
	folder, err := s.drive.FindFolder(ctx, featuredFolder, s.rootFolderID)
	if err != nil {
		return nil, fmt.Errorf("find featured folder: %w", err)
	}
	if folder == nil {
		return nil, nil
	}

	images, err := s.drive.ListImages(ctx, folder.ID)
	if err != nil {
		return nil, fmt.Errorf("list featured images: %w", err)
	}

	items := make([]models.GalleryItem, 0, len(images))
	for i := range images {
		items = append(items, galleryItem(&images[i], "", 800))
	}

	return &models.GalleryResponse{
		Folder: models.GalleryFolder{ID: folder.ID, Name: folder.Name},
		Items:  items,
		Count:  len(items),
	}, nil
}

func (s *GalleryService) fromCache(ctx context.Context, key string) *models.GalleryResponse {
	if s.redis == nil {
		return nil
	}

	raw, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("gallery cache read failed", "key", key, "error", err)
		}
		s.monitor.TrackGalleryCache("miss")
		return nil
	}

	resp := &models.GalleryResponse{}
	if err := json.Unmarshal([]byte(raw), resp); err != nil {
		slog.Warn("gallery cache entry corrupt", "key", key, "error", err)
		s.monitor.TrackGalleryCache("miss")
		return nil
	}
	s.monitor.TrackGalleryCache("hit")
	return resp
}

func (s *GalleryService) toCache(ctx context.Context, key string, resp *models.GalleryResponse) {
	if s.redis == nil {
		return
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, string(raw), s.cacheTTL).Err(); err != nil {
		slog.Warn("gallery cache write failed", "key", key, "error", err)
	}
}

func galleryItem(f *drive.File, category string, thumbWidth int) models.GalleryItem {
	itemType := "image"
	if f.IsVideo() {
		itemType = "video"
	}
	size, _ := strconv.ParseInt(f.Size, 10, 64)

	return models.GalleryItem{
		ID:           f.ID,
		Name:         f.Name,
		Type:         itemType,
		MimeType:     f.MimeType,
		ThumbnailURL: fmt.Sprintf("https://lh3.googleusercontent.com/d/%s=w%d", f.ID, thumbWidth),
		ViewURL:      fmt.Sprintf("https://lh3.googleusercontent.com/d/%s=w1600", f.ID),
		DownloadURL:  "https://drive.google.com/uc?export=download&id=" + f.ID,
		Size:         size,
		CreatedAt:    f.CreatedTime,
		Category:     category,
	}
}
