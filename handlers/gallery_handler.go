package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"festival-tickets/models"
	"festival-tickets/services"
	"festival-tickets/utils"
)

// GalleryHandler serves the public photo gallery endpoints.
type GalleryHandler struct {
	gallery *services.GalleryService
}

func NewGalleryHandler(gallery *services.GalleryService) *GalleryHandler {
	return &GalleryHandler{gallery: gallery}
}

// Gallery handles GET /api/gallery?year=. A missing year defaults to the
// current festival year.
func (h *GalleryHandler) Gallery(e *core.RequestEvent) error {
	year := e.Request.URL.Query().Get("year")
	if year == "" {
		year = strconv.Itoa(time.Now().Year())
	}

	resp, err := h.gallery.Gallery(e.Request.Context(), year)
	return h.respond(e, resp, err, fmt.Sprintf("No gallery for %s", year))
}

// Featured handles GET /api/featured-photos.
func (h *GalleryHandler) Featured(e *core.RequestEvent) error {
	resp, err := h.gallery.FeaturedPhotos(e.Request.Context())
	return h.respond(e, resp, err, "No featured photos")
}

func (h *GalleryHandler) respond(e *core.RequestEvent, resp *models.GalleryResponse, err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return e.JSON(http.StatusOK, resp)
	case errors.Is(err, services.ErrGalleryUnavailable):
		return apis.NewApiError(http.StatusServiceUnavailable, "Gallery is not configured", nil)
	case errors.Is(err, utils.ErrCircuitOpen):
		return apis.NewApiError(http.StatusServiceUnavailable, "Gallery temporarily unavailable", nil)
	case errors.Is(err, services.ErrYearNotFound), errors.Is(err, services.ErrFeaturedNotFound):
		return apis.NewNotFoundError(notFoundMsg, nil)
	default:
		return apis.NewApiError(http.StatusBadGateway, "Gallery fetch failed", err)
	}
}
