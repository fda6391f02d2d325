package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emd5953/leaseIQ-sub000/internal/contracts"
	"github.com/emd5953/leaseIQ-sub000/internal/geo"
	"github.com/emd5953/leaseIQ-sub000/internal/logging"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
	"github.com/emd5953/leaseIQ-sub000/internal/services"
	"github.com/emd5953/leaseIQ-sub000/internal/tasks"
)

// RestListingHandler handles REST requests for listings.
type RestListingHandler struct {
	ingestionService services.IIngestionService
	locator          services.IDuplicateLocator
	searchService    services.ISearchService
	taskClient       tasks.Enqueuer // nil disables async ingestion
	logger           *slog.Logger
}

// NewRestListingHandler creates a new RestListingHandler.
func NewRestListingHandler(
	ingestionService services.IIngestionService,
	locator services.IDuplicateLocator,
	searchService services.ISearchService,
	taskClient tasks.Enqueuer,
	logger *slog.Logger,
) *RestListingHandler {
	return &RestListingHandler{
		ingestionService: ingestionService,
		locator:          locator,
		searchService:    searchService,
		taskClient:       taskClient,
		logger:           logger,
	}
}

// respondError maps service errors onto HTTP statuses.
func (h *RestListingHandler) respondError(c *gin.Context, err error, msg string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, services.ErrValidation), errors.Is(err, contracts.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
	case errors.Is(err, services.ErrConflictRetryable):
		c.JSON(http.StatusConflict, gin.H{"error": "Concurrent update, retry the request"})
	default:
		_ = c.Error(err)
		h.logger.Error(msg, "path", c.FullPath(), logging.Err(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msg})
	}
}

// IngestListing handles POST /v1/listing/ingest. With ?async=true the
// candidate is queued and 202 is returned.
func (h *RestListingHandler) IngestListing(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}
	candidate, err := contracts.DecodeCandidate(body)
	if err != nil {
		h.respondError(c, err, "Invalid listing payload")
		return
	}

	if c.Query("async") == "true" {
		if h.taskClient == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Async ingestion is not available"})
			return
		}
		taskID, err := tasks.EnqueueListingIngest(c.Request.Context(), h.taskClient, candidate)
		if err != nil {
			h.respondError(c, err, "Failed to queue listing")
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"task_id": taskID})
		return
	}

	res, err := h.ingestionService.IngestDetailed(c.Request.Context(), candidate)
	if err != nil {
		h.respondError(c, err, "Failed to ingest listing")
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"data":       res.Listing,
		"created":    res.Created,
		"duplicates": res.DuplicateCount,
	})
}

// FindDuplicates handles GET /v1/listing/duplicates?street=&unit=&lon=&lat=&radius=
func (h *RestListingHandler) FindDuplicates(c *gin.Context) {
	street := c.Query("street")
	if street == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "street is required"})
		return
	}
	lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	if lonErr != nil || latErr != nil || !geo.ValidPoint(lon, lat) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lon and lat must be valid coordinates"})
		return
	}
	var radius float64
	if radiusStr := c.Query("radius"); radiusStr != "" {
		r, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil || r <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "radius must be a positive number of meters"})
			return
		}
		radius = r
	}

	dups, err := h.locator.FindDuplicates(c.Request.Context(), street, c.Query("unit"), geo.Point{lon, lat}, radius)
	if err != nil {
		h.respondError(c, err, "Failed to look up duplicates")
		return
	}
	if dups == nil {
		dups = []models.Listing{}
	}
	c.JSON(http.StatusOK, gin.H{"data": dups})
}

type searchRequest struct {
	Criteria models.SearchCriteria `json:"criteria"`
	Limit    int                   `json:"limit"`
}

// SearchListings handles POST /v1/listing/search
func (h *RestListingHandler) SearchListings(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if req.Limit < 0 || req.Limit > services.MaxSearchResults {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit out of range"})
		return
	}

	listings, err := h.searchService.Search(c.Request.Context(), req.Criteria, req.Limit)
	if err != nil {
		h.respondError(c, err, "Failed to search listings")
		return
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// GetListingByID handles GET /v1/listing/:id
func (h *RestListingHandler) GetListingByID(c *gin.Context) {
	listing, err := h.searchService.FindListingByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to retrieve listing")
		return
	}
	c.JSON(http.StatusOK, listing)
}
