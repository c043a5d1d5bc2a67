package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"estate-marketplace/internal/auth"
	"estate-marketplace/internal/clock"
	"estate-marketplace/internal/database"
	"estate-marketplace/internal/lifecycle"
	"estate-marketplace/internal/models"
	"estate-marketplace/internal/ratelimit"
	"estate-marketplace/internal/search"
	"estate-marketplace/internal/views"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListingHandler handles listing CRUD and the approval workflow routes
type ListingHandler struct {
	store     database.Store
	lifecycle *lifecycle.Service
	counter   *views.Counter
	search    *search.SearchClient
	clock     clock.Clock
	limiter   *ratelimit.Limiter
}

// NewListingHandler creates a new listing handler. searchClient may be nil
// when search is disabled.
func NewListingHandler(store database.Store, lc *lifecycle.Service, counter *views.Counter,
	searchClient *search.SearchClient, clk clock.Clock, limiter *ratelimit.Limiter) *ListingHandler {
	return &ListingHandler{
		store:     store,
		lifecycle: lc,
		counter:   counter,
		search:    searchClient,
		clock:     clk,
		limiter:   limiter,
	}
}

// listingResponse augments a listing with the purge countdown clients
// render for rejected listings.
type listingResponse struct {
	models.Listing
	RemainingDeletionTime *string `json:"remaining_deletion_time,omitempty"`
}

func (h *ListingHandler) toResponse(l models.Listing) listingResponse {
	resp := listingResponse{Listing: l}
	if remaining, ok := l.RemainingDeletion(h.clock.Now()); ok {
		formatted := models.FormatRemaining(remaining)
		resp.RemainingDeletionTime = &formatted
	}
	return resp
}

// Create handles POST /api/listings
func (h *ListingHandler) Create(c *gin.Context) {
	ident, _ := auth.FromContext(c)

	if h.limiter != nil && !h.limiter.Allow(ident.UserID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, please try again later"})
		return
	}

	var req struct {
		Title       string   `json:"title" binding:"required"`
		Description string   `json:"description"`
		Price       int64    `json:"price" binding:"required,gt=0"`
		Address     string   `json:"address"`
		City        string   `json:"city"`
		Beds        *int     `json:"beds"`
		Baths       *int     `json:"baths"`
		Sqft        *float64 `json:"sqft"`
		Floors      *int     `json:"floors"`
		YearBuilt   *int     `json:"year_built"`
		Amenities   []string `json:"amenities"`
		Images      []string `json:"images"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing := &models.Listing{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		OwnerID:     ident.UserID,
		Price:       req.Price,
		Address:     req.Address,
		City:        req.City,
		Beds:        req.Beds,
		Baths:       req.Baths,
		Sqft:        req.Sqft,
		Floors:      req.Floors,
		YearBuilt:   req.YearBuilt,
		Amenities:   req.Amenities,
		Status:      models.StatusPending,
	}
	images := make([]models.ListingImage, 0, len(req.Images))
	for _, url := range req.Images {
		images = append(images, models.ListingImage{ImageURL: url})
	}

	if err := h.store.CreateListing(listing, images); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.toResponse(*listing))
}

// List handles GET /api/listings
func (h *ListingHandler) List(c *gin.Context) {
	ident, _ := auth.FromContext(c)

	filters := database.ListingFilters{
		Status: c.DefaultQuery("status", string(models.StatusApproved)),
		City:   c.Query("city"),
	}

	owner := c.Query("owner")
	if owner == "me" {
		owner = ident.UserID
	}
	filters.OwnerID = owner

	if minStr := c.Query("min_price"); minStr != "" {
		if min, err := strconv.ParseInt(minStr, 10, 64); err == nil {
			filters.MinPrice = &min
		}
	}
	if maxStr := c.Query("max_price"); maxStr != "" {
		if max, err := strconv.ParseInt(maxStr, 10, 64); err == nil {
			filters.MaxPrice = &max
		}
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filters.Limit = limit
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filters.Offset = offset
		}
	}

	// Non-approved listings are visible only to their owner or a reviewer.
	if filters.Status != string(models.StatusApproved) && !ident.IsReviewer() {
		if filters.OwnerID != ident.UserID {
			c.JSON(http.StatusForbidden, gin.H{"error": "cannot list other users' unpublished listings"})
			return
		}
	}

	listings, err := h.store.ListListings(filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	now := h.clock.Now()
	responses := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		// Overdue rejected listings are as good as deleted; the sweep will
		// catch up shortly.
		if l.PurgeDue(now) {
			continue
		}
		responses = append(responses, h.toResponse(l))
	}

	c.JSON(http.StatusOK, gin.H{
		"listings": responses,
		"count":    len(responses),
	})
}

// Get handles GET /api/listings/:id
func (h *ListingHandler) Get(c *gin.Context) {
	ident, _ := auth.FromContext(c)
	id := c.Param("id")

	listing, err := h.store.GetListing(id)
	if err != nil {
		writeError(c, err)
		return
	}

	visible := listing.IsApproved() || listing.OwnerID == ident.UserID || ident.IsReviewer()
	if !visible || listing.PurgeDue(h.clock.Now()) {
		writeError(c, &models.NotFoundError{Entity: "listing", ID: id})
		return
	}

	h.counter.Bump(id)

	images, err := h.store.GetListingImages(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listing": h.toResponse(*listing),
		"images":  images,
	})
}

// Delete handles DELETE /api/listings/:id
func (h *ListingHandler) Delete(c *gin.Context) {
	ident, _ := auth.FromContext(c)

	if err := h.lifecycle.Delete(c.Param("id"), ident.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Approve handles POST /api/listings/:id/approve
func (h *ListingHandler) Approve(c *gin.Context) {
	listing, err := h.lifecycle.Approve(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toResponse(*listing))
}

// Reject handles POST /api/listings/:id/reject
func (h *ListingHandler) Reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing, err := h.lifecycle.Reject(c.Param("id"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toResponse(*listing))
}

// Resubmit handles POST /api/listings/:id/resubmit
func (h *ListingHandler) Resubmit(c *gin.Context) {
	ident, _ := auth.FromContext(c)

	listing, err := h.lifecycle.Resubmit(c.Param("id"), ident.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toResponse(*listing))
}

// Search handles GET /api/search
func (h *ListingHandler) Search(c *gin.Context) {
	if h.search == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not available"})
		return
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil {
		limit = 20
	}

	req := search.Request{
		Query: c.Query("q"),
		Limit: limit,
	}
	if city := c.Query("city"); city != "" {
		req.Filter = append(req.Filter, "city = '"+escapeFilterValue(city)+"'")
	}
	if minStr := c.Query("min_price"); minStr != "" {
		if _, err := strconv.ParseInt(minStr, 10, 64); err == nil {
			req.Filter = append(req.Filter, "price >= "+minStr)
		}
	}
	if maxStr := c.Query("max_price"); maxStr != "" {
		if _, err := strconv.ParseInt(maxStr, 10, 64); err == nil {
			req.Filter = append(req.Filter, "price <= "+maxStr)
		}
	}

	result, err := h.search.Search(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// escapeFilterValue quotes caller input for use inside a single-quoted
// search filter string, so a quote in the value cannot break or widen the
// filter expression.
func escapeFilterValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}
