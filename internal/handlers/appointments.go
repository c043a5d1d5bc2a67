package handlers

import (
	"net/http"

	"estate-marketplace/internal/appointments"
	"estate-marketplace/internal/auth"
	"estate-marketplace/internal/models"
	"estate-marketplace/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// AppointmentHandler handles viewing-request routes
type AppointmentHandler struct {
	svc     *appointments.Service
	limiter *ratelimit.Limiter
}

func NewAppointmentHandler(svc *appointments.Service, limiter *ratelimit.Limiter) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, limiter: limiter}
}

// Create handles POST /api/appointments
func (h *AppointmentHandler) Create(c *gin.Context) {
	ident, _ := auth.FromContext(c)

	if h.limiter != nil && !h.limiter.Allow(ident.UserID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, please try again later"})
		return
	}

	var req struct {
		ListingID string `json:"listing_id" binding:"required"`
		Date      string `json:"date" binding:"required"`
		Time      string `json:"time" binding:"required"`
		Notes     string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	appt, err := h.svc.Schedule(appointments.ScheduleRequest{
		ListingID:   req.ListingID,
		RequesterID: ident.UserID,
		Date:        req.Date,
		TimeSlot:    req.Time,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, appt)
}

// List handles GET /api/appointments?listing_id=
func (h *AppointmentHandler) List(c *gin.Context) {
	ident, _ := auth.FromContext(c)

	listingID := c.Query("listing_id")
	if listingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listing_id is required"})
		return
	}

	appts, err := h.svc.ListForListing(listingID, ident.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"appointments": appts,
		"count":        len(appts),
	})
}

// Slots handles GET /api/appointments/slots?listing_id=&date=
func (h *AppointmentHandler) Slots(c *gin.Context) {
	listingID := c.Query("listing_id")
	date := c.Query("date")
	if listingID == "" || date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listing_id and date are required"})
		return
	}

	slots, err := h.svc.AvailableSlots(listingID, date)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":  date,
		"slots": slots,
	})
}

// SetStatus handles PUT /api/appointments/:id/status
func (h *AppointmentHandler) SetStatus(c *gin.Context) {
	ident, _ := auth.FromContext(c)

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	appt, err := h.svc.SetStatus(c.Param("id"), ident.UserID, models.AppointmentStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, appt)
}

// SetMeetingLink handles PUT /api/appointments/:id/meeting-link
func (h *AppointmentHandler) SetMeetingLink(c *gin.Context) {
	ident, _ := auth.FromContext(c)

	var req struct {
		MeetingLink string `json:"meeting_link" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	appt, err := h.svc.SetMeetingLink(c.Param("id"), ident.UserID, req.MeetingLink)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, appt)
}
