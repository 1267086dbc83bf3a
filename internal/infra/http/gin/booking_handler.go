package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayly/internal/app/commands"
	"stayly/internal/app/dto"
	bookingapp "stayly/internal/app/handlers/booking"
	"stayly/internal/app/queries"
)

const idempotencyHeader = "Idempotency-Key"

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	PropertyID string `json:"property_id" binding:"required"`
	CheckIn    string `json:"check_in" binding:"required"`
	CheckOut   string `json:"check_out" binding:"required"`
	Guests     int    `json:"guests"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type paymentRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

func (h BookingHandler) Quote(c *gin.Context) {
	checkIn, checkOut, err := parseStay(c.Query("check_in"), c.Query("check_out"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	q := bookingapp.QuoteStayQuery{
		PropertyID: c.Param("id"),
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Guests:     queryInt(c, "guests", 1),
	}
	result, err := queries.Ask[bookingapp.QuoteStayQuery, dto.Quote](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Create(c *gin.Context) {
	guest, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	checkIn, checkOut, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		CommandID:       generateCommandID(),
		PropertyID:      req.PropertyID,
		GuestID:         guest.UserID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          req.Guests,
		IdempotencyKeyV: c.GetHeader(idempotencyHeader),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, *bookingapp.RequestBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	caller, ok := requireRole(c, "")
	if !ok {
		return
	}
	q := bookingapp.GetBookingQuery{BookingID: c.Param("id"), ActorID: caller.UserID}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	caller, ok := requireRole(c, "")
	if !ok {
		return
	}
	req, ok := bindReason(c)
	if !ok {
		return
	}
	cmd := bookingapp.CancelBookingCommand{BookingID: c.Param("id"), ActorID: caller.UserID, Reason: req.Reason}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, dto.Refund](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) RecordPayment(c *gin.Context) {
	guest, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	cmd := bookingapp.RecordPaymentCommand{
		BookingID: c.Param("id"),
		GuestID:   guest.UserID,
		Outcome:   bookingapp.PaymentOutcome(req.Outcome),
	}
	h.respond(c, func() (dto.Booking, error) {
		return commands.Dispatch[bookingapp.RecordPaymentCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) ListForGuest(c *gin.Context) {
	guest, ok := requireRole(c, "")
	if !ok {
		return
	}
	q := bookingapp.ListGuestBookingsQuery{GuestID: guest.UserID, Status: c.Query("status")}
	result, err := queries.Ask[bookingapp.ListGuestBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListForHost(c *gin.Context) {
	host, ok := requireRole(c, hostRole)
	if !ok {
		return
	}
	q := bookingapp.ListHostBookingsQuery{HostID: host.UserID, Status: c.Query("status")}
	result, err := queries.Ask[bookingapp.ListHostBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Confirm(c *gin.Context) {
	host, ok := requireRole(c, hostRole)
	if !ok {
		return
	}
	cmd := bookingapp.ConfirmBookingCommand{BookingID: c.Param("id"), HostID: host.UserID}
	h.respond(c, func() (dto.Booking, error) {
		return commands.Dispatch[bookingapp.ConfirmBookingCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) Reject(c *gin.Context) {
	host, ok := requireRole(c, hostRole)
	if !ok {
		return
	}
	req, ok := bindReason(c)
	if !ok {
		return
	}
	cmd := bookingapp.RejectBookingCommand{BookingID: c.Param("id"), HostID: host.UserID, Reason: req.Reason}
	h.respond(c, func() (dto.Booking, error) {
		return commands.Dispatch[bookingapp.RejectBookingCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) Complete(c *gin.Context) {
	host, ok := requireRole(c, hostRole)
	if !ok {
		return
	}
	cmd := bookingapp.CompleteBookingCommand{BookingID: c.Param("id"), HostID: host.UserID}
	h.respond(c, func() (dto.Booking, error) {
		return commands.Dispatch[bookingapp.CompleteBookingCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) respond(c *gin.Context, fn func() (dto.Booking, error)) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	result, err := fn()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// bindReason accepts an empty body.
func bindReason(c *gin.Context) (reasonRequest, bool) {
	var req reasonRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return req, false
	}
	return req, true
}

var _ BookingHTTP = BookingHandler{}
