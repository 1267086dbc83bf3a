package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"stayly/internal/app/commands"
	"stayly/internal/app/dto"
	propertiesapp "stayly/internal/app/handlers/properties"
	"stayly/internal/app/queries"
	"stayly/internal/domain/pricing"
)

const (
	hostRole          = "host"
	maxPhotoBodyBytes = 10 << 20
)

type PropertyHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type windowRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

type blockRequest struct {
	From   string `json:"from" binding:"required"`
	To     string `json:"to" binding:"required"`
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

type unlistRequest struct {
	Reason string `json:"reason"`
}

type createPropertyRequest struct {
	propertiesapp.DetailsInput
	Pricing *propertiesapp.PricingInput `json:"pricing"`
}

func (h PropertyHandler) Search(c *gin.Context) {
	checkIn, checkOut, err := parseStay(c.Query("check_in"), c.Query("check_out"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	minNightly, err := queryDecimal(c, "min_price")
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	maxNightly, err := queryDecimal(c, "max_price")
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	q := propertiesapp.SearchPropertiesQuery{
		City:          c.Query("city"),
		Country:       c.Query("country"),
		Guests:        queryInt(c, "guests", 0),
		MinNightly:    minNightly,
		MaxNightly:    maxNightly,
		Amenities:     queryList(c, "amenities"),
		PropertyTypes: queryList(c, "type"),
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Sort:          c.Query("sort"),
		Limit:         queryInt(c, "limit", 0),
		Offset:        queryInt(c, "offset", 0),
	}
	result, err := queries.Ask[propertiesapp.SearchPropertiesQuery, dto.PropertyCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) Get(c *gin.Context) {
	q := propertiesapp.GetPropertyQuery{PropertyID: c.Param("id")}
	if p, ok := currentPrincipal(c); ok {
		q.ViewerID = p.UserID
	}
	result, err := queries.Ask[propertiesapp.GetPropertyQuery, dto.Property](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) ListForHost(c *gin.Context) {
	host, ok := requireRole(c, hostRole)
	if !ok {
		return
	}
	q := propertiesapp.ListHostPropertiesQuery{
		HostID: host.UserID,
		Limit:  queryInt(c, "limit", 0),
		Offset: queryInt(c, "offset", 0),
	}
	result, err := queries.Ask[propertiesapp.ListHostPropertiesQuery, dto.PropertyCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) Create(c *gin.Context) {
	host, ok := requireRole(c, hostRole)
	if !ok {
		return
	}
	var req createPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	cmd := propertiesapp.CreatePropertyCommand{HostID: host.UserID, Details: req.DetailsInput, Pricing: req.Pricing}
	h.dispatch(c, http.StatusCreated, func() (dto.Property, error) {
		return commands.Dispatch[propertiesapp.CreatePropertyCommand, dto.Property](c.Request.Context(), h.Commands, cmd)
	})
}

func (h PropertyHandler) Update(c *gin.Context) {
	host, ok := requireRole(c, hostRole)
	if !ok {
		return
	}
	var req propertiesapp.DetailsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	cmd := propertiesapp.UpdatePropertyCommand{HostID: host.UserID, PropertyID: c.Param("id"), Details: req}
	h.dispatch(c, http.StatusOK, func() (dto.Property, error) {
		return commands.Dispatch[propertiesapp.UpdatePropertyCommand, dto.Property](c.Request.Context(), h.Commands, cmd)
	})
}

func (h PropertyHandler) SetPricing(c *gin.Context) {
	host, ok := requireRole(c, hostRole)
	if !ok {
		return
	}
	var req propertiesapp.PricingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	cmd := propertiesapp.SetPricingCommand{HostID: host.UserID, PropertyID: c.Param("id"), Pricing: req}
	h.dispatch(c, http.StatusOK, func() (dto.Property, error) {
		return commands.Dispatch[propertiesapp.SetPricingCommand, dto.Property](c.Request.Context(), h.Commands, cmd)
	})
}

func (h PropertyHandler) AddWindow(c *gin.Context) {
	cmd, ok := h.windowCommand(c)
	if !ok {
		return
	}
	h.dispatch(c, http.StatusOK, func() (dto.Property, error) {
		return commands.Dispatch[propertiesapp.AddWindowCommand, dto.Property](c.Request.Context(), h.Commands, propertiesapp.AddWindowCommand(cmd))
	})
}

func (h PropertyHandler) RemoveWindow(c *gin.Context) {
	cmd, ok := h.windowCommand(c)
	if !ok {
		return
	}
	h.dispatch(c, http.StatusOK, func() (dto.Property, error) {
		return commands.Dispatch[propertiesapp.RemoveWindowCommand, dto.Property](c.Request.Context(), h.Commands, propertiesapp.RemoveWindowCommand(cmd))
	})
}

func (h PropertyHandler) windowCommand(c *gin.Context) (propertiesapp.WindowCommand, bool) {
	host, ok := requireRole(c, hostRole)
	if !ok {
		return propertiesapp.WindowCommand{}, false
	}
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return propertiesapp.WindowCommand{}, false
	}
	from, to, err := parseStay(req.From, req.To)
	if err != nil {
		writeError(c, h.Logger, err)
		return propertiesapp.WindowCommand{}, false
	}
	return propertiesapp.WindowCommand{HostID: host.UserID, PropertyID: c.Param("id"), From: from, To: to}, true
}

func (h PropertyHandler) BlockDates(c *gin.Context) {
	host, ok := requireRole(c, hostRole)
	if !ok {
		return
	}
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	from, to, err := parseStay(req.From, req.To)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := propertiesapp.BlockDatesCommand{
		HostID:     host.UserID,
		PropertyID: c.Param("id"),
		From:       from,
		To:         to,
		Reason:     strings.ToUpper(strings.TrimSpace(req.Reason)),
		Note:       req.Note,
	}
	h.dispatch(c, http.StatusOK, func() (dto.Property, error) {
		return commands.Dispatch[propertiesapp.BlockDatesCommand, dto.Property](c.Request.Context(), h.Commands, cmd)
	})
}

func (h PropertyHandler) UnblockDates(c *gin.Context) {
	host, ok := requireRole(c, hostRole)
	if !ok {
		return
	}
	cmd := propertiesapp.UnblockDatesCommand{HostID: host.UserID, PropertyID: c.Param("id"), Reference: c.Param("ref")}
	h.dispatch(c, http.StatusOK, func() (dto.Property, error) {
		return commands.Dispatch[propertiesapp.UnblockDatesCommand, dto.Property](c.Request.Context(), h.Commands, cmd)
	})
}

func (h PropertyHandler) Publish(c *gin.Context) {
	host, ok := requireRole(c, hostRole)
	if !ok {
		return
	}
	cmd := propertiesapp.PublishPropertyCommand{HostID: host.UserID, PropertyID: c.Param("id")}
	h.dispatch(c, http.StatusOK, func() (dto.Property, error) {
		return commands.Dispatch[propertiesapp.PublishPropertyCommand, dto.Property](c.Request.Context(), h.Commands, cmd)
	})
}

func (h PropertyHandler) Unlist(c *gin.Context) {
	host, ok := requireRole(c, hostRole)
	if !ok {
		return
	}
	var req unlistRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}
	cmd := propertiesapp.UnlistPropertyCommand{HostID: host.UserID, PropertyID: c.Param("id"), Reason: req.Reason}
	h.dispatch(c, http.StatusOK, func() (dto.Property, error) {
		return commands.Dispatch[propertiesapp.UnlistPropertyCommand, dto.Property](c.Request.Context(), h.Commands, cmd)
	})
}

func (h PropertyHandler) UploadPhoto(c *gin.Context) {
	host, ok := requireRole(c, hostRole)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoBodyBytes)
	header, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is unreadable"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	cmd := propertiesapp.UploadPhotoCommand{
		HostID:      host.UserID,
		PropertyID:  c.Param("id"),
		FileName:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	}
	h.dispatch(c, http.StatusCreated, func() (dto.Property, error) {
		return commands.Dispatch[propertiesapp.UploadPhotoCommand, dto.Property](c.Request.Context(), h.Commands, cmd)
	})
}

func (h PropertyHandler) dispatch(c *gin.Context, status int, fn func() (dto.Property, error)) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	result, err := fn()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(status, result)
}

func queryDecimal(c *gin.Context, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pricing.ErrInvalidPricingInput
	}
	return d, nil
}

var _ PropertyHTTP = PropertyHandler{}
