package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	bookingapp "stayly/internal/app/handlers/booking"
	propertiesapp "stayly/internal/app/handlers/properties"
	"stayly/internal/app/middleware"
	"stayly/internal/app/policies"
	"stayly/internal/app/uow"
	domainauth "stayly/internal/domain/auth"
	"stayly/internal/domain/availability"
	domainbooking "stayly/internal/domain/booking"
	"stayly/internal/domain/pricing"
	domainproperty "stayly/internal/domain/property"
	"stayly/internal/domain/shared/daterange"
	"stayly/internal/domain/shared/money"
	domainuser "stayly/internal/domain/user"
	"stayly/internal/infra/validation"
)

type errorMapping struct {
	status int
	errs   []error
}

var errorStatuses = []errorMapping{
	{http.StatusBadRequest, []error{
		validation.ErrValidation,
		daterange.ErrInvalidRange,
		domainbooking.ErrInvalidStayRange,
		domainbooking.ErrCheckInInPast,
		pricing.ErrInvalidPricingInput,
		money.ErrInvalidCurrency,
		money.ErrInvalidAmount,
		money.ErrCurrencyMismatch,
		domainproperty.ErrTitleRequired,
		domainproperty.ErrGuestsLimit,
		domainproperty.ErrPhotoURLRequired,
		propertiesapp.ErrPhotoRequired,
		domainuser.ErrEmailRequired,
		domainuser.ErrEmailInvalid,
		domainauth.ErrEmailRequired,
		bookingapp.ErrActorRequired,
	}},
	{http.StatusUnauthorized, []error{
		policies.ErrUnauthenticated,
		domainauth.ErrInvalidToken,
		domainauth.ErrInvalidCode,
		domainauth.ErrChallengeNotFound,
		domainauth.ErrChallengeExpired,
	}},
	{http.StatusForbidden, []error{
		policies.ErrForbidden,
		domainproperty.ErrNotOwned,
		bookingapp.ErrNotParticipant,
		bookingapp.ErrOwnProperty,
	}},
	{http.StatusNotFound, []error{
		domainproperty.ErrNotFound,
		domainbooking.ErrBookingNotFound,
		domainuser.ErrNotFound,
		availability.ErrBlockNotFound,
	}},
	{http.StatusConflict, []error{
		domainbooking.ErrStayConflict,
		availability.ErrStayUnavailable,
		availability.ErrOverlappingBlock,
		uow.ErrConcurrentUpdate,
		middleware.ErrKeyReused,
	}},
	{http.StatusUnprocessableEntity, []error{
		domainbooking.ErrInvalidState,
		domainbooking.ErrInvalidPayment,
		domainproperty.ErrInvalidState,
		domainproperty.ErrNotBookable,
		domainproperty.ErrAddressRequired,
		domainproperty.ErrPricingRequired,
		domainproperty.ErrTooManyPhotos,
		pricing.ErrStayLengthOutOfBounds,
		propertiesapp.ErrBookingHoldRelease,
	}},
	{http.StatusTooManyRequests, []error{
		domainauth.ErrTooManyAttempts,
	}},
	{http.StatusServiceUnavailable, []error{
		propertiesapp.ErrPhotoStorageUnavailable,
	}},
}

func statusFor(err error) int {
	for _, m := range errorStatuses {
		for _, target := range m.errs {
			if errors.Is(err, target) {
				return m.status
			}
		}
	}
	return http.StatusInternalServerError
}

// writeError is the single place domain and application errors become HTTP responses.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		}
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	body := gin.H{"error": err.Error()}
	var verr *validation.Error
	if errors.As(err, &verr) {
		fields := make([]gin.H, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, gin.H{"field": f.Field, "rule": f.Rule, "param": f.Param})
		}
		body["fields"] = fields
	}
	c.JSON(status, body)
}
