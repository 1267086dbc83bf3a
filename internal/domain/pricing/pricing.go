package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"stayly/internal/domain/shared/money"
)

var (
	ErrInvalidPricingInput   = errors.New("pricing: invalid pricing input")
	ErrStayLengthOutOfBounds = errors.New("pricing: stay length out of bounds")
	ErrTotalMismatch         = errors.New("pricing: total does not match components")
)

const (
	WeeklyThresholdNights  = 7
	MonthlyThresholdNights = 28
)

var hundred = decimal.NewFromInt(100)

// Config is the validated pricing configuration of a property. Build it with NewConfig.
type Config struct {
	currency               string
	basePricePerNight      decimal.Decimal
	cleaningFee            decimal.Decimal
	serviceFee             decimal.Decimal
	taxRatePercent         decimal.Decimal
	minimumStayNights      int
	maximumStayNights      int
	weeklyDiscountPercent  decimal.Decimal
	monthlyDiscountPercent decimal.Decimal
}

// ConfigParams is the raw, unvalidated input for NewConfig. Zero MaximumStayNights and
// zero discount percents mean "not set".
type ConfigParams struct {
	Currency               string
	BasePricePerNight      decimal.Decimal
	CleaningFee            decimal.Decimal
	ServiceFee             decimal.Decimal
	TaxRatePercent         decimal.Decimal
	MinimumStayNights      int
	MaximumStayNights      int
	WeeklyDiscountPercent  decimal.Decimal
	MonthlyDiscountPercent decimal.Decimal
}

func NewConfig(p ConfigParams) (Config, error) {
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = money.DefaultCurrency
	}
	if len(currency) != 3 {
		return Config{}, invalid("currency must be a 3-letter code")
	}
	if !p.BasePricePerNight.IsPositive() {
		return Config{}, invalid("base price per night must be positive")
	}
	if p.CleaningFee.IsNegative() {
		return Config{}, invalid("cleaning fee must be non-negative")
	}
	if p.ServiceFee.IsNegative() {
		return Config{}, invalid("service fee must be non-negative")
	}
	if !isPercent(p.TaxRatePercent) {
		return Config{}, invalid("tax rate must be between 0 and 100")
	}
	if !isPercent(p.WeeklyDiscountPercent) {
		return Config{}, invalid("weekly discount must be between 0 and 100")
	}
	if !isPercent(p.MonthlyDiscountPercent) {
		return Config{}, invalid("monthly discount must be between 0 and 100")
	}
	if p.MinimumStayNights < 1 {
		return Config{}, invalid("minimum stay must be at least 1 night")
	}
	if p.MaximumStayNights < 0 {
		return Config{}, invalid("maximum stay must be non-negative")
	}
	if p.MaximumStayNights != 0 && p.MaximumStayNights < p.MinimumStayNights {
		return Config{}, invalid("maximum stay must not be below minimum stay")
	}
	return Config{
		currency:               currency,
		basePricePerNight:      p.BasePricePerNight,
		cleaningFee:            p.CleaningFee,
		serviceFee:             p.ServiceFee,
		taxRatePercent:         p.TaxRatePercent,
		minimumStayNights:      p.MinimumStayNights,
		maximumStayNights:      p.MaximumStayNights,
		weeklyDiscountPercent:  p.WeeklyDiscountPercent,
		monthlyDiscountPercent: p.MonthlyDiscountPercent,
	}, nil
}

// MustConfig is NewConfig for fixtures and tests.
func MustConfig(p ConfigParams) Config {
	cfg, err := NewConfig(p)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Params returns the raw values, e.g. for persistence.
func (c Config) Params() ConfigParams {
	return ConfigParams{
		Currency:               c.currency,
		BasePricePerNight:      c.basePricePerNight,
		CleaningFee:            c.cleaningFee,
		ServiceFee:             c.serviceFee,
		TaxRatePercent:         c.taxRatePercent,
		MinimumStayNights:      c.minimumStayNights,
		MaximumStayNights:      c.maximumStayNights,
		WeeklyDiscountPercent:  c.weeklyDiscountPercent,
		MonthlyDiscountPercent: c.monthlyDiscountPercent,
	}
}

func (c Config) Currency() string { return c.currency }

func (c Config) BasePricePerNight() decimal.Decimal { return c.basePricePerNight }

func (c Config) MinimumStayNights() int { return c.minimumStayNights }

// MaximumStayNights returns 0 when no maximum is configured.
func (c Config) MaximumStayNights() int { return c.maximumStayNights }

// IsZero reports whether the config was never built through NewConfig.
func (c Config) IsZero() bool { return c.currency == "" }

func isPercent(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(hundred)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidPricingInput, msg)
}
