package bootstrap

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/namdevyakhya-17/psycare/internal/booking"
	appconfig "github.com/namdevyakhya-17/psycare/internal/config"
	"github.com/namdevyakhya-17/psycare/pkg/logging"
)

// LoadBookingLocation resolves BOOKING_TIMEZONE, falling back to UTC.
func LoadBookingLocation(name string, logger *logging.Logger) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		if logger == nil {
			logger = logging.Default()
		}
		logger.Warn("invalid BOOKING_TIMEZONE; using UTC", "timezone", name, "error", err)
		return time.UTC
	}
	return loc
}

// BuildBookingService wires the booking flow. The pending-intent record is
// enabled only with Redis and a positive BOOKING_PENDING_INTENT_TTL.
func BuildBookingService(cfg *appconfig.Config, stores Stores, redisClient *redis.Client, metrics booking.Metrics, logger *logging.Logger) *booking.Service {
	if logger == nil {
		logger = logging.Default()
	}
	parser := booking.NewTimeParser(LoadBookingLocation(cfg.BookingTimezone, logger))

	opts := []booking.Option{booking.WithMetrics(metrics)}
	if cfg.BookingDefaultDuration > 0 {
		opts = append(opts, booking.WithDuration(cfg.BookingDefaultDuration))
	}
	if redisClient != nil && cfg.BookingPendingIntentTTL > 0 {
		ttl := cfg.BookingPendingIntentTTL
		opts = append(opts, booking.WithPendingStore(booking.NewRedisPendingStore(redisClient, ttl), ttl))
		logger.Info("pending booking intent enabled", "ttl", ttl.String())
	}
	return booking.NewService(stores.Directory, stores.Appointments, parser, logger, opts...)
}
