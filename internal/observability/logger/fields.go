package logger

import (
	"time"

	"go.uber.org/zap"
)

// HTTP fields.

// RequestID tags an entry with the propagated X-Request-ID.
func RequestID(v string) zap.Field { return zap.String("request_id", v) }

// Method tags the HTTP method.
func Method(v string) zap.Field { return zap.String("method", v) }

// Path tags the request path.
func Path(v string) zap.Field { return zap.String("path", v) }

// Status tags the response status code.
func Status(v int) zap.Field { return zap.Int("status", v) }

// Bytes tags the response size.
func Bytes(v int) zap.Field { return zap.Int("bytes", v) }

// DurationMs tags elapsed milliseconds.
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }

// ClientIP tags the caller address.
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// Dispatch fields.

// RiderID tags the authenticated rider (token subject).
func RiderID(v string) zap.Field { return zap.String("rider_id", v) }

// RideID tags the generated ride identifier.
func RideID(v string) zap.Field { return zap.String("ride_id", v) }

// UnicornName tags the assigned fleet member.
func UnicornName(v string) zap.Field { return zap.String("unicorn", v) }

// Email tags a user email. Use sparingly outside dev.
func Email(v string) zap.Field { return zap.String("email", v) }

// System fields.

// Component tags the emitting component.
func Component(v string) zap.Field { return zap.String("component", v) }

// Driver tags a storage/cache driver name.
func Driver(v string) zap.Field { return zap.String("driver", v) }

// Duration tags an elapsed duration.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// Err wraps an error field.
func Err(err error) zap.Field { return zap.Error(err) }
