package schedule

import "errors"

// ErrInvalidWakeHour is returned when the wake hour is outside 0-23.
var ErrInvalidWakeHour = errors.New("schedule: wake hour must be between 0 and 23")
