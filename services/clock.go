// services/clock.go
package services

import (
	"time"

	"zentro/utils"
)

// Clock returns the current time. Services take one so day boundaries can be
// tested on fixed dates.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// calendar turns instants into calendar days in a fixed location.
type calendar struct {
	now Clock
	loc *time.Location
}

func newCalendar() calendar {
	return calendar{now: SystemClock, loc: time.UTC}
}

func (c calendar) today() string {
	return utils.DayKey(c.now(), c.loc)
}
