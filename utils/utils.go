package utils

import "time"

// NEPSE trading window: Sunday through Thursday, 10:55 to 15:05 local time.
// The extra minutes around the official 11:00-15:00 session catch the
// pre-open and closing auctions the live page still updates through.
const (
	windowOpen  = 10*60 + 55
	windowClose = 15*60 + 5
)

// KathmanduTime converts t to the exchange's local time. Falls back to the
// fixed +05:45 offset if the tzdata lookup fails.
func KathmanduTime(t time.Time) time.Time {
	loc, err := time.LoadLocation("Asia/Kathmandu")
	if err != nil {
		loc = time.FixedZone("NPT", 5*3600+45*60)
	}
	return t.In(loc)
}

// InTradingWindow reports whether the exchange is open at t.
func InTradingWindow(t time.Time) bool {
	local := KathmanduTime(t)
	switch local.Weekday() {
	case time.Friday, time.Saturday:
		return false
	}
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= windowOpen && minutes <= windowClose
}
