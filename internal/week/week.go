// Package week provides hour-of-week arithmetic for the 7x24 bucket grid
// that every model and histogram in the simulator is keyed by.
package week

// Durations in simulated seconds.
const (
	Hour = 3600.0
	Day  = 24 * Hour
	Week = 7 * Day

	// Hours is the number of hour-of-week buckets.
	Hours = 7 * 24
)

// Days maps trace weekday names to day indexes. Sunday is day 0,
// matching the trace export format.
var Days = map[string]int{
	"Sunday":    0,
	"Monday":    1,
	"Tuesday":   2,
	"Wednesday": 3,
	"Thursday":  4,
	"Friday":    5,
	"Saturday":  6,
}

// DayNames is the inverse of Days, indexed by day number.
var DayNames = [7]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// DayHour converts a simulated timestamp to its (day, hour) pair.
func DayHour(timestamp float64) (int, int) {
	day := int(mod(timestamp, Week) / Day)
	hour := int(mod(timestamp, Day) / Hour)
	return day, hour
}

// HourOfWeek converts a simulated timestamp to its 0..167 bucket.
func HourOfWeek(timestamp float64) int {
	return int(mod(timestamp, Week) / Hour)
}

// HourToDay converts a 0..167 bucket back to its (day, hour) pair.
func HourToDay(hourOfWeek int) (int, int) {
	return hourOfWeek / 24, hourOfWeek % 24
}

// Index converts a (day, hour) pair to its 0..167 bucket.
func Index(day, hour int) int {
	return day*24 + hour
}

// Previous returns the hour preceding (day, hour), wrapping from the start
// of Sunday back to the end of Saturday.
func Previous(day, hour int) (int, int) {
	hour--
	if hour < 0 {
		hour = 23
		day--
		if day < 0 {
			day = 6
		}
	}
	return day, hour
}

// mod is a floating-point modulo that stays non-negative for the
// timestamps the simulation produces.
func mod(x, m float64) float64 {
	r := x - float64(int64(x/m))*m
	if r < 0 {
		r += m
	}
	return r
}
