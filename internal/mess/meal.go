package mess

import "time"

// Meal identifies a mess sitting.
type Meal string

const (
	MealBreakfast Meal = "breakfast"
	MealLunch     Meal = "lunch"
	MealDinner    Meal = "dinner"
)

// Valid reports whether m names a known sitting.
func (m Meal) Valid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealDinner:
		return true
	}
	return false
}

// Serving windows in minutes of the day. Same interval convention as the
// timetable: start inclusive, end exclusive.
var windows = []struct {
	meal       Meal
	start, end int
}{
	{MealBreakfast, 7 * 60, 10 * 60},
	{MealLunch, 12 * 60, 15 * 60},
	{MealDinner, 19 * 60, 22 * 60},
}

// CurrentMeal returns the sitting being served at the given instant, or
// false when the mess is closed.
func CurrentMeal(now time.Time) (Meal, bool) {
	minute := now.Hour()*60 + now.Minute()
	for _, w := range windows {
		if minute >= w.start && minute < w.end {
			return w.meal, true
		}
	}
	return "", false
}

// WindowEnd returns the instant the given meal's window closes on the day of
// now. Used to bound coupon lifetimes.
func WindowEnd(meal Meal, now time.Time) time.Time {
	for _, w := range windows {
		if w.meal == meal {
			local := now.Local()
			return time.Date(local.Year(), local.Month(), local.Day(), w.end/60, w.end%60, 0, 0, time.Local)
		}
	}
	return now
}
