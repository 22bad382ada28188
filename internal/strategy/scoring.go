package strategy

// Grade thresholds in dollars per minute of driving. A is worth repositioning
// for immediately; F is not worth the gas.
const (
	gradeAThreshold = 1.5
	gradeBThreshold = 1.0
	gradeCThreshold = 0.6
	gradeDThreshold = 0.3
)

// ValuePerMinute converts an earnings estimate and drive time into the
// scoring metric. Drive time is floored at one minute so a nearby venue
// cannot divide by zero or produce an absurd rate.
func ValuePerMinute(estEarnings, driveMinutes float64) float64 {
	if driveMinutes < 1 {
		driveMinutes = 1
	}
	return estEarnings / driveMinutes
}

// Grade maps a value-per-minute score to a letter grade.
func Grade(valuePerMin float64) string {
	switch {
	case valuePerMin >= gradeAThreshold:
		return "A"
	case valuePerMin >= gradeBThreshold:
		return "B"
	case valuePerMin >= gradeCThreshold:
		return "C"
	case valuePerMin >= gradeDThreshold:
		return "D"
	default:
		return "F"
	}
}
