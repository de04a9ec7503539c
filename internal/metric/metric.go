// Package metric defines the named quantities recorded during a simulation.
package metric

// Metric identifies one recorded histogram.
type Metric string

// The five quantities the simulation tracks per computer.
const (
	// ActivityTime is the duration of a user activity burst.
	ActivityTime Metric = "ACTIVITY_TIME"
	// InactivityTime is the gap between two activity bursts.
	InactivityTime Metric = "INACTIVITY_TIME"
	// UserShutdownTime is the duration of a voluntary shutdown.
	UserShutdownTime Metric = "USER_SHUTDOWN_TIME"
	// AutoShutdownTime is the off duration following an idle-timer shutdown.
	AutoShutdownTime Metric = "AUTO_SHUTDOWN_TIME"
	// IdleTime is the elapsed time of an idle-timer arm, whether it fired
	// or was interrupted by new activity.
	IdleTime Metric = "IDLE_TIME"
)

// All lists every metric in a stable order.
var All = []Metric{
	ActivityTime,
	AutoShutdownTime,
	IdleTime,
	InactivityTime,
	UserShutdownTime,
}
