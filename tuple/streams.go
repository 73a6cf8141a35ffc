package tuple

// Reserved stream ids recognized by the executor core. User components
// never declare these themselves.
const (
	SystemTickStream  = "__tick"
	MetricsTickStream = "__metrics_tick"
	MetricsStream     = "__metrics"
	SystemStream      = "__system"
	EventLoggerStream = "__eventlogger"
)

// IsSystemComponent reports whether componentID names a system
// component (by convention, ids beginning with "__"), which never
// receives tick tuples.
func IsSystemComponent(componentID ComponentID) bool {
	return len(componentID) > 1 && componentID[0] == '_' && componentID[1] == '_'
}
