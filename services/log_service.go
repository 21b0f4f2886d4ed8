package services

// LogHandler is the operational log used by every component. Implementations
// may mirror records into the database log collection.
type LogHandler interface {
	Debug(message string)
	Info(message string)
	Warn(message string)
	Error(topic string, err error)
}
