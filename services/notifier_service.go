package services

// UserNotifier delivers end-user facing messages. Rendering is owned by the
// host checkout flow; this service only decides what to say.
type UserNotifier interface {
	Message(text string)
	Warning(text string)
	Failure(text string)
}
