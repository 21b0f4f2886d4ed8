package internal

import "datatrans/services"

// LogNotifier is the default user notifier: it records the user-facing
// messages in the operational log. The host checkout flow replaces it with a
// notifier that renders messages in its own UI.
type LogNotifier struct {
	logger services.LogHandler
}

func NewLogNotifier(logger services.LogHandler) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Message(text string) {
	n.logger.Info("user message: " + text)
}

func (n *LogNotifier) Warning(text string) {
	n.logger.Warn("user warning: " + text)
}

func (n *LogNotifier) Failure(text string) {
	n.logger.Warn("user failure: " + text)
}
