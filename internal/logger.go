package internal

import (
	"log"
	"time"

	"datatrans/services"
)

// Logger writes operational log records to standard output and, when a
// database is attached, mirrors them into the persistent log collection.
// Debug records are gated by the debug flag and never persisted.
type Logger struct {
	name     string
	debug    bool
	database services.Database
}

// LogMessage is the persisted form of one log record.
type LogMessage struct {
	Time   time.Time `bson:"time"`
	Level  string    `bson:"level"`
	Source string    `bson:"source"`
	Text   string    `bson:"text"`
}

func (m *LogMessage) DataType() string {
	return "log"
}

func NewLogger(name string, debug bool, database services.Database) *Logger {
	return &Logger{
		name:     name,
		debug:    debug,
		database: database,
	}
}

func (l *Logger) Debug(message string) {
	if !l.debug {
		return
	}
	log.Printf("%s: debug: %s", l.name, message)
}

func (l *Logger) Info(message string) {
	l.write("info", message)
}

func (l *Logger) Warn(message string) {
	l.write("warning", message)
}

func (l *Logger) Error(topic string, err error) {
	text := topic
	if err != nil {
		text = topic + ": " + err.Error()
	}
	l.write("error", text)
}

func (l *Logger) write(level, text string) {
	log.Printf("%s: %s: %s", l.name, level, text)
	if l.database == nil {
		return
	}
	record := &LogMessage{
		Time:   time.Now(),
		Level:  level,
		Source: l.name,
		Text:   text,
	}
	if err := l.database.WriteLogMessage(record); err != nil {
		log.Printf("%s: error: write log message: %v", l.name, err)
	}
}
