package port

// Fields - структурированные данные для записи в лог
type Fields map[string]interface{}

// LoggerPort - контракт логгера, которым пользуются use case'ы и адаптеры
type LoggerPort interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, err error, fields Fields)

	// WithFields возвращает логгер с добавленным контекстом
	WithFields(fields Fields) LoggerPort
}
