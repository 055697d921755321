package models

// StatusConfirmed единственный статус, который записывается при создании заявки
const StatusConfirmed = "CONFIRMED"

const (
	// SlotDurationMinutes радиус пересечения слотов
	SlotDurationMinutes = 30

	// LastSlotMinutes последний допустимый слот (23:30)
	LastSlotMinutes = 23*60 + 30

	// DefaultMaxSuggestions количество альтернативных слотов
	DefaultMaxSuggestions = 2

	// DefaultHistorySize размер истории чата
	DefaultHistorySize = 25

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000
)
