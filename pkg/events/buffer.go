package events

// Buffer накапливает события одной единицы работы (одной транзакции).
// Создаётся координатором на каждую загрузку агрегата, передаётся в доменные
// методы по указателю и отбрасывается после сохранения в outbox.
// Нулевое значение готово к использованию.
type Buffer struct {
	events []Event
}

// Record добавляет событие в конец буфера.
func (b *Buffer) Record(e Event) {
	b.events = append(b.events, e)
}

// Events возвращает копию накопленных событий в порядке записи.
func (b *Buffer) Events() []Event {
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Len возвращает количество событий.
func (b *Buffer) Len() int {
	return len(b.events)
}

// Reset очищает буфер.
func (b *Buffer) Reset() {
	b.events = b.events[:0]
}
