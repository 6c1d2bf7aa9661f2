package outbox

import "time"

// Model - GORM модель таблицы outbox.
type Model struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Exchange    string     `gorm:"column:exchange;type:varchar(100);not null"`
	Key         string     `gorm:"column:key;type:varchar(100);not null"`
	AggregateID int64      `gorm:"column:aggregate_id;not null;index:idx_outbox_aggregate"`
	Data        []byte     `gorm:"column:data;type:json;not null"`
	ProcessedOn *time.Time `gorm:"column:processed_on;index:idx_outbox_unprocessed"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	RetryCount  int        `gorm:"column:retry_count;not null;default:0"`
	LastError   *string    `gorm:"column:last_error;type:text"`
}

// TableName возвращает имя таблицы в БД.
func (Model) TableName() string {
	return "outbox"
}

func (m *Model) toDomain() *Message {
	return &Message{
		ID:          m.ID,
		Exchange:    m.Exchange,
		Key:         m.Key,
		AggregateID: m.AggregateID,
		Data:        m.Data,
		ProcessedOn: m.ProcessedOn,
		CreatedAt:   m.CreatedAt,
		RetryCount:  m.RetryCount,
		LastError:   m.LastError,
	}
}
