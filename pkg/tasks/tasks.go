// Package tasks 定义了投递到 Kafka 的事件结构。
package tasks

// TurnCompletedEvent 表示一轮成功完成的问答交互，供后台消费者归档。
type TurnCompletedEvent struct {
	EventID    string  `json:"event_id"`
	SessionID  string  `json:"session_id"`
	Query      string  `json:"query"`
	Answer     string  `json:"answer"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	CreatedAt  int64   `json:"created_at"`
}
