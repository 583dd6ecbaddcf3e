package model

import "time"

// TurnRecord 定义了 turn_records 表的 ORM 模型。
// 每条记录归档一轮成功完成的问答交互，由后台消费者异步写入。
type TurnRecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"eventId"`
	SessionID  string    `gorm:"type:varchar(64);index;not null" json:"sessionId"`
	Query      string    `gorm:"type:text;not null" json:"query"`
	Answer     string    `gorm:"type:text;not null" json:"answer"`
	Language   string    `gorm:"type:varchar(8);not null" json:"language"`
	Confidence float64   `gorm:"not null;default:0" json:"confidence"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (TurnRecord) TableName() string {
	return "turn_records"
}
