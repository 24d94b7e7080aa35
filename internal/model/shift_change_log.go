package model

import "time"

// ShiftChangeLog 班次归属变更日志表 — 对应 shift_change_logs
// 每次市场申请结算写入的归属变更各记录一行，与结算处于同一事务
type ShiftChangeLog struct {
	ChangeLogID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"change_log_id"`
	ShiftID            string    `gorm:"type:uuid;not null;index"                       json:"shift_id"`
	RequestID          string    `gorm:"type:uuid;not null;index"                       json:"request_id"`
	OriginalAssigneeID *string   `gorm:"type:uuid"                                      json:"original_assignee_id,omitempty"`
	NewAssigneeID      string    `gorm:"type:uuid;not null"                             json:"new_assignee_id"`
	ChangeType         string    `gorm:"type:varchar(20);not null"                      json:"change_type"` // giveaway | pickup | swap
	OperatorID         string    `gorm:"type:uuid;not null"                             json:"operator_id"`
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (ShiftChangeLog) TableName() string { return "shift_change_logs" }
