package dto

// ── 成员模块 DTO ──

// UserRoleResponse 成员在单个岗位上的权限
type UserRoleResponse struct {
	RoleID        string `json:"role_id"`
	CanView       bool   `json:"can_view"`
	CanWorkShifts bool   `json:"can_work_shifts"`
	CanEditRota   bool   `json:"can_edit_rota"`
}

// UserResponse 成员信息响应
type UserResponse struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	ShortName      string             `json:"short_name,omitempty"`
	Email          string             `json:"email"`
	IsSuperAdmin   bool               `json:"is_super_admin"`
	IsGenericLogin bool               `json:"is_generic_login"`
	HasPin         bool               `json:"has_pin"`
	Roles          []UserRoleResponse `json:"roles"`
}
