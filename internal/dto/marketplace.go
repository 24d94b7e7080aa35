package dto

// ── 班次市场 DTO ──

// CreateShiftRequestRequest 发起市场申请请求
type CreateShiftRequestRequest struct {
	Kind          string  `json:"kind"            binding:"required,oneof=GIVEAWAY PICKUP SWAP"`
	SourceShiftID string  `json:"source_shift_id" binding:"required,uuid"`
	TargetShiftID *string `json:"target_shift_id" binding:"omitempty,uuid"`
	TargetStaffID *string `json:"target_staff_id" binding:"omitempty,uuid"`
	Notes         string  `json:"notes"           binding:"max=500"`
}

// RespondSwapRequest 响应互换请求
type RespondSwapRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

// ResolveShiftRequestRequest 审批请求
// Notes 为审批备注，提供时覆盖申请备注
type ResolveShiftRequestRequest struct {
	Approve *bool   `json:"approve" binding:"required"`
	Notes   *string `json:"notes"   binding:"omitempty,max=500"`
}

// MarketplaceListRequest 市场列表查询参数
type MarketplaceListRequest struct {
	PaginationRequest
}

// SwappableShiftsRequest 可互换班次查询参数
type SwappableShiftsRequest struct {
	ExcludeShiftID string `form:"exclude_shift_id" binding:"omitempty,uuid"`
}

// HistoryExportRequest 历史导出查询参数（日期格式 2006-01-02）
type HistoryExportRequest struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to"   binding:"required,datetime=2006-01-02"`
}

// ── 响应 ──

// ShiftRequestResponse 市场申请响应
type ShiftRequestResponse struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"`
	Status        string  `json:"status"`
	SourceShiftID string  `json:"source_shift_id"`
	TargetShiftID *string `json:"target_shift_id,omitempty"`
	RequesterID   string  `json:"requester_id"`
	TargetStaffID *string `json:"target_staff_id,omitempty"`
	CandidateID   *string `json:"candidate_id,omitempty"`
	ResolvedBy    *string `json:"resolved_by,omitempty"`
	ResolvedAt    *string `json:"resolved_at,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	Version       int     `json:"version"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
	// CancelledCompetitors 本次结算顺带取消的其他申请
	CancelledCompetitors []string `json:"cancelled_competitors,omitempty"`
}

// ShiftChangeLogResponse 班次归属变更日志
type ShiftChangeLogResponse struct {
	ID                 string  `json:"id"`
	ShiftID            string  `json:"shift_id"`
	OriginalAssigneeID *string `json:"original_assignee_id,omitempty"`
	NewAssigneeID      string  `json:"new_assignee_id"`
	ChangeType         string  `json:"change_type"`
	OperatorID         string  `json:"operator_id"`
	CreatedAt          string  `json:"created_at"`
}

// ShiftRequestDetailResponse 市场申请详情（含展示字段与变更日志）
type ShiftRequestDetailResponse struct {
	MarketplaceRequestView
	ChangeLogs []ShiftChangeLogResponse `json:"change_logs,omitempty"`
}

// ShiftBrief 班次简要信息
type ShiftBrief struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	RoleID       string  `json:"role_id"`
	RoleName     string  `json:"role_name"`
	Location     string  `json:"location,omitempty"`
	AssigneeID   *string `json:"assignee_id,omitempty"`
	AssigneeName *string `json:"assignee_name,omitempty"`
}

// MarketplaceRequestView 市场申请展示视图（含成员姓名、班次时间、岗位名）
type MarketplaceRequestView struct {
	ID              string      `json:"id"`
	Kind            string      `json:"kind"`
	Status          string      `json:"status"`
	SourceShift     ShiftBrief  `json:"source_shift"`
	TargetShift     *ShiftBrief `json:"target_shift,omitempty"`
	RequesterID     string      `json:"requester_id"`
	RequesterName   string      `json:"requester_name"`
	TargetStaffID   *string     `json:"target_staff_id,omitempty"`
	TargetStaffName *string     `json:"target_staff_name,omitempty"`
	CandidateID     *string     `json:"candidate_id,omitempty"`
	CandidateName   *string     `json:"candidate_name,omitempty"`
	ResolvedBy      *string     `json:"resolved_by,omitempty"`
	ResolvedAt      *string     `json:"resolved_at,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	CreatedAt       string      `json:"created_at"`
}

// MarketplaceDashboardResponse 市场看板计数
type MarketplaceDashboardResponse struct {
	OpenRequests     int64 `json:"open_requests"`
	MyActiveRequests int64 `json:"my_active_requests"`
	IncomingSwaps    int64 `json:"incoming_swaps"`
	PendingApprovals int64 `json:"pending_approvals"`
}
