// Package reporting 班次市场只读视图
//
// 引擎之外的展示投影：联表补齐成员姓名、班次时间与岗位名称，供列表与看板使用。
// 只读，不参与引擎事务。
package reporting

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("记录不存在")

// MarketplaceView 班次市场只读查询接口
type MarketplaceView interface {
	GetRequest(ctx context.Context, requestID string) (*RequestRow, error)
	// ListOpen 可认领的申请：OPEN 申请与未指定目标的互换，排除查看者自己发起的
	ListOpen(ctx context.Context, viewerID string, limit, offset int) ([]RequestRow, int64, error)
	ListByRequester(ctx context.Context, userID string, limit, offset int) ([]RequestRow, int64, error)
	// ListIncoming 等待 userID 响应的互换
	ListIncoming(ctx context.Context, userID string) ([]RequestRow, error)
	// ListPendingApprovals 待审批申请；allRoles=true 时不按岗位过滤
	ListPendingApprovals(ctx context.Context, roleIDs []string, allRoles bool) ([]RequestRow, error)
	Dashboard(ctx context.Context, userID string, roleIDs []string, allRoles bool) (*DashboardCounts, error)
	// ListSwappableShifts 他人持有、尚无活跃申请的未来班次
	ListSwappableShifts(ctx context.Context, userID, excludeShiftID string, from time.Time) ([]ShiftRow, error)
}

// RequestRow 申请展示行
type RequestRow struct {
	RequestID string `db:"request_id"`
	Kind      string `db:"kind"`
	Status    string `db:"status"`

	SourceShiftID      string    `db:"source_shift_id"`
	SourceDate         time.Time `db:"source_date"`
	SourceStart        string    `db:"source_start"`
	SourceEnd          string    `db:"source_end"`
	SourceRoleID       string    `db:"source_role_id"`
	SourceRoleName     string    `db:"source_role_name"`
	SourceLocation     *string   `db:"source_location"`
	SourceAssigneeID   *string   `db:"source_assignee_id"`
	SourceAssigneeName *string   `db:"source_assignee_name"`

	TargetShiftID      *string    `db:"target_shift_id"`
	TargetDate         *time.Time `db:"target_date"`
	TargetStart        *string    `db:"target_start"`
	TargetEnd          *string    `db:"target_end"`
	TargetRoleID       *string    `db:"target_role_id"`
	TargetRoleName     *string    `db:"target_role_name"`
	TargetLocation     *string    `db:"target_location"`
	TargetAssigneeID   *string    `db:"target_assignee_id"`
	TargetAssigneeName *string    `db:"target_assignee_name"`

	RequesterID     string     `db:"requester_id"`
	RequesterName   string     `db:"requester_name"`
	TargetStaffID   *string    `db:"target_staff_id"`
	TargetStaffName *string    `db:"target_staff_name"`
	CandidateID     *string    `db:"candidate_id"`
	CandidateName   *string    `db:"candidate_name"`
	ResolvedBy      *string    `db:"resolved_by"`
	ResolvedAt      *time.Time `db:"resolved_at"`
	Notes           *string    `db:"notes"`
	CreatedAt       time.Time  `db:"created_at"`
}

// ShiftRow 班次展示行
type ShiftRow struct {
	ShiftID      string    `db:"shift_id"`
	ShiftDate    time.Time `db:"shift_date"`
	StartTime    string    `db:"start_time"`
	EndTime      string    `db:"end_time"`
	RoleID       string    `db:"role_id"`
	RoleName     string    `db:"role_name"`
	Location     *string   `db:"location"`
	AssigneeID   *string   `db:"assignee_id"`
	AssigneeName *string   `db:"assignee_name"`
}

// DashboardCounts 看板计数
type DashboardCounts struct {
	OpenRequests     int64 `db:"open_requests"`
	MyActiveRequests int64 `db:"my_active_requests"`
	IncomingSwaps    int64 `db:"incoming_swaps"`
	PendingApprovals int64 `db:"pending_approvals"`
}

const requestSelect = `
SELECT r.request_id, r.kind, r.status,
       r.source_shift_id,
       ss.shift_date AS source_date, ss.start_time AS source_start, ss.end_time AS source_end,
       ss.role_id AS source_role_id, sr.name AS source_role_name, ss.location AS source_location,
       ss.assignee_id AS source_assignee_id, sa.name AS source_assignee_name,
       r.target_shift_id,
       ts.shift_date AS target_date, ts.start_time AS target_start, ts.end_time AS target_end,
       ts.role_id AS target_role_id, tr.name AS target_role_name, ts.location AS target_location,
       ts.assignee_id AS target_assignee_id, ta.name AS target_assignee_name,
       r.requester_id, ru.name AS requester_name,
       r.target_staff_id, tu.name AS target_staff_name,
       r.candidate_id, cu.name AS candidate_name,
       r.resolved_by, r.resolved_at, r.notes, r.created_at
FROM shift_requests r
JOIN shifts ss ON ss.shift_id = r.source_shift_id
JOIN roles sr ON sr.role_id = ss.role_id
LEFT JOIN users sa ON sa.user_id = ss.assignee_id
LEFT JOIN shifts ts ON ts.shift_id = r.target_shift_id
LEFT JOIN roles tr ON tr.role_id = ts.role_id
LEFT JOIN users ta ON ta.user_id = ts.assignee_id
JOIN users ru ON ru.user_id = r.requester_id
LEFT JOIN users tu ON tu.user_id = r.target_staff_id
LEFT JOIN users cu ON cu.user_id = r.candidate_id
`

// 开放申请：OPEN 或未指定目标成员的 PROPOSED 互换
const openCondition = `(r.status = 'OPEN' OR (r.status = 'PROPOSED' AND r.target_staff_id IS NULL))`

// 待 $1 响应的互换：被点名，或未点名且 $1 持有目标班次
const incomingCondition = `r.status = 'PROPOSED' AND (r.target_staff_id = $1 OR (r.target_staff_id IS NULL AND ts.assignee_id = $1))`

type marketplaceView struct {
	db *sqlx.DB
}

// NewMarketplaceView 创建只读视图
func NewMarketplaceView(db *sqlx.DB) MarketplaceView {
	return &marketplaceView{db: db}
}

func (v *marketplaceView) GetRequest(ctx context.Context, requestID string) (*RequestRow, error) {
	var row RequestRow
	err := v.db.GetContext(ctx, &row, requestSelect+`WHERE r.request_id = $1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (v *marketplaceView) ListOpen(ctx context.Context, viewerID string, limit, offset int) ([]RequestRow, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM shift_requests r WHERE ` + openCondition + ` AND r.requester_id <> $1`
	if err := v.db.GetContext(ctx, &total, countQuery, viewerID); err != nil {
		return nil, 0, err
	}

	rows := []RequestRow{}
	query := requestSelect + `WHERE ` + openCondition + ` AND r.requester_id <> $1
ORDER BY ss.shift_date ASC, ss.start_time ASC
LIMIT $2 OFFSET $3`
	if err := v.db.SelectContext(ctx, &rows, query, viewerID, limit, offset); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (v *marketplaceView) ListByRequester(ctx context.Context, userID string, limit, offset int) ([]RequestRow, int64, error) {
	var total int64
	if err := v.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM shift_requests WHERE requester_id = $1`, userID); err != nil {
		return nil, 0, err
	}

	rows := []RequestRow{}
	query := requestSelect + `WHERE r.requester_id = $1
ORDER BY r.created_at DESC
LIMIT $2 OFFSET $3`
	if err := v.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (v *marketplaceView) ListIncoming(ctx context.Context, userID string) ([]RequestRow, error) {
	rows := []RequestRow{}
	query := requestSelect + `WHERE ` + incomingCondition + `
ORDER BY r.created_at DESC`
	err := v.db.SelectContext(ctx, &rows, query, userID)
	return rows, err
}

func (v *marketplaceView) ListPendingApprovals(ctx context.Context, roleIDs []string, allRoles bool) ([]RequestRow, error) {
	rows := []RequestRow{}
	if !allRoles && len(roleIDs) == 0 {
		return rows, nil
	}
	query := requestSelect + `WHERE r.status = 'PENDING_APPROVAL'
  AND ($1 OR ss.role_id::text = ANY($2) OR ts.role_id::text = ANY($2))
ORDER BY r.updated_at ASC`
	err := v.db.SelectContext(ctx, &rows, query, allRoles, pq.Array(roleIDs))
	return rows, err
}

func (v *marketplaceView) Dashboard(ctx context.Context, userID string, roleIDs []string, allRoles bool) (*DashboardCounts, error) {
	var counts DashboardCounts
	query := `
SELECT
  COUNT(*) FILTER (WHERE ` + openCondition + ` AND r.requester_id <> $1) AS open_requests,
  COUNT(*) FILTER (WHERE r.requester_id = $1
                     AND r.status IN ('OPEN', 'PROPOSED', 'PEER_ACCEPTED', 'PENDING_APPROVAL')) AS my_active_requests,
  COUNT(*) FILTER (WHERE ` + incomingCondition + `) AS incoming_swaps,
  COUNT(*) FILTER (WHERE r.status = 'PENDING_APPROVAL'
                     AND ($2 OR ss.role_id::text = ANY($3) OR ts.role_id::text = ANY($3))) AS pending_approvals
FROM shift_requests r
JOIN shifts ss ON ss.shift_id = r.source_shift_id
LEFT JOIN shifts ts ON ts.shift_id = r.target_shift_id`
	if err := v.db.GetContext(ctx, &counts, query, userID, allRoles, pq.Array(roleIDs)); err != nil {
		return nil, err
	}
	return &counts, nil
}

func (v *marketplaceView) ListSwappableShifts(ctx context.Context, userID, excludeShiftID string, from time.Time) ([]ShiftRow, error) {
	rows := []ShiftRow{}
	query := `
SELECT s.shift_id, s.shift_date, s.start_time, s.end_time,
       s.role_id, ro.name AS role_name, s.location,
       s.assignee_id, u.name AS assignee_name
FROM shifts s
JOIN roles ro ON ro.role_id = s.role_id
LEFT JOIN users u ON u.user_id = s.assignee_id
WHERE s.deleted_at IS NULL
  AND s.assignee_id IS NOT NULL
  AND s.assignee_id <> $1
  AND s.shift_date >= $2
  AND ($3 = '' OR s.shift_id::text <> $3)
  AND NOT EXISTS (
      SELECT 1 FROM shift_requests r
      WHERE r.status IN ('OPEN', 'PROPOSED', 'PEER_ACCEPTED', 'PENDING_APPROVAL')
        AND (r.source_shift_id = s.shift_id OR r.target_shift_id = s.shift_id)
  )
ORDER BY s.shift_date ASC, s.start_time ASC
LIMIT 200`
	err := v.db.SelectContext(ctx, &rows, query, userID, from, excludeShiftID)
	return rows, err
}
