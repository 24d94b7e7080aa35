package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"shift-market/backend/internal/model"
	"shift-market/backend/internal/repository"
	pkgerrors "shift-market/backend/pkg/errors"
)

// ── 内存存储 ──
//
// 所有 mock repository 共享一个 memStore；memTxRunner 串行化事务，
// fn 返回错误或 panic 时恢复事务开始前的快照。

type memStore struct {
	txMu sync.Mutex // 事务串行化
	mu   sync.Mutex // 数据访问

	users         map[string]model.User
	roles         map[string]model.Role
	userRoles     []model.UserRole
	shifts        map[string]model.Shift
	requests      map[string]model.ShiftRequest
	changeLogs    []model.ShiftChangeLog
	notifications []model.Notification
	seq           int

	// failHook 在每次写操作前调用，返回非 nil 即让该写操作失败
	failHook func(op string) error
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]model.User),
		roles:    make(map[string]model.Role),
		shifts:   make(map[string]model.Shift),
		requests: make(map[string]model.ShiftRequest),
	}
}

type memSnapshot struct {
	shifts        map[string]model.Shift
	requests      map[string]model.ShiftRequest
	changeLogs    []model.ShiftChangeLog
	notifications []model.Notification
	seq           int
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		shifts:        make(map[string]model.Shift, len(s.shifts)),
		requests:      make(map[string]model.ShiftRequest, len(s.requests)),
		changeLogs:    append([]model.ShiftChangeLog(nil), s.changeLogs...),
		notifications: append([]model.Notification(nil), s.notifications...),
		seq:           s.seq,
	}
	for k, v := range s.shifts {
		snap.shifts[k] = v
	}
	for k, v := range s.requests {
		snap.requests[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shifts = snap.shifts
	s.requests = snap.requests
	s.changeLogs = snap.changeLogs
	s.notifications = snap.notifications
	s.seq = snap.seq
}

func (s *memStore) fail(op string) error {
	if s.failHook == nil {
		return nil
	}
	return s.failHook(op)
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

// ── 测试读取辅助 ──

func (s *memStore) shift(id string) model.Shift {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shifts[id]
}

func (s *memStore) request(id string) model.ShiftRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[id]
}

// setAssignee 模拟外部 CRUD 直接修改班次归属
func (s *memStore) setAssignee(shiftID string, assigneeID *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh := s.shifts[shiftID]
	sh.AssigneeID = assigneeID
	s.shifts[shiftID] = sh
}

// activeRequestsOn 引用指定班次的活跃申请数
func (s *memStore) activeRequestsOn(shiftID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if !r.IsActive() {
			continue
		}
		if r.SourceShiftID == shiftID || (r.TargetShiftID != nil && *r.TargetShiftID == shiftID) {
			n++
		}
	}
	return n
}

func (s *memStore) changeLogCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.changeLogs)
}

func (s *memStore) notificationsFor(userID string) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []model.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			list = append(list, n)
		}
	}
	return list
}

// ── 事务执行器 ──

type memTxRunner struct {
	store *memStore
	repo  *repository.Repository
}

func (m *memTxRunner) RunInTx(_ context.Context, fn func(txRepo *repository.Repository) error) (err error) {
	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	snap := m.store.snapshot()
	defer func() {
		if r := recover(); r != nil {
			m.store.restore(snap)
			panic(r)
		}
	}()

	if err = fn(m.repo); err != nil {
		m.store.restore(snap)
	}
	return err
}

// newMemRepository 创建基于内存存储的 Repository 聚合
func newMemRepository(store *memStore) *repository.Repository {
	repo := &repository.Repository{
		User:           &mockUserRepo{store: store},
		Role:           &mockRoleRepo{store: store},
		Shift:          &mockShiftRepo{store: store},
		ShiftRequest:   &mockShiftRequestRepo{store: store},
		ShiftChangeLog: &mockShiftChangeLogRepo{store: store},
		Notification:   &mockNotificationRepo{store: store},
	}
	repo.Tx = &memTxRunner{store: store, repo: repo}
	return repo
}

// ── Mock UserRepository ──

type mockUserRepo struct{ store *memStore }

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	u, ok := m.store.users[id]
	if !ok || !u.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, u := range m.store.users {
		if u.IsActive && strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var list []model.User
	for _, id := range ids {
		if u, ok := m.store.users[id]; ok {
			list = append(list, u)
		}
	}
	return list, nil
}

func (m *mockUserRepo) ListApprovers(_ context.Context, roleID string) ([]model.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	editors := make(map[string]bool)
	for _, ur := range m.store.userRoles {
		if ur.RoleID == roleID && ur.CanEditRota {
			editors[ur.UserID] = true
		}
	}
	var list []model.User
	for _, u := range m.store.users {
		if !u.IsActive || u.IsGenericLogin {
			continue
		}
		if u.IsSuperAdmin || editors[u.UserID] {
			list = append(list, u)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// ── Mock RoleRepository ──

type mockRoleRepo struct{ store *memStore }

func (m *mockRoleRepo) GetByID(_ context.Context, id string) (*model.Role, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	r, ok := m.store.roles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &r, nil
}

func (m *mockRoleRepo) ListUserRoles(_ context.Context, userID string) ([]model.UserRole, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var list []model.UserRole
	for _, ur := range m.store.userRoles {
		if ur.UserID == userID {
			list = append(list, ur)
		}
	}
	return list, nil
}

// ── Mock ShiftRepository ──

type mockShiftRepo struct{ store *memStore }

func (m *mockShiftRepo) GetByID(_ context.Context, id string) (*model.Shift, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	sh, ok := m.store.shifts[id]
	if !ok || sh.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	return &sh, nil
}

func (m *mockShiftRepo) LockByID(ctx context.Context, id string) (*model.Shift, error) {
	return m.GetByID(ctx, id)
}

func (m *mockShiftRepo) LockByIDUnscoped(_ context.Context, id string) (*model.Shift, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	sh, ok := m.store.shifts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &sh, nil
}

func (m *mockShiftRepo) UpdateAssignee(_ context.Context, shiftID string, assigneeID *string, operatorID string) error {
	if err := m.store.fail("Shift.UpdateAssignee"); err != nil {
		return err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	sh, ok := m.store.shifts[shiftID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	sh.AssigneeID = assigneeID
	sh.UpdatedBy = &operatorID
	m.store.shifts[shiftID] = sh
	return nil
}

func (m *mockShiftRepo) ListByAssignee(_ context.Context, userID string, from time.Time) ([]model.Shift, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var list []model.Shift
	for _, sh := range m.store.shifts {
		if sh.IsOwnedBy(userID) && !sh.ShiftDate.Before(from) {
			if role, ok := m.store.roles[sh.RoleID]; ok {
				r := role
				sh.Role = &r
			}
			list = append(list, sh)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ShiftDate.Before(list[j].ShiftDate) })
	return list, nil
}

// ── Mock ShiftRequestRepository ──

type mockShiftRequestRepo struct{ store *memStore }

func (m *mockShiftRequestRepo) Create(_ context.Context, req *model.ShiftRequest) error {
	if err := m.store.fail("ShiftRequest.Create"); err != nil {
		return err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if req.RequestID == "" {
		req.RequestID = m.store.nextID("req")
	}
	now := time.Now()
	req.Version = 1
	req.CreatedAt = now
	req.UpdatedAt = now
	m.store.requests[req.RequestID] = *req
	return nil
}

func (m *mockShiftRequestRepo) GetByID(_ context.Context, id string) (*model.ShiftRequest, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	r, ok := m.store.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &r, nil
}

func (m *mockShiftRequestRepo) LockByID(ctx context.Context, id string) (*model.ShiftRequest, error) {
	return m.GetByID(ctx, id)
}

func (m *mockShiftRequestRepo) Update(_ context.Context, req *model.ShiftRequest) error {
	if err := m.store.fail("ShiftRequest.Update"); err != nil {
		return err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	cur, ok := m.store.requests[req.RequestID]
	if !ok || cur.Version != req.Version {
		return pkgerrors.ErrOptimisticLock
	}
	req.Version++
	req.UpdatedAt = time.Now()
	m.store.requests[req.RequestID] = *req
	return nil
}

func (m *mockShiftRequestRepo) LockActiveByShifts(_ context.Context, shiftIDs []string, excludeID string) ([]model.ShiftRequest, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	wanted := make(map[string]bool, len(shiftIDs))
	for _, id := range shiftIDs {
		wanted[id] = true
	}
	var list []model.ShiftRequest
	for _, r := range m.store.requests {
		if r.RequestID == excludeID || !r.IsActive() {
			continue
		}
		if wanted[r.SourceShiftID] || (r.TargetShiftID != nil && wanted[*r.TargetShiftID]) {
			list = append(list, r)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].RequestID < list[j].RequestID })
	return list, nil
}

func (m *mockShiftRequestRepo) ListResolved(_ context.Context, from, to time.Time) ([]model.ShiftRequest, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var list []model.ShiftRequest
	for _, r := range m.store.requests {
		if !r.IsTerminal() || r.UpdatedAt.Before(from) || !r.UpdatedAt.Before(to) {
			continue
		}
		if sh, ok := m.store.shifts[r.SourceShiftID]; ok {
			if role, ok := m.store.roles[sh.RoleID]; ok {
				rc := role
				sh.Role = &rc
			}
			r.SourceShift = &sh
		}
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].RequestID < list[j].RequestID })
	return list, nil
}

// ── Mock ShiftChangeLogRepository ──

type mockShiftChangeLogRepo struct{ store *memStore }

func (m *mockShiftChangeLogRepo) Create(_ context.Context, log *model.ShiftChangeLog) error {
	if err := m.store.fail("ShiftChangeLog.Create"); err != nil {
		return err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	log.ChangeLogID = m.store.nextID("log")
	log.CreatedAt = time.Now()
	m.store.changeLogs = append(m.store.changeLogs, *log)
	return nil
}

func (m *mockShiftChangeLogRepo) ListByRequest(_ context.Context, requestID string) ([]model.ShiftChangeLog, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var list []model.ShiftChangeLog
	for _, l := range m.store.changeLogs {
		if l.RequestID == requestID {
			list = append(list, l)
		}
	}
	return list, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ store *memStore }

func (m *mockNotificationRepo) BatchCreate(_ context.Context, notifications []model.Notification) error {
	if err := m.store.fail("Notification.BatchCreate"); err != nil {
		return err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.notifications = append(m.store.notifications, notifications...)
	return nil
}
