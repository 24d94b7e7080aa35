package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"shift-market/backend/internal/model"
)

// ── ExportRequestHistory 测试 ──

func TestExportService_ExportRequestHistory_InvalidRange(t *testing.T) {
	env := newTestEnv(t)
	svc := NewExportService(env.repo, zap.NewNop())

	now := time.Now()
	_, _, err := svc.ExportRequestHistory(context.Background(), now, now.Add(-time.Hour))
	if !errors.Is(err, ErrExportInvalidRange) {
		t.Errorf("期望 ErrExportInvalidRange，实际: %v", err)
	}
}

func TestExportService_ExportRequestHistory_NoRequests(t *testing.T) {
	env := newTestEnv(t)
	svc := NewExportService(env.repo, zap.NewNop())

	// 仅有活跃申请
	env.addShift("s1", roleConsultant, userA)
	env.mustCreate(t, userA, giveaway("s1"))

	now := time.Now()
	_, _, err := svc.ExportRequestHistory(context.Background(), now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	if !errors.Is(err, ErrExportNoRequests) {
		t.Errorf("期望 ErrExportNoRequests，实际: %v", err)
	}
}

func TestExportService_ExportRequestHistory_Success(t *testing.T) {
	env := newTestEnv(t)
	svc := NewExportService(env.repo, zap.NewNop())
	ctx := context.Background()

	env.addShift("s1", roleConsultant, userA)
	req := env.mustCreate(t, userA, giveaway("s1"))
	if _, err := env.engine.Claim(ctx, req.RequestID, userB); err != nil {
		t.Fatalf("认领失败: %v", err)
	}
	if _, err := env.engine.Resolve(ctx, req.RequestID, userMgr, true, nil); err != nil {
		t.Fatalf("审批失败: %v", err)
	}

	now := time.Now()
	buf, filename, err := svc.ExportRequestHistory(ctx, now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("期望 .xlsx 文件名，实际=%s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("打开导出文件失败: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("申请历史")
	if err != nil {
		t.Fatalf("读取 Sheet 失败: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("期望表头 + 1 行数据，实际=%d 行", len(rows))
	}

	row := rows[1]
	checks := map[int]string{
		0: req.RequestID,
		1: "转让",
		2: model.RequestStatusApproved,
		5: "Consultant",
		6: "Alice",
		7: "Bob",
		8: "Manager",
	}
	for col, want := range checks {
		if col >= len(row) || row[col] != want {
			t.Errorf("第 %d 列期望=%q，实际行=%v", col+1, want, row)
		}
	}
}

// ── ExportShiftCalendar 测试 ──

func TestExportService_ExportShiftCalendar(t *testing.T) {
	env := newTestEnv(t)
	svc := NewExportService(env.repo, zap.NewNop())

	env.addShift("s-own", roleConsultant, userA)
	env.addShift("s-other", roleDoor, userB)

	// 跨天班次
	env.addShift("s-night", roleDoor, userA)
	env.store.mu.Lock()
	night := env.store.shifts["s-night"]
	night.StartTime, night.EndTime = "22:00", "06:00"
	env.store.shifts["s-night"] = night
	env.store.mu.Unlock()

	buf, filename, err := svc.ExportShiftCalendar(context.Background(), userA)
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if filename != "shifts.ics" {
		t.Errorf("期望文件名 shifts.ics，实际=%s", filename)
	}

	body := buf.String()
	if n := strings.Count(body, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("期望 2 个事件，实际=%d", n)
	}
	for _, want := range []string{"s-own@shift-market", "s-night@shift-market", "SUMMARY:Consultant", "SUMMARY:Door"} {
		if !strings.Contains(body, want) {
			t.Errorf("日历中缺少 %q", want)
		}
	}
	if strings.Contains(body, "s-other@shift-market") {
		t.Error("日历不应包含他人班次")
	}
}

func TestShiftSpan_Overnight(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	start, end, ok := shiftSpan(model.Shift{ShiftDate: day, StartTime: "22:00", EndTime: "06:00"})
	if !ok {
		t.Fatal("期望解析成功")
	}
	if want := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("期望开始=%v，实际=%v", want, start)
	}
	if want := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC); !end.Equal(want) {
		t.Errorf("期望结束=%v，实际=%v", want, end)
	}

	if _, _, ok := shiftSpan(model.Shift{ShiftDate: day, StartTime: "9am", EndTime: "17:00"}); ok {
		t.Error("非法时间格式期望失败")
	}
}
