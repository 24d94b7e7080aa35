//go:build integration

package reporting_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"shift-market/backend/internal/reporting"
	"shift-market/backend/pkg/database"
)

var testDB *sqlx.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=postgres password=postgres dbname=shift_market_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = sqlx.Connect("postgres", dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(testDB.DB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "执行迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// seed 插入一行并返回主键
func seed(t *testing.T, query string, args ...interface{}) string {
	t.Helper()
	var id string
	if err := testDB.QueryRowx(query, args...).Scan(&id); err != nil {
		t.Fatalf("写入测试数据失败: %v", err)
	}
	return id
}

type viewFixture struct {
	alice, bob, carol string
	roleID            string
	aliceShift        string
	bobShift          string
	giveawayID        string
	openSwapID        string
}

func setupViewFixture(t *testing.T) *viewFixture {
	t.Helper()
	suffix := time.Now().UnixNano()
	f := &viewFixture{}

	newUser := func(name string) string {
		return seed(t, `INSERT INTO users (name, email) VALUES ($1, $2) RETURNING user_id`,
			name, fmt.Sprintf("%s-%d@test.com", name, suffix))
	}
	f.alice, f.bob, f.carol = newUser("alice"), newUser("bob"), newUser("carol")
	f.roleID = seed(t, `INSERT INTO roles (name) VALUES ($1) RETURNING role_id`, fmt.Sprintf("Bar-%d", suffix))

	day := time.Now().AddDate(0, 0, 5)
	newShift := func(assignee string) string {
		return seed(t, `INSERT INTO shifts (role_id, assignee_id, shift_date, start_time, end_time)
VALUES ($1, $2, $3, '18:00', '23:00') RETURNING shift_id`, f.roleID, assignee, day)
	}
	f.aliceShift, f.bobShift = newShift(f.alice), newShift(f.bob)
	newShift(f.carol)

	f.giveawayID = seed(t, `INSERT INTO shift_requests (kind, status, source_shift_id, requester_id)
VALUES ('GIVEAWAY', 'OPEN', $1, $2) RETURNING request_id`, f.aliceShift, f.alice)
	f.openSwapID = seed(t, `INSERT INTO shift_requests (kind, status, source_shift_id, target_shift_id, requester_id)
VALUES ('SWAP', 'PROPOSED', $1, $2, $3) RETURNING request_id`, f.aliceShift, f.bobShift, f.alice)
	return f
}

func contains(rows []reporting.RequestRow, id string) bool {
	for _, r := range rows {
		if r.RequestID == id {
			return true
		}
	}
	return false
}

func TestMarketplaceView_ListOpen(t *testing.T) {
	f := setupViewFixture(t)
	view := reporting.NewMarketplaceView(testDB)
	ctx := context.Background()

	rows, _, err := view.ListOpen(ctx, f.bob, 100, 0)
	if err != nil {
		t.Fatalf("查询开放申请失败: %v", err)
	}
	if !contains(rows, f.giveawayID) || !contains(rows, f.openSwapID) {
		t.Error("期望开放列表包含转让与未点名互换")
	}

	rows, _, err = view.ListOpen(ctx, f.alice, 100, 0)
	if err != nil {
		t.Fatalf("查询开放申请失败: %v", err)
	}
	if contains(rows, f.giveawayID) {
		t.Error("开放列表不应包含查看者自己的申请")
	}
}

func TestMarketplaceView_GetRequest(t *testing.T) {
	f := setupViewFixture(t)
	view := reporting.NewMarketplaceView(testDB)

	row, err := view.GetRequest(context.Background(), f.openSwapID)
	if err != nil {
		t.Fatalf("查询申请失败: %v", err)
	}
	if row.RequesterName != "alice" {
		t.Errorf("期望申请人 alice，实际=%s", row.RequesterName)
	}
	if row.TargetAssigneeName == nil || *row.TargetAssigneeName != "bob" {
		t.Error("期望目标班次持有人为 bob")
	}

	if _, err := view.GetRequest(context.Background(), "00000000-0000-0000-0000-000000000000"); err != reporting.ErrNotFound {
		t.Errorf("期望 ErrNotFound，实际: %v", err)
	}
}

func TestMarketplaceView_IncomingAndDashboard(t *testing.T) {
	f := setupViewFixture(t)
	view := reporting.NewMarketplaceView(testDB)
	ctx := context.Background()

	rows, err := view.ListIncoming(ctx, f.bob)
	if err != nil {
		t.Fatalf("查询待响应互换失败: %v", err)
	}
	if !contains(rows, f.openSwapID) {
		t.Error("目标班次持有人期望看到未点名互换")
	}

	rows, err = view.ListIncoming(ctx, f.carol)
	if err != nil {
		t.Fatalf("查询待响应互换失败: %v", err)
	}
	if contains(rows, f.openSwapID) {
		t.Error("非目标持有人不应看到该互换")
	}

	counts, err := view.Dashboard(ctx, f.alice, []string{f.roleID}, false)
	if err != nil {
		t.Fatalf("查询看板失败: %v", err)
	}
	if counts.MyActiveRequests != 2 {
		t.Errorf("期望 2 个活跃申请，实际=%d", counts.MyActiveRequests)
	}
}

func TestMarketplaceView_ListSwappableShifts(t *testing.T) {
	f := setupViewFixture(t)
	view := reporting.NewMarketplaceView(testDB)

	rows, err := view.ListSwappableShifts(context.Background(), f.alice, "", time.Now().AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("查询可互换班次失败: %v", err)
	}
	for _, r := range rows {
		if r.ShiftID == f.bobShift {
			t.Error("已被活跃申请引用的班次不应可互换")
		}
		if r.AssigneeID != nil && *r.AssigneeID == f.alice {
			t.Error("不应包含自己的班次")
		}
	}
}
