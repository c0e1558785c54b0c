package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/internal/jobs"
	"github.com/yeisme/blobdrive/pkg/internal/model"
	"github.com/yeisme/blobdrive/pkg/internal/service"
	"github.com/yeisme/blobdrive/pkg/internal/storage"
	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
	dbc "github.com/yeisme/blobdrive/pkg/internal/storage/db"
	"github.com/yeisme/blobdrive/pkg/scheduler"
)

const alice = "alice@example.com"

func newRuntime(t *testing.T) (*service.Runtime, *blob.Memory, *gorm.DB) {
	t.Helper()

	cfg := configs.Defaults()
	cfg.Signing.AccountKey = "c2VjcmV0LWtleQ=="
	cfg.Events.Enabled = false

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatal(err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatal(err)
	}

	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	client := dbc.Wrap(gdb)
	if err := client.Migrate(context.Background(), model.All()...); err != nil {
		t.Fatal(err)
	}

	mem := blob.NewMemory()

	rt, err := service.NewRuntime(&cfg, &storage.Manager{Blob: mem, DB: client})
	if err != nil {
		t.Fatal(err)
	}

	return rt, mem, gdb
}

func TestRegisterCronJobs(t *testing.T) {
	rt, _, _ := newRuntime(t)

	sched, err := scheduler.NewScheduler(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { _ = sched.Stop() })

	n, err := jobs.RegisterCronJobs(sched, rt)
	if err != nil {
		t.Fatal(err)
	}

	if n != 3 || len(sched.GetJobInfos()) != 3 {
		t.Fatalf("registered %d jobs, infos = %+v", n, sched.GetJobInfos())
	}

	if _, err := jobs.RegisterCronJobs(nil, rt); err == nil {
		t.Error("nil scheduler accepted")
	}
}

func TestRegisterCronJobsDisabled(t *testing.T) {
	rt, _, _ := newRuntime(t)
	rt.Config.Jobs.Enabled = false

	sched, err := scheduler.NewScheduler(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { _ = sched.Stop() })

	if n, err := jobs.RegisterCronJobs(sched, rt); err != nil || n != 0 {
		t.Fatalf("RegisterCronJobs = %d, %v", n, err)
	}
}

func TestSharePurge(t *testing.T) {
	rt, _, gdb := newRuntime(t)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rt.Now = func() time.Time { return now }

	rows := []model.ShareLink{
		{ID: "01J00000000000000000000001", ShareID: "11111111-1111-4111-8111-111111111111", FileID: "a/x", CreatedBy: alice, Expiry: now.AddDate(0, 0, -40), CreatedAt: now.AddDate(0, 0, -50)},
		{ID: "01J00000000000000000000002", ShareID: "22222222-2222-4222-8222-222222222222", FileID: "a/y", CreatedBy: alice, Expiry: now.AddDate(0, 0, -10), CreatedAt: now.AddDate(0, 0, -20)},
		{ID: "01J00000000000000000000003", ShareID: "33333333-3333-4333-8333-333333333333", FileID: "a/z", CreatedBy: alice, Expiry: now.AddDate(0, 0, 5), CreatedAt: now},
	}
	if err := gdb.Create(&rows).Error; err != nil {
		t.Fatal(err)
	}

	if err := jobs.SharePurge(rt)(context.Background()); err != nil {
		t.Fatal(err)
	}

	var left []model.ShareLink
	if err := gdb.Order("id").Find(&left).Error; err != nil {
		t.Fatal(err)
	}

	if len(left) != 2 || left[0].FileID != "a/y" || left[1].FileID != "a/z" {
		t.Errorf("left = %+v", left)
	}
}

func TestRegistryReconcile(t *testing.T) {
	rt, mem, gdb := newRuntime(t)
	ctx := context.Background()

	files := service.NewFileServiceWith(rt)

	kept, err := files.Upload(ctx, alice, "docs", "kept.txt", []byte("a"), "text/plain")
	if err != nil {
		t.Fatal(err)
	}

	gone, err := files.Upload(ctx, alice, "docs", "gone.txt", []byte("b"), "text/plain")
	if err != nil {
		t.Fatal(err)
	}

	ns, err := rt.Registry.Namespace(alice)
	if err != nil {
		t.Fatal(err)
	}

	// 绕过服务直接删除对象，登记行留下
	if err := mem.Delete(ctx, ns.Container(), gone.ID); err != nil {
		t.Fatal(err)
	}

	if err := jobs.RegistryReconcile(rt)(ctx); err != nil {
		t.Fatal(err)
	}

	var ids []string
	if err := gdb.Model(&model.File{}).Pluck("id", &ids).Error; err != nil {
		t.Fatal(err)
	}

	if len(ids) != 1 || ids[0] != kept.ID {
		t.Errorf("registry ids = %v, want [%s]", ids, kept.ID)
	}
}

func TestNamespaceSweepKeepsActive(t *testing.T) {
	rt, _, _ := newRuntime(t)

	if _, err := rt.Registry.Namespace(alice); err != nil {
		t.Fatal(err)
	}

	if err := jobs.NamespaceSweep(rt)(context.Background()); err != nil {
		t.Fatal(err)
	}

	if rt.Registry.Len() != 1 {
		t.Errorf("Len() = %d, want 1", rt.Registry.Len())
	}
}
