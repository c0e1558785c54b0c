package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/internal/model"
	"github.com/yeisme/blobdrive/pkg/internal/service"
	"github.com/yeisme/blobdrive/pkg/internal/storage"
	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
	dbc "github.com/yeisme/blobdrive/pkg/internal/storage/db"
	"github.com/yeisme/blobdrive/pkg/internal/storage/kv"
	"github.com/yeisme/blobdrive/pkg/internal/types"
	"github.com/yeisme/blobdrive/pkg/internal/vfs"
	"github.com/yeisme/blobdrive/pkg/queue"
)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
)

type fixture struct {
	rt     *service.Runtime
	mem    *blob.Memory
	db     *gorm.DB
	files  *service.FileService
	shares *service.ShareService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := configs.Defaults()
	cfg.Signing.AccountKey = "c2VjcmV0LWtleQ=="
	cfg.Signing.PublicBaseURL = "http://gw.local"
	cfg.Share.AppURL = "http://app.local/"
	cfg.Events.Enabled = false

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatal(err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatal(err)
	}

	// 内存库每个连接各自独立
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	client := dbc.Wrap(gdb)
	if err := client.Migrate(context.Background(), model.All()...); err != nil {
		t.Fatal(err)
	}

	kvc, err := kv.NewKVClient(context.Background(), &configs.KVConfig{})
	if err != nil {
		t.Fatal(err)
	}

	mem := blob.NewMemory()

	rt, err := service.NewRuntime(&cfg, &storage.Manager{Blob: mem, DB: client, KV: kvc})
	if err != nil {
		t.Fatal(err)
	}

	return &fixture{
		rt:     rt,
		mem:    mem,
		db:     gdb,
		files:  service.NewFileServiceWith(rt),
		shares: service.NewShareServiceWith(rt),
	}
}

func (f *fixture) upload(t *testing.T, identity, dir, name string) vfs.Item {
	t.Helper()

	it, err := f.files.Upload(context.Background(), identity, dir, name, []byte("hello"), "text/plain")
	if err != nil {
		t.Fatalf("Upload(%s/%s) error = %v", dir, name, err)
	}

	return it
}

func (f *fixture) row(t *testing.T, id string) (model.File, bool) {
	t.Helper()

	var row model.File

	err := f.db.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, false
	}

	if err != nil {
		t.Fatal(err)
	}

	return row, true
}

func TestRegistryMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	it := f.upload(t, alice, "docs", "a.txt")

	row, ok := f.row(t, it.ID)
	if !ok {
		t.Fatalf("no registry row for %s", it.ID)
	}

	if row.OwnerEmail != alice || row.Name != "a.txt" || row.Type != model.FileTypeFile || row.IsDeleted {
		t.Errorf("row = %+v", row)
	}

	if _, err := f.files.SoftDelete(ctx, alice, "docs/a.txt"); err != nil {
		t.Fatal(err)
	}

	if row, _ := f.row(t, it.ID); !row.IsDeleted || row.DeletedAt == nil {
		t.Errorf("after SoftDelete row = %+v", row)
	}

	if _, err := f.files.Restore(ctx, alice, "docs/a.txt"); err != nil {
		t.Fatal(err)
	}

	if row, _ := f.row(t, it.ID); row.IsDeleted {
		t.Error("row still deleted after Restore")
	}

	renamed, err := f.files.Rename(ctx, alice, "docs/a.txt", "b.txt")
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := f.row(t, it.ID); ok {
		t.Error("old row survived Rename")
	}

	if _, ok := f.row(t, renamed.ID); !ok {
		t.Error("no row for renamed object")
	}

	moved, err := f.files.Move(ctx, alice, "docs/b.txt", "root")
	if err != nil {
		t.Fatal(err)
	}

	if moved.Path != "" {
		t.Errorf("moved.Path = %q, want root", moved.Path)
	}

	if err := f.files.PermanentDelete(ctx, alice, "b.txt"); err != nil {
		t.Fatal(err)
	}

	if _, ok := f.row(t, moved.ID); ok {
		t.Error("row survived PermanentDelete")
	}
}

func TestDeleteFolderMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.files.CreateFolder(ctx, alice, "photos"); err != nil {
		t.Fatal(err)
	}

	a := f.upload(t, alice, "photos", "1.jpg")
	b := f.upload(t, alice, "photos/2024", "2.jpg")
	other := f.upload(t, alice, "photosets", "3.jpg")

	resp, err := f.files.DeleteFolder(ctx, alice, "photos")
	if err != nil {
		t.Fatal(err)
	}

	if resp.Deleted != 3 {
		t.Errorf("Deleted = %d, want 3 (marker and two files)", resp.Deleted)
	}

	for _, id := range []string{a.ID, b.ID} {
		if row, _ := f.row(t, id); !row.IsDeleted {
			t.Errorf("%s not marked deleted", id)
		}
	}

	if row, _ := f.row(t, other.ID); row.IsDeleted {
		t.Error("sibling folder with shared prefix was deleted")
	}

	trash, err := f.files.RecycleBin(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}

	if trash.Total != 3 {
		t.Errorf("RecycleBin total = %d, want 3", trash.Total)
	}
}

func TestTransferFromRecycleBin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	it := f.upload(t, alice, "docs", "a.txt")

	if _, err := f.files.SoftDelete(ctx, alice, "docs/a.txt"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.files.Copy(ctx, alice, it.ID, "root"); !errors.Is(err, vfs.ErrNotFound) {
		t.Errorf("Copy(deleted) error = %v, want not found", err)
	}

	if _, err := f.files.Move(ctx, alice, it.ID, "root"); !errors.Is(err, vfs.ErrNotFound) {
		t.Errorf("Move(deleted) error = %v, want not found", err)
	}

	if _, err := f.files.Rename(ctx, alice, "docs/a.txt", "b.txt"); !errors.Is(err, vfs.ErrNotFound) {
		t.Errorf("Rename(deleted) error = %v, want not found", err)
	}

	ns, err := f.rt.Registry.Namespace(alice)
	if err != nil {
		t.Fatal(err)
	}

	for _, rel := range []string{"a.txt", "docs/b.txt"} {
		key, err := ns.Key(rel)
		if err != nil {
			t.Fatal(err)
		}

		if _, ok := f.row(t, key); ok {
			t.Errorf("registry row written for %s", key)
		}

		if _, err := f.shares.CreateLink(ctx, alice, key, 1); !errors.Is(err, vfs.ErrNotFound) {
			t.Errorf("CreateLink(%s) error = %v, want not found", rel, err)
		}
	}

	if row, ok := f.row(t, it.ID); !ok || !row.IsDeleted {
		t.Errorf("source row = %+v, %v", row, ok)
	}

	if _, err := f.files.Restore(ctx, alice, "docs/a.txt"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.files.Copy(ctx, alice, it.ID, "root"); err != nil {
		t.Errorf("Copy(restored) error = %v", err)
	}
}

func TestCreateFileAndQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	it, err := f.files.CreateFile(ctx, alice, &types.CreateFileRequest{Name: "empty.md", Path: "notes"})
	if err != nil {
		t.Fatal(err)
	}

	if it.Size != 0 || it.ContentType != "text/plain" {
		t.Errorf("CreateFile item = %+v", it)
	}

	f.upload(t, alice, "", "x.txt")

	q, err := f.files.Quota(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}

	if q.Used != 5 || q.Files != 2 || q.Identity != alice {
		t.Errorf("Quota = %+v", q)
	}
}

func TestAnonymousCaller(t *testing.T) {
	f := newFixture(t)

	if _, err := f.files.List(context.Background(), "  ", ""); !errors.Is(err, vfs.ErrUnauthorized) {
		t.Errorf("List() error = %v, want ErrUnauthorized", err)
	}

	if got := service.Outcome(vfs.Errorf(vfs.ErrUnauthorized, "list", "", "no identity")); got != "unauthorized" {
		t.Errorf("Outcome() = %q", got)
	}
}

func TestNilRuntime(t *testing.T) {
	svc := service.NewFileService(context.Background())

	if _, err := svc.List(context.Background(), alice, ""); !errors.Is(err, vfs.ErrConfiguration) {
		t.Errorf("List() error = %v, want ErrConfiguration", err)
	}
}

func TestShareLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	it := f.upload(t, alice, "docs", "report.pdf")

	created, err := f.shares.CreateLink(ctx, alice, "docs/report.pdf", 0)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := uuid.Parse(created.ShareID); err != nil {
		t.Errorf("ShareID %q is not a uuid", created.ShareID)
	}

	if created.URL != "http://app.local/share/"+created.ShareID {
		t.Errorf("URL = %q", created.URL)
	}

	if strings.Contains(created.URL, "report.pdf") {
		t.Error("share url leaks the object key")
	}

	wantExpiry := time.Now().Add(7 * 24 * time.Hour)
	if d := created.Expiry.Sub(wantExpiry); d < -time.Minute || d > time.Minute {
		t.Errorf("Expiry = %v, want about %v", created.Expiry, wantExpiry)
	}

	resolved, err := f.shares.ResolveLink(ctx, bob, created.ShareID)
	if err != nil {
		t.Fatal(err)
	}

	if resolved.FileID != it.ID || resolved.Name != "report.pdf" || resolved.URL == "" {
		t.Errorf("resolved = %+v", resolved)
	}

	if _, err := f.shares.ResolveLink(ctx, alice, created.ShareID); err != nil {
		t.Fatal(err)
	}

	var rec model.ShareLink
	if err := f.db.Where("share_id = ?", created.ShareID).First(&rec).Error; err != nil {
		t.Fatal(err)
	}

	if rec.AccessCount != 2 || rec.LastAccessedAt == nil {
		t.Errorf("access counters = %d, %v", rec.AccessCount, rec.LastAccessedAt)
	}

	list, err := f.shares.ListLinks(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}

	if list.Total != 1 || list.Shares[0].ShareID != created.ShareID {
		t.Errorf("ListLinks = %+v", list)
	}

	if list, _ := f.shares.ListLinks(ctx, bob); list.Total != 0 {
		t.Errorf("bob sees %d links", list.Total)
	}
}

func TestCreateLinkOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.upload(t, alice, "", "mine.txt")

	tests := []struct {
		name   string
		owner  string
		fileID string
		days   int
		want   error
	}{
		{"other tenant", bob, "mine.txt", 0, vfs.ErrNotFound},
		{"missing file", alice, "nope.txt", 0, vfs.ErrNotFound},
		{"anonymous", "", "mine.txt", 0, vfs.ErrUnauthorized},
		{"negative days", alice, "mine.txt", -1, vfs.ErrInvalidArgument},
		{"beyond max", alice, "mine.txt", 10000, vfs.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.shares.CreateLink(ctx, tt.owner, tt.fileID, tt.days); !errors.Is(err, tt.want) {
				t.Errorf("CreateLink() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := f.files.SoftDelete(ctx, alice, "mine.txt"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.shares.CreateLink(ctx, alice, "mine.txt", 1); !errors.Is(err, vfs.ErrNotFound) {
		t.Errorf("CreateLink(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestResolveLinkErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.upload(t, alice, "", "a.txt")

	created, err := f.shares.CreateLink(ctx, alice, "a.txt", 1)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.shares.ResolveLink(ctx, "", created.ShareID); !errors.Is(err, vfs.ErrUnauthorized) {
		t.Errorf("anonymous resolve error = %v", err)
	}

	if _, err := f.shares.ResolveLink(ctx, bob, uuid.NewString()); !errors.Is(err, vfs.ErrNotFound) {
		t.Errorf("unknown share error = %v", err)
	}

	if _, err := f.shares.ResolveLink(ctx, bob, "not-a-share"); !errors.Is(err, vfs.ErrNotFound) {
		t.Errorf("malformed share error = %v", err)
	}

	f.rt.Now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	if _, err := f.shares.ResolveLink(ctx, bob, created.ShareID); !errors.Is(err, vfs.ErrForbidden) {
		t.Errorf("expired share error = %v, want ErrForbidden", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.upload(t, alice, "", "a.txt")

	if _, err := f.shares.CreateLink(ctx, alice, "a.txt", 1); err != nil {
		t.Fatal(err)
	}

	n, err := f.shares.PurgeExpired(ctx, time.Now())
	if err != nil || n != 0 {
		t.Errorf("PurgeExpired(now) = %d, %v", n, err)
	}

	n, err = f.shares.PurgeExpired(ctx, time.Now().Add(72*time.Hour))
	if err != nil || n != 1 {
		t.Errorf("PurgeExpired(+72h) = %d, %v", n, err)
	}
}

func TestReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	keep := f.upload(t, alice, "", "keep.txt")
	gone := f.upload(t, alice, "", "gone.txt")

	ns, err := f.files.Init(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.mem.Delete(ctx, ns.Container(), gone.ID); err != nil {
		t.Fatal(err)
	}

	removed, err := f.files.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if removed != 1 {
		t.Errorf("Reconcile() = %d, want 1", removed)
	}

	if _, ok := f.row(t, keep.ID); !ok {
		t.Error("live row removed")
	}

	if _, ok := f.row(t, gone.ID); ok {
		t.Error("stale row kept")
	}
}

func TestActivityRecorder(t *testing.T) {
	f := newFixture(t)
	rec := service.NewActivityRecorder(f.rt)

	events := []struct {
		topic   string
		payload queue.ObjectEventPayload
		want    string
	}{
		{queue.TopicObjectUploaded, queue.ObjectEventPayload{Identity: alice, Object: queue.ObjectRef{ObjectKey: "k1"}}, model.ActionUpload},
		{queue.TopicObjectUploaded, queue.ObjectEventPayload{Identity: alice, Object: queue.ObjectRef{ObjectKey: "k2"}, Source: "create"}, model.ActionCreate},
		{queue.TopicObjectPurged, queue.ObjectEventPayload{Identity: alice, Object: queue.ObjectRef{ObjectKey: "k3"}}, model.ActionPermanentDelete},
	}

	for _, ev := range events {
		msg, err := queue.NewWatermillMessage(ev.topic, ev.payload)
		if err != nil {
			t.Fatal(err)
		}

		if err := rec.Handle(msg); err != nil {
			t.Fatal(err)
		}
	}

	share, err := queue.NewWatermillMessage(queue.TopicShareAccessed, queue.ShareEventPayload{Identity: bob, FileID: "k1"})
	if err != nil {
		t.Fatal(err)
	}

	if err := rec.Handle(share); err != nil {
		t.Fatal(err)
	}

	var rows []model.Activity
	if err := f.db.Order("id").Find(&rows).Error; err != nil {
		t.Fatal(err)
	}

	if len(rows) != 4 {
		t.Fatalf("got %d activity rows, want 4", len(rows))
	}

	byFile := map[string]string{}
	for _, r := range rows {
		byFile[r.FileID+"/"+r.UserEmail] = r.Action
	}

	want := map[string]string{
		"k1/" + alice: model.ActionUpload,
		"k2/" + alice: model.ActionCreate,
		"k3/" + alice: model.ActionPermanentDelete,
		"k1/" + bob:   model.ActionShareAccess,
	}

	for k, action := range want {
		if byFile[k] != action {
			t.Errorf("activity %s = %q, want %q", k, byFile[k], action)
		}
	}
}
