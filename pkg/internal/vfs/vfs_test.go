package vfs_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/internal/signer"
	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
	"github.com/yeisme/blobdrive/pkg/internal/vfs"
)

const alice = "alice@example.com"

func newEngine(t *testing.T) *signer.Engine {
	t.Helper()

	e, err := signer.New(configs.SigningConfig{
		Account:       "blobdrive",
		AccountKey:    "c2VjcmV0LWtleQ==",
		Mode:          configs.CapabilityGateway,
		PublicBaseURL: "http://gw.local/",
	})
	if err != nil {
		t.Fatal(err)
	}

	return e
}

func newNamespace(t *testing.T) (*vfs.Namespace, *blob.Memory, *signer.Engine) {
	t.Helper()

	mem := blob.NewMemory()
	engine := newEngine(t)
	reg := vfs.NewRegistry(mem, engine, vfs.Config{ContainerPrefix: "bd", QuotaLimit: 1 << 20})

	ns, err := reg.Open(context.Background(), alice)
	if err != nil {
		t.Fatal(err)
	}

	return ns, mem, engine
}

func upload(t *testing.T, ns *vfs.Namespace, dir, name, body string) vfs.Item {
	t.Helper()

	it, err := ns.Upload(context.Background(), dir, name, []byte(body), "text/plain")
	if err != nil {
		t.Fatalf("Upload(%q, %q) error = %v", dir, name, err)
	}

	return it
}

func names(items []vfs.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, string(it.Type)+":"+it.Name)
	}

	return out
}

func TestContainerName(t *testing.T) {
	a := vfs.ContainerName("bd", "Alice@Example.com")
	if a != vfs.ContainerName("bd", " alice@example.com ") {
		t.Error("container name should ignore case and surrounding spaces")
	}

	if !strings.HasPrefix(a, "bd-aliceexamplecom-") && !strings.HasPrefix(a, "bd-alice-example-com-") {
		t.Errorf("ContainerName() = %q, want readable slug", a)
	}

	// 清洗后 slug 相同的两个身份仍然得到不同的容器.
	if vfs.ContainerName("bd", "a.b@x.io") == vfs.ContainerName("bd", "a-b@x.io") {
		t.Error("distinct identities collide")
	}

	long := vfs.ContainerName("blobdrive", strings.Repeat("verylongname", 10)+"@example.com")
	if len(long) > 63 || len(long) < 3 {
		t.Errorf("len(ContainerName()) = %d", len(long))
	}

	for _, r := range long {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			t.Fatalf("invalid rune %q in %q", r, long)
		}
	}

	if strings.HasSuffix(long, "-") || strings.Contains(long, "--") {
		t.Errorf("ContainerName() = %q has bad dashes", long)
	}
}

func TestTenantFolder(t *testing.T) {
	if got := vfs.TenantFolder("Alice@Example.com"); got != "alice_example_com" {
		t.Errorf("TenantFolder() = %q", got)
	}
}

func TestNormalizeTags(t *testing.T) {
	got := vfs.NormalizeTags([]string{" work ", "", "a,b", "work", "x"})
	want := []string{"work", "a b", "x"}

	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("NormalizeTags() = %v, want %v", got, want)
	}
}

func TestInitConcurrent(t *testing.T) {
	mem := blob.NewMemory()
	reg := vfs.NewRegistry(mem, nil, vfs.Config{})

	var wg sync.WaitGroup

	errs := make(chan error, 32)

	for range 32 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, err := reg.Open(context.Background(), alice); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Open() error = %v", err)
	}

	if got := mem.Containers(); len(got) != 1 {
		t.Errorf("containers = %v, want exactly one", got)
	}

	if reg.Len() != 1 {
		t.Errorf("Len() = %d", reg.Len())
	}
}

// slowContainers 让 EnsureContainer 阻塞到 release 关闭或 ctx 结束.
type slowContainers struct {
	*blob.Memory
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *slowContainers) EnsureContainer(ctx context.Context, container string) error {
	s.once.Do(func() { close(s.entered) })

	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}

	return s.Memory.EnsureContainer(ctx, container)
}

func TestInitSurvivesCallerCancel(t *testing.T) {
	backend := &slowContainers{Memory: blob.NewMemory(), entered: make(chan struct{}), release: make(chan struct{})}
	reg := vfs.NewRegistry(backend, nil, vfs.Config{})

	ns, err := reg.Namespace(alice)
	if err != nil {
		t.Fatal(err)
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()

	errA := make(chan error, 1)
	go func() { errA <- ns.Init(ctxA) }()

	<-backend.entered

	errB := make(chan error, 1)
	go func() { errB <- ns.Init(context.Background()) }()

	// 等 B 加入同一次初始化
	time.Sleep(20 * time.Millisecond)
	cancelA()

	select {
	case err := <-errA:
		if !errors.Is(err, vfs.ErrUnavailable) || !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled caller error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(backend.release)

	select {
	case err := <-errB:
		if err != nil {
			t.Errorf("live caller error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("live caller did not return")
	}

	if got := backend.Containers(); len(got) != 1 {
		t.Errorf("containers = %v, want exactly one", got)
	}

	if err := ns.Init(ctxA); err != nil {
		t.Errorf("Init() after ready error = %v", err)
	}
}

func TestRegistryIdentity(t *testing.T) {
	reg := vfs.NewRegistry(blob.NewMemory(), nil, vfs.Config{})

	if _, err := reg.Namespace("  "); !errors.Is(err, vfs.ErrUnauthorized) {
		t.Errorf("Namespace(empty) error = %v, want ErrUnauthorized", err)
	}

	a, _ := reg.Namespace("Alice@Example.com")
	b, _ := reg.Namespace("alice@example.com")

	if a != b {
		t.Error("identities differing in case should share a namespace")
	}
}

func TestRegistrySweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := vfs.NewRegistry(blob.NewMemory(), nil, vfs.Config{}, vfs.WithClock(func() time.Time { return now }))

	_, _ = reg.Namespace("a@x.io")

	now = now.Add(20 * time.Minute)
	_, _ = reg.Namespace("b@x.io")

	now = now.Add(15 * time.Minute)

	if n := reg.Sweep(30 * time.Minute); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}

	if !reg.Evict("B@x.io") {
		t.Error("Evict() should report the namespace existed")
	}

	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
}

func TestUninitializedNamespace(t *testing.T) {
	reg := vfs.NewRegistry(blob.NewMemory(), nil, vfs.Config{})
	ns, _ := reg.Namespace(alice)

	if _, err := ns.Get(context.Background(), "a.txt"); !errors.Is(err, vfs.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

// alice 上传 docs/report.pdf 后的完整生命周期.
func TestLifecycleScenario(t *testing.T) {
	ns, _, engine := newNamespace(t)
	ctx := context.Background()

	upload(t, ns, "docs", "report.pdf", "0123456789")

	root, err := ns.ListLevel(ctx, "")
	if err != nil {
		t.Fatal(err)
	}

	if len(root) != 1 || root[0].Type != vfs.TypeFolder || root[0].Name != "docs" {
		t.Fatalf("ListLevel(\"\") = %v, want [folder:docs]", names(root))
	}

	docs, err := ns.ListLevel(ctx, "docs/")
	if err != nil {
		t.Fatal(err)
	}

	if len(docs) != 1 || docs[0].Name != "report.pdf" || docs[0].Size != 10 || docs[0].Path != "docs" {
		t.Fatalf("ListLevel(docs/) = %+v", docs)
	}

	u, err := url.Parse(docs[0].DownloadURL)
	if err != nil {
		t.Fatal(err)
	}

	if err := engine.VerifyReadCapability(ns.Container(), docs[0].ID, u.Query(), time.Now()); err != nil {
		t.Errorf("listing capability does not verify: %v", err)
	}

	usage, err := ns.Quota(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if usage.Used != 10 || usage.Files != 1 || usage.Limit != 1<<20 {
		t.Errorf("Quota() = %+v", usage)
	}

	if _, err := ns.SoftDelete(ctx, "docs/report.pdf"); err != nil {
		t.Fatal(err)
	}

	docs, _ = ns.ListLevel(ctx, "docs/")
	if len(docs) != 0 {
		t.Errorf("deleted file still listed: %v", names(docs))
	}

	if usage, _ = ns.Quota(ctx); usage.Used != 0 {
		t.Errorf("Quota() after delete = %+v", usage)
	}

	bin, err := ns.RecycleBin(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if len(bin) != 1 || bin[0].Name != "report.pdf" || bin[0].DeletedDate == nil || bin[0].OriginalPath != "docs/report.pdf" {
		t.Fatalf("RecycleBin() = %+v", bin)
	}

	if _, err := ns.Restore(ctx, bin[0].ID); err != nil {
		t.Fatal(err)
	}

	if bin, _ = ns.RecycleBin(ctx); len(bin) != 0 {
		t.Errorf("RecycleBin() after restore = %v", names(bin))
	}

	if docs, _ = ns.ListLevel(ctx, "docs"); len(docs) != 1 {
		t.Errorf("restored file not listed: %v", names(docs))
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	ns, _, _ := newNamespace(t)
	ctx := context.Background()

	meta := blob.Metadata{"project": "apollo", blob.MetaOriginalName: "a.bin"}
	if _, err := ns.Put(ctx, "a.bin", []byte{1, 2, 3}, "application/x-test", meta); err != nil {
		t.Fatal(err)
	}

	f, err := ns.Get(ctx, "a.bin")
	if err != nil {
		t.Fatal(err)
	}

	if string(f.Body) != "\x01\x02\x03" || f.ContentType != "application/x-test" {
		t.Errorf("Get() = %q %q", f.Body, f.ContentType)
	}

	for k, v := range meta {
		if f.Metadata[k] != v {
			t.Errorf("metadata[%s] = %q, want %q", k, f.Metadata[k], v)
		}
	}

	// 已带租户前缀的路径原样使用.
	if _, err := ns.Get(ctx, f.ID); err != nil {
		t.Errorf("Get(qualified id) error = %v", err)
	}
}

func TestRestoreKeepsOtherMetadata(t *testing.T) {
	ns, _, _ := newNamespace(t)
	ctx := context.Background()

	upload(t, ns, "", "notes.txt", "hi")

	if _, err := ns.SetTags(ctx, "notes.txt", []string{"work"}); err != nil {
		t.Fatal(err)
	}

	before, _ := ns.Metadata(ctx, "notes.txt")

	if _, err := ns.SoftDelete(ctx, "notes.txt"); err != nil {
		t.Fatal(err)
	}

	if _, err := ns.Restore(ctx, "notes.txt"); err != nil {
		t.Fatal(err)
	}

	after, _ := ns.Metadata(ctx, "notes.txt")

	for _, k := range []string{blob.MetaDeleted, blob.MetaDeletedDate, blob.MetaOriginalPath} {
		if _, ok := after[k]; ok {
			t.Errorf("restore left %s", k)
		}
	}

	for k, v := range before {
		if after[k] != v {
			t.Errorf("metadata[%s] = %q, want %q", k, after[k], v)
		}
	}
}

func TestSetTagsPreservesDeletion(t *testing.T) {
	ns, _, _ := newNamespace(t)
	ctx := context.Background()

	upload(t, ns, "", "a.txt", "a")

	if _, err := ns.SoftDelete(ctx, "a.txt"); err != nil {
		t.Fatal(err)
	}

	it, err := ns.SetTags(ctx, "a.txt", []string{"x", " y ", "x"})
	if err != nil {
		t.Fatal(err)
	}

	if strings.Join(it.Tags, ",") != "x,y" {
		t.Errorf("Tags = %v", it.Tags)
	}

	meta, _ := ns.Metadata(ctx, "a.txt")
	if meta[blob.MetaDeleted] != "true" || meta[blob.MetaOriginalPath] == "" || meta[blob.MetaTagsUpdated] == "" {
		t.Errorf("SetTags() clobbered metadata: %v", meta)
	}
}

func TestRename(t *testing.T) {
	ns, _, _ := newNamespace(t)
	ctx := context.Background()

	upload(t, ns, "docs", "a.txt", "content")

	it, err := ns.Rename(ctx, "docs/a.txt", "b.txt")
	if err != nil {
		t.Fatal(err)
	}

	if it.Name != "b.txt" || it.Path != "docs" {
		t.Errorf("Rename() = %+v", it)
	}

	f, err := ns.Get(ctx, "docs/b.txt")
	if err != nil {
		t.Fatal(err)
	}

	if string(f.Body) != "content" || f.Metadata[blob.MetaOriginalName] != "b.txt" || f.Metadata[blob.MetaRenamedDate] == "" {
		t.Errorf("renamed object = %q %v", f.Body, f.Metadata)
	}

	if _, err := ns.Get(ctx, "docs/a.txt"); !errors.Is(err, vfs.ErrNotFound) {
		t.Errorf("Get(old) error = %v, want ErrNotFound", err)
	}

	if _, err := ns.Rename(ctx, "docs/b.txt", "../x"); !errors.Is(err, vfs.ErrInvalidArgument) {
		t.Errorf("Rename(bad name) error = %v", err)
	}

	if _, err := ns.Rename(ctx, "docs/b.txt", "b.txt"); err != nil {
		t.Errorf("Rename(same name) error = %v", err)
	}

	if _, err := ns.Get(ctx, "docs/b.txt"); err != nil {
		t.Errorf("same-name rename lost the object: %v", err)
	}
}

func TestCopyAndMove(t *testing.T) {
	ns, _, _ := newNamespace(t)
	ctx := context.Background()

	upload(t, ns, "", "a.txt", "payload")

	archive, err := ns.CreateFolder(ctx, "archive")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ns.Copy(ctx, "a.txt", archive.ID); err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{"a.txt", "archive/a.txt"} {
		if _, err := ns.Get(ctx, p); err != nil {
			t.Errorf("Get(%s) after copy error = %v", p, err)
		}
	}

	moved, err := ns.Move(ctx, "a.txt", ns.Folder()+"/trash-later/")
	if err != nil {
		t.Fatal(err)
	}

	if moved.Path != "trash-later" {
		t.Errorf("Move() = %+v", moved)
	}

	if _, err := ns.Get(ctx, "a.txt"); !errors.Is(err, vfs.ErrNotFound) {
		t.Errorf("source still present after move: %v", err)
	}

	if _, err := ns.Move(ctx, "archive/a.txt", "archive"); err != nil {
		t.Errorf("Move(same folder) error = %v", err)
	}

	if _, err := ns.Get(ctx, "archive/a.txt"); err != nil {
		t.Errorf("same-key move lost the object: %v", err)
	}

	root, _ := ns.ListLevel(ctx, "")
	if got := strings.Join(names(root), ","); got != "folder:archive,folder:trash-later" {
		t.Errorf("ListLevel(\"\") = %s", got)
	}
}

func TestDestFolder(t *testing.T) {
	ns, _, _ := newNamespace(t)

	cases := map[string]string{
		"":                              "",
		"root":                          "",
		"photos":                        "photos",
		ns.Folder():                     "",
		ns.Folder() + "/photos/.folder": "photos",
		ns.Folder() + "/photos/2024/":   "photos/2024",
		ns.Folder() + "/.folder":        "",
		"x.folder":                      "x.folder",
		ns.Folder() + "/a/x.folder/":    "a/x.folder",
	}

	for in, want := range cases {
		if got := ns.DestFolder(in); got != want {
			t.Errorf("DestFolder(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFolders(t *testing.T) {
	ns, _, _ := newNamespace(t)
	ctx := context.Background()

	if _, err := ns.CreateFolder(ctx, "empty"); err != nil {
		t.Fatal(err)
	}

	upload(t, ns, "work", "a.txt", "a")
	upload(t, ns, "work/sub", "b.txt", "bb")

	root, _ := ns.ListLevel(ctx, "")
	if got := strings.Join(names(root), ","); got != "folder:empty,folder:work" {
		t.Errorf("ListLevel(\"\") = %s", got)
	}

	work, _ := ns.ListLevel(ctx, "work")
	if got := strings.Join(names(work), ","); got != "folder:sub,file:a.txt" {
		t.Errorf("ListLevel(work) = %s", got)
	}

	n, err := ns.DeleteFolder(ctx, "work")
	if err != nil {
		t.Fatal(err)
	}

	if n != 2 {
		t.Errorf("DeleteFolder() = %d, want 2", n)
	}

	if usage, _ := ns.Quota(ctx); usage.Used != 0 || usage.Files != 0 {
		t.Errorf("Quota() = %+v", usage)
	}

	root, _ = ns.ListLevel(ctx, "")
	if got := strings.Join(names(root), ","); got != "folder:empty" {
		t.Errorf("ListLevel(\"\") after DeleteFolder = %s", got)
	}

	if _, err := ns.Restore(ctx, "work/sub/b.txt"); err != nil {
		t.Fatal(err)
	}

	root, _ = ns.ListLevel(ctx, "")
	if got := strings.Join(names(root), ","); got != "folder:empty,folder:work" {
		t.Errorf("ListLevel(\"\") after restore = %s", got)
	}

	work, _ = ns.ListLevel(ctx, "work")
	if got := strings.Join(names(work), ","); got != "folder:sub" {
		t.Errorf("ListLevel(work) after restore = %s", got)
	}

	if _, err := ns.DeleteFolder(ctx, "missing"); !errors.Is(err, vfs.ErrNotFound) {
		t.Errorf("DeleteFolder(missing) error = %v", err)
	}

	if _, err := ns.DeleteFolder(ctx, ""); !errors.Is(err, vfs.ErrInvalidArgument) {
		t.Errorf("DeleteFolder(root) error = %v", err)
	}
}

func TestSearch(t *testing.T) {
	ns, _, _ := newNamespace(t)
	ctx := context.Background()

	upload(t, ns, "", "Report-2024.pdf", "1")
	upload(t, ns, "deep/er", "old-report.txt", "2")
	upload(t, ns, "", "notes.txt", "3")
	upload(t, ns, "", "report-draft.txt", "4")

	if _, err := ns.CreateFolder(ctx, "reports"); err != nil {
		t.Fatal(err)
	}

	if _, err := ns.SoftDelete(ctx, "report-draft.txt"); err != nil {
		t.Fatal(err)
	}

	got, err := ns.Search(ctx, "REPORT")
	if err != nil {
		t.Fatal(err)
	}

	if s := strings.Join(names(got), ","); s != "file:old-report.txt,file:Report-2024.pdf,folder:reports" {
		t.Errorf("Search() = %s", s)
	}

	for _, it := range got {
		if it.Type == vfs.TypeFile && it.DownloadURL == "" {
			t.Errorf("%s has no capability", it.Name)
		}
	}
}

func TestRemove(t *testing.T) {
	ns, _, _ := newNamespace(t)
	ctx := context.Background()

	upload(t, ns, "", "a.txt", "a")

	if err := ns.Remove(ctx, "a.txt"); err != nil {
		t.Fatal(err)
	}

	if err := ns.Remove(ctx, "a.txt"); !errors.Is(err, vfs.ErrNotFound) {
		t.Errorf("second Remove() error = %v, want ErrNotFound", err)
	}
}

func TestInvalidPaths(t *testing.T) {
	ns, _, _ := newNamespace(t)
	ctx := context.Background()

	for _, p := range []string{"../etc/passwd", "a/../../b", "", "a\\b"} {
		if _, err := ns.Get(ctx, p); !errors.Is(err, vfs.ErrInvalidArgument) {
			t.Errorf("Get(%q) error = %v, want ErrInvalidArgument", p, err)
		}
	}
}

type flakyBackend struct {
	*blob.Memory
}

func (flakyBackend) Stat(context.Context, string, string) (blob.ObjectInfo, error) {
	return blob.ObjectInfo{}, errors.New("connection reset")
}

func TestBackendFailureIsUnavailable(t *testing.T) {
	reg := vfs.NewRegistry(flakyBackend{blob.NewMemory()}, nil, vfs.Config{})

	ns, err := reg.Open(context.Background(), alice)
	if err != nil {
		t.Fatal(err)
	}

	_, err = ns.SoftDelete(context.Background(), "a.txt")
	if !errors.Is(err, vfs.ErrUnavailable) {
		t.Fatalf("SoftDelete() error = %v, want ErrUnavailable", err)
	}

	var ve *vfs.Error
	if !errors.As(err, &ve) || ve.Detail() != "connection reset" {
		t.Errorf("error detail lost: %v", err)
	}
}

func TestSharedAccess(t *testing.T) {
	engine := newEngine(t)
	reg := vfs.NewRegistry(blob.NewMemory(), engine, vfs.Config{ContainerPrefix: "bd"})
	shared := reg.Shared()

	if shared.Identity() != "shared-access" {
		t.Errorf("Identity() = %q", shared.Identity())
	}

	fileID := vfs.TenantFolder(alice) + "/docs/report.pdf"

	raw, err := shared.IssueReadCapability(context.Background(), alice, fileID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	u, _ := url.Parse(raw)
	if u.Query().Get(signer.ParamIdentifier) != "shared-access" {
		t.Errorf("capability identifier = %q", u.Query().Get(signer.ParamIdentifier))
	}

	container := vfs.ContainerName("bd", alice)
	if err := engine.VerifyReadCapability(container, fileID, u.Query(), time.Now()); err != nil {
		t.Errorf("VerifyReadCapability() error = %v", err)
	}

	if _, err := shared.IssueReadCapability(context.Background(), "bob@example.com", fileID, time.Hour); !errors.Is(err, vfs.ErrForbidden) {
		t.Errorf("foreign file error = %v, want ErrForbidden", err)
	}
}
