package signer_test

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/internal/signer"
)

var testKey = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

func newEngine(t *testing.T, key string, opts ...signer.Option) *signer.Engine {
	t.Helper()

	e, err := signer.New(configs.SigningConfig{
		Account:        "acct",
		AccountKey:     key,
		Mode:           configs.CapabilityGateway,
		CapabilityTTL:  15 * time.Minute,
		PublicBaseURL:  "http://drive.local/",
		SignIdentifier: "blobdrive",
	}, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return e
}

func TestSignDeterministic(t *testing.T) {
	e := newEngine(t, testKey)

	a, err := e.Sign("GET\n/acct/c/k")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	b, _ := e.Sign("GET\n/acct/c/k")
	if a != b {
		t.Errorf("signature not deterministic: %q != %q", a, b)
	}

	c, _ := e.Sign("GET\n/acct/c/k2")
	if a == c {
		t.Error("different input produced same signature")
	}
}

func TestSignMissingCredentials(t *testing.T) {
	e := newEngine(t, "")

	if _, err := e.Sign("x"); !errors.Is(err, signer.ErrMissingCredentials) {
		t.Fatalf("Sign() error = %v, want ErrMissingCredentials", err)
	}

	if _, err := e.SignRequest(signer.Request{Method: "GET"}); !errors.Is(err, signer.ErrMissingCredentials) {
		t.Fatalf("SignRequest() error = %v, want ErrMissingCredentials", err)
	}
}

func TestNewRejectsBadKey(t *testing.T) {
	_, err := signer.New(configs.SigningConfig{Account: "acct", AccountKey: "***"})
	if err == nil {
		t.Fatal("expected error for non-base64 key")
	}
}

func TestStringToSign(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "text/plain")
	h.Set("X-Ms-Date", " Mon, 01 Jan 2024 00:00:00 GMT ")
	h.Set("x-amz-meta-a", "1")
	h.Set("X-Other", "ignored")

	got := signer.StringToSign("acct", signer.Request{
		Method:    "put",
		Container: "bucket",
		Key:       "/a/b.txt",
		Header:    h,
		Query:     url.Values{"Comp": {"list"}, "b": {"2", "1"}},
	})

	want := "PUT\n" +
		"\n\n\n\n" + // encoding, language, length(0), md5
		"text/plain\n" +
		"\n\n\n\n\n\n" + // date ... range
		"x-amz-meta-a:1\n" +
		"x-ms-date:Mon, 01 Jan 2024 00:00:00 GMT\n" +
		"/acct/bucket/a/b.txt\nb:1,2\ncomp:list"

	if got != want {
		t.Errorf("StringToSign() =\n%q\nwant\n%q", got, want)
	}
}

func TestStringToSignContentLength(t *testing.T) {
	r := signer.Request{Method: "PUT", Container: "c", Key: "k", ContentLength: 12}

	lines := strings.Split(signer.StringToSign("acct", r), "\n")
	if lines[3] != "12" {
		t.Errorf("content-length slot = %q, want 12", lines[3])
	}
}

func TestSignRequest(t *testing.T) {
	e := newEngine(t, testKey)

	auth, err := e.SignRequest(signer.Request{Method: "GET", Container: "c", Key: "k"})
	if err != nil {
		t.Fatalf("SignRequest() error = %v", err)
	}

	if !strings.HasPrefix(auth, "SharedKey acct:") {
		t.Errorf("authorization = %q", auth)
	}

	other, _ := e.SignRequest(signer.Request{Method: "GET", Container: "c", Key: "k", Header: http.Header{"Range": {"bytes=0-1"}}})
	if other == auth {
		t.Error("header change did not change signature")
	}
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := newEngine(t, testKey, signer.WithClock(func() time.Time { return now }))

	raw := e.IssueReadCapability(context.Background(), "bd-alice", "alice_x_com/docs/a b.txt", time.Hour)

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}

	if u.Path != "/blob/bd-alice/alice_x_com/docs/a b.txt" {
		t.Errorf("path = %q", u.Path)
	}

	q := u.Query()
	if q.Get("sp") != "r" || q.Get("sr") != "b" || q.Get("si") != "blobdrive" {
		t.Errorf("unexpected query %v", q)
	}

	if q.Get("se") != "2024-05-01T13:00:00Z" {
		t.Errorf("se = %q", q.Get("se"))
	}

	if err := e.VerifyReadCapability("bd-alice", "alice_x_com/docs/a b.txt", q, now.Add(time.Minute)); err != nil {
		t.Fatalf("VerifyReadCapability() error = %v", err)
	}

	if err := e.VerifyReadCapability("bd-alice", "alice_x_com/docs/other.txt", q, now); !errors.Is(err, signer.ErrCapabilityInvalid) {
		t.Errorf("other key: error = %v, want ErrCapabilityInvalid", err)
	}

	if err := e.VerifyReadCapability("bd-alice", "alice_x_com/docs/a b.txt", q, now.Add(2*time.Hour)); !errors.Is(err, signer.ErrCapabilityExpired) {
		t.Errorf("expired: error = %v, want ErrCapabilityExpired", err)
	}

	tampered := url.Values{}
	for k, v := range q {
		tampered[k] = v
	}

	tampered.Set("se", "2030-01-01T00:00:00Z")

	if err := e.VerifyReadCapability("bd-alice", "alice_x_com/docs/a b.txt", tampered, now); !errors.Is(err, signer.ErrCapabilityInvalid) {
		t.Errorf("tampered: error = %v, want ErrCapabilityInvalid", err)
	}

	if err := e.VerifyReadCapability("bd-alice", "k", url.Values{}, now); !errors.Is(err, signer.ErrCapabilityMissing) {
		t.Errorf("missing: error = %v, want ErrCapabilityMissing", err)
	}
}

func TestIssueFallsBackWithoutKey(t *testing.T) {
	var reasons []string

	e := newEngine(t, "", signer.WithFallbackHook(func(r string) { reasons = append(reasons, r) }))

	got := e.IssueReadCapability(context.Background(), "c", "k.txt", 0)
	if got != "http://drive.local/blob/c/k.txt" {
		t.Errorf("IssueReadCapability() = %q, want unsigned url", got)
	}

	if len(reasons) != 1 || reasons[0] != "sign" {
		t.Errorf("fallback reasons = %v", reasons)
	}
}

type fakePresigner struct {
	err error
	ttl time.Duration
}

func (f *fakePresigner) ObjectURL(container, key string) string {
	return "http://s3.local/" + container + "/" + key
}

func (f *fakePresigner) PresignGet(_ context.Context, container, key string, ttl time.Duration) (string, error) {
	f.ttl = ttl
	if f.err != nil {
		return "", f.err
	}

	return "http://s3.local/" + container + "/" + key + "?X-Amz-Signature=abc", nil
}

func TestIssueStorageMode(t *testing.T) {
	p := &fakePresigner{}

	e, err := signer.New(configs.SigningConfig{
		Account: "acct",
		Mode:    configs.CapabilityStorage,
	}, signer.WithPresigner(p))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got := e.IssueReadCapability(context.Background(), "c", "k", 0)
	if !strings.Contains(got, "X-Amz-Signature") {
		t.Errorf("storage mode url = %q", got)
	}

	if p.ttl != signer.DefaultCapabilityTTL {
		t.Errorf("presign ttl = %v, want default", p.ttl)
	}

	p.err = errors.New("boom")
	if got := e.IssueReadCapability(context.Background(), "c", "k", time.Minute); got != "http://s3.local/c/k" {
		t.Errorf("fallback url = %q", got)
	}
}
