package configs_test

import (
	"testing"

	"github.com/yeisme/blobdrive/pkg/configs"
)

func TestRedacted(t *testing.T) {
	cfg := configs.Defaults()
	cfg.Signing.AccountKey = "c2VjcmV0LWtleQ=="
	cfg.Storage.SecretAccessKey = "minio-secret"
	cfg.DB.Password = "pg-secret"
	cfg.MQ.NKey = "nkey-seed"

	out := cfg.Redacted()

	for name, got := range map[string]string{
		"signing.account_key":       out.Signing.AccountKey,
		"storage.secret_access_key": out.Storage.SecretAccessKey,
		"db.password":               out.DB.Password,
		"mq.nkey":                   out.MQ.NKey,
	} {
		if got != "******" {
			t.Errorf("%s = %q, want redacted", name, got)
		}
	}

	if out.KV.Redis.Password != "" {
		t.Errorf("empty secret became %q", out.KV.Redis.Password)
	}

	if cfg.Signing.AccountKey != "c2VjcmV0LWtleQ==" || cfg.DB.Password != "pg-secret" {
		t.Error("Redacted() modified the receiver")
	}

	if out.Storage.Driver != cfg.Storage.Driver || out.Server.Port != cfg.Server.Port {
		t.Error("non-secret fields changed")
	}
}
