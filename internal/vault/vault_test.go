package vault

import (
	"path/filepath"
	"testing"
)

func TestVaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.vault")

	v, err := Create(path, "correct horse")
	if err != nil {
		t.Fatalf("creating vault: %v", err)
	}
	if err := v.Set("xdr.access_key", "ak-secret"); err != nil {
		t.Fatalf("storing entry: %v", err)
	}

	got, err := v.Get("xdr.access_key")
	if err != nil {
		t.Fatalf("reading entry: %v", err)
	}
	if got != "ak-secret" {
		t.Errorf("got %q, want ak-secret", got)
	}
}

func TestVaultPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.vault")

	v, err := Create(path, "pass")
	if err != nil {
		t.Fatalf("creating vault: %v", err)
	}
	v.Set("splunk.token", "hec-token")
	v.Set("xdr.client_key", "ck01")

	reopened, err := Open(path, "pass")
	if err != nil {
		t.Fatalf("reopening vault: %v", err)
	}
	got, err := reopened.Get("splunk.token")
	if err != nil {
		t.Fatalf("reading entry after reopen: %v", err)
	}
	if got != "hec-token" {
		t.Errorf("got %q, want hec-token", got)
	}

	keys := reopened.Keys()
	if len(keys) != 2 || keys[0] != "splunk.token" || keys[1] != "xdr.client_key" {
		t.Errorf("keys = %v", keys)
	}
}

func TestVaultWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.vault")

	v, err := Create(path, "right")
	if err != nil {
		t.Fatalf("creating vault: %v", err)
	}
	v.Set("xdr.access_key", "secret")

	if _, err := Open(path, "wrong"); err == nil {
		t.Fatal("wrong passphrase must fail to open a non-empty vault")
	}
}

func TestVaultMissingKey(t *testing.T) {
	v, err := Create(filepath.Join(t.TempDir(), "test.vault"), "pass")
	if err != nil {
		t.Fatalf("creating vault: %v", err)
	}
	if _, err := v.Get("absent"); err == nil {
		t.Fatal("missing key must error")
	}
	if v.Has("absent") {
		t.Error("Has must be false for missing key")
	}
}
