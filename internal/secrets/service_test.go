package secrets

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"github.com/SoftDryzz/vaultic/internal/audit"
	verrors "github.com/SoftDryzz/vaultic/internal/errors"
)

type recordedEntries struct {
	entries []audit.Entry
}

func (r *recordedEntries) Record(e audit.Entry) {
	r.entries = append(r.entries, e)
}

func (r *recordedEntries) actions() []audit.Action {
	var out []audit.Action
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

func newTestService(t *testing.T, recipients ...Recipient) (*Service, *MemoryKeyStore, *recordedEntries, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".vaultic")
	store := NewMemoryKeyStore(recipients...)
	rec := &recordedEntries{}
	return NewService(NewNativeCipher(), store, dir, WithRecorder(rec)), store, rec, dir
}

func TestServiceEncryptAndDecryptFile(t *testing.T) {
	alice := mustIdentity(t)
	svc, _, rec, dir := newTestService(t, alice.Recipient("alice"))

	plainPath := filepath.Join(t.TempDir(), "dev.env")
	plaintext := []byte("DB_HOST=localhost\nDB_PASS=secret\n")
	if err := os.WriteFile(plainPath, plaintext, 0600); err != nil {
		t.Fatal(err)
	}

	encPath, err := svc.EncryptFile(plainPath, "dev")
	if err != nil {
		t.Fatalf("EncryptFile failed: %v", err)
	}
	if encPath != filepath.Join(dir, "dev.env.enc") {
		t.Errorf("Unexpected ciphertext path %s", encPath)
	}

	outPath := filepath.Join(t.TempDir(), "out", ".env")
	if err := svc.DecryptFile(encPath, keyOf(alice), outPath); err != nil {
		t.Fatalf("DecryptFile failed: %v", err)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Expected %q, got %q", plaintext, got)
	}

	if runtime.GOOS != "windows" {
		info, _ := os.Stat(outPath)
		if info.Mode().Perm() != 0600 {
			t.Errorf("Expected 0600 plaintext, got %o", info.Mode().Perm())
		}
	}

	if !reflect.DeepEqual(rec.actions(), []audit.Action{audit.ActionEncrypt, audit.ActionDecrypt}) {
		t.Errorf("Unexpected audit actions %v", rec.actions())
	}
	if rec.entries[0].StateHash == "" || rec.entries[0].Files[0] != "dev.env.enc" {
		t.Errorf("Expected encrypt entry with file and state hash, got %+v", rec.entries[0])
	}
}

func TestServiceEncryptWithoutRecipients(t *testing.T) {
	svc, _, rec, dir := newTestService(t)

	_, err := svc.EncryptBytes([]byte("A=1"), "dev")
	if !errors.Is(err, verrors.ErrEmptyRecipientList) {
		t.Fatalf("Expected ErrEmptyRecipientList, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "dev.env.enc")); !os.IsNotExist(err) {
		t.Error("No ciphertext should be written")
	}
	if len(rec.entries) != 0 {
		t.Errorf("Nothing should be audited, got %v", rec.actions())
	}
}

func TestServiceEncryptFileMissing(t *testing.T) {
	svc, _, _, _ := newTestService(t, mustIdentity(t).Recipient(""))

	_, err := svc.EncryptFile(filepath.Join(t.TempDir(), "missing.env"), "dev")
	if !errors.Is(err, verrors.ErrFileNotFound) {
		t.Fatalf("Expected ErrFileNotFound, got %v", err)
	}
}

func TestServiceDecryptToBytes(t *testing.T) {
	alice, eve := mustIdentity(t), mustIdentity(t)
	svc, _, _, dir := newTestService(t, alice.Recipient(""))

	if _, err := svc.EncryptBytes([]byte("A=1\n"), "base"); err != nil {
		t.Fatal(err)
	}

	got, err := svc.DecryptToBytes(svc.CiphertextPath("base"), keyOf(alice))
	if err != nil || string(got) != "A=1\n" {
		t.Fatalf("Expected A=1, got %q %v", got, err)
	}

	_, err = svc.DecryptToBytes(svc.CiphertextPath("base"), keyOf(eve))
	if !errors.Is(err, verrors.ErrKeyNotAuthorized) {
		t.Errorf("Expected ErrKeyNotAuthorized, got %v", err)
	}
	var opErr *verrors.OpError
	if !errors.As(err, &opErr) || opErr.Path != svc.CiphertextPath("base") {
		t.Errorf("Expected OpError with path, got %v", err)
	}

	_, err = svc.DecryptToBytes(filepath.Join(dir, "nope.env.enc"), keyOf(alice))
	if !errors.Is(err, verrors.ErrFileNotFound) {
		t.Errorf("Expected ErrFileNotFound, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("DecryptToBytes must not write files, found %d entries", len(entries))
	}
}

func TestServiceRevokedRecipientAfterReencrypt(t *testing.T) {
	a, b := mustIdentity(t), mustIdentity(t)
	svc, store, rec, _ := newTestService(t, a.Recipient("A"), b.Recipient("B"))

	path, err := svc.EncryptBytes([]byte("KEY=1"), "dev")
	if err != nil {
		t.Fatalf("EncryptBytes failed: %v", err)
	}
	if _, err := svc.DecryptToBytes(path, keyOf(b)); err != nil {
		t.Fatalf("B should decrypt before removal: %v", err)
	}

	if err := store.Remove(b.PublicKey()); err != nil {
		t.Fatal(err)
	}
	result, err := svc.ReencryptAll(context.Background(), []string{"dev"}, keyOf(a))
	if err != nil {
		t.Fatalf("ReencryptAll failed: %v", err)
	}
	if !reflect.DeepEqual(result.Reencrypted, []string{"dev"}) || result.Recipients != 1 {
		t.Errorf("Unexpected result %+v", result)
	}

	got, err := svc.DecryptToBytes(path, keyOf(a))
	if err != nil || string(got) != "KEY=1" {
		t.Errorf("A should still decrypt KEY=1, got %q %v", got, err)
	}
	if _, err := svc.DecryptToBytes(path, keyOf(b)); !errors.Is(err, verrors.ErrKeyNotAuthorized) {
		t.Errorf("B should be locked out, got %v", err)
	}

	last := rec.entries[len(rec.entries)-1]
	if last.Action != audit.ActionReencrypt || last.StateHash == "" {
		t.Errorf("Expected reencrypt audit entry, got %+v", last)
	}
}

func TestServiceReencryptAllSkipsMissing(t *testing.T) {
	a := mustIdentity(t)
	svc, _, _, _ := newTestService(t, a.Recipient(""))

	if _, err := svc.EncryptBytes([]byte("X=1"), "base"); err != nil {
		t.Fatal(err)
	}

	result, err := svc.ReencryptAll(context.Background(), []string{"base", "dev"}, keyOf(a))
	if err != nil {
		t.Fatalf("ReencryptAll failed: %v", err)
	}
	if !reflect.DeepEqual(result.Reencrypted, []string{"base"}) {
		t.Errorf("Expected base re-encrypted, got %v", result.Reencrypted)
	}
	if !reflect.DeepEqual(result.Skipped, []string{"dev"}) {
		t.Errorf("Expected dev skipped, got %v", result.Skipped)
	}
}

func TestServiceReencryptAllStopsWhenCanceled(t *testing.T) {
	a := mustIdentity(t)
	svc, _, rec, _ := newTestService(t, a.Recipient(""))

	path, err := svc.EncryptBytes([]byte("X=1"), "base")
	if err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(path)
	recorded := len(rec.entries)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.ReencryptAll(ctx, []string{"base"}, keyOf(a))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if result == nil || len(result.Reencrypted) != 0 {
		t.Errorf("Expected nothing re-encrypted, got %+v", result)
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("base must not be rewritten after cancellation")
	}
	if len(rec.entries) != recorded {
		t.Errorf("Expected no audit entry, got %+v", rec.entries[recorded:])
	}
}

func TestServiceReencryptAllStopsAtFirstFailure(t *testing.T) {
	a, b := mustIdentity(t), mustIdentity(t)
	svc, store, _, _ := newTestService(t, a.Recipient(""))

	if _, err := svc.EncryptBytes([]byte("X=1"), "base"); err != nil {
		t.Fatal(err)
	}

	// dev is only readable by b, so a cannot rotate it.
	if err := store.Remove(a.PublicKey()); err != nil {
		t.Fatal(err)
	}
	if err := store.Add(b.Recipient("")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.EncryptBytes([]byte("Y=2"), "dev"); err != nil {
		t.Fatal(err)
	}
	if err := store.Add(a.Recipient("")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.EncryptBytes([]byte("Z=3"), "prod"); err != nil {
		t.Fatal(err)
	}
	prodBefore, _ := os.ReadFile(svc.CiphertextPath("prod"))

	result, err := svc.ReencryptAll(context.Background(), []string{"base", "dev", "prod"}, keyOf(a))
	if !errors.Is(err, verrors.ErrKeyNotAuthorized) {
		t.Fatalf("Expected ErrKeyNotAuthorized, got %v", err)
	}
	if result == nil || !reflect.DeepEqual(result.Reencrypted, []string{"base"}) {
		t.Fatalf("Expected base to stay re-encrypted, got %+v", result)
	}

	// base now includes b as well.
	if _, err := svc.DecryptToBytes(svc.CiphertextPath("base"), keyOf(b)); err != nil {
		t.Errorf("base should be readable by b after rotation: %v", err)
	}
	prodAfter, _ := os.ReadFile(svc.CiphertextPath("prod"))
	if !bytes.Equal(prodBefore, prodAfter) {
		t.Error("prod must not be touched after the failure")
	}
}

func TestServiceFileNamer(t *testing.T) {
	a := mustIdentity(t)
	dir := filepath.Join(t.TempDir(), ".vaultic")
	namer := func(env string) string {
		if env == "base" {
			return "shared.env"
		}
		return DefaultFileNamer(env)
	}
	svc := NewService(NewNativeCipher(), NewMemoryKeyStore(a.Recipient("")), dir, WithFileNamer(namer))

	path, err := svc.EncryptBytes([]byte("A=1"), "base")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "shared.env.enc" {
		t.Errorf("Expected shared.env.enc, got %s", path)
	}
}

func TestFindCiphertextsAndOrphans(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"dev.env.enc", "base.env.enc", "old.env.enc", "recipients.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	found, err := FindCiphertexts(dir)
	if err != nil {
		t.Fatalf("FindCiphertexts failed: %v", err)
	}
	if !reflect.DeepEqual(found, []string{"base.env.enc", "dev.env.enc", "old.env.enc"}) {
		t.Errorf("Unexpected ciphertexts %v", found)
	}

	orphans, err := OrphanCiphertexts(dir, []string{"base.env.enc", "dev.env.enc"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(orphans, []string{"old.env.enc"}) {
		t.Errorf("Expected old.env.enc to be orphaned, got %v", orphans)
	}

	none, err := FindCiphertexts(filepath.Join(dir, "missing"))
	if err != nil || none != nil {
		t.Errorf("Expected nothing for a missing directory, got %v %v", none, err)
	}
}
