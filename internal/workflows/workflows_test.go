package workflows

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/SoftDryzz/vaultic/internal/audit"
	"github.com/SoftDryzz/vaultic/internal/configs"
	"github.com/SoftDryzz/vaultic/internal/dotenv"
	verrors "github.com/SoftDryzz/vaultic/internal/errors"
	"github.com/SoftDryzz/vaultic/internal/secrets"
)

// setupProject initializes a native project in a temp directory with a
// fresh identity for the current user.
func setupProject(t *testing.T) (string, *InitResult) {
	t.Helper()

	userDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", userDir)
	t.Setenv(configs.IdentityEnvVar, filepath.Join(userDir, "vaultic", "identity.txt"))

	dir := t.TempDir()
	result, err := Init(context.Background(), InitOptions{
		Common:      Common{WorkDir: dir},
		GenerateKey: true,
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return dir, result
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func encryptLayer(t *testing.T, dir, env, content string) {
	t.Helper()
	writeFile(t, dir, env+".plain", content)
	if _, err := Encrypt(context.Background(), EncryptOptions{
		Common: Common{WorkDir: dir},
		File:   env + ".plain",
		Env:    env,
	}); err != nil {
		t.Fatalf("Encrypt %s failed: %v", env, err)
	}
}

func resolveToMap(t *testing.T, dir, env string, key []byte) map[string]string {
	t.Helper()
	var out bytes.Buffer
	if _, err := Resolve(context.Background(), ResolveOptions{
		Common:  Common{WorkDir: dir},
		Env:     env,
		Output:  StdoutOutput,
		KeyData: key,
		Stdout:  &out,
	}); err != nil {
		t.Fatalf("Resolve %s failed: %v", env, err)
	}
	parsed, err := dotenv.Parse(out.Bytes())
	if err != nil {
		t.Fatalf("Resolved output does not parse: %v", err)
	}
	return parsed.Map()
}

func TestInit(t *testing.T) {
	dir, result := setupProject(t)

	if !result.KeyGenerated || !strings.HasPrefix(result.PublicKey, secrets.PublicKeyPrefix) {
		t.Errorf("Expected a generated native key, got %+v", result)
	}
	if result.Cipher != "native" {
		t.Errorf("Expected native cipher, got %s", result.Cipher)
	}

	recipients, err := secrets.NewFileKeyStore(filepath.Join(dir, ".vaultic", "recipients.txt")).List()
	if err != nil || len(recipients) != 1 || recipients[0].PublicKey != result.PublicKey {
		t.Errorf("Expected own key as the only recipient, got %v %v", recipients, err)
	}

	gitignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil || !strings.Contains(string(gitignore), ".env\n") {
		t.Errorf("Expected .env in .gitignore, got %q", gitignore)
	}

	config, err := configs.LoadProjectConfig(filepath.Join(dir, ".vaultic", "config.toml"))
	if err != nil {
		t.Fatalf("Config should load: %v", err)
	}
	if !reflect.DeepEqual(config.EnvironmentNames(), []string{"base", "dev"}) {
		t.Errorf("Unexpected environments %v", config.EnvironmentNames())
	}

	_, err = Init(context.Background(), InitOptions{Common: Common{WorkDir: dir}})
	if !errors.Is(err, verrors.ErrProjectAlreadyInitialized) {
		t.Errorf("Expected ErrProjectAlreadyInitialized, got %v", err)
	}
}

func TestInitUnknownCipher(t *testing.T) {
	dir := t.TempDir()
	_, err := Init(context.Background(), InitOptions{Common: Common{WorkDir: dir}, Cipher: "rot13"})
	if !errors.Is(err, verrors.ErrUnknownScheme) {
		t.Fatalf("Expected ErrUnknownScheme, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".vaultic")); !os.IsNotExist(err) {
		t.Error("Nothing should be created for an unknown cipher")
	}
}

func TestWorkflowsRequireProject(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()

	_, err := Encrypt(context.Background(), EncryptOptions{Common: Common{WorkDir: dir}})
	if !errors.Is(err, verrors.ErrProjectNotInitialized) {
		t.Errorf("Expected ErrProjectNotInitialized, got %v", err)
	}
	_, err = Status(context.Background(), StatusOptions{Common: Common{WorkDir: dir}})
	if !errors.Is(err, verrors.ErrProjectNotInitialized) {
		t.Errorf("Expected ErrProjectNotInitialized, got %v", err)
	}
}

func TestEncryptResolveAndDecrypt(t *testing.T) {
	dir, _ := setupProject(t)

	encryptLayer(t, dir, "base", "X=1\nSHARED=base\n")
	encryptLayer(t, dir, "dev", "Y=2\nSHARED=dev\n")

	got := resolveToMap(t, dir, "dev", nil)
	want := map[string]string{"X": "1", "Y": "2", "SHARED": "dev"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	result, err := Resolve(context.Background(), ResolveOptions{Common: Common{WorkDir: dir}})
	if err != nil {
		t.Fatalf("Resolve to .env failed: %v", err)
	}
	if result.Env != "dev" || result.OutputFile != filepath.Join(dir, ".env") || result.Variables != 3 {
		t.Errorf("Unexpected result %+v", result)
	}
	if !reflect.DeepEqual(result.Layers, []string{"base", "dev"}) {
		t.Errorf("Unexpected layers %v", result.Layers)
	}
	if runtime.GOOS != "windows" {
		info, err := os.Stat(result.OutputFile)
		if err != nil || info.Mode().Perm() != 0600 {
			t.Errorf("Expected 0600 output, got %v %v", info, err)
		}
	}

	decrypted, err := Decrypt(context.Background(), DecryptOptions{
		Common: Common{WorkDir: dir},
		Env:    "base",
		Output: "base.out",
	})
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	data, _ := os.ReadFile(decrypted.OutputFile)
	if string(data) != "X=1\nSHARED=base\n" {
		t.Errorf("Unexpected plaintext %q", data)
	}
}

func TestResolveJSON(t *testing.T) {
	dir, _ := setupProject(t)
	encryptLayer(t, dir, "base", "B=2\nA=1\n")

	var out bytes.Buffer
	_, err := Resolve(context.Background(), ResolveOptions{
		Common: Common{WorkDir: dir},
		Env:    "base",
		Output: StdoutOutput,
		Format: "json",
		Stdout: &out,
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !strings.Contains(out.String(), `"B"`) || strings.Index(out.String(), `"B"`) > strings.Index(out.String(), `"A"`) {
		t.Errorf("Expected insertion order in JSON, got %s", out.String())
	}
}

func TestResolveKeepsDollarValues(t *testing.T) {
	dir, _ := setupProject(t)
	t.Setenv("B", "expanded")
	t.Setenv("Y", "expanded")
	encryptLayer(t, dir, "base", "P=a$B\nURL=http://${HOST}/x\n")
	encryptLayer(t, dir, "dev", "Q=\"x${Y}z\"\nR=pa$word\n")

	var out bytes.Buffer
	if _, err := Resolve(context.Background(), ResolveOptions{
		Common: Common{WorkDir: dir},
		Env:    "dev",
		Output: StdoutOutput,
		Stdout: &out,
	}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !strings.Contains(out.String(), "R='pa$word'\n") {
		t.Errorf("Expected R to be single-quoted, got:\n%s", out.String())
	}

	parsed, err := dotenv.Parse(out.Bytes())
	if err != nil {
		t.Fatalf("Resolved output does not parse: %v", err)
	}
	want := map[string]string{
		"P":   "a$B",
		"URL": "http://${HOST}/x",
		"Q":   "x${Y}z",
		"R":   "pa$word",
	}
	if got := parsed.Map(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestResolveSkipsMissingLayers(t *testing.T) {
	dir, _ := setupProject(t)
	encryptLayer(t, dir, "dev", "Y=2\n")

	var out bytes.Buffer
	result, err := Resolve(context.Background(), ResolveOptions{
		Common: Common{WorkDir: dir},
		Output: StdoutOutput,
		Stdout: &out,
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !reflect.DeepEqual(result.Skipped, []string{"base"}) {
		t.Errorf("Expected base skipped, got %v", result.Skipped)
	}
}

func TestResolveRejectsCycle(t *testing.T) {
	dir, _ := setupProject(t)

	configPath := filepath.Join(dir, ".vaultic", "config.toml")
	config, err := configs.LoadProjectConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	config.Environments["base"] = configs.Environment{File: "base.env", Inherits: "dev"}
	// Bypass validation to simulate a hand-edited file.
	if err := configs.SaveTOML(configPath, config); err != nil {
		t.Fatal(err)
	}

	_, err = Resolve(context.Background(), ResolveOptions{Common: Common{WorkDir: dir}, Output: StdoutOutput, Stdout: &bytes.Buffer{}})
	if !errors.Is(err, verrors.ErrCircularInheritance) {
		t.Fatalf("Expected ErrCircularInheritance, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".env")); !os.IsNotExist(err) {
		t.Error("No output should be written for a cycle")
	}
}

func TestResolveUnknownEnvironment(t *testing.T) {
	dir, _ := setupProject(t)

	_, err := Resolve(context.Background(), ResolveOptions{Common: Common{WorkDir: dir}, Env: "qa"})
	var nf *verrors.EnvironmentNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Expected EnvironmentNotFoundError, got %v", err)
	}
	if !reflect.DeepEqual(nf.Available, []string{"base", "dev"}) {
		t.Errorf("Unexpected available environments %v", nf.Available)
	}
}

func TestKeysRotation(t *testing.T) {
	dir, _ := setupProject(t)
	encryptLayer(t, dir, "dev", "KEY=1\n")

	bob, err := secrets.GenerateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	common := Common{WorkDir: dir}

	added, err := KeysAdd(context.Background(), KeysAddOptions{Common: common, PublicKey: bob.PublicKey(), Label: "bob"})
	if err != nil || added.AlreadyPresent || added.Recipients != 2 {
		t.Fatalf("KeysAdd failed: %+v %v", added, err)
	}

	// Bob cannot read existing ciphertext until it is rewritten.
	if _, err := Decrypt(context.Background(), DecryptOptions{Common: common, Output: "bob.env", KeyData: bob.Marshal()}); !errors.Is(err, verrors.ErrKeyNotAuthorized) {
		t.Fatalf("Expected ErrKeyNotAuthorized before re-encryption, got %v", err)
	}

	all, err := Encrypt(context.Background(), EncryptOptions{Common: common, All: true})
	if err != nil {
		t.Fatalf("Encrypt --all failed: %v", err)
	}
	if !reflect.DeepEqual(all.Environments, []string{"dev"}) || !reflect.DeepEqual(all.Skipped, []string{"base"}) {
		t.Errorf("Unexpected re-encryption result %+v", all)
	}

	if got := resolveToMap(t, dir, "dev", bob.Marshal()); got["KEY"] != "1" {
		t.Errorf("Bob should read KEY=1, got %v", got)
	}

	if _, err := KeysRemove(context.Background(), KeysRemoveOptions{Common: common, PublicKey: bob.PublicKey()}); err != nil {
		t.Fatalf("KeysRemove failed: %v", err)
	}
	if _, err := Encrypt(context.Background(), EncryptOptions{Common: common, All: true}); err != nil {
		t.Fatalf("Encrypt --all failed: %v", err)
	}

	_, err = Resolve(context.Background(), ResolveOptions{Common: common, Output: StdoutOutput, Stdout: &bytes.Buffer{}, KeyData: bob.Marshal()})
	if !errors.Is(err, verrors.ErrKeyNotAuthorized) {
		t.Errorf("Removed key should fail, got %v", err)
	}
	if got := resolveToMap(t, dir, "dev", nil); got["KEY"] != "1" {
		t.Errorf("Owner should still read KEY=1, got %v", got)
	}
}

func TestKeysAddValidation(t *testing.T) {
	dir, result := setupProject(t)
	common := Common{WorkDir: dir}

	_, err := KeysAdd(context.Background(), KeysAddOptions{Common: common, PublicKey: "alice@example.com"})
	if !errors.Is(err, verrors.ErrInvalidRecipient) {
		t.Errorf("Expected gpg key to be rejected in a native project, got %v", err)
	}

	_, err = KeysAdd(context.Background(), KeysAddOptions{Common: common, PublicKey: "vaultic1notakey"})
	if !errors.Is(err, verrors.ErrInvalidRecipient) {
		t.Errorf("Expected malformed key to be rejected, got %v", err)
	}

	again, err := KeysAdd(context.Background(), KeysAddOptions{Common: common, PublicKey: result.PublicKey})
	if err != nil || !again.AlreadyPresent || again.Recipients != 1 {
		t.Errorf("Expected idempotent add, got %+v %v", again, err)
	}

	_, err = KeysRemove(context.Background(), KeysRemoveOptions{Common: common, PublicKey: "vaultic1missing"})
	if !errors.Is(err, verrors.ErrRecipientNotFound) {
		t.Errorf("Expected ErrRecipientNotFound, got %v", err)
	}

	list, err := KeysList(context.Background(), KeysListOptions{Common: common})
	if err != nil || len(list.Recipients) != 1 || list.Self != result.PublicKey {
		t.Errorf("Unexpected list %+v %v", list, err)
	}
}

func TestKeysSetup(t *testing.T) {
	dir, result := setupProject(t)

	setup, err := KeysSetup(context.Background(), KeysSetupOptions{Common: Common{WorkDir: dir}})
	if err != nil {
		t.Fatalf("KeysSetup failed: %v", err)
	}
	if setup.Generated || setup.PublicKey != result.PublicKey {
		t.Errorf("Expected the existing key, got %+v", setup)
	}

	t.Setenv(configs.IdentityEnvVar, filepath.Join(t.TempDir(), "none.txt"))
	empty, err := KeysSetup(context.Background(), KeysSetupOptions{Common: Common{WorkDir: dir}})
	if err != nil || empty.PublicKey != "" {
		t.Errorf("Expected no key without Generate, got %+v %v", empty, err)
	}

	generated, err := KeysSetup(context.Background(), KeysSetupOptions{Common: Common{WorkDir: dir}, Generate: true})
	if err != nil || !generated.Generated || !generated.Registered {
		t.Fatalf("Expected generated and registered key, got %+v %v", generated, err)
	}
}

func TestDiffAndCheck(t *testing.T) {
	dir, _ := setupProject(t)
	common := Common{WorkDir: dir}

	encryptLayer(t, dir, "base", "DB=localhost\nDEBUG=true\n")
	encryptLayer(t, dir, "dev", "DB=dev-db\nREDIS=redis\n")

	diff, err := Diff(context.Background(), DiffOptions{Common: common, LeftEnv: "base", RightEnv: "dev"})
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if !reflect.DeepEqual(diff.Keys("modified"), []string{"DB"}) || !reflect.DeepEqual(diff.Keys("added"), []string{"REDIS"}) {
		t.Errorf("Unexpected diff %+v", diff.Entries)
	}

	writeFile(t, dir, "a.env", "KEY=value\n")
	writeFile(t, dir, "b.env", "KEY=value\n")
	same, err := Diff(context.Background(), DiffOptions{Common: common, LeftFile: "a.env", RightFile: "b.env"})
	if err != nil || !same.Empty() {
		t.Errorf("Expected no differences, got %+v %v", same, err)
	}

	writeFile(t, dir, ".env.template", "DB=\nAPI_KEY=\n")
	writeFile(t, dir, ".env", "DB=localhost\nOLD=1\n")
	check, err := Check(context.Background(), CheckOptions{Common: common})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !reflect.DeepEqual(check.Missing, []string{"API_KEY"}) || !reflect.DeepEqual(check.Extra, []string{"OLD"}) {
		t.Errorf("Unexpected check result %+v", check.CheckResult)
	}
	if check.TemplatePath != filepath.Join(dir, ".env.template") {
		t.Errorf("Unexpected template %s", check.TemplatePath)
	}
}

func TestCheckWithoutProject(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	writeFile(t, dir, ".env", "A=1\n")

	_, err := Check(context.Background(), CheckOptions{Common: Common{WorkDir: dir}})
	if !errors.Is(err, verrors.ErrTemplateNotFound) {
		t.Errorf("Expected ErrTemplateNotFound, got %v", err)
	}

	writeFile(t, dir, ".env.example", "A=\n")
	result, err := Check(context.Background(), CheckOptions{Common: Common{WorkDir: dir}})
	if err != nil || !result.OK() {
		t.Errorf("Expected a clean check, got %+v %v", result, err)
	}
}

func TestStatusAndLog(t *testing.T) {
	dir, result := setupProject(t)
	common := Common{WorkDir: dir}
	encryptLayer(t, dir, "base", "A=1\n")
	writeFile(t, filepath.Join(dir, ".vaultic"), "legacy.env.enc", "stale")

	status, err := Status(context.Background(), StatusOptions{Common: common})
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.SelfAuthorized || status.Self != result.PublicKey || len(status.Recipients) != 1 {
		t.Errorf("Unexpected recipient status %+v", status)
	}
	if len(status.Environments) != 2 {
		t.Fatalf("Expected 2 environments, got %+v", status.Environments)
	}
	base, dev := status.Environments[0], status.Environments[1]
	if !base.Encrypted || base.Recipients != 1 || base.Integrity != IntegrityVerified {
		t.Errorf("Unexpected base status %+v", base)
	}
	if dev.Encrypted || dev.Inherits != "base" {
		t.Errorf("Unexpected dev status %+v", dev)
	}
	if !reflect.DeepEqual(status.Orphans, []string{"legacy.env.enc"}) {
		t.Errorf("Expected legacy.env.enc orphaned, got %v", status.Orphans)
	}

	// Tampering outside vaultic is detected.
	writeFile(t, filepath.Join(dir, ".vaultic"), "base.env.enc", "tampered")
	status, err = Status(context.Background(), StatusOptions{Common: common})
	if err != nil {
		t.Fatal(err)
	}
	if status.Environments[0].Integrity != IntegrityModified {
		t.Errorf("Expected modified integrity, got %s", status.Environments[0].Integrity)
	}

	log, err := Log(context.Background(), LogOptions{Common: common})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	var actions []audit.Action
	for _, e := range log.Entries {
		actions = append(actions, e.Action)
	}
	if !reflect.DeepEqual(actions, []audit.Action{audit.ActionInit, audit.ActionEncrypt}) {
		t.Errorf("Unexpected audit actions %v", actions)
	}

	filtered, err := Log(context.Background(), LogOptions{Common: common, Actions: "encrypt", Reverse: true, Limit: 5})
	if err != nil || len(filtered.Entries) != 1 || filtered.Total != 2 {
		t.Errorf("Unexpected filtered log %+v %v", filtered, err)
	}

	if _, err := Log(context.Background(), LogOptions{Common: common, Since: "yesterday"}); err == nil {
		t.Error("Expected an invalid --since to fail")
	}
}
