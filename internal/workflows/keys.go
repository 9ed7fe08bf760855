package workflows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SoftDryzz/vaultic/internal/audit"
	"github.com/SoftDryzz/vaultic/internal/configs"
	verrors "github.com/SoftDryzz/vaultic/internal/errors"
	"github.com/SoftDryzz/vaultic/internal/secrets"
	"github.com/SoftDryzz/vaultic/internal/utils"
)

// KeysSetupOptions configures the keys setup workflow.
type KeysSetupOptions struct {
	Common

	// Generate creates an identity when none exists.
	Generate bool
}

// KeysSetupResult contains the outcome of a keys setup operation.
type KeysSetupResult struct {
	IdentityPath string

	// PublicKey is empty when no identity exists and Generate was false.
	PublicKey string
	Generated bool

	// Registered is true when the key was added to the recipients of the
	// project found from the working directory.
	Registered bool
}

// KeysSetup shows or creates the user's native identity. A newly generated
// key is registered in the current project, if there is one.
func KeysSetup(ctx context.Context, opts KeysSetupOptions) (*KeysSetupResult, error) {
	user, err := configs.LoadUserSettings()
	if err != nil {
		return nil, fmt.Errorf("loading user settings: %w", err)
	}

	id, generated, err := loadOrCreateIdentity(user.IdentityPath, opts.Generate)
	if err != nil {
		return nil, err
	}

	result := &KeysSetupResult{IdentityPath: user.IdentityPath}
	if id == nil {
		return result, nil
	}
	defer id.Zero()

	result.PublicKey = id.PublicKey()
	result.Generated = generated
	if !generated {
		return result, nil
	}

	p, err := loadProject(opts.Common)
	if errors.Is(err, verrors.ErrProjectNotInitialized) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	if p.config.Vaultic.DefaultCipher != string(secrets.SchemeNative) {
		opts.Logger.Infof("Project uses %s, not registering the native key", p.config.Vaultic.DefaultCipher)
		return result, nil
	}

	_, email := utils.GitAuthor()
	if err := p.keyStore().Add(id.Recipient(email)); err != nil {
		return nil, fmt.Errorf("registering your public key: %w", err)
	}
	result.Registered = true
	p.audit.Record(audit.Entry{
		Action: audit.ActionKeyAdd,
		Files:  []string{configs.RecipientsFileName},
		Detail: "added " + result.PublicKey,
	})
	return result, nil
}

// KeysAddOptions configures the keys add workflow.
type KeysAddOptions struct {
	Common

	PublicKey string
	Label     string
}

// KeysAddResult contains the outcome of a keys add operation.
type KeysAddResult struct {
	Recipient secrets.Recipient

	// AlreadyPresent is true when the key was a recipient already.
	AlreadyPresent bool
	Recipients     int
}

// KeysAdd authorizes a public key. Existing ciphertext is not touched; the
// new recipient can decrypt after the next encrypt --all.
//
// Returns ErrInvalidRecipient if the key is malformed or belongs to a
// different scheme than the project's cipher.
func KeysAdd(ctx context.Context, opts KeysAddOptions) (*KeysAddResult, error) {
	p, err := loadProject(opts.Common)
	if err != nil {
		return nil, err
	}

	r := secrets.Recipient{
		PublicKey: strings.TrimSpace(opts.PublicKey),
		Label:     strings.TrimSpace(opts.Label),
	}
	r.Scheme = secrets.DetectScheme(r.PublicKey)
	if err := secrets.ValidateRecipient(r); err != nil {
		return nil, err
	}
	if string(r.Scheme) != p.config.Vaultic.DefaultCipher {
		return nil, fmt.Errorf("%w: %s is a %s key but this project uses %s",
			verrors.ErrInvalidRecipient, r.PublicKey, r.Scheme, p.config.Vaultic.DefaultCipher)
	}

	store := p.keyStore()
	existing, err := store.List()
	if err != nil {
		return nil, err
	}
	result := &KeysAddResult{Recipient: r}
	for _, e := range existing {
		if e.PublicKey == r.PublicKey {
			result.AlreadyPresent = true
		}
	}

	if err := store.Add(r); err != nil {
		return nil, err
	}

	after, err := store.List()
	if err != nil {
		return nil, err
	}
	result.Recipients = len(after)

	if !result.AlreadyPresent {
		p.audit.Record(audit.Entry{
			Action: audit.ActionKeyAdd,
			Files:  []string{configs.RecipientsFileName},
			Detail: "added " + r.String(),
		})
	}
	return result, nil
}

// KeysRemoveOptions configures the keys remove workflow.
type KeysRemoveOptions struct {
	Common

	PublicKey string
}

// KeysRemoveResult contains the outcome of a keys remove operation.
type KeysRemoveResult struct {
	PublicKey  string
	Recipients int
}

// KeysRemove deauthorizes a public key. The removed key can still read
// existing ciphertext until encrypt --all rewrites it.
//
// Returns ErrRecipientNotFound if the key is not a recipient.
func KeysRemove(ctx context.Context, opts KeysRemoveOptions) (*KeysRemoveResult, error) {
	p, err := loadProject(opts.Common)
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(opts.PublicKey)
	store := p.keyStore()
	if err := store.Remove(key); err != nil {
		return nil, err
	}

	remaining, err := store.List()
	if err != nil {
		return nil, err
	}

	p.audit.Record(audit.Entry{
		Action: audit.ActionKeyRemove,
		Files:  []string{configs.RecipientsFileName},
		Detail: "removed " + key,
	})
	return &KeysRemoveResult{PublicKey: key, Recipients: len(remaining)}, nil
}

// KeysListOptions configures the keys list workflow.
type KeysListOptions struct {
	Common
}

// KeysListResult contains the authorized recipients in file order.
type KeysListResult struct {
	Recipients []secrets.Recipient

	// Self is the user's own public key, when an identity exists.
	Self string
}

func KeysList(ctx context.Context, opts KeysListOptions) (*KeysListResult, error) {
	p, err := loadProject(opts.Common)
	if err != nil {
		return nil, err
	}

	recipients, err := p.keyStore().List()
	if err != nil {
		return nil, err
	}

	result := &KeysListResult{Recipients: recipients}
	if id, err := secrets.LoadIdentity(secrets.PrivateKeySource{Path: p.user.IdentityPath}); err == nil {
		result.Self = id.PublicKey()
		id.Zero()
	}
	return result, nil
}
