package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fieldvault/fieldvault/internal/config"
)

// KMSKeeper abstracts the subset of a gocloud.dev secrets.Keeper used to
// protect master keys. *secrets.Keeper satisfies it.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KMSOpener opens a keeper for a KMS key URI.
type KMSOpener interface {
	OpenKeeper(ctx context.Context, keyURI string) (KMSKeeper, error)
}

// LoadMasterKeyChain loads master keys from the environment, decrypting them
// through the configured KMS keeper when KMS_KEY_URI is set.
//
// Without KMS configuration the MASTER_KEYS entries are raw base64 key
// material and loading falls through to LoadMasterKeyChainFromEnv. With KMS
// configuration each entry is a base64 KMS ciphertext produced by the
// create-master-key command; the keeper decrypts each entry and the resulting
// 32-byte keys populate the chain.
//
// On any error the partially built chain is closed so no key material leaks
// past a failed startup.
func LoadMasterKeyChain(
	ctx context.Context,
	cfg *config.Config,
	kms KMSOpener,
	logger *slog.Logger,
) (*MasterKeyChain, error) {
	if cfg.KMSKeyURI == "" {
		logger.Warn("loading master keys from environment without KMS protection")
		return LoadMasterKeyChainFromEnv()
	}

	raw := os.Getenv("MASTER_KEYS")
	if raw == "" {
		return nil, ErrMasterKeysNotSet
	}

	active := os.Getenv("ACTIVE_MASTER_KEY_ID")
	if active == "" {
		return nil, ErrActiveMasterKeyIDNotSet
	}

	logger.Info("decrypting master keys via KMS",
		slog.String("provider", cfg.KMSProvider),
	)

	keeper, err := kms.OpenKeeper(ctx, cfg.KMSKeyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			logger.Warn("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	mkc := &MasterKeyChain{activeID: active}

	parts := strings.SplitSeq(raw, ",")
	for part := range parts {
		p := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(p) != 2 {
			mkc.Close()
			return nil, fmt.Errorf("%w: %q", ErrInvalidMasterKeysFormat, part)
		}
		id := p[0]
		ciphertext, err := base64.StdEncoding.DecodeString(p[1])
		if err != nil {
			mkc.Close()
			return nil, fmt.Errorf("%w for %s: %v", ErrInvalidMasterKeyBase64, id, err)
		}

		key, err := keeper.Decrypt(ctx, ciphertext)
		if err != nil {
			mkc.Close()
			return nil, fmt.Errorf("failed to decrypt master key %s via KMS: %w", id, err)
		}
		if len(key) != KeySize {
			Zero(key)
			mkc.Close()
			return nil, fmt.Errorf(
				"%w: master key %s must be %d bytes, got %d",
				ErrInvalidKeySize,
				id,
				KeySize,
				len(key),
			)
		}

		material := make([]byte, len(key))
		copy(material, key)
		mkc.keys.Store(id, &MasterKey{ID: id, Key: material})
		Zero(key)
	}

	if _, ok := mkc.Get(active); !ok {
		mkc.Close()
		return nil, fmt.Errorf("%w: ACTIVE_MASTER_KEY_ID=%s", ErrActiveMasterKeyNotFound, active)
	}

	return mkc, nil
}
