package usecase

import (
	"context"
	"sort"
	"sync"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	cryptoService "github.com/fieldvault/fieldvault/internal/crypto/service"
	"github.com/fieldvault/fieldvault/internal/events"
)

// keyUseCase implements the KeyUseCase interface.
//
// Writes (Generate, Rotate, PurgeVersion) are serialized by a mutex so
// version numbers never race; the store itself is a plain KV without
// transactions. Reads are served from the key ring under its read lock.
// Persistence order matters on rotation: the new version is saved before the
// old one is retired and before the ring pointer flips, so a failure at any
// step leaves the previous version active for both readers and restarts.
type keyUseCase struct {
	mu             sync.Mutex
	masterKeyChain *cryptoDomain.MasterKeyChain
	keyWrapper     cryptoService.KeyWrapper
	keyRepo        KeyRepository
	keyRing        *cryptoDomain.KeyRing
	publisher      events.Publisher
}

// NewKeyUseCase creates a key use case with the provided dependencies.
//
// Parameters:
//   - masterKeyChain: Master keys used to wrap and unwrap field keys
//   - keyWrapper: Service generating and unwrapping field keys
//   - keyRepo: Repository for wrapped key persistence
//   - keyRing: In-memory ring the encryption paths read from
//   - publisher: Lifecycle event sink
//
// Returns:
//   - A fully initialized KeyUseCase
func NewKeyUseCase(
	masterKeyChain *cryptoDomain.MasterKeyChain,
	keyWrapper cryptoService.KeyWrapper,
	keyRepo KeyRepository,
	keyRing *cryptoDomain.KeyRing,
	publisher events.Publisher,
) KeyUseCase {
	return &keyUseCase{
		masterKeyChain: masterKeyChain,
		keyWrapper:     keyWrapper,
		keyRepo:        keyRepo,
		keyRing:        keyRing,
		publisher:      publisher,
	}
}

// activeMasterKey returns the master key new field keys are wrapped with.
func (k *keyUseCase) activeMasterKey() (*cryptoDomain.MasterKey, error) {
	masterKey, ok := k.masterKeyChain.Get(k.masterKeyChain.ActiveMasterKeyID())
	if !ok {
		return nil, cryptoDomain.ErrActiveMasterKeyNotFound
	}
	return masterKey, nil
}

// masterKey returns the master key a wrapped key was wrapped with.
func (k *keyUseCase) masterKey(id string) (*cryptoDomain.MasterKey, error) {
	masterKey, ok := k.masterKeyChain.Get(id)
	if !ok {
		return nil, cryptoDomain.ErrMasterKeyNotFound
	}
	return masterKey, nil
}

// Generate creates version 1 of a new field key.
//
// The key material is generated, wrapped with the active master key, persisted
// and installed into the ring as the active version. Returns
// ErrKeyAlreadyExists when any version of the key id already exists; silently
// replacing a key would orphan existing ciphertext.
func (k *keyUseCase) Generate(
	ctx context.Context,
	keyID string,
	alg cryptoDomain.Algorithm,
) (*cryptoDomain.SymmetricKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	existing, err := k.keyRepo.ListVersions(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, cryptoDomain.ErrKeyAlreadyExists
	}

	masterKey, err := k.activeMasterKey()
	if err != nil {
		return nil, err
	}

	key, wrapped, err := k.keyWrapper.GenerateKey(masterKey, keyID, 1, alg)
	if err != nil {
		return nil, err
	}

	if err := k.keyRepo.Save(ctx, wrapped); err != nil {
		return nil, err
	}

	k.keyRing.Install(key)

	event := events.New(events.TypeKeyGenerated)
	event.KeyID = keyID
	event.KeyVersion = key.Version
	k.publisher.Publish(ctx, event)

	return key, nil
}

// GetActive returns the active version of the named key from the ring.
func (k *keyUseCase) GetActive(ctx context.Context, keyID string) (*cryptoDomain.SymmetricKey, error) {
	key, ok := k.keyRing.Active(keyID)
	if !ok {
		return nil, cryptoDomain.ErrKeyNotFound
	}
	return key, nil
}

// GetVersion returns a specific key version from the ring, active or retired.
func (k *keyUseCase) GetVersion(
	ctx context.Context,
	keyID string,
	version uint32,
) (*cryptoDomain.SymmetricKey, error) {
	if _, ok := k.keyRing.Active(keyID); !ok {
		return nil, cryptoDomain.ErrKeyNotFound
	}

	key, ok := k.keyRing.Version(keyID, version)
	if !ok {
		return nil, cryptoDomain.ErrKeyVersionNotFound
	}
	return key, nil
}

// Rotate creates the next version of an existing key and makes it active.
//
// The new version number is the current maximum plus one. The new wrapped key
// is persisted first, then the old version is retired in the store, then the
// ring pointer flips. Readers holding the old key finish their operation with
// it; new operations pick up the new version. The KeyRotated event is
// published synchronously before Rotate returns, which is how dependent
// caches clear before any caller observes the rotation as complete.
func (k *keyUseCase) Rotate(
	ctx context.Context,
	keyID string,
	alg cryptoDomain.Algorithm,
) (*cryptoDomain.SymmetricKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	versions, err := k.keyRepo.ListVersions(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, cryptoDomain.ErrKeyNotFound
	}

	current := versions[0]
	if alg == "" {
		alg = current.Algorithm
	}

	masterKey, err := k.activeMasterKey()
	if err != nil {
		return nil, err
	}

	key, wrapped, err := k.keyWrapper.GenerateKey(masterKey, keyID, current.Version+1, alg)
	if err != nil {
		return nil, err
	}

	if err := k.keyRepo.Save(ctx, wrapped); err != nil {
		return nil, err
	}

	if current.Active {
		current.Active = false
		if err := k.keyRepo.Save(ctx, current); err != nil {
			return nil, err
		}
	}

	k.keyRing.Install(key)

	event := events.New(events.TypeKeyRotated)
	event.KeyID = keyID
	event.KeyVersion = key.Version
	k.publisher.Publish(ctx, event)

	return key, nil
}

// PurgeVersion permanently removes a retired key version.
func (k *keyUseCase) PurgeVersion(ctx context.Context, keyID string, version uint32) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	wrapped, err := k.keyRepo.Get(ctx, keyID, version)
	if err != nil {
		return err
	}
	if wrapped.Active {
		return cryptoDomain.ErrKeyVersionActive
	}

	if err := k.keyRepo.Delete(ctx, keyID, version); err != nil {
		return err
	}

	k.keyRing.Remove(keyID, version)

	event := events.New(events.TypeKeyVersionPurged)
	event.KeyID = keyID
	event.KeyVersion = version
	k.publisher.Publish(ctx, event)

	return nil
}

// List returns material-free metadata for every stored key version.
func (k *keyUseCase) List(ctx context.Context) ([]*cryptoDomain.SymmetricKey, error) {
	all, err := k.keyRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]*cryptoDomain.SymmetricKey, 0, len(all))
	for _, wrapped := range all {
		keys = append(keys, &cryptoDomain.SymmetricKey{
			KeyID:     wrapped.KeyID,
			Version:   wrapped.Version,
			Algorithm: wrapped.Algorithm,
			CreatedAt: wrapped.CreatedAt,
			Active:    wrapped.Active,
		})
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].KeyID != keys[j].KeyID {
			return keys[i].KeyID < keys[j].KeyID
		}
		return keys[i].Version > keys[j].Version
	})

	return keys, nil
}

// LoadKeyRing unwraps every stored key version into the ring.
//
// Versions install in ascending order per key, so if the store ever holds two
// versions claiming active after an interrupted rotation, the highest one
// wins, matching what the completed rotation would have produced.
func (k *keyUseCase) LoadKeyRing(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	all, err := k.keyRepo.ListAll(ctx)
	if err != nil {
		return err
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].KeyID != all[j].KeyID {
			return all[i].KeyID < all[j].KeyID
		}
		return all[i].Version < all[j].Version
	})

	for _, wrapped := range all {
		masterKey, err := k.masterKey(wrapped.MasterKeyID)
		if err != nil {
			return err
		}

		key, err := k.keyWrapper.UnwrapKey(wrapped, masterKey)
		if err != nil {
			return err
		}

		k.keyRing.Install(key)
	}

	return nil
}
