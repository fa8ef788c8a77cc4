package usecase

import (
	"context"
	"sync"
	"time"

	columnsDomain "github.com/fieldvault/fieldvault/internal/columns/domain"
	columnsService "github.com/fieldvault/fieldvault/internal/columns/service"
	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	cryptoService "github.com/fieldvault/fieldvault/internal/crypto/service"
	cryptoUseCase "github.com/fieldvault/fieldvault/internal/crypto/usecase"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
	"github.com/fieldvault/fieldvault/internal/events"
)

// BatchConfig tunes the batch engine.
type BatchConfig struct {
	// ChunkSize is the number of records per processing chunk.
	ChunkSize int
	// Concurrency is the number of records processed in parallel within a
	// chunk. Values below 2 keep processing sequential.
	Concurrency int
	// ItemTimeout bounds the processing of one record. Zero disables it. An
	// expired record fails individually; the batch continues.
	ItemTimeout time.Duration
}

// columnUseCase implements the ColumnUseCase interface.
//
// Policies load into an in-memory registry guarded by a read-write lock, so
// the per-call policy lookup never touches the store. The encryption cache is
// consulted only for cacheable policies and is cleared synchronously on every
// rotation; the version-qualified fingerprint makes stale entries unservable
// even if that clear were ever missed.
type columnUseCase struct {
	policyMu   sync.RWMutex
	policies   map[string]*columnsDomain.FieldPolicy
	policyRepo PolicyRepository

	keyUseCase   cryptoUseCase.KeyUseCase
	cipherEngine cryptoService.CipherEngine
	serializer   columnsService.Serializer
	compressor   columnsService.Compressor
	cache        columnsService.Cache
	publisher    events.Publisher
	batch        BatchConfig
}

// NewColumnUseCase creates a column encryption use case with the provided
// dependencies.
//
// Parameters:
//   - policyRepo: Repository for field policy persistence
//   - keyUseCase: Key management operations for active keys and version lookups
//   - cipherEngine: AEAD envelope engine
//   - serializer: Shape-aware value serializer
//   - compressor: Transparent payload compressor
//   - cache: Ciphertext lookup cache
//   - publisher: Lifecycle event sink
//   - batch: Batch engine tuning
//
// Returns:
//   - A fully initialized ColumnUseCase
func NewColumnUseCase(
	policyRepo PolicyRepository,
	keyUseCase cryptoUseCase.KeyUseCase,
	cipherEngine cryptoService.CipherEngine,
	serializer columnsService.Serializer,
	compressor columnsService.Compressor,
	cache columnsService.Cache,
	publisher events.Publisher,
	batch BatchConfig,
) ColumnUseCase {
	return &columnUseCase{
		policies:     make(map[string]*columnsDomain.FieldPolicy),
		policyRepo:   policyRepo,
		keyUseCase:   keyUseCase,
		cipherEngine: cipherEngine,
		serializer:   serializer,
		compressor:   compressor,
		cache:        cache,
		publisher:    publisher,
		batch:        batch,
	}
}

// LoadPolicies fills the in-memory registry from the store.
func (c *columnUseCase) LoadPolicies(ctx context.Context) error {
	policies, err := c.policyRepo.List(ctx)
	if err != nil {
		return err
	}

	c.policyMu.Lock()
	defer c.policyMu.Unlock()

	c.policies = make(map[string]*columnsDomain.FieldPolicy, len(policies))
	for _, policy := range policies {
		c.policies[policy.FieldID] = policy
	}
	return nil
}

// RegisterField validates and persists a field policy.
//
// The policy's key must already exist; registering a field against an unknown
// key is a configuration error surfaced immediately rather than at first
// encrypt. Re-registration overwrites the stored policy and emits a
// policy.updated event flagging that existing ciphertext needs a
// re-encryption plan (executing that plan is an operator concern).
func (c *columnUseCase) RegisterField(
	ctx context.Context,
	policy *columnsDomain.FieldPolicy,
) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	if _, err := c.keyUseCase.GetActive(ctx, policy.KeyID); err != nil {
		return err
	}

	existing, err := c.policyRepo.Get(ctx, policy.FieldID)
	if err != nil && !apperrors.Is(err, columnsDomain.ErrUnknownField) {
		return err
	}

	now := time.Now().UTC()
	policy.UpdatedAt = now
	if existing != nil {
		policy.CreatedAt = existing.CreatedAt
	} else {
		policy.CreatedAt = now
	}

	if err := c.policyRepo.Save(ctx, policy); err != nil {
		return err
	}

	c.policyMu.Lock()
	c.policies[policy.FieldID] = policy
	c.policyMu.Unlock()

	if existing != nil {
		// Entries cached under the previous policy (its key, mode or compress
		// setting) must not be served under the new one. The key-qualified
		// fingerprint already misses on a key change; the clear covers a mode
		// or compression change on the same key.
		c.cache.Clear()

		event := events.New(events.TypePolicyUpdated)
		event.FieldID = policy.FieldID
		event.KeyID = policy.KeyID
		event.Metadata = map[string]string{"requires_reencryption_plan": "true"}
		c.publisher.Publish(ctx, event)
	}
	return nil
}

// GetField returns the registered policy for one field id.
func (c *columnUseCase) GetField(
	ctx context.Context,
	fieldID string,
) (*columnsDomain.FieldPolicy, error) {
	return c.resolvePolicy(fieldID)
}

// ListFields returns every registered policy ordered by field id.
func (c *columnUseCase) ListFields(ctx context.Context) ([]*columnsDomain.FieldPolicy, error) {
	return c.policyRepo.List(ctx)
}

// resolvePolicy looks up the policy in the in-memory registry.
func (c *columnUseCase) resolvePolicy(fieldID string) (*columnsDomain.FieldPolicy, error) {
	c.policyMu.RLock()
	defer c.policyMu.RUnlock()

	policy, ok := c.policies[fieldID]
	if !ok {
		return nil, columnsDomain.ErrUnknownField
	}
	return policy, nil
}

// EncryptField protects a single value under the field's policy.
//
// Pipeline: resolve policy, serialize per shape, optionally compress, consult
// the cache (cacheable policies only), encrypt with the field key's active
// version, marshal the envelope, populate the cache and emit a
// value.encrypted event. A cache hit skips the AEAD work entirely; the cached
// bytes are a complete envelope and already carry the right key version.
func (c *columnUseCase) EncryptField(
	ctx context.Context,
	fieldID string,
	value any,
) ([]byte, error) {
	policy, err := c.resolvePolicy(fieldID)
	if err != nil {
		return nil, err
	}

	plaintext, err := c.serializer.Serialize(policy.Shape, value)
	if err != nil {
		return nil, err
	}

	if policy.Compress {
		plaintext, err = c.compressor.Compress(plaintext)
		if err != nil {
			return nil, err
		}
	}

	key, err := c.keyUseCase.GetActive(ctx, policy.KeyID)
	if err != nil {
		return nil, err
	}

	var fingerprint string
	if policy.Cacheable() {
		fingerprint = columnsService.Fingerprint(fieldID, key.KeyID, key.Version, plaintext)
		if cached, ok := c.cache.Lookup(fingerprint); ok {
			c.publishValueEvent(ctx, events.TypeValueEncrypted, policy, key.Version, true)
			return cached, nil
		}
	}

	envelope, err := c.cipherEngine.Encrypt(key, policy.Mode, fieldID, plaintext)
	if err != nil {
		return nil, err
	}

	ciphertext, err := envelope.Marshal()
	if err != nil {
		return nil, err
	}

	if policy.Cacheable() {
		c.cache.Store(fingerprint, ciphertext)
	}

	c.publishValueEvent(ctx, events.TypeValueEncrypted, policy, key.Version, false)
	return ciphertext, nil
}

// DecryptField reverses EncryptField.
//
// The envelope names its own key id and version; decryption resolves exactly
// that version, so retired keys keep old ciphertext readable and the active
// key is irrelevant here. Authentication failures emit a value.decrypt_failed
// audit event carrying identifiers only.
func (c *columnUseCase) DecryptField(
	ctx context.Context,
	fieldID string,
	ciphertext []byte,
) (any, error) {
	policy, err := c.resolvePolicy(fieldID)
	if err != nil {
		return nil, err
	}

	envelope, err := cryptoDomain.ParseEnvelope(ciphertext)
	if err != nil {
		return nil, err
	}

	key, err := c.keyUseCase.GetVersion(ctx, envelope.KeyID, envelope.KeyVersion)
	if err != nil {
		c.publishDecryptFailure(ctx, policy, envelope, "key_version_unavailable")
		return nil, err
	}

	plaintext, err := c.cipherEngine.Decrypt(key, fieldID, envelope)
	if err != nil {
		c.publishDecryptFailure(ctx, policy, envelope, "authentication_failed")
		return nil, err
	}

	if policy.Compress {
		plaintext, err = c.compressor.Decompress(plaintext)
		if err != nil {
			return nil, err
		}
	}

	value, err := c.serializer.Deserialize(policy.Shape, plaintext)
	if err != nil {
		return nil, err
	}

	c.publishValueEvent(ctx, events.TypeValueDecrypted, policy, envelope.KeyVersion, false)
	return value, nil
}

// RotateKeys rotates the named key and clears the encryption cache.
//
// The key use case publishes key.rotated synchronously, so subscribers (the
// cache-clearing one included) run before Rotate returns; the explicit clear
// here keeps the guarantee even when no subscriber is wired. A rotation
// failure leaves the previous version active and the cache untouched.
func (c *columnUseCase) RotateKeys(
	ctx context.Context,
	keyID string,
) (*cryptoDomain.SymmetricKey, error) {
	key, err := c.keyUseCase.Rotate(ctx, keyID, "")
	if err != nil {
		return nil, err
	}

	c.cache.Clear()
	return key, nil
}

// publishValueEvent emits a value lifecycle event carrying identifiers only.
func (c *columnUseCase) publishValueEvent(
	ctx context.Context,
	eventType events.Type,
	policy *columnsDomain.FieldPolicy,
	keyVersion uint32,
	fromCache bool,
) {
	event := events.New(eventType)
	event.FieldID = policy.FieldID
	event.KeyID = policy.KeyID
	event.KeyVersion = keyVersion
	if fromCache {
		event.Metadata = map[string]string{"cache": "hit"}
	}
	c.publisher.Publish(ctx, event)
}

// publishDecryptFailure emits an audit event for a failed decryption so
// monitoring can spot repeated tampering or misconfiguration.
func (c *columnUseCase) publishDecryptFailure(
	ctx context.Context,
	policy *columnsDomain.FieldPolicy,
	envelope *cryptoDomain.Envelope,
	reason string,
) {
	event := events.New(events.TypeValueDecryptFailed)
	event.FieldID = policy.FieldID
	event.KeyID = envelope.KeyID
	event.KeyVersion = envelope.KeyVersion
	event.Metadata = map[string]string{"reason": reason}
	c.publisher.Publish(ctx, event)
}
