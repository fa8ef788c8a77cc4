package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/fieldvault/fieldvault/internal/errors"
)

// BatchEncrypt encrypts a slice of records.
//
// Records are split into fixed-size chunks and each chunk's records run
// either sequentially or on an errgroup bounded by the configured
// concurrency. Every record gets its own result slot addressed by input
// index, so output order always matches input order no matter the completion
// order. A record failure is captured in its result and never aborts the
// batch; worker functions always return nil to the group.
func (c *columnUseCase) BatchEncrypt(
	ctx context.Context,
	records []FieldValues,
) []EncryptResult {
	results := make([]EncryptResult, len(records))

	c.forEachRecord(ctx, len(records), func(itemCtx context.Context, index int) {
		fields, err := c.encryptRecord(itemCtx, records[index])
		results[index] = EncryptResult{Index: index, Fields: fields, Err: err}
	})

	return results
}

// BatchDecrypt decrypts a slice of records with the same chunking,
// concurrency and failure isolation as BatchEncrypt.
func (c *columnUseCase) BatchDecrypt(
	ctx context.Context,
	records []EncryptedFields,
) []DecryptResult {
	results := make([]DecryptResult, len(records))

	c.forEachRecord(ctx, len(records), func(itemCtx context.Context, index int) {
		fields, err := c.decryptRecord(itemCtx, records[index])
		results[index] = DecryptResult{Index: index, Fields: fields, Err: err}
	})

	return results
}

// forEachRecord drives the chunked, optionally concurrent processing of a
// batch. The process callback writes into its own result slot, so no
// synchronization is needed beyond the group wait.
func (c *columnUseCase) forEachRecord(
	ctx context.Context,
	count int,
	process func(ctx context.Context, index int),
) {
	chunkSize := c.batch.ChunkSize
	if chunkSize < 1 {
		chunkSize = count
		if chunkSize < 1 {
			return
		}
	}

	for start := 0; start < count; start += chunkSize {
		end := start + chunkSize
		if end > count {
			end = count
		}

		if c.batch.Concurrency > 1 {
			group, groupCtx := errgroup.WithContext(ctx)
			group.SetLimit(c.batch.Concurrency)
			for index := start; index < end; index++ {
				group.Go(func() error {
					c.processItem(groupCtx, index, process)
					return nil
				})
			}
			// Workers never return errors; Wait only synchronizes the chunk.
			_ = group.Wait()
		} else {
			for index := start; index < end; index++ {
				c.processItem(ctx, index, process)
			}
		}
	}
}

// processItem applies the per-item timeout before invoking the callback.
func (c *columnUseCase) processItem(
	ctx context.Context,
	index int,
	process func(ctx context.Context, index int),
) {
	if c.batch.ItemTimeout > 0 {
		itemCtx, cancel := context.WithTimeout(ctx, c.batch.ItemTimeout)
		defer cancel()
		process(itemCtx, index)
		return
	}
	process(ctx, index)
}

// encryptRecord encrypts every field of one record. The record fails as a
// unit on the first field error so a partial record is never returned.
func (c *columnUseCase) encryptRecord(
	ctx context.Context,
	record FieldValues,
) (EncryptedFields, error) {
	fields := make(EncryptedFields, len(record))
	for fieldID, value := range record {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrapf(err, "record timed out at field %q", fieldID)
		}

		ciphertext, err := c.EncryptField(ctx, fieldID, value)
		if err != nil {
			return nil, apperrors.Wrapf(err, "field %q", fieldID)
		}
		fields[fieldID] = ciphertext
	}
	return fields, nil
}

// decryptRecord decrypts every field of one record.
func (c *columnUseCase) decryptRecord(
	ctx context.Context,
	record EncryptedFields,
) (FieldValues, error) {
	fields := make(FieldValues, len(record))
	for fieldID, ciphertext := range record {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrapf(err, "record timed out at field %q", fieldID)
		}

		value, err := c.DecryptField(ctx, fieldID, ciphertext)
		if err != nil {
			return nil, apperrors.Wrapf(err, "field %q", fieldID)
		}
		fields[fieldID] = value
	}
	return fields, nil
}
