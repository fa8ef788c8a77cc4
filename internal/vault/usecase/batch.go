package usecase

import (
	"context"
)

// BatchTokenize tokenizes inputs in order. It runs sequentially: tokenization
// writes serialize on the vault's write mutex anyway, so fanning out buys
// nothing here. A failing input records its error and the batch moves on;
// only context cancellation fails the remaining inputs wholesale.
func (v *vaultUseCase) BatchTokenize(
	ctx context.Context,
	inputs []TokenizeInput,
) []TokenizeResult {
	results := make([]TokenizeResult, len(inputs))

	for i, input := range inputs {
		results[i].Index = i

		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		record, err := v.Tokenize(ctx, input.FieldID, input.Value, input.Sensitivity)
		if err != nil {
			results[i].Err = err
			continue
		}
		results[i].Record = record
	}

	return results
}
