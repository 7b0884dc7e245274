package nodeconfig

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapconf/pkg/merge"
)

// Merge combines base and override field by field according to the type's
// behavior table and returns a new record. Both records must be of the same
// type. Neither input is modified.
func Merge(base, override Record) (Record, error) {
	t := base.Type()
	if ot := override.Type(); ot != t {
		return nil, fmt.Errorf("%w: cannot merge %s into %s", ErrMergeMismatch, ot, t)
	}
	merged, err := merge.Raw(t.Fields, ToRaw(base), ToRaw(override))
	if err != nil {
		if errors.Is(err, merge.ErrShape) {
			return nil, fmt.Errorf("%w: %s: %w", ErrMergeMismatch, t, err)
		}
		return nil, err
	}
	return Construct(t, merged)
}

// Fold builds a record of type t from scopes ordered least to most specific.
// Each scope is normalized, checked and constructed on its own before it is
// merged into the accumulator, which starts at t's defaults. Record rules are
// not applied; call Finalize once every scope is in.
func Fold(t *RecordType, scopes ...map[string]any) (Record, error) {
	acc := t.New()
	for i, raw := range scopes {
		norm, err := Normalize(t, raw)
		if err != nil {
			return nil, fmt.Errorf("scope %d: %w", i, err)
		}
		if err := ValidateRaw(t, norm); err != nil {
			return nil, fmt.Errorf("scope %d: %w", i, err)
		}
		rec, err := Construct(t, norm)
		if err != nil {
			return nil, fmt.Errorf("scope %d: %w", i, err)
		}
		if acc, err = Merge(acc, rec); err != nil {
			return nil, fmt.Errorf("scope %d: %w", i, err)
		}
	}
	return acc, nil
}

// Finalize re-projects rec to raw form and runs the full pipeline on it again,
// so rules that depend on several scopes see the merged result. On success it
// returns a new record equal to rec. Finalize is idempotent.
func Finalize(rec Record) (Record, error) {
	return FromRaw(rec.Type(), ToRaw(rec))
}

// Convert rebuilds rec as a record of type t without validating it. Keys that t
// does not declare become extras, and extras that t declares become fields.
// It is how a base variant is upgraded to its full type before Finalize.
func Convert(rec Record, t *RecordType) (Record, error) {
	if rec.Type() == t {
		return Construct(t, ToRaw(rec))
	}
	norm, err := Normalize(t, ToRaw(rec))
	if err != nil {
		return nil, err
	}
	return Construct(t, norm)
}
