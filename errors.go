// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.14
//

package gortkqc

import (
	"github.com/pkg/errors"
)

var (
	// Internal state or input shape that the estimator must never produce,
	// e.g. a key both fixed and unresolved or a vector whose length differs
	// from the number of tracked phases. Indicates a bug in the caller.
	ErrInvariantViolation = errors.New("ambiguity invariant violation")

	// Float ambiguity that cannot be rounded (NaN or Inf)
	ErrInvalidAmbiguity = errors.New("invalid float ambiguity")
)

func invariantf(format string, a ...any) error {
	return errors.Wrapf(ErrInvariantViolation, format, a...)
}

// Reports whether err was caused by an invariant violation
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}
