package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInsufficientTheories   = errors.New("no theory produced a usable result")
	ErrNoResults              = errors.New("resolver needs at least one result")
	ErrArbitrationUnavailable = errors.New("no unused arbitration theory for this category")
)

// NoEligibleTheoryError surfaces what the best-scoring candidate still
// needs. Selection never silently returns an empty set.
type NoEligibleTheoryError struct {
	BestTheory    string
	MissingFields []string
}

func (e *NoEligibleTheoryError) Error() string {
	return fmt.Sprintf("no eligible theory: best candidate %s is missing %s",
		e.BestTheory, strings.Join(e.MissingFields, ", "))
}
