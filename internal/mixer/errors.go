// errors.go - Error taxonomy for the mixer protocol.
//
// Every operation either fully commits or fails with exactly one of the
// sentinel errors below. Callers classify failures through Kind; retries are
// never performed inside the pool.

package mixer

// Kind classifies a protocol failure.
type Kind uint8

const (
	// KindInput marks a malformed or unacceptable input: wrong denomination,
	// duplicate commitment, level out of bounds, tree full.
	KindInput Kind = iota + 1
	// KindStateConflict marks a nullifier that has already been consumed.
	KindStateConflict
	// KindConsistency marks a root outside the accepted history window.
	KindConsistency
	// KindCrypto marks a proof that failed verification.
	KindCrypto
	// KindTransfer marks a rejected value transfer; the whole operation is
	// rolled back.
	KindTransfer
)

// ProtocolError is a tagged, fatal protocol failure.
type ProtocolError struct {
	Kind   Kind
	Reason string
}

func (e *ProtocolError) Error() string { return e.Reason }

var (
	ErrInvalidDepth        = &ProtocolError{KindInput, "tree depth must be between 1 and 31"}
	ErrTreeFull            = &ProtocolError{KindInput, "merkle tree is full"}
	ErrLevelOutOfBounds    = &ProtocolError{KindInput, "zero-value level exceeds tree depth"}
	ErrWrongAmount         = &ProtocolError{KindInput, "deposited value does not match denomination"}
	ErrDuplicateCommitment = &ProtocolError{KindInput, "commitment has already been deposited"}
	ErrNullifierReused     = &ProtocolError{KindStateConflict, "nullifier has already been spent"}
	ErrUnknownRoot         = &ProtocolError{KindConsistency, "root is not in the recent history window"}
	ErrInvalidProof        = &ProtocolError{KindCrypto, "withdrawal proof verification failed"}
	ErrTransferFailed      = &ProtocolError{KindTransfer, "value transfer rejected"}
)
