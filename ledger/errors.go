package ledger

import "errors"

// Sentinel validation errors (§7). The validator returns exactly one of
// these (wrapped with fmt.Errorf %w where extra context helps) for any
// rejected block; nothing else participates in the exhaustive switch in
// Validate.
var (
	ErrGapPrevious       = errors.New("ledger: gap previous")
	ErrGapSource         = errors.New("ledger: gap source")
	ErrOldBlock          = errors.New("ledger: old block")
	ErrForkDetected      = errors.New("ledger: fork")
	ErrBadSignature      = errors.New("ledger: bad signature")
	ErrInsufficientWork  = errors.New("ledger: insufficient work")
	ErrNegativeBalance   = errors.New("ledger: negative balance")
	ErrUnreceivable      = errors.New("ledger: unreceivable")
	ErrBlockPosition     = errors.New("ledger: block position")
	ErrRepresentativeChange = errors.New("ledger: representative change on epoch block")
)
