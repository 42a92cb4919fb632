package production

import (
	"fmt"
	"math/rand/v2"
)

// maxNumberAttempts bounds retries when a generated batch number collides
// with the unique constraint.
const maxNumberAttempts = 5

// NewBatchNumber produces a human-facing batch identifier. The suffix is
// random rather than sequential; uniqueness under concurrent creation is
// guaranteed by the database constraint with conflict retry, not by the
// generator itself.
func NewBatchNumber() string {
	return fmt.Sprintf("BATCH-%05d", rand.IntN(100000))
}
