package decision

// #region imports
import (
	"errors"
	"fmt"
)

// #endregion

// #region errors

// ErrNoOptions is returned when Decide is called with an empty option batch.
var ErrNoOptions = errors.New("decision: no candidate options")

// InvalidWeightsError reports policy weights that are out of range or do not
// sum to 1.0 within tolerance. Returned before any scoring is attempted.
type InvalidWeightsError struct {
	Weights PolicyWeights
	Reason  string
}

func (e *InvalidWeightsError) Error() string {
	return fmt.Sprintf("decision: invalid policy weights (sum=%.3f): %s", e.Weights.Sum(), e.Reason)
}

// #endregion errors
