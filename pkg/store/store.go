package store

import "fmt"

// Metric selects the distance function used for both insertion indexing and
// querying. It must not change for the lifetime of an index.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

// DuplicateIDError is returned when a batch contains a record ID already
// present in the index. The index is append-only, so the batch is rejected
// outright rather than overwriting.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("record %q already exists in the index", e.ID)
}
