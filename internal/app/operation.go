package app

// Operation status values stored in sync_operations.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks one run of a job or a mutating CLI command.
// Operations are created in memory with ID=0 and get their auto-increment ID
// from the database when the run starts.
type Operation struct {
	ID         int64
	Name       string
	Parameters string
	Status     string
}

// NewOperation creates a new in-memory operation.
func NewOperation(name, parameters string) *Operation {
	return &Operation{
		Name:       name,
		Parameters: parameters,
		Status:     StatusRunning,
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Finish sets the final status from the outcome of the run.
func (op *Operation) Finish(err error) {
	if err != nil {
		op.Status = StatusError
		return
	}
	op.Status = StatusSuccess
}
