package entity

type FinishStatus string

const (
	FinishStatusSuccess FinishStatus = "SUCCESS"
	FinishStatusFailed  FinishStatus = "FAILED"
)

// Execution — текущая задача, выданная оркестратором.
type Execution struct {
	TaskID     string
	Parameters map[string]string
}
