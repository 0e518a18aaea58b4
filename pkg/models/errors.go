package models

import "fmt"

// EmptyDatasetError indicates that the raw order ledger contained no usable
// rows for feature construction.
type EmptyDatasetError struct {
	Reason string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("empty dataset: %s", e.Reason)
}

// TrainingDataInsufficientError indicates that a stratified train/test split
// is impossible because one of the label classes has no samples.
type TrainingDataInsufficientError struct {
	Positives int
	Negatives int
}

func (e *TrainingDataInsufficientError) Error() string {
	return fmt.Sprintf("insufficient training data: %d positive, %d negative samples", e.Positives, e.Negatives)
}

// ArtifactLoadError indicates a storage fetch or deserialize failure for a
// persisted artifact. It triggers the retrain fallback and is never
// propagated to query callers.
type ArtifactLoadError struct {
	Key string
	Err error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("failed to load artifact %s: %v", e.Key, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error { return e.Err }

// CustomerNotFoundError indicates a risk query for an unknown customer id.
type CustomerNotFoundError struct {
	CustomerID string
}

func (e *CustomerNotFoundError) Error() string {
	return fmt.Sprintf("customer not found: %s", e.CustomerID)
}

// ExplanationError indicates that contribution computation failed for one
// customer. It is non-fatal: the risk score is still reported and the
// explanation is omitted with a warning.
type ExplanationError struct {
	CustomerID string
	Err        error
}

func (e *ExplanationError) Error() string {
	return fmt.Sprintf("explanation failed for customer %s: %v", e.CustomerID, e.Err)
}

func (e *ExplanationError) Unwrap() error { return e.Err }
