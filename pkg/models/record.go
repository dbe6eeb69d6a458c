package models

import "fmt"

// Record is one object's properties, as inserted into or read back from a collection
type Record map[string]any

// Object is a stored record together with the id the database assigned to it
type Object struct {
	ID         string `json:"id"`
	Properties Record `json:"properties"`
}

// Failure describes one record that could not be inserted
type Failure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

func (f Failure) String() string {
	return fmt.Sprintf("record %d: %s", f.Index, f.Reason)
}

// BatchResult is the outcome of a bulk insert
type BatchResult struct {
	Collection   string   `json:"collection"`
	Attempted    int      `json:"attempted"`
	Inserted     int      `json:"inserted"`
	Failed       int      `json:"failed"`
	Aborted      bool     `json:"aborted"`
	FirstFailure *Failure `json:"first_failure,omitempty"`
}

// OK reports whether every attempted record was inserted
func (r BatchResult) OK() bool {
	return r.Failed == 0
}

// RecordFailure counts a failed record, keeping the detail of the first one only
func (r *BatchResult) RecordFailure(index int, reason string) {
	r.Failed++
	if r.FirstFailure == nil {
		r.FirstFailure = &Failure{Index: index, Reason: reason}
	}
}
