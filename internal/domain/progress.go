package domain

// ProgressInfo is one delivery from a read or a live subscription.
//
// Exactly one ProgressInfo per read has IsComplete set and it is always the
// last one delivered. IsFirst marks the first delivery of a read so the
// receiver can decide between replacing and appending. ErrorMessage is only
// set on a terminal delivery.
type ProgressInfo struct {
	Events       []EventItem `json:"events"`
	IsComplete   bool        `json:"is_complete"`
	IsFirst      bool        `json:"is_first"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// HasError returns true if the delivery carries an error message
func (p ProgressInfo) HasError() bool {
	return p.ErrorMessage != ""
}
