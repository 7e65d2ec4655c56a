package appErrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign %s not found", e.CampaignID)
}

func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrConcurrentCampaign rejects a start/resume while another campaign holds
// the dispatching status. At most one campaign dispatches at a time.
type ErrConcurrentCampaign struct {
	CampaignID string
}

func (e *ErrConcurrentCampaign) Error() string {
	return fmt.Sprintf("cannot dispatch campaign %s: another campaign is already dispatching", e.CampaignID)
}

func NewConcurrentCampaign(id string) error {
	return &ErrConcurrentCampaign{CampaignID: id}
}

// ErrEditLocked rejects edits to a campaign with in-flight sends.
type ErrEditLocked struct {
	CampaignID string
	Pending    int
}

func (e *ErrEditLocked) Error() string {
	return fmt.Sprintf("campaign %s is locked for editing: %d sends still pending", e.CampaignID, e.Pending)
}

func NewEditLocked(id string, pending int) error {
	return &ErrEditLocked{CampaignID: id, Pending: pending}
}

// ErrCapacityExceeded rejects binding more recipients than the campaign cap
// allows. Raised before any row is written.
type ErrCapacityExceeded struct {
	Requested int
	Cap       int
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("cannot bind %d recipients: campaign cap is %d", e.Requested, e.Cap)
}

func NewCapacityExceeded(requested, cap int) error {
	return &ErrCapacityExceeded{Requested: requested, Cap: cap}
}

// ErrInvalidTransition rejects a lifecycle operation not allowed from the
// campaign's current status.
type ErrInvalidTransition struct {
	CampaignID string
	From       string
	Op         string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot %s campaign %s in status %s", e.Op, e.CampaignID, e.From)
}

func NewInvalidTransition(id, from, op string) error {
	return &ErrInvalidTransition{CampaignID: id, From: from, Op: op}
}

// DataAccessError wraps a store failure. Callers must never interpret one as
// "no eligible recipients" or "zero pending work".
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("data access failed during %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

func NewDataAccess(op string, err error) error {
	return &DataAccessError{Op: op, Err: err}
}
