package supply

import (
	"context"
	"time"

	"github.com/ardnew/hashspi/driver"
	"github.com/ardnew/hashspi/pkg"
)

// DefaultSubmitTimeout bounds one Sink.Accept call.
const DefaultSubmitTimeout = 2 * time.Second

// Validator implements driver.Validator on top of a Checker and a Sink.
type Validator struct {
	check   Checker
	sink    Sink
	timeout time.Duration
}

// NewValidator returns a validator that checks nonces with check and
// forwards valid ones to sink.
func NewValidator(check Checker, sink Sink) *Validator {
	return &Validator{check: check, sink: sink, timeout: DefaultSubmitTimeout}
}

// Valid implements driver.Validator.
func (v *Validator) Valid(j *driver.Job, nonce uint32) bool {
	if j.Work == nil {
		return false
	}
	return v.check.Check(j.Work.Data, nonce)
}

// Submit implements driver.Validator. Sink failures are logged; the nonce
// is not retried.
func (v *Validator) Submit(j driver.Job, nonce uint32) {
	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	r := Result{
		Chip:   j.Chip,
		TaskID: j.TaskID,
		Nonce:  nonce,
		Found:  time.Now(),
	}
	if j.Work != nil {
		r.WorkID = j.Work.ID
	}
	if err := v.sink.Accept(ctx, r); err != nil {
		pkg.LogWarn(pkg.ComponentSupply, "result not stored",
			"work", r.WorkID,
			"nonce", nonce,
			"error", err)
	}
}
