// Package progress splits a document's value into percentage based billing
// phases and tracks each phase through pending -> billed -> paid.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/money"
	"github.com/MrJamesThe3rd/tally/internal/validation"
)

// State is the stored lifecycle state of a phase.
type State string

const (
	StatePending State = "pending"
	StateBilled  State = "billed"
	StatePaid    State = "paid"
	// StateOverdue is derived by StatusAt and never stored as State.
	StateOverdue State = "overdue"
)

var maxPercent = decimal.NewFromInt(100)

// ErrPhaseNotFound is returned when a phase id is not in the schedule.
var ErrPhaseNotFound = errors.New("phase not found")

// Phase is one slice of the project value.
type Phase struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	DueDate    time.Time       `json:"due_date"`
	BilledDate *time.Time      `json:"billed_date,omitempty"`
	PaidDate   *time.Time      `json:"paid_date,omitempty"`
	State      State           `json:"state"`
	// Amount and Status are derived on every snapshot.
	Amount decimal.Decimal `json:"amount"`
	Status State           `json:"status"`
}

// NewPhase returns a pending phase.
func NewPhase(name string, pct decimal.Decimal, due time.Time) Phase {
	return Phase{
		ID:         uuid.New(),
		Name:       name,
		Percentage: pct,
		DueDate:    due,
		State:      StatePending,
		Amount:     decimal.Zero,
	}
}

// StatusAt reports the phase state as seen at now: a phase past its due date
// that is not paid is overdue.
func (p Phase) StatusAt(now time.Time) State {
	if p.State != StatePaid && !p.DueDate.IsZero() && p.DueDate.Before(now) {
		return StateOverdue
	}

	return p.State
}

// Schedule is the ordered set of phases of one document.
type Schedule struct {
	Phases []Phase `json:"phases"`
}

// Allocated returns the sum of all phase percentages.
func (s *Schedule) Allocated() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range s.Phases {
		sum = sum.Add(p.Percentage)
	}

	return sum
}

// Add appends a phase, rejecting it if the schedule would exceed 100%.
func (s *Schedule) Add(p Phase) error {
	if err := checkPercent(p.Percentage); err != nil {
		return err
	}

	if err := checkOverflow(s.Allocated().Add(p.Percentage)); err != nil {
		return err
	}

	if p.State == "" {
		p.State = StatePending
	}

	s.Phases = append(s.Phases, p)

	return nil
}

// Update edits a phase's name, percentage and due date.
func (s *Schedule) Update(id uuid.UUID, name string, pct decimal.Decimal, due time.Time) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}

	if err := checkPercent(pct); err != nil {
		return err
	}

	sum := s.Allocated().Sub(s.Phases[i].Percentage).Add(pct)
	if err := checkOverflow(sum); err != nil {
		return err
	}

	s.Phases[i].Name = name
	s.Phases[i].Percentage = pct
	s.Phases[i].DueDate = due

	return nil
}

// MarkBilled moves a pending phase to billed.
func (s *Schedule) MarkBilled(id uuid.UUID, at time.Time) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}

	if s.Phases[i].State != StatePending {
		return validation.New(validation.ErrInvalidTransition, "state", "%s -> %s", s.Phases[i].State, StateBilled)
	}

	s.Phases[i].State = StateBilled
	s.Phases[i].BilledDate = &at

	return nil
}

// MarkPaid moves a billed phase to paid.
func (s *Schedule) MarkPaid(id uuid.UUID, at time.Time) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}

	if s.Phases[i].State != StateBilled {
		return validation.New(validation.ErrInvalidTransition, "state", "%s -> %s", s.Phases[i].State, StatePaid)
	}

	s.Phases[i].State = StatePaid
	s.Phases[i].PaidDate = &at

	return nil
}

// Validate re-checks the schedule as a whole.
func (s *Schedule) Validate() error {
	for _, p := range s.Phases {
		if err := checkPercent(p.Percentage); err != nil {
			return err
		}
	}

	return checkOverflow(s.Allocated())
}

// Priced returns a copy of the phases with Amount derived from total and
// Status as seen at now.
func (s *Schedule) Priced(total decimal.Decimal, now time.Time) []Phase {
	out := make([]Phase, len(s.Phases))
	for i, p := range s.Phases {
		p.Amount = money.Round(money.PercentOf(total, p.Percentage))
		p.Status = p.StatusAt(now)
		p.BilledDate = cloneTime(p.BilledDate)
		p.PaidDate = cloneTime(p.PaidDate)
		out[i] = p
	}

	return out
}

func (s *Schedule) index(id uuid.UUID) (int, error) {
	for i := range s.Phases {
		if s.Phases[i].ID == id {
			return i, nil
		}
	}

	return -1, fmt.Errorf("%w: %s", ErrPhaseNotFound, id)
}

func checkPercent(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(maxPercent) {
		return validation.New(validation.ErrInvalidRate, "percentage", "must be within [0,100], got %s", pct)
	}

	return nil
}

func checkOverflow(sum decimal.Decimal) error {
	if sum.GreaterThan(maxPercent) {
		return validation.New(validation.ErrPhaseOverflow, "percentage", "phases would total %s%%", sum)
	}

	return nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	c := *t

	return &c
}
