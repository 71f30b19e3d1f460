package providers

import "math/rand"

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeDeclined
	OutcomeUnavailable
)

type Decider interface {
	Decide() Outcome
}

// RandomDecider fails FailureRate percent of calls, split between declines
// and outages.
type RandomDecider struct {
	FailureRate int
}

func (r RandomDecider) Decide() Outcome {
	return calcOutcome(rand.Intn(100), r.FailureRate)
}

func calcOutcome(roll, failureRate int) Outcome {
	if roll >= failureRate {
		return OutcomeSuccess
	}
	if roll%2 == 0 {
		return OutcomeDeclined
	}
	return OutcomeUnavailable
}

// FixedDecider always returns the same outcome.
type FixedDecider Outcome

func (f FixedDecider) Decide() Outcome {
	return Outcome(f)
}
