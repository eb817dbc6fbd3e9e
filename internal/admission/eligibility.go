package admission

import (
	"zonarated-bot/internal/models"
)

type Evaluation struct {
	Eligible bool
	Count    int
	Required int
	Missing  int
}

// Evaluate compares the referral count against the threshold. A threshold of
// zero or less admits everyone.
func Evaluate(u models.User, threshold int) Evaluation {
	ev := Evaluation{Count: u.ReferralCount, Required: max(threshold, 0)}
	if u.ReferralCount >= ev.Required {
		ev.Eligible = true
		return ev
	}
	ev.Missing = ev.Required - u.ReferralCount
	return ev
}

// Stage is the position of a user on the admission axis.
type Stage int

const (
	StageUnverified Stage = iota
	StageEligible
	StageReady
	StageJoined
)

func (s Stage) String() string {
	switch s {
	case StageUnverified:
		return "unverified"
	case StageEligible:
		return "eligible"
	case StageReady:
		return "ready"
	case StageJoined:
		return "joined"
	default:
		return "unknown"
	}
}

func StageOf(u models.User, threshold int) Stage {
	switch {
	case u.JoinedGroup:
		return StageJoined
	case u.VerificationComplete && u.ReadyToJoin:
		return StageReady
	case u.VerificationComplete || Evaluate(u, threshold).Eligible:
		return StageEligible
	default:
		return StageUnverified
	}
}

type Predicate string

const (
	PredicateVerified Predicate = "verified"
	PredicateReady    Predicate = "ready_to_join"
	PredicateApproved Predicate = "approved"
)

// ReasonKey is the text key explaining a failed predicate to the user.
func (p Predicate) ReasonKey() string {
	switch p {
	case PredicateVerified:
		return "reason_not_verified"
	case PredicateReady:
		return "reason_link_expired"
	default:
		return "reason_not_approved"
	}
}

type Decision struct {
	Approved bool
	Failed   []Predicate
}

func (d Decision) ReasonKeys() []string {
	keys := make([]string, 0, len(d.Failed))
	for _, p := range d.Failed {
		keys = append(keys, p.ReasonKey())
	}
	return keys
}

// Check recomputes authorization from the stored flags. Each predicate is
// checked on its own so every failing one is reported.
func Check(u models.User) Decision {
	var d Decision
	if !u.VerificationComplete {
		d.Failed = append(d.Failed, PredicateVerified)
	}
	if !u.ReadyToJoin {
		d.Failed = append(d.Failed, PredicateReady)
	}
	if !u.Approved {
		d.Failed = append(d.Failed, PredicateApproved)
	}
	d.Approved = len(d.Failed) == 0
	return d
}
