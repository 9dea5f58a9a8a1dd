package booking

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending               Status = "pending"
	StatusAssigned              Status = "assigned"
	StatusStarted               Status = "started"
	StatusCompleted             Status = "completed"
	StatusWithdrawBefore24      Status = "withdrawbefore24"
	StatusWithdrawAfter24       Status = "withdrawafter24"
	StatusTimedOut              Status = "timedout"
	StatusNotCarriedOutCustomer Status = "not_carried_out_customer"
)

// transitions holds every edge a customer or translator action may take.
var transitions = map[Status]map[Status]struct{}{
	StatusPending: {
		StatusAssigned:         {},
		StatusWithdrawBefore24: {},
		StatusWithdrawAfter24:  {},
		StatusTimedOut:         {},
	},
	StatusAssigned: {
		StatusStarted:          {},
		StatusPending:          {},
		StatusWithdrawBefore24: {},
		StatusWithdrawAfter24:  {},
		StatusTimedOut:         {},
	},
	StatusStarted: {
		StatusCompleted:             {},
		StatusNotCarriedOutCustomer: {},
	},
}

// adminTransitions holds the edges an admin edit may force.
var adminTransitions = map[Status]map[Status]struct{}{
	StatusPending: {
		StatusWithdrawBefore24: {},
		StatusWithdrawAfter24:  {},
		StatusTimedOut:         {},
		StatusAssigned:         {},
	},
	StatusAssigned: {
		StatusWithdrawBefore24: {},
		StatusWithdrawAfter24:  {},
		StatusTimedOut:         {},
	},
	StatusStarted: {
		StatusWithdrawBefore24: {},
		StatusWithdrawAfter24:  {},
		StatusTimedOut:         {},
		StatusCompleted:        {},
	},
	StatusWithdrawAfter24: {
		StatusTimedOut: {},
	},
	StatusTimedOut: {
		StatusAssigned: {},
	},
	StatusCompleted: {
		StatusTimedOut: {},
	},
}

// AdminTargets are the statuses an admin edit may request.
var AdminTargets = []Status{
	StatusWithdrawBefore24,
	StatusWithdrawAfter24,
	StatusTimedOut,
	StatusAssigned,
	StatusCompleted,
}

var terminal = map[Status]struct{}{
	StatusCompleted:             {},
	StatusWithdrawBefore24:      {},
	StatusWithdrawAfter24:       {},
	StatusTimedOut:              {},
	StatusNotCarriedOutCustomer: {},
}

// CanTransition reports whether a lifecycle action may move a job from one status to another.
func CanTransition(from, to Status) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// CanAdminTransition reports whether an admin edit may force the given edge.
func CanAdminTransition(from, to Status) bool {
	allowed, ok := adminTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// IsAdminTarget reports whether s may be requested by an admin edit at all.
func IsAdminTarget(s Status) bool {
	for _, t := range AdminTargets {
		if t == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no lifecycle action leaves s.
func (s Status) IsTerminal() bool {
	_, ok := terminal[s]
	return ok
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusStarted:
		return true
	}
	return s.IsTerminal()
}

func (s Status) String() string {
	return string(s)
}
