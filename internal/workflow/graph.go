package workflow

import (
	"slices"

	"supplierflow/internal/submission/models"
)

// Edges is the complete status transition table. A status missing from the
// table has no outgoing transitions.
var Edges = map[models.Status][]models.Status{
	models.StatusDraft: {
		models.StatusPendingPBP,
	},
	models.StatusPendingPBP: {
		// info_required and resubmission stay in PendingPBP
		models.StatusPendingPBP,
		models.StatusPendingProcurement,
		models.StatusRejected,
	},
	models.StatusPendingProcurement: {
		models.StatusPendingAP,
		models.StatusPendingOPW,
		models.StatusRejected,
	},
	models.StatusPendingOPW: {
		models.StatusCompletedPayroll,
		models.StatusSDSIssuedAwaitingResponse,
		models.StatusPendingContract,
		models.StatusPendingAP,
		models.StatusRejected,
	},
	models.StatusPendingContract: {
		models.StatusPendingAP,
		models.StatusRejected,
	},
	models.StatusPendingAP: {
		models.StatusCompletedOracle,
		models.StatusRejected,
	},
	models.StatusSDSIssuedAwaitingResponse: {
		models.StatusCompletedPayroll,
	},
}

// CanTransition reports whether from -> to is in the table.
func CanTransition(from, to models.Status) bool {
	return slices.Contains(Edges[from], to)
}

// Reachable returns every status reachable from `from` in one or more steps,
// in breadth-first order.
func Reachable(from models.Status) []models.Status {
	seen := map[models.Status]bool{}
	var out []models.Status
	queue := []models.Status{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range Edges[cur] {
			if seen[next] {
				continue
			}
			seen[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}

// IsReachable reports whether to can follow from.
func IsReachable(from, to models.Status) bool {
	return slices.Contains(Reachable(from), to)
}

// Edge is one row of the transition table.
type Edge struct {
	From models.Status
	To   models.Status
}

// Routes lists the transition table in pipeline order.
func Routes() []Edge {
	var out []Edge
	for _, from := range models.AllStatuses {
		for _, to := range Edges[from] {
			out = append(out, Edge{From: from, To: to})
		}
	}
	return out
}
