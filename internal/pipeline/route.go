package pipeline

import (
	"fmt"

	"presswork/internal/compliance"
	"presswork/internal/runstore"
)

// loopScope names which of the two bounded rewrite loops a gate verdict
// belongs to. The rights loop re-enters reference mapping; the qa loop
// re-enters content generation.
type loopScope string

const (
	scopeRights loopScope = "rights"
	scopeQA     loopScope = "qa"
)

// routeDecision is the routing outcome for one gate verdict.
type routeDecision struct {
	next           runstore.Status
	shouldContinue bool
	reason         string
}

// route maps a gate verdict to the run's next status. It is the single
// routing authority for both rewrite loops and owns the rewrite counter: a
// rewrite increments it, and a counter past max converts the rewrite into a
// terminal reject.
func route(scope loopScope, verdict compliance.Decision, reason string, counter *int, max int) routeDecision {
	switch verdict {
	case compliance.DecisionApprove:
		next := runstore.StatusContentGeneration
		if scope == scopeQA {
			next = runstore.StatusPublishing
		}
		return routeDecision{next: next, shouldContinue: true, reason: reason}
	case compliance.DecisionRewrite:
		*counter++
		if *counter > max {
			return routeDecision{
				next:   runstore.StatusRejected,
				reason: fmt.Sprintf("%s rewrite loop exceeded %d attempts: %s", scope, max, reason),
			}
		}
		next := runstore.StatusReferenceMapping
		if scope == scopeQA {
			next = runstore.StatusContentGeneration
		}
		return routeDecision{
			next:           next,
			shouldContinue: true,
			reason:         fmt.Sprintf("%s rewrite attempt %d of %d: %s", scope, *counter, max, reason),
		}
	default:
		return routeDecision{next: runstore.StatusRejected, reason: reason}
	}
}
