package merge

import (
	"context"
	"fmt"

	"github.com/wevote/reconcile/internal/server/models"
)

// mergeOrganizations folds the source voter's organization into the
// destination voter's organization: org-attributed positions move to the
// target org, follower entries are repointed, and the source org's provider
// cache is cleared.
//
// Bookmarks attached to either organization are the hard stop: merging would
// orphan or silently rewrite user-saved references, so the workflow refuses
// and reports ManualIntervention.
func (w *Workflow) mergeOrganizations(ctx context.Context, m *Context, fromOrg, toOrg string) StepResult {
	for _, org := range []string{fromOrg, toOrg} {
		n, err := w.repos.Bookmarks.CountForObject(ctx, org)
		if err != nil {
			return writeFailure(err)
		}
		if n > 0 {
			return StepResult{
				Outcome: OutcomeManualIntervention,
				Detail:  fmt.Sprintf("%d bookmarks attached to organization %s", n, org),
			}
		}
	}

	var total models.MoveResult

	res, err := w.repos.Positions.MoveToOrganization(ctx, fromOrg, toOrg, m.To.WeVoteID)
	if err != nil {
		return writeFailure(err)
	}
	total.Add(res)

	res, err = w.repos.Follows.RetargetFollowed(ctx, fromOrg, toOrg)
	if err != nil {
		return writeFailure(err)
	}
	total.Add(res)

	if err := w.repos.Organizations.ClearTwitterCache(ctx, fromOrg); err != nil {
		return writeFailure(err)
	}

	return StepResult{
		Outcome: OutcomeOK,
		Detail:  "merged organization " + fromOrg + " into " + toOrg,
		Moved:   total.Moved,
		Skipped: total.Skipped,
	}
}
