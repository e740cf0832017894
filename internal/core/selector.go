package core

import (
	"sort"

	"fiacore/pkg/domain"
)

// SelectEvaluation resolves a request to exactly one evaluation. Candidates
// must match the request geography, support the requested family, and cover
// the requested year window. Zero or multiple candidates fail closed; the
// caller never gets a guessed evaluation.
func SelectEvaluation(evals []domain.Evaluation, req Request) (domain.Evaluation, error) {
	var candidates []domain.Evaluation
	for _, e := range evals {
		if e.Geography != req.Geography {
			continue
		}
		if !e.Supports(req.Family) {
			continue
		}
		if req.StartYear != 0 && req.StartYear < e.StartYear {
			continue
		}
		if req.EndYear != 0 && req.EndYear > e.EndYear {
			continue
		}
		candidates = append(candidates, e)
	}
	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return domain.Evaluation{}, domain.EvaluationScopeError{
			Reason: "no evaluation matches geography, family, and year window",
		}
	default:
		ids := make([]string, len(candidates))
		for i, e := range candidates {
			ids[i] = e.ID
		}
		sort.Strings(ids)
		return domain.Evaluation{}, domain.EvaluationScopeError{
			Reason:        "request matches multiple evaluations",
			EvaluationIDs: ids,
		}
	}
}
