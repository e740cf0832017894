package domain

import "testing"

func TestLandBasisInBasis(t *testing.T) {
	cases := []struct {
		basis       LandBasis
		restriction LandBasis
		want        bool
	}{
		{LandTimberland, LandTimberland, true},
		{LandForest, LandTimberland, false},
		{LandNonforest, LandTimberland, false},
		{LandTimberland, LandForest, true},
		{LandForest, LandForest, true},
		{LandNonforest, LandForest, false},
		{LandForest, LandNonforest, false},
		{LandForest, LandBasis(""), false},
	}
	for _, c := range cases {
		if got := c.basis.InBasis(c.restriction); got != c.want {
			t.Fatalf("%s.InBasis(%s)=%v want %v", c.basis, c.restriction, got, c.want)
		}
	}
}

func TestEstimateFamilyChangeFamily(t *testing.T) {
	cases := []struct {
		family EstimateFamily
		want   bool
	}{
		{FamilyArea, false},
		{FamilyVolume, false},
		{FamilyGrowth, true},
		{FamilyRemovals, true},
		{FamilyMortality, true},
	}
	for _, c := range cases {
		if got := c.family.ChangeFamily(); got != c.want {
			t.Fatalf("%s.ChangeFamily()=%v want %v", c.family, got, c.want)
		}
	}
}

func TestEvaluationSupports(t *testing.T) {
	eval := Evaluation{Families: []EstimateFamily{FamilyArea, FamilyVolume}}
	if !eval.Supports(FamilyVolume) {
		t.Fatal("expected volume to be supported")
	}
	if eval.Supports(FamilyMortality) {
		t.Fatal("mortality must not be supported")
	}
	if (Evaluation{}).Supports(FamilyArea) {
		t.Fatal("evaluation with no families supports nothing")
	}
}

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{
			ReferentialIntegrityError{Entity: EntityTree, ID: "t1", RefEntity: EntityPlot, RefID: "p9"},
			"tree t1 references plot p9 which does not exist",
		},
		{UnresolvedDesignError{DesignCode: 999}, "plot design code 999 not in design table"},
		{
			StratumConfigurationError{StratumID: "s1", Reason: "zero sampled points"},
			"stratum s1 unusable: zero sampled points",
		},
		{EvaluationScopeError{Reason: "no evaluation matches request"}, "evaluation scope: no evaluation matches request"},
		{
			EvaluationScopeError{Reason: "ambiguous", EvaluationIDs: []string{"e1", "e2"}},
			"evaluation scope: ambiguous (candidates [e1 e2])",
		},
		{ErrNotFound{Entity: EntityStratum, ID: "s7"}, "stratum s7 not found"},
	}
	for _, c := range cases {
		if got := c.err.Error(); got != c.want {
			t.Fatalf("Error()=%q want %q", got, c.want)
		}
	}
}
