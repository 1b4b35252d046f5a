package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/synthase/internal/classify"
	"github.com/roach88/synthase/internal/ir"
)

func codesOf(errs []ValidationError) []string {
	codes := []string{}
	for _, e := range errs {
		codes = append(codes, e.Code)
	}
	return codes
}

func testFamilies() *ir.FamilyTable {
	return ir.NewFamilyTable([]ir.Family{
		{Name: "PKS_KS", Type: "KS"},
		{Name: "PKS_AT", Type: "AT"},
		{Name: "PP-binding", Type: "ACP"},
		{Name: "A_NRPS", Type: "A"},
		{Name: "Condensation", Type: "C"},
	})
}

func TestValidateRuleGraphValid(t *testing.T) {
	g := ir.NewRuleGraph([]ir.Rule{
		{Name: "PKS", Domains: []string{"KS", "AT"}, Expr: classify.MustParse("0 and not 1")},
		{Name: "NRPS", Domains: []string{"A"}, Renames: []ir.Rename{{From: "ACP", To: "T"}}},
		{Name: "Canonical NRPS", Domains: []string{"A", "T", "C"}},
	}, []ir.Node{
		{Title: "PKS"},
		{Title: "NRPS", Children: []ir.Node{{Title: "Canonical NRPS"}}},
	})
	assert.Empty(t, ValidateRuleGraph(g, testFamilies()))
}

func TestValidateRuleGraphCollectsAllErrors(t *testing.T) {
	g := ir.NewRuleGraph([]ir.Rule{
		{Name: "", Domains: []string{"KS"}},
		{Name: "PKS", Domains: []string{"KS"}, Expr: classify.MustParse("0 or 1")},
		{Name: "PKS", Domains: []string{"KS"}},
		{Name: "Empty"},
		{Name: "Odd", Domains: []string{"XX"}},
		{Name: "Filtered", Domains: []string{"KS"}, Filters: map[string][]string{"AT": {"PKS_AT"}}},
		{Name: "Renamer", Domains: []string{"A"}, Renames: []ir.Rename{{From: "ACP", To: "ACP"}}},
	}, []ir.Node{
		{Title: "PKS", Children: []ir.Node{{Title: "Nope"}}},
		{Title: "PKS"},
	})

	errs := ValidateRuleGraph(g, testFamilies())
	assert.ElementsMatch(t, []string{
		ErrRuleNameEmpty,
		ErrEvaluatorIndex,
		ErrDuplicateRule,
		ErrRuleNoDomains,
		ErrUnknownType,
		ErrFilterNotRequired,
		ErrInvalidRename,
		ErrUnknownTitle,
		ErrDuplicateSibling,
	}, codesOf(errs))
}

func TestValidateRuleGraphSkipsTypesWithoutFamilies(t *testing.T) {
	g := ir.NewRuleGraph([]ir.Rule{{Name: "Odd", Domains: []string{"XX"}}}, []ir.Node{{Title: "Odd"}})
	assert.Empty(t, ValidateRuleGraph(g, nil))
	assert.Equal(t, []string{ErrUnknownType}, codesOf(ValidateRuleGraph(g, testFamilies())))
}

func TestValidateRuleGraphEmptyHierarchy(t *testing.T) {
	g := ir.NewRuleGraph([]ir.Rule{{Name: "PKS", Domains: []string{"KS"}}}, nil)
	assert.Equal(t, []string{ErrEmptyHierarchy}, codesOf(ValidateRuleGraph(g, nil)))
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "rules[PKS].evaluator", Message: "bad", Code: ErrEvaluatorIndex}
	assert.Equal(t, "[E204] rules[PKS].evaluator: bad", err.Error())

	joined := ValidationErrors{err, err}
	assert.Contains(t, joined.Error(), "2 validation error(s)")
}

func TestValidateAdjacency(t *testing.T) {
	assert.Empty(t, ValidateAdjacency(ir.DefaultAdjacencyRules()))
	errs := ValidateAdjacency([]ir.AdjacencyRule{{Name: "half", Representative: "C"}})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrAdjacencyIncomplete, errs[0].Code)
}
