package services

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}
}

func TestEvaluate_PythonPassAndFail(t *testing.T) {
	requirePython(t)
	judge := NewCodeJudge()

	code := `
n = int(input())
nums = list(map(int, input().split())) if n > 0 else []
print(sum(nums))
`
	cases := []JudgeCase{
		{Input: `{"n":3,"nums":[1,2,3]}`, Expected: `6`},
		{Input: `{"n":2,"nums":[5,5]}`, Expected: `11`}, // wrong on purpose
	}

	results := judge.Evaluate(context.Background(), code, "python", cases)
	require.Len(t, results, 2)
	assert.True(t, results[0].Passed)
	assert.Equal(t, "6", results[0].Output)
	assert.Empty(t, results[0].Error)
	assert.False(t, results[1].Passed)
	assert.Equal(t, "10", results[1].Output)
}

func TestEvaluate_RuntimeErrorAbsorbedPerCase(t *testing.T) {
	requirePython(t)
	judge := NewCodeJudge()

	code := `
n = int(input())
if n == 0:
    raise RuntimeError("boom")
print(n)
`
	cases := []JudgeCase{
		{Input: `1`, Expected: `1`},
		{Input: `0`, Expected: `0`},
	}

	results := judge.Evaluate(context.Background(), code, "python", cases)
	require.Len(t, results, 2)
	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)
	assert.Contains(t, results[1].Error, "boom")
}

func TestEvaluate_UnsupportedLanguage(t *testing.T) {
	judge := NewCodeJudge()

	results := judge.Evaluate(context.Background(), "print(1)", "cobol", []JudgeCase{
		{Input: `1`, Expected: `1`},
		{Input: `2`, Expected: `2`},
	})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Passed)
		assert.Contains(t, r.Error, "unsupported language")
	}
}

func TestEvaluate_NormalizesJSONOutput(t *testing.T) {
	requirePython(t)
	judge := NewCodeJudge()

	// Program prints a bare row; expected is a JSON array.
	code := `
n = int(input())
nums = list(map(int, input().split()))
print(nums[0], nums[1])
`
	results := judge.Evaluate(context.Background(), code, "python", []JudgeCase{
		{Input: `{"n":2,"nums":[4,9]}`, Expected: `[4,9]`},
	})
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
}
