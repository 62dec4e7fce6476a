package services

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// judgeTimeout bounds each test case's wall-clock execution; the process is
// killed on expiry and only that case is reported as timed out.
const judgeTimeout = 8 * time.Second

// JudgeCase is one hidden test case given to the judge.
type JudgeCase struct {
	Input       string `json:"input"`
	Expected    string `json:"expected"`
	Explanation string `json:"explanation,omitempty"`
}

// TestResult is the judge's verdict for one case. Results come back in the
// same order and length as the input cases; failures (compile, runtime,
// timeout) are absorbed per case rather than aborting the batch.
type TestResult struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Output   string `json:"output"`
	Passed   bool   `json:"passed"`
	Error    string `json:"error,omitempty"`
}

// CodeJudge compiles and runs candidate programs against test cases,
// feeding each case's flattened input over stdin and comparing normalized
// stdout against the normalized expected value.
type CodeJudge struct {
	PythonBin string
}

func NewCodeJudge() *CodeJudge {
	py := os.Getenv("PYTHON_BIN")
	if py == "" {
		py = "python3"
	}
	return &CodeJudge{PythonBin: py}
}

// Evaluate runs code against all cases. The returned slice always matches
// the cases slice in length and order.
func (j *CodeJudge) Evaluate(ctx context.Context, code, language string, cases []JudgeCase) []TestResult {
	results := make([]TestResult, 0, len(cases))

	argv, cleanup, err := j.prepare(code, language)
	defer cleanup()
	if err != nil {
		for _, tc := range cases {
			results = append(results, TestResult{
				Input:    tc.Input,
				Expected: NormalizeExpected(tc.Expected),
				Passed:   false,
				Error:    err.Error(),
			})
		}
		return results
	}

	for _, tc := range cases {
		stdin := FormatStdin(tc.Input)
		output, runErr := runWithStdin(ctx, argv, stdin)

		actual := NormalizeOutput(output)
		expected := NormalizeExpected(tc.Expected)
		results = append(results, TestResult{
			Input:    tc.Input,
			Expected: expected,
			Output:   actual,
			Passed:   runErr == "" && actual == expected,
			Error:    runErr,
		})
	}
	return results
}

var javaClassDecl = regexp.MustCompile(`public class .+\{`)

// prepare writes the candidate source to a temp file and compiles it if the
// language needs it. The returned cleanup removes every artifact.
func (j *CodeJudge) prepare(code, language string) (argv []string, cleanup func(), err error) {
	dir := os.TempDir()
	var files []string
	cleanup = func() {
		for _, f := range files {
			os.Remove(f)
		}
	}

	switch language {
	case "python":
		file := filepath.Join(dir, fmt.Sprintf("q_%s.py", uuid.NewString()))
		if err := os.WriteFile(file, []byte(code), 0o644); err != nil {
			return nil, cleanup, fmt.Errorf("failed to write source: %w", err)
		}
		files = append(files, file)
		return []string{j.PythonBin, file}, cleanup, nil

	case "cpp":
		file := filepath.Join(dir, fmt.Sprintf("q_%s.cpp", uuid.NewString()))
		bin := strings.TrimSuffix(file, ".cpp")
		if err := os.WriteFile(file, []byte(code), 0o644); err != nil {
			return nil, cleanup, fmt.Errorf("failed to write source: %w", err)
		}
		files = append(files, file, bin)
		out, err := exec.Command("g++", file, "-o", bin).CombinedOutput()
		if err != nil {
			return nil, cleanup, fmt.Errorf("compilation failed: %s", strings.TrimSpace(string(out)))
		}
		return []string{bin}, cleanup, nil

	case "java":
		className := fmt.Sprintf("Q%d", rand.Intn(100000))
		file := filepath.Join(dir, className+".java")
		// The public class must match the file name.
		source := code
		if loc := javaClassDecl.FindStringIndex(source); loc != nil {
			source = source[:loc[0]] + "public class " + className + "{" + source[loc[1]:]
		}
		if err := os.WriteFile(file, []byte(source), 0o644); err != nil {
			return nil, cleanup, fmt.Errorf("failed to write source: %w", err)
		}
		files = append(files, file, filepath.Join(dir, className+".class"))
		out, err := exec.Command("javac", file).CombinedOutput()
		if err != nil {
			return nil, cleanup, fmt.Errorf("compilation failed: %s", strings.TrimSpace(string(out)))
		}
		return []string{"java", "-cp", dir, className}, cleanup, nil
	}

	return nil, cleanup, fmt.Errorf("unsupported language: %s", language)
}

// runWithStdin executes one case under the judge timeout. The second return
// is the error message, empty when the run was clean.
func runWithStdin(parent context.Context, argv []string, stdin string) (string, string) {
	ctx, cancel := context.WithTimeout(parent, judgeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return stdout.String(), fmt.Sprintf("Timed out after %s", judgeTimeout)
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.String(), msg
		}
		return stdout.String(), err.Error()
	}
	return stdout.String(), ""
}
