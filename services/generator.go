package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Models served through the HF router's OpenAI-compatible endpoint.
const (
	mcqModel    = "openai/gpt-oss-20b:fireworks-ai"
	codingModel = "openai/gpt-oss-120b:together"
)

// ChatClient is the upstream text-generation collaborator. The generator
// only depends on getting a completion string back.
type ChatClient interface {
	Complete(ctx context.Context, model, prompt string, temperature float64) (string, error)
}

// HFRouterClient talks to the Hugging Face router's OpenAI-compatible
// chat-completions endpoint.
type HFRouterClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewHFRouterClient() *HFRouterClient {
	return &HFRouterClient{
		BaseURL: "https://router.huggingface.co/v1",
		Token:   os.Getenv("HF_TOKEN"),
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *HFRouterClient) Complete(ctx context.Context, model, prompt string, temperature float64) (string, error) {
	if c.Token == "" {
		return "", fmt.Errorf("HF_TOKEN is not set")
	}
	body, err := json.Marshal(map[string]interface{}{
		"model":       model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return parsed.Choices[0].Message.Content, nil
}

// MCQQuestion is one generated multiple-choice question with its answer key.
type MCQQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// CodingQuest is a generated coding problem with per-language signatures and
// hidden test cases. Parsing is best-effort: missing sections yield empty
// fields, never an error.
type CodingQuest struct {
	Problem            string            `json:"problem"`
	FunctionSignatures map[string]string `json:"function_signatures"`
	TestCases          []JudgeCase       `json:"test_cases"`
	Raw                string            `json:"-"`
}

type Generator struct {
	Chat ChatClient
}

func NewGenerator(chat ChatClient) *Generator {
	return &Generator{Chat: chat}
}

// GenerateMCQs asks the model for `count` questions scoped to one level of a
// topic. Output that is not the expected strict JSON degrades to a naive
// line-based fallback rather than failing the request.
func (g *Generator) GenerateMCQs(ctx context.Context, title, description string, level, count int) ([]MCQQuestion, error) {
	prompt := fmt.Sprintf(`
You are a quiz generator. Create %d multiple-choice questions (MCQs) for a topic.
Topic Title: %s
Level: %d
Scope/Description: %s

Rules:
- Output strict JSON with this shape only:
{"questions":[{"question":"...","options":["...","...","...","..."],"correctAnswer":"one of the options exactly"}]}
- 1 correct answer per question. 4 options per question.
- Keep questions concise and focused on the scope.
- Do NOT include any explanation. No markdown.
`, count, title, level, description)

	content, err := g.Chat.Complete(ctx, mcqModel, prompt, 0.4)
	if err != nil {
		return nil, err
	}
	return ParseMCQs(content, count), nil
}

// ParseMCQs interprets model output as the strict JSON question envelope,
// falling back to one question per line when the model did not comply.
func ParseMCQs(content string, count int) []MCQQuestion {
	var envelope struct {
		Questions []MCQQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err == nil {
		out := make([]MCQQuestion, 0, len(envelope.Questions))
		for _, q := range envelope.Questions {
			if q.Question == "" || len(q.Options) < 2 || q.CorrectAnswer == "" {
				continue
			}
			if len(q.Options) > 4 {
				q.Options = q.Options[:4]
			}
			out = append(out, q)
		}
		return out
	}

	log.Printf("⚠️  MCQ generation did not return strict JSON, falling back to naive parsing")
	var out []MCQQuestion
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(out) >= count {
			continue
		}
		line = leadingNumber.ReplaceAllString(line, "")
		if len(line) > 140 {
			line = line[:140]
		}
		out = append(out, MCQQuestion{
			Question:      line,
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: "A",
		})
	}
	return out
}

var leadingNumber = regexp.MustCompile(`^\d+\.?\s*`)

// GenerateCodingQuest asks the model for a level-scoped coding problem in
// the fixed Problem / Function Signatures / Test Cases format.
func (g *Generator) GenerateCodingQuest(ctx context.Context, title string, level int, scope string) (*CodingQuest, error) {
	if scope == "" {
		scope = "General"
	}
	prompt := fmt.Sprintf(`
Generate a LeetCode-style coding question for the topic "%s".
Constraints:
- Level: %d
- Scope/Description: %s

Use EXACTLY this format (no markdown, no backticks):

Problem:
<problem description only, no test cases, no function signature>

Function Signatures:
Python: <python signature>
C++: <c++ signature>
Java: <java signature>

Test Cases:
Input: <input1 in JSON format>
Expected: <expected1 in JSON format>
Explanation: <explanation1>

Input: <input2 in JSON format>
Expected: <expected2 in JSON format>
Explanation: <explanation2>

Input/Output JSON rules:
- ALWAYS include sizes for arrays/strings/matrices.
  - 1D array: {"n": <length>, "nums": [...]}
  - 2D matrix: {"rows": <R>, "cols": <C>, "matrix": [[...],[...]]}
  - String: {"n": <length>, "s": "..."}
- ORDER keys in the JSON so sizes appear before data (stdin reading order).
- Keep all Input and Expected strictly valid JSON. No markdown, no backticks.
`, title, level, scope)

	content, err := g.Chat.Complete(ctx, codingModel, prompt, 0.25)
	if err != nil {
		return nil, err
	}
	return ParseCodingQuest(content), nil
}

var (
	problemSection    = regexp.MustCompile(`(?is)Problem:\s*(.*?)(?:\s*Function Signatures:|$)`)
	signaturesSection = regexp.MustCompile(`(?is)Function Signatures:(.*?)(?:\s*Test Cases:|$)`)
	testCasesSection  = regexp.MustCompile(`(?is)Test Cases:\s*(.*)`)
	pythonSig         = regexp.MustCompile(`(?is)Python:\s*(.*?)\s*(?:C\+\+:|Java:|$)`)
	cppSig            = regexp.MustCompile(`(?is)C\+\+:?\s*(.*?)\s*(?:Java:|Python:|$)`)
	javaSig           = regexp.MustCompile(`(?is)Java:\s*(.*?)\s*(?:Python:|C\+\+:|$)`)
	caseFields        = regexp.MustCompile(`(?s)^\s*(.*?)\nExpected:\s*(.*?)\nExplanation:\s*(.*)$`)
)

// ParseCodingQuest extracts the structured quest from raw model output.
// Missing sections come back empty — callers tolerate partial generation.
func ParseCodingQuest(output string) *CodingQuest {
	output = strings.ReplaceAll(output, "**", "")
	output = strings.ReplaceAll(output, "`", "")
	output = strings.TrimSpace(output)

	quest := &CodingQuest{
		FunctionSignatures: map[string]string{},
		TestCases:          []JudgeCase{},
		Raw:                output,
	}

	if m := problemSection.FindStringSubmatch(output); m != nil {
		quest.Problem = strings.TrimSpace(m[1])
	}

	if m := signaturesSection.FindStringSubmatch(output); m != nil {
		block := strings.TrimSpace(m[1])
		for lang, re := range map[string]*regexp.Regexp{"Python": pythonSig, "CPP": cppSig, "Java": javaSig} {
			if sm := re.FindStringSubmatch(block); sm != nil && strings.TrimSpace(sm[1]) != "" {
				quest.FunctionSignatures[lang] = strings.TrimSpace(sm[1])
			}
		}
	}

	if m := testCasesSection.FindStringSubmatch(output); m != nil {
		block := m[1]
		chunks := strings.Split(block, "Input:")
		for _, chunk := range chunks {
			fields := caseFields.FindStringSubmatch(chunk)
			if fields == nil {
				continue
			}
			quest.TestCases = append(quest.TestCases, JudgeCase{
				Input:       SanitizeInputJSON(strings.TrimSpace(fields[1])),
				Expected:    strings.TrimSpace(fields[2]),
				Explanation: strings.TrimSpace(fields[3]),
			})
		}
	}

	return quest
}

// SanitizeInputJSON repairs generated test inputs: size fields (n, rows,
// cols) are recomputed from the actual data and reordered to come before it,
// matching the stdin reading order candidate programs rely on. Non-JSON or
// non-object inputs pass through untouched.
func SanitizeInputJSON(s string) string {
	v, err := parseOrderedJSON(strings.TrimSpace(s))
	if err != nil || v.kind != jsonObject {
		return s
	}

	child := func(key string) *jsonValue {
		for i, k := range v.keys {
			if k == key {
				return &v.items[i]
			}
		}
		return nil
	}

	sizes := make(map[string]int)
	for _, key := range []string{"nums", "arr", "array"} {
		if c := child(key); c != nil && c.kind == jsonArray {
			sizes["n"] = len(c.items)
			break
		}
	}
	if c := child("s"); c != nil && c.kind == jsonScalar && c.wasString {
		sizes["n"] = len(c.scalar)
	}
	if c := child("matrix"); c != nil && c.kind == jsonArray && len(c.items) > 0 && c.items[0].kind == jsonArray {
		sizes["rows"] = len(c.items)
		sizes["cols"] = len(c.items[0].items)
	}

	var b strings.Builder
	b.WriteByte('{')
	first := true
	writeField := func(key, rawValue string) {
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(strconv.Quote(key))
		b.WriteByte(':')
		b.WriteString(rawValue)
	}
	for _, key := range []string{"n", "rows", "cols"} {
		if n, ok := sizes[key]; ok {
			writeField(key, strconv.Itoa(n))
		}
	}
	for i, key := range v.keys {
		if _, computed := sizes[key]; computed {
			continue
		}
		writeField(key, v.items[i].stringify())
	}
	b.WriteByte('}')
	return b.String()
}
