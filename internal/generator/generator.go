package generator

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"ai-grocery-checklist/internal/llm"
	"ai-grocery-checklist/internal/shopping"
)

//go:embed system_prompt.md
var systemPrompt string

//go:embed task_prompt.md
var taskPrompt string

const agentName = "ListGenerator"

var (
	// ErrEmptyResponse is returned when the model replies with nothing but whitespace.
	ErrEmptyResponse = errors.New("received an empty response from the AI")
	// ErrMalformedResponse is returned when the reply does not decode as a grocery list.
	ErrMalformedResponse = errors.New("the AI response was not a valid grocery list")
)

// GenerationError is the single error kind surfaced by Generate. The
// underlying cause stays reachable through errors.Is / errors.As.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("Failed to generate grocery list: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ResponseSchema is the reply contract sent with every request: an array of
// {category, items} objects.
var ResponseSchema = &llm.Schema{
	Type: llm.TypeArray,
	Items: &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"category": {
				Type:        llm.TypeString,
				Description: "The category of the grocery items (e.g., Produce, Dairy & Eggs, Meat & Seafood, Pantry Staples, Frozen Foods, Bakery, Beverages, Household).",
			},
			"items": {
				Type:        llm.TypeArray,
				Description: "A list of grocery items belonging to this category.",
				Items: &llm.Schema{
					Type:        llm.TypeString,
					Description: "A single grocery item. Should be concise and clear.",
				},
			},
		},
		Required: []string{"category", "items"},
	},
}

// Generator turns free-form notes into a categorized grocery list with a
// single model call.
type Generator struct {
	textGen llm.TextGenerator
	tmpl    *template.Template
}

// New creates a Generator backed by textGen.
func New(textGen llm.TextGenerator) *Generator {
	return &Generator{
		textGen: textGen,
		tmpl:    template.Must(template.New("task").Parse(strings.TrimSpace(taskPrompt))),
	}
}

// Result is a generated list together with the usage of the call that produced it.
type Result struct {
	List shopping.List
	Meta llm.AgentMeta
}

// Generate issues exactly one request for rawText. Callers are expected to
// reject blank input before calling. The returned list is not re-validated;
// categories with no items are pruned later by the checklist on edits.
func (g *Generator) Generate(ctx context.Context, rawText string) (Result, error) {
	start := time.Now()

	req, err := g.BuildRequest(rawText)
	if err != nil {
		return Result{}, &GenerationError{Err: err}
	}

	resp, err := g.textGen.GenerateContent(ctx, req)
	meta := llm.AgentMeta{
		AgentName: agentName,
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}
	if err != nil {
		return Result{Meta: meta}, &GenerationError{Err: err}
	}

	list, err := ParseResponse(resp.Content)
	if err != nil {
		return Result{Meta: meta}, &GenerationError{Err: err}
	}

	return Result{List: list, Meta: meta}, nil
}

// BuildRequest assembles the system instruction, reply schema and task prompt.
func (g *Generator) BuildRequest(rawText string) (llm.Request, error) {
	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, struct{ UserInput string }{rawText}); err != nil {
		return llm.Request{}, fmt.Errorf("failed to build prompt: %w", err)
	}

	return llm.Request{
		SystemInstruction: strings.TrimSpace(systemPrompt),
		Prompt:            buf.String(),
		Schema:            ResponseSchema,
	}, nil
}

// ParseResponse decodes a raw model reply into a list.
func ParseResponse(content string) (shopping.List, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyResponse
	}

	var list shopping.List
	if err := json.Unmarshal([]byte(content), &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if list == nil {
		// A literal null decodes without error but is not a list.
		return nil, fmt.Errorf("%w: null", ErrMalformedResponse)
	}
	return list, nil
}
