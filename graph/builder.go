package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/repolens/repolens/llm"
	"github.com/repolens/repolens/parse"
	"github.com/repolens/repolens/source"
)

// Abstraction is one core component of the analyzed codebase.
type Abstraction struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Map is the architecture of a codebase distilled to its key
// abstractions and the labeled relations between them. Relation
// indices refer to positions in Abstractions.
type Map struct {
	Summary      string               `json:"summary"`
	Abstractions []Abstraction        `json:"abstractions"`
	Relations    []parse.Relationship `json:"relations"`
}

// abstractionPrompt asks for the core components of the codebase as a
// fenced YAML list. The model tends to follow the fenced example, but
// the parse layer tolerates bare and JSON answers too.
const abstractionPrompt = `For the project %s:

Codebase Context:
%s

Analyze the codebase context and identify the top 5-10 core abstractions: the components, layers, and concepts someone new to this codebase must understand first.

For each abstraction, provide:
1. A concise name.
2. A description of its purpose and responsibility in around 60 words.
3. A list of relevant file_indices in the format idx # path.

List of file indices and paths present in the context:
%s

Format the output as a YAML list of mappings:

` + "```yaml" + `
- name: |
    Request Router
  description: |
    Receives incoming HTTP requests and dispatches each one to the
    matching handler, applying shared middleware on the way through.
  file_indices:
    - 0 # server/router.go
    - 3 # server/middleware.go
- name: |
    Configuration Loader
  description: |
    Reads settings from files and environment variables and exposes
    them as one typed configuration object.
  file_indices:
    - 5 # config/config.go
` + "```" + `

Do not include any text outside the fenced YAML block.`

// relationshipPrompt asks for a project summary plus edges between the
// abstractions found by the first pass. Indices may be bare integers
// or "idx # Name" strings.
const relationshipPrompt = `Based on the following abstractions and code from the project %s:

List of Abstraction Indices and Names:
%s

Codebase Context:
%s

Please provide:
1. A high-level summary of the project's purpose and functionality in a few sentences.
2. A list (relationships) describing the key interactions between these abstractions. For each relationship, specify:
   - from_abstraction: index of the source abstraction (e.g. 0 # Request Router)
   - to_abstraction: index of the target abstraction
   - label: a brief verb phrase for the interaction (e.g. "Routes to", "Configures", "Persists via")

Every abstraction should appear in at least one relationship. Use only indices from the list above.

Format the output as YAML:

` + "```yaml" + `
summary: |
  A short explanation of what the project does and how the pieces fit.
relationships:
  - from_abstraction: 0 # Request Router
    to_abstraction: 1 # Configuration Loader
    label: "Reads settings from"
  - from_abstraction: 2 # Storage Layer
    to_abstraction: 0 # Request Router
    label: "Serves data to"
` + "```" + `

Do not include any text outside the fenced YAML block.`

// Builder derives an architecture map from collected source files
// through two chat passes: abstractions first, then relationships
// between them.
type Builder struct {
	chat llm.Provider
}

// NewBuilder creates an architecture map builder on the given chat
// provider.
func NewBuilder(p llm.Provider) *Builder {
	return &Builder{chat: p}
}

// Build asks the model for the project's core abstractions and the
// relations between them. A failed abstraction pass aborts the build;
// a failed relationship pass degrades to a map with synthetic edges so
// one flaky response cannot sink a whole analysis.
func (b *Builder) Build(ctx context.Context, project string, src source.Context) (*Map, error) {
	abstractions, err := b.identifyAbstractions(ctx, project, src)
	if err != nil {
		return nil, fmt.Errorf("abstraction pass: %w", err)
	}
	if len(abstractions) == 0 {
		return nil, fmt.Errorf("abstraction pass: model returned no abstractions")
	}
	slog.Info("graph: abstractions identified", "project", project, "count", len(abstractions))

	m := &Map{Abstractions: abstractions}

	g, err := b.analyzeRelationships(ctx, project, abstractions, src)
	if err != nil {
		slog.Warn("graph: relationship pass failed, using synthetic edges",
			"project", project, "error", err)
		g = parse.NormalizeRelationships(nil, len(abstractions))
	}
	m.Summary = g.Summary
	m.Relations = g.Details

	slog.Info("graph: map built", "project", project,
		"abstractions", len(m.Abstractions), "relations", len(m.Relations))
	return m, nil
}

func (b *Builder) identifyAbstractions(ctx context.Context, project string, src source.Context) ([]Abstraction, error) {
	prompt := fmt.Sprintf(abstractionPrompt, project, src.Text, src.Listing)

	resp, err := b.chat.Chat(ctx, llm.ChatRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("llm chat: %w", err)
	}

	v, err := parse.ParseResponse(resp.Content, parse.FormatYAML)
	if err != nil {
		return nil, err
	}
	return lowerAbstractions(parse.NormalizeAbstractions(v.Data)), nil
}

func (b *Builder) analyzeRelationships(ctx context.Context, project string, abstractions []Abstraction, src source.Context) (parse.Graph, error) {
	lines := make([]string, len(abstractions))
	for i, a := range abstractions {
		lines[i] = fmt.Sprintf("- %d # %s", i, a.Name)
	}
	prompt := fmt.Sprintf(relationshipPrompt, project, strings.Join(lines, "\n"), src.Text)

	resp, err := b.chat.Chat(ctx, llm.ChatRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0,
	})
	if err != nil {
		return parse.Graph{}, fmt.Errorf("llm chat: %w", err)
	}

	v, err := parse.ParseResponse(resp.Content, parse.FormatYAML)
	if err != nil {
		return parse.Graph{}, err
	}
	return parse.NormalizeRelationships(v.Data, len(abstractions)), nil
}

// lowerAbstractions reduces normalized mappings to typed records. A
// record without a usable name becomes "Component {i}" so indices in
// the relationship pass stay meaningful.
func lowerAbstractions(records []map[string]any) []Abstraction {
	out := make([]Abstraction, 0, len(records))
	for i, rec := range records {
		name := strings.TrimSpace(asString(rec["name"]))
		if name == "" {
			name = fmt.Sprintf("Component %d", i)
		}
		out = append(out, Abstraction{
			Name:        name,
			Description: strings.TrimSpace(asString(rec["description"])),
		})
	}
	return out
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
