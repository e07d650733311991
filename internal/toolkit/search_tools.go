package toolkit

import (
	"bufio"
	"bytes"
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/haasonsaas/agent-engine/internal/workspace"
	"github.com/haasonsaas/agent-engine/pkg/models"
)

// SearchCodeTool performs a literal/regex line search across the
// workspace, bounded by max_matches.
type SearchCodeTool struct{}

func (t *SearchCodeTool) Name() models.ActionType { return models.ActionSearchCode }

func (t *SearchCodeTool) Schema() string {
	return `{"type":"object","required":["query"],"properties":{
  "query":{"type":"string"},"root":{"type":"string"},"max_matches":{"type":"integer","minimum":1}
}}`
}

func (t *SearchCodeTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	query, _ := input["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, invalidInput("query is required")
	}
	root, _ := input["root"].(string)
	if root == "" {
		root = "."
	}
	maxMatches := 200
	if v, ok := input["max_matches"].(float64); ok && v > 0 {
		maxMatches = int(v)
	}

	pattern, err := regexp.Compile(regexp.QuoteMeta(query))
	if err != nil {
		return nil, invalidInput("invalid query: %v", err)
	}

	type match struct {
		Path string `json:"path"`
		Line int    `json:"line"`
		Text string `json:"text"`
	}
	var matches []match

	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := fs.List(dir)
		if err != nil {
			return wrapPathError(err)
		}
		for _, e := range entries {
			if len(matches) >= maxMatches {
				return nil
			}
			if e.IsDir {
				if err := walk(e.Path); err != nil {
					return err
				}
				continue
			}
			data, err := fs.Read(e.Path)
			if err != nil {
				continue
			}
			if isBinary(data) {
				continue
			}
			scanner := bufio.NewScanner(bytes.NewReader(data))
			lineNo := 0
			for scanner.Scan() {
				lineNo++
				if pattern.MatchString(scanner.Text()) {
					matches = append(matches, match{Path: e.Path, Line: lineNo, Text: scanner.Text()})
					if len(matches) >= maxMatches {
						break
					}
				}
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}

	return map[string]any{"query": query, "matches": matches}, nil
}

func isBinary(data []byte) bool {
	limit := len(data)
	if limit > 512 {
		limit = 512
	}
	return bytes.IndexByte(data[:limit], 0) >= 0
}

// ExtractSymbolsTool extracts top-level declaration names from a single
// file using a lightweight regex scan, good enough for Go/JS/TS/Python.
type ExtractSymbolsTool struct{}

func (t *ExtractSymbolsTool) Name() models.ActionType { return models.ActionExtractSymbols }

func (t *ExtractSymbolsTool) Schema() string {
	return `{"type":"object","required":["path"],"properties":{"path":{"type":"string"}}}`
}

var symbolPatterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"func", regexp.MustCompile(`^func\s+(?:\([^)]*\)\s+)?([A-Za-z0-9_]+)`)},
	{"type", regexp.MustCompile(`^type\s+([A-Za-z0-9_]+)`)},
	{"class", regexp.MustCompile(`^(?:export\s+)?class\s+([A-Za-z0-9_]+)`)},
	{"function", regexp.MustCompile(`^(?:export\s+)?function\s+([A-Za-z0-9_]+)`)},
	{"def", regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z0-9_]+)`)},
}

func (t *ExtractSymbolsTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	path, _ := input["path"].(string)
	if strings.TrimSpace(path) == "" {
		return nil, invalidInput("path is required")
	}
	data, err := fs.Read(path)
	if err != nil {
		return nil, wrapPathError(err)
	}

	type symbol struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
		Line int    `json:"line"`
	}
	var symbols []symbol

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		trimmed := strings.TrimSpace(scanner.Text())
		for _, p := range symbolPatterns {
			if m := p.re.FindStringSubmatch(trimmed); m != nil {
				symbols = append(symbols, symbol{Name: m[1], Kind: p.kind, Line: lineNo})
				break
			}
		}
	}

	return map[string]any{"symbols": symbols}, nil
}

// AnalyzeDependenciesTool extracts import statements from a single file.
type AnalyzeDependenciesTool struct{}

func (t *AnalyzeDependenciesTool) Name() models.ActionType { return models.ActionAnalyzeDeps }

func (t *AnalyzeDependenciesTool) Schema() string {
	return `{"type":"object","required":["path"],"properties":{"path":{"type":"string"}}}`
}

var importPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*"([^"]+)"\s*$`),
	regexp.MustCompile(`^import\s+\(?\s*"([^"]+)"`),
	regexp.MustCompile(`^import\s+.*from\s+['"]([^'"]+)['"]`),
	regexp.MustCompile(`^from\s+([A-Za-z0-9_.]+)\s+import`),
	regexp.MustCompile(`^import\s+([A-Za-z0-9_.]+)`),
}

func (t *AnalyzeDependenciesTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	path, _ := input["path"].(string)
	if strings.TrimSpace(path) == "" {
		return nil, invalidInput("path is required")
	}
	data, err := fs.Read(path)
	if err != nil {
		return nil, wrapPathError(err)
	}

	seen := map[string]bool{}
	var deps []string
	inImportBlock := false

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "import (") {
			inImportBlock = true
			continue
		}
		if inImportBlock && trimmed == ")" {
			inImportBlock = false
			continue
		}
		for _, re := range importPatterns {
			if m := re.FindStringSubmatch(trimmed); m != nil {
				dep := m[1]
				if !seen[dep] {
					seen[dep] = true
					deps = append(deps, dep)
				}
				break
			}
		}
	}
	sort.Strings(deps)

	return map[string]any{"path": path, "dependencies": deps}, nil
}

// SummarizeContextTool asks the planner's own summarization step to
// condense free-form input; this tool does no I/O itself, it simply
// normalizes input into a single summary field the planner can pass
// through an actual LLM call if it chooses to (the tool's job is just to
// validate the shape of a summarize_context action).
type SummarizeContextTool struct{}

func (t *SummarizeContextTool) Name() models.ActionType { return models.ActionSummarizeContext }

func (t *SummarizeContextTool) Schema() string {
	return `{"type":"object"}`
}

func (t *SummarizeContextTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	summary, _ := input["summary"].(string)
	if summary == "" {
		summary, _ = input["content"].(string)
	}
	return map[string]any{"summary": summary}, nil
}

// ProposeSubplanTool echoes a free-form subplan the planner proposed for
// human or downstream review; like summarize_context, it performs no I/O.
type ProposeSubplanTool struct{}

func (t *ProposeSubplanTool) Name() models.ActionType { return models.ActionProposeSubplan }

func (t *ProposeSubplanTool) Schema() string {
	return `{"type":"object"}`
}

func (t *ProposeSubplanTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	plan, _ := input["plan"].(string)
	return map[string]any{"plan": plan}, nil
}
