package content

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

var (
	frontMatterRe = regexp.MustCompile(`(?s)\A---[ \t]*\r?\n(.*?)\r?\n---[ \t]*(?:\r?\n|\z)`)
	wikiLinkRe    = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

	// markdownStripper removes heading, emphasis, code, and bracket marks.
	markdownStripper = strings.NewReplacer("#", "", "*", "", "_", "", "`", "", "[", "", "]", "")
)

// extractMarkdown builds content from a Markdown note. An optional YAML
// front matter block supplies metadata, tags, keywords, and a fallback
// title. The body is a lossy plain-text rendering of the rest.
func extractMarkdown(data []byte) *ProcessedContent {
	fm, rest := splitFrontMatter(data)
	pc := &ProcessedContent{
		Metadata: map[string]any{},
	}

	if len(fm) > 0 {
		meta, err := parseFrontMatter(fm)
		if err != nil {
			slog.Debug("front_matter_unparsed", slog.String("error", err.Error()))
			rest = data
		} else {
			pc.Metadata = meta
			pc.Tags = stringList(meta["tags"])
			pc.Keywords = stringList(meta["keywords"])
		}
	}

	raw := string(rest)
	if line := firstLine(raw); strings.HasPrefix(line, "#") {
		pc.Title = strings.TrimSpace(strings.TrimLeft(line, "#"))
	} else if s, ok := pc.Metadata["title"].(string); ok {
		pc.Title = s
	}

	pc.References = extractReferences(rest)
	pc.Body = strings.ReplaceAll(markdownStripper.Replace(raw), "()", "")

	return pc
}

// splitFrontMatter returns the YAML block (without fences) and the
// remaining document.
func splitFrontMatter(data []byte) ([]byte, []byte) {
	loc := frontMatterRe.FindSubmatchIndex(data)
	if loc == nil {
		return nil, data
	}
	return data[loc[2]:loc[3]], data[loc[1]:]
}

// parseFrontMatter flattens a YAML mapping: scalars become strings and
// sequences of scalars become string slices. Nested mappings are skipped.
func parseFrontMatter(fm []byte) (map[string]any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(fm, &doc); err != nil {
		return nil, err
	}

	result := map[string]any{}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return result, nil
	}
	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return result, nil
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i].Value
		value := mapping.Content[i+1]
		switch value.Kind {
		case yaml.ScalarNode:
			result[key] = value.Value
		case yaml.SequenceNode:
			items := make([]any, 0, len(value.Content))
			for _, child := range value.Content {
				if child.Kind == yaml.ScalarNode {
					items = append(items, child.Value)
				}
			}
			result[key] = items
		}
	}
	return result, nil
}

// extractReferences collects link destinations and [[wiki]] targets in
// document order, without duplicates.
func extractReferences(source []byte) []string {
	seen := make(map[string]struct{})
	var refs []string
	add := func(ref string) {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return
		}
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}

	doc := goldmark.DefaultParser().Parse(text.NewReader(source))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			add(string(node.Destination))
		case *ast.AutoLink:
			add(string(node.URL(source)))
		}
		return ast.WalkContinue, nil
	})

	for _, m := range wikiLinkRe.FindAllSubmatch(source, -1) {
		target, _, _ := strings.Cut(string(m[1]), "|")
		add(target)
	}

	return refs
}
