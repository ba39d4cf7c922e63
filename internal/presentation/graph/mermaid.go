package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/formwork/pkg/schema"
)

// Overlay carries check results to visualize on the diagram.
type Overlay struct {
	Errors map[string]string
}

// GenerateMermaid produces a Mermaid flowchart of a definition. Each field is
// a node labelled with its rule chain:
// - Required: ([Stadium])
// - Remote lookup (unique): [[Subroutine]]
// - Default: [Rectangle]
// A "matches" rule draws an edge to the field it compares against. With an
// overlay, failing fields are styled invalid and the rest valid.
func GenerateMermaid(def *schema.Definition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, name := range def.FieldNames() {
		field := def.Fields[name]
		safeID := sanitizeMermaidID(name)

		opener, closer := "[", "]"
		types := make([]string, 0, len(field.Rules))
		for _, spec := range field.Rules {
			types = append(types, spec.Type)
		}
		switch {
		case contains(types, "unique"):
			opener, closer = "[[", "]]"
		case contains(types, "required"):
			opener, closer = "([", "])"
		}

		label := name
		if len(types) > 0 {
			label = fmt.Sprintf("%s <br/> %s", name, strings.Join(types, " → "))
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		for _, spec := range field.Rules {
			if spec.Type != "matches" {
				continue
			}
			other, _ := spec.Params["field"].(string)
			if other == "" {
				continue
			}
			sb.WriteString(fmt.Sprintf("    %s -. \"matches\" .-> %s\n", safeID, sanitizeMermaidID(other)))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef valid fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef invalid fill:#ffebee,stroke:#c62828,stroke-width:4px,color:#000;\n")
		for _, name := range def.FieldNames() {
			class := "valid"
			if overlay.Errors[name] != "" {
				class = "invalid"
			}
			sb.WriteString(fmt.Sprintf("    class %s %s;\n", sanitizeMermaidID(name), class))
		}
	}

	return sb.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
