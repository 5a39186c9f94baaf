package schema

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// Annotations is the set of doc-comment directives recognized on a handler
// file's package doc comment or on the doc comment of any top-level
// declaration, per spec.md §4.1 precedence (c).
type Annotations struct {
	Description    string
	Summary        string
	Tags           []string
	ResponseSchema map[string]interface{}
	Params         []ParamAnnotation
}

// ParamAnnotation is one `@param name type required description` directive.
type ParamAnnotation struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// ParseAnnotations scans a handler's Go source for @description, @summary,
// @tags, @responseSchema and @param comment directives. Parse or directive
// errors are never fatal: malformed bodies are dropped and the zero value
// (later defaulted by Extract) is used, per spec.md §4.1 "Error condition".
func ParseAnnotations(filePath string, src []byte) (Annotations, []string) {
	var warnings []string
	var out Annotations

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, src, parser.ParseComments)
	if err != nil {
		return out, []string{"failed to parse source for annotations: " + err.Error()}
	}

	var docGroups []*ast.CommentGroup
	if file.Doc != nil {
		docGroups = append(docGroups, file.Doc)
	}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Doc != nil {
				docGroups = append(docGroups, d.Doc)
			}
		case *ast.FuncDecl:
			if d.Doc != nil {
				docGroups = append(docGroups, d.Doc)
			}
		}
	}

	for _, group := range docGroups {
		for _, line := range group.List {
			text := strings.TrimSpace(strings.TrimPrefix(line.Text, "//"))
			if !strings.HasPrefix(text, "@") {
				continue
			}
			w := applyDirective(&out, text)
			if w != "" {
				warnings = append(warnings, w)
			}
		}
	}

	return out, warnings
}

func applyDirective(out *Annotations, line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	directive := fields[0]
	rest := strings.TrimSpace(strings.TrimPrefix(line, directive))

	switch directive {
	case "@description":
		out.Description = rest
	case "@summary":
		out.Summary = rest
	case "@tags":
		out.Tags = splitTags(rest)
	case "@responseSchema":
		// A minimal inline form: "@responseSchema field1:type field2", one
		// space-separated property per field, typed string when ":type" is
		// omitted. An empty body is recorded as a warning and ignored, never
		// failing extraction (spec.md §4.1 "Error condition").
		schema, ok := parseInlineResponseSchema(rest)
		if !ok {
			return "invalid @responseSchema body, using default: " + rest
		}
		out.ResponseSchema = schema
	case "@param":
		p, ok := parseParamDirective(rest)
		if !ok {
			return "invalid @param body, ignoring: " + rest
		}
		out.Params = append(out.Params, p)
	}
	return ""
}

func splitTags(rest string) []string {
	rest = strings.ReplaceAll(rest, ",", " ")
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func parseInlineResponseSchema(rest string) (map[string]interface{}, bool) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil, false
	}
	props := map[string]interface{}{}
	for _, f := range fields {
		name, typ, ok := strings.Cut(f, ":")
		if !ok {
			typ = "string"
			name = f
		}
		props[name] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{"type": "object", "properties": props}, true
}

func parseParamDirective(rest string) (ParamAnnotation, bool) {
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return ParamAnnotation{}, false
	}
	p := ParamAnnotation{Name: fields[0], Type: fields[1]}
	for _, f := range fields[2:] {
		if f == "required" {
			p.Required = true
		} else {
			if p.Description != "" {
				p.Description += " "
			}
			p.Description += f
		}
	}
	return p, true
}
