package dispatch

import (
	"encoding/json"
	"regexp"
	"strings"

	"whatsapp-crm/internal/models"
)

// Header formats as stored by the provider.
const (
	headerFormatText     = "TEXT"
	headerFormatImage    = "IMAGE"
	headerFormatVideo    = "VIDEO"
	headerFormatDocument = "DOCUMENT"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([0-9]+|[A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// HeaderSchema describes a template's header component.
type HeaderSchema struct {
	Format        string
	Text          string
	ParamCount    int
	ExampleHandle string // sample media handle/link from the schema example
}

// IsMedia reports whether the header slot carries media instead of text.
func (h *HeaderSchema) IsMedia() bool {
	return h != nil && h.Format != headerFormatText
}

// ButtonSchema describes one declared template button.
type ButtonSchema struct {
	SubType string // url, quick_reply, phone_number (lowercased)
	Text    string
}

// TemplateSchema is the validator's view of a cached template definition.
type TemplateSchema struct {
	Name           string
	Language       string
	Header         *HeaderSchema
	BodyText       string
	BodyParamCount int
	BodyParamNames []string // named-parameter order; empty for positional
	FooterText     string
	Buttons        []ButtonSchema
}

// raw provider component shapes (loose; only the fields we read).
type rawComponent struct {
	Type    string      `json:"type"`
	Format  string      `json:"format"`
	Text    string      `json:"text"`
	Example *rawExample `json:"example"`
	Buttons []rawButton `json:"buttons"`
}

type rawExample struct {
	HeaderText            []string        `json:"header_text"`
	HeaderHandle          []string        `json:"header_handle"`
	BodyText              [][]string      `json:"body_text"`
	HeaderTextNamedParams []rawNamedParam `json:"header_text_named_params"`
	BodyTextNamedParams   []rawNamedParam `json:"body_text_named_params"`
}

type rawNamedParam struct {
	ParamName string `json:"param_name"`
	Example   string `json:"example"`
}

type rawButton struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ParseSchema decodes a cached template row's component JSON into the
// schema the validator checks caller input against.
func ParseSchema(tmpl *models.Template) (*TemplateSchema, error) {
	var components []rawComponent
	if err := json.Unmarshal([]byte(tmpl.Components), &components); err != nil {
		return nil, validationf("", "template %q has unreadable components: %v", tmpl.Name, err)
	}

	schema := &TemplateSchema{
		Name:     tmpl.Name,
		Language: tmpl.Language,
	}

	for _, comp := range components {
		switch strings.ToUpper(comp.Type) {
		case "HEADER":
			header := &HeaderSchema{
				Format: strings.ToUpper(comp.Format),
				Text:   comp.Text,
			}
			if header.Format == "" {
				header.Format = headerFormatText
			}
			if header.Format == headerFormatText {
				header.ParamCount = countPlaceholders(comp.Text)
				if comp.Example != nil && len(comp.Example.HeaderText) > header.ParamCount {
					header.ParamCount = len(comp.Example.HeaderText)
				}
			} else if comp.Example != nil && len(comp.Example.HeaderHandle) > 0 {
				header.ExampleHandle = comp.Example.HeaderHandle[0]
			}
			schema.Header = header
		case "BODY":
			schema.BodyText = comp.Text
			schema.BodyParamCount = countPlaceholders(comp.Text)
			if comp.Example != nil {
				if len(comp.Example.BodyTextNamedParams) > 0 {
					schema.BodyParamNames = nil
					for _, p := range comp.Example.BodyTextNamedParams {
						schema.BodyParamNames = append(schema.BodyParamNames, p.ParamName)
					}
					if len(schema.BodyParamNames) > schema.BodyParamCount {
						schema.BodyParamCount = len(schema.BodyParamNames)
					}
				} else if len(comp.Example.BodyText) > 0 && len(comp.Example.BodyText[0]) > schema.BodyParamCount {
					schema.BodyParamCount = len(comp.Example.BodyText[0])
				}
			}
			if len(schema.BodyParamNames) == 0 {
				schema.BodyParamNames = namedPlaceholders(comp.Text)
			}
		case "FOOTER":
			schema.FooterText = comp.Text
		case "BUTTONS":
			for _, b := range comp.Buttons {
				schema.Buttons = append(schema.Buttons, ButtonSchema{
					SubType: strings.ToLower(b.Type),
					Text:    b.Text,
				})
			}
		}
	}

	return schema, nil
}

// countPlaceholders counts distinct {{n}} / {{name}} placeholders.
func countPlaceholders(text string) int {
	seen := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		seen[m[1]] = true
	}
	return len(seen)
}

// namedPlaceholders returns non-numeric placeholder names in order of
// first appearance. Empty for purely positional templates.
func namedPlaceholders(text string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if name[0] >= '0' && name[0] <= '9' {
			continue
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
