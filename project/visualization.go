package project

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"regexp"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/invopop/jsonschema"

	"github.com/nadavsuissa/AiChatManager1/errors"
)

type VisualizationType string

const (
	VisualizationPie   VisualizationType = "pie"
	VisualizationBar   VisualizationType = "bar"
	VisualizationLine  VisualizationType = "line"
	VisualizationTable VisualizationType = "table"
)

type (
	Visualization struct {
		Title       string            `json:"title" jsonschema:"required" jsonschema_description:"Short chart title"`
		Type        VisualizationType `json:"type" jsonschema:"required,enum=pie,enum=bar,enum=line,enum=table"`
		Description string            `json:"description" jsonschema_description:"What the chart shows"`
		// Data holds labels/datasets for charts and headers/rows for tables.
		Data map[string]any `json:"data" jsonschema:"required"`
	}

	Suggestions struct {
		Visualizations []Visualization `json:"visualizations" jsonschema:"required"`
	}
)

var (
	//go:embed data/visualizations.md.tmpl
	visualizationPrompt     string
	visualizationPromptTmpl = template.Must(template.New("visualizationPrompt").Funcs(sprig.TxtFuncMap()).Parse(visualizationPrompt))

	visualizationFocus = []string{
		"תקציבים וחלוקתם (לפי סעיפים, קבלנים, שלבים וכו').",
		"מדדי כוח אדם (אם זמין בקבצים).",
		"מעקב אחר יעדים וקצב התקדמות (לפי משימות, אבני דרך, לו\"ז).",
		"חלוקות של שטחים והשוואות בין אזורים/מגרשים/קומות (אם רלוונטי מהקבצים).",
		"מדדי ביצוע מרכזיים (KPIs) אחרים הרלוונטיים לניהול פרויקט בנייה שניתן להסיק מהנתונים.",
	}

	fencedJSON          = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	plainJSON           = regexp.MustCompile(`(?s)\{.*\}`)
	trailingObjectComma = regexp.MustCompile(`,\s*\}`)
	trailingArrayComma  = regexp.MustCompile(`,\s*]`)
)

const emptySuggestions = `{"visualizations": []}`

func SuggestionsSchema() (string, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema, err := json.MarshalIndent(r.Reflect(&Suggestions{}), "", "  ")
	if err != nil {
		return "", errors.Wrapf(err, "failed to marshal visualization schema")
	}
	return string(schema), nil
}

func RenderVisualizationPrompt() (string, error) {
	schema, err := SuggestionsSchema()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := visualizationPromptTmpl.Execute(&buf, map[string]any{
		"Focus":  visualizationFocus,
		"Kinds":  []string{string(VisualizationPie), string(VisualizationBar), string(VisualizationLine), string(VisualizationTable)},
		"Schema": schema,
	}); err != nil {
		return "", errors.Wrapf(err, "failed to render visualization prompt")
	}
	return strings.TrimSpace(buf.String()), nil
}

// ParseSuggestions extracts the suggestions object from free assistant text.
// A payload without a visualizations list decodes to an empty list; text
// with no recognizable object is ErrInvalidResponse.
func ParseSuggestions(text string) (*Suggestions, error) {
	payload, ok := extractJSON(text)
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidResponse, "no JSON object found in assistant response")
	}
	payload = trailingObjectComma.ReplaceAllString(payload, "}")
	payload = trailingArrayComma.ReplaceAllString(payload, "]")

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidResponse, "failed to decode assistant response: %v", err)
	}

	suggestions := &Suggestions{Visualizations: []Visualization{}}
	raw, ok := fields["visualizations"]
	if !ok {
		return suggestions, nil
	}

	var visualizations []Visualization
	if err := json.Unmarshal(raw, &visualizations); err != nil || visualizations == nil {
		return suggestions, nil
	}
	suggestions.Visualizations = visualizations
	return suggestions, nil
}

func extractJSON(text string) (string, bool) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	if m := plainJSON.FindString(text); m != "" {
		return m, true
	}
	if strings.Contains(text, `"visualizations": []`) {
		return emptySuggestions, true
	}
	return "", false
}
