package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/whatsapp"
)

// MessageStore is the tenant-table surface the writer needs.
type MessageStore interface {
	InsertMessage(message *models.Message) error
}

// TemplateEnvelope is the structured form serialized into the message
// column for template sends. RenderedBody is a display fallback with all
// placeholders substituted.
type TemplateEnvelope struct {
	IsTemplate   bool                    `json:"is_template"`
	Name         string                  `json:"name"`
	Language     string                  `json:"language"`
	Components   []whatsapp.ComponentObj `json:"components"`
	DynamicData  map[string]interface{}  `json:"dynamic_data"`
	RenderedBody string                  `json:"rendered_body"`
}

// paramFallback is the human-readable value of one caller parameter.
func paramFallback(p Param) string {
	switch p.Type {
	case "text":
		return p.Text
	case "currency":
		if p.Currency != nil {
			return p.Currency.FallbackValue
		}
	case "date_time":
		if p.DateTime != nil {
			return p.DateTime.FallbackValue
		}
	}
	return ""
}

// RenderBody substitutes {{n}} and {{name}} placeholders in the stored
// body text with the caller's fallback values.
func RenderBody(schema *TemplateSchema, bodyParams []Param) string {
	rendered := schema.BodyText
	for i, p := range bodyParams {
		value := paramFallback(p)
		rendered = strings.ReplaceAll(rendered, fmt.Sprintf("{{%d}}", i+1), value)
		if i < len(schema.BodyParamNames) {
			rendered = strings.ReplaceAll(rendered, "{{"+schema.BodyParamNames[i]+"}}", value)
		}
	}
	return rendered
}

// buildEnvelope serializes the template send for the message column.
func buildEnvelope(tmpl *models.Template, validated *ValidatedComponents) (string, error) {
	payload := templatePayload("", tmpl, validated)
	envelope := TemplateEnvelope{
		IsTemplate: true,
		Name:       tmpl.Name,
		Language:   tmpl.Language,
		Components: payload.Template.Components,
		DynamicData: map[string]interface{}{
			"header_params": validated.HeaderParams,
			"body_params":   validated.BodyParams,
			"buttons":       validated.ButtonInput,
		},
		RenderedBody: RenderBody(validated.Schema, validated.BodyParams),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Writer persists one row per successfully dispatched unit.
type Writer struct {
	repo MessageStore
	now  func() time.Time
}

func NewWriter(repo MessageStore) *Writer {
	return &Writer{repo: repo, now: time.Now}
}

// unit is one dispatched payload plus its local representation.
type unit struct {
	body      string
	mediaType string
	mediaURL  string
	caption   string
}

// Persist writes rows for the successful exec results, in submission
// order. It returns how many rows landed and annotates the per-unit
// results. Zero persisted rows after attempting all of them is a fatal
// accepted-but-unrecorded state.
func (w *Writer) Persist(customerID uint, units []unit, results []ExecResult) (int, []UnitResult, error) {
	stored := 0
	details := make([]UnitResult, 0, len(results))
	for _, res := range results {
		detail := UnitResult{Index: res.Index, MessageID: res.MessageID}
		if res.Err != nil {
			detail.Error = res.Err.Error()
			details = append(details, detail)
			continue
		}

		u := units[res.Index]
		row := &models.Message{
			CustomerID: customerID,
			Message:    u.body,
			Direction:  models.DirectionOutbound,
			Timestamp:  w.now(),
			IsRead:     true,
			MediaType:  u.mediaType,
			MediaURL:   u.mediaURL,
			Caption:    u.caption,
		}
		if err := w.repo.InsertMessage(row); err != nil {
			detail.Error = fmt.Sprintf("persist failed: %v", err)
			details = append(details, detail)
			continue
		}
		stored++
		detail.Stored = true
		details = append(details, detail)
	}

	if stored == 0 {
		return 0, details, &PersistenceError{
			Message: "no messages persisted: provider results were recorded but zero rows landed",
		}
	}
	return stored, details, nil
}
