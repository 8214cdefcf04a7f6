package dispatch

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/whatsapp"
)

// fakeMessageStore collects inserted rows, optionally failing.
type fakeMessageStore struct {
	rows []models.Message
	err  error
}

func (f *fakeMessageStore) InsertMessage(message *models.Message) error {
	if f.err != nil {
		return f.err
	}
	message.ID = uint(len(f.rows) + 1)
	f.rows = append(f.rows, *message)
	return nil
}

func fixedWriter(store MessageStore) *Writer {
	w := NewWriter(store)
	w.now = func() time.Time { return time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC) }
	return w
}

func TestRenderBodyPositional(t *testing.T) {
	t.Parallel()

	schema := &TemplateSchema{BodyText: "Hi {{1}}, your order {{2}} shipped."}
	got := RenderBody(schema, []Param{
		{Type: "text", Text: "Ana"},
		{Type: "text", Text: "A-1"},
	})
	assert.Equal(t, "Hi Ana, your order A-1 shipped.", got)
}

func TestRenderBodyNamedAndFallbacks(t *testing.T) {
	t.Parallel()

	schema := &TemplateSchema{
		BodyText:       "Total {{amount}}, due {{due}}",
		BodyParamNames: []string{"amount", "due"},
	}
	got := RenderBody(schema, []Param{
		{Type: "currency", Currency: &whatsapp.CurrencyObj{FallbackValue: "$10.00", Code: "USD", Amount1000: 10000}},
		{Type: "date_time", DateTime: &whatsapp.DateTimeObj{FallbackValue: "tomorrow"}},
	})
	assert.Equal(t, "Total $10.00, due tomorrow", got)
}

func TestPersistRowsForSuccessfulUnits(t *testing.T) {
	t.Parallel()

	store := &fakeMessageStore{}
	writer := fixedWriter(store)

	units := []unit{
		{mediaType: models.MediaImage, mediaURL: "https://store/a.jpg", caption: "one"},
		{mediaType: models.MediaImage, mediaURL: "https://store/b.jpg", caption: "one"},
	}
	results := []ExecResult{
		{Index: 0, MessageID: "wamid.0"},
		{Index: 1, Err: errors.New("provider 400")},
	}

	stored, details, err := writer.Persist(7, units, results)
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
	require.Len(t, store.rows, 1, "failed units must not produce rows")

	row := store.rows[0]
	assert.Equal(t, uint(7), row.CustomerID)
	assert.Equal(t, models.DirectionOutbound, row.Direction)
	assert.True(t, row.IsRead, "own outbound messages are read")
	assert.Equal(t, "https://store/a.jpg", row.MediaURL)

	require.Len(t, details, 2)
	assert.True(t, details[0].Stored)
	assert.False(t, details[1].Stored)
	assert.NotEmpty(t, details[1].Error)
}

func TestPersistZeroRowsIsFatal(t *testing.T) {
	t.Parallel()

	store := &fakeMessageStore{err: errors.New("disk full")}
	writer := fixedWriter(store)

	stored, details, err := writer.Persist(7, []unit{{body: "hi"}}, []ExecResult{{Index: 0, MessageID: "wamid.0"}})
	require.Error(t, err)
	var persistErr *PersistenceError
	require.True(t, errors.As(err, &persistErr))
	assert.Equal(t, 0, stored)
	require.Len(t, details, 1)
	assert.Contains(t, details[0].Error, "persist failed")
}

func TestTemplateEnvelopeRoundTrip(t *testing.T) {
	t.Parallel()

	tmpl := templateRow("order_update", `[
		{"type":"HEADER","format":"TEXT","text":"Order {{1}}"},
		{"type":"BODY","text":"Hi {{1}}, your order {{2}} shipped."}
	]`)
	validated, err := ValidateTemplate(tmpl,
		[]Param{{Type: "text", Text: "A-1"}},
		[]Param{{Type: "text", Text: "Ana"}, {Type: "text", Text: "A-1"}},
		nil, nil)
	require.NoError(t, err)

	body, err := buildEnvelope(tmpl, validated)
	require.NoError(t, err)

	var envelope TemplateEnvelope
	require.NoError(t, json.Unmarshal([]byte(body), &envelope))
	assert.True(t, envelope.IsTemplate)
	assert.Equal(t, "order_update", envelope.Name)
	assert.Equal(t, "en_US", envelope.Language)
	assert.Equal(t, "Hi Ana, your order A-1 shipped.", envelope.RenderedBody)
	require.Len(t, envelope.Components, 2)
	assert.Contains(t, envelope.DynamicData, "body_params")
	assert.Contains(t, envelope.DynamicData, "header_params")
	assert.Contains(t, envelope.DynamicData, "buttons")
}
