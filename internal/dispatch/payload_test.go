package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-crm/internal/models"
)

func TestBuildPayloadsText(t *testing.T) {
	t.Parallel()

	req := &Request{Type: TypeText, Message: "hello"}
	payloads, err := BuildPayloads("+6281234567890", req, &Decision{}, nil, nil)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, "whatsapp", payloads[0].MessagingProduct)
	assert.Equal(t, "+6281234567890", payloads[0].To)
	assert.Equal(t, "text", payloads[0].Type)
	require.NotNil(t, payloads[0].Text)
	assert.Equal(t, "hello", payloads[0].Text.Body)
}

func TestBuildPayloadsImageFanOut(t *testing.T) {
	t.Parallel()

	req := &Request{Type: TypeImage, MediaIDs: []string{"m1", "m2", "m3"}, Caption: "album"}
	media := []ResolvedMedia{
		{Ref: MediaRef{ID: "m1"}, Type: models.MediaImage},
		{Ref: MediaRef{ID: "m2"}, Type: models.MediaImage},
		{Ref: MediaRef{ID: "m3"}, Type: models.MediaImage},
	}

	payloads, err := BuildPayloads("+6281234567890", req, &Decision{}, nil, media)
	require.NoError(t, err)
	require.Len(t, payloads, 3, "each image is an independent payload")
	for i, p := range payloads {
		require.NotNil(t, p.Image, "payload %d", i)
		assert.Equal(t, media[i].Ref.ID, p.Image.ID)
		assert.Equal(t, "album", p.Image.Caption)
	}
}

func TestBuildPayloadsMultipleNonImageRejected(t *testing.T) {
	t.Parallel()

	req := &Request{Type: TypeVideo, MediaIDs: []string{"v1", "v2"}}
	media := []ResolvedMedia{
		{Ref: MediaRef{ID: "v1"}, Type: models.MediaVideo},
		{Ref: MediaRef{ID: "v2"}, Type: models.MediaVideo},
	}

	_, err := BuildPayloads("+6281234567890", req, &Decision{}, nil, media)
	assert.Equal(t, CodeUnsupportedMultipleMedia, validationCode(t, err))
}

func TestBuildPayloadsDocumentCarriesFilename(t *testing.T) {
	t.Parallel()

	req := &Request{Type: TypeDocument, MediaID: "d1", Caption: "invoice", Filename: "invoice.pdf"}
	media := []ResolvedMedia{{Ref: MediaRef{ID: "d1"}, Type: models.MediaDocument}}

	payloads, err := BuildPayloads("+6281234567890", req, &Decision{}, nil, media)
	require.NoError(t, err)
	require.NotNil(t, payloads[0].Document)
	assert.Equal(t, "invoice.pdf", payloads[0].Document.Filename)
	assert.Equal(t, "invoice", payloads[0].Document.Caption)
}

func TestBuildPayloadsAudioHasNoCaption(t *testing.T) {
	t.Parallel()

	req := &Request{Type: TypeAudio, MediaID: "a1", Caption: "ignored"}
	media := []ResolvedMedia{{Ref: MediaRef{ID: "a1"}, Type: models.MediaAudio}}

	payloads, err := BuildPayloads("+6281234567890", req, &Decision{}, nil, media)
	require.NoError(t, err)
	require.NotNil(t, payloads[0].Audio)
	assert.Empty(t, payloads[0].Audio.Caption)
}

func TestBuildPayloadsTemplateRejectsRawMedia(t *testing.T) {
	t.Parallel()

	tmpl := templateRow("receipt", `[{"type":"BODY","text":"Thanks!"}]`)
	req := &Request{Type: TypeTemplate, TemplateName: "receipt", MediaID: "m1"}
	decision := &Decision{UseTemplate: true, Template: tmpl}

	_, err := BuildPayloads("+6281234567890", req, decision, &ValidatedComponents{}, nil)
	assert.Equal(t, CodeTemplateCannotCarryRawMedia, validationCode(t, err))
}

func TestBuildPayloadsTemplateComponents(t *testing.T) {
	t.Parallel()

	tmpl := templateRow("order_update", `[
		{"type":"HEADER","format":"TEXT","text":"Order {{1}}"},
		{"type":"BODY","text":"Hi {{1}}, order {{2}} shipped."}
	]`)
	validated, err := ValidateTemplate(tmpl,
		[]Param{{Type: "text", Text: "A-1"}},
		[]Param{{Type: "text", Text: "Ana"}, {Type: "text", Text: "A-1"}},
		nil, nil)
	require.NoError(t, err)

	req := &Request{Type: TypeTemplate, TemplateName: "order_update"}
	payloads, err := BuildPayloads("+6281234567890", req, &Decision{UseTemplate: true, Template: tmpl}, validated, nil)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	require.NotNil(t, payloads[0].Template)
	assert.Equal(t, "order_update", payloads[0].Template.Name)
	assert.Equal(t, "en_US", payloads[0].Template.Language.Code)
	require.Len(t, payloads[0].Template.Components, 2)
	assert.Equal(t, "header", payloads[0].Template.Components[0].Type)
	assert.Equal(t, "body", payloads[0].Template.Components[1].Type)
}

func TestBuildPayloadsParameterlessTemplateOmitsComponents(t *testing.T) {
	t.Parallel()

	tmpl := templateRow("static", `[{"type":"BODY","text":"We moved!"}]`)
	validated, err := ValidateTemplate(tmpl, nil, nil, nil, nil)
	require.NoError(t, err)

	req := &Request{Type: TypeTemplate, TemplateName: "static"}
	payloads, err := BuildPayloads("+6281234567890", req, &Decision{UseTemplate: true, Template: tmpl}, validated, nil)
	require.NoError(t, err)
	assert.Empty(t, payloads[0].Template.Components)
}
