package dispatch

import (
	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/whatsapp"
)

// BuildPayloads constructs the provider wire payload(s) for one send.
// Multiple images fan out into N independent payloads, one provider
// message and one persisted row each; every other media type is
// single-item only.
func BuildPayloads(recipient string, req *Request, decision *Decision, validated *ValidatedComponents, media []ResolvedMedia) ([]whatsapp.GenericMessage, error) {
	if decision.UseTemplate {
		// Templates carry media strictly through the validated
		// media-header path.
		if len(req.mediaRefs()) > 0 {
			return nil, validationf(CodeTemplateCannotCarryRawMedia,
				"template sends cannot carry standalone media ids")
		}
		return []whatsapp.GenericMessage{templatePayload(recipient, decision.Template, validated)}, nil
	}

	switch req.Type {
	case TypeText:
		if req.Message == "" {
			return nil, validationf("", "message is required for text sends")
		}
		return []whatsapp.GenericMessage{{
			MessagingProduct: "whatsapp",
			To:               recipient,
			Type:             "text",
			Text:             &whatsapp.TextObj{Body: req.Message},
		}}, nil

	case TypeImage:
		payloads := make([]whatsapp.GenericMessage, 0, len(media))
		for _, item := range media {
			payloads = append(payloads, mediaPayload(recipient, TypeImage, item, req))
		}
		return payloads, nil

	case TypeVideo, TypeAudio, TypeDocument:
		if len(media) > 1 {
			return nil, validationf(CodeUnsupportedMultipleMedia,
				"multiple media items are only supported for image sends")
		}
		return []whatsapp.GenericMessage{mediaPayload(recipient, req.Type, media[0], req)}, nil

	default:
		return nil, validationf("", "unknown send type %q", req.Type)
	}
}

func mediaPayload(recipient, sendType string, item ResolvedMedia, req *Request) whatsapp.GenericMessage {
	obj := &whatsapp.MediaObj{ID: item.Ref.ID, Link: item.Ref.Link}
	msg := whatsapp.GenericMessage{
		MessagingProduct: "whatsapp",
		To:               recipient,
		Type:             sendType,
	}
	switch sendType {
	case TypeImage:
		obj.Caption = req.Caption
		msg.Image = obj
	case TypeVideo:
		obj.Caption = req.Caption
		msg.Video = obj
	case TypeAudio:
		msg.Audio = obj
	case TypeDocument:
		obj.Caption = req.Caption
		obj.Filename = req.Filename
		msg.Document = obj
	}
	return msg
}

// templatePayload assembles the template wire message; each component is
// included only when the schema declares it.
func templatePayload(recipient string, tmpl *models.Template, validated *ValidatedComponents) whatsapp.GenericMessage {
	template := &whatsapp.TemplateObj{
		Name:     tmpl.Name,
		Language: whatsapp.LanguageObj{Code: tmpl.Language},
	}
	if validated != nil {
		if validated.Header != nil {
			template.Components = append(template.Components, *validated.Header)
		}
		if validated.Body != nil {
			template.Components = append(template.Components, *validated.Body)
		}
		template.Components = append(template.Components, validated.Buttons...)
	}
	return whatsapp.GenericMessage{
		MessagingProduct: "whatsapp",
		To:               recipient,
		Type:             "template",
		Template:         template,
	}
}
