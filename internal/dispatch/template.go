package dispatch

import (
	"fmt"
	"strings"

	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/whatsapp"
)

// ValidatedComponents is the validator's output: a component tree ready
// for payload construction. No side effects are performed to produce it.
type ValidatedComponents struct {
	Schema  *TemplateSchema
	Header  *whatsapp.ComponentObj
	Body    *whatsapp.ComponentObj
	Buttons []whatsapp.ComponentObj

	// caller input kept for the persisted envelope
	HeaderParams []Param
	BodyParams   []Param
	ButtonInput  []Button
}

// ValidateTemplate checks caller-supplied parameters against the cached
// template schema: exact arity on header and body params, per-index button
// sub_type agreement, and media-header presence rules.
func ValidateTemplate(tmpl *models.Template, headerParams, bodyParams []Param, buttons []Button, mediaHeader *MediaHeader) (*ValidatedComponents, error) {
	schema, err := ParseSchema(tmpl)
	if err != nil {
		return nil, err
	}

	validated := &ValidatedComponents{
		Schema:       schema,
		HeaderParams: headerParams,
		BodyParams:   bodyParams,
		ButtonInput:  buttons,
	}

	// Header.
	header := schema.Header
	switch {
	case header.IsMedia():
		param, err := mediaHeaderParam(header, mediaHeader)
		if err != nil {
			return nil, err
		}
		validated.Header = &whatsapp.ComponentObj{
			Type:       "header",
			Parameters: []whatsapp.ParameterObj{*param},
		}
	case mediaHeader != nil:
		return nil, validationf(CodeTemplateDoesNotSupportMedia,
			"template %q has no media header slot", schema.Name)
	case header != nil && header.ParamCount > 0:
		if len(headerParams) != header.ParamCount {
			return nil, validationf("", "template %q header expects %d parameter(s), got %d",
				schema.Name, header.ParamCount, len(headerParams))
		}
		params, err := wireParams(headerParams, "header")
		if err != nil {
			return nil, err
		}
		validated.Header = &whatsapp.ComponentObj{Type: "header", Parameters: params}
	case len(headerParams) > 0:
		return nil, validationf("", "template %q header takes no parameters, got %d",
			schema.Name, len(headerParams))
	}

	// Body. Exact count, not "at most".
	if len(bodyParams) != schema.BodyParamCount {
		return nil, validationf("", "template %q body expects %d parameter(s), got %d",
			schema.Name, schema.BodyParamCount, len(bodyParams))
	}
	if schema.BodyParamCount > 0 {
		params, err := wireParams(bodyParams, "body")
		if err != nil {
			return nil, err
		}
		validated.Body = &whatsapp.ComponentObj{Type: "body", Parameters: params}
	}

	// Buttons. Callers may omit buttons entirely when the template's
	// buttons are static; once any are supplied the set must line up
	// one-to-one with the schema.
	if len(buttons) > 0 {
		if len(buttons) != len(schema.Buttons) {
			return nil, validationf(CodeButtonMismatch,
				"template %q declares %d button(s), got %d", schema.Name, len(schema.Buttons), len(buttons))
		}
		for i, button := range buttons {
			declared := schema.Buttons[i]
			subType := strings.ToLower(button.SubType)
			if subType != declared.SubType {
				return nil, validationf(CodeButtonMismatch,
					"button %d: sub_type %q does not match template's %q", i, button.SubType, declared.SubType)
			}
			component, err := buttonComponent(i, subType, button)
			if err != nil {
				return nil, err
			}
			if component != nil {
				validated.Buttons = append(validated.Buttons, *component)
			}
		}
	}

	return validated, nil
}

// mediaHeaderParam resolves the media slot of a media-format header: the
// caller's media_header wins, then the schema's example handle.
func mediaHeaderParam(header *HeaderSchema, mediaHeader *MediaHeader) (*whatsapp.ParameterObj, error) {
	var media whatsapp.MediaObj
	switch {
	case mediaHeader != nil && (mediaHeader.ID != "" || mediaHeader.Link != ""):
		media = whatsapp.MediaObj{ID: mediaHeader.ID, Link: mediaHeader.Link}
	case header.ExampleHandle != "":
		media = whatsapp.MediaObj{Link: header.ExampleHandle}
	default:
		return nil, validationf(CodeMediaHeaderRequired,
			"template header requires a %s and no example handle is available", strings.ToLower(header.Format))
	}

	param := whatsapp.ParameterObj{Type: strings.ToLower(header.Format)}
	switch header.Format {
	case headerFormatImage:
		param.Image = &media
	case headerFormatVideo:
		param.Video = &media
	case headerFormatDocument:
		param.Document = &media
	default:
		return nil, validationf(CodeUnsupportedMediaType,
			"unsupported header format %q", header.Format)
	}
	return &param, nil
}

// wireParams validates each caller parameter's type and required
// sub-fields and converts them into provider parameter objects.
func wireParams(params []Param, component string) ([]whatsapp.ParameterObj, error) {
	wire := make([]whatsapp.ParameterObj, 0, len(params))
	for i, p := range params {
		where := fmt.Sprintf("%s parameter %d", component, i+1)
		switch p.Type {
		case "text":
			if p.Text == "" {
				return nil, validationf("", "%s: text parameter is missing field 'text'", where)
			}
			wire = append(wire, whatsapp.ParameterObj{Type: "text", Text: p.Text})
		case "currency":
			if p.Currency == nil {
				return nil, validationf("", "%s: currency parameter is missing field 'currency'", where)
			}
			if p.Currency.Code == "" {
				return nil, validationf("", "%s: currency parameter is missing field 'code'", where)
			}
			if p.Currency.Amount1000 == 0 {
				return nil, validationf("", "%s: currency parameter is missing field 'amount_1000'", where)
			}
			if p.Currency.FallbackValue == "" {
				return nil, validationf("", "%s: currency parameter is missing field 'fallback_value'", where)
			}
			wire = append(wire, whatsapp.ParameterObj{Type: "currency", Currency: p.Currency})
		case "date_time":
			if p.DateTime == nil || p.DateTime.FallbackValue == "" {
				return nil, validationf("", "%s: date_time parameter is missing field 'fallback_value'", where)
			}
			wire = append(wire, whatsapp.ParameterObj{Type: "date_time", DateTime: p.DateTime})
		default:
			return nil, validationf("", "%s: unknown parameter type %q", where, p.Type)
		}
	}
	return wire, nil
}

// buttonComponent builds the wire component for one dynamic button. Static
// button kinds (phone_number) carry no parameters and emit nothing.
func buttonComponent(index int, subType string, button Button) (*whatsapp.ComponentObj, error) {
	switch subType {
	case "url":
		if button.Text == "" {
			return nil, validationf(CodeButtonMismatch,
				"button %d: url button is missing field 'text'", index)
		}
		return &whatsapp.ComponentObj{
			Type:    "button",
			SubType: "url",
			Index:   fmt.Sprintf("%d", index),
			Parameters: []whatsapp.ParameterObj{
				{Type: "text", Text: button.Text},
			},
		}, nil
	case "quick_reply":
		if button.Payload == "" {
			return nil, validationf(CodeButtonMismatch,
				"button %d: quick_reply button is missing field 'payload'", index)
		}
		return &whatsapp.ComponentObj{
			Type:    "button",
			SubType: "quick_reply",
			Index:   fmt.Sprintf("%d", index),
			Parameters: []whatsapp.ParameterObj{
				{Type: "payload", Payload: button.Payload},
			},
		}, nil
	case "phone_number":
		return nil, nil
	default:
		return nil, validationf(CodeButtonMismatch,
			"button %d: unknown sub_type %q", index, subType)
	}
}
