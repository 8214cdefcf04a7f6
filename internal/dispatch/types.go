package dispatch

import (
	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/whatsapp"
)

// Request types accepted by the pipeline.
const (
	TypeText     = "text"
	TypeImage    = "image"
	TypeVideo    = "video"
	TypeAudio    = "audio"
	TypeDocument = "document"
	TypeTemplate = "template"
)

// Template categories.
const (
	CategoryUtility        = "utility"
	CategoryMarketing      = "marketing"
	CategoryAuthentication = "authentication"
)

// Param is a caller-supplied template parameter. Type selects which
// sub-object must be present.
type Param struct {
	Type     string                `json:"type"`
	Text     string                `json:"text,omitempty"`
	Currency *whatsapp.CurrencyObj `json:"currency,omitempty"`
	DateTime *whatsapp.DateTimeObj `json:"date_time,omitempty"`
}

// Button is a caller-supplied dynamic button configuration.
type Button struct {
	SubType string `json:"sub_type"`
	Text    string `json:"text,omitempty"`    // url suffix parameter
	Payload string `json:"payload,omitempty"` // quick_reply payload
}

// MediaHeader carries the media slot of a template header, by provider id
// or external link.
type MediaHeader struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Link string `json:"link,omitempty"`
}

// Request is the dispatch entry-point payload.
type Request struct {
	UserID        uint   `json:"user_id"`
	CustomerPhone string `json:"customer_phone"`
	Type          string `json:"type"`

	Message  string `json:"message,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`

	MediaID  string   `json:"media_id,omitempty"`
	MediaIDs []string `json:"media_ids,omitempty"`

	TemplateName    string       `json:"template_name,omitempty"`
	TemplateParams  []Param      `json:"template_params,omitempty"`
	HeaderParams    []Param      `json:"header_params,omitempty"`
	TemplateButtons []Button     `json:"template_buttons,omitempty"`
	MediaHeader     *MediaHeader `json:"media_header,omitempty"`

	Category      string `json:"category,omitempty"`
	IsPromotional bool   `json:"is_promotional,omitempty"`
}

// mediaRefs collects the request's raw media references in order.
func (r *Request) mediaRefs() []MediaRef {
	var refs []MediaRef
	for _, id := range r.MediaIDs {
		refs = append(refs, MediaRef{ID: id})
	}
	if len(refs) == 0 && r.MediaID != "" {
		refs = append(refs, MediaRef{ID: r.MediaID})
	}
	return refs
}

// UnitResult reports the outcome of one dispatched unit (one payload).
type UnitResult struct {
	Index     int    `json:"index"`
	MessageID string `json:"message_id,omitempty"`
	Stored    bool   `json:"stored"`
	Error     string `json:"error,omitempty"`
}

// Response is the dispatch entry-point reply.
type Response struct {
	Success        bool         `json:"success"`
	MessageIDs     []string     `json:"message_ids"`
	StoredMessages int          `json:"stored_messages"`
	Details        []UnitResult `json:"details"`
}

// Decision is the WindowPolicy verdict for one request.
type Decision struct {
	UseTemplate bool
	Template    *models.Template
}
