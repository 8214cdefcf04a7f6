package dispatch

import (
	"time"

	"whatsapp-crm/internal/models"
)

// freeFormWindow is the provider's customer-service window: free-form
// messages are only deliverable within 24 hours of the customer's last
// inbound message.
const freeFormWindow = 24 * time.Hour

// TemplateStore looks up cached template rows for an agent.
type TemplateStore interface {
	ActiveTemplate(agentID uint, category string) (*models.Template, error)
	TemplateByName(agentID uint, name string) (*models.Template, error)
}

// WindowPolicy decides whether a send must go out as a template.
type WindowPolicy struct {
	templates TemplateStore
	now       func() time.Time
}

func NewWindowPolicy(templates TemplateStore) *WindowPolicy {
	return &WindowPolicy{templates: templates, now: time.Now}
}

// Decide applies the 24-hour window rule. A missing last-inbound timestamp
// is treated as infinitely stale. When the window is closed the policy
// selects one active template matching the requested category; a template
// request or a promotional flag forces template usage with the caller's
// named template.
func (p *WindowPolicy) Decide(agentID uint, customer *models.Customer, req *Request) (*Decision, error) {
	if req.Type == TypeTemplate || req.IsPromotional {
		tmpl, err := p.lookupNamed(agentID, req)
		if err != nil {
			return nil, err
		}
		return &Decision{UseTemplate: true, Template: tmpl}, nil
	}

	last := time.Time{} // epoch zero when the customer never wrote in
	if customer.LastUserMessageTime != nil {
		last = *customer.LastUserMessageTime
	}

	if p.now().Sub(last) <= freeFormWindow {
		return &Decision{UseTemplate: false}, nil
	}

	category := req.Category
	if category == "" {
		category = CategoryUtility
	}
	tmpl, err := p.templates.ActiveTemplate(agentID, category)
	if err != nil || tmpl == nil {
		return nil, &PolicyError{
			Code:    CodeTemplateUnavailable,
			Message: "the 24-hour messaging window is closed and no active " + category + " template is available",
		}
	}
	return &Decision{UseTemplate: true, Template: tmpl}, nil
}

// lookupNamed fetches the caller-specified template.
func (p *WindowPolicy) lookupNamed(agentID uint, req *Request) (*models.Template, error) {
	if req.TemplateName == "" {
		return nil, validationf("", "template_name is required for template sends")
	}
	tmpl, err := p.templates.TemplateByName(agentID, req.TemplateName)
	if err != nil || tmpl == nil {
		return nil, &PolicyError{
			Code:    CodeTemplateUnavailable,
			Message: "template " + req.TemplateName + " is not available for this agent",
		}
	}
	if !tmpl.IsActive {
		return nil, &PolicyError{
			Code:    CodeTemplateUnavailable,
			Message: "template " + req.TemplateName + " is not active",
		}
	}
	return tmpl, nil
}
