package dispatch

import (
	"context"

	"go.uber.org/zap"

	"whatsapp-crm/internal/models"
)

// CreditCost is charged per template send, never on free-form sends.
const CreditCost = 0.01

// TenantStore is the per-agent data surface the pipeline consumes.
type TenantStore interface {
	CustomerByPhone(phone string) (*models.Customer, error)
	SaveCustomer(customer *models.Customer) error
	InsertMessage(message *models.Message) error
}

// Ledger is the credits collaborator. Deduct must be atomic and
// floor-checked; the pipeline never does its own read-then-write.
type Ledger interface {
	Deduct(agentID uint, amount float64) (balance float64, ok bool, err error)
	Topup(agentID uint, amount float64) (float64, error)
}

// Provider is the full messaging-API surface one dispatch needs.
type Provider interface {
	Sender
	MediaAPI
}

// Dispatcher runs the send pipeline for one agent: window gate, template
// validation, media resolution, payload construction, provider submission
// and persistence. Each Send call is independent; the only shared mutable
// state is the credit balance, which is reached exclusively through the
// ledger.
type Dispatcher struct {
	agentID  uint
	repo     TenantStore
	window   *WindowPolicy
	ledger   Ledger
	provider Provider
	resolver *MediaResolver
	writer   *Writer

	defaultCountryCode string
}

func NewDispatcher(agentID uint, repo TenantStore, templates TemplateStore, ledger Ledger, provider Provider, resolver *MediaResolver, defaultCountryCode string) *Dispatcher {
	return &Dispatcher{
		agentID:            agentID,
		repo:               repo,
		window:             NewWindowPolicy(templates),
		ledger:             ledger,
		provider:           provider,
		resolver:           resolver,
		writer:             NewWriter(repo),
		defaultCountryCode: defaultCountryCode,
	}
}

// Send runs one dispatch request through the pipeline.
func (d *Dispatcher) Send(ctx context.Context, req *Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	phone, err := NormalizePhone(req.CustomerPhone, d.defaultCountryCode)
	if err != nil {
		return nil, err
	}

	customer, err := d.repo.CustomerByPhone(phone)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		// First outreach to a new number: create the customer row. With
		// no inbound history the window is closed, so the send below is
		// forced through a template.
		customer = &models.Customer{Phone: phone}
		if err := d.repo.SaveCustomer(customer); err != nil {
			return nil, err
		}
	}

	decision, err := d.window.Decide(d.agentID, customer, req)
	if err != nil {
		return nil, err
	}

	// Templates carry media strictly via the validated media-header
	// path; reject raw media ids before touching the provider.
	if decision.UseTemplate && len(req.mediaRefs()) > 0 {
		return nil, validationf(CodeTemplateCannotCarryRawMedia,
			"template sends cannot carry standalone media ids")
	}

	var validated *ValidatedComponents
	if decision.UseTemplate {
		validated, err = ValidateTemplate(decision.Template,
			req.HeaderParams, req.TemplateParams, req.TemplateButtons, req.MediaHeader)
		if err != nil {
			return nil, err
		}
	}

	var media []ResolvedMedia
	if !decision.UseTemplate && req.Type != TypeText {
		media, err = d.resolver.Resolve(ctx, req.mediaRefs(), req.Type, customer.ID)
		if err != nil {
			return nil, err
		}
	}

	payloads, err := BuildPayloads(phone, req, decision, validated, media)
	if err != nil {
		return nil, err
	}

	units, err := buildUnits(req, decision, validated, media)
	if err != nil {
		return nil, err
	}

	// Credit gate: the check is the atomic conditional decrement itself,
	// so concurrent template sends can never both pass on a stale
	// balance.
	charged := false
	if decision.UseTemplate {
		_, ok, err := d.ledger.Deduct(d.agentID, CreditCost)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &PolicyError{
				Code:    CodeInsufficientCredits,
				Message: "insufficient credits for a template send, please top up",
			}
		}
		charged = true
	}

	executor := NewExecutor(d.provider)
	results, err := executor.Execute(ctx, payloads)
	if err != nil {
		if charged {
			// The charge landed but nothing was sent; give it back.
			// A refund failure leaves the ledger ahead of the provider
			// and is only logged, for later reconciliation.
			if _, refundErr := d.ledger.Topup(d.agentID, CreditCost); refundErr != nil {
				zap.L().Error("dispatch: credit refund failed after rejected template send",
					zap.Uint("agent_id", d.agentID), zap.Error(refundErr))
			}
		}
		return nil, err
	}

	stored, details, err := d.writer.Persist(customer.ID, units, results)
	response := &Response{
		Success:        err == nil,
		StoredMessages: stored,
		Details:        details,
	}
	for _, res := range results {
		if res.Err == nil && res.MessageID != "" {
			response.MessageIDs = append(response.MessageIDs, res.MessageID)
		}
	}
	if err != nil {
		return response, err
	}
	return response, nil
}

// validateRequest rejects malformed requests before any lookup.
func validateRequest(req *Request) error {
	switch req.Type {
	case TypeText:
		if req.Message == "" {
			return validationf("", "message is required for text sends")
		}
	case TypeImage, TypeVideo, TypeAudio, TypeDocument:
		if len(req.mediaRefs()) == 0 {
			return validationf("", "media_id or media_ids is required for %s sends", req.Type)
		}
	case TypeTemplate:
		if req.TemplateName == "" {
			return validationf("", "template_name is required for template sends")
		}
	default:
		return validationf("", "unknown send type %q", req.Type)
	}
	return nil
}

// buildUnits creates the local representation for each payload, index
// aligned with the payload slice.
func buildUnits(req *Request, decision *Decision, validated *ValidatedComponents, media []ResolvedMedia) ([]unit, error) {
	if decision.UseTemplate {
		body, err := buildEnvelope(decision.Template, validated)
		if err != nil {
			return nil, err
		}
		return []unit{{body: body, mediaType: models.MediaNone}}, nil
	}

	switch req.Type {
	case TypeText:
		return []unit{{body: req.Message, mediaType: models.MediaNone}}, nil
	default:
		units := make([]unit, 0, len(media))
		for _, item := range media {
			u := unit{
				mediaType: item.Type,
				mediaURL:  item.StoredURL,
			}
			if req.Type != TypeAudio {
				u.caption = req.Caption
			}
			units = append(units, u)
		}
		return units, nil
	}
}
