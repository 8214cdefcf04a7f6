package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Client talks to the WhatsApp Graph API on behalf of one agent. BaseURL
// is injectable so tests can point it at a local server.
type Client struct {
	BaseURL           string
	Token             string
	PhoneNumberID     string
	BusinessAccountID string

	httpClient *http.Client
}

func NewClient(baseURL, token, phoneNumberID, businessAccountID string) *Client {
	return &Client{
		BaseURL:           baseURL,
		Token:             token,
		PhoneNumberID:     phoneNumberID,
		BusinessAccountID: businessAccountID,
		httpClient:        &http.Client{Timeout: 60 * time.Second},
	}
}

// --- Message Structures ---

type GenericMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	RecipientType    string       `json:"recipient_type,omitempty"`
	Text             *TextObj     `json:"text,omitempty"`
	Image            *MediaObj    `json:"image,omitempty"`
	Video            *MediaObj    `json:"video,omitempty"`
	Audio            *MediaObj    `json:"audio,omitempty"`
	Document         *MediaObj    `json:"document,omitempty"`
	Template         *TemplateObj `json:"template,omitempty"`
}

type TextObj struct {
	Body       string `json:"body"`
	PreviewUrl bool   `json:"preview_url,omitempty"`
}

type MediaObj struct {
	ID       string `json:"id,omitempty"`
	Link     string `json:"link,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"` // For documents
}

type TemplateObj struct {
	Name       string         `json:"name"`
	Language   LanguageObj    `json:"language"`
	Components []ComponentObj `json:"components,omitempty"`
}

type LanguageObj struct {
	Code string `json:"code"`
}

type ComponentObj struct {
	Type       string         `json:"type"`
	SubType    string         `json:"sub_type,omitempty"`
	Parameters []ParameterObj `json:"parameters"`
	Index      string         `json:"index,omitempty"` // For buttons
}

type ParameterObj struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	Currency *CurrencyObj `json:"currency,omitempty"`
	DateTime *DateTimeObj `json:"date_time,omitempty"`
	Image    *MediaObj    `json:"image,omitempty"`
	Video    *MediaObj    `json:"video,omitempty"`
	Document *MediaObj    `json:"document,omitempty"`
	Payload  string       `json:"payload,omitempty"` // For quick_reply buttons
}

type CurrencyObj struct {
	FallbackValue string `json:"fallback_value"`
	Code          string `json:"code"`
	Amount1000    int    `json:"amount_1000"`
}

type DateTimeObj struct {
	FallbackValue string `json:"fallback_value"`
}

// --- Helper Functions ---

func (c *Client) sendRequest(ctx context.Context, method, url string, body interface{}, headers map[string]string) ([]byte, int, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, 0, err
	}

	req.Header.Set("Authorization", "Bearer "+c.Token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	if resp.StatusCode >= 400 {
		return respBody, resp.StatusCode, fmt.Errorf("API error: %s - %s", resp.Status, string(respBody))
	}

	return respBody, resp.StatusCode, nil
}

// --- Messaging Methods ---

// SendResult is the provider's acknowledgement of a single send.
type SendResult struct {
	MessageID string
	Raw       json.RawMessage
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendMessage submits one payload to the messaging endpoint and returns
// the provider-assigned message id. On a non-2xx response the raw body is
// returned alongside the error for diagnostics.
func (c *Client) SendMessage(ctx context.Context, msg GenericMessage) (*SendResult, error) {
	if msg.MessagingProduct == "" {
		msg.MessagingProduct = "whatsapp"
	}
	url := fmt.Sprintf("%s/%s/messages", c.BaseURL, c.PhoneNumberID)
	respBody, _, err := c.sendRequest(ctx, http.MethodPost, url, msg, nil)
	if err != nil {
		return &SendResult{Raw: respBody}, err
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return &SendResult{Raw: respBody}, fmt.Errorf("parse send response: %w", err)
	}
	result := &SendResult{Raw: respBody}
	if len(parsed.Messages) > 0 {
		result.MessageID = parsed.Messages[0].ID
	}
	return result, nil
}

// --- Media Methods ---

// MediaMetadata is the provider's media object descriptor.
type MediaMetadata struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
	SHA256   string `json:"sha256"`
}

// GetMediaMetadata resolves a provider media id to its download URL and
// MIME type.
func (c *Client) GetMediaMetadata(ctx context.Context, mediaID string) (*MediaMetadata, error) {
	url := fmt.Sprintf("%s/%s", c.BaseURL, mediaID)
	respBody, _, err := c.sendRequest(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, err
	}

	var meta MediaMetadata
	if err := json.Unmarshal(respBody, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// DownloadMedia fetches a media binary. Provider-hosted URLs require the
// bearer token; external links are fetched unauthenticated.
func (c *Client) DownloadMedia(ctx context.Context, url string, authenticated bool) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("download failed: %s - %s", resp.Status, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

type MediaResponse struct {
	ID string `json:"id"`
}

// UploadMedia pushes a binary to the provider for later use as a media id.
func (c *Client) UploadMedia(ctx context.Context, fileData []byte, mimeType, filename string) (*MediaResponse, error) {
	url := fmt.Sprintf("%s/%s/media", c.BaseURL, c.PhoneNumberID)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	part.Write(fileData)

	writer.WriteField("messaging_product", "whatsapp")
	writer.WriteField("type", mimeType)
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("upload failed: %s - %s", resp.Status, string(respBody))
	}

	var mediaResp MediaResponse
	if err := json.Unmarshal(respBody, &mediaResp); err != nil {
		return nil, err
	}

	return &mediaResp, nil
}

// --- Template Management Methods ---

// ListTemplates returns the raw template definitions from the business
// account. The syncer walks the loose JSON and caches what it needs.
func (c *Client) ListTemplates(ctx context.Context) (map[string]interface{}, error) {
	url := fmt.Sprintf("%s/%s/message_templates?limit=200", c.BaseURL, c.BusinessAccountID)
	respBody, _, err := c.sendRequest(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	err = json.Unmarshal(respBody, &result)
	return result, err
}
