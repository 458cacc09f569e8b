package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mozpaylabs/mozpay-backend/pkg/config"
	pkgerrors "github.com/mozpaylabs/mozpay-backend/pkg/errors"
	"github.com/mozpaylabs/mozpay-backend/pkg/logger"
)

// templateLanguage is the locale of the verification template registered with
// Meta.
const templateLanguage = "pt_PT"

// WhatsApp delivers codes through the WhatsApp Cloud API as a template
// message with the code as the single body parameter.
type WhatsApp struct {
	cfg    config.WhatsAppConfig
	client *http.Client
	logg   *logger.Logger
}

// NewWhatsApp builds the Cloud API dispatcher. A nil client gets a default
// one with the configured timeout.
func NewWhatsApp(cfg config.WhatsAppConfig, client *http.Client, logg *logger.Logger) (*WhatsApp, error) {
	if cfg.PhoneNumberID == "" || cfg.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "whatsapp dispatch requires phone number id and access token")
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &WhatsApp{cfg: cfg, client: client, logg: logg}, nil
}

type templateMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Template         template `json:"template"`
}

type template struct {
	Name       string      `json:"name"`
	Language   language    `json:"language"`
	Components []component `json:"components"`
}

type language struct {
	Code string `json:"code"`
}

type component struct {
	Type       string      `json:"type"`
	Parameters []parameter `json:"parameters"`
}

type parameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendCode posts the verification template to the Cloud API.
func (w *WhatsApp) SendCode(ctx context.Context, phone, code string) error {
	payload := templateMessage{
		MessagingProduct: "whatsapp",
		To:               strings.TrimPrefix(phone, "+"),
		Type:             "template",
		Template: template{
			Name:     w.cfg.TemplateName,
			Language: language{Code: templateLanguage},
			Components: []component{{
				Type:       "body",
				Parameters: []parameter{{Type: "text", Text: code}},
			}},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding whatsapp message")
	}

	endpoint := fmt.Sprintf("%s/%s/messages", strings.TrimRight(w.cfg.APIURL, "/"), w.cfg.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building whatsapp request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.cfg.AccessToken)

	resp, err := w.client.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Erro ao enviar código. Tente novamente.")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if w.logg != nil {
			logCtx := w.logg.WithFields(ctx, map[string]any{
				"status": resp.StatusCode,
				"body":   string(detail),
			})
			w.logg.Error(logCtx, "dispatch.whatsapp_rejected", nil)
		}
		return pkgerrors.New(pkgerrors.CodeDependency, "Erro ao enviar código. Tente novamente.").
			WithDetails(map[string]any{"status": resp.StatusCode})
	}

	if w.logg != nil {
		w.logg.Info(w.logg.WithPhone(ctx, phone), "dispatch.whatsapp_sent")
	}
	return nil
}
