package httpx

import (
	"context"
	"github.com/ariefcatur/go-shop-sync/internal/shop"
	"github.com/ariefcatur/go-shop-sync/internal/webhook"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"io"
	"net/http"
)

const maxWebhookBody = 1 << 20

type Ingestor interface {
	Ingest(ctx context.Context, topic, shopDomain string, body []byte) (webhook.Outcome, error)
}

type WebhookHandler struct {
	Ingestor Ingestor
	Secret   string // empty skips signature checks
	Log      *zap.Logger
}

func (h *WebhookHandler) Register(r chi.Router) {
	r.Post("/webhook/shopify", h.receive)
}

func (h *WebhookHandler) receive(w http.ResponseWriter, r *http.Request) {
	topic := r.Header.Get(webhook.HeaderTopic)
	domain := r.Header.Get(webhook.HeaderShopDomain)
	if topic == "" || domain == "" {
		writeError(w, shop.ErrMissingHeaders)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}
	if h.Secret != "" && !webhook.Verify(body, h.Secret, r.Header.Get(webhook.HeaderHMAC)) {
		h.Log.Warn("webhook signature mismatch", zap.String("shop_domain", domain), zap.String("topic", topic))
		writeError(w, shop.ErrInvalidSignature)
		return
	}

	out, err := h.Ingestor.Ingest(r.Context(), topic, domain, body)
	if err != nil {
		h.Log.Error("webhook failed", zap.String("shop_domain", domain), zap.String("topic", topic), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
