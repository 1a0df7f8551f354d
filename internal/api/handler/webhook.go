package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	gh "github.com/google/go-github/v68/github"

	"github.com/rfcbot/rfcbot/internal/github"
	"github.com/rfcbot/rfcbot/internal/pkg/logger"
)

// WebhookHandler accepts GitHub webhook deliveries and feeds them into
// the same ingestion path the poller uses. Deliveries must carry a
// valid HMAC signature for one of the configured secrets.
type WebhookHandler struct {
	ingester *github.Ingester
	secrets  []string
	logger   *logger.Logger
}

func NewWebhookHandler(ingester *github.Ingester, secrets []string, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		ingester: ingester,
		secrets:  secrets,
		logger:   logger.Component("handler/webhook"),
	}
}

func (h *WebhookHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.deliver)
	return r
}

func (h *WebhookHandler) deliver(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	if !h.validSignature(r, payload) {
		h.logger.Warn("webhook signature validation failed",
			"event", gh.WebHookType(r),
			"delivery", gh.DeliveryID(r),
		)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := gh.WebHookType(r)
	event, err := gh.ParseWebHook(eventType, payload)
	if err != nil {
		h.logger.Warn("webhook payload parse failed", "event", eventType, "error", err)
		http.Error(w, "unparsable payload", http.StatusBadRequest)
		return
	}

	h.logger.Info("webhook received",
		"event", eventType,
		"delivery", gh.DeliveryID(r),
	)

	ctx := r.Context()
	switch e := event.(type) {
	case *gh.IssuesEvent:
		if err := h.ingester.HandleIssue(ctx, e.GetIssue(), e.GetRepo().GetID()); err != nil {
			h.logger.Error("issue event handling failed", "error", err)
		}
	case *gh.IssueCommentEvent:
		if e.GetAction() == "deleted" {
			break
		}
		repo := e.GetRepo().GetID()
		if err := h.ingester.HandleIssue(ctx, e.GetIssue(), repo); err != nil {
			h.logger.Error("issue event handling failed", "error", err)
			break
		}
		if err := h.ingester.HandleComment(ctx, e.GetComment(), repo); err != nil {
			h.logger.Error("comment event handling failed", "error", err)
		}
	case *gh.PullRequestEvent:
		if err := h.ingester.HandlePullRequest(ctx, e.GetPullRequest(), e.GetRepo().GetID()); err != nil {
			h.logger.Error("pull request event handling failed", "error", err)
		}
	default:
		h.logger.Debug("unsupported webhook event", "event", eventType)
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *WebhookHandler) validSignature(r *http.Request, payload []byte) bool {
	sig := r.Header.Get("X-Hub-Signature-256")
	if sig == "" {
		sig = r.Header.Get("X-Hub-Signature")
	}
	if sig == "" {
		return false
	}
	for _, secret := range h.secrets {
		if err := gh.ValidateSignature(sig, payload, []byte(secret)); err == nil {
			return true
		}
	}
	return false
}
