package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

// DocumentRenderer produces the invoice PDF and returns where it is hosted.
type DocumentRenderer interface {
	Render(ctx context.Context, invoiceID string) (string, error)
}

type DocumentStore interface {
	SetDocumentURL(ctx context.Context, invoiceID, url string) error
}

// Notifier hands a customer message to the channel transports.
type Notifier interface {
	Send(ctx context.Context, channel enums.NotificationChannel, recipientRef string, template enums.NotificationTemplate, data map[string]any) error
}

type PaymentVerifier interface {
	ConfirmWithProvider(ctx context.Context, tenantID *uuid.UUID, invoiceID string) (*models.Invoice, error)
}

type HandlerDeps struct {
	Renderer  DocumentRenderer
	Documents DocumentStore
	Notifier  Notifier
	Verifier  PaymentVerifier
}

// Handlers wires every task kind whose collaborator is present.
func Handlers(deps HandlerDeps) map[enums.TaskKind]Handler {
	out := map[enums.TaskKind]Handler{}
	if deps.Renderer != nil && deps.Documents != nil {
		out[enums.TaskKindRenderInvoicePDF] = RenderInvoiceHandler(deps.Renderer, deps.Documents)
	}
	if deps.Notifier != nil {
		out[enums.TaskKindSendNotification] = SendNotificationHandler(deps.Notifier)
	}
	if deps.Verifier != nil {
		out[enums.TaskKindVerifyPayment] = VerifyPaymentHandler(deps.Verifier)
	}
	return out
}

func RenderInvoiceHandler(renderer DocumentRenderer, store DocumentStore) Handler {
	return func(ctx context.Context, task models.AsyncTask) error {
		payload, err := decodePayload[RenderPayload](task)
		if err != nil {
			return err
		}
		url, err := renderer.Render(ctx, payload.InvoiceID)
		if err != nil {
			return fmt.Errorf("render invoice %s: %w", payload.InvoiceID, err)
		}
		if strings.TrimSpace(url) == "" {
			return fmt.Errorf("renderer returned empty url for %s", payload.InvoiceID)
		}
		return store.SetDocumentURL(ctx, payload.InvoiceID, url)
	}
}

func SendNotificationHandler(notifier Notifier) Handler {
	return func(ctx context.Context, task models.AsyncTask) error {
		payload, err := decodePayload[NotificationPayload](task)
		if err != nil {
			return err
		}
		if payload.RecipientRef == "" {
			return Permanent(fmt.Errorf("notification task %s has no recipient", task.ID))
		}
		data := make(map[string]any, len(payload.Data)+1)
		for k, v := range payload.Data {
			data[k] = v
		}
		// consumers dedupe redeliveries on this id
		data["notification_id"] = task.ID.String()
		return notifier.Send(ctx, payload.Channel, payload.RecipientRef, payload.Template, data)
	}
}

func VerifyPaymentHandler(verifier PaymentVerifier) Handler {
	return func(ctx context.Context, task models.AsyncTask) error {
		payload, err := decodePayload[VerifyPayload](task)
		if err != nil {
			return err
		}
		_, err = verifier.ConfirmWithProvider(ctx, task.TenantID, payload.InvoiceID)
		return err
	}
}

func decodePayload[T any](task models.AsyncTask) (T, error) {
	var out T
	if err := json.Unmarshal(task.Payload, &out); err != nil {
		return out, Permanent(fmt.Errorf("decode %s payload: %w", task.Kind, err))
	}
	return out, nil
}
