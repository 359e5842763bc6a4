package invoices

import (
	internalinvoices "github.com/angelmondragon/kudibooks-backend/internal/invoices"
)

type createInvoiceResponse struct {
	Invoice                internalinvoices.InvoiceView `json:"invoice"`
	PaymentLink            *string                      `json:"payment_link"`
	PaymentLinkError       string                       `json:"payment_link_error,omitempty"`
	RemainingQuota         *int                         `json:"remaining_quota"`
	TenantOwnedCredentials bool                         `json:"tenant_owned_credentials"`
}

type listInvoicesResponse struct {
	Invoices   []internalinvoices.InvoiceView `json:"invoices"`
	NextCursor string                         `json:"next_cursor,omitempty"`
}

type invoiceDetailResponse struct {
	internalinvoices.InvoiceView
	History []internalinvoices.StatusChangeView `json:"history,omitempty"`
}

type statusUpdateResponse struct {
	Invoice internalinvoices.InvoiceView `json:"invoice"`
	From    string                       `json:"from"`
}

func newCreateResponse(result *internalinvoices.CreateResult) createInvoiceResponse {
	resp := createInvoiceResponse{
		Invoice:                internalinvoices.NewInvoiceView(result.Invoice),
		PaymentLink:            result.PaymentLink,
		PaymentLinkError:       result.PaymentLinkError,
		TenantOwnedCredentials: result.TenantOwnedCredentials,
	}
	// unlimited plans report null
	if result.RemainingQuota >= 0 {
		remaining := result.RemainingQuota
		resp.RemainingQuota = &remaining
	}
	return resp
}
