package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercekit/paybridge/provider"
)

type mockCallbackService struct {
	fields  provider.FieldSet
	gateway string
	result  *provider.CallbackResult
	err     error
}

func (m *mockCallbackService) ProcessCallback(ctx context.Context, gatewayName string, fields provider.FieldSet) (*provider.CallbackResult, error) {
	m.gateway = gatewayName
	m.fields = fields
	return m.result, m.err
}

func TestHandleCallbackFormFields(t *testing.T) {
	svc := &mockCallbackService{
		result: &provider.CallbackResult{OrderID: "order-1", Outcome: provider.OutcomeApplied},
	}
	h := NewCallbackHandler(svc)

	form := url.Values{
		"BRQ_INVOICENUMBER": {"order-1"},
		"BRQ_STATUSCODE":    {"190"},
	}
	req := httptest.NewRequest(http.MethodPost, "/callback/buckaroo?add_orderid=order-1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = withURLParams(req, map[string]string{"gateway": "buckaroo"})

	rec := httptest.NewRecorder()
	h.HandleCallback(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "buckaroo", svc.gateway)
	assert.Equal(t, "order-1", svc.fields["BRQ_INVOICENUMBER"])
	assert.Equal(t, "190", svc.fields["BRQ_STATUSCODE"])
	// query parameters merge into the field set
	assert.Equal(t, "order-1", svc.fields["add_orderid"])
}

func TestHandleCallbackJSONKeepsRawPayload(t *testing.T) {
	svc := &mockCallbackService{
		result: &provider.CallbackResult{OrderID: "order-1", Outcome: provider.OutcomeApplied},
	}
	h := NewCallbackHandler(svc)

	payload := `{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_3abc"}}}`
	req := httptest.NewRequest(http.MethodPost, "/callback/stripe?source=webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	req = withURLParams(req, map[string]string{"gateway": "stripe"})

	rec := httptest.NewRecorder()
	h.HandleCallback(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, svc.fields["payload"])
	assert.Equal(t, "t=1,v1=abc", svc.fields["Stripe-Signature"])
	assert.Equal(t, "webhook", svc.fields["source"])
}

func TestHandleCallbackMissingGateway(t *testing.T) {
	h := NewCallbackHandler(&mockCallbackService{})

	req := httptest.NewRequest(http.MethodPost, "/callback/", nil)
	req = withURLParams(req, map[string]string{})

	rec := httptest.NewRecorder()
	h.HandleCallback(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Signature failures, unknown orders and internal faults are acknowledged
// with 200: hard-failing the sender would trigger retry storms for
// notifications that will never verify.
func TestHandleCallbackAcknowledgesFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "invalid signature", err: provider.ErrInvalidSignature},
		{name: "order not found", err: provider.ErrOrderNotFound},
		{name: "store failure", err: assert.AnError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCallbackHandler(&mockCallbackService{err: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/callback/buckaroo", strings.NewReader("a=b"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req = withURLParams(req, map[string]string{"gateway": "buckaroo"})

			rec := httptest.NewRecorder()
			h.HandleCallback(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "acknowledged")
		})
	}
}

func TestHandleCallbackUnknownGateway(t *testing.T) {
	h := NewCallbackHandler(&mockCallbackService{err: provider.ErrUnknownGateway})

	req := httptest.NewRequest(http.MethodPost, "/callback/nope", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = withURLParams(req, map[string]string{"gateway": "nope"})

	rec := httptest.NewRecorder()
	h.HandleCallback(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCallbackIgnoredStillAcknowledges(t *testing.T) {
	svc := &mockCallbackService{
		result: &provider.CallbackResult{
			OrderID: "order-1",
			Outcome: provider.OutcomeIgnored,
			Reason:  "order already in state",
		},
	}
	h := NewCallbackHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/callback/buckaroo", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = withURLParams(req, map[string]string{"gateway": "buckaroo"})

	rec := httptest.NewRecorder()
	h.HandleCallback(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
}
