package payments

import (
	"context"
	"errors"
	"testing"
)

type fakeProvider struct {
	lastOp  string
	link    PaymentLink
	payment PaymentDetails
	err     error
}

func (f *fakeProvider) CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (PaymentLink, error) {
	f.lastOp = "create"
	return f.link, f.err
}

func (f *fakeProvider) LookupPayment(ctx context.Context, req LookupRequest) (PaymentDetails, error) {
	f.lastOp = "lookup"
	return f.payment, f.err
}

func TestManagerCreatePaymentLinkUsesPreferredProvider(t *testing.T) {
	ctx := context.Background()
	stripe := &fakeProvider{link: PaymentLink{SessionID: "sess_stripe"}}
	liqpay := &fakeProvider{link: PaymentLink{SessionID: "sess_liqpay"}}

	mgr, err := NewManager(map[string]Provider{
		"stripe": stripe,
		"liqpay": liqpay,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	link, err := mgr.CreatePaymentLink(ctx, PaymentContext{PreferredProvider: "liqpay"}, PaymentLinkRequest{Currency: "UAH"})
	if err != nil {
		t.Fatalf("create payment link: %v", err)
	}

	if link.Provider != "liqpay" {
		t.Fatalf("expected provider 'liqpay', got %q", link.Provider)
	}
	if liqpay.lastOp != "create" {
		t.Fatalf("expected liqpay provider to handle call")
	}
	if stripe.lastOp != "" {
		t.Fatalf("expected stripe provider to remain unused")
	}
}

func TestManagerFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	stripe := &fakeProvider{payment: PaymentDetails{Provider: "stripe"}}

	mgr, err := NewManager(map[string]Provider{"stripe": stripe})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	details, err := mgr.LookupPayment(ctx, PaymentContext{}, LookupRequest{SessionID: "sess_123"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stripe.lastOp != "lookup" {
		t.Fatalf("expected lookup to invoke default provider")
	}
	if details.Provider != "stripe" {
		t.Fatalf("unexpected provider in details: %q", details.Provider)
	}
}

func TestManagerUnsupportedProvider(t *testing.T) {
	ctx := context.Background()
	mgr, err := NewManager(map[string]Provider{"stripe": &fakeProvider{}, "liqpay": &fakeProvider{}}, WithDefaultProvider(""))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	_, err = mgr.CreatePaymentLink(ctx, PaymentContext{PreferredProvider: "unknown"}, PaymentLinkRequest{Currency: "UAH"})
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestNewManagerValidatesProviders(t *testing.T) {
	if _, err := NewManager(map[string]Provider{"bad": nil}); err == nil {
		t.Fatalf("expected error for nil provider")
	}
	if _, err := NewManager(nil); err == nil {
		t.Fatalf("expected error when providers empty")
	}
}
