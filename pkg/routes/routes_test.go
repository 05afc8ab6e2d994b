package routes_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/waqiti-dev/deeplink/pkg/auth"
	"github.com/waqiti-dev/deeplink/pkg/dispatch"
	"github.com/waqiti-dev/deeplink/pkg/linktest"
	"github.com/waqiti-dev/deeplink/pkg/records"
	"github.com/waqiti-dev/deeplink/pkg/routes"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func directory() *records.MemoryDirectory {
	return records.NewMemoryDirectory(records.Seed{
		Merchants: []records.Merchant{
			{ID: "merchant123", Name: "Corner Cafe", Active: true},
			{ID: "closed", Name: "Closed Shop"},
			{ID: "kyc", Name: "Jeweller", Active: true, RequiresVerification: true},
		},
		Users: []records.User{{ID: "u1"}, {ID: "u2"}},
		PaymentRequests: []records.PaymentRequest{
			{ID: "open", RequesterID: "u2", RecipientID: "u1", Amount: 20, Status: records.RequestPending, ExpiresAt: now.Add(time.Hour)},
			{ID: "stale", RequesterID: "u2", RecipientID: "u1", Status: records.RequestPending, ExpiresAt: now.Add(-time.Hour)},
			{ID: "done", RequesterID: "u2", RecipientID: "u1", Status: records.RequestPaid},
			{ID: "theirs", RequesterID: "u1", RecipientID: "u2", Status: records.RequestPending},
		},
		SplitBills:    []records.SplitBill{{ID: "s1", CreatorID: "u2", Participants: []string{"u1"}}},
		Promotions:    []records.Promotion{{Code: "SPRING", Title: "Spring"}, {Code: "OLD", ExpiresAt: now.Add(-time.Hour)}},
		ReferralCodes: []records.ReferralCode{{Code: "AMARA5", OwnerID: "u2"}},
		Transactions:  []records.Transaction{{ID: "t1", SenderID: "u1", RecipientID: "u2"}},
	})
}

func newDispatcher(t *testing.T, provider auth.Provider, dir records.Directory) (*dispatch.Dispatcher, *linktest.Host) {
	t.Helper()
	d := dispatch.New(provider)
	if err := routes.Register(d, dir, routes.WithClock(func() time.Time { return now })); err != nil {
		t.Fatalf("Register: %v", err)
	}
	host := linktest.NewHost()
	d.SetHost(context.Background(), host)
	return d, host
}

func TestDefaultOrder(t *testing.T) {
	want := []string{
		"/home", "/login", "/pay/:merchantId", "/request/:requestId", "/user/:userId",
		"/merchant/:merchantId", "/send/:userId?", "/split/:splitId", "/promo/:code",
		"/referral/:code", "/scan", "/transaction/:transactionId", "/settings/:section?",
		"/notifications",
	}
	var got []string
	for _, r := range routes.Default(directory()) {
		got = append(got, r.Pattern)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("patterns = %v\nwant %v", got, want)
	}

	d, _ := newDispatcher(t, linktest.Anonymous(), directory())
	if s := d.Shadowed(); len(s) != 0 {
		t.Errorf("default routes shadow each other: %v", s)
	}
}

func TestPaymentScenario(t *testing.T) {
	d, host := newDispatcher(t, linktest.SignedIn("u1"), directory())

	res := d.Route(context.Background(), "app://pay/merchant123?amount=25.50", dispatch.Partial{})

	linktest.ExpectSuccess(t, res, routes.DestPayment)
	want := map[string]any{"merchantId": "merchant123", "amount": 25.50}
	if !reflect.DeepEqual(res.Params, want) {
		t.Errorf("Params = %v, want %v", res.Params, want)
	}
	nav := linktest.ExpectNavigated(t, host, routes.DestPayment)
	if !reflect.DeepEqual(nav.Params, want) {
		t.Errorf("navigation params = %v, want %v", nav.Params, want)
	}
}

func TestRouteOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		provider auth.Provider
		url      string
		route    string
		code     dispatch.Code
		action   dispatch.ActionType
	}{
		{"home", linktest.Anonymous(), "waqiti://home", routes.DestHome, "", ""},
		{"login", linktest.Anonymous(), "waqiti://login?redirect=x", routes.DestLogin, "", ""},
		{"pay unknown merchant", linktest.SignedIn("u1"), "waqiti://pay/nobody", "", dispatch.CodeMerchantNotFound, ""},
		{"pay inactive merchant", linktest.SignedIn("u1"), "waqiti://pay/closed", "", dispatch.CodeMerchantInactive, ""},
		{"pay verification", linktest.SignedIn("u1"), "waqiti://pay/kyc?amount=900", routes.DestPayment, dispatch.CodeVerificationRequired, dispatch.ActionConfirm},
		{"pay zero amount", linktest.SignedIn("u1"), "waqiti://pay/merchant123?amount=0", "", dispatch.CodeInvalidAmount, ""},
		{"pay bad amount", linktest.SignedIn("u1"), "waqiti://pay/merchant123?amount=lots", "", dispatch.CodeInvalidAmount, ""},
		{"pay anonymous", linktest.Anonymous(), "waqiti://pay/merchant123", routes.DestLogin, dispatch.CodeAuthRequired, dispatch.ActionAuthenticate},
		{"request open", linktest.SignedIn("u1"), "waqiti://request/open", routes.DestPaymentRequest, "", ""},
		{"request missing", linktest.SignedIn("u1"), "waqiti://request/nope", "", dispatch.CodeRequestNotFound, ""},
		{"request expired", linktest.SignedIn("u1"), "waqiti://request/stale", "", dispatch.CodeRequestExpired, ""},
		{"request paid", linktest.SignedIn("u1"), "waqiti://request/done", "", dispatch.CodeRequestAlreadyPaid, ""},
		{"request for someone else", linktest.SignedIn("u1"), "waqiti://request/theirs", "", dispatch.CodeUnauthorized, ""},
		{"user", linktest.SignedIn("u1"), "https://waqiti.com/user/u2", routes.DestUserProfile, "", ""},
		{"user missing", linktest.SignedIn("u1"), "https://waqiti.com/user/ghost", "", dispatch.CodeUserNotFound, ""},
		{"merchant public", linktest.Anonymous(), "waqiti://merchant/merchant123", routes.DestMerchantProfile, "", ""},
		{"send without permission", linktest.SignedIn("u1"), "waqiti://send/u2", "", dispatch.CodePermissionDenied, dispatch.ActionPermissions},
		{"send", linktest.SignedIn("u1", routes.PermSendPayments), "waqiti://send/u2?amount=5", routes.DestSendMoney, "", ""},
		{"send no recipient", linktest.SignedIn("u1", routes.PermSendPayments), "waqiti://send", routes.DestSendMoney, "", ""},
		{"send unknown recipient", linktest.SignedIn("u1", routes.PermSendPayments), "waqiti://send/ghost", "", dispatch.CodeUserNotFound, ""},
		{"send negative", linktest.SignedIn("u1", routes.PermSendPayments), "waqiti://send/u2?amount=-1", "", dispatch.CodeInvalidAmount, ""},
		{"split participant", linktest.SignedIn("u1"), "waqiti://split/s1", routes.DestSplitBill, "", ""},
		{"split outsider", linktest.SignedIn("u9"), "waqiti://split/s1", "", dispatch.CodeUnauthorized, ""},
		{"split missing", linktest.SignedIn("u1"), "waqiti://split/s9", "", dispatch.CodeSplitNotFound, ""},
		{"promo", linktest.Anonymous(), "waqiti://promo/SPRING", routes.DestPromotion, "", ""},
		{"promo expired", linktest.Anonymous(), "waqiti://promo/OLD", "", dispatch.CodePromotionExpired, ""},
		{"promo missing", linktest.Anonymous(), "waqiti://promo/NONE", "", dispatch.CodePromotionNotFound, ""},
		{"referral new user", linktest.Anonymous(), "waqiti://referral/AMARA5", routes.DestSignUp, "", ""},
		{"referral existing user", linktest.SignedIn("u1"), "waqiti://referral/AMARA5", routes.DestReferral, "", ""},
		{"referral missing", linktest.Anonymous(), "waqiti://referral/NOPE", "", dispatch.CodeReferralNotFound, ""},
		{"scan without camera", linktest.SignedIn("u1"), "waqiti://scan", "", dispatch.CodePermissionDenied, dispatch.ActionPermissions},
		{"scan", linktest.SignedIn("u1", routes.PermCamera), "waqiti://scan", routes.DestQRScanner, "", ""},
		{"transaction party", linktest.SignedIn("u1"), "waqiti://transaction/t1", routes.DestTransactionDetail, "", ""},
		{"transaction outsider", linktest.SignedIn("u3"), "waqiti://transaction/t1", "", dispatch.CodeUnauthorized, ""},
		{"transaction missing", linktest.SignedIn("u1"), "waqiti://transaction/t9", "", dispatch.CodeTransactionNotFound, ""},
		{"settings", linktest.SignedIn("u1"), "waqiti://settings", routes.DestSettings, "", ""},
		{"settings section", linktest.SignedIn("u1"), "waqiti://settings/privacy", routes.DestSettings, "", ""},
		{"notifications", linktest.SignedIn("u1"), "waqiti://notifications", routes.DestNotifications, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, host := newDispatcher(t, tt.provider, directory())
			res := d.Route(context.Background(), tt.url, dispatch.Partial{})

			if tt.code == "" {
				linktest.ExpectSuccess(t, res, tt.route)
				linktest.ExpectNavigated(t, host, tt.route)
				return
			}
			linktest.ExpectFailure(t, res, tt.code)
			if res.ActionType != tt.action {
				t.Errorf("ActionType = %q, want %q", res.ActionType, tt.action)
			}
			if tt.route != "" && res.Route != tt.route {
				t.Errorf("Route = %q, want %q", res.Route, tt.route)
			}
			if res.ErrorMessage == "" {
				t.Error("ErrorMessage is empty")
			}
		})
	}
}

func TestDomainFailuresDoNotNavigate(t *testing.T) {
	d, host := newDispatcher(t, linktest.SignedIn("u1"), directory())
	d.Route(context.Background(), "waqiti://request/stale", dispatch.Partial{})
	linktest.ExpectNoNavigation(t, host)
}

func TestParamsPassed(t *testing.T) {
	tests := []struct {
		url  string
		user auth.Provider
		want map[string]any
	}{
		{"waqiti://settings/privacy", linktest.SignedIn("u1"), map[string]any{"section": "privacy"}},
		{"waqiti://send/u2?amount=5&note=lunch", linktest.SignedIn("u1", routes.PermSendPayments),
			map[string]any{"recipientId": "u2", "amount": 5.0, "note": "lunch"}},
		{"waqiti://referral/AMARA5", linktest.Anonymous(), map[string]any{"referralCode": "AMARA5"}},
		{"waqiti://referral/AMARA5", linktest.SignedIn("u1"), map[string]any{"code": "AMARA5", "referrerId": "u2"}},
		{"waqiti://request/open", linktest.SignedIn("u1"), map[string]any{"requestId": "open", "requesterId": "u2", "amount": 20.0}},
		{"waqiti://pay/merchant123?note=coffee&ref=inv-7", linktest.SignedIn("u1"),
			map[string]any{"merchantId": "merchant123", "note": "coffee", "reference": "inv-7"}},
	}
	for _, tt := range tests {
		d, _ := newDispatcher(t, tt.user, directory())
		res := d.Route(context.Background(), tt.url, dispatch.Partial{})
		if !reflect.DeepEqual(res.Params, tt.want) {
			t.Errorf("%s: Params = %v, want %v", tt.url, res.Params, tt.want)
		}
	}
}

func TestVerificationActionCarriesPaymentData(t *testing.T) {
	d, _ := newDispatcher(t, linktest.SignedIn("u1"), directory())
	res := d.Route(context.Background(), "waqiti://pay/kyc?amount=900", dispatch.Partial{})

	want := map[string]any{"merchantId": "kyc", "merchantName": "Jeweller", "amount": 900.0}
	if !reflect.DeepEqual(res.ActionData, want) {
		t.Errorf("ActionData = %v, want %v", res.ActionData, want)
	}
}

// failingDirectory fails every lookup with a transport error.
type failingDirectory struct{ records.Directory }

func (failingDirectory) Merchant(context.Context, string) (*records.Merchant, error) {
	return nil, errors.New("records backend unavailable")
}

func TestDirectoryFailureIsHandlingError(t *testing.T) {
	d, _ := newDispatcher(t, linktest.SignedIn("u1"), failingDirectory{})
	res := d.Route(context.Background(), "waqiti://merchant/m1", dispatch.Partial{})
	linktest.ExpectFailure(t, res, dispatch.CodeHandlingError)
}

func TestNavigationFailureIsHandlingError(t *testing.T) {
	d := dispatch.New(linktest.Anonymous())
	if err := routes.Register(d, directory()); err != nil {
		t.Fatal(err)
	}
	host := linktest.NewHost()
	host.Err = errors.New("screen stack locked")
	d.SetHost(context.Background(), host)

	linktest.ExpectFailure(t, d.Route(context.Background(), "waqiti://home", dispatch.Partial{}), dispatch.CodeHandlingError)
}
