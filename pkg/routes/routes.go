// Package routes defines the default deep-link route set for the Waqiti app.
//
// Registration order matters: the dispatcher picks the first pattern that
// matches. Default returns the routes in the order they must be registered.
package routes

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/waqiti-dev/deeplink/pkg/dispatch"
	"github.com/waqiti-dev/deeplink/pkg/records"
	"github.com/waqiti-dev/deeplink/pkg/router"
)

// Destinations the default handlers navigate to.
const (
	DestHome              = "Home"
	DestLogin             = "Login"
	DestSignUp            = "SignUp"
	DestPayment           = "Payment"
	DestPaymentRequest    = "PaymentRequest"
	DestUserProfile       = "UserProfile"
	DestMerchantProfile   = "MerchantProfile"
	DestSendMoney         = "SendMoney"
	DestSplitBill         = "SplitBill"
	DestPromotion         = "Promotion"
	DestReferral          = "Referral"
	DestQRScanner         = "QRScanner"
	DestTransactionDetail = "TransactionDetail"
	DestSettings          = "Settings"
	DestNotifications     = "Notifications"
)

// Permissions required by gated routes.
const (
	PermSendPayments = "payments:send"
	PermCamera       = "camera"
)

// Option configures the default handlers.
type Option func(*handlers)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(h *handlers) {
		if now != nil {
			h.now = now
		}
	}
}

type handlers struct {
	dir records.Directory
	now func() time.Time
}

// Default returns the default route set backed by dir, in registration order.
func Default(dir records.Directory, opts ...Option) []dispatch.Route {
	h := &handlers{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}

	return []dispatch.Route{
		route("/home", false, "", meta("general", "Home screen", true), h.home),
		route("/login", false, "", meta("account", "Sign-in screen", false), h.login),
		route("/pay/:merchantId", true, "", meta("payments", "Pay a merchant", true), h.pay),
		route("/request/:requestId", true, "", meta("payments", "Open a payment request", true), h.request),
		route("/user/:userId", true, "", meta("social", "User profile", true), h.user),
		route("/merchant/:merchantId", false, "", meta("payments", "Merchant profile", true), h.merchant),
		route("/send/:userId?", true, PermSendPayments, meta("payments", "Send money", true), h.send),
		route("/split/:splitId", true, "", meta("payments", "Split bill", true), h.split),
		route("/promo/:code", false, "", meta("marketing", "Promotion", true), h.promo),
		route("/referral/:code", false, "", meta("marketing", "Referral invitation", true), h.referral),
		route("/scan", true, PermCamera, meta("payments", "QR scanner", false), h.scan),
		route("/transaction/:transactionId", true, "", meta("payments", "Transaction detail", false), h.transaction),
		route("/settings/:section?", true, "", meta("account", "Settings", false), h.settings),
		route("/notifications", true, "", meta("account", "Notifications", false), h.notifications),
	}
}

// Register registers the default route set on d.
func Register(d *dispatch.Dispatcher, dir records.Directory, opts ...Option) error {
	for _, r := range Default(dir, opts...) {
		if err := d.Register(r); err != nil {
			return err
		}
	}
	return nil
}

func route(pattern string, requiresAuth bool, permission string, m router.Meta, h dispatch.Handler) dispatch.Route {
	return dispatch.Route{
		Definition: router.Definition{
			Pattern:      pattern,
			RequiresAuth: requiresAuth,
			Permission:   permission,
			Meta:         m,
		},
		Handler: h,
	}
}

func meta(category, description string, public bool) router.Meta {
	return router.Meta{Category: category, Description: description, Public: public}
}

// navigate sends the host to dest and reports success. A navigation failure
// becomes a handler error.
func navigate(ctx context.Context, rc *dispatch.Context, dest string, params map[string]any) (dispatch.Result, error) {
	if err := rc.Navigate(ctx, dest, params); err != nil {
		return dispatch.Result{}, err
	}
	return dispatch.Success(dest, params), nil
}

// lookupFailed maps a directory error to a Result. Missing records become
// code; anything else is returned as a handler error.
func lookupFailed(err error, code dispatch.Code) (dispatch.Result, error) {
	if errors.Is(err, records.ErrNotFound) {
		return dispatch.Failure(code, ""), nil
	}
	return dispatch.Result{}, err
}

// amountParam reads the optional "amount" query parameter. ok is false when
// it is present but not a positive finite number.
func amountParam(params router.Params) (amount float64, present, ok bool) {
	v, present, err := params.Float("amount")
	if !present {
		return 0, false, true
	}
	if err != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, true, false
	}
	return v, true, true
}

func (h *handlers) home(ctx context.Context, _ router.Params, rc *dispatch.Context) (dispatch.Result, error) {
	return navigate(ctx, rc, DestHome, map[string]any{})
}

func (h *handlers) login(ctx context.Context, params router.Params, rc *dispatch.Context) (dispatch.Result, error) {
	out := map[string]any{}
	if redirect, ok := params.Get("redirect"); ok && redirect != "" {
		out["redirect"] = redirect
	}
	return navigate(ctx, rc, DestLogin, out)
}

type payLink struct {
	MerchantID string `param:"merchantId,required"`
	Note       string `param:"note"`
	Reference  string `param:"ref"`
}

func (h *handlers) pay(ctx context.Context, params router.Params, rc *dispatch.Context) (dispatch.Result, error) {
	var link payLink
	if err := router.Decode(params, &link); err != nil {
		return dispatch.Result{}, err
	}

	amount, hasAmount, ok := amountParam(params)
	if !ok {
		return dispatch.Failure(dispatch.CodeInvalidAmount, ""), nil
	}

	m, err := h.dir.Merchant(ctx, link.MerchantID)
	if err != nil {
		return lookupFailed(err, dispatch.CodeMerchantNotFound)
	}
	if !m.Active {
		return dispatch.Failure(dispatch.CodeMerchantInactive, ""), nil
	}

	out := map[string]any{"merchantId": link.MerchantID}
	if hasAmount {
		out["amount"] = amount
	}
	if link.Note != "" {
		out["note"] = link.Note
	}
	if link.Reference != "" {
		out["reference"] = link.Reference
	}

	if m.RequiresVerification {
		data := map[string]any{"merchantName": m.Name}
		for k, v := range out {
			data[k] = v
		}
		res := dispatch.Action(dispatch.CodeVerificationRequired, dispatch.ActionConfirm, data)
		res.Route = DestPayment
		return res, nil
	}
	return navigate(ctx, rc, DestPayment, out)
}

func (h *handlers) request(ctx context.Context, params router.Params, rc *dispatch.Context) (dispatch.Result, error) {
	id := params["requestId"]
	req, err := h.dir.PaymentRequest(ctx, id)
	if err != nil {
		return lookupFailed(err, dispatch.CodeRequestNotFound)
	}

	switch {
	case req.Expired(h.now()):
		return dispatch.Failure(dispatch.CodeRequestExpired, ""), nil
	case req.Paid():
		return dispatch.Failure(dispatch.CodeRequestAlreadyPaid, ""), nil
	case req.RecipientID != rc.UserID():
		return dispatch.Failure(dispatch.CodeUnauthorized, "this payment request is addressed to another user"), nil
	}

	return navigate(ctx, rc, DestPaymentRequest, map[string]any{
		"requestId":   id,
		"requesterId": req.RequesterID,
		"amount":      req.Amount,
	})
}

func (h *handlers) user(ctx context.Context, params router.Params, rc *dispatch.Context) (dispatch.Result, error) {
	id := params["userId"]
	if _, err := h.dir.User(ctx, id); err != nil {
		return lookupFailed(err, dispatch.CodeUserNotFound)
	}
	return navigate(ctx, rc, DestUserProfile, map[string]any{"userId": id})
}

func (h *handlers) merchant(ctx context.Context, params router.Params, rc *dispatch.Context) (dispatch.Result, error) {
	id := params["merchantId"]
	if _, err := h.dir.Merchant(ctx, id); err != nil {
		return lookupFailed(err, dispatch.CodeMerchantNotFound)
	}
	return navigate(ctx, rc, DestMerchantProfile, map[string]any{"merchantId": id})
}

func (h *handlers) send(ctx context.Context, params router.Params, rc *dispatch.Context) (dispatch.Result, error) {
	amount, hasAmount, ok := amountParam(params)
	if !ok {
		return dispatch.Failure(dispatch.CodeInvalidAmount, ""), nil
	}

	out := map[string]any{}
	if id := params["userId"]; id != "" {
		if _, err := h.dir.User(ctx, id); err != nil {
			return lookupFailed(err, dispatch.CodeUserNotFound)
		}
		out["recipientId"] = id
	}
	if hasAmount {
		out["amount"] = amount
	}
	if note := params["note"]; note != "" {
		out["note"] = note
	}
	return navigate(ctx, rc, DestSendMoney, out)
}

func (h *handlers) split(ctx context.Context, params router.Params, rc *dispatch.Context) (dispatch.Result, error) {
	id := params["splitId"]
	bill, err := h.dir.SplitBill(ctx, id)
	if err != nil {
		return lookupFailed(err, dispatch.CodeSplitNotFound)
	}
	if !bill.Includes(rc.UserID()) {
		return dispatch.Failure(dispatch.CodeUnauthorized, "you are not part of this split bill"), nil
	}
	return navigate(ctx, rc, DestSplitBill, map[string]any{"splitId": id})
}

func (h *handlers) promo(ctx context.Context, params router.Params, rc *dispatch.Context) (dispatch.Result, error) {
	code := params["code"]
	p, err := h.dir.Promotion(ctx, code)
	if err != nil {
		return lookupFailed(err, dispatch.CodePromotionNotFound)
	}
	if p.Expired(h.now()) {
		return dispatch.Failure(dispatch.CodePromotionExpired, ""), nil
	}
	return navigate(ctx, rc, DestPromotion, map[string]any{"code": code, "title": p.Title})
}

func (h *handlers) referral(ctx context.Context, params router.Params, rc *dispatch.Context) (dispatch.Result, error) {
	code := params["code"]
	ref, err := h.dir.ReferralCode(ctx, code)
	if err != nil {
		return lookupFailed(err, dispatch.CodeReferralNotFound)
	}

	// New users sign up with the code applied; existing users see the
	// invitation.
	if !rc.IsAuthenticated {
		return navigate(ctx, rc, DestSignUp, map[string]any{"referralCode": code})
	}
	return navigate(ctx, rc, DestReferral, map[string]any{"code": code, "referrerId": ref.OwnerID})
}

func (h *handlers) scan(ctx context.Context, _ router.Params, rc *dispatch.Context) (dispatch.Result, error) {
	return navigate(ctx, rc, DestQRScanner, map[string]any{})
}

func (h *handlers) transaction(ctx context.Context, params router.Params, rc *dispatch.Context) (dispatch.Result, error) {
	id := params["transactionId"]
	tx, err := h.dir.Transaction(ctx, id)
	if err != nil {
		return lookupFailed(err, dispatch.CodeTransactionNotFound)
	}
	if !tx.Involves(rc.UserID()) {
		return dispatch.Failure(dispatch.CodeUnauthorized, "you are not a party to this transaction"), nil
	}
	return navigate(ctx, rc, DestTransactionDetail, map[string]any{"transactionId": id})
}

func (h *handlers) settings(ctx context.Context, params router.Params, rc *dispatch.Context) (dispatch.Result, error) {
	out := map[string]any{}
	if section := params["section"]; section != "" {
		out["section"] = section
	}
	return navigate(ctx, rc, DestSettings, out)
}

func (h *handlers) notifications(ctx context.Context, _ router.Params, rc *dispatch.Context) (dispatch.Result, error) {
	return navigate(ctx, rc, DestNotifications, map[string]any{})
}
