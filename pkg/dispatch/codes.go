package dispatch

// Code is a routing outcome code. The set is closed: every failed Result
// carries one of the codes below.
type Code string

// Structural, authorization and internal codes produced by the dispatcher.
const (
	CodeInvalidURL         Code = "INVALID_URL"
	CodeRouteNotFound      Code = "ROUTE_NOT_FOUND"
	CodeNavigationNotReady Code = "NAVIGATION_NOT_READY"
	CodeAuthRequired       Code = "AUTH_REQUIRED"
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeRoutingError       Code = "ROUTING_ERROR"
	CodeHandlingError      Code = "HANDLING_ERROR"
	CodeRouteTimeout       Code = "ROUTE_TIMEOUT"
)

// Domain codes returned by route handlers.
const (
	CodeMerchantNotFound     Code = "MERCHANT_NOT_FOUND"
	CodeMerchantInactive     Code = "MERCHANT_INACTIVE"
	CodeVerificationRequired Code = "VERIFICATION_REQUIRED"
	CodeUserNotFound         Code = "USER_NOT_FOUND"
	CodeRequestNotFound      Code = "REQUEST_NOT_FOUND"
	CodeRequestExpired       Code = "REQUEST_EXPIRED"
	CodeRequestAlreadyPaid   Code = "REQUEST_ALREADY_PAID"
	CodeSplitNotFound        Code = "SPLIT_NOT_FOUND"
	CodePromotionNotFound    Code = "PROMOTION_NOT_FOUND"
	CodePromotionExpired     Code = "PROMOTION_EXPIRED"
	CodeReferralNotFound     Code = "REFERRAL_NOT_FOUND"
	CodeTransactionNotFound  Code = "TRANSACTION_NOT_FOUND"
	CodeInvalidAmount        Code = "INVALID_AMOUNT"
	CodeUnauthorized         Code = "UNAUTHORIZED"
)

// Category groups codes by how a caller recovers from them.
type Category string

const (
	// CategoryStructural failures trigger an automatic fallback navigation.
	CategoryStructural Category = "structural"
	// CategoryAuthorization failures ask the user to act (sign in, grant).
	CategoryAuthorization Category = "authorization"
	// CategoryDomain failures are shown to the user via ErrorMessage.
	CategoryDomain Category = "domain"
	// CategoryInternal failures are unclassified errors.
	CategoryInternal Category = "internal"
	// CategoryUnknown is returned for codes outside the closed set.
	CategoryUnknown Category = "unknown"
)

type codeInfo struct {
	category Category
	message  string
}

var codeRegistry = map[Code]codeInfo{
	CodeInvalidURL:         {CategoryStructural, "The link could not be read"},
	CodeRouteNotFound:      {CategoryStructural, "No destination matches this link"},
	CodeNavigationNotReady: {CategoryStructural, "The app is not ready yet; the link will open shortly"},
	CodeAuthRequired:       {CategoryAuthorization, "Sign in to continue"},
	CodePermissionDenied:   {CategoryAuthorization, "You don't have permission to open this link"},
	CodeRoutingError:       {CategoryInternal, "Something went wrong while opening the link"},
	CodeHandlingError:      {CategoryInternal, "The destination could not be opened"},
	CodeRouteTimeout:       {CategoryInternal, "Opening the link took too long"},

	CodeMerchantNotFound:     {CategoryDomain, "Merchant not found"},
	CodeMerchantInactive:     {CategoryDomain, "This merchant is not accepting payments"},
	CodeVerificationRequired: {CategoryDomain, "This merchant requires verification before paying"},
	CodeUserNotFound:         {CategoryDomain, "User not found"},
	CodeRequestNotFound:      {CategoryDomain, "Payment request not found"},
	CodeRequestExpired:       {CategoryDomain, "This payment request has expired"},
	CodeRequestAlreadyPaid:   {CategoryDomain, "This payment request has already been paid"},
	CodeSplitNotFound:        {CategoryDomain, "Split bill not found"},
	CodePromotionNotFound:    {CategoryDomain, "Promotion not found"},
	CodePromotionExpired:     {CategoryDomain, "This promotion has ended"},
	CodeReferralNotFound:     {CategoryDomain, "Referral code not found"},
	CodeTransactionNotFound:  {CategoryDomain, "Transaction not found"},
	CodeInvalidAmount:        {CategoryDomain, "The amount is not valid"},
	CodeUnauthorized:         {CategoryDomain, "You are not allowed to view this"},
}

// Category returns the recovery category of c.
func (c Code) Category() Category {
	if info, ok := codeRegistry[c]; ok {
		return info.category
	}
	return CategoryUnknown
}

// Message returns the default user-facing message for c.
func (c Code) Message() string {
	return codeRegistry[c].message
}

// Known reports whether c belongs to the closed set.
func (c Code) Known() bool {
	_, ok := codeRegistry[c]
	return ok
}

// String implements fmt.Stringer.
func (c Code) String() string { return string(c) }

// Codes returns every known code.
func Codes() []Code {
	out := make([]Code, 0, len(codeRegistry))
	for c := range codeRegistry {
		out = append(out, c)
	}
	return out
}
