// Package records provides lookups of the domain records the default link
// handlers validate against: merchants, users, payment requests, split bills,
// promotions, referral codes and transactions.
//
// The data services that own these records are outside this module. A
// Directory is the read-only view the handlers need. MemoryDirectory serves
// tests and local runs from a JSON seed; S3Directory reads one JSON object
// per record from a bucket.
package records

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("records: not found")

// Kind names a record collection. It is also the object key segment used by
// S3Directory.
type Kind string

const (
	KindMerchant       Kind = "merchants"
	KindUser           Kind = "users"
	KindPaymentRequest Kind = "payment-requests"
	KindSplitBill      Kind = "split-bills"
	KindPromotion      Kind = "promotions"
	KindReferralCode   Kind = "referral-codes"
	KindTransaction    Kind = "transactions"
)

// Kinds returns every record kind.
func Kinds() []Kind {
	return []Kind{
		KindMerchant, KindUser, KindPaymentRequest, KindSplitBill,
		KindPromotion, KindReferralCode, KindTransaction,
	}
}

// Merchant is a business that accepts payments.
type Merchant struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Category             string `json:"category,omitempty"`
	Active               bool   `json:"active"`
	RequiresVerification bool   `json:"requiresVerification,omitempty"`
}

// User is a public user profile.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Payment request statuses.
const (
	RequestPending   = "pending"
	RequestPaid      = "paid"
	RequestCancelled = "cancelled"
)

// PaymentRequest asks RecipientID to pay RequesterID.
type PaymentRequest struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"requesterId"`
	RecipientID string    `json:"recipientId"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency,omitempty"`
	Note        string    `json:"note,omitempty"`
	Status      string    `json:"status"`
	ExpiresAt   time.Time `json:"expiresAt,omitzero"`
}

// Expired reports whether the request has expired at now. A zero ExpiresAt
// never expires.
func (r *PaymentRequest) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Paid reports whether the request has already been paid.
func (r *PaymentRequest) Paid() bool {
	return r.Status == RequestPaid
}

// SplitBill divides a total between participants.
type SplitBill struct {
	ID           string   `json:"id"`
	CreatorID    string   `json:"creatorId"`
	Participants []string `json:"participants"`
	Total        float64  `json:"total"`
	Currency     string   `json:"currency,omitempty"`
	Description  string   `json:"description,omitempty"`
}

// Includes reports whether userID created or participates in the bill.
func (s *SplitBill) Includes(userID string) bool {
	if userID == "" {
		return false
	}
	return s.CreatorID == userID || slices.Contains(s.Participants, userID)
}

// Promotion is a campaign offer addressed by its code.
type Promotion struct {
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt,omitzero"`
}

// Expired reports whether the promotion has ended at now.
func (p *Promotion) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

// ReferralCode credits OwnerID when a new user signs up with it.
type ReferralCode struct {
	Code    string  `json:"code"`
	OwnerID string  `json:"ownerId"`
	Reward  float64 `json:"reward,omitempty"`
}

// Transaction is a completed or in-flight money movement.
type Transaction struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency,omitempty"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}

// Involves reports whether userID sent or received the transaction.
func (t *Transaction) Involves(userID string) bool {
	return userID != "" && (t.SenderID == userID || t.RecipientID == userID)
}

// Directory looks up records by identifier. Every method returns an error
// wrapping ErrNotFound when the record does not exist.
type Directory interface {
	Merchant(ctx context.Context, id string) (*Merchant, error)
	User(ctx context.Context, id string) (*User, error)
	PaymentRequest(ctx context.Context, id string) (*PaymentRequest, error)
	SplitBill(ctx context.Context, id string) (*SplitBill, error)
	Promotion(ctx context.Context, code string) (*Promotion, error)
	ReferralCode(ctx context.Context, code string) (*ReferralCode, error)
	Transaction(ctx context.Context, id string) (*Transaction, error)
}

// validID rejects identifiers that cannot name a single record.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, "/\\")
}
