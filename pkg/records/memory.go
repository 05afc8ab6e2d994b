package records

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// Seed is the JSON document MemoryDirectory loads:
//
//	{
//	  "merchants": [{"id": "m1", "name": "Corner Cafe", "active": true}],
//	  "users": [{"id": "u1", "username": "amara"}],
//	  ...
//	}
type Seed struct {
	Merchants       []Merchant       `json:"merchants,omitempty"`
	Users           []User           `json:"users,omitempty"`
	PaymentRequests []PaymentRequest `json:"paymentRequests,omitempty"`
	SplitBills      []SplitBill      `json:"splitBills,omitempty"`
	Promotions      []Promotion      `json:"promotions,omitempty"`
	ReferralCodes   []ReferralCode   `json:"referralCodes,omitempty"`
	Transactions    []Transaction    `json:"transactions,omitempty"`
}

// ReadSeed decodes a seed document. Unknown fields are rejected.
func ReadSeed(r io.Reader) (Seed, error) {
	var s Seed
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Seed{}, fmt.Errorf("decode records seed: %w", err)
	}
	return s, nil
}

// LoadSeedFile reads a seed document from path.
func LoadSeedFile(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, err
	}
	defer f.Close()

	s, err := ReadSeed(f)
	if err != nil {
		return Seed{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// MemoryDirectory is an in-memory Directory. It is safe for concurrent use.
type MemoryDirectory struct {
	mu              sync.RWMutex
	merchants       map[string]Merchant
	users           map[string]User
	paymentRequests map[string]PaymentRequest
	splitBills      map[string]SplitBill
	promotions      map[string]Promotion
	referralCodes   map[string]ReferralCode
	transactions    map[string]Transaction
}

// NewMemoryDirectory creates a directory holding the records in seed.
func NewMemoryDirectory(seed Seed) *MemoryDirectory {
	d := &MemoryDirectory{
		merchants:       make(map[string]Merchant),
		users:           make(map[string]User),
		paymentRequests: make(map[string]PaymentRequest),
		splitBills:      make(map[string]SplitBill),
		promotions:      make(map[string]Promotion),
		referralCodes:   make(map[string]ReferralCode),
		transactions:    make(map[string]Transaction),
	}
	d.Apply(seed)
	return d
}

// Apply adds or replaces the records in seed.
func (d *MemoryDirectory) Apply(seed Seed) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range seed.Merchants {
		d.merchants[r.ID] = r
	}
	for _, r := range seed.Users {
		d.users[r.ID] = r
	}
	for _, r := range seed.PaymentRequests {
		d.paymentRequests[r.ID] = r
	}
	for _, r := range seed.SplitBills {
		d.splitBills[r.ID] = r
	}
	for _, r := range seed.Promotions {
		d.promotions[r.Code] = r
	}
	for _, r := range seed.ReferralCodes {
		d.referralCodes[r.Code] = r
	}
	for _, r := range seed.Transactions {
		d.transactions[r.ID] = r
	}
}

// Count returns the number of records of kind.
func (d *MemoryDirectory) Count(kind Kind) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch kind {
	case KindMerchant:
		return len(d.merchants)
	case KindUser:
		return len(d.users)
	case KindPaymentRequest:
		return len(d.paymentRequests)
	case KindSplitBill:
		return len(d.splitBills)
	case KindPromotion:
		return len(d.promotions)
	case KindReferralCode:
		return len(d.referralCodes)
	case KindTransaction:
		return len(d.transactions)
	}
	return 0
}

// lookup returns a copy of m[id] guarded by d's read lock.
func lookup[T any](d *MemoryDirectory, m map[string]T, kind Kind, id string) (*T, error) {
	d.mu.RLock()
	v, ok := m[id]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return &v, nil
}

func (d *MemoryDirectory) Merchant(_ context.Context, id string) (*Merchant, error) {
	return lookup(d, d.merchants, KindMerchant, id)
}

func (d *MemoryDirectory) User(_ context.Context, id string) (*User, error) {
	return lookup(d, d.users, KindUser, id)
}

func (d *MemoryDirectory) PaymentRequest(_ context.Context, id string) (*PaymentRequest, error) {
	return lookup(d, d.paymentRequests, KindPaymentRequest, id)
}

func (d *MemoryDirectory) SplitBill(_ context.Context, id string) (*SplitBill, error) {
	s, err := lookup(d, d.splitBills, KindSplitBill, id)
	if err != nil {
		return nil, err
	}
	s.Participants = append([]string(nil), s.Participants...)
	return s, nil
}

func (d *MemoryDirectory) Promotion(_ context.Context, code string) (*Promotion, error) {
	return lookup(d, d.promotions, KindPromotion, code)
}

func (d *MemoryDirectory) ReferralCode(_ context.Context, code string) (*ReferralCode, error) {
	return lookup(d, d.referralCodes, KindReferralCode, code)
}

func (d *MemoryDirectory) Transaction(_ context.Context, id string) (*Transaction, error) {
	return lookup(d, d.transactions, KindTransaction, id)
}

var _ Directory = (*MemoryDirectory)(nil)
