package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// maxRecordSize bounds the bytes read for a single record object.
const maxRecordSize = 1 << 20

// ObjectGetter is the subset of *s3.Client used by S3Directory.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Directory reads records stored as JSON objects in S3.
//
// Each record lives at <prefix><kind>/<id>.json, for example
// "records/merchants/m1.json".
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	dir := records.NewS3Directory(s3.NewFromConfig(cfg), "waqiti-links", "records/")
type S3Directory struct {
	client ObjectGetter
	bucket string
	prefix string
}

// NewS3Directory creates a directory reading from bucket under prefix.
func NewS3Directory(client ObjectGetter, bucket, prefix string) *S3Directory {
	return &S3Directory{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for a record.
func (d *S3Directory) Key(kind Kind, id string) string {
	return d.prefix + string(kind) + "/" + id + ".json"
}

func fetch[T any](ctx context.Context, d *S3Directory, kind Kind, id string) (*T, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}

	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.Key(kind, id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
		}
		return nil, fmt.Errorf("s3 get %s %q: %w", kind, id, err)
	}
	defer out.Body.Close()

	var v T
	if err := json.NewDecoder(io.LimitReader(out.Body, maxRecordSize)).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode %s %q: %w", kind, id, err)
	}
	return &v, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func (d *S3Directory) Merchant(ctx context.Context, id string) (*Merchant, error) {
	return fetch[Merchant](ctx, d, KindMerchant, id)
}

func (d *S3Directory) User(ctx context.Context, id string) (*User, error) {
	return fetch[User](ctx, d, KindUser, id)
}

func (d *S3Directory) PaymentRequest(ctx context.Context, id string) (*PaymentRequest, error) {
	return fetch[PaymentRequest](ctx, d, KindPaymentRequest, id)
}

func (d *S3Directory) SplitBill(ctx context.Context, id string) (*SplitBill, error) {
	return fetch[SplitBill](ctx, d, KindSplitBill, id)
}

func (d *S3Directory) Promotion(ctx context.Context, code string) (*Promotion, error) {
	return fetch[Promotion](ctx, d, KindPromotion, code)
}

func (d *S3Directory) ReferralCode(ctx context.Context, code string) (*ReferralCode, error) {
	return fetch[ReferralCode](ctx, d, KindReferralCode, code)
}

func (d *S3Directory) Transaction(ctx context.Context, id string) (*Transaction, error) {
	return fetch[Transaction](ctx, d, KindTransaction, id)
}

var _ Directory = (*S3Directory)(nil)
