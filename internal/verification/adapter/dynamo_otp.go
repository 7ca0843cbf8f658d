package adapter

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zonixt/eauction/internal/domain"
	"github.com/zonixt/eauction/internal/dynamo"
	"github.com/zonixt/eauction/internal/verification/app"
)

// otpDynamoDB is the subset of *dynamodb.Client the OTP store calls.
// optFns is variadic so test stubs can implement it directly.
type otpDynamoDB interface {
	GetItem(ctx context.Context, params *dynamo.GetItemInput, optFns ...func(*dynamo.Options)) (*dynamo.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamo.PutItemInput, optFns ...func(*dynamo.Options)) (*dynamo.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamo.UpdateItemInput, optFns ...func(*dynamo.Options)) (*dynamo.UpdateItemOutput, error)
}

var _ app.OTPStore = (*DynamoOTPStore)(nil)

// DefaultOTPRetention is how long a record outlives its expiry before the
// table's TTL sweeper may remove it.
const DefaultOTPRetention = 24 * time.Hour

// otpItem is the item shape of the OTP table, keyed by session_id.
type otpItem struct {
	SessionID  string `dynamodbav:"session_id"`
	Phone      string `dynamodbav:"phone_number"`
	Code       string `dynamodbav:"otp"`
	Method     string `dynamodbav:"method"`
	CreatedAt  string `dynamodbav:"created_at"`
	ExpiresAt  string `dynamodbav:"expires_at"`
	Verified   bool   `dynamodbav:"verified"`
	VerifiedAt string `dynamodbav:"verified_at,omitempty"`
	TTL        int64  `dynamodbav:"ttl"`
}

// DynamoOTPStore persists OTP records in DynamoDB.
type DynamoOTPStore struct {
	db        otpDynamoDB
	tableName string
	retention time.Duration
}

// NewDynamoOTPStore creates a DynamoOTPStore. A non-positive retention uses
// DefaultOTPRetention.
func NewDynamoOTPStore(db otpDynamoDB, tableName string, retention time.Duration) *DynamoOTPStore {
	if retention <= 0 {
		retention = DefaultOTPRetention
	}
	return &DynamoOTPStore{db: db, tableName: tableName, retention: retention}
}

// Insert writes the record with attribute_not_exists(session_id) so an
// existing session is never overwritten.
func (s *DynamoOTPStore) Insert(ctx context.Context, r domain.OTPRecord) error {
	ctx, span := tracer.Start(ctx, "dynamodb.otp.insert")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "PutItem"),
	)

	item := otpItem{
		SessionID: r.SessionID,
		Phone:     r.PhoneNumber,
		Code:      r.Code,
		Method:    string(r.DeliveryMethod),
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339Nano),
		ExpiresAt: r.ExpiresAt.UTC().Format(time.RFC3339Nano),
		TTL:       r.ExpiresAt.Add(s.retention).Unix(),
	}
	av, err := dynamo.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("otp store: marshal item: %w", err)
	}

	expr, err := dynamo.NewBuilder().
		WithCondition(dynamo.AttributeNotExists(dynamo.Name("session_id"))).
		Build()
	if err != nil {
		return fmt.Errorf("otp store: build condition: %w", err)
	}

	_, err = s.db.PutItem(ctx, &dynamo.PutItemInput{
		TableName:                 &s.tableName,
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if dynamo.IsConditionalCheckFailed(err) {
			return fmt.Errorf("otp store: insert: %w", domain.ErrSessionAlreadyExists)
		}
		return fmt.Errorf("otp store: insert: %w", err)
	}
	return nil
}

// FindUnverified reads the session with a strongly consistent read.
// Verified and missing sessions both return domain.ErrNotFound.
func (s *DynamoOTPStore) FindUnverified(ctx context.Context, sessionID string) (*domain.OTPRecord, error) {
	ctx, span := tracer.Start(ctx, "dynamodb.otp.find_unverified")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "GetItem"),
	)

	out, err := s.db.GetItem(ctx, &dynamo.GetItemInput{
		TableName:      &s.tableName,
		Key:            sessionKey(sessionID),
		ConsistentRead: dynamo.Bool(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("otp store: get otp: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("otp store: get otp: %w", domain.ErrNotFound)
	}

	var item otpItem
	if err := dynamo.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("otp store: unmarshal otp: %w", err)
	}
	if item.Verified {
		return nil, fmt.Errorf("otp store: get otp: %w", domain.ErrNotFound)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("otp store: parse created_at: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, item.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("otp store: parse expires_at: %w", err)
	}

	return &domain.OTPRecord{
		PhoneNumber:    item.Phone,
		Code:           item.Code,
		SessionID:      item.SessionID,
		DeliveryMethod: domain.DeliveryMethod(item.Method),
		CreatedAt:      createdAt,
		ExpiresAt:      expiresAt,
	}, nil
}

// MarkVerified sets verified and verified_at under the condition that the
// item exists and is still unverified. A failed condition returns
// domain.ErrSessionAlreadyConsumed.
func (s *DynamoOTPStore) MarkVerified(ctx context.Context, sessionID string, at time.Time) error {
	ctx, span := tracer.Start(ctx, "dynamodb.otp.mark_verified")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "UpdateItem"),
	)

	update := dynamo.Set(dynamo.Name("verified"), dynamo.Value(true)).
		Set(dynamo.Name("verified_at"), dynamo.Value(at.UTC().Format(time.RFC3339Nano)))
	cond := dynamo.AttributeExists(dynamo.Name("session_id")).
		And(dynamo.Name("verified").Equal(dynamo.Value(false)))

	expr, err := dynamo.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("otp store: build update: %w", err)
	}

	_, err = s.db.UpdateItem(ctx, &dynamo.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       sessionKey(sessionID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if dynamo.IsConditionalCheckFailed(err) {
			return fmt.Errorf("otp store: mark verified: %w", domain.ErrSessionAlreadyConsumed)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("otp store: mark verified: %w", err)
	}
	return nil
}

func sessionKey(sessionID string) map[string]dynamo.AttributeValue {
	return map[string]dynamo.AttributeValue{
		"session_id": &dynamo.AttributeValueMemberS{Value: sessionID},
	}
}
