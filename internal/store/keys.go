// Package store defines the single-table key schema shared by the patient
// directory and the visit queue, plus small helpers over the DynamoDB API.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// AttrPK and AttrSK are the table's key attribute names.
	AttrPK = "pk"
	AttrSK = "sk"

	// IdentityIndex is the GSI keyed on linkedIdentity.
	IdentityIndex = "byIdentity"

	// PatientSK is the fixed sort key of a patient profile item.
	PatientSK = "PROFILE"

	// StatusSK is the fixed sort key of the public status item.
	StatusSK = "CURRENT"
)

// API is the narrow slice of the DynamoDB client the repositories use.
type API interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(context.Context, *dynamodb.TransactWriteItemsInput, ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Key is a fully-resolved item key.
type Key struct {
	PK string
	SK string
}

// AttributeValues renders the key in the shape DynamoDB inputs expect.
func (k Key) AttributeValues() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrPK: &types.AttributeValueMemberS{Value: k.PK},
		AttrSK: &types.AttributeValueMemberS{Value: k.SK},
	}
}

// PatientKey addresses a patient profile item.
func PatientKey(patientID string) Key {
	return Key{PK: "PATIENT#" + patientID, SK: PatientSK}
}

// VisitPK is the partition holding one calendar day of visits.
func VisitPK(date string) string {
	return "VISIT#" + date
}

// VisitKey addresses one visit. The sort key leads with the arrival stamp
// so a plain Query returns the day in arrival order.
func VisitKey(date string, arrivedAt time.Time, visitID string) Key {
	return Key{
		PK: VisitPK(date),
		SK: fmt.Sprintf("%s#%s", arrivedAt.UTC().Format(time.RFC3339Nano), visitID),
	}
}

// CheckinKey addresses the active-visit marker whose conditional creation
// enforces the one-active-visit-per-patient-per-day invariant.
func CheckinKey(date, patientID string) Key {
	return Key{PK: "CHECKIN#" + date, SK: patientID}
}

// StatusKey addresses the published aggregate for a day.
func StatusKey(date string) Key {
	return Key{PK: "STATUS#" + date, SK: StatusSK}
}

// IsConditionFailed reports whether err is a conditional-write rejection,
// either directly or as a cancellation reason inside a transaction.
func IsConditionFailed(err error) bool {
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return true
	}
	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for _, reason := range txErr.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}
