package patients

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/store"
)

// importChunkSize stays under DynamoDB's 100-item transaction ceiling.
const importChunkSize = 90

// Repository defines the interface for patient directory storage.
type Repository interface {
	GetByID(ctx context.Context, patientID string) (*Patient, error)
	GetByIdentity(ctx context.Context, subject string) (*Patient, error)
	Create(ctx context.Context, p *Patient) error
	Link(ctx context.Context, patientID, identity, owner string, at time.Time) (*Patient, error)
	TouchLastVisit(ctx context.Context, patientID string, at time.Time) error
	UpdateName(ctx context.Context, patientID, name string, visitKeys []store.Key, at time.Time) error
	BulkUpsert(ctx context.Context, records []ImportRecord, at time.Time) error
}

// DynamoRepository stores patient profiles in the reception table.
type DynamoRepository struct {
	client    store.API
	tableName string
}

var _ Repository = (*DynamoRepository)(nil)

// NewDynamoRepository builds a repository over the provided client.
func NewDynamoRepository(client store.API, tableName string) *DynamoRepository {
	if client == nil {
		panic("patients: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("patients: table name cannot be empty")
	}
	return &DynamoRepository{client: client, tableName: tableName}
}

// GetByID returns the patient profile, or nil when the card number is unknown.
func (r *DynamoRepository) GetByID(ctx context.Context, patientID string) (*Patient, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       store.PatientKey(patientID).AttributeValues(),
	})
	if err != nil {
		return nil, fmt.Errorf("patients: get %s: %w", patientID, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var p Patient
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("patients: unmarshal %s: %w", patientID, err)
	}
	return &p, nil
}

// GetByIdentity resolves the at-most-one profile linked to a messaging
// identity via the byIdentity index.
func (r *DynamoRepository) GetByIdentity(ctx context.Context, subject string) (*Patient, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(store.IdentityIndex),
		KeyConditionExpression: aws.String("linkedIdentity = :subject AND sk = :profile"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":subject": &types.AttributeValueMemberS{Value: subject},
			":profile": &types.AttributeValueMemberS{Value: store.PatientSK},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("patients: query by identity: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var p Patient
	if err := attributevalue.UnmarshalMap(out.Items[0], &p); err != nil {
		return nil, fmt.Errorf("patients: unmarshal by identity: %w", err)
	}
	return &p, nil
}

// Create inserts a brand-new profile. The condition rejects a concurrent
// creation of the same card number; the loser re-reads and takes the link
// path instead.
func (r *DynamoRepository) Create(ctx context.Context, p *Patient) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("patients: marshal %s: %w", p.PatientID, err)
	}
	key := store.PatientKey(p.PatientID)
	item[store.AttrPK] = &types.AttributeValueMemberS{Value: key.PK}
	item[store.AttrSK] = &types.AttributeValueMemberS{Value: key.SK}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})
	if err != nil {
		if store.IsConditionFailed(err) {
			return ErrAlreadyLinked
		}
		return fmt.Errorf("patients: create %s: %w", p.PatientID, err)
	}
	return nil
}

// Link binds the profile to a messaging identity. The condition is the
// at-most-one-identity invariant: the write succeeds only when the record
// exists and is unlinked or already linked to this same identity.
func (r *DynamoRepository) Link(ctx context.Context, patientID, identity, owner string, at time.Time) (*Patient, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              store.PatientKey(patientID).AttributeValues(),
		UpdateExpression: aws.String("SET linkedIdentity = :subject, ownerSubjectId = :owner, linkedAt = :at, updatedAt = :at"),
		ConditionExpression: aws.String(
			"attribute_exists(pk) AND (attribute_not_exists(linkedIdentity) OR linkedIdentity = :subject)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":subject": &types.AttributeValueMemberS{Value: identity},
			":owner":   &types.AttributeValueMemberS{Value: owner},
			":at":      timeAttr(at),
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		if store.IsConditionFailed(err) {
			return nil, ErrAlreadyLinked
		}
		return nil, fmt.Errorf("patients: link %s: %w", patientID, err)
	}
	var p Patient
	if err := attributevalue.UnmarshalMap(out.Attributes, &p); err != nil {
		return nil, fmt.Errorf("patients: unmarshal linked %s: %w", patientID, err)
	}
	return &p, nil
}

// TouchLastVisit stamps the last check-in time. Best effort: a missing
// profile (proxy check-in for an unimported card) is not an error.
func (r *DynamoRepository) TouchLastVisit(ctx context.Context, patientID string, at time.Time) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 store.PatientKey(patientID).AttributeValues(),
		UpdateExpression:    aws.String("SET lastVisit = :at"),
		ConditionExpression: aws.String("attribute_exists(pk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":at": timeAttr(at),
		},
	})
	if err != nil {
		if store.IsConditionFailed(err) {
			return nil
		}
		return fmt.Errorf("patients: touch last visit %s: %w", patientID, err)
	}
	return nil
}

// UpdateName corrects the profile name and rewrites the denormalized name
// on the given active visits in one transaction, so the queue display and
// the directory never visibly disagree.
func (r *DynamoRepository) UpdateName(ctx context.Context, patientID, name string, visitKeys []store.Key, at time.Time) error {
	items := []types.TransactWriteItem{{
		Update: &types.Update{
			TableName:           aws.String(r.tableName),
			Key:                 store.PatientKey(patientID).AttributeValues(),
			UpdateExpression:    aws.String("SET #n = :name, updatedAt = :at"),
			ConditionExpression: aws.String("attribute_exists(pk)"),
			ExpressionAttributeNames: map[string]string{
				"#n": "name",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":name": &types.AttributeValueMemberS{Value: name},
				":at":   timeAttr(at),
			},
		},
	}}
	for _, key := range visitKeys {
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName:        aws.String(r.tableName),
				Key:              key.AttributeValues(),
				UpdateExpression: aws.String("SET #n = :name"),
				ExpressionAttributeNames: map[string]string{
					"#n": "name",
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":name": &types.AttributeValueMemberS{Value: name},
				},
			},
		})
	}

	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		if store.IsConditionFailed(err) {
			return ErrPatientNotFound
		}
		return fmt.Errorf("patients: update name %s: %w", patientID, err)
	}
	return nil
}

// BulkUpsert merges import records in transaction chunks. Updates create
// missing profiles and overwrite only patientId, name and updatedAt, so
// an already-linked record keeps its identity binding.
func (r *DynamoRepository) BulkUpsert(ctx context.Context, records []ImportRecord, at time.Time) error {
	for start := 0; start < len(records); start += importChunkSize {
		end := start + importChunkSize
		if end > len(records) {
			end = len(records)
		}

		items := make([]types.TransactWriteItem, 0, end-start)
		for _, rec := range records[start:end] {
			items = append(items, types.TransactWriteItem{
				Update: &types.Update{
					TableName:        aws.String(r.tableName),
					Key:              store.PatientKey(rec.PatientID).AttributeValues(),
					UpdateExpression: aws.String("SET patientId = :id, #n = :name, updatedAt = :at"),
					ExpressionAttributeNames: map[string]string{
						"#n": "name",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":id":   &types.AttributeValueMemberS{Value: rec.PatientID},
						":name": &types.AttributeValueMemberS{Value: rec.Name},
						":at":   timeAttr(at),
					},
				},
			})
		}

		if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items,
		}); err != nil {
			return fmt.Errorf("patients: bulk upsert chunk at %d: %w", start, err)
		}
	}
	return nil
}

func timeAttr(at time.Time) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339Nano)}
}
