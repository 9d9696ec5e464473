package patients

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/store"
)

type mockDynamo struct {
	getOutput   *dynamodb.GetItemOutput
	getErr      error
	putInput    *dynamodb.PutItemInput
	putErr      error
	updateInput *dynamodb.UpdateItemInput
	updateOut   *dynamodb.UpdateItemOutput
	updateErr   error
	queryInput  *dynamodb.QueryInput
	queryOutput *dynamodb.QueryOutput
	txInputs    []*dynamodb.TransactWriteItemsInput
	txErr       error
}

func (m *mockDynamo) GetItem(_ context.Context, input *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.getOutput == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return m.getOutput, nil
}

func (m *mockDynamo) PutItem(_ context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.putInput = input
	return &dynamodb.PutItemOutput{}, m.putErr
}

func (m *mockDynamo) UpdateItem(_ context.Context, input *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.updateInput = input
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	if m.updateOut == nil {
		return &dynamodb.UpdateItemOutput{}, nil
	}
	return m.updateOut, nil
}

func (m *mockDynamo) DeleteItem(_ context.Context, input *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *mockDynamo) Query(_ context.Context, input *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.queryInput = input
	if m.queryOutput == nil {
		return &dynamodb.QueryOutput{}, nil
	}
	return m.queryOutput, nil
}

func (m *mockDynamo) TransactWriteItems(_ context.Context, input *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	m.txInputs = append(m.txInputs, input)
	return &dynamodb.TransactWriteItemsOutput{}, m.txErr
}

func TestDynamoRepository_CreateGuardsAgainstOverwrite(t *testing.T) {
	mock := &mockDynamo{}
	repo := NewDynamoRepository(mock, "reception")

	err := repo.Create(context.Background(), &Patient{PatientID: "1001", Name: "山田太郎"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if expr := mock.putInput.ConditionExpression; expr == nil || *expr != "attribute_not_exists(pk)" {
		t.Fatalf("expected creation guard, got %v", expr)
	}
	pk := mock.putInput.Item["pk"].(*types.AttributeValueMemberS).Value
	sk := mock.putInput.Item["sk"].(*types.AttributeValueMemberS).Value
	if pk != "PATIENT#1001" || sk != "PROFILE" {
		t.Fatalf("unexpected item key %s / %s", pk, sk)
	}
}

func TestDynamoRepository_CreateLostRace(t *testing.T) {
	mock := &mockDynamo{putErr: &types.ConditionalCheckFailedException{}}
	repo := NewDynamoRepository(mock, "reception")

	err := repo.Create(context.Background(), &Patient{PatientID: "1001", Name: "山田太郎"})
	if !errors.Is(err, ErrAlreadyLinked) {
		t.Fatalf("expected ErrAlreadyLinked, got %v", err)
	}
}

func TestDynamoRepository_LinkConditionAllowsOnlyUnlinkedOrSameIdentity(t *testing.T) {
	mock := &mockDynamo{updateOut: &dynamodb.UpdateItemOutput{
		Attributes: map[string]types.AttributeValue{
			"patientId":      &types.AttributeValueMemberS{Value: "1001"},
			"linkedIdentity": &types.AttributeValueMemberS{Value: "U1"},
		},
	}}
	repo := NewDynamoRepository(mock, "reception")

	p, err := repo.Link(context.Background(), "1001", "U1", "U1", time.Now())
	if err != nil {
		t.Fatalf("Link returned error: %v", err)
	}
	if p.LinkedIdentity != "U1" {
		t.Fatalf("expected returned record from ALL_NEW, got %#v", p)
	}

	cond := *mock.updateInput.ConditionExpression
	if cond != "attribute_exists(pk) AND (attribute_not_exists(linkedIdentity) OR linkedIdentity = :subject)" {
		t.Fatalf("unexpected link condition: %s", cond)
	}
	if mock.updateInput.ReturnValues != types.ReturnValueAllNew {
		t.Fatalf("expected ALL_NEW, got %v", mock.updateInput.ReturnValues)
	}
}

func TestDynamoRepository_LinkTakenByOther(t *testing.T) {
	mock := &mockDynamo{updateErr: &types.ConditionalCheckFailedException{}}
	repo := NewDynamoRepository(mock, "reception")

	if _, err := repo.Link(context.Background(), "1001", "U2", "U2", time.Now()); !errors.Is(err, ErrAlreadyLinked) {
		t.Fatalf("expected ErrAlreadyLinked, got %v", err)
	}
}

func TestDynamoRepository_GetByIdentityQueriesIndex(t *testing.T) {
	mock := &mockDynamo{}
	repo := NewDynamoRepository(mock, "reception")

	p, err := repo.GetByIdentity(context.Background(), "U1")
	if err != nil {
		t.Fatalf("GetByIdentity returned error: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil for unlinked identity, got %#v", p)
	}
	if *mock.queryInput.IndexName != "byIdentity" {
		t.Fatalf("expected byIdentity index, got %s", *mock.queryInput.IndexName)
	}
	// The GSI also projects visit items carrying linkedIdentity; the sort
	// condition keeps the query on profiles.
	if *mock.queryInput.KeyConditionExpression != "linkedIdentity = :subject AND sk = :profile" {
		t.Fatalf("unexpected key condition: %s", *mock.queryInput.KeyConditionExpression)
	}
}

func TestDynamoRepository_TouchLastVisitIgnoresMissingProfile(t *testing.T) {
	mock := &mockDynamo{updateErr: &types.ConditionalCheckFailedException{}}
	repo := NewDynamoRepository(mock, "reception")

	if err := repo.TouchLastVisit(context.Background(), "1001", time.Now()); err != nil {
		t.Fatalf("expected missing profile to be ignored, got %v", err)
	}
}

func TestDynamoRepository_UpdateNameRewritesVisitsAtomically(t *testing.T) {
	mock := &mockDynamo{}
	repo := NewDynamoRepository(mock, "reception")

	visitKeys := []store.Key{{PK: "VISIT#2026-05-01", SK: "2026-05-01T00:00:00Z#v1"}}
	err := repo.UpdateName(context.Background(), "1001", "山田次郎", visitKeys, time.Now())
	if err != nil {
		t.Fatalf("UpdateName returned error: %v", err)
	}
	if len(mock.txInputs) != 1 {
		t.Fatalf("expected one transaction, got %d", len(mock.txInputs))
	}
	items := mock.txInputs[0].TransactItems
	if len(items) != 2 {
		t.Fatalf("expected profile plus one visit, got %d items", len(items))
	}
	// "name" is a DynamoDB reserved word in expressions.
	if items[0].Update.ExpressionAttributeNames["#n"] != "name" {
		t.Fatalf("expected aliased name attribute, got %v", items[0].Update.ExpressionAttributeNames)
	}
	if *items[1].Update.UpdateExpression != "SET #n = :name" {
		t.Fatalf("unexpected visit update: %s", *items[1].Update.UpdateExpression)
	}
}

func TestDynamoRepository_BulkUpsertChunksTransactions(t *testing.T) {
	mock := &mockDynamo{}
	repo := NewDynamoRepository(mock, "reception")

	records := make([]ImportRecord, 200)
	for i := range records {
		records[i] = ImportRecord{PatientID: fmt.Sprintf("%d", 1000+i), Name: "患者"}
	}
	if err := repo.BulkUpsert(context.Background(), records, time.Now()); err != nil {
		t.Fatalf("BulkUpsert returned error: %v", err)
	}
	if len(mock.txInputs) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(mock.txInputs))
	}
	sizes := []int{len(mock.txInputs[0].TransactItems), len(mock.txInputs[1].TransactItems), len(mock.txInputs[2].TransactItems)}
	if sizes[0] != 90 || sizes[1] != 90 || sizes[2] != 20 {
		t.Fatalf("unexpected chunk sizes: %v", sizes)
	}
	// A merge update keeps an existing identity binding intact.
	if *mock.txInputs[0].TransactItems[0].Update.UpdateExpression != "SET patientId = :id, #n = :name, updatedAt = :at" {
		t.Fatalf("unexpected upsert expression: %s", *mock.txInputs[0].TransactItems[0].Update.UpdateExpression)
	}
}
