package status

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/store"
)

// Repository persists the published aggregate so a fresh process can
// serve the display before the first recompute.
type Repository interface {
	Put(ctx context.Context, snap Snapshot) error
	Get(ctx context.Context, date string) (*Snapshot, error)
}

// DynamoRepository stores one status item per clinic day.
type DynamoRepository struct {
	client    store.API
	tableName string
}

var _ Repository = (*DynamoRepository)(nil)

// NewDynamoRepository builds a repository over the provided client.
func NewDynamoRepository(client store.API, tableName string) *DynamoRepository {
	if client == nil {
		panic("status: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("status: table name cannot be empty")
	}
	return &DynamoRepository{client: client, tableName: tableName}
}

// Put overwrites the day's published aggregate.
func (r *DynamoRepository) Put(ctx context.Context, snap Snapshot) error {
	item, err := attributevalue.MarshalMap(snap)
	if err != nil {
		return fmt.Errorf("status: marshal snapshot: %w", err)
	}
	for k, v := range store.StatusKey(snap.Date).AttributeValues() {
		item[k] = v
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("status: put snapshot %s: %w", snap.Date, err)
	}
	return nil
}

// Get returns the day's published aggregate, or nil when none was
// published yet.
func (r *DynamoRepository) Get(ctx context.Context, date string) (*Snapshot, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       store.StatusKey(date).AttributeValues(),
	})
	if err != nil {
		return nil, fmt.Errorf("status: get snapshot %s: %w", date, err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var snap Snapshot
	if err := attributevalue.UnmarshalMap(out.Item, &snap); err != nil {
		return nil, fmt.Errorf("status: unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// InMemoryRepository keeps snapshots in a map for tests and local runs.
type InMemoryRepository struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
}

var _ Repository = (*InMemoryRepository)(nil)

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{snaps: make(map[string]Snapshot)}
}

func (r *InMemoryRepository) Put(_ context.Context, snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps[snap.Date] = snap
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, date string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.snaps[date]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}
