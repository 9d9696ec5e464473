package visits

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

// closeChunkSize keeps each bulk-close transaction (one update plus at
// most one marker delete per visit) under DynamoDB's 100-item cap.
const closeChunkSize = 45

// Repository defines the interface for visit queue storage.
type Repository interface {
	ListByDate(ctx context.Context, date string) ([]Visit, error)
	CheckIn(ctx context.Context, v *Visit) error
	CreateProxy(ctx context.Context, v *Visit) error
	UpdateStatus(ctx context.Context, date, visitID string, to Status, at time.Time) (*Visit, error)
	CloseAllActive(ctx context.Context, date string) (int, error)
	ToggleReceipt(ctx context.Context, date, visitID string) (*Visit, error)
	ListActiveVisitKeys(ctx context.Context, date, patientID string) ([]store.Key, error)
}

// DynamoRepository stores visits in the reception table, one partition per
// clinic day, sort-keyed by arrival.
type DynamoRepository struct {
	client    store.API
	tableName string
}

var _ Repository = (*DynamoRepository)(nil)

// NewDynamoRepository builds a repository over the provided client.
func NewDynamoRepository(client store.API, tableName string) *DynamoRepository {
	if client == nil {
		panic("visits: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("visits: table name cannot be empty")
	}
	return &DynamoRepository{client: client, tableName: tableName}
}

// ListByDate returns the day's visits in arrival order.
func (r *DynamoRepository) ListByDate(ctx context.Context, date string) ([]Visit, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: store.VisitPK(date)},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("visits: list %s: %w", date, err)
	}

	visits := make([]Visit, 0, len(out.Items))
	for _, item := range out.Items {
		var v Visit
		if err := attributevalue.UnmarshalMap(item, &v); err != nil {
			return nil, fmt.Errorf("visits: unmarshal visit: %w", err)
		}
		visits = append(visits, v)
	}
	return visits, nil
}

// CheckIn inserts the visit and its active-visit marker in one
// transaction. The marker's existence condition is the same-day dedup: two
// concurrent check-ins for one patient cannot both commit.
func (r *DynamoRepository) CheckIn(ctx context.Context, v *Visit) error {
	item, err := r.visitItem(v)
	if err != nil {
		return err
	}
	marker := store.CheckinKey(v.Date, v.PatientID)

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(r.tableName),
					Item:                markerItem(marker, v.ID, v.ArrivedAt),
					ConditionExpression: aws.String("attribute_not_exists(pk)"),
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(r.tableName),
					Item:      item,
				},
			},
		},
	})
	if err != nil {
		if store.IsConditionFailed(err) {
			return ErrAlreadyCheckedIn
		}
		return fmt.Errorf("visits: check in %s: %w", v.PatientID, err)
	}
	return nil
}

// CreateProxy inserts a staff-created visit. Staff deliberately bypass
// the one-per-day rule, so the marker is written without a condition --
// but it is still written, so a later self check-in sees the active
// proxy visit and dedups against it.
func (r *DynamoRepository) CreateProxy(ctx context.Context, v *Visit) error {
	item, err := r.visitItem(v)
	if err != nil {
		return err
	}
	marker := store.CheckinKey(v.Date, v.PatientID)

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName: aws.String(r.tableName),
					Item:      markerItem(marker, v.ID, v.ArrivedAt),
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(r.tableName),
					Item:      item,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("visits: create proxy visit: %w", err)
	}
	return nil
}

// UpdateStatus moves a visit to any of the three states. Entering paid
// stamps completedAt; returning to active clears completedAt and closedBy
// and restores the dedup marker; leaving active removes the marker, but
// only once the patient's last active visit for the day leaves the queue
// (proxy visits can stack several on one patient).
func (r *DynamoRepository) UpdateStatus(ctx context.Context, date, visitID string, to Status, at time.Time) (*Visit, error) {
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}
	day, v, key, err := r.findVisit(ctx, date, visitID)
	if err != nil {
		return nil, err
	}

	update := &types.Update{
		TableName:                aws.String(r.tableName),
		Key:                      key.AttributeValues(),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: string(to)},
		},
	}

	marker := store.CheckinKey(date, v.PatientID)
	items := []types.TransactWriteItem{{Update: update}}

	switch to {
	case StatusPaid:
		update.UpdateExpression = aws.String("SET #s = :s, completedAt = :at")
		update.ExpressionAttributeValues[":at"] = timeAttr(at)
		if !hasOtherActive(day, v.PatientID, v.ID) {
			items = append(items, types.TransactWriteItem{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       marker.AttributeValues(),
			}})
		}
	case StatusCancelled:
		update.UpdateExpression = aws.String("SET #s = :s")
		if !hasOtherActive(day, v.PatientID, v.ID) {
			items = append(items, types.TransactWriteItem{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       marker.AttributeValues(),
			}})
		}
	case StatusActive:
		// Full reversal: the visit comes back to the queue as if never
		// closed, and the dedup marker is restored unconditionally since
		// this is an explicit staff action.
		update.UpdateExpression = aws.String("SET #s = :s REMOVE completedAt, closedBy")
		items = append(items, types.TransactWriteItem{Put: &types.Put{
			TableName: aws.String(r.tableName),
			Item:      markerItem(marker, v.ID, v.ArrivedAt),
		}})
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		return nil, fmt.Errorf("visits: update status %s -> %s: %w", visitID, to, err)
	}

	updated := *v
	updated.Status = to
	switch to {
	case StatusPaid:
		completed := at
		updated.CompletedAt = &completed
	case StatusActive:
		updated.CompletedAt = nil
		updated.ClosedBy = ""
	}
	return &updated, nil
}

// CloseAllActive cancels every active visit for the day, stamping
// closedBy, in bounded transaction chunks. Paid and already-cancelled
// visits are untouched.
func (r *DynamoRepository) CloseAllActive(ctx context.Context, date string) (int, error) {
	all, err := r.ListByDate(ctx, date)
	if err != nil {
		return 0, err
	}

	var active []Visit
	for _, v := range all {
		if v.Status == StatusActive {
			active = append(active, v)
		}
	}
	if len(active) == 0 {
		return 0, nil
	}

	for start := 0; start < len(active); start += closeChunkSize {
		end := start + closeChunkSize
		if end > len(active) {
			end = len(active)
		}

		items := make([]types.TransactWriteItem, 0, 2*(end-start))
		seenMarkers := make(map[string]struct{})
		for _, v := range active[start:end] {
			items = append(items, types.TransactWriteItem{
				Update: &types.Update{
					TableName:                aws.String(r.tableName),
					Key:                      store.VisitKey(v.Date, v.ArrivedAt, v.ID).AttributeValues(),
					UpdateExpression:         aws.String("SET #s = :s, closedBy = :by"),
					ExpressionAttributeNames: map[string]string{"#s": "status"},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":s":  &types.AttributeValueMemberS{Value: string(StatusCancelled)},
						":by": &types.AttributeValueMemberS{Value: ClosedByStaff},
					},
				},
			})
			// Proxy visits can put several active visits on one patient;
			// a transaction rejects duplicate keys, so delete each marker
			// once.
			if _, seen := seenMarkers[v.PatientID]; !seen {
				seenMarkers[v.PatientID] = struct{}{}
				items = append(items, types.TransactWriteItem{
					Delete: &types.Delete{
						TableName: aws.String(r.tableName),
						Key:       store.CheckinKey(date, v.PatientID).AttributeValues(),
					},
				})
			}
		}

		if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items,
		}); err != nil {
			return 0, fmt.Errorf("visits: close all at chunk %d: %w", start, err)
		}
	}
	return len(active), nil
}

// ToggleReceipt flips the receipt annotation. It carries no invariant
// with status, so a plain read-modify-write is fine.
func (r *DynamoRepository) ToggleReceipt(ctx context.Context, date, visitID string) (*Visit, error) {
	_, v, key, err := r.findVisit(ctx, date, visitID)
	if err != nil {
		return nil, err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              key.AttributeValues(),
		UpdateExpression: aws.String("SET receiptStatus = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberBOOL{Value: !v.ReceiptStatus},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("visits: toggle receipt %s: %w", visitID, err)
	}
	updated := *v
	updated.ReceiptStatus = !v.ReceiptStatus
	return &updated, nil
}

// ListActiveVisitKeys returns the keys of the patient's active visits for
// the day, for the directory's atomic name propagation.
func (r *DynamoRepository) ListActiveVisitKeys(ctx context.Context, date, patientID string) ([]store.Key, error) {
	all, err := r.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	var keys []store.Key
	for _, v := range all {
		if v.PatientID == patientID && v.Status == StatusActive {
			keys = append(keys, store.VisitKey(v.Date, v.ArrivedAt, v.ID))
		}
	}
	return keys, nil
}

// findVisit locates a visit by id within a day and returns the whole day
// alongside it. Day partitions are small (a clinic's daily volume), so
// the scan-within-partition is cheap.
func (r *DynamoRepository) findVisit(ctx context.Context, date, visitID string) ([]Visit, *Visit, store.Key, error) {
	all, err := r.ListByDate(ctx, date)
	if err != nil {
		return nil, nil, store.Key{}, err
	}
	for i := range all {
		if all[i].ID == visitID {
			v := all[i]
			return all, &v, store.VisitKey(v.Date, v.ArrivedAt, v.ID), nil
		}
	}
	return nil, nil, store.Key{}, ErrVisitNotFound
}

// hasOtherActive reports whether the patient holds an active visit for
// the day other than the one being moved.
func hasOtherActive(day []Visit, patientID, excludeVisitID string) bool {
	for _, v := range day {
		if v.ID != excludeVisitID && v.PatientID == patientID && v.Status == StatusActive {
			return true
		}
	}
	return false
}

func (r *DynamoRepository) visitItem(v *Visit) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, fmt.Errorf("visits: marshal visit %s: %w", v.ID, err)
	}
	key := store.VisitKey(v.Date, v.ArrivedAt, v.ID)
	item[store.AttrPK] = &types.AttributeValueMemberS{Value: key.PK}
	item[store.AttrSK] = &types.AttributeValueMemberS{Value: key.SK}
	return item, nil
}

func markerItem(key store.Key, visitID string, arrivedAt time.Time) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		store.AttrPK: &types.AttributeValueMemberS{Value: key.PK},
		store.AttrSK: &types.AttributeValueMemberS{Value: key.SK},
		"visitId":    &types.AttributeValueMemberS{Value: visitID},
		"arrivedAt":  timeAttr(arrivedAt),
	}
}

func timeAttr(at time.Time) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339Nano)}
}
