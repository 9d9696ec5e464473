package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestVisitKeyOrdersByArrival(t *testing.T) {
	early := VisitKey("2026-03-01", time.Date(2026, 3, 1, 0, 5, 0, 0, time.UTC), "v-b")
	late := VisitKey("2026-03-01", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), "v-a")

	if early.PK != late.PK {
		t.Fatalf("same day must share a partition: %s vs %s", early.PK, late.PK)
	}
	if !(early.SK < late.SK) {
		t.Fatalf("expected %q to sort before %q", early.SK, late.SK)
	}
}

func TestKeyAttributeValues(t *testing.T) {
	k := PatientKey("1001")
	av := k.AttributeValues()

	pk, ok := av[AttrPK].(*types.AttributeValueMemberS)
	if !ok || pk.Value != "PATIENT#1001" {
		t.Fatalf("unexpected pk attribute: %#v", av[AttrPK])
	}
	sk, ok := av[AttrSK].(*types.AttributeValueMemberS)
	if !ok || sk.Value != PatientSK {
		t.Fatalf("unexpected sk attribute: %#v", av[AttrSK])
	}
}

func TestIsConditionFailed(t *testing.T) {
	direct := &types.ConditionalCheckFailedException{Message: aws.String("nope")}
	if !IsConditionFailed(direct) {
		t.Fatal("expected direct conditional failure to match")
	}
	if !IsConditionFailed(fmt.Errorf("wrapped: %w", direct)) {
		t.Fatal("expected wrapped conditional failure to match")
	}

	tx := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("ConditionalCheckFailed")},
		},
	}
	if !IsConditionFailed(tx) {
		t.Fatal("expected transaction cancellation reason to match")
	}

	benign := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: aws.String("None")}},
	}
	if IsConditionFailed(benign) {
		t.Fatal("transaction without conditional reason must not match")
	}
	if IsConditionFailed(errors.New("boom")) {
		t.Fatal("arbitrary error must not match")
	}
}
