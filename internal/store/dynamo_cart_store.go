package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/storefront-core/internal/cart"
)

// DynamoCartStore holds the durable copy of each cart, one row per user.
type DynamoCartStore struct {
	client    *dynamodb.Client
	tableName string
}

// dynamoCart represents the DynamoDB item structure
type dynamoCart struct {
	UserID    string `dynamodbav:"user_id"`
	Items     string `dynamodbav:"items"`
	ItemCount int    `dynamodbav:"item_count"`
	UpdatedAt string `dynamodbav:"updated_at"`
	Status    string `dynamodbav:"cart_status"`
}

func NewDynamoCartStore(client *dynamodb.Client, tableName string) *DynamoCartStore {
	return &DynamoCartStore{client: client, tableName: tableName}
}

func (s *DynamoCartStore) SaveCart(ctx context.Context, userID string, items map[string]cart.Item) error {
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart of user %s: %w", userID, err)
	}

	row := dynamoCart{
		UserID:    userID,
		Items:     string(itemsJSON),
		ItemCount: len(items),
		UpdatedAt: time.Now().Format(time.RFC3339Nano),
		Status:    "ACTIVE",
	}

	av, err := attributevalue.MarshalMap(row)
	if err != nil {
		return fmt.Errorf("marshal cart row: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put cart of user %s: %w", userID, err)
	}
	return nil
}

func (s *DynamoCartStore) LoadCart(ctx context.Context, userID string) (map[string]cart.Item, bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("get cart of user %s: %w", userID, err)
	}
	if result.Item == nil {
		return nil, false, nil
	}

	var row dynamoCart
	if err := attributevalue.UnmarshalMap(result.Item, &row); err != nil {
		return nil, false, fmt.Errorf("unmarshal cart row of user %s: %w", userID, err)
	}

	items := make(map[string]cart.Item)
	if row.Items != "" {
		if err := json.Unmarshal([]byte(row.Items), &items); err != nil {
			return nil, false, fmt.Errorf("unmarshal cart items of user %s: %w", userID, err)
		}
	}
	return items, true, nil
}
