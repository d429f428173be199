package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/storefront-core/internal/product"
)

// DynamoProductStore resolves catalog data for pricing and statistics.
type DynamoProductStore struct {
	client    *dynamodb.Client
	tableName string
}

// dynamoProduct represents the DynamoDB item structure
type dynamoProduct struct {
	ProductID string `dynamodbav:"product_id"`
	Name      string `dynamodbav:"product_name"`
	Category  string `dynamodbav:"category"`
	Brand     string `dynamodbav:"brand"`
	Price     string `dynamodbav:"price"`
}

func NewDynamoProductStore(client *dynamodb.Client, tableName string) *DynamoProductStore {
	return &DynamoProductStore{client: client, tableName: tableName}
}

func (s *DynamoProductStore) GetByID(ctx context.Context, productID string) (*product.Product, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: productID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("%w: %s", product.ErrNotFound, productID)
	}

	var row dynamoProduct
	if err := attributevalue.UnmarshalMap(result.Item, &row); err != nil {
		return nil, fmt.Errorf("unmarshal product %s: %w", productID, err)
	}

	return &product.Product{
		ID:       row.ProductID,
		Name:     row.Name,
		Category: row.Category,
		Brand:    row.Brand,
		Price:    parseAmount(row.Price),
	}, nil
}
