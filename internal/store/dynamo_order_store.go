package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/example/storefront-core/internal/order"
)

// DynamoOrderStore keeps orders in a single table addressed by a composite
// key: partition key order_date (yyyyMMdd from the order id) and sort key
// {sequence}_{write-millis}. Lexicographic sort-key order approximates
// creation order within a day. The logical order id is an attribute, not the
// physical key, so lookups query the date partition and filter on it.
type DynamoOrderStore struct {
	client    *dynamodb.Client
	tableName string
}

// dynamoOrder represents the DynamoDB item structure
type dynamoOrder struct {
	OrderDate      string `dynamodbav:"order_date"`
	RowKey         string `dynamodbav:"row_key"`
	OrderID        string `dynamodbav:"order_id"`
	UserID         string `dynamodbav:"user_id"`
	TotalAmount    string `dynamodbav:"total_amount"`
	DiscountAmount string `dynamodbav:"discount_amount"`
	ActualAmount   string `dynamodbav:"actual_amount"`
	Status         string `dynamodbav:"order_status"`
	CreateTime     string `dynamodbav:"create_time"`
	PayTime        string `dynamodbav:"pay_time,omitempty"`
	CancelTime     string `dynamodbav:"cancel_time,omitempty"`
	CompleteTime   string `dynamodbav:"complete_time,omitempty"`
	Receiver       string `dynamodbav:"receiver"`
	Phone          string `dynamodbav:"phone"`
	Address        string `dynamodbav:"address"`
	Postcode       string `dynamodbav:"postcode"`
	Items          string `dynamodbav:"items"`
	ItemCount      int    `dynamodbav:"item_count"`
	GSI1PK         string `dynamodbav:"gsi1pk"`
	GSI1SK         string `dynamodbav:"gsi1sk"`
}

func NewDynamoOrderStore(client *dynamodb.Client, tableName string) *DynamoOrderStore {
	return &DynamoOrderStore{client: client, tableName: tableName}
}

func (s *DynamoOrderStore) Save(ctx context.Context, o *order.Order) error {
	orderDate, seq, err := splitOrderID(o.OrderID)
	if err != nil {
		return err
	}

	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}

	item := dynamoOrder{
		OrderDate:      orderDate,
		RowKey:         fmt.Sprintf("%s_%d", seq, time.Now().UnixMilli()),
		OrderID:        o.OrderID,
		UserID:         o.UserID,
		TotalAmount:    o.TotalAmount.String(),
		DiscountAmount: o.DiscountAmount.String(),
		ActualAmount:   o.ActualAmount.String(),
		Status:         string(o.Status),
		CreateTime:     o.CreateTime.Format(time.RFC3339Nano),
		PayTime:        formatOptionalTime(o.PayTime),
		CancelTime:     formatOptionalTime(o.CancelTime),
		CompleteTime:   formatOptionalTime(o.CompleteTime),
		Receiver:       o.Receiver,
		Phone:          o.Phone,
		Address:        o.Address,
		Postcode:       o.Postcode,
		Items:          string(itemsJSON),
		ItemCount:      len(o.Items),
		GSI1PK:         "ORDERS", // Fixed value for GSI1 to enable listing
		GSI1SK:         o.OrderID,
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put order %s: %w", o.OrderID, err)
	}
	return nil
}

func (s *DynamoOrderStore) GetByID(ctx context.Context, orderID string) (*order.Order, error) {
	row, err := s.locateRow(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return unmarshalOrder(row)
}

// Update rewrites the status and timestamp attributes of the existing
// physical row. The row is located first; deriving a fresh row key here
// would write a duplicate row for the same logical order.
func (s *DynamoOrderStore) Update(ctx context.Context, o *order.Order) error {
	row, err := s.locateRow(ctx, o.OrderID)
	if err != nil {
		return err
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"order_date": &types.AttributeValueMemberS{Value: row.OrderDate},
			"row_key":    &types.AttributeValueMemberS{Value: row.RowKey},
		},
		UpdateExpression: aws.String(
			"SET order_status = :status, pay_time = :pay, cancel_time = :cancel, complete_time = :complete"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":   &types.AttributeValueMemberS{Value: string(o.Status)},
			":pay":      &types.AttributeValueMemberS{Value: formatOptionalTime(o.PayTime)},
			":cancel":   &types.AttributeValueMemberS{Value: formatOptionalTime(o.CancelTime)},
			":complete": &types.AttributeValueMemberS{Value: formatOptionalTime(o.CompleteTime)},
		},
	})
	if err != nil {
		return fmt.Errorf("update order %s: %w", o.OrderID, err)
	}
	return nil
}

// List returns orders newest-first via GSI1, whose sort key is the order id
// (its timestamp prefix makes lexicographic order chronological). Status
// filtering happens server-side; pagination is applied client-side over the
// filtered stream.
func (s *DynamoOrderStore) List(ctx context.Context, status order.Status, page, size int) ([]*order.Order, error) {
	wanted := page * size
	collected := make([]*order.Order, 0, wanted)

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("gsi1pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "ORDERS"},
		},
		ScanIndexForward: aws.Bool(false), // Descending, newest first
	}
	if status != "" {
		input.FilterExpression = aws.String("order_status = :status")
		input.ExpressionAttributeValues[":status"] = &types.AttributeValueMemberS{Value: string(status)}
	}

	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list orders: %w", err)
		}
		for _, item := range result.Items {
			var row dynamoOrder
			if err := attributevalue.UnmarshalMap(item, &row); err != nil || row.OrderID == "" {
				// Row without a parsable order id is unusable; skip it.
				log.Printf("[OrderStore] Skipping unparsable order row: %v", err)
				continue
			}
			o, err := unmarshalOrder(&row)
			if err != nil {
				log.Printf("[OrderStore] Skipping order row %s: %v", row.RowKey, err)
				continue
			}
			collected = append(collected, o)
			if len(collected) >= wanted {
				break
			}
		}
		if len(collected) >= wanted || result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	start := (page - 1) * size
	if start >= len(collected) {
		return nil, nil
	}
	end := start + size
	if end > len(collected) {
		end = len(collected)
	}
	return collected[start:end], nil
}

// locateRow resolves the physical row for a logical order id by querying the
// date partition derived from the id prefix and filtering on the order_id
// attribute.
func (s *DynamoOrderStore) locateRow(ctx context.Context, orderID string) (*dynamoOrder, error) {
	orderDate, _, err := splitOrderID(orderID)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("order_date = :date"),
		FilterExpression:       aws.String("order_id = :oid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":date": &types.AttributeValueMemberS{Value: orderDate},
			":oid":  &types.AttributeValueMemberS{Value: orderID},
		},
	}

	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query order %s: %w", orderID, err)
		}
		for _, item := range result.Items {
			var row dynamoOrder
			if err := attributevalue.UnmarshalMap(item, &row); err != nil {
				log.Printf("[OrderStore] Skipping unparsable order row: %v", err)
				continue
			}
			if row.OrderID == orderID {
				return &row, nil
			}
		}
		if result.LastEvaluatedKey == nil {
			return nil, fmt.Errorf("%w: %s", order.ErrNotFound, orderID)
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

// unmarshalOrder restores the in-memory model from a persisted row. Missing
// optional fields default rather than fail so old rows stay readable.
func unmarshalOrder(row *dynamoOrder) (*order.Order, error) {
	if row.OrderID == "" {
		return nil, fmt.Errorf("order row %s has no order id", row.RowKey)
	}

	var items []order.Line
	if row.Items != "" {
		if err := json.Unmarshal([]byte(row.Items), &items); err != nil {
			return nil, fmt.Errorf("unmarshal items of order %s: %w", row.OrderID, err)
		}
	}

	createTime, _ := time.Parse(time.RFC3339Nano, row.CreateTime)

	return &order.Order{
		OrderID:        row.OrderID,
		UserID:         row.UserID,
		TotalAmount:    parseAmount(row.TotalAmount),
		DiscountAmount: parseAmount(row.DiscountAmount),
		ActualAmount:   parseAmount(row.ActualAmount),
		Status:         order.Status(row.Status),
		CreateTime:     createTime,
		PayTime:        parseOptionalTime(row.PayTime),
		CancelTime:     parseOptionalTime(row.CancelTime),
		CompleteTime:   parseOptionalTime(row.CompleteTime),
		Receiver:       row.Receiver,
		Phone:          row.Phone,
		Address:        row.Address,
		Postcode:       row.Postcode,
		Items:          items,
	}, nil
}

// splitOrderID breaks a 20-character order id into its date partition and
// sequence suffix.
func splitOrderID(orderID string) (date, seq string, err error) {
	if len(orderID) != 20 {
		return "", "", fmt.Errorf("malformed order id %q", orderID)
	}
	return orderID[:8], orderID[14:], nil
}

func parseAmount(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		log.Printf("[OrderStore] Non-numeric amount %q, defaulting to zero", raw)
		return decimal.Zero
	}
	return amount
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseOptionalTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil
	}
	return &t
}
