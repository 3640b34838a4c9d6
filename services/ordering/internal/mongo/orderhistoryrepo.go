package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/tableside/services/ordering/internal/order"
)

const receiptsCollection = "order_receipts"

// OrderHistoryRepo stores order receipts, one document per order id.
type OrderHistoryRepo struct {
	collection *mongo.Collection
	limit      int64
}

func NewOrderHistoryRepo(db *mongo.Database, limit int) *OrderHistoryRepo {
	if limit <= 0 {
		limit = order.DefaultHistoryLimit
	}
	return &OrderHistoryRepo{
		collection: db.Collection(receiptsCollection),
		limit:      int64(limit),
	}
}

// EnsureIndexes creates the order id and table lookup indexes.
func (r *OrderHistoryRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "order_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "table_number", Value: 1}, {Key: "submitted_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("cannot create receipt indexes: %w", err)
	}
	return nil
}

func (r *OrderHistoryRepo) Save(ctx context.Context, receipt order.Receipt) error {
	if receipt.OrderID == "" {
		return fmt.Errorf("receipt has no order id")
	}

	filter := bson.M{"order_id": receipt.OrderID}
	update := bson.M{
		"$set": bson.M{
			"backend_id":      receipt.BackendID,
			"table_number":    receipt.TableNumber,
			"scope":           receipt.Scope,
			"seat":            receipt.Seat,
			"lines":           receipt.Lines,
			"total_price":     receipt.TotalPrice,
			"total_prep_time": receipt.TotalPrepTime,
			"submitted_at":    receipt.SubmittedAt,
		},
		"$setOnInsert": bson.M{"_id": receipt.ID},
	}

	if _, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("cannot save receipt %s: %w", receipt.OrderID, err)
	}
	return nil
}

// ListByTable returns the most recent receipts of a table, oldest first.
func (r *OrderHistoryRepo) ListByTable(ctx context.Context, tableNumber int) ([]order.Receipt, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "submitted_at", Value: -1}}).
		SetLimit(r.limit)

	cursor, err := r.collection.Find(ctx, bson.M{"table_number": tableNumber}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list receipts for table %d: %w", tableNumber, err)
	}
	defer cursor.Close(ctx)

	var result []order.Receipt
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode receipts: %w", err)
	}

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}
