// Package firestore implements the order repository on Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/gracepoint-merch/storefront-api/internal/domain"
	pfirestore "github.com/gracepoint-merch/storefront-api/internal/platform/firestore"
	"github.com/gracepoint-merch/storefront-api/internal/repositories"
)

const defaultOrderCollection = "orders"

type orderDocument struct {
	FirstName       string    `firestore:"firstName"`
	LastName        string    `firestore:"lastName"`
	Email           string    `firestore:"email"`
	Phone           string    `firestore:"phone"`
	Items           string    `firestore:"items"`
	TotalPrice      int64     `firestore:"totalPrice"`
	PaymentIntentID string    `firestore:"paymentIntentId"`
	PaymentStatus   string    `firestore:"paymentStatus"`
	CreatedAt       time.Time `firestore:"createdAt"`
}

// OrderRepository persists orders in a Firestore collection, one document per
// order keyed by the order id.
type OrderRepository struct {
	client     *firestore.Client
	collection string
}

// NewOrderRepository constructs a Firestore-backed order repository. A blank
// collection name falls back to "orders".
func NewOrderRepository(client *firestore.Client, collection string) (*OrderRepository, error) {
	if client == nil {
		return nil, errors.New("order repository requires firestore client")
	}
	collection = strings.TrimSpace(collection)
	if collection == "" {
		collection = defaultOrderCollection
	}
	return &OrderRepository{client: client, collection: collection}, nil
}

// Insert creates the order document. When the order references a payment
// intent the write runs in a transaction that first checks no other order
// holds the same intent id, so a repeated confirmation cannot produce a
// duplicate order.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.client == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}

	doc := orderDocument{
		FirstName:       order.FirstName,
		LastName:        order.LastName,
		Email:           order.Email,
		Phone:           order.Phone,
		Items:           order.Items,
		TotalPrice:      order.TotalPrice,
		PaymentIntentID: strings.TrimSpace(order.PaymentIntentID),
		PaymentStatus:   string(order.PaymentStatus),
		CreatedAt:       order.CreatedAt.UTC(),
	}
	ref := r.client.Collection(r.collection).Doc(orderID)

	if doc.PaymentIntentID == "" {
		if _, err := ref.Create(ctx, doc); err != nil {
			return pfirestore.WrapError("orders.insert", err)
		}
		return nil
	}

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		query := r.client.Collection(r.collection).
			Where("paymentIntentId", "==", doc.PaymentIntentID).
			Limit(1)
		existing, err := tx.Documents(query).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return repositories.ErrPaymentIntentExists
		}
		return tx.Create(ref, doc)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentIntentExists) {
			return repositories.ErrPaymentIntentExists
		}
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// FindByID implements repositories.OrderRepository.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.client == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}

	snapshot, err := r.client.Collection(r.collection).Doc(strings.TrimSpace(orderID)).Get(ctx)
	if err != nil {
		wrapped := pfirestore.WrapError("orders.get", err)
		var ferr *pfirestore.Error
		if errors.As(wrapped, &ferr) && ferr.IsNotFound() {
			return domain.Order{}, repositories.ErrOrderNotFound
		}
		return domain.Order{}, wrapped
	}
	return decodeOrder(snapshot)
}

// FindByPaymentIntentID implements repositories.OrderRepository.
func (r *OrderRepository) FindByPaymentIntentID(ctx context.Context, intentID string) (domain.Order, error) {
	if r == nil || r.client == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}

	iter := r.client.Collection(r.collection).
		Where("paymentIntentId", "==", strings.TrimSpace(intentID)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snapshot, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return domain.Order{}, repositories.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.findByPaymentIntent", err)
	}
	return decodeOrder(snapshot)
}

// List implements repositories.OrderRepository, newest orders first.
func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	if r == nil || r.client == nil {
		return nil, errors.New("order repository not initialised")
	}

	iter := r.client.Collection(r.collection).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	orders := make([]domain.Order, 0)
	for {
		snapshot, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("orders.list", err)
		}
		order, err := decodeOrder(snapshot)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func decodeOrder(snapshot *firestore.DocumentSnapshot) (domain.Order, error) {
	var doc orderDocument
	if err := snapshot.DataTo(&doc); err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.decode", err)
	}
	return domain.Order{
		ID:              snapshot.Ref.ID,
		FirstName:       doc.FirstName,
		LastName:        doc.LastName,
		Email:           doc.Email,
		Phone:           doc.Phone,
		Items:           doc.Items,
		TotalPrice:      doc.TotalPrice,
		PaymentIntentID: doc.PaymentIntentID,
		PaymentStatus:   domain.PaymentStatus(doc.PaymentStatus),
		CreatedAt:       doc.CreatedAt.UTC(),
	}, nil
}
