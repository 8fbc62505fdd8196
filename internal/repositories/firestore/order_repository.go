package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/pizza-hub/api/internal/domain"
	pfirestore "github.com/pizza-hub/api/internal/platform/firestore"
	"github.com/pizza-hub/api/internal/repositories"
)

const orderCollection = "orders"

// OrderRepository persists orders in Firestore. Checkout uses a single
// transaction spanning the order and the source cart so one cart fill
// converts into at most one order.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	carts    *pfirestore.BaseRepository[cartDocument]
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		base:     pfirestore.NewBaseRepository[orderDocument](provider, orderCollection, nil),
		carts:    pfirestore.NewBaseRepository[cartDocument](provider, cartCollection, nil),
		provider: provider,
	}, nil
}

// InsertAndClearCart creates the order document and empties the source cart
// in one transaction. The cart must still hold items and carry the
// updatedAt the caller snapshotted from; a cart that was emptied or mutated
// in between aborts with a conflict so the caller can re-read and retry.
func (r *OrderRepository) InsertAndClearCart(ctx context.Context, order domain.Order, expectedCartUpdatedAt time.Time) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	token := strings.TrimSpace(order.CartToken)
	if token == "" {
		return domain.Order{}, errors.New("order repository: cart token is required")
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		cartRef, err := r.carts.DocumentRef(ctx, token)
		if err != nil {
			return err
		}
		orderRef, err := r.base.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}

		cartSnap, err := tx.Get(cartRef)
		if status.Code(err) == codes.NotFound {
			return pfirestore.NotFoundError("orders.checkout", err)
		}
		if err != nil {
			return pfirestore.WrapError("orders.checkout", err)
		}

		var cartDoc cartDocument
		if err := cartSnap.DataTo(&cartDoc); err != nil {
			return err
		}
		if len(cartDoc.Items) == 0 {
			return pfirestore.ConflictError("orders.checkout", errors.New("cart already emptied"))
		}
		if !timestampsEqual(cartDoc.UpdatedAt, expectedCartUpdatedAt) {
			return pfirestore.ConflictError("orders.checkout", errors.New("cart changed since snapshot"))
		}

		if err := tx.Create(orderRef, fromDomainOrder(order)); err != nil {
			return pfirestore.WrapError("orders.checkout", err)
		}

		cleared := cartDocument{
			Items:       []cartItemDocument{},
			TotalAmount: 0,
			CreatedAt:   cartDoc.CreatedAt,
			UpdatedAt:   order.CreatedAt.UTC(),
		}
		if err := tx.Set(cartRef, cleared); err != nil {
			return pfirestore.WrapError("orders.checkout", err)
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// Update stores the order only while the document still carries the
// expected updatedAt, so concurrent writers surface as conflicts instead
// of overwriting each other.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order, expectedUpdatedAt time.Time) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}

	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return pfirestore.NotFoundError("orders.update", err)
		}
		if err != nil {
			return pfirestore.WrapError("orders.update", err)
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		if !timestampsEqual(doc.UpdatedAt, expectedUpdatedAt) {
			return pfirestore.ConflictError("orders.update", errors.New("order modified concurrently"))
		}
		if err := tx.Set(ref, fromDomainOrder(order)); err != nil {
			return pfirestore.WrapError("orders.update", err)
		}
		return nil
	})
}

// timestampsEqual compares times at Firestore's microsecond precision.
func timestampsEqual(a, b time.Time) bool {
	return a.UTC().Truncate(time.Microsecond).Equal(b.UTC().Truncate(time.Microsecond))
}

// FindByID loads an order by its identifier.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return toDomainOrder(doc.ID, doc.Data), nil
}

// ListByEmail returns the orders placed with the given customer email, most
// recent first.
func (r *OrderRepository) ListByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("order repository: email is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("customer.email", "==", email).OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, toDomainOrder(doc.ID, doc.Data))
	}
	return orders, nil
}

type orderDocument struct {
	Number          int64                 `firestore:"number"`
	CartToken       string                `firestore:"cartToken"`
	Status          string                `firestore:"status"`
	Customer        orderCustomerDocument `firestore:"customer"`
	Items           []orderItemDocument   `firestore:"items"`
	SnapshotVersion int                   `firestore:"snapshotVersion"`
	ItemsTotal      int64                 `firestore:"itemsTotal"`
	DeliveryFee     int64                 `firestore:"deliveryFee"`
	TotalAmount     int64                 `firestore:"totalAmount"`
	Payment         *paymentRefDocument   `firestore:"payment,omitempty"`
	CreatedAt       time.Time             `firestore:"createdAt"`
	UpdatedAt       time.Time             `firestore:"updatedAt"`
	PaidAt          *time.Time            `firestore:"paidAt,omitempty"`
	CancelledAt     *time.Time            `firestore:"cancelledAt,omitempty"`
}

type orderCustomerDocument struct {
	FirstName string `firestore:"firstName"`
	LastName  string `firestore:"lastName"`
	Email     string `firestore:"email"`
	Phone     string `firestore:"phone"`
	Address   string `firestore:"address"`
	Comment   string `firestore:"comment,omitempty"`
}

type orderItemDocument struct {
	ProductID     string   `firestore:"productId"`
	ProductName   string   `firestore:"productName"`
	Size          int      `firestore:"size"`
	PizzaType     int      `firestore:"pizzaType"`
	IngredientIDs []string `firestore:"ingredientIds,omitempty"`
	UnitPrice     int64    `firestore:"unitPrice"`
	Quantity      int      `firestore:"quantity"`
	LineTotal     int64    `firestore:"lineTotal"`
}

type paymentRefDocument struct {
	Provider  string    `firestore:"provider"`
	SessionID string    `firestore:"sessionId"`
	URL       string    `firestore:"url"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func fromDomainOrder(order domain.Order) orderDocument {
	doc := orderDocument{
		Number:          order.Number,
		CartToken:       strings.TrimSpace(order.CartToken),
		Status:          string(order.Status),
		SnapshotVersion: order.SnapshotVersion,
		ItemsTotal:      order.ItemsTotal,
		DeliveryFee:     order.DeliveryFee,
		TotalAmount:     order.TotalAmount,
		CreatedAt:       order.CreatedAt.UTC(),
		UpdatedAt:       order.UpdatedAt.UTC(),
		PaidAt:          order.PaidAt,
		CancelledAt:     order.CancelledAt,
		Customer: orderCustomerDocument{
			FirstName: strings.TrimSpace(order.Customer.FirstName),
			LastName:  strings.TrimSpace(order.Customer.LastName),
			Email:     strings.ToLower(strings.TrimSpace(order.Customer.Email)),
			Phone:     strings.TrimSpace(order.Customer.Phone),
			Address:   strings.TrimSpace(order.Customer.Address),
			Comment:   strings.TrimSpace(order.Customer.Comment),
		},
		Items: make([]orderItemDocument, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		doc.Items = append(doc.Items, orderItemDocument{
			ProductID:     strings.TrimSpace(item.ProductID),
			ProductName:   strings.TrimSpace(item.ProductName),
			Size:          int(item.Size),
			PizzaType:     int(item.PizzaType),
			IngredientIDs: cloneStringSlice(item.IngredientIDs),
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
			LineTotal:     item.LineTotal,
		})
	}
	if order.Payment != nil {
		doc.Payment = &paymentRefDocument{
			Provider:  strings.TrimSpace(order.Payment.Provider),
			SessionID: strings.TrimSpace(order.Payment.SessionID),
			URL:       strings.TrimSpace(order.Payment.URL),
			CreatedAt: order.Payment.CreatedAt.UTC(),
		}
	}
	return doc
}

func toDomainOrder(id string, doc orderDocument) domain.Order {
	order := domain.Order{
		ID:              id,
		Number:          doc.Number,
		CartToken:       doc.CartToken,
		Status:          domain.OrderStatus(doc.Status),
		SnapshotVersion: doc.SnapshotVersion,
		ItemsTotal:      doc.ItemsTotal,
		DeliveryFee:     doc.DeliveryFee,
		TotalAmount:     doc.TotalAmount,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
		PaidAt:          doc.PaidAt,
		CancelledAt:     doc.CancelledAt,
		Customer: domain.OrderCustomer{
			FirstName: doc.Customer.FirstName,
			LastName:  doc.Customer.LastName,
			Email:     doc.Customer.Email,
			Phone:     doc.Customer.Phone,
			Address:   doc.Customer.Address,
			Comment:   doc.Customer.Comment,
		},
		Items: make([]domain.OrderItemSnapshot, 0, len(doc.Items)),
	}
	for _, item := range doc.Items {
		order.Items = append(order.Items, domain.OrderItemSnapshot{
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Size:          domain.PizzaSize(item.Size),
			PizzaType:     domain.PizzaType(item.PizzaType),
			IngredientIDs: cloneStringSlice(item.IngredientIDs),
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
			LineTotal:     item.LineTotal,
		})
	}
	if doc.Payment != nil {
		order.Payment = &domain.PaymentRef{
			Provider:  doc.Payment.Provider,
			SessionID: doc.Payment.SessionID,
			URL:       doc.Payment.URL,
			CreatedAt: doc.Payment.CreatedAt,
		}
	}
	return order
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
