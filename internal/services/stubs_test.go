package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/pizza-hub/api/internal/domain"
	"github.com/pizza-hub/api/internal/payments"
)

// repoError mimics the categorised errors surfaced by the persistence layer.
type repoError struct {
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e repoError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return "repository error"
}

func (e repoError) IsNotFound() bool    { return e.notFound }
func (e repoError) IsConflict() bool    { return e.conflict }
func (e repoError) IsUnavailable() bool { return e.unavailable }

var (
	errStubNotFound = repoError{msg: "not found", notFound: true}
	errStubConflict = repoError{msg: "conflict", conflict: true}
)

// memCartRepo stores carts in memory and serializes Mutate calls.
type memCartRepo struct {
	mu    sync.Mutex
	carts map[string]domain.Cart
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: map[string]domain.Cart{}}
}

func (r *memCartRepo) GetCart(_ context.Context, token string) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[token]
	if !ok {
		return domain.Cart{}, errStubNotFound
	}
	return cart, nil
}

func (r *memCartRepo) CreateCart(_ context.Context, cart domain.Cart) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.carts[cart.Token]; ok {
		return domain.Cart{}, errStubConflict
	}
	r.carts[cart.Token] = cart
	return cart, nil
}

func (r *memCartRepo) Mutate(_ context.Context, token string, fn func(cart *domain.Cart) error) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[token]
	if !ok {
		return domain.Cart{}, errStubNotFound
	}
	if err := fn(&cart); err != nil {
		return domain.Cart{}, err
	}
	r.carts[token] = cart
	return cart, nil
}

// stubCatalogRepo serves a fixed set of products and ingredients.
type stubCatalogRepo struct {
	products    map[string]domain.Product
	ingredients []domain.Ingredient
	listErr     error
}

func (r *stubCatalogRepo) ListProducts(_ context.Context, _ domain.ProductFilter) ([]domain.Product, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, nil
}

func (r *stubCatalogRepo) GetProduct(_ context.Context, productID string) (domain.Product, error) {
	product, ok := r.products[productID]
	if !ok {
		return domain.Product{}, errStubNotFound
	}
	return product, nil
}

func (r *stubCatalogRepo) ListIngredients(_ context.Context) ([]domain.Ingredient, error) {
	return r.ingredients, nil
}

// stubOrderRepo records orders and mirrors the transactional cart wipe.
type stubOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	carts     *memCartRepo
	insertErr error
	updateErr error
}

func newStubOrderRepo(carts *memCartRepo) *stubOrderRepo {
	return &stubOrderRepo{orders: map[string]domain.Order{}, carts: carts}
}

func (r *stubOrderRepo) InsertAndClearCart(_ context.Context, order domain.Order, expectedCartUpdatedAt time.Time) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return domain.Order{}, r.insertErr
	}
	if r.carts != nil {
		r.carts.mu.Lock()
		cart, ok := r.carts.carts[order.CartToken]
		if !ok {
			r.carts.mu.Unlock()
			return domain.Order{}, errStubNotFound
		}
		if len(cart.Items) == 0 {
			r.carts.mu.Unlock()
			return domain.Order{}, errStubConflict
		}
		if !cart.UpdatedAt.Equal(expectedCartUpdatedAt) {
			r.carts.mu.Unlock()
			return domain.Order{}, errStubConflict
		}
		cart.Items = []domain.CartItem{}
		cart.TotalAmount = 0
		cart.UpdatedAt = order.CreatedAt
		r.carts.carts[order.CartToken] = cart
		r.carts.mu.Unlock()
	}
	r.orders[order.ID] = order
	return order, nil
}

func (r *stubOrderRepo) Update(_ context.Context, order domain.Order, expectedUpdatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	current, ok := r.orders[order.ID]
	if !ok {
		return errStubNotFound
	}
	if !current.UpdatedAt.Equal(expectedUpdatedAt) {
		return errStubConflict
	}
	r.orders[order.ID] = order
	return nil
}

// put seeds or replaces a stored order without the optimistic precondition.
func (r *stubOrderRepo) put(order domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
}

func (r *stubOrderRepo) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, errStubNotFound
	}
	return order, nil
}

func (r *stubOrderRepo) ListByEmail(_ context.Context, email string) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, order := range r.orders {
		if order.Customer.Email == email {
			out = append(out, order)
		}
	}
	return out, nil
}

// stubCounterRepo hands out sequential numbers.
type stubCounterRepo struct {
	mu   sync.Mutex
	next int64
}

func (r *stubCounterRepo) Next(_ context.Context, _ string, step int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if step <= 0 {
		step = 1
	}
	r.next += step
	return r.next, nil
}

// stubUserRepo stores users in memory with unique emails.
type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: map[string]domain.User{}}
}

func (r *stubUserRepo) Insert(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return errStubConflict
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *stubUserRepo) Update(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, userID string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return domain.User{}, errStubNotFound
	}
	return user, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, errStubNotFound
}

// stubCodeRepo keeps verification codes keyed by user id.
type stubCodeRepo struct {
	mu    sync.Mutex
	codes map[string]domain.VerificationCode
}

func newStubCodeRepo() *stubCodeRepo {
	return &stubCodeRepo{codes: map[string]domain.VerificationCode{}}
}

func (r *stubCodeRepo) Put(_ context.Context, code domain.VerificationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[code.UserID] = code
	return nil
}

func (r *stubCodeRepo) FindByUser(_ context.Context, userID string) (domain.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.codes[userID]
	if !ok {
		return domain.VerificationCode{}, errStubNotFound
	}
	return code, nil
}

func (r *stubCodeRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codes, userID)
	return nil
}

// stubPaymentManager returns a canned link or a configured error. onCreate,
// when set, runs once before the link is returned so tests can interleave
// work with the provider call.
type stubPaymentManager struct {
	link        payments.PaymentLink
	err         error
	lastRequest payments.PaymentLinkRequest
	calls       int
	onCreate    func()
}

func (m *stubPaymentManager) CreatePaymentLink(_ context.Context, _ payments.PaymentContext, req payments.PaymentLinkRequest) (payments.PaymentLink, error) {
	m.calls++
	m.lastRequest = req
	if hook := m.onCreate; hook != nil {
		m.onCreate = nil
		hook()
	}
	if m.err != nil {
		return payments.PaymentLink{}, m.err
	}
	return m.link, nil
}

// stubPaymentLookup serves canned reconciliation lookups.
type stubPaymentLookup struct {
	details payments.PaymentDetails
	err     error
	lastReq payments.LookupRequest
	calls   int
}

func (m *stubPaymentLookup) LookupPayment(_ context.Context, _ payments.PaymentContext, req payments.LookupRequest) (payments.PaymentDetails, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return payments.PaymentDetails{}, m.err
	}
	return m.details, nil
}

// stubMailSender records sent messages and can fail on demand.
type stubMailSender struct {
	err          error
	orderMails   int
	lastOrder    domain.Order
	lastURL      string
	lastTo       string
	codeMails    int
	lastCode     string
	lastCodeTo   string
	verifyErrors error
}

func (m *stubMailSender) SendOrderPaymentEmail(_ context.Context, to string, order domain.Order, paymentURL string) error {
	m.orderMails++
	m.lastTo = to
	m.lastOrder = order
	m.lastURL = paymentURL
	return m.err
}

func (m *stubMailSender) SendVerificationEmail(_ context.Context, to string, code string) error {
	m.codeMails++
	m.lastCodeTo = to
	m.lastCode = code
	return m.verifyErrors
}

// stubEventPublisher records published order events.
type stubEventPublisher struct {
	mu     sync.Mutex
	events []OrderEvent
	err    error
}

func (p *stubEventPublisher) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

// stubSessionIssuer mints predictable tokens.
type stubSessionIssuer struct {
	err  error
	last string
}

func (s *stubSessionIssuer) Issue(userID, email string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.last = "token-" + userID
	return s.last, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequenceIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

var errStubBoom = errors.New("boom")
