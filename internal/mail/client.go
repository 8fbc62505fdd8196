package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "github.com/pizza-hub/api/internal/domain"
	"github.com/pizza-hub/api/internal/services"
)

var _ services.MailSender = (*Client)(nil)

const defaultRequestTimeout = 10 * time.Second

// Message is a single outbound email handed to the relay service.
type Message struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Client delivers transactional emails through the internal HTTP mail relay.
type Client struct {
	endpoint  string
	authToken string
	from      string
	verifyURL string

	httpClient *http.Client
	logger     *zap.Logger
}

// Option customises Client construction.
type Option func(*Client)

// WithAuthToken sets the bearer token sent to the relay.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = strings.TrimSpace(token)
	}
}

// WithFromAddress sets the sender address stamped on outbound messages.
func WithFromAddress(from string) Option {
	return func(c *Client) {
		c.from = strings.TrimSpace(from)
	}
}

// WithVerifyURL sets the base URL placed in verification emails.
func WithVerifyURL(url string) Option {
	return func(c *Client) {
		c.verifyURL = strings.TrimSpace(url)
	}
}

// WithHTTPClient overrides the HTTP client, primarily for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a Client for the relay at the given endpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("mail: relay endpoint is required")
	}

	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Send posts the message to the relay and fails on any non-2xx response.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c == nil {
		return errors.New("mail: client not initialised")
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mail: recipient is required")
	}
	if msg.From == "" {
		msg.From = c.from
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mail: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("mail: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail: relay request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mail: relay returned status %d", resp.StatusCode)
	}

	c.logger.Debug("mail: message relayed",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// SendOrderPaymentEmail mails the payment link for a pending order.
func (c *Client) SendOrderPaymentEmail(ctx context.Context, to string, order domain.Order, paymentURL string) error {
	body, err := renderPayOrder(payOrderData{
		OrderNumber: order.Number,
		TotalAmount: formatAmount(order.TotalAmount),
		PaymentURL:  paymentURL,
	})
	if err != nil {
		return err
	}
	return c.Send(ctx, Message{
		To:      to,
		Subject: fmt.Sprintf("Pizza Hub / Оплатіть замовлення №%d", order.Number),
		Body:    body,
	})
}

// SendVerificationEmail mails the registration confirmation code.
func (c *Client) SendVerificationEmail(ctx context.Context, to string, code string) error {
	verifyURL := c.verifyURL
	if verifyURL != "" {
		verifyURL = verifyURL + "?code=" + code
	}
	body, err := renderVerification(verificationData{
		Code:      code,
		VerifyURL: verifyURL,
	})
	if err != nil {
		return err
	}
	return c.Send(ctx, Message{
		To:      to,
		Subject: "Pizza Hub / Підтвердження реєстрації",
		Body:    body,
	})
}
