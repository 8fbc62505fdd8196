package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

// Email bodies are rendered with html/template so user-supplied values are
// escaped before they reach the relay.

var payOrderTemplate = template.Must(template.New("pay-order").Parse(`<div>
  <h1>Замовлення №{{.OrderNumber}}</h1>
  <p>
    Оплатіть замовлення на суму {{.TotalAmount}} ₴.
    Перейдіть <a href="{{.PaymentURL}}">за цим посиланням</a> для оплати замовлення.
  </p>
</div>`))

var verificationTemplate = template.Must(template.New("verification-code").Parse(`<div>
  <p>Код підтвердження: <h2>{{.Code}}</h2></p>
  <p><a href="{{.VerifyURL}}">Підтвердити реєстрацію</a></p>
</div>`))

type payOrderData struct {
	OrderNumber int64
	TotalAmount string
	PaymentURL  string
}

type verificationData struct {
	Code      string
	VerifyURL string
}

func renderPayOrder(data payOrderData) (string, error) {
	var buf bytes.Buffer
	if err := payOrderTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("mail: render pay-order template: %w", err)
	}
	return buf.String(), nil
}

func renderVerification(data verificationData) (string, error) {
	var buf bytes.Buffer
	if err := verificationTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("mail: render verification template: %w", err)
	}
	return buf.String(), nil
}

// formatAmount renders a kopiyka amount as hryvnias with two decimals.
func formatAmount(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}
