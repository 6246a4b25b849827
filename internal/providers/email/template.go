package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// CashbackEmail carries the values rendered into the reward message.
type CashbackEmail struct {
	CustomerName string
	DiscountCode string
	Amount       string
	OrderNumber  string
	ShopDomain   string
	ExpiryDate   time.Time
	ExpiryDays   int
}

var cashbackTemplate = template.Must(template.New("cashback").Parse(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; }
    .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px; }
    .code-box { background: white; padding: 20px; text-align: center; margin: 20px 0; border: 2px dashed #667eea; border-radius: 8px; }
    .code { font-size: 28px; font-weight: bold; color: #667eea; letter-spacing: 2px; }
    .amount { font-size: 32px; color: #4CAF50; font-weight: bold; }
    .cta { background: #4CAF50; color: white; padding: 15px 30px; text-decoration: none; border-radius: 5px; display: inline-block; margin: 20px 0; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Your Cashback is Here!</h1>
    </div>
    <div class="content">
      <p>Hi {{.CustomerName}},</p>
      <p>Thank you for your order {{.OrderNumber}}! As promised, here's your cashback reward:</p>

      <div class="code-box">
        <p style="margin: 0; font-size: 16px; color: #666;">Your Cashback Amount</p>
        <div class="amount">{{.Amount}}</div>
        <p style="margin: 20px 0 10px; font-size: 16px; color: #666;">Discount Code</p>
        <div class="code">{{.DiscountCode}}</div>
      </div>

      <p><strong>How to use:</strong></p>
      <ul>
        <li>Valid on your next purchase</li>
        <li>Works store-wide on all products</li>
        <li>Valid until {{.ExpiryDate.Format "January 2, 2006"}}</li>
        <li>One-time use only</li>
      </ul>

      <div style="text-align: center;">
        <a href="https://{{.ShopDomain}}" class="cta">Shop Now</a>
      </div>

      <p style="margin-top: 30px; font-size: 14px; color: #666;">
        Thanks for being a VIP customer! Enjoy your cashback reward.
      </p>
    </div>
  </div>
</body>
</html>
`))

// RenderCashback produces the subject and HTML body for one reward
// notification. Rendering is pure; any error is a programming bug in
// the template, surfaced rather than swallowed.
func RenderCashback(data CashbackEmail) (subject, htmlBody string, err error) {
	var buf bytes.Buffer
	if err := cashbackTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render cashback email: %w", err)
	}
	subject = fmt.Sprintf("You earned %s cashback!", data.Amount)
	return subject, buf.String(), nil
}
