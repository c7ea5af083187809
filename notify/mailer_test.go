package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/Govind-619/checkout-core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *captureDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

var findings = []models.AbuseFinding{
	{CouponID: 1, Code: "SAVE10", HolderID: "user:7", Redemptions: 3, MaxUsesPerUser: 1},
	{CouponID: 2, Code: "FLAT20", HolderID: "guest:<x>", Redemptions: 2, MaxUsesPerUser: 1},
}

func TestAlertAbuseSendsOneMessage(t *testing.T) {
	d := &captureDialer{}
	m := NewMailerWithDialer(MailConfig{From: "alerts@example.com", To: "ops@example.com"}, d)

	require.NoError(t, m.AlertAbuse(context.Background(), findings))
	require.Len(t, d.sent, 1)

	msg := d.sent[0]
	assert.Equal(t, []string{"ops@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Coupon over-limit usage: 2 holder(s)"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "SAVE10")
	assert.Contains(t, buf.String(), "guest:&lt;x&gt;")
}

func TestAlertAbuseNothingToSend(t *testing.T) {
	d := &captureDialer{}
	m := NewMailerWithDialer(MailConfig{}, d)
	require.NoError(t, m.AlertAbuse(context.Background(), nil))
	assert.Empty(t, d.sent)
}

func TestAlertAbuseDialError(t *testing.T) {
	d := &captureDialer{err: errors.New("connection refused")}
	m := NewMailerWithDialer(MailConfig{}, d)
	err := m.AlertAbuse(context.Background(), findings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAbuseBodyRows(t *testing.T) {
	body := abuseBody(findings)
	assert.Equal(t, 3, bytes.Count([]byte(body), []byte("<tr>")))
	assert.Contains(t, body, "<td>3</td><td>1</td>")
}
