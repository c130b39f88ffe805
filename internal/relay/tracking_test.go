package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/nfcrelay/internal/order"
	"github.com/m3rciful/nfcrelay/internal/session"
)

func TestTrackingUnknownOrder(t *testing.T) {
	h := newHarness(t, adminID)
	h.say(t, customerID, LabelTrack)
	h.say(t, customerID, "NFC-ZZZZZZZZ")

	assert.Equal(t, []string{
		"🔎 Enter your order ID (e.g., NFC-XXXXXX):",
		"❌ Order not found. Please check the ID and try again.",
		"Choose an option:",
	}, h.out.texts(customerID))
	assert.Equal(t, session.MainMenu, h.state(customerID))
}

func TestTrackingEscapesUserFields(t *testing.T) {
	h := newHarness(t, adminID)
	o := order.New("NFC-AB12CD34", "a_b", "*1*", "[x]", fixedNow)
	require.NoError(t, h.store.Put(context.Background(), o))

	h.say(t, customerID, LabelTrack)
	h.say(t, customerID, "nfc-ab12cd34")

	msgs := h.out.to(customerID)
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[1].Text, `👤 Name: a\_b`)
	assert.Contains(t, msgs[1].Text, `📞 Phone: \*1\*`)
	assert.Contains(t, msgs[1].Text, `📍 Address: \[x]`)
}

func TestTrackingLookupFailure(t *testing.T) {
	h := newHarness(t, adminID, func(o *Options) {
		o.Orders = failingOrders{getErr: errors.New("timeout")}
	})
	h.say(t, customerID, LabelTrack)

	err := h.d.HandleMessage(context.Background(), Event{SenderID: customerID, Text: "NFC-AB12CD34"})
	assert.ErrorContains(t, err, "timeout")
	assert.Equal(t, session.MainMenu, h.state(customerID))
	assert.Contains(t, h.out.texts(customerID), textLookupFailed)
}

func TestTrackingMalformedIDSkipsStore(t *testing.T) {
	h := newHarness(t, adminID, func(o *Options) {
		o.Orders = failingOrders{getErr: errors.New("store must not be queried")}
	})
	h.say(t, customerID, LabelTrack)
	h.out.reset()

	h.say(t, customerID, "  my card please ")

	assert.Equal(t, []string{textOrderNotFound, textMenu}, h.out.texts(customerID))
	assert.Equal(t, session.MainMenu, h.state(customerID))
}

func TestTrackingIsSingleAttempt(t *testing.T) {
	h := newHarness(t, adminID)
	h.say(t, customerID, LabelTrack)
	h.say(t, customerID, "NFC-ZZZZZZZZ")
	h.out.reset()

	h.say(t, customerID, "NFC-ZZZZZZZZ")
	assert.Empty(t, h.out.to(customerID))
}
