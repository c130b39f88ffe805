package relay

const (
	textMenu = "Choose an option:"

	textAskName    = "👤 Enter your full name:"
	textAskPhone   = "📞 Enter your phone number:"
	textAskAddress = "📍 Enter your address:"
	textOrderSaved = "✅ Order placed! Your order ID is: *%s*"
	textOrderRetry = "⚠️ We could not save your order. Please send your address again."
	textNewOrder   = "📬 New order:\nName: %s\nPhone: %s\nAddress: %s\nOrder ID: %s"

	textAskTracking   = "🔎 Enter your order ID (e.g., NFC-XXXXXX):"
	textOrderFound    = "📦 Order ID: %s\n👤 Name: %s\n📞 Phone: %s\n📍 Address: %s\n📅 Date: %s\n🚚 Status: *%s*"
	textOrderNotFound = "❌ Order not found. Please check the ID and try again."
	textLookupFailed  = "⚠️ Order lookup is unavailable right now. Please try again later."

	textChatConnected = "💬 You are now connected to a support agent. Type your message below."
	textChatStarted   = "👤 %s started a live chat."
	textChatForward   = "📨 %s: %s"
	textChatEnded     = "✅ Live chat ended."
	textUserLeft      = "❌ %s ended the live chat."
	textSupportReply  = "👤 Support: %s"
	textAgentLeft     = "❌ The support agent ended the chat."
	textChatClosed    = "✅ Chat closed."
	textReplyReady    = "✉️ You can now reply to the customer. Type your message."

	actionReply       = "Reply"
	replyActionPrefix = CallbackReply + "_"
)
