package assistant

import "estate-assistant-backend/internal/chat"

const welcomeText = "🤖 **Welcome to your AI Real Estate Assistant!**\n\nI'm your comprehensive real estate companion, powered by advanced AI. Here's how I can help:\n\n🏠 **Property Hunting:**\n• Smart property search & recommendations\n• Market analysis & investment insights\n• Neighborhood guides & area research\n\n📅 **Booking Manager:**\n• Schedule property viewings\n• Manage appointments & reservations\n• Track booking status & confirmations\n\n🎧 **Personal Support:**\n• 24/7 assistance with any questions\n• Technical support & platform guidance\n• Payment help & review management\n\n💡 **Advanced Features:**\n• ROI & mortgage calculators\n• Market trends & price predictions\n• Legal guidance & documentation help\n• Relocation & moving assistance\n\nWhat would you like to explore today? Just ask me anything! 😊"

func welcomeMessage() chat.Message {
	return chat.BotQuickReplies(welcomeText,
		"🏠 Find properties for me",
		"📅 Schedule a viewing",
		"📊 Show market analysis",
		"💰 Calculate ROI",
		"🔔 Check my notifications",
		"🎧 I need help",
	)
}

var greetings = []string{
	"Hello! How can I help you with your real estate needs today?",
	"Hi there! I'm here to assist you with notifications, payments, reviews, and more!",
	"Hey! What can I help you with today?",
}

var greetingReplies = []string{
	"Show my notifications",
	"Check pending payments",
	"Leave a review",
	"I need help",
}

const (
	errorText       = "Sorry, I encountered an error. Please try again."
	unsupportedText = "I'm working on implementing that feature. In the meantime, is there anything else I can help you with?"
	cancelledText   = "No problem, I've cancelled that. What else can I help you with?"

	notificationsLogin = "Please log in to view your notifications."
	notificationsEmpty = "You have no notifications at the moment. 🔔"
	notificationsError = "Sorry, I couldn't fetch your notifications right now."
	markedAllRead      = "✅ All notifications marked as read!"
	markAllReadError   = "Sorry, I couldn't mark your notifications as read right now."

	paymentsLogin = "Please log in to view your payment information."
	paymentsClear = "Great! You have no pending payments. All your invoices are up to date. 💳✅"
	paymentsError = "Sorry, I couldn't fetch your payment information right now."
	paymentInfo   = "For detailed payment information, please visit our payments page where you can view all your transactions and pending payments."

	reviewLogin       = "Please log in to leave a review."
	reviewChooseKind  = "I can help you leave a review! What would you like to review?"
	reviewNeedsTarget = "I need to know what you're reviewing and the rating first. Try \"leave review for property 42\"."
	reviewUnavailable = "Sorry, I can't start a review right now. Please try again later."
	reviewSubmitError = "Sorry, I couldn't submit your review right now. Please try again later."

	supportCreated = "✅ Support ticket created! Our team will contact you soon."
	supportFailed  = "❌ Sorry, couldn't create support ticket. Please try again later."

	bookingHelpText = "I can help you with booking-related questions! Here's what I can assist you with:"

	bookingHowTo = `📅 **How booking works**

1. Open a property and pick an available date in its calendar
2. Send the booking request; the owner or agent confirms it
3. Once confirmed, an invoice is issued and can be paid by Stripe or Konnect
4. Track everything from your bookings page

Need to change a date? Open the booking and use reschedule, or contact the agent.`

	paymentMethodsText = "We accept the following payment methods:\n\n💳 **Credit Cards** (via Stripe)\n- Visa, Mastercard, American Express\n- Secure international payments\n- Currency: USD\n\n🇹🇳 **Konnect** (Tunisia)\n- Local payment gateway\n- Bank transfers and cards\n- Currency: TND\n\nAll payments are secure and encrypted. 🔒"
)

var helpTexts = map[string]string{
	"booking":  "I can help you with platform booking issues. Common problems include payment failures, date conflicts, or property availability questions on our platform.",
	"payment":  "For platform payment issues, I can help you understand our payment methods (Stripe/Konnect), check your payment status, or resolve payment failures.",
	"property": "Having trouble with a property listing on our platform? I can help you with platform-specific property features or contact the property owner.",
	"general":  "I can help with platform-specific issues like account problems, technical difficulties, or booking/payment issues on our platform.",
}

const scheduleViewingIntro = `📅 **Schedule Property Viewing**

I'll help you schedule a property viewing! Please provide:

🏠 **Property Information:**
• Property ID or address
• Preferred viewing date
• Time preference (morning/afternoon/evening)
• Number of attendees

📞 **Contact Details:**
• Your phone number
• Alternative contact method
• Special requests or questions

Which property would you like to visit? Give me its ID or address.`

const roiIntro = `💰 **ROI Investment Calculator**

I'll help you calculate potential returns on real estate investments!

**Required Information:**
🏠 **Property Details:**
• Purchase price
• Expected rental income (monthly)

💡 **Also worth knowing:**
• Property taxes and maintenance costs
• Insurance and property management costs
• Financing details (interest rate, loan term)

Please provide the property purchase price to get started.`

const mortgageIntro = `🏦 **Mortgage Calculator & Financing Options**

I'll help you understand your financing options!

**💳 Loan Information Needed:**
• Property purchase price
• Down payment amount (or percentage)

**📊 Additional Costs:**
• Property taxes (annual)
• Home insurance
• PMI (if down payment < 20%)
• HOA fees (if applicable)

**Example Calculation:**
For a $300,000 property with 20% down ($60,000) at 6.5% interest for 30 years:
• Monthly payment: ~$1,517
• Total interest: ~$306,000
• Total paid: ~$606,000

What is the property purchase price?`

const investmentIntro = `📊 **Investment Property Analysis**

I'll put together an investment checklist covering:

**🔍 Market Analysis:**
• Comparative market analysis (CMA)
• Price appreciation trends
• Rental market demand

**💰 Financial Projections:**
• Cash flow analysis
• ROI and cap rate calculations
• Break-even analysis

**⚖️ Risk Assessment:**
• Market volatility factors
• Location-specific risks
• Exit strategy options

Please provide a property address or area you're considering for investment.`

const propertySearchIntro = `🔍 **Advanced Property Search**

Let me help you find the perfect property! I can search based on:

**📍 Location:** city, neighborhood, or proximity to schools, work and transit
**💰 Budget:** price range and monthly budget
**🏠 Features:** property type, bedrooms, bathrooms, amenities
**📈 Investment:** rental potential and growth areas

What's your primary search criteria? For example: "3-bedroom houses under $300k near good schools" or "investment properties with high rental yield"`

const marketAnalysisTemplate = `📈 **Real Estate Market Analysis: %s**

Here is how to read the market for this area. Figures below are illustrative guidance, not live data.

**Indicators to check:**
• **Days on market:** under 30 days usually signals a seller's market
• **List-to-sale price ratio:** above 100%% means buyers are competing
• **Inventory:** fewer than 4 months of supply favours sellers
• **New listings vs. sales:** rising listings with flat sales points to cooling prices

**Long-run reference points:**
• Residential property has historically appreciated about 3-5%% per year
• Gross rental yields of 5-8%% are common for residential investments

Would you like me to look at a specific area or property type in more detail?`

const areaInsightsTemplate = `🌍 **Area Insights: %s**

A checklist for evaluating this area:

**🏫 Schools & Education:** ratings of the nearest primary and secondary schools, and catchment boundaries
**🚗 Transportation:** distance to public transit, highway access and peak-hour commute to your workplace
**🛒 Local Amenities:** groceries, healthcare, parks and restaurants within walking distance
**🛡️ Safety:** recent crime statistics from the local authority, and a visit at night
**📊 Market Data:** recent sale prices per square foot, days on market, and planned developments

Would you like me to compare this area with other neighborhoods?`
