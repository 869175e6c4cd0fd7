package enhancer

import "strings"

type Topic string

const (
	TopicPricing    Topic = "pricing"
	TopicMarket     Topic = "market"
	TopicInvestment Topic = "investment"
	TopicBuying     Topic = "property_buying"
	TopicGreeting   Topic = "greeting"
	TopicDefault    Topic = "default"
)

type topicRule struct {
	topic    Topic
	keywords []string
}

// First match wins.
var topicRules = []topicRule{
	{TopicPricing, []string{"price", "square foot", "cost"}},
	{TopicMarket, []string{"market", "trend", "forecast"}},
	{TopicInvestment, []string{"invest", "roi", "rental"}},
	{TopicBuying, []string{"property", "house", "buy"}},
}

var greetingWords = map[string]bool{"hello": true, "hi": true, "hey": true, "greetings": true}

// ClassifyTopic picks the fallback topic for utterance.
func ClassifyTopic(utterance string) Topic {
	u := strings.ToLower(utterance)
	for _, r := range topicRules {
		if containsAny(u, r.keywords...) {
			return r.topic
		}
	}
	// Greetings match whole words so "this" or "they" do not count.
	for _, w := range strings.FieldsFunc(u, isSeparator) {
		if greetingWords[w] {
			return TopicGreeting
		}
	}
	return TopicDefault
}

func isSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
}

// Fallback is the canned long-form answer used when every provider failed.
func Fallback(utterance string) string {
	return fallbackText[ClassifyTopic(utterance)]
}

var fallbackText = map[Topic]string{
	TopicPricing: `💰 **Property pricing varies significantly by location, but here's what typically affects prices:**

**Key Price Factors:**
• **Location** - Urban vs suburban, proximity to amenities
• **Property size** - Square footage, lot size, number of rooms
• **Market conditions** - Supply and demand, economic factors
• **Property condition** - Age, renovations, maintenance
• **Neighborhood features** - Schools, safety, transportation

**Average price per square foot** typically ranges from $100-$300+ depending on the area, with luxury markets going much higher.

**Pro tip:** Always compare similar properties in the same neighborhood and consider both current value and future appreciation potential! 📈`,

	TopicMarket: `📊 **Real Estate Market Insights:**

**Current Market Trends:**
• **Interest rates** significantly impact buying power
• **Remote work** has shifted demand to suburban areas
• **Inventory levels** vary greatly by region
• **Generational buying patterns** are evolving

**Key Market Indicators to Watch:**
• Days on market (DOM)
• Price appreciation rates
• New construction permits
• Employment rates in the area

**Investment Perspective:**
Real estate typically appreciates 3-5% annually long-term, but short-term fluctuations are normal. Focus on location, condition, and your personal financial situation rather than trying to time the market perfectly! 🏠`,

	TopicInvestment: `💼 **Real Estate Investment Guidance:**

**ROI Calculation Basics:**
• **Gross rental yield** = (Annual rent ÷ Property price) × 100
• **Net yield** = Account for taxes, maintenance, vacancies
• **Capital appreciation** = Property value increase over time

**Investment Strategies:**
• **Buy and hold** - Long-term rental income
• **House flipping** - Quick renovation and resale
• **REITs** - Real estate investment trusts for diversification

**Key Success Factors:**
• Location with growth potential
• Positive cash flow from day one
• Emergency fund for repairs/vacancies
• Understanding local rental market

**Pro tip:** Start with thorough market research and consider working with experienced local agents! 🎯`,

	TopicBuying: `🏠 **Property Buying Wisdom:**

**Essential Steps:**
1. **Get pre-approved** for financing
2. **Research neighborhoods** thoroughly
3. **Hire qualified professionals** (agent, inspector, attorney)
4. **Inspect everything** - don't skip the home inspection
5. **Negotiate wisely** - price, repairs, closing costs

**What to Look For:**
• Strong bones (foundation, roof, electrical, plumbing)
• Good location with growth potential
• Reasonable property taxes and HOA fees
• Move-in ready vs renovation potential

**Red Flags to Avoid:**
• Properties priced way below market (usually issues)
• High-crime areas or declining neighborhoods
• Major structural problems
• Overpriced for the area

Remember: You're not just buying a house, you're investing in a lifestyle and future! ✨`,

	TopicGreeting: `Hello! 👋 I'm your comprehensive real estate AI assistant. I can help with property hunting, booking management, investment analysis, and much more!

**What I can do for you:**
🏠 Property search and recommendations
📅 Booking and appointment management
💰 Market analysis and investment advice
🎧 24/7 support and assistance
📋 Documentation and legal guidance
🚚 Relocation and moving support

What would you like to explore today?`,

	TopicDefault: `🤖 **I'm here to help with real estate questions!**

Based on your question, I can provide insights on:

**🏠 Property Topics:**
• Market analysis and pricing trends
• Investment strategies and ROI calculations
• Buying/selling tips and best practices
• Neighborhood research and comparisons

**💡 Expert Advice:**
• Legal considerations and documentation
• Financing options and mortgage guidance
• Property inspection and evaluation
• Market timing and negotiation strategies

**🎯 Personalized Assistance:**
I can give detailed, specific advice based on your situation. Feel free to ask about anything related to real estate - from first-time buying to advanced investment strategies!

What specific aspect would you like to explore further? 😊`,
}
