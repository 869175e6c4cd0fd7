package assistant

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"

	"estate-assistant-backend/internal/chat"
	"estate-assistant-backend/internal/marketplace"
)

const (
	usdCode       = "USD"
	mortgageRate  = 0.065
	mortgageYears = 30
	defaultDown   = 20.0
)

var errUnreadable = errors.New("unreadable answer")

// flowStep asks one question. parse normalizes the answer or rejects it, in
// which case retry is sent and the flow stays on this step.
type flowStep struct {
	key    string
	prompt string
	retry  string
	parse  func(string) (string, error)
}

type flowSpec struct {
	intro  string
	steps  []flowStep
	finish func(o *Orchestrator, answers map[string]string) chat.Message
}

var flows = map[chat.FlowName]flowSpec{
	chat.FlowViewing: {
		intro: scheduleViewingIntro,
		steps: []flowStep{
			{key: "property_selection", parse: nonBlank},
			{key: "preferred_time", parse: nonBlank,
				prompt: "Great! When would you like to visit? Give me a date and a time preference (morning/afternoon/evening)."},
		},
		finish: finishViewing,
	},
	chat.FlowROI: {
		intro: roiIntro,
		steps: []flowStep{
			{key: "property_price", parse: parsePrice,
				retry: "I couldn't read that as a price. Please give the purchase price, for example $250,000."},
			{key: "monthly_rent", parse: parsePrice,
				prompt: "Thanks! What monthly rent do you expect from it?",
				retry:  "I couldn't read that as a rent. Please give the expected monthly rent, for example $1,800."},
		},
		finish: finishROI,
	},
	chat.FlowMortgage: {
		intro: mortgageIntro,
		steps: []flowStep{
			{key: "property_price", parse: parsePrice,
				retry: "I couldn't read that as a price. Please give the purchase price, for example $300,000."},
			{key: "down_payment", parse: parseDownPayment,
				prompt: "How much will you put down? Give an amount or a percentage, or say \"default\" for 20%.",
				retry:  "I couldn't read that down payment. Try an amount like $60,000 or a percentage like 20%."},
		},
		finish: finishMortgage,
	},
	chat.FlowInvestment: {
		intro: investmentIntro,
		steps: []flowStep{
			{key: "location", parse: nonBlank},
		},
		finish: finishInvestment,
	},
	chat.FlowPropertySearch: {
		intro: propertySearchIntro,
		steps: []flowStep{
			{key: "criteria", parse: nonBlank},
		},
		finish: finishPropertySearch,
	},
}

// startFlow parks the named flow on its first step and returns its intro.
func (o *Orchestrator) startFlow(name chat.FlowName) chat.Message {
	spec := flows[name]
	o.store.SetPending(chat.PendingStep{Flow: name, Step: spec.steps[0].key, Answers: map[string]string{}})
	return chat.BotText(spec.intro)
}

func isCancel(text string) bool {
	switch strings.Trim(strings.ToLower(strings.TrimSpace(text)), ".!") {
	case "cancel", "stop", "never mind", "nevermind":
		return true
	}
	return false
}

// continueFlow feeds the utterance to whatever flow is pending.
func (o *Orchestrator) continueFlow(ctx context.Context, pending chat.Flow, text string) chat.Message {
	if isCancel(text) {
		o.store.ClearPending()
		return chat.BotText(cancelledText)
	}
	switch p := pending.(type) {
	case chat.PendingReview:
		return o.completeReview(ctx, p, text)
	case chat.PendingStep:
		return o.advance(p, text)
	default:
		o.store.ClearPending()
		return chat.BotText(errorText)
	}
}

func (o *Orchestrator) completeReview(ctx context.Context, p chat.PendingReview, comment string) chat.Message {
	defer o.store.ClearPending()
	err := o.deps.Reviews.CreateReview(ctx, marketplace.ReviewInput{
		Rating:     p.Rating,
		Comment:    comment,
		TargetType: p.TargetType,
		TargetID:   p.TargetID,
	})
	if err != nil {
		o.log.WithError(err).WithField("target", p.TargetType+"/"+p.TargetID).Error("assistant: failed to submit review")
		return chat.BotText(reviewSubmitError)
	}
	return chat.BotText(fmt.Sprintf("⭐ Thanks! Your %d-star review has been submitted.", p.Rating))
}

func (o *Orchestrator) advance(p chat.PendingStep, text string) chat.Message {
	spec, ok := flows[p.Flow]
	idx := -1
	if ok {
		for i, s := range spec.steps {
			if s.key == p.Step {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		o.log.WithField("flow", p.Flow).WithField("step", p.Step).Error("assistant: pending flow has no such step")
		o.store.ClearPending()
		return chat.BotText(errorText)
	}

	step := spec.steps[idx]
	value, err := step.parse(text)
	if err != nil {
		return chat.BotText(step.retry)
	}
	answers := make(map[string]string, len(p.Answers)+1)
	for k, v := range p.Answers {
		answers[k] = v
	}
	answers[step.key] = value

	if idx+1 < len(spec.steps) {
		next := spec.steps[idx+1]
		o.store.SetPending(chat.PendingStep{Flow: p.Flow, Step: next.key, Answers: answers})
		return chat.BotText(next.prompt)
	}
	o.store.ClearPending()
	return spec.finish(o, answers)
}

func finishViewing(_ *Orchestrator, answers map[string]string) chat.Message {
	property, when := answers["property_selection"], answers["preferred_time"]
	content := fmt.Sprintf("📅 **Viewing request ready!**\n\n🏠 Property: %s\n🕒 Preferred time: %s\n\nI can pass this on to the agent, or you can book it yourself from your bookings page.", property, when)
	return chat.BotActions(content,
		chat.Action{Label: "📞 Send to Agent", Verb: chat.VerbContactAgent, Data: map[string]any{"type": "viewing", "property": property, "time": when}},
		navigate("📅 My Bookings", "/bookings"),
	)
}

func finishROI(_ *Orchestrator, answers map[string]string) chat.Message {
	price, _ := strconv.ParseFloat(answers["property_price"], 64)
	rent, _ := strconv.ParseFloat(answers["monthly_rent"], 64)
	annual := rent * 12
	yield := annual / price * 100

	verdict := "That's below the typical 5-8% range, so check the price or the rent."
	switch {
	case yield >= 8:
		verdict = "That's a strong gross yield."
	case yield >= 5:
		verdict = "That's within the typical 5-8% range."
	}
	content := fmt.Sprintf("💰 **ROI Estimate**\n\n• Purchase price: %s\n• Monthly rent: %s\n• Annual rent: %s\n• Gross rental yield: %.2f%%\n\n%s Net returns will be lower once taxes, maintenance and vacancies are counted.",
		usd(price), usd(rent), usd(annual), yield, verdict)
	return chat.BotActions(content,
		chat.Action{Label: "🏦 Calculate Mortgage", Verb: chat.VerbMortgageCalculator},
		chat.Action{Label: "📊 Market Analysis", Verb: chat.VerbMarketAnalysis},
	)
}

func finishMortgage(_ *Orchestrator, answers map[string]string) chat.Message {
	price, _ := strconv.ParseFloat(answers["property_price"], 64)
	down := downPayment(price, answers["down_payment"])
	if down >= price {
		return chat.BotActions(fmt.Sprintf("A down payment of %s covers the full price of %s, so no mortgage is needed.", usd(down), usd(price)),
			chat.Action{Label: "💰 Calculate ROI", Verb: chat.VerbROICalculator},
		)
	}

	principal := price - down
	monthly := monthlyPayment(principal, mortgageRate, mortgageYears)
	total := monthly * mortgageYears * 12
	content := fmt.Sprintf("🏦 **Mortgage Estimate**\n\n• Property price: %s\n• Down payment: %s (%.0f%%)\n• Loan amount: %s\n• Rate: %.1f%% fixed for %d years\n\n**Monthly payment: %s**\n• Total interest: %s\n• Total paid: %s",
		usd(price), usd(down), down/price*100, usd(principal), mortgageRate*100, mortgageYears, usd(monthly), usd(total-principal), usd(total))
	if down/price*100 < defaultDown {
		content += "\n\nWith less than 20% down, expect PMI on top of this."
	}
	return chat.BotActions(content,
		chat.Action{Label: "💰 Calculate ROI", Verb: chat.VerbROICalculator},
		navigate("🔍 Browse Properties", "/properties"),
	)
}

func finishInvestment(_ *Orchestrator, answers map[string]string) chat.Message {
	location := answers["location"]
	content := fmt.Sprintf("📊 **Investment checklist for %s**\n\n1. Compare recent sale prices per square foot with the wider city\n2. Check rental demand: vacancy rates and average days to let\n3. Estimate gross yield from asking rents (5-8%% is typical)\n4. Look for planned infrastructure or zoning changes\n5. Budget for taxes, insurance, maintenance and management\n6. Decide your exit strategy before buying", location)
	area := map[string]any{"area": location}
	return chat.BotActions(content,
		chat.Action{Label: "📍 Area Insights", Verb: chat.VerbAreaInsights, Data: area},
		chat.Action{Label: "📈 Market Analysis", Verb: chat.VerbMarketAnalysis, Data: area},
		chat.Action{Label: "💰 Calculate ROI", Verb: chat.VerbROICalculator},
	)
}

func finishPropertySearch(_ *Orchestrator, answers map[string]string) chat.Message {
	criteria := answers["criteria"]
	return chat.BotActions(fmt.Sprintf("🔍 Searching for: **%s**\n\nOpen the results to filter further by price, location and features.", criteria),
		navigate("🏠 View Results", "/properties/search?q="+url.QueryEscape(criteria)),
		chat.Action{Label: "🔄 New Search", Verb: chat.VerbPropertySearch},
	)
}

// monthlyPayment is the fixed-rate amortized payment for principal at the
// given annual rate over years.
func monthlyPayment(principal, annualRate float64, years int) float64 {
	r := annualRate / 12
	n := float64(years * 12)
	if r == 0 {
		return principal / n
	}
	return principal * r / (1 - math.Pow(1+r, -n))
}

func downPayment(price float64, answer string) float64 {
	if pct, ok := strings.CutSuffix(answer, "%"); ok {
		v, _ := strconv.ParseFloat(pct, 64)
		return price * v / 100
	}
	v, _ := strconv.ParseFloat(answer, 64)
	return v
}

// usd formats an amount in dollars, rounded to the cent.
func usd(amount float64) string {
	return money.New(int64(math.Round(amount*100)), usdCode).Display()
}

var amountPattern = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(?:([km])\b|(%))?`)

// parseAmount reads the first number in s, honoring k/m suffixes and a
// trailing percent sign.
func parseAmount(s string) (value float64, percent bool, err error) {
	m := amountPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false, errUnreadable
	}
	value, err = strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false, err
	}
	switch strings.ToLower(m[2]) {
	case "k":
		value *= 1e3
	case "m":
		value *= 1e6
	}
	return value, m[3] == "%", nil
}

func nonBlank(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errUnreadable
	}
	return s, nil
}

func parsePrice(s string) (string, error) {
	v, percent, err := parseAmount(s)
	if err != nil {
		return "", err
	}
	if percent || v <= 0 {
		return "", errUnreadable
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

func parseDownPayment(s string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(s), "default") {
		return strconv.FormatFloat(defaultDown, 'f', -1, 64) + "%", nil
	}
	v, percent, err := parseAmount(s)
	if err != nil {
		return "", err
	}
	if percent {
		if v > 100 {
			return "", errUnreadable
		}
		return strconv.FormatFloat(v, 'f', -1, 64) + "%", nil
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}
