package chat

import "encoding/json"

type FlowName string

const (
	FlowReview         FlowName = "review"
	FlowViewing        FlowName = "viewing"
	FlowROI            FlowName = "roi"
	FlowMortgage       FlowName = "mortgage"
	FlowInvestment     FlowName = "investment"
	FlowPropertySearch FlowName = "property_search"
)

// Flow is a multi-turn exchange waiting for the user's next utterance.
// Implemented by PendingReview and PendingStep only.
type Flow interface {
	Name() FlowName
	clone() Flow
}

// PendingReview waits for the comment that completes a review.
type PendingReview struct {
	TargetType string `json:"targetType"`
	TargetID   string `json:"targetId"`
	Rating     int    `json:"rating"`
}

func (PendingReview) Name() FlowName { return FlowReview }

func (p PendingReview) clone() Flow { return p }

// PendingStep is a table-driven flow parked on Step; Answers holds what the
// user has given so far keyed by step.
type PendingStep struct {
	Flow    FlowName          `json:"flow"`
	Step    string            `json:"step"`
	Answers map[string]string `json:"answers,omitempty"`
}

func (p PendingStep) Name() FlowName { return p.Flow }

func (p PendingStep) clone() Flow {
	out := p
	if p.Answers != nil {
		out.Answers = make(map[string]string, len(p.Answers))
		for k, v := range p.Answers {
			out.Answers[k] = v
		}
	}
	return out
}

// Context is the per-session key/value bag plus the pending flow, if any.
type Context struct {
	Values  map[string]any
	Pending Flow
}

func (c Context) MarshalJSON() ([]byte, error) {
	type pending struct {
		Name  FlowName `json:"name"`
		State Flow     `json:"state"`
	}
	out := struct {
		Values  map[string]any `json:"values"`
		Pending *pending       `json:"pending,omitempty"`
	}{Values: c.Values}
	if out.Values == nil {
		out.Values = map[string]any{}
	}
	if c.Pending != nil {
		out.Pending = &pending{Name: c.Pending.Name(), State: c.Pending}
	}
	return json.Marshal(out)
}

func (c *Context) UnmarshalJSON(data []byte) error {
	var in struct {
		Values  map[string]any `json:"values"`
		Pending *struct {
			Name  FlowName        `json:"name"`
			State json.RawMessage `json:"state"`
		} `json:"pending"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*c = Context{Values: in.Values}
	if in.Pending == nil {
		return nil
	}
	if in.Pending.Name == FlowReview {
		var p PendingReview
		if err := json.Unmarshal(in.Pending.State, &p); err != nil {
			return err
		}
		c.Pending = p
		return nil
	}
	var p PendingStep
	if err := json.Unmarshal(in.Pending.State, &p); err != nil {
		return err
	}
	c.Pending = p
	return nil
}

func (c Context) clone() Context {
	out := Context{Values: cloneValues(c.Values)}
	if c.Pending != nil {
		out.Pending = c.Pending.clone()
	}
	return out
}
