package control

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

// TypeSwitch is the registry name of the rule-based router node.
const TypeSwitch = "switch"

// Rule matching modes.
const (
	ModeFirstMatch = "first_match"
	ModeAllMatches = "all_matches"
)

// SwitchRule is one routing rule: extract Field from the data, compare with
// Operator against Value, and on a match route the data to output_<Index>.
type SwitchRule struct {
	Field    string
	Operator string
	Value    interface{}
	Index    int
}

// SwitchNode routes its data input to one of output_0..output_{n-1} based on
// an ordered rule list, or to fallback when no rule matches. In first_match
// mode the first matching rule wins; in all_matches mode every matching
// rule's output receives the data. Non-matching outputs stay absent.
type SwitchNode struct {
	workflow.BaseNode
	outputCount int
}

// NewSwitchNode creates a Switch. The output_count constructor parameter
// (default 1, minimum 1) fixes the number of routed outputs.
func NewSwitchNode(def workflow.Definition) (workflow.Node, error) {
	count := def.IntParam("output_count", 1)
	if count < 1 {
		count = 1
	}

	n := &SwitchNode{
		BaseNode:    workflow.NewBaseNode(def.ID, TypeSwitch),
		outputCount: count,
	}
	n.AddInputPort("data", workflow.TypeAny, true, nil)
	n.AddInputPort("rules", workflow.TypeArray, false, nil)
	n.AddInputPortWithOptions("mode", workflow.TypeString, false, ModeFirstMatch,
		[]interface{}{ModeFirstMatch, ModeAllMatches})
	for i := 0; i < count; i++ {
		n.AddOutputPort(fmt.Sprintf("output_%d", i), workflow.TypeAny)
	}
	n.AddOutputPort("fallback", workflow.TypeAny)
	return n, nil
}

// OutputCount returns the number of routed outputs (excluding fallback).
func (n *SwitchNode) OutputCount() int { return n.outputCount }

// Process evaluates the rules against the data input.
func (n *SwitchNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	data := inputs["data"]
	mode := workflow.StringInput(inputs, "mode", ModeFirstMatch)

	rules, err := parseRules(inputs["rules"])
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("switch data is not JSON-encodable: %w", err)
	}

	outputs := map[string]interface{}{}
	matched := false
	for _, rule := range rules {
		ok, err := evaluateRule(encoded, data, rule)
		if err != nil {
			return nil, err
		}
		if !ok || rule.Index < 0 || rule.Index >= n.outputCount {
			continue
		}
		outputs[fmt.Sprintf("output_%d", rule.Index)] = data
		matched = true
		if mode == ModeFirstMatch {
			break
		}
	}

	if !matched {
		outputs["fallback"] = data
	}
	return outputs, nil
}

// parseRules decodes the rules array. Saved workflows use either
// operator/output_index or the short op/out aliases; both are accepted.
func parseRules(v interface{}) ([]SwitchRule, error) {
	if v == nil {
		return nil, nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("switch rules must be an array, got %T", v)
	}

	rules := make([]SwitchRule, 0, len(raw))
	for i, entry := range raw {
		m, ok := entry.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("switch rule %d must be an object, got %T", i, entry)
		}

		rule := SwitchRule{Index: -1}
		rule.Field, _ = m["field"].(string)
		if op, ok := m["operator"].(string); ok {
			rule.Operator = op
		} else if op, ok := m["op"].(string); ok {
			rule.Operator = op
		}
		rule.Value = m["value"]
		if idx, ok := workflow.AsNumber(m["output_index"]); ok {
			rule.Index = int(idx)
		} else if idx, ok := workflow.AsNumber(m["out"]); ok {
			rule.Index = int(idx)
		}

		if rule.Operator == "" {
			return nil, fmt.Errorf("switch rule %d has no operator", i)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// evaluateRule extracts the rule's field from the encoded data and applies
// the operator. An empty field path addresses the whole data value.
func evaluateRule(encoded []byte, data interface{}, rule SwitchRule) (bool, error) {
	var field interface{}
	if rule.Field == "" {
		field = data
	} else {
		res := gjson.GetBytes(encoded, rule.Field)
		if res.Exists() {
			field = res.Value()
		}
	}

	switch rule.Operator {
	case "equals":
		return looselyEqual(field, rule.Value), nil
	case "not_equals":
		return !looselyEqual(field, rule.Value), nil
	case "greater", "greater_equal", "less", "less_equal":
		return compareOrder(rule.Operator, field, rule.Value), nil
	case "contains":
		return containsValue(field, rule.Value), nil
	case "not_contains":
		return !containsValue(field, rule.Value), nil
	case "starts_with":
		s, sub, ok := stringPair(field, rule.Value)
		return ok && strings.HasPrefix(s, sub), nil
	case "ends_with":
		s, sub, ok := stringPair(field, rule.Value)
		return ok && strings.HasSuffix(s, sub), nil
	case "regex":
		pattern, ok := rule.Value.(string)
		if !ok {
			return false, fmt.Errorf("regex rule value must be a string, got %T", rule.Value)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("invalid regex rule pattern: %w", err)
		}
		s, ok := field.(string)
		return ok && re.MatchString(s), nil
	case "is_empty":
		return workflow.IsEmptyValue(field), nil
	case "is_not_empty":
		return !workflow.IsEmptyValue(field), nil
	}
	return false, fmt.Errorf("unknown switch operator '%s'", rule.Operator)
}

func looselyEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if an, ok := workflow.AsNumber(a); ok {
		bn, ok := workflow.AsNumber(b)
		return ok && an == bn
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as == bs
	}
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(aj) == string(bj)
}

func compareOrder(op string, a, b interface{}) bool {
	an, aok := workflow.AsNumber(a)
	bn, bok := workflow.AsNumber(b)
	if !aok || !bok {
		as, aok := a.(string)
		bs, bok := b.(string)
		if !aok || !bok {
			return false
		}
		return orderHolds(op, strings.Compare(as, bs))
	}
	switch {
	case an > bn:
		return orderHolds(op, 1)
	case an < bn:
		return orderHolds(op, -1)
	default:
		return orderHolds(op, 0)
	}
}

func orderHolds(op string, cmp int) bool {
	switch op {
	case "greater":
		return cmp > 0
	case "greater_equal":
		return cmp >= 0
	case "less":
		return cmp < 0
	case "less_equal":
		return cmp <= 0
	}
	return false
}

// containsValue handles substring match for strings and membership for arrays.
func containsValue(field, value interface{}) bool {
	switch f := field.(type) {
	case string:
		sub, ok := value.(string)
		return ok && strings.Contains(f, sub)
	case []interface{}:
		for _, item := range f {
			if looselyEqual(item, value) {
				return true
			}
		}
	}
	return false
}

func stringPair(a, b interface{}) (string, string, bool) {
	as, aok := a.(string)
	bs, bok := b.(string)
	return as, bs, aok && bok
}
