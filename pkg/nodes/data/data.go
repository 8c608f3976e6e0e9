// Package data implements the JSON and dictionary node types.
package data

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

// Registry type names.
const (
	TypeJSONParse = "json-parse"
	TypeJSONQuery = "json-query"
	TypeJSONSet   = "json-set"
	TypeDictMerge = "dict-merge"
	TypeDictKeys  = "dict-keys"
)

// Category groups the data node types in registry listings.
const Category = "data"

// Register registers all data node types.
func Register(reg *workflow.Registry) {
	reg.Register(TypeJSONParse, Category, NewJSONParseNode)
	reg.Register(TypeJSONQuery, Category, NewJSONQueryNode)
	reg.Register(TypeJSONSet, Category, NewJSONSetNode)
	reg.Register(TypeDictMerge, Category, NewDictMergeNode)
	reg.Register(TypeDictKeys, Category, NewDictKeysNode)
}

// JSONParseNode parses a JSON string. Model outputs often arrive wrapped in a
// markdown code fence; the fence is stripped before parsing.
type JSONParseNode struct {
	workflow.BaseNode
}

func NewJSONParseNode(def workflow.Definition) (workflow.Node, error) {
	n := &JSONParseNode{BaseNode: workflow.NewBaseNode(def.ID, TypeJSONParse)}
	n.AddInputPort("json_string", workflow.TypeString, true, nil)
	n.AddOutputPort("json_object", workflow.TypeJSON)
	return n, nil
}

func (n *JSONParseNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	text := stripCodeFence(workflow.StringInput(inputs, "json_string", ""))
	var parsed interface{}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse json_string: %w", err)
	}
	return map[string]interface{}{"json_object": parsed}, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// JSONQueryNode extracts a value from a JSON document by dotted path, where
// integer segments index into arrays.
type JSONQueryNode struct {
	workflow.BaseNode
}

func NewJSONQueryNode(def workflow.Definition) (workflow.Node, error) {
	n := &JSONQueryNode{BaseNode: workflow.NewBaseNode(def.ID, TypeJSONQuery)}
	n.AddInputPort("json", workflow.TypeAny, true, nil)
	n.AddInputPort("path", workflow.TypeString, true, nil)
	n.AddInputPort("default_value", workflow.TypeAny, false, nil)
	n.AddOutputPort("value", workflow.TypeAny)
	n.AddOutputPort("exists", workflow.TypeBoolean)
	return n, nil
}

func (n *JSONQueryNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	encoded, err := json.Marshal(inputs["json"])
	if err != nil {
		return nil, fmt.Errorf("json input is not encodable: %w", err)
	}
	path := workflow.StringInput(inputs, "path", "")

	res := gjson.GetBytes(encoded, path)
	if !res.Exists() {
		return map[string]interface{}{
			"value":  inputs["default_value"],
			"exists": false,
		}, nil
	}
	return map[string]interface{}{
		"value":  res.Value(),
		"exists": true,
	}, nil
}

// JSONSetNode writes a value into a JSON document at a dotted path, creating
// intermediate objects as needed.
type JSONSetNode struct {
	workflow.BaseNode
}

func NewJSONSetNode(def workflow.Definition) (workflow.Node, error) {
	n := &JSONSetNode{BaseNode: workflow.NewBaseNode(def.ID, TypeJSONSet)}
	n.AddInputPort("json", workflow.TypeAny, true, nil)
	n.AddInputPort("path", workflow.TypeString, true, nil)
	n.AddInputPort("value", workflow.TypeAny, false, nil)
	n.AddOutputPort("result", workflow.TypeJSON)
	return n, nil
}

func (n *JSONSetNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	encoded, err := json.Marshal(inputs["json"])
	if err != nil {
		return nil, fmt.Errorf("json input is not encodable: %w", err)
	}
	path := workflow.StringInput(inputs, "path", "")
	if path == "" {
		return nil, fmt.Errorf("path must not be empty")
	}

	updated, err := sjson.SetBytes(encoded, path, inputs["value"])
	if err != nil {
		return nil, fmt.Errorf("failed to set '%s': %w", path, err)
	}
	var result interface{}
	if err := json.Unmarshal(updated, &result); err != nil {
		return nil, fmt.Errorf("failed to decode updated document: %w", err)
	}
	return map[string]interface{}{"result": result}, nil
}

// DictMergeNode shallow-merges up to three objects.
type DictMergeNode struct {
	workflow.BaseNode
}

func NewDictMergeNode(def workflow.Definition) (workflow.Node, error) {
	n := &DictMergeNode{BaseNode: workflow.NewBaseNode(def.ID, TypeDictMerge)}
	n.AddInputPort("dict1", workflow.TypeObject, true, nil)
	n.AddInputPort("dict2", workflow.TypeObject, true, nil)
	n.AddInputPort("dict3", workflow.TypeObject, false, nil)
	n.AddInputPort("overwrite", workflow.TypeBoolean, false, true)
	n.AddOutputPort("merged_dict", workflow.TypeObject)
	return n, nil
}

func (n *DictMergeNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	overwrite := workflow.BoolInput(inputs, "overwrite", true)
	merged := map[string]interface{}{}
	for _, name := range []string{"dict1", "dict2", "dict3"} {
		dict, ok := inputs[name].(map[string]interface{})
		if !ok {
			continue
		}
		for k, v := range dict {
			if _, exists := merged[k]; exists && !overwrite {
				continue
			}
			merged[k] = v
		}
	}
	return map[string]interface{}{"merged_dict": merged}, nil
}

// DictKeysNode lists an object's keys in sorted order.
type DictKeysNode struct {
	workflow.BaseNode
}

func NewDictKeysNode(def workflow.Definition) (workflow.Node, error) {
	n := &DictKeysNode{BaseNode: workflow.NewBaseNode(def.ID, TypeDictKeys)}
	n.AddInputPort("dict", workflow.TypeObject, true, nil)
	n.AddOutputPort("keys", workflow.TypeArray)
	n.AddOutputPort("count", workflow.TypeNumber)
	return n, nil
}

func (n *DictKeysNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	dict, ok := inputs["dict"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("dict input must be an object, got %T", inputs["dict"])
	}
	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]interface{}, len(keys))
	for i, k := range keys {
		list[i] = k
	}
	return map[string]interface{}{
		"keys":  list,
		"count": float64(len(list)),
	}, nil
}
