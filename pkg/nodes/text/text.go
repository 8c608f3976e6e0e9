// Package text implements the string-processing node types.
package text

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

// Registry type names.
const (
	TypeTextInput       = "text-input"
	TypeTextStrip       = "text-strip"
	TypeTextCase        = "text-case"
	TypeTextConcatenate = "text-concat"
	TypeTextToList      = "text-to-list"
	TypeListToText      = "list-to-text"
	TypeTextCombiner    = "text-combiner"
)

// Category groups the text node types in registry listings.
const Category = "text"

// Register registers all text node types.
func Register(reg *workflow.Registry) {
	reg.Register(TypeTextInput, Category, NewTextInputNode)
	reg.Register(TypeTextStrip, Category, NewTextStripNode)
	reg.Register(TypeTextCase, Category, NewTextCaseNode)
	reg.Register(TypeTextConcatenate, Category, NewTextConcatenateNode)
	reg.Register(TypeTextToList, Category, NewTextToListNode)
	reg.Register(TypeListToText, Category, NewListToTextNode)
	reg.Register(TypeTextCombiner, Category, NewTextCombinerNode)
}

// TextInputNode passes a constant text value into the graph.
type TextInputNode struct {
	workflow.BaseNode
}

func NewTextInputNode(def workflow.Definition) (workflow.Node, error) {
	n := &TextInputNode{BaseNode: workflow.NewBaseNode(def.ID, TypeTextInput)}
	n.AddInputPort("text", workflow.TypeString, true, nil)
	n.AddOutputPort("text", workflow.TypeString)
	return n, nil
}

func (n *TextInputNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	return map[string]interface{}{"text": workflow.StringInput(inputs, "text", "")}, nil
}

// TextStripNode trims leading and trailing whitespace.
type TextStripNode struct {
	workflow.BaseNode
}

func NewTextStripNode(def workflow.Definition) (workflow.Node, error) {
	n := &TextStripNode{BaseNode: workflow.NewBaseNode(def.ID, TypeTextStrip)}
	n.AddInputPort("text", workflow.TypeString, true, nil)
	n.AddOutputPort("text", workflow.TypeString)
	return n, nil
}

func (n *TextStripNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	return map[string]interface{}{"text": strings.TrimSpace(workflow.StringInput(inputs, "text", ""))}, nil
}

// TextCaseNode converts text to upper, lower or title case.
type TextCaseNode struct {
	workflow.BaseNode
}

func NewTextCaseNode(def workflow.Definition) (workflow.Node, error) {
	n := &TextCaseNode{BaseNode: workflow.NewBaseNode(def.ID, TypeTextCase)}
	n.AddInputPort("text", workflow.TypeString, true, nil)
	n.AddInputPortWithOptions("mode", workflow.TypeString, false, "lower",
		[]interface{}{"lower", "upper", "title"})
	n.AddOutputPort("result", workflow.TypeString)
	return n, nil
}

func (n *TextCaseNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	text := workflow.StringInput(inputs, "text", "")
	var result string
	switch workflow.StringInput(inputs, "mode", "lower") {
	case "upper":
		result = strings.ToUpper(text)
	case "title":
		result = cases.Title(language.Und).String(text)
	default:
		result = strings.ToLower(text)
	}
	return map[string]interface{}{"result": result}, nil
}

// TextConcatenateNode joins two strings with a separator.
type TextConcatenateNode struct {
	workflow.BaseNode
}

func NewTextConcatenateNode(def workflow.Definition) (workflow.Node, error) {
	n := &TextConcatenateNode{BaseNode: workflow.NewBaseNode(def.ID, TypeTextConcatenate)}
	n.AddInputPort("text1", workflow.TypeString, true, nil)
	n.AddInputPort("text2", workflow.TypeString, true, nil)
	n.AddInputPort("separator", workflow.TypeString, false, " ")
	n.AddOutputPort("result", workflow.TypeString)
	return n, nil
}

func (n *TextConcatenateNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	sep := workflow.StringInput(inputs, "separator", " ")
	result := workflow.StringInput(inputs, "text1", "") + sep + workflow.StringInput(inputs, "text2", "")
	return map[string]interface{}{"result": result}, nil
}

// TextToListNode splits text on a delimiter, dropping empty segments.
type TextToListNode struct {
	workflow.BaseNode
}

func NewTextToListNode(def workflow.Definition) (workflow.Node, error) {
	n := &TextToListNode{BaseNode: workflow.NewBaseNode(def.ID, TypeTextToList)}
	n.AddInputPort("text", workflow.TypeString, true, nil)
	n.AddInputPort("delimiter", workflow.TypeString, false, "\n")
	n.AddInputPort("strip_items", workflow.TypeBoolean, false, true)
	n.AddOutputPort("list", workflow.TypeArray)
	n.AddOutputPort("count", workflow.TypeNumber)
	return n, nil
}

func (n *TextToListNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	text := workflow.StringInput(inputs, "text", "")
	delimiter := workflow.StringInput(inputs, "delimiter", "\n")
	strip := workflow.BoolInput(inputs, "strip_items", true)

	list := make([]interface{}, 0)
	for _, segment := range strings.Split(text, delimiter) {
		if strip {
			segment = strings.TrimSpace(segment)
		}
		if segment == "" {
			continue
		}
		list = append(list, segment)
	}
	return map[string]interface{}{
		"list":  list,
		"count": float64(len(list)),
	}, nil
}

// ListToTextNode joins a string array back into one text value.
type ListToTextNode struct {
	workflow.BaseNode
}

func NewListToTextNode(def workflow.Definition) (workflow.Node, error) {
	n := &ListToTextNode{BaseNode: workflow.NewBaseNode(def.ID, TypeListToText)}
	n.AddInputPort("list", workflow.TypeArray, true, nil)
	n.AddInputPort("separator", workflow.TypeString, false, "\n")
	n.AddOutputPort("text", workflow.TypeString)
	return n, nil
}

func (n *ListToTextNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	list, ok := inputs["list"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("list input must be an array, got %T", inputs["list"])
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		parts = append(parts, fmt.Sprintf("%v", item))
	}
	sep := workflow.StringInput(inputs, "separator", "\n")
	return map[string]interface{}{"text": strings.Join(parts, sep)}, nil
}

// TextCombinerNode substitutes {text_a}, {text_b} and {text_c} placeholders
// in a prompt template and reports which placeholders were filled.
type TextCombinerNode struct {
	workflow.BaseNode
}

func NewTextCombinerNode(def workflow.Definition) (workflow.Node, error) {
	n := &TextCombinerNode{BaseNode: workflow.NewBaseNode(def.ID, TypeTextCombiner)}
	n.AddInputPort("prompt", workflow.TypeString, true, nil)
	n.AddInputPort("text_a", workflow.TypeString, false, "")
	n.AddInputPort("text_b", workflow.TypeString, false, "")
	n.AddInputPort("text_c", workflow.TypeString, false, "")
	n.AddOutputPort("combined_text", workflow.TypeString)
	n.AddOutputPort("used_variables", workflow.TypeObject)
	return n, nil
}

func (n *TextCombinerNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	combined := workflow.StringInput(inputs, "prompt", "")
	used := map[string]interface{}{}
	for _, name := range []string{"text_a", "text_b", "text_c"} {
		placeholder := "{" + name + "}"
		if !strings.Contains(combined, placeholder) {
			continue
		}
		value := workflow.StringInput(inputs, name, "")
		combined = strings.ReplaceAll(combined, placeholder, value)
		used[name] = value
	}
	return map[string]interface{}{
		"combined_text":  combined,
		"used_variables": used,
	}, nil
}
