// Package template reads SAM/CloudFormation templates just deeply enough
// for the tools: list functions, find event sources, merge globals. It is
// deliberately tolerant — CloudFormation intrinsics are normalized, never
// rejected, because templates in the wild use the short-form tags heavily.
package template

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Resource type identifiers this package cares about.
const (
	TypeServerlessFunction = "AWS::Serverless::Function"
	TypeLambdaFunction     = "AWS::Lambda::Function"
	TypeEventSourceMapping = "AWS::Lambda::EventSourceMapping"
)

// Template is a parsed SAM template.
type Template struct {
	FormatVersion string               `yaml:"AWSTemplateFormatVersion"`
	Transform     Value                `yaml:"Transform"`
	Globals       map[string]Props     `yaml:"Globals"`
	Resources     map[string]*Resource `yaml:"Resources"`
	Outputs       map[string]Output    `yaml:"Outputs"`
}

// Resource is a single template resource.
type Resource struct {
	Type       string `yaml:"Type"`
	Properties Props  `yaml:"Properties"`
}

// Output is a template output.
type Output struct {
	Description string `yaml:"Description"`
	Value       Value  `yaml:"Value"`
}

// Props is a property bag with intrinsic-aware values.
type Props map[string]Value

// Function is the merged view of a serverless function resource.
type Function struct {
	LogicalID string
	Runtime   string
	Handler   string
	Events    map[string]Event
}

// Event is one entry under a function's Events block.
type Event struct {
	Type       string
	Properties Props
}

// Parse reads and decodes the template at path.
func Parse(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes decodes template source.
func ParseBytes(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	if t.Resources == nil {
		return nil, fmt.Errorf("template has no Resources section")
	}
	return &t, nil
}

// Find locates the template file in projectDir, trying the names the SAM
// CLI itself accepts.
func Find(projectDir string) (string, error) {
	for _, name := range []string{"template.yaml", "template.yml", "template.json"} {
		p := filepath.Join(projectDir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no SAM template found in %s", projectDir)
}

// Functions returns every serverless function with Globals.Function merged
// under the resource's own properties.
func (t *Template) Functions() []Function {
	globals := t.Globals["Function"]

	var fns []Function
	for id, res := range t.Resources {
		if res == nil || res.Type != TypeServerlessFunction {
			continue
		}
		fn := Function{LogicalID: id, Events: map[string]Event{}}
		fn.Runtime = res.Properties.stringOr("Runtime", globals.stringOr("Runtime", ""))
		fn.Handler = res.Properties.stringOr("Handler", globals.stringOr("Handler", ""))

		if events, ok := res.Properties["Events"].AsMap(); ok {
			for name, raw := range events {
				ev := Event{Properties: Props{}}
				if m, ok := raw.AsMap(); ok {
					ev.Type, _ = m["Type"].AsString()
					if props, ok := m["Properties"].AsMap(); ok {
						ev.Properties = Props(props)
					}
				}
				fn.Events[name] = ev
			}
		}
		fns = append(fns, fn)
	}
	return fns
}

// StreamEventTypes lists the event types SAM turns into event source
// mappings.
var StreamEventTypes = map[string]bool{
	"Kinesis":          true,
	"DynamoDB":         true,
	"SQS":              true,
	"MSK":              true,
	"SelfManagedKafka": true,
}

// StreamEvents returns function/event pairs backed by event source
// mappings.
func (t *Template) StreamEvents() []FunctionEvent {
	var out []FunctionEvent
	for _, fn := range t.Functions() {
		for name, ev := range fn.Events {
			if StreamEventTypes[ev.Type] {
				out = append(out, FunctionEvent{Function: fn.LogicalID, Name: name, Event: ev})
			}
		}
	}
	return out
}

// FunctionEvent names an event on a specific function.
type FunctionEvent struct {
	Function string
	Name     string
	Event    Event
}

func (p Props) stringOr(key, fallback string) string {
	if p == nil {
		return fallback
	}
	if s, ok := p[key].AsString(); ok && s != "" {
		return s
	}
	return fallback
}
