// Package schema validates inbound CRUD payloads against JSON Schema
// documents and reports per-field failures for client display.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const deviceInsertSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"name":           {"type": "string", "minLength": 1},
		"address":        {"type": "string", "minLength": 1},
		"deviceType":     {"type": "string", "minLength": 1},
		"isConnected":    {"type": "boolean"},
		"volume":         {"type": "integer", "minimum": 0, "maximum": 100},
		"batteryLevel":   {"type": ["integer", "null"]},
		"signalStrength": {"type": ["integer", "null"]}
	},
	"required": ["name", "address", "deviceType"]
}`

const sessionInsertSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"deviceId":     {"type": ["integer", "null"]},
		"isActive":     {"type": "boolean"},
		"audioQuality": {"type": "string", "enum": ["low_latency", "balanced", "high_quality"]},
		"bufferSize":   {"type": "integer", "minimum": 1},
		"latency":      {"type": ["integer", "null"], "minimum": 0}
	}
}`

// Validator holds the compiled insert schemas.
type Validator struct {
	deviceInsert  *jsonschema.Schema
	sessionInsert *jsonschema.Schema
	printer       *message.Printer
}

// NewValidator compiles the insert schemas. Compilation of the fixed
// documents cannot fail at runtime; an error here is a programming bug.
func NewValidator() (*Validator, error) {
	deviceInsert, err := compile("device-insert.json", deviceInsertSchema)
	if err != nil {
		return nil, err
	}
	sessionInsert, err := compile("session-insert.json", sessionInsertSchema)
	if err != nil {
		return nil, err
	}
	return &Validator{
		deviceInsert:  deviceInsert,
		sessionInsert: sessionInsert,
		printer:       message.NewPrinter(language.English),
	}, nil
}

func compile(name, doc string) (*jsonschema.Schema, error) {
	var schemaMap any
	if err := json.Unmarshal([]byte(doc), &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema %s: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, schemaMap); err != nil {
		return nil, fmt.Errorf("failed to add resource %s: %w", name, err)
	}
	compiled, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", name, err)
	}
	return compiled, nil
}

// ValidateDeviceInsert checks a device creation payload. A nil return
// means the payload is valid; otherwise the slice lists the offending
// fields.
func (v *Validator) ValidateDeviceInsert(payload any) []string {
	return v.validate(v.deviceInsert, payload)
}

// ValidateSessionInsert checks a session creation payload.
func (v *Validator) ValidateSessionInsert(payload any) []string {
	return v.validate(v.sessionInsert, payload)
}

func (v *Validator) validate(s *jsonschema.Schema, payload any) []string {
	err := s.Validate(payload)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}
	var details []string
	v.collect(ve, &details)
	if len(details) == 0 {
		details = []string{ve.Error()}
	}
	return details
}

// collect flattens the cause tree into one entry per leaf failure.
func (v *Validator) collect(ve *jsonschema.ValidationError, details *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/" + strings.Join(ve.InstanceLocation, "/")
		*details = append(*details, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(v.printer)))
		return
	}
	for _, cause := range ve.Causes {
		v.collect(cause, details)
	}
}
