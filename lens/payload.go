package lens

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Payload is the encoded report as produced by the report writer. Suite and Errors hold the structural tree:
// nested []any sequences whose leaves are int64 pool references or nil.
type Payload struct {
	// BaseMillis is the report epoch, all recorded times are offsets from it.
	BaseMillis int64 `json:"basetime" msgpack:"basetime"`
	// GeneratedMillis is the offset of the report generation time.
	GeneratedMillis int64 `json:"generated" msgpack:"generated"`
	// Strings is the raw string pool, entries are either marked decoded or encoded and compressed.
	Strings []string `json:"strings" msgpack:"strings"`
	// Integers is the integer pool.
	Integers []int64 `json:"integers" msgpack:"integers"`
	// Errors holds report level message records.
	Errors []any `json:"errors" msgpack:"errors"`
	// Stats holds the raw total, tag, and suite statistics records.
	Stats [][]map[string]any `json:"stats" msgpack:"stats"`
	// Suite is the root structural node.
	Suite any `json:"suite" msgpack:"suite"`

	// normalized is set once every reference is an int64.
	normalized bool
}

// payloadKeyAliases maps the key names written by older report writers.
var payloadKeyAliases = map[string]string{
	"baseMillis":      "basetime",
	"generatedMillis": "generated",
}

// ParsePayloadJSON parses a payload from a JSON object.
func ParsePayloadJSON(data []byte) (*Payload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("parse payload json failed: %w", err)
	}
	return payloadFromFields(fields)
}

const jsOutputPrefix = `window.output["`

// ParsePayloadJS parses a payload from the javascript form embedded in log files, one assignment per line:
//
//	window.output["strings"] = [...];
//	window.output["strings"] = window.output["strings"].concat([...]);
//
// Lines not assigning to window.output are ignored.
func ParsePayloadJS(data []byte) (*Payload, error) {
	fields := make(map[string]json.RawMessage)
	for lineNum, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, jsOutputPrefix) {
			continue
		}
		key, rest, ok := strings.Cut(line[len(jsOutputPrefix):], `"]`)
		if !ok {
			return nil, fmt.Errorf("line %d: unterminated output key", lineNum+1)
		}
		rest = strings.TrimSpace(rest)
		if !strings.HasPrefix(rest, "=") {
			continue // not an assignment
		}
		value := strings.TrimSuffix(strings.TrimSpace(rest[1:]), ";")
		concatPrefix := jsOutputPrefix + key + `"].concat(`
		if strings.HasPrefix(value, concatPrefix) && strings.HasSuffix(value, ")") {
			merged, err := concatJSONArrays(fields[key], json.RawMessage(value[len(concatPrefix):len(value)-1]))
			if err != nil {
				return nil, fmt.Errorf("line %d: concat %s failed: %w", lineNum+1, key, err)
			}
			fields[key] = merged
		} else {
			fields[key] = json.RawMessage(value)
		}
	}
	return payloadFromFields(fields)
}

func concatJSONArrays(a, b json.RawMessage) (json.RawMessage, error) {
	var left, right []json.RawMessage
	if len(a) > 0 {
		if err := json.Unmarshal(a, &left); err != nil {
			return nil, err
		}
	}
	if err := json.Unmarshal(b, &right); err != nil {
		return nil, err
	}
	return json.Marshal(append(left, right...))
}

func payloadFromFields(fields map[string]json.RawMessage) (*Payload, error) {
	for alias, key := range payloadKeyAliases {
		if v, ok := fields[alias]; ok {
			if _, exists := fields[key]; !exists {
				fields[key] = v
			}
		}
	}
	if _, ok := fields["suite"]; !ok {
		return nil, fmt.Errorf("%w: payload has no suite", ErrShapeMismatch)
	}

	p := &Payload{}
	targets := map[string]any{
		"basetime":  &p.BaseMillis,
		"generated": &p.GeneratedMillis,
		"strings":   &p.Strings,
		"integers":  &p.Integers,
		"errors":    &p.Errors,
		"stats":     &p.Stats,
		"suite":     &p.Suite,
	}
	for key, target := range targets {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber() // references must stay exact integers
		if err := dec.Decode(target); err != nil {
			return nil, fmt.Errorf("parse payload %s failed: %w", key, err)
		}
	}
	if err := p.normalize(); err != nil {
		return nil, err
	}
	return p, nil
}

// DecodePayloadMsgpack decodes a payload from its msgpack form.
func DecodePayloadMsgpack(data []byte) (*Payload, error) {
	p := &Payload{}
	if err := msgpack.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode payload msgpack failed: %w", err)
	} else if err := p.normalize(); err != nil {
		return nil, err
	}
	return p, nil
}

// EncodePayloadMsgpack encodes a payload to its msgpack form.
func EncodePayloadMsgpack(p *Payload) ([]byte, error) {
	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)

	var buf bytes.Buffer
	enc.Reset(&buf)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("encode payload msgpack failed: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadPayloadFile reads a payload file, the format is selected by extension: .js for the javascript form,
// .msgpack or .mp for msgpack, anything else is JSON.
func LoadPayloadFile(path string) (*Payload, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read payload failed: %w", err)
	}
	var p *Payload
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js":
		p, err = ParsePayloadJS(data)
	case ".msgpack", ".mp":
		p, err = DecodePayloadMsgpack(data)
	default:
		p, err = ParsePayloadJSON(data)
	}
	return p, data, err
}

// normalize replaces Suite and Errors with copies holding every structural reference as an int64, so the tree
// builder sees a single representation.
func (p *Payload) normalize() error {
	suite, err := normalizeEntry(p.Suite)
	if err != nil {
		return fmt.Errorf("suite: %w", err)
	} else if _, ok := suite.([]any); !ok {
		return fmt.Errorf("%w: suite is not a sequence", ErrShapeMismatch)
	}
	errs := make([]any, len(p.Errors))
	for i, e := range p.Errors {
		if errs[i], err = normalizeEntry(e); err != nil {
			return fmt.Errorf("error %d: %w", i, err)
		}
	}
	p.Suite = suite
	p.Errors = errs
	p.normalized = true
	return nil
}

var errNotReference = errors.New("not a reference")

func normalizeEntry(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			var err error
			if out[i], err = normalizeEntry(child); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		ref, ok := asRef(v)
		if !ok {
			return nil, fmt.Errorf("%w: %w: %v (%T)", ErrShapeMismatch, errNotReference, v, v)
		}
		return ref, nil
	}
}
