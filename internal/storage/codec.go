package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"catalog-manager/internal/domain"

	"gopkg.in/yaml.v3"
)

// Codec converts the catalog to and from its on-disk form: a single object
// keyed by product id, in catalog order.
type Codec interface {
	Marshal(products []domain.Product) ([]byte, error)
	Unmarshal(data []byte) ([]domain.Product, error)
}

// JSONCodec stores the catalog as indented JSON
type JSONCodec struct{}

func (JSONCodec) Marshal(products []domain.Product) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, p := range products {
		if i > 0 {
			buf.WriteString(",")
		}
		key, err := json.Marshal(p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to encode product id: %w", err)
		}
		value, err := json.MarshalIndent(toRecord(p), "  ", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode product %q: %w", p.ID, err)
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
	}
	if len(products) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// Unmarshal decodes the keyed object token by token so that key order, and
// therefore catalog order, survives the round trip.
func (JSONCodec) Unmarshal(data []byte) ([]domain.Product, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, expectEOF(dec)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected an object keyed by product id, got %v", tok)
	}

	var (
		keys    []string
		records []productRecord
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected product id key, got %v", tok)
		}

		var rec productRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("product %q: %w", key, err)
		}
		keys = append(keys, key)
		records = append(records, rec)
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if err := expectEOF(dec); err != nil {
		return nil, err
	}

	return collect(keys, records)
}

func expectEOF(dec *json.Decoder) error {
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after catalog object")
	}
	return nil
}

// YAMLCodec stores the catalog as a YAML mapping
type YAMLCodec struct{}

func (YAMLCodec) Marshal(products []domain.Product) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, p := range products {
		var value yaml.Node
		if err := value.Encode(toRecord(p)); err != nil {
			return nil, fmt.Errorf("failed to encode product %q: %w", p.ID, err)
		}
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.ID}
		root.Content = append(root.Content, key, &value)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (YAMLCodec) Unmarshal(data []byte) ([]domain.Product, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping keyed by product id", root.Line)
	}

	keys := make([]string, 0, len(root.Content)/2)
	records := make([]productRecord, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: expected product id key", keyNode.Line)
		}

		var rec productRecord
		if err := valueNode.Decode(&rec); err != nil {
			return nil, fmt.Errorf("product %q: %w", keyNode.Value, err)
		}
		keys = append(keys, keyNode.Value)
		records = append(records, rec)
	}

	return collect(keys, records)
}
