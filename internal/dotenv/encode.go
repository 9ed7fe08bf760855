package dotenv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names an output encoding for a resolved environment.
type Format string

const (
	FormatDotenv Format = "dotenv"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
)

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "dotenv", "env":
		return FormatDotenv, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported output format %q (use dotenv, json or yaml)", name)
}

// Encode renders env in the given format, keeping insertion order.
func Encode(env *Env, format Format) ([]byte, error) {
	switch format {
	case FormatDotenv, "":
		return Serialize(env), nil
	case FormatJSON:
		return encodeJSON(env)
	case FormatYAML:
		return encodeYAML(env)
	}
	return nil, fmt.Errorf("unsupported output format %q", format)
}

func encodeJSON(env *Env) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, key := range env.keys {
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(env.values[key])
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		buf.Write(k)
		buf.WriteString(": ")
		buf.Write(v)
	}
	if env.Len() > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func encodeYAML(env *Env) ([]byte, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, key := range env.keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: env.values[key]},
		)
	}
	if env.Len() == 0 {
		return []byte("{}\n"), nil
	}
	return yaml.Marshal(node)
}
