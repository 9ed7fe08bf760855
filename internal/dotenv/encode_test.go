package dotenv

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatDotenv, false},
		{"env", FormatDotenv, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"toml", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseFormat(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestEncodeJSONKeepsOrder(t *testing.T) {
	env := FromPairs("ZED", "1", "ALPHA", "two \"quoted\"")

	data, err := Encode(env, FormatJSON)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if strings.Index(string(data), "ZED") > strings.Index(string(data), "ALPHA") {
		t.Errorf("Expected ZED before ALPHA, got:\n%s", data)
	}

	var decoded map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v\n%s", err, data)
	}
	if decoded["ALPHA"] != "two \"quoted\"" {
		t.Errorf("Unexpected ALPHA value %q", decoded["ALPHA"])
	}
}

func TestEncodeYAMLKeepsStrings(t *testing.T) {
	env := FromPairs("PORT", "8080", "DEBUG", "true", "NAME", "api")

	data, err := Encode(env, FormatYAML)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.HasPrefix(string(data), "PORT:") {
		t.Errorf("Expected PORT first, got:\n%s", data)
	}

	var decoded map[string]interface{}
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Output is not valid YAML: %v", err)
	}
	if _, ok := decoded["PORT"].(string); !ok {
		t.Errorf("Expected PORT to stay a string, got %T", decoded["PORT"])
	}
	if _, ok := decoded["DEBUG"].(string); !ok {
		t.Errorf("Expected DEBUG to stay a string, got %T", decoded["DEBUG"])
	}
}

func TestEncodeEmpty(t *testing.T) {
	for _, format := range []Format{FormatDotenv, FormatJSON, FormatYAML} {
		data, err := Encode(New(), format)
		if err != nil {
			t.Fatalf("Encode(%s) failed: %v", format, err)
		}
		if format == FormatJSON && string(data) != "{}\n" {
			t.Errorf("Expected {} for empty JSON, got %q", data)
		}
	}
}
