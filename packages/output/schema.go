package output

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// exportSchema describes the run export document. Export validates against it
// before handing the document to downstream consumers.
const exportSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["run", "executions", "summary", "exportedAt"],
  "properties": {
    "run": {
      "type": "object",
      "required": ["runId", "testType", "status", "startTime"],
      "properties": {
        "runId": {"type": "string", "minLength": 1},
        "testType": {"type": "string", "enum": ["single", "ci", "distributed"]},
        "status": {"type": "string"},
        "owner": {"type": "string"},
        "environment": {"type": "string"},
        "branch": {"type": "string"},
        "startTime": {"type": "string"},
        "endTime": {"type": "string"},
        "duration": {"type": "number", "minimum": 0}
      }
    },
    "executions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["testModule", "testFunction", "result"],
        "properties": {
          "testModule": {"type": "string", "minLength": 1},
          "testFunction": {"type": "string", "minLength": 1},
          "result": {
            "type": "string",
            "enum": ["started", "passed", "failed", "skipped", "xfailed", "xpassed", "error", "rerun"]
          },
          "failure": {"type": "string"},
          "failureType": {"type": "string"},
          "duration": {"type": "number", "minimum": 0},
          "steps": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["stepId", "sequenceNumber", "hierarchicalNumber", "indentLevel", "content"],
              "properties": {
                "stepId": {"type": "string", "pattern": "^step_[0-9]+_.+_[0-9]+$"},
                "sequenceNumber": {"type": "integer", "minimum": 1},
                "hierarchicalNumber": {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)*$"},
                "indentLevel": {"type": "integer", "minimum": 0},
                "content": {"type": "string"},
                "function": {"type": "string"},
                "completed": {"type": "boolean"}
              }
            }
          },
          "metrics": {"type": "object"}
        }
      }
    },
    "summary": {
      "type": "object",
      "required": ["total", "passed", "failed", "skipped"],
      "properties": {
        "total": {"type": "integer", "minimum": 0},
        "passed": {"type": "integer", "minimum": 0},
        "failed": {"type": "integer", "minimum": 0},
        "skipped": {"type": "integer", "minimum": 0}
      }
    },
    "exportedAt": {"type": "string"}
  }
}`

// ValidateExport checks the export document against the built-in run export
// schema and returns a single error naming every violation.
func ValidateExport(export *RunExport) error {
	return validate(export, gojsonschema.NewStringLoader(exportSchema))
}

// ValidateExportAgainst checks the export document against a caller-supplied
// JSON schema file.
func ValidateExportAgainst(export *RunExport, schemaPath string) error {
	abs, err := filepath.Abs(schemaPath)
	if err != nil {
		return fmt.Errorf("resolving schema path: %w", err)
	}
	return validate(export, gojsonschema.NewReferenceLoader("file://"+abs))
}

func validate(export *RunExport, schema gojsonschema.JSONLoader) error {
	data, err := json.Marshal(export)
	if err != nil {
		return fmt.Errorf("encoding export for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		schema,
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validating export: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var b strings.Builder
	for i, desc := range result.Errors() {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", desc.Field(), desc.Description())
	}
	return fmt.Errorf("export failed schema validation: %s", b.String())
}
