package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	ModelTypeKNN          = "knn"
	ModelTypeDecisionTree = "decision_tree"
	ModelTypeRemote       = "remote"
)

// Artifact is the serialized form of a trained classifier.
type Artifact struct {
	Type         string            `json:"type"`
	Version      int               `json:"version"`
	Classes      []int             `json:"classes"`
	Preprocessor *PreprocessorSpec `json:"preprocessor,omitempty"`
	KNN          *KNNSpec          `json:"knn,omitempty"`
	Tree         *TreeSpec         `json:"tree,omitempty"`
	Remote       *RemoteSpec       `json:"remote,omitempty"`
}

const artifactSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type", "version", "classes"],
  "properties": {
    "type": {"enum": ["knn", "decision_tree", "remote"]},
    "version": {"const": 1},
    "classes": {
      "type": "array",
      "items": {"type": "integer"},
      "minItems": 2,
      "uniqueItems": true
    },
    "preprocessor": {
      "type": "object",
      "properties": {
        "numeric": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["column", "mean", "scale"],
            "properties": {
              "column": {"type": "string", "minLength": 1},
              "mean": {"type": "number"},
              "scale": {"type": "number", "exclusiveMinimum": 0}
            }
          }
        },
        "categorical": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["column", "categories"],
            "properties": {
              "column": {"type": "string", "minLength": 1},
              "categories": {"type": "array", "items": {"type": "string"}, "minItems": 1, "uniqueItems": true}
            }
          }
        },
        "handle_unknown": {"enum": ["error", "ignore"]}
      }
    },
    "knn": {
      "type": "object",
      "required": ["k", "samples", "labels"],
      "properties": {
        "k": {"type": "integer", "minimum": 1},
        "weights": {"enum": ["uniform", "distance"]},
        "samples": {"type": "array", "items": {"type": "object"}, "minItems": 1},
        "labels": {"type": "array", "items": {"type": "integer"}, "minItems": 1}
      }
    },
    "tree": {
      "type": "object",
      "required": ["nodes"],
      "properties": {
        "nodes": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["is_leaf"],
            "properties": {
              "feature_idx": {"type": "integer"},
              "threshold": {"type": "number"},
              "left_child": {"type": "integer"},
              "right_child": {"type": "integer"},
              "is_leaf": {"type": "boolean"},
              "value": {"type": "array", "items": {"type": "number", "minimum": 0}}
            }
          }
        }
      }
    },
    "remote": {
      "type": "object",
      "required": ["url"],
      "properties": {
        "url": {"type": "string", "minLength": 1},
        "timeout": {"type": "string"}
      }
    }
  },
  "allOf": [
    {"if": {"properties": {"type": {"const": "knn"}}}, "then": {"required": ["preprocessor", "knn"]}},
    {"if": {"properties": {"type": {"const": "decision_tree"}}}, "then": {"required": ["preprocessor", "tree"]}},
    {"if": {"properties": {"type": {"const": "remote"}}}, "then": {"required": ["remote"]}}
  ]
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func artifactValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		var doc any
		if err := json.Unmarshal([]byte(artifactSchema), &doc); err != nil {
			compileErr = fmt.Errorf("parse artifact schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://model-artifact.json"
		if err := c.AddResource(url, doc); err != nil {
			compileErr = fmt.Errorf("add artifact schema: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(url)
	})
	return compiledSchema, compileErr
}

// ParseArtifact validates raw JSON against the artifact schema and decodes it.
func ParseArtifact(payload []byte) (*Artifact, error) {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	schema, err := artifactValidator()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}

	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	return &artifact, nil
}

// Save writes the artifact as JSON.
func (a *Artifact) Save(path string) error {
	payload, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (a *Artifact) classIndex() map[int]int {
	index := make(map[int]int, len(a.Classes))
	for i, class := range a.Classes {
		index[class] = i
	}
	return index
}
