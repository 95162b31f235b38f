package ml

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"
)

// LoadOptions tunes how an artifact becomes a Classifier.
type LoadOptions struct {
	// HTTPClient is used by remote models; nil builds one from the artifact timeout.
	HTTPClient *http.Client
	// RemoteTimeout applies when a remote artifact names no timeout.
	RemoteTimeout time.Duration
}

// LoadModel reads, validates and instantiates the artifact at path.
func LoadModel(path string) (Classifier, error) {
	return LoadModelWithOptions(path, LoadOptions{})
}

func LoadModelWithOptions(path string, opts LoadOptions) (Classifier, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	artifact, err := ParseArtifact(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewClassifier(artifact, opts)
}

// NewClassifier instantiates a decoded artifact.
func NewClassifier(artifact *Artifact, opts LoadOptions) (Classifier, error) {
	if len(artifact.Classes) < 2 {
		return nil, fmt.Errorf("%w: need at least two classes", ErrInvalidArtifact)
	}
	switch artifact.Type {
	case ModelTypeKNN:
		if artifact.Preprocessor == nil || artifact.KNN == nil {
			return nil, fmt.Errorf("%w: knn artifact needs preprocessor and knn sections", ErrInvalidArtifact)
		}
		return newKNN(artifact)
	case ModelTypeDecisionTree:
		if artifact.Preprocessor == nil || artifact.Tree == nil {
			return nil, fmt.Errorf("%w: decision_tree artifact needs preprocessor and tree sections", ErrInvalidArtifact)
		}
		return newDecisionTree(artifact)
	case ModelTypeRemote:
		if artifact.Remote == nil {
			return nil, fmt.Errorf("%w: remote artifact needs a remote section", ErrInvalidArtifact)
		}
		return newRemote(artifact, opts)
	default:
		return nil, fmt.Errorf("%w: unsupported model type %q", ErrInvalidArtifact, artifact.Type)
	}
}
