package ml

import (
	"context"
	"errors"
	"fmt"
)

type TreeSpec struct {
	Nodes []TreeNode `json:"nodes"`
}

// TreeNode is one node of a flattened tree; children are indices into the
// node slice and the root is node 0. Value holds per-class sample counts.
type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	IsLeaf     bool      `json:"is_leaf"`
	Value      []float64 `json:"value,omitempty"`
}

// DecisionTree classifies a preprocessed vector by walking threshold splits
// down to a leaf and normalising the leaf's class counts.
type DecisionTree struct {
	prep    *Preprocessor
	classes []int
	nodes   []TreeNode
}

func newDecisionTree(artifact *Artifact) (*DecisionTree, error) {
	prep, err := NewPreprocessor(*artifact.Preprocessor)
	if err != nil {
		return nil, err
	}
	nodes := artifact.Tree.Nodes
	for i, node := range nodes {
		if node.IsLeaf {
			if len(node.Value) != len(artifact.Classes) {
				return nil, fmt.Errorf("%w: leaf %d has %d class counts, want %d", ErrInvalidArtifact, i, len(node.Value), len(artifact.Classes))
			}
			if sum(node.Value) <= 0 {
				return nil, fmt.Errorf("%w: leaf %d is empty", ErrInvalidArtifact, i)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= prep.Width() {
			return nil, fmt.Errorf("%w: node %d splits on feature %d of %d", ErrInvalidArtifact, i, node.FeatureIdx, prep.Width())
		}
		if node.LeftChild <= i || node.LeftChild >= len(nodes) || node.RightChild <= i || node.RightChild >= len(nodes) {
			return nil, fmt.Errorf("%w: node %d has invalid children", ErrInvalidArtifact, i)
		}
	}
	return &DecisionTree{prep: prep, classes: artifact.Classes, nodes: nodes}, nil
}

func (dt *DecisionTree) Classes() []int {
	return append([]int(nil), dt.classes...)
}

func (dt *DecisionTree) Columns() []string {
	return dt.prep.Columns()
}

func (dt *DecisionTree) Predict(ctx context.Context, row Row) (int, error) {
	proba, err := dt.PredictProba(ctx, row)
	if err != nil {
		return 0, err
	}
	return dt.classes[argmax(proba)], nil
}

func (dt *DecisionTree) PredictProba(ctx context.Context, row Row) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	features, err := dt.prep.Transform(row)
	if err != nil {
		return nil, err
	}
	leaf, err := dt.leaf(features)
	if err != nil {
		return nil, err
	}
	total := sum(leaf.Value)
	proba := make([]float64, len(leaf.Value))
	for i, count := range leaf.Value {
		proba[i] = count / total
	}
	return proba, nil
}

func (dt *DecisionTree) leaf(features []float64) (TreeNode, error) {
	if len(dt.nodes) == 0 {
		return TreeNode{}, errors.New("model not loaded")
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return TreeNode{}, errors.New("invalid tree state")
		}
	}
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
