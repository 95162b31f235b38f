// Package mltest provides model artifacts for tests.
package mltest

import (
	"path/filepath"
	"testing"

	"heartpredict/ml"
)

// HeartPreprocessor is the column layout of the heart disease pipeline.
func HeartPreprocessor() *ml.PreprocessorSpec {
	return &ml.PreprocessorSpec{
		Numeric: []ml.NumericColumn{
			{Column: "age", Mean: 53.5, Scale: 9.4},
			{Column: "trestbps", Mean: 132.1, Scale: 18.4},
			{Column: "chol", Mean: 246.0, Scale: 51.8},
			{Column: "thalch", Mean: 137.5, Scale: 25.9},
			{Column: "oldpeak", Mean: 0.88, Scale: 1.09},
		},
		Categorical: []ml.CategoricalColumn{
			{Column: "sex", Categories: []string{"Female", "Male"}},
			{Column: "cp", Categories: []string{"Asymptomatic", "Atypical Angina", "Non-anginal Pain", "Typical Angina"}},
			{Column: "fbs", Categories: []string{"False", "True"}},
			{Column: "restecg", Categories: []string{"Left Ventricular Hypertrophy", "Normal", "ST-T Wave Abnormality"}},
			{Column: "exang", Categories: []string{"No", "Yes"}},
			{Column: "slope", Categories: []string{"Downsloping", "Flat", "Upsloping"}},
			{Column: "ca", Categories: []string{"0", "1", "2", "3"}},
			{Column: "thal", Categories: []string{"Fixed Defect", "Normal", "Reversible Defect"}},
		},
		HandleUnknown: "error",
	}
}

func sample(age int, sex, cp string, trestbps, chol int, fbs, restecg string, thalch int, exang string, oldpeak float64, slope, ca, thal string) ml.Row {
	return ml.Row{
		"age": age, "sex": sex, "cp": cp, "trestbps": trestbps, "chol": chol,
		"fbs": fbs, "restecg": restecg, "thalch": thalch, "exang": exang,
		"oldpeak": oldpeak, "slope": slope, "ca": ca, "thal": thal,
	}
}

// HeartKNN is a small five-neighbour model over a handful of labelled patients.
func HeartKNN() *ml.Artifact {
	return &ml.Artifact{
		Type:         ml.ModelTypeKNN,
		Version:      1,
		Classes:      []int{0, 1},
		Preprocessor: HeartPreprocessor(),
		KNN: &ml.KNNSpec{
			K:       5,
			Weights: "uniform",
			Samples: []ml.Row{
				sample(63, "Male", "Typical Angina", 145, 233, "True", "Left Ventricular Hypertrophy", 150, "No", 2.3, "Downsloping", "0", "Fixed Defect"),
				sample(67, "Male", "Asymptomatic", 160, 286, "False", "Left Ventricular Hypertrophy", 108, "Yes", 1.5, "Flat", "3", "Normal"),
				sample(67, "Male", "Asymptomatic", 120, 229, "False", "Left Ventricular Hypertrophy", 129, "Yes", 2.6, "Flat", "2", "Reversible Defect"),
				sample(37, "Male", "Non-anginal Pain", 130, 250, "False", "Normal", 187, "No", 3.5, "Downsloping", "0", "Normal"),
				sample(41, "Female", "Atypical Angina", 130, 204, "False", "Left Ventricular Hypertrophy", 172, "No", 1.4, "Upsloping", "0", "Normal"),
				sample(56, "Male", "Atypical Angina", 120, 236, "False", "Normal", 178, "No", 0.8, "Upsloping", "0", "Normal"),
				sample(62, "Female", "Asymptomatic", 140, 268, "False", "Left Ventricular Hypertrophy", 160, "No", 3.6, "Downsloping", "2", "Normal"),
				sample(57, "Female", "Asymptomatic", 120, 354, "False", "Normal", 163, "Yes", 0.6, "Upsloping", "0", "Normal"),
				sample(63, "Male", "Asymptomatic", 130, 254, "False", "Left Ventricular Hypertrophy", 147, "No", 1.4, "Flat", "1", "Reversible Defect"),
				sample(53, "Male", "Asymptomatic", 140, 203, "True", "Left Ventricular Hypertrophy", 155, "Yes", 3.1, "Downsloping", "0", "Reversible Defect"),
				sample(57, "Male", "Asymptomatic", 140, 192, "False", "Normal", 148, "No", 0.4, "Flat", "0", "Fixed Defect"),
				sample(56, "Female", "Atypical Angina", 140, 294, "False", "Left Ventricular Hypertrophy", 153, "No", 1.3, "Flat", "0", "Normal"),
				sample(56, "Male", "Non-anginal Pain", 130, 256, "True", "Left Ventricular Hypertrophy", 142, "Yes", 0.6, "Flat", "1", "Fixed Defect"),
				sample(44, "Male", "Atypical Angina", 120, 263, "False", "Normal", 173, "No", 0.0, "Upsloping", "0", "Reversible Defect"),
				sample(52, "Male", "Non-anginal Pain", 172, 199, "True", "Normal", 162, "No", 0.5, "Upsloping", "0", "Reversible Defect"),
				sample(48, "Male", "Atypical Angina", 110, 229, "False", "Normal", 168, "No", 1.0, "Downsloping", "0", "Reversible Defect"),
				sample(54, "Male", "Asymptomatic", 140, 239, "False", "Normal", 160, "No", 1.2, "Upsloping", "0", "Normal"),
				sample(60, "Male", "Asymptomatic", 117, 230, "True", "Normal", 160, "Yes", 1.4, "Upsloping", "2", "Reversible Defect"),
			},
			Labels: []int{0, 1, 1, 0, 0, 0, 1, 0, 1, 1, 0, 0, 1, 0, 0, 1, 0, 1},
		},
	}
}

// HeartTree is a depth-two tree: exercise angina, then the reversible defect flag.
// Encoded indices: 5 numeric columns, then sex(2) cp(4) fbs(2) restecg(3)
// exang(2) slope(3) ca(4) thal(3); exang=Yes is 17, thal=Reversible Defect is 27.
func HeartTree() *ml.Artifact {
	return &ml.Artifact{
		Type:         ml.ModelTypeDecisionTree,
		Version:      1,
		Classes:      []int{0, 1},
		Preprocessor: HeartPreprocessor(),
		Tree: &ml.TreeSpec{Nodes: []ml.TreeNode{
			{FeatureIdx: 17, Threshold: 0.5, LeftChild: 1, RightChild: 4},
			{FeatureIdx: 27, Threshold: 0.5, LeftChild: 2, RightChild: 3},
			{IsLeaf: true, Value: []float64{8, 2}},
			{IsLeaf: true, Value: []float64{3, 3}},
			{IsLeaf: true, Value: []float64{1, 4}},
		}},
	}
}

// WriteArtifact saves a into a temp dir and returns its path.
func WriteArtifact(t testing.TB, a *ml.Artifact) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := a.Save(path); err != nil {
		t.Fatalf("save artifact: %v", err)
	}
	return path
}
