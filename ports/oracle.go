package ports

// Oracle is an externally trained model consumed by the emulation. Feature
// order is part of the model contract.
type Oracle interface {
	Features() []string
}

// Regressor predicts one value per feature row
type Regressor interface {
	Oracle
	Predict(X [][]float64) ([]float64, error)
}

// Classifier predicts class probabilities per feature row
type Classifier interface {
	Oracle
	PredictProba(X [][]float64) ([][]float64, error)
}
