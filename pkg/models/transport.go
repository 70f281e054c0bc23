package models

// AnalyzeRequest asks for analysis of a remote image.
type AnalyzeRequest struct {
	URL string `json:"url" binding:"required"`
}

// TrainRequest adds labelled remote images to the corpus.
type TrainRequest struct {
	URLs  []string `json:"urls" binding:"required,min=1"`
	Label string   `json:"label" binding:"required"`
}

// TrainingSampleRequest queues one remote image in training mode.
type TrainingSampleRequest struct {
	URL   string `json:"url" binding:"required"`
	Label string `json:"label" binding:"required"`
}

// SnapshotRequest saves the live model.
type SnapshotRequest struct {
	Note string `json:"note"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// HealthResponse reports liveness and model state.
type HealthResponse struct {
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	AIImagesCount   int    `json:"aiImagesCount"`
	RealImagesCount int    `json:"realImagesCount"`
	TrainingActive  bool   `json:"trainingActive"`
}
