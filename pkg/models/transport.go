package models

// ConvertRequest asks the service to fetch, enhance and re-encode an image
type ConvertRequest struct {
	ImageURL string `json:"image_url"`
	Format   string `json:"format,omitempty"`
	Quality  int    `json:"quality,omitempty"`
}

// AnalyzeRequest asks for quality metrics only
type AnalyzeRequest struct {
	ImageURL string `json:"image_url"`
}

// ConvertResponse is returned by a successful conversion
type ConvertResponse struct {
	Success             bool           `json:"success"`
	ID                  string         `json:"id"`
	Filename            string         `json:"filename"`
	SizeBytes           int            `json:"size_bytes"`
	Format              string         `json:"format"`
	MIMEType            string         `json:"mime_type"`
	Preview             string         `json:"preview"`
	PreviewMIMEType     string         `json:"preview_mime"`
	EnhancementsApplied string         `json:"enhancements_applied"`
	AppliedLabels       []string       `json:"applied_labels"`
	Analysis            QualityMetrics `json:"analysis"`
	Issues              []QualityIssue `json:"issues"`
}

// AnalyzeResponse is returned by a metrics-only request
type AnalyzeResponse struct {
	Success  bool           `json:"success"`
	ImageURL string         `json:"image_url"`
	Width    int            `json:"width"`
	Height   int            `json:"height"`
	Analysis QualityMetrics `json:"analysis"`
	Issues   []QualityIssue `json:"issues"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
