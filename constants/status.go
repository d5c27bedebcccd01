package constants

// JobStatus is the canonical status for rows in label_job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"  // accepted by the queue
	JobStatusRunning JobStatus = "RUNNING" // text recognition in progress
	JobStatusParsed  JobStatus = "PARSED"  // nutrition parsed and product stored
	JobStatusFailed  JobStatus = "FAILED"  // terminal failure
)

// Source tags for FoodProduct records.
const (
	SourceUserUpload    = "user_upload"
	SourceOpenFoodFacts = "open_food_facts"
	SourceCatalog       = "catalog"
	SourceImport        = "import"
)
