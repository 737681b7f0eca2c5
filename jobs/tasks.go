package jobs

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskProcurementReindex reloads the procurement dataset and invalidates cached listings.
	TaskProcurementReindex = "procurement:reindex"
)
