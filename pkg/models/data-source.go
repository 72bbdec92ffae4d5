package models

// Where a BookRecord's title came from.
const (
	DataSourceEPUBMetadata = "epub_metadata"
	DataSourceFilepath     = "filepath"
)
