package ingest

import "fmt"

var (
	// ErrMissingSchemaSheet means the workbook carries no "Schema Query"
	// tab and therefore is not an IoT sensor export.
	ErrMissingSchemaSheet = fmt.Errorf(`workbook has no "Schema Query" sheet`)

	// ErrEmptyData means no usable data rows remained after filtering.
	ErrEmptyData = fmt.Errorf("no rows with activity in the sheet")
)
