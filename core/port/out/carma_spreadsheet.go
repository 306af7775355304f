package out

import (
	"context"

	"carma_server/core/domain"
)

// SpreadsheetSource reads procurement log workbooks from a directory.
// skipped carries one error per file that could not be parsed.
type SpreadsheetSource interface {
	ReadAll(ctx context.Context, dir string, maxRows int) (sheets []domain.Spreadsheet, skipped []error, err error)
}
