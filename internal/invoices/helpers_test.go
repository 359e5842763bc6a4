package invoices

import "github.com/angelmondragon/kudibooks-backend/pkg/pagination"

func paginationParams(limit int, cursor string) pagination.Params {
	return pagination.Params{Limit: limit, Cursor: cursor}
}
