package repositories

import (
	"strings"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/Masterminds/squirrel"
)

// psql builds Postgres statements with $n placeholders
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// recencyOrder sorts the most recently touched rows first
const recencyOrder = "COALESCE(modified_at, created_at) DESC"

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsFilter matches rows whose column contains value, ignoring case. A blank value
// matches everything and yields nil.
func containsFilter(column, value string) squirrel.Sqlizer {
	needle := strings.ToLower(strings.TrimSpace(value))
	if needle == "" {
		return nil
	}
	return squirrel.ILike{column: "%" + likeEscaper.Replace(needle) + "%"}
}

// where ANDs together the non-nil predicates. List and count queries share it so both
// see the same rows.
func where(preds ...squirrel.Sqlizer) squirrel.And {
	and := squirrel.And{}
	for _, p := range preds {
		if p != nil {
			and = append(and, p)
		}
	}
	return and
}

func applyWhere(b squirrel.SelectBuilder, and squirrel.And) squirrel.SelectBuilder {
	if len(and) == 0 {
		return b
	}
	return b.Where(and)
}

func paginate(b squirrel.SelectBuilder, page models.PageRequest) squirrel.SelectBuilder {
	page = page.Normalize()
	return b.Limit(uint64(page.PageSize)).Offset(page.Offset())
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
