package cache

import "strconv"

const (
	listKeyPrefix = "mural:list:v2:"
	// bumped on every write; listings are keyed by the value read before the query
	listGenKey = "mural:list:gen"
)

// BuildMuralListKey names the cached board for one department filter at one
// list generation. A listing computed before a write lands under the old
// generation, where no reader looks any more.
func BuildMuralListKey(gen uint64, departmentID *int64) string {
	dept := "all"
	if departmentID != nil {
		dept = strconv.FormatInt(*departmentID, 10)
	}

	return listKeyPrefix + "gen=" + strconv.FormatUint(gen, 10) + ":dept=" + dept
}
