package httpx

import (
	"net/http"
	"strconv"
)

const (
	defaultGrievanceListLimit = 50
	maxGrievanceListLimit     = 200
)

// listPage reads limit and offset from the query. Unparsable values fall back
// to the defaults; limit is clamped to [1, maxGrievanceListLimit] and offset
// to >= 0.
func listPage(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit = queryInt(q.Get("limit"), defaultGrievanceListLimit)
	offset = max(queryInt(q.Get("offset"), 0), 0)
	return min(max(limit, 1), maxGrievanceListLimit), offset
}

func queryInt(raw string, def int) int {
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return def
}
