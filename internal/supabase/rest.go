package supabase

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const singleObject = "application/vnd.pgrst.object+json"

// query accumulates PostgREST query parameters.
type query struct {
	values url.Values
}

func newQuery() *query {
	return &query{values: url.Values{}}
}

func (q *query) Select(columns string) *query {
	q.values.Set("select", columns)
	return q
}

// Order appends an ordering term; call repeatedly for tie breakers.
func (q *query) Order(column string, ascending bool) *query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	term := column + "." + dir
	if prev := q.values.Get("order"); prev != "" {
		term = prev + "," + term
	}
	q.values.Set("order", term)
	return q
}

func (q *query) Eq(column, value string) *query {
	q.values.Set(column, "eq."+value)
	return q
}

func (q *query) Limit(n int) *query {
	q.values.Set("limit", strconv.Itoa(n))
	return q
}

func tablePath(table string) string {
	return restPath + table
}

// representation asks PostgREST to echo the affected row as a single object.
func representation() http.Header {
	h := http.Header{}
	h.Set("Prefer", "return=representation")
	h.Set("Accept", singleObject)
	return h
}

// stamped merges updated_at into an encoded patch.
func stamped(patch any, now time.Time) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	ts, err := json.Marshal(now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}
	fields["updated_at"] = ts
	return fields, nil
}
