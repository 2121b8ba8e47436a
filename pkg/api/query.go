package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	json "github.com/json-iterator/go"
	"github.com/socialhub/socialhub-cli/pkg/client"
	"github.com/socialhub/socialhub-cli/pkg/logger"
)

const restPrefix = "/rest/v1/"

// Query builds a request against one remote table using the REST dialect
// of the backend: filters are `column=op.value` query parameters and
// behaviour switches travel in the Prefer header.
type Query struct {
	table  string
	params url.Values
	prefer []string
	single bool
}

// From starts a query on a table
func From(table string) *Query {
	return &Query{table: table, params: url.Values{}}
}

// Select sets the returned columns, including embedded relations such as
// "*,author:profiles(*)"
func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

func (q *Query) filter(column, op, value string) *Query {
	q.params.Add(column, op+"."+value)
	return q
}

// Eq filters column = value
func (q *Query) Eq(column, value string) *Query { return q.filter(column, "eq", value) }

// Neq filters column <> value
func (q *Query) Neq(column, value string) *Query { return q.filter(column, "neq", value) }

// Gt filters column > value
func (q *Query) Gt(column, value string) *Query { return q.filter(column, "gt", value) }

// Gte filters column >= value
func (q *Query) Gte(column, value string) *Query { return q.filter(column, "gte", value) }

// Lt filters column < value
func (q *Query) Lt(column, value string) *Query { return q.filter(column, "lt", value) }

// Lte filters column <= value
func (q *Query) Lte(column, value string) *Query { return q.filter(column, "lte", value) }

// ILike filters with a case-insensitive pattern; use * as the wildcard
func (q *Query) ILike(column, pattern string) *Query { return q.filter(column, "ilike", pattern) }

// Is filters on null, true or false
func (q *Query) Is(column, value string) *Query { return q.filter(column, "is", value) }

// In filters column against a set of values
func (q *Query) In(column string, values ...string) *Query {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quoteValue(v)
	}
	return q.filter(column, "in", "("+strings.Join(quoted, ",")+")")
}

// Or adds a disjunction such as "user_id.eq.a,friend_id.eq.a"
func (q *Query) Or(expr string) *Query {
	q.params.Add("or", "("+expr+")")
	return q
}

// Order appends an ordering term; repeated calls add tie-breakers
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	term := column + "." + dir
	if existing := q.params.Get("order"); existing != "" {
		term = existing + "," + term
	}
	q.params.Set("order", term)
	return q
}

// Limit caps the number of rows
func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

// Offset skips rows
func (q *Query) Offset(n int) *Query {
	q.params.Set("offset", strconv.Itoa(n))
	return q
}

// Page applies 1-based pagination
func (q *Query) Page(page, pageSize int) *Query {
	if page < 1 {
		page = 1
	}
	return q.Limit(pageSize).Offset((page - 1) * pageSize)
}

// Count asks for the exact total row count alongside the rows
func (q *Query) Count() *Query {
	q.prefer = append(q.prefer, "count=exact")
	return q
}

// Single expects exactly one row and decodes it as an object
func (q *Query) Single() *Query {
	q.single = true
	return q
}

// OnConflict names the unique columns an upsert merges on
func (q *Query) OnConflict(columns string) *Query {
	q.params.Set("on_conflict", columns)
	return q
}

// Params returns the encoded query string, mostly for logging and tests
func (q *Query) Params() url.Values {
	return q.params
}

func (q *Query) path() string {
	return restPrefix + q.table
}

func (q *Query) request(ctx context.Context, prefer ...string) *resty.Request {
	req := client.GetClient().R().
		SetContext(ctx).
		SetQueryParamsFromValues(q.params)

	all := append(append([]string{}, q.prefer...), prefer...)
	if len(all) > 0 {
		req.SetHeader("Prefer", strings.Join(all, ","))
	}
	if q.single {
		req.SetHeader("Accept", "application/vnd.pgrst.object+json")
	}
	return req
}

func (q *Query) withBody(req *resty.Request, body interface{}) (*resty.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s row: %w", q.table, err)
	}
	return req.SetHeader("Content-Type", "application/json").SetBody(data), nil
}

func decodeInto(resp *resty.Response, out interface{}) error {
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Body(), out)
}

func returnPreference(out interface{}) string {
	if out == nil {
		return "return=minimal"
	}
	return "return=representation"
}

// Get selects rows into out and returns the total count when Count was
// requested, or -1 when the backend did not report one
func (q *Query) Get(ctx context.Context, out interface{}) (int, error) {
	logger.Debug("Select", "table", q.table, "params", q.params.Encode())

	resp, err := client.Send(q.request(ctx), http.MethodGet, q.path())
	if err := CheckResponse(resp, err); err != nil {
		return 0, err
	}
	if err := decodeInto(resp, out); err != nil {
		return 0, fmt.Errorf("failed to decode %s: %w", q.table, err)
	}
	return ParseContentRange(resp.Header().Get("Content-Range")), nil
}

// CountRows returns the exact row count matching the filters without rows
func (q *Query) CountRows(ctx context.Context) (int, error) {
	logger.Debug("Count", "table", q.table)

	req := q.request(ctx, "count=exact")
	resp, err := client.Send(req, http.MethodHead, q.path())
	if err := CheckResponse(resp, err); err != nil {
		return 0, err
	}
	total := ParseContentRange(resp.Header().Get("Content-Range"))
	if total < 0 {
		return 0, fmt.Errorf("backend did not report a count for %s", q.table)
	}
	return total, nil
}

// Insert adds one row or a slice of rows; out receives the stored rows
func (q *Query) Insert(ctx context.Context, rows interface{}, out interface{}) error {
	logger.Debug("Insert", "table", q.table)

	req, err := q.withBody(q.request(ctx, returnPreference(out)), rows)
	if err != nil {
		return err
	}
	resp, err := client.Send(req, http.MethodPost, q.path())
	if err := CheckResponse(resp, err); err != nil {
		return err
	}
	return decodeInto(resp, out)
}

// Upsert inserts or merges rows on the OnConflict columns
func (q *Query) Upsert(ctx context.Context, rows interface{}, out interface{}) error {
	logger.Debug("Upsert", "table", q.table)

	req, err := q.withBody(q.request(ctx, "resolution=merge-duplicates", returnPreference(out)), rows)
	if err != nil {
		return err
	}
	resp, err := client.Send(req, http.MethodPost, q.path())
	if err := CheckResponse(resp, err); err != nil {
		return err
	}
	return decodeInto(resp, out)
}

// Update patches every row matching the filters
func (q *Query) Update(ctx context.Context, patch interface{}, out interface{}) error {
	logger.Debug("Update", "table", q.table, "params", q.params.Encode())

	req, err := q.withBody(q.request(ctx, returnPreference(out)), patch)
	if err != nil {
		return err
	}
	resp, err := client.Send(req, http.MethodPatch, q.path())
	if err := CheckResponse(resp, err); err != nil {
		return err
	}
	return decodeInto(resp, out)
}

// Delete removes every row matching the filters
func (q *Query) Delete(ctx context.Context) error {
	logger.Debug("Delete", "table", q.table, "params", q.params.Encode())

	resp, err := client.Send(q.request(ctx), http.MethodDelete, q.path())
	return CheckResponse(resp, err)
}

// RPC calls a remote database function
func RPC(ctx context.Context, fn string, args interface{}, out interface{}) error {
	logger.Debug("RPC", "function", fn)

	data, err := json.Marshal(args)
	if err != nil {
		return err
	}
	req := client.GetClient().R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(data)

	resp, err := client.Send(req, http.MethodPost, restPrefix+"rpc/"+fn)
	if err := CheckResponse(resp, err); err != nil {
		return err
	}
	return decodeInto(resp, out)
}

// ParseContentRange extracts the total from "0-24/3573" or "*/0".
// It returns -1 when the total is unknown.
func ParseContentRange(header string) int {
	idx := strings.LastIndex(header, "/")
	if idx < 0 || idx == len(header)-1 {
		return -1
	}
	total := header[idx+1:]
	if total == "*" {
		return -1
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return -1
	}
	return n
}

// quoteValue wraps values containing reserved characters in double quotes
func quoteValue(v string) string {
	if !strings.ContainsAny(v, ",.:()\" \\") {
		return v
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v)
	return `"` + escaped + `"`
}
