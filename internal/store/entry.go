package store

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/metricq/internal/ir"
	"github.com/roach88/metricq/internal/query"
)

// Status is the outcome of one resolution.
type Status string

const (
	// StatusResolved means a query spec was produced.
	StatusResolved Status = "resolved"
	// StatusFailed means resolution reported issues.
	StatusFailed Status = "failed"
	// StatusError means the request could not be parsed.
	StatusError Status = "error"
)

// IssueRecord is one rendered issue: the input it belongs to and its
// message.
type IssueRecord struct {
	Input   string `json:"input"`
	Message string `json:"message"`
}

// Entry is one row of the history.
type Entry struct {
	ID    string
	RunID string
	Seq   int64
	// Request as given. RequestText is its one-line rendering.
	Request     query.Request
	RequestText string
	RequestHash string
	Status      Status
	// Fingerprint and Spec are set only for resolved queries. Spec is the
	// canonical JSON the fingerprint was computed from.
	Fingerprint string
	Spec        string
	Issues      []IssueRecord
}

// NewEntry builds the history entry for one resolution. resolveErr is the
// error returned by the parser, if any, in which case res is ignored.
func NewEntry(runID string, seq int64, req query.Request, res query.Resolution, resolveErr error) (Entry, error) {
	requestHash, err := ir.FingerprintRequest(req)
	if err != nil {
		return Entry{}, fmt.Errorf("new entry: %w", err)
	}
	e := Entry{
		ID:          uuid.Must(uuid.NewV7()).String(),
		RunID:       runID,
		Seq:         seq,
		Request:     req,
		RequestText: req.String(),
		RequestHash: requestHash,
		Issues:      []IssueRecord{},
	}

	switch {
	case resolveErr != nil:
		e.Status = StatusError
		e.Issues = append(e.Issues, IssueRecord{Input: e.RequestText, Message: resolveErr.Error()})
	case res.HasErrors() || res.QuerySpec == nil:
		e.Status = StatusFailed
		e.Issues = IssueRecords(res)
	default:
		e.Status = StatusResolved
		obj, err := ir.QuerySpecValue(res.QuerySpec)
		if err != nil {
			return Entry{}, fmt.Errorf("new entry: %w", err)
		}
		spec, err := ir.MarshalCanonical(obj)
		if err != nil {
			return Entry{}, fmt.Errorf("new entry: %w", err)
		}
		e.Spec = string(spec)
		if e.Fingerprint, err = ir.Hash(ir.DomainQuerySpec, obj); err != nil {
			return Entry{}, fmt.Errorf("new entry: %w", err)
		}
	}
	return e, nil
}

// IssueRecords renders the error issues of res in mapping order.
func IssueRecords(res query.Resolution) []IssueRecord {
	out := []IssueRecord{}
	for _, item := range res.Issues.Items() {
		for _, issue := range item.Issues.Errors() {
			out = append(out, IssueRecord{Input: item.Input.UIDescription(), Message: issue.UIDescription(item.Input)})
		}
	}
	return out
}

func marshalIssues(issues []IssueRecord) (string, error) {
	if issues == nil {
		issues = []IssueRecord{}
	}
	data, err := json.Marshal(issues)
	if err != nil {
		return "", fmt.Errorf("marshal issues: %w", err)
	}
	return string(data), nil
}

func unmarshalIssues(data string) ([]IssueRecord, error) {
	issues := []IssueRecord{}
	if err := json.Unmarshal([]byte(data), &issues); err != nil {
		return nil, fmt.Errorf("unmarshal issues: %w", err)
	}
	return issues, nil
}

func marshalRequest(req query.Request) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	return string(data), nil
}

func unmarshalRequest(data string) (query.Request, error) {
	var req query.Request
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		return query.Request{}, fmt.Errorf("unmarshal request: %w", err)
	}
	return req, nil
}
