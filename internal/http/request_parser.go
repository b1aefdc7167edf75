package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"splitkasse/internal/core"
)

// maxBodyBytes caps request bodies; the largest payload is a calculate
// request with a month's worth of items.
const maxBodyBytes = 256 << 10

// requestError is a malformed request, always answered with 400.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// decodeJSON reads a single JSON object into dst. Unknown fields are
// rejected so typos in field names do not silently drop values.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var amountErr *amountError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &amountErr):
			return amountErr.err
		case errors.As(err, &maxErr):
			return badRequest("request body too large")
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		default:
			return badRequest("invalid JSON: %v", err)
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

// queryBool treats "1", "true" and "yes" as true.
func queryBool(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key))) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// queryLimit returns the "limit" query value clamped to [1, max], or def
// when absent.
func queryLimit(r *http.Request, def, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, badRequest("invalid limit %q", raw)
	}
	return min(n, max), nil
}

// Amount is a non-negative money value accepted as a JSON number or as a
// string with a dot or comma decimal separator ("12,50").
type Amount core.Money

// SignedAmount is Amount for balances, which may be negative.
type SignedAmount core.Money

type amountError struct {
	err error
}

func (e *amountError) Error() string { return e.err.Error() }

func (a *Amount) UnmarshalJSON(data []byte) error {
	v, err := unmarshalMoney(data, core.ParseAmount)
	if err != nil {
		return err
	}
	*a = Amount(v)
	return nil
}

func (a *SignedAmount) UnmarshalJSON(data []byte) error {
	v, err := unmarshalMoney(data, core.ParseSignedAmount)
	if err != nil {
		return err
	}
	*a = SignedAmount(v)
	return nil
}

func unmarshalMoney(data []byte, parse func(string) (core.Money, error)) (core.Money, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return 0, &amountError{err: core.ErrInvalidAmount}
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, &amountError{err: core.ErrInvalidAmount}
		}
		raw = s
	}
	v, err := parse(raw)
	if err != nil {
		return 0, &amountError{err: err}
	}
	return v, nil
}

// sanitizeInput trims and strips control characters except tab and newlines.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

// parseRole maps an optional creator role, defaulting to "me".
func parseRole(s string) (core.PersonRole, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return core.RoleMe, nil
	}
	role := core.PersonRole(s)
	if err := role.Validate(); err != nil {
		return "", err
	}
	return role, nil
}
