package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxJSONBody caps request bodies read by DecodeJSON.
const MaxJSONBody = 1 << 20

var (
	ErrEmptyBody    = errors.New("request body is empty")
	ErrTrailingData = errors.New("request body must hold a single JSON value")
	ErrBodyTooLarge = errors.New("request body too large")
)

// DecodeJSON strictly decodes one JSON value into dst. Unknown fields are
// rejected.
func DecodeJSON(r io.Reader, dst interface{}) error {
	limited := &io.LimitedReader{R: r, N: MaxJSONBody + 1}
	dec := json.NewDecoder(limited)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	switch {
	case errors.Is(err, io.EOF):
		return ErrEmptyBody
	case limited.N <= 0:
		return ErrBodyTooLarge
	case err != nil:
		return err
	}
	if dec.More() {
		return ErrTrailingData
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}

// ValidationDetails maps each failing field to the rule it broke.
func ValidationDetails(errs validator.ValidationErrors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}

// PositiveInt reads a strictly positive integer query parameter. An absent or
// blank value yields def.
func PositiveInt(values url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

// ParsePage reads the page and limit parameters. limit is clamped to maxLimit.
func ParsePage(values url.Values, defaultLimit, maxLimit int) (page, limit int, err error) {
	if page, err = PositiveInt(values, "page", 1); err != nil {
		return 0, 0, err
	}
	if limit, err = PositiveInt(values, "limit", defaultLimit); err != nil {
		return 0, 0, err
	}
	return page, min(limit, maxLimit), nil
}

// BearerToken returns the credential of an "Authorization: Bearer" header, or
// "" when the scheme is anything else.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
