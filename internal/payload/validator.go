// Package payload turns a raw render request body into a Request, enforcing
// the body and template size limits before anything expensive happens.
package payload

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"velocity-playground/internal/common/errors"
)

const (
	msgBodyTooLarge     = "request entity too large"
	msgInvalidJSON      = "Request body must be valid JSON."
	msgTooDeep          = "Request body is nested too deeply."
	msgTemplateRequired = "Template is required."
)

// Request is a validated render request.
type Request struct {
	Template string
	// Context is the decoded context value. It is an empty *Object when the
	// body had none, and may be any JSON value otherwise.
	Context any
	// Options is never nil; non-object options are replaced by an empty one.
	Options *Object
}

// Validator checks render request bodies against the configured limits.
type Validator struct {
	maxBytes         int64
	maxTemplateChars int
}

// NewValidator creates a validator for bodies up to maxBytes and templates
// up to maxTemplateChars characters.
func NewValidator(maxBytes int64, maxTemplateChars int) *Validator {
	return &Validator{maxBytes: maxBytes, maxTemplateChars: maxTemplateChars}
}

// MaxBytes returns the body size limit.
func (v *Validator) MaxBytes() int64 { return v.maxBytes }

// MaxTemplateChars returns the template length limit.
func (v *Validator) MaxTemplateChars() int { return v.maxTemplateChars }

// ReadBody reads at most maxBytes from r. A longer body is rejected without
// reading the rest of it.
func (v *Validator) ReadBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.ContentLength > v.maxBytes {
		return nil, errors.PayloadTooLargeError(msgBodyTooLarge).
			WithContext("content_length", r.ContentLength)
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, v.maxBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return nil, errors.PayloadTooLargeError(msgBodyTooLarge).
				WithContext("limit", maxErr.Limit)
		}
		return nil, errors.ValidationError("failed to read request body").WithContext("cause", err.Error())
	}
	return body, nil
}

// Validate applies the request rules in order: body size, JSON shape,
// template presence, template length, then context and options defaults.
func (v *Validator) Validate(body []byte) (*Request, error) {
	if int64(len(body)) > v.maxBytes {
		return nil, errors.PayloadTooLargeError(msgBodyTooLarge)
	}

	root := orderedmap.New[string, any]()
	if strings.TrimSpace(string(body)) != "" {
		decoded, err := Decode(body)
		if stderrors.Is(err, ErrNestingTooDeep) {
			return nil, errors.ValidationError(msgTooDeep).WithContext("max_nesting", MaxNesting)
		}
		if err != nil {
			return nil, errors.ValidationError(msgInvalidJSON).WithContext("cause", err.Error())
		}
		// a body that is not an object carries no fields
		if obj, ok := decoded.(*Object); ok {
			root = obj
		}
	}

	raw, _ := root.Get("template")
	template, ok := raw.(string)
	if !ok || strings.TrimSpace(template) == "" {
		return nil, errors.ValidationError(msgTemplateRequired)
	}

	if n := TemplateLength(template); n > v.maxTemplateChars {
		return nil, errors.PayloadTooLargeError(fmt.Sprintf("Template exceeds %d characters.", v.maxTemplateChars)).
			WithContext("length", n)
	}

	req := &Request{Template: template, Context: orderedmap.New[string, any](), Options: orderedmap.New[string, any]()}

	if ctx, present := root.Get("context"); present {
		req.Context = ctx
	}
	if opts, present := root.Get("options"); present {
		if obj, ok := opts.(*Object); ok {
			req.Options = obj
		}
	}

	return req, nil
}

// TemplateLength counts characters the way the editor does: in UTF-16 code
// units, so characters outside the Basic Multilingual Plane count twice.
func TemplateLength(s string) int {
	n := 0
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
