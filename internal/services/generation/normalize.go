package generation

import (
	"context"
	"fmt"
	"net/url"
)

// maxOutputDepth bounds recursion through nested envelopes.
const maxOutputDepth = 8

// URLResolver is a provider file handle whose location is resolved on demand.
// The resolved value is either a URL string or an object carrying an href.
type URLResolver interface {
	URL(ctx context.Context) (any, error)
}

type outputKind int

const (
	kindUnknown  outputKind = iota
	kindString              // "https://..."
	kindSequence            // ["https://...", ...]
	kindResolver            // value exposing URL()
	kindEnvelope            // {"output": ...}
	kindLink                // {"url": ...}
	kindHref                // {"href": "..."} or *url.URL
)

// output is the tagged form of a provider result. Exactly one payload field is
// meaningful for a given kind.
type output struct {
	kind     outputKind
	text     string
	items    []any
	resolver URLResolver
	call     func() (any, error)
	inner    any
}

func classify(v any) output {
	switch t := v.(type) {
	case string:
		return output{kind: kindString, text: t}
	case []any:
		return output{kind: kindSequence, items: t}
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return output{kind: kindSequence, items: items}
	case URLResolver:
		return output{kind: kindResolver, resolver: t}
	case func() string:
		return output{kind: kindResolver, call: func() (any, error) { return t(), nil }}
	case func() (string, error):
		return output{kind: kindResolver, call: func() (any, error) { return t() }}
	case *url.URL:
		if t == nil {
			return output{kind: kindUnknown}
		}
		return output{kind: kindHref, text: t.String()}
	case map[string]any:
		if inner, ok := t["output"]; ok {
			return output{kind: kindEnvelope, inner: inner}
		}
		if link, ok := t["url"]; ok {
			return output{kind: kindLink, inner: link}
		}
		if href, ok := t["href"].(string); ok {
			return output{kind: kindHref, text: href}
		}
	}
	return output{kind: kindUnknown}
}

// Normalize reduces whatever the provider returned to a single image URL.
//
// Precedence: a string is the URL; a sequence yields its first element; a
// resolver is invoked and its result (string or href object) used; an object
// with "output" is unwrapped and normalized again. Anything else, including
// empty strings and empty sequences, is ErrExtraction.
func Normalize(ctx context.Context, result any) (string, error) {
	return normalize(ctx, result, 0)
}

func normalize(ctx context.Context, v any, depth int) (string, error) {
	if depth > maxOutputDepth {
		return "", ErrExtraction
	}

	out := classify(v)
	switch out.kind {
	case kindString, kindHref:
		if out.text == "" {
			return "", ErrExtraction
		}
		return out.text, nil

	case kindSequence:
		if len(out.items) == 0 {
			return "", ErrExtraction
		}
		return normalize(ctx, out.items[0], depth+1)

	case kindResolver:
		resolved, err := out.resolve(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		return normalizeResolved(resolved)

	case kindEnvelope, kindLink:
		return normalize(ctx, out.inner, depth+1)
	}

	return "", ErrExtraction
}

func (o output) resolve(ctx context.Context) (any, error) {
	if o.resolver != nil {
		return o.resolver.URL(ctx)
	}
	return o.call()
}

// normalizeResolved accepts only the two shapes an accessor may produce.
func normalizeResolved(v any) (string, error) {
	out := classify(v)
	if (out.kind == kindString || out.kind == kindHref) && out.text != "" {
		return out.text, nil
	}
	return "", ErrExtraction
}

func describeShape(v any) string {
	switch classify(v).kind {
	case kindString:
		return "string"
	case kindSequence:
		return "sequence"
	case kindResolver:
		return "resolver"
	case kindEnvelope:
		return "envelope"
	case kindLink:
		return "link"
	case kindHref:
		return "href"
	}
	return fmt.Sprintf("%T", v)
}
