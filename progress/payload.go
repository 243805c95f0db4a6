package progress

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/pithecene-io/docqa/types"
)

// Kind is the shape an event is interpreted as.
type Kind int

// Kinds in dispatch priority order. A payload can satisfy several shapes
// (for example a "complete" event that also carries "percent"); the first
// matching kind in this order wins.
const (
	KindUnknown Kind = iota
	KindCompletion
	KindError
	KindProgress
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindCompletion:
		return "completion"
	case KindError:
		return "error"
	case KindProgress:
		return "progress"
	default:
		return "unknown"
	}
}

// fields maps top-level payload keys to their raw values.
// A payload that is not a JSON object has no fields.
type fields map[string]json.RawMessage

func topLevelFields(payload json.RawMessage) fields {
	var f fields
	if err := json.Unmarshal(payload, &f); err != nil {
		return fields{}
	}
	return f
}

// truthy reports whether key holds a value other than null, false, "" or 0.
func (f fields) truthy(key string) bool {
	raw, ok := f[key]
	if !ok {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	default:
		return true
	}
}

// isNumber reports whether key holds a JSON number.
func (f fields) isNumber(key string) bool {
	raw, ok := f[key]
	if !ok || len(raw) == 0 {
		return false
	}
	c := raw[0]
	return c == '-' || (c >= '0' && c <= '9')
}

// classify returns how ev is interpreted:
//  1. completion: name "complete", or a truthy document_id field
//  2. error: name "error"
//  3. progress: a numeric percent field
//  4. unknown otherwise
func classify(ev types.StreamEvent, f fields) Kind {
	switch {
	case ev.Name == types.EventNameComplete || f.truthy(types.FieldDocumentID):
		return KindCompletion
	case ev.Name == types.EventNameError:
		return KindError
	case f.isNumber(types.FieldPercent):
		return KindProgress
	default:
		return KindUnknown
	}
}

type completionPayload struct {
	Filename   string `json:"filename"`
	FileSize   int64  `json:"file_size"`
	PageCount  int    `json:"page_count"`
	ChunkCount int    `json:"chunk_count"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type progressPayload struct {
	Stage   types.Stage `json:"stage"`
	Percent float64     `json:"percent"`
	Message string      `json:"message"`
}

// decodeLenient unmarshals payload into v. Fields with the wrong JSON type
// stay at their zero value while the rest still decode.
func decodeLenient(payload json.RawMessage, v any) {
	_ = json.Unmarshal(payload, v)
}

func decodeDocument(payload json.RawMessage, f fields) types.DocumentMetadata {
	var p completionPayload
	decodeLenient(payload, &p)
	return types.DocumentMetadata{
		ID:         documentID(f[types.FieldDocumentID]),
		Filename:   p.Filename,
		FileSize:   p.FileSize,
		PageCount:  p.PageCount,
		ChunkCount: p.ChunkCount,
	}
}

// documentID renders the document_id value as a string. Strings are
// unquoted; other JSON values keep their literal text.
func documentID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func decodeErrorMessage(payload json.RawMessage) string {
	var p errorPayload
	decodeLenient(payload, &p)
	return p.Message
}

func decodeProgress(payload json.RawMessage, prev types.ProgressState) types.ProgressState {
	var p progressPayload
	decodeLenient(payload, &p)

	next := types.ProgressState{
		Stage:   prev.Stage,
		Percent: clampPercent(p.Percent),
		Message: p.Message,
	}
	if p.Stage.IsValid() {
		next.Stage = p.Stage
	}
	return next
}

func clampPercent(v float64) int {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 100:
		return 100
	default:
		return int(math.Round(v))
	}
}
