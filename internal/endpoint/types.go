// Package endpoint defines the data model shared by the scanners and the
// index: endpoint descriptors, index entries, and the path normalizer that
// makes frontend and backend route templates comparable.
package endpoint

// Location identifies a source position. Line is 1-based; Column and
// EndColumn are 0-based, matching the coordinate system of the source text.
type Location struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line"`
	EndColumn int    `json:"end_column"`
}

// Descriptor is the raw output of a scanner: one endpoint occurrence as
// found in source text. Descriptors are transient; the index does not
// retain them after a rebuild.
type Descriptor struct {
	RawPath  string
	Method   string
	Params   []string
	Location Location
}

// Status classifies an index entry.
type Status string

const (
	// StatusValid means exactly one backend definition with no parameter conflicts.
	StatusValid Status = "valid"
	// StatusInvalid means more than one backend definition shares the key.
	StatusInvalid Status = "invalid"
	// StatusUnresolved means frontend calls exist but no backend definition was found.
	StatusUnresolved Status = "unresolved"
	// StatusParamMismatch means frontend and backend parameter names disagree by position.
	StatusParamMismatch Status = "param-mismatch"
)

// BackendDefinition records one backend route declaration.
type BackendDefinition struct {
	Location    Location `json:"location"`
	HTTPMethod  string   `json:"http_method"`
	RawEndpoint string   `json:"raw_endpoint"`
}

// FrontendCall records one frontend call site that targets an endpoint.
type FrontendCall struct {
	Location    Location `json:"location"`
	Params      []string `json:"params,omitempty"`
	RawEndpoint string   `json:"raw_endpoint"`
	HTTPMethod  string   `json:"http_method"`
}

// ParamMismatch records a positional disagreement between frontend and
// backend parameter names. Position is 1-based.
type ParamMismatch struct {
	Position      int    `json:"position"`
	FrontendParam string `json:"frontend_param"`
	BackendParam  string `json:"backend_param"`
}

// Entry is the durable index record for one (path, method) slot.
type Entry struct {
	// Endpoint is the canonical display path with parameters in {name} form,
	// taken from the backend definition when one exists.
	Endpoint           string              `json:"endpoint"`
	HTTPMethod         string              `json:"http_method"`
	BackendDefinitions []BackendDefinition `json:"backend_definitions,omitempty"`
	BackendParams      []string            `json:"backend_params,omitempty"`
	Frontends          []FrontendCall      `json:"frontends,omitempty"`
	Status             Status              `json:"status"`
	ParamMismatches    []ParamMismatch     `json:"param_mismatches,omitempty"`
	ErrorMessage       string              `json:"error_message,omitempty"`
}

// MissingParam is the placeholder reported when one side has no parameter
// at a compared position.
const MissingParam = "(missing)"

// MatchParams compares two ordered parameter name lists position by
// position up to the longer list's length. Comparison is case-sensitive
// name equality only; a record is emitted for every differing position.
func MatchParams(frontend, backend []string) []ParamMismatch {
	n := len(frontend)
	if len(backend) > n {
		n = len(backend)
	}

	var mismatches []ParamMismatch
	for i := 0; i < n; i++ {
		fp := MissingParam
		bp := MissingParam
		if i < len(frontend) {
			fp = frontend[i]
		}
		if i < len(backend) {
			bp = backend[i]
		}
		if fp != bp {
			mismatches = append(mismatches, ParamMismatch{
				Position:      i + 1,
				FrontendParam: fp,
				BackendParam:  bp,
			})
		}
	}
	return mismatches
}
