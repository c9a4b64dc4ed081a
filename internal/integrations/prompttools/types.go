package prompttools

import (
	"encoding/json"
	"strings"
)

// DataType tells the service how to interpret stored input values.
type DataType string

const (
	DataTypeStrings DataType = "strings"
	DataTypeFiles   DataType = "files"
)

// InputMode selects how a prompt consumes its input objects.
type InputMode string

const (
	// ModeCombineEvents aggregates every input into one reasoning pass.
	ModeCombineEvents InputMode = "combine_events"
	// ModeUseIndividually processes each input on its own.
	ModeUseIndividually InputMode = "use_individually"
)

// ReturnType selects the encoding of a retrieved object.
type ReturnType string

const (
	ReturnJSON       ReturnType = "json"
	ReturnPrettyText ReturnType = "pretty_text"
)

// InputDataRequest is the body of POST /input_data.
type InputDataRequest struct {
	CreatedObjectName string   `json:"created_object_name"`
	DataType          DataType `json:"data_type"`
	InputData         []string `json:"input_data"`
}

// PromptInput names one stored object fed to a prompt.
type PromptInput struct {
	InputObjectName string    `json:"input_object_name"`
	Mode            InputMode `json:"mode"`
}

// ApplyPromptRequest is the body of POST /apply_prompt. Inputs is always
// encoded as an array, never null.
type ApplyPromptRequest struct {
	CreatedObjectNames []string      `json:"created_object_names"`
	PromptString       string        `json:"prompt_string"`
	Inputs             []PromptInput `json:"inputs"`
}

// ReturnDataRequest is the body of POST /return_data.
type ReturnDataRequest struct {
	ObjectName string     `json:"object_name"`
	ReturnType ReturnType `json:"return_type"`
}

// ReturnDataResponse carries the derived value. Value is either a JSON
// string or, for some json returns, the decoded object itself.
type ReturnDataResponse struct {
	Value json.RawMessage `json:"value"`
}

// Text returns Value as plain text: JSON strings are unquoted, anything else
// is returned verbatim.
func (r ReturnDataResponse) Text() string {
	raw := strings.TrimSpace(string(r.Value))
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		return s
	}
	return raw
}

// Credentials is the fixed header set sent with every request.
type Credentials struct {
	Token    string
	AppID    string
	UsageKey string
}

func (c Credentials) validate() error {
	var missing []string
	if strings.TrimSpace(c.Token) == "" {
		missing = append(missing, "token")
	}
	if strings.TrimSpace(c.AppID) == "" {
		missing = append(missing, "app id")
	}
	if strings.TrimSpace(c.UsageKey) == "" {
		missing = append(missing, "usage key")
	}
	if len(missing) > 0 {
		return &MissingCredentialsError{Fields: missing}
	}
	return nil
}

// MissingCredentialsError lists the empty credential fields.
type MissingCredentialsError struct {
	Fields []string
}

func (e *MissingCredentialsError) Error() string {
	return "prompttools: missing credentials: " + strings.Join(e.Fields, ", ")
}
