package main

import (
	"encoding/json"
	"io"
)

// VisitResult is printed by visit.
type VisitResult struct {
	URL        string `json:"url"`
	UserAgent  string `json:"userAgent"`
	Screenshot string `json:"screenshot,omitempty"`
}

// ExistsResult is printed by exists.
type ExistsResult struct {
	URL      string `json:"url"`
	Label    string `json:"label"`
	Selector string `json:"selector"`
	Exists   bool   `json:"exists"`
	Visible  bool   `json:"visible"`
}

// FillResult is printed by fill. Value is the input's value after typing.
type FillResult struct {
	URL      string `json:"url"`
	Label    string `json:"label"`
	Selector string `json:"selector"`
	Value    string `json:"value"`
}

// UserAgentResult is printed by user-agent.
type UserAgentResult struct {
	UserAgent string `json:"userAgent"`
}

// ArgsResult is printed by args.
type ArgsResult struct {
	Headless string   `json:"headless"`
	Command  []string `json:"command"`
}

func outputResult(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
