// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"

	"github.com/jeranaias/promptforge/internal/client"
)

// JSONExporter exports prompts as the indented API representation.
// Options are ignored so the output can be fed back to the API.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts prompts to JSON.
func (e *JSONExporter) Export(prompts []client.Prompt) ([]byte, error) {
	if len(prompts) == 0 {
		return nil, ErrNothingToExport
	}
	out, err := json.MarshalIndent(prompts, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
