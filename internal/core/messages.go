// Package core error messages.
//
// # Error Codes Reference
//
// User-facing error messages carry codes for support reference. Codes are
// grouped by category:
//
//	FILE001 - Unsupported format: extension is not csv, xlsx, or xls
//	FILE002 - Invalid CSV: delimited text failed to parse
//	FILE003 - File too large: upload exceeds the configured limit
//	FILE004 - No file: no file was provided with the upload
//	GEO001  - Malformed GeoJSON: parse failure or missing features array
//	GEO002  - Invalid geometry: a Point feature lacks two coordinates
//	TBL001  - No table: the operation needs a table upload first
//	TBL002  - Unknown column: referenced column key does not exist
//	TBL003  - No identifier column selected
//	REC001  - Record not found for the given identifier
//	STY001  - Style value out of range
//	UPL001  - Superseded: a newer upload replaced this one
//	MAP001  - No valid geometry for camera fit (warning)
//	MAP002  - Map widget not ready, operation buffered (warning)
//	RATE001 - Too many requests
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage is a user-friendly error with an action suggestion and a
// support code.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// MapError converts a technical error to a user-friendly message. Typed
// errors from this package map directly; everything else falls back to
// case-insensitive pattern matching, then to the generic ERR000 message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		formatErr   *UnsupportedFormatError
		geoErr      *MalformedGeoJSONError
		geometryErr *InvalidGeometryError
		columnErr   *UnknownColumnError
		recordErr   *RecordNotFoundError
		styleErr    *StyleRangeError
	)

	switch {
	case errors.As(err, &formatErr):
		return UserMessage{
			Message: fmt.Sprintf("File format %q is not supported", formatErr.Ext),
			Action:  "Upload a .csv, .xlsx, or .xls file",
			Code:    "FILE001",
		}
	case errors.As(err, &geoErr):
		return UserMessage{
			Message: "The file is not a valid GeoJSON FeatureCollection",
			Action:  "Check that the file contains a FeatureCollection with a features array",
			Code:    "GEO001",
		}
	case errors.As(err, &geometryErr):
		return UserMessage{
			Message: "A Point feature has incomplete coordinates",
			Action:  "Every Point needs [longitude, latitude] coordinates",
			Code:    "GEO002",
		}
	case errors.Is(err, ErrNoTable):
		return UserMessage{
			Message: "No table has been uploaded yet",
			Action:  "Upload a spreadsheet first",
			Code:    "TBL001",
		}
	case errors.As(err, &columnErr):
		return UserMessage{
			Message: fmt.Sprintf("Column %q does not exist in the table", columnErr.Key),
			Action:  "Pick one of the table's columns",
			Code:    "TBL002",
		}
	case errors.Is(err, ErrNoIDColumn):
		return UserMessage{
			Message: "No identifier column has been selected",
			Action:  "Select the identifier column before linking or placing records",
			Code:    "TBL003",
		}
	case errors.As(err, &recordErr):
		return UserMessage{
			Message: fmt.Sprintf("No record matches identifier %q", recordErr.ID),
			Action:  "Check the identifier value and try again",
			Code:    "REC001",
		}
	case errors.As(err, &styleErr):
		return UserMessage{
			Message: "A style value is out of range",
			Action:  "Widths and sizes must be >= 0, opacity between 0 and 1",
			Code:    "STY001",
		}
	case errors.Is(err, ErrSuperseded):
		return UserMessage{
			Message: "A newer upload replaced this one",
			Action:  "The most recent file wins; no action needed",
			Code:    "UPL001",
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// errorPattern maps an error substring to its user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "parse csv",
		msg: UserMessage{
			Message: "The file is not a valid CSV",
			Action:  "Ensure the file is comma-separated with consistent quoting",
			Code:    "FILE002",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "The file exceeds the upload size limit",
			Action:  "Reduce the file size and try again",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose a file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "no valid geometry",
		msg: UserMessage{
			Message: "The overlay contains no usable coordinates",
			Action:  "The map view was left unchanged",
			Code:    "MAP001",
		},
	},
	{
		pattern: "not ready",
		msg: UserMessage{
			Message: "The map is still initializing",
			Action:  "The change will apply once the map finishes loading",
			Code:    "MAP002",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check the application logs for the original technical error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
