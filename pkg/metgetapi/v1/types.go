// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Package v1 defines the wire types exchanged with the Request API. Both
// the server and any Go client of MetGet-Server should import this
// package rather than redeclaring the JSON shapes.
package v1

import (
	"encoding/json"
	"time"
)

// OutputFormat is one of the supported build output encodings.
type OutputFormat string

const (
	FormatOWIASCII   OutputFormat = "owi-ascii"
	FormatOWINetCDF  OutputFormat = "owi-netcdf"
	FormatRASNetCDF  OutputFormat = "ras-netcdf"
	FormatDelft3D    OutputFormat = "delft3d"
)

// RequestStatus mirrors the requests.status column values.
type RequestStatus string

const (
	StatusQueued    RequestStatus = "queued"
	StatusRunning   RequestStatus = "running"
	StatusError     RequestStatus = "error"
	StatusCompleted RequestStatus = "completed"
)

// Domain is one entry of a build request's ordered domain stack. Exactly
// one of the corner, origin, or preset geometry forms is populated,
// validated by internal/requestapi at intake.
type Domain struct {
	Service string `json:"service" validate:"required"`
	Level   int    `json:"level" validate:"gte=0"`

	// Corner + delta form.
	CornerX *float64 `json:"x_init,omitempty"`
	CornerY *float64 `json:"y_init,omitempty"`
	DX      *float64 `json:"di,omitempty"`
	DY      *float64 `json:"dj,omitempty"`

	// Origin + delta + counts + rotation form.
	OriginX  *float64 `json:"x_origin,omitempty"`
	OriginY  *float64 `json:"y_origin,omitempty"`
	NI       *int     `json:"ni,omitempty"`
	NJ       *int     `json:"nj,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`

	// Named preset form.
	Preset string `json:"preset,omitempty"`

	// EnsembleMember and StormName/StormYear/Basin/Advisory identify a
	// row within an ensemble or tropical family; required when the
	// resolved family needs them (spec §4.8 edge-case policies).
	EnsembleMember string `json:"ensemble_member,omitempty"`
	StormName      string `json:"storm_name,omitempty"`
	StormYear      int    `json:"storm_year,omitempty"`
	Basin          string `json:"basin,omitempty"`
	Advisory       string `json:"advisory,omitempty"`
}

// RequestSpec is the body accepted by POST /build.
type RequestSpec struct {
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	TimeStep  int       `json:"time_step" validate:"required,gt=0"`

	Format OutputFormat `json:"format" validate:"required,oneof=owi-ascii owi-netcdf ras-netcdf delft3d"`

	Nowcast            bool `json:"nowcast"`
	MultipleForecasts  bool `json:"multiple_forecasts"`
	Backfill           bool `json:"backfill"`

	BackgroundPressure float64 `json:"background_pressure"`
	NullValue          float64 `json:"null_value"`
	EPSG               int     `json:"epsg" validate:"required"`
	Filename           string  `json:"filename" validate:"required"`

	Domains []Domain `json:"domains" validate:"required,min=1,dive"`

	// IdempotencyKey, when set, deduplicates retried /build calls within
	// a short window (spec §4.6).
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// BuildResponse is returned by a successful POST /build.
type BuildResponse struct {
	RequestID  string `json:"request_id"`
	RequestURL string `json:"request_url"`
}

// CoverageSummary is the structured per-timestep coverage report a
// completed build writes into the Request row's message field.
type CoverageSummary struct {
	Covered    int `json:"covered"`
	Backfilled int `json:"backfilled"`
	Holes      int `json:"holes"`
}

// CheckResponse mirrors the requests table columns returned by
// POST /check.
type CheckResponse struct {
	RequestID   string          `json:"request_id"`
	Status      RequestStatus   `json:"status"`
	Try         int             `json:"try"`
	StartDate   time.Time       `json:"start_date"`
	LastDate    time.Time       `json:"last_date"`
	Message     json.RawMessage `json:"message,omitempty"`
	RequestURL  string          `json:"request_url,omitempty"`
}

// FamilyCoverage is one entry of the GET /status snapshot.
type FamilyCoverage struct {
	Family               string      `json:"family"`
	MinCycle             *time.Time  `json:"min_cycle,omitempty"`
	MaxCycle             *time.Time  `json:"max_cycle,omitempty"`
	LatestCompleteCycle  *time.Time  `json:"latest_complete_cycle,omitempty"`
	Cycles               []time.Time `json:"cycles"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Families []FamilyCoverage `json:"families"`
}

// ErrorResponse is the JSON body of any non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
