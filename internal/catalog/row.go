// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package catalog

import (
	"encoding/json"
	"fmt"
	"time"
)

// Row is the capability every catalog entry shares, regardless of which
// family's identity shape backs it. Concrete types implement Row rather
// than a single monolithic struct carrying every family's optional
// columns.
type Row interface {
	Family() Family
	UniquenessKey() string
	ForecastCycle() time.Time
	ValidTime() time.Time
	Tau() int
	StorageKey() string
	Accessed() time.Time
	PayloadMeta() json.RawMessage
}

// base carries the columns every family shares.
type base struct {
	family        Family
	forecastCycle time.Time
	validTime     time.Time
	storageKey    string
	accessed      time.Time
	payloadMeta   json.RawMessage
}

func (b base) Family() Family                { return b.family }
func (b base) ForecastCycle() time.Time      { return b.forecastCycle }
func (b base) ValidTime() time.Time          { return b.validTime }
func (b base) StorageKey() string            { return b.storageKey }
func (b base) Accessed() time.Time           { return b.accessed }
func (b base) PayloadMeta() json.RawMessage  { return b.payloadMeta }

func (b base) tau() int {
	return int(b.validTime.Sub(b.forecastCycle).Hours())
}

// DeterministicRow backs global, regional, regional_alaska, and
// precipitation families: uniqueness is (forecast_cycle, valid_time).
type DeterministicRow struct {
	base
}

// NewDeterministicRow constructs a deterministic-family row.
func NewDeterministicRow(family Family, forecastCycle, validTime time.Time, storageKey string, payloadMeta json.RawMessage) *DeterministicRow {
	return &DeterministicRow{base{
		family:        family,
		forecastCycle: forecastCycle,
		validTime:     validTime,
		storageKey:    storageKey,
		payloadMeta:   payloadMeta,
	}}
}

func (r *DeterministicRow) Tau() int { return r.tau() }

func (r *DeterministicRow) UniquenessKey() string {
	return fmt.Sprintf("%s|%d|%d", r.family, r.forecastCycle.Unix(), r.validTime.Unix())
}

// EnsembleRow backs ensemble_global: uniqueness additionally includes
// the ensemble member.
type EnsembleRow struct {
	base
	EnsembleMember string
}

// NewEnsembleRow constructs an ensemble-family row.
func NewEnsembleRow(family Family, forecastCycle, validTime time.Time, member, storageKey string, payloadMeta json.RawMessage) *EnsembleRow {
	return &EnsembleRow{
		base: base{
			family:        family,
			forecastCycle: forecastCycle,
			validTime:     validTime,
			storageKey:    storageKey,
			payloadMeta:   payloadMeta,
		},
		EnsembleMember: member,
	}
}

func (r *EnsembleRow) Tau() int { return r.tau() }

func (r *EnsembleRow) UniquenessKey() string {
	return fmt.Sprintf("%s|%d|%d|%s", r.family, r.forecastCycle.Unix(), r.validTime.Unix(), r.EnsembleMember)
}

// TropicalRow backs tropical_deterministic, tropical_ensemble, and
// tropical_analysis: uniqueness is storm identity plus advisory (plus
// valid_time, since one advisory carries a full track of valid times).
// EnsembleMember is only meaningful for tropical_ensemble.
type TropicalRow struct {
	base
	StormName      string
	Basin          string
	StormYear      int
	StormNumber    int
	Advisory       int
	EnsembleMember string
}

// NewTropicalRow constructs a tropical-family row.
func NewTropicalRow(family Family, forecastCycle, validTime time.Time, stormName, basin string, stormYear, stormNumber, advisory int, member, storageKey string, payloadMeta json.RawMessage) *TropicalRow {
	return &TropicalRow{
		base: base{
			family:        family,
			forecastCycle: forecastCycle,
			validTime:     validTime,
			storageKey:    storageKey,
			payloadMeta:   payloadMeta,
		},
		StormName:      stormName,
		Basin:          basin,
		StormYear:      stormYear,
		StormNumber:    stormNumber,
		Advisory:       advisory,
		EnsembleMember: member,
	}
}

func (r *TropicalRow) Tau() int {
	if r.family.isAnalysis() {
		return 0
	}
	return r.tau()
}

func (r *TropicalRow) UniquenessKey() string {
	return fmt.Sprintf("%s|%s|%d|%d|%d|%d|%s",
		r.family, r.Basin, r.StormYear, r.StormNumber, r.Advisory, r.validTime.Unix(), r.EnsembleMember)
}
