// Package transit provides the TfL value types returned by the gateway.
// Field names follow the upstream JSON so responses pass through unchanged.
package transit

import (
	"encoding/json"
	"time"
)

// Line is a TfL line with its current statuses and route sections.
type Line struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	ModeName      string          `json:"modeName"`
	Disruptions   []Disruption    `json:"disruptions"`
	Created       string          `json:"created"`
	Modified      string          `json:"modified"`
	LineStatuses  []LineStatus    `json:"lineStatuses"`
	RouteSections []MatchedRoute  `json:"routeSections"`
	ServiceTypes  []ServiceType   `json:"serviceTypes"`
	Crowding      json.RawMessage `json:"crowding,omitempty"`
}

// LineStatus is one status entry of a line (e.g. "Good Service").
type LineStatus struct {
	ID                        int              `json:"id"`
	LineID                    string           `json:"lineId,omitempty"`
	StatusSeverity            int              `json:"statusSeverity"`
	StatusSeverityDescription string           `json:"statusSeverityDescription"`
	Reason                    string           `json:"reason,omitempty"`
	Created                   string           `json:"created"`
	ValidityPeriods           []ValidityPeriod `json:"validityPeriods"`
	Disruption                *Disruption      `json:"disruption,omitempty"`
}

type ValidityPeriod struct {
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
	IsNow    bool   `json:"isNow"`
}

// MatchedRoute is a route section served by a line.
type MatchedRoute struct {
	RouteCode       string `json:"routeCode,omitempty"`
	Name            string `json:"name"`
	Direction       string `json:"direction"`
	OriginationName string `json:"originationName"`
	DestinationName string `json:"destinationName"`
	Originator      string `json:"originator"`
	Destination     string `json:"destination"`
	ServiceType     string `json:"serviceType"`
	ValidTo         string `json:"validTo"`
	ValidFrom       string `json:"validFrom"`
}

type ServiceType struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Prediction is a single expected vehicle arrival at a stop.
type Prediction struct {
	ID                  string           `json:"id"`
	OperationType       int              `json:"operationType"`
	VehicleID           string           `json:"vehicleId"`
	NaptanID            string           `json:"naptanId"`
	StationName         string           `json:"stationName"`
	LineID              string           `json:"lineId"`
	LineName            string           `json:"lineName"`
	PlatformName        string           `json:"platformName"`
	Direction           string           `json:"direction,omitempty"`
	Bearing             string           `json:"bearing"`
	DestinationNaptanID string           `json:"destinationNaptanId,omitempty"`
	DestinationName     string           `json:"destinationName,omitempty"`
	Timestamp           time.Time        `json:"timestamp"`
	TimeToStation       int              `json:"timeToStation"`
	CurrentLocation     string           `json:"currentLocation"`
	Towards             string           `json:"towards"`
	ExpectedArrival     time.Time        `json:"expectedArrival"`
	TimeToLive          time.Time        `json:"timeToLive"`
	ModeName            string           `json:"modeName"`
	Timing              PredictionTiming `json:"timing"`
}

// PredictionTiming carries upstream bookkeeping timestamps. They are not
// always RFC 3339 (often missing a zone), so they stay as text.
type PredictionTiming struct {
	CountdownServerAdjustment string `json:"countdownServerAdjustment"`
	Source                    string `json:"source"`
	Insert                    string `json:"insert"`
	Read                      string `json:"read"`
	Sent                      string `json:"sent"`
	Received                  string `json:"received"`
}

// Disruption is a service disruption affecting one or more lines.
type Disruption struct {
	Category            string          `json:"category"`
	Type                string          `json:"type,omitempty"`
	CategoryDescription string          `json:"categoryDescription"`
	Description         string          `json:"description"`
	Summary             string          `json:"summary,omitempty"`
	AdditionalInfo      string          `json:"additionalInfo,omitempty"`
	Created             string          `json:"created,omitempty"`
	LastUpdate          string          `json:"lastUpdate,omitempty"`
	AffectedRoutes      []AffectedRoute `json:"affectedRoutes"`
	AffectedStops       []StopPoint     `json:"affectedStops"`
	ClosureText         string          `json:"closureText,omitempty"`
}

type AffectedRoute struct {
	ID              string `json:"id"`
	LineID          string `json:"lineId"`
	RouteCode       string `json:"routeCode"`
	Name            string `json:"name"`
	Direction       string `json:"direction"`
	OriginationName string `json:"originationName"`
	DestinationName string `json:"destinationName"`
	IsEntireRoute   bool   `json:"isEntireRouteSection"`
	ValidTo         string `json:"validTo"`
	ValidFrom       string `json:"validFrom"`
}

type StopPoint struct {
	NaptanID   string   `json:"naptanId"`
	CommonName string   `json:"commonName"`
	StopType   string   `json:"stopType"`
	Modes      []string `json:"modes"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
}
