package domain

import "errors"

var (
	// ErrNoData signals that the filtered record set is empty: there is
	// nothing to aggregate and no span to gap-fill.
	ErrNoData = errors.New("no data for this selection")

	// ErrDatasetNotFound signals an unknown dataset id.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrBackendUnavailable signals a forecast backend id that is not
	// registered in this process.
	ErrBackendUnavailable = errors.New("forecast backend unavailable")

	// ErrInsufficientData signals a training series too short for the
	// chosen backend to fit.
	ErrInsufficientData = errors.New("insufficient data to fit model")

	// ErrInvalidWindow signals a forecast window the operator must
	// correct before a run can be planned.
	ErrInvalidWindow = errors.New("invalid forecast window")
)
