package models

// Requests for the signal HTTP endpoints.

type SignalsRequest struct {
	Symbol string `param:"symbol" validate:"required"`
	Label  string `query:"label" json:"label" validate:"omitempty,oneof=Top Bottom"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type ConfidenceRequest struct {
	Symbol string `param:"symbol" validate:"required"`
	From   string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
}

type RunRequest struct {
	Symbols []string `json:"symbols" validate:"omitempty,dive,required"`
}
