package handler

import (
	"errors"
	"time"
)

const (
	// DefaultTimeout is the maximum time to process a request
	DefaultTimeout = 10 * time.Second

	// MaxBodySize bounds request bodies accepted by the drinks endpoints
	MaxBodySize = 64 * 1024 // 64KB

	// RequestIDHeader carries the request id in and out
	RequestIDHeader = "X-Request-Id"
)

// Errors surfaced to clients, each mapped to a status in respondError
var (
	ErrInvalidJSON  = errors.New("invalid JSON in request body")
	ErrInvalidID    = errors.New("drink id must be a positive integer")
	ErrBodyTooLarge = errors.New("request body too large")
)

// ResponseHeaders common headers to include in all API responses
var ResponseHeaders = map[string]string{
	"Content-Type": "application/json",
}

// Messages for non-authorization errors
var statusMessages = map[int]string{
	400: "The request cannot be fulfilled due to bad syntax",
	404: "resource not found",
	405: "method not allowed",
	422: "unprocessable",
	500: "Internal Server Error.",
}

// ErrorResponse is the body of every error reply other than authorization failures
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// DrinksResponse wraps one or more drinks
type DrinksResponse struct {
	Success bool `json:"success"`
	Drinks  any  `json:"drinks"`
}

type DeleteResponse struct {
	Success bool `json:"success"`
	Deleted int  `json:"deleted"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}
