// Package domain contains the core business entities and errors.
package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates two vectors (or a vector and the
	// configured model dimension) have different lengths. Fatal to the
	// single call that produced it, never to the surrounding search.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrModelUnavailable indicates the embedding model never loaded
	// successfully. Callers degrade to keyword-only search.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrRequestTimeout indicates a single embedding request exceeded
	// its deadline. Other in-flight requests are unaffected.
	ErrRequestTimeout = errors.New("embedding request timed out")

	// ErrWorkerTerminated indicates the embedding worker stopped while
	// requests were pending. The pool self-heals on the next call.
	ErrWorkerTerminated = errors.New("embedding worker terminated")

	// ErrVectorIndexUnavailable indicates the accelerated vector index
	// is not available and callers should fall back to a full scan.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrPoolClosed indicates the embedding pool has been released and
	// cannot accept the request.
	ErrPoolClosed = errors.New("embedding pool closed")
)
