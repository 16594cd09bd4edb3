// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Package middleware holds the gorilla/mux middleware chain the Request
// API installs on every route: request ID generation, structured request
// logging, panic recovery, and maintenance-mode rejection.
package middleware

// contextKey namespaces context values this package sets so they can
// never collide with a key set by another package.
type contextKey string
