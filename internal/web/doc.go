// Package web hosts the hamco HTTP surface.
//
// # Routes
//
// Public routes cover the home feed, rendered note pages, health, and
// the account flows (register, login, verify, password reset). Note
// authoring requires the User role; key and user management require
// Admin. Every route passes through the authentication chain, and role
// requirements are declared per route with auth.RequireRole.
//
// # Error taxonomy
//
// Handlers map service errors onto JSON bodies: 400 for malformed
// input or bad one-time tokens, 401 for missing/invalid credentials,
// 403 for insufficient role, 404 for absent resources, 409 for taken
// emails, 422 for validation failures, and a generic 500 whose cause
// stays in the log.
package web
