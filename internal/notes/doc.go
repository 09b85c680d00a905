// Package notes provides note CRUD with deterministic slugs and
// write-time markdown rendering, so reads are plain row fetches.
package notes
