// Package models defines the client-side data shapes exchanged with the
// Galvan auth API and kept in the local credential record.
package models
