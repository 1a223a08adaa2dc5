// Package face defines landmark extraction results and renders landmark
// images used as pose conditioning.
package face
