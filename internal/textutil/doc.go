// Package textutil normalizes user supplied names into filesystem-safe tokens.
//
// Input file stems end up inside generated output names, so they are folded
// to ASCII (diacritics stripped via Unicode decomposition) and any character
// outside [A-Za-z0-9_-] is replaced with an underscore.
package textutil
