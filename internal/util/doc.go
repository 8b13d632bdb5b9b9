// Package util holds small helpers shared by the public packages: prompt
// template rendering and map copying. Nothing here is public API.
package util
