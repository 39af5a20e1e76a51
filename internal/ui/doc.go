// Package ui renders git command and checkout progress for people reading the CI log.
package ui
