// Package process cleans up browser processes launched for a publish run.
package process
