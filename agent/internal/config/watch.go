package config

import (
	"context"

	"github.com/radartrack/radartrack/pkg/filewatch"
)

// Watch monitors path for changes and calls onChange with the newly loaded
// Config each time the file is written. It runs until ctx is cancelled.
//
// If a reload fails the error is logged and onChange is not called.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	return filewatch.Watch(ctx, path, Load, onChange)
}
