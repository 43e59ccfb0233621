// Package jobconfig decodes job source files —
// the Go-native analogue of a JS module exporting an array of job
// definitions — using a viper + mapstructure decode pattern
// generalized from discriminated process/cronjob entries to plain jobs.
package jobconfig

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/cronburgundy/cronburgundy/internal/jobspec"
	"github.com/cronburgundy/cronburgundy/internal/validate"
)

// fileShape is the on-disk document shape: a top-level "jobs" list.
// TOML requires a map at the document root, so every supported format
// (yaml/yml/toml/json) uses this same wrapper rather than a bare array,
// keeping one decode path for all three.
type fileShape struct {
	Jobs []map[string]any `mapstructure:"jobs"`
}

// SupportedExtensions lists the job source file extensions the registry
// and CLI accept.
var SupportedExtensions = []string{".yaml", ".yml", ".toml", ".json"}

// decodeTo mirrors internal/config's decodeTo[T] helper.
func decodeTo[T any](m map[string]any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "mapstructure",
		WeaklyTypedInput: true,
		Result: &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(m); err != nil {
		return out, err
	}
	return out, nil
}

// LoadJobFile reads one job source file and decodes its ordered job list.
// Jobs are returned in file order; a duplicate id within a single file is
// rejected. The same id in different files is not checked here.
func LoadJobFile(path string) ([]jobspec.Job, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read job source file %s: %w", path, err)
	}

	var shape fileShape
	if err := v.Unmarshal(&shape); err != nil {
		return nil, fmt.Errorf("unmarshal job source file %s: %w", path, err)
	}

	jobs := make([]jobspec.Job, 0, len(shape.Jobs))
	seen := make(map[string]int, len(shape.Jobs))
	for i, raw := range shape.Jobs {
		j, err := decodeTo[jobspec.Job](raw)
		if err != nil {
			return nil, fmt.Errorf("decode job #%d in %s: %w", i, path, err)
		}
		if err := validate.Struct(j); err != nil {
			return nil, fmt.Errorf("job #%d in %s: %w", i, path, err)
		}
		if err := j.Validate(); err != nil {
			return nil, fmt.Errorf("job #%d in %s: %w", i, path, err)
		}
		if first, dup := seen[j.ID]; dup {
			return nil, fmt.Errorf("job #%d in %s: duplicate id %q (already used by job #%d)", i, path, j.ID, first)
		}
		seen[j.ID] = i
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// IsSupportedFile reports whether path has a recognized job source
// extension.
func IsSupportedFile(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range SupportedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
