package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-forensics/ntfsrecover/mft"
	"github.com/go-forensics/ntfsrecover/recovery"
	"github.com/gobwas/glob"
	"github.com/spf13/cobra"
)

const orphanedPrefix = "__ORPHANED__"

// progressRefreshRate bounds how often the extract command redraws its progress line.
const progressRefreshRate = 500 * time.Millisecond

func newExtractCommand() *cobra.Command {
	var selectors []string
	var force bool

	cmd := &cobra.Command{
		Use:   "extract <volume> <output dir>",
		Short: "extract files out of a volume's reconstructed MFT into output dir",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, f, err := openVolume(cmd, args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			outputRoot := args[1]
			if err := os.MkdirAll(outputRoot, 0777); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}

			globs, err := compileSelectors(selectors)
			if err != nil {
				return err
			}

			return runExtract(cmd, vol, outputRoot, globs, force)
		},
	}

	cmd.Flags().StringArrayVarP(&selectors, "selector", "s", nil, "glob pattern to select files by name or path (repeatable); matches everything if omitted")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing output files instead of suffixing")
	return cmd
}

func compileSelectors(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(p), '/')
		if err != nil {
			return nil, fmt.Errorf("compiling selector %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// matchesSelectors reports whether name or fullPath satisfies any of globs, case-insensitively. No selectors at
// all means every file matches.
func matchesSelectors(globs []glob.Glob, name, fullPath string) bool {
	if len(globs) == 0 {
		return true
	}
	lowerName := strings.ToLower(name)
	lowerPath := strings.ToLower(fullPath)
	for _, g := range globs {
		if g.Match(lowerName) || g.Match(lowerPath) {
			return true
		}
	}
	return false
}

func runExtract(cmd *cobra.Command, vol *recovery.Volume, outputRoot string, globs []glob.Glob, force bool) error {
	logger := vol.Logger()
	verbose, _ := cmd.Flags().GetBool("verbose")
	out := cmd.OutOrStdout()

	total := len(vol.Index)
	extracted := 0
	lastRefresh := time.Time{}

	for i, rec := range vol.Index {
		if rec == nil || rec.Flags.Is(mft.RecordFlagIsDirectory) {
			continue
		}

		pathParts, orphaned := vol.Resolve(i)
		name := "unnamed"
		if len(pathParts) > 0 {
			name = pathParts[len(pathParts)-1]
		}
		fullPath := strings.Join(pathParts, "/")

		if !matchesSelectors(globs, name, fullPath) {
			continue
		}

		primary, alternates, err := vol.Materialize(i)
		if err != nil {
			logger.Warnf("record %d: extracting %q: %v", i, fullPath, err)
			continue
		}

		destDir := outputRoot
		if orphaned {
			destDir = filepath.Join(outputRoot, orphanedPrefix)
		} else if len(pathParts) > 1 {
			destDir = filepath.Join(append([]string{outputRoot}, pathParts[:len(pathParts)-1]...)...)
		}
		if err := os.MkdirAll(destDir, 0777); err != nil {
			logger.Warnf("record %d: creating directory %q: %v", i, destDir, err)
			continue
		}

		if err := writeStream(filepath.Join(destDir, name), primary, force); err != nil {
			logger.Warnf("record %d: writing %q: %v", i, name, err)
			continue
		}
		for streamName, data := range alternates {
			adsName := name + "~" + streamName
			if err := writeStream(filepath.Join(destDir, adsName), data, force); err != nil {
				logger.Warnf("record %d: writing alternate stream %q: %v", i, adsName, err)
			}
		}

		extracted++
		if verbose && time.Since(lastRefresh) >= progressRefreshRate {
			fmt.Fprintf(out, "\rextracted %d/%d records", extracted, total)
			lastRefresh = time.Now()
		}
	}
	if verbose {
		fmt.Fprintf(out, "\rextracted %d/%d records\n", extracted, total)
	}
	return nil
}

// writeStream writes data to path, resolving a collision by appending a four-digit numeric suffix (never
// overwriting) unless force is set.
func writeStream(path string, data []byte, force bool) error {
	if force {
		return os.WriteFile(path, data, 0666)
	}

	candidate := path
	for suffix := 0; ; suffix++ {
		if suffix > 0 {
			candidate = fmt.Sprintf("%s_%04d", path, suffix-1)
		}
		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		_, writeErr := f.Write(data)
		closeErr := f.Close()
		if writeErr != nil {
			return writeErr
		}
		return closeErr
	}
}
