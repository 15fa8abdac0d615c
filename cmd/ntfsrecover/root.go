package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/go-forensics/ntfsrecover/recovery"
	"github.com/go-forensics/ntfsrecover/rlog"
	"github.com/spf13/cobra"
)

const appName = "ntfsrecover"

const (
	exitCodeUserError int = iota + 2
	exitCodeFunctionalError
	exitCodeTechnicalError
)

var isWindows = runtime.GOOS == "windows"

// Execute builds and runs the ntfsrecover command tree.
func Execute() error {
	rootCmd := &cobra.Command{
		Use:          appName,
		Short:        appName + " - recover files from a raw NTFS volume",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "print details about what's going on")
	rootCmd.PersistentFlags().Int("sector-size", 0, "override the volume's reported bytes per sector")
	rootCmd.PersistentFlags().Int("cluster-size", 0, "override the volume's reported sectors per cluster")

	rootCmd.AddCommand(newDumpMftCommand())
	rootCmd.AddCommand(newExtractCommand())
	rootCmd.AddCommand(newLsCommand())

	return rootCmd.Execute()
}

// exitCode classifies err into one of the three exit codes mftdump's CLI ancestor distinguished: a
// recovery.Error reports either a malformed-but-readable volume (exitCodeFunctionalError) or an I/O/geometry
// failure (exitCodeTechnicalError); anything else reaching main (bad arguments, bad flags, an unopenable output
// path) is the caller's to fix, exitCodeUserError.
func exitCode(err error) int {
	var recErr *recovery.Error
	if errors.As(err, &recErr) {
		switch recErr.Kind {
		case recovery.KindFormat, recovery.KindMissing, recovery.KindCollision:
			return exitCodeFunctionalError
		default:
			return exitCodeTechnicalError
		}
	}
	return exitCodeUserError
}

// openVolume opens path as a raw NTFS volume using the --sector-size/--cluster-size/--verbose flags common to
// every subcommand. The caller is responsible for closing the returned file once done with the volume.
func openVolume(cmd *cobra.Command, path string) (*recovery.Volume, *os.File, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	sectorSize, _ := cmd.Flags().GetInt("sector-size")
	clusterSize, _ := cmd.Flags().GetInt("cluster-size")

	level := rlog.WarnLevel
	if verbose {
		level = rlog.DebugLevel
	}
	logger := rlog.New(os.Stderr, level)

	f, err := os.Open(normalizeVolumePath(path))
	if err != nil {
		return nil, nil, fmt.Errorf("opening volume %s: %w", path, err)
	}

	vol, err := recovery.Open(f, recovery.Options{
		SectorSize:  sectorSize,
		ClusterSize: clusterSize,
		Logger:      logger,
	})
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return vol, f, nil
}

// normalizeVolumePath turns a bare drive letter like "C:" into the \\.\C: device path Windows requires for raw
// volume access, exactly as t9t-gomft's mftdump does for its volume argument.
func normalizeVolumePath(path string) string {
	if isWindows && len(path) <= 3 && strings.HasSuffix(strings.TrimSuffix(path, `\`), ":") {
		return `\\.\` + strings.TrimSuffix(path, `\`)
	}
	return path
}

func formatBytes(b int64) string {
	if b < 1024 {
		return fmt.Sprintf("%dB", b)
	}
	if b < 1048576 {
		return fmt.Sprintf("%.2fKiB", float64(b)/1024)
	}
	if b < 1073741824 {
		return fmt.Sprintf("%.2fMiB", float64(b)/1048576)
	}
	return fmt.Sprintf("%.2fGiB", float64(b)/1073741824)
}
