package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newDumpMftCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "dump-mft <volume> <output file>",
		Short: "dump the reconstructed $MFT of a volume to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, f, err := openVolume(cmd, args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			out, err := openOutputFile(args[1], force)
			if err != nil {
				return fmt.Errorf("opening output file: %w", err)
			}
			defer out.Close()

			n, err := out.Write(vol.MFTImage)
			if err != nil {
				return fmt.Errorf("writing $MFT image: %w", err)
			}

			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes) to %s\n", formatBytes(int64(n)), n, args[1])
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite the output file if it already exists")
	return cmd
}

// openOutputFile creates outfile, refusing to overwrite an existing file unless force is set.
func openOutputFile(outfile string, force bool) (*os.File, error) {
	if force {
		return os.Create(outfile)
	}
	return os.OpenFile(outfile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
}
