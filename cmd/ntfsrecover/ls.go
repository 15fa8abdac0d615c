package main

import (
	"fmt"

	"github.com/go-forensics/ntfsrecover/extract"
	"github.com/go-forensics/ntfsrecover/mft"
	"github.com/spf13/cobra"
)

// rootDirectoryRecord is the MFT record number NTFS reserves for a volume's root directory.
const rootDirectoryRecord = 5

func newLsCommand() *cobra.Command {
	var recordNumber int

	cmd := &cobra.Command{
		Use:   "ls <volume>",
		Short: "list the entries of a directory's $INDEX_ROOT and $INDEX_ALLOCATION, defaulting to the volume root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, f, err := openVolume(cmd, args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			if recordNumber < 0 || recordNumber >= len(vol.Index) {
				return fmt.Errorf("record %d is out of range (index has %d records)", recordNumber, len(vol.Index))
			}
			dir := vol.Index[recordNumber]
			if dir == nil {
				return fmt.Errorf("record %d is absent", recordNumber)
			}
			if !dir.Flags.Is(mft.RecordFlagIsDirectory) {
				return fmt.Errorf("record %d is not a directory", recordNumber)
			}

			attr, ok := dir.Find("index_root", "$I30")
			if !ok {
				attr, ok = dir.Find("index_root", "")
			}
			if !ok {
				return fmt.Errorf("record %d has no index_root attribute", recordNumber)
			}

			logger := vol.Logger()
			raw, err := attr.Producer.Produce(vol.Source())
			if err != nil {
				return fmt.Errorf("reading index_root: %w", err)
			}
			root, err := mft.ParseIndexRoot(raw, logger.AsWarnFunc())
			if err != nil {
				return fmt.Errorf("parsing index_root: %w", err)
			}

			entries := root.Entries
			if allocAttr, ok := dir.Find("index_alloc", "$I30"); ok {
				allocRaw, err := allocAttr.Producer.Produce(vol.Source())
				if err != nil {
					logger.Warnf("record %d: reading index_alloc: %v", recordNumber, err)
				} else {
					entries = append(entries, mft.ParseIndexAllocationBlocks(allocRaw, int(root.BytesPerIndexRecord), logger.AsWarnFunc())...)
				}
			}

			out := cmd.OutOrStdout()
			for _, entry := range entries {
				if entry.IsLast {
					continue
				}
				kind := "file"
				size := entry.FileName.RealSize
				childIndex := int(entry.FileReference.RecordNumberMasked())
				if childIndex >= 0 && childIndex < len(vol.Index) && vol.Index[childIndex] != nil {
					child := vol.Index[childIndex]
					if child.Flags.Is(mft.RecordFlagIsDirectory) {
						kind = "dir"
					}
					if info, err := extract.Info(child); err == nil {
						size = info.RealSize
					}
				}
				fmt.Fprintf(out, "%-5s %10s  %s\n", kind, formatBytes(int64(size)), entry.FileName.Name)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&recordNumber, "record", rootDirectoryRecord, "MFT record number of the directory to list")
	return cmd
}
