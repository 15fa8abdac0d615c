// Package extract materializes a file record's data streams into plain byte slices: the unnamed primary stream
// and any named alternate data streams (ADS) recorded alongside it.
package extract

import (
	"fmt"
	"time"

	"github.com/go-forensics/ntfsrecover/mft"
)

// Materialize invokes the producers under rec's DATA attribute and returns the primary (unnamed) stream's bytes
// plus a map of every other stream name to its bytes. A record with no unnamed DATA stream yields an empty
// primary rather than an error, matching a typical directory record. Materialize does not retry or cache: each
// call re-invokes every producer from scratch, relying on producers being idempotent and side-effect-free.
func Materialize(rec *mft.Record, src mft.Source) (primary []byte, alternates map[string][]byte, err error) {
	if rec == nil {
		return nil, nil, fmt.Errorf("extract: record is nil")
	}

	streams, ok := rec.Attributes["data"]
	if !ok {
		return []byte{}, map[string][]byte{}, nil
	}

	alternates = make(map[string][]byte)
	for name, attr := range streams {
		data, produceErr := attr.Producer.Produce(src)
		if produceErr != nil {
			return nil, nil, fmt.Errorf("extract: producing stream %q: %w", name, produceErr)
		}
		if name == "" {
			primary = data
			continue
		}
		alternates[name] = data
	}

	if primary == nil {
		primary = []byte{}
	}
	return primary, alternates, nil
}

// FileInfo is a directory listing's view of an MFT record: its name and timestamps as recorded in its
// FILE_NAME attribute, plus whether it names a directory.
type FileInfo struct {
	Name             string
	IsDirectory      bool
	RealSize         uint64
	ModificationTime time.Time
}

// Info builds a FileInfo from rec's FILE_NAME attribute. A record with no FILE_NAME attribute, or whose
// FILE_NAME payload fails to parse, is reported as an error; callers walking a directory index already have the
// file reference to fall back on for such records.
func Info(rec *mft.Record) (FileInfo, error) {
	if rec == nil {
		return FileInfo{}, fmt.Errorf("extract: record is nil")
	}
	attr, ok := rec.Find("filename", "")
	if !ok {
		return FileInfo{}, fmt.Errorf("extract: record %d has no filename attribute", rec.RecordNumber)
	}
	data, err := attr.Producer.Produce(mft.Source{})
	if err != nil {
		return FileInfo{}, fmt.Errorf("extract: record %d: producing filename content: %w", rec.RecordNumber, err)
	}
	fn, err := mft.ParseFileName(data)
	if err != nil {
		return FileInfo{}, fmt.Errorf("extract: record %d: parsing filename content: %w", rec.RecordNumber, err)
	}
	return FileInfo{
		Name:             fn.Name,
		IsDirectory:      rec.Flags.Is(mft.RecordFlagIsDirectory),
		RealSize:         fn.RealSize,
		ModificationTime: fn.ModificationTime,
	}, nil
}
